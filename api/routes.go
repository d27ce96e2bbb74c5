package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"boardlink/models"
	"boardlink/service"
)

func SetupRoutes(router *gin.Engine, reg *service.Registry, store EventStore, creds models.Credentials, wsHub *WebSocketHub) {
	// Enable CORS
	router.Use(CORSMiddleware())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{
			"status":  "ok",
			"boards":  reg.Len(),
			"clients": wsHub.ClientCount(),
		}))
	})

	// API routes
	api := router.Group("/api")
	{
		boards := api.Group("/boards")
		{
			boards.GET("", func(c *gin.Context) {
				GetBoards(c, reg)
			})
			boards.POST("", func(c *gin.Context) {
				AddBoard(c, reg)
			})
			boards.POST("/refresh", func(c *gin.Context) {
				RefreshBoards(c, reg, creds)
			})
			boards.GET("/:index", func(c *gin.Context) {
				GetBoard(c, reg)
			})
			boards.DELETE("/:index", func(c *gin.Context) {
				DeleteBoard(c, reg)
			})
			boards.POST("/:index/open", func(c *gin.Context) {
				OpenBoard(c, reg)
			})
			boards.POST("/:index/close", func(c *gin.Context) {
				CloseBoard(c, reg)
			})
			boards.GET("/:index/events", func(c *gin.Context) {
				GetBoardEvents(c, reg, store)
			})
		}
	}

	// WebSocket route
	router.GET("/ws", func(c *gin.Context) {
		HandleWebSocket(wsHub, c)
	})
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
