package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"boardlink/models"
	"boardlink/service"
)

// EventStore serves recent board events.
type EventStore interface {
	Recent(boardID string, limit int) ([]models.BoardEvent, error)
}

type addBoardRequest struct {
	ID      string `json:"id" binding:"required"`
	Name    string `json:"name"`
	Version string `json:"version"`
	URL     string `json:"url"`
	IP      string `json:"ip"`
}

// GetBoards returns every board in discovery order
func GetBoards(c *gin.Context, reg *service.Registry) {
	c.JSON(http.StatusOK, models.SuccessResponse(reg.Infos()))
}

// GetBoard returns one board by index
func GetBoard(c *gin.Context, reg *service.Registry) {
	idx, ok := boardIndex(c)
	if !ok {
		return
	}
	info, err := reg.Info(idx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse(info))
}

// AddBoard registers a board by URL or IP
func AddBoard(c *gin.Context, reg *service.Registry) {
	var req addBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
		return
	}
	if req.URL == "" && req.IP == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse("url or ip is required"))
		return
	}
	if _, exists := reg.IndexOf(req.ID); exists {
		c.JSON(http.StatusConflict, models.ErrorResponse("board "+req.ID+" already exists"))
		return
	}

	var b *service.Board
	if req.URL != "" {
		b = reg.AddBoardURL(req.Name, req.ID, req.Version, req.URL)
	} else {
		b = reg.AddBoardRecord(models.BoardRecord{ID: req.ID, Name: req.Name, IP: req.IP, Version: req.Version})
	}

	idx, _ := reg.IndexOf(b.ID())
	info, err := reg.Info(idx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.SuccessResponse(info))
}

// DeleteBoard removes a board and tears down its connection
func DeleteBoard(c *gin.Context, reg *service.Registry) {
	idx, ok := boardIndex(c)
	if !ok {
		return
	}
	if err := reg.DeleteBoard(idx); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse("board deleted"))
}

// OpenBoard opens a board connection, reopening it when force=true
func OpenBoard(c *gin.Context, reg *service.Registry) {
	idx, ok := boardIndex(c)
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))
	if err := reg.OpenBoard(idx, force); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse("board opened"))
}

// CloseBoard closes a board connection
func CloseBoard(c *gin.Context, reg *service.Registry) {
	idx, ok := boardIndex(c)
	if !ok {
		return
	}
	if err := reg.CloseBoard(idx); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse("board closed"))
}

// GetBoardEvents returns the newest journal entries for a board
func GetBoardEvents(c *gin.Context, reg *service.Registry, store EventStore) {
	idx, ok := boardIndex(c)
	if !ok {
		return
	}
	info, err := reg.Info(idx)
	if err != nil {
		respondError(c, err)
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse("limit must be a positive integer"))
		return
	}

	events, err := store.Recent(info.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse(events))
}

// RefreshBoards fetches the board directory and merges it into the registry
func RefreshBoards(c *gin.Context, reg *service.Registry, creds models.Credentials) {
	if creds.Empty() {
		c.JSON(http.StatusPreconditionFailed, models.ErrorResponse("no account configured"))
		return
	}
	code, err := reg.AutoDetect(c.Request.Context(), creds)
	if err != nil {
		c.JSON(http.StatusBadGateway, models.UpstreamResponse(code, err))
		return
	}
	resp := models.UpstreamResponse(code, nil)
	resp.Data = reg.Infos()
	c.JSON(http.StatusOK, resp)
}

func boardIndex(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid board index"))
		return 0, false
	}
	return idx, true
}

func respondError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrIndexOutOfRange) {
		c.JSON(http.StatusNotFound, models.ErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusInternalServerError, models.ErrorResponse(err.Error()))
}
