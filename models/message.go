package models

import "encoding/json"

// Message types streamed by a board on its events endpoint.
const (
	MessageState       = "state"
	MessageCameraState = "cam_state"
	MessageCameraStats = "cam_stats"
)

// Message is the envelope of every board event. Data is decoded once the
// type is known.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type StateData struct {
	Connected bool   `json:"connected"`
	Running   bool   `json:"running"`
	NumThrows int    `json:"numThrows"`
	Status    string `json:"status"`
	Event     string `json:"event"`
}

type CameraStateData struct {
	IsOpened  bool `json:"isOpened"`
	IsRunning bool `json:"isRunning"`
}

type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type CameraStatsData struct {
	ID         int        `json:"id"`
	FPS        int        `json:"fps"`
	Resolution Resolution `json:"resolution"`
}
