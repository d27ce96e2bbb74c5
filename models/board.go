package models

import "time"

// BoardRecord is one entry of the board directory. IP holds the board's
// event stream endpoint, either "host[:port]" or a full ws:// URL.
type BoardRecord struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	IP      string `json:"ip" yaml:"ip"`
	Version string `json:"version" yaml:"version"`
}

// Credentials are exchanged for an AccessToken at the token endpoint.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Empty() bool {
	return c.Username == "" && c.Password == ""
}

// AccessToken is an opaque bearer token with an absolute expiry.
type AccessToken struct {
	Value     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the token can be used at now.
func (t AccessToken) Valid(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt)
}

type CameraInfo struct {
	ID     int `json:"id"`
	FPS    int `json:"fps"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BoardInfo is a read-only snapshot of a board for the HTTP API.
type BoardInfo struct {
	Index         int          `json:"index"`
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Version       string       `json:"version"`
	URL           string       `json:"url"`
	Open          bool         `json:"open"`
	Alive         bool         `json:"alive"`
	LastAliveAt   time.Time    `json:"last_alive_at"`
	Connected     bool         `json:"connected"`
	Running       bool         `json:"running"`
	NumThrows     int          `json:"num_throws"`
	Status        Status       `json:"status"`
	Event         Event        `json:"event"`
	CamerasOpened bool         `json:"cameras_opened"`
	CamerasActive bool         `json:"cameras_running"`
	Cameras       []CameraInfo `json:"cameras"`
}
