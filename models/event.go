package models

import "time"

type EventKind string

const (
	KindConnection        EventKind = "connection"
	KindData              EventKind = "data"
	KindCameraStats       EventKind = "camera_stats"
	KindCameraSystemState EventKind = "camera_system_state"
	KindDetectionState    EventKind = "detection_state"
	KindDetectionEvent    EventKind = "detection_event"
)

// BoardEvent is the exported form of a listener notification. It is what
// the journal stores, what goes to Kafka and what UI websocket clients see.
type BoardEvent struct {
	ID        string      `json:"id"`
	BoardID   string      `json:"board_id"`
	BoardName string      `json:"board_name"`
	Kind      EventKind   `json:"kind"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type ConnectionData struct {
	Open bool `json:"open"`
}

type CameraSystemStateData struct {
	Opened  EdgeState `json:"opened"`
	Running EdgeState `json:"running"`
}

type DetectionStateData struct {
	Connected EdgeState `json:"connected"`
	Running   EdgeState `json:"running"`
	NumThrows int       `json:"num_throws"`
}

type DetectionEventData struct {
	Status Status `json:"status"`
	Event  Event  `json:"event"`
}
