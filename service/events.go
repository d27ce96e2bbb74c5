package service

import (
	"github.com/google/uuid"

	"boardlink/models"
)

// EventSink consumes board notifications in their exported form.
type EventSink interface {
	Publish(ev models.BoardEvent)
}

// EventListener turns Listener callbacks into BoardEvents and publishes
// them to every sink.
type EventListener struct {
	sinks []EventSink
	clock Clock
}

func NewEventListener(clock Clock, sinks ...EventSink) *EventListener {
	if clock == nil {
		clock = RealClock()
	}
	return &EventListener{sinks: sinks, clock: clock}
}

func (l *EventListener) publish(b *Board, kind models.EventKind, data interface{}) {
	ev := models.BoardEvent{
		ID:        uuid.NewString(),
		BoardID:   b.ID(),
		BoardName: b.Name(),
		Kind:      kind,
		Data:      data,
		Timestamp: l.clock.Now().UTC(),
	}
	for _, s := range l.sinks {
		s.Publish(ev)
	}
}

func (l *EventListener) OnConnectionChange(b *Board) {
	l.publish(b, models.KindConnection, models.ConnectionData{Open: b.IsOpen()})
}

func (l *EventListener) OnData(b *Board) {
	l.publish(b, models.KindData, b.Info(-1))
}

func (l *EventListener) OnCameraStats(b *Board, id, fps, width, height int) {
	l.publish(b, models.KindCameraStats, models.CameraInfo{ID: id, FPS: fps, Width: width, Height: height})
}

func (l *EventListener) OnCameraSystemState(b *Board, opened, running models.EdgeState) {
	l.publish(b, models.KindCameraSystemState, models.CameraSystemStateData{Opened: opened, Running: running})
}

func (l *EventListener) OnDetectionState(b *Board, connected, running models.EdgeState, numThrows int) {
	l.publish(b, models.KindDetectionState, models.DetectionStateData{
		Connected: connected,
		Running:   running,
		NumThrows: numThrows,
	})
}

func (l *EventListener) OnDetectionEvent(b *Board, status models.Status, event models.Event) {
	l.publish(b, models.KindDetectionEvent, models.DetectionEventData{Status: status, Event: event})
}
