package service

import "boardlink/models"

// Listener receives board notifications. All methods are called from the
// goroutine that ticks the board, while the registry lock is held, so an
// implementation must return quickly and must not call back into Registry.
type Listener interface {
	OnConnectionChange(b *Board)
	OnData(b *Board)
	OnCameraStats(b *Board, id, fps, width, height int)
	OnCameraSystemState(b *Board, opened, running models.EdgeState)
	OnDetectionState(b *Board, connected, running models.EdgeState, numThrows int)
	OnDetectionEvent(b *Board, status models.Status, event models.Event)
}

// NopListener ignores every notification. Embed it to implement only the
// callbacks you care about.
type NopListener struct{}

func (NopListener) OnConnectionChange(*Board)                                        {}
func (NopListener) OnData(*Board)                                                    {}
func (NopListener) OnCameraStats(*Board, int, int, int, int)                         {}
func (NopListener) OnCameraSystemState(*Board, models.EdgeState, models.EdgeState)   {}
func (NopListener) OnDetectionState(*Board, models.EdgeState, models.EdgeState, int) {}
func (NopListener) OnDetectionEvent(*Board, models.Status, models.Event)             {}

// Listeners fans each notification out to every member in order.
type Listeners []Listener

func (ls Listeners) OnConnectionChange(b *Board) {
	for _, l := range ls {
		l.OnConnectionChange(b)
	}
}

func (ls Listeners) OnData(b *Board) {
	for _, l := range ls {
		l.OnData(b)
	}
}

func (ls Listeners) OnCameraStats(b *Board, id, fps, width, height int) {
	for _, l := range ls {
		l.OnCameraStats(b, id, fps, width, height)
	}
}

func (ls Listeners) OnCameraSystemState(b *Board, opened, running models.EdgeState) {
	for _, l := range ls {
		l.OnCameraSystemState(b, opened, running)
	}
}

func (ls Listeners) OnDetectionState(b *Board, connected, running models.EdgeState, numThrows int) {
	for _, l := range ls {
		l.OnDetectionState(b, connected, running, numThrows)
	}
}

func (ls Listeners) OnDetectionEvent(b *Board, status models.Status, event models.Event) {
	for _, l := range ls {
		l.OnDetectionEvent(b, status, event)
	}
}
