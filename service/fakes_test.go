package service

import (
	"fmt"
	"sync"
	"time"

	"boardlink/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeTransport records calls and lets tests fire the registered handlers.
type fakeTransport struct {
	handlers    TransportHandlers
	began       []string
	interval    time.Duration
	loops       int
	disconnects int
	stops       int
}

func (f *fakeTransport) Begin(url string)                     { f.began = append(f.began, url) }
func (f *fakeTransport) SetHandlers(h TransportHandlers)      { f.handlers = h }
func (f *fakeTransport) SetReconnectInterval(d time.Duration) { f.interval = d }
func (f *fakeTransport) Loop()                                { f.loops++ }
func (f *fakeTransport) Disconnect()                          { f.disconnects++ }
func (f *fakeTransport) Stop()                                { f.stops++ }

func (f *fakeTransport) connect()               { f.handlers.OnConnected() }
func (f *fakeTransport) disconnect()            { f.handlers.OnDisconnected() }
func (f *fakeTransport) message(payload string) { f.handlers.OnMessage([]byte(payload)) }

// transportPool hands out fakeTransports and remembers them in order.
type transportPool struct {
	created []*fakeTransport
}

func (p *transportPool) factory() TransportFactory {
	return func() Transport {
		ft := &fakeTransport{}
		p.created = append(p.created, ft)
		return ft
	}
}

// recordingListener logs every notification as a string.
type recordingListener struct {
	calls []string
}

func (l *recordingListener) OnConnectionChange(b *Board) {
	l.calls = append(l.calls, fmt.Sprintf("connection %s open=%v", b.ID(), b.IsOpen()))
}

func (l *recordingListener) OnData(b *Board) {
	l.calls = append(l.calls, "data "+b.ID())
}

func (l *recordingListener) OnCameraStats(b *Board, id, fps, width, height int) {
	l.calls = append(l.calls, fmt.Sprintf("cam_stats %s %d %d %dx%d", b.ID(), id, fps, width, height))
}

func (l *recordingListener) OnCameraSystemState(b *Board, opened, running models.EdgeState) {
	l.calls = append(l.calls, fmt.Sprintf("cam_state %s %v %v", b.ID(), opened, running))
}

func (l *recordingListener) OnDetectionState(b *Board, connected, running models.EdgeState, numThrows int) {
	l.calls = append(l.calls, fmt.Sprintf("detection_state %s %v %v %d", b.ID(), connected, running, numThrows))
}

func (l *recordingListener) OnDetectionEvent(b *Board, status models.Status, event models.Event) {
	l.calls = append(l.calls, fmt.Sprintf("detection_event %s %v/%v", b.ID(), status, event))
}

func (l *recordingListener) reset() { l.calls = nil }
