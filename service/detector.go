package service

import "boardlink/models"

// DetectionSink receives the notifications raised by a Detector and its
// CameraSystem.
type DetectionSink interface {
	CameraStats(id, fps, width, height int)
	CameraSystemState(opened, running models.EdgeState)
	DetectionState(connected, running models.EdgeState, numThrows int)
	DetectionEvent(status models.Status, event models.Event)
}

// Detector mirrors the dart detector running on a board.
type Detector struct {
	connected bool
	running   bool
	numThrows int
	status    models.Status
	event     models.Event
	cameras   CameraSystem
	sink      DetectionSink
}

func NewDetector(sink DetectionSink) *Detector {
	return &Detector{
		numThrows: -1,
		status:    models.StatusUnknown,
		event:     models.EventUnknown,
		cameras:   newCameraSystem(),
		sink:      sink,
	}
}

func (d *Detector) IsConnected() bool           { return d.connected }
func (d *Detector) IsRunning() bool             { return d.running }
func (d *Detector) NumThrows() int              { return d.numThrows }
func (d *Detector) Status() models.Status       { return d.status }
func (d *Detector) Event() models.Event         { return d.event }
func (d *Detector) CameraSystem() *CameraSystem { return &d.cameras }

// ApplyState takes a "state" snapshot. Both notifications fire on every
// snapshot, including ones that change nothing.
func (d *Detector) ApplyState(data models.StateData) {
	wasConnected, wasRunning := d.connected, d.running

	d.connected = data.Connected
	d.running = data.Running
	d.numThrows = data.NumThrows
	d.status = models.ParseStatus(data.Status)
	d.event = models.ParseEvent(data.Event)

	connected := models.Transition(wasConnected, d.connected)
	running := models.Transition(wasRunning, d.running)
	if d.sink != nil {
		d.sink.DetectionState(connected, running, d.numThrows)
		d.sink.DetectionEvent(d.status, d.event)
	}
}

// ApplyCameraState forwards a "cam_state" snapshot to the camera system.
func (d *Detector) ApplyCameraState(data models.CameraStateData) {
	opened, running := d.cameras.applyState(data)
	if d.sink != nil {
		d.sink.CameraSystemState(opened, running)
	}
}

// ApplyCameraStats forwards a "cam_stats" sample. Samples for an id outside
// the fixed camera slots are dropped and reported as false.
func (d *Detector) ApplyCameraStats(data models.CameraStatsData) bool {
	cam, ok := d.cameras.applyStats(data)
	if !ok {
		return false
	}
	if d.sink != nil {
		d.sink.CameraStats(cam.ID, cam.FPS, cam.Width, cam.Height)
	}
	return true
}
