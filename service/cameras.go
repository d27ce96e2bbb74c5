package service

import "boardlink/models"

// NumCameras is the number of camera slots on a board.
const NumCameras = 3

// Camera holds the last stats sample of one camera. Fields are -1 until
// the first sample arrives.
type Camera struct {
	ID     int
	FPS    int
	Width  int
	Height int
}

type CameraSystem struct {
	opened  bool
	running bool
	cameras [NumCameras]Camera
}

func newCameraSystem() CameraSystem {
	cs := CameraSystem{}
	for i := range cs.cameras {
		cs.cameras[i] = Camera{ID: -1, FPS: -1, Width: -1, Height: -1}
	}
	return cs
}

func (cs *CameraSystem) IsOpened() bool  { return cs.opened }
func (cs *CameraSystem) IsRunning() bool { return cs.running }
func (cs *CameraSystem) NumCameras() int { return len(cs.cameras) }

// Camera returns the slot at idx.
func (cs *CameraSystem) Camera(idx int) (Camera, bool) {
	if idx < 0 || idx >= len(cs.cameras) {
		return Camera{}, false
	}
	return cs.cameras[idx], true
}

// CameraByID returns the slot whose last sample carried id.
func (cs *CameraSystem) CameraByID(id int) (Camera, bool) {
	for _, cam := range cs.cameras {
		if cam.ID == id && id >= 0 {
			return cam, true
		}
	}
	return Camera{}, false
}

// Cameras returns a copy of all slots.
func (cs *CameraSystem) Cameras() [NumCameras]Camera {
	return cs.cameras
}

func (cs *CameraSystem) applyState(data models.CameraStateData) (opened, running models.EdgeState) {
	wasOpened, wasRunning := cs.opened, cs.running
	cs.opened = data.IsOpened
	cs.running = data.IsRunning
	return models.Transition(wasOpened, cs.opened), models.Transition(wasRunning, cs.running)
}

func (cs *CameraSystem) applyStats(data models.CameraStatsData) (Camera, bool) {
	if data.ID < 0 || data.ID >= len(cs.cameras) {
		return Camera{}, false
	}
	cam := Camera{
		ID:     data.ID,
		FPS:    data.FPS,
		Width:  data.Resolution.Width,
		Height: data.Resolution.Height,
	}
	cs.cameras[data.ID] = cam
	return cam, true
}
