package service

import (
	"encoding/json"
	"log"
	"net"
	"strconv"

	"boardlink/models"
)

// Board is one remote dart board: its identity, the connection to its
// event stream and the detector state built from that stream.
type Board struct {
	name    string
	id      string
	version string

	conn     *Connection
	detector *Detector
	listener Listener
}

// NewBoard creates a board that streams from url ("host[:port]" or a ws:// URL).
func NewBoard(name, id, version, url string, transport Transport, clock Clock, opts ConnectionOptions) *Board {
	b := &Board{
		name:     name,
		id:       id,
		version:  version,
		listener: NopListener{},
	}
	b.detector = NewDetector(boardSink{b})
	b.conn = NewConnection(name, url, transport, clock, opts)
	b.conn.OnChange(func() { b.listener.OnConnectionChange(b) })
	b.conn.OnMessage(b.HandleMessage)
	return b
}

// NewBoardFromRecord creates a board from a directory entry.
func NewBoardFromRecord(rec models.BoardRecord, transport Transport, clock Clock, opts ConnectionOptions) *Board {
	return NewBoard(rec.Name, rec.ID, rec.Version, rec.IP, transport, clock, opts)
}

// NewBoardFromAddress creates a board reachable at ws://ip:port.
// A zero port selects DefaultBoardPort.
func NewBoardFromAddress(name, id, version string, ip net.IP, port uint16, transport Transport, clock Clock, opts ConnectionOptions) *Board {
	if port == 0 {
		port = DefaultBoardPort
	}
	url := "ws://" + net.JoinHostPort(ip.String(), strconv.Itoa(int(port)))
	return NewBoard(name, id, version, url, transport, clock, opts)
}

func (b *Board) Name() string    { return b.name }
func (b *Board) ID() string      { return b.id }
func (b *Board) Version() string { return b.version }
func (b *Board) URL() string     { return b.conn.Endpoint() }

func (b *Board) SetName(name string) {
	b.name = name
	b.conn.SetName(name)
}

func (b *Board) SetID(id string)           { b.id = id }
func (b *Board) SetVersion(version string) { b.version = version }
func (b *Board) SetURL(url string)         { b.conn.SetEndpoint(url) }

// ApplyRecord refreshes name, url and version from a directory entry.
// The id is never touched.
func (b *Board) ApplyRecord(rec models.BoardRecord) {
	b.SetName(rec.Name)
	b.SetURL(rec.IP)
	b.SetVersion(rec.Version)
}

// Record is the directory form of the board.
func (b *Board) Record() models.BoardRecord {
	return models.BoardRecord{
		ID:      b.id,
		Name:    b.name,
		IP:      b.URL(),
		Version: b.version,
	}
}

// SetListener replaces the listener that receives this board's notifications.
func (b *Board) SetListener(l Listener) {
	if l == nil {
		l = NopListener{}
	}
	b.listener = l
}

func (b *Board) Detector() *Detector     { return b.detector }
func (b *Board) Connection() *Connection { return b.conn }
func (b *Board) IsOpen() bool            { return b.conn.IsOpen() }
func (b *Board) IsAlive() bool           { return b.conn.IsAlive() }
func (b *Board) Open(force bool) bool    { return b.conn.Open(force) }
func (b *Board) Close()                  { b.conn.Close() }
func (b *Board) Tick() bool              { return b.conn.Tick() }

// HandleMessage decodes one payload from the event stream and routes it to
// the detector. Malformed and unknown messages are logged and dropped, and
// unlike accepted ones they do not reach the listener's OnData.
func (b *Board) HandleMessage(payload []byte) {
	var msg models.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Printf("⚠️ [%s] Dropping malformed message: %v", b.name, err)
		return
	}

	switch msg.Type {
	case models.MessageState:
		var data models.StateData
		if !b.decode(msg, &data) {
			return
		}
		b.detector.ApplyState(data)

	case models.MessageCameraState:
		var data models.CameraStateData
		if !b.decode(msg, &data) {
			return
		}
		b.detector.ApplyCameraState(data)

	case models.MessageCameraStats:
		var data models.CameraStatsData
		if !b.decode(msg, &data) {
			return
		}
		if !b.detector.ApplyCameraStats(data) {
			return
		}

	default:
		log.Printf("⚠️ [%s] Unknown message type: %q", b.name, msg.Type)
		return
	}

	b.listener.OnData(b)
}

func (b *Board) decode(msg models.Message, v interface{}) bool {
	if len(msg.Data) == 0 {
		return true
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		log.Printf("⚠️ [%s] Dropping %s message: %v", b.name, msg.Type, err)
		return false
	}
	return true
}

// Info builds the API view of the board. index is its registry position.
func (b *Board) Info(index int) models.BoardInfo {
	cs := b.detector.CameraSystem()
	cams := cs.Cameras()
	cameras := make([]models.CameraInfo, 0, len(cams))
	for _, c := range cams {
		cameras = append(cameras, models.CameraInfo{ID: c.ID, FPS: c.FPS, Width: c.Width, Height: c.Height})
	}
	return models.BoardInfo{
		Index:         index,
		ID:            b.id,
		Name:          b.name,
		Version:       b.version,
		URL:           b.URL(),
		Open:          b.IsOpen(),
		Alive:         b.IsAlive(),
		LastAliveAt:   b.conn.LastAliveAt(),
		Connected:     b.detector.IsConnected(),
		Running:       b.detector.IsRunning(),
		NumThrows:     b.detector.NumThrows(),
		Status:        b.detector.Status(),
		Event:         b.detector.Event(),
		CamerasOpened: cs.IsOpened(),
		CamerasActive: cs.IsRunning(),
		Cameras:       cameras,
	}
}

// boardSink forwards detector notifications to the board's listener.
type boardSink struct{ b *Board }

func (s boardSink) CameraStats(id, fps, width, height int) {
	s.b.listener.OnCameraStats(s.b, id, fps, width, height)
}

func (s boardSink) CameraSystemState(opened, running models.EdgeState) {
	s.b.listener.OnCameraSystemState(s.b, opened, running)
}

func (s boardSink) DetectionState(connected, running models.EdgeState, numThrows int) {
	s.b.listener.OnDetectionState(s.b, connected, running, numThrows)
}

func (s boardSink) DetectionEvent(status models.Status, event models.Event) {
	s.b.listener.OnDetectionEvent(s.b, status, event)
}
