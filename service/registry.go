package service

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/samber/lo"

	"boardlink/models"
)

// MergeResult says what a directory record did to the registry.
type MergeResult int

const (
	MergeUpdated MergeResult = iota // an existing board was refreshed
	MergeAdded                      // a new board was appended
	MergeSkipped                    // a new board without url was discarded
)

func (m MergeResult) String() string {
	return [...]string{"updated", "added", "skipped"}[m]
}

type RegistryOptions struct {
	Directory  DirectoryConfig
	HTTPClient HTTPDoer
	Transports TransportFactory
	Clock      Clock
	Connection ConnectionOptions
	// AutoOpen opens every board as soon as it is added.
	AutoOpen bool
}

// Registry owns the boards, in discovery order. Every method is safe for
// concurrent use; board ticking and directory merges are serialized by the
// same lock, so a tick never sees the collection change mid-iteration.
type Registry struct {
	mu        sync.Mutex
	boards    []*Board
	listeners Listeners
	token     models.AccessToken

	// refreshMu serializes whole token+fetch sequences.
	refreshMu   sync.Mutex
	lastChecked time.Time

	directory    *DirectoryClient
	newTransport TransportFactory
	clock        Clock
	connOpts     ConnectionOptions
	autoOpen     bool
}

func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.Transports == nil {
		panic("service: RegistryOptions.Transports is required")
	}
	return &Registry{
		directory:    NewDirectoryClient(opts.Directory, opts.HTTPClient, opts.Clock),
		newTransport: opts.Transports,
		clock:        opts.Clock,
		connOpts:     opts.Connection.withDefaults(),
		autoOpen:     opts.AutoOpen,
	}
}

// AddListener registers l for every board held now and every board added later.
func (r *Registry) AddListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.listeners = append(r.listeners, l)
	for _, b := range r.boards {
		b.SetListener(r.listenerLocked())
	}
}

func (r *Registry) listenerLocked() Listener {
	return append(Listeners(nil), r.listeners...)
}

// NewBoard builds a board wired to this registry's transport and clock.
// The board is not added.
func (r *Registry) NewBoard(name, id, version, url string) *Board {
	return NewBoard(name, id, version, url, r.newTransport(), r.clock, r.connOpts)
}

// AddBoard appends b and hands it the registered listeners.
func (r *Registry) AddBoard(b *Board) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addLocked(b)
}

func (r *Registry) AddBoardURL(name, id, version, url string) *Board {
	b := r.NewBoard(name, id, version, url)
	r.AddBoard(b)
	return b
}

func (r *Registry) AddBoardAddress(name, id, version string, ip net.IP, port uint16) *Board {
	b := NewBoardFromAddress(name, id, version, ip, port, r.newTransport(), r.clock, r.connOpts)
	r.AddBoard(b)
	return b
}

func (r *Registry) AddBoardRecord(rec models.BoardRecord) *Board {
	b := NewBoardFromRecord(rec, r.newTransport(), r.clock, r.connOpts)
	r.AddBoard(b)
	return b
}

func (r *Registry) addLocked(b *Board) {
	b.SetListener(r.listenerLocked())
	r.boards = append(r.boards, b)
	if r.autoOpen && !b.Open(false) {
		log.Printf("❌ Could not open board: Name: %s Id: %s Url: %s", b.Name(), b.ID(), b.URL())
	}
}

// DeleteBoard removes the board at idx and stops its transport.
func (r *Registry) DeleteBoard(idx int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := r.boardLocked(idx)
	if err != nil {
		return err
	}
	b.Connection().Release()
	r.boards = append(r.boards[:idx], r.boards[idx+1:]...)
	log.Printf("🗑️ Board [%s][%s] removed", b.Name(), b.ID())
	return nil
}

func (r *Registry) boardLocked(idx int) (*Board, error) {
	if idx < 0 || idx >= len(r.boards) {
		log.Printf("❌ Index out of bounds! (%d of %d)", idx, len(r.boards))
		return nil, fmt.Errorf("board %d: %w", idx, ErrIndexOutOfRange)
	}
	return r.boards[idx], nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.boards)
}

// Boards returns a snapshot of the collection. The boards themselves are
// shared; only touch them through the registry while it is running.
func (r *Registry) Boards() []*Board {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Board(nil), r.boards...)
}

// IndexOf returns the position of the board with id.
func (r *Registry) IndexOf(id string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, idx, found := lo.FindIndexOf(r.boards, func(b *Board) bool { return b.ID() == id })
	return idx, found
}

func (r *Registry) Info(idx int) (models.BoardInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := r.boardLocked(idx)
	if err != nil {
		return models.BoardInfo{}, err
	}
	return b.Info(idx), nil
}

func (r *Registry) Infos() []models.BoardInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Map(r.boards, func(b *Board, idx int) models.BoardInfo {
		return b.Info(idx)
	})
}

func (r *Registry) PrintBoard(idx int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := r.boardLocked(idx)
	if err != nil {
		return err
	}
	log.Printf("📋 [%s] Id: %s Url: %s Version: %s", b.Name(), b.ID(), b.URL(), b.Version())
	return nil
}

func (r *Registry) PrintBoards() {
	for idx := 0; idx < r.Len(); idx++ {
		_ = r.PrintBoard(idx)
	}
}

// OpenBoard opens the board at idx. See Connection.Open for force.
func (r *Registry) OpenBoard(idx int, force bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := r.boardLocked(idx)
	if err != nil {
		return err
	}
	if !b.Open(force) {
		log.Printf("❌ Could not open board: Name: %s Id: %s Url: %s", b.Name(), b.ID(), b.URL())
		return fmt.Errorf("open board %q: %w", b.ID(), ErrEmptyEndpoint)
	}
	return nil
}

func (r *Registry) OpenBoards(force bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.boards {
		if !b.Open(force) {
			log.Printf("❌ Could not open board: Name: %s Id: %s Url: %s", b.Name(), b.ID(), b.URL())
		}
	}
}

func (r *Registry) CloseBoard(idx int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := r.boardLocked(idx)
	if err != nil {
		return err
	}
	b.Close()
	return nil
}

// TickBoard ticks one board and reports whether its connection timed out.
func (r *Registry) TickBoard(idx int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := r.boardLocked(idx)
	if err != nil {
		return false, err
	}
	return b.Tick(), nil
}

// TickBoards ticks every board in collection order and returns how many
// connections timed out.
func (r *Registry) TickBoards() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	timeouts := 0
	for _, b := range r.boards {
		if b.Tick() {
			timeouts++
		}
	}
	return timeouts
}

// Token returns the currently held access token.
func (r *Registry) Token() models.AccessToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.token
}

// AcquireToken refreshes the held token when it expired or force is set.
// On failure the held token is left as it was.
func (r *Registry) AcquireToken(ctx context.Context, creds models.Credentials, force bool) (int, error) {
	current := r.Token()
	token, code, err := r.directory.AcquireToken(ctx, creds, current, force)
	if err != nil {
		return code, err
	}
	r.mu.Lock()
	r.token = token
	r.mu.Unlock()
	return code, nil
}

// RefreshDirectory fetches the board list with the held token and merges
// each record as it arrives.
func (r *Registry) RefreshDirectory(ctx context.Context) (int, error) {
	counts := map[MergeResult]int{}
	code, err := r.directory.FetchBoards(ctx, r.Token(), func(rec models.BoardRecord) {
		counts[r.Merge(rec)]++
	})
	if err != nil {
		return code, err
	}
	log.Printf("📡 Directory merged: %d added, %d updated, %d skipped",
		counts[MergeAdded], counts[MergeUpdated], counts[MergeSkipped])
	return code, nil
}

// Merge adds or updates one directory record. An existing board with the
// same id keeps its connection and detector state; only name, url and
// version change. A new record without url is discarded. Nothing is ever
// removed here.
func (r *Registry) Merge(rec models.BoardRecord) MergeResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.boards {
		if b.ID() == rec.ID {
			log.Printf("🔄 Found an existing board [%s][%s]", b.Name(), b.ID())
			b.ApplyRecord(rec)
			return MergeUpdated
		}
	}

	if rec.IP == "" {
		log.Printf("⚠️ Skipping board with empty url [%s][%s]", rec.Name, rec.ID)
		return MergeSkipped
	}

	log.Printf("🆕 Found a new board [%s][%s]", rec.Name, rec.ID)
	r.addLocked(NewBoardFromRecord(rec, r.newTransport(), r.clock, r.connOpts))
	return MergeAdded
}

// AutoDetect acquires a token and merges the directory, regardless of cadence.
func (r *Registry) AutoDetect(ctx context.Context, creds models.Credentials) (int, error) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()
	return r.autoDetectLocked(ctx, creds)
}

func (r *Registry) autoDetectLocked(ctx context.Context, creds models.Credentials) (int, error) {
	code, err := r.AcquireToken(ctx, creds, false)
	if err != nil {
		log.Printf("❌ Could not get token to connect to the board directory: %v", err)
		return code, err
	}

	code, err = r.RefreshDirectory(ctx)
	if err != nil {
		log.Printf("❌ Could not get all boards from the board directory: %v", err)
		return code, err
	}
	return code, nil
}

// RefreshIfDue runs AutoDetect when it never ran or when at least every has
// passed since the last run, and reports 304 otherwise. The run time is
// recorded before the sequence starts, so failures are retried no more
// often than every.
func (r *Registry) RefreshIfDue(ctx context.Context, creds models.Credentials, every time.Duration) (int, error) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	now := r.clock.Now()
	if !r.lastChecked.IsZero() && now.Sub(r.lastChecked) < every {
		return http.StatusNotModified, nil
	}
	r.lastChecked = now
	return r.autoDetectLocked(ctx, creds)
}

// Close stops every board's transport.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.boards {
		b.Connection().Release()
	}
}
