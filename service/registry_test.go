package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"boardlink/models"
)

func newTestRegistry(t *testing.T, srv *httptest.Server, autoOpen bool) (*Registry, *transportPool, *fakeClock) {
	t.Helper()
	pool := &transportPool{}
	clock := newFakeClock()
	opts := RegistryOptions{
		Transports: pool.factory(),
		Clock:      clock,
		AutoOpen:   autoOpen,
	}
	if srv != nil {
		opts.Directory = testDirectoryConfig(srv)
		opts.HTTPClient = srv.Client()
	}
	return NewRegistry(opts), pool, clock
}

func TestRegistryMergeUpdatesInPlace(t *testing.T) {
	r, pool, _ := newTestRegistry(t, nil, false)
	b := r.AddBoardRecord(models.BoardRecord{ID: "b1", Name: "One", IP: "10.0.0.1", Version: "1.0"})
	b.Open(false)
	pool.created[0].connect()
	b.HandleMessage([]byte(`{"type":"state","data":{"connected":true,"running":true,"numThrows":2,"status":"Throw","event":"Throw detected"}}`))

	if got := r.Merge(models.BoardRecord{ID: "b1", Name: "Renamed", IP: "10.0.0.9", Version: "1.1"}); got != MergeUpdated {
		t.Fatalf("Merge = %v, want updated", got)
	}

	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
	if r.Boards()[0] != b {
		t.Error("existing board was replaced")
	}
	if b.Name() != "Renamed" || b.URL() != "10.0.0.9" || b.Version() != "1.1" {
		t.Errorf("board = %+v", b.Record())
	}
	if !b.IsOpen() || b.Detector().NumThrows() != 2 {
		t.Error("connection and detector state must survive a merge")
	}
	if len(pool.created) != 1 {
		t.Errorf("transports created = %d, want 1", len(pool.created))
	}
}

func TestRegistryMergeSkipsNewBoardWithoutURL(t *testing.T) {
	r, _, _ := newTestRegistry(t, nil, false)

	if got := r.Merge(models.BoardRecord{ID: "b1", Name: "One"}); got != MergeSkipped {
		t.Errorf("Merge = %v, want skipped", got)
	}
	if got := r.Merge(models.BoardRecord{ID: "b2", Name: "Two", IP: "10.0.0.2"}); got != MergeAdded {
		t.Errorf("Merge = %v, want added", got)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestRegistryAutoOpen(t *testing.T) {
	r, pool, _ := newTestRegistry(t, nil, true)

	r.Merge(models.BoardRecord{ID: "b1", IP: "10.0.0.1"})

	if len(pool.created[0].began) != 1 {
		t.Errorf("new board was not opened: %v", pool.created[0].began)
	}
}

func TestRegistryDeleteBoard(t *testing.T) {
	r, pool, _ := newTestRegistry(t, nil, false)
	r.AddBoardURL("One", "b1", "1.0", "10.0.0.1")
	r.AddBoardURL("Two", "b2", "1.0", "10.0.0.2")
	r.AddBoardURL("Three", "b3", "1.0", "10.0.0.3")

	if err := r.DeleteBoard(3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("DeleteBoard(3) = %v", err)
	}
	if err := r.DeleteBoard(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("DeleteBoard(-1) = %v", err)
	}
	if err := r.DeleteBoard(1); err != nil {
		t.Fatalf("DeleteBoard(1): %v", err)
	}

	if pool.created[1].stops != 1 {
		t.Error("deleted board's transport was not stopped")
	}
	infos := r.Infos()
	if len(infos) != 2 || infos[0].ID != "b1" || infos[1].ID != "b3" {
		t.Errorf("remaining = %+v", infos)
	}
	if infos[1].Index != 1 {
		t.Errorf("index = %d, want 1", infos[1].Index)
	}
}

func TestRegistryIndexedOperationsOutOfRange(t *testing.T) {
	r, _, _ := newTestRegistry(t, nil, false)

	if err := r.OpenBoard(0, false); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("OpenBoard = %v", err)
	}
	if err := r.CloseBoard(0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("CloseBoard = %v", err)
	}
	if _, err := r.TickBoard(0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("TickBoard = %v", err)
	}
	if _, err := r.Info(0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Info = %v", err)
	}
	if err := r.PrintBoard(0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("PrintBoard = %v", err)
	}
}

func TestRegistryTickBoardsCountsTimeouts(t *testing.T) {
	r, pool, clock := newTestRegistry(t, nil, true)
	r.AddBoardURL("One", "b1", "1.0", "10.0.0.1")
	r.AddBoardURL("Two", "b2", "1.0", "10.0.0.2")
	pool.created[0].connect()
	pool.created[1].connect()

	clock.Advance(6 * time.Second)
	pool.created[1].message(`{"type":"cam_state","data":{}}`)
	clock.Advance(6 * time.Second)

	if n := r.TickBoards(); n != 1 {
		t.Errorf("TickBoards = %d, want 1", n)
	}
	infos := r.Infos()
	if infos[0].Open || !infos[1].Open {
		t.Errorf("open = %v/%v, want false/true", infos[0].Open, infos[1].Open)
	}
}

func TestRegistryListenerPropagation(t *testing.T) {
	r, pool, _ := newTestRegistry(t, nil, false)
	early := r.AddBoardURL("One", "b1", "1.0", "10.0.0.1")

	rec := &recordingListener{}
	r.AddListener(rec)
	late := r.AddBoardURL("Two", "b2", "1.0", "10.0.0.2")

	early.Open(false)
	late.Open(false)
	pool.created[0].connect()
	pool.created[1].connect()

	want := []string{"connection b1 open=true", "connection b2 open=true"}
	if len(rec.calls) != 2 || rec.calls[0] != want[0] || rec.calls[1] != want[1] {
		t.Errorf("calls = %q, want %q", rec.calls, want)
	}
}

func TestRegistryRefreshIfDue(t *testing.T) {
	fd, srv := newFakeDirectory(t, `[
		{"id":"b1","name":"One","ip":"10.0.0.1","version":"1.0"},
		{"id":"b2","name":"Two","ip":"10.0.0.2","version":"1.0"},
		{"id":"b3","name":"Three","ip":"","version":"1.0"}
	]`)
	r, _, clock := newTestRegistry(t, srv, false)
	ctx := context.Background()

	code, err := r.RefreshIfDue(ctx, testCreds, time.Minute)
	if err != nil || code != http.StatusOK {
		t.Fatalf("first RefreshIfDue = %d, %v", code, err)
	}
	if r.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.Len())
	}

	code, err = r.RefreshIfDue(ctx, testCreds, time.Minute)
	if err != nil || code != http.StatusNotModified {
		t.Errorf("second RefreshIfDue = %d, %v, want 304", code, err)
	}
	if tokens, boards := fd.counts(); tokens != 1 || boards != 1 {
		t.Errorf("requests = %d/%d, want 1/1", tokens, boards)
	}

	clock.Advance(time.Minute)
	code, err = r.RefreshIfDue(ctx, testCreds, time.Minute)
	if err != nil || code != http.StatusOK {
		t.Fatalf("third RefreshIfDue = %d, %v", code, err)
	}
	if tokens, boards := fd.counts(); tokens != 1 || boards != 2 {
		t.Errorf("requests = %d/%d, want token reuse 1/2", tokens, boards)
	}
	if r.Len() != 2 {
		t.Errorf("Len after re-merge = %d, want 2", r.Len())
	}
}

func TestRegistryRefreshFailureIsNotRetriedEarly(t *testing.T) {
	fd, srv := newFakeDirectory(t, `[]`)
	fd.setStatus(http.StatusUnauthorized, http.StatusOK)
	r, _, _ := newTestRegistry(t, srv, false)

	code, err := r.RefreshIfDue(context.Background(), testCreds, time.Minute)
	if code != http.StatusUnauthorized || err == nil {
		t.Fatalf("RefreshIfDue = %d, %v", code, err)
	}
	code, _ = r.RefreshIfDue(context.Background(), testCreds, time.Minute)
	if code != http.StatusNotModified {
		t.Errorf("retry inside the interval = %d, want 304", code)
	}
}

func TestRegistryAcquireTokenKeepsTokenOnFailure(t *testing.T) {
	fd, srv := newFakeDirectory(t, `[]`)
	r, _, _ := newTestRegistry(t, srv, false)

	if _, err := r.AcquireToken(context.Background(), testCreds, false); err != nil {
		t.Fatalf("AcquireToken: %v", err)
	}
	held := r.Token()

	fd.setStatus(http.StatusServiceUnavailable, http.StatusOK)

	code, err := r.AcquireToken(context.Background(), testCreds, true)
	if code != http.StatusServiceUnavailable || err == nil {
		t.Errorf("AcquireToken = %d, %v", code, err)
	}
	if r.Token() != held {
		t.Errorf("token changed after failure: %+v", r.Token())
	}
}

func TestRegistryRefreshDirectoryWithoutToken(t *testing.T) {
	fd, srv := newFakeDirectory(t, `[]`)
	r, _, _ := newTestRegistry(t, srv, false)

	code, err := r.RefreshDirectory(context.Background())
	if code != http.StatusUnauthorized || !errors.Is(err, ErrUnauthorized) {
		t.Errorf("RefreshDirectory = %d, %v", code, err)
	}
	if _, boards := fd.counts(); boards != 0 {
		t.Errorf("board requests = %d, want 0", boards)
	}
}

func TestRegistryIndexOf(t *testing.T) {
	r, _, _ := newTestRegistry(t, nil, false)
	r.AddBoardURL("One", "b1", "1.0", "10.0.0.1")
	r.AddBoardURL("Two", "b2", "1.0", "10.0.0.2")

	if idx, ok := r.IndexOf("b2"); !ok || idx != 1 {
		t.Errorf("IndexOf(b2) = %d, %v", idx, ok)
	}
	if _, ok := r.IndexOf("missing"); ok {
		t.Error("IndexOf(missing) found something")
	}
}

func TestRegistryMergeIsIdempotent(t *testing.T) {
	r, pool, _ := newTestRegistry(t, nil, true)
	rec := models.BoardRecord{ID: "b1", Name: "One", IP: "10.0.0.1", Version: "1.0"}

	if got := r.Merge(rec); got != MergeAdded {
		t.Fatalf("first Merge = %v, want added", got)
	}
	first := r.Infos()

	if got := r.Merge(rec); got != MergeUpdated {
		t.Errorf("second Merge = %v, want updated", got)
	}
	second := r.Infos()

	if len(second) != 1 || second[0].ID != first[0].ID || second[0].Name != first[0].Name ||
		second[0].URL != first[0].URL || second[0].Version != first[0].Version {
		t.Errorf("boards after re-merge = %+v, want %+v", second, first)
	}
	if len(pool.created) != 1 || len(pool.created[0].began) != 1 {
		t.Errorf("re-merge created or reopened a transport")
	}
}
