package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"boardlink/models"
)

// fakeDirectory serves a token endpoint and a board list.
type fakeDirectory struct {
	mu            sync.Mutex
	boards        string
	tokenStatus   int
	boardsStatus  int
	tokenRequests int
	boardRequests int
	lastForm      map[string]string
	lastAuth      string
}

func newFakeDirectory(t *testing.T, boards string) (*fakeDirectory, *httptest.Server) {
	fd := &fakeDirectory{boards: boards, tokenStatus: http.StatusOK, boardsStatus: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		fd.mu.Lock()
		defer fd.mu.Unlock()
		fd.tokenRequests++
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		fd.lastForm = map[string]string{}
		for k := range r.PostForm {
			fd.lastForm[k] = r.PostForm.Get(k)
		}
		if fd.tokenStatus != http.StatusOK {
			http.Error(w, "invalid_grant", fd.tokenStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":3600,"token_type":"Bearer"}`, fd.tokenRequests)
	})
	mux.HandleFunc("/boards", func(w http.ResponseWriter, r *http.Request) {
		fd.mu.Lock()
		defer fd.mu.Unlock()
		fd.boardRequests++
		fd.lastAuth = r.Header.Get("Authorization")
		if fd.boardsStatus != http.StatusOK {
			http.Error(w, "nope", fd.boardsStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, fd.boards)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fd, srv
}

func (fd *fakeDirectory) setStatus(token, boards int) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.tokenStatus, fd.boardsStatus = token, boards
}

func (fd *fakeDirectory) counts() (int, int) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	return fd.tokenRequests, fd.boardRequests
}

func testDirectoryConfig(srv *httptest.Server) DirectoryConfig {
	cfg := DefaultDirectoryConfig()
	cfg.TokenURL = srv.URL + "/token"
	cfg.BoardsURL = srv.URL + "/boards"
	return cfg
}

var testCreds = models.Credentials{Username: "player@example.com", Password: "secret"}

func TestAcquireTokenSendsPasswordGrant(t *testing.T) {
	fd, srv := newFakeDirectory(t, `[]`)
	clock := newFakeClock()
	client := NewDirectoryClient(testDirectoryConfig(srv), srv.Client(), clock)

	token, code, err := client.AcquireToken(context.Background(), testCreds, models.AccessToken{}, false)
	if err != nil {
		t.Fatalf("AcquireToken: %v", err)
	}
	if code != http.StatusOK {
		t.Errorf("code = %d", code)
	}
	if token.Value != "tok-1" {
		t.Errorf("token = %q", token.Value)
	}
	if want := clock.Now().Add(time.Hour); !token.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", token.ExpiresAt, want)
	}

	want := map[string]string{
		"client_id":  DefaultClientID,
		"scope":      DefaultScope,
		"grant_type": "password",
		"username":   testCreds.Username,
		"password":   testCreds.Password,
	}
	fd.mu.Lock()
	defer fd.mu.Unlock()
	for k, v := range want {
		if fd.lastForm[k] != v {
			t.Errorf("form %s = %q, want %q", k, fd.lastForm[k], v)
		}
	}
}

func TestAcquireTokenReusesValidToken(t *testing.T) {
	fd, srv := newFakeDirectory(t, `[]`)
	clock := newFakeClock()
	client := NewDirectoryClient(testDirectoryConfig(srv), srv.Client(), clock)
	current := models.AccessToken{Value: "held", ExpiresAt: clock.Now().Add(time.Minute)}

	token, code, err := client.AcquireToken(context.Background(), testCreds, current, false)
	if err != nil || code != http.StatusOK {
		t.Fatalf("AcquireToken = %d, %v", code, err)
	}
	if token != current {
		t.Errorf("token replaced: %+v", token)
	}
	if n, _ := fd.counts(); n != 0 {
		t.Errorf("token requests = %d, want 0", n)
	}

	if _, _, err := client.AcquireToken(context.Background(), testCreds, current, true); err != nil {
		t.Fatalf("forced AcquireToken: %v", err)
	}
	if n, _ := fd.counts(); n != 1 {
		t.Errorf("forced token requests = %d, want 1", n)
	}
}

func TestAcquireTokenFailureReturnsCurrent(t *testing.T) {
	fd, srv := newFakeDirectory(t, `[]`)
	fd.setStatus(http.StatusUnauthorized, http.StatusOK)
	client := NewDirectoryClient(testDirectoryConfig(srv), srv.Client(), newFakeClock())
	current := models.AccessToken{Value: "old"}

	token, code, err := client.AcquireToken(context.Background(), testCreds, current, true)
	if code != http.StatusUnauthorized {
		t.Errorf("code = %d, want 401", code)
	}
	var serr *StatusError
	if !errors.As(err, &serr) || serr.Body != "invalid_grant" {
		t.Errorf("err = %v", err)
	}
	if token != current {
		t.Errorf("token = %+v, want unchanged", token)
	}
}

func TestFetchBoardsStreamsRecords(t *testing.T) {
	fd, srv := newFakeDirectory(t, `[
		{"id":"b1","name":"One","ip":"10.0.0.1","version":"1.0"},
		{"id":7,"name":"Broken","ip":"10.0.0.2","version":"1.0"},
		{"id":"b3","name":"Three","ip":"","version":"1.1","extra":true}
	]`)
	clock := newFakeClock()
	client := NewDirectoryClient(testDirectoryConfig(srv), srv.Client(), clock)
	token := models.AccessToken{Value: "abc", ExpiresAt: clock.Now().Add(time.Hour)}

	var got []models.BoardRecord
	code, err := client.FetchBoards(context.Background(), token, func(rec models.BoardRecord) {
		got = append(got, rec)
	})
	if err != nil || code != http.StatusOK {
		t.Fatalf("FetchBoards = %d, %v", code, err)
	}
	fd.mu.Lock()
	auth := fd.lastAuth
	fd.mu.Unlock()
	if auth != "Bearer abc" {
		t.Errorf("Authorization = %q", auth)
	}
	if len(got) != 2 || got[0].ID != "b1" || got[1].ID != "b3" {
		t.Errorf("records = %+v", got)
	}
}

func TestFetchBoardsRejectsInvalidTokenLocally(t *testing.T) {
	fd, srv := newFakeDirectory(t, `[]`)
	clock := newFakeClock()
	client := NewDirectoryClient(testDirectoryConfig(srv), srv.Client(), clock)

	for name, token := range map[string]models.AccessToken{
		"empty":   {},
		"expired": {Value: "abc", ExpiresAt: clock.Now().Add(-time.Second)},
	} {
		code, err := client.FetchBoards(context.Background(), token, func(models.BoardRecord) {})
		if code != http.StatusUnauthorized || !errors.Is(err, ErrUnauthorized) {
			t.Errorf("%s: FetchBoards = %d, %v", name, code, err)
		}
	}
	if _, n := fd.counts(); n != 0 {
		t.Errorf("board requests = %d, want 0", n)
	}
}

func TestFetchBoardsErrors(t *testing.T) {
	fd, srv := newFakeDirectory(t, `{"boards":[]}`)
	clock := newFakeClock()
	client := NewDirectoryClient(testDirectoryConfig(srv), srv.Client(), clock)
	token := models.AccessToken{Value: "abc", ExpiresAt: clock.Now().Add(time.Hour)}

	if _, err := client.FetchBoards(context.Background(), token, func(models.BoardRecord) {}); err == nil {
		t.Error("expected an error for a non-array body")
	}

	fd.setStatus(http.StatusOK, http.StatusForbidden)
	code, err := client.FetchBoards(context.Background(), token, func(models.BoardRecord) {})
	if code != http.StatusForbidden || StatusCode(err) != http.StatusForbidden {
		t.Errorf("FetchBoards = %d, %v", code, err)
	}
}
