package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"boardlink/models"
)

const (
	DefaultTokenURL  = "https://login.autodarts.io/realms/autodarts/protocol/openid-connect/token"
	DefaultBoardsURL = "https://api.autodarts.io/bs/v0/boards"
	DefaultClientID  = "autodarts-app"
	DefaultScope     = "openid"

	// maxErrorBody bounds how much of a failed response is kept for the log.
	maxErrorBody = 4096
)

// DirectoryConfig locates the token and board list endpoints.
type DirectoryConfig struct {
	TokenURL  string
	BoardsURL string
	ClientID  string
	Scope     string
}

func DefaultDirectoryConfig() DirectoryConfig {
	return DirectoryConfig{
		TokenURL:  DefaultTokenURL,
		BoardsURL: DefaultBoardsURL,
		ClientID:  DefaultClientID,
		Scope:     DefaultScope,
	}
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DirectoryClient talks to the remote board directory.
type DirectoryClient struct {
	cfg   DirectoryConfig
	http  HTTPDoer
	clock Clock
}

func NewDirectoryClient(cfg DirectoryConfig, doer HTTPDoer, clock Clock) *DirectoryClient {
	if doer == nil {
		doer = &http.Client{Timeout: 30 * time.Second}
	}
	if clock == nil {
		clock = RealClock()
	}
	return &DirectoryClient{cfg: cfg, http: doer, clock: clock}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AcquireToken exchanges creds for a bearer token. Unless force is set, a
// current token that has not yet expired is returned as is without any
// request. On failure current is returned unchanged with the status code.
func (c *DirectoryClient) AcquireToken(ctx context.Context, creds models.Credentials, current models.AccessToken, force bool) (models.AccessToken, int, error) {
	if !force && current.ExpiresAt.After(c.clock.Now()) {
		return current, http.StatusOK, nil
	}

	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("scope", c.cfg.Scope)
	form.Set("grant_type", "password")
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return current, 0, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return current, 0, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		serr := statusError(resp)
		log.Printf("❌ Could not retrieve access token [%d]: %s", serr.Code, serr.Body)
		return current, serr.Code, serr
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return current, 0, fmt.Errorf("decode token response: %w", err)
	}

	token := models.AccessToken{
		Value:     body.AccessToken,
		ExpiresAt: c.clock.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}
	return token, http.StatusOK, nil
}

// FetchBoards streams the board list and calls fn once per record, in the
// order the directory sends them. The token is checked locally first; an
// empty or expired token fails with ErrUnauthorized and no request is made.
func (c *DirectoryClient) FetchBoards(ctx context.Context, token models.AccessToken, fn func(models.BoardRecord)) (int, error) {
	if !token.Valid(c.clock.Now()) {
		log.Printf("❌ Access token is invalid!")
		return ErrUnauthorized.Code, ErrUnauthorized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BoardsURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create boards request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.Value)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("boards request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		serr := statusError(resp)
		log.Printf("❌ Could not retrieve boards [%d]: %s", serr.Code, serr.Body)
		return serr.Code, serr
	}

	dec := json.NewDecoder(resp.Body)
	tok, err := dec.Token()
	if err != nil {
		return 0, fmt.Errorf("read board list: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return 0, fmt.Errorf("board list is not an array (got %v)", tok)
	}

	for dec.More() {
		var rec models.BoardRecord
		if err := dec.Decode(&rec); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				log.Printf("⚠️ Could not deserialize board information: %v", err)
				continue
			}
			return 0, fmt.Errorf("decode board record: %w", err)
		}
		fn(rec)
	}
	return http.StatusOK, nil
}

func statusError(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
