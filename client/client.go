// Package client is the FoodBook API client. It attaches the session's
// access credential to each request and, when the server answers 401,
// refreshes the session once and retries.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/jrsteele09/foodbook-server/internal/errors"
)

const refreshPath = "/auth/refresh"

var (
	// ErrSessionEnded means the user must log in again.
	ErrSessionEnded = errors.New("session ended")
	// ErrRefreshRejected means the server refused the refresh credential.
	ErrRefreshRejected = errors.New("refresh rejected")
	// ErrNetwork means the server could not be reached.
	ErrNetwork = apperrors.ErrNetworkFailure
)

type Client struct {
	baseURL string
	http    *http.Client
	store   *CredentialStore
	logger  zerolog.Logger
	group   singleflight.Group
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for the API rooted at baseURL, for example
// http://localhost:5000/api.
func New(baseURL string, store *CredentialStore, opts ...Option) *Client {
	if store == nil {
		store = NewCredentialStore(nil)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		store:   store,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Store() *CredentialStore {
	return c.store
}

// Do sends a request with the current access credential. A 401 response
// triggers one refresh and one retry; every other response is returned as
// is. The caller closes the response body.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	payload, err := encode(body)
	if err != nil {
		return nil, err
	}

	used := c.store.Get()
	resp, err := c.send(ctx, method, path, payload, used.Access)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	discard(resp)

	if err := c.renew(ctx, used); err != nil {
		return nil, err
	}
	return c.send(ctx, method, path, payload, c.store.Get().Access)
}

// renew makes sure the store holds a credential newer than the one that was
// rejected. Concurrent callers presenting the same refresh credential share
// one refresh exchange.
func (c *Client) renew(ctx context.Context, used Credentials) error {
	current := c.store.Get()
	if current.Access != "" && current.Access != used.Access {
		return nil
	}
	if current.Refresh == "" {
		return ErrSessionEnded
	}
	return c.sharedRefresh(ctx, current.Refresh)
}

// sharedRefresh joins or starts the refresh flight for refreshToken. A flight
// that finished after the caller read the store has already rotated the
// credential and dropped its key, so the store is checked again inside the
// flight before refreshToken is presented.
func (c *Client) sharedRefresh(ctx context.Context, refreshToken string) error {
	ch := c.group.DoChan(refreshToken, func() (any, error) {
		latest := c.store.Get()
		switch {
		case latest.Refresh == refreshToken:
			return nil, c.refresh(context.WithoutCancel(ctx), refreshToken)
		case latest.Access == "":
			return nil, ErrSessionEnded
		default:
			return nil, nil
		}
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

type sessionData struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user,omitempty"`
}

// refresh exchanges the refresh credential. Any failure ends the session.
func (c *Client) refresh(ctx context.Context, refreshToken string) error {
	payload, err := encode(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return err
	}

	resp, err := c.send(ctx, http.MethodPost, refreshPath, payload, "")
	if err != nil {
		c.logger.Warn().Err(err).Msg("refresh failed: network error")
		c.endSession()
		return fmt.Errorf("%w: %w", ErrSessionEnded, err)
	}
	defer discard(resp)

	if resp.StatusCode != http.StatusOK {
		c.logger.Info().Int("status", resp.StatusCode).Msg("refresh rejected by server")
		c.endSession()
		return fmt.Errorf("%w: %w (status %d)", ErrSessionEnded, ErrRefreshRejected, resp.StatusCode)
	}

	var data sessionData
	if err := decodeData(resp.Body, &data); err != nil || data.AccessToken == "" {
		c.logger.Warn().Err(err).Msg("refresh response unreadable")
		c.endSession()
		return fmt.Errorf("%w: %w", ErrSessionEnded, ErrRefreshRejected)
	}

	next := data.RefreshToken
	if next == "" {
		next = refreshToken
	}
	if err := c.store.Set(data.AccessToken, next); err != nil {
		return fmt.Errorf("store refreshed credentials: %w", err)
	}
	c.logger.Debug().Msg("session refreshed")
	return nil
}

func (c *Client) endSession() {
	if err := c.store.Clear(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to clear credential mirror")
	}
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, access string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		Credentials{Access: access}.Token().SetAuthHeader(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	return resp, nil
}

func encode(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return payload, nil
}

func decodeData(r io.Reader, out any) error {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return err
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
