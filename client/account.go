package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// User is the identity summary returned by the server.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// APIError is a non-success response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP error! status: %d", e.Status)
	}
	return e.Message
}

// Login authenticates and stores the new session.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	return c.startSession(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Signup creates an account and stores the new session.
func (c *Client) Signup(ctx context.Context, email, username, password string) (*User, error) {
	return c.startSession(ctx, "/auth/signup", map[string]string{
		"email":    email,
		"username": username,
		"password": password,
	})
}

func (c *Client) startSession(ctx context.Context, path string, body any) (*User, error) {
	payload, err := encode(body)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, http.MethodPost, path, payload, "")
	if err != nil {
		return nil, err
	}
	var data sessionData
	if err := readResponse(resp, &data); err != nil {
		return nil, err
	}
	if err := c.store.Set(data.AccessToken, data.RefreshToken); err != nil {
		return nil, fmt.Errorf("store credentials: %w", err)
	}
	return data.User, nil
}

// Logout tells the server to spend the refresh credential and clears the
// local session whether or not the server could be reached.
func (c *Client) Logout(ctx context.Context) error {
	creds := c.store.Get()
	if creds.Refresh != "" {
		payload, err := encode(map[string]string{"refreshToken": creds.Refresh})
		if err == nil {
			resp, err := c.send(ctx, http.MethodPost, "/auth/logout", payload, creds.Access)
			if err != nil {
				c.logger.Warn().Err(err).Msg("logout request failed")
			} else {
				discard(resp)
			}
		}
	}
	return c.store.Clear()
}

// Me returns the identity behind the current session.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.DoJSON(ctx, http.MethodGet, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// DoJSON runs Do and decodes the data field of a successful response into
// out. Non-2xx responses become *APIError.
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	return readResponse(resp, out)
}

func readResponse(resp *http.Response, out any) error {
	defer discard(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env envelope
		_ = json.NewDecoder(resp.Body).Decode(&env)
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	return decodeData(resp.Body, out)
}
