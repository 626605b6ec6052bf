package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"hotelflow-core/config"
	"hotelflow-core/internal/entity"
)

// Client talks to the backend REST authority. Every call is an opaque
// (method, path, payload) operation with a bounded timeout; failures are
// classified into the transient/rejected taxonomy the sync engine drains by.
type Client struct {
	base    string
	headers map[string]string
	client  *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient creates a client for the configured authority.
func NewClient(cfg *config.RemoteConfig) *Client {
	return &Client{
		base:    cfg.BaseURL,
		headers: cfg.Headers,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// SetToken installs (or clears) the auth token sent on every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Do performs one request against the authority. Network failures, timeouts
// and 5xx responses come back as *TransientError; 4xx responses as
// *RejectedError. The response body is returned on success.
func (c *Client) Do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{Err: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return respBody, nil
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &TransientError{Err: fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)}
	default:
		return nil, &RejectedError{Status: resp.StatusCode, Body: string(respBody)}
	}
}

// LoginResult is the authentication response.
type LoginResult struct {
	Token   string      `json:"token"`
	Role    entity.Role `json:"role"`
	Name    string      `json:"name"`
	GroupID string      `json:"group_id"`
}

// Login authenticates and installs the returned token on the client.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body, err := c.Do(ctx, http.MethodPost, "/login/", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	var result LoginResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}
	c.SetToken(result.Token)
	return &result, nil
}

// RegisterToken registers a device push token with the authority.
func (c *Client) RegisterToken(ctx context.Context, token string) error {
	_, err := c.Do(ctx, http.MethodPost, "/push/register/", map[string]string{"token": token})
	return err
}

// collectionPath maps an entity kind to its REST collection.
func collectionPath(kind entity.Kind) (string, error) {
	switch kind {
	case entity.KindRoom:
		return "/housekeeping/rooms/", nil
	case entity.KindStaff:
		return "/users/", nil
	case entity.KindIncident:
		return "/housekeeping/incidents/", nil
	case entity.KindInventory:
		return "/housekeeping/inventory/", nil
	case entity.KindAnnouncement:
		return "/housekeeping/announcements/", nil
	case entity.KindAsset:
		return "/housekeeping/assets/", nil
	case entity.KindCleaningType:
		return "/housekeeping/cleaning-types/", nil
	case entity.KindAvailability:
		return "/housekeeping/availability/", nil
	case entity.KindShift:
		return "/housekeeping/roster/shifts/", nil
	}
	return "", fmt.Errorf("no endpoint for entity kind %q", kind)
}

// Dispatch sends one queued mutation to the authority and returns the
// server's authoritative representation of the entity (empty for deletes).
func (c *Client) Dispatch(ctx context.Context, m *entity.Mutation) ([]byte, error) {
	base, err := collectionPath(m.Kind)
	if err != nil {
		return nil, &RejectedError{Status: 0, Body: err.Error()}
	}

	var payload any
	if len(m.Payload) > 0 {
		payload = json.RawMessage(m.Payload)
	}

	switch m.Op {
	case entity.OpCreate:
		return c.Do(ctx, http.MethodPost, base, payload)
	case entity.OpUpdate:
		return c.Do(ctx, http.MethodPatch, base+m.EntityID+"/", payload)
	case entity.OpDelete:
		return c.Do(ctx, http.MethodDelete, base+m.EntityID+"/", nil)
	}
	return nil, &RejectedError{Status: 0, Body: fmt.Sprintf("unknown operation %q", m.Op)}
}

// FetchCollection retrieves the authoritative list for a kind as raw JSON
// documents, preserving server order.
func (c *Client) FetchCollection(ctx context.Context, kind entity.Kind) ([]json.RawMessage, error) {
	base, err := collectionPath(kind)
	if err != nil {
		return nil, err
	}
	body, err := c.Do(ctx, http.MethodGet, base, nil)
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s collection: %w", kind, err)
	}
	return items, nil
}

// FetchWeekShifts retrieves the rostered shifts for the week starting at
// startDate ("YYYY-MM-DD").
func (c *Client) FetchWeekShifts(ctx context.Context, startDate string) ([]entity.WorkShift, error) {
	body, err := c.Do(ctx, http.MethodGet, "/housekeeping/roster/week/?start_date="+startDate, nil)
	if err != nil {
		return nil, err
	}
	var shifts []entity.WorkShift
	if err := json.Unmarshal(body, &shifts); err != nil {
		return nil, fmt.Errorf("failed to decode week shifts: %w", err)
	}
	return shifts, nil
}
