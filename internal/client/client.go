// Package client is a Go client for the voice order HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"voice-order-service/internal/service/language"
	"voice-order-service/internal/service/order"
	"voice-order-service/internal/service/pipeline"
	"voice-order-service/internal/service/transcript"
)

// DefaultBaseURL is where the service listens by default.
const DefaultBaseURL = "http://localhost:8080"

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("voice order api: %d %s", e.StatusCode, e.Message)
}

// CleanResult is the response of Clean.
type CleanResult struct {
	CleanedText     string       `json:"cleanedText"`
	Language        language.Tag `json:"language"`
	WordsDropped    int          `json:"wordsDropped"`
	SegmentsDropped int          `json:"segmentsDropped"`
}

// OrderResult is the response of ExtractOrder.
type OrderResult struct {
	Order    order.StructuredOrder `json:"order"`
	Rendered string                `json:"rendered"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// Client talks to one service instance.
type Client struct {
	base string
	http *http.Client
}

// New returns a client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clean runs repetition suppression on text without a session.
func (c *Client) Clean(ctx context.Context, text string) (CleanResult, error) {
	var res CleanResult
	err := c.do(ctx, http.MethodPost, "/v1/text/clean", map[string]string{"text": text}, &res)
	return res, err
}

// ExtractOrder extracts a structured order from text without a session.
func (c *Client) ExtractOrder(ctx context.Context, text string) (OrderResult, error) {
	var res OrderResult
	err := c.do(ctx, http.MethodPost, "/v1/text/order", map[string]string{"text": text}, &res)
	return res, err
}

// CreateSession opens a new session.
func (c *Client) CreateSession(ctx context.Context) (pipeline.Snapshot, error) {
	var snap pipeline.Snapshot
	err := c.do(ctx, http.MethodPost, "/v1/sessions", nil, &snap)
	return snap, err
}

// Sessions lists open session ids.
func (c *Client) Sessions(ctx context.Context) ([]string, error) {
	var res struct {
		Sessions []string `json:"sessions"`
	}
	err := c.do(ctx, http.MethodGet, "/v1/sessions", nil, &res)
	return res.Sessions, err
}

// Session fetches the snapshot of one session.
func (c *Client) Session(ctx context.Context, id string) (pipeline.Snapshot, error) {
	var snap pipeline.Snapshot
	err := c.do(ctx, http.MethodGet, sessionPath(id, ""), nil, &snap)
	return snap, err
}

// StartSession starts recording.
func (c *Client) StartSession(ctx context.Context, id string) (pipeline.Snapshot, error) {
	var snap pipeline.Snapshot
	err := c.do(ctx, http.MethodPost, sessionPath(id, "start"), nil, &snap)
	return snap, err
}

// StopSession stops recording and returns the processed snapshot.
func (c *Client) StopSession(ctx context.Context, id string) (pipeline.Snapshot, error) {
	var snap pipeline.Snapshot
	err := c.do(ctx, http.MethodPost, sessionPath(id, "stop"), nil, &snap)
	return snap, err
}

// Feed sends one fragment and reports whether it was applied.
func (c *Client) Feed(ctx context.Context, id string, f transcript.Fragment) (bool, error) {
	var res struct {
		Applied bool `json:"applied"`
	}
	err := c.do(ctx, http.MethodPost, sessionPath(id, "fragments"), f, &res)
	return res.Applied, err
}

// DeleteSession closes and removes a session.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, sessionPath(id, ""), nil, nil)
}

// Stream feeds fragments over the session websocket and returns the
// snapshot acknowledged after the last one.
func (c *Client) Stream(ctx context.Context, id string, fragments []transcript.Fragment) (pipeline.Snapshot, error) {
	var snap pipeline.Snapshot

	u, err := url.Parse(c.base + sessionPath(id, "ws"))
	if err != nil {
		return snap, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return snap, &APIError{StatusCode: resp.StatusCode, Message: "websocket upgrade failed"}
		}
		return snap, fmt.Errorf("dial websocket: %w", err)
	}
	defer conn.Close()

	for _, f := range fragments {
		if err := conn.WriteJSON(map[string]any{"type": "fragment", "fragment": f}); err != nil {
			return snap, fmt.Errorf("write fragment: %w", err)
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return snap, fmt.Errorf("read ack: %w", err)
		}
		reply := gjson.ParseBytes(msg)
		if reply.Get("type").String() == "error" {
			return snap, errors.New(reply.Get("error").String())
		}
		if raw := reply.Get("snapshot"); raw.Exists() {
			if err := json.Unmarshal([]byte(raw.Raw), &snap); err != nil {
				return snap, fmt.Errorf("decode snapshot: %w", err)
			}
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return snap, nil
}

func sessionPath(id, action string) string {
	p := "/v1/sessions/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		if gjson.ValidBytes(data) {
			if e := gjson.GetBytes(data, "error"); e.Exists() {
				msg = e.String()
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
