package upload

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

	"github.com/google/uuid"
	"github.com/meltforce/repcoach/internal/pose"
	"github.com/meltforce/repcoach/internal/trainer"
)

// Client drives live attempts on a RepCoach server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a new HTTP client for the RepCoach server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		backoff: time.Second,
	}
}

// StartAttempt opens an attempt at levelID.
func (c *Client) StartAttempt(ctx context.Context, levelID int) (trainer.Snapshot, error) {
	var snap trainer.Snapshot
	err := c.post(ctx, "/api/v1/attempts", map[string]int{"level_id": levelID}, http.StatusCreated, &snap)
	return snap, err
}

// SendFrame posts one frame. A nil frame reports that no body was detected.
// Retries up to 3 times with exponential backoff on transport errors and
// 5xx responses.
func (c *Client) SendFrame(ctx context.Context, id uuid.UUID, f *pose.Frame) (trainer.Snapshot, error) {
	body := struct {
		Landmarks []pose.Landmark `json:"landmarks"`
	}{}
	if f != nil {
		body.Landmarks = f.Landmarks
	}

	var (
		snap    trainer.Snapshot
		lastErr error
	)
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff << uint(attempt-1)):
			case <-ctx.Done():
				return snap, ctx.Err()
			}
		}
		err := c.post(ctx, "/api/v1/attempts/"+id.String()+"/frames", body, http.StatusOK, &snap)
		if err == nil {
			return snap, nil
		}
		lastErr = err
		var se *StatusError
		if errors.As(err, &se) && se.Code < 500 {
			return snap, err
		}
	}
	return snap, fmt.Errorf("after 3 attempts: %w", lastErr)
}

// EndAttempt closes the attempt and returns its scored snapshot.
func (c *Client) EndAttempt(ctx context.Context, id uuid.UUID, surrender bool) (trainer.Snapshot, error) {
	var snap trainer.Snapshot
	err := c.post(ctx, "/api/v1/attempts/"+id.String()+"/end", map[string]bool{"surrender": surrender}, http.StatusOK, &snap)
	return snap, err
}

// StatusError is an unexpected HTTP status from the server.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed (status %d): %s", e.Path, e.Code, e.Body)
}

func (c *Client) post(ctx context.Context, path string, in any, want int, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
