package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lysyi3m/rss-sync/app/model"
)

type PullResult struct {
	Changes   model.ChangesObject `json:"changes"`
	Timestamp int64               `json:"timestamp"`
}

type Transport interface {
	Pull(ctx context.Context, lastPulledAt int64) (PullResult, error)
	Push(ctx context.Context, changes model.ChangesObject) error
}

// HTTPTransport talks to the sync API with a bearer token.
type HTTPTransport struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewHTTPTransport(httpClient *http.Client, baseURL, token string) *HTTPTransport {
	return &HTTPTransport{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
}

func (t *HTTPTransport) Pull(ctx context.Context, lastPulledAt int64) (PullResult, error) {
	query := url.Values{"lastPulledAt": {strconv.FormatInt(lastPulledAt, 10)}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/sync/pull?"+query.Encode(), nil)
	if err != nil {
		return PullResult{}, fmt.Errorf("failed to create pull request: %w", err)
	}

	var result PullResult
	if err := t.do(req, &result); err != nil {
		return PullResult{}, fmt.Errorf("pull failed: %w", err)
	}
	return result, nil
}

func (t *HTTPTransport) Push(ctx context.Context, changes model.ChangesObject) error {
	body, err := json.Marshal(changes.Normalize())
	if err != nil {
		return fmt.Errorf("failed to encode changes: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/sync/push", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if err := t.do(req, nil); err != nil {
		return fmt.Errorf("push failed: %w", err)
	}
	return nil
}

func (t *HTTPTransport) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+t.token)
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return &StatusError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}
