package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/fundora/pkg/logger"
)

// client wraps http.Client with the base URL.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// do sends a request and returns the status code with the body drained.
func (c *client) do(ctx context.Context, method, path, token string, body any, out any) (int, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	if out != nil && resp.StatusCode < http.StatusBadRequest {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		return resp.StatusCode, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

type startupList struct {
	Count    int `json:"count"`
	Startups []struct {
		SubjectID string `json:"subject_id"`
	} `json:"startups"`
}

// subjects fetches the catalog and returns its ids.
func (c *client) subjects(ctx context.Context) ([]string, error) {
	var list startupList
	code, err := c.do(ctx, http.MethodGet, "/startups", "", nil, &list)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("%w: GET /startups returned %d", ErrBadStatus, code)
	}
	ids := make([]string, 0, len(list.Startups))
	for _, s := range list.Startups {
		ids = append(ids, s.SubjectID)
	}
	return ids, nil
}

// healthy verifies the service is up.
func (c *client) healthy(ctx context.Context) error {
	code, err := c.do(ctx, http.MethodGet, "/healthz", "", nil, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if code != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, code)
	}
	return nil
}
