package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/warp/calltracker/api"
)

// DefaultServer is used when neither --server nor CALLTRACKER_SERVER is set.
const DefaultServer = "http://localhost:8080"

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
	Code    string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

// Client talks to the tracker server's JSON API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("server unreachable at %s: %w", c.BaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			return resp.StatusCode, &APIError{Status: resp.StatusCode, Message: resp.Status}
		}
		apiErr := &APIError{Status: resp.StatusCode, Message: e.Error, Code: e.Code}
		if e.Details != nil {
			apiErr.Details = fmt.Sprint(e.Details)
		}
		return resp.StatusCode, apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// =============================================================================
// TIMER
// =============================================================================

func (c *Client) Today(ctx context.Context) (api.TodayDTO, error) {
	var out api.TodayDTO
	_, err := c.do(ctx, http.MethodGet, "/api/today", nil, &out)
	return out, err
}

// Call posts to /api/call/{action}: start, stop or toggle.
func (c *Client) Call(ctx context.Context, action string) (api.CallResponse, error) {
	var out api.CallResponse
	_, err := c.do(ctx, http.MethodPost, "/api/call/"+action, nil, &out)
	return out, err
}

func (c *Client) UpdateSettings(ctx context.Context, req api.UpdateSettingsRequest) (api.TodayDTO, error) {
	var out api.TodayDTO
	_, err := c.do(ctx, http.MethodPut, "/api/settings", req, &out)
	return out, err
}

func (c *Client) Reset(ctx context.Context) (api.TodayDTO, error) {
	var out api.TodayDTO
	_, err := c.do(ctx, http.MethodPost, "/api/reset", nil, &out)
	return out, err
}

// Stream calls fn for every event of the live call stream until the
// server sends "end" or ctx is done.
func (c *Client) Stream(ctx context.Context, fn func(event string, r api.ReadingDTO)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/call/stream", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// The stream lasts as long as the call.
	streamer := *c.HTTP
	streamer.Timeout = 0
	resp, err := streamer.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable at %s: %w", c.BaseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Message: resp.Status}
	}

	event := ""
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			var r api.ReadingDTO
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &r); err != nil {
				return fmt.Errorf("decode reading: %w", err)
			}
			fn(event, r)
			if event == "end" {
				return nil
			}
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// =============================================================================
// GOALS
// =============================================================================

func (c *Client) Goals(ctx context.Context) ([]api.GoalProgressDTO, error) {
	var out []api.GoalProgressDTO
	_, err := c.do(ctx, http.MethodGet, "/api/goals", nil, &out)
	return out, err
}

func (c *Client) AddGoal(ctx context.Context, req api.CreateGoalRequest) (api.GoalDTO, error) {
	var out api.GoalDTO
	_, err := c.do(ctx, http.MethodPost, "/api/goals", req, &out)
	return out, err
}

func (c *Client) DeleteGoal(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/goals/"+url.PathEscape(id), nil, nil)
	return err
}

// =============================================================================
// SHARED RECORDS
// =============================================================================

func (c *Client) Sync(ctx context.Context) (api.SyncResponse, error) {
	var out api.SyncResponse
	_, err := c.do(ctx, http.MethodPost, "/api/sync", nil, &out)
	return out, err
}

func (c *Client) Nickname(ctx context.Context) (string, error) {
	var out api.NicknameDTO
	_, err := c.do(ctx, http.MethodGet, "/api/nickname", nil, &out)
	return out.Nickname, err
}

func (c *Client) SetNickname(ctx context.Context, nick string) (string, error) {
	var out api.NicknameDTO
	_, err := c.do(ctx, http.MethodPut, "/api/nickname", api.NicknameDTO{Nickname: nick}, &out)
	return out.Nickname, err
}

func (c *Client) Adjust(ctx context.Context, req api.AdjustmentRequest) (api.SyncResponse, error) {
	var out api.SyncResponse
	_, err := c.do(ctx, http.MethodPost, "/api/adjustments", req, &out)
	return out, err
}

func (c *Client) Stats(ctx context.Context, period string) (api.StatsDTO, error) {
	var out api.StatsDTO
	_, err := c.do(ctx, http.MethodGet, "/api/stats?period="+url.QueryEscape(period), nil, &out)
	return out, err
}

func (c *Client) Leaderboard(ctx context.Context, period string) (api.LeaderboardDTO, error) {
	var out api.LeaderboardDTO
	_, err := c.do(ctx, http.MethodGet, "/api/leaderboard?period="+url.QueryEscape(period), nil, &out)
	return out, err
}
