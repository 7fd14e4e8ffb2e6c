package loadcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/tally/internal/domain/submission"
	"github.com/okian/tally/internal/domain/types"
)

// Client talks to the tally HTTP API. Submissions are paced by a limiter.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client. A non-positive rps disables pacing.
func NewClient(baseURL string, timeout time.Duration, rps float64, burst int) *Client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", "", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

type scoreBody struct {
	ParticipantID string             `json:"participantId"`
	Entries       map[string]float64 `json:"criteriaScores"`
	Deduction     float64            `json:"deductions"`
	Critique      string             `json:"critique,omitempty"`
}

// Submit posts one submission and returns the accepted score.
func (c *Client) Submit(ctx context.Context, s Submission) (submission.Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return submission.Result{}, err
	}
	body, err := json.Marshal(scoreBody{
		ParticipantID: s.ParticipantID,
		Entries:       s.Entries,
		Deduction:     s.Deduction,
		Critique:      s.Critique,
	})
	if err != nil {
		return submission.Result{}, err
	}
	resp, err := c.do(ctx, http.MethodPost, "/events/"+url.PathEscape(s.EventID)+"/scores", s.Token, body)
	if err != nil {
		return submission.Result{}, err
	}
	var res submission.Result
	if err := decode(resp, &res); err != nil {
		return submission.Result{}, err
	}
	return res, nil
}

// Ranking fetches GET /events/{id}/ranking.
func (c *Client) Ranking(ctx context.Context, eventID string) (types.EventRanking, error) {
	resp, err := c.do(ctx, http.MethodGet, "/events/"+url.PathEscape(eventID)+"/ranking", "", nil)
	if err != nil {
		return types.EventRanking{}, err
	}
	var r types.EventRanking
	err = decode(resp, &r)
	return r, err
}

// Standings fetches GET /standings.
func (c *Client) Standings(ctx context.Context) (types.Standings, error) {
	resp, err := c.do(ctx, http.MethodGet, "/standings", "", nil)
	if err != nil {
		return types.Standings{}, err
	}
	var st types.Standings
	err = decode(resp, &st)
	return st, err
}

func (c *Client) do(ctx context.Context, method, path, token string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrRequest, method, path, err)
	}
	return resp, nil
}

// decode reads a JSON body into v and closes it. Non-200 responses become
// errors carrying the service's error code.
func decode(resp *http.Response, v any) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequest, err)
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &e)
		return fmt.Errorf("%w: %s %s: status %d %s %s", ErrRequest, resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, e.Code, e.Message)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode: %w", ErrRequest, err)
	}
	return nil
}
