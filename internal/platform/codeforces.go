package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/questlog/questlog/internal/cache"
	"github.com/questlog/questlog/internal/model"
)

const codeforcesAPI = "https://codeforces.com/api/user.status"

// Codeforces reads the public submission API by handle.
type Codeforces struct {
	client *http.Client
	cache  cache.Cache
	ttl    time.Duration
}

func NewCodeforces(client *http.Client, c cache.Cache, ttl time.Duration) *Codeforces {
	return &Codeforces{client: client, cache: c, ttl: ttl}
}

func (c *Codeforces) Key() string         { return "codeforces" }
func (c *Codeforces) DisplayName() string { return "Codeforces" }

type codeforcesResponse struct {
	Status string `json:"status"`
	Result []struct {
		Verdict string `json:"verdict"`
		Problem struct {
			ContestID int    `json:"contestId"`
			Index     string `json:"index"`
		} `json:"problem"`
	} `json:"result"`
}

func (c *Codeforces) Fetch(ctx context.Context, conn *model.Connection, _ string) (*Activity, error) {
	handle := conn.Identifier()
	if handle == "" {
		return nil, ErrMissingIdentity
	}

	body, err := c.fetchRaw(ctx, handle)
	if err != nil {
		return nil, err
	}

	var parsed codeforcesResponse
	err = json.Unmarshal(body, &parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode codeforces response: %w", err)
	}
	if parsed.Status != "OK" {
		return nil, fmt.Errorf("codeforces returned status %q for handle %q", parsed.Status, handle)
	}

	// Count distinct accepted problems, not raw accepted submissions.
	seen := make(map[string]struct{})
	for _, sub := range parsed.Result {
		if sub.Verdict != "OK" {
			continue
		}
		key := fmt.Sprintf("%d%s", sub.Problem.ContestID, sub.Problem.Index)
		seen[key] = struct{}{}
	}

	return &Activity{
		Platform:       c.Key(),
		FetchedAt:      time.Now(),
		ProblemsSolved: len(seen),
		ProfileName:    handle,
	}, nil
}

func (c *Codeforces) fetchRaw(ctx context.Context, handle string) ([]byte, error) {
	cacheKey := "codeforces:" + handle
	if cached, err := c.cache.Get(ctx, cacheKey); err == nil {
		return cached, nil
	}

	endpoint := codeforcesAPI + "?handle=" + url.QueryEscape(handle) + "&from=1&count=1000"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("codeforces request failed: %w", err)
	}
	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("codeforces returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	err = c.cache.Set(ctx, cacheKey, body, c.ttl)
	if err != nil {
		slog.Warn("failed to cache codeforces response", "error", err, "handle", handle)
	}

	return body, nil
}
