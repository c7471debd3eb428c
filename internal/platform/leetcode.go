package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/questlog/questlog/internal/cache"
	"github.com/questlog/questlog/internal/model"
)

const leetcodeGraphQL = "https://leetcode.com/graphql"

const leetcodeQuery = `query userProfile($username: String!) {
  matchedUser(username: $username) {
    username
    submitStatsGlobal {
      acSubmissionNum { difficulty count }
    }
  }
}`

// LeetCode scrapes the public GraphQL endpoint by username. No OAuth; users
// connect by handing over their profile handle.
type LeetCode struct {
	client *http.Client
	cache  cache.Cache
	ttl    time.Duration
}

func NewLeetCode(client *http.Client, c cache.Cache, ttl time.Duration) *LeetCode {
	return &LeetCode{client: client, cache: c, ttl: ttl}
}

func (l *LeetCode) Key() string         { return "leetcode" }
func (l *LeetCode) DisplayName() string { return "LeetCode" }

type leetcodeResponse struct {
	Data struct {
		MatchedUser *struct {
			Username          string `json:"username"`
			SubmitStatsGlobal struct {
				ACSubmissionNum []struct {
					Difficulty string `json:"difficulty"`
					Count      int    `json:"count"`
				} `json:"acSubmissionNum"`
			} `json:"submitStatsGlobal"`
		} `json:"matchedUser"`
	} `json:"data"`
}

func (l *LeetCode) Fetch(ctx context.Context, conn *model.Connection, _ string) (*Activity, error) {
	username := conn.Identifier()
	if username == "" {
		return nil, ErrMissingIdentity
	}

	body, err := l.fetchRaw(ctx, username)
	if err != nil {
		return nil, err
	}

	var parsed leetcodeResponse
	err = json.Unmarshal(body, &parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode leetcode response: %w", err)
	}
	if parsed.Data.MatchedUser == nil {
		return nil, fmt.Errorf("leetcode user %q not found", username)
	}

	solved := 0
	for _, bucket := range parsed.Data.MatchedUser.SubmitStatsGlobal.ACSubmissionNum {
		// The "All" bucket already sums the difficulties.
		if bucket.Difficulty == "All" {
			solved = bucket.Count
		}
	}

	return &Activity{
		Platform:       l.Key(),
		FetchedAt:      time.Now(),
		ProblemsSolved: solved,
		ProfileName:    parsed.Data.MatchedUser.Username,
	}, nil
}

func (l *LeetCode) fetchRaw(ctx context.Context, username string) ([]byte, error) {
	cacheKey := "leetcode:" + username
	if cached, err := l.cache.Get(ctx, cacheKey); err == nil {
		return cached, nil
	}

	payload, err := json.Marshal(map[string]any{
		"query":     leetcodeQuery,
		"variables": map[string]string{"username": username},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, leetcodeGraphQL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("leetcode request failed: %w", err)
	}
	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("leetcode returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	err = l.cache.Set(ctx, cacheKey, body, l.ttl)
	if err != nil {
		slog.Warn("failed to cache leetcode response", "error", err, "username", username)
	}

	return body, nil
}
