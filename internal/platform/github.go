package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/questlog/questlog/internal/model"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

const githubAPI = "https://api.github.com"

// GitHub connects via OAuth and counts pushed commits from the events feed.
type GitHub struct {
	client *http.Client
	oauth  *oauth2.Config
}

func NewGitHub(client *http.Client, clientID, clientSecret, appURL string) *GitHub {
	return &GitHub{
		client: client,
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  appURL + "/connect/github/callback",
			Scopes:       []string{"read:user"},
			Endpoint:     githuboauth.Endpoint,
		},
	}
}

func (g *GitHub) Key() string                 { return "github" }
func (g *GitHub) DisplayName() string         { return "GitHub" }
func (g *GitHub) OAuthConfig() *oauth2.Config { return g.oauth }

func (g *GitHub) Fetch(ctx context.Context, _ *model.Connection, accessToken string) (*Activity, error) {
	if accessToken == "" {
		return nil, ErrMissingCredential
	}

	var user struct {
		Login string `json:"login"`
	}
	err := g.getJSON(ctx, githubAPI+"/user", accessToken, &user)
	if err != nil {
		return nil, err
	}

	var events []struct {
		Type    string `json:"type"`
		Payload struct {
			Size int `json:"size"`
		} `json:"payload"`
	}
	err = g.getJSON(ctx, githubAPI+"/users/"+user.Login+"/events?per_page=100", accessToken, &events)
	if err != nil {
		return nil, err
	}

	commits := 0
	for _, ev := range events {
		if ev.Type == "PushEvent" {
			commits += ev.Payload.Size
		}
	}

	return &Activity{
		Platform:    g.Key(),
		FetchedAt:   time.Now(),
		Commits:     commits,
		ProfileName: user.Login,
	}, nil
}

func (g *GitHub) getJSON(ctx context.Context, endpoint, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("github request failed: %w", err)
	}
	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github returned status %d for %s", resp.StatusCode, endpoint)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
