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
)

const stravaAPI = "https://www.strava.com/api/v3"

var stravaEndpoint = oauth2.Endpoint{
	AuthURL:  "https://www.strava.com/oauth/authorize",
	TokenURL: "https://www.strava.com/oauth/token",
}

// Strava connects via OAuth. Strava access tokens are short-lived, so this
// adapter is the canonical TokenRefresher: every sync cycle normally goes
// through a refresh first.
type Strava struct {
	client *http.Client
	oauth  *oauth2.Config
}

func NewStrava(client *http.Client, clientID, clientSecret, appURL string) *Strava {
	return &Strava{
		client: client,
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  appURL + "/connect/strava/callback",
			Scopes:       []string{"activity:read"},
			Endpoint:     stravaEndpoint,
		},
	}
}

func (s *Strava) Key() string                 { return "strava" }
func (s *Strava) DisplayName() string         { return "Strava" }
func (s *Strava) OAuthConfig() *oauth2.Config { return s.oauth }

// Refresh exchanges the stored refresh token for a new credential. Strava
// rotates refresh tokens, so the returned triple replaces all three fields.
func (s *Strava) Refresh(ctx context.Context, conn *model.Connection) (*Credential, error) {
	if conn.RefreshToken == nil || *conn.RefreshToken == "" {
		return nil, ErrMissingCredential
	}

	// An already-expired token forces the token source to hit the refresh
	// endpoint instead of returning the stale access token.
	stale := &oauth2.Token{
		RefreshToken: *conn.RefreshToken,
		Expiry:       time.Now().Add(-time.Minute),
	}
	tok, err := s.oauth.TokenSource(ctx, stale).Token()
	if err != nil {
		return nil, fmt.Errorf("strava token refresh failed: %w", err)
	}

	cred := &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		cred.ExpiresAt = &expiry
	}
	return cred, nil
}

func (s *Strava) Fetch(ctx context.Context, _ *model.Connection, accessToken string) (*Activity, error) {
	if accessToken == "" {
		return nil, ErrMissingCredential
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, stravaAPI+"/athlete/activities?per_page=50", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("strava request failed: %w", err)
	}
	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("strava returned status %d", resp.StatusCode)
	}

	var activities []struct {
		MovingTime int     `json:"moving_time"`
		Distance   float64 `json:"distance"`
	}
	err = json.NewDecoder(resp.Body).Decode(&activities)
	if err != nil {
		return nil, fmt.Errorf("failed to decode strava response: %w", err)
	}

	activity := &Activity{
		Platform:  s.Key(),
		FetchedAt: time.Now(),
	}
	for _, a := range activities {
		activity.ActiveMinutes += a.MovingTime / 60
		activity.DistanceMeters += a.Distance
	}
	return activity, nil
}
