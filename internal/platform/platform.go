// Package platform holds one adapter per external service. Adapters expose a
// uniform capability surface: every adapter identifies itself, and optional
// interfaces mark what it can do (fetch activity, run an OAuth flow, refresh
// tokens). Callers type-assert for capabilities instead of switching on
// platform names.
package platform

import (
	"context"
	"errors"
	"time"

	"github.com/questlog/questlog/internal/model"
	"golang.org/x/oauth2"
)

var (
	ErrUnknownPlatform   = errors.New("unknown platform")
	ErrNotConfigured     = errors.New("platform adapter not configured")
	ErrMissingIdentity   = errors.New("connection has no profile identifier")
	ErrMissingCredential = errors.New("connection has no credential")
)

// Activity is the normalized per-user activity snapshot an adapter fetch
// produces. Adapters fill only the fields their platform knows about.
type Activity struct {
	Platform       string
	FetchedAt      time.Time
	ProblemsSolved int
	Commits        int
	ActiveMinutes  int
	DistanceMeters float64
	ProfileName    string
}

// Credential is the refreshed token triple a TokenRefresher returns.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// Adapter is the minimal surface every platform implements.
type Adapter interface {
	Key() string
	DisplayName() string
}

// Fetcher adapters can pull the user's activity from the platform. The
// access token passed in has already been run through the refresh policy.
type Fetcher interface {
	Adapter
	Fetch(ctx context.Context, conn *model.Connection, accessToken string) (*Activity, error)
}

// OAuthProvider adapters connect via the OAuth authorization-code flow.
type OAuthProvider interface {
	Adapter
	OAuthConfig() *oauth2.Config
}

// TokenRefresher adapters can exchange a refresh token for a fresh credential.
type TokenRefresher interface {
	Adapter
	Refresh(ctx context.Context, conn *model.Connection) (*Credential, error)
}
