package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/questlog/questlog/internal/model"
	"github.com/questlog/questlog/internal/platform"
	"github.com/questlog/questlog/internal/repository"
	"github.com/questlog/questlog/internal/validation"
	"golang.org/x/oauth2"
)

var (
	ErrAuthRequired        = errors.New("authentication required to start connect flow")
	ErrInvalidState        = errors.New("invalid or expired oauth state")
	ErrTokenExchangeFailed = errors.New("oauth token exchange failed")
	ErrTokenRefreshFailed  = errors.New("token refresh failed")
	ErrOAuthUnsupported    = errors.New("platform does not support oauth connect")
)

// ConnectionStatus is the read model connect status queries return. Queries
// never fail: a missing row reads as a never-connected platform.
type ConnectionStatus struct {
	Platform          string     `json:"platform"`
	Connected         bool       `json:"connected"`
	ProfileIdentifier string     `json:"profile_identifier,omitempty"`
	LastSync          *time.Time `json:"last_sync,omitempty"`
	LastError         string     `json:"last_error,omitempty"`
}

// ConnectionService mediates the OAuth authorization-code flow and the
// manual (username-only) connect flow, and owns the token refresh policy.
type ConnectionService struct {
	connRepo        repository.ConnectionRepository
	registry        *platform.Registry
	stateSecret     string
	stateExpiry     time.Duration
	lastErrorMaxLen int
}

func NewConnectionService(
	connRepo repository.ConnectionRepository,
	registry *platform.Registry,
	stateSecret string,
	stateExpiry time.Duration,
	lastErrorMaxLen int,
) *ConnectionService {
	return &ConnectionService{
		connRepo:        connRepo,
		registry:        registry,
		stateSecret:     stateSecret,
		stateExpiry:     stateExpiry,
		lastErrorMaxLen: lastErrorMaxLen,
	}
}

// InitiateConnect builds the provider authorization URL. The state parameter
// is a signed token embedding the user ID, because the provider calls the
// callback anonymously and identity must survive the round trip.
func (s *ConnectionService) InitiateConnect(userID, platformKey string) (string, error) {
	if userID == "" {
		return "", ErrAuthRequired
	}

	adapter, err := s.registry.Get(platformKey)
	if err != nil {
		return "", err
	}
	provider, ok := adapter.(platform.OAuthProvider)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrOAuthUnsupported, adapter.Key())
	}
	oauthCfg := provider.OAuthConfig()
	if oauthCfg.ClientID == "" {
		return "", fmt.Errorf("%w: %s", platform.ErrNotConfigured, adapter.Key())
	}

	state, err := s.signState(userID, adapter.Key())
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}

	return oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// HandleCallback verifies the signed state, exchanges the authorization code
// and upserts the Connection. The row is untouched when the exchange fails,
// so no half-written credential can be stored.
func (s *ConnectionService) HandleCallback(ctx context.Context, platformKey, code, state string) (*model.Connection, error) {
	adapter, err := s.registry.Get(platformKey)
	if err != nil {
		return nil, err
	}
	provider, ok := adapter.(platform.OAuthProvider)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOAuthUnsupported, adapter.Key())
	}

	userID, err := s.verifyState(state, adapter.Key())
	if err != nil {
		return nil, err
	}

	token, err := provider.OAuthConfig().Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
	}

	conn := &model.Connection{
		UserID:      userID,
		Platform:    adapter.Key(),
		AccessToken: &token.AccessToken,
		Connected:   true,
	}
	if token.RefreshToken != "" {
		refresh := token.RefreshToken
		conn.RefreshToken = &refresh
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		conn.ExpiresAt = &expiry
	}

	err = s.connRepo.Upsert(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to save connection: %w", err)
	}

	slog.Info("platform connected", "user_id", userID, "platform", adapter.Key())
	return s.connRepo.ByUserAndPlatform(userID, adapter.Key())
}

// ManualConnect stores a profile identifier for platforms without OAuth.
// Calling again with a different identifier overwrites the previous one.
func (s *ConnectionService) ManualConnect(userID, platformKey, identifier string) (*model.Connection, error) {
	if userID == "" {
		return nil, ErrAuthRequired
	}

	adapter, err := s.registry.Get(platformKey)
	if err != nil {
		return nil, err
	}

	err = validation.ValidateIdentifier(identifier)
	if err != nil {
		return nil, err
	}

	conn := &model.Connection{
		UserID:            userID,
		Platform:          adapter.Key(),
		ProfileIdentifier: &identifier,
		Connected:         true,
	}
	err = s.connRepo.Upsert(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to save connection: %w", err)
	}

	slog.Info("platform connected manually", "user_id", userID, "platform", adapter.Key(), "identifier", identifier)
	return s.connRepo.ByUserAndPlatform(userID, adapter.Key())
}

// Disconnect clears the credential fields and the active flag. The row and
// its remote projection survive, so reconnecting does not re-provision
// remote containers.
func (s *ConnectionService) Disconnect(userID, platformKey string) error {
	conn, err := s.connRepo.ByUserAndPlatform(userID, platform.Normalize(platformKey))
	if err != nil {
		return err
	}

	conn.AccessToken = nil
	conn.RefreshToken = nil
	conn.ExpiresAt = nil
	conn.ProfileIdentifier = nil
	conn.Connected = false

	err = s.connRepo.Update(conn)
	if err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}

	slog.Info("platform disconnected", "user_id", userID, "platform", conn.Platform)
	return nil
}

// Status reports the connection state. A missing or broken row reads as
// connected=false rather than an error.
func (s *ConnectionService) Status(userID, platformKey string) ConnectionStatus {
	key := platform.Normalize(platformKey)
	status := ConnectionStatus{Platform: key}

	conn, err := s.connRepo.ByUserAndPlatform(userID, key)
	if err != nil {
		if !errors.Is(err, repository.ErrConnectionNotFound) {
			slog.Warn("failed to load connection status", "error", err, "user_id", userID, "platform", key)
		}
		return status
	}

	status.Connected = conn.Connected
	status.ProfileIdentifier = conn.Identifier()
	status.LastSync = conn.LastSync
	if conn.LastError != nil {
		status.LastError = *conn.LastError
	}
	return status
}

// EnsureFreshToken is the single choke point every credential-backed adapter
// call goes through. It returns an access token that is unexpired at the
// moment of use, refreshing and persisting first when needed. A failed
// refresh records last_error but leaves connected untouched: transient
// provider trouble must not destroy the connection.
func (s *ConnectionService) EnsureFreshToken(ctx context.Context, conn *model.Connection) (string, error) {
	if !conn.HasCredential() {
		return "", platform.ErrMissingCredential
	}

	// No expiry concept on this platform: the stored token is always valid.
	if conn.ExpiresAt == nil {
		return *conn.AccessToken, nil
	}
	if !conn.TokenExpired(time.Now()) {
		return *conn.AccessToken, nil
	}

	adapter, err := s.registry.Get(conn.Platform)
	if err != nil {
		return "", err
	}
	refresher, ok := adapter.(platform.TokenRefresher)
	if !ok || conn.RefreshToken == nil || *conn.RefreshToken == "" {
		s.recordRefreshFailure(conn, "access token expired and platform offers no refresh")
		return "", fmt.Errorf("%w: no refresh mechanism for %s", ErrTokenRefreshFailed, conn.Platform)
	}

	cred, err := refresher.Refresh(ctx, conn)
	if err != nil {
		s.recordRefreshFailure(conn, err.Error())
		return "", fmt.Errorf("%w: %v", ErrTokenRefreshFailed, err)
	}

	conn.AccessToken = &cred.AccessToken
	if cred.RefreshToken != "" {
		refresh := cred.RefreshToken
		conn.RefreshToken = &refresh
	}
	conn.ExpiresAt = cred.ExpiresAt
	conn.LastError = nil

	err = s.connRepo.Update(conn)
	if err != nil {
		return "", fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	slog.Debug("token refreshed", "user_id", conn.UserID, "platform", conn.Platform)
	return cred.AccessToken, nil
}

func (s *ConnectionService) recordRefreshFailure(conn *model.Connection, msg string) {
	truncated := truncate("token refresh: "+msg, s.lastErrorMaxLen)
	conn.LastError = &truncated
	err := s.connRepo.Update(conn)
	if err != nil {
		slog.Warn("failed to record refresh failure", "error", err, "user_id", conn.UserID, "platform", conn.Platform)
	}
}

type stateClaims struct {
	Platform string `json:"platform"`
	jwt.RegisteredClaims
}

func (s *ConnectionService) signState(userID, platformKey string) (string, error) {
	now := time.Now()
	claims := stateClaims{
		Platform: platformKey,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.stateExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.stateSecret))
}

func (s *ConnectionService) verifyState(state, platformKey string) (string, error) {
	claims := &stateClaims{}
	token, err := jwt.ParseWithClaims(state, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.stateSecret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidState
	}
	if claims.Subject == "" || claims.Platform != platformKey {
		return "", ErrInvalidState
	}
	return claims.Subject, nil
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
