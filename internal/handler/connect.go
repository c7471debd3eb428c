package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/questlog/questlog/internal/ctxkeys"
	"github.com/questlog/questlog/internal/platform"
	"github.com/questlog/questlog/internal/service"
	syncengine "github.com/questlog/questlog/internal/sync"
	"github.com/questlog/questlog/internal/validation"
)

type connectHandler struct {
	connections *service.ConnectionService
	reconciler  *syncengine.Reconciler
}

func NewConnectHandler(connections *service.ConnectionService, reconciler *syncengine.Reconciler) *connectHandler {
	return &connectHandler{connections: connections, reconciler: reconciler}
}

// Initiate starts the OAuth flow: the caller is redirected to the provider's
// consent screen with a signed state carrying their identity.
func (h *connectHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())
	platformKey := r.PathValue("platform")

	redirectURL, err := h.connections.InitiateConnect(userID, platformKey)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAuthRequired):
			writeError(w, http.StatusUnauthorized, "authentication required")
		case errors.Is(err, platform.ErrUnknownPlatform), errors.Is(err, service.ErrOAuthUnsupported):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, platform.ErrNotConfigured):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			slog.Error("connect initiation failed", "error", err, "platform", platformKey)
			writeError(w, http.StatusInternalServerError, "failed to start connect flow")
		}
		return
	}

	http.Redirect(w, r, redirectURL, http.StatusTemporaryRedirect)
}

// Callback is invoked by the provider; identity is recovered from the signed
// state, not from a session.
func (h *connectHandler) Callback(w http.ResponseWriter, r *http.Request) {
	platformKey := r.PathValue("platform")
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	conn, err := h.connections.HandleCallback(r.Context(), platformKey, code, state)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidState):
			writeError(w, http.StatusBadRequest, "invalid or expired state")
		case errors.Is(err, service.ErrTokenExchangeFailed):
			slog.Warn("token exchange failed", "error", err, "platform", platformKey)
			writeError(w, http.StatusBadGateway, "provider rejected the token exchange")
		case errors.Is(err, platform.ErrUnknownPlatform):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			slog.Error("oauth callback failed", "error", err, "platform", platformKey)
			writeError(w, http.StatusInternalServerError, "connect failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"platform":  conn.Platform,
		"connected": conn.Connected,
	})
}

func (h *connectHandler) Manual(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())
	platformKey := r.PathValue("platform")
	identifier := r.FormValue("identifier")

	conn, err := h.connections.ManualConnect(userID, platformKey, identifier)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAuthRequired):
			writeError(w, http.StatusUnauthorized, "authentication required")
		case errors.Is(err, platform.ErrUnknownPlatform):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, validation.ErrIdentifierRequired), errors.Is(err, validation.ErrIdentifierInvalid):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("manual connect failed", "error", err, "platform", platformKey)
			writeError(w, http.StatusInternalServerError, "connect failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"platform":           conn.Platform,
		"connected":          conn.Connected,
		"profile_identifier": conn.Identifier(),
	})
}

func (h *connectHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())
	platformKey := r.PathValue("platform")

	err := h.connections.Disconnect(userID, platformKey)
	if err != nil {
		slog.Warn("disconnect failed", "error", err, "user_id", userID, "platform", platformKey)
		writeError(w, http.StatusNotFound, "connection not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"platform": platform.Normalize(platformKey), "connected": false})
}

// Status never fails: unknown platforms and missing rows read as
// disconnected.
func (h *connectHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())
	platformKey := r.PathValue("platform")

	writeJSON(w, http.StatusOK, h.connections.Status(userID, platformKey))
}

// SyncNow runs a reconciliation batch interactively and returns the
// per-entity audit trail.
func (h *connectHandler) SyncNow(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	results, err := h.reconciler.SyncPendingForUser(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, syncengine.ErrNotConnected):
			writeError(w, http.StatusConflict, "projection target not connected")
		case errors.Is(err, service.ErrTokenRefreshFailed):
			writeError(w, http.StatusBadGateway, "token refresh failed, try again later")
		default:
			slog.Error("manual sync failed", "error", err, "user_id", userID)
			writeError(w, http.StatusInternalServerError, "sync failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
