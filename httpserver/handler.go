package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Nemo157/radicle-upstream/keystore"
	"github.com/Nemo157/radicle-upstream/metrics"
	"github.com/Nemo157/radicle-upstream/session"
)

const (
	// AuthTokenCookie is the cookie carrying the bearer token between
	// requests from the same client.
	AuthTokenCookie = "auth-token"

	// maxBodySize is the maximum allowed request body size (64KB).
	// Keystore requests only ever carry a passphrase.
	maxBodySize = 64 * 1024
)

// PassphraseRequest is the body of keystore create and unseal requests.
type PassphraseRequest struct {
	Passphrase string `json:"passphrase"`
}

// TokenResponse carries the freshly minted bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// SessionResponse describes the current session to an authenticated caller.
type SessionResponse struct {
	Status    string `json:"status"`
	TestMode  bool   `json:"test_mode"`
	PeerID    string `json:"peer_id,omitempty"`
	PeerState string `json:"peer_state,omitempty"`
	Seeds     int    `json:"seeds,omitempty"`
}

// Handler processes HTTP requests against the current session context.
// It fetches the context from the holder per request; after a successful
// unseal the next request observes the unsealed variant.
type Handler struct {
	holder *session.Holder
	log    *slog.Logger
}

// NewHandler creates a new HTTP request handler.
func NewHandler(holder *session.Holder, log *slog.Logger) *Handler {
	return &Handler{
		holder: holder,
		log:    log,
	}
}

// HandleCreateKey processes keystore initialization requests.
//
// Endpoint: POST /v1/keystore
// Request body: {"passphrase": "..."}
// Response: 201 with {"token": "..."} and the auth-token cookie set.
func (h *Handler) HandleCreateKey(w http.ResponseWriter, r *http.Request) {
	passphrase, ok := h.readPassphrase(w, r)
	if !ok {
		return
	}

	token, err := h.holder.Current().CreateKey(r.Context(), passphrase)
	if err != nil {
		metrics.CreateKeyAttempts.WithLabelValues(outcomeLabel(err)).Inc()
		h.writeKeystoreError(w, "create key", err)
		return
	}

	metrics.CreateKeyAttempts.WithLabelValues("success").Inc()
	metrics.MarkUnsealed()
	h.log.Info("Keystore initialized")

	h.writeToken(w, http.StatusCreated, token)
}

// HandleUnseal processes keystore unseal requests.
//
// Endpoint: POST /v1/keystore/unseal
// Request body: {"passphrase": "..."}
// Response: 200 with {"token": "..."} and the auth-token cookie set.
func (h *Handler) HandleUnseal(w http.ResponseWriter, r *http.Request) {
	passphrase, ok := h.readPassphrase(w, r)
	if !ok {
		return
	}

	token, err := h.holder.Current().Unseal(r.Context(), passphrase)
	if err != nil {
		metrics.UnsealAttempts.WithLabelValues(outcomeLabel(err)).Inc()
		h.writeKeystoreError(w, "unseal", err)
		return
	}

	metrics.UnsealAttempts.WithLabelValues("success").Inc()
	metrics.MarkUnsealed()
	h.log.Info("Keystore unsealed")

	h.writeToken(w, http.StatusOK, token)
}

// HandleSession reports the current session state to an authenticated caller.
//
// Endpoint: GET /v1/session
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	resp := SessionResponse{Status: "sealed"}

	switch ctx := h.holder.Current().(type) {
	case *session.Sealed:
		resp.TestMode = ctx.TestMode()
	case *session.Unsealed:
		resp.Status = "unsealed"
		resp.TestMode = ctx.TestMode()
		resp.PeerID = ctx.RepoState().PeerID()
		resp.PeerState = ctx.PeerControl().Status()
		resp.Seeds = ctx.PeerControl().SeedCount()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// RequireAuth rejects requests that do not present the current bearer
// token, either as "Authorization: Bearer <token>" or in the auth-token
// cookie. A missing token never authenticates.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.holder.Current().CheckToken(presentedToken(r)) {
			metrics.AuthFailures.Inc()
			http.Error(w, "Invalid or missing auth token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// presentedToken extracts the bearer token from a request, preferring
// the Authorization header over the cookie. Returns "" when absent.
func presentedToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	if cookie, err := r.Cookie(AuthTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func (h *Handler) readPassphrase(w http.ResponseWriter, r *http.Request) (keystore.Passphrase, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.log.Error("Failed to read request body", "err", err)
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return "", false
	}

	var req PassphraseRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return "", false
	}

	if req.Passphrase == "" {
		http.Error(w, "Missing passphrase", http.StatusBadRequest)
		return "", false
	}

	return keystore.Passphrase(req.Passphrase), true
}

func (h *Handler) writeToken(w http.ResponseWriter, status int, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthTokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(TokenResponse{Token: token})
}

// writeKeystoreError maps the keystore error taxonomy onto HTTP status
// codes. The recoverable errors pass through unchanged in meaning; they
// are operator-correctable and leave no partial state behind.
func (h *Handler) writeKeystoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, keystore.ErrWrongPassphrase):
		http.Error(w, "Wrong passphrase", http.StatusForbidden)
	case errors.Is(err, keystore.ErrNoKeyPresent):
		http.Error(w, "No key present, initialize the keystore first", http.StatusNotFound)
	case errors.Is(err, keystore.ErrKeyAlreadyExists):
		http.Error(w, "Key already exists", http.StatusConflict)
	case errors.Is(err, keystore.ErrBackendUnavailable):
		h.log.Error("Keystore backend unavailable", "op", op, "err", err)
		http.Error(w, "Keystore backend unavailable", http.StatusServiceUnavailable)
	default:
		h.log.Error("Keystore operation failed", "op", op, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// outcomeLabel converts a keystore error into a metrics label.
func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, keystore.ErrWrongPassphrase):
		return "wrong_passphrase"
	case errors.Is(err, keystore.ErrNoKeyPresent):
		return "no_key"
	case errors.Is(err, keystore.ErrKeyAlreadyExists):
		return "key_exists"
	case errors.Is(err, keystore.ErrBackendUnavailable):
		return "backend_unavailable"
	default:
		return "error"
	}
}
