package web

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"

	"github.com/mcdev12/tempo/go/internal/auth"
	"github.com/mcdev12/tempo/go/internal/models"
	"github.com/mcdev12/tempo/go/internal/users"
	"github.com/rs/zerolog/log"
)

// Messages carried back to the page in the authError query parameter
const (
	AuthErrorInvalid         = "true"
	AuthErrorServer          = "Server error"
	AuthErrorMissingFields   = "Please enter both username and password"
	AuthErrorUserExists      = "User already exists"
	AuthErrorLogoutFailed    = "Logout failed"
	authErrorInvalidReadable = "Wrong username or password"
)

const maxFormBytes = 64 << 10

// UsersApp is what the handlers need from the users package
type UsersApp interface {
	Signup(ctx context.Context, creds users.Credentials) (*models.User, error)
	Login(ctx context.Context, creds users.Credentials) (*models.User, error)
}

// SessionManager issues and revokes sessions
type SessionManager interface {
	Create(ctx context.Context, userID string) (*models.Session, error)
	Delete(ctx context.Context, sessionID string) error
	GetByToken(ctx context.Context, token string) (*models.Session, error)
}

// Handler serves the session endpoints. Outcomes are communicated by redirect, never by
// an HTTP error status.
type Handler struct {
	users    UsersApp
	sessions SessionManager
	cookies  CookieConfig
}

// NewHandler creates a Handler
func NewHandler(usersApp UsersApp, sessions SessionManager, cookies CookieConfig) *Handler {
	return &Handler{
		users:    usersApp,
		sessions: sessions,
		cookies:  cookies,
	}
}

// RegisterRoutes registers the session routes. The mux must sit behind auth.Resolver.Middleware.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /login", h.HandleLogin)
	mux.HandleFunc("POST /signup", h.HandleSignup)
	mux.HandleFunc("GET /logout", h.HandleLogout)
	mux.HandleFunc("GET /api/session", h.HandleSession)
	mux.HandleFunc("GET /health", HandleHealth)
}

// HandleLogin checks credentials and starts a session
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(w, r)
	if err != nil {
		log.Debug().Err(err).Msg("unreadable login request")
		redirectWithError(w, r, AuthErrorInvalid)
		return
	}

	user, err := h.users.Login(r.Context(), creds)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			log.Info().Str("username", creds.Username).Msg("login rejected")
			redirectWithError(w, r, AuthErrorInvalid)
			return
		}
		log.Error().Err(err).Str("username", creds.Username).Msg("login failed")
		redirectWithError(w, r, AuthErrorServer)
		return
	}

	h.startSession(w, r, user)
}

// HandleSignup creates an account and starts a session
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(w, r)
	if err != nil {
		log.Debug().Err(err).Msg("unreadable signup request")
		redirectWithError(w, r, AuthErrorMissingFields)
		return
	}

	user, err := h.users.Signup(r.Context(), creds)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrMissingCredentials):
			redirectWithError(w, r, AuthErrorMissingFields)
		case errors.Is(err, users.ErrUserExists):
			redirectWithError(w, r, AuthErrorUserExists)
		default:
			log.Error().Err(err).Str("username", creds.Username).Msg("signup failed")
			redirectWithError(w, r, AuthErrorServer)
		}
		return
	}

	h.startSession(w, r, user)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, user *models.User) {
	session, err := h.sessions.Create(r.Context(), user.ID.String())
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to create session")
		redirectWithError(w, r, AuthErrorServer)
		return
	}

	h.cookies.setSession(w, session)
	log.Info().Str("user_id", user.ID.String()).Msg("session started")
	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleLogout ends the session named by the sessionId cookie
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if err := h.sessions.Delete(r.Context(), auth.SessionIDFromContext(r.Context())); err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("logout failed")
		redirectWithError(w, r, AuthErrorLogoutFailed)
		return
	}

	h.cookies.clearSession(w)
	log.Info().Str("user_id", user.ID.String()).Msg("session ended")
	http.Redirect(w, r, "/", http.StatusFound)
}

// SessionResponse is the /api/session payload
type SessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	Token         string `json:"token,omitempty"`
	AuthError     string `json:"authError,omitempty"`
}

// HandleSession tells the page who is signed in and which token opens the live channel.
// An authError query parameter is echoed back in readable form.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	resp := SessionResponse{
		AuthError: readableAuthError(r.URL.Query().Get("authError")),
	}

	if user, ok := auth.UserFromContext(r.Context()); ok {
		resp.Authenticated = true
		resp.Username = user.Username
		resp.Token = h.liveToken(r, user)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("failed to encode session response")
	}
}

// liveToken returns the sessionToken cookie when it belongs to user
func (h *Handler) liveToken(r *http.Request, user *models.User) string {
	cookie, err := r.Cookie(auth.SessionTokenCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}

	session, err := h.sessions.GetByToken(r.Context(), cookie.Value)
	if err != nil {
		log.Debug().Err(err).Str("user_id", user.ID.String()).Msg("no session for token cookie")
		return ""
	}
	if session.UserID != user.ID.String() {
		return ""
	}
	return session.Token
}

// HandleHealth reports liveness
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		log.Error().Err(err).Msg("failed to write health check response")
	}
}

func readableAuthError(code string) string {
	if code == AuthErrorInvalid {
		return authErrorInvalidReadable
	}
	return code
}

func redirectWithError(w http.ResponseWriter, r *http.Request, message string) {
	http.Redirect(w, r, "/?authError="+url.QueryEscape(message), http.StatusFound)
}

// readCredentials accepts either a urlencoded form or a JSON body
func readCredentials(w http.ResponseWriter, r *http.Request) (users.Credentials, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var creds users.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			return users.Credentials{}, err
		}
		return creds, nil
	}

	if err := r.ParseForm(); err != nil {
		return users.Credentials{}, err
	}
	return users.Credentials{
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	}, nil
}
