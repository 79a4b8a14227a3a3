// Package mocktarget serves canned responses shaped like the public surface
// of the property-management application, for dry runs and tests.
package mocktarget

import (
	"encoding/json"
	"html"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Options shape how the mock behaves.
type Options struct {
	// AuthURL is the external URL callbacks are built from. When empty it is
	// taken from the request Host.
	AuthURL  string
	ClientID string

	// CallbackURL overrides the redirect_uri sent to the provider, e.g. to
	// simulate a misconfigured deployment.
	CallbackURL string

	MasterEmail string

	// Tokens maps bearer tokens to the email of the signed-in user.
	Tokens map[string]string

	// SchemaCacheMiss makes every REST table answer PGRST205.
	SchemaCacheMiss bool

	// MissingTables are reported as inaccessible by the setup endpoint.
	MissingTables []string
}

// User is a user record as the admin API returns it.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Image       string    `json:"image,omitempty"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

// Handler holds the mock's state.
type Handler struct {
	opts Options

	mu    sync.Mutex
	users map[string]*User // by email
}

// New creates a new Handler.
func New(opts Options) *Handler {
	return &Handler{opts: opts, users: make(map[string]*User)}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/auth/providers", h.handleProviders)
	mux.HandleFunc("GET /api/auth/session", h.handleSession)
	mux.HandleFunc("GET /api/auth/csrf", h.handleCSRF)
	mux.HandleFunc("POST /api/auth/signin/google", h.handleSignin)
	mux.HandleFunc("GET /api/auth/callback/google", h.handleCallback)
	mux.HandleFunc("GET /api/auth/error", h.handleAuthError)
	mux.HandleFunc("POST /api/auth/check-user", h.handleCheckUser)
	mux.HandleFunc("GET /api/setup-database", h.handleSetupDatabase)

	mux.HandleFunc("GET /api/properties", h.requireSession(h.handleListProperties))
	mux.HandleFunc("POST /api/properties", h.requireSession(h.handleCreateProperty))
	mux.HandleFunc("GET /api/properties/{id}", h.requireSession(h.handleGetProperty))
	mux.HandleFunc("PUT /api/properties/{id}", h.requireSession(h.handleGetProperty))
	mux.HandleFunc("DELETE /api/properties/{id}", h.requireSession(h.handleDelete))

	mux.HandleFunc("GET /api/admin/users", h.requireMaster(h.handleListUsers))
	mux.HandleFunc("PUT /api/admin/users/{id}", h.requireMaster(h.handleUpdateUser))
	mux.HandleFunc("DELETE /api/admin/users/{id}", h.requireMaster(h.handleDelete))

	mux.HandleFunc("GET /rest/v1/{table}", h.handleRestTable)

	return logRequests(mux)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debugf("mock: %s %s", r.Method, r.URL.RequestURI())
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("mock: failed to encode response: %s", err)
	}
}

// authURL is the external base URL the mock is reached at.
func (h *Handler) authURL(r *http.Request) string {
	if h.opts.AuthURL != "" {
		return strings.TrimRight(h.opts.AuthURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (h *Handler) handleProviders(w http.ResponseWriter, r *http.Request) {
	base := h.authURL(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"google": map[string]string{
			"id":          "google",
			"name":        "Google",
			"type":        "oauth",
			"signinUrl":   base + "/api/auth/signin/google",
			"callbackUrl": base + "/api/auth/callback/google",
		},
	})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	u := h.bearerUser(r)
	if u == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":    u,
		"expires": time.Now().Add(30 * 24 * time.Hour).UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleCSRF(w http.ResponseWriter, r *http.Request) {
	token := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	writeJSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}

// handleSignin redirects to the provider's authorize endpoint the way an
// OAuth client library does.
func (h *Handler) handleSignin(w http.ResponseWriter, r *http.Request) {
	callback := h.opts.CallbackURL
	if callback == "" {
		callback = h.authURL(r) + "/api/auth/callback/google"
	}
	q := url.Values{}
	q.Set("client_id", h.opts.ClientID)
	q.Set("scope", "openid email profile")
	q.Set("response_type", "code")
	q.Set("redirect_uri", callback)
	q.Set("state", uuid.NewString())
	http.Redirect(w, r, "https://accounts.google.com/o/oauth2/v2/auth?"+q.Encode(), http.StatusFound)
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("code") == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, h.authURL(r)+"/", http.StatusFound)
}

func (h *Handler) handleAuthError(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte("<html><body><h1>Sign in failed</h1><p>" + html.EscapeString(r.URL.Query().Get("error")) + "</p></body></html>"))
}

func (h *Handler) handleSetupDatabase(w http.ResponseWriter, r *http.Request) {
	tables := map[string]bool{}
	for _, t := range []string{"users", "properties", "finances"} {
		tables[t] = !slices.Contains(h.opts.MissingTables, t)
	}
	status := "connected"
	if len(h.opts.MissingTables) > 0 {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables, "database_status": status})
}

// handleCheckUser creates the user record a first sign-in would create, or
// returns the existing one.
func (h *Handler) handleCheckUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.ensureUser(req.Email, req.Name, req.Image))
}

func (h *Handler) ensureUser(email, name, image string) *User {
	h.mu.Lock()
	defer h.mu.Unlock()
	if u, ok := h.users[email]; ok {
		return u.clone()
	}
	u := &User{
		ID:          uuid.NewString(),
		Email:       email,
		Name:        name,
		Image:       image,
		Role:        "viewer",
		Status:      "active",
		Permissions: []string{"dashboard_view", "properties_view"},
		CreatedAt:   time.Now().UTC(),
	}
	if h.isMaster(email) {
		u.Role = "master"
		u.Permissions = []string{"all_permissions"}
	}
	h.users[email] = u
	log.Infof("mock: created user email=%s role=%s", email, u.Role)
	return u.clone()
}

// clone returns a copy that is safe to use after h.mu is released.
func (u *User) clone() *User {
	c := *u
	c.Permissions = slices.Clone(u.Permissions)
	return &c
}

func (h *Handler) isMaster(email string) bool {
	return h.opts.MasterEmail != "" && strings.EqualFold(email, h.opts.MasterEmail)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	users := make([]*User, 0, len(h.users))
	for _, u := range h.users {
		users = append(users, u.clone())
	}
	h.mu.Unlock()
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })

	writeJSON(w, http.StatusOK, map[string]any{
		"users":       users,
		"total":       len(users),
		"data_source": "mock",
	})
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role   string `json:"role"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	h.mu.Lock()
	for _, u := range h.users {
		if u.ID != id {
			continue
		}
		if req.Role != "" {
			u.Role = req.Role
		}
		if req.Status != "" {
			u.Status = req.Status
		}
		updated := u.clone()
		h.mu.Unlock()
		writeJSON(w, http.StatusOK, updated)
		return
	}
	h.mu.Unlock()
	http.Error(w, "not found", http.StatusNotFound)
}

func (h *Handler) handleListProperties(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"properties": []any{}, "total": 0})
}

func (h *Handler) handleCreateProperty(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	body["id"] = uuid.NewString()
	writeJSON(w, http.StatusCreated, body)
}

func (h *Handler) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"id": r.PathValue("id"), "name": "Mock Property", "status": "available"})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// handleRestTable answers like the REST service in front of the database.
func (h *Handler) handleRestTable(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("apikey") == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "No API key found in request"})
		return
	}
	table := r.PathValue("table")
	if h.opts.SchemaCacheMiss {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"code":    "PGRST205",
			"details": nil,
			"hint":    nil,
			"message": "Could not find the table 'public." + table + "' in the schema cache",
		})
		return
	}
	if !slices.Contains([]string{"users", "properties", "finances"}, table) || slices.Contains(h.opts.MissingTables, table) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"code":    "42P01",
			"message": "relation \"public." + table + "\" does not exist",
		})
		return
	}
	writeJSON(w, http.StatusOK, []any{})
}
