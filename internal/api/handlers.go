package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/couchcryptid/profile-api/internal/diagnostics"
	"github.com/couchcryptid/profile-api/internal/model"
	"github.com/go-chi/chi/v5"
)

// ProfileFinder looks up a profile by username.
type ProfileFinder interface {
	FindByUsername(ctx context.Context, username string) model.LookupResult
}

// DiagnosticsRunner runs the connectivity diagnostics.
type DiagnosticsRunner interface {
	Run(ctx context.Context) diagnostics.Report
}

// Handler serves the profile and diagnostic endpoints.
type Handler struct {
	profiles        ProfileFinder
	diag            DiagnosticsRunner
	defaultUsername string
	logger          *slog.Logger
}

// NewHandler wires the handlers. defaultUsername is used when the request
// names no user.
func NewHandler(p ProfileFinder, d DiagnosticsRunner, defaultUsername string, logger *slog.Logger) *Handler {
	return &Handler{profiles: p, diag: d, defaultUsername: defaultUsername, logger: logger}
}

type statusResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type diagResponse struct {
	OK     bool   `json:"ok"`
	Stage  string `json:"stage,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Health always answers 200 and never touches the store.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// Profile serves GET /profile/{username} and GET /profile?username=.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		username = r.URL.Query().Get("username")
	}
	if username == "" {
		username = h.defaultUsername
	}

	res := h.profiles.FindByUsername(r.Context(), username)
	switch res.Status {
	case model.LookupFound:
		writeJSON(w, http.StatusOK, res.Profile)
	case model.LookupNotFound:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "user_not_found"})
	case model.LookupUnconfigured:
		writeJSON(w, http.StatusInternalServerError, statusResponse{Status: "config_error", Detail: detail(res.Err)})
	default:
		h.logger.Error("profile lookup", "username", username, "error", res.Err)
		writeJSON(w, http.StatusInternalServerError, statusResponse{Status: "db_error", Detail: detail(res.Err)})
	}
}

// Diag serves GET /diag: a pass/fail summary naming the failed stage.
func (h *Handler) Diag(w http.ResponseWriter, r *http.Request) {
	report := h.diag.Run(r.Context())
	if report.OK() {
		writeJSON(w, http.StatusOK, diagResponse{OK: true})
		return
	}
	resp := diagResponse{}
	if failed, ok := report.Failed(); ok {
		resp.Stage = string(failed.Stage)
		resp.Detail = failed.Detail
	}
	writeJSON(w, http.StatusInternalServerError, resp)
}

// DiagDB serves GET /diag-db: every field gathered, including partial
// results when a stage failed.
func (h *Handler) DiagDB(w http.ResponseWriter, r *http.Request) {
	report := h.diag.Run(r.Context())
	status := http.StatusOK
	if !report.OK() {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, report.Fields())
}

func detail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
