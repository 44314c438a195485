package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/application"
	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// SyncService is the subset of application.SyncService the handler needs.
type SyncService interface {
	StartSync(ctx context.Context, req application.SyncRequest) (*application.SyncResult, error)
	GetJob(ctx context.Context, id string) (*model.SyncJob, error)
	ListJobs(ctx context.Context, repoID int64) ([]model.SyncJob, error)
}

// AnalyticsService is the subset of application.AnalyticsService the handler needs.
type AnalyticsService interface {
	GetAnalytics(ctx context.Context, repoID int64) (*model.Analytics, error)
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	syncSvc      SyncService
	analyticsSvc AnalyticsService
	repoStore    driven.RepoStore
	logger       *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	syncSvc SyncService,
	analyticsSvc AnalyticsService,
	repoStore driven.RepoStore,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		syncSvc:      syncSvc,
		analyticsSvc: analyticsSvc,
		repoStore:    repoStore,
		logger:       logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/sync", h.StartSync)
	mux.HandleFunc("GET /api/v1/sync/jobs/{id}", h.GetSyncJob)
	mux.HandleFunc("GET /api/v1/repos", h.ListRepos)
	mux.HandleFunc("GET /api/v1/repos/{id}/sync/jobs", h.ListSyncJobs)
	mux.HandleFunc("GET /api/v1/analytics", h.GetAnalytics)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

// StartSync resolves the repository and starts a background sync. The token
// comes from the body or, failing that, an Authorization: Bearer header.
func (h *Handler) StartSync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token := req.Token
	if token == "" {
		token = bearerToken(r)
	}

	result, err := h.syncSvc.StartSync(r.Context(), application.SyncRequest{
		Credential: token,
		Owner:      req.Owner,
		Name:       req.Repo,
	})
	if err != nil {
		h.writeSyncError(w, req, err)
		return
	}

	writeJSON(w, http.StatusAccepted, SyncStartedResponse{
		Message:      "Sync started",
		RepositoryID: result.RepositoryID,
		JobID:        result.JobID,
	})
}

func (h *Handler) writeSyncError(w http.ResponseWriter, req SyncRequest, err error) {
	var rlErr *driven.RateLimitError

	switch {
	case errors.Is(err, application.ErrInvalidSyncRequest):
		writeError(w, http.StatusBadRequest, "token, owner and repo are required")
	case errors.Is(err, driven.ErrNotFound):
		writeError(w, http.StatusNotFound, "repository not found upstream")
	case errors.Is(err, driven.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "GitHub rejected the token")
	case errors.As(err, &rlErr):
		if !rlErr.ResetAt.IsZero() {
			secs := int(time.Until(rlErr.ResetAt).Round(time.Second).Seconds())
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
		}
		writeError(w, http.StatusTooManyRequests, "GitHub rate limit exceeded")
	default:
		h.logger.Error("failed to start sync", "owner", req.Owner, "repo", req.Repo, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// GetSyncJob returns a single ledger entry.
func (h *Handler) GetSyncJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	job, err := h.syncSvc.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, driven.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "sync job not found")
			return
		}
		h.logger.Error("failed to get sync job", "job_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toSyncJobResponse(*job))
}

// ListSyncJobs returns the ledger history of a repository, newest first.
func (h *Handler) ListSyncJobs(w http.ResponseWriter, r *http.Request) {
	repoID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid repository id")
		return
	}

	jobs, err := h.syncSvc.ListJobs(r.Context(), repoID)
	if err != nil {
		if errors.Is(err, driven.ErrRepoNotFound) {
			writeError(w, http.StatusNotFound, "repository not found")
			return
		}
		h.logger.Error("failed to list sync jobs", "repository_id", repoID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]SyncJobResponse, 0, len(jobs))
	for _, job := range jobs {
		resp = append(resp, toSyncJobResponse(job))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListRepos returns all replicated repositories.
func (h *Handler) ListRepos(w http.ResponseWriter, r *http.Request) {
	repos, err := h.repoStore.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list repos", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]RepoResponse, 0, len(repos))
	for _, repo := range repos {
		resp = append(resp, toRepoResponse(repo))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetAnalytics returns the computed statistics for ?repositoryId=N.
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("repositoryId")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "repositoryId is required")
		return
	}

	repoID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid repositoryId")
		return
	}

	analytics, err := h.analyticsSvc.GetAnalytics(r.Context(), repoID)
	if err != nil {
		if errors.Is(err, driven.ErrRepoNotFound) {
			writeError(w, http.StatusNotFound, "repository not found")
			return
		}
		h.logger.Error("failed to compute analytics", "repository_id", repoID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toAnalyticsResponse(*analytics))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
