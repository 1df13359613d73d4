// Package api provides the HTTP handlers of the grouping API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"duck-grouper/internal/domain"
	"duck-grouper/internal/middleware"
	"duck-grouper/internal/service/records"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// GroupService is what the handlers need from the records service.
type GroupService interface {
	Plan(ctx context.Context, req records.Request) (*records.Result, error)
	Group(ctx context.Context, req records.Request) (*records.Result, error)
	GroupBatch(ctx context.Context, reqs []records.Request) ([]*records.Result, error)
}

// BatchRequest is the body of POST /v1/group/batch.
type BatchRequest struct {
	Requests []records.Request `json:"requests"`
}

// BatchResponse is the response of POST /v1/group/batch.
type BatchResponse struct {
	RequestID string            `json:"request_id"`
	Results   []*records.Result `json:"results"`
}

// Handler serves the grouping endpoints.
type Handler struct {
	svc    GroupService
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc GroupService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/plan", h.plan)
		r.Post("/group", h.group)
		r.Post("/group/batch", h.groupBatch)
	})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) plan(w http.ResponseWriter, r *http.Request) {
	var req records.Request
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Plan(serviceContext(r), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) group(w http.ResponseWriter, r *http.Request) {
	var req records.Request
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Group(serviceContext(r), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) groupBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	results, err := h.svc.GroupBatch(serviceContext(r), req.Requests)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BatchResponse{
		RequestID: middleware.RequestIDFromContext(r.Context()),
		Results:   results,
	})
}

// serviceContext hands the HTTP request id to the service.
func serviceContext(r *http.Request) context.Context {
	ctx := r.Context()
	if id := middleware.RequestIDFromContext(ctx); id != "" {
		return records.WithRequestID(ctx, id)
	}
	return ctx
}

// decode reads a JSON body into dst, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var invalidMode *domain.InvalidGroupModeError
		if !errors.As(err, &invalidMode) {
			err = domain.ErrValidation("invalid request body: %v", err)
		}
		h.fail(w, r, err)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := httpStatusFromDomainError(err)
	requestID := middleware.RequestIDFromContext(r.Context())
	message := err.Error()
	if code == http.StatusInternalServerError {
		h.logger.Error("request failed", "request_id", requestID, "path", r.URL.Path, "error", err)
		message = "internal error"
	}
	writeJSON(w, code, errorResponse{Code: code, Message: message, RequestID: requestID})
}
