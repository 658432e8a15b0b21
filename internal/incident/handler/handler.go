package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"breachledger/internal/incident/models"
	"breachledger/internal/incident/service"
	"breachledger/internal/incident/verification"
	id "breachledger/pkg/domain"
	dErrors "breachledger/pkg/domain-errors"
	"breachledger/pkg/platform/httputil"
	"breachledger/pkg/requestcontext"
)

// Service is the incident registry as seen by the HTTP layer.
type Service interface {
	CreateIncident(ctx context.Context, orgID id.OrganizationID, userID id.UserID, fields models.Snapshot) (*service.Result, error)
	UpdateIncident(ctx context.Context, orgID id.OrganizationID, userID id.UserID, incidentID id.IncidentID, fields models.Snapshot) (*service.Result, error)
	GetIncidentWithHistory(ctx context.Context, incidentID id.IncidentID) (*service.History, error)
	GetOrganizationIncidents(ctx context.Context, orgID id.OrganizationID) ([]*models.Incident, error)
	DeleteIncident(ctx context.Context, incidentID id.IncidentID, orgID id.OrganizationID) error
}

// Verifier answers public token lookups.
type Verifier interface {
	Verify(ctx context.Context, token string) (*verification.Proof, error)
}

// Handler serves the incident and verification endpoints.
type Handler struct {
	incidents Service
	verifier  Verifier
	logger    *slog.Logger
}

func New(incidents Service, verifier Verifier, logger *slog.Logger) *Handler {
	return &Handler{
		incidents: incidents,
		verifier:  verifier,
		logger:    logger,
	}
}

// Register mounts the routes. Incident routes run behind requireAuth; the
// verification route is public and runs only the optional public middleware.
func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler, public ...func(http.Handler) http.Handler) {
	r.With(public...).Get("/verify/{token}", h.handleVerify)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/incidents", h.handleCreate)
		r.Get("/incidents", h.handleList)
		r.Get("/incidents/{id}", h.handleGet)
		r.Put("/incidents/{id}", h.handleUpdate)
		r.Delete("/incidents/{id}", h.handleDelete)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IncidentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	orgID, err := h.resolveOrganization(ctx, req.OrganizationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.incidents.CreateIncident(ctx, orgID, requestcontext.UserID(ctx), req.Snapshot)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to create incident", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toWriteResponse(res))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	incidentID, err := id.ParseIncidentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[IncidentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	orgID, err := h.resolveOrganization(ctx, req.OrganizationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.incidents.UpdateIncident(ctx, orgID, requestcontext.UserID(ctx), incidentID, req.Snapshot)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to update incident", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toWriteResponse(res))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	incidentID, err := id.ParseIncidentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	caller := requestcontext.OrganizationID(ctx)

	history, err := h.incidents.GetIncidentWithHistory(ctx, incidentID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load incident", err)
		return
	}
	// The read is tenant-agnostic; ownership is enforced here.
	if history == nil || history.Incident.OrganizationID != caller {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "incident not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toHistoryResponse(history))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orgID, err := h.resolveOrganization(ctx, r.URL.Query().Get("organizationId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.incidents.GetOrganizationIncidents(ctx, orgID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list incidents", err)
		return
	}
	resp := ListResponse{Incidents: make([]IncidentResponse, 0, len(list))}
	for _, inc := range list {
		resp.Incidents = append(resp.Incidents, toIncidentResponse(inc))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	incidentID, err := id.ParseIncidentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	orgID, err := h.resolveOrganization(ctx, r.URL.Query().Get("organizationId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.incidents.DeleteIncident(ctx, incidentID, orgID); err != nil {
		h.writeServiceError(ctx, w, "failed to delete incident", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DeleteResponse{Success: true})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	proof, err := h.verifier.Verify(ctx, chi.URLParam(r, "token"))
	if err != nil {
		h.writeServiceError(ctx, w, "verification lookup failed", err)
		return
	}
	if proof == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "token not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, proof)
}

// resolveOrganization defaults to the caller's organization and rejects any
// other one.
func (h *Handler) resolveOrganization(ctx context.Context, requested string) (id.OrganizationID, error) {
	caller := requestcontext.OrganizationID(ctx)
	if caller.IsNil() {
		return id.OrganizationID{}, dErrors.New(dErrors.CodeUnauthorized, "organization claim missing")
	}
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return caller, nil
	}
	orgID, err := id.ParseOrganizationID(requested)
	if err != nil {
		return id.OrganizationID{}, err
	}
	if orgID != caller {
		h.logger.WarnContext(ctx, "organization mismatch",
			"request_id", requestcontext.RequestID(ctx),
			"organization_id", caller,
			"requested_organization_id", orgID,
		)
		return id.OrganizationID{}, dErrors.New(dErrors.CodeForbidden, "organization does not match credentials")
	}
	return orgID, nil
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeUnavailable, dErrors.CodeTimeout:
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	default:
		h.logger.WarnContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
