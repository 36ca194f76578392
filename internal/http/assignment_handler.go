package httpapi

import (
	"net/http"
	"strings"

	"voter-outreach/internal/domain"
	"voter-outreach/internal/service"

	"go.uber.org/zap"
)

// AssignmentHandler admin side of caller/territory assignments
type AssignmentHandler struct {
	assignmentService *service.AssignmentService
	logger            *zap.Logger
}

func NewAssignmentHandler(assignmentService *service.AssignmentService, logger *zap.Logger) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService, logger: logger}
}

func (h *AssignmentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/assignments" && r.Method == http.MethodPost:
		h.Assign(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/assignments/") && r.Method == http.MethodDelete:
		h.Revoke(w, r, pathParam(r.URL.Path, "/api/v1/assignments/"))
	case r.URL.Path == "/api/v1/volunteers" && r.Method == http.MethodGet:
		h.ListVolunteers(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Assign body: {user_id, state, lga, ward, polling_unit, polling_unit_code?}
func (h *AssignmentHandler) Assign(w http.ResponseWriter, r *http.Request) {
	adminID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}

	var payload struct {
		UserID string `json:"user_id"`
		domain.Territory
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	resp, err := h.assignmentService.Assign(r.Context(), service.AssignRequest{
		UserID:     payload.UserID,
		Territory:  payload.Territory,
		AssignedBy: adminID,
	})
	if err != nil {
		writeError(w, h.logger, "Assign", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *AssignmentHandler) Revoke(w http.ResponseWriter, r *http.Request, userID string) {
	adminID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}
	if userID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	a, err := h.assignmentService.Revoke(r.Context(), userID, adminID)
	if err != nil {
		writeError(w, h.logger, "Revoke", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"user_id":    userID,
		"revoked":    a != nil,
		"assignment": a,
	}))
}

// ListVolunteers query: include_inactive, user_ids (comma separated), state, lga, page, page_size
func (h *AssignmentHandler) ListVolunteers(w http.ResponseWriter, r *http.Request) {
	if _, ok := userIDFromReq(w, r); !ok {
		return
	}
	q := r.URL.Query()
	resp, err := h.assignmentService.ListVolunteers(r.Context(), service.ListVolunteersRequest{
		IncludeInactive: parseBool(q.Get("include_inactive")),
		UserIDs:         splitCSV(q.Get("user_ids")),
		State:           q.Get("state"),
		LGA:             q.Get("lga"),
		Page:            parseInt(q.Get("page"), 1),
		Size:            parseInt(q.Get("page_size"), 20),
	})
	if err != nil {
		writeError(w, h.logger, "ListVolunteers", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}
