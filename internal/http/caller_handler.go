package httpapi

import (
	"net/http"
	"strings"

	"voter-outreach/internal/domain"
	"voter-outreach/internal/service"

	"go.uber.org/zap"
)

// CallerHandler the caller's own assignment, queue and call recording
type CallerHandler struct {
	assignmentService *service.AssignmentService
	queueService      *service.CallQueueService
	outcomeService    *service.CallOutcomeService
	logger            *zap.Logger
}

func NewCallerHandler(
	assignmentService *service.AssignmentService,
	queueService *service.CallQueueService,
	outcomeService *service.CallOutcomeService,
	logger *zap.Logger,
) *CallerHandler {
	return &CallerHandler{
		assignmentService: assignmentService,
		queueService:      queueService,
		outcomeService:    outcomeService,
		logger:            logger,
	}
}

const votersPrefix = "/api/v1/me/voters/"

func (h *CallerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/me/assignment" && r.Method == http.MethodGet:
		h.GetMyAssignment(w, r)
	case r.URL.Path == "/api/v1/me/voters" && r.Method == http.MethodGet:
		h.ListMyVoters(w, r)
	case strings.HasPrefix(r.URL.Path, votersPrefix) && strings.HasSuffix(r.URL.Path, "/calls"):
		voterID := pathParam(strings.TrimSuffix(r.URL.Path, "/calls"), votersPrefix)
		switch r.Method {
		case http.MethodPost:
			h.RecordCall(w, r, voterID)
		case http.MethodGet:
			h.CallHistory(w, r, voterID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *CallerHandler) GetMyAssignment(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}
	mine, err := h.assignmentService.GetMyAssignment(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, "GetMyAssignment", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(mine))
}

// ListMyVoters query: filter, page, page_size
func (h *CallerHandler) ListMyVoters(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page, err := h.queueService.ListMyVoters(r.Context(), service.ListMyVotersRequest{
		UserID:   userID,
		Filter:   q.Get("filter"),
		Page:     parseInt(q.Get("page"), 1),
		PageSize: parseInt(q.Get("page_size"), 20),
	})
	if err != nil {
		writeError(w, h.logger, "ListMyVoters", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(page))
}

// RecordCall body: any subset of domain.VoterUpdate fields.
func (h *CallerHandler) RecordCall(w http.ResponseWriter, r *http.Request, voterID string) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}
	if voterID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var upd domain.VoterUpdate
	if err := readBodyJSON(r, 1<<20, &upd); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	resp, err := h.outcomeService.RecordCall(r.Context(), voterID, userID, upd)
	if err != nil {
		writeError(w, h.logger, "RecordCall", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *CallerHandler) CallHistory(w http.ResponseWriter, r *http.Request, voterID string) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}
	if voterID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	logs, err := h.outcomeService.CallHistory(r.Context(), voterID, userID, parseInt(r.URL.Query().Get("limit"), 50))
	if err != nil {
		writeError(w, h.logger, "CallHistory", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(logs))
}
