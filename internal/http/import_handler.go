package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"voter-outreach/internal/ingest"
	"voter-outreach/internal/service"

	"go.uber.org/zap"
)

// ImportHandler voter roll upload, preview and commit
type ImportHandler struct {
	importService *service.ImportService
	maxUpload     int64
	logger        *zap.Logger
}

// NewImportHandler maxUpload bytes accepted per upload.
func NewImportHandler(importService *service.ImportService, maxUpload int64, logger *zap.Logger) *ImportHandler {
	if maxUpload <= 0 {
		maxUpload = 50 << 20
	}
	return &ImportHandler{importService: importService, maxUpload: maxUpload, logger: logger}
}

const importsPrefix = "/api/v1/imports/"

func (h *ImportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == importsPrefix+"preview" && r.Method == http.MethodPost:
		h.Preview(w, r)
	case r.URL.Path == importsPrefix+"template" && r.Method == http.MethodGet:
		h.Template(w, r)
	case strings.HasSuffix(r.URL.Path, "/commit") && r.Method == http.MethodPost:
		h.Commit(w, r, pathParam(strings.TrimSuffix(r.URL.Path, "/commit"), importsPrefix))
	case r.Method == http.MethodDelete:
		h.Discard(w, r, pathParam(r.URL.Path, importsPrefix))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Preview multipart upload, form field "file".
func (h *ImportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, h.logger, "Preview", badUpload(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("file is required"))
		return
	}
	defer file.Close()

	resp, err := h.importService.CreatePreview(r.Context(), header.Filename, file, userID)
	if err != nil {
		writeError(w, h.logger, "Preview", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// Commit body: {"mapping": {"state": "State", "phoneNumber": 5, ...}}
func (h *ImportHandler) Commit(w http.ResponseWriter, r *http.Request, jobID string) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}
	if jobID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var payload struct {
		Mapping ingest.ColumnMapping `json:"mapping"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	res, err := h.importService.CommitImport(r.Context(), jobID, payload.Mapping, userID)
	if err != nil {
		writeError(w, h.logger, "Commit", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

func (h *ImportHandler) Discard(w http.ResponseWriter, r *http.Request, jobID string) {
	if _, ok := userIDFromReq(w, r); !ok {
		return
	}
	if jobID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err := h.importService.DiscardJob(r.Context(), jobID); err != nil {
		writeError(w, h.logger, "Discard", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"job_id": jobID}))
}

func (h *ImportHandler) Template(w http.ResponseWriter, r *http.Request) {
	b, err := h.importService.Template()
	if err != nil {
		writeError(w, h.logger, "Template", err)
		return
	}
	writeXLSX(w, "voter_roll_template.xlsx", b)
}

func badUpload(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return tooLarge
	}
	return invalidArgument("invalid multipart upload: " + err.Error())
}
