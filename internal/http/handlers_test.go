package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voter-outreach/internal/domain"
	"voter-outreach/internal/ingest"
	"voter-outreach/internal/repository"
	"voter-outreach/internal/service"
	"voter-outreach/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type envelope struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type apiEnv struct {
	mem    *repository.MemoryStore
	router *Router
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	logger := zap.NewNop()
	mem := repository.NewMemoryStore()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	jobs := store.NewImportJobStore(store.NewRedisKV(client), "test:import-job:", time.Minute)
	imports := service.NewImportService(jobs, ingest.NewNormalizer("234"), ingest.NewLoader(mem, 100, logger), 5, logger)
	assignments := service.NewAssignmentService(mem, mem, mem, nil, logger)
	queue := service.NewCallQueueService(mem, mem, logger)
	calls := service.NewCallOutcomeService(mem, mem, mem, nil, logger)
	territories := service.NewTerritoryService(mem, mem, logger)

	router := NewRouter(logger)
	router.RegisterImportRoutes(NewImportHandler(imports, 1<<20, logger))
	router.RegisterAssignmentRoutes(NewAssignmentHandler(assignments, logger))
	router.RegisterCallerRoutes(NewCallerHandler(assignments, queue, calls, logger))
	router.RegisterTerritoryRoutes(NewTerritoryHandler(territories, logger))
	router.RegisterOpsRoutes(http.NotFoundHandler(), func(*http.Request) error { return nil })
	return &apiEnv{mem: mem, router: router}
}

func (e *apiEnv) do(t *testing.T, method, target, userID string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	if userID != "" {
		req.Header.Set(UserIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func rollUpload(t *testing.T, rows [][]any) (*bytes.Buffer, string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	var xlsx bytes.Buffer
	_, err := f.WriteTo(&xlsx)
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "roll.xlsx")
	require.NoError(t, err)
	_, err = part.Write(xlsx.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

var testRoll = [][]any{
	{"State", "LGA", "Ward", "Polling Unit", "Phone"},
	{"Lagos", "Ikeja", "WardA", "PU1", "08012345678"},
	{"Lagos", "Ikeja", "WardA", "PU1", "08012345679"},
	{"Lagos", "Ikeja", "WardB", "PU2", "08012345670"},
}

var testMapping = map[string]any{
	"state":       "State",
	"lga":         "LGA",
	"ward":        "Ward",
	"pollingUnit": "Polling Unit",
	"phoneNumber": 4,
}

func (e *apiEnv) importRoll(t *testing.T) {
	t.Helper()
	body, ct := rollUpload(t, testRoll)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/preview", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set(UserIDHeader, "admin-1")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var preview struct {
		JobID     string `json:"job_id"`
		TotalRows int    `json:"total_rows"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &preview))
	require.NotEmpty(t, preview.JobID)

	rec, env = e.do(t, http.MethodPost, "/api/v1/imports/"+preview.JobID+"/commit", "admin-1", map[string]any{"mapping": testMapping})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res domain.ImportResult
	require.NoError(t, json.Unmarshal(env.Result, &res))
	require.Equal(t, 3, res.Inserted)
}

var pu1 = domain.Territory{State: "Lagos", LGA: "Ikeja", Ward: "WardA", PollingUnit: "PU1"}

func TestRouter_MissingUserIDIs401(t *testing.T) {
	e := newAPIEnv(t)
	for _, target := range []string{"/api/v1/me/assignment", "/api/v1/me/voters", "/api/v1/territories", "/api/v1/volunteers"} {
		rec, env := e.do(t, http.MethodGet, target, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
		assert.Equal(t, ResultError, env.Code)
		assert.Equal(t, "error", env.Type)
	}
}

func TestRouter_Healthz(t *testing.T) {
	e := newAPIEnv(t)
	rec, env := e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ResultSuccess, env.Code)
}

func TestImportHandler_PreviewAndCommit(t *testing.T) {
	e := newAPIEnv(t)
	e.importRoll(t)

	n, err := e.mem.CountVotersInTerritory(context.Background(), pu1.Key())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestImportHandler_CommitErrors(t *testing.T) {
	e := newAPIEnv(t)

	rec, _ := e.do(t, http.MethodPost, "/api/v1/imports/not-a-job/commit", "admin-1", map[string]any{"mapping": testMapping})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body, ct := rollUpload(t, testRoll)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/preview", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set(UserIDHeader, "admin-1")
	prev := httptest.NewRecorder()
	e.router.ServeHTTP(prev, req)
	require.Equal(t, http.StatusOK, prev.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(prev.Body.Bytes(), &env))
	var preview struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &preview))

	rec, env = e.do(t, http.MethodPost, "/api/v1/imports/"+preview.JobID+"/commit", "admin-1",
		map[string]any{"mapping": map[string]any{"state": "State"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var details struct {
		MissingFields []string `json:"missing_fields"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &details))
	assert.ElementsMatch(t, []string{"lga", "ward", "pollingUnit", "phoneNumber"}, details.MissingFields)

	rec, _ = e.do(t, http.MethodDelete, "/api/v1/imports/"+preview.JobID, "admin-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestImportHandler_UploadTooLarge(t *testing.T) {
	logger := zap.NewNop()
	h := NewImportHandler(nil, 16, logger)
	body, ct := rollUpload(t, testRoll)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/preview", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set(UserIDHeader, "admin-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestImportHandler_Template(t *testing.T) {
	e := newAPIEnv(t)
	rec, _ := e.do(t, http.MethodGet, "/api/v1/imports/template", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "voter_roll_template.xlsx")
}

func TestAssignmentHandler_AssignRevokeList(t *testing.T) {
	e := newAPIEnv(t)
	e.importRoll(t)

	body := map[string]any{"user_id": "u1", "state": " lagos ", "lga": "IKEJA", "ward": "warda", "polling_unit": "pu1"}
	rec, env := e.do(t, http.MethodPost, "/api/v1/assignments", "admin-1", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp service.AssignResponse
	require.NoError(t, json.Unmarshal(env.Result, &resp))
	assert.Equal(t, pu1.Key(), resp.Assignment.TerritoryKey)
	assert.Equal(t, 2, resp.VoterCount)

	rec, env = e.do(t, http.MethodGet, "/api/v1/volunteers", "admin-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list service.ListVolunteersResponse
	require.NoError(t, json.Unmarshal(env.Result, &list))
	assert.Equal(t, 1, list.Total)

	rec, env = e.do(t, http.MethodDelete, "/api/v1/assignments/u1", "admin-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Result), `"revoked":true`)

	rec, env = e.do(t, http.MethodDelete, "/api/v1/assignments/u1", "admin-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Result), `"revoked":false`)
}

func TestAssignmentHandler_Rejections(t *testing.T) {
	e := newAPIEnv(t)
	e.importRoll(t)

	rec, _ := e.do(t, http.MethodPost, "/api/v1/assignments", "admin-1",
		map[string]any{"user_id": "u1", "state": "Lagos", "lga": "Ikeja", "ward": "WardZ", "polling_unit": "PU404"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = e.do(t, http.MethodPost, "/api/v1/assignments", "admin-1",
		map[string]any{"state": "Lagos", "lga": "Ikeja", "ward": "WardA", "polling_unit": "PU1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments", strings.NewReader("{not json"))
	req.Header.Set(UserIDHeader, "admin-1")
	raw := httptest.NewRecorder()
	e.router.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestCallerHandler_QueueAndRecordCall(t *testing.T) {
	e := newAPIEnv(t)
	e.importRoll(t)

	rec, env := e.do(t, http.MethodGet, "/api/v1/me/voters", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page service.VoterPage
	require.NoError(t, json.Unmarshal(env.Result, &page))
	assert.Zero(t, page.Total)

	rec, _ = e.do(t, http.MethodPost, "/api/v1/assignments", "admin-1",
		map[string]any{"user_id": "u1", "state": "Lagos", "lga": "Ikeja", "ward": "WardA", "polling_unit": "PU1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = e.do(t, http.MethodGet, "/api/v1/me/assignment", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Result), pu1.Key())

	rec, env = e.do(t, http.MethodGet, "/api/v1/me/voters?filter=notCalled&page_size=1", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Result, &page))
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	voterID := page.Items[0].VoterID

	rec, _ = e.do(t, http.MethodGet, "/api/v1/me/voters?filter=bogus", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = e.do(t, http.MethodPost, "/api/v1/me/voters/"+voterID+"/calls", "u1",
		map[string]any{"confirmed_to_vote": true, "notes": "will vote"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var recorded service.RecordCallResponse
	require.NoError(t, json.Unmarshal(env.Result, &recorded))
	assert.True(t, recorded.Voter.CalledRecently)
	assert.Equal(t, domain.CallOutcomeConfirmed, recorded.CallLog.CallOutcome)

	rec, env = e.do(t, http.MethodGet, "/api/v1/me/voters/"+voterID+"/calls", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []*domain.CallLog
	require.NoError(t, json.Unmarshal(env.Result, &logs))
	assert.Len(t, logs, 1)

	rec, _ = e.do(t, http.MethodPost, "/api/v1/me/voters/"+voterID+"/calls", "u2", map[string]any{})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = e.do(t, http.MethodPost, "/api/v1/me/voters/"+voterID+"/calls", "u1", map[string]any{"call_outcome": "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = e.do(t, http.MethodPost, "/api/v1/me/voters/"+voterID+"/calls", "u1",
		map[string]any{"confirmed_to_vote": true, "call_outcome": "declined"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = e.do(t, http.MethodGet, "/api/v1/me/voters?page=461168601842738792", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Result, &page))
	assert.Empty(t, page.Items)
}

func TestCallerHandler_VoterOutsideTerritory(t *testing.T) {
	e := newAPIEnv(t)
	e.importRoll(t)

	rec, _ := e.do(t, http.MethodPost, "/api/v1/assignments", "admin-1",
		map[string]any{"user_id": "u1", "state": "Lagos", "lga": "Ikeja", "ward": "WardB", "polling_unit": "PU2"})
	require.Equal(t, http.StatusOK, rec.Code)

	voters, _, err := e.mem.ListVotersByTerritory(context.Background(), pu1.Key(), domain.VoterFilterAll, 1, 10)
	require.NoError(t, err)
	require.NotEmpty(t, voters)

	rec, _ = e.do(t, http.MethodPost, "/api/v1/me/voters/"+voters[0].VoterID+"/calls", "u1", map[string]any{})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = e.do(t, http.MethodPost, "/api/v1/me/voters/00000000-0000-0000-0000-000000000000/calls", "u1", map[string]any{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTerritoryHandler_DrillDownAndExport(t *testing.T) {
	e := newAPIEnv(t)
	e.importRoll(t)

	rec, env := e.do(t, http.MethodGet, "/api/v1/territories?unassigned=true", "admin-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page service.TerritoryPage
	require.NoError(t, json.Unmarshal(env.Result, &page))
	assert.Equal(t, 2, page.Total)

	rec, env = e.do(t, http.MethodGet, "/api/v1/territories/states", "admin-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var states []domain.AreaCount
	require.NoError(t, json.Unmarshal(env.Result, &states))
	require.Len(t, states, 1)
	assert.Equal(t, "Lagos", states[0].Name)

	rec, _ = e.do(t, http.MethodGet, "/api/v1/territories/lgas", "admin-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = e.do(t, http.MethodGet, "/api/v1/territories/wards?state=Lagos&lga=Ikeja", "admin-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = e.do(t, http.MethodGet, "/api/v1/territories/export?state=Lagos&lga=Ikeja&ward=WardA&polling_unit=PU1", "admin-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "call_sheet_PU1.xlsx")

	rec, _ = e.do(t, http.MethodPost, "/api/v1/territories", "admin-1", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		domain.ErrInvalidFilter:                         http.StatusBadRequest,
		domain.ErrEmptyTerritory:                        http.StatusBadRequest,
		domain.ErrImportJobNotFound:                     http.StatusNotFound,
		domain.ErrNoActiveAssignment:                    http.StatusForbidden,
		domain.ErrAssignmentConflict:                    http.StatusConflict,
		&http.MaxBytesError{Limit: 1}:                   http.StatusRequestEntityTooLarge,
		errors.New("connection refused"):                http.StatusInternalServerError,
		invalidArgument("user_id is required"):          http.StatusBadRequest,
		&domain.MissingMappingError{Fields: []string{}}: http.StatusBadRequest,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}
