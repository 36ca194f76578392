package httpapi

import (
	"net/http"
	"strings"

	"voter-outreach/internal/domain"
	"voter-outreach/internal/service"

	"go.uber.org/zap"
)

// TerritoryHandler territory browsing and call sheet export
type TerritoryHandler struct {
	territoryService *service.TerritoryService
	logger           *zap.Logger
}

func NewTerritoryHandler(territoryService *service.TerritoryService, logger *zap.Logger) *TerritoryHandler {
	return &TerritoryHandler{territoryService: territoryService, logger: logger}
}

func (h *TerritoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := userIDFromReq(w, r); !ok {
		return
	}
	q := r.URL.Query()
	ctx := r.Context()

	var (
		result any
		err    error
	)
	switch r.URL.Path {
	case "/api/v1/territories":
		result, err = h.territoryService.ListAvailableTerritories(ctx, service.ListTerritoriesRequest{
			State:          q.Get("state"),
			LGA:            q.Get("lga"),
			Ward:           q.Get("ward"),
			UnassignedOnly: parseBool(q.Get("unassigned")),
			Page:           parseInt(q.Get("page"), 1),
			Size:           parseInt(q.Get("page_size"), 20),
		})
	case "/api/v1/territories/states":
		result, err = h.territoryService.ListStates(ctx)
	case "/api/v1/territories/lgas":
		result, err = h.territoryService.ListLGAs(ctx, q.Get("state"))
	case "/api/v1/territories/wards":
		result, err = h.territoryService.ListWards(ctx, q.Get("state"), q.Get("lga"))
	case "/api/v1/territories/polling-units":
		result, err = h.territoryService.ListPollingUnits(ctx, q.Get("state"), q.Get("lga"), q.Get("ward"))
	case "/api/v1/territories/export":
		h.Export(w, r)
		return
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, h.logger, "Territories", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

// Export query: state, lga, ward, polling_unit
func (h *TerritoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	t := domain.Territory{
		State:       q.Get("state"),
		LGA:         q.Get("lga"),
		Ward:        q.Get("ward"),
		PollingUnit: q.Get("polling_unit"),
	}.Clean()
	b, err := h.territoryService.ExportCallSheet(r.Context(), t)
	if err != nil {
		writeError(w, h.logger, "Export", err)
		return
	}
	name := strings.NewReplacer(" ", "_", "/", "-").Replace(t.PollingUnit)
	writeXLSX(w, "call_sheet_"+name+".xlsx", b)
}
