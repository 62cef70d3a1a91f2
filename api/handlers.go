/*
handlers.go - HTTP API handlers for the capacity engine

PURPOSE:
  Exposes team capacity, budget execution and carryover via REST. Each
  request loads a fresh snapshot from the store and runs the engine over it;
  nothing is cached between requests.

ENDPOINTS:
  Capacity:
    GET  /api/clients/{client}/team-capacity?start=&end=
    GET  /api/clients/{client}/people/{id}/capacity?start=&end=
    GET  /api/clients/{client}/holidays?country=&year=

  Budget:
    GET  /api/clients/{client}/budget-execution?year=
    GET  /api/clients/{client}/budget/adjustments?toYear=&role=&fromYear=&type=
    POST /api/clients/{client}/budget/carryover

  Scenarios:
    GET  /api/scenarios              List demo scenarios
    POST /api/scenarios/load         Seed a tenant with a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed dates, inverted ranges, bad carryover batches
  - 404: Unknown person
  - 500: Store failures

SECURITY NOTE:
  Authentication happens upstream. The viewer's role arrives in the
  X-Viewer-Role header and only decides whether unmapped hours are shown.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/warp/capacity-engine/budget"
	"github.com/warp/capacity-engine/config"
	"github.com/warp/capacity-engine/generic"
	"github.com/warp/capacity-engine/report"
	"github.com/warp/capacity-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Loader *generic.Loader
	Config *config.Config

	// Now returns "today"; tests pin it.
	Now func() generic.TimePoint
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, cfg *config.Config) *Handler {
	loader := generic.NewLoader(store, cfg.Storage.PageSize)
	loader.Periods = cfg.Periods()
	return &Handler{
		Store:  store,
		Loader: loader,
		Config: cfg,
		Now:    generic.Today,
	}
}

// =============================================================================
// CAPACITY HANDLERS
// =============================================================================

// TeamCapacity returns the team report for a date range.
// GET /api/clients/{client}/team-capacity?start=&end=
func (h *Handler) TeamCapacity(w http.ResponseWriter, r *http.Request) {
	client := clientParam(r)
	period, err := h.periodParam(r)
	if err != nil {
		writeFailure(w, "Invalid date range", err)
		return
	}

	snap, err := h.Loader.LoadCapacity(r.Context(), client, period)
	if err != nil {
		writeFailure(w, "Failed to load capacity data", err)
		return
	}

	opts := h.Config.ReportOptions(ViewerRole(r.Context()))
	team := report.BuildTeam(snap, h.Now(), opts)
	writeJSON(w, http.StatusOK, toTeamDTO(team))
}

// PersonCapacity returns one person's capacity row.
// GET /api/clients/{client}/people/{id}/capacity?start=&end=
func (h *Handler) PersonCapacity(w http.ResponseWriter, r *http.Request) {
	client := clientParam(r)
	personID := generic.PersonID(chi.URLParam(r, "id"))
	period, err := h.periodParam(r)
	if err != nil {
		writeFailure(w, "Invalid date range", err)
		return
	}

	snap, err := h.Loader.LoadCapacity(r.Context(), client, period)
	if err != nil {
		writeFailure(w, "Failed to load capacity data", err)
		return
	}

	row, err := report.BuildPerson(snap, personID, h.Now(), h.Config.ReportOptions(ViewerRole(r.Context())))
	if err != nil {
		writeFailure(w, "Person not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toPersonDTO(*row))
}

// ListHolidays returns a tenant's holidays for a year, optionally for one
// country.
// GET /api/clients/{client}/holidays?country=&year=
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	client := clientParam(r)
	year, err := h.yearParam(r, "year")
	if err != nil {
		writeFailure(w, "Invalid year", err)
		return
	}
	period := generic.Period{Start: generic.StartOfYear(year), End: generic.EndOfYear(year)}

	holidays, err := generic.FetchAll(ctx, h.Config.Storage.PageSize, func(ctx context.Context, p generic.Page) ([]generic.Holiday, error) {
		return h.Store.ListHolidays(ctx, client, period, p)
	})
	if err != nil {
		writeFailure(w, "Failed to get holidays", err)
		return
	}

	country := r.URL.Query().Get("country")
	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		if country != "" && !strings.EqualFold(hol.CountryCode, country) {
			continue
		}
		dtos = append(dtos, HolidayDTO{ID: hol.ID, CountryCode: hol.CountryCode, Date: hol.Date.String(), Name: hol.Name})
	}
	sort.Slice(dtos, func(i, j int) bool { return dtos[i].Date < dtos[j].Date })

	writeJSON(w, http.StatusOK, map[string]any{"holidays": dtos})
}

// =============================================================================
// BUDGET HANDLERS
// =============================================================================

// BudgetExecution returns plan vs actual for a fiscal year.
// GET /api/clients/{client}/budget-execution?year=
func (h *Handler) BudgetExecution(w http.ResponseWriter, r *http.Request) {
	year, err := h.yearParam(r, "year")
	if err != nil {
		writeFailure(w, "Invalid year", err)
		return
	}

	exec, err := h.execute(r.Context(), clientParam(r), year)
	if err != nil {
		writeFailure(w, "Failed to load budget data", err)
		return
	}
	writeJSON(w, http.StatusOK, toExecutionDTO(exec))
}

func (h *Handler) execute(ctx context.Context, client generic.ClientSlug, year int) (*budget.Execution, error) {
	snap, err := h.Loader.LoadBudget(ctx, client, year, h.Config.Periods().FiscalYear(year))
	if err != nil {
		return nil, err
	}
	return budget.Execute(snap), nil
}

// ListAdjustments returns adjustments flowing into a year.
// GET /api/clients/{client}/budget/adjustments?toYear=&role=&fromYear=&type=
func (h *Handler) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	toYear, err := h.yearParam(r, "toYear")
	if err != nil {
		writeFailure(w, "Invalid toYear", err)
		return
	}
	var fromYear int
	if raw := q.Get("fromYear"); raw != "" {
		if fromYear, err = strconv.Atoi(raw); err != nil {
			writeFailure(w, "Invalid fromYear", fmt.Errorf("%w: fromYear %q", generic.ErrInvalidAdjustment, raw))
			return
		}
	}

	rows, err := generic.FetchAll(r.Context(), h.Config.Storage.PageSize, func(ctx context.Context, p generic.Page) ([]generic.BudgetAdjustment, error) {
		return h.Store.ListAdjustments(ctx, clientParam(r), toYear, p)
	})
	if err != nil {
		writeFailure(w, "Failed to list adjustments", err)
		return
	}

	role, kind := q.Get("role"), q.Get("type")
	rows = lo.Filter(rows, func(a generic.BudgetAdjustment, _ int) bool {
		return (role == "" || string(a.RoleID) == role) &&
			(fromYear == 0 || a.FromYear == fromYear) &&
			(kind == "" || string(a.Type) == kind)
	})
	writeJSON(w, http.StatusOK, map[string]any{"adjustments": toAdjustmentDTOs(rows), "total": generic.Round2(budget.Total(rows))})
}

// Carryover replaces the adjustments of one key.
// POST /api/clients/{client}/budget/carryover
func (h *Handler) Carryover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	client := clientParam(r)

	var req CarryoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.AdjustmentType == "" {
		req.AdjustmentType = string(generic.AdjustmentCarryover)
	}
	key := req.Key()
	if _, err := budget.Validate(key, nil); err != nil {
		writeFailure(w, "Invalid carryover key", err)
		return
	}

	var rows []generic.BudgetAdjustment
	switch req.Mode {
	case CarryoverUnused:
		exec, err := h.execute(ctx, client, req.FromYear)
		if err != nil {
			writeFailure(w, "Failed to load budget data", err)
			return
		}
		if adj, ok := budget.UnusedPoolCarryover(exec, key.RoleID, key.ToYear); ok {
			adj.Type = key.Type
			rows = append(rows, adj)
		}
	case CarryoverCopy:
		prior, err := generic.FetchAll(ctx, h.Config.Storage.PageSize, func(ctx context.Context, p generic.Page) ([]generic.BudgetAdjustment, error) {
			return h.Store.ListAdjustments(ctx, client, req.FromYear, p)
		})
		if err != nil {
			writeFailure(w, "Failed to list adjustments", err)
			return
		}
		prior = lo.Filter(prior, func(a generic.BudgetAdjustment, _ int) bool { return a.RoleID == key.RoleID })
		rows = budget.CopyAdjustments(prior, key)
	case CarryoverManual:
		for _, dto := range req.Rows {
			amount, err := decimalFromFloat(dto.Amount)
			if err != nil {
				writeFailure(w, "Invalid amount", err)
				return
			}
			rows = append(rows, generic.BudgetAdjustment{
				ID:       dto.ID,
				RoleID:   generic.RoleID(dto.RoleID),
				FromYear: dto.FromYear,
				ToYear:   dto.ToYear,
				Type:     generic.AdjustmentType(dto.AdjustmentType),
				Amount:   amount,
				Note:     dto.Note,
			})
		}
	default:
		writeError(w, http.StatusBadRequest, "Unknown carryover mode", fmt.Errorf("mode %q", req.Mode))
		return
	}

	saved, err := budget.Carryover(ctx, h.Store, client, key, rows)
	if err != nil {
		writeFailure(w, "Failed to save carryover", err)
		return
	}
	log.Printf("[Carryover] %s: %s %d->%d %s mode=%s rows=%d", client, key.RoleID, key.FromYear, key.ToYear, key.Type, req.Mode, len(saved))

	writeJSON(w, http.StatusOK, CarryoverResponse{
		Mode:  req.Mode,
		Saved: toAdjustmentDTOs(saved),
		Total: generic.Round2(budget.Total(saved)),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func clientParam(r *http.Request) generic.ClientSlug {
	return generic.ClientSlug(chi.URLParam(r, "client"))
}

// periodParam reads start/end. Both default to the current month.
func (h *Handler) periodParam(r *http.Request) (generic.Period, error) {
	today := h.Now()
	monthStart := generic.NewTimePoint(today.Year(), today.Month(), 1)
	start, end := monthStart, monthStart.AddMonths(1).AddDays(-1)

	q := r.URL.Query()
	if raw := q.Get("start"); raw != "" {
		tp, err := generic.ParseDate(raw)
		if err != nil {
			return generic.Period{}, withField(err, "start")
		}
		start = tp
	}
	if raw := q.Get("end"); raw != "" {
		tp, err := generic.ParseDate(raw)
		if err != nil {
			return generic.Period{}, withField(err, "end")
		}
		end = tp
	}
	period := generic.Period{Start: start, End: end}
	if !period.Valid() {
		return generic.Period{}, fmt.Errorf("%w: %s", generic.ErrInvalidPeriod, period)
	}
	return period, nil
}

// yearParam reads an integer year, defaulting to the current fiscal year.
func (h *Handler) yearParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return h.Config.Periods().FiscalYearOf(h.Now()), nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1900 || year > 9999 {
		return 0, &generic.DateError{Field: name, Value: raw, Err: err}
	}
	return year, nil
}

func withField(err error, field string) error {
	var de *generic.DateError
	if errors.As(err, &de) {
		de.Field = field
	}
	return err
}

func decimalFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("%w: amount is not a number", generic.ErrInvalidAdjustment)
	}
	return decimal.NewFromFloat(f).Round(budget.CentPlaces), nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeFailure picks the status from the error category.
func writeFailure(w http.ResponseWriter, message string, err error) {
	switch {
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	default:
		log.Printf("[API] %s: %v", message, err)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
