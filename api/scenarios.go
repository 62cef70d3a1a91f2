/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate one tenant with realistic
	data. Each scenario writes people, contracts, holidays, time off,
	effort records and budget rows through the SQLite store.

AVAILABLE SCENARIOS:

	marketing-team:  Six people (one inactive), mixed contracts, every effort source,
	                 unmapped agency hours, a duplicated display name
	budget-year-end: Two fiscal years of budget roles with spend and a
	                 prior carryover, ready for the carryover endpoint

HOW SCENARIOS WORK:
 1. Reset the tenant (other tenants are untouched)
 2. Seed rows dated relative to "today", so the current week is populated

USAGE VIA API:

	POST /api/scenarios/load
	{"scenarioId": "marketing-team", "client": "demo"}

SEE ALSO:
  - handlers.go: Capacity and budget handlers that read the seeded rows
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/capacity-engine/generic"
)

// DefaultScenarioClient is the tenant seeded when a request names none.
const DefaultScenarioClient = "demo"

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	load func(ctx context.Context, h *Handler, client generic.ClientSlug) error
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "marketing-team",
			Name:        "Marketing Team",
			Description: "Team capacity with holidays, half-day time off and effort from every source",
		},
		load: loadMarketingTeam,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "budget-year-end",
			Name:        "Budget Year End",
			Description: "Role pools over two fiscal years with spend and a prior carryover",
		},
		load: loadBudgetYearEnd,
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Scenarios())
}

// Scenarios returns the registered scenarios in registration order.
func Scenarios() []ScenarioDTO {
	dtos := make([]ScenarioDTO, 0, len(scenarios))
	for _, s := range scenarios {
		dtos = append(dtos, s.ScenarioDTO)
	}
	return dtos
}

// LoadScenario resets a tenant and seeds it with a scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	client := generic.ClientSlug(req.Client)
	if client == "" {
		client = DefaultScenarioClient
	}

	if err := h.LoadScenarioByID(r.Context(), req.ScenarioID, client); err != nil {
		writeFailure(w, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID, "client": string(client)})
}

// LoadScenarioByID resets client and seeds it. The CLI calls it directly.
func (h *Handler) LoadScenarioByID(ctx context.Context, id string, client generic.ClientSlug) error {
	var found *scenario
	for i := range scenarios {
		if scenarios[i].ID == id {
			found = &scenarios[i]
		}
	}
	if found == nil {
		return fmt.Errorf("%w: %q", generic.ErrUnknownScenario, id)
	}

	if err := h.Store.ResetClient(ctx, client); err != nil {
		return fmt.Errorf("reset %s: %w", client, err)
	}
	if err := found.load(ctx, h, client); err != nil {
		return fmt.Errorf("load %s: %w", id, err)
	}
	log.Printf("[Scenario] Loaded %s into %s", id, client)
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadMarketingTeam(ctx context.Context, h *Handler, client generic.ClientSlug) error {
	today := h.Now()
	year := today.Year()
	monday := today.AddDays(-((int(today.Weekday()) + 6) % 7))
	lastMonday := monday.AddDays(-7)
	day := func(base generic.TimePoint, offset int) *generic.TimePoint {
		tp := base.AddDays(offset)
		return &tp
	}
	pid := func(s string) *generic.PersonID {
		id := generic.PersonID(s)
		return &id
	}

	people := []generic.Person{
		{ID: "p-lucia", DisplayName: "Lucía Fernández", Email: "lucia@demo.test", UserEmail: "lucia.f@sso.demo.test", Aliases: []string{"lfernandez", "Lu"}, Active: true, InTeamCapacity: true},
		{ID: "p-marc", DisplayName: "Marc Dubois", Email: "marc@demo.test", Aliases: []string{"mdubois"}, Active: true, InTeamCapacity: true},
		{ID: "p-sam-1", DisplayName: "Sam Lee", Email: "sam.lee@demo.test", Active: true, InTeamCapacity: true},
		{ID: "p-sam-2", DisplayName: "Sam Lee", Email: "samuel.lee@demo.test", Active: true, InTeamCapacity: true},
		{ID: "p-nora", DisplayName: "Nora Quinn", Email: "nora@demo.test", Active: true, InTeamCapacity: false},
		{ID: "p-otto", DisplayName: "Otto Berg", Email: "otto@demo.test", Active: false, InTeamCapacity: true},
	}
	if err := h.Store.SavePeople(ctx, client, people...); err != nil {
		return err
	}

	yearStart := generic.StartOfYear(year)
	contracts := []generic.Contract{
		{ID: "c-lucia", PersonID: "p-lucia", WeeklyHours: generic.Float(40), CountryCode: "ES", VacationDays: generic.Float(23), Start: yearStart.AddYears(-2)},
		// part-time from this month; the newer contract wins where both overlap
		{ID: "c-marc-old", PersonID: "p-marc", WeeklyHours: generic.Float(40), CountryCode: "FR", VacationDays: generic.Float(25), Start: yearStart.AddYears(-1)},
		{ID: "c-marc", PersonID: "p-marc", WeeklyHours: generic.Float(32), CountryCode: "FR", VacationDays: generic.Float(25), Start: generic.NewTimePoint(year, today.Month(), 1)},
		{ID: "c-sam-1", PersonID: "p-sam-1", WeeklyHours: generic.Float(35), CountryCode: "US", VacationDays: generic.Float(15), Start: yearStart},
		{ID: "c-nora", PersonID: "p-nora", WeeklyHours: generic.Float(20), CountryCode: "US", Start: yearStart},
		{ID: "c-otto", PersonID: "p-otto", WeeklyHours: generic.Float(40), CountryCode: "ES", Start: yearStart.AddYears(-3), End: day(yearStart, -1)},
	}
	if err := h.Store.SaveContracts(ctx, client, contracts...); err != nil {
		return err
	}

	holidays := defaultHolidays(year)
	holidays = append(holidays, generic.Holiday{ID: "h-es-local", CountryCode: "ES", Date: *day(lastMonday, 2), Name: "Fiesta local"})
	if err := h.Store.SaveHolidays(ctx, client, holidays...); err != nil {
		return err
	}

	timeOff := []generic.TimeOff{
		{ID: "to-lucia", PersonID: "p-lucia", Kind: generic.TimeOffVacation, Start: *day(monday, 3), End: *day(monday, 4), EndDayFraction: generic.Float(0.5)},
		{ID: "to-marc", PersonID: "p-marc", Kind: generic.TimeOffSick, Start: *day(lastMonday, 0), End: *day(lastMonday, 0)},
		{ID: "to-sam", PersonID: "p-sam-1", Kind: generic.TimeOffOther, Start: *day(monday, 1), End: *day(monday, 1), StartDayFraction: generic.Float(0.5)},
	}
	if err := h.Store.SaveTimeOff(ctx, client, timeOff...); err != nil {
		return err
	}

	efforts := []generic.EffortRecord{
		{ID: "ef-01", Source: generic.SourceContribution, OwnerText: "lfernandez", WorkHours: generic.Float(10), Date: day(lastMonday, 1)},
		{ID: "ef-02", Source: generic.SourceContribution, OwnerText: "marc@demo.test", WorkHours: generic.Float(6), PrepHours: generic.Float(1), Date: day(lastMonday, 2)},
		{ID: "ef-03", Source: generic.SourceManualEffort, PersonID: pid("p-lucia"), Hours: generic.Float(12), Date: day(lastMonday, 3)},
		{ID: "ef-04", Source: generic.SourceStrategy, OwnerText: "Marc Dubois", Hours: generic.Float(8), Date: day(monday, 0)},
		{ID: "ef-05", Source: generic.SourceCampaignUnit, OwnerText: "sam.lee@demo.test", Hours: generic.Float(14), Date: day(lastMonday, 4)},
		{ID: "ef-06", Source: generic.SourceWorklog, OwnerText: "Lu", Hours: generic.Float(7.5), Date: day(monday, 1)},
		{ID: "ef-07", Source: generic.SourceWorklog, OwnerText: "nora@demo.test", Hours: generic.Float(9), Date: day(monday, 0)},
		// ambiguous name, external agency, and an undated record
		{ID: "ef-08", Source: generic.SourceWorklog, OwnerText: "Sam Lee", Hours: generic.Float(3), Date: day(lastMonday, 1)},
		{ID: "ef-09", Source: generic.SourceCampaignUnit, OwnerText: "Brightside Agency", Hours: generic.Float(16), Date: day(lastMonday, 2)},
		{ID: "ef-10", Source: generic.SourceManualEffort, OwnerText: "mdubois", Hours: generic.Float(2)},
	}
	return h.Store.SaveEfforts(ctx, client, efforts...)
}

func loadBudgetYearEnd(ctx context.Context, h *Handler, client generic.ClientSlug) error {
	periods := h.Config.Periods()
	year := periods.FiscalYearOf(h.Now())
	prior := year - 1
	current := periods.FiscalYear(year)
	last := periods.FiscalYear(prior)
	mid := func(p generic.Period) *generic.TimePoint {
		tp := p.Start.AddMonths(6)
		return &tp
	}
	pid := func(s string) *generic.PersonID {
		id := generic.PersonID(s)
		return &id
	}

	people := []generic.Person{
		{ID: "p-ines", DisplayName: "Inés Martín", Email: "ines@demo.test", Active: true, InTeamCapacity: true},
		{ID: "p-theo", DisplayName: "Theo Park", Email: "theo@demo.test", Aliases: []string{"tpark"}, Active: true, InTeamCapacity: true},
		{ID: "p-ada", DisplayName: "Ada Okafor", Email: "ada@demo.test", Active: true, InTeamCapacity: true},
	}
	if err := h.Store.SavePeople(ctx, client, people...); err != nil {
		return err
	}

	// a role keeps its id across years; each year has its own pool
	roles := []generic.BudgetRole{
		{ID: "design", Name: "Design", Year: prior, PoolAmount: generic.Float(12000), Currency: "EUR", Active: true, SortOrder: 1},
		{ID: "design", Name: "Design", Year: year, PoolAmount: generic.Float(14000), Currency: "EUR", Active: true, SortOrder: 1},
		{ID: "content", Name: "Content", Year: year, PoolAmount: generic.Float(6000), Currency: "EUR", Active: true, SortOrder: 2},
	}
	if err := h.Store.SaveBudgetRoles(ctx, client, roles...); err != nil {
		return err
	}

	assignments := []generic.BudgetAssignment{
		{ID: "ba-1", RoleID: "design", PersonID: "p-ines"},
		{ID: "ba-2", RoleID: "design", PersonID: "p-theo", Start: mid(last)},
		{ID: "ba-3", RoleID: "content", PersonID: "p-ada", Start: mid(current)},
	}
	if err := h.Store.SaveBudgetAssignments(ctx, client, assignments...); err != nil {
		return err
	}

	spend := []generic.SpendRecord{
		{ID: "sp-1", RoleID: "design", PersonID: pid("p-ines"), Amount: generic.Float(5200), Date: last.Start.AddMonths(2)},
		{ID: "sp-2", RoleID: "design", OwnerText: "tpark", Amount: generic.Float(2100), Date: last.Start.AddMonths(8)},
		{ID: "sp-3", RoleID: "design", OwnerText: "Freelance Studio", Amount: generic.Float(900), Date: last.Start.AddMonths(9)},
		{ID: "sp-4", RoleID: "design", OwnerText: "ines@demo.test", Amount: generic.Float(1500), Date: current.Start.AddDays(20)},
	}
	if err := h.Store.SaveSpend(ctx, client, spend...); err != nil {
		return err
	}

	carried := generic.BudgetAdjustment{
		ID:       "adj-seed",
		RoleID:   "design",
		FromYear: prior,
		ToYear:   year,
		Type:     generic.AdjustmentManual,
		Amount:   decimal.NewFromInt(500),
		Note:     "conference budget moved forward",
	}
	return h.Store.ReplaceAdjustments(ctx, client, carried.Key(), []generic.BudgetAdjustment{carried})
}

// defaultHolidays returns fixed-date public holidays for the demo countries.
func defaultHolidays(year int) []generic.Holiday {
	fixed := []struct {
		country string
		month   int
		day     int
		name    string
	}{
		{"ES", 1, 1, "Año Nuevo"},
		{"ES", 1, 6, "Epifanía del Señor"},
		{"ES", 5, 1, "Fiesta del Trabajo"},
		{"ES", 8, 15, "Asunción de la Virgen"},
		{"ES", 10, 12, "Fiesta Nacional de España"},
		{"ES", 12, 8, "Inmaculada Concepción"},
		{"ES", 12, 25, "Navidad"},
		{"FR", 1, 1, "Jour de l'an"},
		{"FR", 5, 1, "Fête du Travail"},
		{"FR", 7, 14, "Fête nationale"},
		{"FR", 11, 11, "Armistice"},
		{"FR", 12, 25, "Noël"},
		{"US", 1, 1, "New Year's Day"},
		{"US", 7, 4, "Independence Day"},
		{"US", 12, 25, "Christmas Day"},
	}
	out := make([]generic.Holiday, 0, len(fixed))
	for _, f := range fixed {
		date := generic.NewTimePoint(year, time.Month(f.month), f.day)
		out = append(out, generic.Holiday{
			ID:          fmt.Sprintf("h-%s-%s", strings.ToLower(f.country), date.Key()),
			CountryCode: f.country,
			Date:        date,
			Name:        f.name,
		})
	}
	return out
}
