/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Storage is snake_case;
  every payload here is camelCase. Hours and money are rounded to two places
  on the way out; unknown values (no contract, zero plan) are null.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/capacity-engine/budget"
	"github.com/warp/capacity-engine/generic"
	"github.com/warp/capacity-engine/report"
)

// =============================================================================
// TEAM CAPACITY
// =============================================================================

type WeekDTO struct {
	WeekStart string   `json:"weekStart"`
	WeekEnd   string   `json:"weekEnd"`
	Status    string   `json:"status"`
	Capacity  float64  `json:"capacityHours"`
	Workload  float64  `json:"workloadHours"`
	External  *float64 `json:"externalHours,omitempty"`
}

type TimeOffDTO struct {
	VacationDays      float64  `json:"vacationDays"`
	SickDays          float64  `json:"sickDays"`
	OtherDays         float64  `json:"otherDays"`
	VacationAllowance *float64 `json:"vacationAllowance"`
	VacationRemaining *float64 `json:"vacationRemaining"`
}

type PersonCapacityDTO struct {
	PersonID       string     `json:"personId"`
	DisplayName    string     `json:"displayName"`
	InTeamCapacity bool       `json:"inTeamCapacity"`
	CapacityHours  *float64   `json:"capacityHours"`
	WorkloadHours  float64    `json:"workloadHours"`
	Utilization    *float64   `json:"utilization"`
	WorkingDays    int        `json:"workingDays"`
	HolidayDays    int        `json:"holidayDays"`
	TimeOffDays    float64    `json:"timeOffDays"`
	TimeOff        TimeOffDTO `json:"timeOff"`
	Weeks          []WeekDTO  `json:"weeks"`
}

type TeamCapacityDTO struct {
	Client             string              `json:"client"`
	Start              string              `json:"start"`
	End                string              `json:"end"`
	CapacityHours      float64             `json:"capacityHours"`
	WorkloadHours      float64             `json:"workloadHours"`
	Utilization        *float64            `json:"utilization"`
	CurrentWeekPending bool                `json:"currentWeekPending"`
	People             []PersonCapacityDTO `json:"people"`
	Weeks              []WeekDTO           `json:"weeks"`
	UnmappedHours      *float64            `json:"unmappedHours,omitempty"`
	UnmappedByOwner    map[string]float64  `json:"unmappedByOwner,omitempty"`
	HoursBySource      map[string]float64  `json:"hoursBySource,omitempty"`
}

func toWeekDTOs(rows []report.WeekRow) []WeekDTO {
	out := make([]WeekDTO, 0, len(rows))
	for _, w := range rows {
		out = append(out, WeekDTO{
			WeekStart: w.Start.String(),
			WeekEnd:   w.End.String(),
			Status:    string(w.Status),
			Capacity:  generic.Round2(w.Capacity),
			Workload:  generic.Round2(w.Workload),
			External:  roundPtr(w.External),
		})
	}
	return out
}

func toPersonDTO(row report.PersonRow) PersonCapacityDTO {
	return PersonCapacityDTO{
		PersonID:       string(row.Person.ID),
		DisplayName:    row.Person.DisplayName,
		InTeamCapacity: row.InTeamCapacity,
		CapacityHours:  roundPtr(row.Capacity),
		WorkloadHours:  generic.Round2(row.Workload),
		Utilization:    ratioPtr(row.Utilization),
		WorkingDays:    row.WorkingDays,
		HolidayDays:    row.HolidayDays,
		TimeOffDays:    generic.Round2(row.TimeOffDays),
		TimeOff: TimeOffDTO{
			VacationDays:      generic.Round2(row.TimeOff.Vacation),
			SickDays:          generic.Round2(row.TimeOff.Sick),
			OtherDays:         generic.Round2(row.TimeOff.Other),
			VacationAllowance: roundPtr(row.TimeOff.VacationEntitlement),
			VacationRemaining: roundPtr(row.TimeOff.VacationRemaining),
		},
		Weeks: toWeekDTOs(row.Weeks),
	}
}

func toTeamDTO(team *report.Team) TeamCapacityDTO {
	dto := TeamCapacityDTO{
		Client:             string(team.Client),
		Start:              team.Period.Start.String(),
		End:                team.Period.End.String(),
		CapacityHours:      generic.Round2(team.Capacity),
		WorkloadHours:      generic.Round2(team.Workload),
		Utilization:        ratioPtr(team.Utilization),
		CurrentWeekPending: team.CurrentWeekPending,
		People:             make([]PersonCapacityDTO, 0, len(team.People)),
		Weeks:              toWeekDTOs(team.Weeks),
		UnmappedHours:      roundPtr(team.Unmapped),
	}
	for _, row := range team.People {
		dto.People = append(dto.People, toPersonDTO(row))
	}
	if team.UnmappedByOwner != nil {
		dto.UnmappedByOwner = make(map[string]float64, len(team.UnmappedByOwner))
		for owner, h := range team.UnmappedByOwner {
			dto.UnmappedByOwner[owner] = generic.Round2(h)
		}
	}
	if team.BySource != nil {
		dto.HoursBySource = make(map[string]float64, len(team.BySource))
		for src, h := range team.BySource {
			dto.HoursBySource[string(src)] = generic.Round2(h)
		}
	}
	return dto
}

// =============================================================================
// BUDGET
// =============================================================================

type RoleExecutionDTO struct {
	RoleID           string             `json:"roleId"`
	Name             string             `json:"name"`
	Currency         string             `json:"currency"`
	PoolAmount       float64            `json:"poolAmount"`
	CarriedIn        float64            `json:"carriedIn"`
	AvailableAmount  float64            `json:"availableAmount"`
	AssignedAmount   float64            `json:"assignedAmount"`
	SpentAmount      float64            `json:"spentAmount"`
	UnassignedSpend  float64            `json:"unassignedSpend"`
	RemainingAmount  float64            `json:"remainingAmount"`
	ActiveDays       int                `json:"activeDays"`
	SharesByPersonID map[string]float64 `json:"sharesByPersonId"`
}

type PersonBudgetDTO struct {
	PersonID    string             `json:"personId"`
	PlanBudget  float64            `json:"planBudget"`
	ActualSpend float64            `json:"actualSpend"`
	Utilization *float64           `json:"utilization"`
	ByRole      map[string]float64 `json:"byRole"`
}

type BudgetExecutionDTO struct {
	Year   int                `json:"year"`
	Start  string             `json:"start"`
	End    string             `json:"end"`
	Roles  []RoleExecutionDTO `json:"roles"`
	People []PersonBudgetDTO  `json:"people"`
}

func toExecutionDTO(exec *budget.Execution) BudgetExecutionDTO {
	dto := BudgetExecutionDTO{
		Year:   exec.Year,
		Start:  exec.Period.Start.String(),
		End:    exec.Period.End.String(),
		Roles:  make([]RoleExecutionDTO, 0, len(exec.Roles)),
		People: make([]PersonBudgetDTO, 0, len(exec.People)),
	}
	for _, re := range exec.Roles {
		shares := make(map[string]float64, len(re.Shares))
		for id, s := range re.Shares {
			shares[string(id)] = generic.Round2(s)
		}
		dto.Roles = append(dto.Roles, RoleExecutionDTO{
			RoleID:           string(re.Role.ID),
			Name:             re.Role.Name,
			Currency:         re.Role.Currency,
			PoolAmount:       generic.Round2(re.Pool),
			CarriedIn:        generic.Round2(re.CarriedIn),
			AvailableAmount:  generic.Round2(re.Available),
			AssignedAmount:   generic.Round2(re.Assigned),
			SpentAmount:      generic.Round2(re.Spent),
			UnassignedSpend:  generic.Round2(re.Unassigned),
			RemainingAmount:  generic.Round2(re.Remaining),
			ActiveDays:       re.ActiveDays,
			SharesByPersonID: shares,
		})
	}
	for _, pe := range exec.People {
		byRole := make(map[string]float64, len(pe.ByRole))
		for id, v := range pe.ByRole {
			byRole[string(id)] = generic.Round2(v)
		}
		dto.People = append(dto.People, PersonBudgetDTO{
			PersonID:    string(pe.PersonID),
			PlanBudget:  generic.Round2(pe.Plan),
			ActualSpend: generic.Round2(pe.Actual),
			Utilization: ratioPtr(pe.Utilization),
			ByRole:      byRole,
		})
	}
	return dto
}

// AdjustmentDTO is one budget adjustment row, in responses and in manual
// carryover requests.
type AdjustmentDTO struct {
	ID             string  `json:"id,omitempty"`
	RoleID         string  `json:"roleId"`
	FromYear       int     `json:"fromYear"`
	ToYear         int     `json:"toYear"`
	AdjustmentType string  `json:"adjustmentType"`
	Amount         float64 `json:"amount"`
	Note           string  `json:"note,omitempty"`
}

func toAdjustmentDTOs(rows []generic.BudgetAdjustment) []AdjustmentDTO {
	out := make([]AdjustmentDTO, 0, len(rows))
	for _, a := range rows {
		out = append(out, AdjustmentDTO{
			ID:             a.ID,
			RoleID:         string(a.RoleID),
			FromYear:       a.FromYear,
			ToYear:         a.ToYear,
			AdjustmentType: string(a.Type),
			Amount:         generic.Round2(a.Amount),
			Note:           a.Note,
		})
	}
	return out
}

// CarryoverMode selects where the saved rows come from.
type CarryoverMode string

const (
	// CarryoverUnused computes the unspent pool of fromYear.
	CarryoverUnused CarryoverMode = "unused"
	// CarryoverCopy copies the adjustments that fed into fromYear.
	CarryoverCopy CarryoverMode = "copy"
	// CarryoverManual saves Rows as given.
	CarryoverManual CarryoverMode = "manual"
)

type CarryoverRequest struct {
	RoleID         string          `json:"roleId"`
	FromYear       int             `json:"fromYear"`
	ToYear         int             `json:"toYear"`
	AdjustmentType string          `json:"adjustmentType"`
	Mode           CarryoverMode   `json:"mode"`
	Rows           []AdjustmentDTO `json:"rows,omitempty"`
}

func (r CarryoverRequest) Key() generic.AdjustmentKey {
	return generic.AdjustmentKey{
		RoleID:   generic.RoleID(r.RoleID),
		FromYear: r.FromYear,
		ToYear:   r.ToYear,
		Type:     generic.AdjustmentType(r.AdjustmentType),
	}
}

type CarryoverResponse struct {
	Mode  CarryoverMode   `json:"mode"`
	Saved []AdjustmentDTO `json:"saved"`
	Total float64         `json:"total"`
}

// =============================================================================
// HOLIDAYS AND SCENARIOS
// =============================================================================

type HolidayDTO struct {
	ID          string `json:"id"`
	CountryCode string `json:"countryCode"`
	Date        string `json:"date"`
	Name        string `json:"name"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenarioId"`
	Client     string `json:"client"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// HELPERS
// =============================================================================

func roundPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := generic.Round2(*d)
	return &f
}

// ratioPtr keeps four places so utilization percentages survive rounding.
func ratioPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f, _ := d.Round(4).Float64()
	return &f
}
