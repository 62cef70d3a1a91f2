package budget

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/capacity-engine/generic"
)

// UnusedPoolCarryover builds the carryover row moving a role's unspent
// money from exec's year into toYear. ok is false when nothing is left.
func UnusedPoolCarryover(exec *Execution, roleID generic.RoleID, toYear int) (generic.BudgetAdjustment, bool) {
	re, found := exec.Role(roleID)
	if !found || !re.Remaining.IsPositive() {
		return generic.BudgetAdjustment{}, false
	}
	return generic.BudgetAdjustment{
		ID:       uuid.NewString(),
		RoleID:   roleID,
		FromYear: exec.Year,
		ToYear:   toYear,
		Type:     generic.AdjustmentCarryover,
		Amount:   re.Remaining.Round(CentPlaces),
		Note:     fmt.Sprintf("unused %s pool from %d", re.Role.Name, exec.Year),
	}, true
}

// CopyAdjustments re-keys rows to key with fresh ids, keeping amounts and
// notes. Used to copy last year's adjustments forward.
func CopyAdjustments(rows []generic.BudgetAdjustment, key generic.AdjustmentKey) []generic.BudgetAdjustment {
	out := make([]generic.BudgetAdjustment, 0, len(rows))
	for _, r := range rows {
		out = append(out, generic.BudgetAdjustment{
			ID:       uuid.NewString(),
			RoleID:   key.RoleID,
			FromYear: key.FromYear,
			ToYear:   key.ToYear,
			Type:     key.Type,
			Amount:   r.Amount,
			Note:     r.Note,
		})
	}
	return out
}

// minYear rejects unset source years; the API bounds years the same way.
const minYear = 1900

// Validate checks that every row belongs to key. Rows without an id get one.
func Validate(key generic.AdjustmentKey, rows []generic.BudgetAdjustment) ([]generic.BudgetAdjustment, error) {
	if key.RoleID == "" {
		return nil, fmt.Errorf("%w: role is required", generic.ErrInvalidAdjustment)
	}
	if key.FromYear < minYear {
		return nil, fmt.Errorf("%w: source year %d out of range", generic.ErrInvalidAdjustment, key.FromYear)
	}
	if key.ToYear <= key.FromYear {
		return nil, fmt.Errorf("%w: target year %d must follow %d", generic.ErrInvalidAdjustment, key.ToYear, key.FromYear)
	}
	switch key.Type {
	case generic.AdjustmentCarryover, generic.AdjustmentRollForward, generic.AdjustmentManual:
	default:
		return nil, fmt.Errorf("%w: unknown type %q", generic.ErrInvalidAdjustment, key.Type)
	}

	out := make([]generic.BudgetAdjustment, len(rows))
	for i, r := range rows {
		if r.Key() != key {
			return nil, &generic.AdjustmentError{Index: i, Reason: "row does not match carryover key"}
		}
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		out[i] = r
	}
	return out, nil
}

// Carryover replaces every stored adjustment of key with rows. This is a
// wholesale replace: rows previously saved under key and absent from rows
// are deleted.
func Carryover(ctx context.Context, w generic.AdjustmentWriter, client generic.ClientSlug, key generic.AdjustmentKey, rows []generic.BudgetAdjustment) ([]generic.BudgetAdjustment, error) {
	valid, err := Validate(key, rows)
	if err != nil {
		return nil, err
	}
	if err := w.ReplaceAdjustments(ctx, client, key, valid); err != nil {
		return nil, fmt.Errorf("replace adjustments: %w", err)
	}
	return valid, nil
}

// Total sums adjustment amounts.
func Total(rows []generic.BudgetAdjustment) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.Amount)
	}
	return sum
}
