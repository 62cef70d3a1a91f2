/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements generic.Reader and generic.AdjustmentWriter on SQLite, plus the
  Save* writers the demo scenarios use to seed a tenant.

INTERFACES IMPLEMENTED:
  generic.Reader:           Paged, tenant-scoped reads
  generic.AdjustmentWriter: Budget carryover writes

PAGING:
  Every list query is ordered by id and cut with LIMIT ? OFFSET ?, so
  generic.FetchAll can page through it deterministically.

REPLACE, NOT MERGE:
  ReplaceAdjustments runs DELETE for the key and INSERT for the new rows in
  one transaction. Readers see either the old batch or the new one.

MIGRATIONS:
  Versioned SQL files under migrations/ are embedded and applied with
  golang-migrate on New().

USAGE:
  store, err := sqlite.New("./data/capacity.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/capacity-engine/generic"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// aliasSeparator joins aliases in the GROUP_CONCAT of ListPeople.
const aliasSeparator = "\x1f"

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens the database at dbPath and applies pending migrations.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_journal_mode=WAL"
	if dbPath == ":memory:" {
		dsn = "file::memory:?_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies every pending migration.
func (s *Store) Migrate() error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// MigrationVersion reports the applied schema version.
func (s *Store) MigrationVersion() (version uint, dirty bool, err error) {
	m, err := s.migrator()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) migrator() (*migrate.Migrate, error) {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return nil, err
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	return migrate.NewWithInstance("iofs", source, "sqlite3", driver)
}

// =============================================================================
// READER
// =============================================================================

func (s *Store) ListPeople(ctx context.Context, client generic.ClientSlug, page generic.Page) ([]generic.Person, error) {
	query := `
		SELECT p.id, p.display_name, COALESCE(p.email, ''), COALESCE(p.user_email, ''),
		       p.active, p.in_team_capacity,
		       COALESCE((SELECT GROUP_CONCAT(a.alias, char(31)) FROM person_aliases a
		                 WHERE a.client_slug = p.client_slug AND a.person_id = p.id), '')
		FROM people p
		WHERE p.client_slug = ?
		ORDER BY p.id
		LIMIT ? OFFSET ?`
	return queryPage(ctx, s, func(sc scanner) (generic.Person, error) {
		var p generic.Person
		var aliases string
		if err := sc.Scan(&p.ID, &p.DisplayName, &p.Email, &p.UserEmail, &p.Active, &p.InTeamCapacity, &aliases); err != nil {
			return p, err
		}
		if aliases != "" {
			p.Aliases = strings.Split(aliases, aliasSeparator)
		}
		return p, nil
	}, query, client, page.Limit, page.Offset)
}

func (s *Store) ListContracts(ctx context.Context, client generic.ClientSlug, period generic.Period, page generic.Page) ([]generic.Contract, error) {
	query := `
		SELECT id, person_id, weekly_hours, country_code, vacation_days, start_date, end_date
		FROM contracts
		WHERE client_slug = ? AND start_date <= ? AND (end_date IS NULL OR end_date >= ?)
		ORDER BY id
		LIMIT ? OFFSET ?`
	return queryPage(ctx, s, func(sc scanner) (generic.Contract, error) {
		var c generic.Contract
		var weekly, vacation sql.NullFloat64
		var start string
		var end sql.NullString
		if err := sc.Scan(&c.ID, &c.PersonID, &weekly, &c.CountryCode, &vacation, &start, &end); err != nil {
			return c, err
		}
		c.WeeklyHours = nullFloat(weekly)
		c.VacationDays = nullFloat(vacation)
		var err error
		if c.Start, err = generic.ParseDate(start); err != nil {
			return c, err
		}
		c.End, err = nullDate(end)
		return c, err
	}, query, client, period.End.Key(), period.Start.Key(), page.Limit, page.Offset)
}

func (s *Store) ListHolidays(ctx context.Context, client generic.ClientSlug, period generic.Period, page generic.Page) ([]generic.Holiday, error) {
	query := `
		SELECT id, country_code, date, name
		FROM holidays
		WHERE client_slug = ? AND date BETWEEN ? AND ?
		ORDER BY id
		LIMIT ? OFFSET ?`
	return queryPage(ctx, s, func(sc scanner) (generic.Holiday, error) {
		var h generic.Holiday
		var date string
		if err := sc.Scan(&h.ID, &h.CountryCode, &date, &h.Name); err != nil {
			return h, err
		}
		var err error
		h.Date, err = generic.ParseDate(date)
		return h, err
	}, query, client, period.Start.Key(), period.End.Key(), page.Limit, page.Offset)
}

func (s *Store) ListTimeOff(ctx context.Context, client generic.ClientSlug, period generic.Period, page generic.Page) ([]generic.TimeOff, error) {
	query := `
		SELECT id, person_id, kind, start_date, end_date, start_day_fraction, end_day_fraction
		FROM time_off
		WHERE client_slug = ? AND start_date <= ? AND end_date >= ?
		ORDER BY id
		LIMIT ? OFFSET ?`
	return queryPage(ctx, s, func(sc scanner) (generic.TimeOff, error) {
		var t generic.TimeOff
		var start, end string
		var startFrac, endFrac sql.NullFloat64
		if err := sc.Scan(&t.ID, &t.PersonID, &t.Kind, &start, &end, &startFrac, &endFrac); err != nil {
			return t, err
		}
		t.StartDayFraction = nullFloat(startFrac)
		t.EndDayFraction = nullFloat(endFrac)
		var err error
		if t.Start, err = generic.ParseDate(start); err != nil {
			return t, err
		}
		t.End, err = generic.ParseDate(end)
		return t, err
	}, query, client, period.End.Key(), period.Start.Key(), page.Limit, page.Offset)
}

func (s *Store) ListEfforts(ctx context.Context, client generic.ClientSlug, source generic.SourceKind, period generic.Period, page generic.Page) ([]generic.EffortRecord, error) {
	query := `
		SELECT id, source_kind, person_id, owner_text, hours, work_hours, prep_hours, effort_date
		FROM effort_records
		WHERE client_slug = ? AND source_kind = ?
		  AND (effort_date IS NULL OR effort_date BETWEEN ? AND ?)
		ORDER BY id
		LIMIT ? OFFSET ?`
	return queryPage(ctx, s, func(sc scanner) (generic.EffortRecord, error) {
		var e generic.EffortRecord
		var personID, date sql.NullString
		var hours, work, prep sql.NullFloat64
		if err := sc.Scan(&e.ID, &e.Source, &personID, &e.OwnerText, &hours, &work, &prep, &date); err != nil {
			return e, err
		}
		e.PersonID = nullPerson(personID)
		e.Hours = nullFloat(hours)
		e.WorkHours = nullFloat(work)
		e.PrepHours = nullFloat(prep)
		var err error
		e.Date, err = nullDate(date)
		return e, err
	}, query, client, source, period.Start.Key(), period.End.Key(), page.Limit, page.Offset)
}

func (s *Store) ListBudgetRoles(ctx context.Context, client generic.ClientSlug, year int, page generic.Page) ([]generic.BudgetRole, error) {
	query := `
		SELECT id, name, year, pool_amount, currency, active, sort_order
		FROM budget_roles
		WHERE client_slug = ? AND year = ?
		ORDER BY id
		LIMIT ? OFFSET ?`
	return queryPage(ctx, s, func(sc scanner) (generic.BudgetRole, error) {
		var r generic.BudgetRole
		var pool sql.NullFloat64
		if err := sc.Scan(&r.ID, &r.Name, &r.Year, &pool, &r.Currency, &r.Active, &r.SortOrder); err != nil {
			return r, err
		}
		r.PoolAmount = nullFloat(pool)
		return r, nil
	}, query, client, year, page.Limit, page.Offset)
}

func (s *Store) ListBudgetAssignments(ctx context.Context, client generic.ClientSlug, period generic.Period, page generic.Page) ([]generic.BudgetAssignment, error) {
	query := `
		SELECT id, role_id, person_id, start_date, end_date
		FROM budget_assignments
		WHERE client_slug = ?
		  AND (start_date IS NULL OR start_date <= ?)
		  AND (end_date IS NULL OR end_date >= ?)
		ORDER BY id
		LIMIT ? OFFSET ?`
	return queryPage(ctx, s, func(sc scanner) (generic.BudgetAssignment, error) {
		var a generic.BudgetAssignment
		var start, end sql.NullString
		if err := sc.Scan(&a.ID, &a.RoleID, &a.PersonID, &start, &end); err != nil {
			return a, err
		}
		var err error
		if a.Start, err = nullDate(start); err != nil {
			return a, err
		}
		a.End, err = nullDate(end)
		return a, err
	}, query, client, period.End.Key(), period.Start.Key(), page.Limit, page.Offset)
}

func (s *Store) ListSpend(ctx context.Context, client generic.ClientSlug, period generic.Period, page generic.Page) ([]generic.SpendRecord, error) {
	query := `
		SELECT id, role_id, person_id, owner_text, amount, spend_date
		FROM budget_spend
		WHERE client_slug = ? AND spend_date BETWEEN ? AND ?
		ORDER BY id
		LIMIT ? OFFSET ?`
	return queryPage(ctx, s, func(sc scanner) (generic.SpendRecord, error) {
		var r generic.SpendRecord
		var personID sql.NullString
		var amount sql.NullFloat64
		var date string
		if err := sc.Scan(&r.ID, &r.RoleID, &personID, &r.OwnerText, &amount, &date); err != nil {
			return r, err
		}
		r.PersonID = nullPerson(personID)
		r.Amount = nullFloat(amount)
		var err error
		r.Date, err = generic.ParseDate(date)
		return r, err
	}, query, client, period.Start.Key(), period.End.Key(), page.Limit, page.Offset)
}

func (s *Store) ListAdjustments(ctx context.Context, client generic.ClientSlug, toYear int, page generic.Page) ([]generic.BudgetAdjustment, error) {
	query := `
		SELECT id, role_id, from_year, to_year, adjustment_type, amount, note
		FROM budget_adjustments
		WHERE client_slug = ? AND to_year = ?
		ORDER BY id
		LIMIT ? OFFSET ?`
	return queryPage(ctx, s, scanAdjustment, query, client, toYear, page.Limit, page.Offset)
}

// =============================================================================
// ADJUSTMENT WRITER
// =============================================================================

// ReplaceAdjustments deletes every row of key and inserts rows, atomically.
func (s *Store) ReplaceAdjustments(ctx context.Context, client generic.ClientSlug, key generic.AdjustmentKey, rows []generic.BudgetAdjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	res, err := sqlTx.ExecContext(ctx, `
		DELETE FROM budget_adjustments
		WHERE client_slug = ? AND role_id = ? AND from_year = ? AND to_year = ? AND adjustment_type = ?`,
		client, key.RoleID, key.FromYear, key.ToYear, key.Type,
	)
	if err != nil {
		return err
	}
	deleted, _ := res.RowsAffected()

	for _, a := range rows {
		if _, err := sqlTx.ExecContext(ctx, `
			INSERT INTO budget_adjustments (client_slug, id, role_id, from_year, to_year, adjustment_type, amount, note)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			client, a.ID, a.RoleID, a.FromYear, a.ToYear, a.Type, a.Amount.String(), a.Note,
		); err != nil {
			return err
		}
	}
	if err := sqlTx.Commit(); err != nil {
		return err
	}
	log.Printf("[Store] Replaced adjustments %s %d->%d %s: -%d +%d", key.RoleID, key.FromYear, key.ToYear, key.Type, deleted, len(rows))
	return nil
}

func (s *Store) AdjustmentsFor(ctx context.Context, client generic.ClientSlug, key generic.AdjustmentKey) ([]generic.BudgetAdjustment, error) {
	query := `
		SELECT id, role_id, from_year, to_year, adjustment_type, amount, note
		FROM budget_adjustments
		WHERE client_slug = ? AND role_id = ? AND from_year = ? AND to_year = ? AND adjustment_type = ?
		ORDER BY id`
	return queryPage(ctx, s, scanAdjustment, query, client, key.RoleID, key.FromYear, key.ToYear, key.Type)
}

func scanAdjustment(sc scanner) (generic.BudgetAdjustment, error) {
	var a generic.BudgetAdjustment
	var amount string
	if err := sc.Scan(&a.ID, &a.RoleID, &a.FromYear, &a.ToYear, &a.Type, &amount, &a.Note); err != nil {
		return a, err
	}
	var err error
	a.Amount, err = decimal.NewFromString(amount)
	return a, err
}

// =============================================================================
// SEEDING
// =============================================================================

// SavePeople upserts people and replaces their aliases.
func (s *Store) SavePeople(ctx context.Context, client generic.ClientSlug, people ...generic.Person) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, p := range people {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO people (client_slug, id, display_name, email, user_email, active, in_team_capacity)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				client, p.ID, p.DisplayName, nullString(p.Email), nullString(p.UserEmail), p.Active, p.InTeamCapacity,
			); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM person_aliases WHERE client_slug = ? AND person_id = ?", client, p.ID,
			); err != nil {
				return err
			}
			for _, alias := range p.Aliases {
				if _, err := tx.ExecContext(ctx,
					"INSERT OR IGNORE INTO person_aliases (client_slug, person_id, alias) VALUES (?, ?, ?)",
					client, p.ID, alias,
				); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *Store) SaveContracts(ctx context.Context, client generic.ClientSlug, contracts ...generic.Contract) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, c := range contracts {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO contracts (client_slug, id, person_id, weekly_hours, country_code, vacation_days, start_date, end_date)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				client, c.ID, c.PersonID, c.WeeklyHours, c.CountryCode, c.VacationDays, c.Start.Key(), dateArg(c.End),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) SaveHolidays(ctx context.Context, client generic.ClientSlug, holidays ...generic.Holiday) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, h := range holidays {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO holidays (client_slug, id, country_code, date, name)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(client_slug, country_code, date) DO UPDATE SET name = excluded.name`,
				client, h.ID, h.CountryCode, h.Date.Key(), h.Name,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) SaveTimeOff(ctx context.Context, client generic.ClientSlug, records ...generic.TimeOff) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, t := range records {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO time_off (client_slug, id, person_id, kind, start_date, end_date, start_day_fraction, end_day_fraction)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				client, t.ID, t.PersonID, t.Kind, t.Start.Key(), t.End.Key(), t.StartDayFraction, t.EndDayFraction,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) SaveEfforts(ctx context.Context, client generic.ClientSlug, records ...generic.EffortRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, e := range records {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO effort_records (client_slug, id, source_kind, person_id, owner_text, hours, work_hours, prep_hours, effort_date)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				client, e.ID, e.Source, personArg(e.PersonID), e.OwnerText, e.Hours, e.WorkHours, e.PrepHours, dateArg(e.Date),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) SaveBudgetRoles(ctx context.Context, client generic.ClientSlug, roles ...generic.BudgetRole) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, r := range roles {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO budget_roles (client_slug, id, name, year, pool_amount, currency, active, sort_order)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				client, r.ID, r.Name, r.Year, r.PoolAmount, r.Currency, r.Active, r.SortOrder,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) SaveBudgetAssignments(ctx context.Context, client generic.ClientSlug, assignments ...generic.BudgetAssignment) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, a := range assignments {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO budget_assignments (client_slug, id, role_id, person_id, start_date, end_date)
				VALUES (?, ?, ?, ?, ?, ?)`,
				client, a.ID, a.RoleID, a.PersonID, dateArg(a.Start), dateArg(a.End),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) SaveSpend(ctx context.Context, client generic.ClientSlug, records ...generic.SpendRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, r := range records {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO budget_spend (client_slug, id, role_id, person_id, owner_text, amount, spend_date)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				client, r.ID, r.RoleID, personArg(r.PersonID), r.OwnerText, r.Amount, r.Date.Key(),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// ResetClient removes every row of a tenant.
func (s *Store) ResetClient(ctx context.Context, client generic.ClientSlug) error {
	tables := []string{
		"budget_adjustments", "budget_spend", "budget_assignments", "budget_roles",
		"effort_records", "time_off", "holidays", "contracts", "person_aliases", "people",
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE client_slug = ?", client); err != nil {
				return fmt.Errorf("reset %s: %w", table, err)
			}
		}
		return nil
	})
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func queryPage[T any](ctx context.Context, s *Store, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func nullPerson(s sql.NullString) *generic.PersonID {
	if !s.Valid || s.String == "" {
		return nil
	}
	id := generic.PersonID(s.String)
	return &id
}

func nullDate(s sql.NullString) (*generic.TimePoint, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	tp, err := generic.ParseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &tp, nil
}

func dateArg(tp *generic.TimePoint) sql.NullString {
	if tp == nil || tp.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: tp.Key(), Valid: true}
}

func personArg(id *generic.PersonID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return nullString(string(*id))
}
