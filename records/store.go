package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrStoreUnavailable marks a hard store failure (file or table missing,
// database unreachable) as opposed to a soft lookup miss.
var ErrStoreUnavailable = errors.New("records store unavailable")

// Store wraps SQLite access to case records.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tax_records (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            nric TEXT NOT NULL,
            case_number TEXT NOT NULL,
            record_date TEXT,
            description TEXT,
            year_of_assessment INTEGER,
            payable REAL,
            paid REAL,
            balance REAL,
            hold_date TEXT,
            hold_bank TEXT,
            hold_amount REAL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_records_case ON tax_records(nric, case_number);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Resolve loads all rows for the (identity, case reference) pair and projects
// them into a CaseSummary. Returns (nil, nil) when no row matches. Resolution
// is idempotent and side-effect-free; callers re-resolve every turn so the
// summary is never stale.
func (s *Store) Resolve(ctx context.Context, identity, caseRef string) (*CaseSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record_date, description, year_of_assessment, payable, paid, balance, hold_date, hold_bank, hold_amount
        FROM tax_records WHERE nric = ? AND case_number = ? ORDER BY id ASC`, identity, caseRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var date, desc, holdDate, holdBank sql.NullString
		var year sql.NullInt64
		var payable, paid, balance, holdAmount sql.NullFloat64
		if err := rows.Scan(&date, &desc, &year, &payable, &paid, &balance, &holdDate, &holdBank, &holdAmount); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		rec.Date = date.String
		rec.Description = desc.String
		rec.AssessmentYear = int(year.Int64)
		rec.Payable = payable.Float64
		rec.Paid = paid.Float64
		rec.Balance = balance.Float64
		rec.HoldDate = strings.TrimSpace(holdDate.String)
		rec.HoldBank = strings.ToUpper(strings.TrimSpace(holdBank.String))
		rec.HoldAmount = holdAmount.Float64
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return project(out), nil
}

// project builds the summary: sums across rows, latest balance as stored,
// latest row with a hold date wins.
func project(rows []Record) *CaseSummary {
	sum := &CaseSummary{
		Rows:       rows,
		ResolvedAt: time.Now().UTC(),
	}
	for _, rec := range rows {
		sum.TotalPayable += rec.Payable
		sum.TotalPaid += rec.Paid
	}
	sum.CurrentBalance = rows[len(rows)-1].Balance
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].HoldDate != "" {
			sum.Hold = &HoldDetail{
				Institution:    rows[i].HoldBank,
				Amount:         rows[i].HoldAmount,
				Date:           rows[i].HoldDate,
				AssessmentYear: rows[i].AssessmentYear,
			}
			break
		}
	}
	return sum
}

// Insert adds one row. Exposed for import and tests; the workflow itself never
// writes.
func (s *Store) Insert(ctx context.Context, identity, caseRef string, rec Record) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO tax_records(nric, case_number, record_date, description, year_of_assessment, payable, paid, balance, hold_date, hold_bank, hold_amount)
        VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		identity, caseRef, rec.Date, rec.Description, rec.AssessmentYear, rec.Payable, rec.Paid, rec.Balance, rec.HoldDate, rec.HoldBank, rec.HoldAmount)
	return err
}

// ReplaceCase swaps all rows for a case in one transaction, used by CSV import
// so a half-written import is never visible to a resolve.
func (s *Store) ReplaceCase(ctx context.Context, identity, caseRef string, recs []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM tax_records WHERE nric = ? AND case_number = ?`, identity, caseRef); err != nil {
		return err
	}
	for _, rec := range recs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tax_records(nric, case_number, record_date, description, year_of_assessment, payable, paid, balance, hold_date, hold_bank, hold_amount)
            VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
			identity, caseRef, rec.Date, rec.Description, rec.AssessmentYear, rec.Payable, rec.Paid, rec.Balance, rec.HoldDate, rec.HoldBank, rec.HoldAmount); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Health returns err if the store is not reachable.
func (s *Store) Health(ctx context.Context) error {
	row := s.db.QueryRowContext(ctx, `SELECT 1`)
	var v int
	if err := row.Scan(&v); err != nil {
		return fmt.Errorf("store health: %w", err)
	}
	return nil
}
