package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/abrezinsky/chanceraffle/internal/models"
)

// ==================== Entry Methods ====================

const entryColumns = `id, assigned_number, entry_kind, amount_charged, payment_ref, status,
	name, email, phone, notes, created_at, updated_at`

// activeStatuses is the SQL list of statuses that hold a number
const activeStatuses = `('PENDING', 'CONFIRMED')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		e          models.Entry
		kind       string
		status     string
		paymentRef sql.NullString
		notes      sql.NullString
	)
	err := row.Scan(&e.ID, &e.AssignedNumber, &kind, &e.AmountCharged, &paymentRef, &status,
		&e.Name, &e.Email, &e.Phone, &notes, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Kind = models.EntryKind(kind)
	e.Status = models.EntryStatus(status)
	if paymentRef.Valid {
		ref := paymentRef.String
		e.PaymentRef = &ref
	}
	e.Notes = notes.String
	return &e, nil
}

func (r *Repository) queryEntries(ctx context.Context, query string, args ...any) ([]models.Entry, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// InsertEntry stores a new entry row
func (r *Repository) InsertEntry(ctx context.Context, e *models.Entry) error {
	var paymentRef, notes sql.NullString
	if e.PaymentRef != nil {
		paymentRef = sql.NullString{String: *e.PaymentRef, Valid: true}
	}
	if e.Notes != "" {
		notes = sql.NullString{String: e.Notes, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.AssignedNumber, string(e.Kind), e.AmountCharged, paymentRef, string(e.Status),
		e.Name, e.Email, e.Phone, notes, e.CreatedAt.UTC(), e.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("number %d: %w", e.AssignedNumber, ErrDuplicateNumber)
		}
		return err
	}
	return nil
}

// GetEntry retrieves an entry by id
func (r *Repository) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return e, err
}

// UpdateEntryStatus moves an entry from one status to another. It fails with
// ErrStatusConflict when the entry is no longer in the expected status.
func (r *Repository) UpdateEntryStatus(ctx context.Context, id string, from, to models.EntryStatus, at time.Time) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE entries SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), at.UTC(), id, string(from))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateNumber
		}
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var exists int
	err = r.q.QueryRowContext(ctx, `SELECT 1 FROM entries WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrStatusConflict
}

// TakenNumbers returns every number held by a PENDING or CONFIRMED entry, ascending
func (r *Repository) TakenNumbers(ctx context.Context) ([]int, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT assigned_number FROM entries WHERE status IN `+activeStatuses+` ORDER BY assigned_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var numbers []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

// CountTakenPrimary counts distinct primary-range numbers held by active entries
func (r *Repository) CountTakenPrimary(ctx context.Context) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT assigned_number) FROM entries
		WHERE status IN `+activeStatuses+` AND assigned_number BETWEEN 1 AND ?
	`, models.PrimaryPoolSize).Scan(&count)
	return count, err
}

// MaxOverflowNumber returns the highest number ever issued to an overflow
// entry in any status, or the primary pool size when none exist
func (r *Repository) MaxOverflowNumber(ctx context.Context) (int, error) {
	var max int
	err := r.q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(assigned_number), ?) FROM entries WHERE entry_kind = ?`,
		models.PrimaryPoolSize, string(models.KindOverflow)).Scan(&max)
	return max, err
}

// ListConfirmedEntries returns the winner-eligible entries ordered by number
func (r *Repository) ListConfirmedEntries(ctx context.Context) ([]models.Entry, error) {
	return r.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE status = ? ORDER BY assigned_number`,
		string(models.StatusConfirmed))
}

// ListEntries returns all entries, newest first
func (r *Repository) ListEntries(ctx context.Context) ([]models.Entry, error) {
	return r.queryEntries(ctx, `SELECT `+entryColumns+` FROM entries ORDER BY created_at DESC, id`)
}

// ListStalePending returns PENDING entries created before cutoff
func (r *Repository) ListStalePending(ctx context.Context, cutoff time.Time) ([]models.Entry, error) {
	return r.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE status = ? AND created_at < ? ORDER BY created_at`,
		string(models.StatusPending), cutoff.UTC())
}

// ListTakenNumbers returns the public board of occupied numbers
func (r *Repository) ListTakenNumbers(ctx context.Context) ([]models.TakenNumber, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT assigned_number, entry_kind FROM entries
		WHERE status IN `+activeStatuses+` ORDER BY assigned_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var taken []models.TakenNumber
	for rows.Next() {
		var (
			t    models.TakenNumber
			kind string
		)
		if err := rows.Scan(&t.Number, &kind); err != nil {
			return nil, err
		}
		t.Kind = models.EntryKind(kind)
		taken = append(taken, t)
	}
	return taken, rows.Err()
}

// CountActiveByKind counts PENDING and CONFIRMED entries per kind
func (r *Repository) CountActiveByKind(ctx context.Context) (map[models.EntryKind]int, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT entry_kind, COUNT(*) FROM entries
		WHERE status IN `+activeStatuses+` GROUP BY entry_kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.EntryKind]int)
	for rows.Next() {
		var (
			kind  string
			count int
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		counts[models.EntryKind(kind)] = count
	}
	return counts, rows.Err()
}
