package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/abrezinsky/chanceraffle/internal/models"
)

// ==================== Settings Methods ====================

// GetSettings reads the singleton settings row
func (r *Repository) GetSettings(ctx context.Context) (*models.Settings, error) {
	var (
		s             models.Settings
		overflowStart sql.NullTime
		winnerID      sql.NullString
		winnerDrawnAt sql.NullTime
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT campaign_name, prize_description, cash_value, is_active, overflow_enabled,
			overflow_start_time, overflow_duration_minutes, winner_entry_id, winner_drawn_at, updated_at
		FROM raffle_settings WHERE id = 1
	`).Scan(&s.CampaignName, &s.PrizeDescription, &s.CashValue, &s.IsActive, &s.OverflowEnabled,
		&overflowStart, &s.OverflowDurationMinutes, &winnerID, &winnerDrawnAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSettingsMissing
	}
	if err != nil {
		return nil, err
	}

	if overflowStart.Valid {
		t := overflowStart.Time
		s.OverflowStartTime = &t
	}
	if winnerID.Valid {
		id := winnerID.String
		s.WinnerEntryID = &id
	}
	if winnerDrawnAt.Valid {
		t := winnerDrawnAt.Time
		s.WinnerDrawnAt = &t
	}
	return &s, nil
}

// InitSettings creates the settings row if it does not exist yet.
// It reports whether a row was created.
func (r *Repository) InitSettings(ctx context.Context, s models.Settings) (bool, error) {
	var count int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM raffle_settings`).Scan(&count); err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO raffle_settings (id, campaign_name, prize_description, cash_value, is_active,
			overflow_enabled, overflow_duration_minutes, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
	`, s.CampaignName, s.PrizeDescription, s.CashValue, s.IsActive, s.OverflowEnabled,
		s.OverflowDurationMinutes, s.UpdatedAt.UTC())
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateSettings writes the administrator-editable fields. The overflow start
// time and winner fields are owned by ArmOverflow and SetWinner.
func (r *Repository) UpdateSettings(ctx context.Context, s *models.Settings) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE raffle_settings SET campaign_name = ?, prize_description = ?, cash_value = ?,
			is_active = ?, overflow_enabled = ?, overflow_duration_minutes = ?, updated_at = ?
		WHERE id = 1
	`, s.CampaignName, s.PrizeDescription, s.CashValue, s.IsActive, s.OverflowEnabled,
		s.OverflowDurationMinutes, s.UpdatedAt.UTC())
	if err != nil {
		return err
	}
	return requireOneRow(result, ErrSettingsMissing)
}

// ArmOverflow enables overflow and records its start time if the window has
// never been opened. It reports whether this call armed it.
func (r *Repository) ArmOverflow(ctx context.Context, now time.Time) (bool, error) {
	result, err := r.q.ExecContext(ctx, `
		UPDATE raffle_settings SET overflow_enabled = ?, overflow_start_time = ?, updated_at = ?
		WHERE id = 1 AND overflow_start_time IS NULL
	`, true, now.UTC(), now.UTC())
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetWinner records the drawn entry. It fails with ErrWinnerAlreadySet when a
// winner is already stored.
func (r *Repository) SetWinner(ctx context.Context, entryID string, at time.Time) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE raffle_settings SET winner_entry_id = ?, winner_drawn_at = ?, updated_at = ?
		WHERE id = 1 AND winner_entry_id IS NULL
	`, entryID, at.UTC(), at.UTC())
	if err != nil {
		return err
	}
	return requireOneRow(result, ErrWinnerAlreadySet)
}

func requireOneRow(result sql.Result, otherwise error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return otherwise
	}
	return nil
}
