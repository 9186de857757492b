package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// DueReportSetting is a due setting joined with its owner. User is nil when
// the owning account no longer exists.
type DueReportSetting struct {
	Setting core.ReportSetting
	User    *core.User
}

const settingColumns = `s.id, s.user_id, s.is_enabled, s.frequency, s.last_sent_date_ms,
	s.next_report_date_ms, s.updated_at_ms`

type settingRow struct {
	setting            core.ReportSetting
	enabled            int64
	lastSentMs, nextMs sql.NullInt64
	updatedMs          int64
}

func (sr *settingRow) dest() []any {
	return []any{&sr.setting.ID, &sr.setting.UserID, &sr.enabled, &sr.setting.Frequency,
		&sr.lastSentMs, &sr.nextMs, &sr.updatedMs}
}

func (sr *settingRow) value() core.ReportSetting {
	s := sr.setting
	s.IsEnabled = sr.enabled == 1
	s.LastSentDate = timePtr(sr.lastSentMs)
	s.NextReportDate = timePtr(sr.nextMs)
	s.UpdatedAt = fromMillis(sr.updatedMs)
	return s
}

// CreateReportSetting inserts the per-user setting. A second setting for the
// same user violates the unique constraint.
func (r *SQLiteRepository) CreateReportSetting(ctx context.Context, s core.ReportSetting, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO report_settings
		(id, user_id, is_enabled, frequency, last_sent_date_ms, next_report_date_ms, created_at_ms, updated_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, boolInt(s.IsEnabled), string(s.Frequency),
		nullMillis(s.LastSentDate), nullMillis(s.NextReportDate), toMillis(now), toMillis(now))
	if err != nil {
		return fmt.Errorf("insert report setting for %s: %w", s.UserID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetReportSetting(ctx context.Context, userID string) (core.ReportSetting, error) {
	var sr settingRow
	err := r.db.QueryRowContext(ctx,
		`SELECT `+settingColumns+` FROM report_settings s WHERE s.user_id = ?`, userID).
		Scan(sr.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ReportSetting{}, fmt.Errorf("report setting for %s: %w", userID, core.ErrNotFound)
	}
	if err != nil {
		return core.ReportSetting{}, fmt.Errorf("get report setting for %s: %w", userID, err)
	}
	return sr.value(), nil
}

// UpdateReportSetting writes the user-editable preference fields.
func (r *SQLiteRepository) UpdateReportSetting(ctx context.Context, s core.ReportSetting, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE report_settings
		SET is_enabled = ?, frequency = ?, next_report_date_ms = ?, updated_at_ms = ?
		WHERE id = ?`,
		boolInt(s.IsEnabled), string(s.Frequency), nullMillis(s.NextReportDate), toMillis(now), s.ID)
	if err != nil {
		return fmt.Errorf("update report setting %s: %w", s.ID, err)
	}
	return expectOne(res, "report setting "+s.ID)
}

// DueReportSettings streams enabled settings whose next report date is at or
// before now, each resolved to its owning user.
func (r *SQLiteRepository) DueReportSettings(now time.Time) *Cursor[DueReportSetting] {
	nowMs := toMillis(now)
	return newCursor(r.pageSize,
		func(d DueReportSetting) string { return d.Setting.ID },
		func(ctx context.Context, after string, limit int) ([]DueReportSetting, error) {
			rows, err := r.db.QueryContext(ctx, `SELECT `+settingColumns+`, u.id, u.name, u.email
				FROM report_settings s
				LEFT JOIN users u ON u.id = s.user_id
				WHERE s.is_enabled = 1
				  AND s.next_report_date_ms IS NOT NULL
				  AND s.next_report_date_ms <= ?
				  AND s.id > ?
				ORDER BY s.id
				LIMIT ?`, nowMs, after, limit)
			if err != nil {
				return nil, fmt.Errorf("query due report settings: %w", err)
			}
			defer rows.Close()

			page := make([]DueReportSetting, 0, limit)
			for rows.Next() {
				var (
					sr                 settingRow
					uid, uname, uemail sql.NullString
				)
				if err := rows.Scan(append(sr.dest(), &uid, &uname, &uemail)...); err != nil {
					return nil, fmt.Errorf("scan report setting: %w", err)
				}
				due := DueReportSetting{Setting: sr.value()}
				if uid.Valid {
					due.User = &core.User{ID: uid.String, Name: uname.String, Email: uemail.String}
				}
				page = append(page, due)
			}
			return page, rows.Err()
		})
}

// ReportOutcome is the per-setting write set of one report cycle.
type ReportOutcome struct {
	Report         core.Report
	SettingID      string
	LastSentDate   *time.Time // nil keeps the stored value
	NextReportDate time.Time
}

// RecordReportOutcome writes the audit record and advances the setting in one
// transaction.
func (r *SQLiteRepository) RecordReportOutcome(ctx context.Context, o ReportOutcome) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO reports
			(id, user_id, sent_date_ms, period, status, created_at_ms)
			VALUES (?, ?, ?, ?, ?, ?)`,
			o.Report.ID, o.Report.UserID, toMillis(o.Report.SentDate), o.Report.Period,
			string(o.Report.Status), toMillis(o.Report.SentDate))
		if err != nil {
			return fmt.Errorf("insert report for %s: %w", o.Report.UserID, err)
		}

		res, err := tx.ExecContext(ctx, `UPDATE report_settings
			SET last_sent_date_ms = COALESCE(?, last_sent_date_ms),
			    next_report_date_ms = ?,
			    updated_at_ms = ?
			WHERE id = ?`,
			nullMillis(o.LastSentDate), toMillis(o.NextReportDate), toMillis(o.Report.SentDate), o.SettingID)
		if err != nil {
			return fmt.Errorf("advance report setting %s: %w", o.SettingID, err)
		}
		return expectOne(res, "report setting "+o.SettingID)
	})
}

// ListReports returns one page of a user's audit records, newest first, and
// the total count.
func (r *SQLiteRepository) ListReports(ctx context.Context, userID string, limit, offset int) ([]core.Report, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reports WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, sent_date_ms, period, status
		FROM reports WHERE user_id = ?
		ORDER BY created_at_ms DESC, id
		LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []core.Report
	for rows.Next() {
		var (
			rep    core.Report
			sentMs int64
		)
		if err := rows.Scan(&rep.ID, &rep.UserID, &sentMs, &rep.Period, &rep.Status); err != nil {
			return nil, 0, fmt.Errorf("scan report: %w", err)
		}
		rep.SentDate = fromMillis(sentMs)
		out = append(out, rep)
	}
	return out, total, rows.Err()
}
