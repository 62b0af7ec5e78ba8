package sqlite

import (
	"context"
	"database/sql"

	"github.com/signalhunt/market/pkg/models"
	"github.com/signalhunt/market/pkg/repository"
)

const meetingCols = `id, bid_id, host_id, guest_id, status, scheduled_at, meeting_link, notes, created_at`

func (r *SQLiteRepo) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+meetingCols+` FROM meetings WHERE id = ?`, id)
	return scanMeeting(row)
}

func (r *SQLiteRepo) GetMeetingByBid(ctx context.Context, bidID string) (*models.Meeting, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+meetingCols+` FROM meetings WHERE bid_id = ?`, bidID)
	return scanMeeting(row)
}

func (r *SQLiteRepo) ListMeetingsByHost(ctx context.Context, hostID string, limit, offset int) ([]models.Meeting, error) {
	q := `SELECT ` + meetingCols + ` FROM meetings WHERE host_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`
	return r.queryMeetings(ctx, q, hostID, normLimit(limit), normOffset(offset))
}

func (r *SQLiteRepo) ListMeetingsByGuest(ctx context.Context, guestID string, limit, offset int) ([]models.Meeting, error) {
	q := `SELECT ` + meetingCols + ` FROM meetings WHERE guest_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`
	return r.queryMeetings(ctx, q, guestID, normLimit(limit), normOffset(offset))
}

func (r *SQLiteRepo) SetMeetingStatus(ctx context.Context, id, fromStatus, toStatus string, scheduledAt *int64, meetingLink *string) error {
	q := `UPDATE meetings SET status = ?`
	args := []any{toStatus}
	if scheduledAt != nil {
		q += `, scheduled_at = ?`
		args = append(args, *scheduledAt)
	}
	if meetingLink != nil {
		q += `, meeting_link = ?`
		args = append(args, *meetingLink)
	}
	q += ` WHERE id = ? AND status = ?`
	args = append(args, id, fromStatus)

	res, err := r.conn.Exec(ctx, q, args...)
	if err != nil {
		return mapErr(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrConditionFailed
	}

	return nil
}

func (r *SQLiteRepo) CountMeetingsByHost(ctx context.Context, hostID, status string) (int64, error) {
	row := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM meetings WHERE host_id = ? AND status = ?`, hostID, status)
	var cnt int64
	if err := row.Scan(&cnt); err != nil {
		return 0, err
	}
	return cnt, nil
}

func scanMeeting(row *sql.Row) (*models.Meeting, error) {
	var m models.Meeting
	var scheduledAt sql.NullInt64
	var link, notes sql.NullString
	if err := row.Scan(&m.ID, &m.BidID, &m.HostID, &m.GuestID, &m.Status, &scheduledAt, &link, &notes, &m.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if scheduledAt.Valid {
		v := scheduledAt.Int64
		m.ScheduledAt = &v
	}
	if link.Valid {
		v := link.String
		m.MeetingLink = &v
	}
	if notes.Valid {
		v := notes.String
		m.Notes = &v
	}

	return &m, nil
}

func (r *SQLiteRepo) queryMeetings(ctx context.Context, q string, args ...any) ([]models.Meeting, error) {
	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Meeting
	for rows.Next() {
		var m models.Meeting
		var scheduledAt sql.NullInt64
		var link, notes sql.NullString
		if err := rows.Scan(&m.ID, &m.BidID, &m.HostID, &m.GuestID, &m.Status, &scheduledAt, &link, &notes, &m.CreatedAt); err != nil {
			return nil, err
		}

		if scheduledAt.Valid {
			v := scheduledAt.Int64
			m.ScheduledAt = &v
		}
		if link.Valid {
			v := link.String
			m.MeetingLink = &v
		}
		if notes.Valid {
			v := notes.String
			m.Notes = &v
		}
		out = append(out, m)
	}

	return out, rows.Err()
}
