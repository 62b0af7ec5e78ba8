package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/signalhunt/market/pkg/models"
	"github.com/signalhunt/market/pkg/repository"
)

const bidCols = `id, listing_id, bidder_id, owner_id, amount, message, preferred_time, status, created_at`

func (r *SQLiteRepo) CreateBid(ctx context.Context, b *models.Bid) error {
	if b == nil {
		return fmt.Errorf("bid is nil")
	}

	b.CreatedAt = now()
	_, err := r.conn.Exec(ctx,
		`INSERT INTO bids (id, listing_id, bidder_id, owner_id, amount, message, preferred_time, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.ListingID, b.BidderID, b.OwnerID, b.Amount, b.Message, b.PreferredTime, b.Status, b.CreatedAt)
	return mapErr(err)
}

func (r *SQLiteRepo) GetBid(ctx context.Context, id string) (*models.Bid, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+bidCols+` FROM bids WHERE id = ?`, id)
	var b models.Bid
	if err := row.Scan(&b.ID, &b.ListingID, &b.BidderID, &b.OwnerID, &b.Amount, &b.Message, &b.PreferredTime, &b.Status, &b.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &b, nil
}

func (r *SQLiteRepo) ListBidsByOwner(ctx context.Context, ownerID, status string, limit, offset int) ([]models.Bid, error) {
	q := `SELECT ` + bidCols + ` FROM bids WHERE owner_id = ?`
	args := []any{ownerID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, normLimit(limit), normOffset(offset))

	return r.queryBids(ctx, q, args...)
}

func (r *SQLiteRepo) ListBidsByBidder(ctx context.Context, bidderID string, limit, offset int) ([]models.Bid, error) {
	q := `SELECT ` + bidCols + ` FROM bids WHERE bidder_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`
	return r.queryBids(ctx, q, bidderID, normLimit(limit), normOffset(offset))
}

// AcceptBid moves the bid pending->accepted and inserts the meeting in a
// single transaction. The status change is conditional on status=pending; if
// no row matches, the whole transaction rolls back with ErrConditionFailed so
// an accepted bid can never exist without its meeting, nor a meeting without
// an accepted bid.
func (r *SQLiteRepo) AcceptBid(ctx context.Context, bidID string, m *models.Meeting) error {
	if m == nil {
		return fmt.Errorf("meeting is nil")
	}

	tx, err := r.conn.GetConn().BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `UPDATE bids SET status = ? WHERE id = ? AND status = ?`, models.BidAccepted, bidID, models.BidPending)
	if err != nil {
		_ = tx.Rollback()
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if n == 0 {
		_ = tx.Rollback()
		return repository.ErrConditionFailed
	}

	m.CreatedAt = now()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meetings (id, bid_id, host_id, guest_id, status, scheduled_at, meeting_link, notes, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.BidID, m.HostID, m.GuestID, m.Status, m.ScheduledAt, m.MeetingLink, m.Notes, m.CreatedAt); err != nil {
		_ = tx.Rollback()
		return mapErr(err)
	}

	return tx.Commit()
}

func (r *SQLiteRepo) RejectBid(ctx context.Context, bidID string) error {
	res, err := r.conn.Exec(ctx, `UPDATE bids SET status = ? WHERE id = ? AND status = ?`, models.BidRejected, bidID, models.BidPending)
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

func (r *SQLiteRepo) CountBidsByOwner(ctx context.Context, ownerID, status string) (int64, error) {
	row := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM bids WHERE owner_id = ? AND status = ?`, ownerID, status)
	var cnt int64
	if err := row.Scan(&cnt); err != nil {
		return 0, err
	}
	return cnt, nil
}

func (r *SQLiteRepo) SumAcceptedAmountByOwner(ctx context.Context, ownerID string, since int64) (int64, error) {
	row := r.conn.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM bids WHERE owner_id = ? AND status = ? AND created_at >= ?`, ownerID, models.BidAccepted, since)
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *SQLiteRepo) queryBids(ctx context.Context, q string, args ...any) ([]models.Bid, error) {
	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Bid
	for rows.Next() {
		var b models.Bid
		if err := rows.Scan(&b.ID, &b.ListingID, &b.BidderID, &b.OwnerID, &b.Amount, &b.Message, &b.PreferredTime, &b.Status, &b.CreatedAt); err != nil {
			return nil, err
		}

		out = append(out, b)
	}

	return out, rows.Err()
}

func normLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}

func normOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
