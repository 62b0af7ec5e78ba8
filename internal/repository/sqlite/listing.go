package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/signalhunt/market/pkg/models"
	"github.com/signalhunt/market/pkg/repository"
)

const listingCols = `id, user_id, type, title, description, price, tags, status, created, updated`

func (r *SQLiteRepo) CreateListing(ctx context.Context, l *models.Listing) error {
	if l == nil {
		return fmt.Errorf("listing is nil")
	}

	tags, err := json.Marshal(l.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	ts := now()
	l.Created = ts
	l.Updated = ts
	_, err = r.conn.Exec(ctx,
		`INSERT INTO listings (id, user_id, type, title, description, price, tags, status, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.UserID, l.Type, l.Title, l.Description, l.Price, string(tags), l.Status, ts, ts)
	return mapErr(err)
}

func (r *SQLiteRepo) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+listingCols+` FROM listings WHERE id = ?`, id)
	return scanListing(row)
}

func (r *SQLiteRepo) GetActiveListingByOwner(ctx context.Context, ownerID string) (*models.Listing, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+listingCols+` FROM listings WHERE user_id = ? AND status != ? ORDER BY created DESC LIMIT 1`, ownerID, models.ListingDeleted)
	return scanListing(row)
}

func (r *SQLiteRepo) ListListings(ctx context.Context, status string, limit, offset int) ([]models.Listing, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT `+listingCols+` FROM listings WHERE status = ? ORDER BY created DESC LIMIT ? OFFSET ?`, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Listing
	for rows.Next() {
		l, err := scanListingRows(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *l)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) UpdateListing(ctx context.Context, l *models.Listing) error {
	if l == nil {
		return fmt.Errorf("listing is nil")
	}

	tags, err := json.Marshal(l.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	res, err := r.conn.Exec(ctx,
		`UPDATE listings SET title = ?, description = ?, price = ?, tags = ?, updated = ? WHERE id = ?`,
		l.Title, l.Description, l.Price, string(tags), now(), l.ID)
	if err != nil {
		return mapErr(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetListingStatus performs the transition as a conditional update so two
// concurrent callers cannot both win.
func (r *SQLiteRepo) SetListingStatus(ctx context.Context, id, fromStatus, toStatus string) error {
	res, err := r.conn.Exec(ctx, `UPDATE listings SET status = ?, updated = ? WHERE id = ? AND status = ?`, toStatus, now(), id, fromStatus)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row *sql.Row) (*models.Listing, error) {
	l, err := scanListingRows(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, err
}

func scanListingRows(s rowScanner) (*models.Listing, error) {
	var l models.Listing
	var tags string
	if err := s.Scan(&l.ID, &l.UserID, &l.Type, &l.Title, &l.Description, &l.Price, &tags, &l.Status, &l.Created, &l.Updated); err != nil {
		return nil, err
	}

	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &l.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}

	return &l, nil
}
