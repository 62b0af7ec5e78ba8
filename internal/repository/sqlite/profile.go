package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/signalhunt/market/pkg/models"
)

func (r *SQLiteRepo) CreateProfile(ctx context.Context, p *models.Profile) error {
	if p == nil {
		return fmt.Errorf("profile is nil")
	}

	meta, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	ts := now()
	p.Created = ts
	p.Updated = ts
	_, err = r.conn.Exec(ctx,
		`INSERT INTO profiles (id, role, full_name, email, password_hash, company, verified, metadata, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Role, p.FullName, p.Email, p.PasswordHash, p.Company, boolToInt(p.Verified), string(meta), ts, ts)
	return mapErr(err)
}

func (r *SQLiteRepo) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, role, full_name, email, password_hash, company, verified, metadata, created, updated FROM profiles WHERE id = ?`, id)
	return scanProfile(row)
}

func (r *SQLiteRepo) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, role, full_name, email, password_hash, company, verified, metadata, created, updated FROM profiles WHERE email = ?`, email)
	return scanProfile(row)
}

// UpdateProfile writes mutable fields only. Role is immutable and deliberately
// absent from the SET list.
func (r *SQLiteRepo) UpdateProfile(ctx context.Context, p *models.Profile) error {
	if p == nil {
		return fmt.Errorf("profile is nil")
	}

	meta, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.conn.Exec(ctx,
		`UPDATE profiles SET full_name = ?, company = ?, verified = ?, metadata = ?, updated = ? WHERE id = ?`,
		p.FullName, p.Company, boolToInt(p.Verified), string(meta), now(), p.ID)
	return mapErr(err)
}

func scanProfile(row *sql.Row) (*models.Profile, error) {
	var p models.Profile
	var verified int
	var meta string
	if err := row.Scan(&p.ID, &p.Role, &p.FullName, &p.Email, &p.PasswordHash, &p.Company, &verified, &meta, &p.Created, &p.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	p.Verified = verified != 0
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &p.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
