package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendervault/tendervault/internal/domain"
)

type TenderStore struct {
	db *pgxpool.Pool
}

func NewTenderStore(db *pgxpool.Pool) *TenderStore { return &TenderStore{db: db} }

const tenderColumns = `tender_id, title, description, deadline, created_by, status, created_at, updated_at`

func scanTender(row pgx.Row) (domain.Tender, error) {
	var t domain.Tender
	err := row.Scan(&t.TenderID, &t.Title, &t.Description, &t.Deadline, &t.CreatedBy, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Tender{}, ErrNotFound
		}
		return domain.Tender{}, err
	}
	return t, nil
}

func (s *TenderStore) Create(ctx context.Context, t domain.Tender) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO tenders(`+tenderColumns+`)
VALUES($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.TenderID, t.Title, t.Description, t.Deadline, t.CreatedBy, t.Status, t.CreatedAt, t.UpdatedAt)
	return err
}

func (s *TenderStore) Get(ctx context.Context, tenderID string) (domain.Tender, error) {
	return scanTender(s.db.QueryRow(ctx, `
SELECT `+tenderColumns+` FROM tenders WHERE tender_id=$1`, tenderID))
}

// List returns every tender ordered by deadline ascending; role-based
// visibility is applied by the caller on the derived status.
func (s *TenderStore) List(ctx context.Context) ([]domain.Tender, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+tenderColumns+` FROM tenders ORDER BY deadline ASC, tender_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Tender
	for rows.Next() {
		t, err := scanTender(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TenderUpdate is a partial update; nil fields are left untouched.
type TenderUpdate struct {
	Title       *string
	Description *string
	Deadline    *time.Time
	Status      *domain.TenderStatus
}

// Fields names the populated fields, for the audit record.
func (u TenderUpdate) Fields() []string {
	var out []string
	if u.Title != nil {
		out = append(out, "title")
	}
	if u.Description != nil {
		out = append(out, "description")
	}
	if u.Deadline != nil {
		out = append(out, "deadline")
	}
	if u.Status != nil {
		out = append(out, "status")
	}
	return out
}

func (s *TenderStore) Update(ctx context.Context, tenderID string, upd TenderUpdate, now time.Time) (domain.Tender, error) {
	set := []string{"updated_at=$2"}
	args := []any{tenderID, now}
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Deadline != nil {
		add("deadline", *upd.Deadline)
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}

	return scanTender(s.db.QueryRow(ctx, `
UPDATE tenders SET `+strings.Join(set, ", ")+`
WHERE tender_id=$1
RETURNING `+tenderColumns, args...))
}

func (s *TenderStore) Delete(ctx context.Context, tenderID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM tenders WHERE tender_id=$1`, tenderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
