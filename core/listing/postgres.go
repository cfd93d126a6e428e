package listing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// postgresRepo persists listings via sqlx.
type postgresRepo struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPostgresRepository constructs a Postgres-backed Repository.
func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepo{db: db, now: time.Now}
}

func (p *postgresRepo) Create(ctx context.Context, l *Listing) (string, error) {
	now := p.now()
	if l.ID == "" {
		l.ID = NewID()
	}
	if l.RoutingToken == "" {
		l.RoutingToken = NewID()
	}
	if l.Visibility == "" {
		l.Visibility = VisibilityHidden
	}
	l.ContactNumber = NormalizePhone(l.ContactNumber)
	l.CreatedAt = now
	l.UpdatedAt = now

	_, err := p.db.NamedExecContext(ctx, `
		INSERT INTO listings (id, village, category, name, description,
		                      contact_number, visibility, routing_token,
		                      owner_caller_id, created_at, updated_at)
		VALUES (:id, :village, :category, :name, :description,
		        :contact_number, :visibility, :routing_token,
		        :owner_caller_id, :created_at, :updated_at)`, l)
	if err != nil {
		return "", fmt.Errorf("listing: create: %w", err)
	}
	return l.ID, nil
}

func (p *postgresRepo) FindByVillageCategory(ctx context.Context, village, category string, page, perPage int) ([]Listing, bool, error) {
	if page < 0 {
		page = 0
	}
	if perPage <= 0 {
		perPage = 1
	}

	// fetch one extra row to detect a following page
	rows := make([]Listing, 0, perPage+1)
	err := p.db.SelectContext(ctx, &rows, `
		SELECT id, village, category, name, description, contact_number,
		       visibility, routing_token, owner_caller_id, created_at, updated_at
		FROM listings
		WHERE village = $1
		  AND (category = $2 OR (category = $3 AND $2 = $4))
		ORDER BY created_at DESC
		LIMIT $5 OFFSET $6`,
		village, category, CategoryTransport, CategoryTransportPickups,
		perPage+1, page*perPage)
	if err != nil {
		return nil, false, fmt.Errorf("listing: find %s/%s: %w", village, category, err)
	}

	more := len(rows) > perPage
	if more {
		rows = rows[:perPage]
	}
	return rows, more, nil
}

func (p *postgresRepo) ContactForRouting(ctx context.Context, id string) (string, bool, error) {
	var l Listing
	err := p.db.GetContext(ctx, &l, `
		SELECT id, village, category, name, description, contact_number,
		       visibility, routing_token, owner_caller_id, created_at, updated_at
		FROM listings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, ErrNotFound
	}
	if err != nil {
		return "", false, fmt.Errorf("listing: load %s: %w", id, err)
	}
	v, routed := contactValue(&l)
	return v, routed, nil
}

func (p *postgresRepo) Close() error {
	// connection pool is owned by bootstrap
	return nil
}
