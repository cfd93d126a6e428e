package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// postgresStore persists sessions durably so in-flight conversations
// survive a process restart.
type postgresStore struct {
	db   *sqlx.DB
	opts Options
	now  func() time.Time
}

// NewPostgresStore constructs a Postgres-backed Store implementation.
func NewPostgresStore(db *sqlx.DB, opts Options) Store {
	return &postgresStore{db: db, opts: opts, now: time.Now}
}

type sessionRow struct {
	ID          string    `db:"id"`
	CallerID    string    `db:"caller_id"`
	CurrentNode string    `db:"current_node"`
	Fields      []byte    `db:"fields"`
	Page        int       `db:"page"`
	Retries     int       `db:"retries"`
	Recent      []byte    `db:"recent"`
	Status      string    `db:"status"`
	LastReply   string    `db:"last_reply"`
	CreatedAt   time.Time `db:"created_at"`
	LastSeenAt  time.Time `db:"last_seen_at"`
}

func (r *sessionRow) toSession() (*Session, error) {
	s := &Session{
		ID:          r.ID,
		CallerID:    r.CallerID,
		CurrentNode: r.CurrentNode,
		Page:        r.Page,
		Retries:     r.Retries,
		Status:      Status(r.Status),
		LastReply:   r.LastReply,
		CreatedAt:   r.CreatedAt,
		LastSeenAt:  r.LastSeenAt,
	}
	if len(r.Fields) > 0 {
		if err := json.Unmarshal(r.Fields, &s.Fields); err != nil {
			return nil, fmt.Errorf("session: decode fields: %w", err)
		}
	}
	if len(r.Recent) > 0 {
		if err := json.Unmarshal(r.Recent, &s.Recent); err != nil {
			return nil, fmt.Errorf("session: decode recent: %w", err)
		}
	}
	return s, nil
}

func rowFrom(s *Session) (*sessionRow, error) {
	fields, err := json.Marshal(s.Fields)
	if err != nil {
		return nil, fmt.Errorf("session: encode fields: %w", err)
	}
	recent, err := json.Marshal(s.Recent)
	if err != nil {
		return nil, fmt.Errorf("session: encode recent: %w", err)
	}
	return &sessionRow{
		ID:          s.ID,
		CallerID:    s.CallerID,
		CurrentNode: s.CurrentNode,
		Fields:      fields,
		Page:        s.Page,
		Retries:     s.Retries,
		Recent:      recent,
		Status:      string(s.Status),
		LastReply:   s.LastReply,
		CreatedAt:   s.CreatedAt,
		LastSeenAt:  s.LastSeenAt,
	}, nil
}

func (p *postgresStore) LoadOrCreate(ctx context.Context, id, caller string) (*Session, error) {
	now := p.now()

	var row sessionRow
	err := p.db.GetContext(ctx, &row, `
		SELECT id, caller_id, current_node, fields, page, retries, recent,
		       status, last_reply, created_at, last_seen_at
		FROM sessions WHERE id = $1`, id)
	switch {
	case err == nil:
		s, decErr := row.toSession()
		if decErr != nil {
			return nil, decErr
		}
		if !s.IdleAt(now, p.opts.IdleTimeout) {
			return s, nil
		}
		// idle past timeout: replace with a fresh conversation
		fresh := New(id, caller, p.opts.RootNode, now)
		if saveErr := p.Save(ctx, fresh); saveErr != nil {
			return nil, saveErr
		}
		return fresh, nil

	case errors.Is(err, sql.ErrNoRows):
		fresh := New(id, caller, p.opts.RootNode, now)
		if saveErr := p.Save(ctx, fresh); saveErr != nil {
			return nil, saveErr
		}
		return fresh, nil

	default:
		return nil, fmt.Errorf("session: load %s: %w", id, err)
	}
}

func (p *postgresStore) Save(ctx context.Context, s *Session) error {
	row, err := rowFrom(s)
	if err != nil {
		return err
	}
	_, err = p.db.NamedExecContext(ctx, `
		INSERT INTO sessions (id, caller_id, current_node, fields, page, retries,
		                      recent, status, last_reply, created_at, last_seen_at)
		VALUES (:id, :caller_id, :current_node, :fields, :page, :retries,
		        :recent, :status, :last_reply, :created_at, :last_seen_at)
		ON CONFLICT (id) DO UPDATE SET
			caller_id = EXCLUDED.caller_id,
			current_node = EXCLUDED.current_node,
			fields = EXCLUDED.fields,
			page = EXCLUDED.page,
			retries = EXCLUDED.retries,
			recent = EXCLUDED.recent,
			status = EXCLUDED.status,
			last_reply = EXCLUDED.last_reply,
			created_at = EXCLUDED.created_at,
			last_seen_at = EXCLUDED.last_seen_at`, row)
	if err != nil {
		return fmt.Errorf("session: save %s: %w", s.ID, err)
	}
	return nil
}

// terminalRetention is how many idle timeouts a finished row is kept before
// the sweep deletes it. Long enough for any redelivery replay, short enough
// that the table does not grow without bound.
const terminalRetention = 10

func (p *postgresStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	if p.opts.IdleTimeout <= 0 {
		return 0, nil
	}
	cutoff := now.Add(-p.opts.IdleTimeout)
	res, err := p.db.ExecContext(ctx, `
		UPDATE sessions SET status = $1
		WHERE status = $2 AND last_seen_at < $3`,
		string(StatusExpired), string(StatusActive), cutoff)
	if err != nil {
		return 0, fmt.Errorf("session: sweep: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("session: sweep: %w", err)
	}

	purgeCutoff := now.Add(-terminalRetention * p.opts.IdleTimeout)
	if _, err := p.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE status <> $1 AND last_seen_at < $2`,
		string(StatusActive), purgeCutoff); err != nil {
		return int(n), fmt.Errorf("session: purge: %w", err)
	}
	return int(n), nil
}

func (p *postgresStore) Close() error {
	// connection pool is owned by bootstrap
	return nil
}
