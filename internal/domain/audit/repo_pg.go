package audit

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carehub/carehub/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const eventCols = `id, user_id, user_role, action, resource_type, resource_id,
	method, path, ip_address, user_agent, request_id, status_code, occurred_at`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.UserID, &e.UserRole, &e.Action, &e.ResourceType, &e.ResourceID,
		&e.Method, &e.Path, &e.IPAddress, &e.UserAgent, &e.RequestID, &e.StatusCode, &e.OccurredAt)
	return &e, err
}

func (r *repoPG) Create(ctx context.Context, e *Event) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO audit_events (id, user_id, user_role, action, resource_type, resource_id,
			method, path, ip_address, user_agent, request_id, status_code, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		e.ID, e.UserID, e.UserRole, e.Action, e.ResourceType, e.ResourceID,
		e.Method, e.Path, e.IPAddress, e.UserAgent, e.RequestID, e.StatusCode, e.OccurredAt)
	return err
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Event, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where += " AND user_id = $" + strconv.Itoa(len(args))
	}
	if f.ResourceType != "" {
		args = append(args, f.ResourceType)
		where += " AND resource_type = $" + strconv.Itoa(len(args))
	}
	if f.Action != "" {
		args = append(args, f.Action)
		where += " AND action = $" + strconv.Itoa(len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_events`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+eventCols+` FROM audit_events`+where+
			` ORDER BY occurred_at DESC LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
