package billing

import (
	"context"
	"errors"
	"strconv"
	"time"

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

const invoiceCols = `i.id, i.patient_id, i.appointment_id, i.amount_cents, i.currency,
	i.description, i.status, i.due_date, i.provider_charge_id, i.paid_at,
	i.created_at, i.updated_at,
	p.first_name || ' ' || p.last_name AS patient_name`

const invoiceFrom = ` FROM invoices i JOIN users p ON p.id = i.patient_id`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.PatientID, &inv.AppointmentID, &inv.AmountCents, &inv.Currency,
		&inv.Description, &inv.Status, &inv.DueDate, &inv.ProviderChargeID, &inv.PaidAt,
		&inv.CreatedAt, &inv.UpdatedAt, &inv.PatientName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &inv, err
}

func (r *repoPG) Create(ctx context.Context, inv *Invoice) error {
	inv.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO invoices (id, patient_id, appointment_id, amount_cents, currency, description, status, due_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		inv.ID, inv.PatientID, inv.AppointmentID, inv.AmountCents, inv.Currency,
		inv.Description, inv.Status, inv.DueDate)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return scanInvoice(r.conn(ctx).QueryRow(ctx,
		`SELECT `+invoiceCols+invoiceFrom+` WHERE i.id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, inv *Invoice) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE invoices SET amount_cents=$2, currency=$3, description=$4, status=$5,
			due_date=$6, provider_charge_id=$7, paid_at=$8, updated_at=NOW()
		WHERE id = $1`,
		inv.ID, inv.AmountCents, inv.Currency, inv.Description, inv.Status,
		inv.DueDate, inv.ProviderChargeID, inv.PaidAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, patientID *uuid.UUID, status string, limit, offset int) ([]*Invoice, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	if patientID != nil {
		args = append(args, *patientID)
		where += " AND i.patient_id = $" + strconv.Itoa(len(args))
	}
	if status != "" {
		args = append(args, status)
		where += " AND i.status = $" + strconv.Itoa(len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM invoices i`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+invoiceCols+invoiceFrom+where+
			` ORDER BY i.created_at DESC LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, inv)
	}
	return items, total, rows.Err()
}

func (r *repoPG) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE invoices SET status = $1, updated_at = NOW()
		WHERE status = $2 AND due_date IS NOT NULL AND due_date < $3`,
		StatusOverdue, StatusSent, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
