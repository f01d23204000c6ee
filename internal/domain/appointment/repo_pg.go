package appointment

import (
	"context"
	"errors"
	"strconv"
	"strings"
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

const apptCols = `a.id, a.patient_id, a.doctor_id, a.starts_at, a.ends_at,
	a.status, a.reason, a.notes, a.cancellation_reason, a.created_at, a.updated_at,
	p.first_name || ' ' || p.last_name AS patient_name,
	d.first_name || ' ' || d.last_name AS doctor_name`

const apptFrom = ` FROM appointments a
	JOIN users p ON p.id = a.patient_id
	JOIN users d ON d.id = a.doctor_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.StartsAt, &a.EndsAt,
		&a.Status, &a.Reason, &a.Notes, &a.CancellationReason, &a.CreatedAt, &a.UpdatedAt,
		&a.PatientName, &a.DoctorName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, starts_at, ends_at, status, reason, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.PatientID, a.DoctorID, a.StartsAt, a.EndsAt, a.Status, a.Reason, a.Notes)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrSlotTaken
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+apptFrom+` WHERE a.id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET starts_at = $2, ends_at = $3, reason = $4, notes = $5, updated_at = NOW()
		WHERE id = $1`, a.ID, a.StartsAt, a.EndsAt, a.Reason, a.Notes)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrSlotTaken
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string, notes, cancellationReason *string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET status = $2, notes = COALESCE($3, notes),
			cancellation_reason = COALESCE($4, cancellation_reason), updated_at = NOW()
		WHERE id = $1`, id, status, notes, cancellationReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	var clauses []string
	var args []interface{}
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, clause+` $`+strconv.Itoa(len(args)))
	}
	if f.PatientID != nil {
		add(`a.patient_id =`, *f.PatientID)
	}
	if f.DoctorID != nil {
		add(`a.doctor_id =`, *f.DoctorID)
	}
	if f.Status != "" {
		add(`a.status =`, f.Status)
	}
	if f.From != nil {
		add(`a.starts_at >=`, *f.From)
	}
	if f.To != nil {
		add(`a.starts_at <`, *f.To)
	}

	where := ``
	if len(clauses) > 0 {
		where = `WHERE ` + strings.Join(clauses, ` AND `)
	}
	return r.listWhere(ctx, where, args, limit, offset)
}

func (r *repoPG) listWhere(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+apptFrom+` `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := `SELECT ` + apptCols + apptFrom + ` ` + where +
		` ORDER BY a.starts_at DESC LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ScheduledBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+apptFrom+`
		WHERE a.doctor_id = $1 AND a.status = $2 AND a.starts_at < $4 AND a.ends_at > $3
		ORDER BY a.starts_at`, doctorID, StatusScheduled, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) HasScheduledOverlap(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND status = $2 AND starts_at < $4 AND ends_at > $3 AND id <> $5
		)`, doctorID, StatusScheduled, start, end, excludeID).Scan(&exists)
	return exists, err
}

type scheduleRepoPG struct{ pool *pgxpool.Pool }

func NewScheduleRepoPG(pool *pgxpool.Pool) ScheduleRepository { return &scheduleRepoPG{pool: pool} }

func (r *scheduleRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const scheduleCols = `id, doctor_id, weekday, open_minute, close_minute, slot_minutes, available`

func scanSchedule(row pgx.Row) (*Schedule, error) {
	var s Schedule
	err := row.Scan(&s.ID, &s.DoctorID, &s.Weekday, &s.OpenMinute, &s.CloseMinute, &s.SlotMinutes, &s.Available)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &s, err
}

func (r *scheduleRepoPG) Upsert(ctx context.Context, s *Schedule) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor_schedules (id, doctor_id, weekday, open_minute, close_minute, slot_minutes, available)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (doctor_id, weekday) DO UPDATE SET
			open_minute = EXCLUDED.open_minute,
			close_minute = EXCLUDED.close_minute,
			slot_minutes = EXCLUDED.slot_minutes,
			available = EXCLUDED.available`,
		s.ID, s.DoctorID, s.Weekday, s.OpenMinute, s.CloseMinute, s.SlotMinutes, s.Available)
	return err
}

func (r *scheduleRepoPG) GetByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Schedule, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+scheduleCols+` FROM doctor_schedules WHERE doctor_id = $1 ORDER BY weekday`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *scheduleRepoPG) GetByDoctorWeekday(ctx context.Context, doctorID uuid.UUID, weekday int) (*Schedule, error) {
	return scanSchedule(r.conn(ctx).QueryRow(ctx,
		`SELECT `+scheduleCols+` FROM doctor_schedules WHERE doctor_id = $1 AND weekday = $2`, doctorID, weekday))
}
