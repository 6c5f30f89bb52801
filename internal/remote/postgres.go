package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/denttrack/denttrack/internal/model"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Postgres stores the collections directly in a PostgreSQL database. It
// trusts the caller for user scoping, so it is meant for self-hosted
// single-tenant deployments where no row-level security sits in between.
type Postgres struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenPostgres connects with lib/pq and verifies the connection.
func OpenPostgres(dsn string, logger *zap.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return NewPostgres(db, logger), nil
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{db: db, logger: logger}
}

// Close closes the database handle.
func (p *Postgres) Close() error {
	return p.db.Close()
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS treatments (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id TEXT NOT NULL,
	tooth_id INTEGER,
	type TEXT NOT NULL,
	date DATE NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	cost NUMERIC,
	currency TEXT,
	warranty_until DATE,
	attachments JSONB NOT NULL DEFAULT '[]',
	dentist_id TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
);
ALTER TABLE treatments ADD COLUMN IF NOT EXISTS created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp();
CREATE INDEX IF NOT EXISTS idx_treatments_user_date ON treatments(user_id, date DESC, created_at ASC);

CREATE TABLE IF NOT EXISTS dentists (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	clinic_name TEXT,
	type TEXT,
	phone TEXT,
	notes TEXT,
	is_verified BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_dentists_user ON dentists(user_id);

CREATE TABLE IF NOT EXISTS teeth_status (
	user_id TEXT NOT NULL,
	tooth_id INTEGER NOT NULL,
	status TEXT NOT NULL,
	PRIMARY KEY (user_id, tooth_id)
);
`

// Migrate creates the tables if they don't exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, pgSchema); err != nil {
		return fmt.Errorf("failed to migrate postgres schema: %w", err)
	}
	return nil
}

const (
	pgSelectTreatments = `SELECT id, tooth_id, type, date::text, notes, cost, currency, warranty_until::text, attachments, dentist_id
		FROM treatments WHERE user_id = $1 ORDER BY date DESC, created_at ASC, id ASC`
	pgInsertTreatment = `INSERT INTO treatments (user_id, tooth_id, type, date, notes, cost, currency, warranty_until, attachments, dentist_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	pgUpdateTreatment = `UPDATE treatments SET tooth_id = $3, type = $4, date = $5, notes = $6, cost = $7, currency = $8,
		warranty_until = $9, attachments = $10, dentist_id = $11 WHERE id = $1 AND user_id = $2`
	pgDeleteTreatment = `DELETE FROM treatments WHERE id = $1 AND user_id = $2`

	pgSelectDentists = `SELECT id, name, clinic_name, type, phone, notes, is_verified
		FROM dentists WHERE user_id = $1 ORDER BY name ASC`
	pgInsertDentist = `INSERT INTO dentists (user_id, name, clinic_name, type, phone, notes, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE) RETURNING id`
	pgDeleteDentist = `DELETE FROM dentists WHERE id = $1 AND user_id = $2`

	pgSelectTeeth = `SELECT tooth_id, status FROM teeth_status WHERE user_id = $1`
	pgUpsertTooth = `INSERT INTO teeth_status (user_id, tooth_id, status) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, tooth_id) DO UPDATE SET status = EXCLUDED.status`
)

// classify maps a database/sql or lib/pq error to a *Error.
func classify(op string, err error) *Error {
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pqErr):
		// 28xxx: invalid authorization; 42501: insufficient privilege.
		if pqErr.Code.Class() == "28" || pqErr.Code == "42501" {
			return newError(op, KindUnauthorized, err)
		}
		return newError(op, KindServer, err)
	case errors.Is(err, sql.ErrNoRows):
		return newError(op, KindNotFound, err)
	default:
		return newError(op, KindNetwork, err)
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// FetchTreatments returns the user's treatments, most recent first.
func (p *Postgres) FetchTreatments(ctx context.Context, userID string) ([]model.Treatment, error) {
	rows, err := p.db.QueryContext(ctx, pgSelectTreatments, userID)
	if err != nil {
		return []model.Treatment{}, classify("fetch treatments", err)
	}
	defer rows.Close()

	out := []model.Treatment{}
	for rows.Next() {
		var (
			t           model.Treatment
			tooth       sql.NullInt64
			date        string
			cost        sql.NullFloat64
			currency    sql.NullString
			warranty    sql.NullString
			attachments []byte
			dentistID   sql.NullString
		)
		if err := rows.Scan(&t.ID, &tooth, &t.Kind, &date, &t.Notes, &cost, &currency, &warranty, &attachments, &dentistID); err != nil {
			return []model.Treatment{}, newError("fetch treatments", KindDecode, err)
		}
		t.Date = model.Date(date)
		if tooth.Valid {
			t.ToothID = model.ToothPtr(model.ToothID(tooth.Int64))
		}
		if cost.Valid {
			c := cost.Float64
			t.Cost = &c
		}
		t.Currency = currency.String
		if warranty.Valid {
			w := model.Date(warranty.String)
			t.WarrantyUntil = &w
		}
		t.DentistID = dentistID.String
		t.Attachments = []model.Attachment{}
		if len(attachments) > 0 {
			if err := json.Unmarshal(attachments, &t.Attachments); err != nil {
				return []model.Treatment{}, newError("fetch treatments", KindDecode, err)
			}
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return []model.Treatment{}, classify("fetch treatments", err)
	}
	return out, nil
}

func treatmentArgs(t model.Treatment) ([]any, error) {
	attachments := t.Attachments
	if attachments == nil {
		attachments = []model.Attachment{}
	}
	data, err := json.Marshal(attachments)
	if err != nil {
		return nil, err
	}

	var tooth sql.NullInt64
	if t.ToothID != nil {
		tooth = sql.NullInt64{Int64: int64(*t.ToothID), Valid: true}
	}
	var cost sql.NullFloat64
	if t.Cost != nil {
		cost = sql.NullFloat64{Float64: *t.Cost, Valid: true}
	}
	var warranty sql.NullString
	if t.WarrantyUntil != nil {
		warranty = nullString(string(*t.WarrantyUntil))
	}

	return []any{tooth, string(t.Kind), string(t.Date), t.Notes, cost, nullString(t.Currency), warranty, string(data), nullString(t.DentistID)}, nil
}

// SaveTreatment updates (existingID set) or inserts a treatment.
func (p *Postgres) SaveTreatment(ctx context.Context, userID string, t model.Treatment, existingID string) (string, error) {
	args, err := treatmentArgs(t)
	if err != nil {
		return "", newError("save treatment", KindDecode, err)
	}

	if existingID != "" {
		res, err := p.db.ExecContext(ctx, pgUpdateTreatment, append([]any{existingID, userID}, args...)...)
		if err != nil {
			return "", classify("update treatment", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return "", classify("update treatment", err)
		}
		if n == 0 {
			return "", newError("update treatment", KindNotFound, fmt.Errorf("treatment %s", existingID))
		}
		return existingID, nil
	}

	var id string
	if err := p.db.QueryRowContext(ctx, pgInsertTreatment, append([]any{userID}, args...)...).Scan(&id); err != nil {
		return "", classify("insert treatment", err)
	}
	return id, nil
}

// DeleteTreatment deletes the treatment scoped to (id, userID).
func (p *Postgres) DeleteTreatment(ctx context.Context, userID, id string) error {
	if _, err := p.db.ExecContext(ctx, pgDeleteTreatment, id, userID); err != nil {
		return classify("delete treatment", err)
	}
	return nil
}

// FetchDentists returns the user's dentists ordered by name.
func (p *Postgres) FetchDentists(ctx context.Context, userID string) ([]model.Dentist, error) {
	rows, err := p.db.QueryContext(ctx, pgSelectDentists, userID)
	if err != nil {
		return []model.Dentist{}, classify("fetch dentists", err)
	}
	defer rows.Close()

	out := []model.Dentist{}
	for rows.Next() {
		var (
			d                         model.Dentist
			clinic, typ, phone, notes sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.Name, &clinic, &typ, &phone, &notes, &d.IsVerified); err != nil {
			return []model.Dentist{}, newError("fetch dentists", KindDecode, err)
		}
		d.ClinicName = clinic.String
		d.Specialty = model.DentistSpecialty(typ.String)
		d.Phone = phone.String
		d.Notes = notes.String
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return []model.Dentist{}, classify("fetch dentists", err)
	}
	return out, nil
}

// SaveDentist inserts a dentist; is_verified is always stored false.
func (p *Postgres) SaveDentist(ctx context.Context, userID string, d model.Dentist) (string, error) {
	var id string
	err := p.db.QueryRowContext(ctx, pgInsertDentist,
		userID, d.Name, nullString(d.ClinicName), nullString(string(d.Specialty)), nullString(d.Phone), nullString(d.Notes),
	).Scan(&id)
	if err != nil {
		return "", classify("insert dentist", err)
	}
	return id, nil
}

// DeleteDentist deletes the dentist scoped to (id, userID).
func (p *Postgres) DeleteDentist(ctx context.Context, userID, id string) error {
	if _, err := p.db.ExecContext(ctx, pgDeleteDentist, id, userID); err != nil {
		return classify("delete dentist", err)
	}
	return nil
}

// FetchTeethStatus returns the statuses stored for the user.
func (p *Postgres) FetchTeethStatus(ctx context.Context, userID string) (model.TeethStatus, error) {
	rows, err := p.db.QueryContext(ctx, pgSelectTeeth, userID)
	if err != nil {
		return model.TeethStatus{}, classify("fetch teeth status", err)
	}
	defer rows.Close()

	var stored []toothRow
	for rows.Next() {
		var r toothRow
		if err := rows.Scan(&r.ToothID, &r.Status); err != nil {
			return model.TeethStatus{}, newError("fetch teeth status", KindDecode, err)
		}
		stored = append(stored, r)
	}
	if err := rows.Err(); err != nil {
		return model.TeethStatus{}, classify("fetch teeth status", err)
	}
	return teethFromRows(stored), nil
}

// SaveToothStatus upserts the status keyed by (userID, tooth).
func (p *Postgres) SaveToothStatus(ctx context.Context, userID string, tooth model.ToothID, status model.ToothStatus) error {
	if _, err := p.db.ExecContext(ctx, pgUpsertTooth, userID, int(tooth), string(status)); err != nil {
		return classify("save tooth status", err)
	}
	return nil
}
