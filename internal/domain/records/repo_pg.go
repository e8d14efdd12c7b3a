package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type snapshotRepoPG struct {
	pool *pgxpool.Pool
	// maxVisitRows caps the visit snapshot, the largest family. 0 disables
	// the cap; the underlying disk-full errors are still mapped.
	maxVisitRows int
}

// NewRepoPG creates a PostgreSQL-backed snapshot repository.
func NewRepoPG(pool *pgxpool.Pool, maxVisitRows int) Repository {
	return &snapshotRepoPG{pool: pool, maxVisitRows: maxVisitRows}
}

// storageFull maps backend capacity failures onto ErrStorageFull so the
// ingest layer can run its prune ladder without knowing about PostgreSQL.
func storageFull(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "53100", "53200", "53400", "54000": // disk_full, out_of_memory, configuration/program limit
		return true
	}
	return false
}

func (r *snapshotRepoPG) touchFamily(ctx context.Context, tx pgx.Tx, family Family, count int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO snapshot_meta (family, record_count, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (family) DO UPDATE SET record_count = $2, updated_at = NOW()`,
		family, count)
	return err
}

// -- visits --

const visitCols = `date, month_key, visit_type, patient_number, birth_date, department, points, patient_name, patient_address`

func (r *snapshotRepoPG) Visits(ctx context.Context) ([]VisitRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+visitCols+` FROM visit_records ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("query visit snapshot: %w", err)
	}
	defer rows.Close()

	var out []VisitRecord
	for rows.Next() {
		var v VisitRecord
		if err := rows.Scan(&v.Date, &v.MonthKey, &v.VisitType, &v.PatientNumber, &v.BirthDate,
			&v.Department, &v.Points, &v.PatientName, &v.PatientAddress); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *snapshotRepoPG) ReplaceVisits(ctx context.Context, recs []VisitRecord) error {
	if r.maxVisitRows > 0 && len(recs) > r.maxVisitRows {
		return fmt.Errorf("visit snapshot of %d rows exceeds cap of %d: %w",
			len(recs), r.maxVisitRows, ErrStorageFull)
	}
	return r.replace(ctx, FamilyVisits, "visit_records", len(recs), func(tx pgx.Tx) error {
		for _, v := range recs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO visit_records (`+visitCols+`)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
				v.Date, v.MonthKey, v.VisitType, v.PatientNumber, v.BirthDate,
				v.Department, v.Points, v.PatientName, v.PatientAddress); err != nil {
				return err
			}
		}
		return nil
	})
}

// -- reservations --

const reservationCols = `department, visit_type, date, hour, received_at, appointment, patient_id, patient_name, same_day`

func (r *snapshotRepoPG) Reservations(ctx context.Context) ([]ReservationRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+reservationCols+` FROM reservation_records ORDER BY date, hour`)
	if err != nil {
		return nil, fmt.Errorf("query reservation snapshot: %w", err)
	}
	defer rows.Close()

	var out []ReservationRecord
	for rows.Next() {
		var rec ReservationRecord
		if err := rows.Scan(&rec.Department, &rec.VisitType, &rec.Date, &rec.Hour, &rec.ReceivedAt,
			&rec.Appointment, &rec.PatientID, &rec.PatientName, &rec.SameDay); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *snapshotRepoPG) ReplaceReservations(ctx context.Context, recs []ReservationRecord) error {
	return r.replace(ctx, FamilyReservations, "reservation_records", len(recs), func(tx pgx.Tx) error {
		for _, rec := range recs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO reservation_records (`+reservationCols+`)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
				rec.Department, rec.VisitType, rec.Date, rec.Hour, rec.ReceivedAt,
				rec.Appointment, rec.PatientID, rec.PatientName, rec.SameDay); err != nil {
				return err
			}
		}
		return nil
	})
}

// -- diagnoses --

const diagnosisCols = `department, start_date, disease_name, category, patient_number, patient_name, birth_date`

func (r *snapshotRepoPG) Diagnoses(ctx context.Context) ([]DiagnosisRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+diagnosisCols+` FROM diagnosis_records ORDER BY start_date`)
	if err != nil {
		return nil, fmt.Errorf("query diagnosis snapshot: %w", err)
	}
	defer rows.Close()

	var out []DiagnosisRecord
	for rows.Next() {
		var d DiagnosisRecord
		if err := rows.Scan(&d.Department, &d.StartDate, &d.DiseaseName, &d.Category,
			&d.PatientNumber, &d.PatientName, &d.BirthDate); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *snapshotRepoPG) ReplaceDiagnoses(ctx context.Context, recs []DiagnosisRecord) error {
	return r.replace(ctx, FamilyDiagnoses, "diagnosis_records", len(recs), func(tx pgx.Tx) error {
		for _, d := range recs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO diagnosis_records (`+diagnosisCols+`)
				VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				d.Department, d.StartDate, d.DiseaseName, d.Category,
				d.PatientNumber, d.PatientName, d.BirthDate); err != nil {
				return err
			}
		}
		return nil
	})
}

// -- listings --

func (r *snapshotRepoPG) Listings(ctx context.Context) ([]ListingRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT date, source, impressions, actions FROM listing_records ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("query listing snapshot: %w", err)
	}
	defer rows.Close()

	var out []ListingRecord
	for rows.Next() {
		var l ListingRecord
		if err := rows.Scan(&l.Date, &l.Source, &l.Impressions, &l.Actions); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *snapshotRepoPG) ReplaceListings(ctx context.Context, recs []ListingRecord) error {
	return r.replace(ctx, FamilyListings, "listing_records", len(recs), func(tx pgx.Tx) error {
		for _, l := range recs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO listing_records (date, source, impressions, actions)
				VALUES ($1,$2,$3,$4)`,
				l.Date, l.Source, l.Impressions, l.Actions); err != nil {
				return err
			}
		}
		return nil
	})
}

// -- surveys --

func (r *snapshotRepoPG) Surveys(ctx context.Context) ([]SurveyRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT submitted_at, topic, score, respondent FROM survey_records ORDER BY submitted_at`)
	if err != nil {
		return nil, fmt.Errorf("query survey snapshot: %w", err)
	}
	defer rows.Close()

	var out []SurveyRecord
	for rows.Next() {
		var s SurveyRecord
		if err := rows.Scan(&s.SubmittedAt, &s.Topic, &s.Score, &s.Respondent); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *snapshotRepoPG) ReplaceSurveys(ctx context.Context, recs []SurveyRecord) error {
	return r.replace(ctx, FamilySurveys, "survey_records", len(recs), func(tx pgx.Tx) error {
		for _, s := range recs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO survey_records (submitted_at, topic, score, respondent)
				VALUES ($1,$2,$3,$4)`,
				s.SubmittedAt, s.Topic, s.Score, s.Respondent); err != nil {
				return err
			}
		}
		return nil
	})
}

// -- meta --

func (r *snapshotRepoPG) Status(ctx context.Context) ([]FamilyStatus, error) {
	rows, err := r.pool.Query(ctx, `SELECT family, record_count, updated_at FROM snapshot_meta ORDER BY family`)
	if err != nil {
		return nil, fmt.Errorf("query snapshot meta: %w", err)
	}
	defer rows.Close()

	var out []FamilyStatus
	for rows.Next() {
		var fs FamilyStatus
		var updated time.Time
		if err := rows.Scan(&fs.Family, &fs.Count, &updated); err != nil {
			return nil, err
		}
		fs.UpdatedAt = &updated
		out = append(out, fs)
	}
	return out, rows.Err()
}

// replace swaps a family snapshot in a single transaction: delete the old
// rows, insert the new set, bump the meta row.
func (r *snapshotRepoPG) replace(ctx context.Context, family Family, table string, count int, insert func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s replace: %w", family, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM `+table); err != nil {
		return fmt.Errorf("clear %s snapshot: %w", family, err)
	}
	if err := insert(tx); err != nil {
		if storageFull(err) {
			return fmt.Errorf("write %s snapshot: %v: %w", family, err, ErrStorageFull)
		}
		return fmt.Errorf("write %s snapshot: %w", family, err)
	}
	if err := r.touchFamily(ctx, tx, family, count); err != nil {
		return fmt.Errorf("update %s meta: %w", family, err)
	}
	return tx.Commit(ctx)
}
