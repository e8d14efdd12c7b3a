package records

import (
	"context"
	"errors"
	"time"
)

// ErrStorageFull is returned by a Repository when the backing store cannot
// hold the snapshot being written. Callers are expected to degrade
// gracefully (see the ingest prune ladder) rather than fail the import.
var ErrStorageFull = errors.New("records: storage capacity exceeded")

// FamilyStatus describes one persisted family for data-quality reporting.
type FamilyStatus struct {
	Family    Family     `json:"family"`
	Count     int        `json:"count"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Repository persists the five record-family snapshots. Each Replace call
// swaps the stored family wholesale; the engine always writes a fully
// merged set, never deltas.
type Repository interface {
	Visits(ctx context.Context) ([]VisitRecord, error)
	ReplaceVisits(ctx context.Context, recs []VisitRecord) error

	Reservations(ctx context.Context) ([]ReservationRecord, error)
	ReplaceReservations(ctx context.Context, recs []ReservationRecord) error

	Diagnoses(ctx context.Context) ([]DiagnosisRecord, error)
	ReplaceDiagnoses(ctx context.Context, recs []DiagnosisRecord) error

	Listings(ctx context.Context) ([]ListingRecord, error)
	ReplaceListings(ctx context.Context, recs []ListingRecord) error

	Surveys(ctx context.Context) ([]SurveyRecord, error)
	ReplaceSurveys(ctx context.Context, recs []SurveyRecord) error

	Status(ctx context.Context) ([]FamilyStatus, error)
}
