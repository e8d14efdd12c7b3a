package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinsight/clinsight/internal/domain/records"
)

// pruneLadder holds the month windows tried, in order, when the visit
// snapshot no longer fits in storage. The first window that fits wins; if
// even the smallest fails, the import still succeeds in memory and the
// caller gets a warning.
var pruneLadder = []int{18, 12, 9, 6, 3}

// Result reports one import batch back to the caller.
type Result struct {
	BatchID      string         `json:"batch_id"`
	Family       records.Family `json:"family"`
	Received     int            `json:"received"`
	Skipped      int            `json:"skipped"` // malformed rows soft-dropped
	Added        int            `json:"added"`
	Total        int            `json:"total"`
	PrunedMonths int            `json:"pruned_months,omitempty"`
	Pruned       int            `json:"pruned,omitempty"`
	Warning      string         `json:"warning,omitempty"`
}

// Service merges import batches into the persisted family snapshots.
type Service struct {
	repo records.Repository
	log  zerolog.Logger
}

func NewService(repo records.Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// ImportVisits merges a visit batch. This is the only family with the
// storage prune ladder: the merged set is the largest snapshot by far.
func (s *Service) ImportVisits(ctx context.Context, incoming []records.VisitRecord) (*Result, error) {
	res := s.newResult(records.FamilyVisits, len(incoming))

	valid := incoming[:0:0]
	for _, v := range incoming {
		if _, err := records.ParseDate(v.Date); err != nil {
			res.Skipped++
			continue
		}
		if v.MonthKey == "" {
			v.MonthKey = records.MonthKey(v.Date)
		}
		valid = append(valid, v)
	}

	existing, err := s.repo.Visits(ctx)
	if err != nil {
		return nil, fmt.Errorf("load visit snapshot: %w", err)
	}

	merged := Merge(existing, valid,
		records.VisitRecord.NaturalKey,
		func(a, b records.VisitRecord) bool { return a.Date < b.Date })
	res.Added = len(merged.Added)
	res.Total = len(merged.Merged)

	if err := s.persistVisits(ctx, merged.Merged, res); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("batch_id", res.BatchID).
		Int("received", res.Received).
		Int("skipped", res.Skipped).
		Int("added", res.Added).
		Int("total", res.Total).
		Int("pruned", res.Pruned).
		Msg("visit import merged")
	return res, nil
}

// persistVisits writes the merged visit set, walking the prune ladder on
// capacity failures. A total failure is reported as a warning, not an
// error: the merge result above is still valid.
func (s *Service) persistVisits(ctx context.Context, merged []records.VisitRecord, res *Result) error {
	err := s.repo.ReplaceVisits(ctx, merged)
	if err == nil {
		return nil
	}
	if !errors.Is(err, records.ErrStorageFull) {
		return fmt.Errorf("persist visit snapshot: %w", err)
	}

	anchor := latestVisitDate(merged)
	for _, months := range pruneLadder {
		kept := visitsSince(merged, anchor, months)
		err = s.repo.ReplaceVisits(ctx, kept)
		if err == nil {
			res.PrunedMonths = months
			res.Pruned = len(merged) - len(kept)
			s.log.Warn().
				Int("months", months).
				Int("pruned", res.Pruned).
				Msg("visit snapshot pruned to fit storage")
			return nil
		}
		if !errors.Is(err, records.ErrStorageFull) {
			return fmt.Errorf("persist pruned visit snapshot: %w", err)
		}
	}

	res.Warning = "visit snapshot exceeds storage capacity at every prune window; result not persisted"
	s.log.Warn().Int("total", len(merged)).Msg(res.Warning)
	return nil
}

func latestVisitDate(recs []records.VisitRecord) string {
	latest := ""
	for _, v := range recs {
		if v.Date > latest {
			latest = v.Date
		}
	}
	return latest
}

// visitsSince keeps the records of the most recent `months` months,
// anchored at the latest date in the snapshot so pruning is reproducible
// from static data.
func visitsSince(recs []records.VisitRecord, anchorISO string, months int) []records.VisitRecord {
	anchor, err := records.ParseDate(anchorISO)
	if err != nil {
		return recs
	}
	cutoff := anchor.AddDate(0, -months, 0).Format(records.DateLayout)
	kept := recs[:0:0]
	for _, v := range recs {
		if v.Date >= cutoff {
			kept = append(kept, v)
		}
	}
	return kept
}

// ImportReservations merges a reservation batch.
func (s *Service) ImportReservations(ctx context.Context, incoming []records.ReservationRecord) (*Result, error) {
	res := s.newResult(records.FamilyReservations, len(incoming))

	valid := incoming[:0:0]
	for _, r := range incoming {
		if _, err := records.ParseDate(r.Date); err != nil {
			res.Skipped++
			continue
		}
		if r.Hour < 0 || r.Hour > 23 {
			res.Skipped++
			continue
		}
		valid = append(valid, r)
	}

	existing, err := s.repo.Reservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reservation snapshot: %w", err)
	}
	merged := Merge(existing, valid,
		records.ReservationRecord.NaturalKey,
		func(a, b records.ReservationRecord) bool {
			if a.Date != b.Date {
				return a.Date < b.Date
			}
			return a.Hour < b.Hour
		})
	res.Added = len(merged.Added)
	res.Total = len(merged.Merged)

	if err := s.repo.ReplaceReservations(ctx, merged.Merged); err != nil {
		return nil, fmt.Errorf("persist reservation snapshot: %w", err)
	}
	s.logBatch(res, "reservation import merged")
	return res, nil
}

// ImportDiagnoses merges a diagnosis batch.
func (s *Service) ImportDiagnoses(ctx context.Context, incoming []records.DiagnosisRecord) (*Result, error) {
	res := s.newResult(records.FamilyDiagnoses, len(incoming))

	valid := incoming[:0:0]
	for _, d := range incoming {
		if _, err := records.ParseDate(d.StartDate); err != nil {
			res.Skipped++
			continue
		}
		if d.DiseaseName == "" {
			res.Skipped++
			continue
		}
		valid = append(valid, d)
	}

	existing, err := s.repo.Diagnoses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load diagnosis snapshot: %w", err)
	}
	merged := Merge(existing, valid,
		records.DiagnosisRecord.NaturalKey,
		func(a, b records.DiagnosisRecord) bool { return a.StartDate < b.StartDate })
	res.Added = len(merged.Added)
	res.Total = len(merged.Merged)

	if err := s.repo.ReplaceDiagnoses(ctx, merged.Merged); err != nil {
		return nil, fmt.Errorf("persist diagnosis snapshot: %w", err)
	}
	s.logBatch(res, "diagnosis import merged")
	return res, nil
}

// ImportListings merges a listing-metrics batch.
func (s *Service) ImportListings(ctx context.Context, incoming []records.ListingRecord) (*Result, error) {
	res := s.newResult(records.FamilyListings, len(incoming))

	valid := incoming[:0:0]
	for _, l := range incoming {
		if _, err := records.ParseDate(l.Date); err != nil {
			res.Skipped++
			continue
		}
		valid = append(valid, l)
	}

	existing, err := s.repo.Listings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load listing snapshot: %w", err)
	}
	merged := Merge(existing, valid,
		records.ListingRecord.NaturalKey,
		func(a, b records.ListingRecord) bool { return a.Date < b.Date })
	res.Added = len(merged.Added)
	res.Total = len(merged.Merged)

	if err := s.repo.ReplaceListings(ctx, merged.Merged); err != nil {
		return nil, fmt.Errorf("persist listing snapshot: %w", err)
	}
	s.logBatch(res, "listing import merged")
	return res, nil
}

// ImportSurveys merges a survey batch.
func (s *Service) ImportSurveys(ctx context.Context, incoming []records.SurveyRecord) (*Result, error) {
	res := s.newResult(records.FamilySurveys, len(incoming))

	valid := incoming[:0:0]
	for _, sv := range incoming {
		if sv.SubmittedAt == "" {
			res.Skipped++
			continue
		}
		valid = append(valid, sv)
	}

	existing, err := s.repo.Surveys(ctx)
	if err != nil {
		return nil, fmt.Errorf("load survey snapshot: %w", err)
	}
	merged := Merge(existing, valid,
		records.SurveyRecord.NaturalKey,
		func(a, b records.SurveyRecord) bool { return a.SubmittedAt < b.SubmittedAt })
	res.Added = len(merged.Added)
	res.Total = len(merged.Merged)

	if err := s.repo.ReplaceSurveys(ctx, merged.Merged); err != nil {
		return nil, fmt.Errorf("persist survey snapshot: %w", err)
	}
	s.logBatch(res, "survey import merged")
	return res, nil
}

func (s *Service) newResult(family records.Family, received int) *Result {
	return &Result{
		BatchID:  uuid.New().String(),
		Family:   family,
		Received: received,
	}
}

func (s *Service) logBatch(res *Result, msg string) {
	s.log.Info().
		Str("batch_id", res.BatchID).
		Int("received", res.Received).
		Int("skipped", res.Skipped).
		Int("added", res.Added).
		Int("total", res.Total).
		Msg(msg)
}
