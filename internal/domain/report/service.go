package report

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/clinsight/clinsight/internal/domain/cohort"
	"github.com/clinsight/clinsight/internal/domain/match"
	"github.com/clinsight/clinsight/internal/domain/records"
)

// DateRange bounds an analysis run. Empty bounds are open.
type DateRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// Report is the full recomputed analysis output.
type Report struct {
	Range        DateRange             `json:"range"`
	BaselineDate string                `json:"baseline_date"`
	CohortSize   int                   `json:"cohort_size"`
	StatusTotals map[cohort.Status]int `json:"status_totals"`
	Distribution Distributions         `json:"distributions"`
	Slots        []Slot                `json:"slots"`
	Quality      Quality               `json:"quality"`

	cohort cohort.Cohort
}

// Quality carries the data-quality signals surfaced alongside every
// report: unmatched counters plus per-family snapshot freshness.
type Quality struct {
	Unmatched match.Stats            `json:"unmatched"`
	Families  []records.FamilyStatus `json:"families,omitempty"`
}

// Service runs the analysis pipeline. Every call recomputes from the
// persisted snapshots in one synchronous pass; there is no incremental
// path and none is needed at single-clinic volume.
type Service struct {
	repo     records.Repository
	matcher  *match.Matcher
	analyzer *cohort.Analyzer
	log      zerolog.Logger
}

func NewService(repo records.Repository, matcher *match.Matcher, analyzer *cohort.Analyzer, log zerolog.Logger) *Service {
	return &Service{repo: repo, matcher: matcher, analyzer: analyzer, log: log}
}

// ComputeAll loads the snapshots and derives the complete report for the
// given range.
func (s *Service) ComputeAll(ctx context.Context, rng DateRange) (*Report, error) {
	visits, err := s.repo.Visits(ctx)
	if err != nil {
		return nil, fmt.Errorf("load visit snapshot: %w", err)
	}
	reservations, err := s.repo.Reservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reservation snapshot: %w", err)
	}
	diagnoses, err := s.repo.Diagnoses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load diagnosis snapshot: %w", err)
	}

	inRange := visits[:0:0]
	for _, v := range visits {
		if (rng.From == "" || v.Date >= rng.From) && (rng.To == "" || v.Date <= rng.To) {
			inRange = append(inRange, v)
		}
	}

	matched, stats := s.matcher.Match(inRange, reservations)
	coh := s.analyzer.Build(diagnoses, visits, rng.From, rng.To)

	rep := &Report{
		Range:        rng,
		BaselineDate: coh.BaselineDate,
		CohortSize:   len(coh.Patients),
		StatusTotals: coh.StatusTotals(),
		Distribution: Aggregate(coh),
		Slots:        Slots(matched),
		Quality:      Quality{Unmatched: stats},
		cohort:       coh,
	}

	if families, err := s.repo.Status(ctx); err == nil {
		rep.Quality.Families = families
	} else {
		s.log.Warn().Err(err).Msg("snapshot status unavailable")
	}

	s.log.Info().
		Str("from", rng.From).
		Str("to", rng.To).
		Str("baseline", rep.BaselineDate).
		Int("cohort", rep.CohortSize).
		Int("unmatched_visits", stats.UnmatchedVisits).
		Int("unmatched_reservations", stats.UnmatchedReservations).
		Msg("report computed")
	return rep, nil
}

// CohortPatients returns the anonymized profile page for the given range.
func (s *Service) CohortPatients(ctx context.Context, rng DateRange, limit, offset int) ([]cohort.Profile, int, error) {
	rep, err := s.ComputeAll(ctx, rng)
	if err != nil {
		return nil, 0, err
	}
	patients := rep.cohort.Patients
	total := len(patients)
	if offset >= total {
		return []cohort.Profile{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return patients[offset:end], total, nil
}

// FamilyStatus exposes snapshot freshness without running the pipeline.
func (s *Service) FamilyStatus(ctx context.Context) ([]records.FamilyStatus, error) {
	return s.repo.Status(ctx)
}
