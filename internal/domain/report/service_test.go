package report

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/clinsight/clinsight/internal/domain/cohort"
	"github.com/clinsight/clinsight/internal/domain/identity"
	"github.com/clinsight/clinsight/internal/domain/match"
	"github.com/clinsight/clinsight/internal/domain/records"
	"github.com/clinsight/clinsight/internal/platform/jpcal"
)

type stubRepo struct {
	visits       []records.VisitRecord
	reservations []records.ReservationRecord
	diagnoses    []records.DiagnosisRecord
	status       []records.FamilyStatus
	statusErr    error
	visitsErr    error
}

func (s *stubRepo) Visits(_ context.Context) ([]records.VisitRecord, error) {
	return s.visits, s.visitsErr
}
func (s *stubRepo) ReplaceVisits(context.Context, []records.VisitRecord) error { return nil }
func (s *stubRepo) Reservations(_ context.Context) ([]records.ReservationRecord, error) {
	return s.reservations, nil
}
func (s *stubRepo) ReplaceReservations(context.Context, []records.ReservationRecord) error {
	return nil
}
func (s *stubRepo) Diagnoses(_ context.Context) ([]records.DiagnosisRecord, error) {
	return s.diagnoses, nil
}
func (s *stubRepo) ReplaceDiagnoses(context.Context, []records.DiagnosisRecord) error { return nil }
func (s *stubRepo) Listings(context.Context) ([]records.ListingRecord, error)         { return nil, nil }
func (s *stubRepo) ReplaceListings(context.Context, []records.ListingRecord) error    { return nil }
func (s *stubRepo) Surveys(context.Context) ([]records.SurveyRecord, error)           { return nil, nil }
func (s *stubRepo) ReplaceSurveys(context.Context, []records.SurveyRecord) error      { return nil }
func (s *stubRepo) Status(_ context.Context) ([]records.FamilyStatus, error) {
	return s.status, s.statusErr
}

func newTestService(repo records.Repository) *Service {
	log := zerolog.Nop()
	return NewService(repo,
		match.NewMatcher(jpcal.New(), identity.Resolve, log),
		cohort.NewAnalyzer(identity.Resolve, nil),
		log)
}

func seededRepo() *stubRepo {
	return &stubRepo{
		visits: []records.VisitRecord{
			{Date: "2025-04-01", MonthKey: "2025-04", VisitType: "revisit", PatientNumber: "1", Department: "内科", Points: 250},
			{Date: "2025-06-30", MonthKey: "2025-06", VisitType: "revisit", PatientNumber: "2", Department: "内科", Points: 180},
		},
		reservations: []records.ReservationRecord{
			{Date: "2025-04-01", Hour: 9, PatientID: "1", Department: "内科", ReceivedAt: "2025-03-30T10:00:00"},
		},
		diagnoses: []records.DiagnosisRecord{
			{StartDate: "2024-01-01", DiseaseName: "高血圧症", Category: records.CategoryLifestyleDisease, PatientNumber: "1"},
			{StartDate: "2024-01-01", DiseaseName: "糖尿病", Category: records.CategoryLifestyleDisease, PatientNumber: "2"},
		},
	}
}

func TestComputeAll_EndToEnd(t *testing.T) {
	svc := newTestService(seededRepo())

	rep, err := svc.ComputeAll(context.Background(), DateRange{})
	if err != nil {
		t.Fatal(err)
	}
	if rep.BaselineDate != "2025-06-30" {
		t.Errorf("baseline = %q", rep.BaselineDate)
	}
	if rep.CohortSize != 2 {
		t.Errorf("cohort size = %d, want 2", rep.CohortSize)
	}
	// Patient 1 last visited 90 days before baseline, patient 2 on it.
	if rep.StatusTotals[cohort.StatusRegular] != 2 {
		t.Errorf("status totals = %v", rep.StatusTotals)
	}
	if rep.Quality.Unmatched.UnmatchedVisits != 1 {
		t.Errorf("unmatched visits = %d, want 1", rep.Quality.Unmatched.UnmatchedVisits)
	}

	// 2025-04-01 is a Tuesday; the matched visit lands at tue/9.
	var found bool
	for _, s := range rep.Slots {
		if s.Weekday == "tue" && s.Hour == 9 {
			found = s.Visits == 1 && s.Points == 250
		}
	}
	if !found {
		t.Error("tue/9 slot not populated from the matched visit")
	}
}

func TestComputeAll_RangeRestrictsMatching(t *testing.T) {
	svc := newTestService(seededRepo())

	rep, err := svc.ComputeAll(context.Background(), DateRange{From: "2025-06-01", To: "2025-06-30"})
	if err != nil {
		t.Fatal(err)
	}
	// Only patient 2's visit is in range; the reservation now dangles.
	if rep.CohortSize != 1 {
		t.Errorf("cohort size = %d, want 1", rep.CohortSize)
	}
	if rep.Quality.Unmatched.UnmatchedReservations != 1 {
		t.Errorf("unmatched reservations = %d, want 1", rep.Quality.Unmatched.UnmatchedReservations)
	}
}

func TestComputeAll_RepoErrorPropagates(t *testing.T) {
	svc := newTestService(&stubRepo{visitsErr: errors.New("pool closed")})
	if _, err := svc.ComputeAll(context.Background(), DateRange{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestComputeAll_StatusFailureIsNonFatal(t *testing.T) {
	repo := seededRepo()
	repo.statusErr = errors.New("meta table missing")
	svc := newTestService(repo)

	rep, err := svc.ComputeAll(context.Background(), DateRange{})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Quality.Families != nil {
		t.Errorf("families = %v, want nil", rep.Quality.Families)
	}
}

func TestCohortPatients_Pagination(t *testing.T) {
	repo := seededRepo()
	svc := newTestService(repo)

	page, total, err := svc.CohortPatients(context.Background(), DateRange{}, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(page) != 1 {
		t.Fatalf("total=%d page=%d", total, len(page))
	}
	first := page[0].SeqID

	page, _, err = svc.CohortPatients(context.Background(), DateRange{}, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].SeqID == first {
		t.Errorf("second page = %+v", page)
	}

	page, total, err = svc.CohortPatients(context.Background(), DateRange{}, 10, 5)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(page) != 0 {
		t.Errorf("past-the-end page: total=%d len=%d", total, len(page))
	}
}
