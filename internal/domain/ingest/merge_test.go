package ingest

import (
	"reflect"
	"testing"

	"github.com/clinsight/clinsight/internal/domain/records"
)

func visit(date, visitType, number, dept string) records.VisitRecord {
	return records.VisitRecord{
		Date:          date,
		MonthKey:      records.MonthKey(date),
		VisitType:     visitType,
		PatientNumber: number,
		Department:    dept,
	}
}

func mergeVisits(existing, incoming []records.VisitRecord) MergeResult[records.VisitRecord] {
	return Merge(existing, incoming,
		records.VisitRecord.NaturalKey,
		func(a, b records.VisitRecord) bool { return a.Date < b.Date })
}

func TestMerge_AddsNewRecords(t *testing.T) {
	existing := []records.VisitRecord{visit("2025-01-10", "first", "1", "内科")}
	incoming := []records.VisitRecord{
		visit("2025-01-20", "revisit", "1", "内科"),
		visit("2025-01-05", "first", "2", "内科"),
	}

	res := mergeVisits(existing, incoming)
	if len(res.Merged) != 3 {
		t.Fatalf("merged = %d, want 3", len(res.Merged))
	}
	if len(res.Added) != 2 {
		t.Fatalf("added = %d, want 2", len(res.Added))
	}
	// Sorted by date.
	for i := 1; i < len(res.Merged); i++ {
		if res.Merged[i-1].Date > res.Merged[i].Date {
			t.Errorf("merged not sorted at %d: %s > %s", i, res.Merged[i-1].Date, res.Merged[i].Date)
		}
	}
}

func TestMerge_IncomingWins(t *testing.T) {
	old := visit("2025-01-10", "first", "1", "内科")
	old.Points = 100
	updated := old
	updated.Points = 250

	res := mergeVisits([]records.VisitRecord{old}, []records.VisitRecord{updated})
	if len(res.Merged) != 1 {
		t.Fatalf("merged = %d, want 1", len(res.Merged))
	}
	if res.Merged[0].Points != 250 {
		t.Errorf("points = %d, want incoming value 250", res.Merged[0].Points)
	}
	if len(res.Added) != 0 {
		t.Errorf("superseding record counted as added")
	}
}

func TestMerge_LastDuplicateInBatchWins(t *testing.T) {
	a := visit("2025-01-10", "first", "1", "内科")
	a.Points = 1
	b := a
	b.Points = 2

	res := mergeVisits(nil, []records.VisitRecord{a, b})
	if len(res.Merged) != 1 || res.Merged[0].Points != 2 {
		t.Fatalf("expected single record with points=2, got %+v", res.Merged)
	}
	if len(res.Added) != 1 {
		t.Errorf("added = %d, want 1", len(res.Added))
	}
}

func TestMerge_Idempotent(t *testing.T) {
	a := []records.VisitRecord{
		visit("2025-01-10", "first", "1", "内科"),
		visit("2025-02-03", "revisit", "1", "内科"),
	}
	b := []records.VisitRecord{
		visit("2025-02-03", "revisit", "1", "内科"),
		visit("2025-03-15", "revisit", "2", "皮膚科"),
	}

	once := mergeVisits(a, b)
	twice := mergeVisits(once.Merged, b)

	if !reflect.DeepEqual(once.Merged, twice.Merged) {
		t.Errorf("merge not idempotent:\nonce:  %+v\ntwice: %+v", once.Merged, twice.Merged)
	}
	if len(twice.Added) != 0 {
		t.Errorf("re-merge reported %d added records", len(twice.Added))
	}

	// merge(S, S) == S
	self := mergeVisits(once.Merged, once.Merged)
	if !reflect.DeepEqual(self.Merged, once.Merged) {
		t.Errorf("merge(S, S) != S")
	}
}

func TestMerge_EmptySides(t *testing.T) {
	only := []records.VisitRecord{visit("2025-01-10", "first", "1", "内科")}

	res := mergeVisits(nil, only)
	if len(res.Merged) != 1 || len(res.Added) != 1 {
		t.Errorf("empty existing: merged=%d added=%d", len(res.Merged), len(res.Added))
	}

	res = mergeVisits(only, nil)
	if len(res.Merged) != 1 || len(res.Added) != 0 {
		t.Errorf("empty incoming: merged=%d added=%d", len(res.Merged), len(res.Added))
	}
}
