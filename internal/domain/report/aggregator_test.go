package report

import (
	"testing"

	"github.com/clinsight/clinsight/internal/domain/cohort"
)

func profile(days, visitCount, age int, status cohort.Status, typ cohort.DiseaseType) cohort.Profile {
	return cohort.Profile{
		DaysSinceLast: days,
		VisitCount:    visitCount,
		Age:           age,
		Status:        status,
		DiseaseType:   typ,
	}
}

func TestAggregate_DayBucketsPartition(t *testing.T) {
	// One patient per boundary value; every value must land in exactly
	// one bucket.
	values := []int{0, 30, 31, 60, 61, 90, 91, 120, 121, 150, 151, 400}
	var patients []cohort.Profile
	for _, v := range values {
		patients = append(patients, profile(v, 1, -1, cohort.StatusRegular, cohort.TypeMultiple))
	}

	d := Aggregate(cohort.Cohort{Patients: patients})

	sum := 0
	for _, b := range d.DaysSinceLast {
		sum += b.Count
	}
	if sum != len(values) {
		t.Fatalf("bucketed %d of %d patients", sum, len(values))
	}

	want := map[string]int{"0-30": 2, "31-60": 2, "61-90": 2, "91-120": 2, "121-150": 2, "151+": 2}
	for _, b := range d.DaysSinceLast {
		if b.Count != want[b.Label] {
			t.Errorf("bucket %s = %d, want %d", b.Label, b.Count, want[b.Label])
		}
	}
}

func TestAggregate_VisitCountBuckets(t *testing.T) {
	var patients []cohort.Profile
	for _, v := range []int{1, 2, 3, 5, 6, 10, 11, 50} {
		patients = append(patients, profile(0, v, -1, cohort.StatusRegular, cohort.TypeMultiple))
	}

	d := Aggregate(cohort.Cohort{Patients: patients})
	want := map[string]int{"1": 1, "2": 1, "3-5": 2, "6-10": 2, "11+": 2}
	for _, b := range d.VisitCounts {
		if b.Count != want[b.Label] {
			t.Errorf("bucket %s = %d, want %d", b.Label, b.Count, want[b.Label])
		}
	}
}

func TestAggregate_Shares(t *testing.T) {
	patients := []cohort.Profile{
		profile(10, 1, -1, cohort.StatusRegular, cohort.TypeHypertension),
		profile(10, 1, -1, cohort.StatusRegular, cohort.TypeHypertension),
		profile(10, 1, -1, cohort.StatusRegular, cohort.TypeDiabetes),
		profile(10, 1, -1, cohort.StatusRegular, cohort.TypeDiabetes),
	}

	d := Aggregate(cohort.Cohort{Patients: patients})
	for _, b := range d.DiseaseTypes {
		switch b.Label {
		case "hypertension", "diabetes":
			if b.Share != 50 {
				t.Errorf("%s share = %v, want 50", b.Label, b.Share)
			}
		default:
			if b.Share != 0 {
				t.Errorf("%s share = %v, want 0", b.Label, b.Share)
			}
		}
	}
}

func TestAggregate_EmptyCohort(t *testing.T) {
	d := Aggregate(cohort.Cohort{})

	if len(d.DaysSinceLast) != 6 || len(d.VisitCounts) != 5 || len(d.DiseaseTypes) != 4 {
		t.Fatalf("fixed schemes missing: %+v", d)
	}
	for _, b := range d.DaysSinceLast {
		if b.Count != 0 || b.Share != 0 {
			t.Errorf("empty cohort bucket %s = %+v", b.Label, b)
		}
	}
	// Six age bands plus the unknown band, all ranked.
	if len(d.AgeBands) != 7 {
		t.Fatalf("age bands = %d, want 7", len(d.AgeBands))
	}
	for _, b := range d.AgeBands {
		if b.Rank == 0 {
			t.Errorf("band %s unranked", b.Label)
		}
	}
}

func TestAggregate_AgeBandRanking(t *testing.T) {
	var patients []cohort.Profile
	// 60s: 3 of 4 regular (0.75). 40s: 1 of 2 regular (0.5).
	// 70s: 1 of 1 regular (1.0).
	for i := 0; i < 4; i++ {
		status := cohort.StatusRegular
		if i == 3 {
			status = cohort.StatusAtRisk
		}
		patients = append(patients, profile(0, 1, 65, status, cohort.TypeMultiple))
	}
	patients = append(patients,
		profile(0, 1, 45, cohort.StatusRegular, cohort.TypeMultiple),
		profile(0, 1, 45, cohort.StatusDelayed, cohort.TypeMultiple),
		profile(0, 1, 72, cohort.StatusRegular, cohort.TypeMultiple),
	)

	d := Aggregate(cohort.Cohort{Patients: patients})

	rankOf := map[string]int{}
	for _, b := range d.AgeBands {
		rankOf[b.Label] = b.Rank
	}
	if rankOf["70s"] != 1 {
		t.Errorf("70s rank = %d, want 1", rankOf["70s"])
	}
	if rankOf["60s"] != 2 {
		t.Errorf("60s rank = %d, want 2", rankOf["60s"])
	}
	if !(rankOf["40s"] < rankOf["80+"]) {
		t.Errorf("40s (rate 0.5) should outrank empty bands: %v", rankOf)
	}
}

func TestAggregate_AgeRankTieBrokenByCount(t *testing.T) {
	var patients []cohort.Profile
	// Both bands at rate 1.0; 50s has more patients.
	for i := 0; i < 3; i++ {
		patients = append(patients, profile(0, 1, 55, cohort.StatusRegular, cohort.TypeMultiple))
	}
	patients = append(patients, profile(0, 1, 45, cohort.StatusRegular, cohort.TypeMultiple))

	d := Aggregate(cohort.Cohort{Patients: patients})
	rankOf := map[string]int{}
	for _, b := range d.AgeBands {
		rankOf[b.Label] = b.Rank
	}
	if !(rankOf["50s"] < rankOf["40s"]) {
		t.Errorf("tie should break by count: %v", rankOf)
	}
}

func TestAggregate_UnknownAgeBand(t *testing.T) {
	patients := []cohort.Profile{
		profile(0, 1, -1, cohort.StatusRegular, cohort.TypeMultiple),
		profile(0, 1, 65, cohort.StatusRegular, cohort.TypeMultiple),
	}

	d := Aggregate(cohort.Cohort{Patients: patients})
	var unknown *AgeBandStat
	for i := range d.AgeBands {
		if d.AgeBands[i].Label == "unknown" {
			unknown = &d.AgeBands[i]
		}
	}
	if unknown == nil {
		t.Fatal("no unknown band")
	}
	if unknown.Count != 1 {
		t.Errorf("unknown count = %d, want 1", unknown.Count)
	}
}
