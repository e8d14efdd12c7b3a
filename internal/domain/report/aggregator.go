package report

import (
	"sort"

	"github.com/clinsight/clinsight/internal/domain/cohort"
)

// BucketCount is one bucket of a fixed partition with its cohort share.
// Shares are percentages; an empty cohort yields 0 everywhere rather than
// an error.
type BucketCount struct {
	Label string  `json:"label"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// AgeBandStat extends a bucket with the continuation ranking inputs.
type AgeBandStat struct {
	Label       string  `json:"label"`
	Count       int     `json:"count"`
	Regular     int     `json:"regular"`
	RegularRate float64 `json:"regular_rate"`
	Rank        int     `json:"rank"`
}

// Distributions holds the four fixed, ordered, non-overlapping bucket
// schemes computed over the cohort.
type Distributions struct {
	DaysSinceLast []BucketCount `json:"days_since_last"`
	VisitCounts   []BucketCount `json:"visit_counts"`
	AgeBands      []AgeBandStat `json:"age_bands"`
	DiseaseTypes  []BucketCount `json:"disease_types"`
}

type intBucket struct {
	label string
	lo    int
	hi    int // inclusive; -1 means unbounded
}

// The day and count schemes cover [0, inf) with no gap or overlap.
var (
	dayBuckets = []intBucket{
		{"0-30", 0, 30},
		{"31-60", 31, 60},
		{"61-90", 61, 90},
		{"91-120", 91, 120},
		{"121-150", 121, 150},
		{"151+", 151, -1},
	}
	visitCountBuckets = []intBucket{
		{"1", 0, 1},
		{"2", 2, 2},
		{"3-5", 3, 5},
		{"6-10", 6, 10},
		{"11+", 11, -1},
	}
	ageBands = []intBucket{
		{"under40", 0, 39},
		{"40s", 40, 49},
		{"50s", 50, 59},
		{"60s", 60, 69},
		{"70s", 70, 79},
		{"80+", 80, -1},
	}
)

const unknownAgeBand = "unknown"

var diseaseTypeOrder = []cohort.DiseaseType{
	cohort.TypeHypertension,
	cohort.TypeDiabetes,
	cohort.TypeLipid,
	cohort.TypeMultiple,
}

// Aggregate computes the four distributions over the cohort.
func Aggregate(c cohort.Cohort) Distributions {
	total := len(c.Patients)

	days := countIntBuckets(dayBuckets, total, c.Patients, func(p cohort.Profile) int { return p.DaysSinceLast })
	counts := countIntBuckets(visitCountBuckets, total, c.Patients, func(p cohort.Profile) int { return p.VisitCount })

	byType := make(map[cohort.DiseaseType]int)
	for _, p := range c.Patients {
		byType[p.DiseaseType]++
	}
	types := make([]BucketCount, 0, len(diseaseTypeOrder))
	for _, t := range diseaseTypeOrder {
		types = append(types, BucketCount{Label: string(t), Count: byType[t], Share: share(byType[t], total)})
	}

	return Distributions{
		DaysSinceLast: days,
		VisitCounts:   counts,
		AgeBands:      aggregateAgeBands(c.Patients),
		DiseaseTypes:  types,
	}
}

func countIntBuckets(scheme []intBucket, total int, patients []cohort.Profile, value func(cohort.Profile) int) []BucketCount {
	out := make([]BucketCount, len(scheme))
	for i, b := range scheme {
		out[i] = BucketCount{Label: b.label}
	}
	for _, p := range patients {
		v := value(p)
		for i, b := range scheme {
			if v >= b.lo && (b.hi < 0 || v <= b.hi) {
				out[i].Count++
				break
			}
		}
	}
	for i := range out {
		out[i].Share = share(out[i].Count, total)
	}
	return out
}

// aggregateAgeBands buckets patients by age and ranks bands by regular
// rate descending, ties broken by count descending. Patients without a
// known age fall into a trailing unknown band that participates in the
// ranking like any other.
func aggregateAgeBands(patients []cohort.Profile) []AgeBandStat {
	out := make([]AgeBandStat, 0, len(ageBands)+1)
	for _, b := range ageBands {
		out = append(out, AgeBandStat{Label: b.label})
	}
	out = append(out, AgeBandStat{Label: unknownAgeBand})
	unknown := len(out) - 1

	for _, p := range patients {
		idx := unknown
		if p.Age >= 0 {
			for i, b := range ageBands {
				if p.Age >= b.lo && (b.hi < 0 || p.Age <= b.hi) {
					idx = i
					break
				}
			}
		}
		out[idx].Count++
		if p.Status == cohort.StatusRegular {
			out[idx].Regular++
		}
	}

	for i := range out {
		if out[i].Count > 0 {
			out[i].RegularRate = float64(out[i].Regular) / float64(out[i].Count)
		}
	}

	ranked := make([]int, len(out))
	for i := range ranked {
		ranked[i] = i
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		ia, ib := out[ranked[a]], out[ranked[b]]
		if ia.RegularRate != ib.RegularRate {
			return ia.RegularRate > ib.RegularRate
		}
		return ia.Count > ib.Count
	})
	for pos, idx := range ranked {
		out[idx].Rank = pos + 1
	}
	return out
}

func share(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) * 100 / float64(total)
}
