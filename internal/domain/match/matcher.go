// Package match joins visit records to same-day reservation records for
// the same patient, recovering the hour of day and a department-refined
// label that the billing export lacks.
package match

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/clinsight/clinsight/internal/domain/identity"
	"github.com/clinsight/clinsight/internal/domain/records"
	"github.com/clinsight/clinsight/internal/platform/jpcal"
)

// MatchedVisit pairs a visit with at most one reservation. A reservation
// instance is consumed by at most one visit.
type MatchedVisit struct {
	Visit       records.VisitRecord        `json:"visit"`
	Reservation *records.ReservationRecord `json:"reservation,omitempty"`
	Weekday     string                     `json:"weekday,omitempty"` // 8-bucket label, holiday wins
	Hour        int                        `json:"hour"`              // -1 when unmatched
}

// Stats carries the two unmatched counters. They are data-quality
// signals, not errors.
type Stats struct {
	UnmatchedVisits       int `json:"unmatched_visits"`
	UnmatchedReservations int `json:"unmatched_reservations"`
}

// Matcher performs the greedy per-bucket pairing.
type Matcher struct {
	cal     *jpcal.Calendar
	resolve identity.Resolver
	log     zerolog.Logger
}

func NewMatcher(cal *jpcal.Calendar, resolve identity.Resolver, log zerolog.Logger) *Matcher {
	return &Matcher{cal: cal, resolve: resolve, log: log}
}

// bucket is a consumable list of same-day reservations for one patient,
// kept sorted ascending by scheduled hour.
type bucket []*records.ReservationRecord

// take removes and returns the first candidate whose department overlaps
// dept, falling back to the earliest-hour candidate. Selection is greedy
// and order-sensitive by design; it mirrors the source export row order
// rather than computing a globally optimal assignment.
func (b bucket) take(dept string) (*records.ReservationRecord, bucket) {
	if len(b) == 0 {
		return nil, b
	}
	pick := 0
	if dept != "" {
		for i, r := range b {
			if departmentsOverlap(r.Department, dept) {
				pick = i
				break
			}
		}
	}
	chosen := b[pick]
	rest := make(bucket, 0, len(b)-1)
	rest = append(rest, b[:pick]...)
	rest = append(rest, b[pick+1:]...)
	return chosen, rest
}

// departmentsOverlap treats two department labels as equivalent when one
// contains the other, since the two exports abbreviate differently.
func departmentsOverlap(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// Match pairs every visit with at most one reservation from the
// (patient identity, date) bucket. Visits without a resolvable identity
// or without a remaining candidate stay unmatched on the visit side;
// reservations left in any bucket afterwards count on the reservation
// side.
func (m *Matcher) Match(visits []records.VisitRecord, reservations []records.ReservationRecord) ([]MatchedVisit, Stats) {
	var stats Stats

	buckets := make(map[string]bucket)
	for i := range reservations {
		r := &reservations[i]
		key, ok := m.resolve(r.PatientID, r.PatientName, "")
		if !ok {
			stats.UnmatchedReservations++
			continue
		}
		bk := bucketKey(key, r.Date)
		buckets[bk] = insertByHour(buckets[bk], r)
	}

	out := make([]MatchedVisit, 0, len(visits))
	for _, v := range visits {
		mv := MatchedVisit{Visit: v, Hour: -1}
		if wd, err := m.cal.BucketFor(v.Date); err == nil {
			mv.Weekday = wd.String()
		}

		key, ok := m.resolve(v.PatientNumber, v.PatientName, v.BirthDate)
		if !ok {
			stats.UnmatchedVisits++
			out = append(out, mv)
			continue
		}

		bk := bucketKey(key, v.Date)
		chosen, rest := buckets[bk].take(v.Department)
		if chosen == nil {
			stats.UnmatchedVisits++
			out = append(out, mv)
			continue
		}
		buckets[bk] = rest

		mv.Reservation = chosen
		mv.Hour = chosen.Hour
		out = append(out, mv)
	}

	for _, b := range buckets {
		stats.UnmatchedReservations += len(b)
	}

	m.log.Debug().
		Int("visits", len(visits)).
		Int("reservations", len(reservations)).
		Int("unmatched_visits", stats.UnmatchedVisits).
		Int("unmatched_reservations", stats.UnmatchedReservations).
		Msg("cross-source match complete")
	return out, stats
}

func bucketKey(key identity.Key, dateISO string) string {
	return string(key) + "\x1f" + dateISO
}

// insertByHour keeps the bucket sorted ascending by hour while preserving
// encounter order among equal hours.
func insertByHour(b bucket, r *records.ReservationRecord) bucket {
	i := len(b)
	for i > 0 && b[i-1].Hour > r.Hour {
		i--
	}
	b = append(b, nil)
	copy(b[i+1:], b[i:])
	b[i] = r
	return b
}
