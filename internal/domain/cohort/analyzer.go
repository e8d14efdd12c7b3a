// Package cohort builds per-patient longitudinal profiles from linked
// diagnosis and visit records and classifies follow-up continuity.
package cohort

import (
	"sort"
	"strings"
	"time"

	"github.com/clinsight/clinsight/internal/domain/identity"
	"github.com/clinsight/clinsight/internal/domain/records"
)

// DiseaseType partitions the cohort by lifestyle-disease category.
type DiseaseType string

const (
	TypeHypertension DiseaseType = "hypertension"
	TypeDiabetes     DiseaseType = "diabetes"
	TypeLipid        DiseaseType = "lipid-disorder"
	// TypeMultiple covers patients whose disease names match zero or two
	// or more of the keyword categories.
	TypeMultiple DiseaseType = "multiple"
)

// Status is the continuity classification, a strict partition over every
// patient with a resolvable last-visit date.
type Status string

const (
	StatusRegular Status = "regular"
	StatusDelayed Status = "delayed"
	StatusAtRisk  Status = "atRisk"
)

const (
	regularMaxDays = 90
	delayedMaxDays = 150
)

// diseaseKeywords drive the category test. A disease name belongs to a
// category when it contains any of the category's keywords.
var diseaseKeywords = map[DiseaseType][]string{
	TypeHypertension: {"高血圧"},
	TypeDiabetes:     {"糖尿病"},
	TypeLipid:        {"脂質異常", "高脂血"},
}

// Profile is one patient's derived longitudinal record. Profiles are
// rebuilt in full on every analysis run and never mutated in place.
type Profile struct {
	// SeqID is a presentational anonymized number assigned by sorted key
	// order; it never influences classification.
	SeqID         int          `json:"seq_id"`
	Key           identity.Key `json:"-"`
	Diseases      []string     `json:"diseases"`
	DiseaseType   DiseaseType  `json:"disease_type"`
	VisitDates    []string     `json:"visit_dates"`
	FirstVisit    string       `json:"first_visit"`
	LastVisit     string       `json:"last_visit"`
	VisitCount    int          `json:"visit_count"`
	Status        Status       `json:"status"`
	DaysSinceLast int          `json:"days_since_last"`
	Age           int          `json:"age"` // -1 when no birth date is known
}

// Cohort is the analysis output: patients with at least one
// lifestyle-disease diagnosis and at least one in-range visit.
type Cohort struct {
	// BaselineDate is the latest in-range visit date across the whole
	// snapshot. It acts as "today" so the analysis is reproducible from
	// static exports.
	BaselineDate string    `json:"baseline_date"`
	Patients     []Profile `json:"patients"`
}

// AgeFunc resolves a patient age from a birth date as of a reference date.
type AgeFunc func(birthDateISO, onISO string) int

// AgeAt is the default AgeFunc.
func AgeAt(birthDateISO, onISO string) int {
	birth, err := records.ParseDate(birthDateISO)
	if err != nil {
		return -1
	}
	on, err := records.ParseDate(onISO)
	if err != nil {
		return -1
	}
	age := on.Year() - birth.Year()
	if on.Month() < birth.Month() || (on.Month() == birth.Month() && on.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return -1
	}
	return age
}

// Analyzer builds cohorts. resolve and age are injected so the analysis
// layer stays free of normalization details.
type Analyzer struct {
	resolve identity.Resolver
	age     AgeFunc
}

func NewAnalyzer(resolve identity.Resolver, age AgeFunc) *Analyzer {
	if age == nil {
		age = AgeAt
	}
	return &Analyzer{resolve: resolve, age: age}
}

// Build derives the cohort from lifestyle-disease diagnoses and visits
// restricted to [fromISO, toISO] (empty bounds are open). Records without
// a resolvable patient key are silently excluded.
func (a *Analyzer) Build(diagnoses []records.DiagnosisRecord, visits []records.VisitRecord, fromISO, toISO string) Cohort {
	diseases := make(map[identity.Key]map[string]struct{})
	birthByKey := make(map[identity.Key]string)

	for _, d := range diagnoses {
		if !d.IsLifestyleDisease() {
			continue
		}
		key, ok := a.resolve(d.PatientNumber, d.PatientName, d.BirthDate)
		if !ok {
			continue
		}
		set := diseases[key]
		if set == nil {
			set = make(map[string]struct{})
			diseases[key] = set
		}
		set[d.DiseaseName] = struct{}{}
		if birthByKey[key] == "" && d.BirthDate != "" {
			birthByKey[key] = d.BirthDate
		}
	}

	baseline := ""
	visitDates := make(map[identity.Key]map[string]struct{})
	for _, v := range visits {
		if !inRange(v.Date, fromISO, toISO) {
			continue
		}
		if v.Date > baseline {
			baseline = v.Date
		}
		key, ok := a.resolve(v.PatientNumber, v.PatientName, v.BirthDate)
		if !ok {
			continue
		}
		if _, diagnosed := diseases[key]; !diagnosed {
			continue
		}
		set := visitDates[key]
		if set == nil {
			set = make(map[string]struct{})
			visitDates[key] = set
		}
		set[v.Date] = struct{}{}
		if birthByKey[key] == "" && v.BirthDate != "" {
			birthByKey[key] = v.BirthDate
		}
	}

	keys := make([]identity.Key, 0, len(visitDates))
	for key := range visitDates {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	patients := make([]Profile, 0, len(keys))
	for i, key := range keys {
		dates := sortedDates(visitDates[key])
		last := dates[len(dates)-1]
		days := daysBetween(last, baseline)

		p := Profile{
			SeqID:         i + 1,
			Key:           key,
			Diseases:      sortedNames(diseases[key]),
			VisitDates:    dates,
			FirstVisit:    dates[0],
			LastVisit:     last,
			VisitCount:    len(dates),
			DaysSinceLast: days,
			Age:           -1,
		}
		p.DiseaseType = classifyDiseases(p.Diseases)
		p.Status = classifyStatus(days)
		if birth := birthByKey[key]; birth != "" {
			p.Age = a.age(birth, baseline)
		}
		patients = append(patients, p)
	}

	return Cohort{BaselineDate: baseline, Patients: patients}
}

// StatusTotals counts patients per continuity status.
func (c Cohort) StatusTotals() map[Status]int {
	totals := map[Status]int{StatusRegular: 0, StatusDelayed: 0, StatusAtRisk: 0}
	for _, p := range c.Patients {
		totals[p.Status]++
	}
	return totals
}

func classifyStatus(daysSinceLast int) Status {
	switch {
	case daysSinceLast <= regularMaxDays:
		return StatusRegular
	case daysSinceLast <= delayedMaxDays:
		return StatusDelayed
	default:
		return StatusAtRisk
	}
}

// classifyDiseases assigns the single matching category, or multiple when
// the patient's diseases span zero or several categories.
func classifyDiseases(names []string) DiseaseType {
	matched := map[DiseaseType]bool{}
	for _, name := range names {
		for typ, keywords := range diseaseKeywords {
			for _, kw := range keywords {
				if strings.Contains(name, kw) {
					matched[typ] = true
				}
			}
		}
	}
	if len(matched) != 1 {
		return TypeMultiple
	}
	for typ := range matched {
		return typ
	}
	return TypeMultiple
}

func inRange(dateISO, fromISO, toISO string) bool {
	if fromISO != "" && dateISO < fromISO {
		return false
	}
	if toISO != "" && dateISO > toISO {
		return false
	}
	return true
}

func daysBetween(fromISO, toISO string) int {
	from, err1 := records.ParseDate(fromISO)
	to, err2 := records.ParseDate(toISO)
	if err1 != nil || err2 != nil {
		return 0
	}
	days := int(to.Sub(from) / (24 * time.Hour))
	if days < 0 {
		return 0
	}
	return days
}

func sortedDates(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func sortedNames(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
