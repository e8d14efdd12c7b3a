package records

import (
	"strings"
	"time"
)

// Family identifies one persisted record family (one snapshot array).
type Family string

const (
	FamilyVisits       Family = "visits"
	FamilyReservations Family = "reservations"
	FamilyDiagnoses    Family = "diagnoses"
	FamilyListings     Family = "listings"
	FamilySurveys      Family = "surveys"
)

// DateLayout is the ISO calendar-date layout used across all snapshot families.
const DateLayout = "2006-01-02"

// ParseDate parses an ISO calendar date (yyyy-mm-dd).
func ParseDate(iso string) (time.Time, error) {
	return time.Parse(DateLayout, iso)
}

// MonthKey returns the yyyy-mm prefix of an ISO date, or "" if the date is
// too short to carry one.
func MonthKey(iso string) string {
	if len(iso) < 7 {
		return ""
	}
	return iso[:7]
}

// VisitRecord is one line-item from a billing/EMR export representing a
// single patient encounter. Records are immutable once merged; a later
// import sharing the same natural key supersedes the earlier record.
type VisitRecord struct {
	Date           string `json:"date"`                 // ISO yyyy-mm-dd
	MonthKey       string `json:"month_key"`            // yyyy-mm
	VisitType      string `json:"visit_type"`           // opaque classifier label
	PatientNumber  string `json:"patient_number,omitempty"`
	BirthDate      string `json:"birth_date,omitempty"` // ISO yyyy-mm-dd
	Department     string `json:"department"`
	Points         int    `json:"points,omitempty"` // billing points (revenue proxy)
	PatientName    string `json:"patient_name,omitempty"` // normalized upstream
	PatientAddress string `json:"patient_address,omitempty"`
}

// NaturalKey returns the dedup key for the visit family.
func (v VisitRecord) NaturalKey() string {
	return strings.Join([]string{v.Date, v.VisitType, v.PatientNumber, v.Department}, "\x1f")
}

// ReservationRecord is one appointment-booking export row. It carries the
// scheduled hour and channel metadata that visit records lack.
type ReservationRecord struct {
	Department  string `json:"department"`
	VisitType   string `json:"visit_type"`
	Date        string `json:"date"` // reserved calendar date, ISO yyyy-mm-dd
	Hour        int    `json:"hour"` // scheduled hour of day, 0-23
	ReceivedAt  string `json:"received_at"`           // booking timestamp, ISO
	Appointment string `json:"appointment,omitempty"` // appointment slot, ISO
	PatientID   string `json:"patient_id"`
	PatientName string `json:"patient_name,omitempty"`
	SameDay     bool   `json:"same_day"`
}

// NaturalKey returns the dedup key for the reservation family.
func (r ReservationRecord) NaturalKey() string {
	return strings.Join([]string{r.Department, r.VisitType, r.ReceivedAt, r.PatientID, r.Appointment}, "\x1f")
}

// CategoryLifestyleDisease marks diagnosis records that participate in
// cohort-continuity analysis.
const CategoryLifestyleDisease = "lifestyle-disease"

// DiagnosisRecord is one diagnosis export row.
type DiagnosisRecord struct {
	Department    string `json:"department"`
	StartDate     string `json:"start_date"` // ISO yyyy-mm-dd
	DiseaseName   string `json:"disease_name"`
	Category      string `json:"category"`
	PatientNumber string `json:"patient_number,omitempty"`
	PatientName   string `json:"patient_name,omitempty"` // normalized upstream
	BirthDate     string `json:"birth_date,omitempty"`
}

// NaturalKey returns the dedup key for the diagnosis family.
func (d DiagnosisRecord) NaturalKey() string {
	return strings.Join([]string{d.PatientNumber, d.PatientName, d.BirthDate, d.DiseaseName, d.StartDate, d.Department}, "\x1f")
}

// IsLifestyleDisease reports whether the record belongs to the
// lifestyle-disease category.
func (d DiagnosisRecord) IsLifestyleDisease() bool {
	return d.Category == CategoryLifestyleDisease
}

// ListingRecord is one row of the clinic's web-listing metrics export.
// Merge-only: the family participates in snapshot merging but not in
// identity-based joins.
type ListingRecord struct {
	Date        string `json:"date"` // ISO yyyy-mm-dd
	Source      string `json:"source"`
	Impressions int    `json:"impressions"`
	Actions     int    `json:"actions"`
}

// NaturalKey returns the dedup key for the listing family.
func (l ListingRecord) NaturalKey() string {
	return l.Date + "\x1f" + l.Source
}

// SurveyRecord is one patient-survey export row. Merge-only.
type SurveyRecord struct {
	SubmittedAt string `json:"submitted_at"` // ISO timestamp
	Topic       string `json:"topic"`
	Score       int    `json:"score"`
	Respondent  string `json:"respondent,omitempty"`
}

// NaturalKey returns the dedup key for the survey family.
func (s SurveyRecord) NaturalKey() string {
	return strings.Join([]string{s.SubmittedAt, s.Respondent, s.Topic}, "\x1f")
}
