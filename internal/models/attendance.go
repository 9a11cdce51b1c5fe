package models

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// AttendanceStatus is the single status a student holds on a given day.
type AttendanceStatus string

const (
	AttendanceStatusPresent   AttendanceStatus = "present"
	AttendanceStatusLate      AttendanceStatus = "late"
	AttendanceStatusAbsent    AttendanceStatus = "absent"
	AttendanceStatusPermitted AttendanceStatus = "permitted"
)

// attendanceCycle is also the quick toggle order; it wraps.
var attendanceCycle = [...]AttendanceStatus{
	AttendanceStatusPresent,
	AttendanceStatusLate,
	AttendanceStatusAbsent,
	AttendanceStatusPermitted,
}

// AttendanceStatuses returns every status in cycle order.
func AttendanceStatuses() []AttendanceStatus {
	out := make([]AttendanceStatus, len(attendanceCycle))
	copy(out, attendanceCycle[:])
	return out
}

// ParseAttendanceStatus normalises user input into a status.
func ParseAttendanceStatus(raw string) (AttendanceStatus, bool) {
	s := AttendanceStatus(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	for _, status := range attendanceCycle {
		if s == status {
			return true
		}
	}
	return false
}

// Next returns the following status in the quick toggle cycle.
// Unknown values restart the cycle at present.
func (s AttendanceStatus) Next() AttendanceStatus {
	for i, status := range attendanceCycle {
		if s == status {
			return attendanceCycle[(i+1)%len(attendanceCycle)]
		}
	}
	return AttendanceStatusPresent
}

// DateMode classifies the viewed date against the current day.
type DateMode string

const (
	DateModePast   DateMode = "past"
	DateModeToday  DateMode = "today"
	DateModeFuture DateMode = "future"
)

// FutureDateMessage is shown while a roster is locked for a future date.
const FutureDateMessage = "Attendance cannot be marked for future dates."

// Editable reports whether rosters in this mode accept mutations.
func (m DateMode) Editable() bool {
	return m != DateModeFuture
}

// SelectionSet is a set of student ids chosen for a bulk operation.
type SelectionSet map[string]struct{}

// NewSelectionSet builds a set from ids.
func NewSelectionSet(ids ...string) SelectionSet {
	set := make(SelectionSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s SelectionSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Clone copies the set.
func (s SelectionSet) Clone() SelectionSet {
	out := make(SelectionSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// IDs returns the members sorted.
func (s SelectionSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MarshalJSON renders the set as a sorted array.
func (s SelectionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

// UnmarshalJSON accepts an array of ids.
func (s *SelectionSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewSelectionSet(ids...)
	return nil
}

// SelectionState tracks select mode for one roster.
type SelectionState struct {
	Active bool         `json:"active"`
	IDs    SelectionSet `json:"ids"`
}

// StatusSummary counts students per status.
type StatusSummary map[AttendanceStatus]int

// NewStatusSummary returns a summary with every status present at zero.
func NewStatusSummary() StatusSummary {
	summary := make(StatusSummary, len(attendanceCycle))
	for _, status := range attendanceCycle {
		summary[status] = 0
	}
	return summary
}

// Total sums all buckets.
func (s StatusSummary) Total() int {
	total := 0
	for _, count := range s {
		total += count
	}
	return total
}

// RosterKey identifies the roster of one class on one date within a session.
type RosterKey struct {
	SessionID string
	ClassID   string
	Date      time.Time
}

// String renders a stable key usable for maps and cache entries.
func (k RosterKey) String() string {
	return k.SessionID + "|" + k.ClassID + "|" + k.Date.Format(DateLayout)
}

// RosterView is the read model returned after every roster read or mutation.
type RosterView struct {
	ClassID        string         `json:"class_id"`
	Date           string         `json:"date"`
	Mode           DateMode       `json:"mode"`
	Editable       bool           `json:"editable"`
	BlockedMessage string         `json:"blocked_message,omitempty"`
	Students       []Student      `json:"students"`
	Summary        StatusSummary  `json:"summary"`
	Selection      SelectionState `json:"selection"`
}

// AttendanceSubmission is the snapshot handed to the submission sink.
type AttendanceSubmission struct {
	ID          string        `json:"id"`
	SessionID   string        `json:"session_id"`
	ClassID     string        `json:"class_id"`
	Date        string        `json:"date"`
	SubmittedAt time.Time     `json:"submitted_at"`
	Students    []Student     `json:"students"`
	Summary     StatusSummary `json:"summary"`
}

// SubmissionReceipt acknowledges a queued submission.
type SubmissionReceipt struct {
	ID          string        `json:"id"`
	ClassID     string        `json:"class_id"`
	Date        string        `json:"date"`
	SubmittedAt time.Time     `json:"submitted_at"`
	Summary     StatusSummary `json:"summary"`
	State       string        `json:"state"`
}
