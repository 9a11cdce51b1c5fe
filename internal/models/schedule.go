package models

// Period is one slot of the weekly timetable.
type Period struct {
	Time    string `json:"time"`
	Subject string `json:"subject"`
	Class   string `json:"class,omitempty"`
	Room    string `json:"room"`
	Active  bool   `json:"active"`
}

// Teaching reports whether the slot is a class rather than a free period or meeting.
func (p Period) Teaching() bool {
	return p.Class != ""
}

// TimetableDay is the ordered list of periods for one weekday.
type TimetableDay struct {
	Day     string   `json:"day"`
	Periods []Period `json:"periods"`
}

// Timetable is the teacher's Monday to Friday schedule.
type Timetable struct {
	DefaultDay string         `json:"default_day"`
	Days       []TimetableDay `json:"days"`
}
