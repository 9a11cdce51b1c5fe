package models

// DisplayGroup is an opaque two-valued key used only to order the roster.
type DisplayGroup string

const (
	DisplayGroupPrimary   DisplayGroup = "primary"
	DisplayGroupSecondary DisplayGroup = "secondary"
)

// Rank orders groups; the primary group always comes first.
func (g DisplayGroup) Rank() int {
	if g == DisplayGroupPrimary {
		return 0
	}
	return 1
}

// Student is one learner on a class roster.
type Student struct {
	ID         string           `db:"id" json:"id"`
	Name       string           `db:"name" json:"name"`
	RollNumber string           `db:"roll_number" json:"roll_number"`
	Group      DisplayGroup     `db:"display_group" json:"group"`
	Status     AttendanceStatus `db:"status" json:"status"`
}

// CloneStudents copies a roster slice.
func CloneStudents(students []Student) []Student {
	if students == nil {
		return nil
	}
	out := make([]Student, len(students))
	copy(out, students)
	return out
}
