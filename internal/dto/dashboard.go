package dto

import "github.com/noah-isme/teacher-portal-api/internal/models"

// TeacherDashboardResponse is the landing page payload after login.
type TeacherDashboardResponse struct {
	Teacher          models.TeacherProfile `json:"teacher"`
	Date             string                `json:"date"`
	FormattedDate    string                `json:"formattedDate"`
	Day              string                `json:"day"`
	TodaySchedule    []DashboardPeriod     `json:"todaySchedule"`
	NewAnnouncements int                   `json:"newAnnouncements"`
	Classes          []DashboardClass      `json:"classes"`
}

// DashboardPeriod is one teaching period of the day.
type DashboardPeriod struct {
	Time    string `json:"time"`
	Subject string `json:"subject"`
	Class   string `json:"class"`
	Room    string `json:"room"`
	Active  bool   `json:"active"`
}

// DashboardClass links a class to its attendance roster for today.
type DashboardClass struct {
	ClassID        string `json:"classId"`
	AttendancePath string `json:"attendancePath"`
}
