package dto

import "github.com/noah-isme/teacher-portal-api/internal/models"

// AttendanceSummaryResponse reports per status counts for one roster.
type AttendanceSummaryResponse struct {
	ClassID string               `json:"classId"`
	Date    string               `json:"date"`
	Mode    models.DateMode      `json:"mode"`
	Total   int                  `json:"total"`
	Counts  models.StatusSummary `json:"counts"`
}

// ExportFile is a rendered roster document ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
