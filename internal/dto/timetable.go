package dto

import "github.com/noah-isme/teacher-portal-api/internal/models"

// TimetableDayResponse wraps a single day with the current active flag resolved.
type TimetableDayResponse struct {
	Day       string          `json:"day"`
	IsDefault bool            `json:"isDefault"`
	Periods   []models.Period `json:"periods"`
}
