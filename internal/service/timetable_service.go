package service

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/teacher-portal-api/internal/dto"
	"github.com/noah-isme/teacher-portal-api/internal/models"
	appErrors "github.com/noah-isme/teacher-portal-api/pkg/errors"
)

const (
	slotFirst  = "8:30 AM - 9:15 AM"
	slotSecond = "9:30 AM - 10:15 AM"
	slotThird  = "10:30 AM - 11:15 AM"
	slotFourth = "11:30 AM - 12:15 PM"
	slotFifth  = "1:30 PM - 2:15 PM"

	subjectMath = "Mathematics"
	freePeriod  = "Free Period"
	staffRoom   = "Staff Room"
	conference  = "Conference Room"
)

func teach(slot, class, room string) models.Period {
	return models.Period{Time: slot, Subject: subjectMath, Class: "Class " + class, Room: room}
}

func free(slot string) models.Period {
	return models.Period{Time: slot, Subject: freePeriod, Room: staffRoom}
}

func meeting(slot, name string) models.Period {
	return models.Period{Time: slot, Subject: name, Room: conference}
}

var weeklyTimetable = []models.TimetableDay{
	{Day: "Monday", Periods: []models.Period{
		teach(slotFirst, "9A", "Room 101"),
		teach(slotSecond, "10B", "Room 203"),
		free(slotThird),
		teach(slotFourth, "8C", "Room 105"),
		teach(slotFifth, "9B", "Room 102"),
	}},
	{Day: "Tuesday", Periods: []models.Period{
		teach(slotFirst, "10A", "Room 201"),
		teach(slotSecond, "8A", "Room 103"),
		meeting(slotThird, "Department Meeting"),
		free(slotFourth),
		teach(slotFifth, "9A", "Room 101"),
	}},
	{Day: "Wednesday", Periods: []models.Period{
		teach(slotFirst, "8B", "Room 104"),
		teach(slotSecond, "9B", "Room 102"),
		teach(slotThird, "10A", "Room 201"),
		free(slotFourth),
		teach(slotFifth, "8C", "Room 105"),
	}},
	{Day: "Thursday", Periods: []models.Period{
		teach(slotFirst, "9A", "Room 101"),
		free(slotSecond),
		teach(slotThird, "10B", "Room 203"),
		teach(slotFourth, "8A", "Room 103"),
		meeting(slotFifth, "Staff Meeting"),
	}},
	{Day: "Friday", Periods: []models.Period{
		teach(slotFirst, "8B", "Room 104"),
		teach(slotSecond, "9B", "Room 102"),
		teach(slotThird, "10A", "Room 201"),
		teach(slotFourth, "8C", "Room 105"),
		free(slotFifth),
	}},
}

// TimetableService serves the static weekly timetable.
type TimetableService struct {
	days   []models.TimetableDay
	logger *zap.Logger
	loc    *time.Location
	now    func() time.Time
}

// NewTimetableService constructs the timetable service.
func NewTimetableService(logger *zap.Logger, loc *time.Location) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &TimetableService{days: weeklyTimetable, logger: logger, loc: loc, now: time.Now}
}

// WithClock overrides the time source.
func (s *TimetableService) WithClock(now func() time.Time) *TimetableService {
	if now != nil {
		s.now = now
	}
	return s
}

// Week returns every weekday, flagging the active period of today.
func (s *TimetableService) Week() models.Timetable {
	now := s.now().In(s.loc)
	result := models.Timetable{DefaultDay: DefaultDay(now), Days: make([]models.TimetableDay, 0, len(s.days))}
	for _, day := range s.days {
		result.Days = append(result.Days, models.TimetableDay{Day: day.Day, Periods: s.periods(day, now)})
	}
	return result
}

// Day returns one weekday by case-insensitive name.
func (s *TimetableService) Day(name string) (*dto.TimetableDayResponse, error) {
	now := s.now().In(s.loc)
	for _, day := range s.days {
		if strings.EqualFold(day.Day, strings.TrimSpace(name)) {
			return &dto.TimetableDayResponse{
				Day:       day.Day,
				IsDefault: day.Day == DefaultDay(now),
				Periods:   s.periods(day, now),
			}, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day %q", name))
}

// Today returns the default day's periods with active flags resolved.
func (s *TimetableService) Today() models.TimetableDay {
	now := s.now().In(s.loc)
	target := DefaultDay(now)
	for _, day := range s.days {
		if day.Day == target {
			return models.TimetableDay{Day: day.Day, Periods: s.periods(day, now)}
		}
	}
	return models.TimetableDay{Day: target}
}

func (s *TimetableService) periods(day models.TimetableDay, now time.Time) []models.Period {
	periods := make([]models.Period, len(day.Periods))
	copy(periods, day.Periods)
	if day.Day != now.Weekday().String() {
		return periods
	}
	for i := range periods {
		active, err := IsPeriodActive(periods[i].Time, now)
		if err != nil {
			s.logger.Warn("unparseable timetable slot", zap.String("slot", periods[i].Time), zap.Error(err))
			continue
		}
		periods[i].Active = active
	}
	return periods
}

// DefaultDay names the weekday to show first; weekends fall back to Monday.
func DefaultDay(now time.Time) string {
	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		return time.Monday.String()
	default:
		return now.Weekday().String()
	}
}

// IsPeriodActive reports whether now falls within a "h:mm AM - h:mm PM" slot,
// bounds included.
func IsPeriodActive(slot string, now time.Time) (bool, error) {
	parts := strings.Split(slot, "-")
	if len(parts) != 2 {
		return false, fmt.Errorf("slot %q must have a start and an end", slot)
	}
	start, err := minuteOfDay(parts[0])
	if err != nil {
		return false, err
	}
	end, err := minuteOfDay(parts[1])
	if err != nil {
		return false, err
	}
	current := now.Hour()*60 + now.Minute()
	return current >= start && current <= end, nil
}

func minuteOfDay(raw string) (int, error) {
	t, err := time.Parse("3:04 PM", strings.ToUpper(strings.TrimSpace(raw)))
	if err != nil {
		return 0, fmt.Errorf("parse slot time %q: %w", raw, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
