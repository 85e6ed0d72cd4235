package services

import (
	"strings"
	"unicode/utf8"

	"github.com/terraincognita07/roomdesk/internal/timeslot"
)

const maxReservationNameLength = 120

type CreateReservationInput struct {
	Name      string
	Date      string
	StartTime string
	EndTime   string
}

// EditReservationInput replaces the schedule of a reservation. A nil Room
// restarts first-fit at room 1; a nil Name keeps the current name.
type EditReservationInput struct {
	Name      *string
	Date      string
	StartTime string
	EndTime   string
	Room      *int
}

type HistoryFilterInput struct {
	Date      string
	StartTime string
	EndTime   string
}

type AvailabilityInput struct {
	Date      string
	StartTime string
	EndTime   string
	ExcludeID uint
}

type scheduleRequest struct {
	date     timeslot.Date
	interval timeslot.Interval
}

func parseScheduleRequest(rawDate string, rawStart string, rawEnd string) (scheduleRequest, error) {
	date, err := timeslot.ParseDate(rawDate)
	if err != nil {
		return scheduleRequest{}, err
	}
	interval, err := timeslot.ParseInterval(rawStart, rawEnd)
	if err != nil {
		return scheduleRequest{}, err
	}
	if err := interval.Validate(); err != nil {
		return scheduleRequest{}, err
	}
	return scheduleRequest{date: date, interval: interval}, nil
}

func normalizeReservationName(raw string, fallback string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		name = strings.TrimSpace(fallback)
	}
	if utf8.RuneCountInString(name) > maxReservationNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

func isBlank(raw string) bool {
	return strings.TrimSpace(raw) == ""
}
