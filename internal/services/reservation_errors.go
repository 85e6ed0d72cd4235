package services

import (
	"errors"

	"github.com/terraincognita07/roomdesk/internal/timeslot"
)

var (
	ErrInvalidFormat       = timeslot.ErrInvalidFormat
	ErrInvalidInterval     = timeslot.ErrInvalidInterval
	ErrPastDateTime        = errors.New("reservation must start in the future")
	ErrNoRoomAvailable     = errors.New("no room available for the requested time")
	ErrRoomUnavailable     = errors.New("requested room is not available")
	ErrInvalidRoom         = errors.New("room does not exist")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrReservationEnded    = errors.New("reservation has already ended")
	ErrReservationConflict = errors.New("reservation conflicted with a concurrent booking")
	ErrInvalidName         = errors.New("reservation name is too long")
)

// ErrorKind maps sentinel errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrInvalidFormat), errors.Is(err, ErrInvalidInterval), errors.Is(err, ErrInvalidName):
		return "validation"
	case errors.Is(err, ErrPastDateTime):
		return "past_date_time"
	case errors.Is(err, ErrNoRoomAvailable), errors.Is(err, ErrRoomUnavailable):
		return "no_room"
	case errors.Is(err, ErrInvalidRoom):
		return "invalid_room"
	case errors.Is(err, ErrReservationNotFound):
		return "not_found"
	case errors.Is(err, ErrReservationEnded):
		return "ended"
	case errors.Is(err, ErrReservationConflict):
		return "conflict"
	case errors.Is(err, ErrAuthCredentialsInvalid), errors.Is(err, ErrAuthRecoveryCodeInvalid), errors.Is(err, ErrInvalidResetToken):
		return "invalid_credentials"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	}
	return "unexpected"
}
