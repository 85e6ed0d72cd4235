package models

import (
	"time"

	"github.com/terraincognita07/roomdesk/internal/timeslot"
)

type Reservation struct {
	ID         uint               `gorm:"primaryKey"`
	UserID     uint               `gorm:"not null;index"`
	RoomNumber int                `gorm:"not null"`
	Date       timeslot.Date      `gorm:"type:date;not null"`
	StartTime  timeslot.TimeOfDay `gorm:"not null"`
	EndTime    timeslot.TimeOfDay `gorm:"not null"`
	Name       string             `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (reservation Reservation) Interval() timeslot.Interval {
	return timeslot.Interval{Start: reservation.StartTime, End: reservation.EndTime}
}

// RoomOccupancy is one reserved slot on the per-day room board.
type RoomOccupancy struct {
	RoomNumber int                `gorm:"column:room_number"`
	StartTime  timeslot.TimeOfDay `gorm:"column:start_time"`
	EndTime    timeslot.TimeOfDay `gorm:"column:end_time"`
	Username   string             `gorm:"column:username"`
}
