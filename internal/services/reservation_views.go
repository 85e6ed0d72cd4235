package services

import (
	"time"

	"github.com/terraincognita07/roomdesk/internal/models"
	"github.com/terraincognita07/roomdesk/internal/timeslot"
)

type AllocationResult struct {
	ID   uint `json:"id"`
	Room int  `json:"room"`
}

type ReservationView struct {
	ID        uint               `json:"id"`
	Name      string             `json:"name"`
	Room      int                `json:"room"`
	Date      timeslot.Date      `json:"date"`
	Start     timeslot.TimeOfDay `json:"start_time"`
	End       timeslot.TimeOfDay `json:"end_time"`
	IsExpired bool               `json:"is_expired"`
	CanEdit   bool               `json:"can_edit"`
}

type HistoryResult struct {
	Reservations []ReservationView `json:"reservations"`
	Warning      string            `json:"warning,omitempty"`
}

type BoardSlot struct {
	Start    timeslot.TimeOfDay `json:"start_time"`
	End      timeslot.TimeOfDay `json:"end_time"`
	Username string             `json:"username"`
}

type RoomBoardRow struct {
	Room  int         `json:"room"`
	Slots []BoardSlot `json:"slots"`
}

type RoomBoard struct {
	Date  timeslot.Date  `json:"date"`
	Rooms []RoomBoardRow `json:"rooms"`
}

func buildReservationView(entry models.Reservation, now time.Time, location *time.Location) ReservationView {
	ended := !now.Before(entry.Date.At(entry.EndTime, location))
	return ReservationView{
		ID:        entry.ID,
		Name:      entry.Name,
		Room:      entry.RoomNumber,
		Date:      entry.Date,
		Start:     entry.StartTime,
		End:       entry.EndTime,
		IsExpired: ended,
		CanEdit:   !ended,
	}
}

func buildRoomBoard(date timeslot.Date, rooms []int, occupancy []models.RoomOccupancy) RoomBoard {
	byRoom := make(map[int][]BoardSlot, len(rooms))
	for _, row := range occupancy {
		byRoom[row.RoomNumber] = append(byRoom[row.RoomNumber], BoardSlot{
			Start:    row.StartTime,
			End:      row.EndTime,
			Username: row.Username,
		})
	}

	board := RoomBoard{Date: date, Rooms: make([]RoomBoardRow, 0, len(rooms))}
	for _, room := range rooms {
		slots := byRoom[room]
		if slots == nil {
			slots = []BoardSlot{}
		}
		board.Rooms = append(board.Rooms, RoomBoardRow{Room: room, Slots: slots})
	}
	return board
}
