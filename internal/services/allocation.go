package services

import (
	"context"

	"github.com/terraincognita07/roomdesk/internal/models"
	"github.com/terraincognita07/roomdesk/internal/timeslot"
)

const DefaultRoomCount = 10

// RoomScheduleReader is the read side of an allocation transaction.
type RoomScheduleReader interface {
	ListByDateRoom(date timeslot.Date, room int, excludeID uint) ([]models.Reservation, error)
}

// Allocator picks rooms first-fit over 1..N. It keeps no state between calls;
// every decision reads the schedule it is handed.
type Allocator struct {
	rooms int
}

func NewAllocator(rooms int) *Allocator {
	if rooms <= 0 {
		rooms = DefaultRoomCount
	}
	return &Allocator{rooms: rooms}
}

func (allocator *Allocator) Rooms() []int {
	rooms := make([]int, 0, allocator.rooms)
	for room := 1; room <= allocator.rooms; room++ {
		rooms = append(rooms, room)
	}
	return rooms
}

func (allocator *Allocator) HasRoom(room int) bool {
	return room >= 1 && room <= allocator.rooms
}

// FindRoom returns the lowest-numbered room with no reservation overlapping
// interval on date. excludeID hides the reservation being edited.
func (allocator *Allocator) FindRoom(ctx context.Context, schedule RoomScheduleReader, date timeslot.Date, interval timeslot.Interval, excludeID uint) (int, error) {
	if err := interval.Validate(); err != nil {
		return 0, err
	}

	for room := 1; room <= allocator.rooms; room++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		free, err := allocator.roomIsFree(schedule, room, date, interval, excludeID)
		if err != nil {
			return 0, err
		}
		if free {
			return room, nil
		}
	}
	return 0, ErrNoRoomAvailable
}

func (allocator *Allocator) RoomIsFree(ctx context.Context, schedule RoomScheduleReader, room int, date timeslot.Date, interval timeslot.Interval, excludeID uint) (bool, error) {
	if err := interval.Validate(); err != nil {
		return false, err
	}
	if !allocator.HasRoom(room) {
		return false, ErrInvalidRoom
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return allocator.roomIsFree(schedule, room, date, interval, excludeID)
}

// AvailableRooms lists every free room in ascending order.
func (allocator *Allocator) AvailableRooms(ctx context.Context, schedule RoomScheduleReader, date timeslot.Date, interval timeslot.Interval, excludeID uint) ([]int, error) {
	if err := interval.Validate(); err != nil {
		return nil, err
	}

	available := make([]int, 0, allocator.rooms)
	for room := 1; room <= allocator.rooms; room++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		free, err := allocator.roomIsFree(schedule, room, date, interval, excludeID)
		if err != nil {
			return nil, err
		}
		if free {
			available = append(available, room)
		}
	}
	return available, nil
}

func (allocator *Allocator) roomIsFree(schedule RoomScheduleReader, room int, date timeslot.Date, interval timeslot.Interval, excludeID uint) (bool, error) {
	existing, err := schedule.ListByDateRoom(date, room, excludeID)
	if err != nil {
		return false, err
	}
	for _, entry := range existing {
		if entry.ID == excludeID && excludeID != 0 {
			continue
		}
		if interval.Overlaps(entry.Interval()) {
			return false, nil
		}
	}
	return true, nil
}
