package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/terraincognita07/roomdesk/internal/db"
	"github.com/terraincognita07/roomdesk/internal/logging"
	"github.com/terraincognita07/roomdesk/internal/models"
	"github.com/terraincognita07/roomdesk/internal/timeslot"
)

const (
	DefaultReservationLeadTime = time.Minute
	maxAllocationAttempts      = 2

	historyWarningTimeWithoutDate = "please select a date when filtering by time"
	historyWarningInvalidFilter   = "invalid date or time format"
)

type ReservationStore interface {
	WithinAllocation(ctx context.Context, fn func(tx db.AllocationTx) error) error
	FindOwned(ctx context.Context, userID uint, reservationID uint) (models.Reservation, bool, error)
	ListByUser(ctx context.Context, userID uint, filter db.HistoryFilter) ([]models.Reservation, error)
	DeleteOwned(ctx context.Context, userID uint, reservationID uint) (bool, error)
	ListBoardForDate(ctx context.Context, date timeslot.Date) ([]models.RoomOccupancy, error)
}

type ReservationService struct {
	store     ReservationStore
	allocator *Allocator
	leadTime  time.Duration
	location  *time.Location
	now       func() time.Time
	logger    *slog.Logger
}

func NewReservationService(store ReservationStore, allocator *Allocator, leadTime time.Duration, location *time.Location, now func() time.Time, logger *slog.Logger) *ReservationService {
	if allocator == nil {
		allocator = NewAllocator(DefaultRoomCount)
	}
	if leadTime < 0 {
		leadTime = DefaultReservationLeadTime
	}
	if location == nil {
		location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReservationService{
		store:     store,
		allocator: allocator,
		leadTime:  leadTime,
		location:  location,
		now:       now,
		logger:    logger,
	}
}

func (service *ReservationService) Rooms() []int {
	return service.allocator.Rooms()
}

func (service *ReservationService) Create(ctx context.Context, user models.UserIdentity, input CreateReservationInput) (AllocationResult, error) {
	logger := service.operationLogger(ctx, "create", "user_id", user.ID)

	request, err := parseScheduleRequest(input.Date, input.StartTime, input.EndTime)
	if err != nil {
		return AllocationResult{}, err
	}
	name, err := normalizeReservationName(input.Name, user.Username)
	if err != nil {
		return AllocationResult{}, err
	}
	if err := service.ensureFutureStart(request); err != nil {
		return AllocationResult{}, err
	}

	var created models.Reservation
	err = service.allocate(ctx, logger, func(tx db.AllocationTx) error {
		room, err := service.allocator.FindRoom(ctx, tx, request.date, request.interval, 0)
		if err != nil {
			return err
		}
		created = models.Reservation{
			UserID:     user.ID,
			RoomNumber: room,
			Date:       request.date,
			StartTime:  request.interval.Start,
			EndTime:    request.interval.End,
			Name:       name,
		}
		return tx.Create(&created)
	})
	if err != nil {
		logger.Info("reservation rejected", "error_kind", ErrorKind(err), "error", err)
		return AllocationResult{}, err
	}

	logger.Info("reservation confirmed", "reservation_id", created.ID, "room", created.RoomNumber, "date", created.Date.String(), "interval", created.Interval().String())
	return AllocationResult{ID: created.ID, Room: created.RoomNumber}, nil
}

func (service *ReservationService) Edit(ctx context.Context, user models.UserIdentity, reservationID uint, input EditReservationInput) (ReservationView, error) {
	logger := service.operationLogger(ctx, "edit", "user_id", user.ID, "reservation_id", reservationID)

	existing, err := service.findOwned(ctx, user.ID, reservationID)
	if err != nil {
		return ReservationView{}, err
	}
	if !service.now().Before(existing.Date.At(existing.EndTime, service.location)) {
		return ReservationView{}, ErrReservationEnded
	}

	request, err := parseScheduleRequest(input.Date, input.StartTime, input.EndTime)
	if err != nil {
		return ReservationView{}, err
	}
	name := existing.Name
	if input.Name != nil {
		name, err = normalizeReservationName(*input.Name, user.Username)
		if err != nil {
			return ReservationView{}, err
		}
	}
	if err := service.ensureFutureStart(request); err != nil {
		return ReservationView{}, err
	}

	updated := existing
	err = service.allocate(ctx, logger, func(tx db.AllocationTx) error {
		room, err := service.pickEditRoom(ctx, tx, request, reservationID, input.Room)
		if err != nil {
			return err
		}
		updated = existing
		updated.RoomNumber = room
		updated.Date = request.date
		updated.StartTime = request.interval.Start
		updated.EndTime = request.interval.End
		updated.Name = name
		return tx.UpdateSchedule(&updated)
	})
	if errors.Is(err, db.ErrNotFound) {
		return ReservationView{}, ErrReservationNotFound
	}
	if err != nil {
		logger.Info("reservation edit rejected", "error_kind", ErrorKind(err), "error", err)
		return ReservationView{}, err
	}

	logger.Info("reservation updated", "room", updated.RoomNumber, "date", updated.Date.String(), "interval", updated.Interval().String())
	return buildReservationView(updated, service.now(), service.location), nil
}

func (service *ReservationService) pickEditRoom(ctx context.Context, tx db.AllocationTx, request scheduleRequest, reservationID uint, requested *int) (int, error) {
	if requested == nil {
		return service.allocator.FindRoom(ctx, tx, request.date, request.interval, reservationID)
	}

	free, err := service.allocator.RoomIsFree(ctx, tx, *requested, request.date, request.interval, reservationID)
	if err != nil {
		return 0, err
	}
	if !free {
		return 0, ErrRoomUnavailable
	}
	return *requested, nil
}

func (service *ReservationService) Cancel(ctx context.Context, user models.UserIdentity, reservationID uint) error {
	deleted, err := service.store.DeleteOwned(ctx, user.ID, reservationID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrReservationNotFound
	}

	service.operationLogger(ctx, "cancel", "user_id", user.ID, "reservation_id", reservationID).Info("reservation cancelled")
	return nil
}

func (service *ReservationService) Get(ctx context.Context, user models.UserIdentity, reservationID uint) (ReservationView, error) {
	entry, err := service.findOwned(ctx, user.ID, reservationID)
	if err != nil {
		return ReservationView{}, err
	}
	return buildReservationView(entry, service.now(), service.location), nil
}

// ListHistory returns the user's reservations newest first. Filters that
// cannot be applied produce a warning and the unfiltered list.
func (service *ReservationService) ListHistory(ctx context.Context, user models.UserIdentity, input HistoryFilterInput) (HistoryResult, error) {
	filter, warning := parseHistoryFilter(input)

	entries, err := service.store.ListByUser(ctx, user.ID, filter)
	if err != nil {
		return HistoryResult{}, err
	}

	now := service.now()
	views := make([]ReservationView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, buildReservationView(entry, now, service.location))
	}
	return HistoryResult{Reservations: views, Warning: warning}, nil
}

func parseHistoryFilter(input HistoryFilterInput) (db.HistoryFilter, string) {
	rawDate, rawStart, rawEnd := input.Date, input.StartTime, input.EndTime
	if isBlank(rawDate) {
		if !isBlank(rawStart) || !isBlank(rawEnd) {
			return db.HistoryFilter{}, historyWarningTimeWithoutDate
		}
		return db.HistoryFilter{}, ""
	}

	date, err := timeslot.ParseDate(rawDate)
	if err != nil {
		return db.HistoryFilter{}, historyWarningInvalidFilter
	}
	filter := db.HistoryFilter{Date: &date}

	if !isBlank(rawStart) {
		start, err := timeslot.ParseTimeOfDay(rawStart)
		if err != nil {
			return db.HistoryFilter{}, historyWarningInvalidFilter
		}
		filter.StartFrom = &start
	}
	if !isBlank(rawEnd) {
		end, err := timeslot.ParseTimeOfDay(rawEnd)
		if err != nil {
			return db.HistoryFilter{}, historyWarningInvalidFilter
		}
		filter.EndUntil = &end
	}
	return filter, ""
}

// ListAvailableRooms previews which rooms could take the interval. An
// ExcludeID must name one of the user's own reservations.
func (service *ReservationService) ListAvailableRooms(ctx context.Context, user models.UserIdentity, input AvailabilityInput) ([]int, error) {
	request, err := parseScheduleRequest(input.Date, input.StartTime, input.EndTime)
	if err != nil {
		return nil, err
	}
	if input.ExcludeID != 0 {
		if _, err := service.findOwned(ctx, user.ID, input.ExcludeID); err != nil {
			return nil, err
		}
	}

	var rooms []int
	err = service.store.WithinAllocation(ctx, func(tx db.AllocationTx) error {
		available, err := service.allocator.AvailableRooms(ctx, tx, request.date, request.interval, input.ExcludeID)
		rooms = available
		return err
	})
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (service *ReservationService) RoomBoard(ctx context.Context, rawDate string) (RoomBoard, error) {
	date := timeslot.DateOf(service.now().In(service.location))
	if !isBlank(rawDate) {
		parsed, err := timeslot.ParseDate(rawDate)
		if err != nil {
			return RoomBoard{}, err
		}
		date = parsed
	}

	occupancy, err := service.store.ListBoardForDate(ctx, date)
	if err != nil {
		return RoomBoard{}, err
	}
	return buildRoomBoard(date, service.allocator.Rooms(), occupancy), nil
}

func (service *ReservationService) findOwned(ctx context.Context, userID uint, reservationID uint) (models.Reservation, error) {
	entry, found, err := service.store.FindOwned(ctx, userID, reservationID)
	if err != nil {
		return models.Reservation{}, err
	}
	if !found {
		return models.Reservation{}, ErrReservationNotFound
	}
	return entry, nil
}

// ensureFutureStart rejects starts at or before now plus the lead time.
func (service *ReservationService) ensureFutureStart(request scheduleRequest) error {
	start := request.date.At(request.interval.Start, service.location)
	if !start.After(service.now().Add(service.leadTime)) {
		return ErrPastDateTime
	}
	return nil
}

// allocate runs fn in an allocation transaction and retries once when a
// concurrent writer wins the race.
func (service *ReservationService) allocate(ctx context.Context, logger *slog.Logger, fn func(tx db.AllocationTx) error) error {
	var err error
	for attempt := 1; attempt <= maxAllocationAttempts; attempt++ {
		err = service.store.WithinAllocation(ctx, fn)
		if err == nil || !errors.Is(err, db.ErrWriteConflict) {
			return err
		}
		if attempt < maxAllocationAttempts {
			logger.Warn("allocation conflict, retrying", "attempt", attempt, "error", err)
		}
	}
	return errors.Join(ErrReservationConflict, err)
}

func (service *ReservationService) operationLogger(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	pairs := append([]any{"service", "reservations", "operation", operation}, attrs...)
	return logging.FromContext(ctx, service.logger).With(pairs...)
}
