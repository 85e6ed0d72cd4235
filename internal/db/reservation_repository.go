package db

import (
	"context"
	"database/sql"

	"github.com/terraincognita07/roomdesk/internal/models"
	"github.com/terraincognita07/roomdesk/internal/timeslot"
	"gorm.io/gorm"
)

// AllocationTx is the view of the reservations table available inside one
// allocation transaction. Reads and the following write see the same state.
type AllocationTx interface {
	ListByDateRoom(date timeslot.Date, room int, excludeID uint) ([]models.Reservation, error)
	ListByDate(date timeslot.Date, excludeID uint) ([]models.Reservation, error)
	Create(entry *models.Reservation) error
	UpdateSchedule(entry *models.Reservation) error
}

// HistoryFilter narrows a user's reservation history. Zero values mean no filter.
type HistoryFilter struct {
	Date      *timeslot.Date
	StartFrom *timeslot.TimeOfDay
	EndUntil  *timeslot.TimeOfDay
}

type ReservationRepository struct {
	database  *gorm.DB
	txOptions *sql.TxOptions
}

func NewReservationRepository(database *gorm.DB) *ReservationRepository {
	repo := &ReservationRepository{database: database}
	if database.Dialector.Name() == DriverPostgres {
		repo.txOptions = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	return repo
}

// WithinAllocation runs fn in a serializable transaction. A lost race with a
// concurrent writer surfaces as ErrWriteConflict.
func (repo *ReservationRepository) WithinAllocation(ctx context.Context, fn func(tx AllocationTx) error) error {
	run := func(tx *gorm.DB) error {
		return fn(&reservationTx{tx: tx})
	}

	var err error
	if repo.txOptions != nil {
		err = repo.database.WithContext(ctx).Transaction(run, repo.txOptions)
	} else {
		err = repo.database.WithContext(ctx).Transaction(run)
	}
	return translateWriteError(err)
}

func (repo *ReservationRepository) FindOwned(ctx context.Context, userID uint, reservationID uint) (models.Reservation, bool, error) {
	entry := models.Reservation{}
	result := repo.database.WithContext(ctx).
		Where("id = ? AND user_id = ?", reservationID, userID).
		Limit(1).
		Find(&entry)
	if result.Error != nil {
		return models.Reservation{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Reservation{}, false, nil
	}
	return entry, true, nil
}

func (repo *ReservationRepository) ListByUser(ctx context.Context, userID uint, filter HistoryFilter) ([]models.Reservation, error) {
	query := repo.database.WithContext(ctx).Model(&models.Reservation{}).Where("user_id = ?", userID)
	if filter.Date != nil {
		query = query.Where("date = ?", *filter.Date)
	}
	if filter.StartFrom != nil {
		query = query.Where("start_time >= ?", *filter.StartFrom)
	}
	if filter.EndUntil != nil {
		query = query.Where("end_time <= ?", *filter.EndUntil)
	}

	entries := make([]models.Reservation, 0)
	if err := query.Order("date DESC, start_time DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (repo *ReservationRepository) DeleteOwned(ctx context.Context, userID uint, reservationID uint) (bool, error) {
	result := repo.database.WithContext(ctx).
		Where("id = ? AND user_id = ?", reservationID, userID).
		Delete(&models.Reservation{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (repo *ReservationRepository) ListBoardForDate(ctx context.Context, date timeslot.Date) ([]models.RoomOccupancy, error) {
	rows := make([]models.RoomOccupancy, 0)
	if err := repo.database.WithContext(ctx).
		Table("reservations").
		Select("reservations.room_number, reservations.start_time, reservations.end_time, users.username").
		Joins("JOIN users ON users.id = reservations.user_id").
		Where("reservations.date = ?", date).
		Order("reservations.room_number ASC, reservations.start_time ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

type reservationTx struct {
	tx *gorm.DB
}

func (repo *reservationTx) ListByDateRoom(date timeslot.Date, room int, excludeID uint) ([]models.Reservation, error) {
	query := repo.tx.Where("date = ? AND room_number = ?", date, room)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	entries := make([]models.Reservation, 0)
	if err := query.Order("start_time ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (repo *reservationTx) ListByDate(date timeslot.Date, excludeID uint) ([]models.Reservation, error) {
	query := repo.tx.Where("date = ?", date)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	entries := make([]models.Reservation, 0)
	if err := query.Order("room_number ASC, start_time ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (repo *reservationTx) Create(entry *models.Reservation) error {
	return translateWriteError(repo.tx.Create(entry).Error)
}

// UpdateSchedule writes name, date, times and room in one statement so an
// edit is never half applied.
func (repo *reservationTx) UpdateSchedule(entry *models.Reservation) error {
	result := repo.tx.Model(&models.Reservation{}).
		Where("id = ? AND user_id = ?", entry.ID, entry.UserID).
		Updates(map[string]any{
			"name":        entry.Name,
			"date":        entry.Date,
			"start_time":  entry.StartTime,
			"end_time":    entry.EndTime,
			"room_number": entry.RoomNumber,
		})
	if result.Error != nil {
		return translateWriteError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
