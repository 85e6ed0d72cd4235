package db

import "gorm.io/gorm"

type Repositories struct {
	Users        *UserRepository
	Reservations *ReservationRepository
}

func NewRepositories(database *gorm.DB) *Repositories {
	return &Repositories{
		Users:        NewUserRepository(database),
		Reservations: NewReservationRepository(database),
	}
}
