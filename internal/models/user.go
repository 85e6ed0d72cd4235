package models

import "time"

type User struct {
	ID                 uint      `gorm:"primaryKey"`
	Username           string    `gorm:"uniqueIndex;not null"`
	Email              string    `gorm:"uniqueIndex;not null"`
	PasswordHash       string    `gorm:"not null"`
	RecoveryCodeHash   string    `gorm:"not null;default:''"`
	MustChangePassword bool      `gorm:"not null;default:false"`
	CreatedAt          time.Time `gorm:"not null"`
}

// UserIdentity is the resolved caller handed to reservation operations.
type UserIdentity struct {
	ID       uint
	Username string
}

func (user User) Identity() UserIdentity {
	return UserIdentity{ID: user.ID, Username: user.Username}
}
