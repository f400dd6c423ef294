package models

import "time"

type UserRole string

const (
	RoleAdmin  UserRole = "admin"  // sayım dosyası yükler, raporları görür
	RolePicker UserRole = "picker" // liste toplar, kapanış yapar
)

// User: Sisteme bağlanan bir oturum sahibi. Her kullanıcının aynı anda tek
// bir toplama listesi (ReservationLine kayıtları) olur.
type User struct {
	ID           uint     `gorm:"primaryKey"`
	Name         string   `gorm:"size:100;not null"`
	Email        string   `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string   `gorm:"size:255;not null"`
	Role         UserRole `gorm:"size:20;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
