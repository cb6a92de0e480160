package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Reservation mirrors the reservations table. Rows are never deleted;
// cancellation only flips status.
type Reservation struct {
	ReservationID  string         `gorm:"type:uuid;primaryKey"`
	GuestName      string         `gorm:"size:100;not null"`
	GuestEmail     string         `gorm:"size:255;not null"`
	PartySize      int            `gorm:"not null"`
	SlotDate       datatypes.Date `gorm:"not null;index:idx_reservations_slot,priority:1"`
	SlotTime       string         `gorm:"size:8;not null;index:idx_reservations_slot,priority:2"`
	Status         string         `gorm:"size:20;not null"`
	SpecialRequest string         `gorm:"size:500"`
	CreatedAt      time.Time      `gorm:"not null;index:idx_reservations_created"`
	UpdatedAt      time.Time      `gorm:"not null"`
}

func (Reservation) TableName() string { return "reservations" }

func (record *Reservation) BeforeCreate(tx *gorm.DB) error {
	if record.ReservationID == "" {
		record.ReservationID = uuid.NewString()
	}
	return nil
}

// SlotLock holds one row per (date, time) key. Admissions upsert the row
// inside their transaction, which serializes concurrent creates for the
// same slot while leaving other slots untouched.
type SlotLock struct {
	SlotDate datatypes.Date `gorm:"primaryKey"`
	SlotTime string         `gorm:"primaryKey;size:8"`
	LockedAt time.Time      `gorm:"not null"`
}

func (SlotLock) TableName() string { return "slot_locks" }
