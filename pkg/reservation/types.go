package reservation

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// ReservationID identifies a stored reservation. Assigned by the store.
type ReservationID struct {
	value string
}

// NewReservationID validates and normalizes a reservation id.
func NewReservationID(raw string) (ReservationID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ReservationID{}, fmt.Errorf("%w: empty value", ErrInvalidReservationID)
	}
	return ReservationID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id ReservationID) String() string {
	return id.value
}

// GuestName is the reserving guest's display name.
type GuestName struct {
	value string
}

// NewGuestName validates and normalizes a guest name.
func NewGuestName(raw string) (GuestName, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return GuestName{}, fmt.Errorf("%w: empty value", ErrInvalidGuestName)
	}
	if len(trimmed) > MaxGuestNameLength {
		return GuestName{}, fmt.Errorf("%w: longer than %d characters", ErrInvalidGuestName, MaxGuestNameLength)
	}
	return GuestName{value: trimmed}, nil
}

// String returns the normalized name.
func (name GuestName) String() string {
	return name.value
}

// GuestEmail is the guest's contact address.
type GuestEmail struct {
	value string
}

// NewGuestEmail validates and normalizes a guest email address.
func NewGuestEmail(raw string) (GuestEmail, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return GuestEmail{}, fmt.Errorf("%w: empty value", ErrInvalidGuestEmail)
	}
	if len(trimmed) > MaxGuestEmailLength {
		return GuestEmail{}, fmt.Errorf("%w: longer than %d characters", ErrInvalidGuestEmail, MaxGuestEmailLength)
	}
	parsed, err := mail.ParseAddress(trimmed)
	if err != nil || parsed.Address != trimmed {
		return GuestEmail{}, fmt.Errorf("%w: malformed address", ErrInvalidGuestEmail)
	}
	return GuestEmail{value: trimmed}, nil
}

// String returns the normalized address.
func (email GuestEmail) String() string {
	return email.value
}

// PartySize is the number of guests on one reservation.
type PartySize int

// NewPartySize validates a party size against the per-table bounds.
func NewPartySize(raw int) (PartySize, error) {
	if raw < MinPartySize || raw > MaxPartySize {
		return 0, fmt.Errorf("%w: must be between %d and %d", ErrInvalidPartySize, MinPartySize, MaxPartySize)
	}
	return PartySize(raw), nil
}

// Int returns the numeric size.
func (size PartySize) Int() int {
	return int(size)
}

// SlotDate is a reservation calendar date, normalized to midnight UTC.
type SlotDate struct {
	value time.Time
}

// NewSlotDate parses a date in 2006-01-02 layout.
func NewSlotDate(raw string) (SlotDate, error) {
	parsed, err := time.Parse(slotDateLayout, strings.TrimSpace(raw))
	if err != nil {
		return SlotDate{}, fmt.Errorf("%w: expected %s", ErrInvalidSlotDate, slotDateLayout)
	}
	return SlotDate{value: parsed.UTC()}, nil
}

// SlotDateOf truncates an instant to its calendar date in UTC.
func SlotDateOf(instant time.Time) SlotDate {
	year, month, day := instant.UTC().Date()
	return SlotDate{value: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// String returns the date in 2006-01-02 layout.
func (date SlotDate) String() string {
	return date.value.Format(slotDateLayout)
}

// Time returns midnight UTC of the date.
func (date SlotDate) Time() time.Time {
	return date.value
}

// Before reports whether date precedes other.
func (date SlotDate) Before(other SlotDate) bool {
	return date.value.Before(other.value)
}

// After reports whether date follows other.
func (date SlotDate) After(other SlotDate) bool {
	return date.value.After(other.value)
}

// AddDays returns the date shifted by the given number of days.
func (date SlotDate) AddDays(days int) SlotDate {
	return SlotDate{value: date.value.AddDate(0, 0, days)}
}

// SlotTime is a reservation time of day, stored with second resolution.
type SlotTime struct {
	value string
}

// NewSlotTime parses a time of day in 15:04 or 15:04:05 layout.
func NewSlotTime(raw string) (SlotTime, error) {
	trimmed := strings.TrimSpace(raw)
	if parsed, err := time.Parse(slotTimeLayout, trimmed); err == nil {
		return SlotTime{value: parsed.Format(slotTimeLayout)}, nil
	}
	parsed, err := time.Parse(slotTimeShortLayout, trimmed)
	if err != nil {
		return SlotTime{}, fmt.Errorf("%w: expected %s or %s", ErrInvalidSlotTime, slotTimeShortLayout, slotTimeLayout)
	}
	return SlotTime{value: parsed.Format(slotTimeLayout)}, nil
}

// String returns the time in 15:04:05 layout.
func (slotTime SlotTime) String() string {
	return slotTime.value
}

// Short returns the time in 15:04 layout.
func (slotTime SlotTime) Short() string {
	parsed, err := time.Parse(slotTimeLayout, slotTime.value)
	if err != nil {
		return slotTime.value
	}
	return parsed.Format(slotTimeShortLayout)
}

// Slot is the (date, time) capacity key.
type Slot struct {
	Date SlotDate
	Time SlotTime
}

// NewSlot builds a slot from validated parts.
func NewSlot(date SlotDate, slotTime SlotTime) Slot {
	return Slot{Date: date, Time: slotTime}
}

// Label renders the slot for guest-facing messages.
func (slot Slot) Label() string {
	return slot.Date.String() + " " + slot.Time.Short()
}

// SpecialRequest is an optional free-form note on a reservation.
type SpecialRequest struct {
	value string
}

// NewSpecialRequest validates an optional special request note.
func NewSpecialRequest(raw string) (SpecialRequest, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) > MaxSpecialRequestLength {
		return SpecialRequest{}, fmt.Errorf("%w: longer than %d characters", ErrInvalidSpecialRequest, MaxSpecialRequestLength)
	}
	return SpecialRequest{value: trimmed}, nil
}

// String returns the normalized note, possibly empty.
func (request SpecialRequest) String() string {
	return request.value
}

// Status defines the reservation lifecycle.
type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus validates a stored status value.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusConfirmed, StatusCancelled:
		return Status(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// String returns the stored representation.
func (status Status) String() string {
	return string(status)
}

// Reservation is the canonical persisted record. Cancellation is logical;
// records are never deleted.
type Reservation struct {
	id             ReservationID
	guestName      GuestName
	guestEmail     GuestEmail
	partySize      PartySize
	slot           Slot
	status         Status
	specialRequest SpecialRequest
	createdAt      time.Time
	updatedAt      time.Time
}

// NewReservation assembles a persisted record from validated parts.
func NewReservation(
	id ReservationID,
	guestName GuestName,
	guestEmail GuestEmail,
	partySize PartySize,
	slot Slot,
	status Status,
	specialRequest SpecialRequest,
	createdAt time.Time,
	updatedAt time.Time,
) (Reservation, error) {
	if id.value == "" {
		return Reservation{}, fmt.Errorf("%w: missing id", ErrInvalidReservationID)
	}
	if _, err := ParseStatus(status.String()); err != nil {
		return Reservation{}, err
	}
	return Reservation{
		id:             id,
		guestName:      guestName,
		guestEmail:     guestEmail,
		partySize:      partySize,
		slot:           slot,
		status:         status,
		specialRequest: specialRequest,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}, nil
}

// ID returns the store-assigned identifier.
func (record Reservation) ID() ReservationID { return record.id }

// GuestName returns the guest's name.
func (record Reservation) GuestName() GuestName { return record.guestName }

// GuestEmail returns the guest's email address.
func (record Reservation) GuestEmail() GuestEmail { return record.guestEmail }

// PartySize returns the number of guests.
func (record Reservation) PartySize() PartySize { return record.partySize }

// Slot returns the reserved (date, time) pair.
func (record Reservation) Slot() Slot { return record.slot }

// Status returns the lifecycle status.
func (record Reservation) Status() Status { return record.status }

// SpecialRequest returns the optional note.
func (record Reservation) SpecialRequest() SpecialRequest { return record.specialRequest }

// CreatedAt returns the store-assigned creation timestamp.
func (record Reservation) CreatedAt() time.Time { return record.createdAt }

// UpdatedAt returns the store-assigned modification timestamp.
func (record Reservation) UpdatedAt() time.Time { return record.updatedAt }

// CreateInput carries the fields of a reservation before the store assigns
// id and timestamps. Status is always CONFIRMED on admission.
type CreateInput struct {
	guestName      GuestName
	guestEmail     GuestEmail
	partySize      PartySize
	slot           Slot
	specialRequest SpecialRequest
}

// NewCreateInput assembles an admission request from validated parts.
func NewCreateInput(
	guestName GuestName,
	guestEmail GuestEmail,
	partySize PartySize,
	slot Slot,
	specialRequest SpecialRequest,
) (CreateInput, error) {
	if guestName.value == "" {
		return CreateInput{}, fmt.Errorf("%w: empty value", ErrInvalidGuestName)
	}
	if guestEmail.value == "" {
		return CreateInput{}, fmt.Errorf("%w: empty value", ErrInvalidGuestEmail)
	}
	if _, err := NewPartySize(partySize.Int()); err != nil {
		return CreateInput{}, err
	}
	return CreateInput{
		guestName:      guestName,
		guestEmail:     guestEmail,
		partySize:      partySize,
		slot:           slot,
		specialRequest: specialRequest,
	}, nil
}

// GuestName returns the guest's name.
func (input CreateInput) GuestName() GuestName { return input.guestName }

// GuestEmail returns the guest's email address.
func (input CreateInput) GuestEmail() GuestEmail { return input.guestEmail }

// PartySize returns the number of guests.
func (input CreateInput) PartySize() PartySize { return input.partySize }

// Slot returns the requested (date, time) pair.
func (input CreateInput) Slot() Slot { return input.slot }

// SpecialRequest returns the optional note.
func (input CreateInput) SpecialRequest() SpecialRequest { return input.specialRequest }

// Store is the persistence contract used by Service.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
	LockSlot(ctx context.Context, slot Slot) error
	CountConfirmed(ctx context.Context, slot Slot) (int, error)
	Insert(ctx context.Context, input CreateInput) (Reservation, error)
	GetByID(ctx context.Context, id ReservationID) (Reservation, error)
	ListAll(ctx context.Context) ([]Reservation, error)
	ListByDate(ctx context.Context, date SlotDate) ([]Reservation, error)
	ListConfirmedBetween(ctx context.Context, start SlotDate, end SlotDate) ([]Reservation, error)
	UpdateStatus(ctx context.Context, id ReservationID, from Status, to Status) (Reservation, error)
}
