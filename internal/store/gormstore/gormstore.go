package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/bistrolumiere/reservations/pkg/reservation"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	pgUniqueViolationCode   = "23505"
	sqliteConstraintCode    = 19
	errorOperationStore     = "store"
	errorSubjectReservation = "reservation"
	errorSubjectSlot        = "slot"
	errorCodeCount          = "count"
	errorCodeDuplicate      = "duplicate"
	errorCodeGet            = "get"
	errorCodeInsert         = "insert"
	errorCodeInvalid        = "invalid"
	errorCodeList           = "list"
	errorCodeLock           = "lock"
	errorCodeUpdateStatus   = "update_status"
)

// Store implements reservation.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore reservation.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

// LockSlot upserts the slot row, taking its row lock for the rest of the
// transaction. Concurrent admissions for the same slot queue here.
func (store *Store) LockSlot(ctx context.Context, slot reservation.Slot) error {
	lock := SlotLock{
		SlotDate: slotDateColumn(slot.Date),
		SlotTime: slot.Time.String(),
		LockedAt: time.Now().UTC(),
	}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slot_date"}, {Name: "slot_time"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"locked_at": lock.LockedAt}),
		}).
		Create(&lock).Error
	if err != nil {
		return wrapStoreError(errorSubjectSlot, errorCodeLock, err)
	}
	return nil
}

func (store *Store) CountConfirmed(ctx context.Context, slot reservation.Slot) (int, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("slot_date = ? AND slot_time = ? AND status = ?",
			slotDateColumn(slot.Date), slot.Time.String(), reservation.StatusConfirmed.String()).
		Count(&count).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectSlot, errorCodeCount, err)
	}
	return int(count), nil
}

func (store *Store) Insert(ctx context.Context, input reservation.CreateInput) (reservation.Reservation, error) {
	model := Reservation{
		GuestName:      input.GuestName().String(),
		GuestEmail:     input.GuestEmail().String(),
		PartySize:      input.PartySize().Int(),
		SlotDate:       slotDateColumn(input.Slot().Date),
		SlotTime:       input.Slot().Time.String(),
		Status:         reservation.StatusConfirmed.String(),
		SpecialRequest: input.SpecialRequest().String(),
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isDuplicateKey(err) {
		return reservation.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeDuplicate, err)
	}
	if err != nil {
		return reservation.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeInsert, err)
	}
	record, err := mapReservation(model)
	if err != nil {
		return reservation.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeInvalid, err)
	}
	return record, nil
}

func (store *Store) GetByID(ctx context.Context, id reservation.ReservationID) (reservation.Reservation, error) {
	var model Reservation
	err := store.db.WithContext(ctx).
		Where("reservation_id = ?", id.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reservation.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeGet, reservation.ErrReservationNotFound)
		}
		return reservation.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeGet, err)
	}
	record, err := mapReservation(model)
	if err != nil {
		return reservation.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeInvalid, err)
	}
	return record, nil
}

func (store *Store) ListAll(ctx context.Context) ([]reservation.Reservation, error) {
	var rows []Reservation
	err := store.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectReservation, errorCodeList, err)
	}
	return mapReservations(rows)
}

func (store *Store) ListByDate(ctx context.Context, date reservation.SlotDate) ([]reservation.Reservation, error) {
	var rows []Reservation
	err := store.db.WithContext(ctx).
		Where("slot_date = ?", slotDateColumn(date)).
		Order("slot_time ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectReservation, errorCodeList, err)
	}
	return mapReservations(rows)
}

func (store *Store) ListConfirmedBetween(ctx context.Context, start reservation.SlotDate, end reservation.SlotDate) ([]reservation.Reservation, error) {
	var rows []Reservation
	err := store.db.WithContext(ctx).
		Where("slot_date BETWEEN ? AND ? AND status = ?",
			slotDateColumn(start), slotDateColumn(end), reservation.StatusConfirmed.String()).
		Order("slot_date ASC, slot_time ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectReservation, errorCodeList, err)
	}
	return mapReservations(rows)
}

// UpdateStatus applies a guarded transition. RowsAffected zero means the
// guard lost: the record is no longer in the from status.
func (store *Store) UpdateStatus(ctx context.Context, id reservation.ReservationID, from reservation.Status, to reservation.Status) (reservation.Reservation, error) {
	result := store.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("reservation_id = ? AND status = ?", id.String(), from.String()).
		Updates(map[string]interface{}{
			"status":     to.String(),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return reservation.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return reservation.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeUpdateStatus, reservation.ErrAlreadyCancelled)
	}
	return store.GetByID(ctx, id)
}

func wrapStoreError(subject string, code string, err error) error {
	return reservation.WrapError(errorOperationStore, subject, code, err)
}

func slotDateColumn(date reservation.SlotDate) datatypes.Date {
	return datatypes.Date(date.Time())
}

func mapReservations(rows []Reservation) ([]reservation.Reservation, error) {
	records := make([]reservation.Reservation, 0, len(rows))
	for _, row := range rows {
		record, err := mapReservation(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectReservation, errorCodeInvalid, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func mapReservation(row Reservation) (reservation.Reservation, error) {
	id, err := reservation.NewReservationID(row.ReservationID)
	if err != nil {
		return reservation.Reservation{}, err
	}
	guestName, err := reservation.NewGuestName(row.GuestName)
	if err != nil {
		return reservation.Reservation{}, err
	}
	guestEmail, err := reservation.NewGuestEmail(row.GuestEmail)
	if err != nil {
		return reservation.Reservation{}, err
	}
	partySize, err := reservation.NewPartySize(row.PartySize)
	if err != nil {
		return reservation.Reservation{}, err
	}
	slotTime, err := reservation.NewSlotTime(row.SlotTime)
	if err != nil {
		return reservation.Reservation{}, err
	}
	status, err := reservation.ParseStatus(row.Status)
	if err != nil {
		return reservation.Reservation{}, err
	}
	specialRequest, err := reservation.NewSpecialRequest(row.SpecialRequest)
	if err != nil {
		return reservation.Reservation{}, err
	}
	slot := reservation.NewSlot(reservation.SlotDateOf(time.Time(row.SlotDate)), slotTime)
	return reservation.NewReservation(
		id,
		guestName,
		guestEmail,
		partySize,
		slot,
		status,
		specialRequest,
		row.CreatedAt,
		row.UpdatedAt,
	)
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
