package reservation

import (
	"context"
	"fmt"
	"time"
)

// Service contains the admission-control logic over a Store.
type Service struct {
	store  Store
	nowFn  func() time.Time
	logger OperationLogger
}

// NewService wires a Service.
func NewService(store Store, now func() time.Time, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// Create admits a reservation if the date window and slot capacity allow it.
//
// The window rules are re-checked here regardless of upstream validation.
// Capacity check and insert run in one transaction with the slot key locked,
// so concurrent creates for the same slot are linearized by the store and the
// confirmed count never exceeds SlotCapacity.
func (service *Service) Create(ctx context.Context, input CreateInput) (Reservation, error) {
	var created Reservation
	operationError := func() error {
		slot := input.Slot()
		today := SlotDateOf(service.nowFn())
		if slot.Date.Before(today) {
			return ErrPastDateNotAllowed
		}
		if slot.Date.After(today.AddDays(MaxAdvanceDays)) {
			return ErrTooFarInFuture
		}
		return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			if err := transactionStore.LockSlot(ctx, slot); err != nil {
				return err
			}
			confirmed, err := transactionStore.CountConfirmed(ctx, slot)
			if err != nil {
				return err
			}
			if confirmed >= SlotCapacity {
				return fmt.Errorf("%w: %s", ErrFullyBooked, slot.Label())
			}
			created, err = transactionStore.Insert(ctx, input)
			return err
		})
	}()
	service.logOperation(ctx, OperationLog{
		Operation:     operationCreate,
		ReservationID: created.ID(),
		Slot:          input.Slot(),
		PartySize:     input.PartySize(),
		Error:         operationError,
	})
	if operationError != nil {
		return Reservation{}, operationError
	}
	return created, nil
}

// ListAll returns every reservation, most recently created first.
// Cancelled records stay visible.
func (service *Service) ListAll(ctx context.Context) ([]Reservation, error) {
	return service.store.ListAll(ctx)
}

// GetByID returns one reservation or ErrReservationNotFound.
func (service *Service) GetByID(ctx context.Context, id ReservationID) (Reservation, error) {
	return service.store.GetByID(ctx, id)
}

// ListByDate returns the reservations for a date ordered by time, any status.
func (service *Service) ListByDate(ctx context.Context, date SlotDate) ([]Reservation, error) {
	return service.store.ListByDate(ctx, date)
}

// Cancel transitions a reservation CONFIRMED -> CANCELLED. The transition is
// one-way: a repeat cancel fails with ErrAlreadyCancelled rather than
// succeeding silently, so callers can detect that nothing happened.
func (service *Service) Cancel(ctx context.Context, id ReservationID) (Reservation, error) {
	var cancelled Reservation
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		record, err := transactionStore.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if record.Status() == StatusCancelled {
			return fmt.Errorf("%w: %s", ErrAlreadyCancelled, id.String())
		}
		cancelled, err = transactionStore.UpdateStatus(ctx, id, StatusConfirmed, StatusCancelled)
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation:     operationCancel,
		ReservationID: id,
		Slot:          cancelled.Slot(),
		PartySize:     cancelled.PartySize(),
		Error:         operationError,
	})
	if operationError != nil {
		return Reservation{}, operationError
	}
	return cancelled, nil
}

// AvailableSeats reports how many tables remain for a slot. A momentarily
// stale count is acceptable here; admission runs its own locked recount.
func (service *Service) AvailableSeats(ctx context.Context, slot Slot) (int, error) {
	confirmed, err := service.store.CountConfirmed(ctx, slot)
	if err != nil {
		return 0, err
	}
	remaining := SlotCapacity - confirmed
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}
