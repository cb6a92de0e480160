package gormstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/bistrolumiere/reservations/pkg/reservation"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(test *testing.T) *Store {
	test.Helper()
	path := filepath.Join(test.TempDir(), "reservations.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		test.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Reservation{}, &SlotLock{}); err != nil {
		test.Fatalf("auto migrate: %v", err)
	}
	return New(db)
}

func mustSlot(test *testing.T, date string, timeOfDay string) reservation.Slot {
	test.Helper()
	slotDate, err := reservation.NewSlotDate(date)
	if err != nil {
		test.Fatalf("slot date %q: %v", date, err)
	}
	slotTime, err := reservation.NewSlotTime(timeOfDay)
	if err != nil {
		test.Fatalf("slot time %q: %v", timeOfDay, err)
	}
	return reservation.NewSlot(slotDate, slotTime)
}

func mustInput(test *testing.T, guestName string, slot reservation.Slot) reservation.CreateInput {
	test.Helper()
	name, err := reservation.NewGuestName(guestName)
	if err != nil {
		test.Fatalf("guest name: %v", err)
	}
	email, err := reservation.NewGuestEmail("guest@example.com")
	if err != nil {
		test.Fatalf("guest email: %v", err)
	}
	partySize, err := reservation.NewPartySize(2)
	if err != nil {
		test.Fatalf("party size: %v", err)
	}
	note, err := reservation.NewSpecialRequest("")
	if err != nil {
		test.Fatalf("special request: %v", err)
	}
	input, err := reservation.NewCreateInput(name, email, partySize, slot, note)
	if err != nil {
		test.Fatalf("create input: %v", err)
	}
	return input
}

func TestInsertAssignsIdentityAndTimestamps(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	slot := mustSlot(test, "2026-09-10", "19:00")

	record, err := store.Insert(context.Background(), mustInput(test, "Alice Carter", slot))
	if err != nil {
		test.Fatalf("insert: %v", err)
	}
	if record.ID().String() == "" {
		test.Fatalf("expected store-assigned id")
	}
	if record.CreatedAt().IsZero() || record.UpdatedAt().IsZero() {
		test.Fatalf("expected store-assigned timestamps")
	}
	if record.Status() != reservation.StatusConfirmed {
		test.Fatalf("expected CONFIRMED, got %s", record.Status())
	}
	if record.Slot().Date.String() != "2026-09-10" || record.Slot().Time.String() != "19:00:00" {
		test.Fatalf("unexpected slot round trip: %s", record.Slot().Label())
	}
}

func TestCountConfirmedScopedToSlot(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	slot := mustSlot(test, "2026-09-10", "19:00")
	otherTime := mustSlot(test, "2026-09-10", "20:00")
	otherDate := mustSlot(test, "2026-09-11", "19:00")
	ctx := context.Background()

	for count := 0; count < 3; count++ {
		if _, err := store.Insert(ctx, mustInput(test, "Alice Carter", slot)); err != nil {
			test.Fatalf("insert: %v", err)
		}
	}
	if _, err := store.Insert(ctx, mustInput(test, "Bob Allen", otherTime)); err != nil {
		test.Fatalf("insert: %v", err)
	}
	if _, err := store.Insert(ctx, mustInput(test, "Cara Voss", otherDate)); err != nil {
		test.Fatalf("insert: %v", err)
	}

	count, err := store.CountConfirmed(ctx, slot)
	if err != nil {
		test.Fatalf("count: %v", err)
	}
	if count != 3 {
		test.Fatalf("expected 3 confirmed, got %d", count)
	}
}

func TestCountConfirmedIgnoresCancelled(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	slot := mustSlot(test, "2026-09-10", "19:00")
	ctx := context.Background()

	record, err := store.Insert(ctx, mustInput(test, "Alice Carter", slot))
	if err != nil {
		test.Fatalf("insert: %v", err)
	}
	if _, err := store.Insert(ctx, mustInput(test, "Bob Allen", slot)); err != nil {
		test.Fatalf("insert: %v", err)
	}
	if _, err := store.UpdateStatus(ctx, record.ID(), reservation.StatusConfirmed, reservation.StatusCancelled); err != nil {
		test.Fatalf("update status: %v", err)
	}

	count, err := store.CountConfirmed(ctx, slot)
	if err != nil {
		test.Fatalf("count: %v", err)
	}
	if count != 1 {
		test.Fatalf("expected 1 confirmed, got %d", count)
	}
}

func TestUpdateStatusGuardRejectsRepeatCancel(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	ctx := context.Background()
	record, err := store.Insert(ctx, mustInput(test, "Alice Carter", mustSlot(test, "2026-09-10", "19:00")))
	if err != nil {
		test.Fatalf("insert: %v", err)
	}

	cancelled, err := store.UpdateStatus(ctx, record.ID(), reservation.StatusConfirmed, reservation.StatusCancelled)
	if err != nil {
		test.Fatalf("first cancel: %v", err)
	}
	if cancelled.Status() != reservation.StatusCancelled {
		test.Fatalf("expected CANCELLED, got %s", cancelled.Status())
	}

	if _, err := store.UpdateStatus(ctx, record.ID(), reservation.StatusConfirmed, reservation.StatusCancelled); !errors.Is(err, reservation.ErrAlreadyCancelled) {
		test.Fatalf("expected ErrAlreadyCancelled, got %v", err)
	}

	stored, err := store.GetByID(ctx, record.ID())
	if err != nil {
		test.Fatalf("get: %v", err)
	}
	if stored.Status() != reservation.StatusCancelled {
		test.Fatalf("status must not revert, got %s", stored.Status())
	}
}

func TestGetByIDUnknownReturnsNotFound(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	id, err := reservation.NewReservationID("00000000-0000-0000-0000-000000000000")
	if err != nil {
		test.Fatalf("reservation id: %v", err)
	}
	if _, err := store.GetByID(context.Background(), id); !errors.Is(err, reservation.ErrReservationNotFound) {
		test.Fatalf("expected ErrReservationNotFound, got %v", err)
	}
}

func TestListAllOrdersNewestFirst(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	ctx := context.Background()
	slot := mustSlot(test, "2026-09-10", "19:00")

	if _, err := store.Insert(ctx, mustInput(test, "Alice Carter", slot)); err != nil {
		test.Fatalf("insert: %v", err)
	}
	if _, err := store.Insert(ctx, mustInput(test, "Bob Allen", slot)); err != nil {
		test.Fatalf("insert: %v", err)
	}

	records, err := store.ListAll(ctx)
	if err != nil {
		test.Fatalf("list all: %v", err)
	}
	if len(records) != 2 {
		test.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].CreatedAt().Before(records[1].CreatedAt()) {
		test.Fatalf("expected newest first, got %s before %s", records[0].ID(), records[1].ID())
	}
}

func TestListByDateOrdersByTime(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	ctx := context.Background()
	date := "2026-09-10"

	for _, timeOfDay := range []string{"20:00", "12:00", "18:30"} {
		if _, err := store.Insert(ctx, mustInput(test, "Alice Carter", mustSlot(test, date, timeOfDay))); err != nil {
			test.Fatalf("insert %s: %v", timeOfDay, err)
		}
	}
	if _, err := store.Insert(ctx, mustInput(test, "Bob Allen", mustSlot(test, "2026-09-11", "09:00"))); err != nil {
		test.Fatalf("insert other date: %v", err)
	}

	slotDate, err := reservation.NewSlotDate(date)
	if err != nil {
		test.Fatalf("slot date: %v", err)
	}
	records, err := store.ListByDate(ctx, slotDate)
	if err != nil {
		test.Fatalf("list by date: %v", err)
	}
	if len(records) != 3 {
		test.Fatalf("expected 3 records, got %d", len(records))
	}
	wantOrder := []string{"12:00:00", "18:30:00", "20:00:00"}
	for index, want := range wantOrder {
		if got := records[index].Slot().Time.String(); got != want {
			test.Fatalf("position %d: expected %s, got %s", index, want, got)
		}
	}
}

func TestListConfirmedBetweenFiltersStatusAndRange(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	ctx := context.Background()

	inRange, err := store.Insert(ctx, mustInput(test, "Alice Carter", mustSlot(test, "2026-09-10", "19:00")))
	if err != nil {
		test.Fatalf("insert: %v", err)
	}
	cancelled, err := store.Insert(ctx, mustInput(test, "Bob Allen", mustSlot(test, "2026-09-11", "19:00")))
	if err != nil {
		test.Fatalf("insert: %v", err)
	}
	if _, err := store.UpdateStatus(ctx, cancelled.ID(), reservation.StatusConfirmed, reservation.StatusCancelled); err != nil {
		test.Fatalf("cancel: %v", err)
	}
	if _, err := store.Insert(ctx, mustInput(test, "Cara Voss", mustSlot(test, "2026-09-20", "19:00"))); err != nil {
		test.Fatalf("insert out of range: %v", err)
	}

	start, err := reservation.NewSlotDate("2026-09-09")
	if err != nil {
		test.Fatalf("start: %v", err)
	}
	end, err := reservation.NewSlotDate("2026-09-12")
	if err != nil {
		test.Fatalf("end: %v", err)
	}
	records, err := store.ListConfirmedBetween(ctx, start, end)
	if err != nil {
		test.Fatalf("list confirmed between: %v", err)
	}
	if len(records) != 1 {
		test.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].ID() != inRange.ID() {
		test.Fatalf("unexpected record %s", records[0].ID())
	}
}

func TestLockSlotUpsertIsRepeatable(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	ctx := context.Background()
	slot := mustSlot(test, "2026-09-10", "19:00")

	if err := store.LockSlot(ctx, slot); err != nil {
		test.Fatalf("first lock: %v", err)
	}
	if err := store.LockSlot(ctx, slot); err != nil {
		test.Fatalf("second lock must upsert, got %v", err)
	}
}

func TestWithTxRollsBackOnError(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	ctx := context.Background()
	slot := mustSlot(test, "2026-09-10", "19:00")
	sentinel := errors.New("abort")

	err := store.WithTx(ctx, func(ctx context.Context, txStore reservation.Store) error {
		if _, insertErr := txStore.Insert(ctx, mustInput(test, "Alice Carter", slot)); insertErr != nil {
			return insertErr
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		test.Fatalf("expected sentinel error, got %v", err)
	}

	count, err := store.CountConfirmed(ctx, slot)
	if err != nil {
		test.Fatalf("count: %v", err)
	}
	if count != 0 {
		test.Fatalf("expected rollback, found %d rows", count)
	}
}
