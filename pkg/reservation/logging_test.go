package reservation

import (
	"context"
	"errors"
	"testing"
)

type recorderLogger struct {
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.entries = append(logger.entries, entry)
}

func TestServiceLogsCreateOperation(test *testing.T) {
	test.Parallel()
	logger := &recorderLogger{}
	service := mustNewService(test, newStubStore(), WithOperationLogger(logger))
	slot := NewSlot(daysFromToday(3), mustSlotTime(test, "19:00"))

	created, err := service.Create(context.Background(), mustCreateInputForSlot(test, slot))
	if err != nil {
		test.Fatalf("create: %v", err)
	}
	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	entry := logger.entries[0]
	if entry.Operation != operationCreate || entry.ReservationID != created.ID() || entry.Slot != slot {
		test.Fatalf("unexpected log entry: %+v", entry)
	}
	if entry.Error != nil || entry.Status != operationStatusOK {
		test.Fatalf("expected successful log entry, got %+v", entry)
	}
}

func TestServiceLogsErrorStatus(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	store.insertErr = errors.New("boom")
	logger := &recorderLogger{}
	service := mustNewService(test, store, WithOperationLogger(logger))

	_, err := service.Create(context.Background(), mustCreateInputForSlot(test, NewSlot(daysFromToday(1), mustSlotTime(test, "12:00"))))
	if err == nil {
		test.Fatalf("expected error")
	}
	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	if logger.entries[0].Status != operationStatusError || logger.entries[0].Error == nil {
		test.Fatalf("expected error log entry, got %+v", logger.entries[0])
	}
}

func TestServiceLogsCancelOperation(test *testing.T) {
	test.Parallel()
	logger := &recorderLogger{}
	service := mustNewService(test, newStubStore(), WithOperationLogger(logger))
	created, err := service.Create(context.Background(), mustCreateInputForSlot(test, NewSlot(daysFromToday(2), mustSlotTime(test, "20:00"))))
	if err != nil {
		test.Fatalf("create: %v", err)
	}

	if _, err := service.Cancel(context.Background(), created.ID()); err != nil {
		test.Fatalf("cancel: %v", err)
	}
	if len(logger.entries) != 2 {
		test.Fatalf("expected two log entries, got %d", len(logger.entries))
	}
	entry := logger.entries[1]
	if entry.Operation != operationCancel || entry.ReservationID != created.ID() || entry.Status != operationStatusOK {
		test.Fatalf("unexpected cancel log entry: %+v", entry)
	}
}
