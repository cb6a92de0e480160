package reservation

import (
	"context"
	"fmt"
)

// ListConfirmedBetween returns confirmed reservations within a date range,
// ordered by date then time. Used for schedule views.
func (service *Service) ListConfirmedBetween(ctx context.Context, start SlotDate, end SlotDate) ([]Reservation, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: range end precedes start", ErrInvalidSlotDate)
	}
	return service.store.ListConfirmedBetween(ctx, start, end)
}
