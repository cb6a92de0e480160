package reservation

// Capacity and window rules for a single restaurant.
const (
	SlotCapacity   = 5
	MaxAdvanceDays = 30

	MinPartySize = 1
	MaxPartySize = 4

	MaxGuestNameLength      = 100
	MaxGuestEmailLength     = 255
	MaxSpecialRequestLength = 500
)

const (
	operationCreate = "create"
	operationCancel = "cancel"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	slotDateLayout      = "2006-01-02"
	slotTimeLayout      = "15:04:05"
	slotTimeShortLayout = "15:04"
)
