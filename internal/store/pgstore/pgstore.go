package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/bistrolumiere/reservations/pkg/reservation"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	constraintReservationPrimary = "reservations_pkey"
	pgUniqueViolationCode        = "23505"
	errorOperationStore          = "store"
	errorSubjectReservation      = "reservation"
	errorSubjectSlot             = "slot"
	errorSubjectTransaction      = "transaction"
	errorCodeBegin               = "begin"
	errorCodeCommit              = "commit"
	errorCodeCount               = "count"
	errorCodeDuplicate           = "duplicate"
	errorCodeGet                 = "get"
	errorCodeInsert              = "insert"
	errorCodeInvalid             = "invalid"
	errorCodeList                = "list"
	errorCodeLock                = "lock"
	errorCodeUpdateStatus        = "update_status"

	sqlUpsertSlotLock = `
		insert into slot_locks(slot_date, slot_time, locked_at) values($1, $2, now())
		on conflict (slot_date, slot_time) do update set locked_at = now()
	`

	sqlCountConfirmed = `
		select count(*) from reservations
		where slot_date = $1 and slot_time = $2 and status = $3
	`

	sqlInsertReservation = `
		insert into reservations(
			reservation_id, guest_name, guest_email, party_size, slot_date, slot_time, status, special_request, created_at, updated_at
		)
		values(gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, now(), now())
		returning
			reservation_id::text, guest_name, guest_email, party_size,
			slot_date::text, slot_time::text, status::text,
			coalesce(special_request, ''), created_at, updated_at
	`

	sqlSelectReservation = `
		select
			reservation_id::text, guest_name, guest_email, party_size,
			slot_date::text, slot_time::text, status::text,
			coalesce(special_request, ''), created_at, updated_at
		from reservations
		where reservation_id = $1
		for update
	`

	sqlListReservations = `
		select
			reservation_id::text, guest_name, guest_email, party_size,
			slot_date::text, slot_time::text, status::text,
			coalesce(special_request, ''), created_at, updated_at
		from reservations
		order by created_at desc
	`

	sqlListReservationsByDate = `
		select
			reservation_id::text, guest_name, guest_email, party_size,
			slot_date::text, slot_time::text, status::text,
			coalesce(special_request, ''), created_at, updated_at
		from reservations
		where slot_date = $1
		order by slot_time asc
	`

	sqlListConfirmedBetween = `
		select
			reservation_id::text, guest_name, guest_email, party_size,
			slot_date::text, slot_time::text, status::text,
			coalesce(special_request, ''), created_at, updated_at
		from reservations
		where slot_date between $1 and $2 and status = $3
		order by slot_date asc, slot_time asc
	`

	sqlUpdateReservationStatus = `
		update reservations
		set status = $3, updated_at = now()
		where reservation_id = $1 and status = $2
		returning
			reservation_id::text, guest_name, guest_email, party_size,
			slot_date::text, slot_time::text, status::text,
			coalesce(special_request, ''), created_at, updated_at
	`
)

// Store implements reservation.Store using a pgx connection pool (autocommit).
type Store struct {
	pool *pgxpool.Pool
}

// TxStore implements reservation.Store for an active transaction.
type TxStore struct {
	tx pgx.Tx
}

// New returns a Store backed by a pgx pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore reservation.Store) error) error {
	tx, err := store.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeBegin, err)
	}
	transactionStore := &TxStore{tx: tx}
	if err := fn(ctx, transactionStore); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeCommit, err)
	}
	return nil
}

func (store *Store) LockSlot(ctx context.Context, slot reservation.Slot) error {
	_, err := store.pool.Exec(ctx, sqlUpsertSlotLock, slot.Date.String(), slot.Time.String())
	if err != nil {
		return wrapStoreError(errorSubjectSlot, errorCodeLock, err)
	}
	return nil
}

func (store *Store) CountConfirmed(ctx context.Context, slot reservation.Slot) (int, error) {
	var count int
	err := store.pool.QueryRow(ctx, sqlCountConfirmed,
		slot.Date.String(), slot.Time.String(), reservation.StatusConfirmed.String()).Scan(&count)
	if err != nil {
		return 0, wrapStoreError(errorSubjectSlot, errorCodeCount, err)
	}
	return count, nil
}

func (store *Store) Insert(ctx context.Context, input reservation.CreateInput) (reservation.Reservation, error) {
	row := store.pool.QueryRow(ctx, sqlInsertReservation,
		input.GuestName().String(),
		input.GuestEmail().String(),
		input.PartySize().Int(),
		input.Slot().Date.String(),
		input.Slot().Time.String(),
		reservation.StatusConfirmed.String(),
		input.SpecialRequest().String(),
	)
	record, err := scanReservation(row)
	if isReservationConflict(err) {
		return reservation.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeDuplicate, err)
	}
	if err != nil {
		return reservation.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeInsert, err)
	}
	return record, nil
}

func (store *Store) GetByID(ctx context.Context, id reservation.ReservationID) (reservation.Reservation, error) {
	row := store.pool.QueryRow(ctx, sqlSelectReservation, id.String())
	record, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return reservation.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeGet, reservation.ErrReservationNotFound)
		}
		return reservation.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeGet, err)
	}
	return record, nil
}

func (store *Store) ListAll(ctx context.Context) ([]reservation.Reservation, error) {
	rows, err := store.pool.Query(ctx, sqlListReservations)
	if err != nil {
		return nil, wrapStoreError(errorSubjectReservation, errorCodeList, err)
	}
	defer rows.Close()
	return scanReservations(rows)
}

func (store *Store) ListByDate(ctx context.Context, date reservation.SlotDate) ([]reservation.Reservation, error) {
	rows, err := store.pool.Query(ctx, sqlListReservationsByDate, date.String())
	if err != nil {
		return nil, wrapStoreError(errorSubjectReservation, errorCodeList, err)
	}
	defer rows.Close()
	return scanReservations(rows)
}

func (store *Store) ListConfirmedBetween(ctx context.Context, start reservation.SlotDate, end reservation.SlotDate) ([]reservation.Reservation, error) {
	rows, err := store.pool.Query(ctx, sqlListConfirmedBetween,
		start.String(), end.String(), reservation.StatusConfirmed.String())
	if err != nil {
		return nil, wrapStoreError(errorSubjectReservation, errorCodeList, err)
	}
	defer rows.Close()
	return scanReservations(rows)
}

func (store *Store) UpdateStatus(ctx context.Context, id reservation.ReservationID, from reservation.Status, to reservation.Status) (reservation.Reservation, error) {
	row := store.pool.QueryRow(ctx, sqlUpdateReservationStatus, id.String(), from.String(), to.String())
	record, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return reservation.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeUpdateStatus, reservation.ErrAlreadyCancelled)
		}
		return reservation.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeUpdateStatus, err)
	}
	return record, nil
}

func (store *TxStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore reservation.Store) error) error {
	return fn(ctx, store)
}

func (store *TxStore) LockSlot(ctx context.Context, slot reservation.Slot) error {
	_, err := store.tx.Exec(ctx, sqlUpsertSlotLock, slot.Date.String(), slot.Time.String())
	if err != nil {
		return wrapStoreError(errorSubjectSlot, errorCodeLock, err)
	}
	return nil
}

func (store *TxStore) CountConfirmed(ctx context.Context, slot reservation.Slot) (int, error) {
	var count int
	err := store.tx.QueryRow(ctx, sqlCountConfirmed,
		slot.Date.String(), slot.Time.String(), reservation.StatusConfirmed.String()).Scan(&count)
	if err != nil {
		return 0, wrapStoreError(errorSubjectSlot, errorCodeCount, err)
	}
	return count, nil
}

func (store *TxStore) Insert(ctx context.Context, input reservation.CreateInput) (reservation.Reservation, error) {
	row := store.tx.QueryRow(ctx, sqlInsertReservation,
		input.GuestName().String(),
		input.GuestEmail().String(),
		input.PartySize().Int(),
		input.Slot().Date.String(),
		input.Slot().Time.String(),
		reservation.StatusConfirmed.String(),
		input.SpecialRequest().String(),
	)
	record, err := scanReservation(row)
	if isReservationConflict(err) {
		return reservation.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeDuplicate, err)
	}
	if err != nil {
		return reservation.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeInsert, err)
	}
	return record, nil
}

func (store *TxStore) GetByID(ctx context.Context, id reservation.ReservationID) (reservation.Reservation, error) {
	row := store.tx.QueryRow(ctx, sqlSelectReservation, id.String())
	record, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return reservation.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeGet, reservation.ErrReservationNotFound)
		}
		return reservation.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeGet, err)
	}
	return record, nil
}

func (store *TxStore) ListAll(ctx context.Context) ([]reservation.Reservation, error) {
	rows, err := store.tx.Query(ctx, sqlListReservations)
	if err != nil {
		return nil, wrapStoreError(errorSubjectReservation, errorCodeList, err)
	}
	defer rows.Close()
	return scanReservations(rows)
}

func (store *TxStore) ListByDate(ctx context.Context, date reservation.SlotDate) ([]reservation.Reservation, error) {
	rows, err := store.tx.Query(ctx, sqlListReservationsByDate, date.String())
	if err != nil {
		return nil, wrapStoreError(errorSubjectReservation, errorCodeList, err)
	}
	defer rows.Close()
	return scanReservations(rows)
}

func (store *TxStore) ListConfirmedBetween(ctx context.Context, start reservation.SlotDate, end reservation.SlotDate) ([]reservation.Reservation, error) {
	rows, err := store.tx.Query(ctx, sqlListConfirmedBetween,
		start.String(), end.String(), reservation.StatusConfirmed.String())
	if err != nil {
		return nil, wrapStoreError(errorSubjectReservation, errorCodeList, err)
	}
	defer rows.Close()
	return scanReservations(rows)
}

func (store *TxStore) UpdateStatus(ctx context.Context, id reservation.ReservationID, from reservation.Status, to reservation.Status) (reservation.Reservation, error) {
	row := store.tx.QueryRow(ctx, sqlUpdateReservationStatus, id.String(), from.String(), to.String())
	record, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return reservation.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeUpdateStatus, reservation.ErrAlreadyCancelled)
		}
		return reservation.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeUpdateStatus, err)
	}
	return record, nil
}

func scanReservations(rows pgx.Rows) ([]reservation.Reservation, error) {
	records := make([]reservation.Reservation, 0, 16)
	for rows.Next() {
		record, err := scanReservation(rows)
		if err != nil {
			return nil, wrapStoreError(errorSubjectReservation, errorCodeInvalid, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectReservation, errorCodeList, err)
	}
	return records, nil
}

func scanReservation(row pgx.Row) (reservation.Reservation, error) {
	var (
		idValue             string
		guestNameValue      string
		guestEmailValue     string
		partySizeValue      int
		slotDateValue       string
		slotTimeValue       string
		statusValue         string
		specialRequestValue string
		createdAtValue      time.Time
		updatedAtValue      time.Time
	)
	if err := row.Scan(
		&idValue,
		&guestNameValue,
		&guestEmailValue,
		&partySizeValue,
		&slotDateValue,
		&slotTimeValue,
		&statusValue,
		&specialRequestValue,
		&createdAtValue,
		&updatedAtValue,
	); err != nil {
		return reservation.Reservation{}, err
	}
	id, err := reservation.NewReservationID(idValue)
	if err != nil {
		return reservation.Reservation{}, err
	}
	guestName, err := reservation.NewGuestName(guestNameValue)
	if err != nil {
		return reservation.Reservation{}, err
	}
	guestEmail, err := reservation.NewGuestEmail(guestEmailValue)
	if err != nil {
		return reservation.Reservation{}, err
	}
	partySize, err := reservation.NewPartySize(partySizeValue)
	if err != nil {
		return reservation.Reservation{}, err
	}
	slotDate, err := reservation.NewSlotDate(slotDateValue)
	if err != nil {
		return reservation.Reservation{}, err
	}
	slotTime, err := reservation.NewSlotTime(slotTimeValue)
	if err != nil {
		return reservation.Reservation{}, err
	}
	status, err := reservation.ParseStatus(statusValue)
	if err != nil {
		return reservation.Reservation{}, err
	}
	specialRequest, err := reservation.NewSpecialRequest(specialRequestValue)
	if err != nil {
		return reservation.Reservation{}, err
	}
	return reservation.NewReservation(
		id,
		guestName,
		guestEmail,
		partySize,
		reservation.NewSlot(slotDate, slotTime),
		status,
		specialRequest,
		createdAtValue.UTC(),
		updatedAtValue.UTC(),
	)
}

func wrapStoreError(subject string, code string, err error) error {
	return reservation.WrapError(errorOperationStore, subject, code, err)
}

func isReservationConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintReservationPrimary
	}
	return false
}
