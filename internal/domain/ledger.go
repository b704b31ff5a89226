package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ledgerNamespace      = uuid.MustParse("9f2c1a34-7d6b-4e1f-8a4c-2b0d5e9c3f17")
	reservationNamespace = uuid.MustParse("c4a8e0d2-1b5f-4c7a-9e3d-6f2b8a0c4e91")
)

type LedgerID string

// NewLedgerID derives the ledger identifier for a SKU+warehouse pair. The
// derivation is deterministic so the same pair always resolves to the same
// stream, even before the ledger is first created.
func NewLedgerID(sku, warehouseID string) LedgerID {
	return LedgerID(uuid.NewSHA1(ledgerNamespace, []byte(sku+"/"+warehouseID)).String())
}

func (id LedgerID) StreamID() string {
	return "inventory-" + string(id)
}

// NewReservationID derives a reservation identifier from the order and SKU,
// so a redelivered order event reuses the id instead of double-reserving.
func NewReservationID(orderID, sku string) string {
	return uuid.NewSHA1(reservationNamespace, []byte(orderID+"/"+sku)).String()
}

// Reservation is a soft hold on stock, keyed in the ledger by reservation id.
type Reservation struct {
	OrderID  string `json:"order_id"`
	Quantity int64  `json:"quantity"`
}

// Ledger tracks available, reserved and committed quantities for one
// SKU+warehouse pair. Transitions are pure: each returns a new ledger value
// plus the domain event to append, leaving the receiver untouched.
type Ledger struct {
	ID            LedgerID
	Sku           string
	WarehouseID   string
	Available     int64
	Reservations  map[string]Reservation
	Committed     map[string]Reservation
	Released      map[string]struct{}
	Version       int64
	InitializedAt time.Time
}

// StockLevels is the read-side view of a ledger.
type StockLevels struct {
	LedgerID    string `json:"ledger_id"`
	Sku         string `json:"sku"`
	WarehouseID string `json:"warehouse_id"`
	Available   int64  `json:"available"`
	Reserved    int64  `json:"reserved"`
	Committed   int64  `json:"committed"`
}

// NewLedger creates the ledger for a SKU+warehouse pair. Initial quantity may
// be zero but never negative.
func NewLedger(sku, warehouseID string, initialQuantity int64, now time.Time) (Ledger, Event, error) {
	if initialQuantity < 0 {
		return Ledger{}, Event{}, fmt.Errorf("%w: initial quantity must not be negative", ErrValidation)
	}

	e := Event{
		Type: EventInventoryInitialized,
		Payload: InventoryInitialized{
			LedgerID:      string(NewLedgerID(sku, warehouseID)),
			Sku:           sku,
			WarehouseID:   warehouseID,
			Quantity:      initialQuantity,
			InitializedAt: now,
		},
	}

	var l Ledger
	if err := l.Apply(e.Payload); err != nil {
		return Ledger{}, Event{}, err
	}

	return l, e, nil
}

// Reserve places a soft hold on stock. Reserving an id the ledger has already
// seen, in any state, is a no-op so redeliveries cannot double-reserve.
func (l Ledger) Reserve(reservationID, orderID string, quantity int64, now time.Time) (Ledger, *Event, error) {
	if quantity <= 0 {
		return l, nil, fmt.Errorf("%w: reserve quantity must be positive", ErrValidation)
	}
	if l.seen(reservationID) {
		return l, nil, nil
	}
	if l.Available < quantity {
		return l, nil, fmt.Errorf("%w: available %d, requested %d", ErrInsufficientStock, l.Available, quantity)
	}

	e := &Event{
		Type: EventStockReserved,
		Payload: StockReserved{
			ReservationID: reservationID,
			OrderID:       orderID,
			Quantity:      quantity,
			ReservedAt:    now,
		},
	}

	return l.next(e)
}

// CommitReservation converts a soft hold into a hard allocation. Committing
// an already committed id is a no-op; a released id is terminal and cannot be
// committed.
func (l Ledger) CommitReservation(reservationID string, now time.Time) (Ledger, *Event, error) {
	if _, ok := l.Committed[reservationID]; ok {
		return l, nil, nil
	}
	if _, ok := l.Released[reservationID]; ok {
		return l, nil, fmt.Errorf("%w: %s", ErrReservationReleased, reservationID)
	}
	res, ok := l.Reservations[reservationID]
	if !ok {
		return l, nil, fmt.Errorf("%w: %s", ErrReservationNotFound, reservationID)
	}

	e := &Event{
		Type: EventReservationCommitted,
		Payload: ReservationCommitted{
			ReservationID: reservationID,
			OrderID:       res.OrderID,
			Quantity:      res.Quantity,
			CommittedAt:   now,
		},
	}

	return l.next(e)
}

// ReleaseReservation returns a soft hold to available stock. Releasing an
// already released id is a no-op; a committed allocation cannot be released.
func (l Ledger) ReleaseReservation(reservationID, reason string, now time.Time) (Ledger, *Event, error) {
	if _, ok := l.Released[reservationID]; ok {
		return l, nil, nil
	}
	if _, ok := l.Committed[reservationID]; ok {
		return l, nil, fmt.Errorf("%w: %s", ErrReservationCommitted, reservationID)
	}
	res, ok := l.Reservations[reservationID]
	if !ok {
		return l, nil, fmt.Errorf("%w: %s", ErrReservationNotFound, reservationID)
	}

	e := &Event{
		Type: EventReservationReleased,
		Payload: ReservationReleased{
			ReservationID: reservationID,
			OrderID:       res.OrderID,
			Quantity:      res.Quantity,
			Reason:        reason,
			ReleasedAt:    now,
		},
	}

	return l.next(e)
}

// ReceiveStock adds supplier or transfer stock to the ledger.
func (l Ledger) ReceiveStock(quantity int64, source string, now time.Time) (Ledger, *Event, error) {
	if quantity <= 0 {
		return l, nil, fmt.Errorf("%w: received quantity must be positive", ErrValidation)
	}

	e := &Event{
		Type: EventStockReceived,
		Payload: StockReceived{
			Quantity:   quantity,
			Source:     source,
			ReceivedAt: now,
		},
	}

	return l.next(e)
}

// Restock adds returned customer stock to the ledger.
func (l Ledger) Restock(returnID string, quantity int64, now time.Time) (Ledger, *Event, error) {
	if quantity <= 0 {
		return l, nil, fmt.Errorf("%w: restock quantity must be positive", ErrValidation)
	}

	e := &Event{
		Type: EventStockRestocked,
		Payload: StockRestocked{
			ReturnID:    returnID,
			Quantity:    quantity,
			RestockedAt: now,
		},
	}

	return l.next(e)
}

// Apply mutates the ledger with one event. Used by the pure transitions on a
// copy, and by Replay when rebuilding state from a stream.
func (l *Ledger) Apply(event any) error {
	switch e := event.(type) {
	case InventoryInitialized:
		l.ID = LedgerID(e.LedgerID)
		l.Sku = e.Sku
		l.WarehouseID = e.WarehouseID
		l.Available = e.Quantity
		l.Reservations = make(map[string]Reservation)
		l.Committed = make(map[string]Reservation)
		l.Released = make(map[string]struct{})
		l.InitializedAt = e.InitializedAt
	case StockReserved:
		l.Available -= e.Quantity
		l.Reservations[e.ReservationID] = Reservation{OrderID: e.OrderID, Quantity: e.Quantity}
	case ReservationCommitted:
		l.Committed[e.ReservationID] = l.Reservations[e.ReservationID]
		delete(l.Reservations, e.ReservationID)
	case ReservationReleased:
		l.Available += e.Quantity
		delete(l.Reservations, e.ReservationID)
		l.Released[e.ReservationID] = struct{}{}
	case StockReceived:
		l.Available += e.Quantity
	case StockRestocked:
		l.Available += e.Quantity
	default:
		return fmt.Errorf("unknown event type: %T", event)
	}
	l.Version++
	return nil
}

// Replay rebuilds a ledger from the full event stream in append order.
func Replay(events []Event) (Ledger, error) {
	var l Ledger
	for _, e := range events {
		if err := l.Apply(e.Payload); err != nil {
			return Ledger{}, fmt.Errorf("failed to apply event from stream: %w", err)
		}
	}
	return l, nil
}

func (l Ledger) Levels() StockLevels {
	return StockLevels{
		LedgerID:    string(l.ID),
		Sku:         l.Sku,
		WarehouseID: l.WarehouseID,
		Available:   l.Available,
		Reserved:    l.TotalReserved(),
		Committed:   l.TotalCommitted(),
	}
}

func (l Ledger) TotalReserved() int64 {
	var sum int64
	for _, r := range l.Reservations {
		sum += r.Quantity
	}
	return sum
}

func (l Ledger) TotalCommitted() int64 {
	var sum int64
	for _, r := range l.Committed {
		sum += r.Quantity
	}
	return sum
}

func (l Ledger) seen(reservationID string) bool {
	if _, ok := l.Reservations[reservationID]; ok {
		return true
	}
	if _, ok := l.Committed[reservationID]; ok {
		return true
	}
	_, ok := l.Released[reservationID]
	return ok
}

func (l Ledger) next(e *Event) (Ledger, *Event, error) {
	n := l.clone()
	if err := n.Apply(e.Payload); err != nil {
		return l, nil, err
	}
	return n, e, nil
}

func (l Ledger) clone() Ledger {
	n := l
	n.Reservations = make(map[string]Reservation, len(l.Reservations))
	for k, v := range l.Reservations {
		n.Reservations[k] = v
	}
	n.Committed = make(map[string]Reservation, len(l.Committed))
	for k, v := range l.Committed {
		n.Committed[k] = v
	}
	n.Released = make(map[string]struct{}, len(l.Released))
	for k := range l.Released {
		n.Released[k] = struct{}{}
	}
	return n
}
