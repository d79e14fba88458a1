package lottery

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strconv"

	"custodial-lottery/internal/models"
)

// maxIDAttempts bounds regeneration after a ticket id collision.
const maxIDAttempts = 1 << 16

// TicketLedger maps ticket ids to owners. order keeps the ids in purchase
// order until a draw rewrites it; owners and order always hold the same ids.
type TicketLedger struct {
	totalTickets uint64
	ticketPrice  models.Amount
	maxPerBuyer  uint64

	owners   map[uint64]models.IdentityKey
	order    []uint64
	perBuyer map[models.IdentityKey]uint64
}

// NewTicketLedger returns a ledger for totalTickets tickets at ticketPrice.
// maxPerBuyer of 0 means no per-buyer cap.
func NewTicketLedger(totalTickets uint64, ticketPrice models.Amount, maxPerBuyer uint64) *TicketLedger {
	return &TicketLedger{
		totalTickets: totalTickets,
		ticketPrice:  ticketPrice,
		maxPerBuyer:  maxPerBuyer,
		owners:       make(map[uint64]models.IdentityKey),
		perBuyer:     make(map[models.IdentityKey]uint64),
	}
}

// Sold returns the number of tickets issued.
func (l *TicketLedger) Sold() uint64 {
	return uint64(len(l.order))
}

// Total returns the configured ticket supply.
func (l *TicketLedger) Total() uint64 {
	return l.totalTickets
}

// Availability fails with ErrOutOfTickets once every ticket is sold.
func (l *TicketLedger) Availability() error {
	if l.Sold() >= l.totalTickets {
		return fmt.Errorf("%w: all %d tickets sold", ErrOutOfTickets, l.totalTickets)
	}
	return nil
}

// Quote validates a purchase without mutating anything and returns how many
// whole tickets the deposit buys and what is left over.
func (l *TicketLedger) Quote(buyer models.IdentityKey, deposit models.Amount) (uint64, models.Amount, error) {
	var excess models.Amount
	if deposit.Cmp(l.ticketPrice) < 0 {
		return 0, excess, fmt.Errorf("%w: deposit %s below ticket price %s", ErrInvalidDeposit, deposit, l.ticketPrice)
	}
	if buyer.IsDefault() {
		return 0, excess, ErrInvalidWalletAddress
	}
	if err := l.Availability(); err != nil {
		return 0, excess, err
	}

	quo, excess, ok := deposit.DivMod(l.ticketPrice)
	if !ok {
		return 0, excess, fmt.Errorf("%w: zero ticket price", ErrInvariant)
	}
	remaining := l.totalTickets - l.Sold()
	count, fits := quo.Uint64()
	if !fits || count > remaining {
		return 0, excess, fmt.Errorf("%w: requested %s tickets, %d remaining", ErrOutOfTickets, quo, remaining)
	}
	if l.maxPerBuyer > 0 && l.perBuyer[buyer]+count > l.maxPerBuyer {
		return 0, excess, fmt.Errorf("%w: %s holds %d of at most %d tickets",
			ErrDuplicateTicketPurchase, buyer, l.perBuyer[buyer], l.maxPerBuyer)
	}
	return count, excess, nil
}

// mint issues count fresh ids to buyer. Callers must have validated the
// purchase with Quote.
func (l *TicketLedger) mint(buyer models.IdentityKey, count, now uint64) ([]uint64, error) {
	ids := make([]uint64, 0, count)
	for range count {
		id, err := l.freshID(now)
		if err != nil {
			l.rollback(ids)
			return nil, err
		}
		l.owners[id] = buyer
		l.order = append(l.order, id)
		ids = append(ids, id)
	}
	l.perBuyer[buyer] += count
	return ids, nil
}

func (l *TicketLedger) rollback(ids []uint64) {
	for _, id := range ids {
		delete(l.owners, id)
	}
	l.order = l.order[:len(l.order)-len(ids)]
}

// Purchase validates and mints in one step.
func (l *TicketLedger) Purchase(buyer models.IdentityKey, deposit models.Amount, now uint64) ([]uint64, models.Amount, error) {
	count, excess, err := l.Quote(buyer, deposit)
	if err != nil {
		return nil, excess, err
	}
	ids, err := l.mint(buyer, count, now)
	return ids, excess, err
}

func (l *TicketLedger) freshID(now uint64) (uint64, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := TicketID(now, l.Sold(), attempt)
		if _, taken := l.owners[id]; !taken {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: no free ticket id after %d attempts", ErrInvariant, maxIDAttempts)
}

// TicketID hashes the decimal text of now followed by sold with SHA-256 and
// keeps the first 8 bytes, big endian. Attempts after the first append
// ":<attempt>" to the hashed text.
func TicketID(now, sold uint64, attempt int) uint64 {
	text := strconv.FormatUint(now, 10) + strconv.FormatUint(sold, 10)
	if attempt > 0 {
		text += ":" + strconv.Itoa(attempt)
	}
	sum := sha256.Sum256([]byte(text))
	return binary.BigEndian.Uint64(sum[:8])
}

// Owner returns the owner of ticket id.
func (l *TicketLedger) Owner(id uint64) (models.IdentityKey, bool) {
	owner, ok := l.owners[id]
	return owner, ok
}

// Tickets returns a copy of the ids in their current order.
func (l *TicketLedger) Tickets() []uint64 {
	return append([]uint64(nil), l.order...)
}

// TicketsOf returns the ids owned by buyer in their current order.
func (l *TicketLedger) TicketsOf(buyer models.IdentityKey) []uint64 {
	var ids []uint64
	for _, id := range l.order {
		if l.owners[id] == buyer {
			ids = append(ids, id)
		}
	}
	return ids
}

func (l *TicketLedger) reorder(order []uint64) {
	l.order = order
}
