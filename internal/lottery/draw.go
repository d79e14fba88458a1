package lottery

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"custodial-lottery/internal/models"
)

// DrawEngine owns the time-lock and the seed. A draw time or seed of 0 means
// unset.
type DrawEngine struct {
	drawTime uint64
	seed     uint64
	drawn    bool
}

// NewDrawEngine returns an engine with no time-lock and no seed.
func NewDrawEngine() *DrawEngine {
	return &DrawEngine{}
}

// DrawTime returns the armed deadline, 0 if unset.
func (d *DrawEngine) DrawTime() uint64 { return d.drawTime }

// Seed returns the assigned seed, 0 if unset.
func (d *DrawEngine) Seed() uint64 { return d.seed }

// Drawn reports whether the draw has been executed.
func (d *DrawEngine) Drawn() bool { return d.drawn }

// ActivateTimeLock arms the deadline once; it can never be re-armed.
func (d *DrawEngine) ActivateTimeLock(now, duration uint64) error {
	if d.drawTime != 0 {
		return fmt.Errorf("%w: draw time is %d", ErrTimeLockAlreadySet, d.drawTime)
	}
	if duration > math.MaxUint64-now {
		return fmt.Errorf("%w: duration %d overflows the clock", ErrInvalidInput, duration)
	}
	if now+duration == 0 {
		return fmt.Errorf("%w: draw time 0 is reserved for unset", ErrInvalidInput)
	}
	d.drawTime = now + duration
	return nil
}

// CheckSeed validates AssignSeed without mutating.
func (d *DrawEngine) CheckSeed(now, seed uint64) error {
	if d.drawTime == 0 {
		return fmt.Errorf("%w: time-lock not set", ErrInvalidDrawTime)
	}
	if now < d.drawTime {
		return fmt.Errorf("%w: now %d is before draw time %d", ErrInvalidDrawTime, now, d.drawTime)
	}
	if seed == 0 {
		return fmt.Errorf("%w: zero seed", ErrInvalidRandomSeed)
	}
	if d.seed != 0 {
		return fmt.Errorf("%w: seed already assigned", ErrInvalidRandomSeed)
	}
	return nil
}

// AssignSeed stores the oracle's seed. The seed is untrusted input; its
// unpredictability is the oracle's responsibility.
func (d *DrawEngine) AssignSeed(now, seed uint64) error {
	if err := d.CheckSeed(now, seed); err != nil {
		return err
	}
	d.seed = seed
	return nil
}

// CheckDraw validates Execute without mutating.
func (d *DrawEngine) CheckDraw(tickets *TicketLedger) error {
	if d.seed == 0 {
		return fmt.Errorf("%w: no seed assigned", ErrInvalidRandomSeed)
	}
	if d.drawn {
		return fmt.Errorf("%w: seed already consumed", ErrInvalidRandomSeed)
	}
	if tickets.Sold() == 0 {
		return ErrNoTicketsSold
	}
	return nil
}

// Execute rewrites the ticket order by the seed. It is terminal.
func (d *DrawEngine) Execute(tickets *TicketLedger) error {
	if err := d.CheckDraw(tickets); err != nil {
		return err
	}
	tickets.reorder(DrawOrder(tickets.Tickets(), d.seed))
	d.drawn = true
	return nil
}

// SortKey is the decimal ticket id followed by the decimal seed.
func SortKey(id, seed uint64) string {
	return strconv.FormatUint(id, 10) + strconv.FormatUint(seed, 10)
}

type keyedTicket struct {
	id  uint64
	key string
}

// DrawOrder sorts ids by SortKey compared as strings, not as numbers. The
// input slice is not modified.
func DrawOrder(ids []uint64, seed uint64) []uint64 {
	keyed := make([]keyedTicket, len(ids))
	for i, id := range ids {
		keyed[i].id = id
		keyed[i].key = SortKey(id, seed)
	}
	slices.SortStableFunc(keyed, func(a, b keyedTicket) int {
		return strings.Compare(a.key, b.key)
	})

	out := make([]uint64, len(keyed))
	for i := range keyed {
		out[i] = keyed[i].id
	}
	return out
}

// SelectWinners reads the current order: the first ticket is the grand
// winner and the first totalTickets/10 tickets are the minor winners. The
// count uses the configured total, not the number sold, and is capped by the
// tickets actually sold.
func (d *DrawEngine) SelectWinners(tickets *TicketLedger) (models.Winners, error) {
	order := tickets.Tickets()
	if len(order) == 0 {
		return models.Winners{}, ErrNoTicketsSold
	}
	n := min(tickets.Total()/10, uint64(len(order)))
	return models.Winners{
		Minor: order[:n:n],
		Grand: order[0],
	}, nil
}
