package lottery

import (
	"errors"

	"custodial-lottery/internal/audit"
	"custodial-lottery/internal/models"
)

func identity(b byte) models.IdentityKey {
	var k models.IdentityKey
	k[0] = b
	k[models.IdentityKeySize-1] = b
	return k
}

var (
	admin   = identity(1)
	alice   = identity(2)
	bob     = identity(3)
	carol   = identity(4)
	custody = identity(9)
)

type recordingSink struct {
	lines []string
}

func (r *recordingSink) Emit(_ audit.Level, line string) {
	r.lines = append(r.lines, line)
}

type recordingFunds struct {
	batches [][]models.Transfer
	fail    error
}

func (r *recordingFunds) Transfer(transfers []models.Transfer) error {
	if r.fail != nil {
		return r.fail
	}
	r.batches = append(r.batches, transfers)
	return nil
}

var errLedgerDown = errors.New("ledger down")

func newConfig(total uint64, price uint64, minor, grand uint64) models.LotteryConfig {
	return models.LotteryConfig{
		TotalTickets:    total,
		TicketPrice:     models.NewAmount(price),
		PayoutStructure: models.PayoutStructure{Minor: minor, Grand: grand},
		AdminIdentity:   admin,
	}
}

// newInitialized returns a lottery of total tickets at price 100 with a 5%/2%
// payout table.
func newInitialized(total uint64, opts ...Option) *State {
	s := NewState(opts...)
	if err := s.InitializeLottery(newConfig(total, 100, 500, 200)); err != nil {
		panic(err)
	}
	return s
}
