package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"custodial-lottery/internal/clock"
	"custodial-lottery/internal/lottery"
	"custodial-lottery/internal/models"

	"github.com/google/logger"
	"github.com/jonboulle/clockwork"
)

// ErrNoOracle is returned by RequestSeed when no oracle is configured.
var ErrNoOracle = errors.New("no randomness oracle configured")

// SeedOracle supplies the draw seed from an external verifiable randomness
// service. The seed's unpredictability is the oracle's responsibility.
type SeedOracle interface {
	Seed(ctx context.Context) (uint64, error)
}

// FixedSeedOracle always returns the same seed. Only for tests and local runs.
type FixedSeedOracle uint64

// Seed returns o.
func (o FixedSeedOracle) Seed(context.Context) (uint64, error) {
	return uint64(o), nil
}

// Status is a read-only snapshot of the lottery.
type Status struct {
	Phase       models.Phase          `json:"phase"`
	Config      *models.LotteryConfig `json:"config,omitempty"`
	SoldTickets uint64                `json:"soldTickets"`
	Balance     models.Amount         `json:"balance"`
	DrawTime    uint64                `json:"drawTime"`
	Seed        uint64                `json:"seed"`
	Allowlist   []models.IdentityKey  `json:"allowlist"`
	Custody     models.IdentityKey    `json:"custody"`
}

// DepositRecorder is told about accepted deposits so a host ledger can hold
// them in custody. CheckCredit must succeed before the deposit is accepted;
// afterwards Credit must apply the same amount.
type DepositRecorder interface {
	CheckCredit(id models.IdentityKey, amount models.Amount) error
	Credit(id models.IdentityKey, amount models.Amount) error
}

// LotteryService serializes every call against one lottery.State and feeds
// it the clock.
type LotteryService struct {
	mu       sync.Mutex
	state    *lottery.State
	clock    clockwork.Clock
	oracle   SeedOracle
	deposits DepositRecorder
}

// ServiceOption configures a LotteryService.
type ServiceOption func(*LotteryService)

// WithOracle sets the seed source. Without one, seeds can only be assigned
// explicitly.
func WithOracle(oracle SeedOracle) ServiceOption {
	return func(s *LotteryService) { s.oracle = oracle }
}

// WithDeposits credits every accepted deposit to the state's custody account.
func WithDeposits(deposits DepositRecorder) ServiceOption {
	return func(s *LotteryService) { s.deposits = deposits }
}

// NewLotteryService wraps state, reading time from c.
func NewLotteryService(state *lottery.State, c clockwork.Clock, opts ...ServiceOption) *LotteryService {
	s := &LotteryService{
		state: state,
		clock: c,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LotteryService) now() uint64 {
	return clock.UnixSeconds(s.clock)
}

// Initialize configures the lottery once.
func (s *LotteryService) Initialize(cfg models.LotteryConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.state.InitializeLottery(cfg); err != nil {
		return err
	}
	logger.Infof("Lottery initialized: %d tickets at %s, admin %s", cfg.TotalTickets, cfg.TicketPrice, cfg.AdminIdentity)
	return nil
}

// Status returns a snapshot of the lottery.
func (s *LotteryService) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Phase:       s.state.Phase(),
		SoldTickets: s.state.SoldTickets(),
		Balance:     s.state.Balance(),
		DrawTime:    s.state.DrawTime(),
		Seed:        s.state.Seed(),
		Allowlist:   s.state.Allowlist(),
		Custody:     s.state.Custody(),
	}
	if cfg, ok := s.state.Config(); ok {
		st.Config = &cfg
	}
	return st
}

// Purchase buys tickets for buyer at the current time. With a deposit
// recorder, the deposit is checked against custody before the state commits.
func (s *LotteryService) Purchase(buyer models.IdentityKey, deposit models.Amount) (models.PurchaseReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	custody := s.state.Custody()
	if s.deposits != nil {
		if err := s.deposits.CheckCredit(custody, deposit); err != nil {
			return models.PurchaseReceipt{}, fmt.Errorf("purchase: %w: custody cannot take %s: %w", lottery.ErrInvariant, deposit, err)
		}
	}
	receipt, err := s.state.Purchase(buyer, deposit, s.now())
	if err != nil {
		return receipt, err
	}
	if s.deposits != nil {
		if err := s.deposits.Credit(custody, deposit); err != nil {
			logger.Errorf("Deposit of %s by %s accepted but not credited to custody: %v", deposit, buyer, err)
			return receipt, fmt.Errorf("purchase: %w: custody credit failed after check: %w", lottery.ErrInvariant, err)
		}
	}
	return receipt, nil
}

// Tickets lists ticket ids in their current order, only owner's if owner is
// not the default identity.
func (s *LotteryService) Tickets(owner models.IdentityKey) []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner.IsDefault() {
		return s.state.Tickets()
	}
	return s.state.TicketsOf(owner)
}

// AddToACL allowlists id on behalf of caller.
func (s *LotteryService) AddToACL(caller, id models.IdentityKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AddToACL(caller, id)
}

// RemoveFromACL drops id from the allowlist on behalf of caller.
func (s *LotteryService) RemoveFromACL(caller, id models.IdentityKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.RemoveFromACL(caller, id)
}

// ActivateTimeLock arms the draw deadline seconds from now and returns it.
func (s *LotteryService) ActivateTimeLock(caller models.IdentityKey, seconds uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.state.ActivateTimeLock(caller, s.now(), seconds); err != nil {
		return 0, err
	}
	return s.state.DrawTime(), nil
}

// AssignSeed stores an explicit seed.
func (s *LotteryService) AssignSeed(caller models.IdentityKey, seed uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AssignSeed(caller, s.now(), seed)
}

// RequestSeed asks the oracle for a seed and assigns it. The oracle is called
// without holding the lock.
func (s *LotteryService) RequestSeed(ctx context.Context, caller models.IdentityKey) (uint64, error) {
	if s.oracle == nil {
		return 0, ErrNoOracle
	}
	seed, err := s.oracle.Seed(ctx)
	if err != nil {
		return 0, fmt.Errorf("request seed: %w", err)
	}
	if err := s.AssignSeed(caller, seed); err != nil {
		return 0, err
	}
	logger.Infof("Seed %d assigned by %s", seed, caller)
	return seed, nil
}

// ExecuteDraw reorders the tickets and returns the winners.
func (s *LotteryService) ExecuteDraw(caller models.IdentityKey) (models.Winners, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.state.ExecuteDraw(caller); err != nil {
		return models.Winners{}, err
	}
	return s.state.SelectWinners()
}

// Winners reads the winners off the current order.
func (s *LotteryService) Winners() (models.Winners, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SelectWinners()
}

// Prizes returns the prize amounts for the current balance.
func (s *LotteryService) Prizes() (models.Prizes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CalculatePrizes()
}

// Settle pays out the selected winners.
func (s *LotteryService) Settle(caller models.IdentityKey) (models.Winners, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	winners, err := s.state.SelectWinners()
	if err != nil {
		return winners, err
	}
	if err := s.state.TransferWinnings(caller, winners.Minor, winners.Grand); err != nil {
		return models.Winners{}, err
	}
	logger.Infof("Winnings transferred, grand ticket %d", winners.Grand)
	return winners, nil
}

// CollectOwnerFee pays the owner fee to the admin.
func (s *LotteryService) CollectOwnerFee(caller models.IdentityKey) (models.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CollectOwnerFee(caller)
}
