// Package lottery is the state core of a custodial lottery: ticket sales
// against a fixed supply, access control, rate limiting, the seeded draw and
// prize arithmetic.
//
// A State has no internal locking. Callers must serialize every operation on
// one State; the host's transaction ordering (or services.LotteryService)
// provides that. Time is always passed in as unix seconds.
package lottery

import (
	"fmt"
	"strconv"

	"custodial-lottery/internal/audit"
	"custodial-lottery/internal/models"
)

// FundTransfer moves funds between custodial accounts on the host ledger.
// A batch is applied entirely or not at all.
type FundTransfer interface {
	Transfer(transfers []models.Transfer) error
}

type noTransfer struct{}

func (noTransfer) Transfer([]models.Transfer) error { return nil }

// State is the single entry point for lottery operations. It owns every
// component; none of them is shared.
type State struct {
	initialized bool
	settled     bool
	config      models.LotteryConfig
	balance     models.Amount

	access  *AccessControl
	limiter *RateLimiter
	tickets *TicketLedger
	draw    *DrawEngine

	funds       FundTransfer
	custody     models.IdentityKey
	log         *audit.Log
	maxPerBuyer uint64
	cooldown    CooldownPolicy
}

// Option configures a State at construction.
type Option func(*State)

// WithAudit sets the event log. The default emits nothing.
func WithAudit(log *audit.Log) Option {
	return func(s *State) { s.log = log }
}

// WithFundTransfer sets the host ledger. The default accepts every batch
// without moving anything.
func WithFundTransfer(funds FundTransfer) Option {
	return func(s *State) { s.funds = funds }
}

// WithCustody sets the account payouts are drawn from.
func WithCustody(custody models.IdentityKey) Option {
	return func(s *State) { s.custody = custody }
}

// WithMaxTicketsPerBuyer caps the tickets one identity may hold; 0 disables
// the cap.
func WithMaxTicketsPerBuyer(n uint64) Option {
	return func(s *State) { s.maxPerBuyer = n }
}

// WithCooldownPolicy replaces the default tiered cooldown.
func WithCooldownPolicy(policy CooldownPolicy) Option {
	return func(s *State) { s.cooldown = policy }
}

// WithCooldowns keeps the tiered policy with the given seconds.
func WithCooldowns(standard, allowlisted uint64) Option {
	return func(s *State) { s.cooldown = TieredCooldown(s.access, standard, allowlisted) }
}

// NewState returns an uninitialized lottery.
func NewState(opts ...Option) *State {
	s := &State{
		access: NewAccessControl(),
		draw:   NewDrawEngine(),
		funds:  noTransfer{},
		log:    audit.Discard(),
	}
	s.cooldown = TieredCooldown(s.access, DefaultCooldownSeconds, AllowlistCooldownSeconds)
	for _, opt := range opts {
		opt(s)
	}
	s.limiter = NewRateLimiter(s.cooldown)
	s.tickets = NewTicketLedger(0, models.Amount{}, s.maxPerBuyer)
	return s
}

func (s *State) reject(op string, err error) error {
	err = fmt.Errorf("%s: %w", op, err)
	s.log.Error(err)
	return err
}

func (s *State) requireInitialized() error {
	if !s.initialized {
		return fmt.Errorf("%w: lottery not initialized", ErrUnauthorized)
	}
	return nil
}

// InitializeLottery writes the configuration. It succeeds exactly once and is
// the only way to set the admin identity.
func (s *State) InitializeLottery(cfg models.LotteryConfig) error {
	const op = "initialize lottery"
	if s.initialized {
		return s.reject(op, ErrAlreadyInitialized)
	}
	if cfg.TotalTickets == 0 || cfg.TicketPrice.IsZero() || cfg.AdminIdentity.IsDefault() {
		return s.reject(op, fmt.Errorf("%w: total tickets, ticket price and admin are required", ErrInvalidInput))
	}
	if !cfg.PayoutStructure.Valid() {
		return s.reject(op, fmt.Errorf("%w: minor %d + grand %d bp", ErrInvalidPayoutStructure,
			cfg.PayoutStructure.Minor, cfg.PayoutStructure.Grand))
	}

	s.config = cfg
	s.access.setAdmin(cfg.AdminIdentity)
	s.tickets = NewTicketLedger(cfg.TotalTickets, cfg.TicketPrice, s.maxPerBuyer)
	s.initialized = true
	s.log.StateChange("config", fmt.Sprintf("%d tickets at %s", cfg.TotalTickets, cfg.TicketPrice), cfg.AdminIdentity)
	return nil
}

// AddToACL allowlists id. Adding a present identity is a no-op.
func (s *State) AddToACL(caller, id models.IdentityKey) error {
	const op = "add to acl"
	if err := s.access.ValidateAdmin(caller); err != nil {
		return s.reject(op, err)
	}
	if id.IsDefault() {
		return s.reject(op, fmt.Errorf("%w: cannot allowlist the default identity", ErrInvalidInput))
	}
	s.access.Add(id)
	s.log.StateChange("acl", "+"+id.String(), caller)
	return nil
}

// RemoveFromACL drops id. Removing an absent identity is a no-op.
func (s *State) RemoveFromACL(caller, id models.IdentityKey) error {
	const op = "remove from acl"
	if err := s.access.ValidateAdmin(caller); err != nil {
		return s.reject(op, err)
	}
	s.access.Remove(id)
	s.log.StateChange("acl", "-"+id.String(), caller)
	return nil
}

// Purchase buys deposit/ticket_price tickets for buyer. The purchase is all
// or nothing; on success the full deposit is credited and the part that buys
// no whole ticket is reported as Excess.
func (s *State) Purchase(buyer models.IdentityKey, deposit models.Amount, now uint64) (models.PurchaseReceipt, error) {
	const op = "purchase"
	if err := s.requireInitialized(); err != nil {
		return models.PurchaseReceipt{}, s.reject(op, err)
	}
	if err := s.salesOpen(now); err != nil {
		return models.PurchaseReceipt{}, s.reject(op, err)
	}
	if err := s.limiter.Check(buyer, now); err != nil {
		return models.PurchaseReceipt{}, s.reject(op, err)
	}
	count, excess, err := s.tickets.Quote(buyer, deposit)
	if err != nil {
		return models.PurchaseReceipt{}, s.reject(op, err)
	}
	balance, ok := s.balance.Add(deposit)
	if !ok {
		return models.PurchaseReceipt{}, s.reject(op, fmt.Errorf("%w: balance %s + deposit %s", ErrInvariant, s.balance, deposit))
	}

	ids, err := s.tickets.mint(buyer, count, now)
	if err != nil {
		return models.PurchaseReceipt{}, s.reject(op, err)
	}
	s.limiter.Record(buyer, now)
	s.balance = balance

	s.log.Event(fmt.Sprintf("New ticket bought by %s", buyer))
	s.log.StateChange("sold_tickets", strconv.FormatUint(s.tickets.Sold(), 10), buyer)
	s.log.StateChange("contract_balance", s.balance.String(), buyer)
	return models.PurchaseReceipt{
		Buyer:     buyer,
		TicketIDs: ids,
		Deposit:   deposit,
		Excess:    excess,
	}, nil
}

func (s *State) salesOpen(now uint64) error {
	if s.draw.Drawn() || s.settled {
		return fmt.Errorf("%w: draw already executed", ErrInvalidDrawTime)
	}
	if drawTime := s.draw.DrawTime(); drawTime != 0 && now >= drawTime {
		return fmt.Errorf("%w: sales closed at %d", ErrInvalidDrawTime, drawTime)
	}
	return nil
}

// Availability fails with ErrOutOfTickets once the supply is exhausted.
func (s *State) Availability() error {
	if err := s.requireInitialized(); err != nil {
		return err
	}
	return s.tickets.Availability()
}

// ActivateTimeLock sets the draw deadline to now+duration. Admin only.
func (s *State) ActivateTimeLock(caller models.IdentityKey, now, duration uint64) error {
	const op = "activate time-lock"
	if err := s.requireInitialized(); err != nil {
		return s.reject(op, err)
	}
	if err := s.access.ValidateAdmin(caller); err != nil {
		return s.reject(op, err)
	}
	if err := s.draw.ActivateTimeLock(now, duration); err != nil {
		return s.reject(op, err)
	}
	s.log.StateChange("draw_time", strconv.FormatUint(s.draw.DrawTime(), 10), caller)
	return nil
}

// drawCaller guards the draw triggers: a known caller that is the admin or
// allowlisted.
func (s *State) drawCaller(caller models.IdentityKey) error {
	if err := s.requireInitialized(); err != nil {
		return err
	}
	if caller.IsDefault() {
		return fmt.Errorf("%w: anonymous caller", ErrUnauthorized)
	}
	if !s.access.Privileged(caller) {
		return fmt.Errorf("%w: %s is neither admin nor allowlisted", ErrAclViolation, caller)
	}
	return nil
}

// AssignSeed consumes the oracle's seed once the time-lock has expired.
func (s *State) AssignSeed(caller models.IdentityKey, now, seed uint64) error {
	const op = "assign seed"
	if err := s.drawCaller(caller); err != nil {
		return s.reject(op, err)
	}
	if err := s.draw.AssignSeed(now, seed); err != nil {
		return s.reject(op, err)
	}
	s.log.StateChange("random_seed", strconv.FormatUint(seed, 10), caller)
	return nil
}

// ExecuteDraw reorders the tickets by the assigned seed.
func (s *State) ExecuteDraw(caller models.IdentityKey) error {
	const op = "execute draw"
	if err := s.drawCaller(caller); err != nil {
		return s.reject(op, err)
	}
	if err := s.draw.Execute(s.tickets); err != nil {
		return s.reject(op, err)
	}
	s.log.Event(fmt.Sprintf("Draw executed over %d tickets by %s", s.tickets.Sold(), caller))
	return nil
}

// SelectWinners reads the winners off the current ticket order.
func (s *State) SelectWinners() (models.Winners, error) {
	winners, err := s.draw.SelectWinners(s.tickets)
	if err != nil {
		return winners, s.reject("select winners", err)
	}
	return winners, nil
}

// CalculatePrizes applies the payout table to the current balance.
func (s *State) CalculatePrizes() (models.Prizes, error) {
	prizes, err := CalculatePrizes(s.balance, s.config.PayoutStructure)
	if err != nil {
		return prizes, s.reject("calculate prizes", err)
	}
	return prizes, nil
}

// TransferWinnings pays out a drawn lottery once. minor and grand must be the
// selected winners. The minor pool is split evenly among the minor tickets,
// the grand prize goes to the grand ticket's owner; truncation remainders
// stay in the balance.
func (s *State) TransferWinnings(caller models.IdentityKey, minor []uint64, grand uint64) error {
	const op = "transfer winnings"
	if err := s.requireInitialized(); err != nil {
		return s.reject(op, err)
	}
	if err := s.access.ValidateAdmin(caller); err != nil {
		return s.reject(op, err)
	}
	if s.settled {
		return s.reject(op, fmt.Errorf("%w: winnings already transferred", ErrInvalidInput))
	}
	if !s.draw.Drawn() {
		return s.reject(op, fmt.Errorf("%w: draw not executed", ErrInvalidRandomSeed))
	}
	selected, err := s.draw.SelectWinners(s.tickets)
	if err != nil {
		return s.reject(op, err)
	}
	if grand != selected.Grand || !equalIDs(minor, selected.Minor) {
		return s.reject(op, fmt.Errorf("%w: winners do not match the draw", ErrInvalidInput))
	}

	prizes, err := CalculatePrizes(s.balance, s.config.PayoutStructure)
	if err != nil {
		return s.reject(op, err)
	}
	share := SplitEvenly(prizes.Minor, uint64(len(selected.Minor)))

	var batch []models.Transfer
	total := models.Amount{}
	pay := func(id uint64, amount models.Amount, memo string) error {
		if amount.IsZero() {
			return nil
		}
		owner, ok := s.tickets.Owner(id)
		if !ok {
			return fmt.Errorf("%w: ticket %d has no owner", ErrInvariant, id)
		}
		if total, ok = total.Add(amount); !ok {
			return fmt.Errorf("%w: payout total overflow", ErrInvariant)
		}
		batch = append(batch, models.Transfer{From: s.custody, To: owner, Amount: amount, Memo: memo})
		return nil
	}
	for _, id := range selected.Minor {
		if err := pay(id, share, fmt.Sprintf("minor prize ticket %d", id)); err != nil {
			return s.reject(op, err)
		}
	}
	if err := pay(selected.Grand, prizes.Grand, fmt.Sprintf("grand prize ticket %d", selected.Grand)); err != nil {
		return s.reject(op, err)
	}
	balance, ok := s.balance.Sub(total)
	if !ok {
		return s.reject(op, fmt.Errorf("%w: payout %s exceeds balance %s", ErrInvariant, total, s.balance))
	}
	if len(batch) > 0 {
		if err := s.funds.Transfer(batch); err != nil {
			return s.reject(op, err)
		}
	}

	s.balance = balance
	s.settled = true
	s.log.StateChange("contract_balance", s.balance.String(), caller)
	s.log.Event(fmt.Sprintf("Winnings of %s transferred to %d winners", total, len(batch)))
	return nil
}

func equalIDs(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CollectOwnerFee transfers 2/10000 of the balance to the admin and returns
// the fee.
func (s *State) CollectOwnerFee(caller models.IdentityKey) (models.Amount, error) {
	const op = "collect owner fee"
	if err := s.requireInitialized(); err != nil {
		return models.Amount{}, s.reject(op, err)
	}
	if err := s.access.ValidateAdmin(caller); err != nil {
		return models.Amount{}, s.reject(op, err)
	}
	fee, err := OwnerFee(s.balance)
	if err != nil {
		return fee, s.reject(op, err)
	}
	balance, ok := s.balance.Sub(fee)
	if !ok {
		return models.Amount{}, s.reject(op, fmt.Errorf("%w: fee %s exceeds balance %s", ErrInvariant, fee, s.balance))
	}
	if !fee.IsZero() {
		transfer := models.Transfer{From: s.custody, To: s.config.AdminIdentity, Amount: fee, Memo: "owner fee"}
		if err := s.funds.Transfer([]models.Transfer{transfer}); err != nil {
			return models.Amount{}, s.reject(op, err)
		}
	}

	s.balance = balance
	s.log.StateChange("contract_balance", s.balance.String(), caller)
	return fee, nil
}

// Config returns the configuration and whether the lottery is initialized.
func (s *State) Config() (models.LotteryConfig, bool) {
	return s.config, s.initialized
}

// Phase derives the lifecycle position from the current state.
func (s *State) Phase() models.Phase {
	switch {
	case !s.initialized:
		return models.PhaseUninitialized
	case s.settled:
		return models.PhaseSettled
	case s.draw.Drawn():
		return models.PhaseDrawn
	case s.draw.Seed() != 0:
		return models.PhaseSeedAssigned
	case s.draw.DrawTime() != 0:
		return models.PhaseTimeLockSet
	default:
		return models.PhaseOpen
	}
}

// Balance returns the custodial balance tracked by the core.
func (s *State) Balance() models.Amount { return s.balance }

// SoldTickets returns the number of tickets sold.
func (s *State) SoldTickets() uint64 { return s.tickets.Sold() }

// Tickets returns the ticket ids in their current order.
func (s *State) Tickets() []uint64 { return s.tickets.Tickets() }

// TicketsOf returns the ticket ids owned by id.
func (s *State) TicketsOf(id models.IdentityKey) []uint64 { return s.tickets.TicketsOf(id) }

// Owner returns the owner of ticket.
func (s *State) Owner(ticket uint64) (models.IdentityKey, bool) { return s.tickets.Owner(ticket) }

// DrawTime returns the draw deadline, 0 if unset.
func (s *State) DrawTime() uint64 { return s.draw.DrawTime() }

// Seed returns the assigned seed, 0 if unset.
func (s *State) Seed() uint64 { return s.draw.Seed() }

// IsAllowlisted reports whether id is on the allowlist.
func (s *State) IsAllowlisted(id models.IdentityKey) bool { return s.access.Contains(id) }

// Allowlist returns the allowlisted identities in byte order.
func (s *State) Allowlist() []models.IdentityKey { return s.access.Members() }

// Custody returns the account payouts are drawn from.
func (s *State) Custody() models.IdentityKey { return s.custody }
