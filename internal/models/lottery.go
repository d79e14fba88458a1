package models

// BasisPointsDenominator is the number of basis points in 100%.
const BasisPointsDenominator = 10000

// PayoutStructure holds the prize shares in basis points. Whatever is left of
// the balance after minor and grand is house margin or rollover.
type PayoutStructure struct {
	Minor uint64 `json:"minor"`
	Grand uint64 `json:"grand"`
}

// Valid reports whether each share is in [0, 10000] and the shares sum to at
// most 10000.
func (p PayoutStructure) Valid() bool {
	return p.Minor <= BasisPointsDenominator &&
		p.Grand <= BasisPointsDenominator &&
		p.Minor+p.Grand <= BasisPointsDenominator
}

// LotteryConfig is written exactly once, by initialization.
type LotteryConfig struct {
	TotalTickets    uint64          `json:"totalTickets"`
	TicketPrice     Amount          `json:"ticketPrice"`
	PayoutStructure PayoutStructure `json:"payoutStructure"`
	AdminIdentity   IdentityKey     `json:"adminIdentity"`
}

// Phase is the lifecycle position of a lottery instance.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseOpen
	PhaseTimeLockSet
	PhaseSeedAssigned
	PhaseDrawn
	PhaseSettled
)

// String returns the phase name used in status responses.
func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseOpen:
		return "open"
	case PhaseTimeLockSet:
		return "time-lock-set"
	case PhaseSeedAssigned:
		return "seed-assigned"
	case PhaseDrawn:
		return "drawn"
	case PhaseSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// PurchaseReceipt describes an accepted purchase. Excess is the part of the
// deposit that bought no whole ticket; it stays in the custodial balance.
type PurchaseReceipt struct {
	Buyer     IdentityKey `json:"buyer"`
	TicketIDs []uint64    `json:"ticketIds"`
	Deposit   Amount      `json:"deposit"`
	Excess    Amount      `json:"excess"`
}

// Winners is the outcome of winner selection over the drawn order.
type Winners struct {
	Minor []uint64 `json:"minor"`
	Grand uint64   `json:"grand"`
}

// Prizes are the amounts derived from the balance and the payout table.
type Prizes struct {
	Minor Amount `json:"minor"`
	Grand Amount `json:"grand"`
}

// Transfer is one balance movement requested from the host ledger.
type Transfer struct {
	From   IdentityKey `json:"from"`
	To     IdentityKey `json:"to"`
	Amount Amount      `json:"amount"`
	Memo   string      `json:"memo"`
}
