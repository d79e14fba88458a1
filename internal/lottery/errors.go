package lottery

// Error is a typed lottery failure. Code is stable and follows the order of
// the taxonomy below; Kind is the name reported to callers.
type Error struct {
	Code uint32
	Kind string
}

// Error returns the kind name.
func (e Error) Error() string {
	return e.Kind
}

var (
	ErrRateLimited             = Error{0, "RateLimited"}
	ErrUnauthorized            = Error{1, "Unauthorized"}
	ErrAlreadyInitialized      = Error{2, "AlreadyInitialized"}
	ErrOutOfTickets            = Error{3, "OutOfTickets"}
	ErrInvalidInput            = Error{4, "InvalidInput"}
	ErrInvalidAdmin            = Error{5, "InvalidAdmin"}
	ErrInvalidPayoutStructure  = Error{6, "InvalidPayoutStructure"}
	ErrTimeLockAlreadySet      = Error{7, "TimeLockAlreadySet"}
	ErrInvalidDrawTime         = Error{8, "InvalidDrawTime"}
	ErrInvalidRandomSeed       = Error{9, "InvalidRandomSeed"}
	ErrNoTicketsSold           = Error{10, "NoTicketsSold"}
	ErrInvalidWalletAddress    = Error{11, "InvalidWalletAddress"}
	ErrInvalidDeposit          = Error{12, "InvalidDeposit"}
	ErrDuplicateTicketPurchase = Error{13, "DuplicateTicketPurchase"}
	ErrAclViolation            = Error{14, "AclViolation"}

	// ErrInvariant reports a broken arithmetic invariant on the balance. It is
	// fatal for the operation that hit it and never leaves partial effects.
	ErrInvariant = Error{1000, "InvariantViolation"}
)

// Kinds lists every taxonomy error, in code order.
var Kinds = []Error{
	ErrRateLimited,
	ErrUnauthorized,
	ErrAlreadyInitialized,
	ErrOutOfTickets,
	ErrInvalidInput,
	ErrInvalidAdmin,
	ErrInvalidPayoutStructure,
	ErrTimeLockAlreadySet,
	ErrInvalidDrawTime,
	ErrInvalidRandomSeed,
	ErrNoTicketsSold,
	ErrInvalidWalletAddress,
	ErrInvalidDeposit,
	ErrDuplicateTicketPurchase,
	ErrAclViolation,
}
