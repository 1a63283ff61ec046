package domain

// Error classes mirror how callers must react: validation never succeeds on
// retry, state errors may clear as the round advances, solvency needs an
// administrator, authorization needs a different caller, external errors
// unwind the whole operation.
type ErrorClass string

const (
	ClassValidation    ErrorClass = "VALIDATION"
	ClassState         ErrorClass = "STATE"
	ClassSolvency      ErrorClass = "SOLVENCY"
	ClassAuthorization ErrorClass = "AUTHORIZATION"
	ClassExternal      ErrorClass = "EXTERNAL_DEPENDENCY"
)

// Error is a rejection with a stable machine code. Temporary marks "retry
// later" rejections; everything else either never succeeds or needs action.
type Error struct {
	Class     ErrorClass
	Code      string
	Message   string
	Temporary bool
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

// Is matches by code so sentinels work with errors.Is across wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func validation(code, msg string) *Error {
	return &Error{Class: ClassValidation, Code: code, Message: msg}
}

func state(code, msg string, temporary bool) *Error {
	return &Error{Class: ClassState, Code: code, Message: msg, Temporary: temporary}
}

var (
	// Validation: rejected before any mutation, never succeeds on retry.
	ErrInvalidLegCount  = validation("INVALID_LEG_COUNT", "bet must have between 1 and the round's match count legs")
	ErrDuplicateLeg     = validation("DUPLICATE_LEG", "bet predicts the same match twice")
	ErrInvalidOutcome   = validation("INVALID_OUTCOME", "predicted outcome must be HOME, AWAY or DRAW")
	ErrStakeOutOfRange  = validation("STAKE_OUT_OF_RANGE", "stake outside the configured min/max")
	ErrInvalidMatch     = validation("INVALID_MATCH", "match index outside the round")
	ErrInvalidWindow    = validation("INVALID_WINDOW", "round end time must be after start time")
	ErrSlippage         = validation("SLIPPAGE", "payout below the caller's minimum")
	ErrInvalidAmount    = validation("INVALID_AMOUNT", "amount must be positive")

	// State: wrong phase for the operation.
	ErrNotFound         = state("NOT_FOUND", "no such record", false)
	ErrRoundNotOpen     = state("ROUND_NOT_OPEN", "round is not accepting bets", false)
	ErrRoundNotSeedable = state("ROUND_NOT_SEEDABLE", "round already seeded or past created", false)
	ErrRoundNotLockable = state("ROUND_NOT_LOCKABLE", "round is not in a lockable state", false)
	ErrRoundNotPending  = state("ROUND_NOT_PENDING", "round is not awaiting results", false)
	ErrRoundNotSettled  = state("ROUND_NOT_SETTLED", "round has not settled", true)
	ErrRoundTooEarly    = state("ROUND_TOO_EARLY", "round duration has not elapsed", true)
	ErrAlreadySettled   = state("ALREADY_SETTLED", "round already settled", false)
	ErrAlreadyProcessed = state("ALREADY_PROCESSED", "bet already processed", false)
	ErrBetNotActive     = state("BET_NOT_ACTIVE", "bet is not active", false)
	ErrBetNotWon        = state("BET_NOT_WON", "bet is not in won status", false)
	ErrSweepTooEarly    = state("SWEEP_TOO_EARLY", "sweep deadline not reached", true)
	ErrAlreadySwept     = state("ALREADY_SWEPT", "round pool already swept", false)

	// Solvency: needs an administrative deposit.
	ErrInsufficientReserve = &Error{Class: ClassSolvency, Code: "INSUFFICIENT_RESERVE", Message: "reserve cannot cover the liability"}

	// Authorization: wrong caller.
	ErrNotBettor      = &Error{Class: ClassAuthorization, Code: "NOT_BETTOR", Message: "only the bettor may perform this"}
	ErrBountyTooEarly = &Error{Class: ClassAuthorization, Code: "BOUNTY_TOO_EARLY", Message: "exclusive claim window still open", Temporary: true}
	ErrBountyTooSmall = &Error{Class: ClassAuthorization, Code: "BOUNTY_TOO_SMALL", Message: "payout below the bounty minimum"}
	ErrAdminOnly      = &Error{Class: ClassAuthorization, Code: "ADMIN_ONLY", Message: "administrative surface requires the admin token"}

	// External dependency: the whole operation unwinds.
	ErrUnknownRequest  = &Error{Class: ClassExternal, Code: "UNKNOWN_REQUEST", Message: "randomness request id is unknown"}
	ErrRequestConsumed = &Error{Class: ClassExternal, Code: "REQUEST_CONSUMED", Message: "randomness request already resolved"}
	ErrTransferFailed  = &Error{Class: ClassExternal, Code: "TRANSFER_FAILED", Message: "value transfer collaborator rejected the operation"}
)
