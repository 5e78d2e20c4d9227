package domain

// Code identifies a policy violation. The set is closed: every rejection the
// engine can produce maps to exactly one code.
type Code uint8

const (
	CodeOwnerOnly Code = iota + 1
	CodeInsufficientFunds
	CodeUnauthorized
	CodeCircuitBreakerActive
	CodeInvalidConfidence
	CodeMaxTradeExceeded
	CodeBotPaused
	CodeCooldownActive
)

func (c Code) String() string {
	switch c {
	case CodeOwnerOnly:
		return "OWNER_ONLY"
	case CodeInsufficientFunds:
		return "INSUFFICIENT_FUNDS"
	case CodeUnauthorized:
		return "UNAUTHORIZED"
	case CodeCircuitBreakerActive:
		return "CIRCUIT_BREAKER_ACTIVE"
	case CodeInvalidConfidence:
		return "INVALID_CONFIDENCE"
	case CodeMaxTradeExceeded:
		return "MAX_TRADE_EXCEEDED"
	case CodeBotPaused:
		return "BOT_PAUSED"
	case CodeCooldownActive:
		return "COOLDOWN_ACTIVE"
	default:
		return "UNKNOWN"
	}
}

// LedgerError is a policy rejection. A rejected operation leaves ledger state
// untouched; the caller may resubmit, the engine never retries.
type LedgerError struct {
	Code Code
	msg  string
}

func (e *LedgerError) Error() string {
	return e.msg
}

var (
	ErrOwnerOnly            = &LedgerError{CodeOwnerOnly, "caller is not the owner"}
	ErrInsufficientFunds    = &LedgerError{CodeInsufficientFunds, "insufficient funds"}
	ErrUnauthorized         = &LedgerError{CodeUnauthorized, "caller is not an authorized operator"}
	ErrCircuitBreakerActive = &LedgerError{CodeCircuitBreakerActive, "circuit breaker is active"}
	ErrInvalidConfidence    = &LedgerError{CodeInvalidConfidence, "confidence score below minimum"}
	ErrMaxTradeExceeded     = &LedgerError{CodeMaxTradeExceeded, "trade size exceeds pool percentage limit"}
	ErrBotPaused            = &LedgerError{CodeBotPaused, "bot is paused"}
	ErrCooldownActive       = &LedgerError{CodeCooldownActive, "cooldown period has not elapsed"}
)
