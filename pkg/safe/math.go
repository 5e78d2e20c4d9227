package safe

import (
	"math"
)

// Add performs int64 addition and panics on overflow/underflow.
// Used for signed profit/loss accounting.
func Add(a, b int64) int64 {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		panic("LEDGER_SAFE_ADD_OVERFLOW")
	}
	return a + b
}

// Sub performs int64 subtraction and panics on overflow/underflow.
func Sub(a, b int64) int64 {
	if (b > 0 && a < math.MinInt64+b) || (b < 0 && a > math.MaxInt64+b) {
		panic("LEDGER_SAFE_SUB_OVERFLOW")
	}
	return a - b
}

// UAdd performs uint64 addition and panics on wraparound.
// Used for fund-pool and balance accounting, which must never wrap.
func UAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		panic("LEDGER_SAFE_UADD_OVERFLOW")
	}
	return a + b
}

// USub performs uint64 subtraction and panics if the result would go negative.
// The funds invariant (totalFunds never negative) is enforced here.
func USub(a, b uint64) uint64 {
	if b > a {
		panic("LEDGER_SAFE_USUB_UNDERFLOW")
	}
	return a - b
}

// UMul performs uint64 multiplication and panics on wraparound.
func UMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxUint64/b {
		panic("LEDGER_SAFE_UMUL_OVERFLOW")
	}
	return a * b
}

// UDiv performs uint64 division and panics on division by zero.
// Callers are expected to guard the zero-divisor case themselves; reaching
// this panic means a policy precondition was skipped.
func UDiv(a, b uint64) uint64 {
	if b == 0 {
		panic("LEDGER_SAFE_UDIV_BY_ZERO")
	}
	return a / b
}
