package settlement

import "errors"

var (
	// ErrVerificationFailed means the gateway says the transaction did
	// not succeed. Terminal for this attempt; the order stays unpaid and
	// the buyer may start a fresh checkout.
	ErrVerificationFailed = errors.New("settlement: gateway verification failed")

	// ErrAmountMismatch means the gateway-verified amount disagrees with
	// the locally expected total. Always terminal-failure, never
	// accepted, regardless of what the callback status said.
	ErrAmountMismatch = errors.New("settlement: verified amount does not match expected total")

	// ErrShopContextUnavailable means activation was invoked before the
	// owning shop's identity was known. The activation is deferred, not
	// failed: the caller retries once the shop context has loaded. The
	// attempt guard is NOT set for these.
	ErrShopContextUnavailable = errors.New("settlement: shop context not yet available")
)
