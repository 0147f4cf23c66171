package settlement

import "net/url"

// CallbackKind classifies a gateway redirect.
type CallbackKind int

const (
	// NotACallback means the query carries no recognized gateway status.
	// The caller must do nothing at all.
	NotACallback CallbackKind = iota

	// Cancelled means the buyer backed out at the gateway. The verify
	// endpoint is never contacted for these.
	Cancelled

	// Pending means the gateway reports success and the transaction now
	// needs authoritative verification.
	Pending
)

// Callback is the parsed redirect descriptor.
type Callback struct {
	Kind      CallbackKind
	Reference string
}

// ClassifyCallback inspects redirect query parameters and decides whether
// (and how) the activation machinery should run. Pure function, no I/O:
// the redirect parameters are only ever used for routing, never for money
// decisions.
//
// The gateway sends a textual status plus one of several reference
// parameter spellings depending on the flow that initiated the payment.
func ClassifyCallback(params url.Values) Callback {
	status := params.Get("status")

	switch status {
	case "successful", "completed", "success":
		ref := callbackReference(params)
		if ref == "" {
			// A success status with no reference is malformed; there
			// is nothing to verify, so treat it as noise.
			return Callback{Kind: NotACallback}
		}
		return Callback{Kind: Pending, Reference: ref}
	case "cancelled", "canceled":
		return Callback{Kind: Cancelled, Reference: callbackReference(params)}
	default:
		return Callback{Kind: NotACallback}
	}
}

func callbackReference(params url.Values) string {
	for _, key := range []string{"reference", "trxref", "transaction_id", "tx_ref"} {
		if v := params.Get(key); v != "" {
			return v
		}
	}
	return ""
}
