// Package negotiation holds the per-peer offer/answer state machine. It does
// no I/O: Step maps a link and an event to the next link and a list of
// actions for a driver to perform.
package negotiation

// IsInitiator reports whether self opens the first offer towards peer.
// Both sides compute the same answer from the two ids alone.
func IsInitiator(self, peer string) bool {
	return self < peer
}

// IsPolite reports whether self yields on an offer collision with peer.
func IsPolite(self, peer string) bool {
	return self < peer
}
