package interactivetx

// SerialID is the 64-bit identifier a peer chooses for each input or output
// it contributes to an interactive transaction negotiation. Its parity
// conveys the contributor's role: even identifiers belong to the initiator,
// odd identifiers belong to the non-initiator.
type SerialID uint64

// isInitiatorOwned reports whether this serial id carries initiator parity.
func (s SerialID) isInitiatorOwned() bool {
	return s%2 == 0
}

// hasRoleParity reports whether this serial id's parity matches the given
// role.
func (s SerialID) hasRoleParity(isInitiator bool) bool {
	return s.isInitiatorOwned() == isInitiator
}

// withRoleParity returns s, or s with its low bit flipped, whichever carries
// the requested role's parity. Used when generating a locally chosen serial
// id from raw entropy that may have landed on the wrong parity.
func withRoleParity(s SerialID, isInitiator bool) SerialID {
	if s.hasRoleParity(isInitiator) {
		return s
	}

	return s ^ 1
}
