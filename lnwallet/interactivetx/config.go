package interactivetx

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/lnwire"
)

// EntropySource supplies secure random bytes for generating locally chosen
// serial ids. It must be safe for concurrent use; implementations typically
// wrap a node's wallet-wide CSPRNG.
type EntropySource interface {
	// GetSecureRandomBytes returns a slice of cryptographically secure
	// random bytes at least 8 bytes long.
	GetSecureRandomBytes() ([]byte, error)
}

// InputContribution pairs a local input with the previous transaction it
// spends, mirroring the data a caller must supply so a TxAddInput can be
// built without an external UTXO lookup.
type InputContribution struct {
	Input  *wire.TxIn
	PrevTx *wire.MsgTx
}

// OutputContribution is a local output awaiting contribution.
type OutputContribution struct {
	Value  btcutil.Amount
	Script []byte
}

// Config bundles every caller-supplied parameter needed to start a new
// interactive transaction negotiation.
type Config struct {
	// ChannelID identifies the negotiation on the wire.
	ChannelID lnwire.ChannelID

	// IsInitiator is true if the local node opened this negotiation.
	IsInitiator bool

	// RequireConfirmedInputs is true if every contributed input must
	// reference a confirmed on-chain output.
	RequireConfirmedInputs bool

	// FeeRatePerKw is the agreed feerate, in satoshis per 1000 weight
	// units.
	FeeRatePerKw uint32

	// LockTime is the nLockTime of the assembled transaction.
	LockTime uint32

	// InputsToContribute are the local node's proposed inputs, popped
	// from the end of the slice (last element first) as the negotiation
	// proceeds.
	InputsToContribute []InputContribution

	// OutputsToContribute are the local node's proposed outputs, popped
	// from the end of the slice (last element first) once
	// InputsToContribute is exhausted.
	OutputsToContribute []OutputContribution

	// Entropy supplies the random bytes used to generate locally chosen
	// serial ids.
	Entropy EntropySource
}
