package lnwire

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/wire"
)

// ChannelID is a series of 32 bytes that uniquely identifies all channels
// within the network. The ChannelID is computed using the outpoint of the
// funding transaction (the txid, and output index). Given a funding output
// the ChannelID can be calculated by XOR'ing the big-endian serialization of
// the outpoint's txid, with the big-endian serialization of the outpoint
// index, truncated to 2 bytes.
type ChannelID [32]byte

// NewChanIDFromOutPoint generates a new ChannelID by XOR'ing the funding
// outpoint's transaction ID with its output index.
func NewChanIDFromOutPoint(op *wire.OutPoint) ChannelID {
	var cid ChannelID
	copy(cid[:], op.Hash[:])

	indexBytes := [2]byte{byte(op.Index >> 8), byte(op.Index)}
	cid[30] ^= indexBytes[0]
	cid[31] ^= indexBytes[1]

	return cid
}

// String returns the hex-encoded representation of the ChannelID.
func (c ChannelID) String() string {
	return hex.EncodeToString(c[:])
}
