package lnwire

import (
	"io"
)

// TxComplete is sent by either side of an interactive transaction
// negotiation to signal that it has no further inputs or outputs to
// contribute. Two consecutive TxComplete messages, one from each side with
// no intervening change message, finalize the negotiation.
type TxComplete struct {
	// ChannelID identifies the active negotiation this message belongs
	// to.
	ChannelID ChannelID
}

// A compile time check to ensure TxComplete implements the lnwire.Message
// interface.
var _ Message = (*TxComplete)(nil)

// Decode deserializes a serialized TxComplete message stored in the passed
// io.Reader observing the specified protocol version.
//
// This is part of the lnwire.Message interface.
func (msg *TxComplete) Decode(r io.Reader, pver uint32) error {
	_, err := io.ReadFull(r, msg.ChannelID[:])
	return err
}

// Encode serializes the target TxComplete into the passed io.Writer
// observing the specified protocol version.
//
// This is part of the lnwire.Message interface.
func (msg *TxComplete) Encode(w io.Writer, pver uint32) error {
	_, err := w.Write(msg.ChannelID[:])
	return err
}

// MsgType returns the integer uniquely identifying this message type on the
// wire.
//
// This is part of the lnwire.Message interface.
func (msg *TxComplete) MsgType() MessageType {
	return MsgTxComplete
}

// MaxPayloadLength returns the maximum allowed payload length for a
// TxComplete message.
//
// This is part of the lnwire.Message interface.
func (msg *TxComplete) MaxPayloadLength(uint32) uint32 {
	return 32
}
