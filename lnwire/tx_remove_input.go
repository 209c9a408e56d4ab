package lnwire

import (
	"encoding/binary"
	"io"
)

// TxRemoveInput is sent by either side of an interactive transaction
// negotiation to withdraw a previously proposed input, identified by the
// serial id the sender chose for it.
type TxRemoveInput struct {
	// ChannelID identifies the active negotiation this message belongs
	// to.
	ChannelID ChannelID

	// SerialID is the serial id of the input being removed.
	SerialID uint64
}

// A compile time check to ensure TxRemoveInput implements the lnwire.Message
// interface.
var _ Message = (*TxRemoveInput)(nil)

// Decode deserializes a serialized TxRemoveInput message stored in the
// passed io.Reader observing the specified protocol version.
//
// This is part of the lnwire.Message interface.
func (msg *TxRemoveInput) Decode(r io.Reader, pver uint32) error {
	if _, err := io.ReadFull(r, msg.ChannelID[:]); err != nil {
		return err
	}

	return binary.Read(r, binary.BigEndian, &msg.SerialID)
}

// Encode serializes the target TxRemoveInput into the passed io.Writer
// observing the specified protocol version.
//
// This is part of the lnwire.Message interface.
func (msg *TxRemoveInput) Encode(w io.Writer, pver uint32) error {
	if _, err := w.Write(msg.ChannelID[:]); err != nil {
		return err
	}

	return binary.Write(w, binary.BigEndian, msg.SerialID)
}

// MsgType returns the integer uniquely identifying this message type on the
// wire.
//
// This is part of the lnwire.Message interface.
func (msg *TxRemoveInput) MsgType() MessageType {
	return MsgTxRemoveInput
}

// MaxPayloadLength returns the maximum allowed payload length for a
// TxRemoveInput message.
//
// This is part of the lnwire.Message interface.
func (msg *TxRemoveInput) MaxPayloadLength(uint32) uint32 {
	return 32 + 8
}
