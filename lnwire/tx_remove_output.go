package lnwire

import (
	"encoding/binary"
	"io"
)

// TxRemoveOutput is sent by either side of an interactive transaction
// negotiation to withdraw a previously proposed output, identified by the
// serial id the sender chose for it.
type TxRemoveOutput struct {
	// ChannelID identifies the active negotiation this message belongs
	// to.
	ChannelID ChannelID

	// SerialID is the serial id of the output being removed.
	SerialID uint64
}

// A compile time check to ensure TxRemoveOutput implements the
// lnwire.Message interface.
var _ Message = (*TxRemoveOutput)(nil)

// Decode deserializes a serialized TxRemoveOutput message stored in the
// passed io.Reader observing the specified protocol version.
//
// This is part of the lnwire.Message interface.
func (msg *TxRemoveOutput) Decode(r io.Reader, pver uint32) error {
	if _, err := io.ReadFull(r, msg.ChannelID[:]); err != nil {
		return err
	}

	return binary.Read(r, binary.BigEndian, &msg.SerialID)
}

// Encode serializes the target TxRemoveOutput into the passed io.Writer
// observing the specified protocol version.
//
// This is part of the lnwire.Message interface.
func (msg *TxRemoveOutput) Encode(w io.Writer, pver uint32) error {
	if _, err := w.Write(msg.ChannelID[:]); err != nil {
		return err
	}

	return binary.Write(w, binary.BigEndian, msg.SerialID)
}

// MsgType returns the integer uniquely identifying this message type on the
// wire.
//
// This is part of the lnwire.Message interface.
func (msg *TxRemoveOutput) MsgType() MessageType {
	return MsgTxRemoveOutput
}

// MaxPayloadLength returns the maximum allowed payload length for a
// TxRemoveOutput message.
//
// This is part of the lnwire.Message interface.
func (msg *TxRemoveOutput) MaxPayloadLength(uint32) uint32 {
	return 32 + 8
}
