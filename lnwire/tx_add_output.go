package lnwire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxOutputScriptSize caps the length-prefixed script carried inside a
// TxAddOutput.
const maxOutputScriptSize = 65535

// TxAddOutput is sent by either side of an interactive transaction
// negotiation to propose a single output to the shared transaction under
// construction.
type TxAddOutput struct {
	// ChannelID identifies the active negotiation this message belongs
	// to.
	ChannelID ChannelID

	// SerialID is the serial id of the proposed output, chosen by the
	// sender.
	SerialID uint64

	// Amount is the value, in satoshis, of the proposed output.
	Amount uint64

	// Script is the scriptPubKey of the proposed output.
	Script []byte
}

// A compile time check to ensure TxAddOutput implements the lnwire.Message
// interface.
var _ Message = (*TxAddOutput)(nil)

// Decode deserializes a serialized TxAddOutput message stored in the passed
// io.Reader observing the specified protocol version.
//
// This is part of the lnwire.Message interface.
func (msg *TxAddOutput) Decode(r io.Reader, pver uint32) error {
	if _, err := io.ReadFull(r, msg.ChannelID[:]); err != nil {
		return err
	}

	if err := binary.Read(r, binary.BigEndian, &msg.SerialID); err != nil {
		return err
	}

	if err := binary.Read(r, binary.BigEndian, &msg.Amount); err != nil {
		return err
	}

	var scriptLen uint16
	if err := binary.Read(r, binary.BigEndian, &scriptLen); err != nil {
		return err
	}

	msg.Script = make([]byte, scriptLen)
	_, err := io.ReadFull(r, msg.Script)
	return err
}

// Encode serializes the target TxAddOutput into the passed io.Writer
// observing the specified protocol version.
//
// This is part of the lnwire.Message interface.
func (msg *TxAddOutput) Encode(w io.Writer, pver uint32) error {
	if _, err := w.Write(msg.ChannelID[:]); err != nil {
		return err
	}

	if err := binary.Write(w, binary.BigEndian, msg.SerialID); err != nil {
		return err
	}

	if err := binary.Write(w, binary.BigEndian, msg.Amount); err != nil {
		return err
	}

	if len(msg.Script) > maxOutputScriptSize {
		return fmt.Errorf("tx_add_output: script too large: %d bytes",
			len(msg.Script))
	}

	if err := binary.Write(w, binary.BigEndian, uint16(len(msg.Script))); err != nil {
		return err
	}

	_, err := w.Write(msg.Script)
	return err
}

// MsgType returns the integer uniquely identifying this message type on the
// wire.
//
// This is part of the lnwire.Message interface.
func (msg *TxAddOutput) MsgType() MessageType {
	return MsgTxAddOutput
}

// MaxPayloadLength returns the maximum allowed payload length for a
// TxAddOutput message.
//
// This is part of the lnwire.Message interface.
func (msg *TxAddOutput) MaxPayloadLength(uint32) uint32 {
	return 32 + 8 + 8 + 2 + maxOutputScriptSize
}
