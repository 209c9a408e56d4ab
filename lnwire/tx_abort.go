package lnwire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxTxAbortDataSize caps the length-prefixed diagnostic payload carried
// inside a TxAbort.
const maxTxAbortDataSize = 65535

// TxAbort is sent by either side of an interactive transaction negotiation
// to unilaterally and immediately cancel it. Unlike the change messages and
// TxComplete, a TxAbort is not subject to the turn-taking rules; receiving
// one always terminates the negotiation. The core state machine only needs
// to observe that termination -- translating Data into a user-facing reason,
// and reacting to the abort (e.g. forgetting the negotiation), is left to
// the enclosing channel layer.
type TxAbort struct {
	// ChannelID identifies the active negotiation this message belongs
	// to.
	ChannelID ChannelID

	// Data is an optional, human-readable explanation for the abort.
	Data []byte
}

// A compile time check to ensure TxAbort implements the lnwire.Message
// interface.
var _ Message = (*TxAbort)(nil)

// Decode deserializes a serialized TxAbort message stored in the passed
// io.Reader observing the specified protocol version.
//
// This is part of the lnwire.Message interface.
func (msg *TxAbort) Decode(r io.Reader, pver uint32) error {
	if _, err := io.ReadFull(r, msg.ChannelID[:]); err != nil {
		return err
	}

	var dataLen uint16
	if err := binary.Read(r, binary.BigEndian, &dataLen); err != nil {
		return err
	}

	msg.Data = make([]byte, dataLen)
	_, err := io.ReadFull(r, msg.Data)
	return err
}

// Encode serializes the target TxAbort into the passed io.Writer observing
// the specified protocol version.
//
// This is part of the lnwire.Message interface.
func (msg *TxAbort) Encode(w io.Writer, pver uint32) error {
	if _, err := w.Write(msg.ChannelID[:]); err != nil {
		return err
	}

	if len(msg.Data) > maxTxAbortDataSize {
		return fmt.Errorf("tx_abort: data too large: %d bytes",
			len(msg.Data))
	}

	if err := binary.Write(w, binary.BigEndian, uint16(len(msg.Data))); err != nil {
		return err
	}

	_, err := w.Write(msg.Data)
	return err
}

// MsgType returns the integer uniquely identifying this message type on the
// wire.
//
// This is part of the lnwire.Message interface.
func (msg *TxAbort) MsgType() MessageType {
	return MsgTxAbort
}

// MaxPayloadLength returns the maximum allowed payload length for a TxAbort
// message.
//
// This is part of the lnwire.Message interface.
func (msg *TxAbort) MaxPayloadLength(uint32) uint32 {
	return 32 + 2 + maxTxAbortDataSize
}
