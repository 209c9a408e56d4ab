package lnwire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/wire"
)

// maxPrevTxSize is the maximum encoded size of the previous transaction
// carried inside a TxAddInput, as mandated by the length-prefixed encoding
// (a two byte length prefix, hence 2^16-1).
const maxPrevTxSize = 65535

// TxAddInput is sent by either side of an interactive transaction
// negotiation to propose a single input to the shared transaction under
// construction. The SerialID is chosen by the sender and must carry the
// sender's role parity.
type TxAddInput struct {
	// ChannelID identifies the active negotiation this message belongs
	// to.
	ChannelID ChannelID

	// SerialID is the serial id of the proposed input, chosen by the
	// sender.
	SerialID uint64

	// PrevTx is the full previous transaction that contains the output
	// being spent by this input.
	PrevTx *wire.MsgTx

	// PrevTxOut is the index of the output within PrevTx being spent.
	PrevTxOut uint32

	// Sequence is the sequence number to use for this input.
	Sequence uint32
}

// A compile time check to ensure TxAddInput implements the lnwire.Message
// interface.
var _ Message = (*TxAddInput)(nil)

// Decode deserializes a serialized TxAddInput message stored in the passed
// io.Reader observing the specified protocol version.
//
// This is part of the lnwire.Message interface.
func (msg *TxAddInput) Decode(r io.Reader, pver uint32) error {
	if _, err := io.ReadFull(r, msg.ChannelID[:]); err != nil {
		return err
	}

	if err := binary.Read(r, binary.BigEndian, &msg.SerialID); err != nil {
		return err
	}

	var txLen uint16
	if err := binary.Read(r, binary.BigEndian, &txLen); err != nil {
		return err
	}
	if txLen == 0 {
		return fmt.Errorf("tx_add_input: prevtx must not be empty")
	}

	prevTx := wire.NewMsgTx(wire.TxVersion)
	if err := prevTx.Deserialize(io.LimitReader(r, int64(txLen))); err != nil {
		return fmt.Errorf("unable to decode prevtx: %w", err)
	}
	msg.PrevTx = prevTx

	if err := binary.Read(r, binary.BigEndian, &msg.PrevTxOut); err != nil {
		return err
	}

	return binary.Read(r, binary.BigEndian, &msg.Sequence)
}

// Encode serializes the target TxAddInput into the passed io.Writer
// observing the specified protocol version.
//
// This is part of the lnwire.Message interface.
func (msg *TxAddInput) Encode(w io.Writer, pver uint32) error {
	if _, err := w.Write(msg.ChannelID[:]); err != nil {
		return err
	}

	if err := binary.Write(w, binary.BigEndian, msg.SerialID); err != nil {
		return err
	}

	var txBuf bytes.Buffer
	if err := msg.PrevTx.Serialize(&txBuf); err != nil {
		return err
	}
	if txBuf.Len() > maxPrevTxSize {
		return fmt.Errorf("tx_add_input: prevtx too large: %d bytes",
			txBuf.Len())
	}

	if err := binary.Write(w, binary.BigEndian, uint16(txBuf.Len())); err != nil {
		return err
	}
	if _, err := w.Write(txBuf.Bytes()); err != nil {
		return err
	}

	if err := binary.Write(w, binary.BigEndian, msg.PrevTxOut); err != nil {
		return err
	}

	return binary.Write(w, binary.BigEndian, msg.Sequence)
}

// MsgType returns the integer uniquely identifying this message type on the
// wire.
//
// This is part of the lnwire.Message interface.
func (msg *TxAddInput) MsgType() MessageType {
	return MsgTxAddInput
}

// MaxPayloadLength returns the maximum allowed payload length for a
// TxAddInput message.
//
// This is part of the lnwire.Message interface.
func (msg *TxAddInput) MaxPayloadLength(uint32) uint32 {
	// channel_id (32) + serial_id (8) + prevtx_len (2) + prevtx (65535) +
	// prevtx_out (4) + sequence (4)
	return 32 + 8 + 2 + maxPrevTxSize + 4 + 4
}
