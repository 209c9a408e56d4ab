package interactivetx

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/lnwire"
)

// maxSerialIDAttempts bounds how many times the constructor will draw fresh
// entropy to find a locally chosen serial id that does not collide with one
// already in use. The protocol itself does not guard against collisions;
// this is a defensive improvement over simply failing the negotiation the
// first time a freshly drawn id happens to repeat.
const maxSerialIDAttempts = 16

// Result is the outcome of driving the Constructor one step: either the
// next message to send to the counterparty, the final assembled
// transaction, or both (the message that carries our closing tx_complete,
// alongside the transaction it finalizes).
type Result struct {
	// Message is the next outbound message, or nil if there is nothing
	// left to send.
	Message lnwire.Message

	// Tx is the assembled transaction, set only once the negotiation has
	// completed.
	Tx *wire.MsgTx
}

// Constructor is the façade driving a single interactive transaction
// negotiation: it holds the pending local contributions and the state
// machine, and decides after every inbound event whether -- and what -- to
// emit next.
type Constructor struct {
	cfg Config
	sm  *StateMachine

	pendingInputs  []InputContribution
	pendingOutputs []OutputContribution
}

// New creates a Constructor for a fresh negotiation. If the local node is
// the initiator, it immediately performs the opening local step and
// returns its message; otherwise it returns a nil Result, since the
// initiator is expected to speak first.
func New(cfg Config) (*Constructor, *Result, error) {
	ctx := NewNegotiationContext(
		cfg.IsInitiator, cfg.RequireConfirmedInputs, cfg.FeeRatePerKw,
		cfg.LockTime,
	)

	c := &Constructor{
		cfg:            cfg,
		sm:             NewStateMachine(ctx),
		pendingInputs:  append([]InputContribution(nil), cfg.InputsToContribute...),
		pendingOutputs: append([]OutputContribution(nil), cfg.OutputsToContribute...),
	}

	if !cfg.IsInitiator {
		return c, nil, nil
	}

	result, err := c.doLocalStep()
	if err != nil {
		return nil, nil, err
	}

	return c, result, nil
}

// State returns the current negotiation state.
func (c *Constructor) State() State {
	return c.sm.State()
}

// AbortReason returns the reason the negotiation was aborted, if it was.
func (c *Constructor) AbortReason() (error, bool) {
	state := c.sm.State()
	if state.Kind != StateNegotiationAborted {
		return nil, false
	}

	return state.AbortReason, true
}

// HandleTxAddInput processes a received tx_add_input and returns the next
// outbound message, if any.
func (c *Constructor) HandleTxAddInput(msg *lnwire.TxAddInput,
	confirmed bool) (*Result, error) {

	err := c.sm.ReceiveTxAddInput(
		SerialID(msg.SerialID), msg.Sequence, msg.PrevTx, msg.PrevTxOut,
		confirmed,
	)
	if err != nil {
		return nil, err
	}

	return c.doLocalStep()
}

// HandleTxRemoveInput processes a received tx_remove_input and returns the
// next outbound message, if any.
func (c *Constructor) HandleTxRemoveInput(msg *lnwire.TxRemoveInput) (*Result, error) {
	if err := c.sm.ReceiveTxRemoveInput(SerialID(msg.SerialID)); err != nil {
		return nil, err
	}

	return c.doLocalStep()
}

// HandleTxAddOutput processes a received tx_add_output and returns the next
// outbound message, if any.
func (c *Constructor) HandleTxAddOutput(msg *lnwire.TxAddOutput) (*Result, error) {
	err := c.sm.ReceiveTxAddOutput(
		SerialID(msg.SerialID), btcutil.Amount(msg.Amount), msg.Script,
	)
	if err != nil {
		return nil, err
	}

	return c.doLocalStep()
}

// HandleTxRemoveOutput processes a received tx_remove_output and returns
// the next outbound message, if any.
func (c *Constructor) HandleTxRemoveOutput(msg *lnwire.TxRemoveOutput) (*Result, error) {
	if err := c.sm.ReceiveTxRemoveOutput(SerialID(msg.SerialID)); err != nil {
		return nil, err
	}

	return c.doLocalStep()
}

// HandleTxComplete processes a received tx_complete. If the negotiation is
// not yet done, it performs the next local step and returns its message. If
// receiving this tx_complete itself completed the negotiation (we had
// already sent ours), it returns the final transaction with no message.
func (c *Constructor) HandleTxComplete(msg *lnwire.TxComplete) (*Result, error) {
	if err := c.sm.ReceiveTxComplete(); err != nil {
		return nil, err
	}

	if c.sm.State().Kind == StateNegotiationComplete {
		return &Result{Tx: c.sm.State().Tx}, nil
	}

	return c.doLocalStep()
}

// HandleTxAbort processes a received tx_abort, unconditionally terminating
// the negotiation.
func (c *Constructor) HandleTxAbort(msg *lnwire.TxAbort) error {
	return c.sm.ReceiveTxAbort()
}

// doLocalStep is the only method that drives outbound traffic: it pops the
// next pending input, then the next pending output, then finally sends
// tx_complete once both queues are empty.
func (c *Constructor) doLocalStep() (*Result, error) {
	if len(c.pendingInputs) > 0 {
		return c.sendNextInput()
	}

	if len(c.pendingOutputs) > 0 {
		return c.sendNextOutput()
	}

	return c.sendTxComplete()
}

func (c *Constructor) sendNextInput() (*Result, error) {
	last := len(c.pendingInputs) - 1
	contribution := c.pendingInputs[last]
	c.pendingInputs = c.pendingInputs[:last]

	serialID, err := c.nextLocalSerialID()
	if err != nil {
		return nil, err
	}

	sequence := contribution.Input.Sequence
	prevTxOut := contribution.Input.PreviousOutPoint.Index

	err = c.sm.SendTxAddInput(serialID, sequence, contribution.PrevTx, prevTxOut)
	if err != nil {
		return nil, err
	}

	msg := &lnwire.TxAddInput{
		ChannelID: c.cfg.ChannelID,
		SerialID:  uint64(serialID),
		PrevTx:    contribution.PrevTx,
		PrevTxOut: prevTxOut,
		Sequence:  sequence,
	}

	return &Result{Message: msg}, nil
}

func (c *Constructor) sendNextOutput() (*Result, error) {
	last := len(c.pendingOutputs) - 1
	contribution := c.pendingOutputs[last]
	c.pendingOutputs = c.pendingOutputs[:last]

	serialID, err := c.nextLocalSerialID()
	if err != nil {
		return nil, err
	}

	err = c.sm.SendTxAddOutput(serialID, contribution.Value, contribution.Script)
	if err != nil {
		return nil, err
	}

	msg := &lnwire.TxAddOutput{
		ChannelID: c.cfg.ChannelID,
		SerialID:  uint64(serialID),
		Amount:    uint64(contribution.Value),
		Script:    contribution.Script,
	}

	return &Result{Message: msg}, nil
}

func (c *Constructor) sendTxComplete() (*Result, error) {
	if err := c.sm.SendTxComplete(); err != nil {
		return nil, err
	}

	result := &Result{Message: &lnwire.TxComplete{ChannelID: c.cfg.ChannelID}}
	if c.sm.State().Kind == StateNegotiationComplete {
		result.Tx = c.sm.State().Tx
	}

	return result, nil
}

// nextLocalSerialID draws a locally chosen serial id from the configured
// entropy source, flipping its low bit if necessary so its parity matches
// this node's role. It retries on collision with an id already in use,
// rather than letting the first unlucky draw self-abort the negotiation.
func (c *Constructor) nextLocalSerialID() (SerialID, error) {
	ctx := c.sm.Context()

	for attempt := 0; attempt < maxSerialIDAttempts; attempt++ {
		raw, err := c.cfg.Entropy.GetSecureRandomBytes()
		if err != nil {
			return 0, fmt.Errorf("unable to generate serial id: %w", err)
		}
		if len(raw) < 8 {
			return 0, fmt.Errorf("entropy source returned %d bytes, "+
				"need at least 8", len(raw))
		}

		id := withRoleParity(
			SerialID(binary.BigEndian.Uint64(raw[:8])), c.cfg.IsInitiator,
		)

		if !ctx.hasSerialID(id) {
			return id, nil
		}
	}

	return 0, fmt.Errorf("could not generate a unique serial id after "+
		"%d attempts", maxSerialIDAttempts)
}
