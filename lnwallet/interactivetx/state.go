package interactivetx

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// StateKind enumerates the states an interactive transaction negotiation
// can be in. Only LocalChange and RemoteChange are true "negotiating"
// states; the Tx*Complete states track the single-message completion
// handshake, and NegotiationComplete/NegotiationAborted are terminal.
type StateKind uint8

const (
	// StateLocalChange indicates we most recently sent a change message;
	// the counterparty is expected to respond next.
	StateLocalChange StateKind = iota

	// StateRemoteChange indicates the counterparty most recently sent a
	// change message; we must respond next.
	StateRemoteChange

	// StateLocalTxComplete indicates we sent tx_complete and are
	// awaiting the counterparty's.
	StateLocalTxComplete

	// StateRemoteTxComplete indicates the counterparty sent tx_complete
	// and we must respond, either with a change (which revokes our
	// pending completion) or with our own tx_complete to finalize.
	StateRemoteTxComplete

	// StateNegotiationComplete indicates both sides have exchanged
	// consecutive tx_complete messages with no intervening change.
	StateNegotiationComplete

	// StateNegotiationAborted indicates the negotiation failed and
	// cannot be continued.
	StateNegotiationAborted
)

// State is the current state of a negotiation, tagged with the data that
// only makes sense alongside a particular StateKind.
type State struct {
	Kind StateKind

	// Tx is set iff Kind == StateNegotiationComplete.
	Tx *wire.MsgTx

	// AbortReason is set iff Kind == StateNegotiationAborted.
	AbortReason error
}

// StateMachine drives a single interactive transaction negotiation. It
// enforces strict turn-taking between LocalChange and RemoteChange (with
// the Tx*Complete variants layered on top for the completion handshake),
// delegating all payload validation to the embedded NegotiationContext.
type StateMachine struct {
	state State
	ctx   *NegotiationContext
}

// NewStateMachine creates a StateMachine over ctx, in the initial state
// appropriate for the negotiation's roles: the initiator speaks first, so
// a holder-initiator machine starts awaiting nothing and expecting to send;
// a non-initiator machine starts awaiting the initiator's first message.
func NewStateMachine(ctx *NegotiationContext) *StateMachine {
	initial := StateLocalChange
	if ctx.HolderIsInitiator {
		initial = StateRemoteChange
	}

	return &StateMachine{
		state: State{Kind: initial},
		ctx:   ctx,
	}
}

// State returns the current state.
func (sm *StateMachine) State() State {
	return sm.state
}

// Context returns the embedded NegotiationContext so the driver can inspect
// pending contributions; it must not be mutated except through the
// StateMachine's own Send*/Receive* methods.
func (sm *StateMachine) Context() *NegotiationContext {
	return sm.ctx
}

// receiveChange drives a "receive" change event: legal only from
// StateLocalChange or StateLocalTxComplete, landing on StateRemoteChange.
func (sm *StateMachine) receiveChange(do func() error) error {
	switch sm.state.Kind {
	case StateLocalChange, StateLocalTxComplete:
		if err := do(); err != nil {
			sm.abort(err)
			return err
		}

		sm.state = State{Kind: StateRemoteChange}
		return nil

	default:
		return sm.rejectUnexpected("change message received out of turn")
	}
}

// sendChange drives a "send" change event: legal only from
// StateRemoteChange or StateRemoteTxComplete, landing on StateLocalChange.
func (sm *StateMachine) sendChange(do func() error) error {
	switch sm.state.Kind {
	case StateRemoteChange, StateRemoteTxComplete:
		if err := do(); err != nil {
			sm.abort(err)
			return err
		}

		sm.state = State{Kind: StateLocalChange}
		return nil

	default:
		return sm.rejectUnexpected("attempted to send a change message out of turn")
	}
}

// ReceiveTxAddInput drives the tx_add_input-received event.
func (sm *StateMachine) ReceiveTxAddInput(serialID SerialID, sequence uint32,
	prevTx *wire.MsgTx, prevTxOut uint32, confirmed bool) error {

	return sm.receiveChange(func() error {
		return sm.ctx.ReceiveTxAddInput(serialID, sequence, prevTx,
			prevTxOut, confirmed)
	})
}

// ReceiveTxRemoveInput drives the tx_remove_input-received event.
func (sm *StateMachine) ReceiveTxRemoveInput(serialID SerialID) error {
	return sm.receiveChange(func() error {
		return sm.ctx.ReceiveTxRemoveInput(serialID)
	})
}

// ReceiveTxAddOutput drives the tx_add_output-received event.
func (sm *StateMachine) ReceiveTxAddOutput(serialID SerialID,
	value btcutil.Amount, script []byte) error {

	return sm.receiveChange(func() error {
		return sm.ctx.ReceiveTxAddOutput(serialID, value, script)
	})
}

// ReceiveTxRemoveOutput drives the tx_remove_output-received event.
func (sm *StateMachine) ReceiveTxRemoveOutput(serialID SerialID) error {
	return sm.receiveChange(func() error {
		return sm.ctx.ReceiveTxRemoveOutput(serialID)
	})
}

// SendTxAddInput drives the tx_add_input-sent event.
func (sm *StateMachine) SendTxAddInput(serialID SerialID, sequence uint32,
	prevTx *wire.MsgTx, prevTxOut uint32) error {

	return sm.sendChange(func() error {
		return sm.ctx.SendTxAddInput(serialID, sequence, prevTx, prevTxOut)
	})
}

// SendTxRemoveInput drives the tx_remove_input-sent event.
func (sm *StateMachine) SendTxRemoveInput(serialID SerialID) error {
	return sm.sendChange(func() error {
		return sm.ctx.SendTxRemoveInput(serialID)
	})
}

// SendTxAddOutput drives the tx_add_output-sent event.
func (sm *StateMachine) SendTxAddOutput(serialID SerialID, value btcutil.Amount,
	script []byte) error {

	return sm.sendChange(func() error {
		return sm.ctx.SendTxAddOutput(serialID, value, script)
	})
}

// SendTxRemoveOutput drives the tx_remove_output-sent event.
func (sm *StateMachine) SendTxRemoveOutput(serialID SerialID) error {
	return sm.sendChange(func() error {
		return sm.ctx.SendTxRemoveOutput(serialID)
	})
}

// ReceiveTxComplete drives the tx_complete-received event. From
// StateLocalChange this lands on StateRemoteTxComplete (we must still
// respond). From StateLocalTxComplete -- our own tx_complete was still
// outstanding -- this is the second consecutive completion, and the
// negotiation finalizes.
func (sm *StateMachine) ReceiveTxComplete() error {
	switch sm.state.Kind {
	case StateLocalChange:
		sm.state = State{Kind: StateRemoteTxComplete}
		return nil

	case StateLocalTxComplete:
		return sm.finalize()

	default:
		return sm.rejectUnexpected("tx_complete received out of turn")
	}
}

// SendTxComplete drives the tx_complete-sent event, mirroring
// ReceiveTxComplete for the local side.
func (sm *StateMachine) SendTxComplete() error {
	switch sm.state.Kind {
	case StateRemoteChange:
		sm.state = State{Kind: StateLocalTxComplete}
		return nil

	case StateRemoteTxComplete:
		return sm.finalize()

	default:
		return sm.rejectUnexpected("attempted to send tx_complete out of turn")
	}
}

// ReceiveTxAbort drives the tx_abort-received event. Unlike every other
// event, a tx_abort is never rejected as "out of turn" -- it terminates the
// negotiation from any non-terminal state.
func (sm *StateMachine) ReceiveTxAbort() error {
	switch sm.state.Kind {
	case StateNegotiationComplete, StateNegotiationAborted:
		return sm.rejectUnexpected("tx_abort received after negotiation already concluded")

	default:
		reason := newAbortReason(ErrCodeCounterpartyAborted,
			"counterparty sent tx_abort")
		sm.abort(reason)
		return reason
	}
}

// finalize builds the final transaction from the embedded context and
// transitions to StateNegotiationComplete, or aborts if the assembled
// transaction fails validation.
func (sm *StateMachine) finalize() error {
	tx, err := sm.ctx.buildTransaction()
	if err != nil {
		sm.abort(err)
		return err
	}

	sm.state = State{Kind: StateNegotiationComplete, Tx: tx}
	return nil
}

// rejectUnexpected aborts the negotiation with
// ErrCodeUnexpectedCounterpartyMessage and returns the resulting error. A
// negotiation already in a terminal state keeps that state (and its
// transaction or original abort reason); only the error is returned.
func (sm *StateMachine) rejectUnexpected(details string) error {
	reason := newAbortReason(ErrCodeUnexpectedCounterpartyMessage, details)
	switch sm.state.Kind {
	case StateNegotiationComplete, StateNegotiationAborted:
		return reason
	}

	sm.abort(reason)
	return reason
}

// abort transitions to StateNegotiationAborted, logging the reason.
func (sm *StateMachine) abort(reason error) {
	log.Debugf("interactive tx negotiation aborted: %v", reason)
	sm.state = State{Kind: StateNegotiationAborted, AbortReason: reason}
}
