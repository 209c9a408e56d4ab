package interactivetx

import (
	"sort"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
)

const (
	// maxReceivedTxAddMessages is the number of tx_add_input (or
	// tx_add_output) messages a negotiation may receive from the
	// counterparty before it is failed. Remove messages do not count
	// against, or decrement, this total.
	maxReceivedTxAddMessages = 4096

	// maxInputsOutputs is the maximum number of inputs, or outputs, the
	// final assembled transaction may contain.
	maxInputsOutputs = 252

	// maxStandardTxWeight is the standard-relay weight ceiling enforced
	// on the assembled transaction.
	maxStandardTxWeight = 400_000

	// totalBitcoinSupplySats is the maximum value representable by a
	// single output, expressed in satoshis.
	totalBitcoinSupplySats = 2_100_000_000_000_000

	// nonFinalSequence is the lowest sequence value that no longer
	// signals BIP125 replace-by-fee opt-in; a contributed input's
	// sequence must be strictly below it.
	nonFinalSequence = 0xFFFFFFFE

	// txVersion is the nominal version of the assembled transaction.
	txVersion = 2

	// inputWeight is the floor weight contributed by a single input:
	// (32 prevout hash + 4 prevout index + 4 sequence) * 4.
	inputWeight = (32 + 4 + 4) * 4

	// commonFieldsWeight is the weight of the fields common to the
	// transaction as a whole that the initiator alone must cover when
	// the holder is the non-initiator: (version 4 + locktime 4 +
	// input count varint 1 + output count varint 1) * 4, plus the
	// segwit marker/flag (2).
	commonFieldsWeight = (4+4+1+1)*4 + 2

	// defaultRelayFeePerKB is the minimum relay feerate assumed when
	// computing the dust threshold for a contributed output, matching
	// the default minimum relay fee used across the Bitcoin ecosystem.
	defaultRelayFeePerKB = btcutil.Amount(1000)
)

// ContributedInput is a single input proposed to an interactive transaction
// negotiation, together with the previous output it spends -- captured at
// insertion time so later validation never needs to look the output up
// again.
type ContributedInput struct {
	// PreviousOutPoint is the outpoint being spent.
	PreviousOutPoint wire.OutPoint

	// Sequence is the sequence number to use for this input.
	Sequence uint32

	// PrevOutputValue is the value, in satoshis, of the output being
	// spent.
	PrevOutputValue btcutil.Amount

	// PrevOutputScript is the scriptPubKey of the output being spent.
	PrevOutputScript []byte
}

// ContributedOutput is a single output proposed to an interactive
// transaction negotiation.
type ContributedOutput struct {
	// Value is the value, in satoshis, of the output.
	Value btcutil.Amount

	// Script is the scriptPubKey of the output.
	Script []byte
}

// NegotiationContext is the shared book-keeping for a single interactive
// transaction negotiation: the accumulated inputs and outputs, the
// per-negotiation counters and parameters, and the validators that decide
// whether an incoming or outgoing change is admissible. NegotiationContext
// has no notion of whose turn it is; that is the state machine's job.
type NegotiationContext struct {
	// HolderIsInitiator is true if the local node opened this
	// negotiation.
	HolderIsInitiator bool

	// RequireConfirmedInputs is true if every contributed input must
	// reference a confirmed on-chain output.
	RequireConfirmedInputs bool

	// FeeRatePerKw is the agreed feerate, in satoshis per 1000 weight
	// units, used to compute each party's required fee share.
	FeeRatePerKw uint32

	// LockTime is the nLockTime of the assembled transaction.
	LockTime uint32

	inputs        map[SerialID]*ContributedInput
	outputs       map[SerialID]*ContributedOutput
	prevOutpoints map[wire.OutPoint]struct{}

	receivedTxAddInputCount  uint16
	receivedTxAddOutputCount uint16
}

// NewNegotiationContext creates a fresh, empty NegotiationContext.
func NewNegotiationContext(holderIsInitiator, requireConfirmedInputs bool,
	feeRatePerKw uint32, lockTime uint32) *NegotiationContext {

	return &NegotiationContext{
		HolderIsInitiator:      holderIsInitiator,
		RequireConfirmedInputs: requireConfirmedInputs,
		FeeRatePerKw:           feeRatePerKw,
		LockTime:               lockTime,
		inputs:                 make(map[SerialID]*ContributedInput),
		outputs:                make(map[SerialID]*ContributedOutput),
		prevOutpoints:          make(map[wire.OutPoint]struct{}),
	}
}

// counterpartyIsInitiator reports whether the counterparty is the
// initiator of this negotiation.
func (c *NegotiationContext) counterpartyIsInitiator() bool {
	return !c.HolderIsInitiator
}

// ReceiveTxAddInput validates and, on success, records an input the
// counterparty proposed to contribute.
func (c *NegotiationContext) ReceiveTxAddInput(serialID SerialID,
	sequence uint32, prevTx *wire.MsgTx, prevTxOut uint32,
	confirmed bool) error {

	if !serialID.hasRoleParity(c.counterpartyIsInitiator()) {
		return newAbortReason(ErrCodeIncorrectSerialIdParity,
			"received tx_add_input serial id has wrong parity")
	}

	if sequence >= nonFinalSequence {
		return newAbortReason(ErrCodeIncorrectInputSequenceValue,
			"sequence does not signal replaceability")
	}

	if c.RequireConfirmedInputs && !confirmed {
		return newAbortReason(ErrCodeInputsNotConfirmed,
			"negotiation requires confirmed inputs")
	}

	if int(prevTxOut) >= len(prevTx.TxOut) {
		return newAbortReason(ErrCodePrevTxOutInvalid,
			"prevtx_out is out of range")
	}
	txOut := prevTx.TxOut[prevTxOut]

	if !txscript.IsWitnessProgram(txOut.PkScript) {
		return newAbortReason(ErrCodePrevTxOutInvalid,
			"prevtx output is not a witness program")
	}

	outpoint := wire.OutPoint{Hash: prevTx.TxHash(), Index: prevTxOut}
	if _, ok := c.prevOutpoints[outpoint]; ok {
		return newAbortReason(ErrCodePrevTxOutInvalid,
			"outpoint already contributed")
	}

	c.receivedTxAddInputCount++
	if c.receivedTxAddInputCount > maxReceivedTxAddMessages {
		return newAbortReason(ErrCodeReceivedTooManyTxAddInputs,
			"too many tx_add_input messages received")
	}

	if _, ok := c.inputs[serialID]; ok {
		return newAbortReason(ErrCodeDuplicateSerialId,
			"serial id already used for an input")
	}

	c.prevOutpoints[outpoint] = struct{}{}
	c.inputs[serialID] = &ContributedInput{
		PreviousOutPoint: outpoint,
		Sequence:         sequence,
		PrevOutputValue:  btcutil.Amount(txOut.Value),
		PrevOutputScript: txOut.PkScript,
	}

	return nil
}

// ReceiveTxRemoveInput validates and, on success, withdraws a previously
// contributed input of the counterparty's.
func (c *NegotiationContext) ReceiveTxRemoveInput(serialID SerialID) error {
	if !serialID.hasRoleParity(c.counterpartyIsInitiator()) {
		return newAbortReason(ErrCodeIncorrectSerialIdParity,
			"received tx_remove_input serial id has wrong parity")
	}

	input, ok := c.inputs[serialID]
	if !ok {
		return newAbortReason(ErrCodeSerialIdUnknown,
			"no such input contributed")
	}

	delete(c.inputs, serialID)
	delete(c.prevOutpoints, input.PreviousOutPoint)

	return nil
}

// ReceiveTxAddOutput validates and, on success, records an output the
// counterparty proposed to contribute.
func (c *NegotiationContext) ReceiveTxAddOutput(serialID SerialID,
	value btcutil.Amount, script []byte) error {

	if !serialID.hasRoleParity(c.counterpartyIsInitiator()) {
		return newAbortReason(ErrCodeIncorrectSerialIdParity,
			"received tx_add_output serial id has wrong parity")
	}

	c.receivedTxAddOutputCount++
	if c.receivedTxAddOutputCount > maxReceivedTxAddMessages {
		return newAbortReason(ErrCodeReceivedTooManyTxAddOutputs,
			"too many tx_add_output messages received")
	}

	dustLimit := txrules.GetDustThreshold(len(script), defaultRelayFeePerKB)
	if value < dustLimit {
		return newAbortReason(ErrCodeExceededDustLimit,
			"output value is below the dust limit")
	}

	if value > totalBitcoinSupplySats {
		return newAbortReason(ErrCodeExceededMaximumSatsAllowed,
			"output value exceeds the total bitcoin supply")
	}

	if !isPermittedOutputScript(script) {
		return newAbortReason(ErrCodeInvalidOutputScript,
			"output script is not P2WPKH, P2WSH or P2TR")
	}

	if _, ok := c.outputs[serialID]; ok {
		return newAbortReason(ErrCodeDuplicateSerialId,
			"serial id already used for an output")
	}

	c.outputs[serialID] = &ContributedOutput{Value: value, Script: script}

	return nil
}

// ReceiveTxRemoveOutput validates and, on success, withdraws a previously
// contributed output of the counterparty's.
func (c *NegotiationContext) ReceiveTxRemoveOutput(serialID SerialID) error {
	if !serialID.hasRoleParity(c.counterpartyIsInitiator()) {
		return newAbortReason(ErrCodeIncorrectSerialIdParity,
			"received tx_remove_output serial id has wrong parity")
	}

	if _, ok := c.outputs[serialID]; !ok {
		return newAbortReason(ErrCodeSerialIdUnknown,
			"no such output contributed")
	}

	delete(c.outputs, serialID)

	return nil
}

// SendTxAddInput records an input the local node is contributing. The
// caller (the driver) is trusted to have chosen a serial id with this
// node's role parity; only the bookkeeping needed to keep the shared maps
// internally consistent is checked here.
func (c *NegotiationContext) SendTxAddInput(serialID SerialID, sequence uint32,
	prevTx *wire.MsgTx, prevTxOut uint32) error {

	if int(prevTxOut) >= len(prevTx.TxOut) {
		return newAbortReason(ErrCodePrevTxOutInvalid,
			"prevtx_out is out of range")
	}
	txOut := prevTx.TxOut[prevTxOut]

	outpoint := wire.OutPoint{Hash: prevTx.TxHash(), Index: prevTxOut}
	if _, ok := c.prevOutpoints[outpoint]; ok {
		return newAbortReason(ErrCodePrevTxOutInvalid,
			"outpoint already contributed")
	}

	if _, ok := c.inputs[serialID]; ok {
		return newAbortReason(ErrCodeDuplicateSerialId,
			"serial id already used for an input")
	}

	c.prevOutpoints[outpoint] = struct{}{}
	c.inputs[serialID] = &ContributedInput{
		PreviousOutPoint: outpoint,
		Sequence:         sequence,
		PrevOutputValue:  btcutil.Amount(txOut.Value),
		PrevOutputScript: txOut.PkScript,
	}

	return nil
}

// SendTxRemoveInput withdraws a previously contributed local input.
func (c *NegotiationContext) SendTxRemoveInput(serialID SerialID) error {
	input, ok := c.inputs[serialID]
	if !ok {
		return newAbortReason(ErrCodeSerialIdUnknown,
			"no such input contributed")
	}

	delete(c.inputs, serialID)
	delete(c.prevOutpoints, input.PreviousOutPoint)

	return nil
}

// SendTxAddOutput records an output the local node is contributing.
func (c *NegotiationContext) SendTxAddOutput(serialID SerialID,
	value btcutil.Amount, script []byte) error {

	if _, ok := c.outputs[serialID]; ok {
		return newAbortReason(ErrCodeDuplicateSerialId,
			"serial id already used for an output")
	}

	c.outputs[serialID] = &ContributedOutput{Value: value, Script: script}

	return nil
}

// SendTxRemoveOutput withdraws a previously contributed local output.
func (c *NegotiationContext) SendTxRemoveOutput(serialID SerialID) error {
	if _, ok := c.outputs[serialID]; !ok {
		return newAbortReason(ErrCodeSerialIdUnknown,
			"no such output contributed")
	}

	delete(c.outputs, serialID)

	return nil
}

// hasSerialID reports whether id is already in use by either the input or
// output map, regardless of which map a caller intends to insert into. Used
// when generating a new locally chosen serial id to decide whether to
// retry.
func (c *NegotiationContext) hasSerialID(id SerialID) bool {
	if _, ok := c.inputs[id]; ok {
		return true
	}
	_, ok := c.outputs[id]
	return ok
}

// isPermittedOutputScript reports whether script is a P2WPKH, P2WSH or P2TR
// scriptPubKey.
func isPermittedOutputScript(script []byte) bool {
	switch txscript.GetScriptClass(script) {
	case txscript.WitnessV0PubKeyHashTy, txscript.WitnessV0ScriptHashTy,
		txscript.WitnessV1TaprootTy:
		return true
	default:
		return false
	}
}

// sortedInputSerialIDs returns the serial ids of the contributed inputs in
// ascending order, giving buildTransaction a deterministic iteration order.
func (c *NegotiationContext) sortedInputSerialIDs() []SerialID {
	ids := make([]SerialID, 0, len(c.inputs))
	for id := range c.inputs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// sortedOutputSerialIDs returns the serial ids of the contributed outputs
// in ascending order, giving buildTransaction a deterministic iteration
// order.
func (c *NegotiationContext) sortedOutputSerialIDs() []SerialID {
	ids := make([]SerialID, 0, len(c.outputs))
	for id := range c.outputs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// buildTransaction assembles the final transaction from the accumulated
// inputs and outputs and validates it against the rules in this package's
// documentation: balance, cardinality, weight, and fee share. The context
// is logically consumed by this call; it must not be used for further
// negotiation afterwards.
func (c *NegotiationContext) buildTransaction() (*wire.MsgTx, error) {
	counterpartyIsInitiator := c.counterpartyIsInitiator()

	var (
		counterpartyInputValue  btcutil.Amount
		counterpartyOutputValue btcutil.Amount
		counterpartyInputCount  int64
		counterpartyOutputWeight int64
	)

	tx := wire.NewMsgTx(txVersion)
	tx.LockTime = c.LockTime

	for _, id := range c.sortedInputSerialIDs() {
		input := c.inputs[id]
		tx.AddTxIn(&wire.TxIn{
			PreviousOutPoint: input.PreviousOutPoint,
			Sequence:         input.Sequence,
		})

		if id.hasRoleParity(counterpartyIsInitiator) {
			counterpartyInputValue += input.PrevOutputValue
			counterpartyInputCount++
		}
	}

	for _, id := range c.sortedOutputSerialIDs() {
		output := c.outputs[id]
		tx.AddTxOut(&wire.TxOut{
			Value:    int64(output.Value),
			PkScript: output.Script,
		})

		if id.hasRoleParity(counterpartyIsInitiator) {
			counterpartyOutputValue += output.Value
			counterpartyOutputWeight += (8 + int64(len(output.Script))) * 4
		}
	}

	if counterpartyInputValue < counterpartyOutputValue {
		return nil, newAbortReason(ErrCodeOutputsExceedInputs,
			"counterparty's outputs exceed its inputs")
	}

	if len(tx.TxIn) > maxInputsOutputs || len(tx.TxOut) > maxInputsOutputs {
		return nil, newAbortReason(ErrCodeExceededNumberOfInputsOrOutputs,
			"too many inputs or outputs")
	}

	weight := blockchain.GetTransactionWeight(btcutil.NewTx(tx))
	if weight > maxStandardTxWeight {
		return nil, newAbortReason(ErrCodeTransactionTooLarge,
			"assembled transaction exceeds the standard weight limit")
	}

	counterpartyWeight := counterpartyInputCount*inputWeight + counterpartyOutputWeight

	requiredFee := btcutil.Amount(int64(c.FeeRatePerKw) * counterpartyWeight / 1000)
	if !c.HolderIsInitiator {
		requiredFee += btcutil.Amount(int64(c.FeeRatePerKw) * commonFieldsWeight / 1000)
	}

	actualFee := counterpartyInputValue - counterpartyOutputValue
	if actualFee < 0 {
		actualFee = 0
	}

	if actualFee < requiredFee {
		return nil, newAbortReason(ErrCodeInsufficientFees,
			"counterparty's contribution does not cover its fee share")
	}

	return tx, nil
}
