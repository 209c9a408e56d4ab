package interactivetx

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/stretchr/testify/require"
)

// TestReceiveTxAddInputHappyPath mirrors scenario 1 from the negotiation's
// test plan at the validator level: a well formed input from the
// counterparty is accepted and recorded.
func TestReceiveTxAddInputHappyPath(t *testing.T) {
	ctx := newTestContext(false)

	prevTx := makePrevTx(50_000, p2wpkhScript())

	err := ctx.ReceiveTxAddInput(2, 1, prevTx, 0, false)
	require.NoError(t, err)
	require.Len(t, ctx.inputs, 1)

	input := ctx.inputs[2]
	require.Equal(t, btcutil.Amount(50_000), input.PrevOutputValue)

	outpoint := wire.OutPoint{Hash: prevTx.TxHash(), Index: 0}
	_, ok := ctx.prevOutpoints[outpoint]
	require.True(t, ok)
}

// TestReceiveTxAddInputParityViolation mirrors scenario 2: the holder is
// the non-initiator, so incoming (counterparty/initiator) ids must be even.
// An odd id is rejected.
func TestReceiveTxAddInputParityViolation(t *testing.T) {
	ctx := newTestContext(false)

	prevTx := makePrevTx(50_000, p2wpkhScript())

	err := ctx.ReceiveTxAddInput(3, 1, prevTx, 0, false)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrIncorrectSerialIdParity)
	require.Empty(t, ctx.inputs)
}

// TestReceiveTxAddInputDuplicateOutpoint mirrors scenario 3: two inputs
// referencing the same previous outpoint under different serial ids. The
// second is rejected.
func TestReceiveTxAddInputDuplicateOutpoint(t *testing.T) {
	ctx := newTestContext(false)
	prevTx := makePrevTx(50_000, p2wpkhScript())

	require.NoError(t, ctx.ReceiveTxAddInput(2, 1, prevTx, 0, false))

	err := ctx.ReceiveTxAddInput(4, 1, prevTx, 0, false)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrPrevTxOutInvalid)
	require.Len(t, ctx.inputs, 1)
}

// TestReceiveTxAddInputSequenceRejection mirrors scenario 5: a sequence of
// 0xFFFFFFFE does not signal replaceability and is rejected.
func TestReceiveTxAddInputSequenceRejection(t *testing.T) {
	ctx := newTestContext(false)
	prevTx := makePrevTx(50_000, p2wpkhScript())

	err := ctx.ReceiveTxAddInput(2, 0xFFFFFFFE, prevTx, 0, false)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrIncorrectInputSequenceValue)
}

// TestReceiveTxAddInputNonWitnessProgram rejects a prevtx output whose
// script is not a witness program.
func TestReceiveTxAddInputNonWitnessProgram(t *testing.T) {
	ctx := newTestContext(false)
	prevTx := makePrevTx(50_000, nonWitnessScript())

	err := ctx.ReceiveTxAddInput(2, 1, prevTx, 0, false)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrPrevTxOutInvalid)
}

// TestReceiveTxAddInputOutOfRangeOutput rejects a prevtx_out index beyond
// the referenced transaction's outputs.
func TestReceiveTxAddInputOutOfRangeOutput(t *testing.T) {
	ctx := newTestContext(false)
	prevTx := makePrevTx(50_000, p2wpkhScript())

	err := ctx.ReceiveTxAddInput(2, 1, prevTx, 5, false)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrPrevTxOutInvalid)
}

// TestReceiveTxAddInputRequiresConfirmed rejects an input referencing an
// unconfirmed output when the negotiation requires confirmed inputs.
func TestReceiveTxAddInputRequiresConfirmed(t *testing.T) {
	ctx := NewNegotiationContext(false, true, 253, 0)
	prevTx := makePrevTx(50_000, p2wpkhScript())

	err := ctx.ReceiveTxAddInput(2, 1, prevTx, 0, false)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInputsNotConfirmed)

	err = ctx.ReceiveTxAddInput(2, 1, prevTx, 0, true)
	require.NoError(t, err)
}

// TestReceiveTxAddInputDuplicateSerialID rejects a second input reusing a
// serial id already in use, even against a different prevtx.
func TestReceiveTxAddInputDuplicateSerialID(t *testing.T) {
	ctx := newTestContext(false)
	prevTxA := makePrevTx(50_000, p2wpkhScript())
	prevTxB := makePrevTx(60_000, p2wshScript())

	require.NoError(t, ctx.ReceiveTxAddInput(2, 1, prevTxA, 0, false))

	err := ctx.ReceiveTxAddInput(2, 1, prevTxB, 0, false)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrDuplicateSerialId)
}

// TestReceiveTxAddInputTooMany rejects the 4097th tx_add_input received.
func TestReceiveTxAddInputTooMany(t *testing.T) {
	ctx := newTestContext(false)

	var lastErr error
	for i := 0; i < maxReceivedTxAddMessages+1; i++ {
		prevTx := makePrevTx(int64(1_000+i), p2wpkhScript())
		lastErr = ctx.ReceiveTxAddInput(SerialID(i*2), 1, prevTx, 0, false)
	}

	require.Error(t, lastErr)
	require.ErrorIs(t, lastErr, ErrReceivedTooManyTxAddInputs)
}

// TestReceiveTxRemoveInput exercises removal, including the counter
// idempotence law: removing an input does not decrement the received
// counter.
func TestReceiveTxRemoveInput(t *testing.T) {
	ctx := newTestContext(false)
	prevTx := makePrevTx(50_000, p2wpkhScript())

	require.NoError(t, ctx.ReceiveTxAddInput(2, 1, prevTx, 0, false))
	require.EqualValues(t, 1, ctx.receivedTxAddInputCount)

	require.NoError(t, ctx.ReceiveTxRemoveInput(2))
	require.Empty(t, ctx.inputs)
	require.Empty(t, ctx.prevOutpoints)
	require.EqualValues(t, 1, ctx.receivedTxAddInputCount)

	err := ctx.ReceiveTxRemoveInput(2)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrSerialIdUnknown)
}

// TestReceiveTxAddOutputDustRejection mirrors scenario 4: a P2WPKH output
// below the dust limit is rejected.
func TestReceiveTxAddOutputDustRejection(t *testing.T) {
	ctx := newTestContext(false)
	script := p2wpkhScript()

	dustLimit := txrules.GetDustThreshold(len(script), defaultRelayFeePerKB)
	require.Greater(t, dustLimit, btcutil.Amount(0))

	err := ctx.ReceiveTxAddOutput(2, dustLimit-1, script)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrExceededDustLimit)

	err = ctx.ReceiveTxAddOutput(2, dustLimit, script)
	require.NoError(t, err)
}

// TestReceiveTxAddOutputExceedsSupply rejects an output whose value exceeds
// the total bitcoin supply.
func TestReceiveTxAddOutputExceedsSupply(t *testing.T) {
	ctx := newTestContext(false)

	err := ctx.ReceiveTxAddOutput(2, totalBitcoinSupplySats+1, p2wpkhScript())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrExceededMaximumSatsAllowed)
}

// TestReceiveTxAddOutputInvalidScript rejects an output whose script is not
// one of the permitted witness kinds.
func TestReceiveTxAddOutputInvalidScript(t *testing.T) {
	ctx := newTestContext(false)

	err := ctx.ReceiveTxAddOutput(2, 100_000, nonWitnessScript())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidOutputScript)
}

// TestReceiveTxAddOutputAcceptsPermittedScripts confirms P2WPKH and P2WSH
// are accepted and a non-witness script is not. P2TR is not exercised here.
func TestReceiveTxAddOutputAcceptsPermittedScripts(t *testing.T) {
	require.True(t, isPermittedOutputScript(p2wpkhScript()))
	require.True(t, isPermittedOutputScript(p2wshScript()))
	require.False(t, isPermittedOutputScript(nonWitnessScript()))

	class := txscript.GetScriptClass(p2wpkhScript())
	require.Equal(t, txscript.WitnessV0PubKeyHashTy, class)
}

// TestReceiveTxRemoveOutput exercises removal, mirroring the counter
// idempotence law for outputs.
func TestReceiveTxRemoveOutput(t *testing.T) {
	ctx := newTestContext(false)
	script := p2wpkhScript()
	dustLimit := txrules.GetDustThreshold(len(script), defaultRelayFeePerKB)

	require.NoError(t, ctx.ReceiveTxAddOutput(2, dustLimit, script))
	require.EqualValues(t, 1, ctx.receivedTxAddOutputCount)

	require.NoError(t, ctx.ReceiveTxRemoveOutput(2))
	require.Empty(t, ctx.outputs)
	require.EqualValues(t, 1, ctx.receivedTxAddOutputCount)
}

// TestBuildTransactionMinimumHappyPath mirrors scenario 1 at the build
// step: one initiator input, no outputs, from a non-initiator holder's
// point of view. The counterparty's only input covers zero outputs, so the
// balance and fee checks both trivially pass.
func TestBuildTransactionMinimumHappyPath(t *testing.T) {
	ctx := newTestContext(false)
	prevTx := makePrevTx(50_000, p2wpkhScript())

	require.NoError(t, ctx.ReceiveTxAddInput(2, 1, prevTx, 0, false))

	tx, err := ctx.buildTransaction()
	require.NoError(t, err)
	require.Len(t, tx.TxIn, 1)
	require.Empty(t, tx.TxOut)
	require.EqualValues(t, txVersion, tx.Version)
}

// TestBuildTransactionInsufficientFees exercises the fee-share check: a
// counterparty contributing an input and an output that leaves no room for
// its required fee is rejected.
func TestBuildTransactionInsufficientFees(t *testing.T) {
	ctx := NewNegotiationContext(false, false, 100_000, 0)
	script := p2wpkhScript()
	prevTx := makePrevTx(1_000, script)

	require.NoError(t, ctx.ReceiveTxAddInput(2, 1, prevTx, 0, false))
	require.NoError(t, ctx.ReceiveTxAddOutput(4, 999, script))

	_, err := ctx.buildTransaction()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInsufficientFees)
}

// TestBuildTransactionOutputsExceedInputs exercises the balance check in
// isolation from the fee-share check by using a zero feerate.
func TestBuildTransactionOutputsExceedInputs(t *testing.T) {
	ctx := NewNegotiationContext(false, false, 0, 0)
	script := p2wpkhScript()
	prevTx := makePrevTx(1_000, script)

	require.NoError(t, ctx.ReceiveTxAddInput(2, 1, prevTx, 0, false))
	require.NoError(t, ctx.ReceiveTxAddOutput(4, 1_000, script))
	require.NoError(t, ctx.ReceiveTxAddOutput(6, 500, script))

	_, err := ctx.buildTransaction()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrOutputsExceedInputs)
}

// TestBuildTransactionCardinality exercises the input/output count ceiling.
func TestBuildTransactionCardinality(t *testing.T) {
	ctx := NewNegotiationContext(true, false, 0, 0)
	script := p2wpkhScript()

	for i := 0; i < maxInputsOutputs+1; i++ {
		prevTx := makePrevTx(int64(100_000+i), script)
		require.NoError(t, ctx.ReceiveTxAddInput(SerialID(i*2+1), 1, prevTx, 0, false))
	}

	_, err := ctx.buildTransaction()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrExceededNumberOfInputsOrOutputs)
}

// TestOutpointInvariant asserts that prevtx_outpoints always equals the set
// of outpoints of the currently contributed inputs, across add and remove.
func TestOutpointInvariant(t *testing.T) {
	ctx := newTestContext(false)
	prevTxA := makePrevTx(10_000, p2wpkhScript())
	prevTxB := makePrevTx(20_000, p2wshScript())

	require.NoError(t, ctx.ReceiveTxAddInput(2, 1, prevTxA, 0, false))
	require.NoError(t, ctx.ReceiveTxAddInput(4, 1, prevTxB, 0, false))
	assertOutpointInvariant(t, ctx)

	require.NoError(t, ctx.ReceiveTxRemoveInput(2))
	assertOutpointInvariant(t, ctx)
}

func assertOutpointInvariant(t *testing.T, ctx *NegotiationContext) {
	t.Helper()

	expected := make(map[wire.OutPoint]struct{}, len(ctx.inputs))
	for _, input := range ctx.inputs {
		expected[input.PreviousOutPoint] = struct{}{}
	}

	require.Equal(t, expected, ctx.prevOutpoints)
}
