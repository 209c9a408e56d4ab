package interactivetx

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// p2wpkhScript builds a minimal, syntactically valid P2WPKH scriptPubKey
// for use as a contributed output or a prevtx output.
func p2wpkhScript() []byte {
	hash := make([]byte, 20)
	for i := range hash {
		hash[i] = byte(i + 1)
	}

	script, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(hash).
		Script()
	if err != nil {
		panic(err)
	}

	return script
}

// p2wshScript builds a minimal, syntactically valid P2WSH scriptPubKey.
func p2wshScript() []byte {
	hash := make([]byte, 32)
	for i := range hash {
		hash[i] = byte(i + 1)
	}

	script, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(hash).
		Script()
	if err != nil {
		panic(err)
	}

	return script
}

// nonWitnessScript builds a plain (non-segwit) P2PKH-shaped scriptPubKey.
func nonWitnessScript() []byte {
	hash := make([]byte, 20)

	script, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(hash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	if err != nil {
		panic(err)
	}

	return script
}

// makePrevTx builds a single-output transaction whose output is a
// witness-program script carrying the given value, suitable for use as the
// prevtx of a contributed input.
func makePrevTx(value int64, script []byte) *wire.MsgTx {
	tx := wire.NewMsgTx(txVersion)
	tx.AddTxOut(&wire.TxOut{Value: value, PkScript: script})

	return tx
}

// sequentialEntropy is a deterministic EntropySource that returns
// increasing 8-byte big-endian counters, useful for tests that need
// reproducible (if not realistic) serial ids.
type sequentialEntropy struct {
	next uint64
}

func (e *sequentialEntropy) GetSecureRandomBytes() ([]byte, error) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], e.next)
	e.next += 2
	return buf[:], nil
}

// fixedEntropy is an EntropySource that always returns the same bytes,
// useful for asserting parity-correction behavior deterministically.
type fixedEntropy struct {
	value uint64
}

func (e *fixedEntropy) GetSecureRandomBytes() ([]byte, error) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], e.value)
	return buf[:], nil
}

// newTestContext returns a NegotiationContext with generous defaults,
// suitable as a base for the validator-level tests.
func newTestContext(holderIsInitiator bool) *NegotiationContext {
	return NewNegotiationContext(holderIsInitiator, false, 253, 0)
}
