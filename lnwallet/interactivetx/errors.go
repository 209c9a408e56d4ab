package interactivetx

import "fmt"

// AbortCode identifies the specific rule an interactive transaction
// negotiation violated. Every AbortCode is terminal: once a negotiation
// produces one, it cannot be continued.
type AbortCode uint8

const (
	// ErrCodeCounterpartyAborted indicates the counterparty sent a
	// tx_abort message.
	ErrCodeCounterpartyAborted AbortCode = iota

	// ErrCodeUnexpectedCounterpartyMessage indicates a message arrived
	// while the state machine was not in a state that permits it, i.e. a
	// turn-taking violation.
	ErrCodeUnexpectedCounterpartyMessage

	// ErrCodeReceivedTooManyTxAddInputs indicates more than 4096
	// tx_add_input messages were received during this negotiation.
	ErrCodeReceivedTooManyTxAddInputs

	// ErrCodeReceivedTooManyTxAddOutputs indicates more than 4096
	// tx_add_output messages were received during this negotiation.
	ErrCodeReceivedTooManyTxAddOutputs

	// ErrCodeIncorrectInputSequenceValue indicates a contributed input's
	// sequence number did not signal BIP125 replaceability.
	ErrCodeIncorrectInputSequenceValue

	// ErrCodeIncorrectSerialIdParity indicates a serial id's parity did
	// not match the role of whoever was supposed to have chosen it.
	ErrCodeIncorrectSerialIdParity

	// ErrCodeSerialIdUnknown indicates a tx_remove_* message referenced a
	// serial id that is not currently contributed.
	ErrCodeSerialIdUnknown

	// ErrCodeDuplicateSerialId indicates a tx_add_* message reused a
	// serial id already present in the same map (inputs or outputs).
	ErrCodeDuplicateSerialId

	// ErrCodePrevTxOutInvalid indicates a referenced previous output was
	// missing, not a witness program, or already contributed by another
	// input.
	ErrCodePrevTxOutInvalid

	// ErrCodeExceededMaximumSatsAllowed indicates a contributed output's
	// value exceeded the total bitcoin supply.
	ErrCodeExceededMaximumSatsAllowed

	// ErrCodeExceededNumberOfInputsOrOutputs indicates the assembled
	// transaction has more than 252 inputs or outputs.
	ErrCodeExceededNumberOfInputsOrOutputs

	// ErrCodeTransactionTooLarge indicates the assembled transaction's
	// weight exceeds maxStandardTxWeight.
	ErrCodeTransactionTooLarge

	// ErrCodeExceededDustLimit indicates a contributed output's value is
	// below the dust threshold for its script.
	ErrCodeExceededDustLimit

	// ErrCodeInvalidOutputScript indicates a contributed output's script
	// is not one of the permitted witness script kinds.
	ErrCodeInvalidOutputScript

	// ErrCodeInsufficientFees indicates the counterparty's contribution
	// does not cover its required fee share.
	ErrCodeInsufficientFees

	// ErrCodeOutputsExceedInputs indicates the counterparty's contributed
	// output value exceeds its contributed input value.
	ErrCodeOutputsExceedInputs

	// ErrCodeInputsNotConfirmed indicates a contributed input's previous
	// output is required to be confirmed on-chain, but was not.
	ErrCodeInputsNotConfirmed
)

// String returns a human readable name for the abort code.
func (c AbortCode) String() string {
	switch c {
	case ErrCodeCounterpartyAborted:
		return "CounterpartyAborted"
	case ErrCodeUnexpectedCounterpartyMessage:
		return "UnexpectedCounterpartyMessage"
	case ErrCodeReceivedTooManyTxAddInputs:
		return "ReceivedTooManyTxAddInputs"
	case ErrCodeReceivedTooManyTxAddOutputs:
		return "ReceivedTooManyTxAddOutputs"
	case ErrCodeIncorrectInputSequenceValue:
		return "IncorrectInputSequenceValue"
	case ErrCodeIncorrectSerialIdParity:
		return "IncorrectSerialIdParity"
	case ErrCodeSerialIdUnknown:
		return "SerialIdUnknown"
	case ErrCodeDuplicateSerialId:
		return "DuplicateSerialId"
	case ErrCodePrevTxOutInvalid:
		return "PrevTxOutInvalid"
	case ErrCodeExceededMaximumSatsAllowed:
		return "ExceededMaximumSatsAllowed"
	case ErrCodeExceededNumberOfInputsOrOutputs:
		return "ExceededNumberOfInputsOrOutputs"
	case ErrCodeTransactionTooLarge:
		return "TransactionTooLarge"
	case ErrCodeExceededDustLimit:
		return "ExceededDustLimit"
	case ErrCodeInvalidOutputScript:
		return "InvalidOutputScript"
	case ErrCodeInsufficientFees:
		return "InsufficientFees"
	case ErrCodeOutputsExceedInputs:
		return "OutputsExceedInputs"
	case ErrCodeInputsNotConfirmed:
		return "InputsNotConfirmed"
	default:
		return "UnknownAbortCode"
	}
}

// AbortReason is a typed error describing why an interactive transaction
// negotiation was aborted. Callers should compare Code (or use errors.Is
// against the exported sentinel values below) rather than matching on the
// error string.
type AbortReason struct {
	Code AbortCode

	// Details carries additional, non-negotiable context for logging; it
	// never changes the identity of the error for comparison purposes.
	Details string
}

// Error returns a human readable string describing the abort reason. This
// is part of the error interface.
func (a *AbortReason) Error() string {
	if a.Details == "" {
		return fmt.Sprintf("interactive tx negotiation aborted: %v", a.Code)
	}

	return fmt.Sprintf("interactive tx negotiation aborted: %v: %v",
		a.Code, a.Details)
}

// Is allows errors.Is(err, ErrXXX) to match on Code alone, ignoring
// Details.
func (a *AbortReason) Is(target error) bool {
	other, ok := target.(*AbortReason)
	if !ok {
		return false
	}

	return a.Code == other.Code
}

// A compile time check to ensure AbortReason implements the error
// interface.
var _ error = (*AbortReason)(nil)

func newAbortReason(code AbortCode, details string) *AbortReason {
	return &AbortReason{Code: code, Details: details}
}

// Sentinel AbortReason values, one per AbortCode, for use with errors.Is.
var (
	ErrCounterpartyAborted             = &AbortReason{Code: ErrCodeCounterpartyAborted}
	ErrUnexpectedCounterpartyMessage   = &AbortReason{Code: ErrCodeUnexpectedCounterpartyMessage}
	ErrReceivedTooManyTxAddInputs      = &AbortReason{Code: ErrCodeReceivedTooManyTxAddInputs}
	ErrReceivedTooManyTxAddOutputs     = &AbortReason{Code: ErrCodeReceivedTooManyTxAddOutputs}
	ErrIncorrectInputSequenceValue     = &AbortReason{Code: ErrCodeIncorrectInputSequenceValue}
	ErrIncorrectSerialIdParity         = &AbortReason{Code: ErrCodeIncorrectSerialIdParity}
	ErrSerialIdUnknown                 = &AbortReason{Code: ErrCodeSerialIdUnknown}
	ErrDuplicateSerialId               = &AbortReason{Code: ErrCodeDuplicateSerialId}
	ErrPrevTxOutInvalid                = &AbortReason{Code: ErrCodePrevTxOutInvalid}
	ErrExceededMaximumSatsAllowed      = &AbortReason{Code: ErrCodeExceededMaximumSatsAllowed}
	ErrExceededNumberOfInputsOrOutputs = &AbortReason{Code: ErrCodeExceededNumberOfInputsOrOutputs}
	ErrTransactionTooLarge             = &AbortReason{Code: ErrCodeTransactionTooLarge}
	ErrExceededDustLimit               = &AbortReason{Code: ErrCodeExceededDustLimit}
	ErrInvalidOutputScript             = &AbortReason{Code: ErrCodeInvalidOutputScript}
	ErrInsufficientFees                = &AbortReason{Code: ErrCodeInsufficientFees}
	ErrOutputsExceedInputs             = &AbortReason{Code: ErrCodeOutputsExceedInputs}
	ErrInputsNotConfirmed              = &AbortReason{Code: ErrCodeInputsNotConfirmed}
)
