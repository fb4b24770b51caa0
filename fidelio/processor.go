// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package fidelio

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

//go:generate mockgen -source processor.go -destination processor_mock.go -package fidelio

// Processor is an interface for a component capable of executing transactions.
// Implementations progress a world state by executing individual transactions.
// In particular, they handle the charging of gas fees, the checking of nonces,
// the transfer of value, and the classification of transactions that cannot be
// included in a block.
type Processor interface {
	// Run executes the given transaction on the given state in the context
	// described by the block parameters. The returned Outcome reports whether
	// the transaction was executed or rejected before inclusion. The error is
	// nil for every semantic outcome, including rejections; a non-nil error
	// signals an infrastructure fault in the underlying state and renders the
	// outcome undefined. Implementations must be safe for concurrent use, as
	// independent test fixtures may be processed in parallel.
	Run(BlockParameters, *SignedTransaction, WorldState) (Outcome, error)
}

// BlockParameters contains the block-level context a transaction executes in.
type BlockParameters struct {
	ChainID     uint64
	BlockNumber uint64
	Timestamp   uint64
	Coinbase    common.Address
	GasLimit    uint64
	Difficulty  *uint256.Int
	BaseFee     *uint256.Int // nil for revisions before London
	PrevRandao  common.Hash
	Revision    Revision
}

// SignedTransaction couples a transaction with its recovered sender. The
// sender is resolved once during construction so that downstream components
// do not need to repeat the signature recovery.
type SignedTransaction struct {
	Tx     *types.Transaction
	Sender common.Address
}

// Hash returns the canonical hash of the wrapped transaction.
func (t *SignedTransaction) Hash() common.Hash {
	return t.Tx.Hash()
}

// Outcome is the processor's classification of a transaction submission.
// Exactly one of the two fields is set: Executed if the transaction was
// included in the block (possibly with a reverting execution), Rejected if
// it was dropped before inclusion.
type Outcome struct {
	Executed *Receipt
	Rejected *Rejection
}

// ExecutedOutcome wraps a receipt into an Outcome.
func ExecutedOutcome(receipt *Receipt) Outcome {
	return Outcome{Executed: receipt}
}

// RejectedOutcome creates an Outcome reporting a pre-inclusion rejection.
func RejectedOutcome(label, reason string) Outcome {
	return Outcome{Rejected: &Rejection{Label: label, Reason: reason}}
}

// Receipt summarizes the result of an executed transaction.
type Receipt struct {
	Success           bool // false if the execution ended in a revert
	GasUsed           uint64
	EffectiveGasPrice *uint256.Int
	Logs              []*types.Log
}

// Fee returns the total charge of the transaction, gas used times the
// effective gas price, inclusive of any priority-fee component.
func (r *Receipt) Fee() *uint256.Int {
	return new(uint256.Int).Mul(r.EffectiveGasPrice, uint256.NewInt(r.GasUsed))
}

// Rejection describes why a transaction was dropped before inclusion.
type Rejection struct {
	Label  string // an exception label from the vocabulary in exceptions.go
	Reason string
}

func (r *Rejection) String() string {
	return r.Label + ": " + r.Reason
}
