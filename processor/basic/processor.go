// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package basic

import (
	"fmt"

	"github.com/Fantom-foundation/Fidelio/fidelio"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

func init() {
	fidelio.RegisterProcessorFactory("basic", newProcessor)
}

func newProcessor() fidelio.Processor {
	return &processor{}
}

// processor is a reference implementation of the fidelio.Processor interface.
// It covers the transaction-level protocol: gas purchase, nonce handling,
// value transfers, contract-account creation, and gas refunding. It does not
// interpret contract code; calls to accounts with code transfer value and
// charge intrinsic gas only.
type processor struct{}

func (p *processor) Run(
	blockParams fidelio.BlockParameters,
	tx *fidelio.SignedTransaction,
	state fidelio.WorldState,
) (fidelio.Outcome, error) {
	price, ok := fidelio.EffectiveGasPrice(tx.Tx, blockParams.BaseFee)
	if !ok {
		return fidelio.RejectedOutcome(fidelio.ExceptionFeeCapLessThanBase,
			"transaction fee cap cannot cover the block base fee"), nil
	}

	if stateNonce := state.GetNonce(tx.Sender); tx.Tx.Nonce() != stateNonce {
		return fidelio.RejectedOutcome(fidelio.ExceptionNonceMismatch,
			fmt.Sprintf("nonce mismatch: %d != %d", tx.Tx.Nonce(), stateNonce)), nil
	}

	if len(state.GetCode(tx.Sender)) > 0 {
		return fidelio.RejectedOutcome(fidelio.ExceptionSenderNotEOA,
			"sender account carries code"), nil
	}

	gasLimit := tx.Tx.Gas()
	intrinsicGas := fidelio.IntrinsicGas(tx.Tx)
	if gasLimit < intrinsicGas {
		return fidelio.RejectedOutcome(fidelio.ExceptionIntrinsicGas,
			fmt.Sprintf("gas limit %d below intrinsic gas %d", gasLimit, intrinsicGas)), nil
	}

	upfront := new(uint256.Int).Mul(price, uint256.NewInt(gasLimit))
	balance := state.GetBalance(tx.Sender)
	if balance.Cmp(upfront) < 0 {
		return fidelio.RejectedOutcome(fidelio.ExceptionNoFunds,
			fmt.Sprintf("insufficient balance: %v < %v", balance, upfront)), nil
	}

	// The transaction is included in the block from this point on. Gas is
	// bought in full and the nonce is consumed even if the execution fails.
	state.SetBalance(tx.Sender, new(uint256.Int).Sub(balance, upfront))
	state.SetNonce(tx.Sender, tx.Tx.Nonce()+1)

	snapshot := state.CreateSnapshot()
	success := p.execute(tx, state)
	if !success {
		state.RestoreSnapshot(snapshot)
	}

	gasUsed := gasLimit
	if success {
		gasUsed = intrinsicGas
		refund := new(uint256.Int).Mul(price, uint256.NewInt(gasLimit-gasUsed))
		state.AddBalance(tx.Sender, refund)
	}

	return fidelio.ExecutedOutcome(&fidelio.Receipt{
		Success:           success,
		GasUsed:           gasUsed,
		EffectiveGasPrice: price,
		Logs:              state.GetLogs(),
	}), nil
}

func (p *processor) execute(tx *fidelio.SignedTransaction, state fidelio.WorldState) bool {
	value, overflow := uint256.FromBig(tx.Tx.Value())
	if overflow {
		return false
	}

	balance := state.GetBalance(tx.Sender)
	if balance.Cmp(value) < 0 {
		return false
	}

	if recipient := tx.Tx.To(); recipient != nil {
		state.SetBalance(tx.Sender, new(uint256.Int).Sub(balance, value))
		state.AddBalance(*recipient, value)
		return true
	}

	// Contract creation. Code is not interpreted; the init code is installed
	// as the contract code verbatim.
	created := crypto.CreateAddress(tx.Sender, tx.Tx.Nonce())
	state.SetBalance(tx.Sender, new(uint256.Int).Sub(balance, value))
	state.AddBalance(created, value)
	state.SetNonce(created, 1)
	state.SetCode(created, tx.Tx.Data())
	return true
}
