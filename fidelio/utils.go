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
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

const (
	TxGas                     = 21_000
	TxGasContractCreation     = 53_000
	TxDataNonZeroGasEIP2028   = 16
	TxDataZeroGasEIP2028      = 4
	TxAccessListAddressGas    = 2400
	TxAccessListStorageKeyGas = 1900
)

// IntrinsicGas computes the gas a transaction consumes before any code runs:
// the base cost, the cost of the call data, and the cost of the access list.
func IntrinsicGas(tx *types.Transaction) uint64 {
	var gas uint64
	if tx.To() == nil {
		gas = TxGasContractCreation
	} else {
		gas = TxGas
	}

	if data := tx.Data(); len(data) > 0 {
		nonZeroBytes := uint64(0)
		for _, b := range data {
			if b != 0 {
				nonZeroBytes++
			}
		}
		zeroBytes := uint64(len(data)) - nonZeroBytes
		gas += zeroBytes * TxDataZeroGasEIP2028
		gas += nonZeroBytes * TxDataNonZeroGasEIP2028
	}

	// No overflow check is required for the gas computation. It would only be
	// triggered with an input larger than 2^64 / 16 - 53000 bytes, which is
	// not representable on real hardware.
	for _, accessTuple := range tx.AccessList() {
		gas += TxAccessListAddressGas
		gas += uint64(len(accessTuple.StorageKeys)) * TxAccessListStorageKeyGas
	}

	return gas
}

// EffectiveGasPrice determines the per-gas-unit price actually charged for a
// transaction in a block with the given base fee. For legacy and access-list
// transactions this is the declared gas price. For dynamic-fee transactions
// it is min(tip, feeCap - baseFee) + baseFee. The boolean result is false if
// the fee cap does not cover the base fee.
func EffectiveGasPrice(tx *types.Transaction, baseFee *uint256.Int) (*uint256.Int, bool) {
	if tx.Type() < types.DynamicFeeTxType {
		price, overflow := uint256.FromBig(tx.GasPrice())
		return price, !overflow
	}

	feeCap, overflow := uint256.FromBig(tx.GasFeeCap())
	if overflow {
		return nil, false
	}
	tip, overflow := uint256.FromBig(tx.GasTipCap())
	if overflow {
		return nil, false
	}
	if baseFee == nil {
		baseFee = uint256.NewInt(0)
	}
	if feeCap.Cmp(baseFee) < 0 {
		return nil, false
	}
	priority := new(uint256.Int).Sub(feeCap, baseFee)
	if priority.Cmp(tip) > 0 {
		priority = tip
	}
	return new(uint256.Int).Add(priority, baseFee), true
}
