// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package statetest

import (
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
)

// extract155ChainID returns the EIP-155 chain id baked into the given raw
// transaction bytes, or nil if the bytes do not decode, or decode to an
// unprotected legacy transaction. Typed transactions always carry a chain id.
func extract155ChainID(raw []byte) *big.Int {
	if len(raw) == 0 {
		return nil
	}
	var tx types.Transaction
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil
	}
	if tx.Type() == types.LegacyTxType && !tx.Protected() {
		return nil
	}
	return tx.ChainId()
}
