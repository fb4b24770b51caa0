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
	"bytes"
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/Fidelio/fidelio"
	"github.com/Fantom-foundation/Fidelio/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// makeState builds a fresh working state from a fixture's pre-state. Every
// test case gets its own instance; no state is shared between cases.
func makeState(pre map[common.Address]Account) *state.State {
	st := state.New()
	for addr, acct := range pre {
		if acct.Balance != nil {
			balance, _ := uint256.FromBig((*big.Int)(acct.Balance))
			st.SetBalance(addr, balance)
		}
		if acct.Nonce != 0 {
			st.SetNonce(addr, uint64(acct.Nonce))
		}
		if len(acct.Code) > 0 {
			st.SetCode(addr, acct.Code)
		}
		for key, value := range acct.Storage {
			st.SetStorage(addr, key, value)
		}
	}
	st.EndTransaction()
	return st
}

// makeTx instantiates and signs the transaction variant selected by the
// given indexes. The legacy155 flag selects pre-EIP-155 signing for legacy
// transactions, matching fixtures whose declared raw bytes carry no chain-id
// marker. The second result is false if the variant cannot be constructed;
// such variants are valid fixture content designed to be undecodable, and
// their cases are trivially skipped.
func makeTx(template *TxTemplate, indexes Indexes, chainID uint64, legacy155 bool) (*fidelio.SignedTransaction, bool) {
	if indexes.Data < 0 || indexes.Data >= len(template.Data) {
		return nil, false
	}
	if indexes.Gas < 0 || indexes.Gas >= len(template.GasLimit) {
		return nil, false
	}
	if indexes.Value < 0 || indexes.Value >= len(template.Value) {
		return nil, false
	}

	data, err := hexutil.Decode(template.Data[indexes.Data])
	if err != nil {
		return nil, false
	}
	value, ok := math.ParseBig256(template.Value[indexes.Value])
	if !ok {
		return nil, false
	}
	gas := uint64(template.GasLimit[indexes.Gas])

	var to *common.Address
	if template.To != "" {
		if !common.IsHexAddress(template.To) {
			return nil, false
		}
		addr := common.HexToAddress(template.To)
		to = &addr
	}

	var accessList types.AccessList
	if template.AccessLists != nil && indexes.Data < len(template.AccessLists) && template.AccessLists[indexes.Data] != nil {
		accessList = *template.AccessLists[indexes.Data]
	}

	key, err := crypto.ToECDSA(template.SecretKey)
	if err != nil {
		return nil, false
	}

	var txData types.TxData
	switch {
	case template.MaxFeePerGas != nil || template.MaxPriorityFeePerGas != nil:
		txData = &types.DynamicFeeTx{
			ChainID:    new(big.Int).SetUint64(chainID),
			Nonce:      uint64(template.Nonce),
			To:         to,
			Gas:        gas,
			GasFeeCap:  bigOrZero(template.MaxFeePerGas),
			GasTipCap:  bigOrZero(template.MaxPriorityFeePerGas),
			Value:      value,
			Data:       data,
			AccessList: accessList,
		}
	case accessList != nil:
		txData = &types.AccessListTx{
			ChainID:    new(big.Int).SetUint64(chainID),
			Nonce:      uint64(template.Nonce),
			To:         to,
			Gas:        gas,
			GasPrice:   bigOrZero(template.GasPrice),
			Value:      value,
			Data:       data,
			AccessList: accessList,
		}
	default:
		txData = &types.LegacyTx{
			Nonce:    uint64(template.Nonce),
			To:       to,
			Gas:      gas,
			GasPrice: bigOrZero(template.GasPrice),
			Value:    value,
			Data:     data,
		}
	}

	var signer types.Signer
	if _, isLegacy := txData.(*types.LegacyTx); isLegacy && legacy155 {
		signer = types.HomesteadSigner{}
	} else {
		signer = types.LatestSignerForChainID(new(big.Int).SetUint64(chainID))
	}
	tx, err := types.SignNewTx(key, signer, txData)
	if err != nil {
		return nil, false
	}

	sender := crypto.PubkeyToAddress(key.PublicKey)
	if template.Sender != nil && *template.Sender != sender {
		return nil, false
	}
	return &fidelio.SignedTransaction{Tx: tx, Sender: sender}, true
}

func bigOrZero(value *math.HexOrDecimal256) *big.Int {
	if value == nil {
		return new(big.Int)
	}
	return (*big.Int)(value)
}

// checkTxBytes requires the canonical encoding of the constructed
// transaction to be byte-for-byte equal to the fixture-declared raw bytes.
// Encoding correctness is checked independently of execution correctness.
func checkTxBytes(declared []byte, tx *fidelio.SignedTransaction) error {
	if declared == nil {
		return nil
	}
	encoded, err := tx.Tx.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode transaction: %v", err)
	}
	if !bytes.Equal(declared, encoded) {
		return fmt.Errorf("declared bytes 0x%x, encoded bytes 0x%x", declared, encoded)
	}
	return nil
}

// makeBlockEnv derives the per-case execution environment from the fixture's
// environment template. The transaction hash serves as the pseudo-random seed
// when the fixture declares no random value. A missing base fee defaults to
// 10 for post-London forks, matching the fixture format's convention.
func makeBlockEnv(template *EnvTemplate, chainID uint64, txHash common.Hash, spec SpecId) fidelio.BlockParameters {
	params := fidelio.BlockParameters{
		ChainID:     chainID,
		BlockNumber: uint64(template.Number),
		Timestamp:   uint64(template.Timestamp),
		Coinbase:    template.Coinbase,
		GasLimit:    uint64(template.GasLimit),
		PrevRandao:  txHash,
		Revision:    spec,
	}
	if template.Difficulty != nil {
		params.Difficulty, _ = uint256.FromBig((*big.Int)(template.Difficulty))
	}
	if template.Random != nil {
		params.PrevRandao = common.BigToHash((*big.Int)(template.Random))
	}
	if template.BaseFee != nil {
		params.BaseFee, _ = uint256.FromBig((*big.Int)(template.BaseFee))
	} else if spec >= fidelio.R10_London {
		params.BaseFee = uint256.NewInt(10)
	}
	return params
}
