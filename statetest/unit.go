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
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
)

// TestUnit is one self-contained conformance test fixture: a pre-execution
// state, a parameterized transaction template, a block environment template,
// a chain configuration, and per-fork lists of expected results. Instances
// are immutable once loaded; field tags follow the ethereum/tests state-test
// fixture format.
type TestUnit struct {
	Env         EnvTemplate                `json:"env"`
	Pre         map[common.Address]Account `json:"pre"`
	Transaction TxTemplate                 `json:"transaction"`
	Config      ChainConfig                `json:"config"`
	Post        map[SpecName][]Test        `json:"post"`
}

// Test is one concrete test vector of a fixture: the indexes selecting a
// template variant, the raw bytes the constructed transaction is expected to
// encode to, the exception the case is designed to trigger, and the expected
// post-state.
type Test struct {
	Indexes         Indexes                    `json:"indexes"`
	TxBytes         hexutil.Bytes              `json:"txbytes,omitempty"`
	ExpectException string                     `json:"expectException,omitempty"`
	Root            common.Hash                `json:"hash"`
	Logs            common.Hash                `json:"logs"`
	State           map[common.Address]Account `json:"postState,omitempty"`
}

// Indexes select one concrete variant from the transaction template's
// data, gas-limit, and value lists.
type Indexes struct {
	Data  int `json:"data"`
	Gas   int `json:"gas"`
	Value int `json:"value"`
}

// Account describes an account in a fixture's pre-state or in an explicit
// post-state expectation.
type Account struct {
	Balance *math.HexOrDecimal256       `json:"balance"`
	Nonce   math.HexOrDecimal64         `json:"nonce"`
	Code    hexutil.Bytes               `json:"code"`
	Storage map[common.Hash]common.Hash `json:"storage"`
}

// EnvTemplate is the fixture's block environment description.
type EnvTemplate struct {
	Coinbase   common.Address        `json:"currentCoinbase"`
	Difficulty *math.HexOrDecimal256 `json:"currentDifficulty"`
	Random     *math.HexOrDecimal256 `json:"currentRandom"`
	GasLimit   math.HexOrDecimal64   `json:"currentGasLimit"`
	Number     math.HexOrDecimal64   `json:"currentNumber"`
	Timestamp  math.HexOrDecimal64   `json:"currentTimestamp"`
	BaseFee    *math.HexOrDecimal256 `json:"currentBaseFee"`
}

// TxTemplate is a parameterized transaction supporting multiple indexed
// variants of call data, gas limit, and value. Data and value entries are
// kept as strings; variants that fail to parse are valid fixture content
// and mark their test cases as unconstructible.
type TxTemplate struct {
	GasPrice             *math.HexOrDecimal256 `json:"gasPrice"`
	MaxFeePerGas         *math.HexOrDecimal256 `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *math.HexOrDecimal256 `json:"maxPriorityFeePerGas"`
	Nonce                math.HexOrDecimal64   `json:"nonce"`
	To                   string                `json:"to"`
	Data                 []string              `json:"data"`
	AccessLists          []*types.AccessList   `json:"accessLists,omitempty"`
	GasLimit             []math.HexOrDecimal64 `json:"gasLimit"`
	Value                []string              `json:"value"`
	SecretKey            hexutil.Bytes         `json:"secretKey"`
	Sender               *common.Address       `json:"sender,omitempty"`
}

// ChainConfig carries the chain parameters a fixture is defined for.
type ChainConfig struct {
	ChainID uint64 `json:"chainid"`
}

// EffectiveChainID returns the configured chain id, defaulting to 1 for
// fixtures that do not configure one.
func (c ChainConfig) EffectiveChainID() uint64 {
	if c.ChainID == 0 {
		return 1
	}
	return c.ChainID
}
