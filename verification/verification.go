// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package verification

import (
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/Fidelio/fidelio"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"
)

// Error reports a failed pre-execution transaction check. The label is taken
// from the exception vocabulary in the fidelio package and can be compared
// against fixture-declared expectations.
type Error struct {
	Label  string
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Label, e.Detail)
}

func failf(label, format string, args ...any) *Error {
	return &Error{Label: label, Detail: fmt.Sprintf(format, args...)}
}

const senderCacheSize = 4096

// Config bundles the consensus-level transaction checks performed before a
// transaction is handed to a processor. All checks are independent of the
// world state. A Config is immutable after creation and safe for concurrent
// use; the embedded sender cache is internally synchronized.
type Config struct {
	senderCache *lru.Cache[common.Hash, common.Address]
}

// NewConfig creates a verification configuration with an empty sender cache.
func NewConfig() *Config {
	cache, err := lru.New[common.Hash, common.Address](senderCacheSize)
	if err != nil {
		panic(fmt.Sprintf("failed to create sender cache: %v", err))
	}
	return &Config{senderCache: cache}
}

// VerifyTransactionCommon runs all pre-execution checks of a transaction in
// the context of the given block parameters. A nil result means the
// transaction may be forwarded to a processor. A non-nil result is always a
// *verification.Error naming the violated rule.
func (c *Config) VerifyTransactionCommon(env fidelio.BlockParameters, tx *fidelio.SignedTransaction) error {
	if err := c.checkTypeSupported(env, tx.Tx); err != nil {
		return err
	}
	if err := c.checkChainID(env, tx.Tx); err != nil {
		return err
	}
	if err := c.checkSignature(env, tx); err != nil {
		return err
	}
	if gas, limit := tx.Tx.Gas(), env.GasLimit; gas > limit {
		return failf(fidelio.ExceptionGasLimitReached, "transaction gas limit %d exceeds block gas limit %d", gas, limit)
	}
	if gas, intrinsic := tx.Tx.Gas(), fidelio.IntrinsicGas(tx.Tx); gas < intrinsic {
		return failf(fidelio.ExceptionIntrinsicGas, "gas limit %d below intrinsic gas %d", gas, intrinsic)
	}
	return c.checkFeeRules(env, tx.Tx)
}

func (c *Config) checkTypeSupported(env fidelio.BlockParameters, tx *types.Transaction) error {
	var required fidelio.Revision
	switch tx.Type() {
	case types.LegacyTxType:
		return nil
	case types.AccessListTxType:
		required = fidelio.R09_Berlin
	case types.DynamicFeeTxType:
		required = fidelio.R10_London
	case types.BlobTxType:
		required = fidelio.R13_Cancun
	default:
		return failf(fidelio.ExceptionTypeNotSupported, "unknown transaction type %d", tx.Type())
	}
	if env.Revision < required {
		return failf(fidelio.ExceptionTypeNotSupported,
			"transaction type %d requires %v, block is at %v", tx.Type(), required, env.Revision)
	}
	return nil
}

func (c *Config) checkChainID(env fidelio.BlockParameters, tx *types.Transaction) error {
	if tx.Type() == types.LegacyTxType && !tx.Protected() {
		return nil
	}
	if chainID := tx.ChainId(); chainID == nil || !chainID.IsUint64() || chainID.Uint64() != env.ChainID {
		return failf(fidelio.ExceptionInvalidChainID, "transaction chain id %v, block chain id %d", tx.ChainId(), env.ChainID)
	}
	return nil
}

func (c *Config) checkSignature(env fidelio.BlockParameters, tx *fidelio.SignedTransaction) error {
	hash := tx.Tx.Hash()
	sender, found := c.senderCache.Get(hash)
	if !found {
		var signer types.Signer
		if tx.Tx.Type() == types.LegacyTxType && !tx.Tx.Protected() {
			signer = types.HomesteadSigner{}
		} else {
			signer = types.LatestSignerForChainID(new(big.Int).SetUint64(env.ChainID))
		}
		recovered, err := types.Sender(signer, tx.Tx)
		if err != nil {
			return failf(fidelio.ExceptionInvalidSignature, "failed to recover sender: %v", err)
		}
		sender = recovered
		c.senderCache.Add(hash, sender)
	}
	if sender != tx.Sender {
		return failf(fidelio.ExceptionInvalidSignature,
			"recovered sender %v does not match declared sender %v", sender, tx.Sender)
	}
	return nil
}

func (c *Config) checkFeeRules(env fidelio.BlockParameters, tx *types.Transaction) error {
	if tx.Type() < types.DynamicFeeTxType {
		return nil
	}
	feeCap, overflow := uint256.FromBig(tx.GasFeeCap())
	if overflow {
		return failf(fidelio.ExceptionFeeCapLessThanBase, "fee cap overflows")
	}
	tip, overflow := uint256.FromBig(tx.GasTipCap())
	if overflow {
		return failf(fidelio.ExceptionTipGtFeeCap, "tip overflows")
	}
	if tip.Cmp(feeCap) > 0 {
		return failf(fidelio.ExceptionTipGtFeeCap, "tip %v exceeds fee cap %v", tip, feeCap)
	}
	if env.BaseFee != nil && feeCap.Cmp(env.BaseFee) < 0 {
		return failf(fidelio.ExceptionFeeCapLessThanBase, "fee cap %v below base fee %v", feeCap, env.BaseFee)
	}
	return nil
}
