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

// Exception labels identifying the reason a transaction failed pre-execution
// validation or was rejected before inclusion. The vocabulary follows the
// labels used by the ethereum/tests fixture suites, so that fixture-declared
// expectations can be compared against actual failures without translation.
const (
	ExceptionTypeNotSupported   = "TR_TypeNotSupported"
	ExceptionIntrinsicGas       = "TR_IntrinsicGas"
	ExceptionGasLimitReached    = "TR_GasLimitReached"
	ExceptionFeeCapLessThanBase = "TR_FeeCapLessThanBlocks"
	ExceptionTipGtFeeCap        = "TR_TipGtFeeCap"
	ExceptionNoFunds            = "TR_NoFunds"
	ExceptionNonceMismatch      = "TR_NonceMismatch"
	ExceptionInvalidChainID     = "TR_InvalidChainId"
	ExceptionInvalidSignature   = "TR_InvalidSignature"
	ExceptionSenderNotEOA       = "SenderNotEOA"
	ExceptionInitCodeSizeLimit  = "TR_InitCodeLimitExceeded"
)
