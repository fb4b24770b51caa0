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
	"strings"
	"testing"

	"github.com/Fantom-foundation/Fidelio/fidelio"
	"github.com/Fantom-foundation/Fidelio/state"
	"github.com/Fantom-foundation/Fidelio/verification"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

func TestMatchAnyFailure_AcceptsEveryLabelWhenExceptionDeclared(t *testing.T) {
	if !MatchAnyFailure("TR_IntrinsicGas", fidelio.ExceptionNoFunds) {
		t.Errorf("any failure must satisfy a declared exception")
	}
	if !MatchAnyFailure("TR_IntrinsicGas", "") {
		t.Errorf("an unlabelled failure must satisfy a declared exception")
	}
	if MatchAnyFailure("", fidelio.ExceptionNoFunds) {
		t.Errorf("no failure is acceptable without a declared exception")
	}
}

func TestMatchLabels(t *testing.T) {
	tests := map[string]struct {
		expected string
		actual   string
		want     bool
	}{
		"ExactMatch":       {"TR_IntrinsicGas", "TR_IntrinsicGas", true},
		"DifferentLabel":   {"TR_IntrinsicGas", "TR_NoFunds", false},
		"FirstAlternative": {"TR_NoFunds|TR_IntrinsicGas", "TR_NoFunds", true},
		"LastAlternative":  {"TR_NoFunds|TR_IntrinsicGas", "TR_IntrinsicGas", true},
		"NoAlternative":    {"TR_NoFunds|TR_IntrinsicGas", "TR_NonceMismatch", false},
		"PaddedLabels":     {"TR_NoFunds | TR_IntrinsicGas", "TR_IntrinsicGas", true},
		"EmptyActual":      {"TR_NoFunds", "", false},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if got := MatchLabels(test.expected, test.actual); got != test.want {
				t.Errorf("MatchLabels(%q, %q): want %t, got %t", test.expected, test.actual, test.want, got)
			}
		})
	}
}

func TestProcessConsensusCheckFail(t *testing.T) {
	violation := &verification.Error{Label: fidelio.ExceptionIntrinsicGas, Detail: "too little gas"}

	if err := processConsensusCheckFail(violation, "TR_IntrinsicGas", MatchLabels); err != nil {
		t.Errorf("expected failure must be reconciled, got %v", err)
	}
	if err := processConsensusCheckFail(violation, "", MatchLabels); err == nil {
		t.Errorf("an undeclared failure must be reported")
	}
	if err := processConsensusCheckFail(violation, "TR_NoFunds", MatchLabels); err == nil {
		t.Errorf("a mismatching label must be reported")
	}
	if err := processConsensusCheckFail(violation, "TR_NoFunds", MatchAnyFailure); err != nil {
		t.Errorf("the permissive matcher must accept any declared exception, got %v", err)
	}
}

func TestExtractExecuted_DecisionTable(t *testing.T) {
	receipt := &fidelio.Receipt{Success: true, GasUsed: 21_000}
	executed := fidelio.ExecutedOutcome(receipt)
	rejected := fidelio.RejectedOutcome(fidelio.ExceptionNoFunds, "balance too low")

	tests := map[string]struct {
		outcome     fidelio.Outcome
		expect      string
		wantReceipt bool
		wantErr     bool
	}{
		"ExecutedWithoutExpectation":  {executed, "", true, false},
		"ExecutedDespiteExpectation":  {executed, "TR_NoFunds", false, true},
		"RejectedAsExpected":          {rejected, "TR_NoFunds", false, false},
		"RejectedWithoutExpectation":  {rejected, "", false, true},
		"RejectedWithMismatchedLabel": {rejected, "TR_IntrinsicGas", false, true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := extractExecuted(test.outcome, test.expect, MatchLabels)
			if test.wantErr != (err != nil) {
				t.Fatalf("unexpected error state, want error %t, got %v", test.wantErr, err)
			}
			if test.wantReceipt != (got != nil) {
				t.Errorf("unexpected receipt, want one %t, got %v", test.wantReceipt, got)
			}
		})
	}
}

func TestDistributeTxFeeToMiner_CreditsFullCharge(t *testing.T) {
	coinbase := common.Address{0xc0}
	st := state.New()
	st.SetBalance(coinbase, uint256.NewInt(5))
	receipt := &fidelio.Receipt{
		GasUsed:           21_000,
		EffectiveGasPrice: uint256.NewInt(10),
	}
	distributeTxFeeToMiner(st, receipt, coinbase)
	if want, got := uint256.NewInt(210_005), st.GetBalance(coinbase); want.Cmp(got) != 0 {
		t.Errorf("unexpected coinbase balance, want %v, got %v", want, got)
	}
}

func TestCheckExecutionOutcome_AcceptsMatchingState(t *testing.T) {
	addr := common.Address{1}
	st := state.New()
	st.SetBalance(addr, uint256.NewInt(1000))
	st.SetNonce(addr, 1)

	test := &Test{
		Root: st.StateRoot(),
		State: map[common.Address]Account{
			addr: {Balance: (*math.HexOrDecimal256)(big.NewInt(1000)), Nonce: 1},
		},
	}
	if err := checkExecutionOutcome(st, test); err != nil {
		t.Errorf("matching state must pass, got %v", err)
	}
}

func TestCheckExecutionOutcome_ReportsEveryDeviation(t *testing.T) {
	addr := common.Address{1}
	st := state.New()
	st.SetBalance(addr, uint256.NewInt(999))
	st.SetNonce(addr, 2)
	st.SetStorage(addr, common.Hash{1}, common.Hash{9})

	test := &Test{
		State: map[common.Address]Account{
			addr: {
				Balance: (*math.HexOrDecimal256)(big.NewInt(1000)),
				Nonce:   1,
				Storage: map[common.Hash]common.Hash{{1}: {2}},
			},
		},
	}
	err := checkExecutionOutcome(st, test)
	if err == nil {
		t.Fatalf("deviating state must be reported")
	}
	for _, fragment := range []string{"balance", "nonce", "key"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("expected issue about %s in %v", fragment, err)
		}
	}
}

func TestCheckExecutionOutcome_ChecksRootAndLogsOnlyWhenDeclared(t *testing.T) {
	st := state.New()
	st.EmitLog(&types.Log{Address: common.Address{1}})

	// A fixture with zero hashes declares no root and no logs expectations.
	if err := checkExecutionOutcome(st, &Test{}); err != nil {
		t.Errorf("undeclared hashes must not be checked, got %v", err)
	}

	wrong := common.Hash{0xff}
	if err := checkExecutionOutcome(st, &Test{Root: wrong}); err == nil {
		t.Errorf("a declared root must be checked")
	}
	if err := checkExecutionOutcome(st, &Test{Logs: wrong}); err == nil {
		t.Errorf("a declared logs hash must be checked")
	}
	if err := checkExecutionOutcome(st, &Test{Root: st.StateRoot(), Logs: st.LogsHash()}); err != nil {
		t.Errorf("matching hashes must pass, got %v", err)
	}
}
