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
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/Fantom-foundation/Fidelio/fidelio"
	"github.com/Fantom-foundation/Fidelio/state"
	"github.com/Fantom-foundation/Fidelio/verification"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ExceptionMatcher decides whether an actual failure label satisfies a
// fixture-declared expected-exception label. The matching discipline is a
// policy choice; see MatchAnyFailure and MatchLabels.
type ExceptionMatcher func(expected, actual string) bool

// MatchAnyFailure accepts any actual failure as long as some exception was
// declared. This is the permissive default: fixture suites are not always
// consistent in their label vocabulary, and over-fitting to label text
// produces false failures.
func MatchAnyFailure(expected, actual string) bool {
	return expected != ""
}

// MatchLabels accepts a failure only if its label equals one of the declared
// alternatives (the fixture format separates alternatives with '|').
func MatchLabels(expected, actual string) bool {
	for _, alternative := range strings.Split(expected, "|") {
		if strings.TrimSpace(alternative) == actual {
			return true
		}
	}
	return false
}

// processConsensusCheckFail reconciles a pre-execution validation failure
// with the case's declared expectation. A nil result means the failure was
// expected and the case is trivially skipped.
func processConsensusCheckFail(err error, expectException string, matches ExceptionMatcher) error {
	if expectException == "" {
		return fmt.Errorf("unexpected consensus failure: %w", err)
	}
	label := ""
	var verr *verification.Error
	if errors.As(err, &verr) {
		label = verr.Label
	}
	if matches(expectException, label) {
		return nil
	}
	return fmt.Errorf("consensus failure does not match expected exception %q: %w", expectException, err)
}

// extractExecuted classifies an execution outcome against the case's
// declared expectation. A (nil, nil) result means the case is trivially
// skipped: the transaction was rejected exactly as the fixture expects.
func extractExecuted(outcome fidelio.Outcome, expectException string, matches ExceptionMatcher) (*fidelio.Receipt, error) {
	if rejected := outcome.Rejected; rejected != nil {
		if expectException == "" {
			return nil, fmt.Errorf("transaction rejected without a declared expectation: %v", rejected)
		}
		if matches(expectException, rejected.Label) {
			return nil, nil
		}
		return nil, fmt.Errorf("rejection %v does not match expected exception %q", rejected, expectException)
	}
	if expectException != "" {
		return nil, fmt.Errorf("execution proceeded although exception %q was expected", expectException)
	}
	return outcome.Executed, nil
}

// distributeTxFeeToMiner credits the block's fee recipient with the total
// charge of the executed transaction. Fixture post-states include this
// credit, so it must happen before post-state verification. Exactly one
// credit is applied per executed case.
func distributeTxFeeToMiner(st *state.State, receipt *fidelio.Receipt, coinbase common.Address) {
	st.AddBalance(coinbase, receipt.Fee())
}

// checkExecutionOutcome compares the working state after fee settlement
// against the case's expected post-state. This is the final gate of a case.
func checkExecutionOutcome(st *state.State, test *Test) error {
	var issues []string
	for addr, expected := range test.State {
		issues = append(issues, diffAccount(st, addr, &expected)...)
	}
	if test.Logs != (common.Hash{}) {
		if got := st.LogsHash(); got != test.Logs {
			issues = append(issues, fmt.Sprintf("logs hash: want %v, got %v", test.Logs, got))
		}
	}
	if test.Root != (common.Hash{}) {
		if got := st.StateRoot(); got != test.Root {
			issues = append(issues, fmt.Sprintf("state root: want %v, got %v", test.Root, got))
		}
	}
	if len(issues) > 0 {
		return fmt.Errorf("post state does not match expectation:\n\t%s", strings.Join(issues, "\n\t"))
	}
	return nil
}

func diffAccount(st *state.State, addr common.Address, expected *Account) []string {
	var res []string
	if expected.Balance != nil {
		want, _ := uint256.FromBig((*big.Int)(expected.Balance))
		if got := st.GetBalance(addr); want.Cmp(got) != 0 {
			res = append(res, fmt.Sprintf("different balance: %v != %v", want, got))
		}
	}
	if want, got := uint64(expected.Nonce), st.GetNonce(addr); want != got {
		res = append(res, fmt.Sprintf("different nonce: %v != %v", want, got))
	}
	if want, got := []byte(expected.Code), st.GetCode(addr); !bytes.Equal(want, got) {
		res = append(res, fmt.Sprintf("different code: 0x%x != 0x%x", want, got))
	}
	for key, want := range expected.Storage {
		if got := st.GetStorage(addr, key); want != got {
			res = append(res, fmt.Sprintf("different value for key %v: %v != %v", key, want, got))
		}
	}
	for i, diff := range res {
		res[i] = fmt.Sprintf("%v/%s", addr, diff)
	}
	return res
}
