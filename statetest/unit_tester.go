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
	"fmt"
	"strings"

	"github.com/Fantom-foundation/Fidelio/fidelio"
	"github.com/Fantom-foundation/Fidelio/state"
	"github.com/Fantom-foundation/Fidelio/verification"
	"github.com/ethereum/go-ethereum/log"
)

// UnitTester executes all cases of one test fixture against a processor and
// reports the first disagreement. The processor and verification config
// passed to Run are shared, read-only collaborators; independent UnitTester
// instances may therefore run concurrently.
type UnitTester struct {
	path    string
	name    string
	unit    *TestUnit
	matcher ExceptionMatcher
}

// NewUnitTester creates a tester for the named fixture. The path and name
// identify the fixture in error reports and in the case-selection filter.
func NewUnitTester(path, name string, unit *TestUnit) *UnitTester {
	return &UnitTester{path: path, name: name, unit: unit, matcher: MatchAnyFailure}
}

// SetExceptionMatcher replaces the default permissive exception-matching
// policy. A nil matcher is ignored.
func (u *UnitTester) SetExceptionMatcher(matcher ExceptionMatcher) {
	if matcher != nil {
		u.matcher = matcher
	}
}

func (u *UnitTester) err(kind ErrorKind, err error) *TestError {
	return &TestError{Path: u.path, Name: u.name, Kind: kind, Err: err}
}

// Run executes the fixture. The match argument is an optional substring
// filter against "<path>::<name>"; non-matching fixtures are skipped without
// side effects. The boolean result reports whether at least one case was
// actually executed. A *TestError result identifies a fixture disagreement
// and is recoverable at the fixture level; any other non-nil error is an
// infrastructure fault and must abort the entire run.
func (u *UnitTester) Run(processor fidelio.Processor, verifier *verification.Config, match string) (bool, error) {
	if match != "" && !strings.Contains(u.path+"::"+u.name, match) {
		return false, nil
	}
	if match != "" {
		log.Info("Running test unit", "name", u.name)
	} else {
		log.Trace("Running test unit", "name", u.name)
	}

	specName, specID, tests, found := pickSpec(u.unit.Post)
	if !found {
		return false, nil
	}

	nonEmptyUnit := false
	for i := range tests {
		if match != "" {
			log.Info("Running test case", "spec", specName, "case", i)
		}
		if err := u.runSingleTest(&tests[i], specID, processor, verifier); err != nil {
			return nonEmptyUnit, err
		}
		nonEmptyUnit = true
	}
	return nonEmptyUnit, nil
}

func (u *UnitTester) runSingleTest(
	test *Test,
	spec SpecId,
	processor fidelio.Processor,
	verifier *verification.Config,
) error {
	st := makeState(u.unit.Pre)
	chainID := u.unit.Config.EffectiveChainID()

	tx, ok := makeTx(&u.unit.Transaction, test.Indexes, chainID, extract155ChainID(test.TxBytes) == nil)
	if !ok {
		// The selected variant is designed to be unconstructible; failing to
		// build it is the expected behavior and the case counts as passed.
		return nil
	}

	if err := checkTxBytes(test.TxBytes, tx); err != nil {
		return u.err(TxBytesMismatch, err)
	}

	env := makeBlockEnv(&u.unit.Env, chainID, tx.Hash(), spec)

	if err := verifier.VerifyTransactionCommon(env, tx); err != nil {
		if err := processConsensusCheckFail(err, test.ExpectException, u.matcher); err != nil {
			return u.err(ConsensusGateMismatch, err)
		}
		return nil
	}

	outcome, err := u.transact(processor, env, st, tx)
	if err != nil {
		// infrastructure fault, not part of the test taxonomy
		return err
	}

	receipt, rerr := extractExecuted(outcome, test.ExpectException, u.matcher)
	if rerr != nil {
		return u.err(OutcomeMismatch, rerr)
	}
	if receipt == nil {
		return nil
	}

	distributeTxFeeToMiner(st, receipt, env.Coinbase)

	if err := checkExecutionOutcome(st, test); err != nil {
		return u.err(PostStateMismatch, err)
	}
	return nil
}

// transact invokes the processor and unconditionally advances the working
// state's post-execution bookkeeping, so that subsequent reads observe a
// consistent committed state even when the outcome is an expected failure.
func (u *UnitTester) transact(
	processor fidelio.Processor,
	env fidelio.BlockParameters,
	st *state.State,
	tx *fidelio.SignedTransaction,
) (fidelio.Outcome, error) {
	outcome, err := processor.Run(env, tx, st)
	st.EndTransaction()
	if err != nil {
		return fidelio.Outcome{}, fmt.Errorf("engine fault while executing %s::%s: %w", u.path, u.name, err)
	}
	return outcome, nil
}
