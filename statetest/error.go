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

import "fmt"

// ErrorKind classifies the ways a test case can disagree with the engine
// under test. Infrastructure faults are deliberately not part of this
// taxonomy; they are reported as plain errors and abort the whole run.
type ErrorKind int

const (
	// TxBytesMismatch reports that the canonical encoding of the constructed
	// transaction differs from the fixture-declared raw bytes.
	TxBytesMismatch ErrorKind = iota
	// ConsensusGateMismatch reports a pre-execution validation failure that
	// does not match the fixture-declared expectation.
	ConsensusGateMismatch
	// OutcomeMismatch reports that the execution outcome class (executed vs
	// rejected) contradicts the fixture-declared expectation.
	OutcomeMismatch
	// PostStateMismatch reports that the final state diverges from the
	// fixture-declared post-state.
	PostStateMismatch
)

func (k ErrorKind) String() string {
	switch k {
	case TxBytesMismatch:
		return "transaction bytes mismatch"
	case ConsensusGateMismatch:
		return "consensus gate mismatch"
	case OutcomeMismatch:
		return "outcome mismatch"
	case PostStateMismatch:
		return "post state mismatch"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// TestError is a structured test failure carrying the identity of the
// originating fixture. It halts processing of the fixture it belongs to, but
// a driver can continue with other fixtures.
type TestError struct {
	Path string
	Name string
	Kind ErrorKind
	Err  error
}

func (e *TestError) Error() string {
	return fmt.Sprintf("%s::%s: %v: %v", e.Path, e.Name, e.Kind, e.Err)
}

func (e *TestError) Unwrap() error {
	return e.Err
}
