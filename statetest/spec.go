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
	"slices"

	"github.com/Fantom-foundation/Fidelio/fidelio"
	"github.com/ethereum/go-ethereum/log"
)

// SpecId is the totally ordered identifier of a fork. Multiple fork names
// may map to the same identifier.
type SpecId = fidelio.Revision

// maxSupportedSpec is the most advanced fork this runner executes. Fixture
// entries for later forks are ignored.
const maxSupportedSpec = fidelio.R14_Prague

// SpecName is a fork name as it appears in a fixture's post-state map.
type SpecName string

// ToSpecId resolves a fork name to its identifier. The second result is
// false for names this runner does not know, including the transition-style
// names (e.g. "HomesteadToDaoAt5") that general state tests do not use.
func (n SpecName) ToSpecId() (SpecId, bool) {
	switch n {
	case "Frontier":
		return fidelio.R01_Frontier, true
	case "Homestead":
		return fidelio.R02_Homestead, true
	case "EIP150", "TangerineWhistle":
		return fidelio.R03_TangerineWhistle, true
	case "EIP158", "SpuriousDragon":
		return fidelio.R04_SpuriousDragon, true
	case "Byzantium":
		return fidelio.R05_Byzantium, true
	case "Constantinople":
		return fidelio.R06_Constantinople, true
	case "ConstantinopleFix", "Petersburg":
		return fidelio.R07_Petersburg, true
	case "Istanbul":
		return fidelio.R08_Istanbul, true
	case "Berlin":
		return fidelio.R09_Berlin, true
	case "London":
		return fidelio.R10_London, true
	case "Merge", "Paris":
		return fidelio.R11_Paris, true
	case "Shanghai":
		return fidelio.R12_Shanghai, true
	case "Cancun":
		return fidelio.R13_Cancun, true
	case "Prague":
		return fidelio.R14_Prague, true
	case "Osaka":
		return fidelio.R15_Osaka, true
	default:
		return 0, false
	}
}

// knownForks lists all resolvable fork names in ascending identifier order,
// aliases included.
var knownForks = []SpecName{
	"Frontier",
	"Homestead",
	"EIP150", "TangerineWhistle",
	"EIP158", "SpuriousDragon",
	"Byzantium",
	"Constantinople",
	"ConstantinopleFix", "Petersburg",
	"Istanbul",
	"Berlin",
	"London",
	"Merge", "Paris",
	"Shanghai",
	"Cancun",
	"Prague",
	"Osaka",
}

// KnownForks returns all fork names this runner can resolve, in ascending
// identifier order. Resolvable does not imply executable; see IsSupported.
func KnownForks() []SpecName {
	return slices.Clone(knownForks)
}

// IsSupported reports whether fixture entries for this fork name are
// executed rather than ignored.
func (n SpecName) IsSupported() bool {
	id, known := n.ToSpecId()
	return known && id <= maxSupportedSpec
}

// pickSpec selects the fork of a fixture this runner should execute: the
// entry with the greatest supported identifier. Aliases mapping to the same
// identifier are expected fixture content; the first one encountered is kept
// and the duplicate is reported as a diagnostic only. The last result is
// false if no entry qualifies, in which case the fixture contributes no
// executed cases.
func pickSpec(post map[SpecName][]Test) (SpecName, SpecId, []Test, bool) {
	var (
		bestName  SpecName
		bestID    SpecId
		bestTests []Test
		found     bool
	)
	for name, tests := range post {
		id, known := name.ToSpecId()
		if !known {
			log.Debug("Ignoring unknown fork name", "fork", name)
			continue
		}
		if id > maxSupportedSpec {
			continue
		}
		switch {
		case !found:
			bestName, bestID, bestTests, found = name, id, tests, true
		case id > bestID:
			bestName, bestID, bestTests = name, id, tests
		case id == bestID:
			log.Warn("Duplicate fork with the same id", "kept", bestName, "duplicate", name, "id", id)
		}
	}
	return bestName, bestID, bestTests, found
}
