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
	"testing"

	"github.com/Fantom-foundation/Fidelio/fidelio"
)

func TestSpecName_AliasesMapToTheSameId(t *testing.T) {
	tests := map[SpecName]SpecName{
		"EIP150":            "TangerineWhistle",
		"EIP158":            "SpuriousDragon",
		"ConstantinopleFix": "Petersburg",
		"Merge":             "Paris",
	}
	for alias, canonical := range tests {
		aliasID, ok := alias.ToSpecId()
		if !ok {
			t.Fatalf("unknown fork name %q", alias)
		}
		canonicalID, ok := canonical.ToSpecId()
		if !ok {
			t.Fatalf("unknown fork name %q", canonical)
		}
		if aliasID != canonicalID {
			t.Errorf("%q and %q should map to the same id, got %v and %v", alias, canonical, aliasID, canonicalID)
		}
	}
}

func TestSpecName_UnknownNamesAreReported(t *testing.T) {
	for _, name := range []SpecName{"", "NotAFork", "HomesteadToDaoAt5"} {
		if _, ok := name.ToSpecId(); ok {
			t.Errorf("expected %q to be unknown", name)
		}
	}
}

func TestPickSpec_SelectsTheMostAdvancedSupportedFork(t *testing.T) {
	post := map[SpecName][]Test{
		"Homestead": {{}},
		"Berlin":    {{}, {}},
		"London":    {{}},
	}
	name, id, tests, found := pickSpec(post)
	if !found {
		t.Fatalf("expected a fork to be selected")
	}
	if want, got := SpecName("London"), name; want != got {
		t.Errorf("unexpected fork, want %v, got %v", want, got)
	}
	if want, got := fidelio.R10_London, id; want != got {
		t.Errorf("unexpected fork id, want %v, got %v", want, got)
	}
	if want, got := 1, len(tests); want != got {
		t.Errorf("unexpected number of cases, want %d, got %d", want, got)
	}
}

func TestPickSpec_DuplicateIdsKeepOneAliasAndNeverALowerFork(t *testing.T) {
	post := map[SpecName][]Test{
		"Homestead": {{}},
		"Merge":     {{}},
		"Paris":     {{}},
	}
	// run repeatedly since map iteration order varies
	for i := 0; i < 20; i++ {
		name, id, _, found := pickSpec(post)
		if !found {
			t.Fatalf("expected a fork to be selected")
		}
		if name != "Merge" && name != "Paris" {
			t.Fatalf("expected one of the aliases to win, got %v", name)
		}
		if want, got := fidelio.R11_Paris, id; want != got {
			t.Fatalf("unexpected fork id, want %v, got %v", want, got)
		}
	}
}

func TestPickSpec_ForksBeyondTheCutoffAreIgnored(t *testing.T) {
	if maxSupportedSpec >= fidelio.R15_Osaka {
		t.Fatalf("test assumes Osaka is not supported yet")
	}
	post := map[SpecName][]Test{
		"Osaka": {{}},
	}
	if _, _, _, found := pickSpec(post); found {
		t.Errorf("a fixture with only unsupported forks must select nothing")
	}

	post["Cancun"] = []Test{{}}
	name, _, _, found := pickSpec(post)
	if !found {
		t.Fatalf("expected the supported fork to be selected")
	}
	if want, got := SpecName("Cancun"), name; want != got {
		t.Errorf("unexpected fork, want %v, got %v", want, got)
	}
}

func TestPickSpec_EmptyOrUnknownPostSelectsNothing(t *testing.T) {
	if _, _, _, found := pickSpec(nil); found {
		t.Errorf("expected no selection for an empty post map")
	}
	if _, _, _, found := pickSpec(map[SpecName][]Test{"NotAFork": {{}}}); found {
		t.Errorf("expected no selection for unknown fork names")
	}
}

func TestKnownForks_AreResolvableAndOrdered(t *testing.T) {
	forks := KnownForks()
	if len(forks) == 0 {
		t.Fatalf("expected a non-empty fork list")
	}
	last := SpecId(0)
	for _, name := range forks {
		id, known := name.ToSpecId()
		if !known {
			t.Fatalf("listed fork %q is not resolvable", name)
		}
		if id < last {
			t.Errorf("fork %q breaks the ascending order", name)
		}
		last = id
	}
}

func TestSpecName_IsSupported(t *testing.T) {
	if !SpecName("Cancun").IsSupported() {
		t.Errorf("expected Cancun to be supported")
	}
	if SpecName("Osaka").IsSupported() {
		t.Errorf("expected Osaka to be beyond the cutoff")
	}
	if SpecName("NotAFork").IsSupported() {
		t.Errorf("expected unknown names to be unsupported")
	}
}
