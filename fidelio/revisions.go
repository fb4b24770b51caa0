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

import (
	"encoding/json"
	"fmt"
)

// Revision is a totally ordered identifier for a protocol upgrade point.
// Higher values supersede lower ones. The numeric prefix in the constant
// names reflects the upgrade sequence, not the underlying integer value.
type Revision int

const (
	R01_Frontier Revision = iota
	R02_Homestead
	R03_TangerineWhistle
	R04_SpuriousDragon
	R05_Byzantium
	R06_Constantinople
	R07_Petersburg
	R08_Istanbul
	R09_Berlin
	R10_London
	R11_Paris
	R12_Shanghai
	R13_Cancun
	R14_Prague
	R15_Osaka
	R99_UnknownNextRevision
)

func (r Revision) String() string {
	switch r {
	case R01_Frontier:
		return "Frontier"
	case R02_Homestead:
		return "Homestead"
	case R03_TangerineWhistle:
		return "TangerineWhistle"
	case R04_SpuriousDragon:
		return "SpuriousDragon"
	case R05_Byzantium:
		return "Byzantium"
	case R06_Constantinople:
		return "Constantinople"
	case R07_Petersburg:
		return "Petersburg"
	case R08_Istanbul:
		return "Istanbul"
	case R09_Berlin:
		return "Berlin"
	case R10_London:
		return "London"
	case R11_Paris:
		return "Paris"
	case R12_Shanghai:
		return "Shanghai"
	case R13_Cancun:
		return "Cancun"
	case R14_Prague:
		return "Prague"
	case R15_Osaka:
		return "Osaka"
	case R99_UnknownNextRevision:
		return "UnknownNextRevision"
	default:
		return fmt.Sprintf("Revision(%d)", r)
	}
}

func (r Revision) MarshalJSON() ([]byte, error) {
	if r < R01_Frontier || r > R99_UnknownNextRevision {
		return nil, fmt.Errorf("invalid revision: %d", r)
	}
	return json.Marshal(r.String())
}

func (r *Revision) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for rev := R01_Frontier; rev <= R99_UnknownNextRevision; rev++ {
		if rev.String() == s {
			*r = rev
			return nil
		}
	}
	return fmt.Errorf("unknown revision: %q", s)
}
