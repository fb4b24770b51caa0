// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"

	"github.com/Fantom-foundation/Fidelio/statetest"
	"github.com/urfave/cli/v2"
)

var ForksCmd = cli.Command{
	Action: doListForks,
	Name:   "forks",
	Usage:  "List the fork names recognized in fixture post-state maps",
}

func doListForks(context *cli.Context) error {
	for _, name := range statetest.KnownForks() {
		id, _ := name.ToSpecId()
		status := "supported"
		if !name.IsSupported() {
			status = "ignored"
		}
		fmt.Printf("%-20s %-24s %s\n", name, id, status)
	}
	return nil
}
