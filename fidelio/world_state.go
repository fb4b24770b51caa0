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
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

//go:generate mockgen -source world_state.go -destination world_state_mock.go -package fidelio

// WorldState is an interface to access and manipulate the state a transaction
// executes against. The state is a collection of accounts, each with a
// balance, a nonce, optional code and storage. Modifications made between two
// snapshots can be rolled back; EndTransaction commits everything that was
// not rolled back and clears the transient journal.
type WorldState interface {
	AccountExists(common.Address) bool

	GetBalance(common.Address) *uint256.Int
	SetBalance(common.Address, *uint256.Int)
	AddBalance(common.Address, *uint256.Int)

	GetNonce(common.Address) uint64
	SetNonce(common.Address, uint64)

	GetCode(common.Address) []byte
	SetCode(common.Address, []byte)

	GetStorage(common.Address, common.Hash) common.Hash
	SetStorage(common.Address, common.Hash, common.Hash)

	EmitLog(*types.Log)
	GetLogs() []*types.Log

	CreateSnapshot() Snapshot
	RestoreSnapshot(Snapshot)

	// EndTransaction commits the effects of the finished transaction and
	// clears the transient journal. After the call, earlier snapshots are
	// invalid and all reads observe the committed state.
	EndTransaction()
}

// Snapshot identifies a point in a world state's journal that modifications
// can be rolled back to.
type Snapshot int
