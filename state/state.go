// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package state

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/Fantom-foundation/Fidelio/fidelio"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

// State is an in-memory implementation of the fidelio.WorldState interface.
// It models the accounts a single test case executes against. Instances are
// cheap to create and intended to be single-use: one state per test case,
// never shared between cases or fixtures.
type State struct {
	accounts map[common.Address]*account
	logs     []*types.Log
	undo     []func()
}

type account struct {
	balance uint256.Int
	nonce   uint64
	code    []byte
	storage map[common.Hash]common.Hash
}

func (a *account) empty() bool {
	return a.balance.IsZero() && a.nonce == 0 && len(a.code) == 0 && len(a.storage) == 0
}

// New creates an empty state.
func New() *State {
	return &State{accounts: map[common.Address]*account{}}
}

func (s *State) getOrCreate(addr common.Address) *account {
	acct, found := s.accounts[addr]
	if !found {
		acct = &account{storage: map[common.Hash]common.Hash{}}
		s.accounts[addr] = acct
		s.undo = append(s.undo, func() { delete(s.accounts, addr) })
	}
	return acct
}

func (s *State) AccountExists(addr common.Address) bool {
	acct, found := s.accounts[addr]
	return found && !acct.empty()
}

func (s *State) GetBalance(addr common.Address) *uint256.Int {
	if acct, found := s.accounts[addr]; found {
		return new(uint256.Int).Set(&acct.balance)
	}
	return uint256.NewInt(0)
}

func (s *State) SetBalance(addr common.Address, balance *uint256.Int) {
	acct := s.getOrCreate(addr)
	old := acct.balance
	s.undo = append(s.undo, func() { acct.balance = old })
	acct.balance.Set(balance)
}

func (s *State) AddBalance(addr common.Address, delta *uint256.Int) {
	acct := s.getOrCreate(addr)
	old := acct.balance
	s.undo = append(s.undo, func() { acct.balance = old })
	acct.balance.Add(&acct.balance, delta)
}

func (s *State) GetNonce(addr common.Address) uint64 {
	if acct, found := s.accounts[addr]; found {
		return acct.nonce
	}
	return 0
}

func (s *State) SetNonce(addr common.Address, nonce uint64) {
	acct := s.getOrCreate(addr)
	old := acct.nonce
	s.undo = append(s.undo, func() { acct.nonce = old })
	acct.nonce = nonce
}

func (s *State) GetCode(addr common.Address) []byte {
	if acct, found := s.accounts[addr]; found {
		return acct.code
	}
	return nil
}

func (s *State) SetCode(addr common.Address, code []byte) {
	acct := s.getOrCreate(addr)
	old := acct.code
	s.undo = append(s.undo, func() { acct.code = old })
	acct.code = bytes.Clone(code)
}

func (s *State) GetStorage(addr common.Address, key common.Hash) common.Hash {
	if acct, found := s.accounts[addr]; found {
		return acct.storage[key]
	}
	return common.Hash{}
}

func (s *State) SetStorage(addr common.Address, key common.Hash, value common.Hash) {
	acct := s.getOrCreate(addr)
	old, hadOld := acct.storage[key]
	s.undo = append(s.undo, func() {
		if hadOld {
			acct.storage[key] = old
		} else {
			delete(acct.storage, key)
		}
	})
	if value == (common.Hash{}) {
		delete(acct.storage, key)
	} else {
		acct.storage[key] = value
	}
}

func (s *State) EmitLog(log *types.Log) {
	s.undo = append(s.undo, func() { s.logs = s.logs[:len(s.logs)-1] })
	s.logs = append(s.logs, log)
}

func (s *State) GetLogs() []*types.Log {
	return s.logs
}

func (s *State) CreateSnapshot() fidelio.Snapshot {
	return fidelio.Snapshot(len(s.undo))
}

func (s *State) RestoreSnapshot(snapshot fidelio.Snapshot) {
	for len(s.undo) > int(snapshot) {
		s.undo[len(s.undo)-1]()
		s.undo = s.undo[:len(s.undo)-1]
	}
}

// EndTransaction commits all modifications of the finished transaction.
// Snapshots created before this call become invalid.
func (s *State) EndTransaction() {
	s.undo = s.undo[:0]
}

// rlpLog restricts a log entry to its consensus-relevant fields.
type rlpLog struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// LogsHash returns the Keccak-256 hash of the RLP encoding of all logs
// collected so far. The fixture format declares expected log data in this
// aggregated form.
func (s *State) LogsHash() common.Hash {
	encodable := make([]rlpLog, 0, len(s.logs))
	for _, log := range s.logs {
		encodable = append(encodable, rlpLog{Address: log.Address, Topics: log.Topics, Data: log.Data})
	}
	return rlpHash(encodable)
}

// accountEncoding is the canonical encoding of an account used for the state
// root computation.
type accountEncoding struct {
	Address common.Address
	Balance *uint256.Int
	Nonce   uint64
	Code    []byte
	Storage []storageEncoding
}

type storageEncoding struct {
	Key   common.Hash
	Value common.Hash
}

// StateRoot computes a deterministic Keccak-256 commitment over all non-empty
// accounts of the state, sorted by address, with each account's storage
// sorted by key. Two states hold the same accounts exactly if their roots
// are equal.
func (s *State) StateRoot() common.Hash {
	addresses := make([]common.Address, 0, len(s.accounts))
	for addr, acct := range s.accounts {
		if !acct.empty() {
			addresses = append(addresses, addr)
		}
	}
	sort.Slice(addresses, func(i, j int) bool {
		return bytes.Compare(addresses[i][:], addresses[j][:]) < 0
	})

	encodable := make([]accountEncoding, 0, len(addresses))
	for _, addr := range addresses {
		acct := s.accounts[addr]
		keys := make([]common.Hash, 0, len(acct.storage))
		for key := range acct.storage {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool {
			return bytes.Compare(keys[i][:], keys[j][:]) < 0
		})
		storage := make([]storageEncoding, 0, len(keys))
		for _, key := range keys {
			storage = append(storage, storageEncoding{Key: key, Value: acct.storage[key]})
		}
		encodable = append(encodable, accountEncoding{
			Address: addr,
			Balance: new(uint256.Int).Set(&acct.balance),
			Nonce:   acct.nonce,
			Code:    acct.code,
			Storage: storage,
		})
	}
	return rlpHash(encodable)
}

func rlpHash(value any) common.Hash {
	hasher := sha3.NewLegacyKeccak256()
	if err := rlp.Encode(hasher, value); err != nil {
		panic(fmt.Sprintf("failed to encode value for hashing: %v", err))
	}
	var hash common.Hash
	hasher.Sum(hash[:0])
	return hash
}
