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
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"pgregory.net/rand"
)

func TestState_UnknownAccountsReadAsEmpty(t *testing.T) {
	st := New()
	addr := common.Address{1}
	if st.AccountExists(addr) {
		t.Errorf("unexpected account %v", addr)
	}
	if want, got := uint256.NewInt(0), st.GetBalance(addr); want.Cmp(got) != 0 {
		t.Errorf("unexpected balance, want %v, got %v", want, got)
	}
	if want, got := uint64(0), st.GetNonce(addr); want != got {
		t.Errorf("unexpected nonce, want %v, got %v", want, got)
	}
	if got := st.GetCode(addr); len(got) != 0 {
		t.Errorf("unexpected code: %x", got)
	}
	if want, got := (common.Hash{}), st.GetStorage(addr, common.Hash{2}); want != got {
		t.Errorf("unexpected storage value, want %v, got %v", want, got)
	}
}

func TestState_ModificationsAreObservable(t *testing.T) {
	st := New()
	addr := common.Address{1}
	st.SetBalance(addr, uint256.NewInt(12))
	st.AddBalance(addr, uint256.NewInt(3))
	st.SetNonce(addr, 4)
	st.SetCode(addr, []byte{0x60, 0x00})
	st.SetStorage(addr, common.Hash{1}, common.Hash{2})

	if want, got := uint256.NewInt(15), st.GetBalance(addr); want.Cmp(got) != 0 {
		t.Errorf("unexpected balance, want %v, got %v", want, got)
	}
	if want, got := uint64(4), st.GetNonce(addr); want != got {
		t.Errorf("unexpected nonce, want %v, got %v", want, got)
	}
	if want, got := (common.Hash{2}), st.GetStorage(addr, common.Hash{1}); want != got {
		t.Errorf("unexpected storage value, want %v, got %v", want, got)
	}
}

func TestState_SnapshotRollsBackAllModifications(t *testing.T) {
	st := New()
	addr := common.Address{1}
	st.SetBalance(addr, uint256.NewInt(10))
	st.EndTransaction()

	snapshot := st.CreateSnapshot()
	st.SetBalance(addr, uint256.NewInt(99))
	st.SetNonce(addr, 7)
	st.SetStorage(addr, common.Hash{1}, common.Hash{2})
	st.SetBalance(common.Address{2}, uint256.NewInt(5))
	st.EmitLog(&types.Log{Address: addr})
	st.RestoreSnapshot(snapshot)

	if want, got := uint256.NewInt(10), st.GetBalance(addr); want.Cmp(got) != 0 {
		t.Errorf("balance not rolled back, want %v, got %v", want, got)
	}
	if want, got := uint64(0), st.GetNonce(addr); want != got {
		t.Errorf("nonce not rolled back, want %v, got %v", want, got)
	}
	if want, got := (common.Hash{}), st.GetStorage(addr, common.Hash{1}); want != got {
		t.Errorf("storage not rolled back, want %v, got %v", want, got)
	}
	if st.AccountExists(common.Address{2}) {
		t.Errorf("created account not rolled back")
	}
	if len(st.GetLogs()) != 0 {
		t.Errorf("logs not rolled back: %v", st.GetLogs())
	}
}

func TestState_EndTransactionInvalidatesSnapshots(t *testing.T) {
	st := New()
	addr := common.Address{1}
	snapshot := st.CreateSnapshot()
	st.SetBalance(addr, uint256.NewInt(42))
	st.EndTransaction()
	st.RestoreSnapshot(snapshot)
	if want, got := uint256.NewInt(42), st.GetBalance(addr); want.Cmp(got) != 0 {
		t.Errorf("committed modification was rolled back, want %v, got %v", want, got)
	}
}

func TestStateRoot_EqualStatesProduceEqualRoots(t *testing.T) {
	rnd := rand.New(0)
	for i := 0; i < 10; i++ {
		a := New()
		b := New()
		for j := 0; j < 20; j++ {
			addr := common.Address{byte(rnd.Intn(5))}
			balance := uint256.NewInt(rnd.Uint64n(1000))
			nonce := rnd.Uint64n(10)
			key := common.Hash{byte(rnd.Intn(3))}
			value := common.Hash{byte(rnd.Intn(3))}
			// apply in different orders to both states
			a.SetBalance(addr, balance)
			a.SetNonce(addr, nonce)
			a.SetStorage(addr, key, value)
			b.SetStorage(addr, key, value)
			b.SetNonce(addr, nonce)
			b.SetBalance(addr, balance)
		}
		if a.StateRoot() != b.StateRoot() {
			t.Fatalf("states with identical content have different roots")
		}
	}
}

func TestStateRoot_SensitiveToEveryAccountComponent(t *testing.T) {
	addr := common.Address{1}
	base := func() *State {
		st := New()
		st.SetBalance(addr, uint256.NewInt(10))
		st.SetNonce(addr, 1)
		st.SetCode(addr, []byte{1})
		st.SetStorage(addr, common.Hash{1}, common.Hash{1})
		return st
	}

	tests := map[string]func(*State){
		"Balance": func(st *State) { st.SetBalance(addr, uint256.NewInt(11)) },
		"Nonce":   func(st *State) { st.SetNonce(addr, 2) },
		"Code":    func(st *State) { st.SetCode(addr, []byte{2}) },
		"Storage": func(st *State) { st.SetStorage(addr, common.Hash{1}, common.Hash{2}) },
		"Account": func(st *State) { st.SetBalance(common.Address{2}, uint256.NewInt(1)) },
	}

	reference := base().StateRoot()
	for name, modify := range tests {
		t.Run(name, func(t *testing.T) {
			st := base()
			modify(st)
			if st.StateRoot() == reference {
				t.Errorf("modification of %s did not change the state root", name)
			}
		})
	}
}

func TestStateRoot_EmptyAccountsAreIgnored(t *testing.T) {
	st := New()
	st.SetBalance(common.Address{1}, uint256.NewInt(0))
	st.SetStorage(common.Address{2}, common.Hash{1}, common.Hash{})
	if want, got := New().StateRoot(), st.StateRoot(); want != got {
		t.Errorf("empty accounts must not contribute to the root, want %v, got %v", want, got)
	}
}

func TestLogsHash_EmptyLogListHasCanonicalHash(t *testing.T) {
	// Keccak-256 of the RLP encoding of an empty list.
	want := common.HexToHash("0x1dcc4de8dec75d7aab85b567b6ccd41ad312451b948a7413f0a142fd40d49347")
	if got := New().LogsHash(); want != got {
		t.Errorf("unexpected hash of empty log list, want %v, got %v", want, got)
	}
}

func TestLogsHash_SensitiveToLogContent(t *testing.T) {
	mkState := func(data byte) *State {
		st := New()
		st.EmitLog(&types.Log{
			Address: common.Address{1},
			Topics:  []common.Hash{{2}},
			Data:    []byte{data},
		})
		return st
	}
	if mkState(1).LogsHash() == mkState(2).LogsHash() {
		t.Errorf("different log data must produce different hashes")
	}
	if mkState(1).LogsHash() != mkState(1).LogsHash() {
		t.Errorf("equal log data must produce equal hashes")
	}
}

func BenchmarkStateRoot(b *testing.B) {
	st := New()
	for i := 0; i < 100; i++ {
		st.SetBalance(common.Address{byte(i)}, uint256.NewInt(uint64(i)))
		st.SetStorage(common.Address{byte(i)}, common.Hash{1}, common.Hash{byte(i)})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = st.StateRoot()
	}
	_ = fmt.Sprintf("%v", st.StateRoot())
}
