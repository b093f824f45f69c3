// Package resolver provides UTXOResolver implementations the fee engine
// consumes (§6.3): an in-memory lookup for tests and offline tooling, and
// a Postgres-backed one for a live node-adjacent deployment.
package resolver

import txcore "github.com/heliotx/cardano-txcore"

// Memory is a fixed UTXO set kept in a map, the simplest resolver that
// satisfies fee.UTXOResolver.
type Memory struct {
	utxos map[txcore.TxInput]*txcore.UTXO
}

// NewMemory builds a resolver from a pre-resolved UTXO list.
func NewMemory(utxos []txcore.UTXO) *Memory {
	m := &Memory{utxos: make(map[txcore.TxInput]*txcore.UTXO, len(utxos))}
	for i := range utxos {
		u := utxos[i]
		m.utxos[u.Input] = &u
	}
	return m
}

func (m *Memory) Resolve(in txcore.TxInput) (*txcore.UTXO, bool) {
	u, ok := m.utxos[in]
	return u, ok
}
