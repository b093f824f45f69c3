package resolver

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	txcore "github.com/heliotx/cardano-txcore"
	"github.com/heliotx/cardano-txcore/cbor"
)

// resolveUTXOQuery fetches the exact on-chain output bytes for a single
// (tx hash, index) pair from an unspent-output table keyed the way a
// dbsync-style indexer would keep it.
const resolveUTXOQuery = `
SELECT raw_cbor
FROM utxo
WHERE tx_hash = $1 AND output_index = $2 AND consumed_by_tx_id IS NULL
`

// Postgres resolves reference inputs against a table of raw output CBOR,
// the same pool-per-call pattern the rest of this core's ambient stack
// uses for database access.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres opens a pool against connString (a libpq-style DSN).
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to Postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Resolve looks up a reference input's output bytes and decodes them. It
// satisfies fee.UTXOResolver; a missing or unreadable row is reported as
// not-found rather than propagating the underlying driver error, since
// the fee engine only needs to know whether resolution succeeded (§6.3).
func (p *Postgres) Resolve(in txcore.TxInput) (*txcore.UTXO, bool) {
	ctx := context.Background()

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, false
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, resolveUTXOQuery, in.TxHash.Hex(), in.Index)

	var rawCBOR []byte
	if err := row.Scan(&rawCBOR); err != nil {
		return nil, false
	}

	out, err := txcore.DecodeTxOutput(cbor.NewReader(rawCBOR))
	if err != nil {
		return nil, false
	}

	return &txcore.UTXO{Input: in, Output: out}, true
}

func (p *Postgres) Close() { p.pool.Close() }
