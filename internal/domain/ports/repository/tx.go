package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx aliases any so a method written against `qx Tx` and one written against
// `qx any` carry the identical signature; both forms satisfy the repository
// interfaces.
type Tx = any

var NoTX Tx

// TransactionManager executes a function within a database transaction,
// passing the underlying transaction handle via `qx`.
//
// Repository methods accept `qx any` and detect a tx implementation-side, so
// use-case interfaces stay clean of transaction types. Repositories MUST
// gracefully accept `nil` qx (non-transactional path).
//
// USAGE
// tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, qx repository.Tx) error {
//     if err := payments.DetachVideo(ctx, qx, videoID); err != nil {
//         return err
//     }
//     return videos.Delete(ctx, qx, videoID)
// })
//
// The concrete type of `qx` is infra-defined (pgx.Tx for Postgres).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
