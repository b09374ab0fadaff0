package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/config"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/roster"
)

// querier 同时被 *sql.DB 和 *sql.Tx 满足，
// 让同一套查询方法既能单独执行也能跑在事务里
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
	db     querier
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
		db:     dbpool,
	}
}

func (r *Repository) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
}

// InTx 在单个数据库事务里执行 fn，fn 返回错误时回滚。
// 已经在事务里时直接复用当前事务。
func (r *Repository) InTx(ctx context.Context, fn func(roster.Store) error) error {
	if _, ok := r.db.(*sql.Tx); ok {
		return fn(r)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	txRepo := &Repository{cfg: r.cfg, dbpool: r.dbpool, db: tx}
	if err := fn(txRepo); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}
