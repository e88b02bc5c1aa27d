package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// TxManager выполняет функцию в одной транзакции, передавая её через контекст.
// Репозитории, вызванные внутри ExecTx, работают по этой транзакции, а не по
// отдельным соединениям, поэтому многошаговые операции (рекурсивное обновление
// путей, выделение номера версии) атомарны.
type TxManager struct {
	db *sqlx.DB
}

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) ExecTx(ctx context.Context, fn func(ctx context.Context) error) error {
	// Вложенный вызов продолжает уже открытую транзакцию
	if TxFrom(ctx) != nil {
		return fn(ctx)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapErr("begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrapErr("commit transaction", err)
	}
	return nil
}

// TxFrom возвращает транзакцию из контекста, nil если её нет.
func TxFrom(ctx context.Context) *sqlx.Tx {
	tx, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	if !ok {
		return nil
	}
	return tx
}

// ext выбирает исполнителя запросов: транзакцию из контекста или пул соединений.
func ext(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx := TxFrom(ctx); tx != nil {
		return tx
	}
	return db
}

// requireTx защищает операции, которые вне транзакции некорректны.
func requireTx(ctx context.Context, op string) error {
	if TxFrom(ctx) == nil {
		return fmt.Errorf("%s must run inside a transaction", op)
	}
	return nil
}
