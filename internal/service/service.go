package service

import "context"

// TxManager выполняет функцию в одной транзакции хранилища. Реализуется
// repository.TxManager; в тестах подменяется заглушкой с мьютексом.
type TxManager interface {
	ExecTx(ctx context.Context, fn func(ctx context.Context) error) error
}
