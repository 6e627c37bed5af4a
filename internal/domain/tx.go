package domain

import "context"

// TxManager runs a function inside a single transactional unit of work.
// Repositories called with the context passed to fn participate in the
// transaction; any error rolls the whole unit back. The slot row lock
// (SlotRepository.LockForUpdate) is only meaningful inside WithinTx.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
