package db

import (
	"context"

	"gorm.io/gorm"
)

// txKey is the key type for storing transaction in context
type txKey struct{}

// WithTx returns a new context with the transaction attached
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// GetTx retrieves the transaction from context if it exists
func GetTx(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok
}

// Conn returns either the transaction from context or the base connection,
// bound to ctx. Repositories call it for every query so that they join an
// outer transaction when there is one.
func Conn(ctx context.Context, base *gorm.DB) *gorm.DB {
	if tx, ok := GetTx(ctx); ok {
		return tx.WithContext(ctx)
	}
	return base.WithContext(ctx)
}

// RunInTransaction executes fn within a database transaction.
// If a transaction already exists in the context it is reused and
// commit/rollback is left to the outer call.
func RunInTransaction(ctx context.Context, base *gorm.DB, fn func(ctx context.Context) error) error {
	if _, ok := GetTx(ctx); ok {
		return fn(ctx)
	}

	return base.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(WithTx(ctx, tx))
	})
}
