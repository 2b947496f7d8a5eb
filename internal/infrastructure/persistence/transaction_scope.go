package persistence

import (
	"context"

	appreturns "github.com/erp/returns/internal/application/returns"
	"github.com/erp/returns/internal/domain/returns"
	"github.com/erp/returns/internal/domain/shared"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Returns, stock rows and write-offs written inside Execute commit together.
type GormTransactionScope struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// SetOutboxEventSaver hands the outbox saver to return repositories created
// inside a transaction.
func (s *GormTransactionScope) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	s.outboxSaver = saver
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appreturns.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, outboxSaver: s.outboxSaver})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx          *gorm.DB
	outboxSaver shared.OutboxEventSaver
}

// ReturnRepo returns the return repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ReturnRepo() returns.ReturnRepository {
	repo := NewGormReturnRepository(r.tx)
	repo.SetOutboxEventSaver(r.outboxSaver)
	return repo
}

// StockLocations returns the stock ledger scoped to the current transaction.
func (r *gormTransactionalRepositories) StockLocations() returns.StockLocationPort {
	return NewGormStockLocationRepository(r.tx)
}

// WriteOffs returns the write-off store scoped to the current transaction.
func (r *gormTransactionalRepositories) WriteOffs() returns.WriteOffPort {
	return NewGormWriteOffRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appreturns.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appreturns.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
