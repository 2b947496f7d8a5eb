package returns

import (
	"context"

	"github.com/erp/returns/internal/domain/returns"
)

// TransactionScope runs fn with repositories bound to one unit of work.
// If fn returns an error, the unit of work is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the stores completion writes to. All of
// them share the scope's underlying transaction when one exists.
type TransactionalRepositories interface {
	ReturnRepo() returns.ReturnRepository
	StockLocations() returns.StockLocationPort
	WriteOffs() returns.WriteOffPort
}

// DirectScope runs fn against the given stores without a shared transaction.
// It is used when the ledgers live in other services; per-item completion
// markers make a retried call safe.
type DirectScope struct {
	repos directRepositories
}

// NewDirectScope creates a DirectScope
func NewDirectScope(repo returns.ReturnRepository, stock returns.StockLocationPort, writeOffs returns.WriteOffPort) *DirectScope {
	return &DirectScope{repos: directRepositories{repo: repo, stock: stock, writeOffs: writeOffs}}
}

func (s *DirectScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s.repos)
}

type directRepositories struct {
	repo      returns.ReturnRepository
	stock     returns.StockLocationPort
	writeOffs returns.WriteOffPort
}

func (r directRepositories) ReturnRepo() returns.ReturnRepository      { return r.repo }
func (r directRepositories) StockLocations() returns.StockLocationPort { return r.stock }
func (r directRepositories) WriteOffs() returns.WriteOffPort           { return r.writeOffs }

var _ TransactionScope = (*DirectScope)(nil)
