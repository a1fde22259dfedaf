package repomanager

import (
	"context"

	"github.com/dmitrijs2005/commissions/internal/server/repositories/contracts"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/tickets"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/uploads"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/users"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/wallets"
)

// Repositories is a set of repositories bound to one database handle.
type Repositories interface {
	Wallets() wallets.Repository
	Contracts() contracts.Repository
	Uploads() uploads.Repository
	Tickets() tickets.Repository
	Users() users.Repository
}

// RepositoryManager hands out repositories and runs units of work.
type RepositoryManager interface {
	// Repos returns repositories outside of any transaction, for reads.
	Repos() Repositories
	// WithTx runs fn with repositories bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error
}
