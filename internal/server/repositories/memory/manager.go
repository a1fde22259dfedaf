// Package memory is an in-process RepositoryManager. Units of work are
// serialized and roll back by restoring a snapshot of the whole store, which
// gives the same all-or-nothing behavior as the Postgres manager.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/commissions/internal/server/models"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/contracts"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/tickets"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/uploads"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/users"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/wallets"
)

type state struct {
	users       map[string]models.User
	wallets     map[string]models.Wallet
	txs         []models.WalletTransaction
	contracts   map[string]models.Contract
	uploads     map[string]models.Upload
	cancel      map[string]models.CancelTicket
	revision    map[string]models.RevisionTicket
	change      map[string]models.ChangeTicket
	resolutions map[string]models.ResolutionTicket
}

func newState() *state {
	return &state{
		users:       map[string]models.User{},
		wallets:     map[string]models.Wallet{},
		contracts:   map[string]models.Contract{},
		uploads:     map[string]models.Upload{},
		cancel:      map[string]models.CancelTicket{},
		revision:    map[string]models.RevisionTicket{},
		change:      map[string]models.ChangeTicket{},
		resolutions: map[string]models.ResolutionTicket{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		users:       cloneMap(s.users),
		wallets:     cloneMap(s.wallets),
		txs:         append([]models.WalletTransaction(nil), s.txs...),
		contracts:   cloneMap(s.contracts),
		uploads:     cloneMap(s.uploads),
		cancel:      cloneMap(s.cancel),
		revision:    cloneMap(s.revision),
		change:      cloneMap(s.change),
		resolutions: cloneMap(s.resolutions),
	}
}

// Manager implements repomanager.RepositoryManager in memory.
type Manager struct {
	mu sync.Mutex
	st *state
}

// NewManager returns an empty store.
func NewManager() *Manager {
	return &Manager{st: newState()}
}

// store is the handle shared by the repositories. When held is true the
// caller already owns the manager lock.
type store struct {
	m    *Manager
	held bool
}

func (s store) do(fn func(st *state) error) error {
	if !s.held {
		s.m.mu.Lock()
		defer s.m.mu.Unlock()
	}
	return fn(s.m.st)
}

type repositories struct {
	s store
}

func (r repositories) Wallets() wallets.Repository     { return walletRepo(r) }
func (r repositories) Contracts() contracts.Repository { return contractRepo(r) }
func (r repositories) Uploads() uploads.Repository     { return uploadRepo(r) }
func (r repositories) Tickets() tickets.Repository     { return ticketRepo(r) }
func (r repositories) Users() users.Repository         { return userRepo(r) }

// Repos returns repositories that lock the store per call.
func (m *Manager) Repos() repomanager.Repositories {
	return repositories{s: store{m: m}}
}

// WithTx runs fn with exclusive access to the store and restores the
// previous state when fn fails or panics.
func (m *Manager) WithTx(ctx context.Context, fn func(ctx context.Context, r repomanager.Repositories) error) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	defer func() {
		if p := recover(); p != nil {
			m.st = snapshot
			panic(p)
		}
		if err != nil {
			m.st = snapshot
		}
	}()

	return fn(ctx, repositories{s: store{m: m, held: true}})
}

func sortByCreated[T any](items []*T, key func(*T) (time.Time, string)) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return idi < idj
	})
}
