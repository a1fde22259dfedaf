package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/server/models"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestWithTx_RollsBackOnError(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	_, err := m.Repos().Wallets().Credit(ctx, "u1", models.TargetAvailable, 100, now)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = m.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		if _, err := r.Wallets().Debit(ctx, "u1", models.TargetAvailable, 60, now); err != nil {
			return err
		}
		if _, err := r.Wallets().Credit(ctx, "u2", models.TargetAvailable, 60, now); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	w, err := m.Repos().Wallets().Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), w.AvailableCents)

	_, err = m.Repos().Wallets().Get(ctx, "u2")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = m.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
			_, _ = r.Wallets().Credit(ctx, "u1", models.TargetAvailable, 5, now)
			panic("kaboom")
		})
	})

	_, err := m.Repos().Wallets().Get(ctx, "u1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestWalletDebit_InsufficientFunds(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	_, err := m.Repos().Wallets().Debit(ctx, "nobody", models.TargetAvailable, 1, now)
	assert.ErrorIs(t, err, common.ErrInsufficientFunds)

	_, err = m.Repos().Wallets().Credit(ctx, "u1", models.TargetEscrowed, 10, now)
	require.NoError(t, err)
	_, err = m.Repos().Wallets().Debit(ctx, "u1", models.TargetEscrowed, 11, now)
	assert.ErrorIs(t, err, common.ErrInsufficientFunds)
}

func TestContracts_VersionAndUniqueness(t *testing.T) {
	m := NewManager()
	ctx := context.Background()
	repo := m.Repos().Contracts()

	c := &models.Contract{ID: "k1", ProposalID: "p1", ArtistID: "a", ClientID: "c", Status: models.StatusActive, CreatedAt: now}
	require.NoError(t, repo.Create(ctx, c))
	assert.Equal(t, int64(1), c.Version)

	err := repo.Create(ctx, &models.Contract{ID: "k2", ProposalID: "p1"})
	assert.ErrorIs(t, err, common.ErrDuplicateAction)

	stale, err := repo.Get(ctx, "k1")
	require.NoError(t, err)

	c.Status = models.StatusInRevision
	require.NoError(t, repo.Update(ctx, c))
	assert.Equal(t, int64(2), c.Version)

	stale.Status = models.StatusDisputed
	assert.ErrorIs(t, repo.Update(ctx, stale), common.ErrVersionConflict)

	list, err := repo.ListByParty(ctx, "c", []models.ContractStatus{models.StatusInRevision})
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = repo.ListByParty(ctx, "c", []models.ContractStatus{models.StatusActive})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUploads_OneSubmittedPerKind(t *testing.T) {
	m := NewManager()
	ctx := context.Background()
	repo := m.Repos().Uploads()

	require.NoError(t, repo.Create(ctx, &models.Upload{ID: "u1", ContractID: "k1", Kind: models.UploadFinal, Status: models.UploadSubmitted, CreatedAt: now}))
	err := repo.Create(ctx, &models.Upload{ID: "u2", ContractID: "k1", Kind: models.UploadFinal, Status: models.UploadSubmitted, CreatedAt: now})
	assert.ErrorIs(t, err, common.ErrInvalidState)

	u, err := repo.FindSubmitted(ctx, "k1", models.UploadFinal)
	require.NoError(t, err)
	u.Status = models.UploadAccepted
	require.NoError(t, repo.UpdateReview(ctx, u))
	assert.ErrorIs(t, repo.UpdateReview(ctx, u), common.ErrVersionConflict)

	_, err = repo.FindSubmitted(ctx, "k1", models.UploadFinal)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestTickets_StatusGate(t *testing.T) {
	m := NewManager()
	ctx := context.Background()
	repo := m.Repos().Tickets()

	open := &models.CancelTicket{TicketBase: models.TicketBase{ID: "t1", ContractID: "k1", Status: models.TicketOpen, CreatedAt: now}}
	require.NoError(t, repo.CreateCancel(ctx, open))
	err := repo.CreateCancel(ctx, &models.CancelTicket{TicketBase: models.TicketBase{ID: "t2", ContractID: "k1", Status: models.TicketOpen}})
	assert.ErrorIs(t, err, common.ErrDuplicateAction)

	open.Status = models.TicketRejected
	require.NoError(t, repo.UpdateCancel(ctx, open, models.TicketOpen))
	assert.ErrorIs(t, repo.UpdateCancel(ctx, open, models.TicketOpen), common.ErrVersionConflict)

	list, err := repo.ListCancel(ctx, "k1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.TicketRejected, list[0].Status)
}
