package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/commissions/internal/server/models"
	"github.com/dmitrijs2005/commissions/internal/server/repositories/memory"
	"github.com/dmitrijs2005/commissions/internal/server/storage"
	"github.com/stretchr/testify/require"
)

const (
	artistID = "artist-1"
	clientID = "client-1"
	adminID  = "admin-1"
	otherID  = "stranger-1"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	*Services
	repos *memory.Manager
	files *storage.MemoryStore
	clock *clock
}

func defaultOptions() Options {
	return Options{
		ReviewWindow:         72 * time.Hour,
		CounterWindow:        48 * time.Hour,
		GraceWindow:          7 * 24 * time.Hour,
		TicketResponseWindow: 48 * time.Hour,
		PaymentWindow:        72 * time.Hour,
		LapsePolicy:          FavorSubmitter,
	}
}

func newFixture(t *testing.T, tweak ...func(*Deps)) *fixture {
	t.Helper()
	repos := memory.NewManager()
	files := storage.NewMemoryStore()
	clk := &clock{now: t0}

	d := Deps{
		Repos:   repos,
		Files:   files,
		Admins:  NewAdminChecker(repos, []string{adminID}),
		Options: defaultOptions(),
		Now:     clk.Now,
	}
	for _, fn := range tweak {
		fn(&d)
	}
	return &fixture{Services: New(d), repos: repos, files: files, clock: clk}
}

func standardProposal(id string, total int64) models.Proposal {
	return models.Proposal{
		ID:                id,
		ArtistID:          artistID,
		ClientID:          clientID,
		Title:             "Character sheet",
		Flow:              models.FlowStandard,
		TotalCents:        total,
		DeadlineAt:        t0.Add(30 * 24 * time.Hour),
		RevisionsIncluded: 1,
		RevisionFeeCents:  1500,
	}
}

func milestoneProposal(id string, total int64, percents ...int64) models.Proposal {
	p := standardProposal(id, total)
	p.Flow = models.FlowMilestone
	for i, pc := range percents {
		p.Milestones = append(p.Milestones, models.Milestone{Title: "step " + string(rune('A'+i)), Percent: pc})
	}
	return p
}

func (f *fixture) fund(t *testing.T, userID string, amount int64) {
	t.Helper()
	_, err := f.Ledger.Deposit(context.Background(), adminID, userID, amount, "seed")
	require.NoError(t, err)
}

// newContract funds the client and finalizes p from the wallet.
func (f *fixture) newContract(t *testing.T, p models.Proposal) *models.Contract {
	t.Helper()
	f.fund(t, p.ClientID, p.TotalCents)
	c, err := f.Contracts.CreateFromProposal(context.Background(), p.ClientID, p, models.Payment{WalletCents: p.TotalCents})
	require.NoError(t, err)
	return c
}

func (f *fixture) contract(t *testing.T, id string) *models.Contract {
	t.Helper()
	c, err := f.repos.Repos().Contracts().Get(context.Background(), id)
	require.NoError(t, err)
	return c
}

func (f *fixture) wallet(t *testing.T, userID string) *models.Wallet {
	t.Helper()
	w, err := f.Ledger.GetWallet(context.Background(), userID)
	require.NoError(t, err)
	return w
}

// setStatus forces a contract into status for arrange steps.
func (f *fixture) setStatus(t *testing.T, id string, status models.ContractStatus) {
	t.Helper()
	c := f.contract(t, id)
	c.Status = status
	require.NoError(t, f.repos.Repos().Contracts().Update(context.Background(), c))
}

func (f *fixture) submitFinal(t *testing.T, contractID string) *models.Upload {
	t.Helper()
	u, err := f.Uploads.CreateUpload(context.Background(), artistID, contractID, UploadInput{
		Kind:   models.UploadFinal,
		Images: []string{"https://cdn.example.com/final.png"},
	})
	require.NoError(t, err)
	return u
}

// requireReconciled checks that the transaction log of userID adds up to
// the wallet balances and that no balance is negative.
func (f *fixture) requireReconciled(t *testing.T, userID string) {
	t.Helper()
	w := f.wallet(t, userID)
	txs, err := f.Ledger.ListTransactions(context.Background(), userID, 0)
	require.NoError(t, err)

	var available, escrowed int64
	for _, tx := range txs {
		if tx.Target == models.TargetEscrowed {
			escrowed += tx.Signed()
		} else {
			available += tx.Signed()
		}
	}
	require.GreaterOrEqual(t, w.AvailableCents, int64(0))
	require.GreaterOrEqual(t, w.EscrowedCents, int64(0))
	require.Equal(t, w.AvailableCents, available, "available of %s", userID)
	require.Equal(t, w.EscrowedCents, escrowed, "escrowed of %s", userID)
}
