package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/server/config"
	"github.com/dmitrijs2005/commissions/internal/server/locks"
	"github.com/dmitrijs2005/commissions/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocker struct {
	err      error
	held     map[string]bool
	released []string
}

func (l *fakeLocker) TryLock(_ context.Context, key string) (locks.Release, error) {
	if l.err != nil {
		return nil, l.err
	}
	if l.held[key] {
		return nil, locks.ErrHeld
	}
	return func(context.Context) error {
		l.released = append(l.released, key)
		return nil
	}, nil
}

func TestSweep_ExpiresOverdueTickets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.newContract(t, standardProposal("p1", 10000))

	_, err := f.Tickets.CreateCancelTicket(ctx, clientID, c.ID, "changed my mind")
	require.NoError(t, err)
	_, err = f.Tickets.CreateChangeTicket(ctx, clientID, c.ID, ChangeInput{ProposedChange: "bigger"})
	require.NoError(t, err)

	f.clock.Advance(47 * time.Hour)
	sum, err := f.Reconciler.ProcessContractExpirations(ctx, c.ID, artistID)
	require.NoError(t, err)
	assert.Zero(t, sum.Processed())
	assert.Equal(t, 1, sum.ContractsScanned)

	f.clock.Advance(2 * time.Hour)
	sum, err = f.Reconciler.ProcessContractExpirations(ctx, c.ID, artistID)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TicketsExpired)

	set, err := f.Tickets.ListTickets(ctx, clientID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketExpired, set.Cancel[0].Status)
	assert.Equal(t, models.TicketExpired, set.Change[0].Status)
	assert.Equal(t, models.StatusActive, f.contract(t, c.ID).Status)

	sum, err = f.Reconciler.ProcessContractExpirations(ctx, c.ID, artistID)
	require.NoError(t, err)
	assert.Zero(t, sum.Processed())
}

func TestSweep_DisputedTicketIsNotExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.newContract(t, standardProposal("p1", 10000))

	tk, err := f.Tickets.CreateCancelTicket(ctx, clientID, c.ID, "artist vanished")
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	rt := openDispute(t, f, clientID, c.ID, models.TargetCancelTicket, tk.ID)
	_, err = f.Resolutions.SubmitCounterproof(ctx, artistID, rt.ID, CounterproofInput{Description: "I am here"})
	require.NoError(t, err)

	f.clock.Advance(72 * time.Hour)
	sum, err := f.Reconciler.ProcessContractExpirations(ctx, c.ID, clientID)
	require.NoError(t, err)
	assert.Zero(t, sum.TicketsExpired)

	_, err = f.Resolutions.ResolveDispute(ctx, rt.ID, adminID, models.FavorClient, "")
	require.NoError(t, err)
	set, err := f.Tickets.ListTickets(ctx, clientID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketAccepted, set.Cancel[0].Status)
}

func TestSweep_GracePeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.newContract(t, standardProposal("p1", 10000))

	f.clock.now = c.DeadlineAt.Add(8 * 24 * time.Hour)
	sum, err := f.Reconciler.ProcessContractExpirations(ctx, c.ID, clientID)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.ContractsNotCompleted)
	assert.Equal(t, models.StatusNotCompleted, f.contract(t, c.ID).Status)
	assert.Equal(t, int64(10000), f.wallet(t, clientID).AvailableCents)

	sum, err = f.Reconciler.ProcessContractExpirations(ctx, c.ID, clientID)
	require.NoError(t, err)
	assert.Zero(t, sum.Processed())
}

func TestSweep_AutoAcceptBeforeGrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.newContract(t, standardProposal("p1", 10000))

	f.clock.now = c.DeadlineAt.Add(-time.Hour)
	f.submitFinal(t, c.ID)

	f.clock.now = c.DeadlineAt.Add(10 * 24 * time.Hour)
	sum, err := f.Reconciler.ProcessContractExpirations(ctx, c.ID, clientID)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.UploadsAutoAccepted)
	assert.Zero(t, sum.ContractsNotCompleted)
	assert.Equal(t, models.StatusCompleted, f.contract(t, c.ID).Status)
}

func TestSweep_AllUserContracts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.newContract(t, standardProposal("p1", 10000))
	b := f.newContract(t, standardProposal("p2", 5000))
	done := f.newContract(t, standardProposal("p3", 1000))

	f.submitFinal(t, a.ID)
	f.submitFinal(t, b.ID)
	u := f.submitFinal(t, done.ID)
	_, err := f.Uploads.ReviewUpload(ctx, clientID, models.UploadFinal, u.ID, true)
	require.NoError(t, err)

	f.clock.Advance(100 * time.Hour)
	sum, err := f.Reconciler.ProcessAllUserExpirations(ctx, artistID)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.ContractsScanned)
	assert.Equal(t, 2, sum.UploadsAutoAccepted)
	assert.Empty(t, sum.Errors)

	sum, err = f.Reconciler.ProcessAllUserExpirations(ctx, otherID)
	require.NoError(t, err)
	assert.Zero(t, sum.ContractsScanned)

	sum, err = f.Reconciler.ProcessAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, sum.ContractsScanned)
}

func TestSweep_ProcessAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.newContract(t, standardProposal("p1", 10000))
	f.newContract(t, standardProposal("p2", 10000))
	f.submitFinal(t, a.ID)

	f.clock.Advance(73 * time.Hour)
	sum, err := f.Reconciler.ProcessAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.ContractsScanned)
	assert.Equal(t, 1, sum.UploadsAutoAccepted)
}

func TestSweep_Scoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.newContract(t, standardProposal("p1", 10000))

	_, err := f.Reconciler.ProcessContractExpirations(ctx, c.ID, otherID)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	_, err = f.Reconciler.ProcessContractExpirations(ctx, "missing", clientID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	sum, err := f.Reconciler.ProcessContractExpirations(ctx, c.ID, adminID)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.ContractsScanned)
}

func TestSweep_Locking(t *testing.T) {
	locker := &fakeLocker{held: map[string]bool{}}
	f := newFixture(t, func(d *Deps) { d.Locker = locker })
	ctx := context.Background()
	c := f.newContract(t, standardProposal("p1", 10000))
	f.submitFinal(t, c.ID)
	f.clock.Advance(73 * time.Hour)

	locker.held["contract:"+c.ID] = true
	sum, err := f.Reconciler.ProcessContractExpirations(ctx, c.ID, clientID)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Zero(t, sum.ContractsScanned)
	assert.Equal(t, models.StatusActive, f.contract(t, c.ID).Status)

	locker.err = errors.New("redis: connection refused")
	sum, err = f.Reconciler.ProcessContractExpirations(ctx, c.ID, clientID)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.UploadsAutoAccepted, "sweep proceeds unlocked")
	assert.Empty(t, locker.released)

	locker.err = nil
	delete(locker.held, "contract:"+c.ID)
	_, err = f.Reconciler.ProcessContractExpirations(ctx, c.ID, clientID)
	require.NoError(t, err)
	assert.Equal(t, []string{"contract:" + c.ID}, locker.released)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		ReviewWindow:               time.Hour,
		CounterWindow:              2 * time.Hour,
		GraceWindow:                3 * time.Hour,
		TicketResponseWindow:       4 * time.Hour,
		PaymentWindow:              5 * time.Hour,
		AllowConcurrentResolutions: true,
		LapsePolicy:                config.LapseEscalate,
	}
	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, opts.ReviewWindow)
	assert.Equal(t, 5*time.Hour, opts.PaymentWindow)
	assert.True(t, opts.AllowConcurrentResolutions)
	assert.True(t, opts.LapsePolicy(&models.ResolutionTicket{}).Escalate)

	cfg.LapsePolicy = "nope"
	_, err = OptionsFromConfig(cfg)
	assert.ErrorIs(t, err, common.ErrorValidation)
}
