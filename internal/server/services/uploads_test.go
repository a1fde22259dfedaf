package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardFlow_AcceptFinal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.newContract(t, standardProposal("p1", 10000))

	progress := 80
	u, err := f.Uploads.CreateUpload(ctx, artistID, c.ID, UploadInput{
		Kind: models.UploadFinal, Images: []string{"final.png"}, WorkProgress: &progress,
	})
	require.NoError(t, err)
	assert.Equal(t, models.UploadSubmitted, u.Status)
	require.NotNil(t, u.ExpiresAt)
	assert.Equal(t, t0.Add(72*time.Hour), *u.ExpiresAt)
	assert.Equal(t, 80, *u.WorkProgress)

	f.clock.Advance(time.Hour)
	got, err := f.Uploads.ReviewUpload(ctx, clientID, models.UploadFinal, u.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.UploadAccepted, got.Status)

	k := f.contract(t, c.ID)
	assert.Equal(t, models.StatusCompleted, k.Status)
	assert.Equal(t, int64(10000), k.Finance.OwedArtistCents)
	assert.Zero(t, k.Finance.OwedClientCents)

	_, err = f.Contracts.ClaimFunds(ctx, c.ID, artistID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), f.wallet(t, artistID).AvailableCents)
	assert.Zero(t, f.wallet(t, clientID).EscrowedCents)
}

func TestStandardFlow_AutoAcceptThroughSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.newContract(t, standardProposal("p1", 10000))
	f.submitFinal(t, c.ID)

	f.clock.Advance(72*time.Hour + time.Minute)
	sum, err := f.Reconciler.ProcessContractExpirations(ctx, c.ID, clientID)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.UploadsAutoAccepted)
	assert.Empty(t, sum.Errors)

	k := f.contract(t, c.ID)
	assert.Equal(t, models.StatusCompleted, k.Status)
	assert.Equal(t, int64(10000), k.Finance.OwedArtistCents)

	again, err := f.Reconciler.ProcessContractExpirations(ctx, c.ID, clientID)
	require.NoError(t, err)
	assert.Zero(t, again.Processed())
	assert.Equal(t, models.StatusCompleted, f.contract(t, c.ID).Status)
}

func TestMilestoneFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.newContract(t, milestoneProposal("p1", 10000, 30, 30, 40))

	deliver := func(isFinal bool) {
		t.Helper()
		u, err := f.Uploads.CreateUpload(ctx, artistID, c.ID, UploadInput{
			Kind: models.UploadProgressMilestone, Images: []string{"m.png"}, IsFinal: isFinal,
		})
		require.NoError(t, err)
		_, err = f.Uploads.ReviewUpload(ctx, clientID, models.UploadProgressMilestone, u.ID, true)
		require.NoError(t, err)
	}

	_, err := f.Uploads.CreateUpload(ctx, artistID, c.ID, UploadInput{
		Kind: models.UploadProgressMilestone, Images: []string{"m.png"}, IsFinal: true,
	})
	require.ErrorIs(t, err, common.ErrorValidation)

	deliver(false)
	k := f.contract(t, c.ID)
	assert.Equal(t, 1, k.CurrentMilestoneIndex)
	assert.Equal(t, int64(3000), k.Finance.OwedArtistCents)
	assert.Equal(t, int64(3000), k.Finance.ArtistClaimedCents)
	assert.Equal(t, int64(7000), k.Finance.EscrowedCents)
	assert.Equal(t, models.StatusActive, k.Status)
	assert.Equal(t, int64(3000), f.wallet(t, artistID).AvailableCents)
	assert.Equal(t, int64(7000), f.wallet(t, clientID).EscrowedCents)

	deliver(false)
	k = f.contract(t, c.ID)
	assert.Equal(t, 2, k.CurrentMilestoneIndex)
	assert.Equal(t, int64(6000), k.Finance.OwedArtistCents)
	assert.Equal(t, int64(6000), f.wallet(t, artistID).AvailableCents)
	assert.Equal(t, int64(4000), f.wallet(t, clientID).EscrowedCents)

	_, err = f.Uploads.CreateUpload(ctx, artistID, c.ID, UploadInput{
		Kind: models.UploadProgressMilestone, Images: []string{"m.png"},
	})
	require.ErrorIs(t, err, common.ErrorValidation)

	deliver(true)
	k = f.contract(t, c.ID)
	assert.Equal(t, models.StatusCompleted, k.Status)
	assert.Equal(t, int64(10000), k.Finance.OwedArtistCents)
	assert.Zero(t, k.Finance.EscrowedCents)
	assert.Equal(t, int64(10000), f.wallet(t, artistID).AvailableCents)
	assert.Zero(t, f.wallet(t, clientID).EscrowedCents)

	_, err = f.Contracts.ClaimFunds(ctx, c.ID, artistID)
	require.ErrorIs(t, err, common.ErrNothingToClaim)
	f.requireReconciled(t, artistID)
	f.requireReconciled(t, clientID)

	first, err := f.Uploads.ListMilestoneUploads(ctx, clientID, c.ID, 0)
	require.NoError(t, err)
	assert.Len(t, first, 1)
}

func TestMilestoneFlow_RejectKeepsContract(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.newContract(t, milestoneProposal("p1", 10000, 50, 50))

	u, err := f.Uploads.CreateUpload(ctx, artistID, c.ID, UploadInput{Kind: models.UploadProgressMilestone, Images: []string{"a"}})
	require.NoError(t, err)
	_, err = f.Uploads.ReviewUpload(ctx, clientID, models.UploadProgressMilestone, u.ID, false)
	require.NoError(t, err)

	k := f.contract(t, c.ID)
	assert.Equal(t, models.StatusActive, k.Status)
	assert.Zero(t, k.CurrentMilestoneIndex)
	assert.Zero(t, k.Finance.OwedArtistCents)

	_, err = f.Uploads.CreateUpload(ctx, artistID, c.ID, UploadInput{Kind: models.UploadProgressMilestone, Images: []string{"b"}})
	require.NoError(t, err)
}

func TestMilestoneSlice(t *testing.T) {
	tests := []struct {
		total    int64
		percents []int64
		want     []int64
	}{
		{10000, []int64{30, 30, 40}, []int64{3000, 3000, 4000}},
		{1001, []int64{33, 33, 34}, []int64{330, 330, 341}},
		{999, []int64{50, 50}, []int64{500, 499}},
		{1, []int64{100}, []int64{1}},
	}
	for _, tc := range tests {
		p := milestoneProposal("p", tc.total, tc.percents...)
		var sum int64
		for i, want := range tc.want {
			got := milestoneSlice(p, i)
			assert.Equal(t, want, got, "total %d milestone %d", tc.total, i)
			sum += got
		}
		assert.Equal(t, tc.total, sum)
	}
}

func TestCreateUpload_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.newContract(t, standardProposal("p1", 10000))

	_, err := f.Uploads.CreateUpload(ctx, clientID, c.ID, UploadInput{Kind: models.UploadFinal, Images: []string{"x"}})
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = f.Uploads.CreateUpload(ctx, artistID, c.ID, UploadInput{Kind: models.UploadFinal})
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = f.Uploads.CreateUpload(ctx, artistID, c.ID, UploadInput{Kind: "sketch", Images: []string{"x"}})
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = f.Uploads.CreateUpload(ctx, artistID, c.ID, UploadInput{Kind: models.UploadProgressMilestone, Images: []string{"x"}})
	assert.ErrorIs(t, err, common.ErrInvalidState)

	info, err := f.Uploads.CreateUpload(ctx, artistID, c.ID, UploadInput{Kind: models.UploadProgressStandard, Images: []string{"wip.png"}})
	require.NoError(t, err)
	assert.Empty(t, info.Status)
	assert.Nil(t, info.ExpiresAt)

	f.submitFinal(t, c.ID)
	_, err = f.Uploads.CreateUpload(ctx, artistID, c.ID, UploadInput{Kind: models.UploadFinal, Images: []string{"again"}})
	assert.ErrorIs(t, err, common.ErrInvalidState)

	all, err := f.Uploads.ListUploads(ctx, clientID, c.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	finals, err := f.Uploads.ListUploads(ctx, clientID, c.ID, models.UploadFinal)
	require.NoError(t, err)
	assert.Len(t, finals, 1)
	_, err = f.Uploads.ListUploads(ctx, otherID, c.ID, "")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestCreateUpload_StoresAttachments(t *testing.T) {
	f := newFixture(t)
	c := f.newContract(t, standardProposal("p1", 10000))

	u, err := f.Uploads.CreateUpload(context.Background(), artistID, c.ID, UploadInput{
		Kind:        models.UploadProgressStandard,
		Images:      []string{"https://cdn.example.com/hosted.png"},
		Attachments: []Attachment{{Name: "sketch.png", ContentType: "image/png", Data: []byte("png")}},
	})
	require.NoError(t, err)
	require.Len(t, u.Images, 2)
	assert.True(t, strings.HasPrefix(u.Images[0], "mem://contracts/"+c.ID+"/uploads/"), u.Images[0])
	assert.Equal(t, "https://cdn.example.com/hosted.png", u.Images[1])

	data, ok := f.files.Get(u.Images[0])
	require.True(t, ok)
	assert.Equal(t, []byte("png"), data)
}

func TestReviewUpload_Guards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.newContract(t, standardProposal("p1", 10000))
	u := f.submitFinal(t, c.ID)

	_, err := f.Uploads.ReviewUpload(ctx, artistID, models.UploadFinal, u.ID, true)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = f.Uploads.ReviewUpload(ctx, clientID, models.UploadRevision, u.ID, true)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	f.clock.Advance(73 * time.Hour)
	_, err = f.Uploads.ReviewUpload(ctx, clientID, models.UploadFinal, u.ID, true)
	assert.ErrorIs(t, err, common.ErrTooLate)
	assert.Equal(t, models.StatusActive, f.contract(t, c.ID).Status)
}

func TestReviewUpload_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.newContract(t, standardProposal("p1", 10000))
	u := f.submitFinal(t, c.ID)

	_, err := f.Uploads.ReviewUpload(ctx, clientID, models.UploadFinal, u.ID, false)
	require.NoError(t, err)
	_, err = f.Uploads.ReviewUpload(ctx, clientID, models.UploadFinal, u.ID, true)
	assert.ErrorIs(t, err, common.ErrInvalidState)
}

func TestRejectFinal_RevisionRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.newContract(t, standardProposal("p1", 10000))
	u := f.submitFinal(t, c.ID)

	_, err := f.Uploads.ReviewUpload(ctx, clientID, models.UploadFinal, u.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInRevision, f.contract(t, c.ID).Status)

	rev, err := f.Uploads.CreateUpload(ctx, artistID, c.ID, UploadInput{Kind: models.UploadRevision, Images: []string{"fix.png"}})
	require.NoError(t, err)
	_, err = f.Uploads.ReviewUpload(ctx, clientID, models.UploadRevision, rev.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInRevision, f.contract(t, c.ID).Status)

	rev, err = f.Uploads.CreateUpload(ctx, artistID, c.ID, UploadInput{Kind: models.UploadRevision, Images: []string{"fix2.png"}})
	require.NoError(t, err)
	_, err = f.Uploads.ReviewUpload(ctx, clientID, models.UploadRevision, rev.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, f.contract(t, c.ID).Status)

	final := f.submitFinal(t, c.ID)
	_, err = f.Uploads.ReviewUpload(ctx, clientID, models.UploadFinal, final.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, f.contract(t, c.ID).Status)
}

func TestCompletion_LateWhenDeliveredAfterDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.newContract(t, standardProposal("p1", 10000))

	f.clock.now = c.DeadlineAt.Add(time.Hour)
	u := f.submitFinal(t, c.ID)
	_, err := f.Uploads.ReviewUpload(ctx, clientID, models.UploadFinal, u.ID, true)
	require.NoError(t, err)

	k := f.contract(t, c.ID)
	assert.Equal(t, models.StatusCompletedLate, k.Status)
	assert.Equal(t, int64(10000), k.Finance.OwedArtistCents)
}

func TestAutoAcceptExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.newContract(t, standardProposal("p1", 10000))
	u := f.submitFinal(t, c.ID)

	done, err := f.Uploads.AutoAcceptExpired(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, done, "window still open")

	f.clock.Advance(80 * time.Hour)
	f.setStatus(t, c.ID, models.StatusDisputed)
	done, err = f.Uploads.AutoAcceptExpired(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, done, "disputed contract holds the upload")

	f.setStatus(t, c.ID, models.StatusActive)
	done, err = f.Uploads.AutoAcceptExpired(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, models.StatusCompleted, f.contract(t, c.ID).Status)

	done, err = f.Uploads.AutoAcceptExpired(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, done)

	_, err = f.Uploads.AutoAcceptExpired(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
