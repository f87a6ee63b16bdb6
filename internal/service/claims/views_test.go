package claims

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/mystery-box/internal/models"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		raw     string
		want    Filter
		wantErr bool
	}{
		{"", FilterAll, false},
		{"all", FilterAll, false},
		{"Pending", FilterPending, false},
		{"opened", FilterOpened, false},
		{" delivered ", FilterDelivered, false},
		{"cancelled", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFilter(tt.raw)
		if tt.wantErr {
			assert.True(t, errors.Is(err, ErrValidation), tt.raw)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got)
	}
}

func TestList(t *testing.T) {
	f := newFixture(t, nil)
	f.seedUser(t, "ash", "ash@example.com")
	ctx := context.Background()

	c1 := f.seedPendingClaim(t, "pay_1", "ash")
	f.seedPendingClaim(t, "pay_2", "ash")
	_, err := f.svc.Open(ctx, c1.ID, admin)
	require.NoError(t, err)

	all, err := f.svc.List(FilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	opened, err := f.svc.List(FilterOpened)
	require.NoError(t, err)
	require.Len(t, opened, 1)

	view := opened[0]
	assert.Equal(t, c1.ID, view.ID)
	assert.Equal(t, "ash", view.UserName)
	assert.Equal(t, "ash@example.com", view.UserEmail)
	require.NotNil(t, view.PaymentAmount)
	assert.Equal(t, int64(500), *view.PaymentAmount)
	assert.Equal(t, "usd", view.PaymentCurrency)
	assert.NotEmpty(t, view.PrizeName)
	assert.NotNil(t, view.PrizeValue)

	pending, err := f.svc.List(FilterPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Empty(t, pending[0].PrizeName)
	assert.Nil(t, pending[0].PrizeValue)

	delivered, err := f.svc.List(FilterDelivered)
	require.NoError(t, err)
	assert.Empty(t, delivered)
}

func TestLegacyBoxNumber(t *testing.T) {
	tests := []struct {
		notes  string
		want   int
		wantOK bool
	}{
		{"Direct admin opening by a@b.c - Box #17 - Womp Womp (No user assigned)", 17, true},
		{"Manually opened by admin a@b.c (box #3)", 3, true},
		{"Prize opened for Ash (Box 42)", 42, true},
		{"opened from box 250", 0, false},
		{"Shelf label box 12, handle with care", 0, false},
		{"shipped in mailbox #9", 0, false},
		{"Manually opened by admin a@b.c", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := legacyBoxNumber(tt.notes)
		assert.Equal(t, tt.wantOK, ok, tt.notes)
		assert.Equal(t, tt.want, got, tt.notes)
	}
}

func TestOpenedBoxes_Fallbacks(t *testing.T) {
	f := newFixture(t, nil)
	f.seedUser(t, "ash", "ash@example.com")
	ctx := context.Background()

	// Structured box number.
	_, err := f.svc.DirectBoxOpening(ctx, DirectRequest{BoxNumber: 5, PrizeName: "151 ETB"}, admin)
	require.NoError(t, err)

	prizeType, err := f.svc.engine.Resolve(f.svc.engine.ByName("Womp Womp", nil, ""))
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	legacy := func(id, notes string, offset time.Duration) {
		openedAt := base.Add(offset)
		require.NoError(t, f.claims.Create(&models.PrizeClaim{
			ID:          id,
			UserID:      "ash",
			PrizeTypeID: &prizeType.ID,
			Status:      models.ClaimStatusOpened,
			Notes:       notes,
			OpenedAt:    &openedAt,
		}))
	}
	// Opened first: no box anywhere, position 1.
	legacy("legacy_positional", "Manually opened by admin old@example.com", -time.Minute)
	// Box recovered from notes.
	legacy("legacy_notes", "Direct admin opening by old@example.com - Box #9 - Womp Womp", 0)

	boxes, total, err := f.svc.OpenedBoxes()
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, boxes, 3)

	assert.Equal(t, "151 ETB", boxes[5].Prize)
	assert.True(t, boxes[5].Opened)
	assert.Equal(t, models.GlowGold, boxes[5].Glow)
	assert.Equal(t, "Womp Womp", boxes[9].Prize)
	assert.Equal(t, "Womp Womp", boxes[1].Prize)
}

func TestBoard(t *testing.T) {
	f := newFixture(t, nil)
	f.seedUser(t, "ash", "ash@example.com")
	ctx := context.Background()

	box := 3
	claim, err := f.svc.CreateManual(ctx, ManualRequest{UserEmail: "ash@example.com", BoxNumber: &box}, admin)
	require.NoError(t, err)
	_, err = f.svc.MarkDelivered(ctx, claim.ID, admin)
	require.NoError(t, err)

	_, err = f.svc.DirectBoxOpening(ctx, DirectRequest{BoxNumber: 1000, PrizeName: "Custom Pokémon Art"}, admin)
	require.NoError(t, err)

	board, err := f.svc.Board()
	require.NoError(t, err)

	assert.Equal(t, 1000, board.Total)
	assert.Equal(t, 2, board.Opened)
	require.Len(t, board.Boxes, 1000)

	third := board.Boxes[2]
	assert.Equal(t, 3, third.Number)
	assert.True(t, third.Opened, "delivered boxes stay opened on the board")
	assert.Equal(t, "151 ETB", third.Prize)
	assert.Equal(t, claim.ID, third.ClaimID)

	last := board.Boxes[999]
	assert.True(t, last.Opened)
	assert.Equal(t, "Custom Pokémon Art", last.Prize)

	unopened := board.Boxes[0]
	assert.Equal(t, 1, unopened.Number)
	assert.False(t, unopened.Opened)
	assert.Empty(t, unopened.Prize, "unopened boxes do not reveal their prize")
}

func TestPendingUsers(t *testing.T) {
	f := newFixture(t, nil)
	f.seedUser(t, "ash", "ash@example.com")
	f.seedUser(t, "misty", "misty@example.com")

	claim := f.seedPendingClaim(t, "pay_1", "ash")
	f.seedPayment(t, "pay_orphan", "misty")

	users, err := f.svc.PendingUsers()
	require.NoError(t, err)
	require.Len(t, users, 2)

	byUser := map[string]PendingUser{}
	for _, u := range users {
		byUser[u.ID] = u
	}

	ash := byUser["ash"]
	require.NotNil(t, ash.ClaimID)
	assert.Equal(t, claim.ID, *ash.ClaimID)
	assert.Equal(t, int64(500), ash.PaymentAmount)
	assert.Equal(t, "ash@example.com", ash.Email)

	misty := byUser["misty"]
	assert.Nil(t, misty.ClaimID)
	require.NotNil(t, misty.PaymentID)
	assert.Equal(t, "pay_orphan", *misty.PaymentID)
	assert.Equal(t, "misty@example.com", misty.Email)
}
