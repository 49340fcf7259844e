package service

import (
	"context"
	"testing"

	"github.com/fathima-sithara/conversation-service/internal/domain"
	"github.com/fathima-sithara/conversation-service/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBlueTick_ApplyAndReview(t *testing.T) {
	store := memory.New()
	svc := NewBlueTickService(store.BlueTicks, nil, nil, zap.NewNop().Sugar())
	ctx := context.Background()
	req := ApplyRequest{Username: "jane.doe", FullName: "Jane Doe", Category: "creator"}

	app, err := svc.Apply(ctx, "u1", req)
	require.NoError(t, err)
	assert.Equal(t, domain.BlueTickPending, app.Status)

	_, err = svc.Apply(ctx, "u1", req)
	assert.ErrorIs(t, err, ErrApplicationExists)

	_, err = svc.ListPending(ctx, Reviewer{ID: "u2"})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	_, err = svc.Review(ctx, Reviewer{ID: "u2"}, app.ID, true, "")
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	admin := Reviewer{ID: "admin1", Admin: true}
	pending, err := svc.ListPending(ctx, admin)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	reviewed, err := svc.Review(ctx, admin, app.ID, true, "looks good")
	require.NoError(t, err)
	assert.Equal(t, domain.BlueTickApproved, reviewed.Status)
	assert.Equal(t, "admin1", reviewed.ReviewerID)
	require.NotNil(t, reviewed.ReviewedAt)

	_, err = svc.Review(ctx, admin, app.ID, false, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Review(ctx, admin, "missing", true, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Apply(ctx, "u1", req)
	assert.ErrorIs(t, err, ErrApplicationExists)

	got, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.BlueTickApproved, got.Status)
}

func TestBlueTick_ReapplyAfterRejection(t *testing.T) {
	store := memory.New()
	svc := NewBlueTickService(store.BlueTicks, nil, nil, zap.NewNop().Sugar())
	ctx := context.Background()
	req := ApplyRequest{Username: "shop_42", FullName: "Shop 42", Category: "business", DocumentURL: "https://example.com/reg.pdf"}

	app, err := svc.Apply(ctx, "u1", req)
	require.NoError(t, err)
	_, err = svc.Review(ctx, Reviewer{ID: "a", Admin: true}, app.ID, false, "blurry document")
	require.NoError(t, err)

	again, err := svc.Apply(ctx, "u1", req)
	require.NoError(t, err)
	assert.NotEqual(t, app.ID, again.ID)
}

func TestBlueTick_Validation(t *testing.T) {
	svc := NewBlueTickService(memory.New().BlueTicks, nil, nil, zap.NewNop().Sugar())
	ctx := context.Background()

	_, err := svc.Apply(ctx, "u1", ApplyRequest{Username: "No Spaces", FullName: "X Y", Category: "creator"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Apply(ctx, "u1", ApplyRequest{Username: "valid_name", FullName: "X Y", Category: "astronaut"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Get(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
