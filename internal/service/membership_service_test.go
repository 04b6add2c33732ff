package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glebk/study-bot/internal/apperror"
)

func TestEnsureMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, created, err := f.membership.EnsureMember(ctx, Member{ID: 1, Username: "ann", FirstName: "Ann", GroupID: testGroup})
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, user.Registered)
	assert.True(t, user.Restricted)

	user, created, err = f.membership.EnsureMember(ctx, Member{ID: 1, Username: "ann_k", FirstName: "Ann", GroupID: testGroup})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "ann_k", user.Username)
	assert.Equal(t, "ann_k", f.user(t, 1).Username)
}

func TestOnJoinRestrictsUntilAccepted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.membership.OnJoin(ctx, Member{ID: 1, FirstName: "Bo", GroupID: testGroup})
	require.NoError(t, err)
	assert.True(t, user.Restricted)
	assert.Equal(t, []moderation{{UserID: 1, Restricted: true}}, f.moderator.actions)

	already, err := f.membership.AcceptDeclaration(ctx, 1)
	require.NoError(t, err)
	assert.False(t, already)

	user = f.user(t, 1)
	assert.True(t, user.Registered)
	assert.False(t, user.Restricted)
	assert.NotNil(t, user.DeclarationAcceptedAt)
	assert.Contains(t, f.moderator.actions, moderation{UserID: 1, Restricted: false})

	already, err = f.membership.AcceptDeclaration(ctx, 1)
	require.NoError(t, err)
	assert.True(t, already)

	// a registered member rejoining is not muted again
	f.moderator.actions = nil
	_, err = f.membership.OnJoin(ctx, Member{ID: 1, FirstName: "Bo", GroupID: testGroup})
	require.NoError(t, err)
	assert.Empty(t, f.moderator.actions)
}

func TestAcceptDeclaration_UnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.membership.AcceptDeclaration(context.Background(), 5)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeclineDeclaration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(t, 1, false)
	f.member(t, 2, true)

	require.NoError(t, f.membership.DeclineDeclaration(ctx, 1))
	assert.True(t, f.user(t, 1).Restricted)

	assert.ErrorIs(t, f.membership.DeclineDeclaration(ctx, 2), apperror.ErrPolicy)
}

func TestListMembers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.member(t, 1, false)
	f.member(t, 2, true)

	members, err := f.membership.ListMembers(ctx, testGroup)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}
