package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quitpath/internal/model"
)

type mockLikeAPI struct {
	likeFn   func(ctx context.Context, token, postID string) (*model.LikeState, error)
	unlikeFn func(ctx context.Context, token, postID string) (*model.LikeState, error)
}

func (m *mockLikeAPI) LikePost(ctx context.Context, token, postID string) (*model.LikeState, error) {
	return m.likeFn(ctx, token, postID)
}

func (m *mockLikeAPI) UnlikePost(ctx context.Context, token, postID string) (*model.LikeState, error) {
	return m.unlikeFn(ctx, token, postID)
}

func intPtr(n int) *int { return &n }

func TestLikeService_ReconcilesWithServer(t *testing.T) {
	api := &mockLikeAPI{
		likeFn: func(ctx context.Context, token, postID string) (*model.LikeState, error) {
			return &model.LikeState{PostID: postID, Liked: true, LikeCount: 12}, nil
		},
	}
	svc := NewLikeService(api, zap.NewNop())

	resp, err := svc.Like(context.Background(), "tok", "u1", "p1")
	require.NoError(t, err)
	assert.True(t, resp.Liked)
	assert.Equal(t, intPtr(12), resp.LikeCount)
	assert.False(t, resp.Pending)

	state, ok := svc.State("u1", "p1")
	require.True(t, ok)
	assert.Equal(t, intPtr(12), state.LikeCount)
}

func TestLikeService_OptimisticWhileInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := &mockLikeAPI{
		unlikeFn: func(ctx context.Context, token, postID string) (*model.LikeState, error) {
			return &model.LikeState{PostID: postID, Liked: false, LikeCount: 4}, nil
		},
		likeFn: func(ctx context.Context, token, postID string) (*model.LikeState, error) {
			close(started)
			<-release
			return &model.LikeState{PostID: postID, Liked: true, LikeCount: 5}, nil
		},
	}
	svc := NewLikeService(api, zap.NewNop())

	// Seed a known count.
	_, err := svc.Unlike(context.Background(), "tok", "u1", "p1")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := svc.Like(context.Background(), "tok", "u1", "p1")
		assert.NoError(t, err)
	}()

	<-started
	state, ok := svc.State("u1", "p1")
	require.True(t, ok)
	assert.True(t, state.Liked)
	assert.Equal(t, intPtr(5), state.LikeCount)
	assert.True(t, state.Pending)

	close(release)
	<-done

	state, _ = svc.State("u1", "p1")
	assert.False(t, state.Pending)
}

func TestLikeService_RollbackOnFailure(t *testing.T) {
	fail := errors.New("network")
	api := &mockLikeAPI{
		likeFn: func(ctx context.Context, token, postID string) (*model.LikeState, error) {
			return &model.LikeState{PostID: postID, Liked: true, LikeCount: 3}, nil
		},
		unlikeFn: func(ctx context.Context, token, postID string) (*model.LikeState, error) {
			return nil, fail
		},
	}
	svc := NewLikeService(api, zap.NewNop())

	_, err := svc.Like(context.Background(), "tok", "u1", "p1")
	require.NoError(t, err)

	_, err = svc.Unlike(context.Background(), "tok", "u1", "p1")
	assert.ErrorIs(t, err, fail)

	state, ok := svc.State("u1", "p1")
	require.True(t, ok)
	assert.True(t, state.Liked)
	assert.Equal(t, intPtr(3), state.LikeCount)
}

func TestLikeService_RollbackForgetsUnknownPost(t *testing.T) {
	api := &mockLikeAPI{
		likeFn: func(ctx context.Context, token, postID string) (*model.LikeState, error) {
			return nil, model.ErrPostNotFound
		},
	}
	svc := NewLikeService(api, zap.NewNop())

	_, err := svc.Like(context.Background(), "tok", "u1", "p1")
	assert.ErrorIs(t, err, model.ErrPostNotFound)

	_, ok := svc.State("u1", "p1")
	assert.False(t, ok)
}

// A stale failure must not undo a newer toggle.
func TestLikeService_SupersededFailureKeepsNewerState(t *testing.T) {
	likeStarted := make(chan struct{})
	releaseLike := make(chan struct{})
	api := &mockLikeAPI{
		likeFn: func(ctx context.Context, token, postID string) (*model.LikeState, error) {
			close(likeStarted)
			<-releaseLike
			return nil, errors.New("timeout")
		},
		unlikeFn: func(ctx context.Context, token, postID string) (*model.LikeState, error) {
			return &model.LikeState{PostID: postID, Liked: false, LikeCount: 7}, nil
		},
	}
	svc := NewLikeService(api, zap.NewNop())

	likeErr := make(chan error, 1)
	go func() {
		_, err := svc.Like(context.Background(), "tok", "u1", "p1")
		likeErr <- err
	}()
	<-likeStarted

	resp, err := svc.Unlike(context.Background(), "tok", "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, intPtr(7), resp.LikeCount)
	assert.True(t, resp.Pending, "the like call is still in flight")

	close(releaseLike)
	assert.Error(t, <-likeErr)

	state, ok := svc.State("u1", "p1")
	require.True(t, ok)
	assert.False(t, state.Liked)
	assert.Equal(t, intPtr(7), state.LikeCount)
	assert.False(t, state.Pending)
}

func TestLikeService_UsersAreIndependent(t *testing.T) {
	api := &mockLikeAPI{
		likeFn: func(ctx context.Context, token, postID string) (*model.LikeState, error) {
			return &model.LikeState{PostID: postID, Liked: true, LikeCount: 1}, nil
		},
	}
	svc := NewLikeService(api, zap.NewNop())

	_, err := svc.Like(context.Background(), "tok", "u1", "p1")
	require.NoError(t, err)

	_, ok := svc.State("u2", "p1")
	assert.False(t, ok)
}

// Before the server has reported a count there is nothing to add the toggle
// to, so no count is shown instead of a guessed one.
func TestLikeService_FirstToggleHasNoCountUntilConfirmed(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := &mockLikeAPI{
		likeFn: func(ctx context.Context, token, postID string) (*model.LikeState, error) {
			close(started)
			<-release
			return &model.LikeState{PostID: postID, Liked: true, LikeCount: 41}, nil
		},
	}
	svc := NewLikeService(api, zap.NewNop())

	done := make(chan *model.ToggleLikeResponse, 1)
	go func() {
		resp, err := svc.Like(context.Background(), "tok", "u1", "p1")
		assert.NoError(t, err)
		done <- resp
	}()

	<-started
	state, ok := svc.State("u1", "p1")
	require.True(t, ok)
	assert.True(t, state.Liked)
	assert.True(t, state.Pending)
	assert.Nil(t, state.LikeCount)

	close(release)
	resp := <-done
	assert.Equal(t, intPtr(41), resp.LikeCount)
}
