package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"quitpath/internal/model"
)

// LikeAPI is the subset of the remote API used for likes.
type LikeAPI interface {
	LikePost(ctx context.Context, token, postID string) (*model.LikeState, error)
	UnlikePost(ctx context.Context, token, postID string) (*model.LikeState, error)
}

type likeKey struct {
	userID string
	postID string
}

type likeEntry struct {
	state      model.LikeState
	countKnown bool   // state.LikeCount came from the server
	version    uint64 // bumped on every toggle
	inFlight   int
}

func (e *likeEntry) response() model.ToggleLikeResponse {
	resp := model.ToggleLikeResponse{
		PostID:  e.state.PostID,
		Liked:   e.state.Liked,
		Pending: e.inFlight > 0,
	}
	if e.countKnown {
		n := e.state.LikeCount
		resp.LikeCount = &n
	}
	return resp
}

// LikeService applies like toggles optimistically. The local state flips as
// soon as a toggle starts, is reconciled with the server's count when the
// call succeeds and rolled back when it fails. A response only touches the
// state if no newer toggle has started since. The count is only adjusted
// optimistically once the server has reported one; before that it is unknown.
type LikeService struct {
	api LikeAPI

	mu      sync.Mutex
	entries map[likeKey]*likeEntry

	log *zap.Logger
}

func NewLikeService(api LikeAPI, log *zap.Logger) *LikeService {
	return &LikeService{
		api:     api,
		entries: make(map[likeKey]*likeEntry),
		log:     log.Named("likes"),
	}
}

func (s *LikeService) Like(ctx context.Context, token, userID, postID string) (*model.ToggleLikeResponse, error) {
	return s.toggle(ctx, token, userID, postID, true)
}

func (s *LikeService) Unlike(ctx context.Context, token, userID, postID string) (*model.ToggleLikeResponse, error) {
	return s.toggle(ctx, token, userID, postID, false)
}

// State returns the current local view. ok is false when the post was never
// toggled by the user in this process.
func (s *LikeService) State(userID, postID string) (resp model.ToggleLikeResponse, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[likeKey{userID, postID}]
	if !ok {
		return model.ToggleLikeResponse{}, false
	}
	return e.response(), true
}

func (s *LikeService) toggle(ctx context.Context, token, userID, postID string, like bool) (*model.ToggleLikeResponse, error) {
	key := likeKey{userID, postID}

	s.mu.Lock()
	e, existed := s.entries[key]
	if !existed {
		e = &likeEntry{state: model.LikeState{PostID: postID}}
		s.entries[key] = e
	}
	snapshot, snapshotKnown := e.state, e.countKnown
	if e.state.Liked != like {
		e.state.Liked = like
		if e.countKnown {
			if like {
				e.state.LikeCount++
			} else if e.state.LikeCount > 0 {
				e.state.LikeCount--
			}
		}
	}
	e.version++
	e.inFlight++
	version := e.version
	s.mu.Unlock()

	var (
		server *model.LikeState
		err    error
	)
	if like {
		server, err = s.api.LikePost(ctx, token, postID)
	} else {
		server, err = s.api.UnlikePost(ctx, token, postID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e.inFlight--
	superseded := e.version != version

	if err != nil {
		if !superseded {
			if !existed {
				delete(s.entries, key)
			} else {
				e.state, e.countKnown = snapshot, snapshotKnown
			}
		}
		s.log.Debug("toggle rolled back",
			zap.String("post", postID),
			zap.String("user", userID),
			zap.Bool("like", like),
			zap.Bool("superseded", superseded),
			zap.Error(err),
		)
		return nil, err
	}

	if !superseded {
		e.state = *server
		e.countKnown = true
	}
	resp := e.response()
	return &resp, nil
}
