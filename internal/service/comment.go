package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"quitpath/internal/cache"
	"quitpath/internal/commenttree"
	"quitpath/internal/model"
	"quitpath/internal/queue"
)

const (
	DefaultCommentPageSize    = 50
	DefaultMaxCommentPages    = 20
	DefaultCommentLoadTimeout = time.Minute
)

// CommentAPI is the subset of the remote API the comment screen uses.
type CommentAPI interface {
	CommentsByPost(ctx context.Context, token, postID string, cursor *string, limit int) ([]model.Comment, *string, error)
	CreateComment(ctx context.Context, token, postID, content string, parentID *string) (*model.CreatedComment, error)
	UpdateComment(ctx context.Context, token, commentID, content string) (*model.Comment, error)
	DeleteComment(ctx context.Context, token, commentID string) (string, error)
}

// CommentPublisher emits notification events for new comments.
type CommentPublisher interface {
	PublishComment(ctx context.Context, event queue.CommentEvent) (string, error)
}

// CommentService keeps each post's cached comment forest in step with the
// mutations the remote API confirms. The forest is only changed after the
// API call succeeds.
type CommentService struct {
	api       CommentAPI
	store     cache.ForestStore
	publisher CommentPublisher // may be nil
	pageSize    int
	maxPages    int
	loadTimeout time.Duration
	loads       singleflight.Group
	log         *zap.Logger
}

type CommentServiceConfig struct {
	PageSize int
	MaxPages int

	// LoadTimeout bounds a whole forest load, every page included.
	LoadTimeout time.Duration
}

func NewCommentService(api CommentAPI, store cache.ForestStore, publisher CommentPublisher, cfg CommentServiceConfig, log *zap.Logger) *CommentService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultCommentPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxCommentPages
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultCommentLoadTimeout
	}
	return &CommentService{
		api:         api,
		store:       store,
		publisher:   publisher,
		pageSize:    cfg.PageSize,
		maxPages:    cfg.MaxPages,
		loadTimeout: cfg.LoadTimeout,
		log:         log.Named("comments"),
	}
}

// List returns the post's comment forest, loading it from the API when it is
// not cached. Concurrent misses by the same caller share one load.
func (s *CommentService) List(ctx context.Context, token, postID string) (*model.CommentListResponse, error) {
	forest, found, err := s.store.Get(ctx, postID)
	if err != nil {
		s.log.Warn("cache read failed, loading from api", zap.String("post", postID), zap.Error(err))
	}
	if !found {
		forest, err = s.loadShared(ctx, token, postID)
		if err != nil {
			return nil, err
		}
	}

	if forest == nil {
		forest = []model.Comment{}
	}
	return &model.CommentListResponse{
		PostID:   postID,
		Comments: forest,
		Total:    commenttree.Count(forest),
	}, nil
}

// loadShared joins the in-flight load for the post and token, or starts one.
// Loads are keyed by token so every page is fetched with the waiting caller's
// own credentials. The load runs detached from ctx: a caller that gives up
// returns early without failing the others.
func (s *CommentService) loadShared(ctx context.Context, token, postID string) ([]model.Comment, error) {
	ch := s.loads.DoChan(postID+"\x00"+token, func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()
		return s.load(lctx, token, postID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]model.Comment), nil
	}
}

// load pages through the post's comments, builds the forest and caches it
// unless a mutation landed while the pages were being fetched.
func (s *CommentService) load(ctx context.Context, token, postID string) ([]model.Comment, error) {
	gen, err := s.store.Generation(ctx, postID)
	if err != nil {
		s.log.Warn("forest generation unreadable, load will not be cached", zap.String("post", postID), zap.Error(err))
		gen = -1
	}

	var (
		flat   []model.Comment
		cursor *string
		pages  int
	)
	for pages < s.maxPages {
		page, next, err := s.api.CommentsByPost(ctx, token, postID, cursor, s.pageSize)
		if err != nil {
			return nil, err
		}
		flat = append(flat, page...)
		pages++
		if next == nil {
			break
		}
		cursor = next
	}
	if cursor != nil && pages == s.maxPages {
		s.log.Warn("comment page limit reached, forest truncated",
			zap.String("post", postID), zap.Int("pages", pages))
	}

	forest := commenttree.Build(flat)
	if gen >= 0 {
		stored, err := s.store.Fill(ctx, postID, forest, gen)
		switch {
		case err != nil:
			s.log.Warn("cache write failed", zap.String("post", postID), zap.Error(err))
		case !stored:
			s.log.Debug("forest changed during load, not cached", zap.String("post", postID))
		}
	}

	s.log.Debug("forest loaded",
		zap.String("post", postID),
		zap.Int("pages", pages),
		zap.Int("fetched", len(flat)),
		zap.Int("kept", commenttree.Count(forest)),
	)
	return forest, nil
}

// Create posts a comment or reply and inserts the confirmed node into the
// cached forest. A reply whose parent is not in the forest is logged and
// dropped from the cache; the caller still gets the created comment.
func (s *CommentService) Create(ctx context.Context, token, userID, postID string, req model.CreateCommentRequest) (*model.Comment, error) {
	content, err := model.NormalizeContent(req.Content)
	if err != nil {
		return nil, err
	}
	parentID := req.ParentCommentID
	if parentID != nil && *parentID == "" {
		parentID = nil
	}

	created, err := s.api.CreateComment(ctx, token, postID, content, parentID)
	if err != nil {
		return nil, err
	}
	comment := created.Comment
	if comment.PostID == "" {
		comment.PostID = postID
	}

	forest, applied, cached := s.apply(ctx, postID, "insert", func(f []model.Comment) ([]model.Comment, bool) {
		return commenttree.InsertReply(f, comment)
	})
	if cached && !applied {
		if _, present := commenttree.Find(forest, comment.ID); present {
			s.log.Debug("comment already in cached forest",
				zap.String("post", postID),
				zap.String("comment", comment.ID),
			)
		} else {
			s.log.Warn("reply parent not in cached forest, reply dropped",
				zap.String("post", postID),
				zap.String("comment", comment.ID),
				zap.Stringp("parent", comment.ParentCommentID),
			)
		}
	}

	s.log.Info("comment created",
		zap.String("post", postID),
		zap.String("comment", comment.ID),
		zap.String("user", userID),
		zap.Bool("reply", !comment.IsTopLevel()),
	)

	s.publishCreated(ctx, userID, created.PostAuthorID, comment, forest)
	return &comment, nil
}

// Update edits a comment's content and mirrors it into the cached forest.
func (s *CommentService) Update(ctx context.Context, token, postID, commentID string, req model.UpdateCommentRequest) (*model.Comment, error) {
	content, err := model.NormalizeContent(req.Content)
	if err != nil {
		return nil, err
	}

	updated, err := s.api.UpdateComment(ctx, token, commentID, content)
	if err != nil {
		return nil, err
	}
	if updated.ID == "" {
		updated.ID = commentID
	}

	forest, applied, _ := s.apply(ctx, postID, "update", func(f []model.Comment) ([]model.Comment, bool) {
		return commenttree.UpdateNode(f, *updated)
	})
	if applied {
		// The cached node carries the replies the API response lacks.
		if node, ok := commenttree.Find(forest, updated.ID); ok {
			return &node, nil
		}
	}
	return updated, nil
}

// Delete removes a comment and its replies from the API and the cached forest.
func (s *CommentService) Delete(ctx context.Context, token, postID, commentID string) error {
	deletedID, err := s.api.DeleteComment(ctx, token, commentID)
	if err != nil {
		return err
	}

	s.apply(ctx, postID, "delete", func(f []model.Comment) ([]model.Comment, bool) {
		return commenttree.DeleteNode(f, deletedID)
	})

	s.log.Info("comment deleted", zap.String("post", postID), zap.String("comment", deletedID))
	return nil
}

// apply runs fn against the cached forest. cached is false when nothing was
// cached or the store failed; a failed store is invalidated so the next List
// refetches instead of serving a stale forest.
func (s *CommentService) apply(ctx context.Context, postID, op string, fn cache.ApplyFunc) (forest []model.Comment, applied, cached bool) {
	forest, applied, err := s.store.Apply(ctx, postID, fn)
	switch {
	case err == nil:
		return forest, applied, true
	case errors.Is(err, cache.ErrCacheMiss):
		return nil, false, false
	}

	s.log.Warn("forest update failed, invalidating",
		zap.String("post", postID),
		zap.String("op", op),
		zap.Error(err),
	)
	if ierr := s.store.Invalidate(ctx, postID); ierr != nil {
		s.log.Error("invalidate failed", zap.String("post", postID), zap.Error(ierr))
	}
	return nil, false, false
}

// publishCreated emits the notification event. The recipient of a reply is the
// parent's author, looked up in the forest; when unknown the event carries no
// recipient and the worker skips it.
func (s *CommentService) publishCreated(ctx context.Context, userID, postAuthorID string, c model.Comment, forest []model.Comment) {
	if s.publisher == nil {
		return
	}

	actorName := ""
	if c.Author != nil {
		actorName = c.Author.Username
		if userID == "" {
			userID = c.Author.ID
		}
	}

	var event queue.CommentEvent
	if c.IsTopLevel() {
		event = queue.NewCommentCreatedEvent(c.PostID, c.ID, userID, actorName, postAuthorID, c.Content)
	} else {
		parentAuthor := ""
		if parent, ok := commenttree.Find(forest, *c.ParentCommentID); ok && parent.Author != nil {
			parentAuthor = parent.Author.ID
		}
		event = queue.NewReplyCreatedEvent(c.PostID, c.ID, *c.ParentCommentID, userID, actorName, parentAuthor, c.Content)
	}

	if event.SelfAuthored() {
		return
	}
	if _, err := s.publisher.PublishComment(ctx, event); err != nil {
		s.log.Warn("publish comment event failed", zap.String("comment", c.ID), zap.Error(err))
	}
}
