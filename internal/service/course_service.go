package service

import (
	"context"
	"course_hub_backend/internal/config"
	"course_hub_backend/internal/model"
	"course_hub_backend/internal/util"
	"course_hub_backend/pkg/cache"
	"course_hub_backend/pkg/logger"
	"course_hub_backend/pkg/monitoring"
	"course_hub_backend/pkg/tracing"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type CourseStore interface {
	FindByID(ctx context.Context, id string) (*model.Course, error)
	FindAll(ctx context.Context) ([]model.Course, error)
	Create(ctx context.Context, course *model.Course) error
	Save(ctx context.Context, course *model.Course) error
	UpdateFields(ctx context.Context, id string, patch *model.CoursePatch) error
	Delete(ctx context.Context, id string) error
}

// CourseCache fills keys only while no write has invalidated them since the
// caller read their generation.
type CourseCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Generation(ctx context.Context, key string) (int64, error)
	SetIfGeneration(ctx context.Context, key string, gen int64, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

type AssetStore interface {
	UploadImage(ctx context.Context, folder, encoded string) (model.Thumbnail, error)
	Destroy(ctx context.Context, publicID string) error
}

type CourseService struct {
	store      CourseStore
	cache      CourseCache
	gate       *EntitlementGate
	notifier   *NotificationService
	assets     AssetStore
	listKey    string
	maxRetries int

	ttl        atomic.Int64
	invalidate atomic.Bool
}

func NewCourseService(
	store CourseStore,
	courseCache CourseCache,
	gate *EntitlementGate,
	notifier *NotificationService,
	assets AssetStore,
	cfg *config.Config,
) *CourseService {
	s := &CourseService{
		store:      store,
		cache:      courseCache,
		gate:       gate,
		notifier:   notifier,
		assets:     assets,
		listKey:    cfg.Cache.ListKey,
		maxRetries: cfg.Course.MaxWriteRetries,
	}
	if s.listKey == "" {
		s.listKey = "allCourses"
	}
	s.SetCachePolicy(cfg.Cache)
	return s
}

// SetCachePolicy swaps the TTL and invalidation policy at runtime.
func (s *CourseService) SetCachePolicy(cfg config.CacheConfig) {
	s.ttl.Store(int64(cfg.CourseTTL))
	s.invalidate.Store(cfg.InvalidateOnWrite)
}

func (s *CourseService) cacheTTL() time.Duration {
	return time.Duration(s.ttl.Load())
}

type CreateCourseRequest struct {
	Name           string              `json:"name" binding:"required"`
	Description    string              `json:"description"`
	Price          float64             `json:"price" binding:"gte=0"`
	EstimatedPrice float64             `json:"estimatedPrice" binding:"gte=0"`
	Thumbnail      string              `json:"thumbnail"`
	Tags           string              `json:"tags"`
	Level          string              `json:"level"`
	DemoURL        string              `json:"demoUrl"`
	Benefits       []model.TitledItem  `json:"benefits"`
	Prerequisites  []model.TitledItem  `json:"prerequisites"`
	Content        []model.ContentItem `json:"courseData"`
}

type EditCourseRequest struct {
	model.CoursePatch
	Thumbnail *string `json:"thumbnail,omitempty"`
}

type AddQuestionRequest struct {
	Question string `json:"question" binding:"required"`
}

type AddAnswerRequest struct {
	Answer string `json:"answer" binding:"required"`
}

type AddReviewRequest struct {
	Review string `json:"review" binding:"required"`
	Rating int    `json:"rating" binding:"required"`
}

type AddReviewReplyRequest struct {
	Comment string `json:"comment" binding:"required"`
}

func (s *CourseService) startSpan(ctx context.Context, name, courseID string) (context.Context, trace.Span) {
	ctx, span := tracing.Tracer.Start(ctx, "CourseService."+name)
	span.SetAttributes(attribute.String("course.id", courseID))
	return ctx, span
}

// detach keeps the span and other values of ctx but drops its cancellation,
// so a client going away cannot abort a write or the eviction and
// notification that follow it. Email keeps its own mail.timeout deadline.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, util.ErrSideEffect) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// GetPublicCourse returns the public projection of one course, served from
// the cache while the cached snapshot is alive.
func (s *CourseService) GetPublicCourse(ctx context.Context, id string) (raw json.RawMessage, err error) {
	ctx, span := s.startSpan(ctx, "GetPublicCourse", id)
	defer func() { endSpan(span, err) }()

	if !model.IsValidID(id) {
		return nil, fmt.Errorf("%w: course id %q", util.ErrInvalidID, id)
	}

	if cached, ok := s.cacheGet(ctx, "course", id); ok {
		return cached, nil
	}
	gen, genErr := s.cache.Generation(ctx, id)

	course, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(course.PublicView())
	if err != nil {
		return nil, err
	}

	s.cacheFill(ctx, id, gen, genErr, data, s.cacheTTL())
	return data, nil
}

// ListPublicCourses returns the public projection of every course. The list
// snapshot has no expiry.
func (s *CourseService) ListPublicCourses(ctx context.Context) (raw json.RawMessage, err error) {
	ctx, span := s.startSpan(ctx, "ListPublicCourses", "")
	defer func() { endSpan(span, err) }()

	if cached, ok := s.cacheGet(ctx, "list", s.listKey); ok {
		return cached, nil
	}
	gen, genErr := s.cache.Generation(ctx, s.listKey)

	courses, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*model.Course, 0, len(courses))
	for i := range courses {
		views = append(views, courses[i].PublicView())
	}
	data, err := json.Marshal(views)
	if err != nil {
		return nil, err
	}

	s.cacheFill(ctx, s.listKey, gen, genErr, data, 0)
	return data, nil
}

// cacheFill stores a snapshot unless the key was invalidated after gen was
// read, in which case data may predate the write and is dropped.
func (s *CourseService) cacheFill(ctx context.Context, key string, gen int64, genErr error, data []byte, ttl time.Duration) {
	if genErr != nil {
		logger.Log.Warn("cache generation unavailable, skipping fill", zap.String("key", key), zap.Error(genErr))
		return
	}
	err := s.cache.SetIfGeneration(ctx, key, gen, data, ttl)
	switch {
	case err == nil:
	case errors.Is(err, cache.ErrStaleFill):
		logger.Log.Debug("cache fill superseded by a write", zap.String("key", key))
	default:
		logger.Log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *CourseService) cacheGet(ctx context.Context, kind, key string) (json.RawMessage, bool) {
	cached, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		monitoring.CacheRequests.WithLabelValues(kind, "hit").Inc()
		return cached, true
	case errors.Is(err, cache.ErrCacheMiss):
		monitoring.CacheRequests.WithLabelValues(kind, "miss").Inc()
	default:
		monitoring.CacheRequests.WithLabelValues(kind, "error").Inc()
		logger.Log.Warn("cache read failed, falling back to store", zap.String("key", key), zap.Error(err))
	}
	return nil, false
}

// GetCourseContent returns the full content tree to an actor that bought the
// course. The cache is not consulted.
func (s *CourseService) GetCourseContent(ctx context.Context, actor *model.Actor, id string) (content []model.ContentItem, err error) {
	ctx, span := s.startSpan(ctx, "GetCourseContent", id)
	defer func() { endSpan(span, err) }()

	if !s.gate.CanAccessFullContent(actor, id) {
		return nil, util.ErrPermissionDenied
	}

	course, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return course.Content, nil
}

// mutate runs load, apply and a versioned save, starting over from a fresh
// load whenever another writer saved the course in between.
func (s *CourseService) mutate(ctx context.Context, courseID string, apply func(*model.Course) error) (*model.Course, error) {
	for attempt := 0; ; attempt++ {
		course, err := s.store.FindByID(ctx, courseID)
		if err != nil {
			return nil, err
		}
		if err := apply(course); err != nil {
			return nil, err
		}

		err = s.store.Save(ctx, course)
		if err == nil {
			return course, nil
		}
		if !errors.Is(err, util.ErrVersionConflict) {
			return nil, err
		}

		monitoring.VersionConflicts.Inc()
		if attempt >= s.maxRetries {
			logger.Log.Warn("giving up on course write after conflicts",
				zap.String("course_id", courseID),
				zap.Int("attempts", attempt+1),
			)
			return nil, err
		}
		logger.Log.Debug("course changed concurrently, retrying",
			zap.String("course_id", courseID),
			zap.Int("attempt", attempt+1),
		)
	}
}

func (s *CourseService) evictAfterWrite(ctx context.Context, courseID string) {
	if !s.invalidate.Load() {
		return
	}
	keys := []string{s.listKey}
	if courseID != "" {
		keys = append(keys, courseID)
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		logger.Log.Warn("cache eviction failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// dispatch notifies the actor and, when an email request is given, mails the
// author of the entity that was acted upon.
func (s *CourseService) dispatch(ctx context.Context, actor *model.Actor, title, message string, authorID uint, mail *MailRequest) error {
	notifyErr := s.notifier.Notify(ctx, actor.UserID, title, message)
	if notifyErr != nil {
		monitoring.SideEffectFailures.WithLabelValues("notification").Inc()
	}

	var emailErr error
	if mail != nil {
		if _, emailErr = s.notifier.MaybeEmail(ctx, actor.UserID, authorID, *mail); emailErr != nil {
			monitoring.SideEffectFailures.WithLabelValues("email").Inc()
		}
	}
	return util.NewSideEffectError(notifyErr, emailErr)
}

func requireActor(actor *model.Actor) error {
	if actor == nil {
		return util.ErrUnauthorized
	}
	return nil
}

func (s *CourseService) AddQuestion(ctx context.Context, actor *model.Actor, courseID, contentID string, req AddQuestionRequest) (course *model.Course, err error) {
	ctx, span := s.startSpan(ctx, "AddQuestion", courseID)
	defer func() { endSpan(span, err) }()
	ctx = detach(ctx)

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Question)
	if text == "" {
		return nil, fmt.Errorf("%w: question must not be empty", util.ErrValidation)
	}

	var itemTitle string
	course, err = s.mutate(ctx, courseID, func(c *model.Course) error {
		item, err := c.FindContentItem(contentID)
		if err != nil {
			return err
		}
		item.AppendQuestion(actor.Snapshot(), text)
		itemTitle = item.Title
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.evictAfterWrite(ctx, courseID)

	return course, s.dispatch(ctx, actor, "New Question",
		fmt.Sprintf("You have a new question in %s", itemTitle), 0, nil)
}

func (s *CourseService) AddAnswer(ctx context.Context, actor *model.Actor, courseID, contentID, questionID string, req AddAnswerRequest) (course *model.Course, err error) {
	ctx, span := s.startSpan(ctx, "AddAnswer", courseID)
	defer func() { endSpan(span, err) }()
	ctx = detach(ctx)

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Answer)
	if text == "" {
		return nil, fmt.Errorf("%w: answer must not be empty", util.ErrValidation)
	}

	var (
		itemTitle string
		asker     model.AuthorSnapshot
	)
	course, err = s.mutate(ctx, courseID, func(c *model.Course) error {
		item, err := c.FindContentItem(contentID)
		if err != nil {
			return err
		}
		question, err := item.FindQuestion(questionID)
		if err != nil {
			return err
		}
		question.AppendReply(actor.Snapshot(), text)
		itemTitle = item.Title
		asker = question.Author
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.evictAfterWrite(ctx, courseID)

	return course, s.dispatch(ctx, actor, "New Question Reply received",
		fmt.Sprintf("You have a new question reply in %s", itemTitle), asker.ID,
		&MailRequest{
			Subject:  "Question Reply",
			Template: TemplateQuestionReply,
			Data:     map[string]string{"Name": asker.Name, "Title": itemTitle},
		})
}

func (s *CourseService) AddReview(ctx context.Context, actor *model.Actor, courseID string, req AddReviewRequest) (course *model.Course, err error) {
	ctx, span := s.startSpan(ctx, "AddReview", courseID)
	defer func() { endSpan(span, err) }()
	ctx = detach(ctx)

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !s.gate.CanReview(actor, courseID) {
		return nil, util.ErrPermissionDenied
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", util.ErrValidation)
	}

	course, err = s.mutate(ctx, courseID, func(c *model.Course) error {
		c.AppendReview(actor.Snapshot(), req.Rating, strings.TrimSpace(req.Review))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.evictAfterWrite(ctx, courseID)

	return course, s.dispatch(ctx, actor, "New Review Received",
		fmt.Sprintf("%s has given a review in %s", actor.Name, course.Name), 0, nil)
}

func (s *CourseService) AddReplyToReview(ctx context.Context, actor *model.Actor, courseID, reviewID string, req AddReviewReplyRequest) (course *model.Course, err error) {
	ctx, span := s.startSpan(ctx, "AddReplyToReview", courseID)
	defer func() { endSpan(span, err) }()
	ctx = detach(ctx)

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Comment)
	if text == "" {
		return nil, fmt.Errorf("%w: comment must not be empty", util.ErrValidation)
	}

	var reviewer model.AuthorSnapshot
	course, err = s.mutate(ctx, courseID, func(c *model.Course) error {
		review, err := c.FindReview(reviewID)
		if err != nil {
			return err
		}
		review.AppendReply(actor.Snapshot(), text)
		reviewer = review.Author
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.evictAfterWrite(ctx, courseID)

	return course, s.dispatch(ctx, actor, "New Review Reply",
		fmt.Sprintf("You have a new review reply in %s", course.Name), reviewer.ID,
		&MailRequest{
			Subject:  "Review Reply",
			Template: TemplateReviewReply,
			Data:     map[string]string{"Name": reviewer.Name, "Title": course.Name},
		})
}

func (s *CourseService) CreateCourse(ctx context.Context, req CreateCourseRequest) (course *model.Course, err error) {
	ctx, span := s.startSpan(ctx, "CreateCourse", "")
	defer func() { endSpan(span, err) }()
	ctx = detach(ctx)

	course = &model.Course{
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		Price:          req.Price,
		EstimatedPrice: req.EstimatedPrice,
		Tags:           req.Tags,
		Level:          req.Level,
		DemoURL:        req.DemoURL,
		Benefits:       datatypes.JSONSlice[model.TitledItem](req.Benefits),
		Prerequisites:  datatypes.JSONSlice[model.TitledItem](req.Prerequisites),
		Content:        datatypes.JSONSlice[model.ContentItem](req.Content),
	}
	if course.Name == "" {
		return nil, fmt.Errorf("%w: name is required", util.ErrValidation)
	}
	for i := range course.Content {
		// 客户端不能预置问答
		course.Content[i].ID = ""
		course.Content[i].Questions = nil
	}

	if req.Thumbnail != "" {
		thumb, err := s.assets.UploadImage(ctx, util.ThumbnailFolder, req.Thumbnail)
		if err != nil {
			return nil, err
		}
		course.Thumbnail = thumb
	}

	if err := s.store.Create(ctx, course); err != nil {
		if course.Thumbnail.PublicID != "" {
			if derr := s.assets.Destroy(ctx, course.Thumbnail.PublicID); derr != nil {
				logger.Log.Warn("orphaned thumbnail", zap.String("public_id", course.Thumbnail.PublicID), zap.Error(derr))
			}
		}
		return nil, err
	}
	s.evictAfterWrite(ctx, "")

	logger.Log.Info("course created", zap.String("course_id", course.ID), zap.String("name", course.Name))
	return course, nil
}

// EditCourse applies a metadata patch. A new thumbnail replaces the stored
// asset, which is then destroyed.
func (s *CourseService) EditCourse(ctx context.Context, id string, req EditCourseRequest) (course *model.Course, err error) {
	ctx, span := s.startSpan(ctx, "EditCourse", id)
	defer func() { endSpan(span, err) }()
	ctx = detach(ctx)

	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := req.CoursePatch
	patch.Thumbnail = nil
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be empty", util.ErrValidation)
	}

	var replaced string
	if req.Thumbnail != nil && *req.Thumbnail != "" && *req.Thumbnail != existing.Thumbnail.URL {
		thumb, err := s.assets.UploadImage(ctx, util.ThumbnailFolder, *req.Thumbnail)
		if err != nil {
			return nil, err
		}
		patch.Thumbnail = &thumb
		replaced = existing.Thumbnail.PublicID
	}

	if patch.IsEmpty() {
		return existing, nil
	}
	if err := s.store.UpdateFields(ctx, id, &patch); err != nil {
		if patch.Thumbnail != nil {
			if derr := s.assets.Destroy(ctx, patch.Thumbnail.PublicID); derr != nil {
				logger.Log.Warn("orphaned thumbnail", zap.String("public_id", patch.Thumbnail.PublicID), zap.Error(derr))
			}
		}
		return nil, err
	}
	s.evictAfterWrite(ctx, id)

	if replaced != "" {
		if err := s.assets.Destroy(ctx, replaced); err != nil {
			logger.Log.Warn("failed to destroy replaced thumbnail", zap.String("public_id", replaced), zap.Error(err))
		}
	}

	return s.store.FindByID(ctx, id)
}

// ListCoursesAdmin returns summary rows for every course, newest first.
func (s *CourseService) ListCoursesAdmin(ctx context.Context) (rows []model.CourseSummary, err error) {
	ctx, span := s.startSpan(ctx, "ListCoursesAdmin", "")
	defer func() { endSpan(span, err) }()

	courses, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	rows = make([]model.CourseSummary, 0, len(courses))
	for i := range courses {
		rows = append(rows, courses[i].Summary())
	}
	return rows, nil
}

func (s *CourseService) DeleteCourse(ctx context.Context, id string) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteCourse", id)
	defer func() { endSpan(span, err) }()
	ctx = detach(ctx)

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	keys := []string{id}
	if s.invalidate.Load() {
		keys = append(keys, s.listKey)
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		logger.Log.Warn("cache eviction failed", zap.Strings("keys", keys), zap.Error(err))
	}

	logger.Log.Info("course deleted", zap.String("course_id", id))
	return nil
}
