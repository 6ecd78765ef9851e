package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/puertonuevo/portal-api/internal/dto"
	"github.com/puertonuevo/portal-api/internal/models"
	"github.com/puertonuevo/portal-api/internal/observability"
	"github.com/puertonuevo/portal-api/internal/repository"
	"github.com/puertonuevo/portal-api/internal/staged"
	"github.com/puertonuevo/portal-api/internal/taxonomy"
	"github.com/puertonuevo/portal-api/internal/textfix"
	cloud "github.com/puertonuevo/portal-api/pkg/cloudinary"
)

const (
	defaultFeedLimit     = 80
	maxFeedLimit         = 200
	defaultFeedSinceDays = 30
	maxTitleLength       = 160
	maxDescriptionLength = 5000
)

// ActivityService publishes and reads the activities of each ambiente.
type ActivityService interface {
	FamilyAmbientes(ctx context.Context, uid string) (dto.FamilyAmbientesResponse, error)
	List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error)
	Get(ctx context.Context, id string) (dto.ActivityResponse, error)
	Create(ctx context.Context, payload dto.ActivityCreateRequest, files []*multipart.FileHeader) (dto.ActivityResponse, error)
	UpdateMeta(ctx context.Context, id string, payload dto.ActivityUpdateRequest, actor AuditActor) (dto.ActivityResponse, error)
	Delete(ctx context.Context, id string, items []dto.ActivityItemResponse, actor AuditActor) (dto.ActivityDeleteResponse, error)
	Categories() []taxonomy.Category
}

// ActivityServiceConfig lists the collaborators of the activity service.
// Cache, Publisher, Audit and Fixer are optional.
type ActivityServiceConfig struct {
	Activities  repository.ActivityRepository
	Resolver    AmbienteResolver
	Storage     ObjectStorage
	Validator   *validator.Validate
	Cache       *redis.Client
	CacheTTL    time.Duration
	Publisher   ActivityPublisher
	Audit       AuditRecorder
	Fixer       *textfix.Fixer
	MaxUploadMB int
	Now         func() time.Time
}

type activityService struct {
	repo      repository.ActivityRepository
	resolver  AmbienteResolver
	storage   ObjectStorage
	validator *validator.Validate
	cache     *activityFeedCache
	publisher ActivityPublisher
	audit     AuditRecorder
	fixer     *textfix.Fixer
	maxSize   int64
	now       func() time.Time
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewActivityService constructs the activity service.
func NewActivityService(cfg ActivityServiceConfig, logger zerolog.Logger) ActivityService {
	validate := cfg.Validator
	if validate == nil {
		validate = NewValidator()
	}
	maxUploadMB := cfg.MaxUploadMB
	if maxUploadMB <= 0 {
		maxUploadMB = defaultMaxUploadMB
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	serviceLogger := logger.With().Str("component", "activity_service").Logger()

	var cache *activityFeedCache
	if cfg.Cache != nil {
		cache = newActivityFeedCache(cfg.Cache, cfg.CacheTTL, serviceLogger)
	}

	return &activityService{
		repo:      cfg.Activities,
		resolver:  cfg.Resolver,
		storage:   cfg.Storage,
		validator: validate,
		cache:     cache,
		publisher: cfg.Publisher,
		audit:     cfg.Audit,
		fixer:     cfg.Fixer,
		maxSize:   int64(maxUploadMB) * 1024 * 1024,
		now:       now,
		logger:    serviceLogger,
		tracer:    otel.Tracer("github.com/puertonuevo/portal-api/internal/service/activity"),
	}
}

func (s *activityService) Categories() []taxonomy.Category {
	return taxonomy.All()
}

func (s *activityService) FamilyAmbientes(ctx context.Context, uid string) (dto.FamilyAmbientesResponse, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return dto.FamilyAmbientesResponse{}, newValidationError("uid", "user id is required")
	}

	ctx, span := s.tracer.Start(ctx, "activities.family_ambientes")
	defer span.End()

	ambientes := s.resolver.Resolve(ctx, uid)
	span.SetAttributes(attribute.StringSlice("family.ambientes", ambientes))

	return dto.FamilyAmbientesResponse{UID: uid, Ambientes: ambientes}, nil
}

func (s *activityService) List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	start := time.Now()
	defer func() {
		observability.ActivityFeedLatency().Observe(time.Since(start).Seconds())
	}()

	sinceDays := defaultFeedSinceDays
	if req.SinceDays != nil {
		sinceDays = *req.SinceDays
	}
	if sinceDays < 0 {
		sinceDays = 0
	}
	limit := defaultFeedLimit
	if req.Limit != nil {
		limit = clampFeedLimit(*req.Limit)
	}
	allowed := normalizeAmbienteFilter(req.Ambientes)

	cacheKey := ""
	if s.cache.enabled() {
		key, err := s.cache.key(ctx, sinceDays, limit, allowed)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to read activity feed generation")
		}
		cacheKey = key
		if cached, ok := s.cache.get(ctx, cacheKey); ok {
			cached.CacheHit = true
			observability.ActivityFeedRequests().WithLabelValues("hit").Inc()
			return cached, nil
		}
	}

	filter := repository.ActivityFilter{Limit: limit}
	if sinceDays > 0 {
		since := s.now().Add(-time.Duration(sinceDays) * 24 * time.Hour)
		filter.Since = &since
	}

	activities, err := s.repo.ListRecent(ctx, filter)
	if err != nil {
		observability.ActivityFeedRequests().WithLabelValues("error").Inc()
		return dto.ActivityListResponse{}, err
	}

	visible := make([]models.Activity, 0, len(activities))
	for _, activity := range activities {
		if len(allowed) > 0 && !containsString(allowed, activity.Ambiente) {
			continue
		}
		s.repairText(&activity)
		visible = append(visible, activity)
	}

	response := dto.ActivityListResponse{
		Items: dto.NewActivityResponseSlice(visible),
		Count: len(visible),
	}
	s.cache.set(ctx, cacheKey, response)
	observability.ActivityFeedRequests().WithLabelValues("miss").Inc()

	return response, nil
}

func (s *activityService) Get(ctx context.Context, id string) (dto.ActivityResponse, error) {
	activity, err := s.load(ctx, id)
	if err != nil {
		return dto.ActivityResponse{}, err
	}
	s.repairText(&activity)
	return dto.NewActivityResponse(activity), nil
}

func (s *activityService) Create(ctx context.Context, payload dto.ActivityCreateRequest, files []*multipart.FileHeader) (dto.ActivityResponse, error) {
	ctx, span := s.tracer.Start(ctx, "activities.create")
	defer span.End()

	payload.Title = strings.TrimSpace(payload.Title)
	payload.Description = strings.TrimSpace(payload.Description)
	payload.Ambiente = strings.ToLower(strings.TrimSpace(payload.Ambiente))
	payload.CreatedBy = strings.TrimSpace(payload.CreatedBy)
	payload.CreatedByRole = strings.ToLower(strings.TrimSpace(payload.CreatedByRole))

	if err := s.validator.Struct(payload); err != nil {
		return dto.ActivityResponse{}, failSpan(span, describeValidation(err), "validation failed")
	}

	selection, err := taxonomy.Resolve(payload.Category, payload.CustomCategory)
	if err != nil {
		return dto.ActivityResponse{}, failSpan(span, newValidationError("category", "%s", err.Error()), "validation failed")
	}

	if err := validateFiles(files, s.maxSize); err != nil {
		return dto.ActivityResponse{}, failSpan(span, err, "validation failed")
	}

	links, err := normalizeLinks(payload.Links)
	if err != nil {
		return dto.ActivityResponse{}, failSpan(span, err, "validation failed")
	}

	if len(files) == 0 && len(links) == 0 {
		return dto.ActivityResponse{}, failSpan(span, newValidationError("items", "must add at least one attachment or link"), "validation failed")
	}

	dueDate, err := parseDueDate(payload.DueDate)
	if err != nil {
		return dto.ActivityResponse{}, failSpan(span, err, "validation failed")
	}

	activityID := uuid.NewString()
	span.SetAttributes(
		attribute.String("activity.id", activityID),
		attribute.String("activity.ambiente", payload.Ambiente),
		attribute.Int("activity.files", len(files)),
		attribute.Int("activity.links", len(links)),
	)

	var write staged.Write
	items := make([]models.ActivityItem, 0, len(files)+len(links))
	for index, file := range files {
		item, err := s.uploadAttachment(ctx, activityID, payload.CreatedBy, index, file)
		if err != nil {
			observability.AttachmentUploads().WithLabelValues("failed").Inc()
			s.logger.Error().Err(err).Str("activity_id", activityID).Str("file", file.Filename).Msg("attachment upload failed")
			s.rollback(ctx, &write, activityID)
			return dto.ActivityResponse{}, failSpan(span, &OperationError{
				Kind:    ErrAttachmentUpload,
				Message: fmt.Sprintf("could not upload %s, the activity was not published", strings.TrimSpace(file.Filename)),
				Err:     err,
			}, "upload failed")
		}
		path := item.Path
		write.Record(path, func(ctx context.Context) error {
			return s.removeObject(ctx, path)
		})
		observability.AttachmentUploads().WithLabelValues("stored").Inc()
		items = append(items, item)
	}
	items = append(items, links...)

	activity := models.Activity{
		ID:             activityID,
		Ambiente:       payload.Ambiente,
		Title:          payload.Title,
		Description:    payload.Description,
		Category:       selection.Category,
		CustomCategory: selection.CustomCategory,
		CategoryLabel:  selection.Label,
		DueDate:        dueDate,
		Items:          datatypes.JSONSlice[models.ActivityItem](items),
		CreatedBy:      payload.CreatedBy,
		CreatedByName:  strings.TrimSpace(payload.CreatedByName),
		CreatedByRole:  payload.CreatedByRole,
	}

	if err := s.repo.Create(ctx, &activity); err != nil {
		s.logger.Error().Err(err).Str("activity_id", activityID).Msg("failed to persist activity")
		s.rollback(ctx, &write, activityID)
		return dto.ActivityResponse{}, failSpan(span, &OperationError{Kind: ErrActivityPersist, Message: ErrActivityPersist.Error(), Err: err}, "persistence failed")
	}
	write.Commit()

	observability.ActivitiesPublished().WithLabelValues(activity.Ambiente).Inc()
	s.afterWrite(ctx, ActivityEvent{
		Type:       EventActivityPublished,
		ActivityID: activity.ID,
		Ambiente:   activity.Ambiente,
		Title:      activity.Title,
		ItemCount:  activity.ItemCount,
		ActorUID:   activity.CreatedBy,
	}, AuditEntry{
		ActorUID:   activity.CreatedBy,
		ActorRole:  activity.CreatedByRole,
		Action:     EventActivityPublished,
		EntityType: "activity",
		EntityID:   activity.ID,
		Metadata: map[string]interface{}{
			"ambiente":   activity.Ambiente,
			"title":      activity.Title,
			"item_count": activity.ItemCount,
		},
	})

	span.SetStatus(codes.Ok, "published")
	return dto.NewActivityResponse(activity), nil
}

func (s *activityService) UpdateMeta(ctx context.Context, id string, payload dto.ActivityUpdateRequest, actor AuditActor) (dto.ActivityResponse, error) {
	ctx, span := s.tracer.Start(ctx, "activities.update_meta", trace.WithAttributes(attribute.String("activity.id", id)))
	defer span.End()

	current, err := s.load(ctx, id)
	if err != nil {
		return dto.ActivityResponse{}, failSpan(span, err, "lookup failed")
	}

	fields := map[string]interface{}{}
	if payload.Title != nil {
		title := strings.TrimSpace(*payload.Title)
		if title == "" {
			return dto.ActivityResponse{}, failSpan(span, newValidationError("title", "title is required"), "validation failed")
		}
		if utf8.RuneCountInString(title) > maxTitleLength {
			return dto.ActivityResponse{}, failSpan(span, newValidationError("title", "title must be at most %d characters", maxTitleLength), "validation failed")
		}
		fields["title"] = title
	}
	if payload.Description != nil {
		description := strings.TrimSpace(*payload.Description)
		if utf8.RuneCountInString(description) > maxDescriptionLength {
			return dto.ActivityResponse{}, failSpan(span, newValidationError("description", "description must be at most %d characters", maxDescriptionLength), "validation failed")
		}
		fields["description"] = description
	}
	if payload.DueDate.Set {
		dueDate, err := parseDueDate(payload.DueDate.String())
		if err != nil {
			return dto.ActivityResponse{}, failSpan(span, err, "validation failed")
		}
		if dueDate == nil {
			fields["due_date"] = nil
		} else {
			fields["due_date"] = *dueDate
		}
	}
	if payload.Category != nil || payload.CustomCategory != nil {
		category := current.Category
		if payload.Category != nil {
			category = *payload.Category
		}
		custom := current.CustomCategory
		if payload.CustomCategory != nil {
			custom = *payload.CustomCategory
		}
		selection, err := taxonomy.Resolve(category, custom)
		if err != nil {
			return dto.ActivityResponse{}, failSpan(span, newValidationError("category", "%s", err.Error()), "validation failed")
		}
		fields["category"] = selection.Category
		fields["custom_category"] = selection.CustomCategory
		fields["category_label"] = selection.Label
	}

	if len(fields) == 0 {
		s.repairText(&current)
		return dto.NewActivityResponse(current), nil
	}

	changed := make([]string, 0, len(fields))
	for field := range fields {
		changed = append(changed, field)
	}
	sort.Strings(changed)
	// Partial updates skip model hooks, so the timestamp is set here.
	fields["updated_at"] = s.now()

	if err := s.repo.UpdateFields(ctx, current.ID, fields); err != nil {
		s.logger.Error().Err(err).Str("activity_id", current.ID).Msg("failed to update activity")
		return dto.ActivityResponse{}, failSpan(span, &OperationError{Kind: ErrActivityPersist, Message: ErrActivityPersist.Error(), Err: err}, "persistence failed")
	}

	updated, err := s.load(ctx, current.ID)
	if err != nil {
		return dto.ActivityResponse{}, failSpan(span, err, "reload failed")
	}

	s.afterWrite(ctx, ActivityEvent{
		Type:       EventActivityUpdated,
		ActivityID: updated.ID,
		Ambiente:   updated.Ambiente,
		Title:      updated.Title,
		ItemCount:  updated.ItemCount,
		ActorUID:   actor.UID,
	}, AuditEntry{
		ActorUID:   actor.UID,
		ActorRole:  actor.Role,
		Action:     EventActivityUpdated,
		EntityType: "activity",
		EntityID:   updated.ID,
		Metadata:   map[string]interface{}{"fields": changed},
	})

	s.repairText(&updated)
	return dto.NewActivityResponse(updated), nil
}

func (s *activityService) Delete(ctx context.Context, id string, items []dto.ActivityItemResponse, actor AuditActor) (dto.ActivityDeleteResponse, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return dto.ActivityDeleteResponse{}, newValidationError("id", "activity id is required")
	}

	ctx, span := s.tracer.Start(ctx, "activities.delete", trace.WithAttributes(attribute.String("activity.id", id)))
	defer span.End()

	warnings := make([]string, 0)
	for _, item := range items {
		if item.Kind != string(models.ItemKindFile) || strings.TrimSpace(item.Path) == "" {
			continue
		}
		if err := s.removeObject(ctx, item.Path); err != nil {
			s.logger.Warn().Err(err).Str("activity_id", id).Str("path", item.Path).Msg("failed to delete attachment")
			warnings = append(warnings, fmt.Sprintf("could not delete %s (%s)", item.Label, item.Path))
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("activity_id", id).Msg("failed to delete activity")
		return dto.ActivityDeleteResponse{}, failSpan(span, &OperationError{Kind: ErrActivityPersist, Message: "could not delete the activity", Err: err}, "persistence failed")
	}

	s.afterWrite(ctx, ActivityEvent{
		Type:       EventActivityDeleted,
		ActivityID: id,
		ActorUID:   actor.UID,
	}, AuditEntry{
		ActorUID:   actor.UID,
		ActorRole:  actor.Role,
		Action:     EventActivityDeleted,
		EntityType: "activity",
		EntityID:   id,
		Metadata:   map[string]interface{}{"warnings": len(warnings)},
	})

	span.SetAttributes(attribute.Int("activity.cleanup_warnings", len(warnings)))
	return dto.ActivityDeleteResponse{ID: id, Warnings: warnings}, nil
}

func (s *activityService) load(ctx context.Context, id string) (models.Activity, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Activity{}, newValidationError("id", "activity id is required")
	}
	activity, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Activity{}, ErrActivityNotFound
	}
	if err != nil {
		return models.Activity{}, err
	}
	return activity, nil
}

func (s *activityService) uploadAttachment(ctx context.Context, activityID, uploaderID string, index int, file *multipart.FileHeader) (models.ActivityItem, error) {
	handle, err := file.Open()
	if err != nil {
		return models.ActivityItem{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return models.ActivityItem{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		return models.ActivityItem{}, fmt.Errorf("%s exceeds the upload limit", file.Filename)
	}

	path := attachmentPath(activityID, uploaderID, s.now(), index, file.Filename)
	start := time.Now()
	stored, err := s.storage.Upload(ctx, path, bytes.NewReader(buf.Bytes()))
	observability.UploadLatency().Observe(time.Since(start).Seconds())
	if err != nil {
		return models.ActivityItem{}, err
	}

	storedPath := stored.Path
	if storedPath == "" {
		storedPath = path
	}
	label := strings.TrimSpace(file.Filename)
	if label == "" {
		label = sanitizeFileName(file.Filename)
	}

	return models.ActivityItem{
		Kind:        models.ItemKindFile,
		Label:       label,
		URL:         stored.URL,
		Path:        storedPath,
		ContentType: detectContentType(file, buf.Bytes()),
		Size:        int64(buf.Len()),
	}, nil
}

// removeObject deletes a stored attachment. Objects that are already gone
// count as removed.
func (s *activityService) removeObject(ctx context.Context, path string) error {
	err := s.storage.Delete(ctx, path)
	switch {
	case err == nil:
		observability.AttachmentCleanup().WithLabelValues("deleted").Inc()
		return nil
	case errors.Is(err, cloud.ErrObjectNotFound):
		observability.AttachmentCleanup().WithLabelValues("missing").Inc()
		return nil
	default:
		observability.AttachmentCleanup().WithLabelValues("failed").Inc()
		return err
	}
}

func (s *activityService) rollback(ctx context.Context, write *staged.Write, activityID string) {
	recorded := write.Len()
	if recorded == 0 {
		return
	}
	if err := write.Rollback(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error().Err(err).Str("activity_id", activityID).Msg("attachment rollback incomplete")
		return
	}
	observability.AttachmentUploads().WithLabelValues("rolled_back").Add(float64(recorded))
}

func (s *activityService) afterWrite(ctx context.Context, event ActivityEvent, entry AuditEntry) {
	s.cache.invalidate(ctx)

	if s.audit != nil {
		if _, err := s.audit.Record(ctx, entry); err != nil {
			s.logger.Warn().Err(err).Str("action", entry.Action).Msg("failed to record audit entry")
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn().Err(err).Str("event", event.Type).Msg("failed to publish activity event")
		}
	}
}

func (s *activityService) repairText(activity *models.Activity) {
	activity.Title = s.fixer.String(activity.Title)
	activity.Description = s.fixer.String(activity.Description)
	activity.CustomCategory = s.fixer.String(activity.CustomCategory)
	activity.CategoryLabel = s.fixer.String(activity.CategoryLabel)
	activity.CreatedByName = s.fixer.String(activity.CreatedByName)
	for i := range activity.Items {
		activity.Items[i].Label = s.fixer.String(activity.Items[i].Label)
	}
}

func failSpan(span trace.Span, err error, status string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, status)
	return err
}

func clampFeedLimit(limit int) int {
	if limit == 0 {
		return defaultFeedLimit
	}
	if limit < 1 {
		return 1
	}
	if limit > maxFeedLimit {
		return maxFeedLimit
	}
	return limit
}

func normalizeAmbienteFilter(values []string) []string {
	normalized := make([]string, 0, len(values))
	for _, value := range values {
		normalized = append(normalized, strings.ToLower(value))
	}
	return uniqueTrimmed(normalized)
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
