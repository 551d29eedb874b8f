package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Pyrogramic/test-event-website/internal/models"
	appErrors "github.com/Pyrogramic/test-event-website/pkg/errors"
)

const (
	publicEventsCacheKey = "events:public"
	eventsCachePattern   = "events:*"
)

type eventRepository interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	SetActive(ctx context.Context, id string, active bool) error
}

// EventRequest carries event creation/update payloads.
type EventRequest struct {
	Title                string    `json:"title" validate:"required"`
	Description          string    `json:"description" validate:"required"`
	EventDate            time.Time `json:"event_date" validate:"required"`
	RegistrationDeadline time.Time `json:"registration_deadline" validate:"required"`
	RegistrationType     string    `json:"registration_type" validate:"required,oneof=individual group"`
	Venue                string    `json:"venue" validate:"required"`
	MaxParticipants      *int      `json:"max_participants" validate:"omitempty,gt=0"`
}

// EventService manages the event directory.
type EventService struct {
	repo      eventRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
	now       func() time.Time
}

// NewEventService constructs EventService.
func NewEventService(repo eventRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &EventService{repo: repo, cache: cache, validator: validate, logger: logger, cacheTTL: cacheTTL, now: time.Now}
}

// PublicList returns active events split into upcoming and past. The listing
// is cached briefly; cacheHit reports whether it was served from cache.
func (s *EventService) PublicList(ctx context.Context) (*models.EventListing, bool, error) {
	var listing models.EventListing
	if s.cache.Get(ctx, publicEventsCacheKey, &listing) {
		return &listing, true, nil
	}

	events, err := s.repo.List(ctx, models.EventFilter{ActiveOnly: true})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}

	now := s.now()
	listing = models.EventListing{Upcoming: []models.Event{}, Past: []models.Event{}}
	for _, event := range events {
		if event.IsUpcoming(now) {
			listing.Upcoming = append(listing.Upcoming, event)
		} else {
			listing.Past = append(listing.Past, event)
		}
	}

	s.cache.Set(ctx, publicEventsCacheKey, listing, s.cacheTTL)
	return &listing, false, nil
}

// Get returns a single active event. Soft-deleted events are reported as
// missing, like nonexistent ones.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrEventNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if !event.IsActive {
		return nil, appErrors.ErrEventNotFound
	}
	return event, nil
}

// ListForScope returns the active events the actor may see.
func (s *EventService) ListForScope(ctx context.Context, scope models.Scope) ([]models.Event, error) {
	events, err := s.repo.List(ctx, models.EventFilter{ActiveOnly: true, CreatedBy: scope.CreatorFilter()})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	return events, nil
}

// Create publishes a new event owned by the acting user.
func (s *EventService) Create(ctx context.Context, scope models.Scope, req EventRequest) (*models.Event, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	event := &models.Event{
		Title:                req.Title,
		Description:          req.Description,
		EventDate:            req.EventDate,
		RegistrationDeadline: req.RegistrationDeadline,
		RegistrationType:     models.RegistrationType(req.RegistrationType),
		Venue:                req.Venue,
		MaxParticipants:      req.MaxParticipants,
		CreatedBy:            scope.ActorID(),
		IsActive:             true,
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}

	s.cache.Invalidate(ctx, eventsCachePattern)
	s.logger.Info("event created", zap.String("event_id", event.ID), zap.String("created_by", event.CreatedBy))
	return event, nil
}

// Update modifies an event within the actor's scope.
func (s *EventService) Update(ctx context.Context, scope models.Scope, id string, req EventRequest) (*models.Event, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrEventNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if !scope.CanManage(event.CreatedBy) {
		return nil, appErrors.ErrAccessDenied
	}

	event.Title = req.Title
	event.Description = req.Description
	event.EventDate = req.EventDate
	event.RegistrationDeadline = req.RegistrationDeadline
	event.RegistrationType = models.RegistrationType(req.RegistrationType)
	event.Venue = req.Venue
	event.MaxParticipants = req.MaxParticipants

	if err := s.repo.Update(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}

	s.cache.Invalidate(ctx, eventsCachePattern)
	return event, nil
}

// Delete soft-deletes an event. Registrations keep their reference.
func (s *EventService) Delete(ctx context.Context, scope models.Scope, id string) error {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrEventNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if !scope.CanManage(event.CreatedBy) {
		return appErrors.ErrAccessDenied
	}

	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}

	s.cache.Invalidate(ctx, eventsCachePattern)
	s.logger.Info("event soft-deleted", zap.String("event_id", id), zap.String("actor_id", scope.ActorID()))
	return nil
}

func (s *EventService) validateRequest(req EventRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if req.RegistrationDeadline.After(req.EventDate) {
		return appErrors.Clone(appErrors.ErrValidation, "registration deadline must not be after the event date")
	}
	return nil
}
