package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/provider-directory/internal/config"
	"github.com/spec-kit/provider-directory/internal/domain"
	"github.com/spec-kit/provider-directory/internal/events"
	"github.com/spec-kit/provider-directory/internal/persistence"
	"github.com/spec-kit/provider-directory/internal/repository"
	apperrors "github.com/spec-kit/provider-directory/pkg/util"
)

const defaultPerPage = 5

// ProviderInput carries create/update fields. Nil means "not supplied", which
// lets PATCH apply partial updates.
type ProviderInput struct {
	NPI          *string
	FirstName    *string
	LastName     *string
	Specialty    *string
	Credentials  *string
	AddressLine1 *string
	AddressLine2 *string
	City         *string
	State        *string
	Zip          *string
	Phone        *string
	Email        *string
}

// ProviderListQuery captures directory listing parameters.
type ProviderListQuery struct {
	Specialty *string
	Location  *string
	Page      int
	PerPage   int
}

// ProviderPage is one page of active providers plus pagination metadata.
type ProviderPage struct {
	Providers   []domain.Provider
	HasImage    map[int64]bool
	CurrentPage int
	TotalPages  int
	TotalCount  int64
}

// ProviderDetail pairs a provider with its image presence flag.
type ProviderDetail struct {
	Provider domain.Provider
	HasImage bool
}

// ProviderService coordinates directory reads and mutations.
type ProviderService struct {
	providers  repository.ProviderRepository
	images     repository.ProviderImageRepository
	dispatcher events.Dispatcher
	cache      *persistence.Redis
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// ProviderDependencies encapsulates collaborator requirements.
type ProviderDependencies struct {
	ProviderRepo repository.ProviderRepository
	ImageRepo    repository.ProviderImageRepository
	Dispatcher   events.Dispatcher
	Cache        *persistence.Redis
}

// NewProviderService builds the service.
func NewProviderService(cfg config.Config, deps ProviderDependencies, logger *zap.Logger) *ProviderService {
	return &ProviderService{
		providers:  deps.ProviderRepo,
		images:     deps.ImageRepo,
		dispatcher: deps.Dispatcher,
		cache:      deps.Cache,
		cacheTTL:   cfg.Cache.ProviderTTL(),
		logger:     logger,
	}
}

// List returns one page of active providers, newest first.
func (s *ProviderService) List(ctx context.Context, query ProviderListQuery) (*ProviderPage, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	perPage := query.PerPage
	if perPage < 1 {
		perPage = defaultPerPage
	}

	filter := repository.ProviderFilter{
		Specialty: query.Specialty,
		Location:  query.Location,
		Limit:     perPage,
		Offset:    (page - 1) * perPage,
	}
	providers, total, err := s.providers.ListActive(ctx, filter)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(providers))
	for i := range providers {
		ids = append(ids, providers[i].ID)
	}
	hasImage, err := s.images.ProviderIDsWithImages(ctx, ids)
	if err != nil {
		return nil, err
	}

	totalPages := int(total) / perPage
	if int(total)%perPage != 0 {
		totalPages++
	}

	return &ProviderPage{
		Providers:   providers,
		HasImage:    hasImage,
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalCount:  total,
	}, nil
}

// Get returns one provider, consulting the read cache first.
func (s *ProviderService) Get(ctx context.Context, id int64) (*ProviderDetail, error) {
	if detail, ok := s.cachedDetail(ctx, id); ok {
		return detail, nil
	}

	provider, err := s.providers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Provider not found")
		}
		return nil, err
	}

	hasImage := false
	if _, err := s.images.GetByProviderID(ctx, id); err == nil {
		hasImage = true
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	detail := &ProviderDetail{Provider: *provider, HasImage: hasImage}
	s.storeDetail(ctx, detail)
	return detail, nil
}

// Create validates and persists a new provider record, always active.
func (s *ProviderService) Create(ctx context.Context, actorID int64, input ProviderInput) (*domain.Provider, error) {
	provider := &domain.Provider{Active: true}
	applyInput(provider, input)

	if err := s.validate(ctx, provider, 0); err != nil {
		return nil, err
	}
	if err := s.providers.Create(ctx, provider); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventProviderCreated, provider.ID, actorID, events.ProviderCreatedPayload{
		NPI:       provider.NPI,
		FullName:  provider.FullName(),
		Specialty: provider.Specialty,
	})
	return provider, nil
}

// Update applies a partial update to an existing provider.
func (s *ProviderService) Update(ctx context.Context, actorID, id int64, input ProviderInput) (*domain.Provider, error) {
	provider, err := s.providers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Provider not found")
		}
		return nil, err
	}

	changed := changedFields(provider, input)
	applyInput(provider, input)

	if err := s.validate(ctx, provider, id); err != nil {
		return nil, err
	}
	if err := s.providers.Update(ctx, provider); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)

	s.publish(ctx, events.EventProviderUpdated, id, actorID, events.ProviderUpdatedPayload{ChangedFields: changed})
	return provider, nil
}

// Deactivate soft-deletes a provider by clearing its active flag.
func (s *ProviderService) Deactivate(ctx context.Context, actorID, id int64) error {
	provider, err := s.providers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("Provider not found")
		}
		return err
	}

	provider.Active = false
	if err := s.providers.Update(ctx, provider); err != nil {
		return err
	}
	s.invalidate(ctx, id)

	s.publish(ctx, events.EventProviderDeactivated, id, actorID, events.ProviderDeactivatedPayload{NPI: provider.NPI})
	return nil
}

// InvalidateCache drops the cached detail for a provider. Exposed for the
// image service, whose attachments change the serialized representation.
func (s *ProviderService) InvalidateCache(ctx context.Context, id int64) {
	s.invalidate(ctx, id)
}

func (s *ProviderService) validate(ctx context.Context, provider *domain.Provider, selfID int64) error {
	fields := apperrors.FieldErrors{}
	if strings.TrimSpace(provider.NPI) == "" {
		fields.Add("npi", "can't be blank")
	}
	if strings.TrimSpace(provider.FirstName) == "" {
		fields.Add("first_name", "can't be blank")
	}
	if strings.TrimSpace(provider.LastName) == "" {
		fields.Add("last_name", "can't be blank")
	}
	if strings.TrimSpace(provider.Specialty) == "" {
		fields.Add("specialty", "can't be blank")
	}

	if _, taken := fields["npi"]; !taken && provider.NPI != "" {
		existing, err := s.providers.GetByNPI(ctx, provider.NPI)
		if err == nil && existing.ID != selfID {
			fields.Add("npi", "Identifier is already taken")
		} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
	}

	if !fields.Empty() {
		return apperrors.NewValidationError("provider is invalid", fields)
	}
	return nil
}

func (s *ProviderService) publish(ctx context.Context, eventType events.EventType, providerID, actorID int64, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		ProviderID: providerID,
		ActorID:    actorID,
		Timestamp:  time.Now(),
		Payload:    payload,
	})
}

func cacheKey(id int64) string {
	return fmt.Sprintf("provider:%d", id)
}

func (s *ProviderService) cachedDetail(ctx context.Context, id int64) (*ProviderDetail, bool) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, cacheKey(id))
	if err != nil {
		s.logger.Debug("provider cache read failed", zap.Int64("id", id), zap.Error(err))
		return nil, false
	}
	if raw == "" {
		return nil, false
	}
	var detail ProviderDetail
	if err := json.Unmarshal([]byte(raw), &detail); err != nil {
		return nil, false
	}
	return &detail, true
}

func (s *ProviderService) storeDetail(ctx context.Context, detail *ProviderDetail) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(detail)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(detail.Provider.ID), string(raw), s.cacheTTL); err != nil {
		s.logger.Debug("provider cache write failed", zap.Int64("id", detail.Provider.ID), zap.Error(err))
	}
}

func (s *ProviderService) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey(id)); err != nil {
		s.logger.Debug("provider cache invalidation failed", zap.Int64("id", id), zap.Error(err))
	}
}

func applyInput(provider *domain.Provider, input ProviderInput) {
	if input.NPI != nil {
		provider.NPI = *input.NPI
	}
	if input.FirstName != nil {
		provider.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		provider.LastName = *input.LastName
	}
	if input.Specialty != nil {
		provider.Specialty = *input.Specialty
	}
	if input.Credentials != nil {
		provider.Credentials = *input.Credentials
	}
	if input.AddressLine1 != nil {
		provider.AddressLine1 = *input.AddressLine1
	}
	if input.AddressLine2 != nil {
		provider.AddressLine2 = input.AddressLine2
	}
	if input.City != nil {
		provider.City = *input.City
	}
	if input.State != nil {
		provider.State = *input.State
	}
	if input.Zip != nil {
		provider.Zip = *input.Zip
	}
	if input.Phone != nil {
		provider.Phone = *input.Phone
	}
	if input.Email != nil {
		provider.Email = *input.Email
	}
}

func changedFields(provider *domain.Provider, input ProviderInput) []string {
	var changed []string
	record := func(name string, supplied bool, differs bool) {
		if supplied && differs {
			changed = append(changed, name)
		}
	}
	record("npi", input.NPI != nil, input.NPI != nil && *input.NPI != provider.NPI)
	record("first_name", input.FirstName != nil, input.FirstName != nil && *input.FirstName != provider.FirstName)
	record("last_name", input.LastName != nil, input.LastName != nil && *input.LastName != provider.LastName)
	record("specialty", input.Specialty != nil, input.Specialty != nil && *input.Specialty != provider.Specialty)
	record("credentials", input.Credentials != nil, input.Credentials != nil && *input.Credentials != provider.Credentials)
	record("address_line1", input.AddressLine1 != nil, input.AddressLine1 != nil && *input.AddressLine1 != provider.AddressLine1)
	record("address_line2", input.AddressLine2 != nil,
		input.AddressLine2 != nil && (provider.AddressLine2 == nil || *provider.AddressLine2 != *input.AddressLine2))
	record("city", input.City != nil, input.City != nil && *input.City != provider.City)
	record("state", input.State != nil, input.State != nil && *input.State != provider.State)
	record("zip", input.Zip != nil, input.Zip != nil && *input.Zip != provider.Zip)
	record("phone", input.Phone != nil, input.Phone != nil && *input.Phone != provider.Phone)
	record("email", input.Email != nil, input.Email != nil && *input.Email != provider.Email)
	return changed
}
