package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/provider-directory/internal/domain"
	"github.com/spec-kit/provider-directory/internal/events"
	"github.com/spec-kit/provider-directory/internal/repository"
	"github.com/spec-kit/provider-directory/internal/storage"
	apperrors "github.com/spec-kit/provider-directory/pkg/util"
)

const maxImageBytes = 5 * 1024 * 1024

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
}

// ImageService manages provider profile images: metadata in Postgres, bytes
// in the object store.
type ImageService struct {
	providers  repository.ProviderRepository
	images     repository.ProviderImageRepository
	store      storage.ObjectStore
	dispatcher events.Dispatcher
	directory  *ProviderService
}

// NewImageService builds the service.
func NewImageService(providers repository.ProviderRepository, images repository.ProviderImageRepository, store storage.ObjectStore, dispatcher events.Dispatcher, directory *ProviderService) *ImageService {
	return &ImageService{
		providers:  providers,
		images:     images,
		store:      store,
		dispatcher: dispatcher,
		directory:  directory,
	}
}

// ValidateUpload checks an upload's content type and size without storing
// anything. Handlers call it before creating the record an inline upload
// belongs to, so a rejected image never leaves partial state behind.
func (s *ImageService) ValidateUpload(contentType string, size int64) error {
	fields := apperrors.FieldErrors{}
	if !allowedImageTypes[contentType] {
		fields.Add("profile_image", "must be a valid image format (JPEG, GIF or PNG)")
	}
	if size >= maxImageBytes {
		fields.Add("profile_image", "must be less than 5MB")
	}
	if !fields.Empty() {
		return apperrors.NewValidationError("profile image is invalid", fields)
	}
	return nil
}

// Attach validates and stores a profile image for the provider, replacing any
// existing one. The replaced object is removed from the store.
func (s *ImageService) Attach(ctx context.Context, actorID, providerID int64, fileName, contentType string, data []byte) (*domain.ProviderImage, error) {
	if _, err := s.providers.GetByID(ctx, providerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Provider not found")
		}
		return nil, err
	}

	if err := s.ValidateUpload(contentType, int64(len(data))); err != nil {
		return nil, err
	}

	existing, err := s.images.GetByProviderID(ctx, providerID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	key := fmt.Sprintf("providers/%d/%s", providerID, uuid.NewString())
	if err := s.store.Put(ctx, key, storage.Object{Data: data, ContentType: contentType}); err != nil {
		return nil, err
	}

	image := &domain.ProviderImage{
		ProviderID:  providerID,
		StorageKey:  key,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
	}
	if err := s.images.Upsert(ctx, image); err != nil {
		return nil, err
	}

	if existing != nil && existing.StorageKey != key {
		_ = s.store.Delete(ctx, existing.StorageKey)
	}

	if s.directory != nil {
		s.directory.InvalidateCache(ctx, providerID)
	}
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:         uuid.NewString(),
			Type:       events.EventProviderImageAttached,
			ProviderID: providerID,
			ActorID:    actorID,
			Timestamp:  time.Now(),
			Payload: events.ProviderImageAttachedPayload{
				FileName:    fileName,
				ContentType: contentType,
				SizeBytes:   int64(len(data)),
			},
		})
	}
	return image, nil
}

// Remove deletes a provider's profile image metadata and its stored bytes.
func (s *ImageService) Remove(ctx context.Context, actorID, providerID int64) error {
	image, err := s.images.GetByProviderID(ctx, providerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("No image attached")
		}
		return err
	}

	if err := s.images.DeleteByProviderID(ctx, providerID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	_ = s.store.Delete(ctx, image.StorageKey)

	if s.directory != nil {
		s.directory.InvalidateCache(ctx, providerID)
	}
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:         uuid.NewString(),
			Type:       events.EventProviderImageRemoved,
			ProviderID: providerID,
			ActorID:    actorID,
			Timestamp:  time.Now(),
			Payload:    events.ProviderImageRemovedPayload{FileName: image.FileName},
		})
	}
	return nil
}

// Fetch returns the stored image bytes for a provider.
func (s *ImageService) Fetch(ctx context.Context, providerID int64) (*domain.ProviderImage, storage.Object, error) {
	image, err := s.images.GetByProviderID(ctx, providerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.Object{}, apperrors.NewNotFound("No image attached")
		}
		return nil, storage.Object{}, err
	}

	obj, err := s.store.Get(ctx, image.StorageKey)
	if err != nil {
		return nil, storage.Object{}, apperrors.NewInternalError(err)
	}
	return image, obj, nil
}
