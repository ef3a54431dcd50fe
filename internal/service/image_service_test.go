package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spec-kit/provider-directory/internal/events"
	"github.com/spec-kit/provider-directory/internal/service"
	"github.com/spec-kit/provider-directory/internal/storage"
	apperrors "github.com/spec-kit/provider-directory/pkg/util"
)

type memObjectStore struct {
	objects map[string]storage.Object
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: map[string]storage.Object{}}
}

func (s *memObjectStore) Put(_ context.Context, key string, obj storage.Object) error {
	s.objects[key] = obj
	return nil
}

func (s *memObjectStore) Get(_ context.Context, key string) (storage.Object, error) {
	obj, ok := s.objects[key]
	if !ok {
		return storage.Object{}, errors.New("object not found")
	}
	return obj, nil
}

func (s *memObjectStore) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

type imageFixture struct {
	*directoryFixture
	store *memObjectStore
	svc   *service.ImageService
}

func newImageFixture() *imageFixture {
	directory := newDirectoryFixture()
	store := newMemObjectStore()
	dispatcher := events.NewInMemoryDispatcher()
	svc := service.NewImageService(directory.providers, directory.images, store, dispatcher, directory.svc)
	return &imageFixture{directoryFixture: directory, store: store, svc: svc}
}

func TestAttachAndFetchRoundTrip(t *testing.T) {
	fx := newImageFixture()
	seedProviders(t, fx.directoryFixture, 1)

	data := []byte{0x89, 'P', 'N', 'G'}
	image, err := fx.svc.Attach(context.Background(), 1, 1, "photo.png", "image/png", data)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if image.ProviderID != 1 || image.SizeBytes != int64(len(data)) {
		t.Fatalf("unexpected image metadata: %+v", image)
	}

	fetched, obj, err := fx.svc.Fetch(context.Background(), 1)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if fetched.FileName != "photo.png" || fetched.ContentType != "image/png" {
		t.Fatalf("unexpected metadata: %+v", fetched)
	}
	if !bytes.Equal(obj.Data, data) {
		t.Fatal("fetched bytes differ from stored bytes")
	}
}

func TestAttachReplacesExistingImage(t *testing.T) {
	fx := newImageFixture()
	seedProviders(t, fx.directoryFixture, 1)

	first, err := fx.svc.Attach(context.Background(), 1, 1, "old.png", "image/png", []byte("one"))
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	second, err := fx.svc.Attach(context.Background(), 1, 1, "new.jpg", "image/jpeg", []byte("two"))
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected replacement to keep row id, got %d then %d", first.ID, second.ID)
	}

	fetched, obj, err := fx.svc.Fetch(context.Background(), 1)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if fetched.FileName != "new.jpg" || string(obj.Data) != "two" {
		t.Fatalf("expected latest image, got %+v / %q", fetched, obj.Data)
	}
}

func TestAttachReplacementDeletesOldObject(t *testing.T) {
	fx := newImageFixture()
	seedProviders(t, fx.directoryFixture, 1)

	if _, err := fx.svc.Attach(context.Background(), 1, 1, "old.png", "image/png", []byte("one")); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if _, err := fx.svc.Attach(context.Background(), 1, 1, "new.png", "image/png", []byte("two")); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	if len(fx.store.objects) != 1 {
		t.Fatalf("expected the replaced object to be deleted, store holds %d", len(fx.store.objects))
	}
}

func TestRemoveImage(t *testing.T) {
	fx := newImageFixture()
	seedProviders(t, fx.directoryFixture, 1)

	if _, err := fx.svc.Attach(context.Background(), 1, 1, "photo.png", "image/png", []byte("png")); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	if err := fx.svc.Remove(context.Background(), 1, 1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(fx.store.objects) != 0 {
		t.Fatalf("expected stored bytes to be deleted, store holds %d", len(fx.store.objects))
	}

	_, _, err := fx.svc.Fetch(context.Background(), 1)
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.HTTPStatus != 404 {
		t.Fatalf("expected 404 after removal, got %v", err)
	}
}

func TestRemoveWithoutImage(t *testing.T) {
	fx := newImageFixture()
	seedProviders(t, fx.directoryFixture, 1)

	err := fx.svc.Remove(context.Background(), 1, 1)
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.HTTPStatus != 404 {
		t.Fatalf("expected 404 DomainError, got %v", err)
	}
	if domainErr.Message != "No image attached" {
		t.Fatalf("unexpected message: %q", domainErr.Message)
	}
}

func TestValidateUpload(t *testing.T) {
	fx := newImageFixture()

	if err := fx.svc.ValidateUpload("image/png", 512); err != nil {
		t.Fatalf("expected valid upload, got %v", err)
	}

	err := fx.svc.ValidateUpload("text/plain", 512)
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.HTTPStatus != 422 {
		t.Fatalf("expected 422 DomainError, got %v", err)
	}
	if err := fx.svc.ValidateUpload("image/png", 5*1024*1024); err == nil {
		t.Fatal("expected oversize rejection")
	}
}

func TestAttachRejectsUnsupportedType(t *testing.T) {
	fx := newImageFixture()
	seedProviders(t, fx.directoryFixture, 1)

	_, err := fx.svc.Attach(context.Background(), 1, 1, "notes.pdf", "application/pdf", []byte("pdf"))
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.HTTPStatus != 422 {
		t.Fatalf("expected 422 DomainError, got %v", err)
	}
	messages := domainErr.Fields["profile_image"]
	if len(messages) != 1 || messages[0] != "must be a valid image format (JPEG, GIF or PNG)" {
		t.Fatalf("unexpected violations: %v", domainErr.Fields)
	}
}

func TestAttachRejectsOversizedImage(t *testing.T) {
	fx := newImageFixture()
	seedProviders(t, fx.directoryFixture, 1)

	oversized := make([]byte, 5*1024*1024)
	_, err := fx.svc.Attach(context.Background(), 1, 1, "big.png", "image/png", oversized)
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.HTTPStatus != 422 {
		t.Fatalf("expected 422 DomainError, got %v", err)
	}
	messages := domainErr.Fields["profile_image"]
	if len(messages) != 1 || messages[0] != "must be less than 5MB" {
		t.Fatalf("unexpected violations: %v", domainErr.Fields)
	}
}

func TestAttachUnknownProvider(t *testing.T) {
	fx := newImageFixture()

	_, err := fx.svc.Attach(context.Background(), 1, 42, "photo.png", "image/png", []byte("png"))
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.HTTPStatus != 404 {
		t.Fatalf("expected 404 DomainError, got %v", err)
	}
	if domainErr.Message != "Provider not found" {
		t.Fatalf("unexpected message: %q", domainErr.Message)
	}
}

func TestFetchWithoutImage(t *testing.T) {
	fx := newImageFixture()
	seedProviders(t, fx.directoryFixture, 1)

	_, _, err := fx.svc.Fetch(context.Background(), 1)
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.HTTPStatus != 404 {
		t.Fatalf("expected 404 DomainError, got %v", err)
	}
	if domainErr.Message != "No image attached" {
		t.Fatalf("unexpected message: %q", domainErr.Message)
	}
}
