package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/provider-directory/internal/api/http"
	"github.com/spec-kit/provider-directory/internal/api/http/handlers"
	"github.com/spec-kit/provider-directory/internal/auth"
	"github.com/spec-kit/provider-directory/internal/config"
	"github.com/spec-kit/provider-directory/internal/domain"
	"github.com/spec-kit/provider-directory/internal/events"
	"github.com/spec-kit/provider-directory/internal/observability"
	"github.com/spec-kit/provider-directory/internal/persistence"
	"github.com/spec-kit/provider-directory/internal/repository"
	"github.com/spec-kit/provider-directory/internal/service"
	"github.com/spec-kit/provider-directory/internal/storage"
)

type memUserRepo struct {
	users  map[int64]*domain.User
	nextID int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[int64]*domain.User{}}
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if user, ok := r.users[id]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memProviderRepo struct {
	providers []*domain.Provider
	nextID    int64
}

func (r *memProviderRepo) Create(_ context.Context, provider *domain.Provider) error {
	r.nextID++
	provider.ID = r.nextID
	stored := *provider
	r.providers = append(r.providers, &stored)
	return nil
}

func (r *memProviderRepo) Update(_ context.Context, provider *domain.Provider) error {
	for i, existing := range r.providers {
		if existing.ID == provider.ID {
			stored := *provider
			r.providers[i] = &stored
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *memProviderRepo) GetByID(_ context.Context, id int64) (*domain.Provider, error) {
	for _, provider := range r.providers {
		if provider.ID == id {
			copied := *provider
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memProviderRepo) GetByNPI(_ context.Context, npi string) (*domain.Provider, error) {
	for _, provider := range r.providers {
		if provider.NPI == npi {
			copied := *provider
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memProviderRepo) ListActive(_ context.Context, filter repository.ProviderFilter) ([]domain.Provider, int64, error) {
	var matched []domain.Provider
	for _, provider := range r.providers {
		if !provider.Active {
			continue
		}
		if filter.Specialty != nil && provider.Specialty != *filter.Specialty {
			continue
		}
		if filter.Location != nil {
			loc := strings.Trim(*filter.Location, "%")
			if !strings.Contains(provider.City, loc) && !strings.Contains(provider.State, loc) {
				continue
			}
		}
		matched = append(matched, *provider)
	}

	total := int64(len(matched))
	start := filter.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.Limit
	if filter.Limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

type memImageRepo struct {
	images map[int64]*domain.ProviderImage
	nextID int64
}

func newMemImageRepo() *memImageRepo {
	return &memImageRepo{images: map[int64]*domain.ProviderImage{}}
}

func (r *memImageRepo) Upsert(_ context.Context, image *domain.ProviderImage) error {
	if existing, ok := r.images[image.ProviderID]; ok {
		image.ID = existing.ID
	} else {
		r.nextID++
		image.ID = r.nextID
	}
	stored := *image
	r.images[image.ProviderID] = &stored
	return nil
}

func (r *memImageRepo) GetByProviderID(_ context.Context, providerID int64) (*domain.ProviderImage, error) {
	if image, ok := r.images[providerID]; ok {
		copied := *image
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memImageRepo) ProviderIDsWithImages(_ context.Context, providerIDs []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(providerIDs))
	for _, id := range providerIDs {
		if _, ok := r.images[id]; ok {
			result[id] = true
		}
	}
	return result, nil
}

func (r *memImageRepo) DeleteByProviderID(_ context.Context, providerID int64) error {
	if _, ok := r.images[providerID]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.images, providerID)
	return nil
}

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

type testServer struct {
	app       *fiber.App
	auth      *service.AuthService
	directory *service.ProviderService
	providers *memProviderRepo
	images    *memImageRepo
}

func newTestServer() *testServer {
	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 30,
			BcryptCost:            4,
		},
	}

	users := newMemUserRepo()
	providers := &memProviderRepo{}
	images := newMemImageRepo()
	dispatcher := events.NewInMemoryDispatcher()
	logger := zap.NewNop()

	authService := service.NewAuthService(cfg, users)
	providerService := service.NewProviderService(cfg, service.ProviderDependencies{
		ProviderRepo: providers,
		ImageRepo:    images,
		Dispatcher:   dispatcher,
	}, logger)
	imageService := service.NewImageService(providers, images, newMemObjectStore(), dispatcher, providerService)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, observability.NewMetrics(), 0)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("test", "test", &persistence.Postgres{}, &persistence.Redis{}),
		Sessions:       handlers.NewSessionsHandler(authService),
		Providers:      handlers.NewProvidersHandler(providerService, imageService),
		ProfileImages:  handlers.NewProfileImagesHandler(imageService),
		AuthMiddleware: auth.NewMiddleware(authService.TokenManager(), users, logger),
	})

	return &testServer{
		app:       app,
		auth:      authService,
		directory: providerService,
		providers: providers,
		images:    images,
	}
}

func (ts *testServer) registerUser(t *testing.T) string {
	t.Helper()
	_, token, _, err := ts.auth.Register(context.Background(), "staff@example.com", "password123")
	if err != nil {
		t.Fatalf("register test user: %v", err)
	}
	return token
}

func (ts *testServer) seedProvider(t *testing.T, npi string) *domain.Provider {
	t.Helper()
	npiCopy := npi
	first := "Jane"
	last := "Rivera"
	specialty := "Cardiology"
	line1 := "100 Main St"
	city := "Denver"
	state := "CO"
	zip := "80202"
	provider, err := ts.directory.Create(context.Background(), 1, service.ProviderInput{
		NPI:          &npiCopy,
		FirstName:    &first,
		LastName:     &last,
		Specialty:    &specialty,
		AddressLine1: &line1,
		City:         &city,
		State:        &state,
		Zip:          &zip,
	})
	if err != nil {
		t.Fatalf("seed provider: %v", err)
	}
	return provider
}

// multipartBody builds a form with the given fields and, when fileField is
// non-empty, one file part carrying fileType as its content type.
func multipartBody(t *testing.T, fields map[string]string, fileField, fileName, fileType string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if fileField != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+fileField+`"; filename="`+fileName+`"`)
		header.Set("Content-Type", fileType)
		part, err := form.CreatePart(header)
		if err != nil {
			t.Fatalf("CreatePart: %v", err)
		}
		if _, err := part.Write(fileData); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	return &buf, form.FormDataContentType()
}

func doForm(t *testing.T, app *fiber.App, method, path, token string, body *bytes.Buffer, contentType string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(raw)
}

func doJSON(t *testing.T, app *fiber.App, method, path, token, body string) (int, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(raw)
}

func decodeBody(t *testing.T, body string) map[string]any {
	t.Helper()
	var decoded map[string]any
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		t.Fatalf("decode body %q: %v", body, err)
	}
	return decoded
}
