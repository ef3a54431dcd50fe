package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/provider-directory/internal/api/dto"
	"github.com/spec-kit/provider-directory/internal/auth"
	"github.com/spec-kit/provider-directory/internal/service"
	apperrors "github.com/spec-kit/provider-directory/pkg/util"
)

// ProvidersHandler manages the provider directory resource.
type ProvidersHandler struct {
	providers *service.ProviderService
	images    *service.ImageService
}

// NewProvidersHandler constructs handler.
func NewProvidersHandler(providerService *service.ProviderService, imageService *service.ImageService) *ProvidersHandler {
	return &ProvidersHandler{providers: providerService, images: imageService}
}

// List handles GET /api/v1/providers.
func (h *ProvidersHandler) List(c *fiber.Ctx) error {
	query := service.ProviderListQuery{
		Page:    c.QueryInt("page", 1),
		PerPage: c.QueryInt("per_page", 5),
	}
	if specialty := c.Query("specialty"); specialty != "" {
		query.Specialty = &specialty
	}
	if location := c.Query("location"); location != "" {
		query.Location = &location
	}

	page, err := h.providers.List(c.Context(), query)
	if err != nil {
		return err
	}

	resources := make([]dto.ProviderResource, 0, len(page.Providers))
	for i := range page.Providers {
		provider := &page.Providers[i]
		resources = append(resources, dto.NewProviderResource(provider, page.HasImage[provider.ID]))
	}

	return c.JSON(fiber.Map{
		"data": resources,
		"meta": dto.PaginationMeta{
			CurrentPage: page.CurrentPage,
			TotalPages:  page.TotalPages,
			TotalCount:  page.TotalCount,
		},
	})
}

// Show handles GET /api/v1/providers/:id.
func (h *ProvidersHandler) Show(c *fiber.Ctx) error {
	id, err := parseProviderID(c)
	if err != nil {
		return err
	}
	detail, err := h.providers.Get(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProviderResource(&detail.Provider, detail.HasImage)})
}

// Create handles POST /api/v1/providers.
func (h *ProvidersHandler) Create(c *fiber.Ctx) error {
	currentUser, ok := auth.CurrentUser(c)
	if !ok {
		return apperrors.NewUnauthorized("Unauthorized")
	}

	payload, file, err := parseProviderRequest(c)
	if err != nil {
		return err
	}

	// Inline uploads are validated before the provider row is written; a
	// rejected image must not leave a provider behind.
	upload, err := h.readValidatedUpload(file)
	if err != nil {
		return err
	}

	provider, err := h.providers.Create(c.Context(), currentUser.ID, payloadToInput(payload))
	if err != nil {
		return err
	}

	hasImage := false
	if upload != nil {
		if _, err := h.images.Attach(c.Context(), currentUser.ID, provider.ID, upload.fileName, upload.contentType, upload.data); err != nil {
			return err
		}
		hasImage = true
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewProviderResource(provider, hasImage)})
}

// Update handles PATCH/PUT /api/v1/providers/:id.
func (h *ProvidersHandler) Update(c *fiber.Ctx) error {
	currentUser, ok := auth.CurrentUser(c)
	if !ok {
		return apperrors.NewUnauthorized("Unauthorized")
	}
	id, err := parseProviderID(c)
	if err != nil {
		return err
	}

	payload, file, err := parseProviderRequest(c)
	if err != nil {
		return err
	}

	upload, err := h.readValidatedUpload(file)
	if err != nil {
		return err
	}

	provider, err := h.providers.Update(c.Context(), currentUser.ID, id, payloadToInput(payload))
	if err != nil {
		return err
	}

	hasImage := false
	if upload != nil {
		if _, err := h.images.Attach(c.Context(), currentUser.ID, provider.ID, upload.fileName, upload.contentType, upload.data); err != nil {
			return err
		}
		hasImage = true
	} else {
		detail, err := h.providers.Get(c.Context(), id)
		if err == nil {
			hasImage = detail.HasImage
		}
	}

	return c.JSON(fiber.Map{"data": dto.NewProviderResource(provider, hasImage)})
}

// Deactivate handles DELETE /api/v1/providers/:id (soft delete).
func (h *ProvidersHandler) Deactivate(c *fiber.Ctx) error {
	currentUser, ok := auth.CurrentUser(c)
	if !ok {
		return apperrors.NewUnauthorized("Unauthorized")
	}
	id, err := parseProviderID(c)
	if err != nil {
		return err
	}
	if err := h.providers.Deactivate(c.Context(), currentUser.ID, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Provider deactivated successfully"})
}

// AttachImage handles PUT /api/v1/providers/:id/profile_image.
func (h *ProvidersHandler) AttachImage(c *fiber.Ctx) error {
	currentUser, ok := auth.CurrentUser(c)
	if !ok {
		return apperrors.NewUnauthorized("Unauthorized")
	}
	id, err := parseProviderID(c)
	if err != nil {
		return err
	}

	file := formImage(c)
	if file == nil {
		fields := apperrors.FieldErrors{}
		fields.Add("profile_image", "can't be blank")
		return apperrors.NewValidationError("profile image is required", fields)
	}
	upload, err := readUpload(file)
	if err != nil {
		return err
	}
	if _, err := h.images.Attach(c.Context(), currentUser.ID, id, upload.fileName, upload.contentType, upload.data); err != nil {
		return err
	}

	detail, err := h.providers.Get(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProviderResource(&detail.Provider, detail.HasImage)})
}

// RemoveImage handles DELETE /api/v1/providers/:id/profile_image.
func (h *ProvidersHandler) RemoveImage(c *fiber.Ctx) error {
	currentUser, ok := auth.CurrentUser(c)
	if !ok {
		return apperrors.NewUnauthorized("Unauthorized")
	}
	id, err := parseProviderID(c)
	if err != nil {
		return err
	}
	if err := h.images.Remove(c.Context(), currentUser.ID, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Profile image removed successfully"})
}

type imageUpload struct {
	fileName    string
	contentType string
	data        []byte
}

func readUpload(file *multipart.FileHeader) (*imageUpload, error) {
	f, err := file.Open()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &imageUpload{
		fileName:    file.Filename,
		contentType: file.Header.Get("Content-Type"),
		data:        data,
	}, nil
}

func (h *ProvidersHandler) readValidatedUpload(file *multipart.FileHeader) (*imageUpload, error) {
	if file == nil {
		return nil, nil
	}
	upload, err := readUpload(file)
	if err != nil {
		return nil, err
	}
	if err := h.images.ValidateUpload(upload.contentType, int64(len(upload.data))); err != nil {
		return nil, err
	}
	return upload, nil
}

func parseProviderID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewNotFound("Provider not found")
	}
	return id, nil
}

// parseProviderRequest accepts JSON bodies (nested under "provider" or flat)
// and multipart forms with provider[field] keys and an optional
// provider[profile_image] file.
func parseProviderRequest(c *fiber.Ctx) (dto.ProviderPayload, *multipart.FileHeader, error) {
	contentType := c.Get(fiber.HeaderContentType)
	if strings.HasPrefix(contentType, fiber.MIMEMultipartForm) {
		return providerPayloadFromForm(c), formImage(c), nil
	}

	var req dto.ProviderRequest
	if err := c.BodyParser(&req); err != nil {
		return dto.ProviderPayload{}, nil, apperrors.NewBadRequest("invalid payload")
	}
	return req.Payload(), nil, nil
}

func providerPayloadFromForm(c *fiber.Ctx) dto.ProviderPayload {
	values := map[string][]string{}
	if form, err := c.MultipartForm(); err == nil && form != nil {
		values = form.Value
	}
	// A key that is present but blank still counts as supplied, so a form
	// PATCH can clear a field just like the JSON path can.
	get := func(name string) *string {
		for _, key := range []string{"provider[" + name + "]", name} {
			if vals, ok := values[key]; ok && len(vals) > 0 {
				val := vals[0]
				return &val
			}
		}
		return nil
	}
	return dto.ProviderPayload{
		NPI:          get("npi"),
		FirstName:    get("first_name"),
		LastName:     get("last_name"),
		Specialty:    get("specialty"),
		Credentials:  get("credentials"),
		AddressLine1: get("address_line1"),
		AddressLine2: get("address_line2"),
		City:         get("city"),
		State:        get("state"),
		Zip:          get("zip"),
		Phone:        get("phone"),
		Email:        get("email"),
	}
}

func formImage(c *fiber.Ctx) *multipart.FileHeader {
	if file, err := c.FormFile("provider[profile_image]"); err == nil {
		return file
	}
	if file, err := c.FormFile("profile_image"); err == nil {
		return file
	}
	return nil
}

func payloadToInput(payload dto.ProviderPayload) service.ProviderInput {
	return service.ProviderInput{
		NPI:          payload.NPI,
		FirstName:    payload.FirstName,
		LastName:     payload.LastName,
		Specialty:    payload.Specialty,
		Credentials:  payload.Credentials,
		AddressLine1: payload.AddressLine1,
		AddressLine2: payload.AddressLine2,
		City:         payload.City,
		State:        payload.State,
		Zip:          payload.Zip,
		Phone:        payload.Phone,
		Email:        payload.Email,
	}
}
