package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/provider-directory/internal/service"
	apperrors "github.com/spec-kit/provider-directory/pkg/util"
)

// ProfileImagesHandler serves provider profile image bytes.
type ProfileImagesHandler struct {
	images *service.ImageService
}

// NewProfileImagesHandler constructs handler.
func NewProfileImagesHandler(imageService *service.ImageService) *ProfileImagesHandler {
	return &ProfileImagesHandler{images: imageService}
}

// Show handles GET /api/v1/profile_images/:id, where :id is the provider id.
func (h *ProfileImagesHandler) Show(c *fiber.Ctx) error {
	providerID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || providerID <= 0 {
		return apperrors.NewNotFound("No image attached")
	}

	image, obj, err := h.images.Fetch(c.Context(), providerID)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, image.ContentType)
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+image.FileName+`"`)
	return c.Send(obj.Data)
}
