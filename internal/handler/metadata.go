package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/viddown/api/internal/metadata"
	"github.com/viddown/api/internal/model"
	"github.com/viddown/api/pkg/response"
)

type MetadataHandler struct {
	service   *metadata.Service
	validator *validator.Validate
}

func NewMetadataHandler(svc *metadata.Service, v *validator.Validate) *MetadataHandler {
	return &MetadataHandler{service: svc, validator: v}
}

// Fetch handles POST /api/metadata. Probe failures degrade to a placeholder
// record instead of an error response.
func (h *MetadataHandler) Fetch(c *fiber.Ctx) error {
	var req model.MetadataRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	return response.OK(c, h.service.Fetch(c.Context(), req.URL))
}
