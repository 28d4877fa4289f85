package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/viddown/api/internal/history"
	"github.com/viddown/api/internal/model"
	"github.com/viddown/api/pkg/response"
)

type HistoryHandler struct {
	store     *history.SQLiteStore
	validator *validator.Validate
}

func NewHistoryHandler(s *history.SQLiteStore, v *validator.Validate) *HistoryHandler {
	return &HistoryHandler{store: s, validator: v}
}

// List handles GET /api/history, newest first.
func (h *HistoryHandler) List(c *fiber.Ctx) error {
	records, err := h.store.List(c.Context())
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	if records == nil {
		records = []*model.HistoryRecord{}
	}
	return response.OK(c, records)
}

// Upsert handles POST /api/history.
func (h *HistoryHandler) Upsert(c *fiber.Ctx) error {
	var rec model.HistoryRecord
	if err := c.BodyParser(&rec); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&rec); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if err := h.store.Upsert(c.Context(), &rec); err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, rec)
}

// Delete handles DELETE /api/history/:id.
func (h *HistoryHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return response.ValidationError(c, "Record ID is required", nil)
	}
	if err := h.store.Delete(c.Context(), id); err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.NoContent(c)
}

// DeleteByStatus handles DELETE /api/history?status=...
func (h *HistoryHandler) DeleteByStatus(c *fiber.Ctx) error {
	status := c.Query("status")
	if status == "" {
		return response.ValidationError(c, "status query parameter is required", nil)
	}
	deleted, err := h.store.DeleteByStatus(c.Context(), status)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, fiber.Map{"deleted": deleted})
}
