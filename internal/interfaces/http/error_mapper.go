package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/lotes-api/internal/application/dto"
	"github.com/tu-usuario/lotes-api/internal/domain"
)

// respondError traduce los errores centinela del dominio a respuestas HTTP.
// Un faltante (shortfall) no pasa por aquí: es dato del resultado, no error.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidDateRange),
		errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrDuplicateBatchKey):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE_BATCH", Message: "ya existe un lote para ese producto y fecha"})
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInsufficientQuantity):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: "stock insuficiente"})
	case errors.Is(err, domain.ErrNothingReserved):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NOTHING_RESERVED", Message: "la línea no tiene reserva activa"})
	case errors.Is(err, domain.ErrConcurrentModification),
		errors.Is(err, domain.ErrLockTimeout):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONCURRENT", Message: "conflicto de concurrencia, reintente"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
