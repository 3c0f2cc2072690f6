package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/lotes-api/internal/application/dto"
	"github.com/tu-usuario/lotes-api/internal/application/inventory"
)

// OrderHandler maneja el ciclo de reserva de líneas de pedido.
type OrderHandler struct {
	reservations *inventory.OrderReservationManager
}

// NewOrderHandler construye el handler.
func NewOrderHandler(reservations *inventory.OrderReservationManager) *OrderHandler {
	return &OrderHandler{reservations: reservations}
}

// Reserve godoc
// @Summary      Reservar stock para una línea de pedido
// @Description  Idempotente: si la línea ya tenía reserva, se reversa y se
//
//	re-reserva contra la foto actual. Todo o nada.
//
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReserveRequest  true  "product_id, quantity"
// @Success      200   {object}  dto.AllocationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/orders/{lineID}/reserve [post]
func (h *OrderHandler) Reserve(c *fiber.Ctx) error {
	lineID := c.Params("lineID")
	var in dto.ReserveRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	allocation, err := h.reservations.Reserve(c.Context(), lineID, in.ProductID, in.Quantity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.AllocationToResponse(allocation))
}

// Fulfill godoc
// @Summary      Consumar la reserva de una línea (despacho)
// @Tags         orders
// @Produce      json
// @Success      200  {object}  dto.AllocationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/orders/{lineID}/fulfill [post]
func (h *OrderHandler) Fulfill(c *fiber.Ctx) error {
	allocation, err := h.reservations.Fulfill(c.Context(), c.Params("lineID"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.AllocationToResponse(allocation))
}

// Cancel godoc
// @Summary      Cancelar la reserva de una línea
// @Tags         orders
// @Produce      json
// @Success      200  {object}  dto.AllocationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/orders/{lineID}/cancel [post]
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	allocation, err := h.reservations.Cancel(c.Context(), c.Params("lineID"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.AllocationToResponse(allocation))
}
