package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/lotes-api/internal/application/dto"
	"github.com/tu-usuario/lotes-api/internal/application/inventory"
	"github.com/tu-usuario/lotes-api/internal/domain/entity"
)

// WriteoffHandler maneja las bajas de inventario y su acta.
type WriteoffHandler struct {
	executor *inventory.AllocationExecutor
	queries  *inventory.StockQueryService
}

// NewWriteoffHandler construye el handler.
func NewWriteoffHandler(executor *inventory.AllocationExecutor, queries *inventory.StockQueryService) *WriteoffHandler {
	return &WriteoffHandler{executor: executor, queries: queries}
}

// Create godoc
// @Summary      Dar de baja stock (merma, daño, vencimiento)
// @Description  Sin batch_id consume FIFO y reporta el faltante como dato.
//
//	Con batch_id la baja es contra ese lote y debe caber completa.
//
// @Tags         writeoffs
// @Accept       json
// @Produce      json
// @Param        body  body  dto.WriteoffRequest  true  "product_id, quantity, reason; batch_id opcional"
// @Success      201   {object}  dto.MovementResultResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/writeoffs [post]
func (h *WriteoffHandler) Create(c *fiber.Ctx) error {
	var in dto.WriteoffRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Reason == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "reason es obligatorio para una baja"})
	}
	result, err := h.executor.ExecuteMovement(c.Context(), inventory.MovementInput{
		ProductID:     in.ProductID,
		Type:          entity.MovementTypeWRITEOFF,
		Quantity:      in.Quantity,
		PinnedBatchID: in.BatchID,
		Reason:        in.Reason,
		Actor:         in.Actor,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resultToResponse(result))
}

// Act godoc
// @Summary      Acta de baja en PDF
// @Tags         writeoffs
// @Produce      application/pdf
// @Success      200  {file}    binary
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/writeoffs/{transactionID}/act [get]
func (h *WriteoffHandler) Act(c *fiber.Ctx) error {
	transactionID := c.Params("transactionID")
	pdfBytes, err := h.queries.WriteoffAct(c.Context(), transactionID)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="acta-baja-`+transactionID+`.pdf"`)
	return c.Send(pdfBytes)
}
