package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/lotes-api/internal/application/dto"
	"github.com/tu-usuario/lotes-api/internal/application/inventory"
	"github.com/tu-usuario/lotes-api/internal/domain/entity"
)

// MovementHandler maneja las peticiones HTTP de movimientos de stock.
type MovementHandler struct {
	executor *inventory.AllocationExecutor
	queries  *inventory.StockQueryService
}

// NewMovementHandler construye el handler.
func NewMovementHandler(executor *inventory.AllocationExecutor, queries *inventory.StockQueryService) *MovementHandler {
	return &MovementHandler{executor: executor, queries: queries}
}

// Register godoc
// @Summary      Ejecutar un movimiento de stock contra lotes
// @Description  La selección de lotes es del motor: FIFO para salidas, LIFO para
//
//	ajustes entrantes, cierre exacto por fecha para producción.
//
// @Tags         movements
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "product_id, type, quantity; batch_id fija el lote a mano"
// @Success      201   {object}  dto.MovementResultResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/movements [post]
func (h *MovementHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	input := inventory.MovementInput{
		ProductID:     in.ProductID,
		Type:          in.Type,
		Quantity:      in.Quantity,
		PinnedBatchID: in.BatchID,
		RequireFull:   in.RequireFull,
		Reason:        in.Reason,
		Actor:         in.Actor,
	}
	if in.TargetDate != "" {
		d, err := parseDate(in.TargetDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "target_date inválida (formato 2006-01-02)"})
		}
		input.TargetDate = &d
	}

	result, err := h.executor.ExecuteMovement(c.Context(), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resultToResponse(result))
}

// List godoc
// @Summary      Listar el libro de movimientos
// @Tags         movements
// @Produce      json
// @Param        product_id  query  string  false  "Filtrar por producto"
// @Param        batch_id    query  string  false  "Filtrar por lote"
// @Param        type        query  string  false  "Filtrar por tipo (IN, OUT, PRODUCTION, ...)"
// @Param        from        query  string  false  "Desde (2006-01-02)"
// @Param        to          query  string  false  "Hasta (2006-01-02)"
// @Success      200  {array}   dto.MovementResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/movements [get]
func (h *MovementHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()

	filter := entity.MovementFilter{
		ProductID: c.Query("product_id"),
		BatchID:   c.Query("batch_id"),
		Type:      c.Query("type"),
		Limit:     page.Limit,
		Offset:    page.Offset,
	}
	if v := c.Query("from"); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from inválida"})
		}
		filter.From = &d
	}
	if v := c.Query("to"); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to inválida"})
		}
		// Inclusivo hasta el final del día.
		d = d.Add(24*time.Hour - time.Nanosecond)
		filter.To = &d
	}

	movements, err := h.queries.Movements(c.Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.MovementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, dto.MovementToResponse(m))
	}
	return c.JSON(fiber.Map{"total": len(out), "movements": out})
}

func resultToResponse(result *inventory.MovementResult) dto.MovementResultResponse {
	resp := dto.MovementResultResponse{
		TransactionID: result.TransactionID,
		MovementIDs:   result.MovementIDs,
		Requested:     result.Applied.Requested,
		Allocated:     result.Applied.Allocated,
		Shortfall:     result.Shortfall,
		Entries:       make([]dto.PlanEntryResponse, 0, len(result.Applied.Entries)),
	}
	for _, e := range result.Applied.Entries {
		resp.Entries = append(resp.Entries, dto.PlanEntryResponse{
			BatchID:   e.BatchID,
			BatchDate: e.BatchDate.Format("2006-01-02"),
			Quantity:  e.Quantity,
		})
	}
	return resp
}
