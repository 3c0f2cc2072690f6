package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/lotes-api/internal/application/dto"
	"github.com/tu-usuario/lotes-api/internal/application/inventory"
)

// BatchHandler maneja las peticiones HTTP de lotes.
type BatchHandler struct {
	executor   *inventory.AllocationExecutor
	queries    *inventory.StockQueryService
	reconciler *inventory.Reconciler
}

// NewBatchHandler construye el handler.
func NewBatchHandler(executor *inventory.AllocationExecutor, queries *inventory.StockQueryService, reconciler *inventory.Reconciler) *BatchHandler {
	return &BatchHandler{executor: executor, queries: queries, reconciler: reconciler}
}

// Create godoc
// @Summary      Crear un lote de producción
// @Tags         batches
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateBatchRequest  true  "product_id, total_quantity, batch_date; merge=true fusiona con el lote existente del día"
// @Success      201   {object}  dto.BatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/batches [post]
func (h *BatchHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateBatchRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	batchDate, err := parseDate(in.BatchDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "batch_date inválida (formato 2006-01-02)"})
	}
	input := inventory.CreateBatchInput{
		ProductID:     in.ProductID,
		TotalQuantity: in.TotalQuantity,
		BatchDate:     batchDate,
		SourceRef:     in.SourceRef,
		Notes:         in.Notes,
		Merge:         in.Merge,
		Actor:         in.Actor,
	}
	if in.ProductionDate != "" {
		d, err := parseDate(in.ProductionDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "production_date inválida"})
		}
		input.ProductionDate = &d
	}
	if in.ExpiryDate != "" {
		d, err := parseDate(in.ExpiryDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "expiry_date inválida"})
		}
		input.ExpiryDate = &d
	}

	batch, err := h.executor.CreateBatch(c.Context(), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.BatchToResponse(batch, h.queries.Now()))
}

// ListByProduct godoc
// @Summary      Lotes de un producto (viejos primero)
// @Tags         batches
// @Produce      json
// @Success      200  {array}   dto.BatchResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/batches/{productID} [get]
func (h *BatchHandler) ListByProduct(c *fiber.Ctx) error {
	productID := c.Params("productID")
	batches, err := h.queries.ListBatches(c.Context(), productID)
	if err != nil {
		return respondError(c, err)
	}
	now := h.queries.Now()
	out := make([]dto.BatchResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, dto.BatchToResponse(b, now))
	}
	return c.JSON(out)
}

// Availability godoc
// @Summary      Disponibilidad agregada de un producto
// @Tags         batches
// @Produce      json
// @Success      200  {object}  inventory.AvailabilitySummary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/batches/{productID}/availability [get]
func (h *BatchHandler) Availability(c *fiber.Ctx) error {
	productID := c.Params("productID")
	summary, err := h.queries.Availability(c.Context(), productID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}

// Reconcile godoc
// @Summary      Conciliar los lotes de un producto contra el libro
// @Tags         batches
// @Produce      json
// @Success      200  {array}   inventory.BatchReconciliation
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/batches/{productID}/reconciliation [get]
func (h *BatchHandler) Reconcile(c *fiber.Ctx) error {
	productID := c.Params("productID")
	results, err := h.reconciler.CheckProduct(c.Context(), productID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"product_id": productID, "batches": results})
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
