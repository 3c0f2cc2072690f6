package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/lotes-api/internal/application/inventory"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Executor     *inventory.AllocationExecutor
	Reservations *inventory.OrderReservationManager
	Queries      *inventory.StockQueryService
	Reconciler   *inventory.Reconciler
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Lotes
	batches := api.Group("/batches")
	batchHandler := NewBatchHandler(deps.Executor, deps.Queries, deps.Reconciler)
	batches.Post("/", batchHandler.Create)
	batches.Get("/:productID", batchHandler.ListByProduct)
	batches.Get("/:productID/availability", batchHandler.Availability)
	batches.Get("/:productID/reconciliation", batchHandler.Reconcile)

	// Movimientos
	movements := api.Group("/movements")
	movementHandler := NewMovementHandler(deps.Executor, deps.Queries)
	movements.Post("/", movementHandler.Register)
	movements.Get("/", movementHandler.List)

	// Bajas
	writeoffs := api.Group("/writeoffs")
	writeoffHandler := NewWriteoffHandler(deps.Executor, deps.Queries)
	writeoffs.Post("/", writeoffHandler.Create)
	writeoffs.Get("/:transactionID/act", writeoffHandler.Act)

	// Líneas de pedido
	orders := api.Group("/orders")
	orderHandler := NewOrderHandler(deps.Reservations)
	orders.Post("/:lineID/reserve", orderHandler.Reserve)
	orders.Post("/:lineID/fulfill", orderHandler.Fulfill)
	orders.Post("/:lineID/cancel", orderHandler.Cancel)
}
