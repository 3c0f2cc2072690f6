package repository

import (
	"context"

	"github.com/tu-usuario/lotes-api/internal/domain/entity"
)

// MovementRepository define el puerto del libro de movimientos (append-only).
// Las entradas nunca se editan ni borran; las correcciones son entradas nuevas.
type MovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	GetByID(ctx context.Context, id string) (*entity.StockMovement, error)
	// ListByTransaction devuelve las entradas por-lote de un movimiento lógico.
	ListByTransaction(ctx context.Context, transactionID string) ([]*entity.StockMovement, error)
	// List filtra por producto, lote, tipo y rango de fechas (lectores de
	// reporte/auditoría). Orden: created_at descendente.
	List(ctx context.Context, filter entity.MovementFilter) ([]*entity.StockMovement, error)
	// SumConsumedByBatch suma las piezas de entradas de consumo (OUT/WRITEOFF)
	// del lote, para conciliar contra used_quantity.
	SumConsumedByBatch(ctx context.Context, batchID string) (int64, error)
}
