package repository

import (
	"context"
	"time"

	"github.com/tu-usuario/lotes-api/internal/domain/entity"
)

// BatchRepository define el puerto de persistencia para lotes. Es la única
// fuente de verdad de las cantidades; las mutaciones pasan por el ejecutor,
// que obtiene el lote con lock de fila, aplica los movimientos de bucket y
// persiste con Update dentro de la misma transacción.
type BatchRepository interface {
	// Create persiste un lote nuevo. Devuelve domain.ErrDuplicateBatchKey si
	// ya existe (product_id, batch_date).
	Create(ctx context.Context, batch *entity.Batch) error

	// GetForUpdate obtiene un lote bloqueando la fila (SELECT FOR UPDATE).
	// domain.ErrNotFound si no existe.
	GetForUpdate(ctx context.Context, id string) (*entity.Batch, error)

	// GetByProductAndDate busca el lote natural (product_id, batch_date).
	// nil, nil si no existe.
	GetByProductAndDate(ctx context.Context, productID string, batchDate time.Time) (*entity.Batch, error)

	// ListActive devuelve la foto de lotes seleccionables del producto:
	// ACTIVE más EXPIRED con reserva pendiente. Sin orden garantizado
	// (ordenar es trabajo del selector). Semántica de snapshot, no vista viva.
	ListActive(ctx context.Context, productID string) ([]*entity.Batch, error)

	// ListByProduct devuelve todos los lotes del producto (lector de foto de
	// stock, incluye DEPLETED y EXPIRED).
	ListByProduct(ctx context.Context, productID string) ([]*entity.Batch, error)

	// Update persiste cantidades y estado recalculado del lote.
	Update(ctx context.Context, batch *entity.Batch) error
}
