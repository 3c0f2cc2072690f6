package inventory

import (
	"context"

	"github.com/tu-usuario/lotes-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. Garantiza el todo-o-nada por movimiento:
// lotes, libro de movimientos y asignaciones se confirman juntos o ninguno.
// La implementación de producción vive en infrastructure/postgres; la de
// tests en infrastructure/memory.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		batchRepo repository.BatchRepository,
		movementRepo repository.MovementRepository,
		allocationRepo repository.AllocationRepository,
	) error) error
}
