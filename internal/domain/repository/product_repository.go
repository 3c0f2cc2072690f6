package repository

import (
	"context"

	"github.com/tu-usuario/lotes-api/internal/domain/entity"
)

// ProductRepository puerto mínimo del catálogo: el motor solo necesita la
// equivalencia piezas/caja y la vida útil por defecto.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
}
