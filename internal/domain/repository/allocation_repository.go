package repository

import (
	"context"

	"github.com/tu-usuario/lotes-api/internal/domain/entity"
)

// AllocationRepository define el puerto para las asignaciones de líneas de
// pedido (colección propia, no un blob serializado).
type AllocationRepository interface {
	// Get devuelve la asignación de la línea; nil, nil si nunca se reservó.
	Get(ctx context.Context, orderLineID string) (*entity.OrderLineAllocation, error)
	// Save inserta o reemplaza la asignación completa de la línea (la reversa
	// total antes de re-reservar hace innecesario el diffing incremental).
	Save(ctx context.Context, allocation *entity.OrderLineAllocation) error
	// ListByBatch devuelve las asignaciones vivas que referencian un lote
	// (para auditoría de referencias colgantes).
	ListByBatch(ctx context.Context, batchID string) ([]*entity.OrderLineAllocation, error)
}
