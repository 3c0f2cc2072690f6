package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/lotes-api/internal/domain/entity"
	"github.com/tu-usuario/lotes-api/internal/domain/repository"
)

var _ repository.AllocationRepository = (*AllocationRepo)(nil)

// AllocationRepo implementación sobre PostgreSQL. La asignación de una línea
// vive en dos tablas: la cabecera (order_line_allocations) y sus parejas
// lote/cantidad (allocation_entries). Save reemplaza el conjunto completo.
type AllocationRepo struct {
	q Querier
}

// NewAllocationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAllocationRepository(q Querier) *AllocationRepo {
	return &AllocationRepo{q: q}
}

// Get devuelve la asignación de la línea con sus entradas. nil, nil si nunca se reservó.
func (r *AllocationRepo) Get(ctx context.Context, orderLineID string) (*entity.OrderLineAllocation, error) {
	query := `
		SELECT order_line_id, product_id, ordered_quantity, status, updated_at
		FROM order_line_allocations WHERE order_line_id = $1`
	var a entity.OrderLineAllocation
	err := r.q.QueryRow(ctx, query, orderLineID).Scan(
		&a.OrderLineID, &a.ProductID, &a.OrderedQuantity, &a.Status, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get allocation: %w", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT batch_id, batch_date, quantity
		FROM allocation_entries WHERE order_line_id = $1 ORDER BY batch_date ASC`, orderLineID)
	if err != nil {
		return nil, fmt.Errorf("list allocation entries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e entity.AllocationEntry
		if err := rows.Scan(&e.BatchID, &e.BatchDate, &e.Quantity); err != nil {
			return nil, fmt.Errorf("scan allocation entry: %w", err)
		}
		a.Entries = append(a.Entries, e)
	}
	return &a, rows.Err()
}

// Save inserta o reemplaza la asignación completa de la línea.
func (r *AllocationRepo) Save(ctx context.Context, a *entity.OrderLineAllocation) error {
	upsert := `
		INSERT INTO order_line_allocations (order_line_id, product_id, ordered_quantity, status, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (order_line_id)
		DO UPDATE SET product_id = EXCLUDED.product_id, ordered_quantity = EXCLUDED.ordered_quantity,
			status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`
	if _, err := r.q.Exec(ctx, upsert, a.OrderLineID, a.ProductID, a.OrderedQuantity, a.Status, a.UpdatedAt); err != nil {
		return fmt.Errorf("upsert allocation: %w", err)
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM allocation_entries WHERE order_line_id = $1`, a.OrderLineID); err != nil {
		return fmt.Errorf("clear allocation entries: %w", err)
	}
	for _, e := range a.Entries {
		insert := `
			INSERT INTO allocation_entries (order_line_id, batch_id, batch_date, quantity)
			VALUES ($1, $2, $3, $4)`
		if _, err := r.q.Exec(ctx, insert, a.OrderLineID, e.BatchID, e.BatchDate, e.Quantity); err != nil {
			return fmt.Errorf("insert allocation entry: %w", err)
		}
	}
	return nil
}

// ListByBatch devuelve las asignaciones que referencian un lote.
func (r *AllocationRepo) ListByBatch(ctx context.Context, batchID string) ([]*entity.OrderLineAllocation, error) {
	rows, err := r.q.Query(ctx, `
		SELECT DISTINCT order_line_id FROM allocation_entries WHERE batch_id = $1`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list allocations by batch: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan order line id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var list []*entity.OrderLineAllocation
	for _, id := range ids {
		a, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if a != nil {
			list = append(list, a)
		}
	}
	return list, nil
}
