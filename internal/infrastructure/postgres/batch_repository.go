package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/lotes-api/internal/domain"
	"github.com/tu-usuario/lotes-api/internal/domain/entity"
	"github.com/tu-usuario/lotes-api/internal/domain/repository"
)

var _ repository.BatchRepository = (*BatchRepo)(nil)

const batchColumns = `id, product_id, batch_date, production_date, expiry_date,
		total_quantity, available_quantity, reserved_quantity, used_quantity,
		status, source_ref, notes, created_at, updated_at`

// BatchRepo implementación de BatchRepository sobre PostgreSQL (usable con pool o tx).
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador de lotes. Pasar pool o tx (Querier).
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

// Create persiste un lote nuevo. La constraint única (product_id, batch_date)
// se traduce a domain.ErrDuplicateBatchKey.
func (r *BatchRepo) Create(ctx context.Context, b *entity.Batch) error {
	query := `
		INSERT INTO batches (id, product_id, batch_date, production_date, expiry_date,
			total_quantity, available_quantity, reserved_quantity, used_quantity,
			status, source_ref, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		b.ID, b.ProductID, b.BatchDate, b.ProductionDate, b.ExpiryDate,
		b.TotalQuantity, b.AvailableQuantity, b.ReservedQuantity, b.UsedQuantity,
		b.Status, b.SourceRef, b.Notes, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateBatchKey
		}
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// GetForUpdate obtiene un lote bloqueando la fila (SELECT FOR UPDATE).
func (r *BatchRepo) GetForUpdate(ctx context.Context, id string) (*entity.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = $1 FOR UPDATE`
	b, err := r.scanBatch(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get batch for update: %w", err)
	}
	return b, nil
}

// GetByProductAndDate busca el lote por su clave natural. nil, nil si no existe.
func (r *BatchRepo) GetByProductAndDate(ctx context.Context, productID string, batchDate time.Time) (*entity.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE product_id = $1 AND batch_date = $2::date`
	b, err := r.scanBatch(r.q.QueryRow(ctx, query, productID, batchDate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get batch by product and date: %w", err)
	}
	return b, nil
}

// ListActive devuelve la foto de lotes seleccionables: ACTIVE más EXPIRED con
// reserva pendiente. El orden lo impone el selector, no el SQL.
func (r *BatchRepo) ListActive(ctx context.Context, productID string) ([]*entity.Batch, error) {
	query := `
		SELECT ` + batchColumns + `
		FROM batches
		WHERE product_id = $1
		  AND (status = 'ACTIVE' OR (status = 'EXPIRED' AND reserved_quantity > 0))`
	return r.list(ctx, query, productID)
}

// ListByProduct devuelve todos los lotes del producto, viejos primero.
func (r *BatchRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE product_id = $1 ORDER BY batch_date ASC`
	return r.list(ctx, query, productID)
}

// Update persiste cantidades y estado del lote.
func (r *BatchRepo) Update(ctx context.Context, b *entity.Batch) error {
	query := `
		UPDATE batches
		SET total_quantity = $2, available_quantity = $3, reserved_quantity = $4,
			used_quantity = $5, status = $6, notes = $7, updated_at = $8
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		b.ID, b.TotalQuantity, b.AvailableQuantity, b.ReservedQuantity,
		b.UsedQuantity, b.Status, b.Notes, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *BatchRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Batch, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()
	var list []*entity.Batch
	for rows.Next() {
		b, err := r.scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

func (r *BatchRepo) scanBatch(row pgx.Row) (*entity.Batch, error) {
	var b entity.Batch
	err := row.Scan(
		&b.ID, &b.ProductID, &b.BatchDate, &b.ProductionDate, &b.ExpiryDate,
		&b.TotalQuantity, &b.AvailableQuantity, &b.ReservedQuantity, &b.UsedQuantity,
		&b.Status, &b.SourceRef, &b.Notes, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
