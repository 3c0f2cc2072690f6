package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/lotes-api/internal/domain"
	"github.com/tu-usuario/lotes-api/internal/domain/entity"
	"github.com/tu-usuario/lotes-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `id, transaction_id, product_id, type, pieces, boxes,
		batch_id, batch_date, order_line_id, reason, actor, created_at`

// MovementRepo implementación sobre PostgreSQL (usable con pool o tx).
// El libro es solo-inserción: no hay Update ni Delete.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create persiste una entrada del libro de movimientos.
func (r *MovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_movements (id, transaction_id, product_id, type, pieces, boxes,
			batch_id, batch_date, order_line_id, reason, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	batchID := (*string)(nil)
	if m.BatchID != "" {
		batchID = &m.BatchID
	}
	orderLineID := (*string)(nil)
	if m.OrderLineID != "" {
		orderLineID = &m.OrderLineID
	}
	_, err := r.q.Exec(ctx, query,
		m.ID, m.TransactionID, m.ProductID, m.Type, m.Pieces, m.Boxes,
		batchID, m.BatchDate, orderLineID, m.Reason, m.Actor, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// GetByID obtiene una entrada por ID.
func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE id = $1`
	m, err := r.scanMovement(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// ListByTransaction devuelve las entradas por-lote de un movimiento lógico.
func (r *MovementRepo) ListByTransaction(ctx context.Context, transactionID string) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE transaction_id = $1 ORDER BY created_at ASC, id ASC`
	return r.list(ctx, query, transactionID)
}

// List lista entradas del libro según el filtro, más recientes primero.
func (r *MovementRepo) List(ctx context.Context, filter entity.MovementFilter) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE 1=1`
	var args []any
	pos := 1
	if filter.ProductID != "" {
		query += fmt.Sprintf(" AND product_id = $%d", pos)
		args = append(args, filter.ProductID)
		pos++
	}
	if filter.BatchID != "" {
		query += fmt.Sprintf(" AND batch_id = $%d", pos)
		args = append(args, filter.BatchID)
		pos++
	}
	if filter.Type != "" {
		query += fmt.Sprintf(" AND type = $%d", pos)
		args = append(args, filter.Type)
		pos++
	}
	if filter.From != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", pos)
		args = append(args, *filter.From)
		pos++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", pos)
		args = append(args, *filter.To)
		pos++
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, filter.Offset)
	return r.list(ctx, query, args...)
}

// SumConsumedByBatch suma las piezas (negativas) de los movimientos OUT y
// WRITEOFF contra un lote, para conciliar contra used_quantity.
func (r *MovementRepo) SumConsumedByBatch(ctx context.Context, batchID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(pieces), 0)
		FROM stock_movements
		WHERE batch_id = $1 AND type IN ('OUT', 'WRITEOFF')`
	var sum int64
	if err := r.q.QueryRow(ctx, query, batchID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum consumed by batch: %w", err)
	}
	return sum, nil
}

func (r *MovementRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		m, err := r.scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *MovementRepo) scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var batchID, orderLineID *string
	err := row.Scan(
		&m.ID, &m.TransactionID, &m.ProductID, &m.Type, &m.Pieces, &m.Boxes,
		&batchID, &m.BatchDate, &orderLineID, &m.Reason, &m.Actor, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if batchID != nil {
		m.BatchID = *batchID
	}
	if orderLineID != nil {
		m.OrderLineID = *orderLineID
	}
	return &m, nil
}
