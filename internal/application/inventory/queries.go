package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/lotes-api/internal/domain"
	"github.com/tu-usuario/lotes-api/internal/domain/entity"
	"github.com/tu-usuario/lotes-api/internal/domain/repository"
)

// ActGenerator puerto para el soporte documental de una baja.
type ActGenerator interface {
	GenerateAct(ctx context.Context, product *entity.Product, movements []*entity.StockMovement) ([]byte, error)
}

// AvailabilitySummary foto agregada del stock de un producto.
type AvailabilitySummary struct {
	ProductID       string          `json:"product_id"`
	AvailablePieces int64           `json:"available_pieces"`
	ReservedPieces  int64           `json:"reserved_pieces"`
	UsedPieces      int64           `json:"used_pieces"`
	TotalPieces     int64           `json:"total_pieces"`
	AvailableBoxes  decimal.Decimal `json:"available_boxes"`
	ActiveBatches   int             `json:"active_batches"`
	ExpiredBatches  int             `json:"expired_batches"`
	DepletedBatches int             `json:"depleted_batches"`
}

// StockQueryService lecturas del motor: lotes, disponibilidad, libro de
// movimientos y acta de baja. Solo lee; las mutaciones van por el ejecutor.
type StockQueryService struct {
	batchRepo    repository.BatchRepository
	movementRepo repository.MovementRepository
	productRepo  repository.ProductRepository
	actGenerator ActGenerator
	now          func() time.Time
}

// NewStockQueryService construye el servicio de lecturas.
func NewStockQueryService(
	batchRepo repository.BatchRepository,
	movementRepo repository.MovementRepository,
	productRepo repository.ProductRepository,
	actGenerator ActGenerator,
	clock func() time.Time,
) *StockQueryService {
	if clock == nil {
		clock = time.Now
	}
	return &StockQueryService{
		batchRepo:    batchRepo,
		movementRepo: movementRepo,
		productRepo:  productRepo,
		actGenerator: actGenerator,
		now:          clock,
	}
}

// Now expone el reloj del servicio para quien presenta fechas derivadas
// (días hasta vencer) y debe usar el mismo reloj que las lecturas.
func (s *StockQueryService) Now() time.Time { return s.now() }

// ListBatches devuelve todos los lotes del producto, viejos primero.
func (s *StockQueryService) ListBatches(ctx context.Context, productID string) ([]*entity.Batch, error) {
	return s.batchRepo.ListByProduct(ctx, productID)
}

// Availability agrega las cantidades de todos los lotes del producto. El
// vencimiento se evalúa contra el reloj, no contra el status persistido, para
// que la foto sea correcta aunque nadie haya escrito desde el vencimiento.
func (s *StockQueryService) Availability(ctx context.Context, productID string) (*AvailabilitySummary, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	batches, err := s.batchRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	summary := &AvailabilitySummary{ProductID: productID, AvailableBoxes: decimal.Zero}
	for _, b := range batches {
		summary.ReservedPieces += b.ReservedQuantity
		summary.UsedPieces += b.UsedQuantity
		summary.TotalPieces += b.TotalQuantity
		switch {
		case b.IsExpired(now):
			summary.ExpiredBatches++
		case b.Status == entity.BatchStatusDepleted:
			summary.DepletedBatches++
		default:
			summary.ActiveBatches++
			// Lo vencido no cuenta como disponible aunque conserve cantidad.
			summary.AvailablePieces += b.AvailableQuantity
		}
	}
	perBox := product.PiecesPerBox
	if perBox <= 0 {
		perBox = 1
	}
	summary.AvailableBoxes = decimal.NewFromInt(summary.AvailablePieces).
		Div(decimal.NewFromInt(perBox)).Round(3)
	return summary, nil
}

// Movements lista entradas del libro según el filtro.
func (s *StockQueryService) Movements(ctx context.Context, filter entity.MovementFilter) ([]*entity.StockMovement, error) {
	return s.movementRepo.List(ctx, filter)
}

// WriteoffAct genera el PDF del acta de una transacción de baja.
// ErrInvalidInput si la transacción no es un WRITEOFF.
func (s *StockQueryService) WriteoffAct(ctx context.Context, transactionID string) ([]byte, error) {
	movements, err := s.movementRepo.ListByTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if len(movements) == 0 {
		return nil, domain.ErrNotFound
	}
	for _, m := range movements {
		if m.Type != entity.MovementTypeWRITEOFF {
			return nil, domain.ErrInvalidInput
		}
	}
	product, err := s.productRepo.GetByID(ctx, movements[0].ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return s.actGenerator.GenerateAct(ctx, product, movements)
}
