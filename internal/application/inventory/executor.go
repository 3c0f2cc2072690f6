package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/lotes-api/internal/domain"
	batchsel "github.com/tu-usuario/lotes-api/internal/domain/batch"
	"github.com/tu-usuario/lotes-api/internal/domain/entity"
	"github.com/tu-usuario/lotes-api/internal/domain/repository"
	"github.com/tu-usuario/lotes-api/pkg/logger"
)

// defaultMaxRetries reintentos ante modificación concurrente antes de rendirse.
const defaultMaxRetries = 3

// ExecutorConfig opciones del ejecutor. Clock inyectable para tests de vencimiento.
type ExecutorConfig struct {
	MaxRetries           int
	DefaultShelfLifeDays int // vida útil cuando el producto no la define
	Clock                func() time.Time
}

// AllocationExecutor convierte un plan del selector en un cambio de estado
// confirmado, con semántica todo-o-nada por movimiento: lock exclusivo por
// producto, selector re-ejecutado contra la foto actual dentro de la
// transacción, una entrada del libro por cada pareja (lote, cantidad).
type AllocationExecutor struct {
	txRunner     TxRunner
	productRepo  repository.ProductRepository
	locks        *ProductLocker
	log          *logger.Logger
	now          func() time.Time
	maxRetries   int
	defShelfDays int
}

// NewAllocationExecutor construye el ejecutor.
func NewAllocationExecutor(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	locks *ProductLocker,
	log *logger.Logger,
	cfg ExecutorConfig,
) *AllocationExecutor {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.DefaultShelfLifeDays <= 0 {
		cfg.DefaultShelfLifeDays = 30
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &AllocationExecutor{
		txRunner:     txRunner,
		productRepo:  productRepo,
		locks:        locks,
		log:          log,
		now:          cfg.Clock,
		maxRetries:   cfg.MaxRetries,
		defShelfDays: cfg.DefaultShelfLifeDays,
	}
}

// shelfLifeDays vida útil efectiva del producto.
func (e *AllocationExecutor) shelfLifeDays(product *entity.Product) int {
	if product.ShelfLifeDays > 0 {
		return product.ShelfLifeDays
	}
	return e.defShelfDays
}

// MovementInput petición de movimiento de stock.
type MovementInput struct {
	ProductID     string
	Type          string
	Quantity      int64      // siempre positiva; el signo lo pone el tipo
	TargetDate    *time.Time // PRODUCTION: conciliar contra la producción de un día concreto
	PinnedBatchID string     // WRITEOFF contra un lote identificado manualmente (salta el selector)
	RequireFull   bool       // exigir satisfacción completa aunque el tipo admita parcial
	OrderLineID   string
	Reason        string
	Actor         string
}

// MovementResult plan efectivamente aplicado. Shortfall es dato, no error:
// el caller decide la política ante cumplimiento parcial.
type MovementResult struct {
	TransactionID string
	MovementIDs   []string
	Applied       batchsel.Plan
	Shortfall     int64
}

// requiresFull tipos que exigen satisfacción completa: recepciones de
// producción y bajas contra lote concreto.
func (in MovementInput) requiresFull() bool {
	if in.RequireFull || in.PinnedBatchID != "" {
		return true
	}
	return in.Type == entity.MovementTypePRODUCTION
}

func isInboundType(t string) bool {
	switch t {
	case entity.MovementTypePRODUCTION, entity.MovementTypeIN,
		entity.MovementTypeTRANSFER, entity.MovementTypeCORRECTION:
		return true
	}
	return false
}

// ExecuteMovement valida, toma el lock del producto, re-ejecuta el selector
// contra la foto actual y confirma el plan en una transacción. Ante
// ErrConcurrentModification reintenta con foto fresca hasta maxRetries.
func (e *AllocationExecutor) ExecuteMovement(ctx context.Context, input MovementInput) (*MovementResult, error) {
	if input.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if !entity.IsExecutableType(input.Type) {
		// Tipos desconocidos o internos (RESERVE/RELEASE) no entran por aquí:
		// romperían la conciliación del libro contra used_quantity.
		return nil, domain.ErrInvalidInput
	}
	product, err := e.productRepo.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}

	release, err := e.locks.Acquire(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	defer release()

	// Con el lock tomado, la unidad de trabajo se completa aunque el caller
	// se cancele: cortar la transacción a medias dejaría lotes a medio actualizar.
	txCtx := context.WithoutCancel(ctx)

	var result *MovementResult
	err = e.withRetry(func() error {
		res, runErr := e.runMovement(txCtx, product, input)
		if runErr != nil {
			return runErr
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// withRetry reintenta solo ante modificación concurrente. Los errores de
// integridad jamás se reintentan: repetir sobre estado roto agrava la corrupción.
func (e *AllocationExecutor) withRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		err = fn()
		if !errors.Is(err, domain.ErrConcurrentModification) {
			return err
		}
		e.log.Warn().Int("intento", attempt+1).Msg("plan obsoleto, reintentando con foto fresca")
	}
	return err
}

func (e *AllocationExecutor) runMovement(ctx context.Context, product *entity.Product, input MovementInput) (*MovementResult, error) {
	now := e.now()
	txID := uuid.New().String()
	result := &MovementResult{TransactionID: txID}

	err := e.txRunner.Run(ctx, func(
		batchRepo repository.BatchRepository,
		movementRepo repository.MovementRepository,
		_ repository.AllocationRepository,
	) error {
		plan, err := e.buildPlan(ctx, batchRepo, input, now)
		if err != nil {
			return err
		}
		if input.requiresFull() && !plan.FullySatisfied() && len(plan.Entries) > 0 {
			return domain.ErrInsufficientStock
		}

		// Recepción de producción sin lote destino: se crea el lote.
		if len(plan.Entries) == 0 && input.Type == entity.MovementTypePRODUCTION {
			created, err := e.receiveIntoNewBatch(ctx, batchRepo, product, input, now)
			if err != nil {
				return err
			}
			plan.Entries = []batchsel.PlanEntry{{BatchID: created.ID, BatchDate: created.BatchDate, Quantity: input.Quantity}}
			plan.Allocated = input.Quantity
			plan.Shortfall = 0
		}

		if len(plan.Entries) == 0 {
			if input.requiresFull() {
				return domain.ErrInsufficientStock
			}
			if isInboundType(input.Type) {
				// Ajuste entrante sin lote elegible: entrada del libro sin lote.
				mov := e.newMovement(txID, product, input, nil, input.Quantity, now)
				if err := movementRepo.Create(ctx, mov); err != nil {
					return err
				}
				result.MovementIDs = append(result.MovementIDs, mov.ID)
			}
			result.Applied = plan
			result.Shortfall = plan.Shortfall
			return nil
		}

		for i := range plan.Entries {
			entry := plan.Entries[i]
			if err := e.applyEntry(ctx, batchRepo, input, entry, now); err != nil {
				return err
			}
			mov := e.newMovement(txID, product, input, &entry, entry.Quantity, now)
			if err := movementRepo.Create(ctx, mov); err != nil {
				return err
			}
			result.MovementIDs = append(result.MovementIDs, mov.ID)
		}
		result.Applied = plan
		result.Shortfall = plan.Shortfall
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// buildPlan re-ejecuta el selector contra la foto actual, o arma el plan
// fijado cuando el caller identificó el lote físico a mano.
func (e *AllocationExecutor) buildPlan(ctx context.Context, batchRepo repository.BatchRepository, input MovementInput, now time.Time) (batchsel.Plan, error) {
	if input.PinnedBatchID != "" {
		b, err := batchRepo.GetForUpdate(ctx, input.PinnedBatchID)
		if err != nil {
			return batchsel.Plan{}, err
		}
		if b.ProductID != input.ProductID {
			return batchsel.Plan{}, domain.ErrNotFound
		}
		if b.AvailableQuantity < input.Quantity {
			return batchsel.Plan{}, domain.ErrInsufficientStock
		}
		return batchsel.Plan{
			Entries:   []batchsel.PlanEntry{{BatchID: b.ID, BatchDate: b.BatchDate, Quantity: input.Quantity}},
			Requested: input.Quantity,
			Allocated: input.Quantity,
		}, nil
	}

	snapshot, err := batchRepo.ListActive(ctx, input.ProductID)
	if err != nil {
		return batchsel.Plan{}, err
	}
	return batchsel.Select(snapshot, input.Type, input.Quantity, input.TargetDate, now)
}

// applyEntry mueve la cantidad entre los buckets del lote según el tipo y
// persiste el lote con estado recalculado.
func (e *AllocationExecutor) applyEntry(ctx context.Context, batchRepo repository.BatchRepository, input MovementInput, entry batchsel.PlanEntry, now time.Time) error {
	b, err := batchRepo.GetForUpdate(ctx, entry.BatchID)
	if err != nil {
		return err
	}
	before := *b

	if isInboundType(input.Type) {
		err = b.Receive(entry.Quantity)
	} else { // OUT y WRITEOFF, los únicos consumos que admite el ejecutor
		err = b.Move(entity.BucketAvailable, entity.BucketUsed, entry.Quantity)
	}
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientQuantity) {
			// El lote se agotó entre la foto y la aplicación: plan obsoleto.
			return domain.ErrConcurrentModification
		}
		if errors.Is(err, domain.ErrInvariantViolation) {
			e.log.Error().
				Str("batch_id", b.ID).
				Interface("antes", before).
				Interface("despues", *b).
				Msg("invariante de lote violada al aplicar el plan")
		}
		return err
	}

	b.RecomputeStatus(now)
	b.UpdatedAt = now
	return batchRepo.Update(ctx, b)
}

// receiveIntoNewBatch crea el lote destino de una recepción de producción
// cuando no existe ninguno para la fecha objetivo.
func (e *AllocationExecutor) receiveIntoNewBatch(ctx context.Context, batchRepo repository.BatchRepository, product *entity.Product, input MovementInput, now time.Time) (*entity.Batch, error) {
	batchDate := now
	if input.TargetDate != nil {
		batchDate = *input.TargetDate
	}
	expiry := batchDate.AddDate(0, 0, e.shelfLifeDays(product))
	b, err := entity.NewBatch(input.ProductID, input.Quantity, batchDate, batchDate, expiry, input.Reason)
	if err != nil {
		return nil, err
	}
	b.ID = uuid.New().String()
	b.CreatedAt = now
	b.UpdatedAt = now
	b.RecomputeStatus(now)
	if err := batchRepo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// newMovement arma la entrada del libro para una pareja (lote, cantidad).
// El lock por producto garantiza timestamps monótonos por producto.
func (e *AllocationExecutor) newMovement(txID string, product *entity.Product, input MovementInput, entry *batchsel.PlanEntry, qty int64, now time.Time) *entity.StockMovement {
	pieces := signedPieces(input.Type, qty)
	mov := &entity.StockMovement{
		ID:            uuid.New().String(),
		TransactionID: txID,
		ProductID:     input.ProductID,
		Type:          input.Type,
		Pieces:        pieces,
		Boxes:         boxesEquivalent(pieces, product.PiecesPerBox),
		OrderLineID:   input.OrderLineID,
		Reason:        input.Reason,
		Actor:         input.Actor,
		CreatedAt:     now,
	}
	if entry != nil {
		mov.BatchID = entry.BatchID
		d := entry.BatchDate
		mov.BatchDate = &d
	}
	return mov
}

// signedPieces consumos y reservas restan; entradas y liberaciones suman.
func signedPieces(movementType string, qty int64) int64 {
	switch movementType {
	case entity.MovementTypeOUT, entity.MovementTypeWRITEOFF, entity.MovementTypeRESERVE:
		return -qty
	}
	return qty
}

// boxesEquivalent convierte piezas a cajas con la equivalencia del producto.
func boxesEquivalent(pieces int64, piecesPerBox int64) decimal.Decimal {
	if piecesPerBox <= 0 {
		piecesPerBox = 1
	}
	return decimal.NewFromInt(pieces).Div(decimal.NewFromInt(piecesPerBox)).Round(3)
}

// CreateBatchInput datos para crear (o fusionar) un lote desde una recepción
// de producción o una llegada.
type CreateBatchInput struct {
	ProductID      string
	TotalQuantity  int64
	BatchDate      time.Time
	ProductionDate *time.Time // por defecto, BatchDate
	ExpiryDate     *time.Time // por defecto, BatchDate + vida útil del producto
	SourceRef      string
	Notes          string
	Merge          bool // fusionar con el lote existente del mismo día en vez de fallar
	Actor          string
}

// CreateBatch crea el lote con available = total. Si ya existe
// (product_id, batch_date) falla con ErrDuplicateBatchKey, salvo que el caller
// pida merge: entonces incrementa total y available del existente y registra
// un movimiento CORRECTION con el delta.
func (e *AllocationExecutor) CreateBatch(ctx context.Context, input CreateBatchInput) (*entity.Batch, error) {
	if input.TotalQuantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	product, err := e.productRepo.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}

	release, err := e.locks.Acquire(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	defer release()
	txCtx := context.WithoutCancel(ctx)

	now := e.now()
	productionDate := input.BatchDate
	if input.ProductionDate != nil {
		productionDate = *input.ProductionDate
	}
	expiryDate := input.BatchDate.AddDate(0, 0, e.shelfLifeDays(product))
	if input.ExpiryDate != nil {
		expiryDate = *input.ExpiryDate
	}

	var created *entity.Batch
	err = e.txRunner.Run(txCtx, func(
		batchRepo repository.BatchRepository,
		movementRepo repository.MovementRepository,
		_ repository.AllocationRepository,
	) error {
		existing, err := batchRepo.GetByProductAndDate(txCtx, input.ProductID, input.BatchDate)
		if err != nil {
			return err
		}
		if existing != nil {
			if !input.Merge {
				return domain.ErrDuplicateBatchKey
			}
			// Merge de recepción del mismo día sobre la clave natural.
			locked, err := batchRepo.GetForUpdate(txCtx, existing.ID)
			if err != nil {
				return err
			}
			if err := locked.Receive(input.TotalQuantity); err != nil {
				return err
			}
			locked.RecomputeStatus(now)
			locked.UpdatedAt = now
			if err := batchRepo.Update(txCtx, locked); err != nil {
				return err
			}
			mov := &entity.StockMovement{
				ID:            uuid.New().String(),
				TransactionID: uuid.New().String(),
				ProductID:     input.ProductID,
				Type:          entity.MovementTypeCORRECTION,
				Pieces:        input.TotalQuantity,
				Boxes:         boxesEquivalent(input.TotalQuantity, product.PiecesPerBox),
				BatchID:       locked.ID,
				BatchDate:     &locked.BatchDate,
				Reason:        fmt.Sprintf("merge de recepción sobre lote existente: %s", input.SourceRef),
				Actor:         input.Actor,
				CreatedAt:     now,
			}
			if err := movementRepo.Create(txCtx, mov); err != nil {
				return err
			}
			created = locked
			return nil
		}

		b, err := entity.NewBatch(input.ProductID, input.TotalQuantity, input.BatchDate, productionDate, expiryDate, input.SourceRef)
		if err != nil {
			return err
		}
		b.ID = uuid.New().String()
		b.Notes = input.Notes
		b.CreatedAt = now
		b.UpdatedAt = now
		b.RecomputeStatus(now)
		if err := batchRepo.Create(txCtx, b); err != nil {
			return err
		}
		mov := &entity.StockMovement{
			ID:            uuid.New().String(),
			TransactionID: uuid.New().String(),
			ProductID:     input.ProductID,
			Type:          entity.MovementTypePRODUCTION,
			Pieces:        input.TotalQuantity,
			Boxes:         boxesEquivalent(input.TotalQuantity, product.PiecesPerBox),
			BatchID:       b.ID,
			BatchDate:     &b.BatchDate,
			Reason:        input.SourceRef,
			Actor:         input.Actor,
			CreatedAt:     now,
		}
		if err := movementRepo.Create(txCtx, mov); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
