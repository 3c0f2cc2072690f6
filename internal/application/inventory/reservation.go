package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/lotes-api/internal/domain"
	batchsel "github.com/tu-usuario/lotes-api/internal/domain/batch"
	"github.com/tu-usuario/lotes-api/internal/domain/entity"
	"github.com/tu-usuario/lotes-api/internal/domain/repository"
	"github.com/tu-usuario/lotes-api/pkg/logger"
)

// OrderReservationManager gestiona el ciclo reservar / cumplir / cancelar de
// líneas de pedido sobre los buckets de los lotes. Re-reservar es idempotente:
// siempre reversa completa de lo anterior y reserva fresca contra la foto
// actual, nunca diffing incremental.
type OrderReservationManager struct {
	txRunner    TxRunner
	productRepo repository.ProductRepository
	locks       *ProductLocker
	log         *logger.Logger
	now         func() time.Time
}

// NewOrderReservationManager construye el gestor de reservas.
func NewOrderReservationManager(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	locks *ProductLocker,
	log *logger.Logger,
	clock func() time.Time,
) *OrderReservationManager {
	if clock == nil {
		clock = time.Now
	}
	return &OrderReservationManager{
		txRunner:    txRunner,
		productRepo: productRepo,
		locks:       locks,
		log:         log,
		now:         clock,
	}
}

// Reserve asigna la cantidad pedida a lotes concretos (FIFO) y la mueve de
// available a reserved. Si la línea ya tenía reserva, primero se reversa por
// completo y se re-reserva contra la foto actual; todo dentro de una sola
// transacción, de modo que ante stock insuficiente la reserva previa queda
// intacta.
func (m *OrderReservationManager) Reserve(ctx context.Context, orderLineID, productID string, quantity int64) (*entity.OrderLineAllocation, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	product, err := m.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}

	release, err := m.locks.Acquire(ctx, productID)
	if err != nil {
		return nil, err
	}
	defer release()
	txCtx := context.WithoutCancel(ctx)

	now := m.now()
	txID := uuid.New().String()
	var result *entity.OrderLineAllocation

	err = m.txRunner.Run(txCtx, func(
		batchRepo repository.BatchRepository,
		movementRepo repository.MovementRepository,
		allocationRepo repository.AllocationRepository,
	) error {
		prior, err := allocationRepo.Get(txCtx, orderLineID)
		if err != nil {
			return err
		}
		if prior != nil && prior.Status == entity.AllocationStatusFulfilled {
			// Una línea ya cumplida no se re-reserva.
			return domain.ErrInvalidInput
		}
		if prior != nil {
			if err := m.reverseEntries(txCtx, batchRepo, movementRepo, product, prior, txID, now); err != nil {
				return err
			}
		}

		snapshot, err := batchRepo.ListActive(txCtx, productID)
		if err != nil {
			return err
		}
		plan, err := batchsel.Select(snapshot, entity.MovementTypeRESERVE, quantity, nil, now)
		if err != nil {
			return err
		}
		if !plan.FullySatisfied() {
			// Rollback: la reversa anterior se deshace junto con todo lo demás.
			return domain.ErrInsufficientStock
		}

		allocation := &entity.OrderLineAllocation{
			OrderLineID:     orderLineID,
			ProductID:       productID,
			OrderedQuantity: quantity,
			Status:          entity.AllocationStatusReserved,
			UpdatedAt:       now,
		}
		for _, planEntry := range plan.Entries {
			b, err := batchRepo.GetForUpdate(txCtx, planEntry.BatchID)
			if err != nil {
				return err
			}
			if err := b.Move(entity.BucketAvailable, entity.BucketReserved, planEntry.Quantity); err != nil {
				return err
			}
			b.RecomputeStatus(now)
			b.UpdatedAt = now
			if err := batchRepo.Update(txCtx, b); err != nil {
				return err
			}
			mov := m.newOrderMovement(txID, product, orderLineID, entity.MovementTypeRESERVE, b, planEntry.Quantity, now)
			if err := movementRepo.Create(txCtx, mov); err != nil {
				return err
			}
			allocation.Entries = append(allocation.Entries, entity.AllocationEntry{
				BatchID:   planEntry.BatchID,
				BatchDate: planEntry.BatchDate,
				Quantity:  planEntry.Quantity,
			})
		}
		if err := allocationRepo.Save(txCtx, allocation); err != nil {
			return err
		}
		result = allocation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Fulfill consuma la reserva de la línea: mueve exactamente lo reservado de
// reserved a used en cada lote asignado y registra los OUT. Los lotes que
// vencieron con reserva tomada siguen siendo consumibles para cerrar la línea.
func (m *OrderReservationManager) Fulfill(ctx context.Context, orderLineID string) (*entity.OrderLineAllocation, error) {
	return m.settle(ctx, orderLineID, entity.MovementTypeOUT, entity.AllocationStatusFulfilled)
}

// Cancel reversa la reserva de la línea: lo reservado vuelve a available y la
// línea queda sin asignación.
func (m *OrderReservationManager) Cancel(ctx context.Context, orderLineID string) (*entity.OrderLineAllocation, error) {
	return m.settle(ctx, orderLineID, entity.MovementTypeRELEASE, entity.AllocationStatusUnallocated)
}

// settle cierra la reserva en una dirección u otra: OUT la consume hacia used,
// RELEASE la devuelve a available.
func (m *OrderReservationManager) settle(ctx context.Context, orderLineID, movementType, finalStatus string) (*entity.OrderLineAllocation, error) {
	productID, err := m.peekProductID(ctx, orderLineID)
	if err != nil {
		return nil, err
	}
	product, err := m.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}

	release, err := m.locks.Acquire(ctx, productID)
	if err != nil {
		return nil, err
	}
	defer release()
	txCtx := context.WithoutCancel(ctx)

	now := m.now()
	txID := uuid.New().String()
	var result *entity.OrderLineAllocation

	err = m.txRunner.Run(txCtx, func(
		batchRepo repository.BatchRepository,
		movementRepo repository.MovementRepository,
		allocationRepo repository.AllocationRepository,
	) error {
		allocation, err := allocationRepo.Get(txCtx, orderLineID)
		if err != nil {
			return err
		}
		if allocation == nil || allocation.Status != entity.AllocationStatusReserved || len(allocation.Entries) == 0 {
			return domain.ErrNothingReserved
		}

		to := entity.BucketAvailable
		if movementType == entity.MovementTypeOUT {
			to = entity.BucketUsed
		}
		for _, allocEntry := range allocation.Entries {
			b, err := batchRepo.GetForUpdate(txCtx, allocEntry.BatchID)
			if err != nil {
				return err
			}
			if err := b.Move(entity.BucketReserved, to, allocEntry.Quantity); err != nil {
				return err
			}
			b.RecomputeStatus(now)
			b.UpdatedAt = now
			if err := batchRepo.Update(txCtx, b); err != nil {
				return err
			}
			mov := m.newOrderMovement(txID, product, orderLineID, movementType, b, allocEntry.Quantity, now)
			if err := movementRepo.Create(txCtx, mov); err != nil {
				return err
			}
		}

		allocation.Status = finalStatus
		if finalStatus == entity.AllocationStatusUnallocated {
			allocation.Entries = nil
		}
		allocation.UpdatedAt = now
		if err := allocationRepo.Save(txCtx, allocation); err != nil {
			return err
		}
		result = allocation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// peekProductID lee el producto de la asignación fuera del lock; el estado se
// relee y valida dentro de la transacción con el lock ya tomado.
func (m *OrderReservationManager) peekProductID(ctx context.Context, orderLineID string) (string, error) {
	var productID string
	err := m.txRunner.Run(ctx, func(
		_ repository.BatchRepository,
		_ repository.MovementRepository,
		allocationRepo repository.AllocationRepository,
	) error {
		allocation, err := allocationRepo.Get(ctx, orderLineID)
		if err != nil {
			return err
		}
		if allocation == nil {
			return domain.ErrNothingReserved
		}
		productID = allocation.ProductID
		return nil
	})
	if err != nil {
		return "", err
	}
	return productID, nil
}

// reverseEntries deshace cada pareja (lote, cantidad) de una reserva previa,
// con su RELEASE correspondiente en el libro.
func (m *OrderReservationManager) reverseEntries(
	ctx context.Context,
	batchRepo repository.BatchRepository,
	movementRepo repository.MovementRepository,
	product *entity.Product,
	allocation *entity.OrderLineAllocation,
	txID string,
	now time.Time,
) error {
	for _, allocEntry := range allocation.Entries {
		b, err := batchRepo.GetForUpdate(ctx, allocEntry.BatchID)
		if err != nil {
			return err
		}
		if err := b.Move(entity.BucketReserved, entity.BucketAvailable, allocEntry.Quantity); err != nil {
			return err
		}
		b.RecomputeStatus(now)
		b.UpdatedAt = now
		if err := batchRepo.Update(ctx, b); err != nil {
			return err
		}
		mov := m.newOrderMovement(txID, product, allocation.OrderLineID, entity.MovementTypeRELEASE, b, allocEntry.Quantity, now)
		if err := movementRepo.Create(ctx, mov); err != nil {
			return err
		}
	}
	return nil
}

func (m *OrderReservationManager) newOrderMovement(txID string, product *entity.Product, orderLineID, movementType string, b *entity.Batch, qty int64, now time.Time) *entity.StockMovement {
	pieces := signedPieces(movementType, qty)
	d := b.BatchDate
	return &entity.StockMovement{
		ID:            uuid.New().String(),
		TransactionID: txID,
		ProductID:     product.ID,
		Type:          movementType,
		Pieces:        pieces,
		Boxes:         boxesEquivalent(pieces, product.PiecesPerBox),
		BatchID:       b.ID,
		BatchDate:     &d,
		OrderLineID:   orderLineID,
		CreatedAt:     now,
	}
}
