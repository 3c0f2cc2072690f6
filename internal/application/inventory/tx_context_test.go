package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/lotes-api/internal/application/inventory"
	"github.com/tu-usuario/lotes-api/internal/domain/entity"
	"github.com/tu-usuario/lotes-api/internal/domain/repository"
	"github.com/tu-usuario/lotes-api/internal/infrastructure/memory"
	"github.com/tu-usuario/lotes-api/pkg/logger"
)

// vigilanteDeContextos envuelve el almacén en memoria y cuenta cuántas
// operaciones de la unidad de trabajo bloqueada llegan con un contexto
// cancelable. Con el lock tomado la transacción debe completarse aunque el
// caller se cancele, así que todo acceso dentro del closure tiene que viajar
// con context.WithoutCancel (cuyo Done() es nil).
type vigilanteDeContextos struct {
	store       *memory.Store
	cancelables []string
}

func (v *vigilanteDeContextos) Run(ctx context.Context, fn func(
	batchRepo repository.BatchRepository,
	movementRepo repository.MovementRepository,
	allocationRepo repository.AllocationRepository,
) error) error {
	return v.store.Run(ctx, func(
		b repository.BatchRepository,
		m repository.MovementRepository,
		a repository.AllocationRepository,
	) error {
		return fn(&lotesVigilados{v: v, inner: b}, &movimientosVigilados{v: v, inner: m}, &asignacionesVigiladas{v: v, inner: a})
	})
}

func (v *vigilanteDeContextos) registrar(ctx context.Context, op string) {
	if ctx.Done() != nil {
		v.cancelables = append(v.cancelables, op)
	}
}

type lotesVigilados struct {
	v     *vigilanteDeContextos
	inner repository.BatchRepository
}

func (r *lotesVigilados) Create(ctx context.Context, b *entity.Batch) error {
	r.v.registrar(ctx, "batch.Create")
	return r.inner.Create(ctx, b)
}

func (r *lotesVigilados) GetForUpdate(ctx context.Context, id string) (*entity.Batch, error) {
	r.v.registrar(ctx, "batch.GetForUpdate")
	return r.inner.GetForUpdate(ctx, id)
}

func (r *lotesVigilados) GetByProductAndDate(ctx context.Context, productID string, batchDate time.Time) (*entity.Batch, error) {
	r.v.registrar(ctx, "batch.GetByProductAndDate")
	return r.inner.GetByProductAndDate(ctx, productID, batchDate)
}

func (r *lotesVigilados) ListActive(ctx context.Context, productID string) ([]*entity.Batch, error) {
	r.v.registrar(ctx, "batch.ListActive")
	return r.inner.ListActive(ctx, productID)
}

func (r *lotesVigilados) ListByProduct(ctx context.Context, productID string) ([]*entity.Batch, error) {
	return r.inner.ListByProduct(ctx, productID)
}

func (r *lotesVigilados) Update(ctx context.Context, b *entity.Batch) error {
	r.v.registrar(ctx, "batch.Update")
	return r.inner.Update(ctx, b)
}

type movimientosVigilados struct {
	v     *vigilanteDeContextos
	inner repository.MovementRepository
}

func (r *movimientosVigilados) Create(ctx context.Context, m *entity.StockMovement) error {
	r.v.registrar(ctx, "movement.Create")
	return r.inner.Create(ctx, m)
}

func (r *movimientosVigilados) GetByID(ctx context.Context, id string) (*entity.StockMovement, error) {
	return r.inner.GetByID(ctx, id)
}

func (r *movimientosVigilados) ListByTransaction(ctx context.Context, transactionID string) ([]*entity.StockMovement, error) {
	return r.inner.ListByTransaction(ctx, transactionID)
}

func (r *movimientosVigilados) List(ctx context.Context, filter entity.MovementFilter) ([]*entity.StockMovement, error) {
	return r.inner.List(ctx, filter)
}

func (r *movimientosVigilados) SumConsumedByBatch(ctx context.Context, batchID string) (int64, error) {
	return r.inner.SumConsumedByBatch(ctx, batchID)
}

type asignacionesVigiladas struct {
	v     *vigilanteDeContextos
	inner repository.AllocationRepository
}

// Get no se vigila: la lectura previa al lock viaja a propósito con el
// contexto del caller y puede abortarse sin dejar nada a medias.
func (r *asignacionesVigiladas) Get(ctx context.Context, orderLineID string) (*entity.OrderLineAllocation, error) {
	return r.inner.Get(ctx, orderLineID)
}

func (r *asignacionesVigiladas) Save(ctx context.Context, allocation *entity.OrderLineAllocation) error {
	r.v.registrar(ctx, "allocation.Save")
	return r.inner.Save(ctx, allocation)
}

func (r *asignacionesVigiladas) ListByBatch(ctx context.Context, batchID string) ([]*entity.OrderLineAllocation, error) {
	return r.inner.ListByBatch(ctx, batchID)
}

func TestTransaccionesIgnoranLaCancelacionDelCaller(t *testing.T) {
	store := memory.NewStore()
	store.SeedProduct(&entity.Product{
		ID:            "prod-1",
		Name:          "Queso fresco 500g",
		Code:          "QF-500",
		PiecesPerBox:  10,
		ShelfLifeDays: 30,
	})
	vigilante := &vigilanteDeContextos{store: store}
	locks := inventory.NewProductLocker(2 * time.Second)
	reloj := func() time.Time { return ahora }
	exec := inventory.NewAllocationExecutor(vigilante, store, locks, logger.Nop(), inventory.ExecutorConfig{Clock: reloj})
	reservas := inventory.NewOrderReservationManager(vigilante, store, locks, logger.Nop(), reloj)

	// Contexto cancelable, como el de una petición HTTP viva.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := exec.CreateBatch(ctx, inventory.CreateBatchInput{
		ProductID: "prod-1", TotalQuantity: 100, BatchDate: fecha(2024, 1, 10), SourceRef: "produccion",
	})
	require.NoError(t, err)
	_, err = exec.CreateBatch(ctx, inventory.CreateBatchInput{
		ProductID: "prod-1", TotalQuantity: 20, BatchDate: fecha(2024, 1, 10), SourceRef: "turno tarde", Merge: true,
	})
	require.NoError(t, err)

	_, err = exec.ExecuteMovement(ctx, inventory.MovementInput{
		ProductID: "prod-1", Type: entity.MovementTypeOUT, Quantity: 15,
	})
	require.NoError(t, err)

	_, err = reservas.Reserve(ctx, "linea-1", "prod-1", 30)
	require.NoError(t, err)
	_, err = reservas.Reserve(ctx, "linea-1", "prod-1", 40) // re-reserva con reversa previa
	require.NoError(t, err)
	_, err = reservas.Fulfill(ctx, "linea-1")
	require.NoError(t, err)
	_, err = reservas.Reserve(ctx, "linea-2", "prod-1", 10)
	require.NoError(t, err)
	_, err = reservas.Cancel(ctx, "linea-2")
	require.NoError(t, err)

	assert.Empty(t, vigilante.cancelables,
		"tras tomar el lock, ninguna operación de la transacción debe viajar con el contexto cancelable del caller")
}
