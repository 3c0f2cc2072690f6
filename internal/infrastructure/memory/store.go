package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tu-usuario/lotes-api/internal/domain"
	"github.com/tu-usuario/lotes-api/internal/domain/entity"
	"github.com/tu-usuario/lotes-api/internal/domain/repository"
)

// Store implementación en memoria del runner transaccional y de todos los
// repositorios. Mismo contrato que la implementación de postgres (errores
// centinela incluidos); las transacciones se simulan con snapshot y
// restauración ante error. Pensado para tests y para correr el motor sin BD.
type Store struct {
	mu          sync.Mutex
	batches     map[string]*entity.Batch
	batchKeys   map[string]string // product_id|batch_date -> batch_id
	movements   []*entity.StockMovement
	allocations map[string]*entity.OrderLineAllocation
	products    map[string]*entity.Product
}

// NewStore construye el almacén vacío.
func NewStore() *Store {
	return &Store{
		batches:     make(map[string]*entity.Batch),
		batchKeys:   make(map[string]string),
		allocations: make(map[string]*entity.OrderLineAllocation),
		products:    make(map[string]*entity.Product),
	}
}

func batchKey(productID string, batchDate time.Time) string {
	return productID + "|" + batchDate.Format("2006-01-02")
}

// Run ejecuta fn con repositorios atados al almacén bajo el lock global.
// Ante error se restaura el snapshot previo, imitando el rollback de una
// transacción real.
func (s *Store) Run(_ context.Context, fn func(
	batchRepo repository.BatchRepository,
	movementRepo repository.MovementRepository,
	allocationRepo repository.AllocationRepository,
) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	err := fn(&batchRepo{s: s}, &movementRepo{s: s}, &allocationRepo{s: s})
	if err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type storeSnapshot struct {
	batches     map[string]*entity.Batch
	batchKeys   map[string]string
	movements   []*entity.StockMovement
	allocations map[string]*entity.OrderLineAllocation
}

func (s *Store) snapshot() storeSnapshot {
	snap := storeSnapshot{
		batches:     make(map[string]*entity.Batch, len(s.batches)),
		batchKeys:   make(map[string]string, len(s.batchKeys)),
		movements:   make([]*entity.StockMovement, len(s.movements)),
		allocations: make(map[string]*entity.OrderLineAllocation, len(s.allocations)),
	}
	for id, b := range s.batches {
		snap.batches[id] = copyBatch(b)
	}
	for k, v := range s.batchKeys {
		snap.batchKeys[k] = v
	}
	copy(snap.movements, s.movements)
	for id, a := range s.allocations {
		snap.allocations[id] = copyAllocation(a)
	}
	return snap
}

func (s *Store) restore(snap storeSnapshot) {
	s.batches = snap.batches
	s.batchKeys = snap.batchKeys
	s.movements = snap.movements
	s.allocations = snap.allocations
}

// Batches devuelve un repositorio de lectura atado al almacén, fuera de
// transacción. Mismo uso que un repo atado al pool en postgres. No sincroniza
// contra Run; para lecturas concurrentes con escrituras usar Run.
func (s *Store) Batches() repository.BatchRepository { return &batchRepo{s: s} }

// Movements devuelve un repositorio de lectura del libro.
func (s *Store) Movements() repository.MovementRepository { return &movementRepo{s: s} }

// Allocations devuelve un repositorio de lectura de asignaciones.
func (s *Store) Allocations() repository.AllocationRepository { return &allocationRepo{s: s} }

// SeedProduct registra un producto en el catálogo.
func (s *Store) SeedProduct(p *entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *p
	s.products[p.ID] = &c
}

// GetByID implementa repository.ProductRepository.
func (s *Store) GetByID(_ context.Context, id string) (*entity.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func copyBatch(b *entity.Batch) *entity.Batch {
	c := *b
	return &c
}

func copyMovement(m *entity.StockMovement) *entity.StockMovement {
	c := *m
	if m.BatchDate != nil {
		d := *m.BatchDate
		c.BatchDate = &d
	}
	return &c
}

func copyAllocation(a *entity.OrderLineAllocation) *entity.OrderLineAllocation {
	c := *a
	c.Entries = append([]entity.AllocationEntry(nil), a.Entries...)
	return &c
}

// ---- lotes ----

type batchRepo struct{ s *Store }

var _ repository.BatchRepository = (*batchRepo)(nil)

func (r *batchRepo) Create(_ context.Context, b *entity.Batch) error {
	key := batchKey(b.ProductID, b.BatchDate)
	if _, exists := r.s.batchKeys[key]; exists {
		return domain.ErrDuplicateBatchKey
	}
	r.s.batches[b.ID] = copyBatch(b)
	r.s.batchKeys[key] = b.ID
	return nil
}

func (r *batchRepo) GetForUpdate(_ context.Context, id string) (*entity.Batch, error) {
	b, ok := r.s.batches[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyBatch(b), nil
}

func (r *batchRepo) GetByProductAndDate(_ context.Context, productID string, batchDate time.Time) (*entity.Batch, error) {
	id, ok := r.s.batchKeys[batchKey(productID, batchDate)]
	if !ok {
		return nil, nil
	}
	return copyBatch(r.s.batches[id]), nil
}

func (r *batchRepo) ListActive(_ context.Context, productID string) ([]*entity.Batch, error) {
	var out []*entity.Batch
	for _, b := range r.s.batches {
		if b.ProductID != productID {
			continue
		}
		if b.Status == entity.BatchStatusActive ||
			(b.Status == entity.BatchStatusExpired && b.ReservedQuantity > 0) {
			out = append(out, copyBatch(b))
		}
	}
	return out, nil
}

func (r *batchRepo) ListByProduct(_ context.Context, productID string) ([]*entity.Batch, error) {
	var out []*entity.Batch
	for _, b := range r.s.batches {
		if b.ProductID == productID {
			out = append(out, copyBatch(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BatchDate.Before(out[j].BatchDate) })
	return out, nil
}

func (r *batchRepo) Update(_ context.Context, b *entity.Batch) error {
	if _, ok := r.s.batches[b.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.batches[b.ID] = copyBatch(b)
	return nil
}

// ---- libro de movimientos ----

type movementRepo struct{ s *Store }

var _ repository.MovementRepository = (*movementRepo)(nil)

func (r *movementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	r.s.movements = append(r.s.movements, copyMovement(m))
	return nil
}

func (r *movementRepo) GetByID(_ context.Context, id string) (*entity.StockMovement, error) {
	for _, m := range r.s.movements {
		if m.ID == id {
			return copyMovement(m), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *movementRepo) ListByTransaction(_ context.Context, transactionID string) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, m := range r.s.movements {
		if m.TransactionID == transactionID {
			out = append(out, copyMovement(m))
		}
	}
	return out, nil
}

func (r *movementRepo) List(_ context.Context, filter entity.MovementFilter) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, m := range r.s.movements {
		if filter.ProductID != "" && m.ProductID != filter.ProductID {
			continue
		}
		if filter.BatchID != "" && m.BatchID != filter.BatchID {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		if filter.From != nil && m.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && m.CreatedAt.After(*filter.To) {
			continue
		}
		out = append(out, copyMovement(m))
	}
	// Más recientes primero, como el listado de postgres.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *movementRepo) SumConsumedByBatch(_ context.Context, batchID string) (int64, error) {
	var sum int64
	for _, m := range r.s.movements {
		if m.BatchID == batchID && entity.IsConsumingType(m.Type) {
			sum += m.Pieces
		}
	}
	return sum, nil
}

// ---- asignaciones ----

type allocationRepo struct{ s *Store }

var _ repository.AllocationRepository = (*allocationRepo)(nil)

func (r *allocationRepo) Get(_ context.Context, orderLineID string) (*entity.OrderLineAllocation, error) {
	a, ok := r.s.allocations[orderLineID]
	if !ok {
		return nil, nil
	}
	return copyAllocation(a), nil
}

func (r *allocationRepo) Save(_ context.Context, allocation *entity.OrderLineAllocation) error {
	r.s.allocations[allocation.OrderLineID] = copyAllocation(allocation)
	return nil
}

func (r *allocationRepo) ListByBatch(_ context.Context, batchID string) ([]*entity.OrderLineAllocation, error) {
	var out []*entity.OrderLineAllocation
	for _, a := range r.s.allocations {
		for _, e := range a.Entries {
			if e.BatchID == batchID {
				out = append(out, copyAllocation(a))
				break
			}
		}
	}
	return out, nil
}
