package entity

import (
	"time"

	"github.com/tu-usuario/lotes-api/internal/domain"
)

// Estados de un lote. Siempre se recalculan a partir de cantidades y fecha de
// vencimiento; nunca se fijan imperativamente.
const (
	BatchStatusActive   = "ACTIVE"
	BatchStatusDepleted = "DEPLETED"
	BatchStatusExpired  = "EXPIRED"
)

// Bucket identifica una de las tres cantidades móviles de un lote.
type Bucket int

const (
	BucketAvailable Bucket = iota // libre para asignar
	BucketReserved                // apartado para una línea de pedido
	BucketUsed                    // consumido definitivamente (despachado o dado de baja)
)

// Batch representa un lote de producción fechado de un producto.
// Invariantes: available + reserved + used == total, cantidades >= 0,
// único por (product_id, batch_date). Los lotes nunca se eliminan.
type Batch struct {
	ID             string
	ProductID      string
	BatchDate      time.Time // clave de ordenamiento FIFO/LIFO
	ProductionDate time.Time
	ExpiryDate     time.Time

	TotalQuantity     int64 // fijado en la creación; solo crece por merge/corrección
	AvailableQuantity int64
	ReservedQuantity  int64
	UsedQuantity      int64

	Status    string
	SourceRef string // referencia al evento de origen (producción, llegada, corrección)
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBatch construye un lote recién recibido: available = total, nada reservado ni usado.
func NewBatch(productID string, total int64, batchDate, productionDate, expiryDate time.Time, sourceRef string) (*Batch, error) {
	if total <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if expiryDate.Before(batchDate) || productionDate.After(expiryDate) {
		return nil, domain.ErrInvalidDateRange
	}
	return &Batch{
		ProductID:         productID,
		BatchDate:         batchDate,
		ProductionDate:    productionDate,
		ExpiryDate:        expiryDate,
		TotalQuantity:     total,
		AvailableQuantity: total,
		Status:            BatchStatusActive,
		SourceRef:         sourceRef,
	}, nil
}

func (b *Batch) bucket(f Bucket) *int64 {
	switch f {
	case BucketAvailable:
		return &b.AvailableQuantity
	case BucketReserved:
		return &b.ReservedQuantity
	default:
		return &b.UsedQuantity
	}
}

// Receive incrementa total y available a la vez (recepción de producción o
// merge de llegada el mismo día). Mantiene la suma de buckets por construcción.
func (b *Batch) Receive(qty int64) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	b.TotalQuantity += qty
	b.AvailableQuantity += qty
	return b.Validate()
}

// Move transfiere qty entre buckets del lote (available→reserved al reservar,
// reserved→available al liberar, available/reserved→used al consumir).
// Es el único mutador de cantidades junto a Receive; mantiene la suma por construcción.
func (b *Batch) Move(from, to Bucket, qty int64) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	if from == to {
		return domain.ErrInvalidInput
	}
	src := b.bucket(from)
	if *src < qty {
		return domain.ErrInsufficientQuantity
	}
	*src -= qty
	*b.bucket(to) += qty
	return b.Validate()
}

// Validate re-verifica suma y no-negatividad. Que falle aquí es un bug: los mutadores
// preservan las invariantes por construcción.
func (b *Batch) Validate() error {
	if b.AvailableQuantity < 0 || b.ReservedQuantity < 0 || b.UsedQuantity < 0 || b.TotalQuantity < 0 {
		return domain.ErrInvariantViolation
	}
	if b.AvailableQuantity+b.ReservedQuantity+b.UsedQuantity != b.TotalQuantity {
		return domain.ErrInvariantViolation
	}
	return nil
}

// IsExpired indica si el lote venció respecto al reloj recibido (precisión de día).
func (b *Batch) IsExpired(now time.Time) bool {
	return b.ExpiryDate.Before(truncateDay(now))
}

// RecomputeStatus recalcula el estado a partir de cantidades y vencimiento.
// EXPIRED manda sobre DEPLETED: un lote vencido queda excluido de selección
// nueva aunque conserve cantidad, pero sigue consumible para cerrar reservas.
func (b *Batch) RecomputeStatus(now time.Time) {
	switch {
	case b.IsExpired(now):
		b.Status = BatchStatusExpired
	case b.AvailableQuantity == 0 && b.ReservedQuantity == 0 && b.UsedQuantity == b.TotalQuantity:
		b.Status = BatchStatusDepleted
	default:
		b.Status = BatchStatusActive
	}
}

// DaysToExpiry días hasta el vencimiento (negativo si ya venció).
func (b *Batch) DaysToExpiry(now time.Time) int {
	return int(b.ExpiryDate.Sub(truncateDay(now)).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
