package entity

import "time"

// Estados de la asignación de una línea de pedido.
const (
	AllocationStatusUnallocated = "UNALLOCATED"
	AllocationStatusReserved    = "RESERVED"
	AllocationStatusFulfilled   = "FULFILLED"
)

// AllocationEntry una pareja (lote, cantidad) apartada para la línea.
type AllocationEntry struct {
	BatchID   string
	BatchDate time.Time
	Quantity  int64
}

// OrderLineAllocation asocia una línea de pedido con los lotes elegidos para
// cumplirla. Colección propia (no un blob serializado) para poder revertir
// estructuralmente antes de re-reservar.
type OrderLineAllocation struct {
	OrderLineID     string
	ProductID       string
	OrderedQuantity int64
	Status          string
	Entries         []AllocationEntry
	UpdatedAt       time.Time
}

// ReservedQuantity suma de las cantidades apartadas en los lotes.
func (a *OrderLineAllocation) ReservedQuantity() int64 {
	var sum int64
	for _, e := range a.Entries {
		sum += e.Quantity
	}
	return sum
}
