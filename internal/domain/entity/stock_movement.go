package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de stock.
const (
	MovementTypeIN         = "IN"         // entrada genérica
	MovementTypeOUT        = "OUT"        // salida / despacho
	MovementTypePRODUCTION = "PRODUCTION" // recepción de producción
	MovementTypeWRITEOFF   = "WRITEOFF"   // baja / merma
	MovementTypeTRANSFER   = "TRANSFER"   // traslado
	MovementTypeCORRECTION = "CORRECTION" // corrección manual
	MovementTypeRESERVE    = "RESERVE"    // apartado para línea de pedido (no consume)
	MovementTypeRELEASE    = "RELEASE"    // reversa de una reserva (no consume)
)

// consumingTypes tipos que consumen stock físico; solo estos cuentan para la
// conciliación contra used_quantity.
var consumingTypes = map[string]bool{
	MovementTypeOUT:      true,
	MovementTypeWRITEOFF: true,
}

// IsConsumingType indica si un tipo de movimiento consume stock físico.
func IsConsumingType(t string) bool { return consumingTypes[t] }

// executableTypes tipos que acepta el ejecutor como entrada. RESERVE y RELEASE
// los emite únicamente el gestor de reservas: si entraran por el ejecutor
// moverían cantidad a reserved sin asignación que luego permita liberarla.
var executableTypes = map[string]bool{
	MovementTypeIN:         true,
	MovementTypeOUT:        true,
	MovementTypePRODUCTION: true,
	MovementTypeWRITEOFF:   true,
	MovementTypeTRANSFER:   true,
	MovementTypeCORRECTION: true,
}

// IsExecutableType indica si el tipo puede ejecutarse como movimiento externo.
func IsExecutableType(t string) bool { return executableTypes[t] }

// StockMovement es una entrada inmutable del libro de movimientos: un cambio
// atómico de cantidad de un producto, atribuido a lo sumo a un lote.
// Solo se agregan entradas; las correcciones son movimientos nuevos.
type StockMovement struct {
	ID            string
	TransactionID string // agrupa las entradas por-lote de un mismo movimiento lógico
	ProductID     string
	Type          string
	Pieces        int64           // delta firmado en piezas
	Boxes         decimal.Decimal // equivalente en cajas (Pieces / pieces_per_box)
	BatchID       string          // vacío si el movimiento no tocó un lote
	BatchDate     *time.Time
	OrderLineID   string // vacío salvo movimientos de reserva/cumplimiento
	Reason        string
	Actor         string
	CreatedAt     time.Time
}

// MovementFilter criterios de lectura del libro (colaboradores de reporte/auditoría).
type MovementFilter struct {
	ProductID string
	BatchID   string
	Type      string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}
