package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	// Validación: se rechazan antes de tocar estado.
	ErrInvalidQuantity  = errors.New("cantidad inválida")
	ErrInvalidDateRange = errors.New("rango de fechas incoherente")
	ErrInvalidInput     = errors.New("entrada inválida")

	// Conflicto: transitorios o de política.
	ErrDuplicateBatchKey      = errors.New("ya existe un lote para el producto y fecha")
	ErrConcurrentModification = errors.New("modificación concurrente del lote")
	ErrLockTimeout            = errors.New("timeout esperando el lock del producto")

	// Recurso: no existe o no es satisfacible; nunca se reintentan.
	ErrNotFound             = errors.New("recurso no encontrado")
	ErrInsufficientStock    = errors.New("stock insuficiente")
	ErrInsufficientQuantity = errors.New("cantidad insuficiente en el lote")
	ErrNothingReserved      = errors.New("la línea no tiene reserva")

	// Integridad: chequeo defensivo roto; fatal para la operación, jamás se reintenta.
	ErrInvariantViolation = errors.New("invariante de lote violada")
)
