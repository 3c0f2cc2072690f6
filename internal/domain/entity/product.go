package entity

import "time"

// Product datos mínimos del catálogo que el motor de lotes necesita:
// equivalencia piezas/caja y vida útil para calcular vencimientos por defecto.
type Product struct {
	ID             string
	Name           string
	Code           string
	PiecesPerBox   int64
	ShelfLifeDays  int // vida útil; expiry = batch_date + shelf life si el caller no la da
	MinStockPieces int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
