package dto

import (
	"time"

	"github.com/tu-usuario/lotes-api/internal/domain/entity"
)

// ReserveRequest body para POST /api/orders/:lineID/reserve.
type ReserveRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// AllocationEntryResponse pareja (lote, cantidad) de una reserva.
type AllocationEntryResponse struct {
	BatchID   string `json:"batch_id"`
	BatchDate string `json:"batch_date"`
	Quantity  int64  `json:"quantity"`
}

// AllocationResponse asignación de una línea de pedido.
type AllocationResponse struct {
	OrderLineID      string                    `json:"order_line_id"`
	ProductID        string                    `json:"product_id"`
	OrderedQuantity  int64                     `json:"ordered_quantity"`
	ReservedQuantity int64                     `json:"reserved_quantity"`
	Status           string                    `json:"status"`
	Entries          []AllocationEntryResponse `json:"entries"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}

// AllocationToResponse convierte la entidad al DTO de respuesta.
func AllocationToResponse(a *entity.OrderLineAllocation) AllocationResponse {
	resp := AllocationResponse{
		OrderLineID:      a.OrderLineID,
		ProductID:        a.ProductID,
		OrderedQuantity:  a.OrderedQuantity,
		ReservedQuantity: a.ReservedQuantity(),
		Status:           a.Status,
		Entries:          make([]AllocationEntryResponse, 0, len(a.Entries)),
		UpdatedAt:        a.UpdatedAt,
	}
	for _, e := range a.Entries {
		resp.Entries = append(resp.Entries, AllocationEntryResponse{
			BatchID:   e.BatchID,
			BatchDate: e.BatchDate.Format("2006-01-02"),
			Quantity:  e.Quantity,
		})
	}
	return resp
}
