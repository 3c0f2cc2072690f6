package dto

import (
	"time"

	"github.com/tu-usuario/lotes-api/internal/domain/entity"
)

// CreateBatchRequest body para POST /api/batches. Las fechas van en "2006-01-02".
type CreateBatchRequest struct {
	ProductID      string `json:"product_id"`
	TotalQuantity  int64  `json:"total_quantity"`
	BatchDate      string `json:"batch_date"`
	ProductionDate string `json:"production_date,omitempty"`
	ExpiryDate     string `json:"expiry_date,omitempty"`
	SourceRef      string `json:"source_ref,omitempty"`
	Notes          string `json:"notes,omitempty"`
	Merge          bool   `json:"merge,omitempty"`
	Actor          string `json:"actor,omitempty"`
}

// BatchResponse representación de un lote en respuestas.
type BatchResponse struct {
	ID                string    `json:"id"`
	ProductID         string    `json:"product_id"`
	BatchDate         string    `json:"batch_date"`
	ProductionDate    string    `json:"production_date"`
	ExpiryDate        string    `json:"expiry_date"`
	TotalQuantity     int64     `json:"total_quantity"`
	AvailableQuantity int64     `json:"available_quantity"`
	ReservedQuantity  int64     `json:"reserved_quantity"`
	UsedQuantity      int64     `json:"used_quantity"`
	Status            string    `json:"status"`
	DaysToExpiry      int       `json:"days_to_expiry"`
	SourceRef         string    `json:"source_ref,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// BatchToResponse convierte la entidad al DTO de respuesta.
func BatchToResponse(b *entity.Batch, now time.Time) BatchResponse {
	return BatchResponse{
		ID:                b.ID,
		ProductID:         b.ProductID,
		BatchDate:         b.BatchDate.Format("2006-01-02"),
		ProductionDate:    b.ProductionDate.Format("2006-01-02"),
		ExpiryDate:        b.ExpiryDate.Format("2006-01-02"),
		TotalQuantity:     b.TotalQuantity,
		AvailableQuantity: b.AvailableQuantity,
		ReservedQuantity:  b.ReservedQuantity,
		UsedQuantity:      b.UsedQuantity,
		Status:            b.Status,
		DaysToExpiry:      b.DaysToExpiry(now),
		SourceRef:         b.SourceRef,
		Notes:             b.Notes,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
}
