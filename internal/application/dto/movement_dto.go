package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/lotes-api/internal/domain/entity"
)

// RegisterMovementRequest body para POST /api/movements.
type RegisterMovementRequest struct {
	ProductID   string `json:"product_id"`
	Type        string `json:"type"`
	Quantity    int64  `json:"quantity"`
	TargetDate  string `json:"target_date,omitempty"` // "2006-01-02"; PRODUCTION contra un día concreto
	BatchID     string `json:"batch_id,omitempty"`    // fijar el lote a mano (bajas identificadas)
	RequireFull bool   `json:"require_full,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Actor       string `json:"actor,omitempty"`
}

// WriteoffRequest body para POST /api/writeoffs.
type WriteoffRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	BatchID   string `json:"batch_id,omitempty"` // lote físico identificado; vacío = FIFO
	Reason    string `json:"reason"`
	Actor     string `json:"actor,omitempty"`
}

// MovementResponse entrada del libro en respuestas.
type MovementResponse struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	ProductID     string          `json:"product_id"`
	Type          string          `json:"type"`
	Pieces        int64           `json:"pieces"`
	Boxes         decimal.Decimal `json:"boxes"`
	BatchID       string          `json:"batch_id,omitempty"`
	BatchDate     string          `json:"batch_date,omitempty"`
	OrderLineID   string          `json:"order_line_id,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	Actor         string          `json:"actor,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// MovementToResponse convierte la entidad al DTO de respuesta.
func MovementToResponse(m *entity.StockMovement) MovementResponse {
	resp := MovementResponse{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		ProductID:     m.ProductID,
		Type:          m.Type,
		Pieces:        m.Pieces,
		Boxes:         m.Boxes,
		BatchID:       m.BatchID,
		OrderLineID:   m.OrderLineID,
		Reason:        m.Reason,
		Actor:         m.Actor,
		CreatedAt:     m.CreatedAt,
	}
	if m.BatchDate != nil {
		resp.BatchDate = m.BatchDate.Format("2006-01-02")
	}
	return resp
}

// PlanEntryResponse pareja (lote, cantidad) de un plan aplicado.
type PlanEntryResponse struct {
	BatchID   string `json:"batch_id"`
	BatchDate string `json:"batch_date"`
	Quantity  int64  `json:"quantity"`
}

// MovementResultResponse resultado de un movimiento ejecutado.
type MovementResultResponse struct {
	TransactionID string              `json:"transaction_id"`
	MovementIDs   []string            `json:"movement_ids"`
	Requested     int64               `json:"requested"`
	Allocated     int64               `json:"allocated"`
	Shortfall     int64               `json:"shortfall"`
	Entries       []PlanEntryResponse `json:"entries"`
}
