package inventory

import (
	"context"

	"github.com/tu-usuario/lotes-api/internal/domain/repository"
	"github.com/tu-usuario/lotes-api/pkg/logger"
)

// BatchReconciliation contraste de un lote contra el libro de movimientos:
// used_quantity debe igualar la suma de consumos (OUT y WRITEOFF) registrados
// contra el lote. RESERVE y RELEASE son tránsitos entre buckets y no cuentan.
type BatchReconciliation struct {
	BatchID        string `json:"batch_id"`
	UsedQuantity   int64  `json:"used_quantity"`
	LedgerConsumed int64  `json:"ledger_consumed"`
	Consistent     bool   `json:"consistent"`
}

// Reconciler verifica que los saldos de los lotes se deriven del libro.
type Reconciler struct {
	txRunner TxRunner
	log      *logger.Logger
}

// NewReconciler construye el verificador.
func NewReconciler(txRunner TxRunner, log *logger.Logger) *Reconciler {
	return &Reconciler{txRunner: txRunner, log: log}
}

// CheckBatch contrasta un lote concreto contra el libro.
func (r *Reconciler) CheckBatch(ctx context.Context, batchID string) (*BatchReconciliation, error) {
	var result *BatchReconciliation
	err := r.txRunner.Run(ctx, func(
		batchRepo repository.BatchRepository,
		movementRepo repository.MovementRepository,
		_ repository.AllocationRepository,
	) error {
		b, err := batchRepo.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		consumedPieces, err := movementRepo.SumConsumedByBatch(ctx, b.ID)
		if err != nil {
			return err
		}
		rec := r.contrast(b.ProductID, b.ID, b.UsedQuantity, consumedPieces)
		result = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CheckProduct contrasta cada lote del producto contra el libro en una misma
// transacción (foto consistente). Las discrepancias se devuelven como dato y
// se dejan en el log; el caller decide qué hacer con ellas.
func (r *Reconciler) CheckProduct(ctx context.Context, productID string) ([]BatchReconciliation, error) {
	var results []BatchReconciliation
	err := r.txRunner.Run(ctx, func(
		batchRepo repository.BatchRepository,
		movementRepo repository.MovementRepository,
		_ repository.AllocationRepository,
	) error {
		batches, err := batchRepo.ListByProduct(ctx, productID)
		if err != nil {
			return err
		}
		for _, b := range batches {
			consumedPieces, err := movementRepo.SumConsumedByBatch(ctx, b.ID)
			if err != nil {
				return err
			}
			results = append(results, r.contrast(productID, b.ID, b.UsedQuantity, consumedPieces))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// contrast arma el resultado de un lote. Los consumos se registran con piezas
// negativas, por eso el signo se invierte al comparar.
func (r *Reconciler) contrast(productID, batchID string, usedQuantity, consumedPieces int64) BatchReconciliation {
	rec := BatchReconciliation{
		BatchID:        batchID,
		UsedQuantity:   usedQuantity,
		LedgerConsumed: -consumedPieces,
	}
	rec.Consistent = rec.UsedQuantity == rec.LedgerConsumed
	if !rec.Consistent {
		r.log.Error().
			Str("product_id", productID).
			Str("batch_id", batchID).
			Int64("used_quantity", rec.UsedQuantity).
			Int64("libro", rec.LedgerConsumed).
			Msg("lote inconsistente con el libro de movimientos")
	}
	return rec
}
