// Package batch contiene la lógica pura de selección de lotes: dada una foto
// en memoria de los lotes de un producto, decide de cuáles tomar cantidad y en
// qué orden. No tiene efectos secundarios; el ejecutor decide la política de
// rechazo y aplica el plan de forma atómica.
package batch

import (
	"sort"
	"time"

	"github.com/tu-usuario/lotes-api/internal/domain"
	"github.com/tu-usuario/lotes-api/internal/domain/entity"
)

// PlanEntry una pareja (lote, cantidad a tomar) dentro de un plan.
type PlanEntry struct {
	BatchID   string
	BatchDate time.Time
	Quantity  int64
}

// Plan resultado ordenado del selector. Allocated puede ser menor que
// Requested: el selector nunca rechaza por stock insuficiente, reporta el
// faltante como dato y deja la política al ejecutor.
type Plan struct {
	Entries   []PlanEntry
	Requested int64
	Allocated int64
	Shortfall int64
}

// FullySatisfied indica si el plan cubre todo lo pedido.
func (p Plan) FullySatisfied() bool { return p.Shortfall == 0 }

// Select calcula el plan de asignación para un movimiento.
//
// Política por tipo:
//   - PRODUCTION con targetDate: coincidencia exacta (fecha y total == cantidad,
//     cierre de un lote planificado), luego cualquier lote de esa fecha, luego
//     el más nuevo (LIFO). Sin targetDate: siempre el más nuevo.
//   - OUT / WRITEOFF: FIFO multi-lote sobre lotes ACTIVE con disponible > 0;
//     mejor esfuerzo si ningún lote alcanza por sí solo.
//   - IN / TRANSFER / CORRECTION: el lote más nuevo (ajustes manuales).
//   - Tipo desconocido: FIFO, igual que OUT.
//
// Empate de batch_date (no debería darse con la clave única): gana el ID menor.
func Select(batches []*entity.Batch, movementType string, quantity int64, targetDate *time.Time, now time.Time) (Plan, error) {
	if quantity <= 0 {
		return Plan{}, domain.ErrInvalidQuantity
	}
	plan := Plan{Requested: quantity}

	switch movementType {
	case entity.MovementTypePRODUCTION:
		selected := selectForProduction(batches, quantity, targetDate, now)
		if selected != nil {
			plan.Entries = []PlanEntry{{BatchID: selected.ID, BatchDate: selected.BatchDate, Quantity: quantity}}
			plan.Allocated = quantity
		}
	case entity.MovementTypeIN, entity.MovementTypeTRANSFER, entity.MovementTypeCORRECTION:
		selected := newestActive(batches, now)
		if selected != nil {
			plan.Entries = []PlanEntry{{BatchID: selected.ID, BatchDate: selected.BatchDate, Quantity: quantity}}
			plan.Allocated = quantity
		}
	default: // OUT, WRITEOFF y tipos desconocidos
		plan.Entries, plan.Allocated = takeFIFO(batches, quantity, now)
	}

	plan.Shortfall = plan.Requested - plan.Allocated
	if len(plan.Entries) == 0 {
		// Sin lotes elegibles: plan vacío, no es un error del selector.
		plan.Shortfall = plan.Requested
		plan.Allocated = 0
	}
	return plan, nil
}

// selectForProduction busca el lote destino de una recepción de producción.
func selectForProduction(batches []*entity.Batch, quantity int64, targetDate *time.Time, now time.Time) *entity.Batch {
	if targetDate == nil {
		return newestActive(batches, now)
	}
	candidates := activeBatches(batches, now)

	// Coincidencia exacta: cierre de un lote planificado de ese día y cantidad.
	for _, b := range candidates {
		if sameDay(b.BatchDate, *targetDate) && b.TotalQuantity == quantity {
			return b
		}
	}
	for _, b := range candidates {
		if sameDay(b.BatchDate, *targetDate) {
			return b
		}
	}
	return newestActive(batches, now)
}

// takeFIFO reparte la cantidad entre los lotes elegibles del más viejo al más
// nuevo. Devuelve el plan parcial y lo efectivamente asignado.
func takeFIFO(batches []*entity.Batch, quantity int64, now time.Time) ([]PlanEntry, int64) {
	candidates := make([]*entity.Batch, 0, len(batches))
	for _, b := range activeBatches(batches, now) {
		if b.AvailableQuantity > 0 {
			candidates = append(candidates, b)
		}
	}
	sortByBatchDate(candidates, true)

	var entries []PlanEntry
	var allocated int64
	remaining := quantity
	for _, b := range candidates {
		if remaining <= 0 {
			break
		}
		take := min64(remaining, b.AvailableQuantity)
		entries = append(entries, PlanEntry{BatchID: b.ID, BatchDate: b.BatchDate, Quantity: take})
		remaining -= take
		allocated += take
	}
	return entries, allocated
}

// activeBatches filtra lotes ACTIVE no vencidos. Los vencidos quedan fuera de
// toda selección nueva; solo sirven para cerrar reservas ya tomadas.
func activeBatches(batches []*entity.Batch, now time.Time) []*entity.Batch {
	out := make([]*entity.Batch, 0, len(batches))
	for _, b := range batches {
		if b.Status == entity.BatchStatusActive && !b.IsExpired(now) {
			out = append(out, b)
		}
	}
	return out
}

func newestActive(batches []*entity.Batch, now time.Time) *entity.Batch {
	candidates := activeBatches(batches, now)
	if len(candidates) == 0 {
		return nil
	}
	sortByBatchDate(candidates, false)
	return candidates[0]
}

// sortByBatchDate ordena por batch_date (asc=FIFO, desc=LIFO) con desempate
// determinista por ID ascendente.
func sortByBatchDate(batches []*entity.Batch, asc bool) {
	sort.SliceStable(batches, func(i, j int) bool {
		di, dj := batches[i].BatchDate, batches[j].BatchDate
		if di.Equal(dj) {
			return batches[i].ID < batches[j].ID
		}
		if asc {
			return di.Before(dj)
		}
		return di.After(dj)
	})
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
