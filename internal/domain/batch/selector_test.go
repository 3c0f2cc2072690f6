package batch_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/lotes-api/internal/domain"
	batchsel "github.com/tu-usuario/lotes-api/internal/domain/batch"
	"github.com/tu-usuario/lotes-api/internal/domain/entity"
)

var ahora = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func fecha(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// lote construye un lote ACTIVE con la cantidad disponible indicada.
func lote(t *testing.T, id string, batchDate time.Time, available int64) *entity.Batch {
	t.Helper()
	b, err := entity.NewBatch("prod-1", available, batchDate, batchDate, batchDate.AddDate(0, 1, 0), "")
	require.NoError(t, err)
	b.ID = id
	return b
}

func TestSelect_FIFOMultiLote(t *testing.T) {
	batches := []*entity.Batch{
		lote(t, "b-nuevo", fecha(2024, 1, 5), 5),
		lote(t, "b-viejo", fecha(2024, 1, 1), 10),
	}

	plan, err := batchsel.Select(batches, entity.MovementTypeOUT, 15, nil, ahora)
	require.NoError(t, err)

	require.Len(t, plan.Entries, 2, "una salida de 15 debe repartirse en los dos lotes")
	assert.Equal(t, "b-viejo", plan.Entries[0].BatchID, "FIFO: primero el lote más viejo")
	assert.Equal(t, int64(10), plan.Entries[0].Quantity)
	assert.Equal(t, "b-nuevo", plan.Entries[1].BatchID)
	assert.Equal(t, int64(5), plan.Entries[1].Quantity)
	assert.True(t, plan.FullySatisfied())
}

func TestSelect_FIFOConFaltante(t *testing.T) {
	batches := []*entity.Batch{
		lote(t, "b-1", fecha(2024, 1, 1), 10),
		lote(t, "b-2", fecha(2024, 1, 5), 5),
	}

	plan, err := batchsel.Select(batches, entity.MovementTypeOUT, 20, nil, ahora)
	require.NoError(t, err, "el faltante es dato del plan, no error del selector")

	assert.Equal(t, int64(15), plan.Allocated)
	assert.Equal(t, int64(5), plan.Shortfall)
	assert.False(t, plan.FullySatisfied())
}

func TestSelect_SinLotesElegibles(t *testing.T) {
	plan, err := batchsel.Select(nil, entity.MovementTypeOUT, 10, nil, ahora)
	require.NoError(t, err)

	assert.Empty(t, plan.Entries)
	assert.Equal(t, int64(10), plan.Shortfall)
}

func TestSelect_CantidadInvalida(t *testing.T) {
	_, err := batchsel.Select(nil, entity.MovementTypeOUT, 0, nil, ahora)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestSelect_VencidosExcluidos(t *testing.T) {
	vencido := lote(t, "b-vencido", fecha(2023, 10, 1), 50) // venció 2023-11-01
	fresco := lote(t, "b-fresco", fecha(2024, 1, 10), 10)

	plan, err := batchsel.Select([]*entity.Batch{vencido, fresco}, entity.MovementTypeOUT, 10, nil, ahora)
	require.NoError(t, err)

	require.Len(t, plan.Entries, 1)
	assert.Equal(t, "b-fresco", plan.Entries[0].BatchID,
		"lo vencido no entra en selección nueva aunque tenga disponible")
}

func TestSelect_AjustesEntrantesVanAlMasNuevo(t *testing.T) {
	batches := []*entity.Batch{
		lote(t, "b-viejo", fecha(2024, 1, 1), 10),
		lote(t, "b-nuevo", fecha(2024, 1, 10), 10),
	}

	for _, tipo := range []string{entity.MovementTypeIN, entity.MovementTypeTRANSFER, entity.MovementTypeCORRECTION} {
		plan, err := batchsel.Select(batches, tipo, 7, nil, ahora)
		require.NoError(t, err, tipo)
		require.Len(t, plan.Entries, 1, tipo)
		assert.Equal(t, "b-nuevo", plan.Entries[0].BatchID, "los ajustes entrantes van al lote más nuevo")
		assert.Equal(t, int64(7), plan.Entries[0].Quantity)
	}
}

func TestSelect_ProduccionCoincidenciaExacta(t *testing.T) {
	objetivo := fecha(2024, 1, 10)
	exacto := lote(t, "b-exacto", objetivo, 30)      // total 30 == cantidad pedida
	mismoDia := lote(t, "b-mismo-dia", objetivo, 99) // misma fecha, distinto total
	otro := lote(t, "b-otro", fecha(2024, 1, 12), 30)

	plan, err := batchsel.Select([]*entity.Batch{otro, mismoDia, exacto}, entity.MovementTypePRODUCTION, 30, &objetivo, ahora)
	require.NoError(t, err)

	require.Len(t, plan.Entries, 1)
	assert.Equal(t, "b-exacto", plan.Entries[0].BatchID,
		"cerrar un lote planificado: gana fecha y total exactos")
}

func TestSelect_ProduccionPorFecha(t *testing.T) {
	objetivo := fecha(2024, 1, 10)
	mismoDia := lote(t, "b-mismo-dia", objetivo, 99)
	otro := lote(t, "b-otro", fecha(2024, 1, 12), 30)

	plan, err := batchsel.Select([]*entity.Batch{otro, mismoDia}, entity.MovementTypePRODUCTION, 30, &objetivo, ahora)
	require.NoError(t, err)

	require.Len(t, plan.Entries, 1)
	assert.Equal(t, "b-mismo-dia", plan.Entries[0].BatchID,
		"sin total exacto, gana cualquier lote de la fecha objetivo")
}

func TestSelect_ProduccionSinFechaVaAlMasNuevo(t *testing.T) {
	batches := []*entity.Batch{
		lote(t, "b-viejo", fecha(2024, 1, 1), 10),
		lote(t, "b-nuevo", fecha(2024, 1, 12), 10),
	}

	plan, err := batchsel.Select(batches, entity.MovementTypePRODUCTION, 5, nil, ahora)
	require.NoError(t, err)

	require.Len(t, plan.Entries, 1)
	assert.Equal(t, "b-nuevo", plan.Entries[0].BatchID)
}

func TestSelect_TipoDesconocidoCaeEnFIFO(t *testing.T) {
	batches := []*entity.Batch{
		lote(t, "b-2", fecha(2024, 1, 5), 5),
		lote(t, "b-1", fecha(2024, 1, 1), 5),
	}

	plan, err := batchsel.Select(batches, "AUDITORIA", 8, nil, ahora)
	require.NoError(t, err)

	require.Len(t, plan.Entries, 2)
	assert.Equal(t, "b-1", plan.Entries[0].BatchID)
}

func TestSelect_EmpateDeFechaDesempataPorID(t *testing.T) {
	d := fecha(2024, 1, 3)
	batches := []*entity.Batch{
		lote(t, "b-zz", d, 5),
		lote(t, "b-aa", d, 5),
	}

	plan, err := batchsel.Select(batches, entity.MovementTypeOUT, 5, nil, ahora)
	require.NoError(t, err)

	require.Len(t, plan.Entries, 1)
	assert.Equal(t, "b-aa", plan.Entries[0].BatchID, "el desempate por ID es determinista")
}
