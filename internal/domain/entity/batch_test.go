package entity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/lotes-api/internal/domain"
	"github.com/tu-usuario/lotes-api/internal/domain/entity"
)

func fecha(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func loteDePrueba(t *testing.T, total int64) *entity.Batch {
	t.Helper()
	b, err := entity.NewBatch("prod-1", total, fecha(2024, 1, 10), fecha(2024, 1, 10), fecha(2024, 2, 10), "op-42")
	require.NoError(t, err, "el lote de prueba debe construirse sin error")
	return b
}

func TestNewBatch_DisponibleIgualAlTotal(t *testing.T) {
	b := loteDePrueba(t, 100)

	assert.Equal(t, int64(100), b.TotalQuantity)
	assert.Equal(t, int64(100), b.AvailableQuantity, "un lote recién creado tiene todo disponible")
	assert.Zero(t, b.ReservedQuantity)
	assert.Zero(t, b.UsedQuantity)
	assert.Equal(t, entity.BatchStatusActive, b.Status)
	assert.NoError(t, b.Validate())
}

func TestNewBatch_CantidadInvalida(t *testing.T) {
	_, err := entity.NewBatch("prod-1", 0, fecha(2024, 1, 10), fecha(2024, 1, 10), fecha(2024, 2, 10), "")
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = entity.NewBatch("prod-1", -5, fecha(2024, 1, 10), fecha(2024, 1, 10), fecha(2024, 2, 10), "")
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestNewBatch_VencimientoAntesDelLote(t *testing.T) {
	_, err := entity.NewBatch("prod-1", 10, fecha(2024, 1, 10), fecha(2024, 1, 10), fecha(2024, 1, 5), "")
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange, "el vencimiento no puede ser anterior a la fecha del lote")
}

func TestMove_PreservaLaSumaDeBuckets(t *testing.T) {
	b := loteDePrueba(t, 100)

	require.NoError(t, b.Move(entity.BucketAvailable, entity.BucketReserved, 30))
	assert.Equal(t, int64(70), b.AvailableQuantity)
	assert.Equal(t, int64(30), b.ReservedQuantity)

	require.NoError(t, b.Move(entity.BucketReserved, entity.BucketUsed, 30))
	assert.Equal(t, int64(30), b.UsedQuantity)

	// La suma de buckets siempre iguala el total
	assert.Equal(t, b.TotalQuantity, b.AvailableQuantity+b.ReservedQuantity+b.UsedQuantity)
	assert.NoError(t, b.Validate())
}

func TestMove_FuenteInsuficiente(t *testing.T) {
	b := loteDePrueba(t, 10)

	err := b.Move(entity.BucketAvailable, entity.BucketUsed, 11)
	assert.ErrorIs(t, err, domain.ErrInsufficientQuantity)
	// El lote queda intacto tras el rechazo
	assert.Equal(t, int64(10), b.AvailableQuantity)
	assert.Zero(t, b.UsedQuantity)
}

func TestMove_MismoBucketYCantidadInvalida(t *testing.T) {
	b := loteDePrueba(t, 10)

	assert.ErrorIs(t, b.Move(entity.BucketAvailable, entity.BucketAvailable, 5), domain.ErrInvalidInput)
	assert.ErrorIs(t, b.Move(entity.BucketAvailable, entity.BucketUsed, 0), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, b.Move(entity.BucketAvailable, entity.BucketUsed, -3), domain.ErrInvalidQuantity)
}

func TestReceive_IncrementaTotalYDisponible(t *testing.T) {
	b := loteDePrueba(t, 40)

	require.NoError(t, b.Receive(20))
	assert.Equal(t, int64(60), b.TotalQuantity)
	assert.Equal(t, int64(60), b.AvailableQuantity)
	assert.NoError(t, b.Validate())
}

func TestRecomputeStatus_VencidoMandaSobreAgotado(t *testing.T) {
	b := loteDePrueba(t, 10)
	require.NoError(t, b.Move(entity.BucketAvailable, entity.BucketUsed, 10))

	// Agotado y además vencido: EXPIRED gana
	b.RecomputeStatus(fecha(2024, 3, 1))
	assert.Equal(t, entity.BatchStatusExpired, b.Status)

	// Solo agotado
	b.RecomputeStatus(fecha(2024, 1, 20))
	assert.Equal(t, entity.BatchStatusDepleted, b.Status)
}

func TestRecomputeStatus_ReservaImpideAgotado(t *testing.T) {
	b := loteDePrueba(t, 10)
	require.NoError(t, b.Move(entity.BucketAvailable, entity.BucketReserved, 10))

	b.RecomputeStatus(fecha(2024, 1, 20))
	assert.Equal(t, entity.BatchStatusActive, b.Status,
		"con reserva pendiente el lote no está agotado")
}

func TestIsExpired_PrecisionDeDia(t *testing.T) {
	b := loteDePrueba(t, 10) // vence 2024-02-10

	assert.False(t, b.IsExpired(fecha(2024, 2, 10).Add(23*time.Hour)),
		"el día del vencimiento el lote todavía es utilizable")
	assert.True(t, b.IsExpired(fecha(2024, 2, 11)))
}

func TestDaysToExpiry(t *testing.T) {
	b := loteDePrueba(t, 10)

	assert.Equal(t, 5, b.DaysToExpiry(fecha(2024, 2, 5)))
	assert.Equal(t, -2, b.DaysToExpiry(fecha(2024, 2, 12)), "negativo cuando ya venció")
}
