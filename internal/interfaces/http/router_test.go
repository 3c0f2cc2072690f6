package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/lotes-api/internal/application/dto"
	"github.com/tu-usuario/lotes-api/internal/application/inventory"
	"github.com/tu-usuario/lotes-api/internal/domain/entity"
	"github.com/tu-usuario/lotes-api/internal/infrastructure/memory"
	infrapdf "github.com/tu-usuario/lotes-api/internal/infrastructure/pdf"
	httpRouter "github.com/tu-usuario/lotes-api/internal/interfaces/http"
	"github.com/tu-usuario/lotes-api/pkg/logger"
)

// relojAPI reloj fijo de las pruebas de API, coherente con las fechas de lote
// que usan los tests.
var relojAPI = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

// appDePrueba levanta la API completa sobre el almacén en memoria con un
// producto sembrado y reloj fijo.
func appDePrueba(t *testing.T) *fiber.App {
	return appConReloj(t, func() time.Time { return relojAPI })
}

// appConReloj igual que appDePrueba pero con reloj inyectado, para probar las
// fechas derivadas que devuelve la API.
func appConReloj(t *testing.T, clock func() time.Time) *fiber.App {
	t.Helper()
	store := memory.NewStore()
	store.SeedProduct(&entity.Product{
		ID:            "prod-1",
		Name:          "Mantequilla 250g",
		Code:          "MQ-250",
		PiecesPerBox:  12,
		ShelfLifeDays: 60,
	})

	locks := inventory.NewProductLocker(2 * time.Second)
	executor := inventory.NewAllocationExecutor(store, store, locks, logger.Nop(), inventory.ExecutorConfig{Clock: clock})
	reservations := inventory.NewOrderReservationManager(store, store, locks, logger.Nop(), clock)
	reconciler := inventory.NewReconciler(store, logger.Nop())
	queries := inventory.NewStockQueryService(store.Batches(), store.Movements(), store, infrapdf.NewWriteoffActGenerator(), clock)

	app := fiber.New()
	httpRouter.Router(app, httpRouter.RouterDeps{
		Executor:     executor,
		Reservations: reservations,
		Queries:      queries,
		Reconciler:   reconciler,
	})
	return app
}

func doPost(t *testing.T, app *fiber.App, path string, body any) *nethttp.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest("POST", path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func doGet(t *testing.T, app *fiber.App, path string) *nethttp.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, body io.Reader, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(body).Decode(out))
}

func TestAPI_CrearLoteYListar(t *testing.T) {
	app := appDePrueba(t)

	resp := doPost(t, app, "/api/batches", dto.CreateBatchRequest{
		ProductID:     "prod-1",
		TotalQuantity: 120,
		BatchDate:     "2024-01-10",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created dto.BatchResponse
	decodeJSON(t, resp.Body, &created)
	assert.Equal(t, "2024-01-10", created.BatchDate)
	assert.Equal(t, int64(120), created.AvailableQuantity)
	assert.Equal(t, entity.BatchStatusActive, created.Status)

	listResp := doGet(t, app, "/api/batches/prod-1")
	require.Equal(t, fiber.StatusOK, listResp.StatusCode)

	var batches []dto.BatchResponse
	decodeJSON(t, listResp.Body, &batches)
	require.Len(t, batches, 1)
	assert.Equal(t, created.ID, batches[0].ID)
}

func TestAPI_LoteDuplicadoDevuelve409(t *testing.T) {
	app := appDePrueba(t)

	body := dto.CreateBatchRequest{ProductID: "prod-1", TotalQuantity: 10, BatchDate: "2024-01-10"}
	resp := doPost(t, app, "/api/batches", body)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = doPost(t, app, "/api/batches", body)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var errResp dto.ErrorResponse
	decodeJSON(t, resp.Body, &errResp)
	assert.Equal(t, "DUPLICATE_BATCH", errResp.Code)
}

func TestAPI_FechaInvalidaDevuelve400(t *testing.T) {
	app := appDePrueba(t)

	resp := doPost(t, app, "/api/batches", dto.CreateBatchRequest{
		ProductID: "prod-1", TotalQuantity: 10, BatchDate: "10/01/2024",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAPI_MovimientoDeSalida(t *testing.T) {
	app := appDePrueba(t)
	doPost(t, app, "/api/batches", dto.CreateBatchRequest{ProductID: "prod-1", TotalQuantity: 50, BatchDate: "2024-01-01"})

	resp := doPost(t, app, "/api/movements", dto.RegisterMovementRequest{
		ProductID: "prod-1",
		Type:      entity.MovementTypeOUT,
		Quantity:  20,
		Actor:     "ventas",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var result dto.MovementResultResponse
	decodeJSON(t, resp.Body, &result)
	assert.Equal(t, int64(20), result.Allocated)
	assert.Zero(t, result.Shortfall)
	require.Len(t, result.Entries, 1)

	// El libro refleja la salida
	listResp := doGet(t, app, "/api/movements/?product_id=prod-1&type=OUT")
	require.Equal(t, fiber.StatusOK, listResp.StatusCode)

	var out struct {
		Total     int                    `json:"total"`
		Movements []dto.MovementResponse `json:"movements"`
	}
	decodeJSON(t, listResp.Body, &out)
	require.Equal(t, 1, out.Total)
	assert.Equal(t, int64(-20), out.Movements[0].Pieces)
}

func TestAPI_SalidaInsuficienteConRequireFull(t *testing.T) {
	app := appDePrueba(t)
	doPost(t, app, "/api/batches", dto.CreateBatchRequest{ProductID: "prod-1", TotalQuantity: 10, BatchDate: "2024-01-01"})

	resp := doPost(t, app, "/api/movements", dto.RegisterMovementRequest{
		ProductID:   "prod-1",
		Type:        entity.MovementTypeOUT,
		Quantity:    99,
		RequireFull: true,
	})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var errResp dto.ErrorResponse
	decodeJSON(t, resp.Body, &errResp)
	assert.Equal(t, "INSUFFICIENT_STOCK", errResp.Code)
}

func TestAPI_TipoDeMovimientoInternoDevuelve400(t *testing.T) {
	app := appDePrueba(t)
	doPost(t, app, "/api/batches", dto.CreateBatchRequest{ProductID: "prod-1", TotalQuantity: 50, BatchDate: "2024-01-01"})

	// Las reservas van por /api/reservations; el tipo RESERVE a pelo no debe
	// apartar stock sin asignación de línea.
	for _, tipo := range []string{entity.MovementTypeRESERVE, entity.MovementTypeRELEASE, "AJUSTE_X"} {
		resp := doPost(t, app, "/api/movements", dto.RegisterMovementRequest{
			ProductID: "prod-1",
			Type:      tipo,
			Quantity:  7,
		})
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "el tipo %s no debe aceptarse", tipo)

		var errResp dto.ErrorResponse
		decodeJSON(t, resp.Body, &errResp)
		assert.Equal(t, "VALIDATION", errResp.Code)
	}

	availResp := doGet(t, app, "/api/batches/prod-1/availability")
	require.Equal(t, fiber.StatusOK, availResp.StatusCode)
	var summary inventory.AvailabilitySummary
	decodeJSON(t, availResp.Body, &summary)
	assert.Zero(t, summary.ReservedPieces)
	assert.Equal(t, int64(50), summary.AvailablePieces)
}

func TestAPI_DiasParaVencerSegunElReloj(t *testing.T) {
	app := appDePrueba(t)

	// Lote del 2024-01-10 con 60 días de vida: vence el 2024-03-10. Con el
	// reloj fijo en el 2024-01-15 la respuesta debe decir 55 días.
	resp := doPost(t, app, "/api/batches", dto.CreateBatchRequest{
		ProductID: "prod-1", TotalQuantity: 24, BatchDate: "2024-01-10",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created dto.BatchResponse
	decodeJSON(t, resp.Body, &created)
	assert.Equal(t, "2024-03-10", created.ExpiryDate)
	assert.Equal(t, 55, created.DaysToExpiry)

	listResp := doGet(t, app, "/api/batches/prod-1")
	require.Equal(t, fiber.StatusOK, listResp.StatusCode)
	var batches []dto.BatchResponse
	decodeJSON(t, listResp.Body, &batches)
	require.Len(t, batches, 1)
	assert.Equal(t, 55, batches[0].DaysToExpiry)
}

func TestAPI_Disponibilidad(t *testing.T) {
	app := appDePrueba(t)
	doPost(t, app, "/api/batches", dto.CreateBatchRequest{ProductID: "prod-1", TotalQuantity: 120, BatchDate: "2024-01-01"})
	doPost(t, app, "/api/movements", dto.RegisterMovementRequest{
		ProductID: "prod-1", Type: entity.MovementTypeOUT, Quantity: 24,
	})

	resp := doGet(t, app, "/api/batches/prod-1/availability")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var summary inventory.AvailabilitySummary
	decodeJSON(t, resp.Body, &summary)
	assert.Equal(t, int64(96), summary.AvailablePieces)
	assert.Equal(t, int64(24), summary.UsedPieces)
	assert.True(t, summary.AvailableBoxes.Equal(decimal.NewFromInt(8)), "96 piezas a 12 por caja")
}

func TestAPI_DisponibilidadProductoInexistente(t *testing.T) {
	app := appDePrueba(t)

	resp := doGet(t, app, "/api/batches/prod-fantasma/availability")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAPI_BajaConActa(t *testing.T) {
	app := appDePrueba(t)
	doPost(t, app, "/api/batches", dto.CreateBatchRequest{ProductID: "prod-1", TotalQuantity: 50, BatchDate: "2024-01-01"})

	resp := doPost(t, app, "/api/writeoffs", dto.WriteoffRequest{
		ProductID: "prod-1",
		Quantity:  10,
		Reason:    "rotura en transporte",
		Actor:     "bodega",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var result dto.MovementResultResponse
	decodeJSON(t, resp.Body, &result)
	require.NotEmpty(t, result.TransactionID)

	actResp := doGet(t, app, "/api/writeoffs/"+result.TransactionID+"/act")
	require.Equal(t, fiber.StatusOK, actResp.StatusCode)
	assert.Equal(t, "application/pdf", actResp.Header.Get("Content-Type"))

	pdfBytes, err := io.ReadAll(actResp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdfBytes, []byte("%PDF")), "el acta debe ser un PDF")
}

func TestAPI_BajaSinMotivoDevuelve400(t *testing.T) {
	app := appDePrueba(t)
	doPost(t, app, "/api/batches", dto.CreateBatchRequest{ProductID: "prod-1", TotalQuantity: 50, BatchDate: "2024-01-01"})

	resp := doPost(t, app, "/api/writeoffs", dto.WriteoffRequest{
		ProductID: "prod-1",
		Quantity:  10,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAPI_ActaDeTransaccionAjena(t *testing.T) {
	app := appDePrueba(t)
	doPost(t, app, "/api/batches", dto.CreateBatchRequest{ProductID: "prod-1", TotalQuantity: 50, BatchDate: "2024-01-01"})

	resp := doPost(t, app, "/api/movements", dto.RegisterMovementRequest{
		ProductID: "prod-1", Type: entity.MovementTypeOUT, Quantity: 5,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var result dto.MovementResultResponse
	decodeJSON(t, resp.Body, &result)

	// Una transacción que no es baja no tiene acta
	actResp := doGet(t, app, "/api/writeoffs/"+result.TransactionID+"/act")
	assert.Equal(t, fiber.StatusBadRequest, actResp.StatusCode)

	actResp = doGet(t, app, "/api/writeoffs/tx-inexistente/act")
	assert.Equal(t, fiber.StatusNotFound, actResp.StatusCode)
}

func TestAPI_CicloDeReserva(t *testing.T) {
	app := appDePrueba(t)
	doPost(t, app, "/api/batches", dto.CreateBatchRequest{ProductID: "prod-1", TotalQuantity: 100, BatchDate: "2024-01-01"})

	resp := doPost(t, app, "/api/orders/linea-1/reserve", dto.ReserveRequest{ProductID: "prod-1", Quantity: 30})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var alloc dto.AllocationResponse
	decodeJSON(t, resp.Body, &alloc)
	assert.Equal(t, entity.AllocationStatusReserved, alloc.Status)
	assert.Equal(t, int64(30), alloc.ReservedQuantity)

	resp = doPost(t, app, "/api/orders/linea-1/fulfill", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeJSON(t, resp.Body, &alloc)
	assert.Equal(t, entity.AllocationStatusFulfilled, alloc.Status)

	// Cumplida: cancelar ya no aplica
	resp = doPost(t, app, "/api/orders/linea-1/cancel", nil)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var errResp dto.ErrorResponse
	decodeJSON(t, resp.Body, &errResp)
	assert.Equal(t, "NOTHING_RESERVED", errResp.Code)
}

func TestAPI_Conciliacion(t *testing.T) {
	app := appDePrueba(t)
	doPost(t, app, "/api/batches", dto.CreateBatchRequest{ProductID: "prod-1", TotalQuantity: 40, BatchDate: "2024-01-01"})
	doPost(t, app, "/api/movements", dto.RegisterMovementRequest{
		ProductID: "prod-1", Type: entity.MovementTypeOUT, Quantity: 15,
	})

	resp := doGet(t, app, "/api/batches/prod-1/reconciliation")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out struct {
		ProductID string                          `json:"product_id"`
		Batches   []inventory.BatchReconciliation `json:"batches"`
	}
	decodeJSON(t, resp.Body, &out)
	require.Len(t, out.Batches, 1)
	assert.True(t, out.Batches[0].Consistent)
	assert.Equal(t, int64(15), out.Batches[0].LedgerConsumed)
}
