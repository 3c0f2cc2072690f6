// Package pdf implementa la generación del Acta de Baja de inventario:
// el soporte documental de un WRITEOFF, con el detalle por lote consumido.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Producto + código  │  N° Acta (transacción) + Fecha │
//	│  ─────────────────────────────────────────────────────────  │
//	│  MOTIVO: razón de la baja + responsable                      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Lote (fecha) | Piezas | Cajas                        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTAL DADO DE BAJA                                          │
//	│  FIRMAS: responsable / supervisor                            │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/tu-usuario/lotes-api/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 140, Green: 30, Blue: 30}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// WriteoffActGenerator genera el acta de baja usando Maroto v2.
type WriteoffActGenerator struct{}

// NewWriteoffActGenerator construye el generador.
func NewWriteoffActGenerator() *WriteoffActGenerator { return &WriteoffActGenerator{} }

// GenerateAct genera el PDF del acta de una transacción WRITEOFF y devuelve
// sus bytes. movements son las entradas del libro de esa transacción, una por
// lote consumido.
func (g *WriteoffActGenerator) GenerateAct(
	_ context.Context,
	product *entity.Product,
	movements []*entity.StockMovement,
) ([]byte, error) {
	if len(movements) == 0 {
		return nil, fmt.Errorf("pdf: transacción sin movimientos")
	}
	first := movements[0]

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Acta de Baja de Inventario", true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(product, first))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(reasonRow(first))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, r := range tableDetailRows(movements) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(movements))

	m.AddRows(line.NewRow(6))
	m.AddRows(signatureRow())

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar acta: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: producto (izq) y número de acta + fecha (der).
func headerRow(product *entity.Product, first *entity.StockMovement) core.Row {
	fecha := first.CreatedAt.Format("02/01/2006")

	return row.New(18).Add(
		col.New(7).Add(
			text.New(product.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Código: "+nonEmpty(product.Code, product.ID), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("ACTA DE BAJA DE INVENTARIO", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(shortID(first.TransactionID), props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+fecha, props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// reasonRow: motivo de la baja y responsable.
func reasonRow(first *entity.StockMovement) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New("MOTIVO DE LA BAJA", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Motivo: %s   |   Responsable: %s",
				nonEmpty(first.Reason, "—"),
				nonEmpty(first.Actor, "—"),
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de lotes.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Lote (fecha de producción)", 6, align.Left),
		h("Piezas", 3, align.Right),
		h("Cajas", 3, align.Right),
	)
}

// tableDetailRows: una fila por lote consumido.
func tableDetailRows(movements []*entity.StockMovement) []core.Row {
	result := make([]core.Row, 0, len(movements))
	for _, mv := range movements {
		lote := "sin lote"
		if mv.BatchDate != nil {
			lote = mv.BatchDate.Format("02/01/2006")
		}
		result = append(result, row.New(7).Add(
			col.New(6).Add(text.New(
				lote,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(3).Add(text.New(
				fmt.Sprintf("%d", absInt64(mv.Pieces)),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(3).Add(text.New(
				mv.Boxes.Abs().StringFixed(3),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

// totalsRow: total dado de baja, en piezas y cajas.
func totalsRow(movements []*entity.StockMovement) core.Row {
	var pieces int64
	boxes := decimal.Zero
	for _, mv := range movements {
		pieces += absInt64(mv.Pieces)
		boxes = boxes.Add(mv.Boxes.Abs())
	}
	return row.New(10).Add(
		col.New(6).Add(text.New("TOTAL DADO DE BAJA", props.Text{
			Style: fontstyle.Bold, Size: 10, Color: colorPrimary, Top: 2, Left: 1,
		})),
		col.New(3).Add(text.New(fmt.Sprintf("%d", pieces), props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Top: 2, Right: 1,
		})),
		col.New(3).Add(text.New(boxes.StringFixed(3), props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Top: 2, Right: 1,
		})),
	)
}

// signatureRow: líneas de firma del responsable y el supervisor.
func signatureRow() core.Row {
	sig := func(label string) core.Col {
		return col.New(6).Add(
			text.New("______________________________", props.Text{
				Size: 9, Align: align.Center, Top: 1,
			}),
			text.New(label, props.Text{
				Size: 8, Align: align.Center, Top: 7, Color: colorGray,
			}),
		)
	}
	return row.New(14).Add(
		sig("Responsable de la baja"),
		sig("Supervisor de inventario"),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func absInt64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// shortID recorta un UUID a su primer bloque para mostrarlo como número de acta.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
