// Package report renders the vehicle PDF sent after successful vehicle
// lookups.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/tbourn/go-lookup-bot/internal/present"
	"github.com/tbourn/go-lookup-bot/internal/registry"
	"github.com/tbourn/go-lookup-bot/internal/services"
)

// ErrNotVehicle is returned when the payload holds no vehicle object.
var ErrNotVehicle = errors.New("payload is not a vehicle record")

var (
	navy  = &props.Color{Red: 0, Green: 51, Blue: 102}
	grey  = &props.Color{Red: 85, Green: 85, Blue: 85}
	label = props.Text{Size: 8, Style: fontstyle.Bold, Color: navy, Top: 1}
	value = props.Text{Size: 8, Top: 1}
)

var now = time.Now

// VehicleDocument implements services.DocumentGenerator.
func VehicleDocument(res *registry.Result) (*services.Attachment, error) {
	v, ok := present.ParseVehicle(res)
	if !ok {
		return nil, ErrNotVehicle
	}
	pdf, err := Build(v, now())
	if err != nil {
		return nil, err
	}
	return &services.Attachment{Filename: Filename(v.Plate), Data: pdf}, nil
}

// Filename returns Informe_vehicular_<plate>.pdf.
func Filename(plate string) string {
	plate = strings.Join(strings.Fields(plate), "")
	if plate == "" {
		plate = "VEHICULO"
	}
	return "Informe_vehicular_" + plate + ".pdf"
}

// Build lays out the report for v, dated issued.
func Build(v *present.Vehicle, issued time.Time) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Página {current} de {total}",
			Place:   props.Bottom,
		}).
		Build()

	m := maroto.New(cfg)

	err := m.RegisterHeader(
		row.New(14).Add(
			text.NewCol(8, "INFORME VEHICULAR", props.Text{Size: 18, Style: fontstyle.Bold, Color: navy}),
			text.NewCol(4, "Fecha de emisión: "+issued.Format("2006-01-02 15:04"), props.Text{Size: 8, Align: align.Right, Color: grey, Top: 4}),
		),
		row.New(8).Add(
			text.NewCol(12, "Reporte generado por el sistema de consultas", props.Text{Size: 9, Color: grey}),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register header: %w", err)
	}

	section(m, "1. Datos principales del vehículo")
	pairs(m,
		"Placa", v.Plate,
		"Clase", v.Class,
		"Servicio", v.Service,
		"Estado del registro", v.RegistryState,
	)

	section(m, "2. Características del vehículo")
	pairs(m,
		"Marca", v.Brand,
		"Línea", v.Line,
		"Modelo", v.Model,
		"Color", v.Color,
		"Carrocería", v.Body,
		"Cilindraje", v.Displacement,
		"Tipo de combustible", v.Fuel,
		"Nro. Motor", v.EngineNumber,
		"Nro. Chasis", v.ChassisNumber,
		"Nro. VIN", v.VIN,
	)

	section(m, "3. Estado de documentos y seguridad")
	pairs(m,
		"Inscrito en RUNT", v.InRUNT,
		"Posee gravámenes", v.Liens,
		"SOAT vigente", yesNo(v.SOATValid(issued)),
		"RTM vigente", yesNo(v.RTMValid(issued)),
	)
	if len(v.Policies) > 0 {
		subtitle(m, "SOAT")
		header(m, "Póliza", "Aseguradora", "Inicio", "Vencimiento", "Vigente")
		for _, p := range v.Policies {
			tableRow(m, p.Number, p.Insurer, p.StartDate, p.EndDate, yesNo(present.ValidOn(p.EndDate, issued)))
		}
	}
	if len(v.Inspections) > 0 {
		subtitle(m, "REVISIÓN TÉCNICO MECÁNICA")
		header(m, "Tipo de revisión", "Fecha expedición", "Fecha vigencia", "CDA", "Vigente")
		for _, r := range v.Inspections {
			tableRow(m, r.Type, r.IssuedDate, r.ValidUntil, r.CDA, yesNo(present.ValidOn(r.ValidUntil, issued)))
		}
	}

	if !v.Owner.Empty() {
		section(m, "4. Propietario")
		pairs(m,
			"Nombre / Razón social", v.Owner.Name,
			"Tipo de documento", v.Owner.DocType,
			"Número de documento", v.Owner.DocNumber,
		)
	}

	section(m, "5. Información adicional del vehículo")
	pairs(m,
		"Blindado", v.Armored,
		"Accidentes reportados", fmt.Sprintf("%d", v.Accidents),
	)
	if len(v.Licenses) > 0 {
		subtitle(m, "LICENCIAS DE CONDUCCIÓN")
		header(m, "Número", "Categoría", "Estado")
		for _, l := range v.Licenses {
			tableRow(m, l.Number, l.Category, l.Status)
		}
	}

	m.AddRow(14,
		text.NewCol(12, "Este informe es generado por un sistema interno de consultas y no sustituye "+
			"documentos oficiales de tránsito ni certificados expedidos por autoridades competentes.",
			props.Text{Size: 7, Color: grey, Top: 6}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate pdf: %w", err)
	}
	return doc.GetBytes(), nil
}

func section(m core.Maroto, title string) {
	m.AddRow(10, text.NewCol(12, title, props.Text{Size: 11, Style: fontstyle.Bold, Color: navy, Top: 4}))
}

func subtitle(m core.Maroto, title string) {
	m.AddRow(7, text.NewCol(12, title, props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Center, Top: 2}))
}

// pairs lays out label/value pairs two per row. kv alternates label, value.
func pairs(m core.Maroto, kv ...string) {
	for i := 0; i+1 < len(kv); i += 4 {
		cols := []core.Col{
			text.NewCol(3, kv[i], label),
			text.NewCol(3, dash(kv[i+1]), value),
		}
		if i+3 < len(kv) {
			cols = append(cols, text.NewCol(3, kv[i+2], label), text.NewCol(3, dash(kv[i+3]), value))
		} else {
			cols = append(cols, col.New(6))
		}
		m.AddRow(6, cols...)
	}
}

func header(m core.Maroto, titles ...string) {
	m.AddRow(6, cells(titles, label)...)
}

func tableRow(m core.Maroto, values ...string) {
	for i := range values {
		values[i] = dash(values[i])
	}
	m.AddRow(6, cells(values, value)...)
}

// cells spreads values over the 12-column grid.
func cells(values []string, p props.Text) []core.Col {
	width := 12 / len(values)
	out := make([]core.Col, 0, len(values))
	for i, v := range values {
		w := width
		if i == len(values)-1 {
			w = 12 - width*(len(values)-1)
		}
		out = append(out, text.NewCol(w, v, p))
	}
	return out
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "SI"
	}
	return "NO"
}
