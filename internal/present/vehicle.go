package present

import (
	"strings"
	"time"

	"github.com/tbourn/go-lookup-bot/internal/registry"
)

// Vehicle is the normalized view of a vehicle payload shared by the chat
// presenter and the PDF report.
type Vehicle struct {
	Plate         string
	Class         string
	Brand         string
	Line          string
	Model         string
	Color         string
	Body          string
	Displacement  string
	Service       string
	RegistryState string
	EngineNumber  string
	ChassisNumber string
	VIN           string
	Fuel          string
	InRUNT        string
	Liens         string
	Armored       string

	Policies    []Policy
	Inspections []Inspection
	Licenses    []License
	Accidents   int

	Owner Party
}

// Policy is one SOAT insurance policy.
type Policy struct {
	Number    string
	Insurer   string
	StartDate string
	EndDate   string
}

// Inspection is one technical-mechanical revision (RTM).
type Inspection struct {
	Type       string
	CDA        string
	IssuedDate string
	ValidUntil string
}

// License is a driving licence linked to the vehicle's record.
type License struct {
	Number   string
	Category string
	Status   string
}

// registry dates use dd/mm/yyyy.
const dateLayout = "02/01/2006"

// ValidOn reports whether a dd/mm/yyyy date is on or after day. Unparsable
// dates are never valid.
func ValidOn(date string, day time.Time) bool {
	t, err := time.Parse(dateLayout, strings.TrimSpace(date))
	if err != nil {
		return false
	}
	y, m, d := day.Date()
	return !t.Before(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// SOATValid reports whether any SOAT policy is still in force on day.
func (v *Vehicle) SOATValid(day time.Time) bool {
	for _, p := range v.Policies {
		if ValidOn(p.EndDate, day) {
			return true
		}
	}
	return false
}

// RTMValid reports whether any inspection is still in force on day.
func (v *Vehicle) RTMValid(day time.Time) bool {
	for _, r := range v.Inspections {
		if ValidOn(r.ValidUntil, day) {
			return true
		}
	}
	return false
}

// ParseVehicle extracts a Vehicle from a result. The registry nests the data
// in one of three layouts: {datos, adicional}, {vehiculo: {datos, adicional}}
// or the fields at the root. ok is false when content is not a JSON object.
func ParseVehicle(res *registry.Result) (v *Vehicle, ok bool) {
	raw, ok := res.InnerObject()
	if !ok {
		return nil, false
	}
	info := object(raw)

	var datos, extra object
	switch {
	case info.obj("datos") != nil:
		datos, extra = info.obj("datos"), info.obj("adicional")
	case info.obj("vehiculo") != nil:
		veh := info.obj("vehiculo")
		if veh.obj("datos") != nil {
			datos, extra = veh.obj("datos"), veh.obj("adicional")
		} else {
			datos, extra = veh, info.obj("adicional")
		}
	case info.has("placaNumeroUnicoIdentificacion") || info.has("placa") ||
		info.has("marcaVehiculo") || info.has("lineaVehiculo"):
		datos, extra = info, info.obj("adicional")
	}
	if datos == nil {
		datos = object{}
	}
	if extra == nil {
		extra = object{}
	}

	v = &Vehicle{
		Plate:         datos.str("placaNumeroUnicoIdentificacion", "placa"),
		Class:         datos.str("claseVehiculo"),
		Brand:         datos.str("marcaVehiculo"),
		Line:          datos.str("lineaVehiculo"),
		Model:         datos.str("modelo"),
		Color:         datos.str("color"),
		Body:          datos.str("carroceria"),
		Displacement:  datos.str("cilindraje"),
		Service:       datos.str("servicio"),
		RegistryState: datos.str("estadoRegistroVehiculo"),
		EngineNumber:  datos.str("numeroMotor"),
		ChassisNumber: datos.str("numeroChasis"),
		VIN:           datos.str("vin"),
		Fuel:          datos.str("tipoCombustible", "combustible", "tipoCombustibleVehiculo"),
		InRUNT:        datos.str("vehiculoInscritoRUNT"),
		Liens:         datos.str("poseeGravamenes"),
		Accidents:     len(extra.list("listaAccidentes")),
	}
	if dto := extra.obj("informacionVehiculoDTO"); dto != nil {
		v.Armored = dto.str("blindado")
	}

	for _, p := range extra.list("listaPolizas") {
		if !strings.EqualFold(p.str("tipoPoliza"), "SOAT") {
			continue
		}
		v.Policies = append(v.Policies, Policy{
			Number:    p.str("numeroPoliza"),
			Insurer:   p.str("aseguradora"),
			StartDate: p.str("fechaInicio"),
			EndDate:   p.str("fechaVencimiento"),
		})
	}
	for _, r := range extra.list("listaRtm") {
		v.Inspections = append(v.Inspections, Inspection{
			Type:       r.str("tipoRevision"),
			CDA:        r.str("nombreCda"),
			IssuedDate: r.str("fechaExpedicion"),
			ValidUntil: r.str("fechaVigencia"),
		})
	}
	if comps := extra.list("listaComparendos"); len(comps) > 0 {
		for _, l := range comps[0].list("listaLicencias") {
			v.Licenses = append(v.Licenses, License{
				Number:   l.str("numeroLicencia"),
				Category: l.str("categoria"),
				Status:   l.str("estado"),
			})
		}
	}

	if persona := info.obj("persona"); persona != nil {
		v.Owner = personParty(persona.obj("person"))
	}
	return v, true
}
