// Package present turns billable registry results into chat messages.
//
// Each lookup kind has a Presenter. Presenters never change lookup state:
// they run after the record was resolved and charged, and an error or panic
// here only replaces the message with the generic one.
package present

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-lookup-bot/internal/domain"
	"github.com/tbourn/go-lookup-bot/internal/registry"
	"github.com/tbourn/go-lookup-bot/internal/services"
)

var now = time.Now

// For returns the presenter for kind, or nil for kinds outside the catalog.
func For(kind domain.Kind) services.Presenter {
	switch kind {
	case domain.KindSignature:
		return Signature
	case domain.KindPerson:
		return Person
	case domain.KindOwner:
		return Owner
	case domain.KindVehicleOwner, domain.KindVehicle, domain.KindVehicleChassis:
		return VehicleReport
	}
	return nil
}

// rawFallback renders content that is not a JSON object.
func rawFallback(title string, res *registry.Result) services.Presentation {
	return services.Presentation{Text: fmt.Sprintf("%s (sin formato JSON)*\n\n`%s`", title, strings.Trim(string(res.Content), `"`))}
}

// Signature renders a signature lookup. When the payload carries the
// base64 "firma" image it is returned as an attachment.
func Signature(res *registry.Result) (services.Presentation, error) {
	raw, ok := res.InnerObject()
	if !ok {
		return rawFallback("📝 *Resultado de consulta de firma", res), nil
	}
	info := object(raw)

	var who Party
	firma := info.str("firma")
	if p := info.obj("person"); p != nil {
		who = personParty(p)
		firma = orElse(p.str("firma"), firma)
	} else if p := info.obj("persona"); p != nil {
		who = personParty(p)
		firma = orElse(p.str("firma"), firma)
	} else {
		who = Party{
			Name:      titleName(strings.TrimSpace(info.str("nombres") + " " + info.str("apellidos"))),
			DocType:   info.str("tipoDocumento", "idTipoDoc", "tipoDoc"),
			DocNumber: info.str("numeroDocumento", "nroDocumento", "nroDoc"),
		}
	}

	birth := info.str("fechaNacimiento")
	if len(birth) >= 10 {
		birth = birth[:10]
	} else {
		birth = ""
	}

	var b strings.Builder
	b.WriteString("📝 *Resultado de consulta de firma*\n\n")
	fmt.Fprintf(&b, "*Nombre:* %s\n", orDash(who.Name))
	fmt.Fprintf(&b, "*Documento:* %s %s\n", who.DocType, who.DocNumber)
	fmt.Fprintf(&b, "*Sexo:* %s\n", orDash(info.str("sexo")))
	fmt.Fprintf(&b, "*Grupo sanguíneo:* %s\n", orDash(info.str("grupoSanguineo")))
	fmt.Fprintf(&b, "*Fecha de nacimiento:* %s\n", orDash(birth))
	fmt.Fprintf(&b, "*Lugar de nacimiento:* %s\n", orDash(info.str("lugarNacimiento")))

	out := services.Presentation{Text: b.String()}
	if firma != "" {
		img, err := decodeImage(firma)
		if err != nil {
			log.Warn().Err(err).Msg("signature image is not valid base64")
			return out, nil
		}
		name := "firma.png"
		if who.DocNumber != "" {
			name = "firma_" + who.DocNumber + ".png"
		}
		out.Attachment = &services.Attachment{Filename: name, Data: img}
	}
	return out, nil
}

// decodeImage accepts plain or data-URI base64, padded or not.
func decodeImage(s string) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); i >= 0 {
		s = s[i+len(";base64,"):]
	}
	s = strings.Join(strings.Fields(s), "")
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

// Person renders a person lookup.
func Person(res *registry.Result) (services.Presentation, error) {
	raw, ok := res.InnerObject()
	if !ok {
		return rawFallback("🧍 *Consulta de persona", res), nil
	}
	info := object(raw)
	p := info.obj("person")
	if p == nil {
		p = info.obj("persona")
	}
	if p == nil {
		p = info.obj("personDTO")
	}
	who := personParty(p)
	return services.Presentation{Text: fmt.Sprintf("🧍 *Consulta de persona*\n\n*Nombre:* %s\n*Documento:* %s %s\n",
		orDash(who.Name), who.DocType, who.DocNumber)}, nil
}

// Owner renders an owner-by-plate lookup. Companies are reported by their
// datosEmpresa section when no natural person is present.
func Owner(res *registry.Result) (services.Presentation, error) {
	raw, ok := res.InnerObject()
	if !ok {
		return rawFallback("👤 *Propietario del vehículo", res), nil
	}
	info := object(raw)
	persona := info.obj("persona")
	who := personParty(persona.obj("person"))
	if who.Name == "" {
		company := persona.obj("datosEmpresa")
		if company == nil {
			company = info.obj("datosEmpresa")
		}
		if company != nil {
			who = companyParty(company)
		}
	}
	return services.Presentation{Text: fmt.Sprintf("👤 *Propietario del vehículo*\n\n*Nombre / Razón social:* %s\n*Documento:* %s %s\n",
		orDash(who.Name), who.DocType, who.DocNumber)}, nil
}

// VehicleReport renders the chat summary of a vehicle lookup, one field
// per line.
func VehicleReport(res *registry.Result) (services.Presentation, error) {
	v, ok := ParseVehicle(res)
	if !ok {
		return rawFallback("🚗 *Respuesta de vehículo", res), nil
	}
	today := now()
	plate := orDash(v.Plate)

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("🚗 *Informe vehicular – %s*", plate)
	line("")
	line("*1. Datos principales del vehículo*")
	line("• Placa: `%s`", plate)
	line("• Clase: %s", orDash(v.Class))
	line("• Servicio: %s", orDash(v.Service))
	line("• Estado del registro: %s", orDash(v.RegistryState))
	line("")
	line("*2. Características del vehículo*")
	line("• Marca: %s", orDash(v.Brand))
	line("• Línea: %s", orDash(v.Line))
	line("• Modelo: %s", orDash(v.Model))
	line("• Color: %s", orDash(v.Color))
	line("• Carrocería: %s", orDash(v.Body))
	line("• Cilindraje: %s", orDash(v.Displacement))
	line("• Tipo de combustible: %s", orDash(v.Fuel))
	line("• Nro. Motor: %s", orDash(v.EngineNumber))
	line("• Nro. Chasis: %s", orDash(v.ChassisNumber))
	line("• Nro. VIN: %s", orDash(v.VIN))
	line("")
	line("*3. Estado de documentos y seguridad*")
	line("• Inscrito en RUNT: %s", orDash(v.InRUNT))
	line("• Posee gravámenes: %s", orDash(v.Liens))
	line("• SOAT vigente: %s", yesNo(v.SOATValid(today)))
	if len(v.Policies) > 0 {
		p := v.Policies[0]
		line("• Detalle de la última póliza SOAT:")
		line("  ─ Número de póliza: %s", orDash(p.Number))
		line("  ─ Entidad aseguradora: %s", orDash(p.Insurer))
		line("  ─ Fecha inicio vigencia: %s", orDash(p.StartDate))
		line("  ─ Fecha fin vigencia: %s", orDash(p.EndDate))
	}
	line("• RTM vigente: %s", yesNo(v.RTMValid(today)))
	if len(v.Inspections) > 0 {
		r := v.Inspections[0]
		line("• Detalle de la última revisión técnico-mecánica:")
		line("  ─ Tipo de revisión: %s", orDash(r.Type))
		line("  ─ CDA: %s", orDash(r.CDA))
		line("  ─ Fecha expedición: %s", orDash(r.IssuedDate))
		line("  ─ Fecha vigencia: %s", orDash(r.ValidUntil))
	}
	line("")
	if !v.Owner.Empty() {
		line("*4. Propietario*")
		line("• Nombre / Razón social: %s", orDash(v.Owner.Name))
		line("• Tipo de documento: %s", orDash(v.Owner.DocType))
		line("• Número de documento: %s", orDash(v.Owner.DocNumber))
		line("")
	}
	line("*5. Información adicional*")
	line("• Blindado: %s", orDash(v.Armored))
	line("• Accidentes reportados: %d", v.Accidents)
	if len(v.Licenses) > 0 {
		line("• Licencia(s) de conducción asociada(s):")
		for i, l := range v.Licenses {
			line("  ─ Licencia #%d:", i+1)
			line("    • Número de licencia: %s", l.Number)
			line("    • Categoría: %s", l.Category)
			line("    • Estado: %s", l.Status)
		}
	}
	return services.Presentation{Text: strings.TrimRight(b.String(), "\n")}, nil
}

func yesNo(b bool) string {
	if b {
		return "SI"
	}
	return "NO"
}

func orElse(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
