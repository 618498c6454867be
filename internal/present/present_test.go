package present

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-lookup-bot/internal/domain"
	"github.com/tbourn/go-lookup-bot/internal/registry"
)

// result wraps inner as the Mensaje of a final/OK poll body. Strings are
// embedded as serialized JSON, the way the registry usually sends them.
func result(t *testing.T, inner any, asString bool) *registry.Result {
	t.Helper()
	b, err := json.Marshal(inner)
	require.NoError(t, err)
	msg := json.RawMessage(b)
	if asString {
		s, err := json.Marshal(string(b))
		require.NoError(t, err)
		msg = s
	}
	body, err := json.Marshal(map[string]any{"Tipo": 1, "Mensaje": msg})
	require.NoError(t, err)
	res, err := registry.DecodeResult(body)
	require.NoError(t, err)
	return res
}

func TestFor(t *testing.T) {
	for _, k := range domain.Kinds() {
		assert.NotNil(t, For(k), "kind %s", k)
	}
	assert.Nil(t, For(domain.Kind(99)))
}

func TestSignature_RootFieldsWithImage(t *testing.T) {
	img := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	res := result(t, map[string]any{
		"codigoRespuesta": "00",
		"nombres":         "ANA MARIA",
		"apellidos":       "PEREZ  GOMEZ",
		"tipoDocumento":   "CC",
		"numeroDocumento": "123",
		"sexo":            "F",
		"grupoSanguineo":  "O+",
		"fechaNacimiento": "1990-05-01T00:00:00",
		"firma":           base64.StdEncoding.EncodeToString(img),
	}, true)

	p, err := Signature(res)
	require.NoError(t, err)
	assert.Contains(t, p.Text, "*Nombre:* Ana Maria Perez Gomez")
	assert.Contains(t, p.Text, "*Documento:* CC 123")
	assert.Contains(t, p.Text, "*Fecha de nacimiento:* 1990-05-01\n")
	assert.Contains(t, p.Text, "*Lugar de nacimiento:* -")
	require.NotNil(t, p.Attachment)
	assert.Equal(t, "firma_123.png", p.Attachment.Filename)
	assert.Equal(t, img, p.Attachment.Data)
}

func TestSignature_PersonLayoutAndBadImage(t *testing.T) {
	res := result(t, map[string]any{
		"person": map[string]any{
			"nombre1": "JUAN", "apellido1": "DIAZ",
			"idTipoDoc": "TI", "nroDocumento": 998877,
			"firma": "%%% not base64 %%%",
		},
	}, false)

	p, err := Signature(res)
	require.NoError(t, err)
	assert.Contains(t, p.Text, "*Nombre:* Juan Diaz")
	assert.Contains(t, p.Text, "*Documento:* TI 998877")
	assert.Nil(t, p.Attachment)
}

func TestSignature_PlainTextContent(t *testing.T) {
	res, err := registry.DecodeResult([]byte(`{"Tipo":1,"Mensaje":"firma registrada"}`))
	require.NoError(t, err)
	p, err := Signature(res)
	require.NoError(t, err)
	assert.Contains(t, p.Text, "sin formato JSON")
	assert.Contains(t, p.Text, "firma registrada")
}

func TestDecodeImage(t *testing.T) {
	want := []byte("hello")
	for _, in := range []string{
		"aGVsbG8=",
		"aGVsbG8",
		"data:image/png;base64,aGVs\nbG8=",
	} {
		got, err := decodeImage(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestPerson(t *testing.T) {
	res := result(t, map[string]any{
		"personDTO": map[string]any{"nombre1": "LUZ", "apellido2": "ROJAS", "tipoDocumento": "CC", "nroDoc": "55"},
	}, true)
	p, err := Person(res)
	require.NoError(t, err)
	assert.Equal(t, "🧍 *Consulta de persona*\n\n*Nombre:* Luz Rojas\n*Documento:* CC 55\n", p.Text)
	assert.Nil(t, p.Attachment)
}

func TestOwner_PersonAndCompany(t *testing.T) {
	res := result(t, map[string]any{
		"persona": map[string]any{"person": map[string]any{"nombre1": "EVA", "apellido1": "LOPEZ", "idTipoDoc": "CC", "nroDocumento": "7"}},
	}, true)
	p, err := Owner(res)
	require.NoError(t, err)
	assert.Contains(t, p.Text, "*Nombre / Razón social:* Eva Lopez")
	assert.Contains(t, p.Text, "*Documento:* CC 7")

	res = result(t, map[string]any{
		"datosEmpresa": map[string]any{"razonSocial": "TRANSPORTES SA", "numeroDocumentoEmpresa": "900123"},
	}, true)
	p, err = Owner(res)
	require.NoError(t, err)
	assert.Contains(t, p.Text, "*Nombre / Razón social:* TRANSPORTES SA")
	assert.Contains(t, p.Text, "*Documento:* NIT 900123")

	res = result(t, map[string]any{"codigoRespuesta": "00"}, true)
	p, err = Owner(res)
	require.NoError(t, err)
	assert.Contains(t, p.Text, "*Nombre / Razón social:* -")
}

func vehiclePayload() map[string]any {
	return map[string]any{
		"vehiculo": map[string]any{
			"datos": map[string]any{
				"placaNumeroUnicoIdentificacion": "ABC123",
				"marcaVehiculo":                  "MAZDA",
				"modelo":                         2019,
				"vehiculoInscritoRUNT":           true,
				"poseeGravamenes":                false,
			},
			"adicional": map[string]any{
				"listaPolizas": []any{
					map[string]any{"tipoPoliza": "soat", "numeroPoliza": "P1", "fechaVencimiento": "31/12/2030"},
					map[string]any{"tipoPoliza": "TODO RIESGO", "numeroPoliza": "X"},
				},
				"listaRtm": []any{
					map[string]any{"tipoRevision": "RTM", "nombreCda": "CDA NORTE", "fechaVigencia": "01/01/2020"},
				},
				"listaAccidentes":        []any{map[string]any{}, map[string]any{}},
				"listaComparendos":       []any{map[string]any{"listaLicencias": []any{map[string]any{"numeroLicencia": "L1", "categoria": "B1", "estado": "ACTIVA"}}}},
				"informacionVehiculoDTO": map[string]any{"blindado": "NO"},
			},
		},
		"persona": map[string]any{"person": map[string]any{"nombre1": "EVA", "apellido1": "LOPEZ", "idTipoDoc": "CC", "nroDocumento": "7"}},
	}
}

func TestParseVehicle_Layouts(t *testing.T) {
	v, ok := ParseVehicle(result(t, vehiclePayload(), true))
	require.True(t, ok)
	assert.Equal(t, "ABC123", v.Plate)
	assert.Equal(t, "2019", v.Model)
	assert.Equal(t, "SI", v.InRUNT)
	assert.Equal(t, "NO", v.Liens)
	require.Len(t, v.Policies, 1)
	assert.Equal(t, "P1", v.Policies[0].Number)
	require.Len(t, v.Inspections, 1)
	require.Len(t, v.Licenses, 1)
	assert.Equal(t, 2, v.Accidents)
	assert.Equal(t, "NO", v.Armored)
	assert.Equal(t, "Eva Lopez", v.Owner.Name)

	v, ok = ParseVehicle(result(t, map[string]any{"datos": map[string]any{"placa": "XYZ9"}}, false))
	require.True(t, ok)
	assert.Equal(t, "XYZ9", v.Plate)

	v, ok = ParseVehicle(result(t, map[string]any{"marcaVehiculo": "KIA"}, true))
	require.True(t, ok)
	assert.Equal(t, "KIA", v.Brand)
	assert.True(t, v.Owner.Empty())

	res, err := registry.DecodeResult([]byte(`{"Tipo":1,"Mensaje":"texto"}`))
	require.NoError(t, err)
	_, ok = ParseVehicle(res)
	assert.False(t, ok)
}

func TestValidity(t *testing.T) {
	day := time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC)
	assert.True(t, ValidOn("15/06/2025", day))
	assert.True(t, ValidOn("16/06/2025", day))
	assert.False(t, ValidOn("14/06/2025", day))
	assert.False(t, ValidOn("2025-06-20", day))

	v, _ := ParseVehicle(result(t, vehiclePayload(), true))
	assert.True(t, v.SOATValid(day))
	assert.False(t, v.RTMValid(day))
}

func TestVehicleReport(t *testing.T) {
	prev := now
	now = func() time.Time { return time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = prev })

	p, err := VehicleReport(result(t, vehiclePayload(), true))
	require.NoError(t, err)
	assert.Contains(t, p.Text, "🚗 *Informe vehicular – ABC123*")
	assert.Contains(t, p.Text, "• Marca: MAZDA")
	assert.Contains(t, p.Text, "• Línea: -")
	assert.Contains(t, p.Text, "• SOAT vigente: SI")
	assert.Contains(t, p.Text, "• RTM vigente: NO")
	assert.Contains(t, p.Text, "*4. Propietario*")
	assert.Contains(t, p.Text, "• Accidentes reportados: 2")
	assert.Contains(t, p.Text, "    • Categoría: B1")
	assert.Nil(t, p.Attachment)

	p, err = VehicleReport(result(t, map[string]any{"datos": map[string]any{"placa": "Q1"}}, true))
	require.NoError(t, err)
	assert.NotContains(t, p.Text, "Propietario")
	assert.Contains(t, p.Text, "• SOAT vigente: NO")
}
