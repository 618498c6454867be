package present

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// object is one decoded JSON object from a registry payload.
type object map[string]any

// str returns the first non-empty value among keys, rendered as text.
func (o object) str(keys ...string) string {
	for _, k := range keys {
		if s := scalar(o[k]); s != "" {
			return s
		}
	}
	return ""
}

// obj returns the nested object at key, or nil.
func (o object) obj(key string) object {
	if m, ok := o[key].(map[string]any); ok {
		return object(m)
	}
	return nil
}

// list returns the object elements of the array at key. Non-object entries
// are skipped.
func (o object) list(key string) []object {
	arr, _ := o[key].([]any)
	out := make([]object, 0, len(arr))
	for _, v := range arr {
		if m, ok := v.(map[string]any); ok {
			out = append(out, object(m))
		}
	}
	return out
}

func (o object) has(key string) bool {
	_, ok := o[key]
	return ok
}

func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "SI"
		}
		return "NO"
	}
	return ""
}

// orDash renders empty values as "-".
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Party is a person or company named in a payload.
type Party struct {
	Name      string
	DocType   string
	DocNumber string
}

// Empty reports whether nothing identifying was found.
func (p Party) Empty() bool { return p.Name == "" && p.DocNumber == "" }

// personParty reads the nombre1..apellido2 layout used by the person
// sections of the registry.
func personParty(p object) Party {
	if p == nil {
		return Party{}
	}
	parts := make([]string, 0, 4)
	for _, k := range []string{"nombre1", "nombre2", "apellido1", "apellido2"} {
		if s := p.str(k); s != "" {
			parts = append(parts, s)
		}
	}
	return Party{
		Name:      titleName(strings.Join(parts, " ")),
		DocType:   p.str("idTipoDoc", "tipoDocumento"),
		DocNumber: p.str("nroDocumento", "nroDoc", "numeroDocumento"),
	}
}

// companyParty reads a datosEmpresa section.
func companyParty(e object) Party {
	if e == nil {
		return Party{}
	}
	docType := e.str("tipoDocumentoEmpresa")
	if docType == "" {
		docType = "NIT"
	}
	return Party{
		Name:      e.str("razonSocial"),
		DocType:   docType,
		DocNumber: e.str("numeroDocumentoEmpresa"),
	}
}

// titleName turns "ANA MARIA PEREZ" into "Ana Maria Perez". A Caser is not
// safe for concurrent use, so one is built per call.
func titleName(s string) string {
	if s == "" {
		return ""
	}
	return cases.Title(language.Spanish).String(strings.Join(strings.Fields(s), " "))
}
