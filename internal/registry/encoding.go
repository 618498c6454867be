package registry

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-lookup-bot/internal/domain"
)

// ErrNoEncoder is returned by Encode for kinds without a wire strategy.
var ErrNoEncoder = errors.New("no wire encoding for lookup kind")

// encoder turns validated params into the "mensaje" value the registry
// expects for one kind.
type encoder func(p domain.Params) any

// upper builds a fresh Caser per call; Casers are stateful and not safe to
// share between goroutines.
func upper(s string) string { return cases.Upper(language.Und).String(s) }

// encoders is the per-kind wire contract. Signature takes a comma-joined
// string, person a structured object, plate and chassis kinds a bare string.
var encoders = map[domain.Kind]encoder{
	domain.KindSignature: func(p domain.Params) any {
		return upper(strings.TrimSpace(p.DocType)) + "," + NormalizeDocNumber(p.DocNumber)
	},
	domain.KindPerson: func(p domain.Params) any {
		return personMessage{
			DocType:   upper(strings.TrimSpace(p.DocType)),
			DocNumber: NormalizeDocNumber(p.DocNumber),
		}
	},
	domain.KindVehicleOwner:   func(p domain.Params) any { return NormalizePlate(p.Plate) },
	domain.KindVehicle:        func(p domain.Params) any { return NormalizePlate(p.Plate) },
	domain.KindOwner:          func(p domain.Params) any { return NormalizePlate(p.Plate) },
	domain.KindVehicleChassis: func(p domain.Params) any { return NormalizePlate(p.Chassis) },
}

type personMessage struct {
	DocType   string `json:"tipoDocumento"`
	DocNumber string `json:"numeroDocumento"`
}

// Encode validates p for kind and returns the wire "mensaje" value.
func Encode(kind domain.Kind, p domain.Params) (any, error) {
	enc, ok := encoders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNoEncoder, kind)
	}
	if err := p.Validate(kind); err != nil {
		return nil, err
	}
	return enc(p), nil
}

// NormalizePlate removes whitespace and upper-cases a plate or VIN.
func NormalizePlate(s string) string {
	return upper(strings.Join(strings.Fields(s), ""))
}

// NormalizeDocNumber strips whitespace and thousands separators from a
// document number.
func NormalizeDocNumber(s string) string {
	s = strings.Join(strings.Fields(s), "")
	return strings.NewReplacer(".", "", ",", "").Replace(s)
}
