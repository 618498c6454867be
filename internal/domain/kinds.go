package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind is a lookup type code, matching the registry API's query types.
type Kind int

const (
	KindVehicleOwner   Kind = 1 // vehicle + owner combined
	KindPerson         Kind = 2
	KindVehicle        Kind = 3 // vehicle by plate
	KindOwner          Kind = 4 // owner by plate
	KindVehicleChassis Kind = 5
	KindSignature      Kind = 8
)

// ErrUnknownKind is returned when a kind code or slug is not in the catalog.
var ErrUnknownKind = errors.New("unknown lookup kind")

var kindSlugs = map[Kind]string{
	KindVehicleOwner:   "vehicle_owner",
	KindPerson:         "person",
	KindVehicle:        "vehicle",
	KindOwner:          "owner",
	KindVehicleChassis: "vehicle_chassis",
	KindSignature:      "signature",
}

// Kinds lists the catalog in a stable order.
func Kinds() []Kind {
	return []Kind{KindVehicleOwner, KindPerson, KindVehicle, KindOwner, KindVehicleChassis, KindSignature}
}

// Valid reports whether k is part of the catalog.
func (k Kind) Valid() bool {
	_, ok := kindSlugs[k]
	return ok
}

// String returns the slug, or the numeric code for unknown kinds.
func (k Kind) String() string {
	if s, ok := kindSlugs[k]; ok {
		return s
	}
	return strconv.Itoa(int(k))
}

// IsVehicle reports whether successful lookups of this kind produce a
// vehicle report document.
func (k Kind) IsVehicle() bool {
	switch k {
	case KindVehicleOwner, KindVehicle, KindVehicleChassis:
		return true
	}
	return false
}

// ParseKind accepts either a slug ("vehicle") or a numeric code ("3").
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if k := Kind(n); k.Valid() {
			return k, nil
		}
		return 0, fmt.Errorf("%w: %d", ErrUnknownKind, n)
	}
	for k, slug := range kindSlugs {
		if slug == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// DefaultKindConfigs is the catalog seeded into an empty lookup_kinds table.
func DefaultKindConfigs() []KindConfig {
	return []KindConfig{
		{Kind: KindVehicleOwner, Price: 8000, Enabled: true},
		{Kind: KindPerson, Price: 3000, Enabled: true},
		{Kind: KindVehicle, Price: 6000, Enabled: true},
		{Kind: KindOwner, Price: 5000, Enabled: true},
		{Kind: KindVehicleChassis, Price: 6000, Enabled: true},
		{Kind: KindSignature, Price: 5000, Enabled: true},
	}
}

// State is the lifecycle state of a Lookup.
type State string

const (
	StatePending State = "pending"
	StateSuccess State = "success"
	StateError   State = "error"
	StateNoData  State = "no_data"
)

// Terminal reports whether s is final.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateError || s == StateNoData
}

// Params carries the user-supplied inputs of a lookup.
type Params struct {
	DocType   string `json:"tipoDocumento,omitempty"`
	DocNumber string `json:"numeroDocumento,omitempty"`
	Plate     string `json:"placa,omitempty"`
	Chassis   string `json:"chasis,omitempty"`
}

// ErrInvalidParams is returned when params do not fit the lookup kind.
var ErrInvalidParams = errors.New("invalid lookup parameters")

// Validate checks that the fields required by k are present.
func (p Params) Validate(k Kind) error {
	switch k {
	case KindSignature, KindPerson:
		if p.DocType == "" || p.DocNumber == "" {
			return fmt.Errorf("%w: document type and number are required", ErrInvalidParams)
		}
	case KindVehicleOwner, KindVehicle, KindOwner:
		if p.Plate == "" {
			return fmt.Errorf("%w: plate is required", ErrInvalidParams)
		}
	case KindVehicleChassis:
		if p.Chassis == "" {
			return fmt.Errorf("%w: chassis number is required", ErrInvalidParams)
		}
	default:
		return ErrUnknownKind
	}
	return nil
}

// JSON returns the params encoded for storage.
func (p Params) JSON() string {
	b, _ := json.Marshal(p)
	return string(b)
}
