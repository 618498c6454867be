package registry

import (
	"fmt"
	"strings"
)

// successCode is the codigoRespuesta value the registry uses for a hit.
const successCode = "00"

var notFoundMarkers = []string{"not found", "no encontr"}

// IsBillableSuccess reports whether a terminal poll result should be
// charged. Rules apply in order and the first match wins:
//
//  1. status is not final/OK: false
//  2. no inner content: false
//  3. inner object has error=true: false
//  4. inner object has codigoRespuesta and it is not "00": false
//  5. inner object has mensajeError mentioning "not found": false
//  6. otherwise true, including inner content that is not a JSON object
//
// It does no I/O and never modifies r.
func IsBillableSuccess(r *Result) bool {
	if r == nil || r.Status != StatusOK {
		return false
	}
	if !hasContent(r.Content) {
		return false
	}
	obj, ok := innerObject(r.Content)
	if !ok {
		// Lenient: the API sometimes answers with plain text on success.
		return true
	}
	if flag, ok := obj["error"].(bool); ok && flag {
		return false
	}
	if code, ok := obj["codigoRespuesta"]; ok && code != nil {
		if !isSuccessCode(code) {
			return false
		}
	}
	if msg, ok := obj["mensajeError"].(string); ok {
		low := strings.ToLower(msg)
		for _, m := range notFoundMarkers {
			if strings.Contains(low, m) {
				return false
			}
		}
	}
	return true
}

// isSuccessCode accepts "00" and its numeric form 0.
func isSuccessCode(code any) bool {
	switch v := code.(type) {
	case string:
		return strings.TrimSpace(v) == successCode
	case float64:
		return v == 0
	}
	return fmt.Sprint(code) == successCode
}
