package registry

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Status is the top-level code of a poll response.
type Status int

const (
	StatusUnknown    Status = -1 // absent or unreadable; final, never billable
	StatusFailed     Status = 0  // final, remote reported failure
	StatusOK         Status = 1  // final, content attached
	StatusProcessing Status = 2
)

// Terminal reports whether polling can stop. Only an explicit processing
// status keeps the poll loop going.
func (s Status) Terminal() bool { return s != StatusProcessing }

func (s Status) String() string {
	switch s {
	case StatusFailed:
		return "failed"
	case StatusOK:
		return "ok"
	case StatusProcessing:
		return "processing"
	}
	return "unknown"
}

// Result is one poll response. Raw is the body exactly as received and is
// what gets persisted; Content is the inner "Mensaje" value.
type Result struct {
	Status  Status
	Content json.RawMessage
	Raw     json.RawMessage
}

// DecodeResult parses a poll body. Field names are matched case-insensitively
// because the remote API is inconsistent about "Tipo" vs "tipo".
func DecodeResult(body []byte) (*Result, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	r := &Result{Status: StatusUnknown, Raw: json.RawMessage(bytes.Clone(body))}
	for k, v := range fields {
		switch strings.ToLower(k) {
		case "tipo":
			r.Status = parseStatus(v)
		case "mensaje":
			r.Content = json.RawMessage(bytes.Clone(v))
		}
	}
	return r, nil
}

// parseStatus accepts a JSON number or a numeric string. Anything else is
// StatusUnknown.
func parseStatus(v json.RawMessage) Status {
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		var str string
		if err := json.Unmarshal(v, &str); err != nil {
			return StatusUnknown
		}
		n = json.Number(strings.TrimSpace(str))
	}
	i, err := strconv.Atoi(n.String())
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil || f != float64(int(f)) {
			return StatusUnknown
		}
		i = int(f)
	}
	switch Status(i) {
	case StatusFailed, StatusOK, StatusProcessing:
		return Status(i)
	}
	return StatusUnknown
}

// InnerObject returns Content decoded as a JSON object. Content may be the
// object itself or a string holding serialized JSON; ok is false when it is
// neither.
func (r *Result) InnerObject() (obj map[string]any, ok bool) {
	return innerObject(r.Content)
}

func innerObject(content json.RawMessage) (map[string]any, bool) {
	c := bytes.TrimSpace(content)
	if len(c) == 0 {
		return nil, false
	}
	if c[0] == '"' {
		var s string
		if err := json.Unmarshal(c, &s); err != nil {
			return nil, false
		}
		c = bytes.TrimSpace([]byte(s))
	}
	var obj map[string]any
	if err := json.Unmarshal(c, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// hasContent reports whether content carries anything beyond null or "".
func hasContent(content json.RawMessage) bool {
	c := bytes.TrimSpace(content)
	if len(c) == 0 || bytes.Equal(c, []byte("null")) {
		return false
	}
	if c[0] == '"' {
		var s string
		if err := json.Unmarshal(c, &s); err == nil {
			return strings.TrimSpace(s) != ""
		}
	}
	return true
}
