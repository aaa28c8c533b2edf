package grid

import (
	"fmt"
	"strings"
)

// Method selects how share counts are spread across the grids.
type Method int

const (
	MethodEqual Method = iota
	MethodExponential
	MethodLinear
)

var methodNames = map[Method]string{
	MethodEqual:       "equal",
	MethodExponential: "exponential",
	MethodLinear:      "linear",
}

// Valid reports whether m is one of the known methods.
func (m Method) Valid() bool {
	_, ok := methodNames[m]
	return ok
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// Strategy returns the weighting strategy for m.
func (m Method) Strategy() (Strategy, error) {
	switch m {
	case MethodEqual:
		return EqualStrategy{}, nil
	case MethodExponential:
		return ExponentialStrategy{}, nil
	case MethodLinear:
		return LinearStrategy{}, nil
	}
	return nil, &InvalidInputError{Field: "allocation_method", Reason: "must be equal (0), exponential (1) or linear (2)"}
}

func (m Method) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("cannot marshal unknown allocation method %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMethod accepts either the method name or its numeric code ("0", "1", "2").
func ParseMethod(s string) (Method, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "equal", "0":
		return MethodEqual, nil
	case "exponential", "exp", "1":
		return MethodExponential, nil
	case "linear", "2":
		return MethodLinear, nil
	}
	return 0, &InvalidInputError{Field: "allocation_method", Reason: fmt.Sprintf("unknown method %q", s)}
}
