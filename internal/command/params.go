package command

import (
	"fmt"
	"net/url"
	"strconv"
)

// Params are the string-keyed inputs of a command, collected from path
// segments and the query string.
type Params map[string]string

// ParamsFromValues flattens url.Values, keeping the first value per key.
func ParamsFromValues(v url.Values) Params {
	p := make(Params, len(v))
	for key, vals := range v {
		if len(vals) > 0 {
			p[key] = vals[0]
		}
	}
	return p
}

// Clone returns a copy of p. A nil Params yields an empty, non-nil map.
func (p Params) Clone() Params {
	c := make(Params, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Get returns the value for key, or "" if absent.
func (p Params) Get(key string) string {
	return p[key]
}

// Int returns key parsed as an int, or def if the key is absent or empty.
func (p Params) Int(key string, def int) (int, error) {
	s, ok := p[key]
	if !ok || s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidParam, key, s)
	}
	return v, nil
}

// Float returns key parsed as a float64, or def if the key is absent or empty.
func (p Params) Float(key string, def float64) (float64, error) {
	s, ok := p[key]
	if !ok || s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidParam, key, s)
	}
	return v, nil
}
