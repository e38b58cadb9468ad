package types

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Numeric is a loosely typed JSON number. Form clients send numbers, numeric
// strings and booleans interchangeably; Numeric accepts all of them and
// remembers whether a usable value was present at all.
type Numeric struct {
	value float64
	set   bool
}

func Num(v float64) Numeric { return Numeric{value: v, set: true} }

// Value returns the number and whether it was present and finite.
func (n Numeric) Value() (float64, bool) {
	if !n.set || math.IsNaN(n.value) || math.IsInf(n.value, 0) {
		return 0, false
	}
	return n.value, true
}

func (n Numeric) IsSet() bool {
	_, ok := n.Value()
	return ok
}

// Bool treats any non-zero value as true.
func (n Numeric) Bool() bool {
	v, ok := n.Value()
	return ok && v != 0
}

func (n *Numeric) UnmarshalJSON(data []byte) error {
	*n = Numeric{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		if b {
			*n = Num(1)
		} else {
			*n = Num(0)
		}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		switch strings.ToLower(s) {
		case "":
			return nil
		case "true", "yes":
			*n = Num(1)
			return nil
		case "false", "no":
			*n = Num(0)
			return nil
		}
		// unparsable strings count as absent so validation can name the field
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*n = Num(v)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Num(v)
	return nil
}

func (n Numeric) MarshalJSON() ([]byte, error) {
	v, ok := n.Value()
	if !ok {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}
