package widget

import (
	"fmt"
	"maps"
	"math"
)

// Params holds the parsed parameter bag of a single node.
type Params struct {
	ID   string
	Type string
	Num  map[string]float64
	Str  map[string]string
}

// ParseParams builds Params from a node's free-form data bag. Values that are
// neither numbers, strings nor booleans are dropped.
func ParseParams(id, typ string, raw map[string]any) Params {
	p := Params{
		ID:   id,
		Type: typ,
		Num:  map[string]float64{},
		Str:  map[string]string{},
	}

	for k, v := range raw {
		_ = p.set(k, v)
	}

	return p
}

// GetNum safely extracts a numeric parameter, returning def if missing or invalid.
func (p Params) GetNum(key string, def float64) float64 {
	if p.Num == nil {
		return def
	}

	v, ok := p.Num[key]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}

	return v
}

// GetStr extracts a string parameter, returning def if missing or empty.
func (p Params) GetStr(key, def string) string {
	v := p.Str[key]
	if v == "" {
		return def
	}

	return v
}

// Data returns the bag in its saved form.
func (p Params) Data() map[string]any {
	data := make(map[string]any, len(p.Num)+len(p.Str))
	for k, v := range p.Num {
		data[k] = v
	}

	for k, v := range p.Str {
		data[k] = v
	}

	return data
}

// Clone returns a deep copy.
func (p Params) Clone() Params {
	p.Num = maps.Clone(p.Num)
	p.Str = maps.Clone(p.Str)

	return p
}

func (p *Params) set(key string, v any) error {
	if p.Num == nil {
		p.Num = map[string]float64{}
	}

	if p.Str == nil {
		p.Str = map[string]string{}
	}

	switch t := v.(type) {
	case float64:
		p.Num[key] = t
	case float32:
		p.Num[key] = float64(t)
	case int:
		p.Num[key] = float64(t)
	case int64:
		p.Num[key] = float64(t)
	case string:
		p.Str[key] = t
	case bool:
		if t {
			p.Num[key] = 1
		} else {
			p.Num[key] = 0
		}
	default:
		return fmt.Errorf("widget: unsupported value %T for %q", v, key)
	}

	return nil
}
