package route

// Params holds route parameters in the order their placeholders appear in the pattern.
type Params struct {
	keys   []string
	values []string
}

// NewParams builds Params from alternating key/value pairs.
// A trailing key without a value is ignored.
func NewParams(pairs ...string) Params {
	var p Params
	for i := 0; i+1 < len(pairs); i += 2 {
		p.keys = append(p.keys, pairs[i])
		p.values = append(p.values, pairs[i+1])
	}
	return p
}

// Len returns the number of parameters.
func (p Params) Len() int {
	return len(p.keys)
}

// Get returns the value for key, or empty string if absent.
func (p Params) Get(key string) string {
	v, _ := p.Lookup(key)
	return v
}

// Lookup returns the value for key and whether it is present.
func (p Params) Lookup(key string) (string, bool) {
	for i, k := range p.keys {
		if k == key {
			return p.values[i], true
		}
	}
	return "", false
}

// Keys returns parameter names in pattern order.
func (p Params) Keys() []string {
	return append([]string(nil), p.keys...)
}

// Values returns parameter values in pattern order.
func (p Params) Values() []string {
	return append([]string(nil), p.values...)
}

// Map returns the parameters as an unordered map.
func (p Params) Map() map[string]string {
	m := make(map[string]string, len(p.keys))
	for i, k := range p.keys {
		m[k] = p.values[i]
	}
	return m
}

// With returns a copy of p with key set to value.
// An existing key keeps its position; a new key is appended.
func (p Params) With(key, value string) Params {
	out := Params{keys: p.Keys(), values: p.Values()}
	for i, k := range out.keys {
		if k == key {
			out.values[i] = value
			return out
		}
	}
	out.keys = append(out.keys, key)
	out.values = append(out.values, value)
	return out
}
