package exchange

import "strconv"

// Raw is one decoded backend record. The accessors tolerate the numeric
// sloppiness of exchange APIs, where the same field arrives as a JSON number
// on one endpoint and a quoted string on another.
type Raw map[string]interface{}

// Has reports whether key is present.
func (r Raw) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Str returns the string value at key.
func (r Raw) Str(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// Float returns the numeric value at key, accepting numbers and numeric
// strings.
func (r Raw) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Bool returns the boolean value at key.
func (r Raw) Bool(key string) (bool, bool) {
	b, ok := r[key].(bool)
	return b, ok
}

// FirstStr returns the first present string value among keys.
func (r Raw) FirstStr(keys ...string) (string, bool) {
	for _, key := range keys {
		if s, ok := r.Str(key); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// FirstFloat returns the first present positive numeric value among keys.
func (r Raw) FirstFloat(keys ...string) (float64, bool) {
	for _, key := range keys {
		if f, ok := r.Float(key); ok && f > 0 {
			return f, true
		}
	}
	return 0, false
}
