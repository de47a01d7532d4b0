package utils

import (
	"github.com/go-viper/mapstructure/v2"
)

// AttributeMap is a generic container of stage parameters, decoded into
// typed config structs via mapstructure (see ConvertAttributes on the
// configs in the segmentation package).
type AttributeMap map[string]interface{}

// Decode fills the given config struct from the map, matching keys against
// the json tags of the struct fields.
func (am AttributeMap) Decode(result interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  result,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(map[string]interface{}(am))
}

// Has returns whether the given name is in the map.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// Float64 attempts to return a float64 present in the map with the given
// name; returns the given default otherwise.
func (am AttributeMap) Float64(name string, def float64) float64 {
	if v, ok := am[name]; ok {
		switch x := v.(type) {
		case float64:
			return x
		case int:
			return float64(x)
		}
	}
	return def
}

// Int attempts to return an integer present in the map with the given name;
// returns the given default otherwise.
func (am AttributeMap) Int(name string, def int) int {
	if v, ok := am[name]; ok {
		switch x := v.(type) {
		case int:
			return x
		case float64:
			return int(x)
		}
	}
	return def
}

// String attempts to return a string present in the map with the given name;
// returns an empty string otherwise.
func (am AttributeMap) String(name string) string {
	if v, ok := am[name]; ok {
		if s, isStr := v.(string); isStr {
			return s
		}
	}
	return ""
}

// Bool attempts to return a boolean present in the map with the given name;
// returns the given default otherwise.
func (am AttributeMap) Bool(name string, def bool) bool {
	if v, ok := am[name]; ok {
		if b, isBool := v.(bool); isBool {
			return b
		}
	}
	return def
}
