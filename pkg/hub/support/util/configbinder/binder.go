// Package configbinder binds opaque string-keyed maps (job input parameters,
// raw document fields) onto typed structs using mapstructure.
package configbinder

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// BindMap decodes the given map onto target, which must be a pointer to a
// struct tagged with `mapstructure` (or, via TagName below, `json`) tags.
// Weak typing is enabled so that numbers arriving as strings or float64
// (the usual shape after a JSON round trip) still bind.
func BindMap(in map[string]interface{}, target interface{}) error {
	if len(in) == 0 {
		return nil
	}

	config := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           target,
		WeaklyTypedInput: true,
		// json tags are already present on all record types; reuse them
		// instead of introducing a parallel tag set.
		TagName: "json",
	}

	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(in); err != nil {
		targetType := reflect.TypeOf(target)
		if targetType.Kind() == reflect.Ptr {
			targetType = targetType.Elem()
		}
		return fmt.Errorf("failed to bind map to struct %s: %w", targetType.Name(), err)
	}

	return nil
}
