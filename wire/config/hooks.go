package config

import (
	"reflect"

	"github.com/mitchellh/mapstructure"
)

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		stringOrListHook(),
	)
}

// stringOrListHook accepts a single string where a list of strings is
// expected, so `src = "lib"` and `src = ["lib"]` decode alike.
func stringOrListHook() mapstructure.DecodeHookFunc {
	target := reflect.TypeOf([]string(nil))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != target || from.Kind() != reflect.String {
			return data, nil
		}
		s := data.(string)
		if s == "" {
			return []string{}, nil
		}
		return []string{s}, nil
	}
}
