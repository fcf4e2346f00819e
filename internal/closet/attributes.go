package closet

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ParseAttributes decodes attributes stored either as an object or as a
// JSON-encoded string. Unknown shapes and decode failures yield empty
// attributes. Non-string values are rendered as text the way a browser
// would print them, with false and zero treated as absent.
func ParseAttributes(raw any) Attributes {
	switch val := raw.(type) {
	case nil:
		return Attributes{}
	case Attributes:
		return val
	case []byte:
		return parseAttributesString(string(val))
	case string:
		return parseAttributesString(val)
	case map[string]any:
		return decodeAttributes(val)
	default:
		return Attributes{}
	}
}

func parseAttributesString(s string) Attributes {
	s = strings.TrimSpace(s)
	if s == "" {
		return Attributes{}
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		// a JSON document stored as a JSON string value
		var nested string
		if json.Unmarshal([]byte(s), &nested) == nil && strings.HasPrefix(strings.TrimSpace(nested), "{") {
			return parseAttributesString(nested)
		}
		return Attributes{}
	}
	return decodeAttributes(decoded)
}

func decodeAttributes(m map[string]any) Attributes {
	var attrs Attributes
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: textHook,
		Result:     &attrs,
	})
	if err != nil {
		return Attributes{}
	}

	// Decode field by field so a single odd value does not wipe the rest.
	for key, value := range m {
		if value == nil {
			continue
		}
		if err := decoder.Decode(map[string]any{key: value}); err != nil {
			continue
		}
	}
	return attrs
}

func textHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	if b, ok := data.(bool); ok && !b {
		return "", nil
	}
	if isZeroNumber(data) {
		return "", nil
	}
	return attributeText(data), nil
}

// attributeText prints a loosely typed value: arrays join with commas,
// objects collapse to a placeholder.
func attributeText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case json.Number:
		return val.String()
	case []string:
		return strings.Join(val, ",")
	case []any:
		parts := make([]string, len(val))
		for i, el := range val {
			parts[i] = attributeText(el)
		}
		return strings.Join(parts, ",")
	case map[string]any:
		return "[object Object]"
	default:
		return fmt.Sprint(val)
	}
}

func isZeroNumber(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return rv.IsZero()
	}
	return false
}
