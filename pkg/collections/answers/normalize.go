package answers

import (
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Submission data arrives either from JSON (float64, []interface{}, map[string]interface{}) or from
// the database driver (int32/int64, primitive.A, primitive.M, primitive.D); the helpers accept both.

func asString(raw interface{}) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", raw)
	}
	return s, nil
}

func asInt64(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	default:
		return 0, fmt.Errorf("expected integer, got %T", raw)
	}
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("expected integer, got %v", f)
	}
	return int64(f), nil
}

func asMap(raw interface{}) (map[string]interface{}, error) {
	switch v := raw.(type) {
	case map[string]interface{}:
		return v, nil
	case primitive.M:
		return map[string]interface{}(v), nil
	case primitive.D:
		return map[string]interface{}(v.Map()), nil
	default:
		return nil, fmt.Errorf("expected object, got %T", raw)
	}
}

func asSlice(raw interface{}) ([]interface{}, error) {
	switch v := raw.(type) {
	case []interface{}:
		return v, nil
	case primitive.A:
		return []interface{}(v), nil
	case []map[string]interface{}:
		res := make([]interface{}, len(v))
		for i := range v {
			res[i] = v[i]
		}
		return res, nil
	default:
		return nil, fmt.Errorf("expected list, got %T", raw)
	}
}

// AsEntryList reads the list of per-instance answer maps stored for an add-another group.
func AsEntryList(raw interface{}) ([]map[string]interface{}, error) {
	if raw == nil {
		return []map[string]interface{}{}, nil
	}
	items, err := asSlice(raw)
	if err != nil {
		return nil, err
	}
	entries := make([]map[string]interface{}, len(items))
	for i, item := range items {
		m, err := asMap(item)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		entries[i] = m
	}
	return entries, nil
}
