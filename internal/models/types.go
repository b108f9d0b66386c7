package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap is an open key/value map persisted as a JSON-encoded text column.
// Used for product specifications and error-code/pipeline-error metadata
// where the schema is not fixed.
type JSONMap map[string]any

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshaling JSONMap: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported type for JSONMap: %T", value)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	out := make(JSONMap)
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("unmarshaling JSONMap: %w", err)
	}
	*m = out
	return nil
}

// GormDataType returns the GORM data type for JSONMap.
func (JSONMap) GormDataType() string {
	return "text"
}

// FloatVector is a fixed-length sequence of float64 values persisted as a
// JSON-encoded text column. GORM drivers in this module have no native
// vector column type, so embeddings are stored as serialized arrays and
// compared in application code (see internal/vectorindex).
type FloatVector []float64

// Value implements driver.Valuer.
func (v FloatVector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal([]float64(v))
	if err != nil {
		return nil, fmt.Errorf("marshaling FloatVector: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (v *FloatVector) Scan(value any) error {
	if value == nil {
		*v = nil
		return nil
	}
	var raw []byte
	switch t := value.(type) {
	case string:
		raw = []byte(t)
	case []byte:
		raw = t
	default:
		return fmt.Errorf("unsupported type for FloatVector: %T", value)
	}
	if len(raw) == 0 {
		*v = nil
		return nil
	}
	var out []float64
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("unmarshaling FloatVector: %w", err)
	}
	*v = out
	return nil
}

// GormDataType returns the GORM data type for FloatVector.
func (FloatVector) GormDataType() string {
	return "text"
}

// StringSlice is a JSON-encoded []string column, used for section
// hierarchies and similar ordered string lists.
type StringSlice []string

// Value implements driver.Valuer.
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, fmt.Errorf("marshaling StringSlice: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var raw []byte
	switch t := value.(type) {
	case string:
		raw = []byte(t)
	case []byte:
		raw = t
	default:
		return fmt.Errorf("unsupported type for StringSlice: %T", value)
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("unmarshaling StringSlice: %w", err)
	}
	*s = out
	return nil
}

// GormDataType returns the GORM data type for StringSlice.
func (StringSlice) GormDataType() string {
	return "text"
}
