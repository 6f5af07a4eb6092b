package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// JSONValue wraps raw JSON for a nullable column. Nil or empty input stores NULL.
func JSONValue(raw []byte) *datatypes.JSON {
	if len(raw) == 0 {
		return nil
	}
	j := datatypes.JSON(raw)
	return &j
}

// RawJSON returns the stored bytes of a nullable JSON column, nil for NULL.
func RawJSON(j *datatypes.JSON) json.RawMessage {
	if j == nil || len(*j) == 0 {
		return nil
	}
	return json.RawMessage(*j)
}
