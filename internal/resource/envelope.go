package resource

import (
	"encoding/json"
	"fmt"
	"strings"
)

// The backend is not consistent about response envelopes: list endpoints
// answer either {"data": {"<resource>List": [...], "total": n}} or
// {"data": [...]}, detail endpoints answer {"data": {...}} or a bare
// object, and failures carry {"message": "..."}. All unwrapping lives
// here so the rest of the client sees one canonical shape.

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Total   int             `json:"total"`
}

// ListResult is the canonical list response shape.
type ListResult[T any] struct {
	Items []T
	// TotalCount is the server-reported total when present, otherwise
	// len(Items).
	TotalCount int
}

// decodeList tolerates both observed list envelope shapes. listKey names
// the wrapped array field ("clinicList"); when empty, any "...List" key
// is accepted.
func decodeList[T any](body []byte, listKey string) (ListResult[T], error) {
	var res ListResult[T]

	var env envelope
	payload := json.RawMessage(body)
	if err := json.Unmarshal(body, &env); err == nil && env.Data != nil {
		payload = env.Data
	}

	// Shape 1: bare array.
	if err := json.Unmarshal(payload, &res.Items); err == nil {
		res.TotalCount = env.Total
		if res.TotalCount == 0 {
			res.TotalCount = len(res.Items)
		}
		return res, nil
	}

	// Shape 2: object wrapping a named list.
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(payload, &wrapper); err != nil {
		return res, fmt.Errorf("malformed list payload: %w", err)
	}
	raw, ok := wrapper[listKey]
	if !ok {
		for key, value := range wrapper {
			if strings.HasSuffix(key, "List") {
				raw, ok = value, true
				break
			}
		}
	}
	if !ok {
		return res, fmt.Errorf("list payload has no %q field", listKey)
	}
	if err := json.Unmarshal(raw, &res.Items); err != nil {
		return res, fmt.Errorf("malformed %q field: %w", listKey, err)
	}

	res.TotalCount = len(res.Items)
	if raw, ok := wrapper["total"]; ok {
		var total int
		if err := json.Unmarshal(raw, &total); err == nil && total > 0 {
			res.TotalCount = total
		}
	}
	return res, nil
}

// decodeEntity tolerates both {"data": {...}} and a bare object.
func decodeEntity[T any](body []byte) (*T, error) {
	var env envelope
	payload := json.RawMessage(body)
	if err := json.Unmarshal(body, &env); err == nil && env.Data != nil {
		payload = env.Data
	}
	entity := new(T)
	if err := json.Unmarshal(payload, entity); err != nil {
		return nil, fmt.Errorf("malformed entity payload: %w", err)
	}
	return entity, nil
}

// serverMessage extracts the server-supplied failure message, if any.
func serverMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.Message
}
