package transport

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Collection is the {count, value[]} envelope of list responses.
type Collection[T any] struct {
	Count int `json:"count"`
	Value []T `json:"value"`
}

// Ref is a {id, name} reference to another entity.
type Ref struct {
	ID   FlexInt `json:"id"`
	Name string  `json:"name,omitempty"`
}

// FlexInt decodes ids that some endpoints send as strings and others as
// numbers.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("id must be a number or numeric string: %s", data)
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("id %q is not numeric", s)
	}
	*f = FlexInt(n)
	return nil
}

// ErrorBody is the JSON error payload returned with 4xx responses.
type ErrorBody struct {
	Message  string `json:"message"`
	TypeKey  string `json:"typeKey"`
	TypeName string `json:"typeName"`
}

// ParseErrorBody extracts the error payload, tolerating non-JSON bodies.
func ParseErrorBody(body string) ErrorBody {
	var eb ErrorBody
	if err := json.Unmarshal([]byte(body), &eb); err != nil || eb.Message == "" {
		return ErrorBody{Message: body}
	}
	return eb
}
