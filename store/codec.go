package store

import (
	"encoding/json"
	"fmt"
	"strings"
)

// encodeValue and decodeValue form the single serialization boundary between
// native values and backend text. The cache only ever holds native values;
// backends only ever see JSON.

func encodeValue(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	return string(b), nil
}

// decodeValue turns stored text back into a native value. Text that is not
// valid JSON (rows written by hand or by older revisions) is returned as the
// raw string rather than rejected.
func decodeValue(s string) any {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	return normalizeNumbers(v)
}
