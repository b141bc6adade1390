package etl

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"influxjson/internal/domain"
	"influxjson/internal/influx"
)

var errDatabase = errors.New("database reported an error")

// decodeResponse parses a JSON query response. Numbers are kept as literals.
func decodeResponse(raw []byte) (*domain.Response, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrParseFailure)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var resp domain.Response
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	return &resp, nil
}

// responseFailure reports an error carried inside an otherwise successful
// response. It counts as an execution failure of query.
func responseFailure(query, msg string) error {
	return &influx.ExecError{Query: query, Output: msg, Err: errDatabase}
}
