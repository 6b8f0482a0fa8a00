package store

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/roach88/formtree/internal/form"
)

// marshalErrors encodes error records for the errors column. An empty list
// is stored as NULL.
func marshalErrors(errs form.ControlErrors) ([]byte, error) {
	if len(errs) == 0 {
		return nil, nil
	}
	data, err := msgpack.Marshal(errs)
	if err != nil {
		return nil, fmt.Errorf("marshal errors: %w", err)
	}
	return data, nil
}

// unmarshalErrors decodes an errors column. Integers come back as int64 or
// uint64 and floats as float64 whatever their type when written.
func unmarshalErrors(data []byte) (form.ControlErrors, error) {
	if len(data) == 0 {
		return form.ControlErrors{}, nil
	}
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	var errs form.ControlErrors
	if err := dec.Decode(&errs); err != nil {
		return nil, fmt.Errorf("unmarshal errors: %w", err)
	}
	if errs == nil {
		errs = form.ControlErrors{}
	}
	return errs, nil
}
