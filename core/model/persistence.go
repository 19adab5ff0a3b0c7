package model

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/YuminosukeSato/scigo-select/pkg/errors"
)

// Encode はモデルをgob形式でwに書き込む
//
// Concrete estimator types must be registered with gob.Register when they are
// encoded behind an interface.
func Encode(w io.Writer, v interface{}) error {
	if err := gob.NewEncoder(w).Encode(v); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// Decode はrからgob形式のモデルを読み込む (vはポインタ)
func Decode(r io.Reader, v interface{}) error {
	if err := gob.NewDecoder(r).Decode(v); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}

// Snapshot encodes v into a byte slice.
func Snapshot(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Restore decodes a Snapshot into v.
func Restore(data []byte, v interface{}) error {
	return Decode(bytes.NewReader(data), v)
}
