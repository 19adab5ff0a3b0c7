package automl

import (
	"bytes"
	"encoding/json"

	"github.com/YuminosukeSato/scigo-select/pkg/errors"
)

// Scores are the train and test R² of one candidate.
type Scores struct {
	TrainR2 float64 `json:"train_r2"`
	TestR2  float64 `json:"test_r2"`
}

// Report maps candidate names to their scores in run order. A nil entry
// marks a failed candidate and marshals to null.
type Report struct {
	names  []string
	scores map[string]*Scores
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{scores: make(map[string]*Scores)}
}

// Set records the scores of name, keeping the position of an existing entry.
func (r *Report) Set(name string, s *Scores) {
	if r.scores == nil {
		r.scores = make(map[string]*Scores)
	}
	if _, ok := r.scores[name]; !ok {
		r.names = append(r.names, name)
	}
	r.scores[name] = s
}

// Get returns the scores of name; ok is false for unknown names.
func (r *Report) Get(name string) (s *Scores, ok bool) {
	s, ok = r.scores[name]
	return s, ok
}

// Names returns candidate names in insertion order.
func (r *Report) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of entries.
func (r *Report) Len() int { return len(r.names) }

// Succeeded returns the number of non-nil entries.
func (r *Report) Succeeded() int {
	n := 0
	for _, s := range r.scores {
		if s != nil {
			n++
		}
	}
	return n
}

// MarshalJSON writes the report as an object in insertion order.
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, errors.Wrap(err, "marshal report key")
		}
		value, err := json.Marshal(r.scores[name])
		if err != nil {
			return nil, errors.Wrapf(err, "marshal report entry %q", name)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object, keeping the key order of the document.
func (r *Report) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, "decode report")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.Newf("decode report: expected an object, got %v", tok)
	}

	*r = Report{scores: make(map[string]*Scores)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return errors.Wrap(err, "decode report key")
		}
		name, _ := tok.(string)
		var s *Scores
		if err := dec.Decode(&s); err != nil {
			return errors.Wrapf(err, "decode report entry %q", name)
		}
		r.Set(name, s)
	}
	if _, err := dec.Token(); err != nil {
		return errors.Wrap(err, "decode report")
	}
	return nil
}
