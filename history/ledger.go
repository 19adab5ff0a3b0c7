// Package history keeps the durable record of training runs: a JSON array
// file to which every run appends one entry.
package history

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/YuminosukeSato/scigo-select/automl"
	"github.com/YuminosukeSato/scigo-select/core/model"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
)

// Entry is one run outcome. Field names are stable.
type Entry struct {
	Timestamp   time.Time      `json:"timestamp"`
	RunID       string         `json:"run_id,omitempty"`
	Model       string         `json:"model"`
	TrainR2     float64        `json:"train_r2"`
	TestR2      float64        `json:"test_r2"`
	Params      model.Params   `json:"params,omitempty"`
	ModelReport *automl.Report `json:"model_report"`
}

// NewEntry builds the entry for a finished selection run.
func NewEntry(runID string, result *automl.Result) Entry {
	e := Entry{
		Timestamp:   time.Now().UTC(),
		RunID:       runID,
		ModelReport: result.Report,
	}
	if result.Best != nil {
		e.Model = result.Best.Name
		e.TrainR2 = result.Best.TrainScore
		e.TestR2 = result.Best.TestScore
		e.Params = result.Best.Params
	}
	return e
}

// Ledger is an append-only JSON array file. Appends through one Ledger are
// serialised; separate processes writing the same path may still lose
// updates, as each append rewrites the whole file from its own read.
type Ledger struct {
	path string
	mu   sync.Mutex
}

// NewLedger returns a ledger stored at path. The file is created on the
// first Append.
func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// Path returns the ledger file path.
func (l *Ledger) Path() string { return l.path }

// Load returns all entries in append order. An absent file is an empty
// ledger; an unreadable or malformed file is a PersistenceError.
func (l *Ledger) Load() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

// Append adds e to the end of the ledger. The new content is written to a
// temporary file in the same directory, synced and renamed over the ledger,
// so readers see either the old or the new array.
func (l *Ledger) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read()
	if err != nil {
		return err
	}
	entries = append(entries, e)

	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return errors.NewPersistenceError("encode history", l.path, err)
	}
	return l.commit(append(data, '\n'))
}

func (l *Ledger) read() ([]Entry, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, errors.NewPersistenceError("read history", l.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []Entry{}, nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.NewPersistenceError("decode history", l.path, err)
	}
	if entries == nil {
		// a literal null
		return nil, errors.NewPersistenceError("decode history", l.path, errors.New("history is not a JSON array"))
	}
	return entries, nil
}

func (l *Ledger) commit(data []byte) error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewPersistenceError("write history", l.path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return errors.NewPersistenceError("write history", l.path, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.NewPersistenceError("write history", l.path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.NewPersistenceError("sync history", l.path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewPersistenceError("write history", l.path, err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return errors.NewPersistenceError("commit history", l.path, err)
	}
	return nil
}
