// Package artifact saves and loads fitted models and preprocessors as
// versioned gob files.
package artifact

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/YuminosukeSato/scigo-select/core/model"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
	"github.com/YuminosukeSato/scigo-select/preprocessing"
	"github.com/YuminosukeSato/scigo-select/sklearn/ensemble"
	"github.com/YuminosukeSato/scigo-select/sklearn/linear_model"
	"github.com/YuminosukeSato/scigo-select/sklearn/tree"
)

// Magic identifies artifact files.
const Magic = "SCIGO-ARTIFACT"

// SchemaVersion is the envelope version written by Save. Load rejects any
// other version.
const SchemaVersion = 1

func init() {
	gob.Register(&linear_model.LinearRegression{})
	gob.Register(&linear_model.Ridge{})
	gob.Register(&tree.DecisionTreeRegressor{})
	gob.Register(&ensemble.RandomForestRegressor{})
	gob.Register(&ensemble.GradientBoostingRegressor{})
	gob.Register(&ensemble.AdaBoostRegressor{})
	gob.Register(&preprocessing.StandardScaler{})
	gob.Register(&preprocessing.MinMaxScaler{})
	gob.Register(&preprocessing.ColumnTransformer{})
}

// envelope is the on-disk layout. Payload holds the gob encoding of the
// object behind an interface value.
type envelope struct {
	Magic         string
	SchemaVersion int
	Kind          string
	NFeatures     int
	CreatedAt     time.Time
	Payload       []byte
}

// Artifact is a loaded object with its metadata.
type Artifact struct {
	Kind      string
	NFeatures int
	CreatedAt time.Time
	Object    interface{}
}

// Model returns the object as a regressor.
func (a *Artifact) Model() (model.Regressor, bool) {
	m, ok := a.Object.(model.Regressor)
	return m, ok
}

// Preprocessor returns the object as a fitted column transformer.
func (a *Artifact) Preprocessor() (*preprocessing.ColumnTransformer, bool) {
	ct, ok := a.Object.(*preprocessing.ColumnTransformer)
	return ct, ok
}

// Store reads and writes artifact files.
type Store struct{}

// NewStore returns a Store.
func NewStore() *Store { return &Store{} }

// featureCounter is implemented by fitted objects that know their input width.
type featureCounter interface {
	NFeaturesIn() int
}

// Save writes obj to path, creating parent directories. The file is
// replaced atomically.
func (s *Store) Save(path string, obj interface{}) error {
	if obj == nil {
		return errors.NewPersistenceError("save artifact", path, errors.New("nil object"))
	}

	holder := struct{ Object interface{} }{obj}
	var payload bytes.Buffer
	if err := model.Encode(&payload, &holder); err != nil {
		return errors.NewPersistenceError("save artifact", path, err)
	}

	env := envelope{
		Magic:         Magic,
		SchemaVersion: SchemaVersion,
		Kind:          kindOf(obj),
		NFeatures:     nFeatures(obj),
		CreatedAt:     time.Now().UTC(),
		Payload:       payload.Bytes(),
	}
	var buf bytes.Buffer
	if err := model.Encode(&buf, &env); err != nil {
		return errors.NewPersistenceError("save artifact", path, err)
	}
	return writeAtomic(path, buf.Bytes())
}

// Load reads an artifact written by Save. Missing, corrupt, foreign or
// incompatible files are PersistenceErrors naming path.
func (s *Store) Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewPersistenceError("load artifact", path, err)
	}

	var env envelope
	if err := model.Restore(data, &env); err != nil {
		return nil, errors.NewPersistenceError("load artifact", path, err)
	}
	if env.Magic != Magic {
		return nil, errors.NewPersistenceError("load artifact", path, errors.New("not an artifact file"))
	}
	if env.SchemaVersion != SchemaVersion {
		return nil, errors.NewPersistenceError("load artifact", path,
			errors.Newf("unsupported schema version %d (want %d)", env.SchemaVersion, SchemaVersion))
	}

	var holder struct{ Object interface{} }
	if err := model.Restore(env.Payload, &holder); err != nil {
		return nil, errors.NewPersistenceError("load artifact", path, err)
	}
	if holder.Object == nil {
		return nil, errors.NewPersistenceError("load artifact", path, errors.New("empty payload"))
	}
	return &Artifact{
		Kind:      env.Kind,
		NFeatures: env.NFeatures,
		CreatedAt: env.CreatedAt,
		Object:    holder.Object,
	}, nil
}

// LoadModel loads a regressor artifact.
func (s *Store) LoadModel(path string) (model.Regressor, *Artifact, error) {
	a, err := s.Load(path)
	if err != nil {
		return nil, nil, err
	}
	m, ok := a.Model()
	if !ok {
		return nil, nil, errors.NewPersistenceError("load model", path, errors.Newf("artifact holds a %s", a.Kind))
	}
	return m, a, nil
}

// LoadPreprocessor loads a preprocessor artifact.
func (s *Store) LoadPreprocessor(path string) (*preprocessing.ColumnTransformer, *Artifact, error) {
	a, err := s.Load(path)
	if err != nil {
		return nil, nil, err
	}
	ct, ok := a.Preprocessor()
	if !ok || !ct.IsFitted() {
		return nil, nil, errors.NewPersistenceError("load preprocessor", path, errors.Newf("artifact holds a %s", a.Kind))
	}
	return ct, a, nil
}

func kindOf(obj interface{}) string {
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// nFeatures reads the fitted width from NFeaturesIn or from the State field
// every estimator carries.
func nFeatures(obj interface{}) int {
	if fc, ok := obj.(featureCounter); ok {
		return fc.NFeaturesIn()
	}
	v := reflect.Indirect(reflect.ValueOf(obj))
	if v.Kind() != reflect.Struct {
		return 0
	}
	f := v.FieldByName("State")
	if !f.IsValid() || !f.CanInterface() {
		return 0
	}
	if sm, ok := f.Interface().(*model.StateManager); ok && sm != nil {
		n, _ := sm.GetDimensions()
		return n
	}
	return 0
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewPersistenceError("save artifact", path, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.NewPersistenceError("save artifact", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.NewPersistenceError("save artifact", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.NewPersistenceError("save artifact", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewPersistenceError("save artifact", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.NewPersistenceError("save artifact", path, err)
	}
	return nil
}
