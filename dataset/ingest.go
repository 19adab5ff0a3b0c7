package dataset

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-select/pkg/errors"
	"github.com/YuminosukeSato/scigo-select/pkg/log"
)

// Ingestion defaults.
const (
	DefaultTestSize = 0.2
	DefaultSeed     = 42
)

// IngestConfig describes where raw data is read from and where the copies
// and splits are written.
type IngestConfig struct {
	InputPath string
	RawPath   string
	TrainPath string
	TestPath  string
	TestSize  float64
	Seed      int64
}

// IngestResult holds the splits written by Ingest. Cells are kept as text
// so categorical and missing values reach the preprocessor untouched.
type IngestResult struct {
	Header []string
	Train  *Table
	Test   *Table
}

// Ingest reads the input CSV, stores a raw copy, splits it with a seeded
// shuffle and writes the train and test CSV files. The last column is the
// target and must be numeric in every row.
func Ingest(cfg IngestConfig, logger log.Logger) (*IngestResult, error) {
	if logger == nil {
		logger = log.GetLoggerWithName("ingestion")
	}
	start := time.Now()
	logger.Info("data ingestion started", log.PhaseKey, log.PhaseIngestion, log.PathKey, cfg.InputPath)

	table, err := ReadCSV(cfg.InputPath)
	if err != nil {
		return nil, err
	}
	if _, _, err := table.SplitTarget(); err != nil {
		return nil, errors.Wrapf(err, "%s", cfg.InputPath)
	}
	if err := WriteCSV(cfg.RawPath, table); err != nil {
		return nil, err
	}

	train, test, err := SplitTable(table, cfg.TestSize, cfg.Seed)
	if err != nil {
		return nil, err
	}
	if err := WriteCSV(cfg.TrainPath, train); err != nil {
		return nil, err
	}
	if err := WriteCSV(cfg.TestPath, test); err != nil {
		return nil, err
	}

	logger.Info("data ingestion completed",
		log.PhaseKey, log.PhaseIngestion,
		log.SamplesKey, table.Rows(),
		log.FeaturesKey, table.Features(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return &IngestResult{Header: table.Header, Train: train, Test: test}, nil
}

// SplitTable shuffles the records of t with seed and returns the train and
// test parts, using the same row assignment as TrainTestSplit.
func SplitTable(t *Table, testSize float64, seed int64) (train, test *Table, err error) {
	trainIdx, testIdx, err := splitIndices(t.Rows(), testSize, seed)
	if err != nil {
		return nil, nil, err
	}
	return t.Subset(trainIdx), t.Subset(testIdx), nil
}

// TrainTestSplit shuffles the rows of m with seed and returns the train and
// test parts. The test part has ceil(testSize·n) rows; both parts keep at
// least one row.
func TrainTestSplit(m mat.Matrix, testSize float64, seed int64) (train, test *mat.Dense, err error) {
	rows, cols := m.Dims()
	trainIdx, testIdx, err := splitIndices(rows, testSize, seed)
	if err != nil {
		return nil, nil, err
	}

	test = mat.NewDense(len(testIdx), cols, nil)
	train = mat.NewDense(len(trainIdx), cols, nil)
	for k, idx := range testIdx {
		test.SetRow(k, mat.Row(nil, idx, m))
	}
	for k, idx := range trainIdx {
		train.SetRow(k, mat.Row(nil, idx, m))
	}
	return train, test, nil
}

// splitIndices permutes 0..rows-1; the first ceil(testSize·rows) indices go
// to the test part.
func splitIndices(rows int, testSize float64, seed int64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	if rows < 2 {
		return nil, nil, errors.NewValidationError("rows", "at least two rows are needed to split", rows)
	}

	nTest := int(math.Ceil(testSize * float64(rows)))
	if nTest >= rows {
		nTest = rows - 1
	}
	perm := rand.New(rand.NewPCG(uint64(seed), uint64(seed))).Perm(rows)
	return perm[nTest:], perm[:nTest], nil
}
