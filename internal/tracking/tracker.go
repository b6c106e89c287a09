package tracking

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"idsbench/internal/logging"
)

// TimeFormat is the timestamp layout used in every provenance row.
const TimeFormat = "2006-01-02 15:04:05"

// DefaultDir is the tracking directory used when none is configured.
const DefaultDir = "target/tracking"

// Experiment status values. A row is born running and moves exactly once to
// completed or failed.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Dataset type values recorded in the dataset_type column.
const (
	DatasetBenign   = "benign"
	DatasetAttack   = "attack"
	DatasetTest     = "test"
	DatasetTraining = "training"
)

// Table file names inside the tracking directory.
const (
	fileExperiments = "experiments.csv"
	fileDatasets    = "datasets.csv"
	fileModels      = "models.csv"
	fileResults     = "results.csv"
	fileOptimizer   = "optimizer_results.csv"
)

var (
	experimentColumns = []string{
		"experiment_id", "timestamp", "experiment_type", "description",
		"pipeline_config_path", "status", "notes",
	}
	datasetColumns = []string{
		"dataset_id", "timestamp", "experiment_id", "dataset_type", "file_path",
		"format", "num_instances", "num_attributes", "config_path",
		"attack_types", "random_seed", "dataset_structure", "source_files", "notes",
	}
	modelColumns = []string{
		"model_id", "timestamp", "experiment_id", "dataset_id", "classifier_name",
		"model_path", "training_time_ms", "hyperparameters", "config_path", "notes",
	}
	resultColumns = []string{
		"result_id", "timestamp", "experiment_id", "model_id", "test_dataset_id",
		"accuracy", "precision", "recall", "f1_score",
		"true_positives", "true_negatives", "false_positives", "false_negatives",
		"evaluation_time_ms", "confusion_matrix", "config_path", "notes",
	}
	optimizerColumns = []string{
		"optimizer_id", "timestamp", "attack_key", "attack_combination",
		"optimizer_type", "num_trials", "best_metric_f1", "best_parameters_json",
		"config_base_path", "notes",
	}
)

// Tracker is the typed API over the provenance trail. Write operations never
// fail the caller: a row that cannot land is logged and dropped, so a broken
// tracking directory degrades observability without aborting the workflow.
// Read operations return their errors.
type Tracker struct {
	dir string

	experiments *Table
	datasets    *Table
	models      *Table
	results     *Table
	optimizer   *Table
}

// New opens (creating as needed) the five tables under dir.
func New(dir string) (*Tracker, error) {
	tr := &Tracker{dir: dir}
	var err error
	if tr.experiments, err = OpenTable(filepath.Join(dir, fileExperiments), experimentColumns); err != nil {
		return nil, err
	}
	if tr.datasets, err = OpenTable(filepath.Join(dir, fileDatasets), datasetColumns); err != nil {
		return nil, err
	}
	if tr.models, err = OpenTable(filepath.Join(dir, fileModels), modelColumns); err != nil {
		return nil, err
	}
	if tr.results, err = OpenTable(filepath.Join(dir, fileResults), resultColumns); err != nil {
		return nil, err
	}
	if tr.optimizer, err = OpenTable(filepath.Join(dir, fileOptimizer), optimizerColumns); err != nil {
		return nil, err
	}
	logging.Tracking("provenance trail opened at %s", dir)
	return tr, nil
}

// Dir returns the tracking directory.
func (tr *Tracker) Dir() string { return tr.dir }

func now() string { return time.Now().Format(TimeFormat) }

// record appends a row and swallows the error after logging it. Provenance
// writes must never abort the workflow they describe.
func (tr *Tracker) record(t *Table, row []string) {
	if err := t.Append(row); err != nil {
		logging.TrackingWarn("dropped provenance row in %s: %v", filepath.Base(t.Path()), err)
	}
}

// checkExperiment warns when a child row references an experiment id that was
// never minted. The row is still written; a dangling reference is a symptom
// worth keeping, not a reason to lose data.
func (tr *Tracker) checkExperiment(experimentID string) {
	rows, err := tr.experiments.Scan("experiment_id", experimentID)
	if err != nil {
		logging.TrackingWarn("could not verify experiment %s: %v", experimentID, err)
		return
	}
	if len(rows) == 0 {
		logging.TrackingWarn("row references unknown experiment %s", experimentID)
	}
}

// StartExperiment creates an experiment row with status running and returns
// its id.
func (tr *Tracker) StartExperiment(experimentType, description, workflowPath, notes string) string {
	id := GenerateUniqueID("EXP")
	tr.record(tr.experiments, []string{
		id, now(), experimentType, description, workflowPath, StatusRunning, notes,
	})
	logging.Tracking("experiment %s started (%s)", id, experimentType)
	return id
}

// CompleteExperiment marks a running experiment completed.
func (tr *Tracker) CompleteExperiment(experimentID string) {
	tr.updateStatus(experimentID, StatusCompleted, "")
}

// FailExperiment marks a running experiment failed and records the reason in
// the notes column.
func (tr *Tracker) FailExperiment(experimentID, reason string) {
	tr.updateStatus(experimentID, StatusFailed, reason)
}

func (tr *Tracker) updateStatus(experimentID, status, reason string) {
	changed, err := tr.experiments.Update("experiment_id", experimentID, func(row map[string]string) {
		if row["status"] != StatusRunning {
			// Terminal states are write-once.
			return
		}
		row["status"] = status
		if reason != "" {
			if row["notes"] != "" {
				row["notes"] = row["notes"] + "; " + reason
			} else {
				row["notes"] = reason
			}
		}
	})
	if err != nil {
		logging.TrackingWarn("could not update experiment %s to %s: %v", experimentID, status, err)
		return
	}
	if changed == 0 {
		logging.TrackingWarn("status update for unknown experiment %s", experimentID)
		return
	}
	logging.Tracking("experiment %s %s", experimentID, status)
}

// DatasetInfo describes one dataset row. Instance and attribute counts are
// derived from FilePath at record time.
type DatasetInfo struct {
	ExperimentID string
	FilePath     string
	Format       string
	ConfigPath   string
	AttackTypes  string
	RandomSeed   string
	Structure    string
	SourceFiles  string
	Notes        string
}

func (tr *Tracker) trackDataset(datasetType string, info DatasetInfo) string {
	tr.checkExperiment(info.ExperimentID)
	instances, attributes := countDataset(info.FilePath)
	id := GenerateUniqueID("DS")
	tr.record(tr.datasets, []string{
		id, now(), info.ExperimentID, datasetType, info.FilePath, info.Format,
		strconv.Itoa(instances), strconv.Itoa(attributes), info.ConfigPath,
		info.AttackTypes, info.RandomSeed, info.Structure, info.SourceFiles, info.Notes,
	})
	logging.Tracking("dataset %s recorded (%s, %d instances)", id, datasetType, instances)
	return id
}

// TrackBenignDataset records a benign traffic dataset row.
func (tr *Tracker) TrackBenignDataset(info DatasetInfo) string {
	return tr.trackDataset(DatasetBenign, info)
}

// TrackAttackDataset records an attack-injected dataset row.
func (tr *Tracker) TrackAttackDataset(info DatasetInfo) string {
	return tr.trackDataset(DatasetAttack, info)
}

// TrackTestDataset records an evaluation dataset row.
func (tr *Tracker) TrackTestDataset(info DatasetInfo) string {
	return tr.trackDataset(DatasetTest, info)
}

// TrackTrainingDataset records a training dataset row.
func (tr *Tracker) TrackTrainingDataset(info DatasetInfo) string {
	return tr.trackDataset(DatasetTraining, info)
}

// TrackModel records a trained model row and returns its id.
func (tr *Tracker) TrackModel(experimentID, trainingDatasetID, classifier, modelPath string,
	trainMs int64, hyperparameters, configPath, notes string) string {
	tr.checkExperiment(experimentID)
	id := GenerateUniqueID("MDL")
	tr.record(tr.models, []string{
		id, now(), experimentID, trainingDatasetID, classifier, modelPath,
		strconv.FormatInt(trainMs, 10), hyperparameters, configPath, notes,
	})
	logging.Tracking("model %s recorded (%s)", id, classifier)
	return id
}

// Metrics carries one evaluation's scalar outcomes.
type Metrics struct {
	Accuracy       float64
	Precision      float64
	Recall         float64
	F1             float64
	TruePositives  int64
	TrueNegatives  int64
	FalsePositives int64
	FalseNegatives int64
	EvaluationMs   int64
}

// TrackResult records an evaluation row and returns its id.
func (tr *Tracker) TrackResult(experimentID, modelID, testDatasetID string,
	m Metrics, confusionMatrix, configPath, notes string) string {
	tr.checkExperiment(experimentID)
	id := GenerateUniqueID("RES")
	tr.record(tr.results, []string{
		id, now(), experimentID, modelID, testDatasetID,
		formatFloat(m.Accuracy), formatFloat(m.Precision),
		formatFloat(m.Recall), formatFloat(m.F1),
		strconv.FormatInt(m.TruePositives, 10), strconv.FormatInt(m.TrueNegatives, 10),
		strconv.FormatInt(m.FalsePositives, 10), strconv.FormatInt(m.FalseNegatives, 10),
		strconv.FormatInt(m.EvaluationMs, 10), confusionMatrix, configPath, notes,
	})
	logging.Tracking("result %s recorded (f1=%s)", id, formatFloat(m.F1))
	return id
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// QueryDatabase scans a table for rows whose column equals value.
func (tr *Tracker) QueryDatabase(table, column, value string) ([]map[string]string, error) {
	t, err := tr.table(table)
	if err != nil {
		return nil, err
	}
	return t.Scan(column, value)
}

// TableColumns returns the column order of a table, for rendering query
// output.
func (tr *Tracker) TableColumns(table string) ([]string, error) {
	t, err := tr.table(table)
	if err != nil {
		return nil, err
	}
	return t.Columns(), nil
}

// TableNames lists the queryable tables.
func (tr *Tracker) TableNames() []string {
	return []string{"experiments", "datasets", "models", "results", "optimizer_results"}
}

func (tr *Tracker) table(name string) (*Table, error) {
	switch strings.ToLower(name) {
	case "experiments":
		return tr.experiments, nil
	case "datasets":
		return tr.datasets, nil
	case "models":
		return tr.models, nil
	case "results":
		return tr.results, nil
	case "optimizer_results", "optimizer":
		return tr.optimizer, nil
	default:
		return nil, fmt.Errorf("unknown table %q (have %s)", name, strings.Join(tr.TableNames(), ", "))
	}
}

// countDataset best-effort derives instance and attribute counts from an
// ARFF or CSV file. Any failure yields (-1, -1); dataset rows are recorded
// regardless.
func countDataset(path string) (instances, attributes int) {
	f, err := os.Open(path)
	if err != nil {
		return -1, -1
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".arff":
		return countARFF(f)
	case ".csv":
		return countCSV(f)
	default:
		return -1, -1
	}
}

func countARFF(f *os.File) (int, int) {
	instances, attributes := 0, 0
	inData := false
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "@attribute"):
			attributes++
		case strings.HasPrefix(lower, "@data"):
			inData = true
		case inData:
			instances++
		}
	}
	if sc.Err() != nil {
		return -1, -1
	}
	return instances, attributes
}

func countCSV(f *os.File) (int, int) {
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return -1, -1
	}
	instances := 0
	for {
		_, err := r.Read()
		if err != nil {
			break
		}
		instances++
	}
	return instances, len(header)
}
