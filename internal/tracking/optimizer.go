package tracking

import (
	"sort"
	"strconv"
	"strings"

	"idsbench/internal/logging"
)

// OptimizerResult is one optimiser run's best outcome. Rows are append-only;
// a better outcome for the same attack is a new row, never an update.
type OptimizerResult struct {
	AttackKey          string
	AttackCombination  []string
	OptimizerType      string
	NumTrials          int
	BestF1             float64
	BestParametersJSON string
	ConfigBasePath     string
	Notes              string
}

// OptimizerRow is a stored optimiser-best row, read back for resume-from-best.
type OptimizerRow struct {
	ID                 string
	Timestamp          string
	AttackKey          string
	AttackCombination  string
	OptimizerType      string
	NumTrials          int
	BestF1             float64
	BestParametersJSON string
	ConfigBasePath     string
	Notes              string
}

// SaveOptimizerResult appends a row and returns its id. Like the other write
// operations it degrades to a logged warning on failure.
func (tr *Tracker) SaveOptimizerResult(r OptimizerResult) string {
	id := GenerateUniqueID("OPT")
	tr.record(tr.optimizer, []string{
		id, now(), r.AttackKey, strings.Join(r.AttackCombination, ","),
		r.OptimizerType, strconv.Itoa(r.NumTrials), formatFloat(r.BestF1),
		r.BestParametersJSON, r.ConfigBasePath, r.Notes,
	})
	logging.Tracking("optimizer result %s saved (attack=%s, f1=%s)", id, r.AttackKey, formatFloat(r.BestF1))
	return id
}

// GetBestResultForAttack returns the minimum-F1 row for an attack key, or
// nil when the attack has no recorded run.
func (tr *Tracker) GetBestResultForAttack(attackKey string) (*OptimizerRow, error) {
	return tr.bestOptimizerRow(func(row map[string]string) bool {
		return row["attack_key"] == attackKey
	})
}

// GetBestResultForCombination returns the minimum-F1 row whose stored
// combination matches attackKeys as a set, ignoring order.
func (tr *Tracker) GetBestResultForCombination(attackKeys []string) (*OptimizerRow, error) {
	want := combinationKey(attackKeys)
	return tr.bestOptimizerRow(func(row map[string]string) bool {
		return combinationKey(strings.Split(row["attack_combination"], ",")) == want
	})
}

func (tr *Tracker) bestOptimizerRow(match func(map[string]string) bool) (*OptimizerRow, error) {
	rows, err := tr.optimizer.Rows()
	if err != nil {
		return nil, err
	}
	var best *OptimizerRow
	for _, row := range rows {
		if !match(row) {
			continue
		}
		f1, err := strconv.ParseFloat(row["best_metric_f1"], 64)
		if err != nil {
			logging.TrackingWarn("optimizer row %s has unreadable f1 %q", row["optimizer_id"], row["best_metric_f1"])
			continue
		}
		if best != nil && f1 >= best.BestF1 {
			continue
		}
		trials, _ := strconv.Atoi(row["num_trials"])
		best = &OptimizerRow{
			ID:                 row["optimizer_id"],
			Timestamp:          row["timestamp"],
			AttackKey:          row["attack_key"],
			AttackCombination:  row["attack_combination"],
			OptimizerType:      row["optimizer_type"],
			NumTrials:          trials,
			BestF1:             f1,
			BestParametersJSON: row["best_parameters_json"],
			ConfigBasePath:     row["config_base_path"],
			Notes:              row["notes"],
		}
	}
	return best, nil
}

// combinationKey normalises a list of attack keys into an order-insensitive
// comparison key.
func combinationKey(keys []string) string {
	normalised := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k != "" {
			normalised = append(normalised, k)
		}
	}
	sort.Strings(normalised)
	return strings.Join(normalised, ",")
}
