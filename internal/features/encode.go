package features

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/subseg-cli/internal/dataset"
	"github.com/KaramelBytes/subseg-cli/internal/logging"
)

var (
	// ErrNoRecords is returned when there is nothing to encode.
	ErrNoRecords = errors.New("no records to encode")
	// ErrZeroVariance is returned under ZeroVarianceFail when a standardized
	// feature has zero (or undefined) sample standard deviation.
	ErrZeroVariance = errors.New("zero variance")
	// ErrUnknownCategory is returned under UnknownCategoryFail.
	ErrUnknownCategory = errors.New("unrecognized category")
)

// ZeroVariancePolicy selects what happens when a standardized feature is constant.
type ZeroVariancePolicy string

const (
	// ZeroVarianceZero writes 0 for every standardized value of the feature.
	ZeroVarianceZero ZeroVariancePolicy = "zero"
	// ZeroVarianceFail aborts encoding with ErrZeroVariance.
	ZeroVarianceFail ZeroVariancePolicy = "fail"
)

// UnknownCategoryPolicy selects what happens to values outside a fixed category set.
type UnknownCategoryPolicy string

const (
	// UnknownCategoryRoute encodes the value as "unknown".
	UnknownCategoryRoute UnknownCategoryPolicy = "unknown"
	// UnknownCategoryFail aborts encoding with ErrUnknownCategory.
	UnknownCategoryFail UnknownCategoryPolicy = "fail"
)

// Options controls encoding edge cases.
type Options struct {
	ZeroVariance    ZeroVariancePolicy
	UnknownCategory UnknownCategoryPolicy
}

// DefaultOptions substitutes zeros for constant features and routes
// unrecognized categories to "unknown".
func DefaultOptions() Options {
	return Options{ZeroVariance: ZeroVarianceZero, UnknownCategory: UnknownCategoryRoute}
}

// Stats are the standardization parameters, computed once over the whole
// filtered set.
type Stats struct {
	AgeMean        float64 `json:"age_mean"`
	AgeStd         float64 `json:"age_std"`
	LogBalanceMean float64 `json:"log_balance_mean"`
	LogBalanceStd  float64 `json:"log_balance_std"`
}

// Row is one enriched record: the cleaned fields plus derived encodings.
type Row struct {
	dataset.Record

	AgeT          float64
	BalanceSign   float64
	BalanceT      float64
	// One-hot encodings in schema order.
	JobOneHot     []float64
	MaritalOneHot []float64
	EducationOrd  int
	DefaultBin    int
	HousingBin    int
	LoanBin       int
	TargetBin     int
}

// Vector returns the clustering features in MatrixColumns order.
func (r Row) Vector() []float64 {
	v := make([]float64, 0, 3+len(r.JobOneHot)+len(r.MaritalOneHot)+4)
	v = append(v, r.AgeT, r.BalanceSign, r.BalanceT)
	v = append(v, r.JobOneHot...)
	v = append(v, r.MaritalOneHot...)
	return append(v, float64(r.EducationOrd), float64(r.DefaultBin), float64(r.HousingBin), float64(r.LoanBin))
}

// Encoded is the encoder output. Matrix row i is Rows[i].Vector().
type Encoded struct {
	Schema  dataset.Schema
	Rows    []Row
	Matrix  *mat.Dense
	Columns []string
	Stats   Stats
	// Rerouted counts values sent to "unknown", keyed by column.
	Rerouted map[string]int
}

// MatrixColumns names the clustering features. Target and row identifiers
// are not part of the matrix.
func MatrixColumns(s dataset.Schema) []string {
	cols := []string{"age_t", "balance_sign", "balance_t"}
	for _, c := range s.Jobs {
		cols = append(cols, c.Column)
	}
	for _, c := range s.Marital {
		cols = append(cols, c.Column)
	}
	return append(cols, "education_ord", "default_bin", "housing_bin", "loan_bin")
}

// EncodedColumns names every derived column of the enriched table.
func EncodedColumns(s dataset.Schema) []string {
	return append(MatrixColumns(s), "target_bin")
}

// Encode standardizes, one-hot and ordinal encodes recs.
func Encode(recs []dataset.Record, s dataset.Schema, opt Options) (*Encoded, error) {
	if len(recs) == 0 {
		return nil, ErrNoRecords
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	if opt.ZeroVariance == "" {
		opt.ZeroVariance = ZeroVarianceZero
	}
	if opt.UnknownCategory == "" {
		opt.UnknownCategory = UnknownCategoryRoute
	}

	ages := make([]float64, len(recs))
	logBal := make([]float64, len(recs))
	for i, r := range recs {
		ages[i] = float64(r.Age)
		logBal[i] = LogMagnitude(r.Balance)
	}
	var st Stats
	st.AgeMean, st.AgeStd = stat.MeanStdDev(ages, nil)
	st.LogBalanceMean, st.LogBalanceStd = stat.MeanStdDev(logBal, nil)

	ageT, err := standardize(ages, st.AgeMean, st.AgeStd, "age", opt)
	if err != nil {
		return nil, err
	}
	balT, err := standardize(logBal, st.LogBalanceMean, st.LogBalanceStd, "balance", opt)
	if err != nil {
		return nil, err
	}

	jobUnknown, _ := dataset.IndexOf(s.Jobs, dataset.UnknownValue)
	maritalUnknown, _ := dataset.IndexOf(s.Marital, dataset.UnknownValue)
	eduUnknown, _ := s.EducationOrd(dataset.UnknownValue)

	enc := &Encoded{
		Schema:   s,
		Rows:     make([]Row, len(recs)),
		Columns:  MatrixColumns(s),
		Stats:    st,
		Rerouted: map[string]int{},
	}
	enc.Matrix = mat.NewDense(len(recs), len(enc.Columns), nil)
	for i, r := range recs {
		row := Row{
			Record:        r,
			AgeT:          ageT[i],
			BalanceSign:   Sign(r.Balance),
			BalanceT:      balT[i],
			JobOneHot:     make([]float64, len(s.Jobs)),
			MaritalOneHot: make([]float64, len(s.Marital)),
			DefaultBin:    bin(r.HasDefault),
			HousingBin:    bin(r.HasHousing),
			LoanBin:       bin(r.HasLoan),
			TargetBin:     bin(r.Target),
		}

		j, ok := dataset.IndexOf(s.Jobs, r.Job)
		if !ok {
			if err := enc.reroute(dataset.ColJob, r, r.Job, opt); err != nil {
				return nil, err
			}
			j = jobUnknown
		}
		row.JobOneHot[j] = 1

		m, ok := dataset.IndexOf(s.Marital, r.Marital)
		if !ok {
			if err := enc.reroute(dataset.ColMarital, r, r.Marital, opt); err != nil {
				return nil, err
			}
			m = maritalUnknown
		}
		row.MaritalOneHot[m] = 1

		e, ok := s.EducationOrd(r.Education)
		if !ok {
			if err := enc.reroute(dataset.ColEducation, r, r.Education, opt); err != nil {
				return nil, err
			}
			e = eduUnknown
		}
		row.EducationOrd = e

		enc.Rows[i] = row
		enc.Matrix.SetRow(i, row.Vector())
	}
	for col, n := range enc.Rerouted {
		logging.Warn().Str("column", col).Int("rows", n).Msg("unrecognized categories routed to unknown")
	}
	return enc, nil
}

func (e *Encoded) reroute(col string, r dataset.Record, value string, opt Options) error {
	if opt.UnknownCategory == UnknownCategoryFail {
		return fmt.Errorf("%w: row %d, column %s: %q", ErrUnknownCategory, r.RowID, col, value)
	}
	e.Rerouted[col]++
	return nil
}

// standardize z-scores x. A zero or undefined std never leaks NaN/Inf.
func standardize(x []float64, mean, std float64, name string, opt Options) ([]float64, error) {
	out := make([]float64, len(x))
	if floats.Max(x) == floats.Min(x) || std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
		if opt.ZeroVariance == ZeroVarianceFail {
			return nil, fmt.Errorf("%w: %s over %d rows", ErrZeroVariance, name, len(x))
		}
		logging.Warn().Str("feature", name).Int("rows", len(x)).Msg("zero variance, standardized values set to 0")
		return out, nil
	}
	for i, v := range x {
		out[i] = (v - mean) / std
	}
	return out, nil
}

// LogMagnitude returns log(|balance|+1).
func LogMagnitude(balance int64) float64 {
	return math.Log(math.Abs(float64(balance)) + 1)
}

// Sign returns -1, 0 or 1.
func Sign(v int64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func bin(b bool) int {
	if b {
		return 1
	}
	return 0
}
