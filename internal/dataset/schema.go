package dataset

import (
	"errors"
	"fmt"
)

// UnknownValue is the catch-all category every categorical set must carry.
const UnknownValue = "unknown"

// Raw column names expected in the input header.
const (
	ColAge       = "age"
	ColJob       = "job"
	ColMarital   = "marital"
	ColEducation = "education"
	ColDefault   = "default"
	ColBalance   = "balance"
	ColHousing   = "housing"
	ColLoan      = "loan"
	ColTarget    = "y"
)

// RequiredColumns lists the raw header columns the cleaner projects from.
var RequiredColumns = []string{
	ColAge, ColJob, ColMarital, ColEducation, ColDefault, ColBalance, ColHousing, ColLoan, ColTarget,
}

// Category maps a raw categorical value to its one-hot column name.
type Category struct {
	Value  string
	Column string
}

// Level maps a raw ordinal value to its code.
type Level struct {
	Value string
	Ord   int
}

// Schema declares the fixed category sets and clustering constants of a run.
// Adding a category or changing the cluster count is an edit to this value only.
type Schema struct {
	Jobs      []Category
	Marital   []Category
	Education []Level
	Clusters  int
	Seed      int64
}

// DefaultSchema returns the term-deposit campaign schema.
func DefaultSchema() Schema {
	return Schema{
		Jobs: []Category{
			{"admin.", "job_admin"},
			{"blue-collar", "job_bluecollar"},
			{"technician", "job_technician"},
			{"services", "job_services"},
			{"management", "job_management"},
			{"retired", "job_retired"},
			{"self-employed", "job_selfemployed"},
			{"entrepreneur", "job_entrepreneur"},
			{"unemployed", "job_unemployed"},
			{"housemaid", "job_housemaid"},
			{"student", "job_student"},
			{"unknown", "job_unknown"},
		},
		Marital: []Category{
			{"married", "marital_married"},
			{"single", "marital_single"},
			{"divorced", "marital_divorced"},
			{"unknown", "marital_unknown"},
		},
		Education: []Level{
			{"unknown", -1},
			{"primary", 0},
			{"secondary", 1},
			{"tertiary", 2},
		},
		Clusters: 5,
		Seed:     23,
	}
}

// Validate checks that every categorical set can absorb unrecognized values.
func (s Schema) Validate() error {
	if s.Clusters < 1 {
		return fmt.Errorf("clusters must be >= 1, got %d", s.Clusters)
	}
	if _, ok := IndexOf(s.Jobs, UnknownValue); !ok {
		return errors.New("job categories must include \"unknown\"")
	}
	if _, ok := IndexOf(s.Marital, UnknownValue); !ok {
		return errors.New("marital categories must include \"unknown\"")
	}
	if _, ok := s.EducationOrd(UnknownValue); !ok {
		return errors.New("education levels must include \"unknown\"")
	}
	seen := map[string]struct{}{}
	for _, set := range [][]Category{s.Jobs, s.Marital} {
		for _, c := range set {
			if _, dup := seen[c.Column]; dup {
				return fmt.Errorf("duplicate one-hot column %q", c.Column)
			}
			seen[c.Column] = struct{}{}
		}
	}
	return nil
}

// IndexOf returns the position of value in a category set.
func IndexOf(set []Category, value string) (int, bool) {
	for i, c := range set {
		if c.Value == value {
			return i, true
		}
	}
	return -1, false
}

// EducationOrd returns the ordinal code for an education level.
func (s Schema) EducationOrd(value string) (int, bool) {
	for _, l := range s.Education {
		if l.Value == value {
			return l.Ord, true
		}
	}
	return 0, false
}
