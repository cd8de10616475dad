package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"scorecard/internal/errors"
)

// AllYears in a job's year field selects every year of the merged table.
const AllYears = 0

// Plan lists the datasets to load and the aggregates to compute from them.
//
//	datasets:
//	  - name: tuition
//	    attributes: [TUITIONFEE_IN, TUITIONFEE_OUT]
//	rollups:
//	  - name: tuition_by_state
//	    dataset: tuition
//	    attributes: [TUITIONFEE_IN]
//	    year: 2013
type Plan struct {
	Datasets     []DatasetSpec    `yaml:"datasets" validate:"required,min=1,dive"`
	Rollups      []RollupJob      `yaml:"rollups" validate:"dive"`
	NullRates    []NullRateJob    `yaml:"null_rates" validate:"dive"`
	Cohorts      []CohortJob      `yaml:"cohorts" validate:"dive"`
	Correlations []CorrelationJob `yaml:"correlations" validate:"dive"`
	Rankings     []RankingJob     `yaml:"rankings" validate:"dive"`
	Series       []SeriesJob      `yaml:"series" validate:"dive"`
}

// DatasetSpec names one load request: the attributes read from every extract.
type DatasetSpec struct {
	Name       string   `yaml:"name" validate:"required"`
	Attributes []string `yaml:"attributes" validate:"required,min=1,dive,required"`
}

// RollupJob averages attributes per state for one year or all years.
// TopStates > 0 keeps only the states with the most institutions in RankYear.
type RollupJob struct {
	Name       string   `yaml:"name" validate:"required"`
	Dataset    string   `yaml:"dataset" validate:"required"`
	Attributes []string `yaml:"attributes" validate:"required,min=1,dive,required"`
	Year       int      `yaml:"year" validate:"min=0"`
	TopStates  int      `yaml:"top_states" validate:"min=0,max=51"`
	RankYear   int      `yaml:"rank_year" validate:"required_with=TopStates"`
}

// NullRateJob computes null counts and rates per state and year.
type NullRateJob struct {
	Name       string   `yaml:"name" validate:"required"`
	Dataset    string   `yaml:"dataset" validate:"required"`
	Attributes []string `yaml:"attributes" validate:"required,min=1,dive,required"`
	Year       int      `yaml:"year" validate:"min=0"`
}

// CohortJob assigns quartile labels on one reference attribute.
type CohortJob struct {
	Name      string   `yaml:"name" validate:"required"`
	Dataset   string   `yaml:"dataset" validate:"required"`
	Attribute string   `yaml:"attribute" validate:"required"`
	Year      int      `yaml:"year" validate:"required"`
	Carry     []string `yaml:"carry" validate:"dive,required"`
}

// CorrelationJob builds institution and state level correlation matrices.
type CorrelationJob struct {
	Name       string   `yaml:"name" validate:"required"`
	Dataset    string   `yaml:"dataset" validate:"required"`
	Attributes []string `yaml:"attributes" validate:"required,min=2,dive,required"`
	Year       int      `yaml:"year" validate:"required"`
}

// RankingJob orders states by institution count in a year.
type RankingJob struct {
	Name    string `yaml:"name" validate:"required"`
	Dataset string `yaml:"dataset" validate:"required"`
	Year    int    `yaml:"year" validate:"required"`
	Top     int    `yaml:"top" validate:"min=0,max=51"`
}

// SeriesJob copies an external dated series (a FRED graph export) into the
// store next to the aggregates. File is relative to the extracts directory.
type SeriesJob struct {
	Name   string `yaml:"name" validate:"required"`
	File   string `yaml:"file" validate:"required"`
	Sheet  string `yaml:"sheet"`
	Header string `yaml:"header"`
	Label  string `yaml:"label"`
}

// LoadPlan reads and validates a plan file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("failed to read plan %s", path), err)
	}
	return ParsePlan(data)
}

// ParsePlan decodes and validates plan YAML.
func ParsePlan(data []byte) (*Plan, error) {
	var plan Plan
	if err := yaml.UnmarshalStrict(data, &plan); err != nil {
		return nil, errors.NewConfigError("failed to decode plan", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Validate checks struct tags, unique names and that every job only uses
// attributes its dataset loads.
func (p *Plan) Validate() error {
	if err := validate.Struct(p); err != nil {
		return errors.NewConfigError("invalid plan", err)
	}

	datasets := make(map[string]map[string]struct{}, len(p.Datasets))
	for _, ds := range p.Datasets {
		if _, dup := datasets[ds.Name]; dup {
			return errors.NewConfigError(fmt.Sprintf("duplicate dataset %q", ds.Name), nil)
		}
		attrs := make(map[string]struct{}, len(ds.Attributes))
		for _, a := range ds.Attributes {
			attrs[a] = struct{}{}
		}
		datasets[ds.Name] = attrs
	}

	names := make(map[string]struct{})
	check := func(name, dataset string, attrs ...string) error {
		if _, dup := names[name]; dup {
			return errors.NewConfigError(fmt.Sprintf("duplicate job name %q", name), nil)
		}
		names[name] = struct{}{}

		loaded, ok := datasets[dataset]
		if !ok {
			return errors.NewConfigError(fmt.Sprintf("job %q references unknown dataset %q", name, dataset), nil)
		}
		for _, a := range attrs {
			if _, ok := loaded[a]; !ok {
				return errors.NewConfigError(
					fmt.Sprintf("job %q uses attribute %q not loaded by dataset %q", name, a, dataset), nil)
			}
		}
		return nil
	}

	for _, j := range p.Rollups {
		if err := check(j.Name, j.Dataset, j.Attributes...); err != nil {
			return err
		}
	}
	for _, j := range p.NullRates {
		if err := check(j.Name, j.Dataset, j.Attributes...); err != nil {
			return err
		}
	}
	for _, j := range p.Cohorts {
		if err := check(j.Name, j.Dataset, append([]string{j.Attribute}, j.Carry...)...); err != nil {
			return err
		}
	}
	for _, j := range p.Correlations {
		if err := check(j.Name, j.Dataset, j.Attributes...); err != nil {
			return err
		}
	}
	for _, j := range p.Rankings {
		if err := check(j.Name, j.Dataset); err != nil {
			return err
		}
	}
	for _, j := range p.Series {
		if _, dup := names[j.Name]; dup {
			return errors.NewConfigError(fmt.Sprintf("duplicate job name %q", j.Name), nil)
		}
		names[j.Name] = struct{}{}
	}

	return p.checkTableKeys()
}

// checkTableKeys rejects plans where two outputs would be written under the
// same store key. Keys are compared without case since workbook sheets and
// files on some file systems are case-insensitive.
func (p *Plan) checkTableKeys() error {
	owners := make(map[string]string)
	for _, o := range p.TableKeys() {
		folded := strings.ToLower(o.Key)
		if prev, dup := owners[folded]; dup {
			return errors.NewConfigError(
				fmt.Sprintf("table key %q of %s collides with a table of %s", o.Key, o.Owner, prev), nil)
		}
		owners[folded] = o.Owner
	}
	return nil
}

// TableKey is one store key a plan writes and the dataset or job writing it.
type TableKey struct {
	Key   string
	Owner string
}

// TableKeys lists every store key the plan writes, in plan order.
func (p *Plan) TableKeys() []TableKey {
	var out []TableKey
	add := func(owner string, keys ...string) {
		for _, k := range keys {
			out = append(out, TableKey{Key: k, Owner: owner})
		}
	}

	for _, ds := range p.Datasets {
		add("dataset "+ds.Name, MergeReportKey(ds.Name), InstitutionsKey(ds.Name))
	}
	for _, j := range p.Rollups {
		add("rollup "+j.Name, j.Name)
		if j.Year == AllYears {
			for _, a := range j.Attributes {
				add("rollup "+j.Name, AttributeKey(j.Name, a))
			}
		}
	}
	for _, j := range p.NullRates {
		for _, a := range j.Attributes {
			add("null rate "+j.Name, NullCountKey(j.Name, a), NullPercentKey(j.Name, a))
		}
		add("null rate "+j.Name, NationalNullKey(j.Name))
	}
	for _, j := range p.Cohorts {
		add("cohort "+j.Name, j.Name, QuartilesKey(j.Name))
	}
	for _, j := range p.Correlations {
		add("correlation "+j.Name, CorrelationKey(j.Name, "institution"), CorrelationKey(j.Name, "state"))
	}
	for _, j := range p.Rankings {
		add("ranking "+j.Name, j.Name)
	}
	for _, j := range p.Series {
		add("series "+j.Name, j.Name)
	}
	return out
}

// Store keys derived from dataset and job names.

func MergeReportKey(dataset string) string { return dataset + ".merge_report" }

func InstitutionsKey(dataset string) string { return dataset + ".institutions" }

func AttributeKey(job, attr string) string { return job + "." + attr }

func NullCountKey(job, attr string) string { return job + "." + attr + ".counts" }

func NullPercentKey(job, attr string) string { return job + "." + attr + ".percent" }

func NationalNullKey(job string) string { return job + ".national" }

func QuartilesKey(job string) string { return job + ".quartiles" }

// CorrelationKey names the matrix of one granularity (institution or state).
func CorrelationKey(job, granularity string) string { return job + "." + granularity }
