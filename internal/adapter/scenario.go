package adapter

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"

	"gopkg.in/yaml.v3"

	"assay.dev/pkg/assay/internal/assertion"
	m "assay.dev/pkg/assay/internal/model"
	"assay.dev/pkg/assay/internal/observation"
	"assay.dev/pkg/assay/internal/testcase"
	"assay.dev/pkg/assay/internal/trace"
)

// BaselineRun is the run key of the unmodified program.
const BaselineRun = "baseline"

var errInvalidScenario = errors.New("invalid scenario")

// Scenario is a suite of test cases with recorded runs per variant.
type Scenario struct {
	Faults []m.Fault    `yaml:"faults"`
	Tests  []TestRecord `yaml:"tests"`
}

// TestRecord describes one test case and, for replay, its recorded runs
// keyed by BaselineRun or fault id.
type TestRecord struct {
	Name       string               `yaml:"name" json:"name"`
	Statements []StatementRecord    `yaml:"statements" json:"statements"`
	Runs       map[string]RunRecord `yaml:"runs,omitempty" json:"-"`
}

// StatementRecord is the serialized form of a testcase.Statement.
type StatementRecord struct {
	Code         string `yaml:"code" json:"code"`
	Type         string `yaml:"type,omitempty" json:"type,omitempty"`
	Uses         []int  `yaml:"uses,omitempty" json:"uses,omitempty"`
	ExpectsError bool   `yaml:"expects_error,omitempty" json:"expects_error,omitempty"`
}

// RunRecord is what one execution produced. The command executor expects
// the same shape as JSON on stdout.
type RunRecord struct {
	TimedOut     bool                `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Uncaught     *int                `yaml:"uncaught,omitempty" json:"uncaught,omitempty"`
	Exceptions   map[int]string      `yaml:"exceptions,omitempty" json:"exceptions,omitempty"`
	Touched      []m.FaultID         `yaml:"touched,omitempty" json:"touched,omitempty"`
	Observations []ObservationRecord `yaml:"observations,omitempty" json:"observations,omitempty"`
}

// ObservationRecord lists the facts captured for the variable defined at
// Variable after the statement at Position. Peers in Equals and Compare are
// keyed by the position that defines them.
type ObservationRecord struct {
	Position   int                    `yaml:"position" json:"position"`
	Variable   int                    `yaml:"variable" json:"variable"`
	Null       *bool                  `yaml:"null,omitempty" json:"null,omitempty"`
	Primitive  *ValueRecord           `yaml:"primitive,omitempty" json:"primitive,omitempty"`
	Inspectors map[string]ValueRecord `yaml:"inspectors,omitempty" json:"inspectors,omitempty"`
	Fields     map[string]ValueRecord `yaml:"fields,omitempty" json:"fields,omitempty"`
	Equals     map[int]bool           `yaml:"equals,omitempty" json:"equals,omitempty"`
	Compare    map[int]int            `yaml:"compare,omitempty" json:"compare,omitempty"`
}

// ValueRecord holds exactly one scalar.
type ValueRecord struct {
	Bool   *bool    `yaml:"bool,omitempty" json:"bool,omitempty"`
	Int    *int64   `yaml:"int,omitempty" json:"int,omitempty"`
	Uint   *uint64  `yaml:"uint,omitempty" json:"uint,omitempty"`
	Float  *float64 `yaml:"float,omitempty" json:"float,omitempty"`
	String *string  `yaml:"string,omitempty" json:"string,omitempty"`
}

// LoadScenario reads and validates a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("Failed to read scenario", "path", path, "error", err)
		return nil, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return s, nil
}

// ParseScenario decodes and validates a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidScenario, err)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

func (s *Scenario) validate() error {
	catalogue := NewCatalogue(s.Faults)
	names := map[string]struct{}{}

	for _, f := range s.Faults {
		if f.ID == "" {
			return fmt.Errorf("%w: fault without id", errInvalidScenario)
		}
	}

	for _, t := range s.Tests {
		if t.Name == "" {
			return fmt.Errorf("%w: test without name", errInvalidScenario)
		}

		if _, ok := names[t.Name]; ok {
			return fmt.Errorf("%w: duplicate test %q", errInvalidScenario, t.Name)
		}

		names[t.Name] = struct{}{}

		for i, st := range t.Statements {
			for _, use := range st.Uses {
				if use < 0 || use >= i {
					return fmt.Errorf("%w: %s statement %d uses %d", errInvalidScenario, t.Name, i, use)
				}
			}
		}

		tc := t.TestCase()

		for key, run := range t.Runs {
			if key != BaselineRun {
				if _, ok := catalogue.Fault(m.FaultID(key)); !ok {
					return fmt.Errorf("%w: %s has a run for unknown fault %q", errInvalidScenario, t.Name, key)
				}
			}

			if _, err := run.Result(tc); err != nil {
				return fmt.Errorf("%w: %s run %s: %w", errInvalidScenario, t.Name, key, err)
			}
		}
	}

	return nil
}

// Catalogue indexes the scenario's faults.
func (s *Scenario) Catalogue() *StaticCatalogue {
	return NewCatalogue(s.Faults)
}

// TestCases builds a fresh test case per record.
func (s *Scenario) TestCases() []*testcase.TestCase {
	out := make([]*testcase.TestCase, 0, len(s.Tests))
	for _, t := range s.Tests {
		out = append(out, t.TestCase())
	}

	return out
}

// NewTestRecord serializes the statements of tc.
func NewTestRecord(tc *testcase.TestCase) TestRecord {
	r := TestRecord{Name: tc.Name, Statements: make([]StatementRecord, 0, tc.Len())}
	for i := range tc.Len() {
		st := tc.Statement(i)
		r.Statements = append(r.Statements, StatementRecord{
			Code:         st.Code,
			Type:         st.ReturnType,
			Uses:         st.Uses,
			ExpectsError: st.ExpectsError,
		})
	}

	return r
}

// TestCase builds the test case described by the record.
func (r TestRecord) TestCase() *testcase.TestCase {
	statements := make([]testcase.Statement, 0, len(r.Statements))
	for _, st := range r.Statements {
		statements = append(statements, testcase.Statement{
			Code:         st.Code,
			ReturnType:   st.Type,
			Uses:         st.Uses,
			ExpectsError: st.ExpectsError,
		})
	}

	return testcase.New(r.Name, statements...)
}

// Result converts the record into an ExecutionResult for tc.
func (r RunRecord) Result(tc *testcase.TestCase) (ExecutionResult, error) {
	res := ExecutionResult{
		TimedOut:          r.TimedOut,
		ExceptionPosition: NoException,
		Exceptions:        maps.Clone(r.Exceptions),
		Touched:           m.SortFaultIDs(r.Touched),
	}

	if res.Exceptions == nil {
		res.Exceptions = map[int]string{}
	}

	if r.Uncaught != nil {
		res.HadUncaughtException = true
		res.ExceptionPosition = *r.Uncaught

		if _, ok := res.Exceptions[*r.Uncaught]; !ok {
			res.Exceptions[*r.Uncaught] = "uncaught exception"
		}
	}

	bb := trace.NewBundleBuilder()
	for _, o := range r.Observations {
		if err := o.record(tc, bb); err != nil {
			return ExecutionResult{}, err
		}
	}

	res.Traces = bb.Freeze()

	return res, nil
}

func (o ObservationRecord) record(tc *testcase.TestCase, sink observation.Sink) error {
	v, err := variable(tc, o.Variable)
	if err != nil {
		return err
	}

	if o.Null != nil {
		sink.Record(o.Position, v, observation.Null{IsNull: *o.Null})
	}

	if o.Primitive != nil {
		value, err := o.Primitive.Value()
		if err != nil {
			return err
		}

		sink.Record(o.Position, v, observation.Primitive{Value: value})
	}

	if len(o.Inspectors) > 0 {
		results, err := values(o.Inspectors)
		if err != nil {
			return err
		}

		sink.Record(o.Position, v, observation.NewInspector(results))
	}

	if len(o.Fields) > 0 {
		results, err := values(o.Fields)
		if err != nil {
			return err
		}

		sink.Record(o.Position, v, observation.NewField(results))
	}

	if len(o.Equals) > 0 || len(o.Compare) > 0 {
		equals := make(map[m.VarRef]bool, len(o.Equals))
		compare := make(map[m.VarRef]int, len(o.Compare))

		for pos, r := range o.Equals {
			peer, err := variable(tc, pos)
			if err != nil {
				return err
			}

			equals[peer] = r
		}

		for pos, r := range o.Compare {
			peer, err := variable(tc, pos)
			if err != nil {
				return err
			}

			compare[peer] = r
		}

		sink.Record(o.Position, v, observation.NewComparison(equals, compare))
	}

	return nil
}

func variable(tc *testcase.TestCase, position int) (m.VarRef, error) {
	v, ok := tc.Variable(position)
	if !ok {
		return m.VarRef{}, fmt.Errorf("%w: statement %d defines no value", assertion.ErrUnresolvedVariable, position)
	}

	return v, nil
}

func values(records map[string]ValueRecord) (map[string]m.Value, error) {
	out := make(map[string]m.Value, len(records))

	for name, r := range records {
		v, err := r.Value()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		out[name] = v
	}

	return out, nil
}

// NewValueRecord is the inverse of ValueRecord.Value.
func NewValueRecord(v m.Value) ValueRecord {
	switch v.Kind {
	case m.KindBool:
		return ValueRecord{Bool: &v.B}
	case m.KindInt:
		return ValueRecord{Int: &v.I}
	case m.KindUint:
		return ValueRecord{Uint: &v.U}
	case m.KindFloat:
		return ValueRecord{Float: &v.F}
	case m.KindString:
		return ValueRecord{String: &v.S}
	case m.KindInvalid:
	}

	return ValueRecord{}
}

// Value returns the single scalar held by r.
func (r ValueRecord) Value() (m.Value, error) {
	var (
		out m.Value
		set int
	)

	if r.Bool != nil {
		out, set = m.Bool(*r.Bool), set+1
	}

	if r.Int != nil {
		out, set = m.Int(*r.Int), set+1
	}

	if r.Uint != nil {
		out, set = m.Uint(*r.Uint), set+1
	}

	if r.Float != nil {
		out, set = m.Float(*r.Float), set+1
	}

	if r.String != nil {
		out, set = m.String(*r.String), set+1
	}

	if set != 1 {
		return m.Value{}, fmt.Errorf("%w: value needs exactly one of bool, int, uint, float, string", errInvalidScenario)
	}

	return out, nil
}
