package modelfile

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/examscore/internal/domain/features"
	"github.com/okian/examscore/internal/domain/scoring"
)

// Model is a validated, ready-to-evaluate model. It is immutable after
// construction and safe for concurrent use.
type Model struct {
	info  scoring.Info
	names []string
	types []string
	eval  evaluator
}

var (
	_ scoring.Model     = (*Model)(nil)
	_ scoring.Describer = (*Model)(nil)
	_ scoring.Typed     = (*Model)(nil)
)

type evaluator interface {
	evaluate(values []features.Value) float64
}

// FeatureNames returns the feature order the model was trained on.
func (m *Model) FeatureNames() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// FeatureTypes returns the declared type of each feature, aligned with
// FeatureNames.
func (m *Model) FeatureTypes() []string {
	out := make([]string, len(m.types))
	copy(out, m.types)
	return out
}

// Describe returns the model identity.
func (m *Model) Describe() scoring.Info { return m.info }

// Predict evaluates the model. The record must list exactly the model's
// features in the model's order with compatible kinds.
func (m *Model) Predict(ctx context.Context, rec features.Record) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if rec.Len() != len(m.names) {
		return 0, badRecord("got %d features, model expects %d", rec.Len(), len(m.names))
	}
	values := make([]features.Value, len(m.names))
	for i, name := range m.names {
		f := rec.At(i)
		if f.Name != name {
			return 0, badRecord("position %d holds %q, model expects %q", i, f.Name, name)
		}
		if !f.Value.Kind.Satisfies(m.types[i]) {
			return 0, badRecord("feature %q is %s, model declares %s", name, f.Value.Kind, m.types[i])
		}
		values[i] = f.Value
	}
	return m.eval.evaluate(values), nil
}

type node struct {
	leaf       bool
	value      float64
	feature    int
	threshold  float64
	byCategory bool
	categories map[string]struct{}
	left       int
	right      int
}

type tree []node

func (t tree) evaluate(values []features.Value) float64 {
	i := 0
	for {
		n := t[i]
		if n.leaf {
			return n.value
		}
		if n.goesLeft(values[n.feature]) {
			i = n.left
		} else {
			i = n.right
		}
	}
}

func (n node) goesLeft(v features.Value) bool {
	if n.byCategory {
		_, ok := n.categories[v.Str]
		return ok
	}
	// NaN compares false and follows the right branch.
	return v.Num <= n.threshold
}

type ensemble struct {
	base  float64
	trees []tree
}

func (e ensemble) evaluate(values []features.Value) float64 {
	sum := e.base
	for _, t := range e.trees {
		sum += t.evaluate(values)
	}
	return sum
}

type linear struct {
	intercept float64
	weights   []float64            // by feature index, numeric features only
	levels    []map[string]float64 // by feature index, categorical features only
}

func (l linear) evaluate(values []features.Value) float64 {
	sum := l.intercept
	for i, v := range values {
		if l.levels[i] != nil {
			sum += l.levels[i][v.Str]
			continue
		}
		sum += l.weights[i] * v.Num
	}
	return sum
}

// Compile validates f and builds an evaluable model.
func Compile(f *File) (*Model, error) {
	if f == nil {
		return nil, invalid("empty document")
	}
	if f.Name == "" {
		return nil, invalid("name is required")
	}
	if len(f.Features) == 0 {
		return nil, invalid("at least one feature is required")
	}

	index := make(map[string]int, len(f.Features))
	names := make([]string, len(f.Features))
	types := make([]string, len(f.Features))
	for i, fs := range f.Features {
		if fs.Name == "" {
			return nil, invalid("feature %d has no name", i)
		}
		if _, dup := index[fs.Name]; dup {
			return nil, invalid("feature %q declared twice", fs.Name)
		}
		switch fs.Type {
		case TypeNumeric, TypeCategorical, TypeString:
		default:
			return nil, invalid("feature %q has unknown type %q", fs.Name, fs.Type)
		}
		index[fs.Name] = i
		names[i] = fs.Name
		types[i] = fs.Type
	}

	var (
		eval evaluator
		err  error
	)
	switch f.Kind {
	case KindGBDT:
		eval, err = compileEnsemble(f, index, types)
	case KindLinear:
		eval, err = compileLinear(f, index, types)
	default:
		return nil, invalid("unknown kind %q", f.Kind)
	}
	if err != nil {
		return nil, err
	}

	return &Model{
		info:  scoring.Info{Name: f.Name, Version: f.Version, Kind: f.Kind},
		names: names,
		types: types,
		eval:  eval,
	}, nil
}

func compileEnsemble(f *File, index map[string]int, types []string) (evaluator, error) {
	if len(f.Trees) == 0 {
		return nil, invalid("gbdt model has no trees")
	}
	if !finite(f.BaseScore) {
		return nil, invalid("base_score is not finite")
	}
	trees := make([]tree, len(f.Trees))
	for ti, ts := range f.Trees {
		t, err := compileTree(ts, index, types)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", ti, err)
		}
		trees[ti] = t
	}
	return ensemble{base: f.BaseScore, trees: trees}, nil
}

func compileTree(ts TreeSpec, index map[string]int, types []string) (tree, error) {
	if len(ts.Nodes) == 0 {
		return nil, invalid("tree has no nodes")
	}
	t := make(tree, len(ts.Nodes))
	for i, ns := range ts.Nodes {
		if ns.Leaf != nil {
			if ns.Feature != "" {
				return nil, invalid("node %d is both leaf and split", i)
			}
			if !finite(*ns.Leaf) {
				return nil, invalid("node %d leaf is not finite", i)
			}
			t[i] = node{leaf: true, value: *ns.Leaf}
			continue
		}

		fi, ok := index[ns.Feature]
		if !ok {
			return nil, invalid("node %d splits on undeclared feature %q", i, ns.Feature)
		}
		// Children must come after their parent so every path terminates.
		if ns.Left <= i || ns.Right <= i || ns.Left >= len(ts.Nodes) || ns.Right >= len(ts.Nodes) {
			return nil, invalid("node %d has child indexes out of order (%d, %d)", i, ns.Left, ns.Right)
		}
		n := node{feature: fi, left: ns.Left, right: ns.Right}

		switch {
		case ns.Threshold != nil && len(ns.Categories) == 0:
			if types[fi] != TypeNumeric {
				return nil, invalid("node %d threshold split on %s feature %q", i, types[fi], ns.Feature)
			}
			if !finite(*ns.Threshold) {
				return nil, invalid("node %d threshold is not finite", i)
			}
			n.threshold = *ns.Threshold
		case ns.Threshold == nil && len(ns.Categories) > 0:
			if types[fi] == TypeNumeric {
				return nil, invalid("node %d category split on numeric feature %q", i, ns.Feature)
			}
			n.byCategory = true
			n.categories = make(map[string]struct{}, len(ns.Categories))
			for _, c := range ns.Categories {
				n.categories[c] = struct{}{}
			}
		default:
			return nil, invalid("node %d needs exactly one of threshold or categories", i)
		}
		t[i] = n
	}
	return t, nil
}

func compileLinear(f *File, index map[string]int, types []string) (evaluator, error) {
	if !finite(f.Intercept) {
		return nil, invalid("intercept is not finite")
	}
	l := linear{
		intercept: f.Intercept,
		weights:   make([]float64, len(types)),
		levels:    make([]map[string]float64, len(types)),
	}
	for name, w := range f.Coefficients {
		fi, ok := index[name]
		if !ok {
			return nil, invalid("coefficient for undeclared feature %q", name)
		}
		if types[fi] != TypeNumeric {
			return nil, invalid("coefficient for non-numeric feature %q", name)
		}
		if !finite(w) {
			return nil, invalid("coefficient for %q is not finite", name)
		}
		l.weights[fi] = w
	}
	for name, lv := range f.Levels {
		fi, ok := index[name]
		if !ok {
			return nil, invalid("levels for undeclared feature %q", name)
		}
		if types[fi] == TypeNumeric {
			return nil, invalid("levels for numeric feature %q", name)
		}
		m := make(map[string]float64, len(lv))
		for level, w := range lv {
			if !finite(w) {
				return nil, invalid("level %q of %q is not finite", level, name)
			}
			m[level] = w
		}
		l.levels[fi] = m
	}
	// Non-numeric features without levels contribute nothing.
	for i, typ := range types {
		if typ != TypeNumeric && l.levels[i] == nil {
			l.levels[i] = map[string]float64{}
		}
	}
	return l, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
