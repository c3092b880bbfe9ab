// Package modelfile loads pretrained regression models from YAML files and
// evaluates them against assembled feature records.
//
// Two model kinds are supported:
//
//   - gbdt: an additive ensemble of regression trees. Each tree is a flat node
//     array; internal nodes split on a numeric threshold (value <= threshold
//     goes left) or on a category set (member goes left), leaves carry a value.
//     The prediction is base_score plus the sum of the reached leaves.
//   - linear: intercept plus per-feature coefficients for numeric features and
//     per-level weights for categorical features.
package modelfile

// Kinds of model files.
const (
	KindGBDT   = "gbdt"
	KindLinear = "linear"
)

// Feature types declared in a model file.
const (
	TypeNumeric     = "numeric"
	TypeCategorical = "categorical"
	TypeString      = "string"
)

// File is the on-disk model document.
type File struct {
	Name      string        `yaml:"name"`
	Version   string        `yaml:"version"`
	Kind      string        `yaml:"kind"`
	BaseScore float64       `yaml:"base_score"`
	Features  []FeatureSpec `yaml:"features"`

	// gbdt
	Trees []TreeSpec `yaml:"trees"`

	// linear
	Intercept    float64                       `yaml:"intercept"`
	Coefficients map[string]float64            `yaml:"coefficients"`
	Levels       map[string]map[string]float64 `yaml:"levels"`
}

// FeatureSpec declares one input feature.
type FeatureSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// TreeSpec is one regression tree; node 0 is the root.
type TreeSpec struct {
	Nodes []NodeSpec `yaml:"nodes"`
}

// NodeSpec is either a leaf (Leaf set) or a split (Feature set).
type NodeSpec struct {
	Feature    string   `yaml:"feature,omitempty"`
	Threshold  *float64 `yaml:"threshold,omitempty"`
	Categories []string `yaml:"categories,omitempty"`
	Left       int      `yaml:"left,omitempty"`
	Right      int      `yaml:"right,omitempty"`
	Leaf       *float64 `yaml:"leaf,omitempty"`
}
