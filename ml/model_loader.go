package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"credit-risk/domain"

	"golang.org/x/text/unicode/norm"
)

// Parse decodes a JSON model artifact.
func Parse(payload []byte) (*Ensemble, error) {
	var mf ModelFile
	if err := json.Unmarshal(payload, &mf); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return NewEnsemble(mf)
}

// LoadModel reads the artifact at path and checks it against the form schema.
func LoadModel(path string) (*Ensemble, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	model, err := Parse(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := CheckSchema(model, domain.Schema); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return model, nil
}

// CheckSchema verifies the model expects exactly the given fields, in order,
// with the same categorical vocabularies.
func CheckSchema(model *Ensemble, schema []domain.FieldSpec) error {
	features := model.Features()
	if len(features) != len(schema) {
		return fmt.Errorf("%w: model has %d features, form has %d", domain.ErrSchemaMismatch, len(features), len(schema))
	}
	for i, spec := range schema {
		f := features[i]
		if f.Name != spec.Name {
			return fmt.Errorf("%w: feature %d is %q, want %q", domain.ErrSchemaMismatch, i, f.Name, spec.Name)
		}
		if f.Kind != spec.Kind {
			return fmt.Errorf("%w: %s is %s, want %s", domain.ErrSchemaMismatch, f.Name, f.Kind, spec.Kind)
		}
		if spec.Kind != domain.Categorical {
			continue
		}
		if !sameSet(f.Categories, spec.Labels.Models()) {
			return fmt.Errorf("%w: %s categories %v, want %v", domain.ErrSchemaMismatch, f.Name, f.Categories, spec.Labels.Models())
		}
	}
	return nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := make([]string, len(a))
	y := make([]string, len(b))
	for i := range a {
		x[i] = norm.NFC.String(a[i])
	}
	for i := range b {
		y[i] = norm.NFC.String(b[i])
	}
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
