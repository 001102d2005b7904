package dataset

import (
	"fmt"
	"strings"
)

// Schema is the resolved feature/response structure of a run. It is derived
// once, at first contact with any shard, and cached for the rest of the run.
type Schema struct {
	Response string
	Features []string
}

// Dim is the parameter dimension: one weight per feature plus an intercept.
func (s Schema) Dim() int { return len(s.Features) + 1 }

// ParseFormula splits a declarative model formula like "y ~ x1 + x2" into
// its response and feature terms. The single term "." selects every column
// except the response at resolution time.
func ParseFormula(formula string) (string, []string, error) {
	parts := strings.Split(formula, "~")
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("invalid formula %q: expected form \"response ~ term + term\"", formula)
	}

	response := strings.TrimSpace(parts[0])
	if response == "" {
		return "", nil, fmt.Errorf("invalid formula %q: empty response", formula)
	}

	terms := []string{}
	for _, term := range strings.Split(parts[1], "+") {
		term = strings.TrimSpace(term)
		if term == "" {
			return "", nil, fmt.Errorf("invalid formula %q: empty term", formula)
		}
		terms = append(terms, term)
	}

	return response, terms, nil
}

// Resolve derives the schema from a formula and the first shard's columns.
func Resolve(formula string, ds *Dataset) (Schema, error) {
	response, terms, err := ParseFormula(formula)
	if err != nil {
		return Schema{}, err
	}

	if ds.Column(response) < 0 {
		return Schema{}, fmt.Errorf("response column %q not present in data", response)
	}

	features := []string{}
	if len(terms) == 1 && terms[0] == "." {
		for _, column := range ds.Columns {
			if column != response {
				features = append(features, column)
			}
		}
	} else {
		for _, term := range terms {
			if ds.Column(term) < 0 {
				return Schema{}, fmt.Errorf("feature column %q not present in data", term)
			}
			features = append(features, term)
		}
	}

	if len(features) == 0 {
		return Schema{}, fmt.Errorf("formula %q resolves to no features", formula)
	}

	return Schema{Response: response, Features: features}, nil
}

// Validate checks that a later shard carries every column the schema needs.
func (s Schema) Validate(ds *Dataset) error {
	if ds.Column(s.Response) < 0 {
		return fmt.Errorf("response column %q not present in data", s.Response)
	}
	for _, feature := range s.Features {
		if ds.Column(feature) < 0 {
			return fmt.Errorf("feature column %q not present in data", feature)
		}
	}
	return nil
}
