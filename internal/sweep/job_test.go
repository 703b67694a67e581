package sweep_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/askiada/go-sweep/internal/sweep"
)

func TestExpand(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		models, files []string
		expected      []sweep.Job
	}{
		"default": {
			models:   sweep.DefaultModels,
			files:    sweep.DefaultFiles,
			expected: []sweep.Job{{Model: "qwen-qwq-32b", InputFile: "reordered_factor_3_complexity4.csv"}},
		},
		"model major": {
			models: []string{"m1", "m2"},
			files:  []string{"f1", "f2"},
			expected: []sweep.Job{
				{Model: "m1", InputFile: "f1", Index: 0},
				{Model: "m1", InputFile: "f2", Index: 1},
				{Model: "m2", InputFile: "f1", Index: 2},
				{Model: "m2", InputFile: "f2", Index: 3},
			},
		},
		"duplicates kept": {
			models: []string{"m", "m"},
			files:  []string{"f"},
			expected: []sweep.Job{
				{Model: "m", InputFile: "f", Index: 0},
				{Model: "m", InputFile: "f", Index: 1},
			},
		},
		"no model": {
			files:    []string{"f1"},
			expected: []sweep.Job{},
		},
		"no file": {
			models:   []string{"m1", "m2"},
			expected: []sweep.Job{},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, sweep.Expand(tc.models, tc.files))
		})
	}
}

func TestJobString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "#3 m/data.csv", sweep.Job{Model: "m", InputFile: "data.csv", Index: 3}.String())
}
