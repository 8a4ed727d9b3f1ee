// Package capability defines the model capability ranking used to decide
// whether a backend's max-model can serve a requested model.
package capability

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Table maps a model identifier to its capability rank. Larger ranks
// subsume smaller ones: a backend advertising max-model M can serve any
// request whose model has rank <= rank(M).
type Table struct {
	ranks      map[string]int
	smallest   string
	smallestRk int
}

// Default is the reference capability table from the specification.
func Default() *Table {
	t, err := newTable(map[string]int{
		"7b":  1,
		"13b": 2,
		"34b": 3,
		"70b": 4,
	})
	if err != nil {
		// the built-in table is a compile-time constant; it cannot be empty.
		panic(err)
	}
	return t
}

// yamlFile is the on-disk shape of an optional capability override file.
type yamlFile struct {
	Ranks map[string]int `yaml:"ranks"`
}

// LoadFile reads a YAML capability table from path. On any read or parse
// failure, or if the resulting table is empty, it logs nothing itself
// (the caller decides how to report the fallback) and returns the
// built-in Default table instead — capability-table loading never blocks
// startup.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), err
	}
	var doc yamlFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Default(), err
	}
	t, err := newTable(doc.Ranks)
	if err != nil {
		return Default(), err
	}
	return t, nil
}

func newTable(ranks map[string]int) (*Table, error) {
	if len(ranks) == 0 {
		return nil, fmt.Errorf("capability: empty rank table")
	}
	names := make([]string, 0, len(ranks))
	for name := range ranks {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return ranks[names[i]] < ranks[names[j]] })
	smallest := names[0]

	cp := make(map[string]int, len(ranks))
	for k, v := range ranks {
		cp[k] = v
	}
	return &Table{ranks: cp, smallest: smallest, smallestRk: ranks[smallest]}, nil
}

// Rank returns the rank of model. Unknown identifiers resolve to the
// rank of the smallest known model, per the specification's invariant.
func (t *Table) Rank(model string) int {
	if r, ok := t.ranks[model]; ok {
		return r
	}
	return t.smallestRk
}

// Smallest returns the identifier with the lowest rank in the table.
func (t *Table) Smallest() string {
	return t.smallest
}

// ByRank returns the identifier whose rank equals rank, or "" if none.
func (t *Table) ByRank(rank int) string {
	for name, r := range t.ranks {
		if r == rank {
			return name
		}
	}
	return ""
}

// Covers reports whether a backend whose max-model is maxModel can serve
// a request for requestedModel.
func (t *Table) Covers(maxModel, requestedModel string) bool {
	return t.Rank(maxModel) >= t.Rank(requestedModel)
}
