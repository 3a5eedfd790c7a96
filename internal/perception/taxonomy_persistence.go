package perception

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"kairo/internal/logging"
)

// ruleFile is the on-disk YAML layout of a rule table.
type ruleFile struct {
	// IncludeDefaults layers the file on top of the built-in table.
	// File patterns replace built-in patterns with the same ID.
	IncludeDefaults bool `yaml:"include_defaults"`
	RuleTable       `yaml:",inline"`
}

// LoadRuleTable reads, validates and compiles a YAML rule table.
func LoadRuleTable(path string) (*RuleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule table: %w", err)
	}
	return ParseRuleTable(data)
}

// ParseRuleTable parses YAML rule table content.
func ParseRuleTable(data []byte) (*RuleTable, error) {
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse rule table: %w", err)
	}

	table := &rf.RuleTable
	if rf.IncludeDefaults {
		table = mergeTables(DefaultRuleTable(), table)
	}
	if err := table.Compile(); err != nil {
		return nil, fmt.Errorf("invalid rule table: %w", err)
	}
	if len(table.Patterns) == 0 {
		return nil, fmt.Errorf("invalid rule table: no patterns")
	}

	logging.PerceptionDebug("Parsed rule table: %d patterns, %d disambiguations, %d combinations",
		len(table.Patterns), len(table.Disambiguations), len(table.Combinations))
	return table, nil
}

// SaveRuleTable writes the table as YAML. Each pattern's weight is its
// declared weight; a tuned weight that differs is written as tuned_weight
// so a reload restores both.
func SaveRuleTable(path string, t *RuleTable) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create rule directory: %w", err)
	}

	out := t.Clone()
	for i := range out.Patterns {
		r := &out.Patterns[i]
		if r.BaseWeight != 0 && r.BaseWeight != r.Weight {
			r.Weight, r.TunedWeight = r.BaseWeight, r.Weight
		}
	}

	data, err := yaml.Marshal(ruleFile{RuleTable: *out})
	if err != nil {
		return fmt.Errorf("failed to marshal rule table: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write rule table: %w", err)
	}
	return nil
}

// mergeTables overlays extra on base. Patterns with a matching ID replace
// the base pattern in place; everything else is appended.
func mergeTables(base, extra *RuleTable) *RuleTable {
	out := base.Clone()

	index := make(map[string]int, len(out.Patterns))
	for i, p := range out.Patterns {
		index[p.ID] = i
	}
	for _, p := range extra.Patterns {
		p.BaseWeight = 0
		if i, ok := index[p.ID]; ok {
			out.Patterns[i] = p
			continue
		}
		index[p.ID] = len(out.Patterns)
		out.Patterns = append(out.Patterns, p)
	}

	out.Disambiguations = append(out.Disambiguations, extra.Disambiguations...)
	out.Combinations = append(out.Combinations, extra.Combinations...)
	out.ComprehensiveMarkers = append(out.ComprehensiveMarkers, extra.ComprehensiveMarkers...)
	return out
}
