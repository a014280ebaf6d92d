package recommend

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"schoolinfra/domain/infra"
)

// NoActionText is the label produced when no rule fires
const NoActionText = "No immediate actions needed as all infrastructure indicators are adequate."

// Rule recommends an action when a facility's share of schools falls below Threshold
type Rule struct {
	Column         string  `yaml:"column"`
	Threshold      float64 `yaml:"threshold"`
	Recommendation string  `yaml:"recommendation"`
}

// DefaultRules are the built-in thresholds, evaluated in order
var DefaultRules = []Rule{
	{Column: infra.ColGirlsToilet, Threshold: 0.5, Recommendation: "Increase the number of functional girls' toilets."},
	{Column: infra.ColInternet, Threshold: 0.25, Recommendation: "Enhance internet connectivity in schools."},
	{Column: infra.ColHandwash, Threshold: 0.75, Recommendation: "Ensure handwash facilities are available in all schools."},
	{Column: infra.ColPlayground, Threshold: 0.6, Recommendation: "Increase the number of schools with playgrounds to encourage physical activity."},
	{Column: infra.ColLibrary, Threshold: 0.5, Recommendation: "Establish libraries or reading corners in more schools to promote a reading culture."},
	{Column: infra.ColIncinerator, Threshold: 0.3, Recommendation: "Install incinerators in schools to ensure safe waste disposal."},
	{Column: infra.ColFunctionalDW, Threshold: 0.8, Recommendation: "Ensure access to clean and functional drinking water in all schools."},
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads a YAML rules file; an empty path yields DefaultRules
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return DefaultRules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates a YAML rules document
func ParseRules(data []byte) ([]Rule, error) {
	var doc rulesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("rules file defines no rules")
	}
	if err := ValidateRules(doc.Rules); err != nil {
		return nil, err
	}
	return doc.Rules, nil
}

// ValidateRules checks each rule targets a known metric with a sane threshold
func ValidateRules(rules []Rule) error {
	for i, rule := range rules {
		if _, ok := infra.LookupMetric(rule.Column); !ok || rule.Column == infra.ColTotalSchools {
			return fmt.Errorf("rule %d: unknown facility column %q", i, rule.Column)
		}
		if rule.Threshold <= 0 || rule.Threshold > 1 {
			return fmt.Errorf("rule %d: threshold %v must be in (0, 1]", i, rule.Threshold)
		}
		if rule.Recommendation == "" {
			return fmt.Errorf("rule %d: recommendation text is required", i)
		}
	}
	return nil
}
