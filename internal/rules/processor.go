// internal/rules/processor.go

package rules

import (
	"fmt"

	"github.com/gobwas/glob"
	"github.com/vizlog/vizlog/internal/config"
)

// Numeric ordering of record levels for min_level comparisons.
var levelOrder = map[string]int{
	"debug": 1,
	"info":  2,
	"warn":  3,
	"error": 4,
}

// compiledCondition holds pre-compiled patterns for efficient matching
type compiledCondition struct {
	loggerNameGlobs []glob.Glob
	tagGlobs        []glob.Glob
	minLevel        int // 0 means no level condition
}

// compiledRule holds a rule with its pre-compiled condition
type compiledRule struct {
	rule      config.RoutingRule
	condition compiledCondition
}

// Processor evaluates routing rules against received records.
type Processor struct {
	compiledRules []compiledRule
}

// Result holds the outcome of rule processing for one record.
type Result struct {
	// ShouldStore reports whether the record is stored at all. It is
	// decided by the first matching rule without continue; with no rules
	// configured every record is stored.
	ShouldStore bool

	// AccumulatedAddData combines add_record_data specs from all matched
	// rules, last write wins for a name.
	AccumulatedAddData []config.AddRecordDataSpec

	// TargetDestinations comes from the deciding rule. Nil means all
	// enabled destinations.
	TargetDestinations []string
}

// NewProcessor creates a new Processor with pre-compiled patterns.
func NewProcessor(cfg *config.Config) (*Processor, error) {
	compiledRules := make([]compiledRule, 0, len(cfg.RoutingRules))
	for i, rule := range cfg.RoutingRules {
		compiled := compiledRule{rule: rule}

		if len(rule.Condition.LoggerNames) > 0 {
			compiled.condition.loggerNameGlobs = make([]glob.Glob, 0, len(rule.Condition.LoggerNames))
			for _, pattern := range rule.Condition.LoggerNames {
				g, err := glob.Compile(pattern)
				if err != nil {
					return nil, fmt.Errorf("rule %d: invalid logger name glob pattern '%s': %w", i, pattern, err)
				}
				compiled.condition.loggerNameGlobs = append(compiled.condition.loggerNameGlobs, g)
			}
		}

		if len(rule.Condition.Tags) > 0 {
			compiled.condition.tagGlobs = make([]glob.Glob, 0, len(rule.Condition.Tags))
			for _, pattern := range rule.Condition.Tags {
				g, err := glob.Compile(pattern)
				if err != nil {
					return nil, fmt.Errorf("rule %d: invalid tag glob pattern '%s': %w", i, pattern, err)
				}
				compiled.condition.tagGlobs = append(compiled.condition.tagGlobs, g)
			}
		}

		if rule.Condition.MinLevel != "" {
			level, ok := levelOrder[rule.Condition.MinLevel]
			if !ok {
				return nil, fmt.Errorf("rule %d: invalid min_level '%s'", i, rule.Condition.MinLevel)
			}
			compiled.condition.minLevel = level
		}

		compiledRules = append(compiledRules, compiled)
	}

	return &Processor{compiledRules: compiledRules}, nil
}

// Process evaluates the configured rules against one received record.
// Rules run top to bottom; a matching rule with continue only accumulates
// add data, the first matching rule without continue decides.
func (p *Processor) Process(loggerName, level string, tags []string) Result {
	result := Result{}

	// Without rules everything is stored everywhere.
	if len(p.compiledRules) == 0 {
		result.ShouldStore = true
		return result
	}

	accumulatedDataMap := make(map[string]config.AddRecordDataSpec)
	var accumulatedOrder []string

	for _, compiled := range p.compiledRules {
		currentRule := compiled.rule

		if !matchCondition(compiled.condition, loggerName, level, tags) {
			continue
		}

		for _, spec := range currentRule.AddRecordData {
			if _, exists := accumulatedDataMap[spec.Name]; !exists {
				accumulatedOrder = append(accumulatedOrder, spec.Name)
			}
			accumulatedDataMap[spec.Name] = spec
		}

		if !currentRule.Continue {
			// This is the deciding rule.
			result.ShouldStore = currentRule.Enabled
			if len(currentRule.LogDestinations) > 0 {
				result.TargetDestinations = currentRule.LogDestinations
			}
			break
		}
		// For continue rules, just keep accumulating values
	}

	if len(accumulatedOrder) > 0 {
		result.AccumulatedAddData = make([]config.AddRecordDataSpec, 0, len(accumulatedOrder))
		for _, name := range accumulatedOrder {
			result.AccumulatedAddData = append(result.AccumulatedAddData, accumulatedDataMap[name])
		}
	}

	return result
}

// matchCondition checks whether a record matches the pre-compiled condition.
// An empty condition matches everything.
func matchCondition(cond compiledCondition, loggerName, level string, tags []string) bool {
	if len(cond.loggerNameGlobs) > 0 {
		match := false
		for _, g := range cond.loggerNameGlobs {
			if g.Match(loggerName) {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}

	if cond.minLevel > 0 {
		recordLevel, ok := levelOrder[level]
		if !ok || recordLevel < cond.minLevel {
			return false
		}
	}

	if len(cond.tagGlobs) > 0 {
		match := false
	tagLoop:
		for _, g := range cond.tagGlobs {
			for _, tag := range tags {
				if g.Match(tag) {
					match = true
					break tagLoop
				}
			}
		}
		if !match {
			return false
		}
	}

	return true
}
