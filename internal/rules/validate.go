package rules

import (
	"errors"
	"fmt"
	"regexp"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/voyagen/streamplus/internal/models"
)

// ValidationError describes a malformed rule. Surfaced synchronously at
// save or execute time; a rule that fails validation never starts.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid rule: %s: %s", e.Field, e.Reason)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateAutoAssignRule checks struct constraints, the regex pattern,
// and the predicate operators.
func ValidateAutoAssignRule(rule *models.AutoAssignRule) error {
	if err := validate.Struct(rule); err != nil {
		return &ValidationError{Field: firstFailedField(err), Reason: err.Error()}
	}
	if rule.RegexPattern != "" {
		if _, err := regexp.Compile("(?i)" + rule.RegexPattern); err != nil {
			return &ValidationError{Field: "regex_pattern", Reason: err.Error()}
		}
	}
	if rule.VideoBitrateOperator != "" && !slices.Contains(allOperators, rule.VideoBitrateOperator) {
		return &ValidationError{Field: "video_bitrate_operator", Reason: "unknown operator " + rule.VideoBitrateOperator}
	}
	if rule.ResolutionOperator != "" && !slices.Contains(allOperators, rule.ResolutionOperator) {
		return &ValidationError{Field: "video_resolution_operator", Reason: "unknown operator " + rule.ResolutionOperator}
	}
	return nil
}

// ValidateSortingRule checks struct constraints, scope exclusivity at the
// value level, and every condition against the capability table.
func ValidateSortingRule(rule *models.SortingRule) error {
	if err := validate.Struct(rule); err != nil {
		return &ValidationError{Field: firstFailedField(err), Reason: err.Error()}
	}
	for i, cond := range rule.Conditions {
		if err := ValidateCondition(cond); err != nil {
			return &ValidationError{Field: fmt.Sprintf("conditions[%d]", i), Reason: err.Error()}
		}
	}
	return nil
}

// ValidateCondition checks a condition against its type's declared
// capabilities: operator presence, operator set, and a non-empty value.
func ValidateCondition(cond models.Condition) error {
	spec, ok := conditionSpecs[cond.Type]
	if !ok {
		return fmt.Errorf("unknown condition type %q", cond.Type)
	}
	if !spec.hasOperator && cond.Operator != "" {
		return fmt.Errorf("condition type %q takes no operator", cond.Type)
	}
	if spec.hasOperator {
		if cond.Operator == "" {
			return fmt.Errorf("condition type %q requires an operator", cond.Type)
		}
		if !slices.Contains(spec.operators, cond.Operator) {
			return fmt.Errorf("operator %q not supported for condition type %q", cond.Operator, cond.Type)
		}
	}
	if len(valueList(cond.Value)) == 0 {
		return fmt.Errorf("condition type %q requires a value", cond.Type)
	}
	if spec.numeric {
		if _, ok := toFloat(cond.Value); !ok {
			return fmt.Errorf("condition type %q requires a numeric value", cond.Type)
		}
	}
	if cond.Points < models.MinConditionPoints || cond.Points > models.MaxConditionPoints {
		return fmt.Errorf("points must be between %d and %d", models.MinConditionPoints, models.MaxConditionPoints)
	}
	return nil
}

func firstFailedField(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field()
	}
	return "rule"
}
