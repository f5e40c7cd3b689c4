package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/voyagen/streamplus/internal/models"
)

// Outcome is the result of evaluating one condition against one stream.
type Outcome int

const (
	// NoMatch: the stream has the required stat and it fails the predicate.
	NoMatch Outcome = iota
	// OutcomeMatch: the predicate holds.
	OutcomeMatch
	// NoStats: the stream lacks the stats needed to evaluate the predicate.
	// Distinct from NoMatch so callers can report untested streams separately.
	NoStats
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatch:
		return "match"
	case NoStats:
		return "no_stats"
	default:
		return "no_match"
	}
}

// conditionSpec declares what a condition type supports. Checked at rule
// save time, not at evaluation time.
type conditionSpec struct {
	hasOperator bool
	operators   []string
	numeric     bool
}

var conditionSpecs = map[string]conditionSpec{
	models.ConditionM3USource:       {hasOperator: false},
	models.ConditionVideoBitrate:    {hasOperator: true, operators: allOperators, numeric: true},
	models.ConditionVideoResolution: {hasOperator: true, operators: allOperators},
	models.ConditionVideoCodec:      {hasOperator: true, operators: equalityOperators},
	models.ConditionAudioCodec:      {hasOperator: true, operators: equalityOperators},
	models.ConditionVideoFPS:        {hasOperator: true, operators: allOperators, numeric: true},
}

var (
	allOperators      = []string{models.OpGT, models.OpGE, models.OpLT, models.OpLE, models.OpEQ, models.OpNE}
	equalityOperators = []string{models.OpEQ, models.OpNE}
)

// Evaluate applies a single condition to a stream. Pure: no side effects,
// deterministic for a fixed stream and condition.
func Evaluate(stream *models.Stream, cond models.Condition) Outcome {
	switch cond.Type {
	case models.ConditionM3USource:
		return evalM3USource(stream, cond)
	case models.ConditionVideoBitrate:
		if stream.Stats == nil || stream.Stats.OutputBitrate == 0 {
			return NoStats
		}
		return evalNumeric(stream.Stats.OutputBitrate, cond)
	case models.ConditionVideoFPS:
		if stream.Stats == nil || stream.Stats.SourceFPS == 0 {
			return NoStats
		}
		return evalNumeric(stream.Stats.SourceFPS, cond)
	case models.ConditionVideoResolution:
		if stream.Stats == nil || stream.Stats.Resolution == "" {
			return NoStats
		}
		return evalResolution(stream.Stats.Resolution, cond)
	case models.ConditionVideoCodec:
		if stream.Stats == nil || stream.Stats.VideoCodec == "" {
			return NoStats
		}
		return evalCodec(stream.Stats.VideoCodec, cond)
	case models.ConditionAudioCodec:
		if stream.Stats == nil || stream.Stats.AudioCodec == "" {
			return NoStats
		}
		return evalCodec(stream.Stats.AudioCodec, cond)
	}
	return NoMatch
}

// evalM3USource compares the stream's source account id against the
// condition value (scalar or list, match-any). No operator: equality implied.
func evalM3USource(stream *models.Stream, cond models.Condition) Outcome {
	for _, v := range valueList(cond.Value) {
		if id, ok := toInt64(v); ok && id == stream.M3UAccountID {
			return OutcomeMatch
		}
	}
	return NoMatch
}

func evalNumeric(actual float64, cond models.Condition) Outcome {
	expected, ok := toFloat(cond.Value)
	if !ok {
		return NoMatch
	}
	if compareFloat(actual, cond.Operator, expected) {
		return OutcomeMatch
	}
	return NoMatch
}

// evalResolution compares a raw "WxH" stat against the condition value.
// Tier values ("1080p" etc.) compare by ordinal rank; numeric values compare
// for equality against the raw width or height.
func evalResolution(raw string, cond models.Condition) Outcome {
	width, height, ok := ParseResolution(raw)
	if !ok {
		return NoStats
	}

	for _, v := range valueList(cond.Value) {
		if s, isStr := v.(string); isStr {
			if wantRank, isTier := tierRank(s); isTier {
				if compareInt(tierRankForHeight(height), cond.Operator, wantRank) {
					return OutcomeMatch
				}
				continue
			}
		}
		if n, isNum := toFloat(v); isNum {
			matched := float64(width) == n || float64(height) == n
			if cond.Operator == models.OpNE {
				matched = !matched
			}
			if matched {
				return OutcomeMatch
			}
		}
	}
	return NoMatch
}

func evalCodec(actual string, cond models.Condition) Outcome {
	matched := false
	for _, v := range valueList(cond.Value) {
		if strings.EqualFold(actual, fmt.Sprintf("%v", v)) {
			matched = true
			break
		}
	}
	if cond.Operator == models.OpNE {
		matched = !matched
	}
	if matched {
		return OutcomeMatch
	}
	return NoMatch
}

var resolutionRe = regexp.MustCompile(`(\d+)x(\d+)`)

// ParseResolution extracts width and height from a "WxH" resolution string.
func ParseResolution(s string) (width, height int, ok bool) {
	m := resolutionRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	return w, h, true
}

// NormalizeResolution buckets a raw "WxH" string into a tier by height:
// >=2000 is 2160p, >=1000 is 1080p, >=700 is 720p, anything lower is SD.
func NormalizeResolution(s string) (string, bool) {
	_, h, ok := ParseResolution(s)
	if !ok {
		return "", false
	}
	return tierForRank(tierRankForHeight(h)), true
}

func tierRankForHeight(height int) int {
	switch {
	case height >= 2000:
		return 3
	case height >= 1000:
		return 2
	case height >= 700:
		return 1
	default:
		return 0
	}
}

func tierRank(s string) (int, bool) {
	switch strings.ToUpper(s) {
	case models.TierSD:
		return 0, true
	case strings.ToUpper(models.Tier720p):
		return 1, true
	case strings.ToUpper(models.Tier1080p):
		return 2, true
	case strings.ToUpper(models.Tier2160p):
		return 3, true
	}
	return 0, false
}

func tierForRank(rank int) string {
	switch rank {
	case 3:
		return models.Tier2160p
	case 2:
		return models.Tier1080p
	case 1:
		return models.Tier720p
	default:
		return models.TierSD
	}
}

func compareFloat(actual float64, op string, expected float64) bool {
	switch op {
	case models.OpGT:
		return actual > expected
	case models.OpGE:
		return actual >= expected
	case models.OpLT:
		return actual < expected
	case models.OpLE:
		return actual <= expected
	case models.OpEQ, "":
		return actual == expected
	case models.OpNE:
		return actual != expected
	}
	return false
}

func compareInt(actual int, op string, expected int) bool {
	return compareFloat(float64(actual), op, float64(expected))
}

// valueList flattens a condition value into a slice: scalars become a
// one-element list, []any is returned as-is.
func valueList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []int64:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out
	default:
		return []any{v}
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		return n, err == nil
	}
	return 0, false
}
