package rules

import (
	"regexp"
	"slices"

	"github.com/voyagen/streamplus/internal/models"
)

// MatchResult classifies candidate streams against an auto-assign rule.
// A stream appears in at most one bucket. NoStats streams are never
// FullyMatching: a stream missing the stats a predicate needs cannot be
// claimed to satisfy the rule.
type MatchResult struct {
	// FullyMatching streams passed the regex, the account filter, and
	// every scalar predicate (or were force-included).
	FullyMatching []models.Stream `json:"fully_matching"`
	// RegexOnly streams passed the regex and account filter but failed
	// at least one scalar predicate.
	RegexOnly []models.Stream `json:"regex_matching"`
	// NoStats streams passed the regex and account filter but lack the
	// stats needed to evaluate a stats-dependent predicate.
	NoStats []models.Stream `json:"no_stats"`
}

// MatchCount returns the number of fully matching streams.
func (r *MatchResult) MatchCount() int {
	return len(r.FullyMatching)
}

// Match applies an auto-assign rule to candidate streams.
//
// Streams not matching the regex pre-filter are dropped entirely and never
// reported. Manual overrides apply last: excluded ids are removed from every
// bucket, included ids are force-added to FullyMatching regardless of prior
// classification. Exclusion wins when an id appears in both lists.
//
// Classification is independent of candidate iteration order; buckets are
// sorted by ascending stream id for preview stability.
func Match(rule *models.AutoAssignRule, candidates []models.Stream) (*MatchResult, error) {
	var nameRe *regexp.Regexp
	if rule.RegexPattern != "" {
		var err error
		nameRe, err = regexp.Compile("(?i)" + rule.RegexPattern)
		if err != nil {
			return nil, &ValidationError{Field: "regex_pattern", Reason: err.Error()}
		}
	}

	excluded := idSet(rule.ForceExcludeStreamIDs)
	included := idSet(rule.ForceIncludeStreamIDs)

	result := &MatchResult{}
	for _, stream := range candidates {
		if excluded[stream.ID] {
			continue
		}
		if included[stream.ID] {
			result.FullyMatching = append(result.FullyMatching, stream)
			continue
		}
		if nameRe != nil && !nameRe.MatchString(stream.Name) {
			continue
		}
		if len(rule.M3UAccountIDs) > 0 && !slices.Contains(rule.M3UAccountIDs, stream.M3UAccountID) {
			continue
		}
		switch classifyPredicates(rule, &stream) {
		case OutcomeMatch:
			result.FullyMatching = append(result.FullyMatching, stream)
		case NoStats:
			result.NoStats = append(result.NoStats, stream)
		case NoMatch:
			result.RegexOnly = append(result.RegexOnly, stream)
		}
	}

	sortByID(result.FullyMatching)
	sortByID(result.RegexOnly)
	sortByID(result.NoStats)
	return result, nil
}

// Prefilter narrows candidates to the streams the rule will actually
// classify: force-excluded ids dropped, force-included ids kept, everything
// else put through the regex and account filters. Used to pick which
// streams are worth probing before the full Match pass.
func Prefilter(rule *models.AutoAssignRule, candidates []models.Stream) ([]models.Stream, error) {
	var nameRe *regexp.Regexp
	if rule.RegexPattern != "" {
		var err error
		nameRe, err = regexp.Compile("(?i)" + rule.RegexPattern)
		if err != nil {
			return nil, &ValidationError{Field: "regex_pattern", Reason: err.Error()}
		}
	}

	excluded := idSet(rule.ForceExcludeStreamIDs)
	included := idSet(rule.ForceIncludeStreamIDs)

	var out []models.Stream
	for _, stream := range candidates {
		if excluded[stream.ID] {
			continue
		}
		if !included[stream.ID] {
			if nameRe != nil && !nameRe.MatchString(stream.Name) {
				continue
			}
			if len(rule.M3UAccountIDs) > 0 && !slices.Contains(rule.M3UAccountIDs, stream.M3UAccountID) {
				continue
			}
		}
		out = append(out, stream)
	}
	return out, nil
}

// classifyPredicates ANDs the rule's scalar predicates over one stream.
// A definite predicate failure dominates a missing stat: the stream is
// reported as failing, not as untested.
func classifyPredicates(rule *models.AutoAssignRule, stream *models.Stream) Outcome {
	sawNoStats := false

	check := func(o Outcome) Outcome {
		switch o {
		case NoMatch:
			return NoMatch
		case NoStats:
			sawNoStats = true
		}
		return OutcomeMatch
	}

	if rule.VideoBitrateOperator != "" && rule.VideoBitrateValue != nil {
		cond := models.Condition{Type: models.ConditionVideoBitrate, Operator: rule.VideoBitrateOperator, Value: *rule.VideoBitrateValue}
		if check(Evaluate(stream, cond)) == NoMatch {
			return NoMatch
		}
	}
	if len(rule.VideoCodecs) > 0 {
		cond := models.Condition{Type: models.ConditionVideoCodec, Operator: models.OpEQ, Value: toAny(rule.VideoCodecs)}
		if check(Evaluate(stream, cond)) == NoMatch {
			return NoMatch
		}
	}
	if rule.ResolutionOperator != "" && (rule.ResolutionWidth != nil || rule.ResolutionHeight != nil) {
		if o := evalResolutionBounds(rule, stream); check(o) == NoMatch {
			return NoMatch
		}
	}
	if rule.VideoFPS != nil {
		cond := models.Condition{Type: models.ConditionVideoFPS, Operator: models.OpEQ, Value: *rule.VideoFPS}
		if check(Evaluate(stream, cond)) == NoMatch {
			return NoMatch
		}
	}
	if len(rule.AudioCodecs) > 0 {
		cond := models.Condition{Type: models.ConditionAudioCodec, Operator: models.OpEQ, Value: toAny(rule.AudioCodecs)}
		if check(Evaluate(stream, cond)) == NoMatch {
			return NoMatch
		}
	}

	if sawNoStats {
		return NoStats
	}
	return OutcomeMatch
}

// evalResolutionBounds applies the rule's operator to raw width and/or
// height. Both bounds must hold when both are set.
func evalResolutionBounds(rule *models.AutoAssignRule, stream *models.Stream) Outcome {
	if stream.Stats == nil || stream.Stats.Resolution == "" {
		return NoStats
	}
	w, h, ok := ParseResolution(stream.Stats.Resolution)
	if !ok {
		return NoStats
	}
	if rule.ResolutionWidth != nil && !compareInt(w, rule.ResolutionOperator, *rule.ResolutionWidth) {
		return NoMatch
	}
	if rule.ResolutionHeight != nil && !compareInt(h, rule.ResolutionOperator, *rule.ResolutionHeight) {
		return NoMatch
	}
	return OutcomeMatch
}

func idSet(ids []int64) map[int64]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func sortByID(streams []models.Stream) {
	slices.SortFunc(streams, func(a, b models.Stream) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
