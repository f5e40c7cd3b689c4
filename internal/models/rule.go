package models

// Condition is one weighted predicate in a sorting rule.
// Value is a scalar or a list of scalars for multi-select condition types
// (codecs, m3u_source); list values match if any element matches.
type Condition struct {
	Type     string `json:"condition_type" validate:"required"`
	Operator string `json:"operator,omitempty"`
	Value    any    `json:"value" validate:"required"`
	Points   int    `json:"points" validate:"min=1,max=1000"`
}

// AutoAssignRule filters the full stream catalog and assigns matching
// streams to a single target channel. All predicate fields are optional
// and AND-combined; list-valued fields match any element.
type AutoAssignRule struct {
	ID                     int64  `json:"id,omitempty"`
	Name                   string `json:"name" validate:"required"`
	ChannelID              int64  `json:"channel_id" validate:"required"`
	Enabled                bool   `json:"enabled"`
	ReplaceExistingStreams bool   `json:"replace_existing_streams"`

	RegexPattern  string  `json:"regex_pattern,omitempty"`
	M3UAccountIDs []int64 `json:"m3u_account_ids,omitempty"`

	VideoBitrateOperator string   `json:"video_bitrate_operator,omitempty"`
	VideoBitrateValue    *float64 `json:"video_bitrate_value,omitempty"` // kbps
	VideoCodecs          []string `json:"video_codecs,omitempty"`
	ResolutionOperator   string   `json:"video_resolution_operator,omitempty"`
	ResolutionWidth      *int     `json:"video_resolution_width,omitempty"`
	ResolutionHeight     *int     `json:"video_resolution_height,omitempty"`
	VideoFPS             *float64 `json:"video_fps,omitempty"`
	AudioCodecs          []string `json:"audio_codecs,omitempty"`

	TestStreamsBeforeSorting bool `json:"test_streams_before_sorting"`
	ForceRetestOldStreams    bool `json:"force_retest_old_streams"`
	RetestDaysThreshold      int  `json:"retest_days_threshold"`

	// Manual overrides, applied after predicate evaluation.
	// Exclusion always wins over inclusion.
	ForceIncludeStreamIDs []int64 `json:"force_include_stream_ids,omitempty"`
	ForceExcludeStreamIDs []int64 `json:"force_exclude_stream_ids,omitempty"`
}

// TestOptions bundles the retest-policy fields shared by both rule kinds.
type TestOptions struct {
	TestStreams         bool
	ForceRetest         bool
	RetestDaysThreshold int
}

// TestOptions returns the rule's retest-policy settings with defaults applied.
func (r *AutoAssignRule) TestOptions() TestOptions {
	return testOptions(r.TestStreamsBeforeSorting, r.ForceRetestOldStreams, r.RetestDaysThreshold)
}

// SortingRule scores and reorders streams already assigned to channels.
// Channel scope is the union of explicit ids, expanded group members, and
// (when AllChannels is set) every channel in the catalog.
type SortingRule struct {
	ID              int64       `json:"id,omitempty"`
	Name            string      `json:"name" validate:"required"`
	Description     *string     `json:"description,omitempty"`
	Enabled         bool        `json:"enabled"`
	ChannelIDs      []int64     `json:"channel_ids,omitempty"`
	ChannelGroupIDs []int64     `json:"channel_group_ids,omitempty"`
	AllChannels     bool        `json:"all_channels"`
	Conditions      []Condition `json:"conditions"`

	TestStreamsBeforeSorting bool `json:"test_streams_before_sorting"`
	ForceRetestOldStreams    bool `json:"force_retest_old_streams"`
	RetestDaysThreshold      int  `json:"retest_days_threshold"`

	// ExecutionOrder controls "execute all rules": lower runs first,
	// DefaultExecutionOrder (999) runs last, ties broken by rule id.
	ExecutionOrder int `json:"execution_order"`
}

// TestOptions returns the rule's retest-policy settings with defaults applied.
func (r *SortingRule) TestOptions() TestOptions {
	return testOptions(r.TestStreamsBeforeSorting, r.ForceRetestOldStreams, r.RetestDaysThreshold)
}

func testOptions(test, force bool, days int) TestOptions {
	if days <= 0 {
		days = DefaultRetestDays
	}
	return TestOptions{TestStreams: test, ForceRetest: force, RetestDaysThreshold: days}
}

// MaxPossibleScore is the sum of all condition weights. Display and
// validation only; never used for gating.
func (r *SortingRule) MaxPossibleScore() int {
	total := 0
	for _, c := range r.Conditions {
		total += c.Points
	}
	return total
}
