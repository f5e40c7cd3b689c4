package progress

import "github.com/voyagen/streamplus/internal/models"

// Event types published during an execution. Consumers must ignore types
// they do not recognise.
const (
	TypeStart           = "start"
	TypeChannelStart    = "channel_start"
	TypeInfo            = "info"
	TypeTestStart       = "test_start"
	TypeTestProgress    = "test_progress"
	TypeTestSuccess     = "test_success"
	TypeTestFail        = "test_fail"
	TypeMatching        = "matching"
	TypeSorting         = "sorting"
	TypeAssigning       = "assigning"
	TypeUpdating        = "updating"
	TypeChannelComplete = "channel_complete"
	TypeRuleStart       = "rule_start"
	TypeRuleProgress    = "rule_progress"
	TypeRuleComplete    = "rule_complete"
	TypeComplete        = "complete"
	TypeError           = "error"
	TypeKeepalive       = "keepalive"
	TypeDebug           = "debug"
	TypeDisabling       = "disabling"
	TypeProfileDisabled = "profile_disabled"
)

// Event is the envelope sent as one JSON object per SSE message. Seq is a
// per-execution monotonically increasing sequence number assigned at
// publication; Type discriminates which optional fields are meaningful.
type Event struct {
	Seq  uint64 `json:"seq"`
	Type string `json:"type"`

	Message string `json:"message,omitempty"`

	ChannelID   int64  `json:"channel_id,omitempty"`
	ChannelName string `json:"channel_name,omitempty"`

	StreamID   int64  `json:"stream_id,omitempty"`
	StreamName string `json:"stream_name,omitempty"`

	// test_start / test_progress
	TotalStreams int `json:"total_streams,omitempty"`
	Current      int `json:"current,omitempty"`
	Total        int `json:"total,omitempty"`

	// test_success
	Statistics *models.StreamStats `json:"statistics,omitempty"`

	// rule_start / rule_progress (execute-all wrapper)
	RuleIndex  int    `json:"rule_index,omitempty"`
	TotalRules int    `json:"total_rules,omitempty"`
	RuleName   string `json:"rule_name,omitempty"`
	Progress   int    `json:"progress,omitempty"`

	// complete
	Success           *bool            `json:"success,omitempty"`
	MatchesFound      *int             `json:"matches_found,omitempty"`
	StreamsAdded      *int             `json:"streams_added,omitempty"`
	ProcessedChannels []ChannelOutcome `json:"processed_channels,omitempty"`
	Errors            []string         `json:"errors,omitempty"`
}

// ChannelOutcome is one channel's sub-result inside a sorting execution.
type ChannelOutcome struct {
	ChannelID   int64  `json:"channel_id"`
	ChannelName string `json:"channel_name,omitempty"`
	SortedCount int    `json:"sorted_count"`
	Skipped     bool   `json:"skipped,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Terminal reports whether the event ends its execution's stream.
func (e Event) Terminal() bool {
	return e.Type == TypeComplete || e.Type == TypeError
}
