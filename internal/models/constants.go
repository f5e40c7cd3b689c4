package models

// Condition type constants (what a condition inspects on a stream).
const (
	ConditionM3USource       = "m3u_source"
	ConditionVideoBitrate    = "video_bitrate"
	ConditionVideoResolution = "video_resolution"
	ConditionVideoCodec      = "video_codec"
	ConditionAudioCodec      = "audio_codec"
	ConditionVideoFPS        = "video_fps"
)

// Comparison operators. m3u_source takes no operator (equality implied).
const (
	OpGT = ">"
	OpGE = ">="
	OpLT = "<"
	OpLE = "<="
	OpEQ = "=="
	OpNE = "!="
)

// Resolution tiers, ordered worst to best.
const (
	TierSD    = "SD"
	Tier720p  = "720p"
	Tier1080p = "1080p"
	Tier2160p = "2160p"
)

// Points bounds for weighted conditions.
const (
	MinConditionPoints = 1
	MaxConditionPoints = 1000
)

// DefaultRetestDays is the staleness threshold applied when a rule does
// not specify retest_days_threshold.
const DefaultRetestDays = 7

// DefaultExecutionOrder marks a sorting rule with no explicit order.
// Such rules run after all explicitly ordered rules.
const DefaultExecutionOrder = 999
