package rules

import (
	"testing"

	"github.com/voyagen/streamplus/internal/models"
)

func testedStream(stats models.StreamStats) *models.Stream {
	return &models.Stream{ID: 1, Name: "Sports HD", M3UAccountID: 3, Stats: &stats}
}

func untestedStream() *models.Stream {
	return &models.Stream{ID: 2, Name: "Sports SD", M3UAccountID: 3}
}

func TestEvaluateVideoBitrate(t *testing.T) {
	s := testedStream(models.StreamStats{OutputBitrate: 5000})

	tests := []struct {
		op    string
		value float64
		want  Outcome
	}{
		{models.OpGT, 4000, OutcomeMatch},
		{models.OpGT, 5000, NoMatch},
		{models.OpGE, 5000, OutcomeMatch},
		{models.OpLT, 5000, NoMatch},
		{models.OpLE, 5000, OutcomeMatch},
		{models.OpEQ, 5000, OutcomeMatch},
		{models.OpEQ, 4999, NoMatch},
		{models.OpNE, 4999, OutcomeMatch},
		{models.OpNE, 5000, NoMatch},
	}
	for _, tt := range tests {
		cond := models.Condition{Type: models.ConditionVideoBitrate, Operator: tt.op, Value: tt.value, Points: 5}
		if got := Evaluate(s, cond); got != tt.want {
			t.Errorf("bitrate %s %v: got %v, want %v", tt.op, tt.value, got, tt.want)
		}
	}
}

func TestEvaluateMissingStatsIsNoStats(t *testing.T) {
	s := untestedStream()
	conds := []models.Condition{
		{Type: models.ConditionVideoBitrate, Operator: models.OpGT, Value: 1000.0, Points: 1},
		{Type: models.ConditionVideoFPS, Operator: models.OpGE, Value: 25.0, Points: 1},
		{Type: models.ConditionVideoResolution, Operator: models.OpGE, Value: "720p", Points: 1},
		{Type: models.ConditionVideoCodec, Operator: models.OpEQ, Value: "h264", Points: 1},
		{Type: models.ConditionAudioCodec, Operator: models.OpEQ, Value: "aac", Points: 1},
	}
	for _, cond := range conds {
		if got := Evaluate(s, cond); got != NoStats {
			t.Errorf("%s on untested stream: got %v, want NoStats", cond.Type, got)
		}
	}
}

func TestEvaluateM3USourceIgnoresStats(t *testing.T) {
	// m3u_source never needs stats, so an untested stream can still match.
	s := untestedStream()
	cond := models.Condition{Type: models.ConditionM3USource, Value: []any{float64(3), float64(9)}, Points: 2}
	if got := Evaluate(s, cond); got != OutcomeMatch {
		t.Fatalf("m3u_source list containing account: got %v, want OutcomeMatch", got)
	}
	cond.Value = float64(9)
	if got := Evaluate(s, cond); got != NoMatch {
		t.Fatalf("m3u_source other account: got %v, want NoMatch", got)
	}
}

func TestEvaluateCodecCaseInsensitive(t *testing.T) {
	s := testedStream(models.StreamStats{VideoCodec: "H264", AudioCodec: "aac"})

	cond := models.Condition{Type: models.ConditionVideoCodec, Operator: models.OpEQ, Value: []any{"hevc", "h264"}, Points: 1}
	if got := Evaluate(s, cond); got != OutcomeMatch {
		t.Fatalf("video codec list: got %v, want OutcomeMatch", got)
	}

	cond = models.Condition{Type: models.ConditionAudioCodec, Operator: models.OpNE, Value: "AC3", Points: 1}
	if got := Evaluate(s, cond); got != OutcomeMatch {
		t.Fatalf("audio codec != AC3: got %v, want OutcomeMatch", got)
	}
}

func TestResolutionTierBoundaries(t *testing.T) {
	tests := []struct {
		raw  string
		tier string
	}{
		{"1024x699", models.TierSD},
		{"1280x700", models.Tier720p},
		{"1280x720", models.Tier720p},
		{"1700x999", models.Tier720p},
		{"1920x1000", models.Tier1080p},
		{"1920x1080", models.Tier1080p},
		{"2560x1999", models.Tier1080p},
		{"3840x2000", models.Tier2160p},
		{"3840x2160", models.Tier2160p},
	}
	for _, tt := range tests {
		got, ok := NormalizeResolution(tt.raw)
		if !ok {
			t.Fatalf("NormalizeResolution(%q) failed", tt.raw)
		}
		if got != tt.tier {
			t.Errorf("NormalizeResolution(%q) = %q, want %q", tt.raw, got, tt.tier)
		}
	}
}

func TestEvaluateResolutionTierOrdinal(t *testing.T) {
	s := testedStream(models.StreamStats{Resolution: "1920x1080"})

	tests := []struct {
		op    string
		value string
		want  Outcome
	}{
		{models.OpGE, "720p", OutcomeMatch},
		{models.OpGE, "1080p", OutcomeMatch},
		{models.OpGT, "1080p", NoMatch},
		{models.OpLT, "2160p", OutcomeMatch},
		{models.OpEQ, "1080p", OutcomeMatch},
		{models.OpNE, "720p", OutcomeMatch},
		{models.OpEQ, "sd", NoMatch},
	}
	for _, tt := range tests {
		cond := models.Condition{Type: models.ConditionVideoResolution, Operator: tt.op, Value: tt.value, Points: 1}
		if got := Evaluate(s, cond); got != tt.want {
			t.Errorf("resolution %s %q: got %v, want %v", tt.op, tt.value, got, tt.want)
		}
	}
}

func TestEvaluateResolutionNumericValue(t *testing.T) {
	s := testedStream(models.StreamStats{Resolution: "1920x1080"})

	cond := models.Condition{Type: models.ConditionVideoResolution, Operator: models.OpEQ, Value: float64(1080), Points: 1}
	if got := Evaluate(s, cond); got != OutcomeMatch {
		t.Fatalf("numeric height equality: got %v, want OutcomeMatch", got)
	}
	cond.Value = float64(1920)
	if got := Evaluate(s, cond); got != OutcomeMatch {
		t.Fatalf("numeric width equality: got %v, want OutcomeMatch", got)
	}
	cond.Value = float64(720)
	if got := Evaluate(s, cond); got != NoMatch {
		t.Fatalf("numeric mismatch: got %v, want NoMatch", got)
	}
}

func TestEvaluateMalformedResolutionIsNoStats(t *testing.T) {
	s := testedStream(models.StreamStats{Resolution: "unknown"})
	cond := models.Condition{Type: models.ConditionVideoResolution, Operator: models.OpGE, Value: "720p", Points: 1}
	if got := Evaluate(s, cond); got != NoStats {
		t.Fatalf("malformed resolution: got %v, want NoStats", got)
	}
}

func TestParseResolution(t *testing.T) {
	w, h, ok := ParseResolution("1280x720")
	if !ok || w != 1280 || h != 720 {
		t.Fatalf("ParseResolution: got %d x %d (%v)", w, h, ok)
	}
	if _, _, ok := ParseResolution("N/A"); ok {
		t.Fatal("ParseResolution accepted garbage")
	}
}
