package prober

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/voyagen/streamplus/internal/models"
)

// FFProbe measures stream statistics by running ffprobe against the URL.
type FFProbe struct {
	binary  string
	timeout time.Duration
	now     func() time.Time
}

// NewFFProbe creates an FFProbe runner. binary defaults to "ffprobe" when
// empty; timeout bounds each probe invocation.
func NewFFProbe(binary string, timeout time.Duration) *FFProbe {
	if binary == "" {
		binary = "ffprobe"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FFProbe{binary: binary, timeout: timeout, now: time.Now}
}

// ffprobeOutput mirrors the subset of `ffprobe -show_streams -show_format`
// JSON the engine cares about.
type ffprobeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		PixFmt       string `json:"pix_fmt"`
		AvgFrameRate string `json:"avg_frame_rate"` // "30000/1001"
		RFrameRate   string `json:"r_frame_rate"`
	} `json:"streams"`
	Format struct {
		BitRate string `json:"bit_rate"` // bits per second
	} `json:"format"`
}

// Probe runs ffprobe and converts its output into StreamStats. The returned
// stats replace any cached stats wholesale.
func (p *FFProbe) Probe(ctx context.Context, stream *models.Stream) (*models.StreamStats, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		"-analyzeduration", "5000000",
		stream.URL,
	)
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("probe %q: timeout after %s", stream.Name, p.timeout)
		}
		return nil, fmt.Errorf("probe %q: %w", stream.Name, err)
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("probe %q: parse output: %w", stream.Name, err)
	}

	stats := &models.StreamStats{TestedAt: p.now().UTC()}
	for _, s := range parsed.Streams {
		switch s.CodecType {
		case "video":
			stats.VideoCodec = s.CodecName
			stats.PixelFormat = s.PixFmt
			if s.Width > 0 && s.Height > 0 {
				stats.Resolution = fmt.Sprintf("%dx%d", s.Width, s.Height)
			}
			if fps := parseFrameRate(s.AvgFrameRate); fps > 0 {
				stats.SourceFPS = fps
			} else if fps := parseFrameRate(s.RFrameRate); fps > 0 {
				stats.SourceFPS = fps
			}
		case "audio":
			if stats.AudioCodec == "" {
				stats.AudioCodec = s.CodecName
			}
		}
	}
	if bps, err := strconv.ParseFloat(parsed.Format.BitRate, 64); err == nil && bps > 0 {
		stats.OutputBitrate = bps / 1000 // kbps
	}

	if stats.VideoCodec == "" && stats.AudioCodec == "" {
		return nil, fmt.Errorf("probe %q: no usable streams in output", stream.Name)
	}
	return stats, nil
}

// parseFrameRate converts ffprobe's "num/den" rational into a float.
func parseFrameRate(s string) float64 {
	if s == "" || s == "0/0" {
		return 0
	}
	num, den, found := strings.Cut(s, "/")
	if !found {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
