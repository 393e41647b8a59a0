// Package videos holds media helpers around uploads: the ffprobe duration probe and
// the janitor that deletes superseded remote objects.
package videos

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ProbeFunc runs ffprobe against a local file and returns its JSON report.
type ProbeFunc func(path string, timeout time.Duration) (string, error)

// FFProbe reads container metadata with ffprobe.
type FFProbe struct {
	Timeout time.Duration
	Run     ProbeFunc
}

// NewFFProbe constructs a probe with the given per-file timeout.
func NewFFProbe(timeout time.Duration) *FFProbe {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FFProbe{Timeout: timeout, Run: defaultProbe}
}

// Duration returns the media duration in seconds.
func (p *FFProbe) Duration(ctx context.Context, path string) (float64, error) {
	if p == nil {
		return 0, ErrProbeUnavailable
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	run := p.Run
	if run == nil {
		run = defaultProbe
	}

	out, err := run(path, p.Timeout)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var report struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		return 0, fmt.Errorf("parse ffprobe report: %w", err)
	}
	raw := strings.TrimSpace(report.Format.Duration)
	if raw == "" || raw == "N/A" {
		return 0, errors.New("ffprobe reported no duration")
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", raw, err)
	}
	return seconds, nil
}

func defaultProbe(path string, timeout time.Duration) (string, error) {
	return ffmpeg.ProbeWithTimeout(path, timeout, ffmpeg.KwArgs{})
}
