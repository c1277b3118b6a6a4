package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/floostack/transcoder"
	"github.com/floostack/transcoder/ffmpeg"
)

// waitDelay bounds how long a killed ffprobe may hold its output pipes
const waitDelay = time.Second

// Properties are the technical properties returned by the primary probe
type Properties struct {
	Width      int
	Height     int
	FrameRate  float64
	FrameCount int64
	SizeBytes  int64
}

// Duration returns FrameCount / FrameRate in seconds, or 0 when the frame
// rate is unknown.
func (p Properties) Duration() float64 {
	if p.FrameRate <= 0 {
		return 0
	}
	return float64(p.FrameCount) / p.FrameRate
}

// Prober extracts frame size, frame rate, frame count and file size from a
// video file. An error means the file could not be read as a video.
type Prober interface {
	Probe(ctx context.Context, path string) (Properties, error)
}

// StreamProber queries an external tool for the video stream's bitrate and
// codec. Failures are expected and handled by falling back to estimates.
type StreamProber interface {
	Bitrate(ctx context.Context, path string) (int64, error)
	Codec(ctx context.Context, path string) (string, error)
}

// TranscoderProber runs ffprobe's JSON report and decodes it into the
// transcoder library's metadata model
type TranscoderProber struct {
	FFprobePath string
	Timeout     time.Duration
}

// NewTranscoderProber creates a primary prober using the given ffprobe
// binary (resolved through PATH when it has no directory component).
func NewTranscoderProber(ffprobePath string, timeout time.Duration) *TranscoderProber {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &TranscoderProber{FFprobePath: ffprobePath, Timeout: timeout}
}

// Probe implements Prober. ffprobe runs under ctx bounded by p.Timeout and is
// killed when either expires.
func (p *TranscoderProber) Probe(ctx context.Context, path string) (Properties, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Properties{}, fmt.Errorf("failed to get file size: %w", err)
	}
	if fi.IsDir() {
		return Properties{}, fmt.Errorf("%s is a directory", path)
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.FFprobePath, "-i", path,
		"-print_format", "json", "-show_format", "-show_streams", "-show_error")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	err = cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return Properties{}, &ProbeError{Kind: ProbeTimeout, Err: fmt.Errorf("ffprobe after %s: %w", p.Timeout, ctxErr)}
		}
		return Properties{}, ctxErr
	}
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Properties{}, &ProbeError{Kind: ProbeToolMissing, Err: err}
		}
		return Properties{}, classifyProbeFailure(stderr.String()+stdout.String(), fmt.Errorf("ffprobe failed: %w", err))
	}

	var md ffmpeg.Metadata
	if err := json.Unmarshal(stdout.Bytes(), &md); err != nil {
		return Properties{}, &ProbeError{Kind: ProbeInvalid, Detail: "unreadable ffprobe output", Err: err}
	}

	props, err := propertiesFromMetadata(md)
	if err != nil {
		return Properties{}, err
	}
	props.SizeBytes = fi.Size()
	return props, nil
}

func propertiesFromMetadata(md transcoder.Metadata) (Properties, error) {
	var stream transcoder.Streams
	for _, s := range md.GetStreams() {
		if s.GetCodecType() == "video" {
			stream = s
			break
		}
	}
	if stream == nil {
		return Properties{}, &ProbeError{Kind: ProbeNoVideo, Err: errors.New("no video stream found")}
	}

	fps := ParseFrameRate(stream.GetAvgFrameRate())

	duration := parseSeconds(stream.GetDuration())
	if duration <= 0 && md.GetFormat() != nil {
		duration = parseSeconds(md.GetFormat().GetDuration())
	}

	var frames int64
	if fps > 0 && duration > 0 {
		frames = int64(math.Round(duration * fps))
	}

	return Properties{
		Width:      stream.GetWidth(),
		Height:     stream.GetHeight(),
		FrameRate:  fps,
		FrameCount: frames,
	}, nil
}

// ParseFrameRate parses ffprobe rates such as "30000/1001" or "25". Invalid
// or zero-denominator values yield 0.
func ParseFrameRate(rate string) float64 {
	rate = strings.TrimSpace(rate)
	if rate == "" {
		return 0
	}

	num, den, found := strings.Cut(rate, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil || n < 0 {
		return 0
	}
	if !found {
		return n
	}

	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d <= 0 {
		return 0
	}
	return n / d
}

func parseSeconds(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// FFprobeStreamProber runs ffprobe once per query with a strict timeout
type FFprobeStreamProber struct {
	FFprobePath string
	Timeout     time.Duration
}

// NewFFprobeStreamProber creates a secondary prober. A non-positive timeout
// uses DefaultProbeTimeout.
func NewFFprobeStreamProber(ffprobePath string, timeout time.Duration) *FFprobeStreamProber {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &FFprobeStreamProber{FFprobePath: ffprobePath, Timeout: timeout}
}

// queryStream returns a single stream entry of the first video stream
func (p *FFprobeStreamProber) queryStream(ctx context.Context, path, entry string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.FFprobePath, "-v", "error", "-select_streams", "v:0",
		"-show_entries", "stream="+entry, "-of", "default=noprint_wrappers=1:nokey=1", "--", path)
	cmd.WaitDelay = waitDelay
	output, err := cmd.Output()
	if ctx.Err() != nil {
		return "", &ProbeError{Kind: ProbeTimeout, Err: fmt.Errorf("ffprobe %s after %s: %w", entry, p.Timeout, ctx.Err())}
	}
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", &ProbeError{Kind: ProbeToolMissing, Err: err}
		}
		var stderr string
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			stderr = string(exitErr.Stderr)
		}
		return "", classifyProbeFailure(stderr, fmt.Errorf("failed to get %s: %w", entry, err))
	}

	// Multi-stream files can print more than one line
	first, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	return strings.TrimSpace(first), nil
}

// Bitrate implements StreamProber. ffprobe's "N/A" is reported as 0.
func (p *FFprobeStreamProber) Bitrate(ctx context.Context, path string) (int64, error) {
	out, err := p.queryStream(ctx, path, "bit_rate")
	if err != nil {
		return 0, err
	}
	if out == "" || out == "N/A" {
		return 0, nil
	}
	bitrate, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse bitrate %q: %w", out, err)
	}
	return bitrate, nil
}

// Codec implements StreamProber and returns the raw ffprobe codec name
func (p *FFprobeStreamProber) Codec(ctx context.Context, path string) (string, error) {
	codec, err := p.queryStream(ctx, path, "codec_name")
	if err != nil {
		return "", err
	}
	if codec == "" {
		return "", fmt.Errorf("could not detect video codec")
	}
	return codec, nil
}

var codecNames = map[string]string{
	"h264":       "H.264",
	"hevc":       "H.265/HEVC",
	"h265":       "H.265/HEVC",
	"vp9":        "VP9",
	"vp8":        "VP8",
	"av1":        "AV1",
	"mpeg4":      "MPEG-4",
	"mpeg2video": "MPEG-2",
	"xvid":       "Xvid",
	"wmv3":       "WMV",
	"prores":     "ProRes",
}

var extensionCodecs = map[string]string{
	".mp4":  "H.264",
	".mkv":  "H.264/H.265",
	".avi":  "MPEG-4/Xvid",
	".mov":  "H.264",
	".wmv":  "WMV",
	".flv":  "H.264",
	".webm": "VP8/VP9",
	".m4v":  "H.264",
}

// FriendlyCodec maps a raw ffprobe codec name to its display name. Unknown
// codecs are returned unchanged.
func FriendlyCodec(raw string) string {
	if name, ok := codecNames[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return name
	}
	return raw
}

// GuessCodec returns the codec usually found in files with path's extension,
// or "Unknown".
func GuessCodec(path string) string {
	if codec, ok := extensionCodecs[strings.ToLower(filepath.Ext(path))]; ok {
		return codec
	}
	return "Unknown"
}

// EstimateBitrate derives bits per second from the file size and duration.
// It returns nil when the duration is unknown.
func EstimateBitrate(sizeBytes int64, durationSecs float64) *int64 {
	if durationSecs <= 0 || sizeBytes <= 0 {
		return nil
	}
	bitrate := int64(float64(sizeBytes) * 8 / durationSecs)
	if bitrate <= 0 {
		return nil
	}
	return &bitrate
}

// StreamDetails is the bitrate and display codec of a file after the
// fallback chain has been applied, with the reasons for any fallback.
type StreamDetails struct {
	Bitrate   *int64
	Codec     string
	Fallbacks []error
}

// ResolveStreamDetails queries sp for bitrate and codec. A zero or failed
// bitrate query falls back to EstimateBitrate; a failed codec query falls
// back to GuessCodec. It never fails.
func ResolveStreamDetails(ctx context.Context, sp StreamProber, path string, props Properties) StreamDetails {
	var details StreamDetails

	if sp == nil {
		details.Fallbacks = append(details.Fallbacks, &ProbeError{Kind: ProbeToolMissing, Err: errors.New("no stream prober configured")})
		details.Bitrate = EstimateBitrate(props.SizeBytes, props.Duration())
		details.Codec = GuessCodec(path)
		return details
	}

	bitrate, err := sp.Bitrate(ctx, path)
	switch {
	case err != nil:
		details.Fallbacks = append(details.Fallbacks, fmt.Errorf("bitrate: %w", err))
		details.Bitrate = EstimateBitrate(props.SizeBytes, props.Duration())
	case bitrate <= 0:
		details.Bitrate = EstimateBitrate(props.SizeBytes, props.Duration())
	default:
		details.Bitrate = &bitrate
	}

	codec, err := sp.Codec(ctx, path)
	if err != nil {
		details.Fallbacks = append(details.Fallbacks, fmt.Errorf("codec: %w", err))
		details.Codec = GuessCodec(path)
	} else {
		details.Codec = FriendlyCodec(codec)
	}

	return details
}
