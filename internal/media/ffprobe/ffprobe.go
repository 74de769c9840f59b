package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index        int               `json:"index"`
	CodecName    string            `json:"codec_name"`
	CodecType    string            `json:"codec_type"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	Duration     string            `json:"duration"`
	Tags         map[string]string `json:"tags"`
	SideDataList []SideData        `json:"side_data_list"`
}

// SideData carries container side data; rotation arrives as a display matrix.
type SideData struct {
	SideDataType string          `json:"side_data_type"`
	Rotation     json.RawMessage `json:"rotation"`
}

// Video holds the properties of the first video stream that the catalog
// cares about.
type Video struct {
	Rotation        int
	Width           int
	Height          int
	Codec           string
	DurationSeconds float64
}

// Inspect executes ffprobe against the first video stream of path and decodes
// the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := commandContext(ctx, binary, "-v", "error", "-print_format", "json", "-show_streams", "-select_streams", "v:0", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// InspectVideo probes path and reduces the result to the first video stream.
// It fails when no video stream exists.
func InspectVideo(ctx context.Context, binary string, path string) (Video, error) {
	result, err := Inspect(ctx, binary, path)
	if err != nil {
		return Video{}, err
	}
	return result.FirstVideo()
}

// FirstVideo extracts rotation and dimensions from the first video stream.
func (r Result) FirstVideo() (Video, error) {
	for _, stream := range r.Streams {
		if !strings.EqualFold(stream.CodecType, "video") && stream.CodecType != "" {
			continue
		}
		video := Video{
			Rotation: stream.rotation(),
			Width:    stream.Width,
			Height:   stream.Height,
			Codec:    stream.CodecName,
		}
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(stream.Duration), 64); err == nil {
			video.DurationSeconds = parsed
		}
		return video, nil
	}
	return Video{}, errors.New("ffprobe: no video streams found")
}

// rotation reads the rotate tag first, then display-matrix side data, which
// takes precedence when both are present. Values are normalized to 0..359.
func (s Stream) rotation() int {
	rotation := 0
	if raw, ok := s.Tags["rotate"]; ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			rotation = normalizeRotation(parsed)
		}
	}
	for _, sideData := range s.SideDataList {
		if len(sideData.Rotation) == 0 {
			continue
		}
		if parsed, ok := parseRotationValue(sideData.Rotation); ok {
			rotation = normalizeRotation(parsed)
		}
	}
	return rotation
}

// parseRotationValue accepts the number or quoted-string forms ffprobe has
// emitted across versions.
func parseRotationValue(raw json.RawMessage) (int, bool) {
	var asFloat float64
	if err := json.Unmarshal(raw, &asFloat); err == nil {
		return int(asFloat), true
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(asString), 64); err == nil {
			return int(parsed), true
		}
	}
	return 0, false
}

func normalizeRotation(value int) int {
	normalized := value % 360
	if normalized < 0 {
		normalized += 360
	}
	return normalized
}
