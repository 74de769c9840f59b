package paths

import (
	"regexp"
	"strconv"
	"strings"
)

// Capture schema versions. Paths that match the capture convention exactly
// parse into structured fields; everything else is tagged legacy and never
// rejected.
const (
	CaptureSchemaV1     = "v1"
	CaptureSchemaLegacy = "legacy"
)

// Capture holds best-effort provenance parsed from a canonical ingest path of
// the form
// ingest/originals/<host_app>/<device_id>/<yyyy>/<mm>/<dd>/<ts>_<hostnode>_<role>[_<seq>].<ext>.
type Capture struct {
	SchemaVersion string `json:"schema_version"`
	HostApp       string `json:"host_app,omitempty"`
	DeviceID      string `json:"device_id,omitempty"`
	Date          string `json:"date,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
	HostNode      string `json:"host_node,omitempty"`
	Role          string `json:"role,omitempty"`
	Sequence      int    `json:"sequence,omitempty"`
}

var captureFilePattern = regexp.MustCompile(`^(\d+)_([A-Za-z0-9-]+)_([A-Za-z0-9-]+?)(?:_(\d+))?\.[A-Za-z0-9]+$`)

// ParseCapture parses capture provenance from a project-relative path. The
// result is always non-nil; non-matching paths come back with the legacy
// schema and no structured fields.
func ParseCapture(relPath string) Capture {
	legacy := Capture{SchemaVersion: CaptureSchemaLegacy}

	slashed := strings.TrimPrefix(relPath, "./")
	if !strings.HasPrefix(slashed, IngestDir+"/") {
		return legacy
	}
	rest := strings.TrimPrefix(slashed, IngestDir+"/")
	parts := strings.Split(rest, "/")
	if len(parts) != 6 {
		return legacy
	}

	hostApp, deviceID := parts[0], parts[1]
	year, month, day := parts[2], parts[3], parts[4]
	if hostApp == "" || deviceID == "" {
		return legacy
	}
	if !isDigits(year, 4) || !isDigits(month, 2) || !isDigits(day, 2) {
		return legacy
	}

	match := captureFilePattern.FindStringSubmatch(parts[5])
	if match == nil {
		return legacy
	}

	capture := Capture{
		SchemaVersion: CaptureSchemaV1,
		HostApp:       hostApp,
		DeviceID:      deviceID,
		Date:          year + "-" + month + "-" + day,
		Timestamp:     match[1],
		HostNode:      match[2],
		Role:          match[3],
	}
	if match[4] != "" {
		if seq, err := strconv.Atoi(match[4]); err == nil {
			capture.Sequence = seq
		}
	}
	return capture
}

func isDigits(value string, width int) bool {
	if len(value) != width {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
