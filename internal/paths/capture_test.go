package paths_test

import (
	"testing"

	"mediasync/internal/paths"
)

func TestParseCaptureExactMatch(t *testing.T) {
	capture := paths.ParseCapture("ingest/originals/obs/cam01/2026/08/14/1755150000_edge-3_program_2.mov")
	if capture.SchemaVersion != paths.CaptureSchemaV1 {
		t.Fatalf("expected v1 schema, got %q", capture.SchemaVersion)
	}
	if capture.HostApp != "obs" || capture.DeviceID != "cam01" {
		t.Fatalf("unexpected provenance: %+v", capture)
	}
	if capture.Date != "2026-08-14" || capture.Timestamp != "1755150000" {
		t.Fatalf("unexpected date fields: %+v", capture)
	}
	if capture.HostNode != "edge-3" || capture.Role != "program" || capture.Sequence != 2 {
		t.Fatalf("unexpected role fields: %+v", capture)
	}
}

func TestParseCaptureWithoutSequence(t *testing.T) {
	capture := paths.ParseCapture("ingest/originals/obs/cam01/2026/08/14/1755150000_edge-3_iso.mov")
	if capture.SchemaVersion != paths.CaptureSchemaV1 || capture.Sequence != 0 {
		t.Fatalf("unexpected capture: %+v", capture)
	}
	if capture.Role != "iso" {
		t.Fatalf("unexpected role: %q", capture.Role)
	}
}

func TestParseCaptureLegacyFallbacks(t *testing.T) {
	legacy := []string{
		"ingest/originals/clip.mov",
		"ingest/originals/obs/cam01/2026/8/14/1755150000_edge_iso.mov",
		"ingest/originals/obs/cam01/2026/08/14/notints_edge_iso.mov",
		"elsewhere/obs/cam01/2026/08/14/1755150000_edge_iso.mov",
		"ingest/originals/obs/cam01/2026/08/14/extra/1755150000_edge_iso.mov",
	}
	for _, p := range legacy {
		if capture := paths.ParseCapture(p); capture.SchemaVersion != paths.CaptureSchemaLegacy {
			t.Errorf("expected legacy for %q, got %+v", p, capture)
		}
	}
}
