package orientation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mediasync/internal/config"
	"mediasync/internal/media/ffprobe"
	"mediasync/internal/services"
)

func testOrientationConfig() config.Orientation {
	cfg := config.Default().Orientation
	cfg.MinOutputBytes = 4
	return cfg
}

// contentProber reports rotation based on file content so it tracks files
// through renames.
type contentProber struct {
	rotations map[string]int
	failPaths map[string]bool
}

func (p *contentProber) Probe(_ context.Context, path string) (ffprobe.Video, error) {
	if p.failPaths[path] {
		return ffprobe.Video{}, errors.New("probe failed")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ffprobe.Video{}, err
	}
	return ffprobe.Video{Rotation: p.rotations[string(data)]}, nil
}

type fakeRewriter struct {
	output    string
	failTimes int
	calls     []string
	err       error
}

func (r *fakeRewriter) Rewrite(_ context.Context, _, outputPath, filter, preset string, _ int) error {
	r.calls = append(r.calls, preset+" "+filter)
	if r.failTimes > 0 {
		r.failTimes--
		if r.err != nil {
			return r.err
		}
		return errors.New("rewrite failed")
	}
	return os.WriteFile(outputPath, []byte(r.output), 0o644)
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func TestNormalizeUnrotatedIsNoop(t *testing.T) {
	input := writeInput(t, "upright")
	prober := &contentProber{rotations: map[string]int{"upright": 0}}
	rewriter := &fakeRewriter{}
	n := NewWithTools(testOrientationConfig(), nil, prober, rewriter)

	result, err := n.Normalize(context.Background(), input, Options{})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if result.Changed {
		t.Fatal("expected unchanged result for rotation 0")
	}
	if len(rewriter.calls) != 0 {
		t.Fatalf("expected no rewrite attempts, got %d", len(rewriter.calls))
	}
}

func TestNormalizeRewritesRotatedVideo(t *testing.T) {
	input := writeInput(t, "sideways")
	prober := &contentProber{rotations: map[string]int{"sideways": 90, "fixed-up": 0}}
	rewriter := &fakeRewriter{output: "fixed-up"}
	n := NewWithTools(testOrientationConfig(), nil, prober, rewriter)

	result, err := n.Normalize(context.Background(), input, Options{})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if !result.Changed || result.Rotation != 90 {
		t.Fatalf("unexpected result: %+v", result)
	}
	data, err := os.ReadFile(input)
	if err != nil {
		t.Fatalf("read normalized file: %v", err)
	}
	if string(data) != "fixed-up" {
		t.Fatalf("expected rewritten content at original path, got %q", data)
	}

	dir := filepath.Dir(input)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp and backup cleaned up, dir has %d entries", len(entries))
	}
}

func TestNormalizeTransposeFilters(t *testing.T) {
	cases := []struct {
		rotation int
		filter   string
	}{
		{90, "transpose=2"},
		{180, "transpose=2,transpose=2"},
		{270, "transpose=1"},
	}
	for _, tc := range cases {
		filter, ok := filterForRotation(tc.rotation)
		if !ok {
			t.Fatalf("rotation %d should need a filter", tc.rotation)
		}
		if filter != tc.filter {
			t.Fatalf("rotation %d: expected %q, got %q", tc.rotation, tc.filter, filter)
		}
	}
	if _, ok := filterForRotation(0); ok {
		t.Fatal("rotation 0 should not need a filter")
	}
}

func TestNormalizeEscalatesToSafePreset(t *testing.T) {
	input := writeInput(t, "sideways")
	prober := &contentProber{rotations: map[string]int{"sideways": 90, "fixed-up": 0}}
	rewriter := &fakeRewriter{output: "fixed-up", failTimes: 1}
	cfg := testOrientationConfig()
	n := NewWithTools(cfg, nil, prober, rewriter)

	result, err := n.Normalize(context.Background(), input, Options{})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if !result.Changed {
		t.Fatal("expected normalization after escalation")
	}
	if len(rewriter.calls) != 2 {
		t.Fatalf("expected two rewrite attempts, got %d", len(rewriter.calls))
	}
	if rewriter.calls[0] != cfg.FastPreset+" transpose=2" {
		t.Fatalf("first attempt should use fast preset, got %q", rewriter.calls[0])
	}
	if rewriter.calls[1] != cfg.SafePreset+" transpose=2" {
		t.Fatalf("second attempt should use safe preset, got %q", rewriter.calls[1])
	}
}

func TestNormalizeBothAttemptsFail(t *testing.T) {
	input := writeInput(t, "sideways")
	prober := &contentProber{rotations: map[string]int{"sideways": 90}}
	rewriter := &fakeRewriter{failTimes: 2}
	n := NewWithTools(testOrientationConfig(), nil, prober, rewriter)

	_, err := n.Normalize(context.Background(), input, Options{})
	if !errors.Is(err, services.ErrOrientation) {
		t.Fatalf("expected orientation error, got %v", err)
	}
	data, readErr := os.ReadFile(input)
	if readErr != nil || string(data) != "sideways" {
		t.Fatalf("original must survive failed rewrite, got %q (%v)", data, readErr)
	}
}

func TestNormalizeRejectsSmallOutput(t *testing.T) {
	input := writeInput(t, "sideways")
	prober := &contentProber{rotations: map[string]int{"sideways": 90, "x": 0}}
	rewriter := &fakeRewriter{output: "x"}
	n := NewWithTools(testOrientationConfig(), nil, prober, rewriter)

	_, err := n.Normalize(context.Background(), input, Options{})
	if !errors.Is(err, services.ErrOrientation) {
		t.Fatalf("expected orientation error for tiny output, got %v", err)
	}
	data, _ := os.ReadFile(input)
	if string(data) != "sideways" {
		t.Fatal("original must be untouched when validation rejects output")
	}
	entries, _ := os.ReadDir(filepath.Dir(input))
	if len(entries) != 1 {
		t.Fatalf("temp output should be removed, dir has %d entries", len(entries))
	}
}

func TestNormalizeRejectsStillRotatedOutput(t *testing.T) {
	input := writeInput(t, "sideways")
	prober := &contentProber{rotations: map[string]int{"sideways": 90, "still-bad": 90}}
	rewriter := &fakeRewriter{output: "still-bad"}
	n := NewWithTools(testOrientationConfig(), nil, prober, rewriter)

	_, err := n.Normalize(context.Background(), input, Options{})
	if !errors.Is(err, services.ErrOrientation) {
		t.Fatalf("expected orientation error when output still rotated, got %v", err)
	}
}

func TestNormalizeRefusesLeftoverTemp(t *testing.T) {
	input := writeInput(t, "sideways")
	dir := filepath.Dir(input)
	tempPath := filepath.Join(dir, ".tmp.clip.mp4.normalized.mp4")
	if err := os.WriteFile(tempPath, []byte("stale"), 0o644); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	prober := &contentProber{rotations: map[string]int{"sideways": 90}}
	n := NewWithTools(testOrientationConfig(), nil, prober, &fakeRewriter{})

	_, err := n.Normalize(context.Background(), input, Options{})
	if !errors.Is(err, services.ErrOrientation) {
		t.Fatalf("expected refusal on leftover temp, got %v", err)
	}
	if data, _ := os.ReadFile(tempPath); string(data) != "stale" {
		t.Fatal("leftover temp must not be touched")
	}
}

func TestNormalizeRollsBackWhenPostSwapProbeFails(t *testing.T) {
	input := writeInput(t, "sideways")
	prober := &contentProber{
		rotations: map[string]int{"sideways": 90, "fixed-up": 0},
		failPaths: map[string]bool{},
	}
	rewriter := &fakeRewriter{output: "fixed-up"}
	n := NewWithTools(testOrientationConfig(), nil, prober, rewriter)

	// Validation probes the temp path; the post-swap probe hits the original
	// path with new content. Fail only that one.
	prober.failPaths[input] = false
	failOnSwap := &swapFailProber{inner: prober, inputPath: input}
	n.prober = failOnSwap

	_, err := n.Normalize(context.Background(), input, Options{})
	if !errors.Is(err, services.ErrOrientation) {
		t.Fatalf("expected orientation error, got %v", err)
	}
	data, readErr := os.ReadFile(input)
	if readErr != nil || string(data) != "sideways" {
		t.Fatalf("rollback must restore original, got %q (%v)", data, readErr)
	}
	entries, _ := os.ReadDir(filepath.Dir(input))
	if len(entries) != 1 {
		t.Fatalf("temp and backup should be cleaned up after rollback, dir has %d entries", len(entries))
	}
}

// swapFailProber fails the probe only when the original path already holds
// the rewritten bytes, i.e. the post-swap verification.
type swapFailProber struct {
	inner     *contentProber
	inputPath string
}

func (p *swapFailProber) Probe(ctx context.Context, path string) (ffprobe.Video, error) {
	if path == p.inputPath {
		data, err := os.ReadFile(path)
		if err == nil && string(data) == "fixed-up" {
			return ffprobe.Video{}, errors.New("post-swap probe failed")
		}
	}
	return p.inner.Probe(ctx, path)
}

func TestNormalizeKeepBackup(t *testing.T) {
	input := writeInput(t, "sideways")
	prober := &contentProber{rotations: map[string]int{"sideways": 90, "fixed-up": 0}}
	rewriter := &fakeRewriter{output: "fixed-up"}
	n := NewWithTools(testOrientationConfig(), nil, prober, rewriter)

	result, err := n.Normalize(context.Background(), input, Options{KeepBackup: true})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if result.BackupPath == "" {
		t.Fatal("expected backup path in result")
	}
	data, err := os.ReadFile(result.BackupPath)
	if err != nil || string(data) != "sideways" {
		t.Fatalf("backup must hold original bytes, got %q (%v)", data, err)
	}
}
