package orientation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mediasync/internal/config"
	"mediasync/internal/logging"
	"mediasync/internal/media/ffprobe"
	"mediasync/internal/services"
)

// Result reports the outcome of one normalization attempt.
type Result struct {
	Changed    bool
	Rotation   int
	BackupPath string
}

// Options adjusts a single Normalize call.
type Options struct {
	// KeepBackup leaves the pre-rewrite bytes at the backup path so the
	// caller can update dedup bookkeeping before discarding them. The caller
	// owns deleting the backup.
	KeepBackup bool
}

// Prober reads rotation metadata from a video container.
type Prober interface {
	Probe(ctx context.Context, path string) (ffprobe.Video, error)
}

// Rewriter produces an upright copy of a rotated video.
type Rewriter interface {
	Rewrite(ctx context.Context, inputPath, outputPath, filter, preset string, crf int) error
}

// Normalizer rewrites rotated video bytes in place with atomic, rollback-safe
// replacement.
type Normalizer struct {
	cfg      config.Orientation
	logger   *slog.Logger
	prober   Prober
	rewriter Rewriter
}

// New constructs a normalizer using exec-backed ffprobe/ffmpeg tools.
func New(cfg config.Orientation, logger *slog.Logger) *Normalizer {
	return NewWithTools(cfg, logger,
		&execProber{binary: cfg.FFprobeBinary, timeout: time.Duration(cfg.ProbeTimeout) * time.Second},
		&execRewriter{binary: cfg.FFmpegBinary},
	)
}

// NewWithTools constructs a normalizer with explicit tool implementations
// (used in tests).
func NewWithTools(cfg config.Orientation, logger *slog.Logger, prober Prober, rewriter Rewriter) *Normalizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Normalizer{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "orientation"),
		prober:   prober,
		rewriter: rewriter,
	}
}

// Normalize probes inputPath and, when rotated 90/180/270 degrees, rewrites
// it upright in place. The original file survives every failure mode: the
// swap is two renames with a rollback path, never a destructive overwrite.
func (n *Normalizer) Normalize(ctx context.Context, inputPath string, opts Options) (Result, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return Result{}, services.Wrap(services.ErrOrientation, "orientation", "probe", "input missing", err)
	}

	probe, err := n.prober.Probe(ctx, inputPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrOrientation, "orientation", "probe", inputPath, err)
	}

	rotation := probe.Rotation
	filter, ok := filterForRotation(rotation)
	if !ok {
		return Result{Changed: false, Rotation: rotation}, nil
	}

	dir := filepath.Dir(inputPath)
	name := filepath.Base(inputPath)
	tempPath := filepath.Join(dir, ".tmp."+name+".normalized"+filepath.Ext(name))
	backupPath := filepath.Join(dir, ".bak."+name)

	// A leftover temp or backup means another normalization of this file is
	// in flight or crashed; refusing avoids double-rewriting the same bytes.
	if pathExists(tempPath) || pathExists(backupPath) {
		return Result{}, services.Wrap(services.ErrOrientation, "orientation", "rewrite",
			fmt.Sprintf("temp or backup exists for %s; refusing to overwrite", name), nil)
	}

	if err := n.rewriteWithEscalation(ctx, inputPath, tempPath, filter); err != nil {
		_ = os.Remove(tempPath)
		return Result{}, err
	}

	if err := n.validateTemp(ctx, tempPath); err != nil {
		_ = os.Remove(tempPath)
		return Result{}, err
	}

	if err := n.swap(ctx, inputPath, tempPath, backupPath); err != nil {
		return Result{}, err
	}

	result := Result{Changed: true, Rotation: rotation}
	if opts.KeepBackup {
		result.BackupPath = backupPath
	} else {
		_ = os.Remove(backupPath)
	}
	n.logger.Info("normalized rotated video",
		logging.String("path", inputPath),
		logging.Int("rotation", rotation))
	return result, nil
}

// rewriteWithEscalation tries the fast preset within the short timeout, then
// the safe preset with the full timeout. A single unbounded attempt would
// hang reconciliation on pathological inputs.
func (n *Normalizer) rewriteWithEscalation(ctx context.Context, inputPath, tempPath, filter string) error {
	attempts := []struct {
		preset  string
		timeout time.Duration
	}{
		{n.cfg.FastPreset, time.Duration(n.cfg.FastTimeout) * time.Second},
		{n.cfg.SafePreset, time.Duration(n.cfg.Timeout) * time.Second},
	}

	var lastErr error
	for i, attempt := range attempts {
		attemptCtx, cancel := context.WithTimeout(ctx, attempt.timeout)
		err := n.rewriter.Rewrite(attemptCtx, inputPath, tempPath, filter, attempt.preset, n.cfg.CRF)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		_ = os.Remove(tempPath)
		if i == 0 {
			n.logger.Warn("fast rewrite attempt failed; escalating to safe preset",
				logging.String("path", inputPath),
				logging.Error(err))
		}
		if ctx.Err() != nil {
			break
		}
	}
	return services.Wrap(services.ErrOrientation, "orientation", "rewrite", inputPath, lastErr)
}

func (n *Normalizer) validateTemp(ctx context.Context, tempPath string) error {
	info, err := os.Stat(tempPath)
	if err != nil {
		return services.Wrap(services.ErrOrientation, "orientation", "validate", "normalized output missing", err)
	}
	if info.Size() < n.cfg.MinOutputBytes {
		return services.Wrap(services.ErrOrientation, "orientation", "validate",
			fmt.Sprintf("normalized output implausibly small (%d bytes)", info.Size()), nil)
	}
	probe, err := n.prober.Probe(ctx, tempPath)
	if err != nil {
		return services.Wrap(services.ErrOrientation, "orientation", "validate", tempPath, err)
	}
	if probe.Rotation != 0 {
		return services.Wrap(services.ErrOrientation, "orientation", "validate",
			fmt.Sprintf("output still reports rotation=%d", probe.Rotation), nil)
	}
	return nil
}

// swap replaces the original with the temp via two renames. A crash between
// them leaves either the untouched original or the new content under the
// original name with the old bytes recoverable from the backup.
func (n *Normalizer) swap(ctx context.Context, inputPath, tempPath, backupPath string) error {
	if err := os.Rename(inputPath, backupPath); err != nil {
		_ = os.Remove(tempPath)
		return services.Wrap(services.ErrOrientation, "orientation", "swap", "move original to backup", err)
	}

	swapErr := os.Rename(tempPath, inputPath)
	if swapErr == nil {
		if _, err := n.prober.Probe(ctx, inputPath); err != nil {
			swapErr = err
		}
	}
	if swapErr == nil {
		_ = os.Remove(tempPath)
		return nil
	}

	// Roll back: whatever sits at the original path now is suspect.
	if pathExists(inputPath) {
		_ = os.Remove(inputPath)
	}
	restoreErr := os.Rename(backupPath, inputPath)
	_ = os.Remove(tempPath)
	if restoreErr != nil {
		return services.Wrap(services.ErrOrientation, "orientation", "swap",
			fmt.Sprintf("replace failed and backup restore failed (backup at %s)", backupPath), restoreErr)
	}
	if _, err := n.prober.Probe(ctx, inputPath); err != nil {
		return services.Wrap(services.ErrOrientation, "orientation", "swap", "rollback verification", err)
	}
	return services.Wrap(services.ErrOrientation, "orientation", "swap", "replace failed, rolled back", swapErr)
}

func filterForRotation(rotation int) (string, bool) {
	switch rotation {
	case 90:
		return "transpose=2", true
	case 180:
		return "transpose=2,transpose=2", true
	case 270:
		return "transpose=1", true
	default:
		return "", false
	}
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
