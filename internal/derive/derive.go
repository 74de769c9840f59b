package derive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"mediasync/internal/config"
	"mediasync/internal/lease"
	"mediasync/internal/logging"
	"mediasync/internal/media"
	"mediasync/internal/media/ffprobe"
	"mediasync/internal/paths"
	"mediasync/internal/services"
)

// commandContext is swapped out by tests to fake ffmpeg.
var commandContext = exec.CommandContext

// ThumbnailPath returns the canonical per-hash thumbnail location under a
// project root.
func ThumbnailPath(projectRoot, hash string) string {
	return filepath.Join(projectRoot, paths.ThumbnailDir, hash+".jpg")
}

// Artifact describes one generated derived file.
type Artifact struct {
	Kind      string `json:"kind"`
	Path      string `json:"path"`
	CachePath string `json:"cache_path,omitempty"`
	// Degraded is set when generation was skipped because another worker
	// holds the lease; the caller should fall back to a placeholder.
	Degraded bool `json:"degraded,omitempty"`
}

// Generator produces derived artifacts (thumbnails, waveforms) from cataloged
// media. Generation for a given hash is serialized across workers by a
// TTL-leased lock file so concurrent reconciles do not race ffmpeg.
type Generator struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewGenerator builds a generator from repository configuration.
func NewGenerator(cfg *config.Config, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Generator{cfg: cfg, logger: logging.WithComponent(logger, "derive")}
}

func (g *Generator) lockDir() string {
	return filepath.Join(g.cfg.Paths.CacheRoot, "_locks")
}

func (g *Generator) lockTTL() time.Duration {
	return time.Duration(g.cfg.Derive.LockTTL) * time.Second
}

// Thumbnail ensures a jpeg thumbnail exists for the given content hash. For
// videos it grabs the midpoint frame; for images it scales the source down.
// An existing thumbnail is reused without taking the lease.
func (g *Generator) Thumbnail(ctx context.Context, projectRoot, relPath, hash string) (Artifact, error) {
	outPath := ThumbnailPath(projectRoot, hash)
	artifact := Artifact{Kind: "thumbnail", Path: outPath}
	if _, err := os.Stat(outPath); err == nil {
		return g.cache(artifact, hash)
	}

	sourcePath := filepath.Join(projectRoot, filepath.FromSlash(relPath))
	kind := media.KindFor(sourcePath)
	if kind != media.KindVideo && kind != media.KindImage {
		return Artifact{}, services.Wrap(services.ErrValidation, "derive", "thumbnail",
			fmt.Sprintf("no thumbnail for %s media", kind), nil)
	}

	held, acquired, err := lease.TryAcquire(g.lockDir(), "thumb-"+hash, g.lockTTL())
	if err != nil {
		return Artifact{}, err
	}
	if !acquired {
		artifact.Degraded = true
		return artifact, nil
	}
	defer held.Release()

	// The lease holder may have finished between our stat and the acquire.
	if _, err := os.Stat(outPath); err == nil {
		return g.cache(artifact, hash)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return Artifact{}, fmt.Errorf("create thumbnail dir: %w", err)
	}

	var args []string
	if kind == media.KindVideo {
		seek := g.midpointSeek(ctx, sourcePath)
		args = []string{
			"-hide_banner", "-loglevel", "error", "-y",
			"-ss", strconv.FormatFloat(seek, 'f', 2, 64),
			"-i", sourcePath,
			"-frames:v", "1",
			"-vf", "scale=480:-2",
			outPath,
		}
	} else {
		args = []string{
			"-hide_banner", "-loglevel", "error", "-y",
			"-i", sourcePath,
			"-vf", "scale=480:-2",
			outPath,
		}
	}
	if err := g.runFFmpeg(ctx, args); err != nil {
		_ = os.Remove(outPath)
		return Artifact{}, services.Wrap(services.ErrExternalTool, "derive", "thumbnail", relPath, err)
	}

	g.logger.Info("generated thumbnail",
		logging.String("sha256", hash),
		logging.String("relative_path", relPath))
	return g.cache(artifact, hash)
}

// Waveform renders an audio waveform png into the derived cache. Unlike
// thumbnails it lives only in the cache, keyed by hash.
func (g *Generator) Waveform(ctx context.Context, projectRoot, relPath, hash string) (Artifact, error) {
	sourcePath := filepath.Join(projectRoot, filepath.FromSlash(relPath))
	if !media.IsAudio(sourcePath) && !media.IsVideo(sourcePath) {
		return Artifact{}, services.Wrap(services.ErrValidation, "derive", "waveform",
			"waveforms require an audio or video source", nil)
	}

	outPath := filepath.Join(g.cfg.Paths.CacheRoot, hash, "waveform.png")
	artifact := Artifact{Kind: "waveform", Path: outPath, CachePath: outPath}
	if _, err := os.Stat(outPath); err == nil {
		return artifact, nil
	}

	held, acquired, err := lease.TryAcquire(g.lockDir(), "wave-"+hash, g.lockTTL())
	if err != nil {
		return Artifact{}, err
	}
	if !acquired {
		artifact.Degraded = true
		return artifact, nil
	}
	defer held.Release()

	if _, err := os.Stat(outPath); err == nil {
		return artifact, nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return Artifact{}, fmt.Errorf("create cache dir: %w", err)
	}

	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", sourcePath,
		"-filter_complex", "showwavespic=s=640x120:colors=white",
		"-frames:v", "1",
		outPath,
	}
	if err := g.runFFmpeg(ctx, args); err != nil {
		_ = os.Remove(outPath)
		return Artifact{}, services.Wrap(services.ErrExternalTool, "derive", "waveform", relPath, err)
	}

	g.logger.Info("generated waveform",
		logging.String("sha256", hash),
		logging.String("relative_path", relPath))
	return artifact, nil
}

// cache mirrors a project-local artifact into the shared cache root so other
// surfaces can serve it without touching the project tree.
func (g *Generator) cache(artifact Artifact, hash string) (Artifact, error) {
	cachePath := filepath.Join(g.cfg.Paths.CacheRoot, hash, filepath.Base(artifact.Path))
	if _, err := os.Stat(cachePath); err == nil {
		artifact.CachePath = cachePath
		return artifact, nil
	}
	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		return artifact, fmt.Errorf("create cache dir: %w", err)
	}
	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		return artifact, fmt.Errorf("read artifact: %w", err)
	}
	if err := os.WriteFile(cachePath, data, 0o644); err != nil {
		return artifact, fmt.Errorf("cache artifact: %w", err)
	}
	artifact.CachePath = cachePath
	return artifact, nil
}

// midpointSeek probes the source duration and returns half of it, or zero
// when the probe fails; a first-frame thumbnail is still a thumbnail.
func (g *Generator) midpointSeek(ctx context.Context, sourcePath string) float64 {
	probeCtx, cancel := context.WithTimeout(ctx, time.Duration(g.cfg.Orientation.ProbeTimeout)*time.Second)
	defer cancel()
	video, err := ffprobe.InspectVideo(probeCtx, g.cfg.Orientation.FFprobeBinary, sourcePath)
	if err != nil || video.DurationSeconds <= 0 {
		return 0
	}
	return video.DurationSeconds / 2
}

func (g *Generator) runFFmpeg(ctx context.Context, args []string) error {
	cmd := commandContext(ctx, g.cfg.Orientation.FFmpegBinary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w (output: %s)", err, string(output))
	}
	return nil
}
