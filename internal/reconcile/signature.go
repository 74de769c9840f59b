package reconcile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"mediasync/internal/media"
	"mediasync/internal/paths"
)

// Signature is a cheap fingerprint of a project's ingest tree. Equal
// signatures mean no reconcile-worthy change happened; it deliberately does
// not hash content.
type Signature struct {
	LatestMTime time.Time
	FileCount   int
	TotalBytes  int64
}

// ComputeSignature fingerprints the supported media under a project's ingest
// tree. A project without an ingest directory yields the zero signature.
func ComputeSignature(projectRoot string) (Signature, error) {
	var sig Signature
	ingestRoot := filepath.Join(projectRoot, paths.IngestDir)
	if _, err := os.Stat(ingestRoot); errors.Is(err, fs.ErrNotExist) {
		return sig, nil
	}

	err := filepath.WalkDir(ingestRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if media.IgnoredDir(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if media.IgnoredFile(d.Name()) || !media.Supported(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		sig.FileCount++
		sig.TotalBytes += info.Size()
		if info.ModTime().After(sig.LatestMTime) {
			sig.LatestMTime = info.ModTime()
		}
		return nil
	})
	return sig, err
}
