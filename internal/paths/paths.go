package paths

import (
	"path/filepath"
	"regexp"
	"strings"

	"mediasync/internal/services"
)

// Project layout, relative to a project root.
const (
	IngestDir    = "ingest/originals"
	MetadataDir  = "ingest/_metadata"
	ThumbnailDir = "ingest/thumbnails"
	ManifestDir  = "_manifest"
	ManifestDB   = "_manifest/manifest.db"
	EventsFile   = "_manifest/events.jsonl"
	IndexFile    = "index.json"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateProjectName checks that a project name is safe for filesystem usage.
func ValidateProjectName(name string) (string, error) {
	if name == "" {
		return "", services.Wrap(services.ErrValidation, "paths", "project name", "name cannot be empty", nil)
	}
	if !namePattern.MatchString(name) {
		return "", services.Wrap(services.ErrValidation, "paths", "project name",
			"name may only contain letters, numbers, dots, underscores, and hyphens", nil)
	}
	if strings.Contains(name, "..") {
		return "", services.Wrap(services.ErrValidation, "paths", "project name",
			"name cannot contain path traversal sequences", nil)
	}
	return name, nil
}

// ProjectPath returns the absolute project path for a validated project name.
func ProjectPath(root, name string) (string, error) {
	validated, err := ValidateProjectName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, validated), nil
}

// SafeFilename strips path separators so a filename stays within its folder.
func SafeFilename(name string) (string, error) {
	cleaned := name
	if idx := strings.LastIndexAny(cleaned, `/\`); idx >= 0 {
		cleaned = cleaned[idx+1:]
	}
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return "", services.Wrap(services.ErrValidation, "paths", "filename", "filename cannot be empty", nil)
	}
	return cleaned, nil
}

// ValidateRelativeMediaPath rejects absolute paths and traversal in a
// caller-supplied relative path, returning the slash-normalized form.
func ValidateRelativeMediaPath(relPath string) (string, error) {
	cleaned := strings.TrimSpace(relPath)
	if cleaned == "" {
		return "", services.Wrap(services.ErrValidation, "paths", "relative path", "path cannot be empty", nil)
	}
	cleaned = filepath.ToSlash(cleaned)
	if strings.HasPrefix(cleaned, "/") || strings.Contains(cleaned, "..") {
		return "", services.Wrap(services.ErrValidation, "paths", "relative path",
			"path must be relative and free of traversal sequences", nil)
	}
	return cleaned, nil
}

// IsBookkeepingPath reports whether a project-relative path belongs to the
// catalog's own state rather than user media.
func IsBookkeepingPath(relPath string) bool {
	slashed := filepath.ToSlash(relPath)
	for _, prefix := range []string{ManifestDir, MetadataDir, ThumbnailDir, "_sources"} {
		if slashed == prefix || strings.HasPrefix(slashed, prefix+"/") {
			return true
		}
	}
	if slashed == IndexFile {
		return true
	}
	base := filepath.Base(slashed)
	if strings.HasPrefix(base, ".") {
		return true
	}
	return false
}
