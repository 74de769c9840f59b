// Package media defines the supported asset types and extension sets shared
// by reconciliation, bucket discovery, and artifact derivation.
package media

import (
	"path/filepath"
	"strings"
)

// Kind classifies an asset by its extension.
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
	KindAudio Kind = "audio"
	KindOther Kind = "other"
)

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".mkv": {}, ".webm": {}, ".m4v": {}, ".avi": {},
}

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".heic": {},
}

var audioExtensions = map[string]struct{}{
	".mp3": {}, ".wav": {}, ".m4a": {}, ".aac": {}, ".flac": {},
}

// KindFor returns the asset kind for a path based on its extension.
func KindFor(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case isIn(videoExtensions, ext):
		return KindVideo
	case isIn(imageExtensions, ext):
		return KindImage
	case isIn(audioExtensions, ext):
		return KindAudio
	default:
		return KindOther
	}
}

// Supported reports whether the path carries a media extension the catalog
// manages.
func Supported(path string) bool {
	return KindFor(path) != KindOther
}

// IsVideo reports whether the path is a supported video container.
func IsVideo(path string) bool {
	return KindFor(path) == KindVideo
}

// IsAudio reports whether the path is a supported audio file.
func IsAudio(path string) bool {
	return KindFor(path) == KindAudio
}

// IgnoredFile reports filenames that never count as media even with a media
// extension elsewhere in the tree: OS metadata and editor droppings.
func IgnoredFile(name string) bool {
	lower := strings.ToLower(name)
	switch lower {
	case ".ds_store", "thumbs.db", "desktop.ini":
		return true
	}
	return strings.HasPrefix(lower, "._") ||
		strings.HasPrefix(lower, ".tmp.") ||
		strings.HasPrefix(lower, ".bak.") ||
		strings.HasSuffix(lower, ".lock") ||
		strings.HasSuffix(lower, ".part")
}

// IgnoredDir reports directory names skipped during library walks.
func IgnoredDir(name string) bool {
	lower := strings.ToLower(name)
	switch lower {
	case ".git", ".svn", "@eadir", "#recycle", "$recycle.bin", "system volume information", "lost+found":
		return true
	}
	return strings.HasPrefix(lower, ".")
}

func isIn(set map[string]struct{}, ext string) bool {
	_, ok := set[ext]
	return ok
}
