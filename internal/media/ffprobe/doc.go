// Package ffprobe provides a typed wrapper around ffprobe JSON output for
// rotation probing.
//
// Key types:
//   - Result: parsed ffprobe output for the selected video stream
//   - Video: rotation, dimensions, and codec of the first video stream
//
// Rotation is read from the legacy rotate tag and from display-matrix side
// data, with side data taking precedence; both the numeric and quoted-string
// encodings ffprobe has used over the years are accepted.
package ffprobe
