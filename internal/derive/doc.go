// Package derive generates cacheable artifacts from cataloged media:
// per-hash thumbnails under the project tree and waveform images in the
// shared cache. Work for a hash is serialized by a TTL lease so concurrent
// workers degrade to a placeholder instead of racing ffmpeg.
package derive
