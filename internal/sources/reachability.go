package sources

import (
	"os"

	"golang.org/x/sys/unix"
)

// Reachability reports whether a source root is usable right now.
type Reachability struct {
	Accessible bool
	FreeBytes  uint64
	TotalBytes uint64
}

// CheckReachability stats the source root and, when it exists, reads
// filesystem capacity so callers can surface low-space sources.
func CheckReachability(source Source) Reachability {
	info, err := os.Stat(source.Root)
	if err != nil || !info.IsDir() {
		return Reachability{}
	}

	result := Reachability{Accessible: true}
	var stat unix.Statfs_t
	if err := unix.Statfs(source.Root, &stat); err == nil {
		blockSize := uint64(stat.Bsize)
		result.FreeBytes = stat.Bavail * blockSize
		result.TotalBytes = stat.Blocks * blockSize
	}
	return result
}
