// Package orientation rewrites videos whose containers carry rotation
// metadata so the pixels are stored upright. Replacement is crash safe: the
// rewrite lands in a temp file, the original moves aside to a backup, and any
// failure after the swap begins restores the backup.
package orientation
