// Package buckets clusters the media inside a library source into browsable
// roots. Discovery treats every ancestor directory of a media file as a
// candidate cluster, ranks candidates by the configured policy, and collapses
// nested candidates whose file sets almost fully overlap. Results persist in
// a per-installation SQLite store where operators can pin buckets they care
// about.
package buckets
