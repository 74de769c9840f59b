package buckets

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mediasync/internal/config"
	"mediasync/internal/media"
	"mediasync/internal/sources"
)

// Bucket is one discovered media cluster within a library source.
type Bucket struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	RelRoot      string    `json:"rel_root"`
	Title        string    `json:"title"`
	FileCount    int       `json:"file_count"`
	Depth        int       `json:"depth"`
	Kinds        []string  `json:"kinds"`
	Mixed        bool      `json:"mixed"`
	Pinned       bool      `json:"pinned"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// BucketID derives the stable identifier for a cluster root within a source.
func BucketID(sourceName, relRoot string) string {
	sum := sha256.Sum256([]byte(sourceName + ":" + relRoot))
	return hex.EncodeToString(sum[:])
}

var titleCaser = cases.Title(language.Und)

// TitleFor renders a directory name as a human-facing bucket title.
func TitleFor(relRoot string) string {
	base := filepath.Base(relRoot)
	if base == "." || base == "/" {
		base = relRoot
	}
	cleaned := strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return base
	}
	return titleCaser.String(cleaned)
}

type candidate struct {
	relRoot string
	depth   int
	count   int
	kinds   map[media.Kind]int
}

// Discover walks a library source and clusters its media into buckets:
// every ancestor directory of a media file (up to the depth limit) is a
// candidate, small candidates are dropped, candidates are ranked by the
// configured policy, and near-complete overlap between nested candidates is
// collapsed greedily in rank order.
func Discover(source sources.Source, cfg config.Buckets) ([]Bucket, error) {
	candidates := map[string]*candidate{}

	err := filepath.WalkDir(source.Root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Unreadable subtrees reduce coverage, not correctness.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(source.Root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != source.Root && (media.IgnoredDir(d.Name()) || depthOf(rel) > cfg.MaxDepth) {
				return fs.SkipDir
			}
			return nil
		}
		if media.IgnoredFile(d.Name()) || !media.Supported(path) {
			return nil
		}

		kind := media.KindFor(path)
		for _, ancestor := range ancestorsOf(rel, cfg.MaxDepth) {
			cand, ok := candidates[ancestor]
			if !ok {
				cand = &candidate{
					relRoot: ancestor,
					depth:   depthOf(ancestor),
					kinds:   map[media.Kind]int{},
				}
				candidates[ancestor] = cand
			}
			cand.count++
			cand.kinds[kind]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	kept := make([]*candidate, 0, len(candidates))
	for _, cand := range candidates {
		if cand.count >= cfg.MinFiles {
			kept = append(kept, cand)
		}
	}
	rank(kept, cfg.Ranking)
	collapsed := collapseOverlap(kept, cfg.OverlapThreshold)
	if cfg.MaxBuckets > 0 && len(collapsed) > cfg.MaxBuckets {
		collapsed = collapsed[:cfg.MaxBuckets]
	}

	now := time.Now().UTC()
	result := make([]Bucket, 0, len(collapsed))
	for _, cand := range collapsed {
		result = append(result, Bucket{
			ID:           BucketID(source.Name, cand.relRoot),
			Source:       source.Name,
			RelRoot:      cand.relRoot,
			Title:        TitleFor(cand.relRoot),
			FileCount:    cand.count,
			Depth:        cand.depth,
			Kinds:        kindNames(cand.kinds),
			Mixed:        len(cand.kinds) > 1,
			DiscoveredAt: now,
		})
	}
	return result, nil
}

// rank orders candidates by the configured policy, with the rel root as a
// deterministic tie-break.
func rank(cands []*candidate, ranking string) {
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if ranking == config.RankingDepthFirst {
			if a.depth != b.depth {
				return a.depth > b.depth
			}
			if a.count != b.count {
				return a.count > b.count
			}
		} else {
			if a.count != b.count {
				return a.count > b.count
			}
			if a.depth != b.depth {
				return a.depth > b.depth
			}
		}
		return a.relRoot < b.relRoot
	})
}

// collapseOverlap keeps candidates in rank order and drops any later
// candidate that is an ancestor or descendant of a kept one with
// near-complete file overlap. Nested candidates share all of the smaller
// one's files, so the overlap ratio is the count ratio.
func collapseOverlap(ranked []*candidate, threshold float64) []*candidate {
	var kept []*candidate
	for _, cand := range ranked {
		redundant := false
		for _, winner := range kept {
			if !related(cand.relRoot, winner.relRoot) {
				continue
			}
			smaller, larger := cand.count, winner.count
			if smaller > larger {
				smaller, larger = larger, smaller
			}
			if larger == 0 {
				continue
			}
			if float64(smaller)/float64(larger) >= threshold {
				redundant = true
				break
			}
		}
		if !redundant {
			kept = append(kept, cand)
		}
	}
	return kept
}

func related(a, b string) bool {
	if a == b {
		return true
	}
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}

func ancestorsOf(relFile string, maxDepth int) []string {
	dir := filepath.ToSlash(filepath.Dir(relFile))
	if dir == "." {
		return nil
	}
	var ancestors []string
	segments := strings.Split(dir, "/")
	for i := 1; i <= len(segments) && i <= maxDepth; i++ {
		ancestors = append(ancestors, strings.Join(segments[:i], "/"))
	}
	return ancestors
}

func depthOf(rel string) int {
	return len(strings.Split(filepath.ToSlash(rel), "/"))
}

func kindNames(kinds map[media.Kind]int) []string {
	names := make([]string, 0, len(kinds))
	for kind := range kinds {
		names = append(names, string(kind))
	}
	sort.Strings(names)
	return names
}
