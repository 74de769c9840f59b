package bridge

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"mediasync/internal/config"
	"mediasync/internal/media"
	"mediasync/internal/sources"
)

// suggestScoreFloor is the score at which a node is offered as a library
// root candidate.
const suggestScoreFloor = 0.3

// Node is one directory in a staged scan tree.
type Node struct {
	Path                 string   `json:"path"`
	Depth                int      `json:"depth"`
	DirectMediaCount     int      `json:"direct_media_count"`
	DescendantMediaCount int      `json:"descendant_media_count"`
	MediaKinds           []string `json:"media_kinds"`
	Mixed                bool     `json:"mixed"`
	Score                float64  `json:"score"`
	Suggested            bool     `json:"suggested"`
	Children             []*Node  `json:"children,omitempty"`
}

// Scan is a time-limited preview of a library source's directory tree.
type Scan struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Root      *Node     `json:"root"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the scan's TTL has passed.
func (s *Scan) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ScanTree walks a source root and builds the staged preview tree. Directories
// holding no media at any depth are pruned.
func ScanTree(source sources.Source, cfg config.StageScan) (*Node, error) {
	if _, err := os.Stat(source.Root); err != nil {
		return nil, err
	}
	root := &Node{Path: ".", Depth: 0}
	if err := buildNode(root, source.Root, cfg); err != nil {
		return nil, err
	}
	scoreNode(root, cfg)
	return root, nil
}

func buildNode(node *Node, absPath string, cfg config.StageScan) error {
	entries, err := os.ReadDir(absPath)
	if err != nil {
		// Unreadable directories appear empty rather than failing the scan.
		if _, ok := err.(*fs.PathError); ok {
			return nil
		}
		return err
	}

	kinds := map[media.Kind]struct{}{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			if media.IgnoredDir(name) || node.Depth+1 > cfg.MaxDepth {
				continue
			}
			child := &Node{
				Path:  filepath.ToSlash(filepath.Join(node.Path, name)),
				Depth: node.Depth + 1,
			}
			if err := buildNode(child, filepath.Join(absPath, name), cfg); err != nil {
				return err
			}
			if child.DescendantMediaCount > 0 {
				node.Children = append(node.Children, child)
			}
			continue
		}
		if media.IgnoredFile(name) || !media.Supported(name) {
			continue
		}
		node.DirectMediaCount++
		kinds[media.KindFor(name)] = struct{}{}
	}

	node.DescendantMediaCount = node.DirectMediaCount
	kindSet := map[string]struct{}{}
	for kind := range kinds {
		kindSet[string(kind)] = struct{}{}
	}
	for _, child := range node.Children {
		node.DescendantMediaCount += child.DescendantMediaCount
		for _, kind := range child.MediaKinds {
			kindSet[kind] = struct{}{}
		}
	}
	node.MediaKinds = sortedKeys(kindSet)
	node.Mixed = len(node.MediaKinds) > 1

	sort.Slice(node.Children, func(i, j int) bool {
		return node.Children[i].Path < node.Children[j].Path
	})
	return nil
}

// scoreNode rates how plausible a node is as a standalone library root. The
// score grows with media volume, with penalties for mixed content and for
// sitting at or near the source root.
func scoreNode(node *Node, cfg config.StageScan) {
	minFiles := cfg.MinFiles
	if minFiles < 1 {
		minFiles = 1
	}
	score := float64(node.DescendantMediaCount) / float64(minFiles*10)
	if score > 1 {
		score = 1
	}
	if node.Mixed {
		score *= 0.7
	}
	if node.Depth <= 1 {
		score *= 0.85
	}
	node.Score = score
	node.Suggested = node.DescendantMediaCount >= minFiles && score >= suggestScoreFloor

	for _, child := range node.Children {
		scoreNode(child, cfg)
	}
}

// FindNode resolves a path inside a scan tree.
func FindNode(root *Node, path string) *Node {
	if root == nil {
		return nil
	}
	if root.Path == path {
		return root
	}
	for _, child := range root.Children {
		if found := FindNode(child, path); found != nil {
			return found
		}
	}
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
