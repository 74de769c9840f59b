package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"mediasync/internal/fileutil"
	"mediasync/internal/services"
)

// Source modes. Project sources are read-write catalog roots; library sources
// are read-only bulk storage browsed through buckets.
const (
	ModeProject = "project"
	ModeLibrary = "library"
)

// PrimaryName is the reserved source that always exists and always points at
// the configured default root.
const PrimaryName = "primary"

const registryFile = "index.json"

var sourceNamePattern = regexp.MustCompile(`^[a-z0-9._-]+$`)

// Capabilities describes what a source supports.
type Capabilities struct {
	Browse bool `json:"browse"`
	Tags   bool `json:"tags"`
	Derive bool `json:"derive"`
}

// DefaultCapabilities returns the capability set new sources start with.
func DefaultCapabilities() Capabilities {
	return Capabilities{Browse: true, Tags: true, Derive: true}
}

// Source represents a named media storage root.
type Source struct {
	Name         string       `json:"name"`
	Root         string       `json:"root"`
	Type         string       `json:"type"`
	Enabled      bool         `json:"enabled"`
	Mode         string       `json:"mode"`
	ReadOnly     bool         `json:"read_only"`
	Capabilities Capabilities `json:"capabilities"`
}

// NormalizeName lowercases and validates a source name.
func NormalizeName(name string) (string, error) {
	cleaned := strings.ToLower(strings.TrimSpace(name))
	if cleaned == "" {
		return "", services.Wrap(services.ErrValidation, "sources", "name", "source name cannot be empty", nil)
	}
	if !sourceNamePattern.MatchString(cleaned) {
		return "", services.Wrap(services.ErrValidation, "sources", "name",
			"source name may only contain lowercase letters, numbers, dots, underscores, and hyphens", nil)
	}
	if strings.Contains(cleaned, "..") {
		return "", services.Wrap(services.ErrValidation, "sources", "name",
			"source name cannot contain path traversal sequences", nil)
	}
	return cleaned, nil
}

// Registry persists and retrieves sources. The reserved primary source is
// re-derived from configuration on every read rather than trusted from disk.
type Registry struct {
	defaultRoot   string
	sandboxParent string
}

// NewRegistry constructs a registry rooted at the configured projects root,
// with library sources sandboxed under sandboxParent.
func NewRegistry(defaultRoot, sandboxParent string) *Registry {
	return &Registry{
		defaultRoot:   filepath.Clean(defaultRoot),
		sandboxParent: filepath.Clean(sandboxParent),
	}
}

func (r *Registry) registryPath() string {
	return filepath.Join(r.defaultRoot, "_sources", registryFile)
}

// DefaultSource returns the reserved primary source.
func (r *Registry) DefaultSource() Source {
	return Source{
		Name:         PrimaryName,
		Root:         r.defaultRoot,
		Type:         "local",
		Enabled:      true,
		Mode:         ModeProject,
		ReadOnly:     false,
		Capabilities: DefaultCapabilities(),
	}
}

// ListAll returns every registered source, primary first, the rest sorted by
// name. Corrupt registry files degrade to the primary-only view rather than
// failing reads.
func (r *Registry) ListAll() ([]Source, error) {
	loaded, err := r.load()
	if err != nil {
		return nil, err
	}
	return loaded, nil
}

// ListEnabled returns only enabled sources.
func (r *Registry) ListEnabled() ([]Source, error) {
	all, err := r.ListAll()
	if err != nil {
		return nil, err
	}
	enabled := all[:0]
	for _, source := range all {
		if source.Enabled {
			enabled = append(enabled, source)
		}
	}
	return enabled, nil
}

// Require returns a source by name. Empty names resolve to primary. Disabled
// sources are rejected unless includeDisabled is set.
func (r *Registry) Require(name string, includeDisabled bool) (Source, error) {
	lookup := PrimaryName
	if strings.TrimSpace(name) != "" {
		validated, err := NormalizeName(name)
		if err != nil {
			return Source{}, err
		}
		lookup = validated
	}

	all, err := r.ListAll()
	if err != nil {
		return Source{}, err
	}
	for _, source := range all {
		if source.Name != lookup {
			continue
		}
		if !source.Enabled && !includeDisabled {
			return Source{}, services.Wrap(services.ErrValidation, "sources", "require",
				fmt.Sprintf("source %q is disabled", lookup), nil)
		}
		return source, nil
	}
	return Source{}, services.Wrap(services.ErrNotFound, "sources", "require",
		fmt.Sprintf("source %q not found", lookup), nil)
}

// Upsert validates and stores a source definition. Library sources must be
// read-only and resolve under the sandbox parent. Attempts to redefine
// primary are replaced with the configuration-derived definition.
func (r *Registry) Upsert(candidate Source) (Source, error) {
	validated, err := NormalizeName(candidate.Name)
	if err != nil {
		return Source{}, err
	}
	candidate.Name = validated

	if candidate.Name == PrimaryName {
		candidate = r.DefaultSource()
	} else {
		if err := r.validateCandidate(&candidate); err != nil {
			return Source{}, err
		}
	}

	all, err := r.load()
	if err != nil {
		return Source{}, err
	}
	filtered := make([]Source, 0, len(all)+1)
	for _, source := range all {
		if source.Name != candidate.Name {
			filtered = append(filtered, source)
		}
	}
	filtered = append(filtered, candidate)
	if err := r.save(filtered); err != nil {
		return Source{}, err
	}
	return candidate, nil
}

// Remove deletes a source. Primary can never be removed.
func (r *Registry) Remove(name string) error {
	validated, err := NormalizeName(name)
	if err != nil {
		return err
	}
	if validated == PrimaryName {
		return services.Wrap(services.ErrValidation, "sources", "remove", "primary source cannot be removed", nil)
	}

	all, err := r.load()
	if err != nil {
		return err
	}
	kept := make([]Source, 0, len(all))
	found := false
	for _, source := range all {
		if source.Name == validated {
			found = true
			continue
		}
		kept = append(kept, source)
	}
	if !found {
		return services.Wrap(services.ErrNotFound, "sources", "remove",
			fmt.Sprintf("source %q not found", validated), nil)
	}
	return r.save(kept)
}

func (r *Registry) validateCandidate(candidate *Source) error {
	root := strings.TrimSpace(candidate.Root)
	if root == "" {
		return services.Wrap(services.ErrValidation, "sources", "upsert", "source root cannot be empty", nil)
	}
	candidate.Root = filepath.Clean(root)
	if candidate.Type == "" {
		candidate.Type = "local"
	}
	switch candidate.Mode {
	case ModeProject:
	case ModeLibrary:
		if !candidate.ReadOnly {
			return services.Wrap(services.ErrValidation, "sources", "upsert", "library sources must be read-only", nil)
		}
		if !pathWithin(candidate.Root, r.sandboxParent) {
			return services.Wrap(services.ErrValidation, "sources", "upsert",
				fmt.Sprintf("library sources must live under %s", r.sandboxParent), nil)
		}
	default:
		return services.Wrap(services.ErrValidation, "sources", "upsert",
			fmt.Sprintf("source mode must be %q or %q", ModeProject, ModeLibrary), nil)
	}
	if candidate.Capabilities == (Capabilities{}) {
		candidate.Capabilities = DefaultCapabilities()
	}
	return nil
}

func (r *Registry) load() ([]Source, error) {
	byName := map[string]Source{}

	data, err := os.ReadFile(r.registryPath())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read source registry: %w", err)
	}
	if err == nil {
		var stored []Source
		if jsonErr := json.Unmarshal(data, &stored); jsonErr == nil {
			for _, source := range stored {
				validated, nameErr := NormalizeName(source.Name)
				if nameErr != nil {
					continue
				}
				source.Name = validated
				byName[source.Name] = source
			}
		}
	}

	// Primary always reflects configuration, whatever the file says.
	byName[PrimaryName] = r.DefaultSource()

	ordered := make([]Source, 0, len(byName))
	ordered = append(ordered, byName[PrimaryName])
	names := make([]string, 0, len(byName))
	for name := range byName {
		if name != PrimaryName {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		ordered = append(ordered, byName[name])
	}
	return ordered, nil
}

func (r *Registry) save(sources []Source) error {
	return fileutil.WriteJSONAtomic(r.registryPath(), sources)
}

func pathWithin(target, parent string) bool {
	rel, err := filepath.Rel(parent, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
