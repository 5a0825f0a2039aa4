// Package library serves images from a local directory tree as an image
// provider. It is meant for offline work and for curated in-house photo sets.
//
// Every image file under the root is a candidate. Its search tags come from
// the parent directory name and the underscore-separated parts of the file
// name. An optional manifest.jsonl at the root adds tags, a description and
// an author per file.
package library

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/timmy/surrogates/internal/domain"
	"github.com/timmy/surrogates/internal/source"
)

const (
	// Name is the provider tag.
	Name = "library"
	// ManifestFileName is the optional JSON Lines manifest at the library root.
	ManifestFileName = "manifest.jsonl"

	maxPerPage = 100
)

// ManifestItem describes one file of the manifest.
type ManifestItem struct {
	Filename    string   `json:"filename"` // relative to the library root
	Description string   `json:"description"`
	Author      string   `json:"author"`
	Tags        []string `json:"tags"`
	SourceURL   string   `json:"source_url"`
}

type item struct {
	record domain.ImageRecord
	path   string
	tags   []string
}

// Adapter implements source.Source on a directory tree.
type Adapter struct {
	root string

	mu     sync.Mutex
	items  []item
	loaded bool
}

// NewAdapter creates a library adapter rooted at root. The tree is scanned
// on the first search.
func NewAdapter(root string) *Adapter {
	return &Adapter{root: root}
}

func (a *Adapter) Name() string {
	return Name
}

// FetchCandidates returns the images whose tags contain every query term,
// ordered by relative path.
func (a *Adapter) FetchCandidates(ctx context.Context, query string, limit int) ([]domain.ImageRecord, error) {
	items, err := a.load()
	if err != nil {
		return nil, fmt.Errorf("%w: library: %v", domain.ErrProviderUnavailable, err)
	}
	limit = source.ClampLimit(limit, maxPerPage)
	terms := strings.Fields(strings.ToLower(query))

	var records []domain.ImageRecord
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if matches(it.tags, terms) {
			records = append(records, it.record)
			if len(records) == limit {
				break
			}
		}
	}
	return records, nil
}

// DownloadBytes reads the file of record. Only files found by the scan can
// be read.
func (a *Adapter) DownloadBytes(ctx context.Context, record domain.ImageRecord) ([]byte, error) {
	items, err := a.load()
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.record.SourceID == record.SourceID {
			return os.ReadFile(it.path)
		}
	}
	return nil, fmt.Errorf("library: unknown image %q", record.SourceID)
}

func (a *Adapter) load() ([]item, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loaded {
		return a.items, nil
	}
	items, err := scan(a.root)
	if err != nil {
		return nil, err
	}
	a.items = items
	a.loaded = true
	return items, nil
}

func scan(root string) ([]item, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("library path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library path is not a directory: %s", root)
	}

	manifest, err := readManifest(filepath.Join(root, ManifestFileName))
	if err != nil {
		return nil, err
	}

	var items []item
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !isImage(name) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		category := filepath.Base(filepath.Dir(path))
		if filepath.Dir(path) == filepath.Clean(root) {
			category = ""
		}

		it := item{
			path: path,
			record: domain.ImageRecord{
				SourceID:    rel,
				Description: strings.Join(nameParts(name), " "),
				URL:         "file://" + filepath.ToSlash(path),
				Source:      Name,
			},
			tags: extractTags(category, name),
		}
		if m, ok := manifest[rel]; ok {
			if m.Description != "" {
				it.record.Description = m.Description
			}
			it.record.Author = m.Author
			if m.SourceURL != "" {
				it.record.URL = m.SourceURL
			}
			it.tags = uniqueStrings(append(it.tags, lowerAll(m.Tags)...))
			it.tags = uniqueStrings(append(it.tags, strings.Fields(strings.ToLower(m.Description))...))
		}
		items = append(items, it)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk library: %w", err)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].record.SourceID < items[j].record.SourceID
	})
	return items, nil
}

// readManifest returns the manifest keyed by filename. A missing file is an
// empty manifest; malformed lines are skipped.
func readManifest(path string) (map[string]ManifestItem, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	manifest := make(map[string]ManifestItem)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var m ManifestItem
		if err := json.Unmarshal([]byte(line), &m); err != nil || m.Filename == "" {
			continue
		}
		manifest[filepath.ToSlash(m.Filename)] = m
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading manifest: %w", err)
	}
	return manifest, nil
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	}
	return false
}

// extractTags derives lowercase tags from the category directory and the
// file name, e.g. "office/team_meeting_02.jpg" gives office, team, meeting.
func extractTags(category, filename string) []string {
	var tags []string
	if category != "" {
		tags = append(tags, strings.ToLower(category))
	}
	for _, part := range nameParts(filename) {
		tags = append(tags, strings.ToLower(part))
	}
	return uniqueStrings(tags)
}

func nameParts(filename string) []string {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	var parts []string
	for _, part := range strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	}) {
		if len(part) > 1 && !isNumeric(part) {
			parts = append(parts, part)
		}
	}
	return parts
}

// matches reports whether every term is a prefix of some tag. No terms
// matches everything.
func matches(tags, terms []string) bool {
	for _, term := range terms {
		found := false
		for _, tag := range tags {
			if strings.HasPrefix(tag, term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func lowerAll(strs []string) []string {
	out := make([]string, 0, len(strs))
	for _, s := range strs {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func uniqueStrings(strs []string) []string {
	seen := make(map[string]bool)
	result := []string{}
	for _, s := range strs {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}
