// Package scanner materializes the existing destination tree as bounded
// context for the classifier.
package scanner

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// excludedFolders are never descended into: version control, caches, OS
// metadata, and build artifact directories.
var excludedFolders = map[string]bool{
	".git":                      true,
	".svn":                      true,
	".hg":                       true,
	".idea":                     true,
	".vscode":                   true,
	".vs":                       true,
	"__pycache__":               true,
	".cache":                    true,
	".npm":                      true,
	".yarn":                     true,
	"$RECYCLE.BIN":              true,
	"System Volume Information": true,
	"node_modules":              true,
	".Trash":                    true,
	".Spotlight-V100":           true,
	".fseventsd":                true,
	"AppData":                   true,
	"Application Data":          true,
	"Library":                   true,
	".filebutler":               true,
}

// ScanResult holds the trees discovered under each scanned root.
type ScanResult struct {
	Roots           []*FolderNode
	TotalFolders    int
	MaxDepthReached int
}

// Scanner walks destination roots down to a configured depth, skipping
// excluded and hidden directories.
type Scanner struct {
	maxDepth int
	extra    map[string]bool
	logger   *slog.Logger
}

// New creates a scanner. The root is depth 0; nodes at maxDepth are
// included but not descended into.
func New(maxDepth int, extraExcludes []string, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	extra := make(map[string]bool, len(extraExcludes))
	for _, name := range extraExcludes {
		extra[name] = true
	}
	return &Scanner{maxDepth: maxDepth, extra: extra, logger: logger}
}

// Scan walks each root and returns the combined result. Missing roots and
// unreadable directories are logged and skipped; the walk continues.
func (s *Scanner) Scan(roots []string) ScanResult {
	var result ScanResult

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			s.logger.Warn("cannot resolve scan root", slog.String("root", root), slog.Any("error", err))
			continue
		}

		info, err := os.Stat(abs)
		if err != nil {
			s.logger.Warn("scan root does not exist", slog.String("root", abs))
			continue
		}
		if !info.IsDir() {
			s.logger.Warn("scan root is not a directory", slog.String("root", abs))
			continue
		}

		if node := s.scanFolder(abs, 0); node != nil {
			result.Roots = append(result.Roots, node)
		}
	}

	for _, root := range result.Roots {
		result.TotalFolders += countNodes(root)
		if d := maxDepth(root); d > result.MaxDepthReached {
			result.MaxDepthReached = d
		}
	}

	s.logger.Debug("folder scan complete",
		slog.Int("roots", len(result.Roots)),
		slog.Int("folders", result.TotalFolders),
		slog.Int("max_depth", result.MaxDepthReached),
	)
	return result
}

func (s *Scanner) scanFolder(path string, depth int) *FolderNode {
	name := filepath.Base(path)
	if depth > 0 && s.shouldExclude(name) {
		return nil
	}

	node := &FolderNode{Name: name, Path: path, Depth: depth}

	if depth >= s.maxDepth {
		return node
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		s.logger.Debug("cannot read directory", slog.String("path", path), slog.Any("error", err))
		return node
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if child := s.scanFolder(filepath.Join(path, entry.Name()), depth+1); child != nil {
			node.Children = append(node.Children, child)
		}
	}

	return node
}

func (s *Scanner) shouldExclude(name string) bool {
	if excludedFolders[name] || s.extra[name] {
		return true
	}
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~")
}

// TreeString renders every root as an ASCII tree, separated by blank
// lines.
func (r ScanResult) TreeString() string {
	var trees []string
	for _, root := range r.Roots {
		trees = append(trees, root.TreeString())
	}
	return strings.Join(trees, "\n\n")
}

// AllPaths returns every folder as a slash-separated path relative to its
// root's parent, sorted.
func (r ScanResult) AllPaths() []string {
	var paths []string
	for _, root := range r.Roots {
		paths = append(paths, root.AllPaths(filepath.Dir(root.Path))...)
	}
	sort.Strings(paths)
	return paths
}

// PromptContext renders up to maxFolders paths as a bulleted list for the
// classifier prompt, with a trailing note when paths were elided.
func (r ScanResult) PromptContext(maxFolders int) string {
	paths := r.AllPaths()
	if len(paths) == 0 {
		return ""
	}

	truncatedNote := ""
	if maxFolders > 0 && len(paths) > maxFolders {
		elided := len(paths) - maxFolders
		paths = paths[:maxFolders]
		truncatedNote = fmt.Sprintf("\n... and %d more folders", elided)
	}

	var sb strings.Builder
	for i, p := range paths {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- " + p)
	}
	sb.WriteString(truncatedNote)
	return sb.String()
}

func countNodes(n *FolderNode) int {
	total := 1
	for _, c := range n.Children {
		total += countNodes(c)
	}
	return total
}

func maxDepth(n *FolderNode) int {
	deepest := n.Depth
	for _, c := range n.Children {
		if d := maxDepth(c); d > deepest {
			deepest = d
		}
	}
	return deepest
}
