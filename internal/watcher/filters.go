package watcher

import (
	"path/filepath"
	"strings"
)

// WatchedExtensions is the default set of file types the organizing
// pipeline handles.
var WatchedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".pdf":  true,
	".docx": true,
}

// ignoredExtensions are temp files and partial downloads.
var ignoredExtensions = map[string]bool{
	".tmp":         true,
	".temp":        true,
	".part":        true,
	".partial":     true,
	".crdownload":  true, // Chrome
	".download":    true, // Safari
	".opdownload":  true, // Opera
	".aria2":       true,
	".unconfirmed": true,
	".swp":         true, // Vim swap files
	".swo":         true,
	".swn":         true,
	".bak":         true,
	".lock":        true,
}

// ignoredNames are exact system filenames.
var ignoredNames = map[string]bool{
	".DS_Store":   true,
	"Thumbs.db":   true,
	"desktop.ini": true,
	".gitignore":  true,
	".gitkeep":    true,
}

// ShouldIgnore reports whether a filename is a hidden, system, temp, or
// backup file that the watcher never tracks.
func ShouldIgnore(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	if ignoredNames[name] {
		return true
	}
	if ignoredExtensions[strings.ToLower(filepath.Ext(name))] {
		return true
	}
	return strings.HasSuffix(name, "~")
}
