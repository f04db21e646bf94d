package utils

import (
	"path/filepath"
	"strings"
)

// FindFilePathCharacters checks if a string contains illegal file path characters like ".." or the system path separator.
func FindFilePathCharacters(s string) bool {
	return strings.Contains(s, "..") || strings.ContainsRune(s, filepath.Separator) || strings.ContainsRune(s, '/')
}

// SplitMask splits a file mask into prefix and suffix by the "*" delimiter.
// Only simple masks with a single "*" are supported; a mask without "*" is returned as the prefix.
func SplitMask(fileMask string) (prefix string, suffix string) {
	splitMask := strings.SplitN(fileMask, "*", 2)
	if len(splitMask) > 1 {
		// If there's a "*", assign the parts accordingly
		prefix, suffix = splitMask[0], splitMask[1]
	} else {
		// If there's no "*", assign the entire fileMask to prefix and suffix to empty
		prefix = fileMask
		suffix = ""
	}
	return
}

// MatchMask reports whether name matches the mask: an exact name, or a single "*" mask like "*.csv".
func MatchMask(name string, fileMask string) bool {
	if !strings.Contains(fileMask, "*") {
		return name == fileMask
	}
	prefix, suffix := SplitMask(fileMask)
	return len(name) >= len(prefix)+len(suffix) && strings.HasPrefix(name, prefix) && strings.HasSuffix(name, suffix)
}
