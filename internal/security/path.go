// Package security guards the paths results are written to and the URLs
// preview images are fetched from.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrPathTraversal = errors.New("path traversal detected")
	ErrAbsolutePath  = errors.New("absolute paths are not allowed")
	ErrReservedName  = errors.New("reserved filename not allowed")
	ErrLeadingHyphen = errors.New("filename cannot start with hyphen")

	windowsReservedNames = map[string]bool{
		"con": true, "prn": true, "aux": true, "nul": true,
		"com1": true, "com2": true, "com3": true, "com4": true,
		"com5": true, "com6": true, "com7": true, "com8": true, "com9": true,
		"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true,
		"lpt5": true, "lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
	}
)

// ValidateSavePath rejects paths that climb out of the working directory,
// reserved device names and option-like filenames. Absolute paths pass
// only when allowAbsolute is set, e.g. for a path typed at the terminal.
func ValidateSavePath(path string, allowAbsolute bool) error {
	if filepath.IsAbs(path) {
		if !allowAbsolute {
			return ErrAbsolutePath
		}
	} else if hasParentRef(path) {
		return ErrPathTraversal
	}

	base := filepath.Base(filepath.Clean(path))
	if isReserved(base) {
		return ErrReservedName
	}
	if strings.HasPrefix(base, "-") {
		return ErrLeadingHyphen
	}
	return nil
}

func hasParentRef(path string) bool {
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return true
		}
	}
	return false
}

func isReserved(base string) bool {
	name := strings.TrimSuffix(strings.ToLower(base), strings.ToLower(filepath.Ext(base)))
	return windowsReservedNames[name]
}

// SanitizeFilename turns an arbitrary label, such as a hairstyle name,
// into a single safe path element.
func SanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-",
		"*", "", "?", "", "\"", "",
		"<", "", ">", "", "|", "", "\x00", "",
	)
	sanitized := replacer.Replace(name)
	sanitized = strings.TrimLeft(sanitized, ".- ")
	sanitized = strings.TrimRight(sanitized, ". ")

	if isReserved(sanitized) {
		sanitized = sanitized + "_"
	}

	if sanitized == "" {
		sanitized = "file"
	}

	return sanitized
}

// OutputPath joins a sanitized filename onto dir.
func OutputPath(dir, name string) (string, error) {
	p := filepath.Join(dir, SanitizeFilename(name))
	if err := ValidateSavePath(p, true); err != nil {
		return "", fmt.Errorf("%s: %w", p, err)
	}
	return p, nil
}
