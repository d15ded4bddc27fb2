// Package pathtree treats folders as "/"-delimited path strings. It never
// touches storage.
package pathtree

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Separator     = "/"
	MaxPathLength = 512
)

var (
	ErrEmptySegment   = errors.New("folder path contains an empty segment")
	ErrInvalidSegment = errors.New("folder path contains an invalid segment")
	ErrPathTooLong    = errors.New("folder path is too long")
)

// Normalize trims surrounding whitespace and slashes. Inner empty segments are
// kept so that Validate can reject them.
func Normalize(path string) string {
	return strings.Trim(strings.TrimSpace(path), Separator)
}

// Validate accepts the root ("") and any path whose segments are non-empty and
// not "." or "..".
func Validate(path string) error {
	if path == "" {
		return nil
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	for _, segment := range strings.Split(path, Separator) {
		if err := ValidateSegment(segment); err != nil {
			return err
		}
	}
	return nil
}

func ValidateSegment(segment string) error {
	if strings.TrimSpace(segment) == "" {
		return ErrEmptySegment
	}
	if segment == "." || segment == ".." || strings.ContainsAny(segment, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidSegment, segment)
	}
	return nil
}

// Clean normalizes and validates in one step.
func Clean(path string) (string, error) {
	normalized := Normalize(path)
	if err := Validate(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, Separator)
}

func Join(parent, name string) string {
	if parent == "" {
		return name
	}
	if name == "" {
		return parent
	}
	return parent + Separator + name
}

func Parent(path string) string {
	idx := strings.LastIndex(path, Separator)
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

func Base(path string) string {
	return path[strings.LastIndex(path, Separator)+1:]
}

// IsWithin reports whether path equals prefix or lies below it.
func IsWithin(path, prefix string) bool {
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+Separator)
}

// RenamePrefix maps a folder value under a renamed ancestor. Folders outside
// oldPath are returned unchanged.
func RenamePrefix(folder, oldPath, newPath string) string {
	if oldPath == "" {
		return folder
	}
	if folder == oldPath {
		return newPath
	}
	if strings.HasPrefix(folder, oldPath+Separator) {
		return Join(newPath, folder[len(oldPath)+1:])
	}
	return folder
}
