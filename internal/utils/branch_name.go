package utils

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxBranchNameByteLength is the maximum length for a branch name
	// Git refs have a max length of 256 bytes, minus 11 for "refs/heads/"
	MaxBranchNameByteLength = 245
)

var (
	// BranchNameReplaceRegex matches characters that are not valid in branch names
	// Valid characters: letters, numbers, -, _, /, .
	BranchNameReplaceRegex = regexp.MustCompile(`[^-_/.a-zA-Z0-9]+`)

	// BranchNameIgnoreRegex matches trailing slashes and dots that should be removed
	BranchNameIgnoreRegex = regexp.MustCompile(`[/.]*$`)

	hyphenRegex = regexp.MustCompile(`-+`)
)

// SanitizeBranchName sanitizes a branch name by replacing invalid characters
func SanitizeBranchName(name string) string {
	// Remove trailing slashes and dots
	name = BranchNameIgnoreRegex.ReplaceAllString(name, "")

	// Replace invalid characters with hyphens
	name = BranchNameReplaceRegex.ReplaceAllString(name, "-")
	name = strings.ReplaceAll(name, "..", "-")
	name = hyphenRegex.ReplaceAllString(name, "-")

	// Trim leading/trailing hyphens
	name = strings.Trim(name, "-")

	// Limit length
	if len(name) > MaxBranchNameByteLength {
		name = name[:MaxBranchNameByteLength]
		name = strings.TrimSuffix(name, "-")
	}

	return name
}

// ValidateBranchName reports whether name can be pushed as refs/heads/<name>.
// It follows the rules of "git check-ref-format --branch".
func ValidateBranchName(name string) error {
	name = strings.TrimPrefix(name, "refs/heads/")
	switch {
	case name == "":
		return fmt.Errorf("branch name is empty")
	case len(name) > MaxBranchNameByteLength:
		return fmt.Errorf("branch name %q is too long", name)
	case name == "@":
		return fmt.Errorf("branch name %q is reserved", name)
	case strings.HasPrefix(name, "-"):
		return fmt.Errorf("branch name %q starts with a dash", name)
	case strings.HasSuffix(name, "/") || strings.HasSuffix(name, "."):
		return fmt.Errorf("branch name %q ends with %q", name, name[len(name)-1:])
	case strings.Contains(name, ".."), strings.Contains(name, "@{"), strings.Contains(name, "//"):
		return fmt.Errorf("branch name %q contains an invalid sequence", name)
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(" ~^:?*[\\", r) {
			return fmt.Errorf("branch name %q contains invalid character %q", name, r)
		}
	}
	for _, component := range strings.Split(name, "/") {
		if strings.HasPrefix(component, ".") || strings.HasSuffix(component, ".lock") {
			return fmt.Errorf("branch name %q has an invalid component %q", name, component)
		}
	}
	return nil
}
