package envpath

import (
	"sort"
	"strings"
)

const (
	pathListSeparatorConstant          = ";"
	percentDelimiterConstant           = "%"
	backslashSeparatorConstant         = `\`
	systemRootPrefixLowerConstant      = `c:\windows\`
	systemRootExactLowerConstant       = `c:\windows`
	programFilesPrefixLowerConstant    = `c:\program files\`
	programFilesX86PrefixLowerConstant = `c:\program files (x86)\`
	programFilesExactLowerConstant     = `c:\program files`
	programFilesX86ExactLowerConstant  = `c:\program files (x86)`
	systemDrivePrefixLowerConstant     = `c:\`
)

// entryGroup orders entries into the fixed serialization buckets. Lower
// groups serialize first.
type entryGroup int

const (
	groupSystemRoot entryGroup = iota
	groupProgramFiles
	groupProgramFilesX86
	groupSystemDrive
	groupOtherDrive
	groupSymbolic
	groupUnrecognized
)

// pathEntry is a single semicolon-delimited Path element together with the
// resolution metadata the reconciler needs for matching and ordering.
type pathEntry struct {
	// rendered is the exact text written back to the registry.
	rendered string
	// resolvedLower is the lowercase literal path after expanding a leading
	// %VAR% reference. Empty when the referenced variable is undefined.
	resolvedLower string
	group         entryGroup
}

func isDriveLetterPath(candidate string) bool {
	if len(candidate) < 3 {
		return false
	}
	driveLetter := candidate[0]
	letterIsAlphabetic := (driveLetter >= 'a' && driveLetter <= 'z') || (driveLetter >= 'A' && driveLetter <= 'Z')
	return letterIsAlphabetic && candidate[1] == ':' && candidate[2] == '\\'
}

func isSymbolicReference(candidate string) bool {
	if !strings.HasPrefix(candidate, percentDelimiterConstant) {
		return false
	}
	closingIndex := strings.Index(candidate[1:], percentDelimiterConstant)
	return closingIndex > 0
}

// symbolicVariableName returns the VAR of a leading %VAR% reference and the
// remainder of the entry after the closing percent sign.
func symbolicVariableName(candidate string) (string, string, bool) {
	if !strings.HasPrefix(candidate, percentDelimiterConstant) {
		return "", "", false
	}
	closingIndex := strings.Index(candidate[1:], percentDelimiterConstant)
	if closingIndex <= 0 {
		return "", "", false
	}
	variableName := candidate[1 : 1+closingIndex]
	remainder := candidate[2+closingIndex:]
	return variableName, remainder, true
}

func classifyEntry(rendered string, resolvedLower string) entryGroup {
	if isSymbolicReference(rendered) {
		return groupSymbolic
	}
	loweredRendered := strings.ToLower(rendered)
	switch {
	case strings.HasPrefix(loweredRendered, systemRootPrefixLowerConstant), loweredRendered == systemRootExactLowerConstant:
		return groupSystemRoot
	case strings.HasPrefix(loweredRendered, programFilesX86PrefixLowerConstant), loweredRendered == programFilesX86ExactLowerConstant:
		return groupProgramFilesX86
	case strings.HasPrefix(loweredRendered, programFilesPrefixLowerConstant), loweredRendered == programFilesExactLowerConstant:
		return groupProgramFiles
	case strings.HasPrefix(loweredRendered, systemDrivePrefixLowerConstant):
		return groupSystemDrive
	case isDriveLetterPath(loweredRendered):
		return groupOtherDrive
	default:
		return groupUnrecognized
	}
}

// sortEntries orders entries group-by-group, reverse alphabetically on the
// lowercase rendered text inside each group. The ordering is total, so two
// reconciliation passes over the same membership serialize identically.
func sortEntries(entries []pathEntry) {
	sort.SliceStable(entries, func(firstIndex int, secondIndex int) bool {
		firstEntry := entries[firstIndex]
		secondEntry := entries[secondIndex]
		if firstEntry.group != secondEntry.group {
			return firstEntry.group < secondEntry.group
		}
		return strings.ToLower(firstEntry.rendered) > strings.ToLower(secondEntry.rendered)
	})
}
