package envpath

import (
	"errors"
	"strings"
)

const environmentSnapshotMissingMessageConstant = "environment snapshot not configured"

// ErrEnvironmentSnapshotNotConfigured indicates a reconciler was constructed
// without an environment snapshot.
var ErrEnvironmentSnapshotNotConfigured = errors.New(environmentSnapshotMissingMessageConstant)

// EnvironmentSnapshot resolves variable names to their defined values. Lookups
// are case-insensitive, matching Windows environment semantics.
type EnvironmentSnapshot map[string]string

// Resolve returns the value bound to variableName, ignoring case.
func (snapshot EnvironmentSnapshot) Resolve(variableName string) (string, bool) {
	for definedName, definedValue := range snapshot {
		if strings.EqualFold(definedName, variableName) {
			return definedValue, true
		}
	}
	return "", false
}

// Reconciler rewrites a Path registry string so that every reachable
// directory appears exactly once, symbolic %VAR% forms are preferred over
// literal paths, and the serialization order is deterministic.
type Reconciler struct {
	snapshot EnvironmentSnapshot
}

// NewReconciler builds a reconciler over the supplied environment snapshot.
func NewReconciler(snapshot EnvironmentSnapshot) (*Reconciler, error) {
	if snapshot == nil {
		return nil, ErrEnvironmentSnapshotNotConfigured
	}
	return &Reconciler{snapshot: snapshot}, nil
}

// Reconcile rewrites currentPath so that variableName's value is reachable
// through the %variableName% alias and the full list satisfies the
// deduplication and ordering guarantees. Reconciling an already reconciled
// string returns it byte for byte.
func (reconciler *Reconciler) Reconcile(currentPath string, variableName string, variableValue string) string {
	renderedEntries := splitPathList(currentPath)
	renderedEntries = stripLiteralValue(renderedEntries, variableValue)
	renderedEntries = ensureSymbolicAlias(renderedEntries, variableName)
	return reconciler.normalize(renderedEntries)
}

// Normalize applies canonicalization, deduplication, and group ordering to an
// existing Path string without introducing a new alias.
func (reconciler *Reconciler) Normalize(currentPath string) string {
	return reconciler.normalize(splitPathList(currentPath))
}

func (reconciler *Reconciler) normalize(renderedEntries []string) string {
	aliasByResolvedPath := reconciler.buildReverseAliasMap(renderedEntries)

	canonicalEntries := make([]pathEntry, 0, len(renderedEntries))
	seenResolvedPaths := make(map[string]struct{}, len(renderedEntries))
	seenUnresolvedForms := make(map[string]struct{})
	for _, renderedEntry := range renderedEntries {
		canonicalRendered := canonicalizeLiteralEntry(renderedEntry, aliasByResolvedPath)
		resolvedLower := reconciler.resolveEntry(canonicalRendered)

		if len(resolvedLower) > 0 {
			if _, alreadySeen := seenResolvedPaths[resolvedLower]; alreadySeen {
				continue
			}
			seenResolvedPaths[resolvedLower] = struct{}{}
		} else {
			unresolvedForm := strings.ToLower(canonicalRendered)
			if _, alreadySeen := seenUnresolvedForms[unresolvedForm]; alreadySeen {
				continue
			}
			seenUnresolvedForms[unresolvedForm] = struct{}{}
		}

		canonicalEntries = append(canonicalEntries, pathEntry{
			rendered:      canonicalRendered,
			resolvedLower: resolvedLower,
			group:         classifyEntry(canonicalRendered, resolvedLower),
		})
	}

	sortEntries(canonicalEntries)

	renderedResult := make([]string, 0, len(canonicalEntries))
	for _, canonicalEntry := range canonicalEntries {
		renderedResult = append(renderedResult, canonicalEntry.rendered)
	}
	return strings.Join(renderedResult, pathListSeparatorConstant)
}

// buildReverseAliasMap maps every resolvable variable referenced in the entry
// list to its %VAR% token, keyed by the normalized resolved path. The first
// reference wins when two variables resolve to the same directory.
func (reconciler *Reconciler) buildReverseAliasMap(renderedEntries []string) map[string]string {
	aliasByResolvedPath := make(map[string]string)
	for _, renderedEntry := range renderedEntries {
		referencedName, _, isSymbolic := symbolicVariableName(renderedEntry)
		if !isSymbolic {
			continue
		}
		resolvedValue, resolved := reconciler.snapshot.Resolve(referencedName)
		if !resolved {
			continue
		}
		normalizedResolved := normalizeResolvedPath(resolvedValue)
		if _, alreadyMapped := aliasByResolvedPath[normalizedResolved]; alreadyMapped {
			continue
		}
		aliasByResolvedPath[normalizedResolved] = renderSymbolicToken(referencedName)
	}
	return aliasByResolvedPath
}

// resolveEntry returns the normalized lowercase literal path an entry stands
// for, expanding a leading %VAR% reference. Entries referencing undefined
// variables resolve to the empty string; they are preserved verbatim but
// duplicates of the same rendered form still collapse.
func (reconciler *Reconciler) resolveEntry(renderedEntry string) string {
	referencedName, remainder, isSymbolic := symbolicVariableName(renderedEntry)
	if !isSymbolic {
		return normalizeResolvedPath(renderedEntry)
	}
	resolvedValue, resolved := reconciler.snapshot.Resolve(referencedName)
	if !resolved {
		return ""
	}
	return normalizeResolvedPath(resolvedValue + remainder)
}

// canonicalizeLiteralEntry rewrites a literal entry to %VAR%\suffix when a
// known variable's resolved value is a prefix of it. The longest matching
// variable value wins so nested variables canonicalize to the tightest alias.
func canonicalizeLiteralEntry(renderedEntry string, aliasByResolvedPath map[string]string) string {
	if isSymbolicReference(renderedEntry) {
		return renderedEntry
	}
	normalizedEntry := normalizeResolvedPath(renderedEntry)
	longestMatchedPrefix := ""
	matchedAlias := ""
	for resolvedPrefix, aliasToken := range aliasByResolvedPath {
		if len(resolvedPrefix) <= len(longestMatchedPrefix) {
			continue
		}
		if normalizedEntry == resolvedPrefix || strings.HasPrefix(normalizedEntry, resolvedPrefix+backslashSeparatorConstant) {
			longestMatchedPrefix = resolvedPrefix
			matchedAlias = aliasToken
		}
	}
	if len(matchedAlias) == 0 {
		return renderedEntry
	}
	trimmedEntry := strings.TrimRight(renderedEntry, backslashSeparatorConstant)
	return matchedAlias + trimmedEntry[len(longestMatchedPrefix):]
}

func stripLiteralValue(renderedEntries []string, literalValue string) []string {
	normalizedLiteral := normalizeResolvedPath(literalValue)
	strippedEntries := make([]string, 0, len(renderedEntries))
	for _, renderedEntry := range renderedEntries {
		if !isSymbolicReference(renderedEntry) && normalizeResolvedPath(renderedEntry) == normalizedLiteral {
			continue
		}
		strippedEntries = append(strippedEntries, renderedEntry)
	}
	return strippedEntries
}

// ensureSymbolicAlias prepends %variableName% unless the list already carries
// it. Prepending keeps the alias ahead of rival entries during first-seen
// deduplication; final position is decided by the group sort.
func ensureSymbolicAlias(renderedEntries []string, variableName string) []string {
	aliasToken := renderSymbolicToken(variableName)
	for _, renderedEntry := range renderedEntries {
		if strings.EqualFold(renderedEntry, aliasToken) {
			return renderedEntries
		}
	}
	return append([]string{aliasToken}, renderedEntries...)
}

func splitPathList(pathListValue string) []string {
	splitSegments := strings.Split(pathListValue, pathListSeparatorConstant)
	renderedEntries := make([]string, 0, len(splitSegments))
	for _, splitSegment := range splitSegments {
		trimmedSegment := strings.TrimSpace(splitSegment)
		if len(trimmedSegment) == 0 {
			continue
		}
		renderedEntries = append(renderedEntries, trimmedSegment)
	}
	return renderedEntries
}

func normalizeResolvedPath(literalPath string) string {
	loweredPath := strings.ToLower(strings.TrimSpace(literalPath))
	return strings.TrimRight(loweredPath, backslashSeparatorConstant)
}

func renderSymbolicToken(variableName string) string {
	return percentDelimiterConstant + variableName + percentDelimiterConstant
}
