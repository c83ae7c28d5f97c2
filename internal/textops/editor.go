package textops

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

const (
	filePermissionsConstant os.FileMode = 0o644

	fileSystemMissingMessageConstant = "file system not configured"

	readFileFailureTemplateConstant   = "reading %s: %w"
	writeFileFailureTemplateConstant  = "writing %s: %w"
	badPatternFailureTemplateConstant = "compiling pattern %q: %w"

	lineSeparatorConstant = "\n"
)

// ErrFileSystemNotConfigured indicates the editor was constructed without a filesystem.
var ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)

// Editor performs line- and pattern-oriented edits on text files.
type Editor struct {
	fileSystem afero.Fs
}

// NewEditor builds an Editor over the supplied filesystem.
func NewEditor(fileSystem afero.Fs) (*Editor, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	return &Editor{fileSystem: fileSystem}, nil
}

// ReplacePattern rewrites filePath with every match of pattern replaced by
// replacement and returns the number of replacements made.
func (editor *Editor) ReplacePattern(filePath string, pattern string, replacement string) (int, error) {
	compiledPattern, compileError := regexp.Compile(pattern)
	if compileError != nil {
		return 0, fmt.Errorf(badPatternFailureTemplateConstant, pattern, compileError)
	}

	fileContent, readError := afero.ReadFile(editor.fileSystem, filePath)
	if readError != nil {
		return 0, fmt.Errorf(readFileFailureTemplateConstant, filePath, readError)
	}

	matchCount := len(compiledPattern.FindAllIndex(fileContent, -1))
	if matchCount == 0 {
		return 0, nil
	}

	rewrittenContent := compiledPattern.ReplaceAll(fileContent, []byte(replacement))
	if writeError := afero.WriteFile(editor.fileSystem, filePath, rewrittenContent, filePermissionsConstant); writeError != nil {
		return 0, fmt.Errorf(writeFileFailureTemplateConstant, filePath, writeError)
	}
	return matchCount, nil
}

// FilterLines returns the lines of filePath matching pattern.
func (editor *Editor) FilterLines(filePath string, pattern string) ([]string, error) {
	compiledPattern, compileError := regexp.Compile(pattern)
	if compileError != nil {
		return nil, fmt.Errorf(badPatternFailureTemplateConstant, pattern, compileError)
	}

	fileContent, readError := afero.ReadFile(editor.fileSystem, filePath)
	if readError != nil {
		return nil, fmt.Errorf(readFileFailureTemplateConstant, filePath, readError)
	}

	matchedLines := []string{}
	for _, fileLine := range splitLines(string(fileContent)) {
		if compiledPattern.MatchString(fileLine) {
			matchedLines = append(matchedLines, fileLine)
		}
	}
	return matchedLines, nil
}

// EnsureLine appends requiredLine to filePath unless an identical line is
// already present. Returns true when the file was modified. A missing file is
// created holding just the line.
func (editor *Editor) EnsureLine(filePath string, requiredLine string) (bool, error) {
	fileContent, readError := afero.ReadFile(editor.fileSystem, filePath)
	if readError != nil && !os.IsNotExist(readError) {
		return false, fmt.Errorf(readFileFailureTemplateConstant, filePath, readError)
	}

	for _, fileLine := range splitLines(string(fileContent)) {
		if fileLine == requiredLine {
			return false, nil
		}
	}

	updatedContent := string(fileContent)
	if len(updatedContent) > 0 && !strings.HasSuffix(updatedContent, lineSeparatorConstant) {
		updatedContent += lineSeparatorConstant
	}
	updatedContent += requiredLine + lineSeparatorConstant

	if writeError := afero.WriteFile(editor.fileSystem, filePath, []byte(updatedContent), filePermissionsConstant); writeError != nil {
		return false, fmt.Errorf(writeFileFailureTemplateConstant, filePath, writeError)
	}
	return true, nil
}

func splitLines(fileContent string) []string {
	normalizedContent := strings.ReplaceAll(fileContent, "\r\n", lineSeparatorConstant)
	trimmedContent := strings.TrimSuffix(normalizedContent, lineSeparatorConstant)
	if len(trimmedContent) == 0 {
		return []string{}
	}
	return strings.Split(trimmedContent, lineSeparatorConstant)
}
