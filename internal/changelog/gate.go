package changelog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	sectionHeaderPrefixConstant         = "## "
	vNextLabelConstant                  = "vNext"
	unreleasedLabelConstant             = "Unreleased"
	releaseDateLayoutConstant           = "2006-01-02"
	vNextHeaderTemplateConstant         = "## [%s] / %s"
	unreleasedHeaderTemplateConstant    = "## [%s] - %s"
	linkReferenceTemplateConstant       = "[%s]: %s%s...%s"
	compareHeadReferenceConstant        = "HEAD"
	windowsLineEndingConstant           = "\r\n"
	unixLineEndingConstant              = "\n"
	defaultChangelogPermissions         = fs.FileMode(0o644)
	readChangelogErrorTemplate          = "read changelog %s: %w"
	writeChangelogErrorTemplate         = "write changelog %s: %w"
	finalizedMessageConstant            = "Finalized changelog"
	alreadyFinalizedMessageConstant     = "Changelog already finalized"
	restoredMessageConstant             = "Restored changelog"
	logFieldPathConstant                = "path"
	logFieldVersionConstant             = "version"
	logFieldCompareLinksUpdatedConstant = "compare_links_updated"
)

var (
	// ErrUnreleasedSectionMissing indicates the changelog has no vNext or Unreleased header.
	ErrUnreleasedSectionMissing = errors.New("changelog has no unreleased section")
	// ErrUnreleasedSectionEmpty indicates the unreleased section carries no notes.
	ErrUnreleasedSectionEmpty = errors.New("changelog unreleased section is empty")
	// ErrReleaseSectionMissing indicates no released section could supply notes.
	ErrReleaseSectionMissing = errors.New("changelog has no released section")
)

var (
	headerLabelPattern   = regexp.MustCompile(`^##\s+\[([^\]]+)\]`)
	linkReferencePattern = regexp.MustCompile(`^\[([^\]]+)\]:\s*(\S+)\s*$`)
	compareURLPattern    = regexp.MustCompile(`^(.*/compare/)(.+)\.\.\.([^.]+)$`)
)

// FileSystem abstracts the file operations the gate performs.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, permissions fs.FileMode) error
}

// OSFileSystem implements FileSystem on the host file system.
type OSFileSystem struct{}

// Stat returns file metadata.
func (OSFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// ReadFile returns the file contents.
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile replaces the file contents.
func (OSFileSystem) WriteFile(path string, data []byte, permissions fs.FileMode) error {
	return os.WriteFile(path, data, permissions)
}

// Finalization records a single rewrite of the changelog so it can be reviewed or undone.
type Finalization struct {
	Path     string
	Version  string
	Original []byte
	Updated  []byte
	// Changed is false when the version header already existed.
	Changed     bool
	permissions fs.FileMode
}

// Basename returns the changelog file name used in the finalize commit message.
func (finalization Finalization) Basename() string {
	return filepath.Base(finalization.Path)
}

// Gate finalizes and inspects Markdown changelogs that keep an unreleased section at the top.
type Gate struct {
	fileSystem FileSystem
	clock      func() time.Time
	logger     *zap.Logger
}

// NewGate constructs a Gate. Nil collaborators fall back to the host file system, the wall clock and a no-op logger.
func NewGate(fileSystem FileSystem, clock func() time.Time, logger *zap.Logger) *Gate {
	if fileSystem == nil {
		fileSystem = OSFileSystem{}
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{fileSystem: fileSystem, clock: clock, logger: logger}
}

// IsFinalized reports whether a header for the version exists.
func (gate *Gate) IsFinalized(path string, version string) (bool, error) {
	document, readError := gate.read(path)
	if readError != nil {
		return false, readError
	}
	return document.sectionIndex(version) >= 0, nil
}

// Finalize moves the unreleased notes under a dated header for the version.
// Running it again for the same version leaves the file untouched.
func (gate *Gate) Finalize(path string, version string) (Finalization, error) {
	document, readError := gate.read(path)
	if readError != nil {
		return Finalization{}, readError
	}

	finalization := Finalization{
		Path:        path,
		Version:     version,
		Original:    document.raw,
		Updated:     document.raw,
		permissions: document.permissions,
	}

	if document.sectionIndex(version) >= 0 {
		gate.logger.Info(alreadyFinalizedMessageConstant, zap.String(logFieldPathConstant, path), zap.String(logFieldVersionConstant, version))
		return finalization, nil
	}

	unreleasedIndex := document.unreleasedIndex()
	if unreleasedIndex < 0 {
		return Finalization{}, fmt.Errorf("%s: %w", path, ErrUnreleasedSectionMissing)
	}

	section := document.sections[unreleasedIndex]
	notes := trimBlankLines(document.lines[section.start+1 : section.end])
	if len(notes) == 0 {
		return Finalization{}, fmt.Errorf("%s: %w", path, ErrUnreleasedSectionEmpty)
	}

	headerTemplate := vNextHeaderTemplateConstant
	if strings.EqualFold(section.label, unreleasedLabelConstant) {
		headerTemplate = unreleasedHeaderTemplateConstant
	}
	releaseHeader := fmt.Sprintf(headerTemplate, version, gate.clock().Format(releaseDateLayoutConstant))

	rewritten := make([]string, 0, len(document.lines)+6)
	rewritten = append(rewritten, document.lines[:section.start+1]...)
	rewritten = append(rewritten, "", releaseHeader, "")
	rewritten = append(rewritten, notes...)
	rewritten = append(rewritten, "")
	rewritten = append(rewritten, document.lines[section.end:]...)

	rewritten, linksUpdated := updateCompareLinks(rewritten, section.label, version)

	finalization.Updated = document.render(rewritten)
	finalization.Changed = true

	if writeError := gate.fileSystem.WriteFile(path, finalization.Updated, document.permissions); writeError != nil {
		return Finalization{}, fmt.Errorf(writeChangelogErrorTemplate, path, writeError)
	}

	gate.logger.Info(finalizedMessageConstant,
		zap.String(logFieldPathConstant, path),
		zap.String(logFieldVersionConstant, version),
		zap.Bool(logFieldCompareLinksUpdatedConstant, linksUpdated),
	)
	return finalization, nil
}

// Restore writes back the content the changelog had before the finalization.
func (gate *Gate) Restore(finalization Finalization) error {
	if !finalization.Changed {
		return nil
	}
	permissions := finalization.permissions
	if permissions == 0 {
		permissions = defaultChangelogPermissions
	}
	if writeError := gate.fileSystem.WriteFile(finalization.Path, finalization.Original, permissions); writeError != nil {
		return fmt.Errorf(writeChangelogErrorTemplate, finalization.Path, writeError)
	}
	gate.logger.Info(restoredMessageConstant, zap.String(logFieldPathConstant, finalization.Path))
	return nil
}

// ExtractNotes returns the notes recorded under the version header.
// When the version has no section the newest released section is used.
func (gate *Gate) ExtractNotes(path string, version string) (string, error) {
	document, readError := gate.read(path)
	if readError != nil {
		return "", readError
	}

	sectionIndex := document.sectionIndex(version)
	if sectionIndex < 0 {
		sectionIndex = document.newestReleasedIndex()
	}
	if sectionIndex < 0 {
		return "", fmt.Errorf("%s: %w", path, ErrReleaseSectionMissing)
	}

	section := document.sections[sectionIndex]
	notes := trimBlankLines(document.lines[section.start+1 : section.end])
	return strings.Join(notes, unixLineEndingConstant), nil
}

func (gate *Gate) read(path string) (changelogDocument, error) {
	permissions := defaultChangelogPermissions
	if fileInfo, statError := gate.fileSystem.Stat(path); statError == nil {
		permissions = fileInfo.Mode().Perm()
	}

	content, readError := gate.fileSystem.ReadFile(path)
	if readError != nil {
		return changelogDocument{}, fmt.Errorf(readChangelogErrorTemplate, path, readError)
	}
	document := parseDocument(content)
	document.permissions = permissions
	return document, nil
}

type changelogSection struct {
	label string
	start int
	end   int
}

type changelogDocument struct {
	raw          []byte
	lines        []string
	sections     []changelogSection
	lineEnding   string
	trailingLine bool
	permissions  fs.FileMode
}

func parseDocument(content []byte) changelogDocument {
	text := string(content)
	lineEnding := unixLineEndingConstant
	if strings.Contains(text, windowsLineEndingConstant) {
		lineEnding = windowsLineEndingConstant
		text = strings.ReplaceAll(text, windowsLineEndingConstant, unixLineEndingConstant)
	}
	trailingLine := strings.HasSuffix(text, unixLineEndingConstant)
	text = strings.TrimSuffix(text, unixLineEndingConstant)

	document := changelogDocument{
		raw:          content,
		lines:        strings.Split(text, unixLineEndingConstant),
		lineEnding:   lineEnding,
		trailingLine: trailingLine,
	}

	for lineIndex, line := range document.lines {
		if !strings.HasPrefix(line, sectionHeaderPrefixConstant) {
			continue
		}
		label := ""
		if match := headerLabelPattern.FindStringSubmatch(line); match != nil {
			label = strings.TrimSpace(match[1])
		}
		document.sections = append(document.sections, changelogSection{label: label, start: lineIndex})
	}

	for sectionIndex := range document.sections {
		sectionEnd := len(document.lines)
		if sectionIndex+1 < len(document.sections) {
			sectionEnd = document.sections[sectionIndex+1].start
		}
		for lineIndex := document.sections[sectionIndex].start + 1; lineIndex < sectionEnd; lineIndex++ {
			if linkReferencePattern.MatchString(document.lines[lineIndex]) {
				sectionEnd = lineIndex
				break
			}
		}
		document.sections[sectionIndex].end = sectionEnd
	}
	return document
}

func (document changelogDocument) sectionIndex(label string) int {
	trimmedLabel := strings.TrimPrefix(strings.TrimSpace(label), "v")
	for sectionIndex, section := range document.sections {
		if isUnreleasedLabel(section.label) {
			continue
		}
		if strings.TrimPrefix(section.label, "v") == trimmedLabel {
			return sectionIndex
		}
	}
	return -1
}

func (document changelogDocument) unreleasedIndex() int {
	for sectionIndex, section := range document.sections {
		if isUnreleasedLabel(section.label) {
			return sectionIndex
		}
	}
	return -1
}

func (document changelogDocument) newestReleasedIndex() int {
	for sectionIndex, section := range document.sections {
		if len(section.label) > 0 && !isUnreleasedLabel(section.label) {
			return sectionIndex
		}
	}
	return -1
}

func (document changelogDocument) render(lines []string) []byte {
	text := strings.Join(lines, unixLineEndingConstant)
	if document.trailingLine {
		text += unixLineEndingConstant
	}
	if document.lineEnding != unixLineEndingConstant {
		text = strings.ReplaceAll(text, unixLineEndingConstant, document.lineEnding)
	}
	return []byte(text)
}

func isUnreleasedLabel(label string) bool {
	return strings.EqualFold(label, vNextLabelConstant) || strings.EqualFold(label, unreleasedLabelConstant)
}

// updateCompareLinks rewrites "[vNext]: .../compare/1.3.0...HEAD" to start at the new version
// and adds a link reference for the new version itself.
func updateCompareLinks(lines []string, unreleasedLabel string, version string) ([]string, bool) {
	for lineIndex, line := range lines {
		match := linkReferencePattern.FindStringSubmatch(line)
		if match == nil || !strings.EqualFold(match[1], unreleasedLabel) {
			continue
		}
		compareMatch := compareURLPattern.FindStringSubmatch(match[2])
		if compareMatch == nil {
			return lines, false
		}
		compareBase, previousVersion := compareMatch[1], compareMatch[2]

		updated := make([]string, 0, len(lines)+1)
		updated = append(updated, lines[:lineIndex]...)
		updated = append(updated,
			fmt.Sprintf(linkReferenceTemplateConstant, match[1], compareBase, version, compareHeadReferenceConstant),
			fmt.Sprintf(linkReferenceTemplateConstant, version, compareBase, previousVersion, version),
		)
		updated = append(updated, lines[lineIndex+1:]...)
		return updated, true
	}
	return lines, false
}

func trimBlankLines(lines []string) []string {
	start := 0
	for start < len(lines) && len(strings.TrimSpace(lines[start])) == 0 {
		start++
	}
	end := len(lines)
	for end > start && len(strings.TrimSpace(lines[end-1])) == 0 {
		end--
	}
	trimmed := make([]string, end-start)
	copy(trimmed, lines[start:end])
	return trimmed
}
