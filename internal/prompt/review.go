package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/tyemirov/gitflow/internal/changelog"
)

const (
	reviewHeaderTemplateConstant = "Review %s for %s"
	reviewQuestionConstant       = "Commit the finalized changelog? [y/N]: "
	unchangedNoticeConstant      = "(no changes)"
	diffInsertPrefixConstant     = "+ "
	diffDeletePrefixConstant     = "- "
	diffEqualPrefixConstant      = "  "
	diffElisionConstant          = "  ..."
	defaultContextLineCount      = 2
	reviewWriteErrorTemplate     = "write review: %w"
)

// ErrReviewPrompterNotConfigured indicates the presenter has no prompter to collect the decision.
var ErrReviewPrompterNotConfigured = errors.New("review prompter not configured")

var (
	reviewHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	insertLineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	deleteLineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	contextLineStyle  = lipgloss.NewStyle().Faint(true)
)

// ReviewPresenter shows the finalized changelog diff and asks the operator to accept it.
type ReviewPresenter struct {
	prompter     ConfirmationPrompter
	output       io.Writer
	contextLines int
}

// NewReviewPresenter constructs a presenter that writes the diff to output.
func NewReviewPresenter(prompter ConfirmationPrompter, output io.Writer) (*ReviewPresenter, error) {
	if prompter == nil {
		return nil, ErrReviewPrompterNotConfigured
	}
	if output == nil {
		output = io.Discard
	}
	return &ReviewPresenter{prompter: prompter, output: output, contextLines: defaultContextLineCount}, nil
}

// Review renders the changes and blocks until the operator answers.
func (presenter *ReviewPresenter) Review(executionContext context.Context, finalization changelog.Finalization) (bool, error) {
	header := reviewHeaderStyle.Render(fmt.Sprintf(reviewHeaderTemplateConstant, finalization.Basename(), finalization.Version))
	body := RenderLineDiff(string(finalization.Original), string(finalization.Updated), presenter.contextLines)

	if _, writeError := fmt.Fprintf(presenter.output, "%s\n%s\n", header, body); writeError != nil {
		return false, fmt.Errorf(reviewWriteErrorTemplate, writeError)
	}
	return presenter.prompter.Confirm(executionContext, reviewQuestionConstant)
}

// RenderLineDiff produces a line-oriented diff keeping contextLines unchanged lines around each change.
func RenderLineDiff(original string, updated string, contextLines int) string {
	differ := diffmatchpatch.New()
	originalChars, updatedChars, lineArray := differ.DiffLinesToChars(original, updated)
	diffs := differ.DiffCharsToLines(differ.DiffMain(originalChars, updatedChars, false), lineArray)

	var builder strings.Builder
	changed := false
	for diffIndex, diff := range diffs {
		lines := splitDiffLines(diff.Text)
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			changed = true
			for _, line := range lines {
				builder.WriteString(insertLineStyle.Render(diffInsertPrefixConstant+line) + "\n")
			}
		case diffmatchpatch.DiffDelete:
			changed = true
			for _, line := range lines {
				builder.WriteString(deleteLineStyle.Render(diffDeletePrefixConstant+line) + "\n")
			}
		default:
			writeContext(&builder, lines, contextLines, diffIndex > 0, diffIndex < len(diffs)-1)
		}
	}

	if !changed {
		return unchangedNoticeConstant
	}
	return strings.TrimSuffix(builder.String(), "\n")
}

// writeContext keeps the unchanged lines adjacent to a change and elides the rest.
func writeContext(builder *strings.Builder, lines []string, contextLines int, afterChange bool, beforeChange bool) {
	keep := make([]bool, len(lines))
	for lineIndex := range lines {
		if afterChange && lineIndex < contextLines {
			keep[lineIndex] = true
		}
		if beforeChange && lineIndex >= len(lines)-contextLines {
			keep[lineIndex] = true
		}
	}

	elided := false
	for lineIndex, line := range lines {
		if !keep[lineIndex] {
			if !elided {
				builder.WriteString(contextLineStyle.Render(diffElisionConstant) + "\n")
				elided = true
			}
			continue
		}
		elided = false
		builder.WriteString(contextLineStyle.Render(diffEqualPrefixConstant+line) + "\n")
	}
}

func splitDiffLines(text string) []string {
	trimmed := strings.TrimSuffix(text, "\n")
	if len(trimmed) == 0 && len(text) == 0 {
		return nil
	}
	return strings.Split(trimmed, "\n")
}
