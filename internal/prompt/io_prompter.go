package prompt

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

const (
	affirmativeShortResponseConstant = "y"
	affirmativeLongResponseConstant  = "yes"
)

// ErrPrompterInputNotConfigured indicates the prompter has nothing to read answers from.
var ErrPrompterInputNotConfigured = errors.New("confirmation input not configured")

// ConfirmationPrompter asks the operator a yes/no question and blocks until answered.
type ConfirmationPrompter interface {
	Confirm(executionContext context.Context, prompt string) (bool, error)
}

// IOConfirmationPrompter reads confirmation responses from an io.Reader.
type IOConfirmationPrompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewIOConfirmationPrompter constructs a prompter from the provided reader and writer.
func NewIOConfirmationPrompter(input io.Reader, output io.Writer) *IOConfirmationPrompter {
	if input == nil {
		return &IOConfirmationPrompter{writer: output}
	}
	return &IOConfirmationPrompter{reader: bufio.NewReader(input), writer: output}
}

type confirmationAnswer struct {
	response string
	err      error
}

// Confirm writes the prompt and waits for a line of input. Only "y" and "yes" confirm.
// A cancelled context abandons the wait and returns the context error.
func (prompter *IOConfirmationPrompter) Confirm(executionContext context.Context, prompt string) (bool, error) {
	if prompter.reader == nil {
		return false, ErrPrompterInputNotConfigured
	}
	if prompter.writer != nil {
		if _, writeError := io.WriteString(prompter.writer, prompt); writeError != nil {
			return false, writeError
		}
	}

	answers := make(chan confirmationAnswer, 1)
	go func() {
		response, readError := prompter.reader.ReadString('\n')
		answers <- confirmationAnswer{response: response, err: readError}
	}()

	select {
	case <-executionContext.Done():
		return false, executionContext.Err()
	case answer := <-answers:
		if answer.err != nil && !errors.Is(answer.err, io.EOF) {
			return false, answer.err
		}
		normalizedResponse := strings.TrimSpace(strings.ToLower(answer.response))
		switch normalizedResponse {
		case affirmativeShortResponseConstant, affirmativeLongResponseConstant:
			return true, nil
		default:
			return false, nil
		}
	}
}
