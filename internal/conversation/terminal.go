package conversation

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Terminal is a Channel on top of a plain reader and writer, e.g. stdin and stderr
// of a pam_exec helper.
type Terminal struct {
	out io.Writer
	in  *bufio.Reader
}

func NewTerminal(out io.Writer, in io.Reader) *Terminal {
	return &Terminal{out: out, in: bufio.NewReader(in)}
}

func (t *Terminal) Info(message string) error {
	if _, err := fmt.Fprintln(t.out, message); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	return nil
}

func (t *Terminal) Prompt(message string) (string, error) {
	if _, err := fmt.Fprint(t.out, message+" "); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}

	line, err := t.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("read answer: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}
