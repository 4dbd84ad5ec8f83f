package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atinyakov/newsletter/internal/secret"
	"golang.org/x/term"
)

// readPassword is replaced in tests to avoid touching the terminal.
var readPassword = term.ReadPassword

// Prompter asks for values on an interactive terminal.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{scanner: bufio.NewScanner(in), out: out}
}

func (p *Prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

// PromptIssue asks for the title and both bodies of an issue. Each body is
// either a path to a file or, when left empty, typed in on one line.
func (p *Prompter) PromptIssue() (Issue, error) {
	title, err := p.ask("Enter title: ")
	if err != nil {
		return Issue{}, err
	}
	if title == "" {
		return Issue{}, errors.New("title must not be empty")
	}

	html, err := p.promptBody("HTML")
	if err != nil {
		return Issue{}, err
	}
	text, err := p.promptBody("text")
	if err != nil {
		return Issue{}, err
	}
	return Issue{Title: title, Content: IssueContent{HTML: html, Text: text}}, nil
}

func (p *Prompter) promptBody(kind string) (string, error) {
	path, err := p.ask(fmt.Sprintf("Enter %s file path to load (leave empty for manual input): ", kind))
	if err != nil {
		return "", err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s body: %w", kind, err)
		}
		return string(data), nil
	}
	return p.ask(fmt.Sprintf("Enter %s body: ", kind))
}

// PromptPassword reads the admin password without echo.
func (p *Prompter) PromptPassword() (secret.Value, error) {
	fmt.Fprint(p.out, "Enter password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return secret.Value{}, fmt.Errorf("read password: %w", err)
	}
	v := secret.FromBytes(pw)
	for i := range pw {
		pw[i] = 0
	}
	return v, nil
}
