package passphrase

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Source resolves a secret once, from an environment variable when set and
// otherwise by prompting on the controlling terminal.
type Source struct {
	envVar string
	label  string

	once  sync.Once
	value string
	err   error

	lookupEnv func(string) (string, bool)
	prompt    func(label string) (string, error)
}

// NewSource returns a Source reading envVar before prompting for label.
func NewSource(envVar, label string) *Source {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "secret"
	}
	return &Source{
		envVar:    strings.TrimSpace(envVar),
		label:     label,
		lookupEnv: os.LookupEnv,
		prompt:    promptTerminal,
	}
}

// Get returns the cached secret, resolving it on first use. Whitespace-only
// values are rejected.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		if s.envVar != "" {
			if value, ok := s.lookupEnv(s.envVar); ok {
				if strings.TrimSpace(value) == "" {
					s.err = fmt.Errorf("%s is set but empty", s.envVar)
					return
				}
				s.value = value
				return
			}
		}
		value, err := s.prompt(s.label)
		if err != nil {
			if s.envVar != "" {
				s.err = fmt.Errorf("%s required; set %s or run interactively: %w", s.label, s.envVar, err)
			} else {
				s.err = err
			}
			return
		}
		if strings.TrimSpace(value) == "" {
			s.err = fmt.Errorf("%s cannot be empty", s.label)
			return
		}
		s.value = value
	})
	return s.value, s.err
}

var errNoTerminal = errors.New("no terminal available")

func promptTerminal(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errNoTerminal
	}
	return readHidden(os.Stderr, fd, label)
}

func readHidden(out io.Writer, fd int, label string) (string, error) {
	fmt.Fprintf(out, "Enter %s: ", label)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", label, err)
	}
	return string(raw), nil
}
