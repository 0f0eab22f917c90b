// Package sphinxconf reads the brace-sectioned configuration file of the
// search daemon:
//
//	searchd
//	{
//	    listen   = 9312
//	    pid_file = /var/run/searchd.pid
//	}
//
// Sections are "<type> [<name>] [: <parent>]" headers followed by a
// braced block of "key = value" lines. A trailing backslash continues a
// value on the next line and lines starting with '#' are comments.
package sphinxconf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/core-tools/hsu-searchd/pkg/errors"
)

// Section is one parsed block. Repeated keys keep every value in order.
type Section struct {
	Type     string
	Name     string
	Parent   string
	settings map[string][]string
}

// Get returns the last value of key.
func (s *Section) Get(key string) (string, bool) {
	values := s.settings[key]
	if len(values) == 0 {
		return "", false
	}
	return values[len(values)-1], true
}

// GetAll returns every value of key in file order.
func (s *Section) GetAll(key string) []string {
	return append([]string(nil), s.settings[key]...)
}

// Settings flattens the section to its last value per key.
func (s *Section) Settings() map[string]string {
	result := make(map[string]string, len(s.settings))
	for key, values := range s.settings {
		result[key] = values[len(values)-1]
	}
	return result
}

// Config is a whole parsed file.
type Config struct {
	Sections []*Section
}

// Find returns the first section of the given type and name. An empty
// name matches the unnamed section (searchd, indexer, common).
func (c *Config) Find(sectionType, name string) (*Section, bool) {
	for _, s := range c.Sections {
		if s.Type == sectionType && s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Lookup resolves the settings of a named section from a config file.
type Lookup interface {
	Section(path, section string) (map[string]string, error)
}

// FileLookup parses the file from disk on every call.
type FileLookup struct{}

func NewFileLookup() *FileLookup {
	return &FileLookup{}
}

// Section accepts "searchd" or "index main" style section specifiers.
func (l *FileLookup) Section(path, section string) (map[string]string, error) {
	config, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	sectionType, name, _ := strings.Cut(strings.TrimSpace(section), " ")
	s, ok := config.Find(sectionType, strings.TrimSpace(name))
	if !ok {
		return map[string]string{}, nil
	}
	return s.Settings(), nil
}

// ParseFile reads and parses path.
func ParseFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewConfigError("failed to open config file", err).WithContext("config_file", path)
	}
	defer f.Close()

	config, err := Parse(f)
	if err != nil {
		return nil, errors.NewConfigError("failed to parse config file "+path, err).WithContext("config_file", path)
	}
	return config, nil
}

// Parse reads a config from r.
func Parse(r io.Reader) (*Config, error) {
	lines, err := logicalLines(r)
	if err != nil {
		return nil, err
	}

	config := &Config{}
	var pending *Section // header seen, '{' not yet
	var current *Section // inside braces

	for _, ln := range lines {
		text := ln.text
		for text != "" {
			switch {
			case current != nil:
				if strings.HasPrefix(text, "}") {
					config.Sections = append(config.Sections, current)
					current = nil
					text = strings.TrimSpace(text[1:])
					continue
				}
				key, value, ok := strings.Cut(text, "=")
				if !ok {
					return nil, fmt.Errorf("line %d: expected 'key = value', got %q", ln.number, text)
				}
				key = strings.TrimSpace(key)
				if key == "" {
					return nil, fmt.Errorf("line %d: empty key", ln.number)
				}
				current.settings[key] = append(current.settings[key], strings.TrimSpace(value))
				text = ""

			case strings.HasPrefix(text, "{"):
				if pending == nil {
					return nil, fmt.Errorf("line %d: '{' without section header", ln.number)
				}
				current, pending = pending, nil
				text = strings.TrimSpace(text[1:])

			case strings.HasPrefix(text, "}"):
				return nil, fmt.Errorf("line %d: unexpected '}'", ln.number)

			default:
				if pending != nil {
					return nil, fmt.Errorf("line %d: section %q has no body", ln.number, pending.Type)
				}
				header := text
				rest := ""
				if i := strings.Index(text, "{"); i >= 0 {
					header, rest = text[:i], text[i:]
				}
				pending, err = parseHeader(header, ln.number)
				if err != nil {
					return nil, err
				}
				text = strings.TrimSpace(rest)
			}
		}
	}

	if current != nil {
		return nil, fmt.Errorf("section %q is not closed", current.Type)
	}
	if pending != nil {
		return nil, fmt.Errorf("section %q has no body", pending.Type)
	}

	if err := applyInheritance(config); err != nil {
		return nil, err
	}
	return config, nil
}

func parseHeader(header string, number int) (*Section, error) {
	header = strings.TrimSpace(header)
	name, parent, hasParent := strings.Cut(header, ":")
	fields := strings.Fields(name)
	if len(fields) == 0 || len(fields) > 2 {
		return nil, fmt.Errorf("line %d: malformed section header %q", number, header)
	}
	s := &Section{Type: fields[0], settings: make(map[string][]string)}
	if len(fields) == 2 {
		s.Name = fields[1]
	}
	if hasParent {
		s.Parent = strings.TrimSpace(parent)
		if s.Parent == "" {
			return nil, fmt.Errorf("line %d: empty parent in section header %q", number, header)
		}
	}
	return s, nil
}

// applyInheritance copies keys a child does not set from its parent.
// Parents must appear earlier in the file.
func applyInheritance(config *Config) error {
	for i, s := range config.Sections {
		if s.Parent == "" {
			continue
		}
		var parent *Section
		for _, candidate := range config.Sections[:i] {
			if candidate.Type == s.Type && candidate.Name == s.Parent {
				parent = candidate
			}
		}
		if parent == nil {
			return fmt.Errorf("%s %s: parent %q not found", s.Type, s.Name, s.Parent)
		}
		for key, values := range parent.settings {
			if _, ok := s.settings[key]; !ok {
				s.settings[key] = append([]string(nil), values...)
			}
		}
	}
	return nil
}

type logicalLine struct {
	number int
	text   string
}

func logicalLines(r io.Reader) ([]logicalLine, error) {
	var result []logicalLine
	var buf strings.Builder
	start := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	number := 0
	for scanner.Scan() {
		number++
		line := strings.TrimSpace(scanner.Text())
		if buf.Len() == 0 {
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			start = number
		}
		if strings.HasSuffix(line, `\`) {
			buf.WriteString(strings.TrimSpace(strings.TrimSuffix(line, `\`)))
			buf.WriteString(" ")
			continue
		}
		buf.WriteString(line)
		result = append(result, logicalLine{number: start, text: strings.TrimSpace(buf.String())})
		buf.Reset()
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if buf.Len() > 0 {
		result = append(result, logicalLine{number: start, text: strings.TrimSpace(buf.String())})
	}
	return result, nil
}
