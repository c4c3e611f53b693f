// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gcode-corrector/pkg/errors"
)

// Config holds parsed sections and records which ones were read.
type Config struct {
	mu       sync.RWMutex
	sections map[string]*Section
	order    []string

	accessedSections map[string]struct{}
}

// New creates a new empty Config.
func New() *Config {
	return &Config{
		sections:         make(map[string]*Section),
		accessedSections: make(map[string]struct{}),
	}
}

// Load reads a configuration file. Files ending in .yaml or .yml are
// decoded as YAML; anything else uses the INI format, which supports
// [include path] directives.
func Load(path string) (*Config, error) {
	if isYAML(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.ReadError(path, err)
		}
		return loadYAML(path, data)
	}

	c := New()
	visited := make(map[string]bool)
	if err := c.parseFile(path, visited); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadString parses INI configuration from a string. Include
// directives are not allowed.
func LoadString(data string) (*Config, error) {
	c := New()
	if err := c.parse(strings.NewReader(data), "<string>", "", nil); err != nil {
		return nil, err
	}
	return c, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// parseFile parses a config file and follows its include directives.
func (c *Config) parseFile(path string, visited map[string]bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.ReadError(path, err)
	}

	if visited[abs] {
		return errSyntax(path, 0, "recursive include")
	}
	visited[abs] = true
	defer func() { visited[abs] = false }()

	f, err := os.Open(abs)
	if err != nil {
		return errors.ReadError(path, err)
	}
	defer f.Close()

	return c.parse(f, path, filepath.Dir(abs), visited)
}

// parse reads INI text. dir resolves include patterns; a nil visited map
// rejects includes.
func (c *Config) parse(r io.Reader, name, dir string, visited map[string]bool) error {
	var currentSection string
	var currentOptions map[string]string

	flush := func() {
		if currentSection != "" {
			c.addSection(currentSection, currentOptions)
		}
		currentSection = ""
		currentOptions = nil
	}

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if idx := strings.IndexAny(line, "#;"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			flush()

			header := strings.TrimSpace(line[1 : len(line)-1])
			if header == "" {
				return errSyntax(name, lineNum, "empty section header")
			}

			if strings.HasPrefix(header, "include ") {
				if visited == nil {
					return errSyntax(name, lineNum, "include not allowed here")
				}
				if err := c.include(name, lineNum, dir, strings.TrimSpace(header[8:]), visited); err != nil {
					return err
				}
				continue
			}

			currentSection = header
			currentOptions = make(map[string]string)
			continue
		}

		if currentSection == "" {
			return errSyntax(name, lineNum, "option outside of a section")
		}

		kv := strings.SplitN(line, ":", 2)
		if len(kv) != 2 {
			kv = strings.SplitN(line, "=", 2)
		}
		if len(kv) != 2 || strings.TrimSpace(kv[0]) == "" {
			return errSyntax(name, lineNum, fmt.Sprintf("expected 'key: value', got %q", line))
		}
		currentOptions[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	flush()

	if err := scanner.Err(); err != nil {
		return errors.ReadError(name, err)
	}
	return nil
}

func (c *Config) include(name string, lineNum int, dir, spec string, visited map[string]bool) error {
	if spec == "" {
		return errSyntax(name, lineNum, "empty include")
	}
	glob := filepath.Join(dir, spec)
	matches, err := filepath.Glob(glob)
	if err != nil {
		return errSyntax(name, lineNum, fmt.Sprintf("invalid include pattern %q", spec))
	}
	sort.Strings(matches)
	if len(matches) == 0 && !strings.ContainsAny(glob, "*?[") {
		return errors.ReadError(glob, os.ErrNotExist)
	}
	for _, m := range matches {
		if err := c.parseFile(m, visited); err != nil {
			return err
		}
	}
	return nil
}

// addSection adds a section, merging options into an existing one.
func (c *Config) addSection(name string, options map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.sections[name]; ok {
		existing.merge(options)
		return
	}

	c.sections[name] = newSection(name, options)
	c.order = append(c.order, name)
}

// GetSection returns a Section by name, or error if not found.
func (c *Config) GetSection(name string) (*Section, error) {
	if sec := c.GetSectionOptional(name); sec != nil {
		return sec, nil
	}
	return nil, ErrMissingSection(name)
}

// GetSectionOptional returns a Section if it exists, or nil if not.
func (c *Config) GetSectionOptional(name string) *Section {
	c.mu.Lock()
	defer c.mu.Unlock()

	sec, ok := c.sections[name]
	if ok {
		c.accessedSections[name] = struct{}{}
	}
	return sec
}

// HasSection checks if a section exists.
func (c *Config) HasSection(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.sections[name]
	return ok
}

// GetSectionNames returns all section names in order.
func (c *Config) GetSectionNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]string, len(c.order))
	copy(result, c.order)
	return result
}

// GetUnusedSections returns a list of sections that were not accessed.
func (c *Config) GetUnusedSections() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []string
	for name := range c.sections {
		if _, ok := c.accessedSections[name]; !ok {
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result
}
