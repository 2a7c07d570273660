package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// prompter asks the user for one field value.
type prompter interface {
	Prompt(label string) (string, error)
}

type terminalPrompter struct{}

func (terminalPrompter) Prompt(label string) (string, error) {
	p := promptui.Prompt{Label: label}
	return p.Run()
}

// newPrompter is replaced in tests.
var newPrompter = func() (prompter, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("--interactive requires a terminal on stdin")
	}
	return terminalPrompter{}, nil
}

// askFields prompts for every field in errs, writes the answers into data
// and returns the top-level keys that changed. Values are parsed as JSON when
// possible so numbers and booleans keep their type; empty input leaves the
// field unchanged.
func askFields(p prompter, errs map[string]string, data map[string]any) (map[string]any, error) {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	update := make(map[string]any)
	for _, field := range fields {
		if strings.HasPrefix(field, "_") {
			continue
		}
		raw, err := p.Prompt(fmt.Sprintf("%s (%s)", field, errs[field]))
		if err != nil {
			return nil, err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		setPath(data, field, parseValue(raw))
		top, _, _ := strings.Cut(field, ".")
		update[top] = data[top]
	}
	return update, nil
}

func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

// setPath writes v at a dotted path such as "address.street".
func setPath(m map[string]any, path string, v any) {
	parts := strings.Split(path, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = v
}
