package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// MessageFormatter turns a raw validator message into user-facing text.
type MessageFormatter func(field, raw string) string

type messageRule struct {
	pattern *regexp.Regexp
	render  func(m []string) string
}

func fixed(msg string) func([]string) string {
	return func([]string) string { return msg }
}

// messageRules is matched in order; the first hit wins.
var messageRules = []messageRule{
	{regexp.MustCompile(`^.+ is required$`), fixed("This field is required.")},
	{regexp.MustCompile(`^Does not match format 'email'$`), fixed("Please enter a valid email address.")},
	{regexp.MustCompile(`^Does not match format '(?:uri|url)'$`), fixed("Please enter a valid URL.")},
	{regexp.MustCompile(`^Does not match format 'date'$`), fixed("Please enter a valid date.")},
	{regexp.MustCompile(`^String length must be greater than or equal to 1$`), fixed("This field is required.")},
	{regexp.MustCompile(`^String length must be greater than or equal to (\d+)$`), func(m []string) string {
		return fmt.Sprintf("Must be at least %s characters.", m[1])
	}},
	{regexp.MustCompile(`^String length must be less than or equal to (\d+)$`), func(m []string) string {
		return fmt.Sprintf("Must be at most %s characters.", m[1])
	}},
	{regexp.MustCompile(`^Must be greater than or equal to (\S+)$`), func(m []string) string {
		return fmt.Sprintf("Must be at least %s.", m[1])
	}},
	{regexp.MustCompile(`^Must be less than or equal to (\S+)$`), func(m []string) string {
		return fmt.Sprintf("Must be at most %s.", m[1])
	}},
	{regexp.MustCompile(`^Does not match pattern '.*'$`), fixed("Invalid format.")},
	{regexp.MustCompile(`^\S+ must be one of the following: `), fixed("Please select a valid option.")},
	{regexp.MustCompile(`^Invalid type\. Expected: ([\w/]+), given: [\w/]+$`), func(m []string) string {
		return fmt.Sprintf("Must be of type %s.", strings.ReplaceAll(m[1], "/", " or "))
	}},
}

// FormatErrorMessage maps a raw validator message to user-facing text using a
// fixed table. Messages with no entry are returned unchanged.
func FormatErrorMessage(field, raw string) string {
	for _, rule := range messageRules {
		if m := rule.pattern.FindStringSubmatch(raw); m != nil {
			return rule.render(m)
		}
	}
	return raw
}
