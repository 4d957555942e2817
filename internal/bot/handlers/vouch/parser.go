package vouch

import (
	"regexp"
	"strings"
)

// Command is a parsed vouch command.
type Command struct {
	// VouchedID is the mentioned user's snowflake as a decimal string.
	VouchedID string
	// Reason is the free-form trailing text, whitespace-trimmed.
	Reason string
}

// Command grammars. Two word orders are accepted for increments and
// decrements: sign-first ("+1 @user reason") and mention-first
// ("@user +1 reason"). The keyword forms "v", "vouch" and "vouche" are
// interchangeable with the numeric amount.
var (
	incrementPattern = regexp.MustCompile(`(?im)^(\+\s*(?:\d+|v|vouche?)\s+<@!?(\d{17,19})>|<@!?(\d{17,19})>\s+\+\s*\d+)(.*)$`)
	decrementPattern = regexp.MustCompile(`(?im)^(-\s*(?:\d+|v|vouche?)\s+<@!?(\d{17,19})>|<@!?(\d{17,19})>\s+-\s*\d+)(.*)$`)
	queryPattern     = regexp.MustCompile(`(?im)^\?\s*(?:\d+|v|vouche?)\s+<@!?(\d{17,19})>\s*$`)
	mentionPattern   = regexp.MustCompile(`<@!?(\d{17,19})>`)
)

// parseCommand matches content against a sign pattern and extracts the
// mentioned user and reason. Returns nil when the content is not a command.
func parseCommand(pattern *regexp.Regexp, content string) *Command {
	match := pattern.FindStringSubmatch(content)
	if match == nil {
		return nil
	}

	vouchedID := match[2]
	if vouchedID == "" {
		vouchedID = match[3]
	}

	return &Command{
		VouchedID: vouchedID,
		Reason:    strings.TrimSpace(match[4]),
	}
}

// ParseQuery extracts the mentioned user from a report query command.
// Returns an empty string when the content is not a query.
func ParseQuery(content string) string {
	match := queryPattern.FindStringSubmatch(content)
	if match == nil {
		return ""
	}

	return match[1]
}

// mentionedIDs returns the distinct user IDs mentioned in content, in order
// of first appearance.
func mentionedIDs(content string) []string {
	var ids []string

	seen := make(map[string]struct{})

	for _, match := range mentionPattern.FindAllStringSubmatch(content, -1) {
		if _, ok := seen[match[1]]; ok {
			continue
		}

		seen[match[1]] = struct{}{}
		ids = append(ids, match[1])
	}

	return ids
}

// mentionsSameUserMultipleTimes reports whether any user is mentioned more
// than once in content.
func mentionsSameUserMultipleTimes(content string) bool {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	seen := make(map[string]struct{}, len(matches))

	for _, match := range matches {
		if _, ok := seen[match[1]]; ok {
			return true
		}

		seen[match[1]] = struct{}{}
	}

	return false
}
