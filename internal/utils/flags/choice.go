package flags

import (
	"fmt"
	"strings"
)

const (
	choiceListSeparatorConstant     = "|"
	choiceUsageTemplateConstant     = "%s [%s] (default %s)"
	choiceUsageBareTemplateConstant = "[%s] (default %s)"
)

// FormatChoiceUsage renders flag help text listing the accepted values and
// naming the default, e.g. "Registry scope to operate on [user|machine]
// (default user)". Duplicate and blank choices are dropped; comparison is
// case-insensitive to match how the flag values are parsed.
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	choiceList := strings.Join(normalizeChoices(choices), choiceListSeparatorConstant)
	normalizedDefault := strings.ToLower(strings.TrimSpace(defaultChoice))
	trimmedDescription := strings.TrimSpace(description)
	if len(trimmedDescription) == 0 {
		return fmt.Sprintf(choiceUsageBareTemplateConstant, choiceList, normalizedDefault)
	}
	return fmt.Sprintf(choiceUsageTemplateConstant, trimmedDescription, choiceList, normalizedDefault)
}

func normalizeChoices(choices []string) []string {
	normalizedChoices := make([]string, 0, len(choices))
	seenChoices := make(map[string]struct{}, len(choices))
	for _, choice := range choices {
		normalizedChoice := strings.ToLower(strings.TrimSpace(choice))
		if len(normalizedChoice) == 0 {
			continue
		}
		if _, alreadyListed := seenChoices[normalizedChoice]; alreadyListed {
			continue
		}
		seenChoices[normalizedChoice] = struct{}{}
		normalizedChoices = append(normalizedChoices, normalizedChoice)
	}
	return normalizedChoices
}
