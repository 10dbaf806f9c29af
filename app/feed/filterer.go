package feed

import (
	"fmt"
	"net/url"
	"strings"
)

// Filterer marks items matched by a source's include/exclude rules. Filtered
// items are kept in the snapshot with a reason and hidden from readers.
type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

type filterRule struct {
	field    string
	includes []string
	excludes []string
}

func (f *Filterer) Run(items []Item, sourceConfig *Config) []Item {
	if len(sourceConfig.Filters) == 0 {
		return items
	}

	rules := compileRules(sourceConfig.Filters)

	marked := make([]Item, len(items))
	for i, item := range items {
		item.IsFiltered, item.FilterReason = f.check(item, rules)
		marked[i] = item
	}
	return marked
}

func compileRules(filters []ConfigFilter) []filterRule {
	rules := make([]filterRule, 0, len(filters))
	for _, filter := range filters {
		rules = append(rules, filterRule{
			field:    filter.Field,
			includes: lowerAll(filter.Includes),
			excludes: lowerAll(filter.Excludes),
		})
	}
	return rules
}

func lowerAll(patterns []string) []string {
	lowered := make([]string, len(patterns))
	for i, pattern := range patterns {
		lowered[i] = strings.ToLower(pattern)
	}
	return lowered
}

// check applies rules in order. Excludes win over includes of the same rule.
func (f *Filterer) check(item Item, rules []filterRule) (bool, string) {
	for _, rule := range rules {
		value := strings.ToLower(f.fieldValue(item, rule.field))

		if pattern, ok := matchesAny(value, rule.excludes); ok {
			return true, fmt.Sprintf("%s matches excluded '%s'", rule.field, pattern)
		}
		if len(rule.includes) == 0 {
			continue
		}
		if _, ok := matchesAny(value, rule.includes); !ok {
			return true, fmt.Sprintf("%s matches none of %v", rule.field, rule.includes)
		}
	}
	return false, ""
}

func matchesAny(value string, patterns []string) (string, bool) {
	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return pattern, true
		}
	}
	return "", false
}

func (f *Filterer) fieldValue(item Item, field string) string {
	switch field {
	case "title":
		return item.Title
	case "url":
		return item.URL
	case "site":
		if item.Comhead != "" {
			return item.Comhead
		}
		// Self posts and older markup carry no comhead
		if u, err := url.Parse(item.URL); err == nil {
			return strings.TrimPrefix(u.Hostname(), "www.")
		}
		return ""
	case "author":
		return item.Author
	default:
		return ""
	}
}
