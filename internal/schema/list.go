package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/conneroisu/mediakit/internal/errors"
)

// List describes content that stores an ordered list as numbered keys, such
// as topic_1, topic_2. Items are contiguous from 1.
type List struct {
	Prefix string `json:"prefix" yaml:"prefix"`
	Min    int    `json:"min,omitempty" yaml:"min,omitempty"`
	Max    int    `json:"max,omitempty" yaml:"max,omitempty"`
	Item   Field  `json:"item" yaml:"item"`
}

// Key returns the content key of the n-th item, counting from 1.
func (l List) Key(n int) string {
	return l.Prefix + "_" + strconv.Itoa(n)
}

// index parses key into its item number, or 0.
func (l List) index(key string) int {
	rest, ok := strings.CutPrefix(key, l.Prefix+"_")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// Items returns the list values in order. Gaps are skipped.
func (l List) Items(content map[string]any) []any {
	nums := l.numbers(content)
	out := make([]any, len(nums))
	for i, n := range nums {
		out[i] = content[l.Key(n)]
	}
	return out
}

// Len counts the list items in content.
func (l List) Len(content map[string]any) int {
	return len(l.numbers(content))
}

func (l List) numbers(content map[string]any) []int {
	var nums []int
	for k := range content {
		if n := l.index(k); n > 0 {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	return nums
}

// Check validates contiguity, cardinality and every item.
func (l List) Check(content map[string]any, path string) []errors.Issue {
	var issues []errors.Issue
	nums := l.numbers(content)
	for i, n := range nums {
		if n != i+1 {
			issues = append(issues, errors.Issue{
				Path:    joinPath(path, l.Key(n)),
				Message: fmt.Sprintf("list items must be numbered contiguously, expected %s", l.Key(i+1)),
			})
			break
		}
	}
	if len(nums) < l.Min {
		issues = append(issues, errors.Issue{Path: joinPath(path, l.Prefix), Message: fmt.Sprintf("needs at least %d items", l.Min)})
	}
	if l.Max > 0 && len(nums) > l.Max {
		issues = append(issues, errors.Issue{Path: joinPath(path, l.Prefix), Message: fmt.Sprintf("allows at most %d items", l.Max)})
	}
	item := l.Item
	if item.Type == "" {
		item.Type = TypeString
	}
	for _, n := range nums {
		item.Name = l.Key(n)
		v := content[item.Name]
		if v == nil || isBlank(item, v) {
			issues = append(issues, errors.Issue{Path: joinPath(path, item.Name), Message: "must not be empty"})
			continue
		}
		if msg := checkValue(item, v); msg != "" {
			issues = append(issues, errors.Issue{Path: joinPath(path, item.Name), Message: msg})
		}
	}
	return issues
}

// withItems returns a copy of content whose list keys are replaced by items.
func (l List) withItems(content map[string]any, items []any) map[string]any {
	out := make(map[string]any, len(content)+1)
	for k, v := range content {
		if l.index(k) == 0 {
			out[k] = v
		}
	}
	for i, v := range items {
		out[l.Key(i+1)] = v
	}
	return out
}

// Insert returns content with value inserted at zero-based index, renumbering
// the following items. An index past the end appends.
func (l List) Insert(content map[string]any, index int, value any) (map[string]any, error) {
	items := l.Items(content)
	if l.Max > 0 && len(items) >= l.Max {
		return nil, errors.NewInvariantViolation(errors.ErrCodeMaxCardinality,
			fmt.Sprintf("%s allows at most %d items", l.Prefix, l.Max))
	}
	if index < 0 || index > len(items) {
		index = len(items)
	}
	items = append(items, nil)
	copy(items[index+1:], items[index:])
	items[index] = value
	return l.withItems(content, items), nil
}

// Remove returns content without the item at zero-based index, renumbering
// the following items. Dropping below the minimum is an invariant violation.
func (l List) Remove(content map[string]any, index int) (map[string]any, error) {
	items := l.Items(content)
	if index < 0 || index >= len(items) {
		return nil, errors.NewNotFoundError(errors.ErrCodeInvalidPosition,
			fmt.Sprintf("%s has no item at index %d", l.Prefix, index))
	}
	minimum := l.Min
	if minimum < 1 {
		minimum = 0
	}
	if len(items)-1 < minimum {
		return nil, errors.NewInvariantViolation(errors.ErrCodeMinCardinality,
			fmt.Sprintf("cannot remove the last %s: at least %d required", l.Prefix, minimum))
	}
	items = append(items[:index], items[index+1:]...)
	return l.withItems(content, items), nil
}

// Move returns content with the item at from moved to zero-based index to,
// where to addresses the list after removal.
func (l List) Move(content map[string]any, from, to int) (map[string]any, error) {
	items := l.Items(content)
	if from < 0 || from >= len(items) {
		return nil, errors.NewNotFoundError(errors.ErrCodeInvalidPosition,
			fmt.Sprintf("%s has no item at index %d", l.Prefix, from))
	}
	v := items[from]
	items = append(items[:from], items[from+1:]...)
	if to < 0 || to > len(items) {
		to = len(items)
	}
	items = append(items, nil)
	copy(items[to+1:], items[to:])
	items[to] = v
	return l.withItems(content, items), nil
}
