package report

import (
	"fmt"
	"sort"
	"strings"
)

// Entry is one category of a frequency distribution.
type Entry struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// String renders the entry as "Name: Count (P.P%)".
func (e Entry) String() string {
	return fmt.Sprintf("%s: %d (%.1f%%)", e.Name, e.Count, e.Percent)
}

// Distribution is ordered by descending count. Equal counts keep the order in
// which their categories were first observed.
type Distribution []Entry

// String joins the entries with ", ".
func (d Distribution) String() string {
	parts := make([]string, len(d))
	for i, e := range d {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// Top returns at most n leading entries.
func (d Distribution) Top(n int) Distribution {
	if n < 0 {
		n = 0
	}
	if n >= len(d) {
		return d
	}
	return d[:n]
}

// Counter accumulates category counts in first-seen order.
type Counter struct {
	order  []string
	counts map[string]int
	total  int
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int)}
}

// Add counts one occurrence of name.
func (c *Counter) Add(name string) {
	if _, seen := c.counts[name]; !seen {
		c.order = append(c.order, name)
	}
	c.counts[name]++
	c.total++
}

// Len returns the number of distinct categories.
func (c *Counter) Len() int {
	return len(c.order)
}

// Distribution returns the ordered distribution with percentages of the total.
func (c *Counter) Distribution() Distribution {
	d := make(Distribution, 0, len(c.order))
	for _, name := range c.order {
		count := c.counts[name]
		var pct float64
		if c.total > 0 {
			pct = float64(count) / float64(c.total) * 100
		}
		d = append(d, Entry{Name: name, Count: count, Percent: pct})
	}
	sort.SliceStable(d, func(i, j int) bool {
		return d[i].Count > d[j].Count
	})
	return d
}
