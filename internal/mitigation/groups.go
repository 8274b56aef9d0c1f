package mitigation

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/biasloom-cli/internal/dataset"
)

// CombinedGroupKeys returns one key per row: the row's values for every attribute, in
// order, joined by sep. Backslashes and separators inside values are escaped, so two rows
// share a key iff they match on every attribute. Missing values contribute "".
func CombinedGroupKeys(t *dataset.Table, attrs []string, sep string) ([]string, error) {
	idx := make([]int, len(attrs))
	kinds := make([]dataset.Kind, len(attrs))
	for i, a := range attrs {
		j, ok := t.Index(a)
		if !ok {
			return nil, fmt.Errorf("%w: %s", dataset.ErrUnknownColumn, a)
		}
		idx[i] = j
		kinds[i] = t.Columns[j].Kind
	}
	esc := strings.NewReplacer(`\`, `\\`, sep, `\`+sep)
	keys := make([]string, t.Len())
	parts := make([]string, len(attrs))
	for r, row := range t.Rows {
		for i, j := range idx {
			parts[i] = esc.Replace(row[j].Format(kinds[i]))
		}
		keys[r] = strings.Join(parts, sep)
	}
	return keys, nil
}

// groupIndex collects row indices per key in first-seen key order.
type groupIndex struct {
	order   []string
	members map[string][]int
}

func indexGroups(keys []string) groupIndex {
	g := groupIndex{members: map[string][]int{}}
	for r, k := range keys {
		if _, ok := g.members[k]; !ok {
			g.order = append(g.order, k)
		}
		g.members[k] = append(g.members[k], r)
	}
	return g
}

func (g groupIndex) sizeRange() (lo, hi int) {
	for i, k := range g.order {
		n := len(g.members[k])
		if i == 0 || n < lo {
			lo = n
		}
		if n > hi {
			hi = n
		}
	}
	return lo, hi
}
