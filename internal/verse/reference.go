package verse

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/starford/versemark/internal/apperr"
)

// FormatReference renders refs as a human-readable reference such as
// "GEN 1:1-3,5; 2:4". Consecutive verses collapse into ranges, chapters of
// the same book are separated by "; ", and the version is appended in
// parentheses when the refs span more than one version.
func FormatReference(refs []Ref) string {
	if len(refs) == 0 {
		return ""
	}

	type bookKey struct{ version, book string }
	var order []bookKey
	byBook := make(map[bookKey][]Ref)
	versions := make(map[string]struct{})
	for _, r := range refs {
		k := bookKey{r.VersionID, r.BookID}
		if _, ok := byBook[k]; !ok {
			order = append(order, k)
		}
		byBook[k] = append(byBook[k], r)
		versions[r.VersionID] = struct{}{}
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].version < order[j].version })

	var groups []string
	for i, k := range order {
		group := byBook[k]
		sort.Slice(group, func(a, b int) bool {
			if c := compareChapters(group[a].ChapterID, group[b].ChapterID); c != 0 {
				return c < 0
			}
			return group[a].VerseNumber < group[b].VerseNumber
		})

		var chapters []string
		for start := 0; start < len(group); {
			end := start
			for end < len(group) && group[end].ChapterID == group[start].ChapterID {
				end++
			}
			chapters = append(chapters, group[start].ChapterID+":"+formatVerseRuns(group[start:end]))
			start = end
		}

		s := k.book + " " + strings.Join(chapters, "; ")
		if len(versions) > 1 && (i == len(order)-1 || order[i+1].version != k.version) {
			s += " (" + k.version + ")"
		}
		groups = append(groups, s)
	}
	return strings.Join(groups, "; ")
}

// formatVerseRuns renders sorted verses of one chapter as "1-3,5".
func formatVerseRuns(refs []Ref) string {
	var runs []string
	for i := 0; i < len(refs); {
		j := i
		for j+1 < len(refs) && refs[j+1].VerseNumber <= refs[j].VerseNumber+1 {
			j++
		}
		if refs[i].VerseNumber == refs[j].VerseNumber {
			runs = append(runs, strconv.Itoa(refs[i].VerseNumber))
		} else {
			runs = append(runs, fmt.Sprintf("%d-%d", refs[i].VerseNumber, refs[j].VerseNumber))
		}
		i = j + 1
	}
	return strings.Join(runs, ",")
}

// compareChapters orders numeric chapter ids numerically and anything else lexically.
func compareChapters(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na - nb
	}
	return strings.Compare(a, b)
}

// MaxRangeSpan bounds how many verses one range of a verse list may cover.
// The longest chapter, Psalm 119, has 176.
const MaxRangeSpan = 200

// ParseVerseList expands a list such as "1,3-5" into verse numbers, keeping
// the order given and dropping duplicates. A range may cover at most
// MaxRangeSpan verses.
func ParseVerseList(s string) ([]int, error) {
	seen := make(map[int]struct{})
	var out []int
	add := func(n int) {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil || from < 1 {
			return nil, fmt.Errorf("%w: verse %q", apperr.ErrInvalidInput, part)
		}
		to := from
		if isRange {
			to, err = strconv.Atoi(strings.TrimSpace(hi))
			if err != nil || to < from {
				return nil, fmt.Errorf("%w: verse range %q", apperr.ErrInvalidInput, part)
			}
			if to-from >= MaxRangeSpan {
				return nil, fmt.Errorf("%w: verse range %q spans more than %d verses", apperr.ErrInvalidInput, part, MaxRangeSpan)
			}
		}
		for n := from; n <= to; n++ {
			add(n)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty verse list", apperr.ErrInvalidInput)
	}
	return out, nil
}
