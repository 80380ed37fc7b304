package catalog

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"go-catalog-search/internal/search"
)

// PageSize is the fixed number of items per page.
const PageSize = 10

// MaxPage keeps from+size inside the index's default result window
// (index.max_result_window = 10000).
const MaxPage = 10000 / PageSize

// DefaultFuzziness lets the index pick the edit distance from the term length.
const DefaultFuzziness = "AUTO"

// Page is a parsed page parameter. A disabled page sends no from/size and
// leaves the page size to the index default.
type Page struct {
	Number  int
	Enabled bool
}

// ParsePage parses a 1-based page number. An empty value means page 1;
// zero or a negative number disables explicit paging. Pages past MaxPage
// are rejected.
func ParsePage(raw string) (Page, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "1"
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return Page{}, invalid("page", "%q is not a number", raw)
	}
	if n <= 0 {
		return Page{Number: n}, nil
	}
	if n > MaxPage {
		return Page{}, invalid("page", "%d is past the last page %d", n, MaxPage)
	}
	return Page{Number: n, Enabled: true}, nil
}

func (p Page) apply(req *search.Request) {
	if !p.Enabled {
		return
	}
	from := (p.Number - 1) * PageSize
	size := PageSize
	req.From = &from
	req.Size = &size
}

var fuzzinessPattern = regexp.MustCompile(`^(AUTO(:\d+,\d+)?|[012])$`)

// ParseFuzziness accepts AUTO, AUTO:low,high or an edit distance of 0, 1 or 2.
// An empty value means AUTO.
func ParseFuzziness(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultFuzziness, nil
	}
	if len(raw) >= 4 && strings.EqualFold(raw[:4], "AUTO") {
		raw = "AUTO" + raw[4:]
	}
	if !fuzzinessPattern.MatchString(raw) {
		return "", invalid("fuzziness", "%q must be AUTO, AUTO:low,high, 0, 1 or 2", raw)
	}
	return raw, nil
}

// ParsePriceBound parses an optional price bound. Empty means unbounded.
func ParsePriceBound(field, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, invalid(field, "%q is not a number", raw)
	}
	return &v, nil
}
