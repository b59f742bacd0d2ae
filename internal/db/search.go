package db

import (
	"fmt"
	"strings"
)

// MatchAll is the FT.SEARCH query matching every document.
const MatchAll = "*"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Filter       string // FT.SEARCH pre-filter query, empty = match all
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// TagQuery builds an exact-match TAG filter clause: @field:{value}.
func TagQuery(field, value string) string {
	return fmt.Sprintf("@%s:{%s}", field, tagEscaper.Replace(value))
}

// AndQuery joins clauses into a single conjunctive FT.SEARCH query.
// With no clauses it returns MatchAll.
func AndQuery(clauses ...string) string {
	if len(clauses) == 0 {
		return MatchAll
	}
	return strings.Join(clauses, " ")
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)
