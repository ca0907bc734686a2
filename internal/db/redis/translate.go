package redis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/vecsearch/internal/db"
)

// translator renders bleve queries in FT.SEARCH syntax.
type translator struct {
	meta   *indexMeta
	flavor Flavor
}

func (t *translator) translate(q query.Query) (string, error) {
	switch v := q.(type) {
	case *query.MatchAllQuery:
		return "*", nil
	case *query.MatchQuery:
		return t.text(v.FieldVal, v.Match, v.Operator == query.MatchQueryOperatorAnd)
	case *query.MatchPhraseQuery:
		if err := t.needText("match_phrase"); err != nil {
			return "", err
		}
		return t.scope(v.FieldVal, `"`+escapeQuery(v.MatchPhrase)+`"`), nil
	case *query.TermQuery:
		return t.term(v.FieldVal, v.Term)
	case *query.PrefixQuery:
		if err := t.needText("prefix"); err != nil {
			return "", err
		}
		return t.scope(v.FieldVal, escapeQuery(v.Prefix)+"*"), nil
	case *query.WildcardQuery:
		if err := t.needText("wildcard"); err != nil {
			return "", err
		}
		return t.scope(v.FieldVal, "w'"+strings.ReplaceAll(v.Wildcard, "'", `\'`)+"'"), nil
	case *query.BoolFieldQuery:
		if v.FieldVal == "" {
			return "", fmt.Errorf("%w: bool field query without field", db.ErrNotSupported)
		}
		return fmt.Sprintf("@%s:{%s}", v.FieldVal, strconv.FormatBool(v.Bool)), nil
	case *query.NumericRangeQuery:
		return numericRange(v)
	case *query.ConjunctionQuery:
		return t.group(v.Conjuncts, " ")
	case *query.DisjunctionQuery:
		if v.Min > 1 {
			return "", fmt.Errorf("%w: disjunction with min %v", db.ErrNotSupported, v.Min)
		}
		return t.group(v.Disjuncts, " | ")
	case *query.BooleanQuery:
		return t.boolean(v)
	default:
		return "", fmt.Errorf("%w: query type %T", db.ErrNotSupported, q)
	}
}

func (t *translator) needText(op string) error {
	if t.flavor == FlavorValkey {
		return fmt.Errorf("%w: %s queries need full-text search, unavailable on valkey", db.ErrNotSupported, op)
	}
	return nil
}

func (t *translator) scope(field, expr string) string {
	if field == "" {
		return expr
	}
	return "@" + field + ":(" + expr + ")"
}

func (t *translator) text(field, text string, and bool) (string, error) {
	terms := strings.Fields(text)
	if len(terms) == 0 {
		return "", fmt.Errorf("%w: empty match text", db.ErrNotSupported)
	}
	if t.meta != nil && t.meta.fieldType(field) == db.FieldKeyword {
		return fmt.Sprintf("@%s:{%s}", field, tagEscaper.Replace(text)), nil
	}
	if err := t.needText("match"); err != nil {
		return "", err
	}
	for i, term := range terms {
		terms[i] = escapeQuery(term)
	}
	sep := "|"
	if and {
		sep = " "
	}
	return t.scope(field, strings.Join(terms, sep)), nil
}

func (t *translator) term(field, term string) (string, error) {
	if field != "" && (t.meta == nil || t.meta.fieldType(field) != db.FieldText) {
		return fmt.Sprintf("@%s:{%s}", field, tagEscaper.Replace(term)), nil
	}
	if err := t.needText("term"); err != nil {
		return "", err
	}
	return t.scope(field, escapeQuery(term)), nil
}

func (t *translator) group(qs []query.Query, sep string) (string, error) {
	if len(qs) == 0 {
		return "*", nil
	}
	parts := make([]string, 0, len(qs))
	for _, sub := range qs {
		p, err := t.translate(sub)
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (t *translator) boolean(b *query.BooleanQuery) (string, error) {
	var parts []string
	if b.Must != nil {
		p, err := t.translate(b.Must)
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}
	if b.Should != nil {
		p, err := t.translate(b.Should)
		if err != nil {
			return "", err
		}
		optional := false
		if d, ok := b.Should.(*query.DisjunctionQuery); ok && d.Min == 0 && b.Must != nil {
			optional = true
		}
		if optional {
			p = "~" + p
		}
		parts = append(parts, p)
	}
	if b.MustNot != nil {
		p, err := t.translate(b.MustNot)
		if err != nil {
			return "", err
		}
		parts = append(parts, "-"+p)
	}
	if len(parts) == 0 {
		return "*", nil
	}
	return strings.Join(parts, " "), nil
}

func numericRange(q *query.NumericRangeQuery) (string, error) {
	if q.FieldVal == "" {
		return "", fmt.Errorf("%w: numeric range without field", db.ErrNotSupported)
	}
	lo, hi := "-inf", "+inf"
	if q.Min != nil {
		lo = strconv.FormatFloat(*q.Min, 'g', -1, 64)
		if q.InclusiveMin != nil && !*q.InclusiveMin {
			lo = "(" + lo
		}
	}
	if q.Max != nil {
		hi = strconv.FormatFloat(*q.Max, 'g', -1, 64)
		if q.InclusiveMax == nil || !*q.InclusiveMax {
			hi = "(" + hi
		}
	}
	return fmt.Sprintf("@%s:[%s %s]", q.FieldVal, lo, hi), nil
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

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
)
