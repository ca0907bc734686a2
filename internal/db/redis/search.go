package redis

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecsearch/internal/db"
)

const vectorScoreField = "__vector_score"

// Highlight tags per style.
var highlightTags = map[string][2]string{
	"":     {"<mark>", "</mark>"},
	"html": {"<mark>", "</mark>"},
	"ansi": {"\x1b[43m", "\x1b[0m"},
}

// searchPlan is a rendered FT.SEARCH call plus what its reply looks like.
type searchPlan struct {
	args       []string
	withScores bool
	knn        *db.KNNProbe
}

// Search runs a lexical, KNN or hybrid query via FT.SEARCH.
// Hybrid queries pre-filter the KNN probe with the lexical clause.
func (s *Store) Search(ctx context.Context, q *db.Query) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	meta, err := s.lookupMeta(ctx, q.IndexName)
	if err != nil {
		return nil, err
	}

	plan, err := buildSearchPlan(q, meta, s.flavor)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	start := time.Now()
	cmd := s.b().Arbitrary("FT.SEARCH").Args(plan.args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isUnknownIndex(err) {
			s.forget(q.IndexName)
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	res, err := parseSearchReply(raw, plan, q, meta)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	res.Took = time.Since(start)
	return res, nil
}

func buildSearchPlan(q *db.Query, meta *indexMeta, flavor Flavor) (*searchPlan, error) {
	if len(q.KNN) > 1 {
		return nil, fmt.Errorf("%w: %d vector probes in one query", db.ErrNotSupported, len(q.KNN))
	}
	if flavor == FlavorValkey && (q.Highlight != nil || q.Explain) {
		return nil, fmt.Errorf("%w: highlight and explain need full-text search", db.ErrNotSupported)
	}

	tr := &translator{meta: meta, flavor: flavor}
	expr := "*"
	if q.Lexical != nil {
		var err error
		if expr, err = tr.translate(q.Lexical); err != nil {
			return nil, err
		}
	}

	plan := &searchPlan{}
	if q.HasKNN() {
		p := q.KNN[0]
		plan.knn = &p
		base := expr
		if base != "*" {
			base = "(" + base + ")"
		}
		expr = fmt.Sprintf("%s=>[KNN %d @%s $BLOB AS %s]", base, p.K, p.Field, vectorScoreField)
	}

	args := []string{q.IndexName, expr}
	if plan.knn == nil {
		plan.withScores = true
		args = append(args, "WITHSCORES")
	}

	if fields := returnFields(q); len(fields) > 0 {
		if plan.knn != nil {
			fields = append(fields, vectorScoreField)
		}
		args = append(args, "RETURN", strconv.Itoa(len(fields)))
		args = append(args, fields...)
	}

	if h := q.Highlight; h != nil {
		tags, ok := highlightTags[h.Style]
		if !ok {
			return nil, fmt.Errorf("unknown highlight style %q", h.Style)
		}
		args = append(args, "HIGHLIGHT")
		if len(h.Fields) > 0 {
			args = append(args, "FIELDS", strconv.Itoa(len(h.Fields)))
			args = append(args, h.Fields...)
		}
		args = append(args, "TAGS", tags[0], tags[1])
	}

	if q.Timeout > 0 {
		args = append(args, "TIMEOUT", strconv.FormatInt(q.Timeout.Milliseconds(), 10))
	}
	if q.Explain && plan.withScores {
		args = append(args, "EXPLAINSCORE")
	}
	if plan.knn != nil {
		args = append(args, "SORTBY", vectorScoreField, "ASC")
	}

	size := q.Size
	if size <= 0 {
		size = 10
	}
	args = append(args, "LIMIT", strconv.Itoa(q.From), strconv.Itoa(size))

	if plan.knn != nil {
		args = append(args, "PARAMS", "2", "BLOB", vectorToBytes(plan.knn.Vector))
	}
	args = append(args, "DIALECT", "2")

	plan.args = args
	return plan, nil
}

// returnFields is the RETURN list; "*" or no projection returns everything.
func returnFields(q *db.Query) []string {
	if len(q.Fields) == 0 || slices.Contains(q.Fields, "*") {
		return nil
	}
	fields := slices.Clone(q.Fields)
	if q.Highlight != nil {
		for _, f := range q.Highlight.Fields {
			if !slices.Contains(fields, f) {
				fields = append(fields, f)
			}
		}
	}
	return fields
}

// --- Result parsing ---

func parseSearchReply(raw []rueidis.RedisMessage, plan *searchPlan, q *db.Query, meta *indexMeta) (*db.SearchResult, error) {
	res := &db.SearchResult{}
	if len(raw) == 0 {
		return res, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	res.Total = uint64(max(total, 0))
	res.Status = db.SearchStatus{Total: 1, Successful: 1}

	stride := 2
	if plan.withScores {
		stride = 3
	}

	// 2-stride: [total, key1, fields1, ...]; 3-stride: [total, key1, score1, fields1, ...]
	for i := 1; i+stride-1 < len(raw); i += stride {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		hit := db.SearchHit{Index: q.IndexName, ID: strings.TrimPrefix(key, meta.prefix)}

		fieldsAt := i + 1
		if plan.withScores {
			fieldsAt = i + 2
			score, expl, err := parseScore(raw[i+1])
			if err != nil {
				continue
			}
			hit.Score = score
			hit.Explanation = expl
		}

		pairs, err := raw[fieldsAt].ToArray()
		if err != nil {
			pairs = nil
		}
		values := parseFieldPairs(pairs)

		if plan.knn != nil {
			if d, ok := values[vectorScoreField]; ok {
				if dist, err := strconv.ParseFloat(d, 64); err == nil {
					hit.Score = distanceToScore(meta.metric(plan.knn.Field), dist)
				}
				delete(values, vectorScoreField)
			}
			if plan.knn.Boost > 0 {
				hit.Score *= plan.knn.Boost
			}
		}

		hit.Fragments = fragments(values, q.Highlight)
		hit.Fields = projectFields(values, q.Fields, meta)

		if hit.Score > res.MaxScore {
			res.MaxScore = hit.Score
		}
		res.Hits = append(res.Hits, hit)
	}
	return res, nil
}

// parseScore reads a WITHSCORES entry, which becomes [score, explanation] under EXPLAINSCORE.
func parseScore(msg rueidis.RedisMessage) (float64, json.RawMessage, error) {
	if arr, err := msg.ToArray(); err == nil {
		if len(arr) == 0 {
			return 0, nil, errors.New("empty score entry")
		}
		score, err := parseFloatMessage(arr[0])
		if err != nil {
			return 0, nil, err
		}
		var expl json.RawMessage
		if len(arr) > 1 {
			if b, err := json.Marshal(messageToAny(arr[1])); err == nil {
				expl = b
			}
		}
		return score, expl, nil
	}
	score, err := parseFloatMessage(msg)
	return score, nil, err
}

func parseFloatMessage(msg rueidis.RedisMessage) (float64, error) {
	if str, err := msg.ToString(); err == nil {
		return strconv.ParseFloat(str, 64)
	}
	return msg.AsFloat64()
}

func messageToAny(msg rueidis.RedisMessage) any {
	if arr, err := msg.ToArray(); err == nil {
		out := make([]any, len(arr))
		for i := range arr {
			out[i] = messageToAny(arr[i])
		}
		return out
	}
	if str, err := msg.ToString(); err == nil {
		return str
	}
	if n, err := msg.AsInt64(); err == nil {
		return n
	}
	return nil
}

// distanceToScore turns an FT vector distance into a higher-is-better score.
func distanceToScore(metric distanceMetric, d float64) float64 {
	switch metric {
	case distanceIP, distanceCosine:
		return 1 - d
	default:
		return 1 / (1 + d)
	}
}

func fragments(values map[string]string, h *db.Highlight) map[string][]string {
	if h == nil {
		return nil
	}
	open := highlightTags[h.Style][0]
	out := make(map[string][]string)
	for name, v := range values {
		if len(h.Fields) > 0 && !slices.Contains(h.Fields, name) {
			continue
		}
		if strings.Contains(v, open) {
			out[name] = []string{v}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func projectFields(values map[string]string, requested []string, meta *indexMeta) map[string]any {
	if len(requested) == 0 {
		return nil
	}
	all := slices.Contains(requested, "*")
	out := make(map[string]any)
	for name, v := range values {
		if !all && !slices.Contains(requested, name) {
			continue
		}
		switch meta.fieldType(name) {
		case db.FieldVector:
			continue
		case db.FieldNumber:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				out[name] = f
				continue
			}
		case db.FieldBoolean:
			if b, err := strconv.ParseBool(v); err == nil {
				out[name] = b
				continue
			}
		}
		out[name] = v
	}
	return out
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
