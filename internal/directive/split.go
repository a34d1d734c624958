package directive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ParseError reports a malformed directive argument or hidden block.
// It never aborts a split; the offending text is handled as described on Split.
type ParseError struct {
	Tag string
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Tag, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Result is the outcome of splitting one model reply.
type Result struct {
	// Visible is the prose to show the user.
	Visible string
	// Directive is the honored instruction, KindNone when there is none.
	Directive Directive
	// Hidden holds the parsed hidden parameter object, nil when absent or malformed.
	Hidden map[string]any
	// Span is the raw text of the honored tag.
	Span string
	// HiddenSpan is the raw text of the located hidden block, parsed or not.
	HiddenSpan string
	// Malformed lists recoverable protocol problems found during the split.
	Malformed []*ParseError
}

// Split separates user-visible prose from the directive and hidden parameters in raw.
//
// The hidden block is located first (fence, then label) and its span is always
// removed. Tags are then tried in the order RESEARCH, SEARCH_GOOGLE,
// SUGGEST_LINKS, GENERATE_PATH; the leftmost valid occurrence of the first tag
// that matches wins and is removed. Other tags stay in the text as literals.
// A SUGGEST_LINKS whose argument is not a JSON string array is left literal and
// scanning continues. When no tag wins and the hidden block parsed, the result
// is a GENERATE_PATH directive built from the hidden fields.
func Split(raw string) Result {
	var res Result
	text := raw

	if start, end, body, ok := locateHidden(text); ok {
		res.HiddenSpan = text[start:end]
		text = text[:start] + text[end:]
		obj, err := parseObject(body)
		if err != nil {
			res.Malformed = append(res.Malformed, &ParseError{Tag: "hidden block", Raw: res.HiddenSpan, Err: err})
		} else {
			res.Hidden = obj
		}
	}

	res.Directive = Directive{Kind: KindNone}
	for _, kind := range scanOrder {
		d, start, end, ok := match(kind, text, &res)
		if !ok {
			continue
		}
		res.Span = text[start:end]
		text = text[:start] + text[end:]
		res.Directive = d
		break
	}

	if res.Hidden != nil {
		switch {
		case res.Span == "":
			res.Directive = Directive{Kind: KindGeneratePlan, Params: stringify(res.Hidden)}
		case res.Directive.Kind == KindGeneratePlan:
			res.Directive.Params = MergeParams(stringify(res.Hidden), res.Directive.Params)
		}
	}

	res.Visible = clean(text)
	return res
}

// MergeParams overlays override on base and returns a new map.
// Blank override values do not replace base values.
func MergeParams(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if strings.TrimSpace(v) == "" {
			if _, ok := out[k]; ok {
				continue
			}
		}
		out[k] = v
	}
	return out
}

func match(kind Kind, text string, res *Result) (Directive, int, int, bool) {
	switch kind {
	case KindResearch:
		loc := researchPattern.FindStringSubmatchIndex(text)
		if loc == nil {
			return Directive{}, 0, 0, false
		}
		topic := strings.TrimSpace(text[loc[2]:loc[3]])
		if topic == "" {
			return Directive{Kind: KindNone}, loc[0], loc[1], true
		}
		return Directive{Kind: KindResearch, Topic: topic}, loc[0], loc[1], true
	case KindWebSearch:
		loc := searchPattern.FindStringSubmatchIndex(text)
		if loc == nil {
			return Directive{}, 0, 0, false
		}
		query := strings.TrimSpace(text[loc[2]:loc[3]])
		if query == "" {
			return Directive{Kind: KindNone}, loc[0], loc[1], true
		}
		return Directive{Kind: KindWebSearch, Query: query}, loc[0], loc[1], true
	case KindSuggestLinks:
		for _, loc := range suggestPattern.FindAllStringSubmatchIndex(text, -1) {
			urls, err := ParseURLList(text[loc[2]:loc[3]])
			if err != nil {
				res.Malformed = append(res.Malformed, &ParseError{Tag: TagSuggestLinks, Raw: text[loc[0]:loc[1]], Err: err})
				continue
			}
			if len(urls) == 0 {
				return Directive{Kind: KindNone}, loc[0], loc[1], true
			}
			return Directive{Kind: KindSuggestLinks, URLs: urls}, loc[0], loc[1], true
		}
		return Directive{}, 0, 0, false
	case KindGeneratePlan:
		loc := generatePattern.FindStringIndex(text)
		if loc == nil {
			return Directive{}, 0, 0, false
		}
		return Directive{Kind: KindGeneratePlan, Params: map[string]string{}}, loc[0], loc[1], true
	}
	return Directive{}, 0, 0, false
}

// ParseURLList decodes a JSON array of strings, dropping blank and duplicate entries.
func ParseURLList(raw string) ([]string, error) {
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out, nil
}

// locateHidden finds the hidden block span and the object text inside it.
func locateHidden(text string) (start, end int, body string, ok bool) {
	if loc := fencedJSONPattern.FindStringSubmatchIndex(text); loc != nil {
		return loc[0], loc[1], text[loc[2]:loc[3]], true
	}
	for _, loc := range labelPattern.FindAllStringIndex(text, -1) {
		if loc[1] >= len(text) || text[loc[1]] != '{' {
			continue
		}
		objEnd := ObjectEnd(text, loc[1])
		return loc[0], objEnd, text[loc[1]:objEnd], true
	}
	return 0, 0, "", false
}

// ObjectEnd returns the index just past the JSON object starting at text[start],
// which must be '{'. Braces inside strings are ignored. An unbalanced object
// extends to the end of text.
func ObjectEnd(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(text)
}

func parseObject(body string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("hidden block is not an object")
	}
	return obj, nil
}

// CanonicalKeys trims and lowercases parameter keys. When several keys fold to
// the same name, a non-blank value beats a blank one, then the key already in
// canonical form wins, then the first key in byte order.
func CanonicalKeys(params map[string]string) map[string]string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(params))
	exact := make(map[string]bool, len(params))
	for _, k := range keys {
		v := params[k]
		ck := strings.ToLower(strings.TrimSpace(k))
		if ck == "" {
			continue
		}
		isExact := k == ck
		if prev, seen := out[ck]; seen {
			blank, prevBlank := strings.TrimSpace(v) == "", strings.TrimSpace(prev) == ""
			switch {
			case blank:
				continue
			case prevBlank:
			case exact[ck] || !isExact:
				continue
			}
		}
		out[ck] = v
		exact[ck] = isExact
	}
	return out
}

// stringify converts hidden values to strings under canonical keys. Non-string values keep their JSON form.
func stringify(obj map[string]any) map[string]string {
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			out[k] = strings.TrimSpace(val)
		case json.Number:
			out[k] = val.String()
		default:
			var buf bytes.Buffer
			enc := json.NewEncoder(&buf)
			enc.SetEscapeHTML(false)
			if err := enc.Encode(val); err != nil {
				continue
			}
			out[k] = strings.TrimSpace(buf.String())
		}
	}
	return CanonicalKeys(out)
}

func clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = trailingSpacePattern.ReplaceAllString(text, "\n")
	text = blankRunPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
