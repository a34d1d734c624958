// Package directive parses the control protocol embedded in free-form model replies.
//
// A reply may carry at most one honored directive:
//
//	[RESEARCH: topic]
//	[SEARCH_GOOGLE: query]
//	[SUGGEST_LINKS: ["https://...", ...]]
//	[GENERATE_PATH]
//
// plus an optional hidden parameter block, either a fenced JSON object or an
// object following the JSON_OUTPUT: label. Tags are case-insensitive.
package directive

import "regexp"

// Tag names as they appear inside brackets.
const (
	TagResearch     = "RESEARCH"
	TagSearchGoogle = "SEARCH_GOOGLE"
	TagSuggestLinks = "SUGGEST_LINKS"
	TagGeneratePath = "GENERATE_PATH"

	// LabelJSONOutput precedes a hidden parameter object when no fence is used.
	LabelJSONOutput = "JSON_OUTPUT:"
)

// Kind discriminates the Directive union.
type Kind string

const (
	KindNone         Kind = "none"
	KindResearch     Kind = "research"
	KindWebSearch    Kind = "web_search"
	KindSuggestLinks Kind = "suggest_links"
	KindGeneratePlan Kind = "generate_plan"
)

// Directive is the single instruction recognized in one reply.
// Only the payload field matching Kind is set.
type Directive struct {
	Kind   Kind
	Topic  string
	Query  string
	URLs   []string
	Params map[string]string
}

// None reports whether the directive carries no instruction.
func (d Directive) None() bool {
	return d.Kind == "" || d.Kind == KindNone
}

var (
	researchPattern = regexp.MustCompile(`(?i)\[RESEARCH:\s*([^\]]*)\]`)
	searchPattern   = regexp.MustCompile(`(?i)\[SEARCH_GOOGLE:\s*([^\]]*)\]`)
	suggestPattern  = regexp.MustCompile(`(?is)\[SUGGEST_LINKS:\s*(\[.*?\])\s*\]`)
	generatePattern = regexp.MustCompile(`(?i)\[GENERATE_PATH\]`)

	fencedJSONPattern = regexp.MustCompile("(?is)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	labelPattern      = regexp.MustCompile(`(?i)JSON_OUTPUT:\s*`)

	trailingSpacePattern = regexp.MustCompile(`[ \t]+\n`)
	blankRunPattern      = regexp.MustCompile(`\n{3,}`)
)

// scanOrder is the fixed priority in which bracket tags are considered.
var scanOrder = []Kind{KindResearch, KindWebSearch, KindSuggestLinks, KindGeneratePlan}
