package directive

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_PlainReply(t *testing.T) {
	t.Parallel()

	res := Split("  Sure, happy to help.\n")
	assert.Equal(t, "Sure, happy to help.", res.Visible)
	assert.True(t, res.Directive.None())
	assert.Nil(t, res.Hidden)
	assert.Empty(t, res.Span)
}

func TestSplit_Research(t *testing.T) {
	t.Parallel()

	res := Split("Let me look that up. [research:  example docs ]")
	require.Equal(t, KindResearch, res.Directive.Kind)
	assert.Equal(t, "example docs", res.Directive.Topic)
	assert.Equal(t, "Let me look that up.", res.Visible)
	assert.Equal(t, "[research:  example docs ]", res.Span)
}

func TestSplit_WebSearch(t *testing.T) {
	t.Parallel()

	res := Split("[SEARCH_GOOGLE: latest postgres release]\nChecking now.")
	require.Equal(t, KindWebSearch, res.Directive.Kind)
	assert.Equal(t, "latest postgres release", res.Directive.Query)
	assert.Equal(t, "Checking now.", res.Visible)
}

func TestSplit_SuggestLinks(t *testing.T) {
	t.Parallel()

	res := Split(`Here are some starting points: [SUGGEST_LINKS: ["https://a.example/x", "https://b.example/y", "https://a.example/x"]]`)
	require.Equal(t, KindSuggestLinks, res.Directive.Kind)
	if diff := cmp.Diff([]string{"https://a.example/x", "https://b.example/y"}, res.Directive.URLs); diff != "" {
		t.Fatalf("urls mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Here are some starting points:", res.Visible)
}

func TestSplit_MalformedSuggestLinksStaysLiteral(t *testing.T) {
	t.Parallel()

	raw := "Try these [SUGGEST_LINKS: [not-json]] later."
	res := Split(raw)
	assert.True(t, res.Directive.None())
	assert.Equal(t, raw, res.Visible)
	require.Len(t, res.Malformed, 1)
	assert.Equal(t, TagSuggestLinks, res.Malformed[0].Tag)
}

func TestSplit_MalformedSuggestLinksFallsThroughToGenerate(t *testing.T) {
	t.Parallel()

	res := Split("[SUGGEST_LINKS: [oops]] [GENERATE_PATH]")
	require.Equal(t, KindGeneratePlan, res.Directive.Kind)
	assert.Equal(t, "[SUGGEST_LINKS: [oops]]", res.Visible)
}

func TestSplit_PriorityResearchBeatsSuggest(t *testing.T) {
	t.Parallel()

	raw := `[SUGGEST_LINKS: ["https://a.example"]] then [RESEARCH: x]`
	res := Split(raw)
	require.Equal(t, KindResearch, res.Directive.Kind)
	assert.Equal(t, "x", res.Directive.Topic)
	assert.Equal(t, `[SUGGEST_LINKS: ["https://a.example"]] then`, res.Visible)
}

func TestSplit_LeftmostOccurrenceOfWinningTag(t *testing.T) {
	t.Parallel()

	res := Split("[RESEARCH: first] and [RESEARCH: second]")
	require.Equal(t, KindResearch, res.Directive.Kind)
	assert.Equal(t, "first", res.Directive.Topic)
	assert.Equal(t, "and [RESEARCH: second]", res.Visible)
}

func TestSplit_BlankArgumentIsStrippedWithoutDirective(t *testing.T) {
	t.Parallel()

	res := Split("Okay. [RESEARCH:   ]")
	assert.True(t, res.Directive.None())
	assert.Equal(t, "Okay.", res.Visible)
	assert.Equal(t, "[RESEARCH:   ]", res.Span)
}

func TestSplit_FencedHiddenBlockImpliesGeneratePlan(t *testing.T) {
	t.Parallel()

	raw := "Great, building your plan.\n\n```json\n{\"goal\":\"SQL basics\",\"level\":\"Beginner\",\"hours\":12}\n```\n"
	res := Split(raw)
	require.Equal(t, KindGeneratePlan, res.Directive.Kind)
	assert.Equal(t, map[string]string{"goal": "SQL basics", "level": "Beginner", "hours": "12"}, res.Directive.Params)
	assert.Equal(t, "Great, building your plan.", res.Visible)
	assert.NotContains(t, res.Visible, "{")
	require.NotNil(t, res.Hidden)
}

func TestSplit_LabeledHiddenBlock(t *testing.T) {
	t.Parallel()

	raw := `Done. JSON_OUTPUT: {"goal": "Learn {braces} in \"strings\"", "role": "Analyst"} Enjoy!`
	res := Split(raw)
	require.Equal(t, KindGeneratePlan, res.Directive.Kind)
	assert.Equal(t, `Learn {braces} in "strings"`, res.Directive.Params["goal"])
	assert.Equal(t, "Analyst", res.Directive.Params["role"])
	assert.Equal(t, "Done.  Enjoy!", res.Visible)
}

func TestSplit_UnbalancedLabeledBlockIsStrippedToEnd(t *testing.T) {
	t.Parallel()

	res := Split(`Here you go JSON_OUTPUT: {"goal": "x"`)
	assert.Equal(t, "Here you go", res.Visible)
	assert.Nil(t, res.Hidden)
	assert.True(t, res.Directive.None())
	require.Len(t, res.Malformed, 1)
}

func TestSplit_MalformedFencedBlockIsStillStripped(t *testing.T) {
	t.Parallel()

	res := Split("Plan below\n```json\n{goal: nope}\n```")
	assert.Equal(t, "Plan below", res.Visible)
	assert.Nil(t, res.Hidden)
	assert.True(t, res.Directive.None())
}

func TestSplit_BracketAndHiddenBlockMerge(t *testing.T) {
	t.Parallel()

	raw := "[GENERATE_PATH]\n```json\n{\"goal\":\"Go\",\"time\":\"5 hours\"}\n```"
	res := Split(raw)
	require.Equal(t, KindGeneratePlan, res.Directive.Kind)
	assert.Equal(t, "Go", res.Directive.Params["goal"])
	assert.Equal(t, "5 hours", res.Directive.Params["time"])
	assert.Empty(t, res.Visible)
}

func TestSplit_BracketWinsOverHiddenBlock(t *testing.T) {
	t.Parallel()

	res := Split("[RESEARCH: kafka]\n```json\n{\"goal\":\"x\"}\n```")
	require.Equal(t, KindResearch, res.Directive.Kind)
	assert.NotNil(t, res.Hidden)
	assert.Empty(t, res.Visible)
}

func TestSplit_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Intro text.\n\n\n\n[RESEARCH: go generics]\n\nOutro.",
		"Look: [SEARCH_GOOGLE: rust async]",
		`Picks [SUGGEST_LINKS: ["https://a.example"]] done`,
		"[GENERATE_PATH] Generating.",
		"Text\n```json\n{\"goal\":\"g\"}\n```\nmore text",
		`Label JSON_OUTPUT: {"a": {"b": 1}} tail`,
		"nothing special   \n  here",
	}
	for _, in := range inputs {
		first := Split(in)
		again := Split(first.Visible)
		assert.Equal(t, first.Visible, again.Visible, "input %q", in)
		assert.True(t, again.Directive.None(), "input %q", in)
		assert.Nil(t, again.Hidden, "input %q", in)
		if first.Span != "" {
			assert.NotContains(t, first.Visible, first.Span)
		}
		if first.HiddenSpan != "" {
			assert.NotContains(t, first.Visible, first.HiddenSpan)
		}
	}
}

func TestMergeParams_OverrideWinsUnlessBlank(t *testing.T) {
	t.Parallel()

	got := MergeParams(
		map[string]string{"goal": "a", "level": "Beginner"},
		map[string]string{"goal": "b", "level": " ", "role": "Dev"},
	)
	assert.Equal(t, map[string]string{"goal": "b", "level": "Beginner", "role": "Dev"}, got)
}

func TestSplit_HiddenKeysAreCanonical(t *testing.T) {
	t.Parallel()

	res := Split(`[GENERATE_PATH] JSON_OUTPUT: {"Goal": "SQL basics", " LEVEL ": "Advanced"}`)
	require.Equal(t, KindGeneratePlan, res.Directive.Kind)
	assert.Equal(t, map[string]string{"goal": "SQL basics", "level": "Advanced"}, res.Directive.Params)
}

func TestCanonicalKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   map[string]string
		want map[string]string
	}{
		{
			name: "lowercase key wins",
			in:   map[string]string{"Goal": "from hidden", "goal": "from user"},
			want: map[string]string{"goal": "from user"},
		},
		{
			name: "non-blank beats blank",
			in:   map[string]string{"goal": " ", "GOAL": "SQL"},
			want: map[string]string{"goal": "SQL"},
		},
		{
			name: "first variant in byte order",
			in:   map[string]string{"Level": "b", "LEVEL": "a", " level": "c"},
			want: map[string]string{"level": "c"},
		},
		{
			name: "blank key dropped",
			in:   map[string]string{" ": "x", "Role": "Dev"},
			want: map[string]string{"role": "Dev"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			for range 50 {
				if diff := cmp.Diff(tt.want, CanonicalKeys(tt.in)); diff != "" {
					t.Fatalf("CanonicalKeys mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestObjectEnd(t *testing.T) {
	t.Parallel()

	text := `x {"a":"}","b":{"c":1}} y`
	start := 2
	assert.Equal(t, len(text)-2, ObjectEnd(text, start))
	assert.Equal(t, len(`{"a":`), ObjectEnd(`{"a":`, 0))
}
