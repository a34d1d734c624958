package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinPages_TagsEachPageWithSource(t *testing.T) {
	t.Parallel()

	body := JoinPages([]Page{
		{SourceURL: "https://docs.example.com/intro", Title: "Intro", Body: "hello\n"},
		{SourceURL: "https://docs.example.com/api", Body: "  api docs  "},
	})

	require.Contains(t, body, "## Intro\nURL: https://docs.example.com/intro\n\nhello")
	require.Contains(t, body, "## https://docs.example.com/api\nURL: https://docs.example.com/api\n\napi docs")
	assert.Less(t, strings.Index(body, "Intro"), strings.Index(body, "api docs"))
}

func TestJoinPages_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, JoinPages(nil))
}

func TestUtteranceClone_DetachesSlices(t *testing.T) {
	t.Parallel()

	u := Utterance{URLs: []string{"a"}, Citations: []Citation{{URL: "b"}}}
	c := u.Clone()
	c.URLs[0] = "changed"
	c.Citations[0].URL = "changed"

	assert.Equal(t, "a", u.URLs[0])
	assert.Equal(t, "b", u.Citations[0].URL)
}

func TestCanonicalSourceID(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"https://x.example/doc#intro":   "https://x.example/doc",
		"  https://x.example/doc?q=1  ": "https://x.example/doc?q=1",
		"https://x.example/doc":         "https://x.example/doc",
		"not a url %zz":                 "not a url %zz",
	}
	for in, want := range tests {
		assert.Equal(t, want, CanonicalSourceID(in), in)
	}
}
