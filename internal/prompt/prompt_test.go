package prompt

import (
	"strings"
	"testing"

	"github.com/metalagman/pathwise/internal/directive"
	"github.com/stretchr/testify/assert"
)

func TestBuilder_SystemFrame(t *testing.T) {
	t.Parallel()

	b := NewBuilder("")
	frame := b.SystemFrame("### Source: https://docs.example.com\nintro\n\n", "https://docs.example.com (3 pages)")

	assert.True(t, strings.HasPrefix(frame, DefaultPreamble()))
	assert.Contains(t, frame, "# Retrieved context\n\n### Source: https://docs.example.com\nintro")
	assert.True(t, strings.HasSuffix(frame, "# Newly added sources\n\nhttps://docs.example.com (3 pages)"))
}

func TestBuilder_OmitsEmptySections(t *testing.T) {
	t.Parallel()

	frame := NewBuilder("  be brief  ").SystemFrame(" ", "")
	assert.Equal(t, "be brief", frame)
}

func TestDefaultPreamble_NamesEveryTag(t *testing.T) {
	t.Parallel()

	pre := DefaultPreamble()
	for _, tag := range []string{directive.TagResearch, directive.TagSearchGoogle, directive.TagSuggestLinks, directive.TagGeneratePath, directive.LabelJSONOutput} {
		assert.Contains(t, pre, tag)
	}
}
