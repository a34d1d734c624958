package llm

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/metalagman/pathwise/internal/directive"
	"github.com/metalagman/pathwise/internal/model"
)

var (
	urlArrayPattern = regexp.MustCompile(`(?s)\[\s*"[^\[\]]*\]`)
	bareURLPattern  = regexp.MustCompile(`https?://[^\s"'<>\)\]]+`)
)

// GroundedCompleter is the completion capability the searcher relies on.
type GroundedCompleter interface {
	Complete(ctx context.Context, history []model.Turn, useGrounding bool) (model.Completion, error)
}

// Searcher finds learning resources for a topic with a grounded completion.
type Searcher struct {
	completer  GroundedCompleter
	maxResults int
}

// NewSearcher returns a searcher that keeps at most maxResults URLs.
func NewSearcher(completer GroundedCompleter, maxResults int) *Searcher {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Searcher{completer: completer, maxResults: maxResults}
}

// SearchResources returns resource URLs for topic, best first. An empty slice means nothing was found.
func (s *Searcher) SearchResources(ctx context.Context, topic string) ([]string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, nil
	}
	prompt := fmt.Sprintf("Find up to %d high-quality, publicly accessible learning resources (official documentation, tutorials, courses) about: %s\n"+
		"Reply with only a JSON array of absolute URLs, for example [\"https://example.com/docs\"]. Reply with [] if nothing relevant exists.",
		s.maxResults, topic)

	res, err := s.completer.Complete(ctx, []model.Turn{{Role: model.RoleUser, Content: prompt}}, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSearch, err)
	}
	return s.collect(res), nil
}

func (s *Searcher) collect(res model.Completion) []string {
	var candidates []string
	if m := urlArrayPattern.FindString(res.Text); m != "" {
		if urls, err := directive.ParseURLList(m); err == nil {
			candidates = urls
		}
	}
	if len(candidates) == 0 {
		candidates = bareURLPattern.FindAllString(res.Text, -1)
	}
	if len(candidates) == 0 {
		for _, c := range res.Citations {
			candidates = append(candidates, c.URL)
		}
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, s.maxResults)
	for _, c := range candidates {
		c = strings.TrimRight(strings.TrimSpace(c), ".,;")
		u, err := url.Parse(c)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
		if len(out) == s.maxResults {
			break
		}
	}
	return out
}
