package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/metalagman/pathwise/internal/curriculum"
	"github.com/metalagman/pathwise/internal/directive"
	"github.com/metalagman/pathwise/internal/job"
	"github.com/metalagman/pathwise/internal/model"
	"github.com/metalagman/pathwise/internal/session"
	"github.com/rs/zerolog/log"
)

// Texts shown to the user by the workflows.
const (
	GoalQuestion    = "What is the main goal you want this learning path to achieve?"
	generatingText  = "Generating your learning path..."
	pathReadyText   = "Your learning path is ready."
	summariseSearch = "Search the web for %q and summarise the most relevant findings. Cite your sources."
)

func (t *turn) submit(text string) {
	t.say(model.Utterance{Origin: model.OriginUser, Kind: model.KindText, Text: text})

	if draft, ok := t.sess.TakeDraft(); ok {
		if !t.transition(session.StateGenerate) {
			return
		}
		t.generate(directive.MergeParams(draft, map[string]string{curriculum.ParamGoal: text}))
		return
	}

	frame := t.d.deps.Prompts.SystemFrame(t.sess.Context().RenderBlock(t.d.cfg.ContextBudget), t.sess.TakeScraped())
	comp, err := t.d.deps.Completer.Complete(t.ctx, t.history(frame), false)
	if err != nil {
		t.fail("complete", "The assistant could not reply", err)
		return
	}

	res := directive.Split(comp.Text)
	for _, perr := range res.Malformed {
		log.Debug().Err(perr).Str("session", t.sess.ID).Msg("ignored malformed directive")
	}
	log.Debug().Str("session", t.sess.ID).Str("directive", string(res.Directive.Kind)).Msg("reply split")

	dir := res.Directive
	switch dir.Kind {
	case directive.KindResearch:
		if t.transition(session.StateResearch) {
			t.reply(res.Visible, comp.Citations)
			t.research(dir.Topic)
		}
	case directive.KindWebSearch:
		if t.transition(session.StateSearch) {
			t.reply(res.Visible, comp.Citations)
			t.webSearch(frame, dir.Query)
		}
	case directive.KindSuggestLinks:
		if t.transition(session.StateSuggest) {
			t.reply(res.Visible, comp.Citations)
			t.suggest(dir.URLs)
		}
	case directive.KindGeneratePlan:
		if t.transition(session.StateGenerate) {
			t.reply(res.Visible, comp.Citations)
			t.generate(dir.Params)
		}
	default:
		if t.transition(session.StatePlain) {
			t.reply(res.Visible, comp.Citations)
		}
	}
}

func (t *turn) history(frame string) []model.Turn {
	h := t.sess.History()
	turns := make([]model.Turn, 0, len(h)+1)
	turns = append(turns, model.Turn{Role: model.RoleSystem, Content: frame})
	return append(turns, h...)
}

// reply emits the visible part of an assistant reply. Empty text without citations is skipped.
func (t *turn) reply(text string, citations []model.Citation) {
	if strings.TrimSpace(text) == "" && len(citations) == 0 {
		return
	}
	t.say(model.Utterance{Origin: model.OriginAssistant, Kind: model.KindMarkdown, Text: text, Citations: citations})
}

func (t *turn) research(topic string) {
	t.notice(fmt.Sprintf("Searching for resources on %q...", topic))
	urls, err := t.d.deps.Searcher.SearchResources(t.ctx, topic)
	if err != nil {
		t.fail("search", "Resource search failed", err)
		return
	}
	if len(urls) == 0 {
		t.notice(fmt.Sprintf("No resources found for %q.", topic))
		return
	}
	t.suggest(urls)
}

func (t *turn) suggest(urls []string) {
	t.sess.SetSuggestions(urls)
	t.say(model.Utterance{Origin: model.OriginAssistant, Kind: model.KindSuggestionList, URLs: urls})
	t.send(model.Event{Type: model.EventSuggestionsAvailable, URLs: append([]string(nil), urls...)})
}

func (t *turn) webSearch(frame, query string) {
	t.notice(fmt.Sprintf("Searching the web for %q...", query))
	turns := append(t.history(frame), model.Turn{Role: model.RoleUser, Content: fmt.Sprintf(summariseSearch, query)})
	comp, err := t.d.deps.Completer.Complete(t.ctx, turns, true)
	if err != nil {
		t.fail("web search", "Web search failed", err)
		return
	}
	// Directives in a summary are not dispatched, only hidden.
	text := directive.Split(comp.Text).Visible
	t.say(model.Utterance{Origin: model.OriginAssistant, Kind: model.KindMarkdown, Text: text, Citations: comp.Citations})
}

// generate asks for the goal when it is missing, otherwise produces the curriculum.
// Once the generator is called the request runs to completion regardless of ctx.
func (t *turn) generate(params map[string]string) {
	params = directive.CanonicalKeys(params)
	if strings.TrimSpace(params[curriculum.ParamGoal]) == "" {
		t.sess.SetDraft(params)
		t.say(model.Utterance{Origin: model.OriginAssistant, Kind: model.KindText, Text: GoalQuestion})
		return
	}
	if t.ctx.Err() != nil {
		log.Info().Str("session", t.sess.ID).Msg("plan generation dropped before start")
		return
	}

	params = curriculum.Normalize(params)
	t.notice(generatingText)

	j := job.New(uuid.NewString(), job.KindGenerate)
	t.d.jobs.Track(j)
	defer t.d.jobs.Release(j.ID)

	id, err := t.d.deps.Generator.GenerateCurriculum(context.WithoutCancel(t.ctx), params)
	if err != nil {
		_ = j.Finish(job.StateFailed)
		t.fail("generate", "Could not generate the learning path", err)
		return
	}
	_ = j.Finish(job.StateSucceeded)
	t.say(model.Utterance{Origin: model.OriginAssistant, Kind: model.KindActionWidget, Text: pathReadyText, ArtifactID: id})
	t.send(model.Event{Type: model.EventNavigateToArtifact, ArtifactID: id})
}
