package dispatch

import (
	"context"
	"fmt"

	"github.com/metalagman/pathwise/internal/job"
	"github.com/metalagman/pathwise/internal/model"
	"github.com/rs/zerolog/log"
)

// addToContext resolves url from the session store, then the shared cache, then a crawl.
// Both stores are keyed by model.CanonicalSourceID. The url leaves the pending
// suggestion list whatever the outcome.
func (t *turn) addToContext(url string) {
	defer t.sess.RemoveSuggestion(url)

	key := model.CanonicalSourceID(url)
	if _, ok := t.sess.Context().Lookup(key); ok {
		t.notice(fmt.Sprintf("%s is already in context.", url))
		return
	}
	if rc, ok := t.d.deps.Lookup.LookupCachedContent(t.ctx, key); ok {
		rc.SourceID = key
		t.sess.Context().Put(rc)
		t.sess.SetScraped(key + " (from the shared cache)")
		log.Info().Str("session", t.sess.ID).Str("url", url).Msg("context served from cache")
		t.notice(fmt.Sprintf("Added %s to context.", url))
		return
	}

	jobID, err := t.d.deps.Crawler.StartCrawl(t.ctx, url, t.d.cfg.MaxPages)
	if err != nil {
		t.fail("crawl", "Could not add "+url+" to context", err)
		return
	}

	j := job.New(jobID, job.KindCrawl)
	t.d.jobs.Track(j)
	defer t.d.jobs.Release(jobID)
	t.send(model.Event{Type: model.EventJobStarted, JobID: jobID})

	opts := t.d.cfg.Poll
	opts.OnProgress = func(_ int, progress string) {
		t.send(model.Event{Type: model.EventJobProgress, JobID: jobID, Progress: progress})
	}
	st := job.Poll(t.ctx, j, func(ctx context.Context) (job.Status[[]model.Page], error) {
		return t.d.deps.Crawler.CheckCrawlStatus(ctx, jobID)
	}, opts)

	if st.State != job.StateSucceeded {
		t.send(model.Event{Type: model.EventJobFailed, JobID: jobID, Message: st.Reason})
		t.fail("crawl", "Could not add "+url+" to context", st.Err())
		return
	}

	body := model.JoinPages(st.Result)
	t.sess.Context().Record(key, body)
	t.sess.SetScraped(fmt.Sprintf("%s (%d pages)", key, len(st.Result)))
	log.Info().Str("session", t.sess.ID).Str("url", url).Int("pages", len(st.Result)).Int("attempts", j.Attempts).Msg("context crawled")
	t.send(model.Event{Type: model.EventJobDone, JobID: jobID, Progress: fmt.Sprintf("%d pages", len(st.Result))})
	t.notice(fmt.Sprintf("Added %s to context (%d pages).", url, len(st.Result)))
}
