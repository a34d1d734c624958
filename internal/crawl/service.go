// Package crawl runs multi-page site crawls as asynchronous jobs with start/poll semantics.
package crawl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	internaldb "github.com/metalagman/pathwise/internal/db"
	"github.com/metalagman/pathwise/internal/job"
	"github.com/metalagman/pathwise/internal/model"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrJobNotFound is returned when checking an unknown job id.
var ErrJobNotFound = errors.New("crawl job not found")

const (
	statusRunning   = "running"
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
)

// ContentSaver persists a finished crawl for reuse by other sessions.
type ContentSaver interface {
	Save(ctx context.Context, rc model.RetrievedContext) error
}

// Config controls crawl behavior.
type Config struct {
	Concurrency    int
	RequestTimeout time.Duration
	MaxPagesLimit  int
}

// Service starts crawl jobs in the background and reports their status from the database.
type Service struct {
	db      *sql.DB
	fetcher *Fetcher
	saver   ContentSaver
	cfg     Config

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewService creates a crawl service. saver may be nil.
func NewService(db *sql.DB, fetcher *Fetcher, saver ContentSaver, cfg Config) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxPagesLimit <= 0 {
		cfg.MaxPagesLimit = 100
	}
	if fetcher == nil {
		fetcher = NewFetcher(cfg.RequestTimeout, nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		db:      db,
		fetcher: fetcher,
		saver:   saver,
		cfg:     cfg,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// StartCrawl registers a crawl of rootURL and returns its job id. The crawl
// itself runs in the background and outlives ctx.
func (s *Service) StartCrawl(ctx context.Context, rootURL string, maxPages int) (string, error) {
	root, err := normalizeRoot(rootURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrCrawl, err)
	}
	if maxPages <= 0 {
		maxPages = 1
	}
	if maxPages > s.cfg.MaxPagesLimit {
		maxPages = s.cfg.MaxPagesLimit
	}
	if s.baseCtx.Err() != nil {
		return "", fmt.Errorf("%w: crawler is shut down", model.ErrCrawl)
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, `INSERT INTO crawl_jobs(job_id, root_url, max_pages, status, progress, reason, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, NULL, ?, ?)`,
		id, root.String(), maxPages, statusRunning, progress(0, maxPages), now, now); err != nil {
		return "", fmt.Errorf("%w: insert job: %v", model.ErrCrawl, err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(id, root, maxPages)
	}()

	log.Info().Str("job_id", id).Str("url", root.String()).Int("max_pages", maxPages).Msg("crawl started")
	return id, nil
}

// CheckCrawlStatus reports the state of a crawl job. Succeeded carries the pages in crawl order.
func (s *Service) CheckCrawlStatus(ctx context.Context, jobID string) (job.Status[[]model.Page], error) {
	var status, prog string
	var reason sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT status, progress, reason FROM crawl_jobs WHERE job_id=?`, jobID).Scan(&status, &prog, &reason)
	if errors.Is(err, sql.ErrNoRows) {
		return job.Status[[]model.Page]{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if err != nil {
		return job.Status[[]model.Page]{}, fmt.Errorf("%w: get job %s: %v", model.ErrCrawl, jobID, err)
	}

	switch status {
	case statusSucceeded:
		pages, err := s.pages(ctx, jobID)
		if err != nil {
			return job.Status[[]model.Page]{}, err
		}
		return job.Succeeded(pages), nil
	case statusFailed:
		return job.Failed[[]model.Page](reason.String), nil
	}
	return job.Pending[[]model.Page](prog), nil
}

// Close stops running crawls and waits for them to exit.
func (s *Service) Close() error {
	s.cancel()
	s.wg.Wait()
	s.fetcher.CloseIdleConnections()
	return nil
}

func (s *Service) pages(ctx context.Context, jobID string) ([]model.Page, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source_url, title, body FROM crawl_pages WHERE job_id=? ORDER BY seq`, jobID)
	if err != nil {
		return nil, fmt.Errorf("%w: list pages: %v", model.ErrCrawl, err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Page
	for rows.Next() {
		var p model.Page
		if err := rows.Scan(&p.SourceURL, &p.Title, &p.Body); err != nil {
			return nil, fmt.Errorf("%w: scan page: %v", model.ErrCrawl, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate pages: %v", model.ErrCrawl, err)
	}
	return out, nil
}

// run crawls breadth-first within the root host, fetching each level concurrently.
func (s *Service) run(id string, root *url.URL, maxPages int) {
	ctx := s.baseCtx
	logger := log.With().Str("job_id", id).Logger()

	visited := map[string]struct{}{root.String(): {}}
	frontier := []string{root.String()}
	var pages []model.Page
	var rootErr error

	for len(frontier) > 0 && len(pages) < maxPages {
		if room := maxPages - len(pages); len(frontier) > room {
			frontier = frontier[:room]
		}
		docs := make([]*Document, len(frontier))
		errs := make([]error, len(frontier))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.cfg.Concurrency)
		for i, target := range frontier {
			g.Go(func() error {
				doc, err := s.fetcher.Fetch(gctx, target)
				if err != nil {
					errs[i] = err
					return nil
				}
				docs[i] = &doc
				return nil
			})
		}
		_ = g.Wait()
		if ctx.Err() != nil {
			s.fail(id, "cancelled")
			return
		}

		var next []string
		for i, doc := range docs {
			if doc == nil {
				if len(pages) == 0 && i == 0 && frontier[i] == root.String() {
					rootErr = errs[i]
				}
				logger.Debug().Err(errs[i]).Str("url", frontier[i]).Msg("page skipped")
				continue
			}
			pages = append(pages, model.Page{SourceURL: doc.URL, Title: doc.Title, Body: doc.Body})
			for _, link := range doc.Links {
				if !sameSite(root, link) {
					continue
				}
				if _, ok := visited[link]; ok {
					continue
				}
				visited[link] = struct{}{}
				next = append(next, link)
			}
		}
		s.setProgress(id, progress(len(pages), maxPages))
		frontier = next
	}

	if len(pages) == 0 {
		reason := "no pages retrieved"
		if rootErr != nil {
			reason = rootErr.Error()
		}
		s.fail(id, reason)
		return
	}
	if s.saver != nil {
		rc := model.RetrievedContext{SourceID: root.String(), Body: model.JoinPages(pages), RetrievedAt: time.Now().UTC()}
		if err := s.saver.Save(context.WithoutCancel(ctx), rc); err != nil {
			logger.Warn().Err(err).Msg("cache crawl result")
		}
	}
	if err := s.finish(id, pages); err != nil {
		logger.Error().Err(err).Msg("store crawl result")
		s.fail(id, err.Error())
		return
	}
	logger.Info().Int("pages", len(pages)).Msg("crawl finished")
}

func (s *Service) finish(id string, pages []model.Page) error {
	ctx := context.WithoutCancel(s.baseCtx)
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin finish crawl: %w", err)
	}
	for i, p := range pages {
		if _, err := tx.ExecContext(ctx, `INSERT INTO crawl_pages(job_id, seq, source_url, title, body) VALUES(?, ?, ?, ?, ?)`,
			id, i, p.SourceURL, p.Title, p.Body); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert page: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE crawl_jobs SET status=?, progress=?, updated_at=? WHERE job_id=?`,
		statusSucceeded, progress(len(pages), len(pages)), time.Now().UTC().Format(time.RFC3339), id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit finish crawl: %w", err)
	}
	return nil
}

func (s *Service) fail(id, reason string) {
	ctx := context.WithoutCancel(s.baseCtx)
	if _, err := s.db.ExecContext(ctx, `UPDATE crawl_jobs SET status=?, reason=?, updated_at=? WHERE job_id=?`,
		statusFailed, internaldb.NullableString(reason), time.Now().UTC().Format(time.RFC3339), id); err != nil {
		log.Error().Err(err).Str("job_id", id).Msg("mark crawl failed")
		return
	}
	log.Warn().Str("job_id", id).Str("reason", reason).Msg("crawl failed")
}

func (s *Service) setProgress(id, prog string) {
	ctx := context.WithoutCancel(s.baseCtx)
	if _, err := s.db.ExecContext(ctx, `UPDATE crawl_jobs SET progress=?, updated_at=? WHERE job_id=?`,
		prog, time.Now().UTC().Format(time.RFC3339), id); err != nil {
		log.Warn().Err(err).Str("job_id", id).Msg("update crawl progress")
	}
}

func progress(done, total int) string {
	return fmt.Sprintf("%d/%d pages", done, total)
}

func normalizeRoot(raw string) (*url.URL, error) {
	u, err := url.Parse(model.CanonicalSourceID(raw))
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url %q", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("url %q has no host", raw)
	}
	return u, nil
}

func sameSite(root *url.URL, link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, root.Host)
}
