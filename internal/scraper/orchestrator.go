package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/flipkart-scraper/internal/browser"
	"github.com/maltedev/flipkart-scraper/internal/config"
	"github.com/maltedev/flipkart-scraper/internal/events"
	"github.com/maltedev/flipkart-scraper/internal/models"
	"github.com/maltedev/flipkart-scraper/internal/storage"
)

type State string

const (
	StateIdle            State = "idle"
	StateSessionAcquired State = "session_acquired"
	StateFetching        State = "fetching"
	StateParsing         State = "parsing"
	StateSessionReleased State = "session_released"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// RunResult summarises one scrape run.
type RunResult struct {
	RunID          string                 `json:"run_id"`
	Keyword        string                 `json:"keyword"`
	PagesRequested int                    `json:"pages_requested"`
	PagesAttempted int                    `json:"pages_attempted"`
	PagesFailed    int                    `json:"pages_failed"`
	Records        []models.ProductRecord `json:"records"`
	Inserted       int                    `json:"inserted"`
	StartedAt      time.Time              `json:"started_at"`
	FinishedAt     time.Time              `json:"finished_at"`
}

type Dependencies struct {
	Launcher       browser.Launcher
	BrowserOptions *browser.Options
	Fetcher        *Fetcher
	Parser         Parser
	Store          storage.Store
	Publisher      events.Publisher
	Logger         *slog.Logger
}

// Orchestrator drives a scrape run: one browser session, pages fetched and
// parsed strictly in order, one batch insert at the end. Runs on the same
// orchestrator never overlap.
type Orchestrator struct {
	cfg       config.ScraperConfig
	launcher  browser.Launcher
	opts      *browser.Options
	fetcher   *Fetcher
	parser    Parser
	store     storage.Store
	publisher events.Publisher
	logger    *slog.Logger

	runMu   sync.Mutex
	stateMu sync.RWMutex
	state   State
}

func NewOrchestrator(cfg config.ScraperConfig, deps Dependencies) *Orchestrator {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &Orchestrator{
		cfg:       cfg,
		launcher:  deps.Launcher,
		opts:      deps.BrowserOptions,
		fetcher:   deps.Fetcher,
		parser:    deps.Parser,
		store:     deps.Store,
		publisher: publisher,
		logger:    deps.Logger.With("component", "orchestrator"),
		state:     StateIdle,
	}
}

func (o *Orchestrator) State() State {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.stateMu.Lock()
	o.state = s
	o.stateMu.Unlock()
}

// Run scrapes up to req.PageCount pages, capped at the configured maximum,
// and stores everything found. Only a failure to start the browser session
// (a *browser.SessionSetupError) or cancellation of ctx is returned as an
// error; failed pages and unparseable products just yield fewer records.
func (o *Orchestrator) Run(ctx context.Context, req models.SearchRequest) (*RunResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	o.runMu.Lock()
	defer o.runMu.Unlock()

	o.setState(StateIdle)

	result := &RunResult{
		RunID:          uuid.New().String(),
		Keyword:        req.Keyword,
		PagesRequested: min(req.PageCount, o.cfg.MaxPages),
		StartedAt:      time.Now(),
	}

	logger := o.logger.With("run_id", result.RunID, "keyword", req.Keyword)
	logger.Info("starting scrape", "pages", result.PagesRequested)

	err := browser.WithSession(ctx, o.launcher, o.opts, logger, func(session browser.Session) error {
		o.setState(StateSessionAcquired)
		return o.crawl(ctx, session, result, logger)
	})

	var setupErr *browser.SessionSetupError
	if errors.As(err, &setupErr) {
		o.setState(StateFailed)
		logger.Error("could not start browser session", "error", err)
		return nil, err
	}
	o.setState(StateSessionReleased)

	if err != nil {
		result.FinishedAt = time.Now()
		logger.Warn("scrape cancelled", "error", err, "records", len(result.Records))
		return result, err
	}

	logger.Info("scraping completed", "records", len(result.Records), "pages_failed", result.PagesFailed)

	if len(result.Records) > 0 {
		inserted, err := o.store.InsertBatch(ctx, result.Records)
		if err != nil {
			logger.Error("failed to save products", "error", err)
		} else {
			logger.Info("saved products to database", "inserted", inserted)
		}
		result.Inserted = inserted
	} else {
		logger.Warn("no products found")
	}

	result.FinishedAt = time.Now()
	o.publish(ctx, result, logger)
	o.setState(StateDone)

	return result, nil
}

func (o *Orchestrator) crawl(ctx context.Context, session browser.Session, result *RunResult, logger *slog.Logger) error {
	for pageIndex := 1; pageIndex <= result.PagesRequested; pageIndex++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		target := models.PageTarget{Keyword: result.Keyword, PageIndex: pageIndex}
		records, err := o.scrapePage(ctx, session, target)
		result.PagesAttempted++
		if err != nil {
			result.PagesFailed++
			logger.Error("failed to scrape page", "page", pageIndex, "error", err)
			continue
		}

		logger.Info("page scraped", "page", pageIndex, "products", len(records))
		for _, rec := range records {
			if problems := rec.Validate(); len(problems) > 0 {
				logger.Debug("dropping invalid product", "page", pageIndex, "title", rec.Title, "problems", problems)
				continue
			}
			result.Records = append(result.Records, rec)
		}
	}

	// a cancel during the last page must not be mistaken for a finished run
	return ctx.Err()
}

// scrapePage fetches and parses one page. A panic anywhere in the page's
// processing is converted to an error so the remaining pages still run.
func (o *Orchestrator) scrapePage(ctx context.Context, session browser.Session, target models.PageTarget) (records []models.ProductRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			records, err = nil, fmt.Errorf("page %d: recovered from panic: %v", target.PageIndex, r)
		}
	}()

	pageURL := BuildURL(o.cfg.BaseURL, o.cfg.SearchEndpoint, target.Keyword, target.PageIndex)

	o.setState(StateFetching)
	fetched := o.fetcher.Fetch(ctx, session, pageURL)
	if !fetched.OK() {
		return nil, fmt.Errorf("%w: %s", ErrNoContent, pageURL)
	}

	o.setState(StateParsing)
	records, err = o.parser.ParsePage(fetched.Markup)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", target.PageIndex, err)
	}
	return records, nil
}

func (o *Orchestrator) publish(ctx context.Context, result *RunResult, logger *slog.Logger) {
	event := &events.RunCompleted{
		RunID:          result.RunID,
		Keyword:        result.Keyword,
		PagesRequested: result.PagesRequested,
		PagesAttempted: result.PagesAttempted,
		PagesFailed:    result.PagesFailed,
		Records:        len(result.Records),
		Inserted:       result.Inserted,
		Timestamp:      result.FinishedAt.UTC(),
	}
	if err := o.publisher.PublishRunCompleted(ctx, event); err != nil {
		logger.Warn("failed to publish run event", "error", err)
	}
}
