package scraper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/maltedev/flipkart-scraper/internal/browser"
	"github.com/maltedev/flipkart-scraper/internal/events"
	"github.com/maltedev/flipkart-scraper/internal/models"
)

// fakeSession serves canned markup per URL.
type fakeSession struct {
	mu          sync.Mutex
	pages       map[string]string
	navErrors   map[string]error
	ready       map[string]bool
	navigations []string
	waited      []string
	closeCalls  int
	onNavigate  func(url string)
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		pages:     map[string]string{},
		navErrors: map[string]error{},
		ready:     map[string]bool{},
	}
}

func (s *fakeSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.navigations = append(s.navigations, url)
	hook := s.onNavigate
	err := s.navErrors[url]
	s.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	return err
}

func (s *fakeSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waited = append(s.waited, selector)
	if s.ready[selector] {
		return nil
	}
	return errors.New("timeout waiting for selector")
}

func (s *fakeSession) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.navigations) == 0 {
		return "", errors.New("no page loaded")
	}
	return s.pages[s.navigations[len(s.navigations)-1]], nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCalls++
	return nil
}

func launcherFor(s *fakeSession) browser.Launcher {
	return browser.LauncherFunc(func(context.Context, *browser.Options) (browser.Session, error) {
		return s, nil
	})
}

// fakeStore records every batch it receives.
type fakeStore struct {
	mu        sync.Mutex
	batches   [][]models.ProductRecord
	insertErr error
}

func (s *fakeStore) InsertBatch(ctx context.Context, records []models.ProductRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]models.ProductRecord(nil), records...))
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	return len(records), nil
}

func (s *fakeStore) InsertOne(ctx context.Context, record models.ProductRecord) (bool, error) {
	n, err := s.InsertBatch(ctx, []models.ProductRecord{record})
	return n == 1, err
}

func (s *fakeStore) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n, nil
}

func (s *fakeStore) Clear(context.Context) (bool, error)                          { return true, nil }
func (s *fakeStore) List(context.Context, int) ([]models.StoredProduct, error) { return nil, nil }
func (s *fakeStore) Close() error                                               { return nil }

type fakePublisher struct {
	mu     sync.Mutex
	events []*events.RunCompleted
	err    error
}

func (p *fakePublisher) PublishRunCompleted(ctx context.Context, e *events.RunCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

type panickingParser struct {
	panicOn string
	next    Parser
}

func (p panickingParser) ParsePage(markup string) ([]models.ProductRecord, error) {
	if markup == p.panicOn {
		panic("unexpected layout")
	}
	return p.next.ParsePage(markup)
}

type stubParser struct {
	records []models.ProductRecord
}

func (p stubParser) ParsePage(string) ([]models.ProductRecord, error) {
	return p.records, nil
}
