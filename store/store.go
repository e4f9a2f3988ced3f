// ABOUTME: In-memory pipeline state store backed by the remote API
// ABOUTME: Owns the lead, client, customer, and goal collections, observers, and memoized metrics
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/harperreed/agencycrm/api"
	"github.com/harperreed/agencycrm/metrics"
	"github.com/harperreed/agencycrm/models"
)

var (
	ErrUnknownLead     = errors.New("lead not found")
	ErrLeadNotSaved    = errors.New("lead must be saved before it can be converted")
	ErrUnknownClient   = errors.New("client not found")
	ErrUnknownCustomer = errors.New("customer not found")
	ErrUnknownTask     = errors.New("task not found")
	ErrUnknownNote     = errors.New("note not found")
	ErrNoGoal          = errors.New("no current goal")
	ErrInvalidInput    = errors.New("invalid input")
)

// Remote is the subset of the API client the store drives. *api.Client satisfies it.
type Remote interface {
	ListLeads(ctx context.Context) ([]models.Lead, error)
	CreateLead(ctx context.Context, lead models.Lead) (models.Lead, error)
	UpdateLead(ctx context.Context, id string, lead models.Lead) (models.Lead, error)
	DeleteLead(ctx context.Context, id string) error

	ListClients(ctx context.Context) ([]models.Client, error)
	CreateClient(ctx context.Context, client models.Client) (models.Client, error)
	UpdateClient(ctx context.Context, id string, client models.Client) (models.Client, error)
	DeleteClient(ctx context.Context, id string) error

	ListCustomers(ctx context.Context) ([]models.Customer, error)
	CreateCustomer(ctx context.Context, customer models.Customer) (models.Customer, error)
	UpdateCustomer(ctx context.Context, id string, customer models.Customer) (models.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error

	ListGoals(ctx context.Context) ([]models.Goal, error)
	CreateGoal(ctx context.Context, goal models.Goal) (models.Goal, error)
	UpdateGoal(ctx context.Context, id string, goal models.Goal) (models.Goal, error)

	ListTasks(ctx context.Context) ([]models.Task, error)
	CreateTask(ctx context.Context, task models.Task) (models.Task, error)
	UpdateTask(ctx context.Context, id string, task models.Task) (models.Task, error)
	DeleteTask(ctx context.Context, id string) error
	GenerateOnboardingTasks(ctx context.Context, clientID, serviceType string) ([]models.Task, error)

	ListNotes(ctx context.Context, filter models.NoteFilter) ([]models.Note, error)
	CreateNote(ctx context.Context, note models.Note) (models.Note, error)
	UpdateNote(ctx context.Context, id string, note models.Note) (models.Note, error)
	DeleteNote(ctx context.Context, id string) error

	ListActivities(ctx context.Context, limit int) ([]models.Activity, error)
	DeleteActivity(ctx context.Context, id string) error

	Stats(ctx context.Context) (models.RemoteStats, error)
}

var _ Remote = (*api.Client)(nil)

// Cache keeps the last successfully loaded pipeline for offline use.
type Cache interface {
	SaveSnapshot(ctx context.Context, p models.Pipeline) error
	// LoadSnapshot returns nil when nothing has been cached yet.
	LoadSnapshot(ctx context.Context) (*models.Pipeline, time.Time, error)
	RecordSyncError(ctx context.Context, cause error) error
}

// Defaults for store options.
const (
	DefaultBulkConcurrency = 8
	DefaultNoticeTTL       = 5 * time.Second
)

// Snapshot is a deep copy of the store state handed to readers and observers.
type Snapshot struct {
	models.Pipeline
	Tasks       []models.Task
	Notes       []models.Note
	Activities  []models.Activity
	Notice      *Notice
	Celebrating bool
	Loaded      bool
	Offline     bool
	CachedAt    time.Time
	Version     uint64
}

// Store holds the local copy of the pipeline. All methods are safe for concurrent use.
type Store struct {
	remote Remote
	cache  Cache
	log    zerolog.Logger
	now    func() time.Time
	newID  func() string

	rollbackPayment bool
	bulkConcurrency int
	activityLimit   int
	noticeTTL       time.Duration

	mu          sync.RWMutex
	state       models.Pipeline
	tasks       []models.Task
	notes       []models.Note
	activities  []models.Activity
	notice      *Notice
	celebrating bool
	loaded      bool
	offline     bool
	cachedAt    time.Time
	version     uint64

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int

	metricsMu      sync.Mutex
	metricsVersion uint64
	metricsMinute  time.Time
	metricsCache   *metrics.Dashboard
}

type Option func(*Store)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the generator for client-side record ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func WithCache(c Cache) Option {
	return func(s *Store) { s.cache = c }
}

// WithRollbackOnPaymentError restores the previous payment total when the server rejects an update.
func WithRollbackOnPaymentError(enabled bool) Option {
	return func(s *Store) { s.rollbackPayment = enabled }
}

func WithBulkConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.bulkConcurrency = n
		}
	}
}

func WithActivityLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.activityLimit = n
		}
	}
}

func WithNoticeTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.noticeTTL = d
		}
	}
}

// New creates an empty store. Call Load to populate it.
func New(remote Remote, opts ...Option) *Store {
	s := &Store{
		remote:          remote,
		log:             zerolog.Nop(),
		now:             time.Now,
		newID:           uuid.NewString,
		bulkConcurrency: DefaultBulkConcurrency,
		activityLimit:   api.DefaultActivityLimit,
		noticeTTL:       DefaultNoticeTTL,
		subs:            make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Remote exposes the underlying API for read-only calls such as server stats.
func (s *Store) Remote() Remote {
	return s.remote
}

// Subscribe registers fn to receive a snapshot after every change. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	if len(subs) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range subs {
		fn(snap)
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Pipeline:    clonePipeline(s.state),
		Tasks:       cloneTasks(s.tasks),
		Notes:       cloneSlice(s.notes),
		Activities:  cloneSlice(s.activities),
		Celebrating: s.celebrating,
		Loaded:      s.loaded,
		Offline:     s.offline,
		CachedAt:    s.cachedAt,
		Version:     s.version,
	}
	snap.Notice = s.activeNoticeLocked()
	return snap
}

// Pipeline returns a deep copy of the primary collections.
func (s *Store) Pipeline() models.Pipeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clonePipeline(s.state)
}

// Metrics returns the dashboard for the latest applied mutation.
// The result is reused until the state changes or the minute rolls over.
func (s *Store) Metrics() metrics.Dashboard {
	now := s.now()
	minute := now.Truncate(time.Minute)

	s.mu.RLock()
	version := s.version
	s.mu.RUnlock()

	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	if s.metricsCache != nil && s.metricsVersion == version && s.metricsMinute.Equal(minute) {
		return *s.metricsCache
	}

	s.mu.RLock()
	p := clonePipeline(s.state)
	version = s.version
	s.mu.RUnlock()

	d := metrics.Compute(p, now)
	s.metricsCache = &d
	s.metricsVersion = version
	s.metricsMinute = minute
	return d
}

// mutate applies fn to the state under the write lock and notifies observers.
func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	fn()
	s.version++
	s.mu.Unlock()
	s.notify()
}

// commit is mutate followed by the goal achievement check.
func (s *Store) commit(ctx context.Context, fn func()) {
	s.mutate(fn)
	s.checkGoal(ctx)
}

// Now reads the store's clock.
func (s *Store) Now() time.Time {
	return s.now()
}

func (s *Store) today() models.Date {
	return models.DateOf(s.now())
}

// Load fetches the four primary collections and goals, replacing local state.
// When the API is unreachable and a cached snapshot exists, it is served in offline mode.
func (s *Store) Load(ctx context.Context) error {
	p, err := s.fetchPipeline(ctx)
	if err != nil {
		if s.serveCached(ctx, err) {
			return nil
		}
		return s.fail("load", "Failed to load data", err)
	}

	s.commit(ctx, func() {
		s.state = p
		s.loaded = true
		s.offline = false
		s.cachedAt = time.Time{}
	})

	if s.cache != nil {
		if err := s.cache.SaveSnapshot(ctx, clonePipeline(p)); err != nil {
			s.log.Warn().Err(err).Msg("failed to cache pipeline snapshot")
		}
	}
	s.log.Debug().
		Int("leads", len(p.Leads)).
		Int("saved_leads", len(p.SavedLeads)).
		Int("clients", len(p.Clients)).
		Int("customers", len(p.Customers)).
		Msg("pipeline loaded")
	return nil
}

// Reload is the manual sync action: a full Load of every primary collection.
func (s *Store) Reload(ctx context.Context) error {
	return s.Load(ctx)
}

// LoadOffline serves the cached snapshot without contacting the API.
func (s *Store) LoadOffline(ctx context.Context) error {
	if s.cache == nil {
		return fmt.Errorf("offline mode requires a cache")
	}
	cached, at, err := s.cache.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}
	if cached == nil {
		return fmt.Errorf("no cached data available")
	}
	s.mutate(func() {
		s.state = *cached
		s.loaded = true
		s.offline = true
		s.cachedAt = at
	})
	return nil
}

func (s *Store) serveCached(ctx context.Context, cause error) bool {
	if s.cache == nil {
		return false
	}
	if err := s.cache.RecordSyncError(ctx, cause); err != nil {
		s.log.Warn().Err(err).Msg("failed to record sync error")
	}
	cached, at, err := s.cache.LoadSnapshot(ctx)
	if err != nil || cached == nil {
		return false
	}

	s.log.Warn().Err(cause).Time("cached_at", at).Msg("serving cached pipeline")
	s.mutate(func() {
		s.state = *cached
		s.loaded = true
		s.offline = true
		s.cachedAt = at
	})
	s.raise(LevelWarning, fmt.Sprintf("Offline: showing data cached at %s", at.Local().Format("2006-01-02 15:04")))
	return true
}

func (s *Store) fetchPipeline(ctx context.Context) (models.Pipeline, error) {
	var (
		leads     []models.Lead
		clients   []models.Client
		customers []models.Customer
		goals     []models.Goal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		leads, err = s.remote.ListLeads(gctx)
		return err
	})
	g.Go(func() (err error) {
		clients, err = s.remote.ListClients(gctx)
		return err
	})
	g.Go(func() (err error) {
		customers, err = s.remote.ListCustomers(gctx)
		return err
	})
	g.Go(func() (err error) {
		goals, err = s.remote.ListGoals(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Pipeline{}, err
	}

	p := models.Pipeline{
		Leads:      []models.Lead{},
		SavedLeads: []models.Lead{},
		Clients:    clients,
		Customers:  customers,
	}
	for _, l := range leads {
		if l.Status == models.LeadStatusSaved {
			p.SavedLeads = append(p.SavedLeads, l)
		} else {
			p.Leads = append(p.Leads, l)
		}
	}
	p.Goal, p.PreviousGoals = splitGoals(goals)
	if p.Clients == nil {
		p.Clients = []models.Client{}
	}
	if p.Customers == nil {
		p.Customers = []models.Customer{}
	}
	return p, nil
}

// splitGoals picks the first non-achieved goal as current; the rest are history.
func splitGoals(goals []models.Goal) (*models.Goal, []models.Goal) {
	var current *models.Goal
	previous := []models.Goal{}
	for _, g := range goals {
		if current == nil && !g.IsAchieved {
			g := g
			current = &g
			continue
		}
		previous = append(previous, g)
	}
	return current, previous
}

// fail logs a remote failure, raises an error notice with msg, and returns the wrapped error.
func (s *Store) fail(op, msg string, err error) error {
	s.log.Error().Err(err).Str("op", op).Msg(msg)
	s.raise(LevelError, msg)
	return fmt.Errorf("%s: %w", lowerFirst(msg), err)
}

// recoverNotFound handles a record deleted server-side: drop it locally, tell the user, and reload.
func (s *Store) recoverNotFound(ctx context.Context, err error, op, message string, drop func()) bool {
	if !errors.Is(err, api.ErrNotFound) {
		return false
	}
	s.log.Info().Str("op", op).Err(err).Msg("record already gone on server, reconciling")
	s.mutate(drop)
	s.raise(LevelInfo, message)
	if rerr := s.Reload(ctx); rerr != nil {
		s.log.Warn().Err(rerr).Str("op", op).Msg("reload after not-found failed")
	}
	return true
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func clonePipeline(p models.Pipeline) models.Pipeline {
	out := models.Pipeline{
		Leads:         cloneSlice(p.Leads),
		SavedLeads:    cloneSlice(p.SavedLeads),
		Clients:       cloneSlice(p.Clients),
		Customers:     cloneSlice(p.Customers),
		PreviousGoals: cloneSlice(p.PreviousGoals),
	}
	for i := range out.Clients {
		out.Clients[i].RenewalDate = cloneDate(out.Clients[i].RenewalDate)
	}
	for i := range out.Customers {
		out.Customers[i].RenewalDate = cloneDate(out.Customers[i].RenewalDate)
	}
	for i := range out.PreviousGoals {
		out.PreviousGoals[i].DateAchieved = cloneDate(out.PreviousGoals[i].DateAchieved)
	}
	if p.Goal != nil {
		g := *p.Goal
		g.DateAchieved = cloneDate(g.DateAchieved)
		out.Goal = &g
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneDate(d *models.Date) *models.Date {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func indexOf[T any](items []T, match func(T) bool) int {
	for i, it := range items {
		if match(it) {
			return i
		}
	}
	return -1
}

func removeAt[T any](items []T, i int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}
