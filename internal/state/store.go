// Package state holds the job collection shared by every view.
package state

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"jobportal/internal/domain"
	"jobportal/internal/events"
	"jobportal/internal/jobsapi"
	"jobportal/internal/logger"
	"jobportal/internal/metrics"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// Backend is the subset of jobsapi.Client the store needs.
type Backend interface {
	List(ctx context.Context) ([]domain.Job, error)
	Get(ctx context.Context, id int64) (domain.Job, error)
	Create(ctx context.Context, d domain.Draft) (domain.Job, error)
	Delete(ctx context.Context, id int64) error
}

// Snapshot is a read-only copy of the store state.
type Snapshot struct {
	Jobs        []domain.Job
	Loading     bool
	Error       string
	LastRefresh time.Time
}

const fetchKey = "jobs"

// Store owns the canonical job list with its loading and error flags.
// Fetches run on the store's own lifetime, so a caller that goes away
// stops waiting without aborting the shared request.
type Store struct {
	api    atomic.Pointer[backendRef]
	hub    *events.Hub
	log    zerolog.Logger
	tracer trace.Tracer
	cards  *Cards

	life   context.Context
	cancel context.CancelFunc
	sf     singleflight.Group

	mu          sync.Mutex
	jobs        []domain.Job
	inflight    int
	errMsg      string
	started     uint64 // generation of the newest fetch started
	applied     uint64 // generation of the newest fetch applied
	closed      bool
	lastRefresh time.Time
}

func New(api Backend, hub *events.Hub) *Store {
	life, cancel := context.WithCancel(context.Background())
	s := &Store{
		hub:    hub,
		log:    logger.Component("store"),
		tracer: otel.Tracer("jobportal-state"),
		cards:  NewCards(),
		life:   life,
		cancel: cancel,
		jobs:   []domain.Job{},
	}
	s.SetBackend(api)
	return s
}

type backendRef struct{ Backend }

// SetBackend replaces the backend for requests started from now on.
// Requests already in flight finish against the old one.
func (s *Store) SetBackend(api Backend) {
	s.api.Store(&backendRef{api})
}

func (s *Store) backend() Backend { return s.api.Load().Backend }

func (s *Store) Cards() *Cards { return s.cards }

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]domain.Job, len(s.jobs))
	copy(jobs, s.jobs)
	return Snapshot{
		Jobs:        jobs,
		Loading:     s.inflight > 0,
		Error:       s.errMsg,
		LastRefresh: s.lastRefresh,
	}
}

// Close stops in-flight work. Results that arrive afterwards are dropped.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

// FetchJobs refreshes the collection, joining a fetch already in flight.
func (s *Store) FetchJobs(ctx context.Context) error {
	return s.wait(ctx, s.sf.DoChan(fetchKey, s.fetch(events.RequestIDFrom(ctx))))
}

// refetch starts a fetch that is guaranteed to begin after the caller's
// preceding write.
func (s *Store) refetch(ctx context.Context) error {
	s.sf.Forget(fetchKey)
	return s.FetchJobs(ctx)
}

func (s *Store) wait(ctx context.Context, ch <-chan singleflight.Result) error {
	select {
	case r := <-ch:
		if r.Err != nil {
			return &UserError{Message: MsgFetchFailed, Err: r.Err}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) fetch(reqID string) func() (any, error) {
	return func() (any, error) {
		gen, ok := s.begin()
		if !ok {
			return nil, ErrClosed
		}
		defer s.end()

		ctx, span := s.tracer.Start(s.life, "store.FetchJobs", trace.WithAttributes(
			attribute.Int64("fetch.generation", int64(gen)),
		))
		defer span.End()

		jobs, err := s.backend().List(ctx)
		s.apply(gen, reqID, jobs, err)
		return nil, err
	}
}

func (s *Store) begin() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, false
	}
	s.started++
	s.inflight++
	s.errMsg = ""
	return s.started, true
}

func (s *Store) end() {
	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()
}

func (s *Store) apply(gen uint64, reqID string, jobs []domain.Job, err error) {
	s.mu.Lock()
	if s.closed || gen < s.applied {
		s.mu.Unlock()
		metrics.StaleFetchesTotal.Inc()
		s.log.Debug().Uint64("generation", gen).Msg("dropping stale fetch result")
		return
	}
	s.applied = gen
	if err != nil {
		s.errMsg = MsgFetchFailed
		s.mu.Unlock()

		backendFields(s.log.Warn().Err(err), err).Str("request_id", reqID).Msg("job list fetch failed")
		s.hub.Publish(events.New(reqID, events.TypeFetchFailed, nil))
		return
	}

	s.jobs = jobs
	s.errMsg = ""
	s.lastRefresh = time.Now()
	present := make(map[int64]bool, len(jobs))
	for _, j := range jobs {
		present[j.ID] = true
	}
	s.mu.Unlock()

	s.cards.prune(present)
	metrics.JobsLoaded.Set(float64(len(jobs)))
	s.log.Debug().Int("jobs", len(jobs)).Str("request_id", reqID).Msg("job list refreshed")
	s.hub.Publish(events.New(reqID, events.TypeJobsChanged, map[string]any{"count": len(jobs)}))
}

// backendFields tags a log event with how the backend failed.
func backendFields(e *zerolog.Event, err error) *zerolog.Event {
	if jobsapi.IsTransport(err) {
		return e.Bool("backend_unreachable", true)
	}
	return e.Int("backend_status", jobsapi.StatusCode(err))
}

func (s *Store) setError(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// detach keeps ctx values but ties cancellation to the store lifetime.
func (s *Store) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	c, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(s.life, cancel)
	return c, func() {
		stop()
		cancel()
	}
}

// DeleteJob deletes id on the backend, then refreshes the collection. No
// job is removed locally before the backend confirms. A failed refresh
// after a successful delete is reported through the store error, not here.
func (s *Store) DeleteJob(ctx context.Context, id int64) error {
	if s.isClosed() {
		return ErrClosed
	}
	ctx, done := s.detach(ctx)
	defer done()

	ctx, span := s.tracer.Start(ctx, "store.DeleteJob", trace.WithAttributes(attribute.Int64("job.id", id)))
	defer span.End()

	reqID := events.RequestIDFrom(ctx)
	if err := s.backend().Delete(ctx, id); err != nil {
		span.RecordError(err)
		s.setError(MsgDeleteFailed)
		backendFields(s.log.Warn().Err(err), err).Int64("job_id", id).Str("request_id", reqID).Msg("delete failed")
		return &UserError{Message: MsgDeleteFailed, Err: err}
	}
	s.hub.Publish(events.New(reqID, events.TypeJobDeleted, map[string]any{"id": id}))

	if err := s.refetch(ctx); err != nil {
		s.log.Warn().Err(err).Int64("job_id", id).Msg("refresh after delete failed")
	}
	return nil
}

// ConfirmDelete runs DeleteJob for a card in the confirming state and
// moves the card through deleting. A second call while deleting gets
// ErrDeleteInProgress without touching the backend.
func (s *Store) ConfirmDelete(ctx context.Context, id int64) error {
	if err := s.cards.Begin(id); err != nil {
		return err
	}
	err := s.DeleteJob(ctx, id)
	s.cards.Finish(id, err)
	return err
}

// CreateJob posts the draft and refreshes the collection. The draft must
// already be validated.
func (s *Store) CreateJob(ctx context.Context, d domain.Draft) (domain.Job, error) {
	if s.isClosed() {
		return domain.Job{}, ErrClosed
	}
	ctx, done := s.detach(ctx)
	defer done()

	ctx, span := s.tracer.Start(ctx, "store.CreateJob")
	defer span.End()

	reqID := events.RequestIDFrom(ctx)
	j, err := s.backend().Create(ctx, d)
	if err != nil {
		span.RecordError(err)
		backendFields(s.log.Warn().Err(err), err).Str("request_id", reqID).Msg("create failed")
		return domain.Job{}, &UserError{Message: MsgCreateFailed, Err: err}
	}
	s.hub.Publish(events.New(reqID, events.TypeJobCreated, map[string]any{"id": j.ID}))

	if err := s.refetch(ctx); err != nil {
		s.log.Warn().Err(err).Msg("refresh after create failed")
	}
	return j, nil
}

// FetchJobDetails loads one job for a detail view. It does not touch the
// shared collection and runs on the caller's context.
func (s *Store) FetchJobDetails(ctx context.Context, id int64) (domain.Job, error) {
	ctx, span := s.tracer.Start(ctx, "store.FetchJobDetails", trace.WithAttributes(attribute.Int64("job.id", id)))
	defer span.End()

	j, err := s.backend().Get(ctx, id)
	if err == nil {
		return j, nil
	}
	span.RecordError(err)
	if errors.Is(err, jobsapi.ErrNotFound) {
		return domain.Job{}, &UserError{Message: MsgNotFound, Err: err}
	}
	if ctx.Err() == nil {
		backendFields(s.log.Warn().Err(err), err).Int64("job_id", id).Str("request_id", events.RequestIDFrom(ctx)).Msg("job detail fetch failed")
	}
	return domain.Job{}, &UserError{Message: MsgDetailFailed, Err: err}
}
