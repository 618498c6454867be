// Package services – LookupService
//
// LookupService drives one lookup from admission to delivery:
//
//	admission -> registration -> submit -> poll until terminal or deadline
//	          -> classify -> resolve (+charge on success) -> deliver
//
// Admission and registration run on the caller's goroutine and return
// quickly. Everything from submit onwards runs on a dedicated worker
// goroutine wrapped in a recover barrier: any failure resolves the record as
// error and reports the generic message, so no record stays pending and no
// panic escapes to the caller.
//
// Charging happens inside the registry's success transition
// (repo.ResolveSuccess), which only moves a record out of pending once. A
// record is therefore success if and only if its owner was charged, and a
// second resolution attempt is rejected without side effects.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-lookup-bot/internal/domain"
	"github.com/tbourn/go-lookup-bot/internal/registry"
	"github.com/tbourn/go-lookup-bot/internal/repo"
)

// LookupRepo defines the repository contract required by LookupService.
type LookupRepo interface {
	GetOrCreateUser(ctx context.Context, db *gorm.DB, id string, defaultCredits int64) (*domain.User, error)
	GetKindConfig(ctx context.Context, db *gorm.DB, kind domain.Kind) (*domain.KindConfig, error)

	CreateLookup(ctx context.Context, db *gorm.DB, userID string, kind domain.Kind, params string, price int64) (*domain.Lookup, error)
	// ResolveSuccess must charge the owner in the same transaction.
	ResolveSuccess(ctx context.Context, db *gorm.DB, id uint, raw string, at time.Time) (*domain.Lookup, error)
	ResolveFailure(ctx context.Context, db *gorm.DB, id uint, state domain.State, detail, raw string, at time.Time) error

	GetLookup(ctx context.Context, db *gorm.DB, id uint, userID string) (*domain.Lookup, error)
	CountLookups(ctx context.Context, db *gorm.DB, userID string) (int64, error)
	ListLookupsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Lookup, error)
	ListPendingLookups(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]domain.Lookup, error)
}

// RemoteClient is the two-phase registry protocol.
type RemoteClient interface {
	Submit(ctx context.Context, kind domain.Kind, p domain.Params) (handle string, err error)
	Poll(ctx context.Context, handle string) (*registry.Result, error)
}

// Notifier delivers results to the user's chat.
type Notifier interface {
	DeliverText(ctx context.Context, chatID int64, text string) error
	DeliverDocument(ctx context.Context, chatID int64, filename string, data []byte) error
}

// Attachment is a binary delivered as a document.
type Attachment struct {
	Filename string
	Data     []byte
}

// Presentation is a presenter's output: display text plus an optional binary.
type Presentation struct {
	Text       string
	Attachment *Attachment
}

// Presenter renders a billable result for display.
type Presenter func(res *registry.Result) (Presentation, error)

// DocumentGenerator renders a billable vehicle result as a document.
type DocumentGenerator func(res *registry.Result) (*Attachment, error)

// StartRequest is one "start lookup" trigger. Notifier, Present and Document
// are optional; without a Notifier nothing is delivered and callers read the
// outcome from the stored record.
type StartRequest struct {
	UserID string
	Kind   domain.Kind
	Params domain.Params

	ChatID   int64
	Notifier Notifier
	Present  Presenter
	Document DocumentGenerator
}

// LookupOptions tunes polling.
type LookupOptions struct {
	// Timeout is the default polling deadline; a kind's TimeoutSeconds overrides it.
	Timeout time.Duration
	// PollInterval is the fixed pause between polls.
	PollInterval time.Duration
	// DefaultCredits is granted to users created on first contact.
	DefaultCredits int64
}

// LookupService orchestrates lookups. Create it with NewLookupService.
type LookupService struct {
	DB     *gorm.DB
	Repo   LookupRepo
	Remote RemoteClient

	Timeout        time.Duration
	PollInterval   time.Duration
	DefaultCredits int64

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLookupService constructs a LookupService. Zero option values fall back
// to a 120s timeout and a 4s poll interval.
func NewLookupService(db *gorm.DB, r LookupRepo, remote RemoteClient, opts LookupOptions) *LookupService {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 4 * time.Second
	}
	base, cancel := context.WithCancel(context.Background())
	return &LookupService{
		DB:             db,
		Repo:           r,
		Remote:         remote,
		Timeout:        opts.Timeout,
		PollInterval:   opts.PollInterval,
		DefaultCredits: opts.DefaultCredits,
		now:            func() time.Time { return time.Now().UTC() },
		sleep:          sleepCtx,
		base:           base,
		cancel:         cancel,
	}
}

// Start runs admission and registration, launches the worker and returns
// the pending record. Admission failures are delivered to the Notifier and
// returned as ErrKindDisabled or ErrInsufficientCredits; they never create
// a record or reach the registry.
func (s *LookupService) Start(ctx context.Context, req StartRequest) (*domain.Lookup, error) {
	ctx, span := otel.Tracer("services/LookupService").Start(ctx, "Start",
		trace.WithAttributes(
			attribute.String("user.id", req.UserID),
			attribute.String("lookup.kind", req.Kind.String()),
		),
	)
	defer span.End()

	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return nil, ErrMissingUser
	}
	if !req.Kind.Valid() {
		return nil, ErrUnknownKind
	}
	if err := req.Params.Validate(req.Kind); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	kc, err := s.Repo.GetKindConfig(ctx, s.DB, req.Kind)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUnknownKind
	}
	if err != nil {
		return nil, err
	}
	if !kc.Enabled {
		lookupsTotal.WithLabelValues(req.Kind.String(), outcomeRejectedDisabled).Inc()
		s.deliverText(ctx, req, MsgKindDisabled)
		return nil, ErrKindDisabled
	}

	u, err := s.Repo.GetOrCreateUser(ctx, s.DB, req.UserID, s.DefaultCredits)
	if err != nil {
		return nil, err
	}
	if u.Available() < kc.Price {
		lookupsTotal.WithLabelValues(req.Kind.String(), outcomeRejectedCredits).Inc()
		span.SetAttributes(attribute.Int64("credits.available", u.Available()), attribute.Int64("lookup.price", kc.Price))
		s.deliverText(ctx, req, MsgInsufficientCredits)
		return nil, ErrInsufficientCredits
	}

	l, err := s.Repo.CreateLookup(ctx, s.DB, u.ID, req.Kind, req.Params.JSON(), kc.Price)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create lookup")
		return nil, err
	}
	span.SetAttributes(attribute.Int64("lookup.id", int64(l.ID)))

	s.launch(ctx, &job{
		req:       req,
		lookupID:  l.ID,
		price:     l.Price,
		timeout:   kc.Timeout(s.Timeout),
		createdAt: s.now(),
	})
	return l, nil
}

// Get returns one of userID's lookups.
func (s *LookupService) Get(ctx context.Context, userID string, id uint) (*domain.Lookup, error) {
	l, err := s.Repo.GetLookup(ctx, s.DB, id, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrLookupNotFound
	}
	return l, err
}

// ListPage returns a page of userID's lookups, newest first, and the total.
func (s *LookupService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Lookup, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := s.Repo.CountLookups(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Lookup{}, 0, nil
	}
	items, err := s.Repo.ListLookupsPage(ctx, s.DB, userID, (page-1)*pageSize, pageSize)
	return items, total, err
}

// RecoverPending resolves as error every record left pending by a previous
// process. Call it once at startup, before any lookup is started.
func (s *LookupService) RecoverPending(ctx context.Context) (int, error) {
	stale, err := s.Repo.ListPendingLookups(ctx, s.DB, s.now().Add(time.Second))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, l := range stale {
		err := s.Repo.ResolveFailure(ctx, s.DB, l.ID, domain.StateError, "interrupted: process restarted while pending", "", s.now())
		if err != nil && !errors.Is(err, repo.ErrAlreadyResolved) {
			return n, err
		}
		if err == nil {
			n++
		}
	}
	return n, nil
}

// Wait blocks until every worker has finished or ctx is done. When ctx
// expires first, workers are interrupted (their records resolve as error)
// and Wait returns ctx.Err() once they have exited.
func (s *LookupService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

type job struct {
	req       StartRequest
	lookupID  uint
	price     int64
	timeout   time.Duration
	createdAt time.Time
}

// launch starts the worker. Its context keeps the caller's values (trace,
// request id) but not its cancellation; only Wait can interrupt it.
func (s *LookupService) launch(ctx context.Context, j *job) {
	wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(s.base, cancel)

	s.wg.Add(1)
	lookupsInflight.Inc()
	go func() {
		defer s.wg.Done()
		defer lookupsInflight.Dec()
		defer cancel()
		defer stop()
		s.run(wctx, j)
	}()
}

// run is the worker body with its recover barrier.
func (s *LookupService) run(ctx context.Context, j *job) {
	ctx, span := otel.Tracer("services/LookupService").Start(ctx, "Run",
		trace.WithAttributes(
			attribute.Int64("lookup.id", int64(j.lookupID)),
			attribute.String("lookup.kind", j.req.Kind.String()),
		),
	)
	defer span.End()

	lg := log.With().
		Uint("lookup_id", j.lookupID).
		Str("user_id", j.req.UserID).
		Str("kind", j.req.Kind.String()).
		Logger()
	ctx = lg.WithContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			lg.Error().Interface("panic", r).Msg("lookup worker panicked")
			span.SetStatus(codes.Error, "panic")
			s.fail(ctx, j, outcomeError, fmt.Sprintf("panic: %v", r), "")
		}
	}()

	if err := s.execute(ctx, j); err != nil {
		lg.Error().Err(err).Msg("lookup failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		s.fail(ctx, j, outcomeError, err.Error(), "")
	}
}

// execute covers submit to delivery. Returned errors are unexpected failures
// that the barrier in run resolves as error.
func (s *LookupService) execute(ctx context.Context, j *job) error {
	lg := ctxLogger(ctx)

	handle, err := s.Remote.Submit(ctx, j.req.Kind, j.req.Params)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	lg.Debug().Str("handle", handle).Msg("lookup submitted")

	last, err := s.pollUntilTerminal(ctx, handle, j.timeout)
	if err != nil {
		return err
	}
	if last == nil {
		lg.Warn().Dur("timeout", j.timeout).Msg("lookup timed out")
		s.fail(ctx, j, outcomeTimeout, fmt.Sprintf("timeout: no terminal result after %s", j.timeout), "")
		return nil
	}

	if !registry.IsBillableSuccess(last) {
		detail := fmt.Sprintf("not billable: remote status %s", last.Status)
		if err := s.Repo.ResolveFailure(s.finalCtx(ctx), s.DB, j.lookupID, domain.StateNoData, detail, string(last.Raw), s.now()); err != nil {
			return fmt.Errorf("resolve no data: %w", err)
		}
		s.observe(j, outcomeNoData)
		s.deliverText(ctx, j.req, MsgNoData)
		return nil
	}

	if _, err := s.Repo.ResolveSuccess(s.finalCtx(ctx), s.DB, j.lookupID, string(last.Raw), s.now()); err != nil {
		return fmt.Errorf("resolve success: %w", err)
	}
	s.observe(j, outcomeSuccess)
	creditsCharged.WithLabelValues(j.req.Kind.String()).Add(float64(j.price))
	lg.Info().Int64("price", j.price).Msg("lookup succeeded")

	s.deliverSuccess(ctx, j, last)
	return nil
}

// pollUntilTerminal polls until a terminal result arrives or the deadline
// passes. A nil result with a nil error means timeout. Transport errors are
// retried until the deadline.
func (s *LookupService) pollUntilTerminal(ctx context.Context, handle string, timeout time.Duration) (*registry.Result, error) {
	lg := ctxLogger(ctx)
	deadline := s.now().Add(timeout)
	for attempt := 1; s.now().Before(deadline); attempt++ {
		res, err := s.Remote.Poll(ctx, handle)
		switch {
		case err != nil:
			lg.Warn().Err(err).Int("attempt", attempt).Msg("poll failed, retrying")
		case res != nil && res.Status.Terminal():
			return res, nil
		}
		if err := s.sleep(ctx, s.PollInterval); err != nil {
			return nil, fmt.Errorf("polling interrupted: %w", err)
		}
	}
	return nil, nil
}

// deliverSuccess runs the presentation and document callbacks. Their
// failures never affect the record, which is already success and charged.
func (s *LookupService) deliverSuccess(ctx context.Context, j *job, res *registry.Result) {
	lg := ctxLogger(ctx)

	if j.req.Present != nil {
		p, err := safePresent(j.req.Present, res)
		if err != nil {
			lg.Error().Err(err).Msg("presenter failed")
			s.deliverText(ctx, j.req, MsgGenericError)
		} else {
			s.deliverText(ctx, j.req, p.Text)
			if p.Attachment != nil {
				s.deliverDocument(ctx, j.req, p.Attachment)
			}
		}
	}

	if j.req.Kind.IsVehicle() && j.req.Document != nil {
		att, err := safeDocument(j.req.Document, res)
		if err != nil {
			lg.Error().Err(err).Msg("document generation failed")
			return
		}
		s.deliverDocument(ctx, j.req, att)
	}
}

// fail resolves the record as error (or timeout, stored as error) and
// reports the generic message. A record that is already terminal is left
// alone and nothing is delivered.
func (s *LookupService) fail(ctx context.Context, j *job, outcome, detail, raw string) {
	lg := ctxLogger(ctx)
	err := s.Repo.ResolveFailure(s.finalCtx(ctx), s.DB, j.lookupID, domain.StateError, detail, raw, s.now())
	if errors.Is(err, repo.ErrAlreadyResolved) {
		lg.Warn().Str("detail", detail).Msg("failure after lookup was already resolved")
		return
	}
	if err != nil {
		lg.Error().Err(err).Msg("could not resolve lookup as error")
	}
	s.observe(j, outcome)
	s.deliverText(ctx, j.req, MsgGenericError)
}

func (s *LookupService) observe(j *job, outcome string) {
	k := j.req.Kind.String()
	lookupsTotal.WithLabelValues(k, outcome).Inc()
	lookupDuration.WithLabelValues(k).Observe(s.now().Sub(j.createdAt).Seconds())
}

func (s *LookupService) deliverText(ctx context.Context, req StartRequest, text string) {
	if req.Notifier == nil {
		return
	}
	if err := req.Notifier.DeliverText(s.finalCtx(ctx), req.ChatID, text); err != nil {
		ctxLogger(ctx).Warn().Err(err).Int64("chat_id", req.ChatID).Msg("deliver text failed")
	}
}

func (s *LookupService) deliverDocument(ctx context.Context, req StartRequest, att *Attachment) {
	if req.Notifier == nil || att == nil || len(att.Data) == 0 {
		return
	}
	if err := req.Notifier.DeliverDocument(s.finalCtx(ctx), req.ChatID, att.Filename, att.Data); err != nil {
		ctxLogger(ctx).Warn().Err(err).Str("filename", att.Filename).Msg("deliver document failed")
	}
}

// finalCtx lets resolution and delivery complete after the worker context
// was cancelled by shutdown.
func (s *LookupService) finalCtx(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func safePresent(p Presenter, res *registry.Result) (out Presentation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("presenter panic: %v", r)
		}
	}()
	return p(res)
}

func safeDocument(g DocumentGenerator, res *registry.Result) (out *Attachment, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("document panic: %v", r)
		}
	}()
	return g(res)
}

// ctxLogger returns the worker logger stored in ctx, or the global logger.
func ctxLogger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
