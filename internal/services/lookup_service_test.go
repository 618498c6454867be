package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-lookup-bot/internal/domain"
	"github.com/tbourn/go-lookup-bot/internal/registry"
	"github.com/tbourn/go-lookup-bot/internal/repo"
)

// ----- Fakes -----

type pollStep struct {
	body  string // decoded with registry.DecodeResult; empty means use err
	err   error
	panic bool
}

type fakeRemote struct {
	mu          sync.Mutex
	handle      string
	submitErr   error
	steps       []pollStep // consumed in order, the last one repeats
	submitCalls int
	pollCalls   int
	handles     []string
}

func (f *fakeRemote) Submit(ctx context.Context, kind domain.Kind, p domain.Params) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.handle, nil
}

func (f *fakeRemote) Poll(ctx context.Context, handle string) (*registry.Result, error) {
	f.mu.Lock()
	f.pollCalls++
	f.handles = append(f.handles, handle)
	i := f.pollCalls - 1
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	}
	step := f.steps[i]
	f.mu.Unlock()

	if step.panic {
		panic("remote exploded")
	}
	if step.err != nil {
		return nil, step.err
	}
	return registry.DecodeResult([]byte(step.body))
}

func (f *fakeRemote) calls() (submit, poll int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitCalls, f.pollCalls
}

type sentDoc struct {
	chatID   int64
	filename string
	data     []byte
}

type fakeNotifier struct {
	mu    sync.Mutex
	texts []string
	docs  []sentDoc
}

func (n *fakeNotifier) DeliverText(ctx context.Context, chatID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
	return nil
}

func (n *fakeNotifier) DeliverDocument(ctx context.Context, chatID int64, filename string, data []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.docs = append(n.docs, sentDoc{chatID, filename, data})
	return nil
}

func (n *fakeNotifier) snapshot() ([]string, []sentDoc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.texts...), append([]sentDoc(nil), n.docs...)
}

// fakeClock advances only when the service sleeps.
type fakeClock struct {
	mu  sync.Mutex
	t   time.Time
	t0  time.Time
	nap int
}

func newFakeClock() *fakeClock {
	t0 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return &fakeClock{t: t0, t0: t0}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
	c.nap++
	return ctx.Err()
}

func (c *fakeClock) elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t.Sub(c.t0)
}

// ----- Harness -----

const (
	processing = `{"Tipo":2,"Mensaje":""}`
	okPayload  = `{"Tipo":1,"Mensaje":"{\"codigoRespuesta\":\"00\",\"nombres\":\"ANA\"}"}`
	errPayload = `{"Tipo":1,"Mensaje":"{\"error\":true,\"mensajeError\":\"falla\"}"}`
)

type harness struct {
	db     *gorm.DB
	svc    *LookupService
	remote *fakeRemote
	notif  *fakeNotifier
	clock  *fakeClock
}

func newHarness(t *testing.T, defaultCredits int64, steps ...pollStep) *harness {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "svc.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	if _, err := repo.SeedKindDefaults(context.Background(), db); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if len(steps) == 0 {
		steps = []pollStep{{body: okPayload}}
	}
	h := &harness{
		db:     db,
		remote: &fakeRemote{handle: "H1", steps: steps},
		notif:  &fakeNotifier{},
		clock:  newFakeClock(),
	}
	h.svc = NewLookupService(db, repo.Store{}, h.remote, LookupOptions{
		Timeout:        60 * time.Second,
		PollInterval:   4 * time.Second,
		DefaultCredits: defaultCredits,
	})
	h.svc.now = h.clock.now
	h.svc.sleep = h.clock.sleep
	return h
}

func (h *harness) start(t *testing.T, kind domain.Kind, params domain.Params, present Presenter, doc DocumentGenerator) (*domain.Lookup, error) {
	t.Helper()
	return h.svc.Start(context.Background(), StartRequest{
		UserID:   "u1",
		Kind:     kind,
		Params:   params,
		ChatID:   77,
		Notifier: h.notif,
		Present:  present,
		Document: doc,
	})
}

func (h *harness) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.svc.Wait(ctx); err != nil {
		t.Fatalf("workers did not finish: %v", err)
	}
}

func (h *harness) lookup(t *testing.T, id uint) *domain.Lookup {
	t.Helper()
	l, err := repo.GetLookup(context.Background(), h.db, id, "u1")
	if err != nil {
		t.Fatalf("GetLookup: %v", err)
	}
	return l
}

func (h *harness) user(t *testing.T) *domain.User {
	t.Helper()
	u, err := repo.GetUser(context.Background(), h.db, "u1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	return u
}

func (h *harness) lookupCount(t *testing.T) int64 {
	t.Helper()
	n, err := repo.CountLookups(context.Background(), h.db, "u1")
	if err != nil {
		t.Fatalf("CountLookups: %v", err)
	}
	return n
}

var sigParams = domain.Params{DocType: "CC", DocNumber: "123"}

func textPresenter(calls *int, mu *sync.Mutex) Presenter {
	return func(res *registry.Result) (Presentation, error) {
		mu.Lock()
		*calls++
		mu.Unlock()
		return Presentation{Text: "rendered:" + string(res.Content)}, nil
	}
}

// ----- Scenarios -----

func TestStart_SuccessChargesOnceAndPresents(t *testing.T) {
	h := newHarness(t, 10000, pollStep{body: processing}, pollStep{body: okPayload})
	var calls int
	var mu sync.Mutex

	l, err := h.start(t, domain.KindSignature, sigParams, textPresenter(&calls, &mu), nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if l.State != domain.StatePending || l.Price != 5000 {
		t.Fatalf("unexpected registered lookup: %+v", l)
	}
	h.wait(t)

	got := h.lookup(t, l.ID)
	if got.State != domain.StateSuccess || got.RawPayload != okPayload || got.ResolvedAt == nil {
		t.Fatalf("unexpected resolved lookup: %+v", got)
	}
	if u := h.user(t); u.CreditsUsed != 5000 || u.Available() != 5000 {
		t.Fatalf("ledger after success: %+v", u)
	}
	if calls != 1 {
		t.Fatalf("presenter calls = %d; want 1", calls)
	}
	texts, docs := h.notif.snapshot()
	if len(texts) != 1 || !strings.HasPrefix(texts[0], "rendered:") || len(docs) != 0 {
		t.Fatalf("unexpected deliveries: texts=%q docs=%d", texts, len(docs))
	}
	if _, polls := h.remote.calls(); polls != 2 {
		t.Fatalf("polls = %d; want 2", polls)
	}
	for _, hd := range h.remote.handles {
		if hd != "H1" {
			t.Fatalf("poll used handle %q; want H1", hd)
		}
	}
}

func TestStart_ErrorFlagResolvesNoDataWithoutCharge(t *testing.T) {
	h := newHarness(t, 10000, pollStep{body: processing}, pollStep{body: errPayload})
	var calls int
	var mu sync.Mutex

	l, err := h.start(t, domain.KindSignature, sigParams, textPresenter(&calls, &mu), nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.wait(t)

	got := h.lookup(t, l.ID)
	if got.State != domain.StateNoData || got.RawPayload != errPayload || got.ErrorDetail == "" {
		t.Fatalf("unexpected lookup: %+v", got)
	}
	if u := h.user(t); u.CreditsUsed != 0 {
		t.Fatalf("no-data must not charge: %+v", u)
	}
	if calls != 0 {
		t.Fatalf("presenter must not run on no-data")
	}
	texts, _ := h.notif.snapshot()
	if len(texts) != 1 || texts[0] != MsgNoData {
		t.Fatalf("expected no-data message, got %q", texts)
	}
}

func TestStart_MissingStatusEndsPollingAsNoData(t *testing.T) {
	body := `{"Mensaje":"{\"error\":true,\"mensajeError\":\"falla\"}"}`
	h := newHarness(t, 10000, pollStep{body: body})

	l, err := h.start(t, domain.KindSignature, sigParams, nil, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.wait(t)

	got := h.lookup(t, l.ID)
	if got.State != domain.StateNoData || got.RawPayload != body {
		t.Fatalf("unexpected lookup: %+v", got)
	}
	if _, p := h.remote.calls(); p != 1 {
		t.Fatalf("polls = %d; want 1", p)
	}
	if el := h.clock.elapsed(); el != 0 {
		t.Fatalf("worker slept %v before resolving", el)
	}
	if u := h.user(t); u.CreditsUsed != 0 {
		t.Fatalf("no-data must not charge: %+v", u)
	}
	texts, _ := h.notif.snapshot()
	if len(texts) != 1 || texts[0] != MsgNoData {
		t.Fatalf("expected no-data message, got %q", texts)
	}
}

func TestStart_StringStatusIsHonored(t *testing.T) {
	done := `{"Tipo":"1","Mensaje":"{\"codigoRespuesta\":\"00\"}"}`
	h := newHarness(t, 10000, pollStep{body: `{"Tipo":"2"}`}, pollStep{body: done})

	l, err := h.start(t, domain.KindSignature, sigParams, nil, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.wait(t)

	got := h.lookup(t, l.ID)
	if got.State != domain.StateSuccess || got.RawPayload != done {
		t.Fatalf("unexpected lookup: %+v", got)
	}
	if _, p := h.remote.calls(); p != 2 {
		t.Fatalf("polls = %d; want 2", p)
	}
	if u := h.user(t); u.CreditsUsed != 5000 {
		t.Fatalf("success must charge the captured price: %+v", u)
	}
}

func TestStart_UnreadableStatusIsTerminal(t *testing.T) {
	body := `{"Tipo":"pendiente","Mensaje":"{\"codigoRespuesta\":\"00\"}"}`
	h := newHarness(t, 10000, pollStep{body: body})

	l, err := h.start(t, domain.KindSignature, sigParams, nil, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.wait(t)

	if got := h.lookup(t, l.ID); got.State != domain.StateNoData {
		t.Fatalf("unexpected lookup: %+v", got)
	}
	if _, p := h.remote.calls(); p != 1 {
		t.Fatalf("polls = %d; want 1", p)
	}
}

func TestStart_InsufficientCreditsRejectedBeforeAnything(t *testing.T) {
	h := newHarness(t, 2000)
	base := testutil.ToFloat64(lookupsTotal.WithLabelValues(domain.KindSignature.String(), outcomeRejectedCredits))

	l, err := h.start(t, domain.KindSignature, sigParams, nil, nil)
	if !errors.Is(err, ErrInsufficientCredits) || l != nil {
		t.Fatalf("expected ErrInsufficientCredits, got l=%v err=%v", l, err)
	}
	h.wait(t)

	if n := h.lookupCount(t); n != 0 {
		t.Fatalf("rejected lookup created %d records", n)
	}
	if s, p := h.remote.calls(); s != 0 || p != 0 {
		t.Fatalf("rejected lookup reached remote: submit=%d poll=%d", s, p)
	}
	texts, _ := h.notif.snapshot()
	if len(texts) != 1 || texts[0] != MsgInsufficientCredits {
		t.Fatalf("expected insufficient-credits message, got %q", texts)
	}
	if u := h.user(t); u.CreditsUsed != 0 || u.CreditsTotal != 2000 {
		t.Fatalf("ledger mutated by rejection: %+v", u)
	}
	if got := testutil.ToFloat64(lookupsTotal.WithLabelValues(domain.KindSignature.String(), outcomeRejectedCredits)); got != base+1 {
		t.Fatalf("rejected_credits counter = %v; want %v", got, base+1)
	}
}

func TestStart_SubmitFailureResolvesError(t *testing.T) {
	h := newHarness(t, 10000)
	h.remote.submitErr = errors.New("connection refused")

	l, err := h.start(t, domain.KindSignature, sigParams, nil, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.wait(t)

	got := h.lookup(t, l.ID)
	if got.State != domain.StateError || !strings.Contains(got.ErrorDetail, "connection refused") {
		t.Fatalf("unexpected lookup: %+v", got)
	}
	if u := h.user(t); u.CreditsUsed != 0 {
		t.Fatalf("submit failure must not charge: %+v", u)
	}
	if s, p := h.remote.calls(); s != 1 || p != 0 {
		t.Fatalf("submit must not be retried nor polled: submit=%d poll=%d", s, p)
	}
	texts, _ := h.notif.snapshot()
	if len(texts) != 1 || texts[0] != MsgGenericError {
		t.Fatalf("expected generic error message, got %q", texts)
	}
}

func TestStart_TimeoutBoundedByDeadline(t *testing.T) {
	h := newHarness(t, 10000, pollStep{body: processing})

	l, err := h.start(t, domain.KindSignature, sigParams, nil, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.wait(t)

	got := h.lookup(t, l.ID)
	if got.State != domain.StateError || !strings.Contains(got.ErrorDetail, "timeout") {
		t.Fatalf("unexpected lookup: %+v", got)
	}
	el := h.clock.elapsed()
	if el < 60*time.Second || el > 64*time.Second {
		t.Fatalf("worker stopped after %v; want within [60s, 64s]", el)
	}
	if _, p := h.remote.calls(); p != 15 {
		t.Fatalf("polls = %d; want 15 (every 4s over 60s)", p)
	}
	if u := h.user(t); u.CreditsUsed != 0 {
		t.Fatalf("timeout must not charge: %+v", u)
	}
	texts, _ := h.notif.snapshot()
	if len(texts) != 1 || texts[0] != MsgGenericError {
		t.Fatalf("expected generic error message, got %q", texts)
	}
}

func TestStart_DisabledKindNeverReachesRemote(t *testing.T) {
	h := newHarness(t, 1_000_000)
	off := false
	if _, err := repo.UpdateKindConfig(context.Background(), h.db, domain.KindSignature, repo.KindPatch{Enabled: &off}); err != nil {
		t.Fatalf("disable: %v", err)
	}

	_, err := h.start(t, domain.KindSignature, sigParams, nil, nil)
	if !errors.Is(err, ErrKindDisabled) {
		t.Fatalf("expected ErrKindDisabled, got %v", err)
	}
	h.wait(t)
	if s, _ := h.remote.calls(); s != 0 {
		t.Fatalf("disabled kind reached remote")
	}
	if n := h.lookupCount(t); n != 0 {
		t.Fatalf("disabled kind created %d records", n)
	}
	texts, _ := h.notif.snapshot()
	if len(texts) != 1 || texts[0] != MsgKindDisabled {
		t.Fatalf("expected disabled message, got %q", texts)
	}
}

func TestStart_ValidationErrors(t *testing.T) {
	h := newHarness(t, 10000)
	ctx := context.Background()

	if _, err := h.svc.Start(ctx, StartRequest{UserID: " ", Kind: domain.KindSignature, Params: sigParams}); !errors.Is(err, ErrMissingUser) {
		t.Fatalf("expected ErrMissingUser, got %v", err)
	}
	if _, err := h.svc.Start(ctx, StartRequest{UserID: "u1", Kind: domain.Kind(99)}); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	if _, err := h.svc.Start(ctx, StartRequest{UserID: "u1", Kind: domain.KindOwner}); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
	if err := h.db.Where("kind = ?", domain.KindOwner).Delete(&domain.KindConfig{}).Error; err != nil {
		t.Fatalf("delete kind: %v", err)
	}
	if _, err := h.svc.Start(ctx, StartRequest{UserID: "u1", Kind: domain.KindOwner, Params: domain.Params{Plate: "ABC123"}}); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind for unconfigured kind, got %v", err)
	}
	if s, _ := h.remote.calls(); s != 0 {
		t.Fatalf("invalid requests reached remote")
	}
}

// ----- Properties and edge cases -----

func TestStart_PriceCapturedAtRegistration(t *testing.T) {
	h := newHarness(t, 10000)
	l, err := h.start(t, domain.KindSignature, sigParams, nil, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Raising the price while the worker may still run must not change the charge.
	p := int64(9000)
	if _, err := repo.UpdateKindConfig(context.Background(), h.db, domain.KindSignature, repo.KindPatch{Price: &p}); err != nil {
		t.Fatalf("UpdateKindConfig: %v", err)
	}
	h.wait(t)

	if got := h.lookup(t, l.ID); got.Price != 5000 || got.State != domain.StateSuccess {
		t.Fatalf("unexpected lookup: %+v", got)
	}
	if u := h.user(t); u.CreditsUsed != 5000 {
		t.Fatalf("charged %d; want captured 5000", u.CreditsUsed)
	}
}

func TestStart_PollTransportErrorsAreRetried(t *testing.T) {
	h := newHarness(t, 10000,
		pollStep{err: errors.New("i/o timeout")},
		pollStep{err: errors.New("502")},
		pollStep{body: okPayload},
	)
	l, err := h.start(t, domain.KindSignature, sigParams, nil, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.wait(t)
	if got := h.lookup(t, l.ID); got.State != domain.StateSuccess {
		t.Fatalf("expected success after transient poll errors, got %+v", got)
	}
}

func TestStart_FinalFailedStatusIsNoData(t *testing.T) {
	h := newHarness(t, 10000, pollStep{body: `{"Tipo":0,"Mensaje":"{\"codigoRespuesta\":\"00\"}"}`})
	l, err := h.start(t, domain.KindSignature, sigParams, nil, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.wait(t)
	if got := h.lookup(t, l.ID); got.State != domain.StateNoData {
		t.Fatalf("expected no_data for final/failed status, got %+v", got)
	}
}

func TestStart_WorkerPanicIsContained(t *testing.T) {
	h := newHarness(t, 10000, pollStep{panic: true})
	l, err := h.start(t, domain.KindSignature, sigParams, nil, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.wait(t)

	got := h.lookup(t, l.ID)
	if got.State != domain.StateError || !strings.Contains(got.ErrorDetail, "remote exploded") {
		t.Fatalf("unexpected lookup: %+v", got)
	}
	texts, _ := h.notif.snapshot()
	if len(texts) != 1 || texts[0] != MsgGenericError {
		t.Fatalf("expected generic error message, got %q", texts)
	}
}

func TestStart_PresenterFailureKeepsChargedSuccess(t *testing.T) {
	h := newHarness(t, 10000)
	boom := func(res *registry.Result) (Presentation, error) { panic("bad format") }

	l, err := h.start(t, domain.KindSignature, sigParams, boom, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.wait(t)

	if got := h.lookup(t, l.ID); got.State != domain.StateSuccess {
		t.Fatalf("presenter failure changed state: %+v", got)
	}
	if u := h.user(t); u.CreditsUsed != 5000 {
		t.Fatalf("expected single charge, got %+v", u)
	}
	texts, _ := h.notif.snapshot()
	if len(texts) != 1 || texts[0] != MsgGenericError {
		t.Fatalf("expected generic message after presenter failure, got %q", texts)
	}
}

func TestStart_VehicleDeliversDocumentAndAttachment(t *testing.T) {
	h := newHarness(t, 10000)
	present := func(res *registry.Result) (Presentation, error) {
		return Presentation{Text: "vehicle", Attachment: &Attachment{Filename: "extra.png", Data: []byte{1}}}, nil
	}
	var docCalls int
	doc := func(res *registry.Result) (*Attachment, error) {
		docCalls++
		return &Attachment{Filename: "Informe_vehicular_ABC123.pdf", Data: []byte("%PDF-1.3")}, nil
	}

	if _, err := h.start(t, domain.KindVehicle, domain.Params{Plate: "ABC123"}, present, doc); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.wait(t)

	texts, docs := h.notif.snapshot()
	if len(texts) != 1 || texts[0] != "vehicle" {
		t.Fatalf("unexpected texts %q", texts)
	}
	if docCalls != 1 || len(docs) != 2 || docs[0].filename != "extra.png" || docs[1].filename != "Informe_vehicular_ABC123.pdf" || docs[1].chatID != 77 {
		t.Fatalf("unexpected documents: calls=%d docs=%+v", docCalls, docs)
	}
}

func TestStart_DocumentOnlyForVehicleKinds_AndFailureIsLogged(t *testing.T) {
	h := newHarness(t, 100000)
	var docCalls int
	doc := func(res *registry.Result) (*Attachment, error) {
		docCalls++
		return nil, errors.New("render failed")
	}

	l1, err := h.start(t, domain.KindOwner, domain.Params{Plate: "ABC123"}, nil, doc)
	if err != nil {
		t.Fatalf("Start owner: %v", err)
	}
	l2, err := h.start(t, domain.KindVehicleOwner, domain.Params{Plate: "ABC123"}, nil, doc)
	if err != nil {
		t.Fatalf("Start vehicle_owner: %v", err)
	}
	h.wait(t)

	if docCalls != 1 {
		t.Fatalf("document generator calls = %d; want 1 (vehicle kind only)", docCalls)
	}
	for _, id := range []uint{l1.ID, l2.ID} {
		if got := h.lookup(t, id); got.State != domain.StateSuccess {
			t.Fatalf("lookup %d: %+v", id, got)
		}
	}
	_, docs := h.notif.snapshot()
	if len(docs) != 0 {
		t.Fatalf("failed document must not be delivered")
	}
}

func TestStart_KindTimeoutOverride(t *testing.T) {
	h := newHarness(t, 10000, pollStep{body: processing})
	secs := 20
	if _, err := repo.UpdateKindConfig(context.Background(), h.db, domain.KindSignature, repo.KindPatch{TimeoutSeconds: &secs}); err != nil {
		t.Fatalf("UpdateKindConfig: %v", err)
	}
	if _, err := h.start(t, domain.KindSignature, sigParams, nil, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.wait(t)
	if el := h.clock.elapsed(); el < 20*time.Second || el > 24*time.Second {
		t.Fatalf("elapsed %v; want within [20s, 24s]", el)
	}
}

func TestStart_ConcurrentLookupsAreIndependentlyBilled(t *testing.T) {
	h := newHarness(t, 10000)
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.start(t, domain.KindSignature, sigParams, nil, nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	}
	h.wait(t)

	if n := h.lookupCount(t); n != 2 {
		t.Fatalf("lookups = %d; want 2", n)
	}
	if u := h.user(t); u.CreditsUsed != 10000 || u.Available() != 0 {
		t.Fatalf("ledger after two charges: %+v", u)
	}
}

func TestWait_InterruptResolvesPendingAsError(t *testing.T) {
	h := newHarness(t, 10000, pollStep{body: processing})
	h.svc.sleep = func(ctx context.Context, d time.Duration) error {
		<-ctx.Done()
		return ctx.Err()
	}
	l, err := h.start(t, domain.KindSignature, sigParams, nil, nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.svc.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait = %v; want context.Canceled", err)
	}
	got := h.lookup(t, l.ID)
	if got.State != domain.StateError || !strings.Contains(got.ErrorDetail, "interrupted") {
		t.Fatalf("unexpected lookup after interrupt: %+v", got)
	}
}

func TestRecoverPending(t *testing.T) {
	h := newHarness(t, 10000)
	ctx := context.Background()
	if _, err := repo.GetOrCreateUser(ctx, h.db, "u1", 10000); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	stale, err := repo.CreateLookup(ctx, h.db, "u1", domain.KindPerson, `{}`, 3000)
	if err != nil {
		t.Fatalf("CreateLookup: %v", err)
	}
	h.svc.now = func() time.Time { return time.Now().UTC() }

	n, err := h.svc.RecoverPending(ctx)
	if err != nil || n != 1 {
		t.Fatalf("RecoverPending = %d, %v; want 1", n, err)
	}
	if got := h.lookup(t, stale.ID); got.State != domain.StateError {
		t.Fatalf("stale lookup not closed: %+v", got)
	}
	if u := h.user(t); u.CreditsUsed != 0 {
		t.Fatalf("recovery must not charge: %+v", u)
	}
}

func TestGetAndListPage(t *testing.T) {
	h := newHarness(t, 100000)
	var ids []uint
	for i := 0; i < 3; i++ {
		l, err := h.start(t, domain.KindPerson, domain.Params{DocType: "CC", DocNumber: "1"}, nil, nil)
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		ids = append(ids, l.ID)
	}
	h.wait(t)

	ctx := context.Background()
	if _, err := h.svc.Get(ctx, "someone-else", ids[0]); !errors.Is(err, ErrLookupNotFound) {
		t.Fatalf("expected ErrLookupNotFound, got %v", err)
	}
	l, err := h.svc.Get(ctx, "u1", ids[0])
	if err != nil || l.ID != ids[0] {
		t.Fatalf("Get = %+v, %v", l, err)
	}

	items, total, err := h.svc.ListPage(ctx, "u1", 0, 2)
	if err != nil || total != 3 || len(items) != 2 {
		t.Fatalf("ListPage = %d items, total %d, err %v", len(items), total, err)
	}
	items, total, err = h.svc.ListPage(ctx, "nobody", 1, 10)
	if err != nil || total != 0 || len(items) != 0 {
		t.Fatalf("empty ListPage = %v, %d, %v", items, total, err)
	}
}
