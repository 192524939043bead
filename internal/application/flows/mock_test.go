package flows

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/adetunji-o/relaypay/internal/application"
	"github.com/adetunji-o/relaypay/internal/connector"
	"github.com/adetunji-o/relaypay/internal/domain"
	"github.com/adetunji-o/relaypay/internal/telemetry"
)

// fakeWire replays canned responses and records every request it saw.
type fakeWire struct {
	mu        sync.Mutex
	responses []wireResult
	requests  []connector.WireRequest
}

type wireResult struct {
	resp connector.WireResponse
	err  error
}

func (w *fakeWire) queue(resp connector.WireResponse, err error) {
	w.responses = append(w.responses, wireResult{resp: resp, err: err})
}

func (w *fakeWire) Send(_ context.Context, req connector.WireRequest) (connector.WireResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.requests = append(w.requests, req)
	if len(w.responses) == 0 {
		return connector.WireResponse{}, errors.New("no canned response")
	}
	next := w.responses[0]
	w.responses = w.responses[1:]
	return next.resp, next.err
}

type fakeTokenCache struct {
	mu      sync.Mutex
	tokens  map[string]connector.AccessToken
	getErr  error
	setErr  error
	setKeys []string
}

func newFakeTokenCache() *fakeTokenCache {
	return &fakeTokenCache{tokens: map[string]connector.AccessToken{}}
}

func (c *fakeTokenCache) GetAccessToken(_ context.Context, key string) (*connector.AccessToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	tok, ok := c.tokens[key]
	if !ok {
		return nil, nil
	}
	return &tok, nil
}

func (c *fakeTokenCache) SetAccessToken(_ context.Context, key string, token connector.AccessToken, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setKeys = append(c.setKeys, key)
	if c.setErr != nil {
		return c.setErr
	}
	c.tokens[key] = token
	return nil
}

type fakeScheduler struct {
	nextTimes    []*time.Time
	nextErr      error
	nextCalls    int
	retried      []*application.ProcessTrackerTask
	finished     []*application.ProcessTrackerTask
	finishStatus []string
}

func (s *fakeScheduler) NextScheduleTime(_ context.Context, _, _ string, _ int) (*time.Time, error) {
	s.nextCalls++
	if s.nextErr != nil {
		return nil, s.nextErr
	}
	if len(s.nextTimes) == 0 {
		return nil, nil
	}
	next := s.nextTimes[0]
	s.nextTimes = s.nextTimes[1:]
	return next, nil
}

func (s *fakeScheduler) RetryProcess(_ context.Context, task *application.ProcessTrackerTask, scheduleTime time.Time) error {
	task.ScheduleTime = scheduleTime
	s.retried = append(s.retried, task)
	return nil
}

func (s *fakeScheduler) FinishProcessWithBusinessStatus(_ context.Context, task *application.ProcessTrackerTask, status string) error {
	s.finished = append(s.finished, task)
	s.finishStatus = append(s.finishStatus, status)
	return nil
}

type fakeAttemptRepo struct {
	attempts map[string]*domain.PaymentAttempt
	updates  int
}

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{attempts: map[string]*domain.PaymentAttempt{}}
}

func (r *fakeAttemptRepo) InsertAttempt(_ context.Context, attempt *domain.PaymentAttempt) error {
	r.attempts[attempt.ID] = attempt
	return nil
}

func (r *fakeAttemptRepo) FindAttemptByID(_ context.Context, id string) (*domain.PaymentAttempt, error) {
	attempt, ok := r.attempts[id]
	if !ok {
		return nil, errors.New("attempt not found")
	}
	return attempt, nil
}

func (r *fakeAttemptRepo) UpdateAttempt(_ context.Context, attempt *domain.PaymentAttempt) error {
	r.updates++
	r.attempts[attempt.ID] = attempt
	return nil
}

type fakeIntentRepo struct {
	intents map[string]*domain.PaymentIntent
	updates int
}

func newFakeIntentRepo() *fakeIntentRepo {
	return &fakeIntentRepo{intents: map[string]*domain.PaymentIntent{}}
}

func (r *fakeIntentRepo) FindIntentByID(_ context.Context, id string) (*domain.PaymentIntent, error) {
	intent, ok := r.intents[id]
	if !ok {
		return nil, errors.New("intent not found")
	}
	return intent, nil
}

func (r *fakeIntentRepo) UpdateIntent(_ context.Context, intent *domain.PaymentIntent) error {
	r.updates++
	r.intents[intent.ID] = intent
	return nil
}

type fakeRefundRepo struct {
	refunds map[string]*domain.Refund
	updates int
}

func newFakeRefundRepo() *fakeRefundRepo {
	return &fakeRefundRepo{refunds: map[string]*domain.Refund{}}
}

func (r *fakeRefundRepo) FindRefundByID(_ context.Context, id string) (*domain.Refund, error) {
	refund, ok := r.refunds[id]
	if !ok {
		return nil, errors.New("refund not found")
	}
	return refund, nil
}

func (r *fakeRefundRepo) UpdateRefund(_ context.Context, refund *domain.Refund) error {
	r.updates++
	r.refunds[refund.ID] = refund
	return nil
}

type fakeLock struct {
	acquired []string
	released []string
	err      error
}

func (l *fakeLock) Acquire(_ context.Context, key string) error {
	if l.err != nil {
		return l.err
	}
	l.acquired = append(l.acquired, key)
	return nil
}

func (l *fakeLock) Release(_ context.Context, key string) error {
	l.released = append(l.released, key)
	return nil
}

// testIntegration is a configurable integration for one flow.
type testIntegration struct {
	connector.Base
	url      string
	response connector.ResponseData
	respErr  error
}

func (i *testIntegration) GetURL(context.Context, *connector.RouterData) (string, error) {
	if i.url == "" {
		return "https://api.test.example/v1/payments", nil
	}
	return i.url, nil
}

func (i *testIntegration) GetRequestBody(context.Context, *connector.RouterData) ([]byte, error) {
	return []byte(`{}`), nil
}

func (i *testIntegration) BuildRequest(ctx context.Context, rd *connector.RouterData) (*connector.WireRequest, error) {
	return connector.ComposeRequest(ctx, i, rd)
}

func (i *testIntegration) HandleResponse(context.Context, *connector.RouterData, connector.WireResponse) (connector.ResponseData, error) {
	if i.respErr != nil {
		return connector.ResponseData{}, i.respErr
	}
	return i.response, nil
}

// testConnector exposes a fixed set of flows.
type testConnector struct {
	name  string
	flows map[connector.Flow]connector.Integration
}

func (c *testConnector) Name() string { return c.name }

func (c *testConnector) Integration(flow connector.Flow) (connector.Integration, bool) {
	integ, ok := c.flows[flow]
	return integ, ok
}

// tokenConnector is a testConnector that also issues access tokens.
type tokenConnector struct {
	testConnector
	token    connector.AccessToken
	tokenErr error
}

func (c *tokenConnector) BuildAccessTokenRequest(context.Context, *connector.RouterData) (*connector.WireRequest, error) {
	return &connector.WireRequest{
		Method: http.MethodPost,
		URL:    "https://api.test.example/oauth/token",
	}, nil
}

func (c *tokenConnector) HandleAccessTokenResponse(connector.WireResponse) (connector.AccessToken, error) {
	if c.tokenErr != nil {
		return connector.AccessToken{}, c.tokenErr
	}
	return c.token, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type engineFixture struct {
	engine    *Engine
	registry  *connector.Registry
	wire      *fakeWire
	tokens    *fakeTokenCache
	attempts  *fakeAttemptRepo
	intents   *fakeIntentRepo
	refunds   *fakeRefundRepo
	scheduler *fakeScheduler
	locks     *fakeLock
	metrics   *telemetry.Metrics
	now       time.Time
}

func newEngineFixture() *engineFixture {
	f := &engineFixture{
		wire:      &fakeWire{},
		tokens:    newFakeTokenCache(),
		attempts:  newFakeAttemptRepo(),
		intents:   newFakeIntentRepo(),
		refunds:   newFakeRefundRepo(),
		scheduler: &fakeScheduler{},
		locks:     &fakeLock{},
		metrics:   telemetry.New(prometheus.NewRegistry()),
		now:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.registry = connector.NewRegistry(f.metrics)
	f.engine = NewEngine(
		f.registry,
		f.wire,
		f.tokens,
		f.attempts,
		f.intents,
		f.refunds,
		f.scheduler,
		f.locks,
		f.metrics,
		discardLogger(),
	).WithClock(func() time.Time { return f.now })
	return f
}

func (f *engineFixture) registerFlow(name string, flow connector.Flow, integ connector.Integration) {
	f.registry.Register(&testConnector{
		name:  name,
		flows: map[connector.Flow]connector.Integration{flow: integ},
	})
}

func (f *engineFixture) seedPayment(status domain.AttemptStatus, intentStatus domain.IntentStatus) (*domain.PaymentIntent, *domain.PaymentAttempt) {
	intent := &domain.PaymentIntent{
		ID:              "pay_1",
		MerchantID:      "merchant_1",
		Status:          intentStatus,
		AmountMinor:     1000,
		Currency:        "USD",
		ActiveAttemptID: "att_1",
	}
	attempt := &domain.PaymentAttempt{
		ID:          "att_1",
		PaymentID:   "pay_1",
		MerchantID:  "merchant_1",
		Connector:   "testpay",
		Status:      status,
		AmountMinor: 1000,
		Currency:    "USD",
	}
	f.intents.intents[intent.ID] = intent
	f.attempts.attempts[attempt.ID] = attempt
	return intent, attempt
}
