package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adetunji-o/relaypay/internal/application"
	"github.com/adetunji-o/relaypay/internal/infrastructure/postgres"
)

type fakeTaskStore struct {
	upserted   []*application.ProcessTrackerTask
	finished   []*application.ProcessTrackerTask
	upsertErr  error
	finishErr  error
	lastStatus string
}

func (f *fakeTaskStore) UpsertTask(_ context.Context, task *application.ProcessTrackerTask, _ time.Time) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, task)
	return nil
}

func (f *fakeTaskStore) FinishTask(_ context.Context, task *application.ProcessTrackerTask, businessStatus string) error {
	if f.finishErr != nil {
		return f.finishErr
	}
	f.finished = append(f.finished, task)
	f.lastStatus = businessStatus
	return nil
}

type fakeConfigs struct {
	values map[string]string
	err    error
	keys   []string
}

func (f *fakeConfigs) FindConfigByKey(_ context.Context, key string) (string, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.values[key]
	if !ok {
		return "", postgres.ErrNotFound
	}
	return v, nil
}

var schedulerNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestScheduler(tasks *fakeTaskStore, configs *fakeConfigs) *Scheduler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(tasks, configs, logger).WithClock(func() time.Time { return schedulerNow })
}

func TestDefaultMappingDelayProgression(t *testing.T) {
	m := defaultRetryMapping()

	want := []time.Duration{
		60 * time.Second,
		120 * time.Second,
		300 * time.Second,
		600 * time.Second,
		1800 * time.Second,
	}
	for i, d := range want {
		got, ok := m.Delay(i)
		require.True(t, ok, "retry %d within budget", i)
		assert.Equal(t, d, got)
	}

	_, ok := m.Delay(5)
	assert.False(t, ok, "budget exhausted at max count")
}

func TestMappingDelayReusesLastFrequency(t *testing.T) {
	m := RetryMapping{MaxCount: 10, Frequencies: []int{30, 60}}

	got, ok := m.Delay(7)
	require.True(t, ok)
	assert.Equal(t, 60*time.Second, got)
}

func TestMappingDelayEmptyFrequencies(t *testing.T) {
	m := RetryMapping{MaxCount: 3}

	_, ok := m.Delay(0)
	assert.False(t, ok)
}

func TestNextScheduleTimeUsesDefaultMapping(t *testing.T) {
	configs := &fakeConfigs{}
	s := newTestScheduler(&fakeTaskStore{}, configs)

	at, err := s.NextScheduleTime(context.Background(), "atlaspay", "merchant_1", 0)
	require.NoError(t, err)

	require.NotNil(t, at)
	assert.Equal(t, schedulerNow.Add(time.Minute), *at)
	assert.Equal(t, []string{
		"retry_mapping_atlaspay_merchant_1",
		"retry_mapping_atlaspay",
	}, configs.keys)
}

func TestNextScheduleTimeSpecificKeyWins(t *testing.T) {
	configs := &fakeConfigs{values: map[string]string{
		"retry_mapping_atlaspay_merchant_1": `{"max_count":2,"frequencies":[5]}`,
		"retry_mapping_atlaspay":            `{"max_count":9,"frequencies":[900]}`,
	}}
	s := newTestScheduler(&fakeTaskStore{}, configs)

	at, err := s.NextScheduleTime(context.Background(), "atlaspay", "merchant_1", 0)
	require.NoError(t, err)
	require.NotNil(t, at)
	assert.Equal(t, schedulerNow.Add(5*time.Second), *at)

	// Only the specific key was consulted.
	assert.Equal(t, []string{"retry_mapping_atlaspay_merchant_1"}, configs.keys)
}

func TestNextScheduleTimeGenericKeyFallback(t *testing.T) {
	configs := &fakeConfigs{values: map[string]string{
		"retry_mapping_atlaspay": `{"max_count":9,"frequencies":[900]}`,
	}}
	s := newTestScheduler(&fakeTaskStore{}, configs)

	at, err := s.NextScheduleTime(context.Background(), "atlaspay", "merchant_1", 0)
	require.NoError(t, err)
	require.NotNil(t, at)
	assert.Equal(t, schedulerNow.Add(900*time.Second), *at)
}

func TestNextScheduleTimeMalformedConfigFallsBack(t *testing.T) {
	configs := &fakeConfigs{values: map[string]string{
		"retry_mapping_atlaspay_merchant_1": `not json`,
	}}
	s := newTestScheduler(&fakeTaskStore{}, configs)

	at, err := s.NextScheduleTime(context.Background(), "atlaspay", "merchant_1", 0)
	require.NoError(t, err)
	require.NotNil(t, at)
	assert.Equal(t, schedulerNow.Add(time.Minute), *at)
}

func TestNextScheduleTimeLookupFailureFallsBack(t *testing.T) {
	configs := &fakeConfigs{err: errors.New("connection reset")}
	s := newTestScheduler(&fakeTaskStore{}, configs)

	at, err := s.NextScheduleTime(context.Background(), "atlaspay", "merchant_1", 0)
	require.NoError(t, err)
	require.NotNil(t, at)
	assert.Equal(t, schedulerNow.Add(time.Minute), *at)
}

func TestNextScheduleTimeExhaustedBudget(t *testing.T) {
	s := newTestScheduler(&fakeTaskStore{}, &fakeConfigs{})

	at, err := s.NextScheduleTime(context.Background(), "atlaspay", "merchant_1", 5)
	require.NoError(t, err)
	assert.Nil(t, at)
}

func TestRetryProcessPersistsScheduleTime(t *testing.T) {
	tasks := &fakeTaskStore{}
	s := newTestScheduler(tasks, &fakeConfigs{})

	task := &application.ProcessTrackerTask{Name: "payment_retry", AttemptID: "att_1", RetryCount: 2}
	at := schedulerNow.Add(time.Minute)

	require.NoError(t, s.RetryProcess(context.Background(), task, at))

	require.Len(t, tasks.upserted, 1)
	assert.Equal(t, at, task.ScheduleTime)
}

func TestFinishProcessSetsBusinessStatus(t *testing.T) {
	tasks := &fakeTaskStore{}
	s := newTestScheduler(tasks, &fakeConfigs{})

	task := &application.ProcessTrackerTask{Name: "payment_retry", AttemptID: "att_1"}
	require.NoError(t, s.FinishProcessWithBusinessStatus(context.Background(), task, "RETRIES_EXCEEDED"))

	require.Len(t, tasks.finished, 1)
	assert.Equal(t, "RETRIES_EXCEEDED", task.BusinessStatus)
	assert.Equal(t, "RETRIES_EXCEEDED", tasks.lastStatus)
}

func TestFinishProcessToleratesMissingRow(t *testing.T) {
	tasks := &fakeTaskStore{finishErr: postgres.ErrNotFound}
	s := newTestScheduler(tasks, &fakeConfigs{})

	task := &application.ProcessTrackerTask{Name: "payment_retry", AttemptID: "att_1"}
	assert.NoError(t, s.FinishProcessWithBusinessStatus(context.Background(), task, "COMPLETED"))
}

func TestFinishProcessPropagatesStoreFailure(t *testing.T) {
	boom := errors.New("write failed")
	tasks := &fakeTaskStore{finishErr: boom}
	s := newTestScheduler(tasks, &fakeConfigs{})

	task := &application.ProcessTrackerTask{Name: "payment_retry", AttemptID: "att_1"}
	assert.ErrorIs(t, s.FinishProcessWithBusinessStatus(context.Background(), task, "COMPLETED"), boom)
}
