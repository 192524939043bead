package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adetunji-o/relaypay/internal/analytics"
	"github.com/adetunji-o/relaypay/internal/application"
	"github.com/adetunji-o/relaypay/internal/domain"
	"github.com/adetunji-o/relaypay/internal/infrastructure/postgres"
	"github.com/adetunji-o/relaypay/internal/testhelpers"
)

func setupDB(t *testing.T) *testhelpers.TestDatabase {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	td := testhelpers.SetupTestDatabase(t)
	t.Cleanup(func() { td.Cleanup(t) })
	return td
}

func seedAttempt(t *testing.T, repo *postgres.AttemptRepository, merchantID string) *domain.PaymentAttempt {
	t.Helper()
	attempt, err := domain.NewPaymentAttempt(
		uuid.NewString(), uuid.NewString(), merchantID, "atlaspay", 1000, "USD")
	require.NoError(t, err)
	attempt.PaymentMethod = "card"
	attempt.AuthType = "no_three_ds"
	require.NoError(t, repo.InsertAttempt(context.Background(), attempt))
	return attempt
}

func TestAttemptRepositoryRoundTrip(t *testing.T) {
	td := setupDB(t)
	ctx := context.Background()
	repo := postgres.NewAttemptRepository(td.DB.Pool)

	attempt := seedAttempt(t, repo, "merchant_1")

	found, err := repo.FindAttemptByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, attempt.ID, found.ID)
	assert.Equal(t, domain.AttemptStarted, found.Status)
	assert.Equal(t, int64(1000), found.AmountMinor)
	assert.Nil(t, found.ConnectorTransactionID)
	assert.Nil(t, found.ErrorCode)

	require.NoError(t, found.UpdateStatus(domain.AttemptCharged))
	found.RecordConnectorTransactionID("txn_abc")
	found.RetryCount = 2
	require.NoError(t, repo.UpdateAttempt(ctx, found))

	updated, err := repo.FindAttemptByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptCharged, updated.Status)
	require.NotNil(t, updated.ConnectorTransactionID)
	assert.Equal(t, "txn_abc", *updated.ConnectorTransactionID)
	assert.Equal(t, 2, updated.RetryCount)
}

func TestAttemptRepositoryNotFound(t *testing.T) {
	td := setupDB(t)
	ctx := context.Background()
	repo := postgres.NewAttemptRepository(td.DB.Pool)

	_, err := repo.FindAttemptByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, postgres.ErrNotFound)

	ghost, err := domain.NewPaymentAttempt(uuid.NewString(), uuid.NewString(), "merchant_1", "atlaspay", 1000, "USD")
	require.NoError(t, err)
	assert.ErrorIs(t, repo.UpdateAttempt(ctx, ghost), postgres.ErrNotFound)
}

func TestIntentRepositoryRoundTrip(t *testing.T) {
	td := setupDB(t)
	ctx := context.Background()
	repo := postgres.NewIntentRepository(td.DB.Pool)

	now := time.Now().UTC()
	intent := &domain.PaymentIntent{
		ID:              uuid.NewString(),
		MerchantID:      "merchant_1",
		Status:          domain.IntentRequiresConfirmation,
		AmountMinor:     1000,
		Currency:        "USD",
		ActiveAttemptID: uuid.NewString(),
		CreatedAt:       now,
		ModifiedAt:      now,
	}
	require.NoError(t, repo.InsertIntent(ctx, intent))

	found, err := repo.FindIntentByID(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentRequiresConfirmation, found.Status)

	found.Status = domain.IntentSucceeded
	found.ModifiedAt = time.Now().UTC()
	require.NoError(t, repo.UpdateIntent(ctx, found))

	updated, err := repo.FindIntentByID(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentSucceeded, updated.Status)
}

func TestRefundRepositoryRoundTrip(t *testing.T) {
	td := setupDB(t)
	ctx := context.Background()
	repo := postgres.NewRefundRepository(td.DB.Pool)

	now := time.Now().UTC()
	refund := &domain.Refund{
		ID:          uuid.NewString(),
		PaymentID:   uuid.NewString(),
		AttemptID:   uuid.NewString(),
		MerchantID:  "merchant_1",
		Connector:   "atlaspay",
		Status:      domain.RefundPending,
		AmountMinor: 250,
		Currency:    "USD",
		CreatedAt:   now,
		ModifiedAt:  now,
	}
	require.NoError(t, repo.InsertRefund(ctx, refund))

	connectorRefundID := "re_1"
	refund.Status = domain.RefundSuccess
	refund.ConnectorRefundID = &connectorRefundID
	refund.ModifiedAt = time.Now().UTC()
	require.NoError(t, repo.UpdateRefund(ctx, refund))

	found, err := repo.FindRefundByID(ctx, refund.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RefundSuccess, found.Status)
	require.NotNil(t, found.ConnectorRefundID)
	assert.Equal(t, "re_1", *found.ConnectorRefundID)
}

func TestConfigRepositoryUpsert(t *testing.T) {
	td := setupDB(t)
	ctx := context.Background()
	repo := postgres.NewConfigRepository(td.DB.Pool)

	_, err := repo.FindConfigByKey(ctx, "retry_mapping_atlaspay")
	assert.ErrorIs(t, err, postgres.ErrNotFound)

	require.NoError(t, repo.UpsertConfig(ctx, "retry_mapping_atlaspay", `{"max_count":3,"frequencies":[10]}`))

	value, err := repo.FindConfigByKey(ctx, "retry_mapping_atlaspay")
	require.NoError(t, err)
	assert.JSONEq(t, `{"max_count":3,"frequencies":[10]}`, value)

	// Re-upserting the same key replaces the value.
	require.NoError(t, repo.UpsertConfig(ctx, "retry_mapping_atlaspay", `{"max_count":5,"frequencies":[60]}`))
	value, err = repo.FindConfigByKey(ctx, "retry_mapping_atlaspay")
	require.NoError(t, err)
	assert.JSONEq(t, `{"max_count":5,"frequencies":[60]}`, value)
}

func TestProcessTrackerLifecycle(t *testing.T) {
	td := setupDB(t)
	ctx := context.Background()
	repo := postgres.NewProcessTrackerRepository(td.DB.Pool)

	now := time.Now().UTC()
	task := &application.ProcessTrackerTask{
		ID:         uuid.NewString(),
		Name:       "payment_retry",
		AttemptID:  uuid.NewString(),
		MerchantID: "merchant_1",
		RetryCount: 0,
	}

	require.NoError(t, repo.UpsertTask(ctx, task, now.Add(-time.Minute)))

	due, err := repo.FindDueTasks(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, task.AttemptID, due[0].AttemptID)

	// Rescheduling the same attempt updates the row instead of adding one.
	task.RetryCount = 1
	require.NoError(t, repo.UpsertTask(ctx, task, now.Add(time.Hour)))

	due, err = repo.FindDueTasks(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, due, "rescheduled task is no longer due")

	require.NoError(t, repo.FinishTask(ctx, task, "COMPLETED"))

	due, err = repo.FindDueTasks(ctx, now.Add(2*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due, "finished task never comes back")
}

func TestProcessTrackerFinishMissingRow(t *testing.T) {
	td := setupDB(t)
	repo := postgres.NewProcessTrackerRepository(td.DB.Pool)

	task := &application.ProcessTrackerTask{Name: "payment_retry", AttemptID: uuid.NewString()}
	assert.ErrorIs(t, repo.FinishTask(context.Background(), task, "COMPLETED"), postgres.ErrNotFound)
}

func TestAnalyticsStorePaymentMetrics(t *testing.T) {
	td := setupDB(t)
	ctx := context.Background()
	attempts := postgres.NewAttemptRepository(td.DB.Pool)
	store := postgres.NewAnalyticsStore(td.DB.Pool)

	charged := seedAttempt(t, attempts, "merchant_1")
	require.NoError(t, charged.UpdateStatus(domain.AttemptCharged))
	require.NoError(t, attempts.UpdateAttempt(ctx, charged))

	seedAttempt(t, attempts, "merchant_1")
	seedAttempt(t, attempts, "merchant_2")

	req := analytics.MetricsRequest{
		Metrics: []analytics.MetricType{analytics.MetricPaymentCount},
		GroupBy: []analytics.Dimension{analytics.DimStatus},
		TimeRange: analytics.TimeRange{
			StartTime: time.Now().UTC().Add(-time.Hour),
			EndTime:   time.Now().UTC().Add(time.Hour),
		},
	}

	rows, err := store.LoadPaymentMetrics(ctx, analytics.MetricPaymentCount, "merchant_1", req)
	require.NoError(t, err)

	counts := map[string]int64{}
	for _, r := range rows {
		require.NotNil(t, r.ID.Status)
		require.NotNil(t, r.Row.PaymentCount)
		counts[*r.ID.Status] = *r.Row.PaymentCount
	}

	// merchant_2 rows are invisible to merchant_1.
	assert.Equal(t, map[string]int64{"charged": 1, "started": 1}, counts)
}

func TestAnalyticsStoreAPIEvents(t *testing.T) {
	td := setupDB(t)
	ctx := context.Background()
	store := postgres.NewAnalyticsStore(td.DB.Pool)

	for _, latency := range []int64{10, 30} {
		require.NoError(t, store.InsertAPIEvent(ctx, &postgres.APIEvent{
			ID:         uuid.NewString(),
			MerchantID: "merchant_1",
			Status:     "200",
			LatencyMs:  latency,
			CreatedAt:  time.Now().UTC(),
		}))
	}

	req := analytics.MetricsRequest{
		Metrics: []analytics.MetricType{analytics.MetricAPIEventLatencyAvg},
		TimeRange: analytics.TimeRange{
			StartTime: time.Now().UTC().Add(-time.Hour),
			EndTime:   time.Now().UTC().Add(time.Hour),
		},
	}

	rows, err := store.LoadAPIEventMetrics(ctx, analytics.MetricAPIEventLatencyAvg, "merchant_1", req)
	require.NoError(t, err)

	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Row.LatencyAvgMs)
	assert.True(t, rows[0].Row.LatencyAvgMs.Equal(decimal.NewFromInt(20)), "avg of 10 and 30")
}
