package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/competitor-research/internal/config"
)

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	snap := &HealthSnapshot{
		TasksTotal:     100,
		TasksCompleted: 95,
		TasksFailed:    5,
		FailRate:       0.05,
		LookbackHours:  24,
	}

	alerts := a.Evaluate(snap)
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_TaskFailureRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	snap := &HealthSnapshot{
		TasksTotal:     20,
		TasksCompleted: 12,
		TasksFailed:    8,
		FailRate:       0.4, // 8/20 = 40%
		LookbackHours:  24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertTaskFailureRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "40.0%")
	assert.Equal(t, 20, alerts[0].Details["finished"])
}

func TestAlerter_Evaluate_StuckTasks(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.5, StuckAfterMins: 30})

	snap := &HealthSnapshot{TasksRunning: 3, TasksStuck: 2, LookbackHours: 24, Stuck: []StuckTask{
		{ID: "t1", Company: "Globex"},
		{ID: "t2", Company: "Initech"},
	}}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertStuckTasks, alerts[0].Type)
	assert.Equal(t, "medium", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "2 research task(s)")
	assert.Contains(t, alerts[0].Message, "30m")
	assert.Contains(t, alerts[0].Message, "Globex, Initech")
	assert.Equal(t, []string{"t1", "t2"}, alerts[0].Subjects)
	assert.Equal(t, []string{"Globex", "Initech"}, alerts[0].Details["companies"])
}

func TestAlerter_Evaluate_MultipleAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	snap := &HealthSnapshot{
		TasksTotal:     21,
		TasksCompleted: 10,
		TasksFailed:    10,
		TasksRunning:   1,
		TasksStuck:     1,
		FailRate:       0.5,
		LookbackHours:  24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 2)

	types := map[AlertType]bool{}
	for _, al := range alerts {
		types[al.Type] = true
	}
	assert.True(t, types[AlertTaskFailureRate])
	assert.True(t, types[AlertStuckTasks])
}

func TestAlerter_Evaluate_MinimumTasksRequired(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	// Only 3 finished tasks, below the minimum of 5.
	snap := &HealthSnapshot{
		TasksTotal:     3,
		TasksCompleted: 1,
		TasksFailed:    2,
		FailRate:       0.666,
		LookbackHours:  24,
	}

	alerts := a.Evaluate(snap)
	assert.Empty(t, alerts)
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		err := json.NewDecoder(r.Body).Decode(&alert)
		require.NoError(t, err)
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	alerts := []Alert{
		{Type: AlertTaskFailureRate, Severity: "high", Message: "test alert 1"},
		{Type: AlertStuckTasks, Severity: "medium", Message: "test alert 2"},
	}

	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{WebhookURL: ""})

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertTaskFailureRate, Message: "test"},
	})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_EmptyAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{WebhookURL: "http://example.com"})

	sent := a.SendAlerts(context.Background(), nil)
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertTaskFailureRate, Message: "test"}})
	assert.Equal(t, 0, sent)
}
