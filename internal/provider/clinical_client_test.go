package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wisefido-health/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClinicalClient_FetchSamples(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/persons/p-1/observations", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": 0,
			"msg": "ok",
			"data": [
				{"recordedAt": "2026-03-01T09:00:00Z", "heartRate": 72, "systolic": 150, "diastolic": 95,
				 "diagnoses": ["Type 2 Diabetes"], "medications": ["Insulin"], "emergency": false},
				{"recordedAt": "2026-02-28T09:00:00+08:00", "systolic": 120}
			]
		}`))
	}))
	defer server.Close()

	client := NewClinicalClient(ClinicalConfig{BaseURL: server.URL, APIKey: "secret", Priority: 1}, zap.NewNop())
	assert.Equal(t, models.ProviderClinical, client.Kind())
	assert.Equal(t, 1, client.Priority())

	samples, err := client.FetchSamples(context.Background(), "p-1")
	require.NoError(t, err)
	require.Len(t, samples, 2)

	first := samples[0]
	assert.Equal(t, "p-1", first.PersonID)
	assert.Equal(t, models.ProviderClinical, first.Source)
	assert.Equal(t, 72.0, *first.HeartRate)
	assert.Equal(t, &models.BloodPressure{Systolic: 150, Diastolic: 95}, first.BloodPressure)
	assert.Equal(t, []string{"Type 2 Diabetes"}, first.Conditions)
	assert.False(t, first.HasEmergency())

	// 时间统一为 UTC；只有收缩压时不生成血压
	second := samples[1]
	assert.Equal(t, time.Date(2026, 2, 28, 1, 0, 0, 0, time.UTC), second.Timestamp)
	assert.Nil(t, second.BloodPressure)
}

func TestClinicalClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClinicalClient(ClinicalConfig{BaseURL: server.URL}, zap.NewNop())
	_, err := client.FetchSamples(context.Background(), "p1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClinicalClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": 404, "msg": "person not found"}`))
	}))
	defer server.Close()

	client := NewClinicalClient(ClinicalConfig{BaseURL: server.URL}, zap.NewNop())
	_, err := client.FetchSamples(context.Background(), "p1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "person not found")
}

func TestClinicalClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClinicalClient(ClinicalConfig{BaseURL: server.URL, Timeout: 20 * time.Millisecond}, zap.NewNop())
	_, err := client.FetchSamples(context.Background(), "p1")
	assert.Error(t, err)
}
