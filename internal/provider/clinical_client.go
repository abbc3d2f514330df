package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"wisefido-health/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ClinicalConfig 临床记录系统配置
type ClinicalConfig struct {
	BaseURL    string
	APIKey     string
	Priority   int
	Timeout    time.Duration
	RetryCount int
}

// ClinicalObservation 临床记录系统返回的一次观测
type ClinicalObservation struct {
	RecordedAt       time.Time `json:"recordedAt"`
	HeartRate        *float64  `json:"heartRate,omitempty"`
	Systolic         *float64  `json:"systolic,omitempty"`
	Diastolic        *float64  `json:"diastolic,omitempty"`
	Temperature      *float64  `json:"temperature,omitempty"`
	OxygenSaturation *float64  `json:"oxygenSaturation,omitempty"`
	RespiratoryRate  *float64  `json:"respiratoryRate,omitempty"`
	Weight           *float64  `json:"weight,omitempty"`
	Height           *float64  `json:"height,omitempty"`
	Medications      []string  `json:"medications,omitempty"`
	Diagnoses        []string  `json:"diagnoses,omitempty"`
	Allergies        []string  `json:"allergies,omitempty"`
	Emergency        *bool     `json:"emergency,omitempty"`
}

// ClinicalResponse 临床记录系统响应
type ClinicalResponse struct {
	Status int                   `json:"status"`
	Msg    string                `json:"msg"`
	Data   []ClinicalObservation `json:"data"`
}

// ClinicalClient 临床记录系统 API 客户端
type ClinicalClient struct {
	httpClient *resty.Client
	priority   int
	logger     *zap.Logger
}

// NewClinicalClient 创建临床记录系统客户端
func NewClinicalClient(cfg ClinicalConfig, logger *zap.Logger) *ClinicalClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("X-API-Key", cfg.APIKey)
	}

	return &ClinicalClient{
		httpClient: client,
		priority:   cfg.Priority,
		logger:     logger,
	}
}

func (c *ClinicalClient) Kind() models.ProviderKind { return models.ProviderClinical }

func (c *ClinicalClient) Priority() int { return c.priority }

// FetchSamples 获取某人的临床观测
func (c *ClinicalClient) FetchSamples(ctx context.Context, personID string) ([]models.HealthSample, error) {
	var response ClinicalResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&response).
		Get("/persons/" + url.PathEscape(personID) + "/observations")
	if err != nil {
		return nil, fmt.Errorf("failed to call clinical API: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("clinical API returned HTTP %d", resp.StatusCode())
	}
	if response.Status != 0 {
		return nil, fmt.Errorf("clinical API error: %s (status: %d)", response.Msg, response.Status)
	}

	samples := make([]models.HealthSample, 0, len(response.Data))
	for _, obs := range response.Data {
		samples = append(samples, obs.toSample())
	}

	c.logger.Debug("Fetched clinical observations",
		zap.String("person_id", personID),
		zap.Int("sample_count", len(samples)),
	)

	return stampSamples(samples, personID, models.ProviderClinical), nil
}

func (o ClinicalObservation) toSample() models.HealthSample {
	s := models.HealthSample{
		Timestamp: o.RecordedAt.UTC(),
		HealthFields: models.HealthFields{
			HeartRate:          o.HeartRate,
			Temperature:        o.Temperature,
			OxygenSaturation:   o.OxygenSaturation,
			RespiratoryRate:    o.RespiratoryRate,
			Weight:             o.Weight,
			Height:             o.Height,
			Medications:        o.Medications,
			Conditions:         o.Diagnoses,
			Allergies:          o.Allergies,
			EmergencyCondition: o.Emergency,
		},
	}
	// 收缩压和舒张压必须同时存在
	if o.Systolic != nil && o.Diastolic != nil {
		s.BloodPressure = &models.BloodPressure{Systolic: *o.Systolic, Diastolic: *o.Diastolic}
	}
	return s
}
