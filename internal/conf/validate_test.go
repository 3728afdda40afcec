package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Catalog.Endpoint = "https://catalog.roproxy.com/v1/search/items/details"
	s.Catalog.PageSize = 10
	s.Thumbnails.Endpoint = "https://thumbnails.roproxy.com/v1/assets"
	s.Thumbnails.Size = "420x420"
	s.Thumbnails.Format = "Png"
	s.Classifier.ModelPath = "model.tflite"
	s.Classifier.LabelPath = "labels.txt"
	s.Classifier.PositiveLabel = "Class 1"
	s.Classifier.Threshold = 0.7
	s.Classifier.InputSize = 224
	s.Scan.Limit = 10
	s.FlagLog.Path = "not-moderated.txt"
	s.Schedule.At = "10:00"
	return s
}

func TestValidateSettings_Valid(t *testing.T) {
	require.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettings_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{
			name:    "empty_catalog_endpoint",
			mutate:  func(s *Settings) { s.Catalog.Endpoint = "" },
			wantErr: "catalog.endpoint",
		},
		{
			name:    "zero_page_size",
			mutate:  func(s *Settings) { s.Catalog.PageSize = 0 },
			wantErr: "catalog.pagesize",
		},
		{
			name:    "negative_page_delay",
			mutate:  func(s *Settings) { s.Catalog.PageDelay = -1 },
			wantErr: "catalog.pagedelay",
		},
		{
			name:    "negative_retries",
			mutate:  func(s *Settings) { s.Catalog.Retries = -1 },
			wantErr: "catalog.retries",
		},
		{
			name:    "empty_thumbnail_endpoint",
			mutate:  func(s *Settings) { s.Thumbnails.Endpoint = "" },
			wantErr: "thumbnails.endpoint",
		},
		{
			name:    "empty_thumbnail_size",
			mutate:  func(s *Settings) { s.Thumbnails.Size = "" },
			wantErr: "thumbnails.size",
		},
		{
			name:    "missing_model_path",
			mutate:  func(s *Settings) { s.Classifier.ModelPath = "" },
			wantErr: "classifier.modelpath",
		},
		{
			name:    "empty_positive_label",
			mutate:  func(s *Settings) { s.Classifier.PositiveLabel = "" },
			wantErr: "classifier.positivelabel",
		},
		{
			name:    "threshold_above_one",
			mutate:  func(s *Settings) { s.Classifier.Threshold = 1.5 },
			wantErr: "classifier.threshold",
		},
		{
			name:    "negative_threshold",
			mutate:  func(s *Settings) { s.Classifier.Threshold = -0.1 },
			wantErr: "classifier.threshold",
		},
		{
			name:    "zero_input_size",
			mutate:  func(s *Settings) { s.Classifier.InputSize = 0 },
			wantErr: "classifier.inputsize",
		},
		{
			name:    "zero_scan_limit",
			mutate:  func(s *Settings) { s.Scan.Limit = 0 },
			wantErr: "scan.limit",
		},
		{
			name:    "empty_flag_log_path",
			mutate:  func(s *Settings) { s.FlagLog.Path = "" },
			wantErr: "flaglog.path",
		},
		{
			name: "notify_enabled_without_webhook",
			mutate: func(s *Settings) {
				s.Notify.Enabled = true
				s.Notify.WebhookURL = ""
			},
			wantErr: "notify.webhookurl",
		},
		{
			name:    "malformed_schedule_time",
			mutate:  func(s *Settings) { s.Schedule.At = "25:99" },
			wantErr: "schedule.at",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(s)
			err := ValidateSettings(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateSettings_BoundaryThresholds(t *testing.T) {
	s := validSettings()
	s.Classifier.Threshold = 0
	assert.NoError(t, ValidateSettings(s))

	s.Classifier.Threshold = 1
	assert.NoError(t, ValidateSettings(s))
}
