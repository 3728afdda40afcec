package conf

import (
	"fmt"
	"time"
)

// ValidateSettings checks the loaded settings for values the scanner cannot
// run with. It is called by Load before the settings are published.
func ValidateSettings(settings *Settings) error {
	if err := validateCatalogSettings(&settings.Catalog); err != nil {
		return err
	}
	if err := validateThumbnailSettings(&settings.Thumbnails); err != nil {
		return err
	}
	if err := validateClassifierSettings(&settings.Classifier); err != nil {
		return err
	}
	if err := validateScanSettings(&settings.Scan); err != nil {
		return err
	}
	if settings.FlagLog.Path == "" {
		return fmt.Errorf("flaglog.path must not be empty")
	}
	if settings.Notify.Enabled && settings.Notify.WebhookURL == "" {
		return fmt.Errorf("notify.webhookurl is required when notify is enabled")
	}
	if _, err := time.Parse("15:04", settings.Schedule.At); err != nil {
		return fmt.Errorf("schedule.at must be a HH:MM time: %w", err)
	}
	return nil
}

func validateCatalogSettings(c *CatalogSettings) error {
	if c.Endpoint == "" {
		return fmt.Errorf("catalog.endpoint must not be empty")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("catalog.pagesize must be positive, got %d", c.PageSize)
	}
	if c.PageDelay < 0 {
		return fmt.Errorf("catalog.pagedelay must not be negative")
	}
	if c.Retries < 0 {
		return fmt.Errorf("catalog.retries must not be negative")
	}
	return nil
}

func validateThumbnailSettings(t *ThumbnailSettings) error {
	if t.Endpoint == "" {
		return fmt.Errorf("thumbnails.endpoint must not be empty")
	}
	if t.Size == "" || t.Format == "" {
		return fmt.Errorf("thumbnails.size and thumbnails.format must not be empty")
	}
	return nil
}

func validateClassifierSettings(c *ClassifierSettings) error {
	if c.ModelPath == "" || c.LabelPath == "" {
		return fmt.Errorf("classifier.modelpath and classifier.labelpath must not be empty")
	}
	if c.PositiveLabel == "" {
		return fmt.Errorf("classifier.positivelabel must not be empty")
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("classifier.threshold must be within [0, 1], got %g", c.Threshold)
	}
	if c.InputSize <= 0 {
		return fmt.Errorf("classifier.inputsize must be positive, got %d", c.InputSize)
	}
	return nil
}

func validateScanSettings(s *ScanSettings) error {
	if s.Limit <= 0 {
		return fmt.Errorf("scan.limit must be positive, got %d", s.Limit)
	}
	return nil
}
