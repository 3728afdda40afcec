// Package runtime wires the configured collaborators into a ready-to-run
// scanner.
package runtime

import (
	"fmt"

	"github.com/ugcscan/ugcscan-go/internal/catalog"
	"github.com/ugcscan/ugcscan-go/internal/classifier"
	"github.com/ugcscan/ugcscan-go/internal/conf"
	"github.com/ugcscan/ugcscan-go/internal/flagstore"
	"github.com/ugcscan/ugcscan-go/internal/httpclient"
	"github.com/ugcscan/ugcscan-go/internal/imageproc"
	"github.com/ugcscan/ugcscan-go/internal/notify"
	"github.com/ugcscan/ugcscan-go/internal/observability"
	"github.com/ugcscan/ugcscan-go/internal/scanner"
)

// BuildScanner assembles a scanner with its real collaborators: the catalog
// and thumbnail clients, the preprocessor, the TFLite classifier and the flag
// store. The classifier holds interpreter buffers for the process lifetime;
// the returned cleanup releases them.
func BuildScanner(settings *conf.Settings, metrics *observability.Metrics) (*scanner.Scanner, func(), error) {
	hc := httpclient.New(nil)

	cls, err := classifier.New(&settings.Classifier)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing classifier: %w", err)
	}

	store, err := flagstore.Open(settings.FlagLog.Path, settings.FlagLog.Dedupe)
	if err != nil {
		cls.Close()
		return nil, nil, fmt.Errorf("opening flag log: %w", err)
	}

	var notifier scanner.Notifier
	if settings.Notify.Enabled {
		discord, err := notify.NewDiscord(settings.Notify.WebhookURL)
		if err != nil {
			cls.Close()
			return nil, nil, fmt.Errorf("initializing notifier: %w", err)
		}
		notifier = discord
	}

	cat := catalog.NewClient(&settings.Catalog, hc)
	cat.SetPageObserver(metrics.PageFetched)

	s := scanner.New(
		cat,
		catalog.NewResolver(&settings.Thumbnails, hc),
		imageproc.NewPreprocessor(hc, settings.Classifier.InputSize, settings.Scan.ImageTimeout),
		cls,
		store,
		notifier,
		metrics,
	)
	return s, cls.Close, nil
}
