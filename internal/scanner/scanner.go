// Package scanner drives the scan pipeline: keyword pagination, thumbnail
// resolution, preprocessing, classification and flagging.
package scanner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ugcscan/ugcscan-go/internal/catalog"
	"github.com/ugcscan/ugcscan-go/internal/classifier"
	"github.com/ugcscan/ugcscan-go/internal/flagstore"
	"github.com/ugcscan/ugcscan-go/internal/imageproc"
	"github.com/ugcscan/ugcscan-go/internal/logging"
	"github.com/ugcscan/ugcscan-go/internal/observability"
)

var (
	serviceLogger *slog.Logger
	loggerOnce    sync.Once
)

func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logging.ForService("scanner")
	})
	return serviceLogger
}

// Searcher pages keyword search results out of the catalog service.
type Searcher interface {
	Search(ctx context.Context, keyword string, limit int) ([]catalog.Item, error)
}

// ThumbnailResolver maps an asset id to an image URL.
type ThumbnailResolver interface {
	Resolve(ctx context.Context, assetID int64) (imageURL string, ok bool)
}

// Preprocessor turns an image URL into a model-ready tensor.
type Preprocessor interface {
	FromURL(ctx context.Context, imageURL string) (*imageproc.Tensor, error)
}

// Classifier runs inference and applies the flagging rule.
type Classifier interface {
	Classify(t *imageproc.Tensor) (classifier.Result, error)
	IsPositive(r classifier.Result) bool
}

// FlagAppender persists a flagged item.
type FlagAppender interface {
	Append(item flagstore.FlaggedItem) error
}

// Notifier pushes the outcome of a run that flagged items. May be nil.
type Notifier interface {
	Send(summary *Summary, items []flagstore.FlaggedItem) error
}

// Summary reports what a scan run did.
type Summary struct {
	RunID    string
	Keywords []string
	Scanned  int
	Flagged  int
	Skipped  int
	Duration time.Duration
}

// Scanner owns one pass over the catalog. Collaborators are injected so tests
// can replace any stage.
type Scanner struct {
	catalog    Searcher
	thumbnails ThumbnailResolver
	prep       Preprocessor
	classifier Classifier
	store      FlagAppender
	notifier   Notifier               // optional
	metrics    *observability.Metrics // optional, nil-safe
}

// New assembles a scanner. notifier and metrics may be nil.
func New(cat Searcher, thumbs ThumbnailResolver, prep Preprocessor, cls Classifier,
	store FlagAppender, notifier Notifier, metrics *observability.Metrics) *Scanner {
	return &Scanner{
		catalog:    cat,
		thumbnails: thumbs,
		prep:       prep,
		classifier: cls,
		store:      store,
		notifier:   notifier,
		metrics:    metrics,
	}
}

// Run executes one scan over the keywords, processing up to limit items per
// keyword. Keywords and items are processed strictly sequentially. Network
// and decode failures skip the affected keyword or item; only a failed flag
// log append aborts the run, returning the partial summary with the error.
func (s *Scanner) Run(ctx context.Context, keywords []string, limit int) (*Summary, error) {
	summary := &Summary{
		RunID:    uuid.NewString(),
		Keywords: keywords,
	}
	log := getLogger().With("run_id", summary.RunID)

	if len(keywords) == 0 {
		log.Info("no keywords to scan")
		return summary, nil
	}

	start := time.Now()
	log.Info("scan started", "keywords", keywords, "limit", limit)

	var flagged []flagstore.FlaggedItem
	for _, keyword := range keywords {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}

		items, err := s.catalog.Search(ctx, keyword, limit)
		if err != nil {
			// Pagination already logged the cause; whatever items came back
			// before the failure are still processed.
			log.Warn("keyword search incomplete", "keyword", keyword, "items", len(items))
		}

		for i := range items {
			if err := ctx.Err(); err != nil {
				summary.Duration = time.Since(start)
				return summary, err
			}
			flaggedItem, err := s.processItem(ctx, log, summary, &items[i])
			if err != nil {
				summary.Duration = time.Since(start)
				return summary, err
			}
			if flaggedItem != nil {
				flagged = append(flagged, *flaggedItem)
			}
		}
	}

	summary.Duration = time.Since(start)
	s.metrics.ScanCompleted(summary.Duration)
	log.Info("scan finished",
		"scanned", summary.Scanned,
		"flagged", summary.Flagged,
		"skipped", summary.Skipped,
		"duration", summary.Duration)

	if s.notifier != nil && len(flagged) > 0 {
		if err := s.notifier.Send(summary, flagged); err != nil {
			// Notification is best effort; the flag log already has the items.
			log.Warn("failed to send notification", "error", err)
		}
	}

	return summary, nil
}

// processItem runs one item through resolve, preprocess, classify and flag.
// It returns the flagged item when the decision was positive, nil when the
// item was skipped or classified negative, and an error only when the flag
// log append failed.
func (s *Scanner) processItem(ctx context.Context, log *slog.Logger, summary *Summary, item *catalog.Item) (*flagstore.FlaggedItem, error) {
	summary.Scanned++
	s.metrics.ItemScanned()

	thumbURL, ok := s.thumbnails.Resolve(ctx, item.ID)
	if !ok {
		s.skip(summary, "no_thumbnail")
		return nil, nil
	}

	tensor, err := s.prep.FromURL(ctx, thumbURL)
	if err != nil {
		log.Debug("preprocessing failed", "id", item.ID, "error", err)
		s.skip(summary, "preprocess_failed")
		return nil, nil
	}

	result, err := s.classifier.Classify(tensor)
	if err != nil {
		log.Warn("classification failed", "id", item.ID, "error", err)
		s.metrics.ClassifierError()
		s.skip(summary, "classify_failed")
		return nil, nil
	}

	if !s.classifier.IsPositive(result) {
		return nil, nil
	}

	flaggedItem := flagstore.FlaggedItem{
		ID:          item.ID,
		Name:        item.Name,
		Price:       item.Price,
		CreatorName: item.CreatorName,
		Thumbnail:   thumbURL,
	}
	if err := s.store.Append(flaggedItem); err != nil {
		// Losing a true detection silently defeats the system; the run dies.
		return nil, err
	}

	summary.Flagged++
	s.metrics.ItemFlagged()
	log.Info("flagged item",
		"id", item.ID,
		"name", item.Name,
		"label", result.Label,
		"confidence", result.Confidence)
	return &flaggedItem, nil
}

func (s *Scanner) skip(summary *Summary, reason string) {
	summary.Skipped++
	s.metrics.ItemSkipped(reason)
}
