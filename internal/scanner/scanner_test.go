package scanner

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ugcscan/ugcscan-go/internal/catalog"
	"github.com/ugcscan/ugcscan-go/internal/classifier"
	"github.com/ugcscan/ugcscan-go/internal/flagstore"
	"github.com/ugcscan/ugcscan-go/internal/imageproc"
)

type fakeSearcher struct {
	items    map[string][]catalog.Item
	err      error
	searches []string
}

func (f *fakeSearcher) Search(ctx context.Context, keyword string, limit int) ([]catalog.Item, error) {
	f.searches = append(f.searches, keyword)
	items := f.items[keyword]
	if len(items) > limit {
		items = items[:limit]
	}
	return items, f.err
}

type fakeResolver struct {
	urls     map[int64]string
	resolves []int64
}

func (f *fakeResolver) Resolve(ctx context.Context, assetID int64) (string, bool) {
	f.resolves = append(f.resolves, assetID)
	url, ok := f.urls[assetID]
	return url, ok
}

type fakePreprocessor struct {
	failFor map[string]bool
	calls   []string
}

func (f *fakePreprocessor) FromURL(ctx context.Context, imageURL string) (*imageproc.Tensor, error) {
	f.calls = append(f.calls, imageURL)
	if f.failFor[imageURL] {
		return nil, errors.New("decode failed")
	}
	return &imageproc.Tensor{Data: []float32{0}, Size: 1}, nil
}

// fakeClassifier returns canned results in call order; anything past the
// scripted results classifies negative.
type fakeClassifier struct {
	results []classifier.Result
	err     error
	calls   int
}

func (f *fakeClassifier) Classify(t *imageproc.Tensor) (classifier.Result, error) {
	defer func() { f.calls++ }()
	if f.err != nil {
		return classifier.Result{}, f.err
	}
	if f.calls < len(f.results) {
		return f.results[f.calls], nil
	}
	return classifier.Result{Label: "Class 0", Confidence: 0.9}, nil
}

func (f *fakeClassifier) IsPositive(r classifier.Result) bool {
	return classifier.Decide(r, "Class 1", 0.7)
}

type fakeStore struct {
	appended []flagstore.FlaggedItem
	err      error
}

func (f *fakeStore) Append(item flagstore.FlaggedItem) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, item)
	return nil
}

type fakeNotifier struct {
	sent  bool
	items []flagstore.FlaggedItem
}

func (f *fakeNotifier) Send(summary *Summary, items []flagstore.FlaggedItem) error {
	f.sent = true
	f.items = items
	return nil
}

func price(v int64) *int64 {
	return &v
}

func testItems(n int) []catalog.Item {
	items := make([]catalog.Item, n)
	for i := range items {
		items[i] = catalog.Item{
			ID:          int64(i + 1),
			Name:        fmt.Sprintf("Item %d", i+1),
			Price:       price(25),
			CreatorName: "creator",
		}
	}
	return items
}

func urlsFor(items []catalog.Item) map[int64]string {
	urls := make(map[int64]string, len(items))
	for i := range items {
		urls[items[i].ID] = fmt.Sprintf("https://cdn.example.com/%d.png", items[i].ID)
	}
	return urls
}

func TestRun_EmptyKeywordsDoesNothing(t *testing.T) {
	search := &fakeSearcher{}
	store := &fakeStore{}
	s := New(search, &fakeResolver{}, &fakePreprocessor{}, &fakeClassifier{}, store, nil, nil)

	summary, err := s.Run(context.Background(), nil, 10)

	require.NoError(t, err)
	assert.Empty(t, search.searches)
	assert.Empty(t, store.appended)
	assert.Zero(t, summary.Scanned)
}

func TestRun_FlagsPositiveItems(t *testing.T) {
	items := testItems(3)
	search := &fakeSearcher{items: map[string][]catalog.Item{"halo": items}}
	resolver := &fakeResolver{urls: urlsFor(items)}
	cls := &fakeClassifier{results: []classifier.Result{
		{Label: "Class 0", Confidence: 0.95},
		{Label: "Class 1", Confidence: 0.81},
		{Label: "Class 1", Confidence: 0.5},
	}}
	store := &fakeStore{}

	s := New(search, resolver, &fakePreprocessor{}, cls, store, nil, nil)
	summary, err := s.Run(context.Background(), []string{"halo"}, 10)

	require.NoError(t, err)
	assert.Equal(t, 3, summary.Scanned)
	assert.Equal(t, 1, summary.Flagged)
	assert.Zero(t, summary.Skipped)
	require.Len(t, store.appended, 1)
	assert.Equal(t, int64(2), store.appended[0].ID)
	assert.Equal(t, "Item 2", store.appended[0].Name)
	assert.Equal(t, "https://cdn.example.com/2.png", store.appended[0].Thumbnail)
}

func TestRun_MissingThumbnailSkipsItem(t *testing.T) {
	items := testItems(2)
	search := &fakeSearcher{items: map[string][]catalog.Item{"halo": items}}
	// Only item 2 has a thumbnail.
	resolver := &fakeResolver{urls: map[int64]string{2: "https://cdn.example.com/2.png"}}
	prep := &fakePreprocessor{}
	cls := &fakeClassifier{results: []classifier.Result{
		{Label: "Class 1", Confidence: 0.99},
	}}
	store := &fakeStore{}

	s := New(search, resolver, prep, cls, store, nil, nil)
	summary, err := s.Run(context.Background(), []string{"halo"}, 10)

	require.NoError(t, err)
	// The unresolvable item never reaches the preprocessor, the classifier
	// or the store.
	assert.Equal(t, []string{"https://cdn.example.com/2.png"}, prep.calls)
	assert.Equal(t, 1, cls.calls)
	require.Len(t, store.appended, 1)
	assert.Equal(t, int64(2), store.appended[0].ID)
	assert.Equal(t, 1, summary.Skipped)
}

func TestRun_PreprocessFailureSkipsItem(t *testing.T) {
	items := testItems(1)
	resolver := &fakeResolver{urls: urlsFor(items)}
	prep := &fakePreprocessor{failFor: map[string]bool{"https://cdn.example.com/1.png": true}}
	cls := &fakeClassifier{}
	store := &fakeStore{}

	s := New(&fakeSearcher{items: map[string][]catalog.Item{"halo": items}}, resolver, prep, cls, store, nil, nil)
	summary, err := s.Run(context.Background(), []string{"halo"}, 10)

	require.NoError(t, err)
	assert.Zero(t, cls.calls)
	assert.Empty(t, store.appended)
	assert.Equal(t, 1, summary.Skipped)
}

func TestRun_ClassifierErrorSkipsItem(t *testing.T) {
	items := testItems(1)
	cls := &fakeClassifier{err: errors.New("invoke failed")}
	store := &fakeStore{}

	s := New(&fakeSearcher{items: map[string][]catalog.Item{"halo": items}},
		&fakeResolver{urls: urlsFor(items)}, &fakePreprocessor{}, cls, store, nil, nil)
	summary, err := s.Run(context.Background(), []string{"halo"}, 10)

	require.NoError(t, err)
	assert.Empty(t, store.appended)
	assert.Equal(t, 1, summary.Skipped)
}

func TestRun_KeywordFailureDoesNotAbortScan(t *testing.T) {
	items := testItems(1)
	search := &fakeSearcher{
		items: map[string][]catalog.Item{"good": items},
		err:   errors.New("catalog unavailable"),
	}
	cls := &fakeClassifier{results: []classifier.Result{
		{Label: "Class 1", Confidence: 0.9},
	}}
	store := &fakeStore{}

	s := New(search, &fakeResolver{urls: urlsFor(items)}, &fakePreprocessor{}, cls, store, nil, nil)
	summary, err := s.Run(context.Background(), []string{"bad", "good"}, 10)

	require.NoError(t, err)
	assert.Equal(t, []string{"bad", "good"}, search.searches)
	assert.Len(t, store.appended, 1)
	assert.Equal(t, 1, summary.Flagged)
}

func TestRun_StoreFailureIsFatal(t *testing.T) {
	items := testItems(2)
	cls := &fakeClassifier{results: []classifier.Result{
		{Label: "Class 1", Confidence: 0.9},
	}}
	store := &fakeStore{err: errors.New("disk full")}

	s := New(&fakeSearcher{items: map[string][]catalog.Item{"halo": items}},
		&fakeResolver{urls: urlsFor(items)}, &fakePreprocessor{}, cls, store, nil, nil)
	summary, err := s.Run(context.Background(), []string{"halo"}, 10)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	// The run died on the first positive item; the second was never scanned.
	assert.Equal(t, 1, summary.Scanned)
}

func TestRun_RespectsLimit(t *testing.T) {
	items := testItems(20)
	search := &fakeSearcher{items: map[string][]catalog.Item{"halo": items}}

	s := New(search, &fakeResolver{urls: urlsFor(items)}, &fakePreprocessor{}, &fakeClassifier{}, &fakeStore{}, nil, nil)
	summary, err := s.Run(context.Background(), []string{"halo"}, 5)

	require.NoError(t, err)
	assert.Equal(t, 5, summary.Scanned)
}

func TestRun_NotifierReceivesFlaggedItems(t *testing.T) {
	items := testItems(1)
	cls := &fakeClassifier{results: []classifier.Result{
		{Label: "Class 1", Confidence: 0.9},
	}}
	notifier := &fakeNotifier{}

	s := New(&fakeSearcher{items: map[string][]catalog.Item{"halo": items}},
		&fakeResolver{urls: urlsFor(items)}, &fakePreprocessor{}, cls, &fakeStore{}, notifier, nil)
	_, err := s.Run(context.Background(), []string{"halo"}, 10)

	require.NoError(t, err)
	assert.True(t, notifier.sent)
	require.Len(t, notifier.items, 1)
	assert.Equal(t, int64(1), notifier.items[0].ID)
}

func TestRun_NotifierSkippedWhenNothingFlagged(t *testing.T) {
	items := testItems(1)
	notifier := &fakeNotifier{}

	s := New(&fakeSearcher{items: map[string][]catalog.Item{"halo": items}},
		&fakeResolver{urls: urlsFor(items)}, &fakePreprocessor{}, &fakeClassifier{}, &fakeStore{}, notifier, nil)
	_, err := s.Run(context.Background(), []string{"halo"}, 10)

	require.NoError(t, err)
	assert.False(t, notifier.sent)
}

func TestRun_CanceledContextStopsScan(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	search := &fakeSearcher{items: map[string][]catalog.Item{"halo": testItems(1)}}
	s := New(search, &fakeResolver{}, &fakePreprocessor{}, &fakeClassifier{}, &fakeStore{}, nil, nil)

	_, err := s.Run(ctx, []string{"halo"}, 10)

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, search.searches)
}
