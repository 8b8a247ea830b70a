// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"sync"
	"testing"

	"github.com/desertthunder/lqx/internal/models"
	"github.com/desertthunder/lqx/internal/shared"
)

// FakeLessonAPI is an in-memory collection that applies moves and uploads like the platform does.
//
// MoveErrs and PostErrs inject an error for a lesson id or upload title.
type FakeLessonAPI struct {
	mu         sync.Mutex
	Collection int
	Items      []models.ItemDescriptor
	MoveErrs   map[int]error
	PostErrs   map[string]error
	FetchErr   error
	Moves      []models.MoveOperation
	Posts      []string
	nextID     int
}

// NewFakeLessonAPI builds a collection whose positions follow the order of titles, with ids 1..n.
func NewFakeLessonAPI(collection int, titles ...string) *FakeLessonAPI {
	f := &FakeLessonAPI{Collection: collection, MoveErrs: map[int]error{}, PostErrs: map[string]error{}}
	for i, title := range titles {
		f.Items = append(f.Items, models.ItemDescriptor{ID: i + 1, Title: title, Position: i + 1, CollectionID: collection})
	}
	f.nextID = len(titles) + 1
	return f
}

func (f *FakeLessonAPI) FetchCollection(ctx context.Context, collectionID int) (*models.CollectionSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	if collectionID != f.Collection {
		return nil, fmt.Errorf("%w: collection %d", shared.ErrNotFound, collectionID)
	}
	return &models.CollectionSnapshot{CollectionID: collectionID, Items: slices.Clone(f.Items)}, nil
}

func (f *FakeLessonAPI) MovePosition(ctx context.Context, op models.MoveOperation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	f.Moves = append(f.Moves, op)
	if err := f.MoveErrs[op.ID]; err != nil {
		return err
	}

	idx := slices.IndexFunc(f.Items, func(it models.ItemDescriptor) bool { return it.ID == op.ID })
	if idx < 0 {
		return fmt.Errorf("%w: lesson %d", shared.ErrNotFound, op.ID)
	}
	if op.TargetPosition < 1 || op.TargetPosition > len(f.Items) {
		return fmt.Errorf("%w: position %d", shared.ErrRequestRejected, op.TargetPosition)
	}
	item := f.Items[idx]
	f.Items = slices.Delete(f.Items, idx, idx+1)
	f.Items = slices.Insert(f.Items, op.TargetPosition-1, item)
	f.renumber()
	return nil
}

func (f *FakeLessonAPI) PostLesson(ctx context.Context, collectionID int, upload models.LessonUpload) (*models.ItemDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.Posts = append(f.Posts, upload.Title)
	if err := f.PostErrs[upload.Title]; err != nil {
		return nil, err
	}
	item := models.ItemDescriptor{ID: f.nextID, Title: upload.Title, Position: len(f.Items) + 1, CollectionID: collectionID}
	f.nextID++
	f.Items = append(f.Items, item)
	return &item, nil
}

func (f *FakeLessonAPI) LessonURL(id int) string {
	return fmt.Sprintf("https://lingq.test/reader/%d", id)
}

func (f *FakeLessonAPI) CollectionURL(id int) string {
	return fmt.Sprintf("https://lingq.test/course/%d", id)
}

// Order returns the current ids in position order.
func (f *FakeLessonAPI) Order() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, len(f.Items))
	for i, it := range f.Items {
		ids[i] = it.ID
	}
	return ids
}

func (f *FakeLessonAPI) renumber() {
	for i := range f.Items {
		f.Items[i].Position = i + 1
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
