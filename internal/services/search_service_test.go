package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-search-backend/internal/domain"
	"github.com/tbourn/go-search-backend/internal/gis"
	"github.com/tbourn/go-search-backend/internal/logging"
	"github.com/tbourn/go-search-backend/internal/pool"
	"github.com/tbourn/go-search-backend/internal/repo"
)

// ----- Shared test plumbing -----

func testSink(t *testing.T) *logging.Sink {
	t.Helper()
	s := logging.NewSink(zerolog.New(io.Discard), 64)
	t.Cleanup(s.Close)
	return s
}

func testPool(t *testing.T) *pool.Pool {
	t.Helper()
	p := pool.New(2)
	t.Cleanup(p.Close)
	return p
}

// ----- Fakes -----

type fakeSearchRepo struct {
	userErr   error
	created   *domain.SearchRecord
	createErr error
}

func (r *fakeSearchRepo) GetUser(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error) {
	if r.userErr != nil {
		return nil, r.userErr
	}
	return &domain.User{ID: id, Name: "u", Email: "u@example.com"}, nil
}

func (r *fakeSearchRepo) CreateSearchRecord(ctx context.Context, db *gorm.DB, rec *domain.SearchRecord) error {
	if r.createErr != nil {
		return r.createErr
	}
	rec.ID = 12
	r.created = rec
	return nil
}

type fakeCatalog struct {
	gotQuery string
	body     []byte
	err      error
}

func (c *fakeCatalog) FetchItems(ctx context.Context, encodedQuery string) ([]byte, error) {
	c.gotQuery = encodedQuery
	if c.err != nil {
		return nil, c.err
	}
	return c.body, nil
}

// echoCatalog answers every fetch with a single item derived from the encoded
// query, so each response is distinguishable per request.
type echoCatalog struct{}

func (echoCatalog) FetchItems(ctx context.Context, encodedQuery string) ([]byte, error) {
	return []byte(fmt.Sprintf(
		`{"result":{"items":[{"id":%q,"name":"place for %s","address_name":"addr"}]}}`,
		encodedQuery, encodedQuery)), nil
}

// concurrentSearchRepo is a goroutine-safe record store for tests that run
// several searches at once.
type concurrentSearchRepo struct {
	mu      sync.Mutex
	records []domain.SearchRecord
}

func (r *concurrentSearchRepo) GetUser(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error) {
	return &domain.User{ID: id, Name: "u", Email: "u@example.com"}, nil
}

func (r *concurrentSearchRepo) CreateSearchRecord(ctx context.Context, db *gorm.DB, rec *domain.SearchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.ID = uint(len(r.records) + 1)
	r.records = append(r.records, *rec)
	return nil
}

const catalogPayload = `{"result":{"items":[
	{"id":"1","name":"Кафе Пушкинъ","address_name":"Тверской бульвар, 26А"},
	{"id":"2","name":"Coffee Bean","address_name":"Пятницкая, 5"}
]}}`

// ----- Tests -----

func TestSearchService_Search(t *testing.T) {
	fr := &fakeSearchRepo{}
	fc := &fakeCatalog{body: []byte(catalogPayload)}
	svc := NewSearchService(nil, fr, fc, testPool(t), testSink(t))

	got, err := svc.Search(context.Background(), 3, "Москва", "кафе")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got.Items) != 2 || got.Items[0].Name != "Кафе Пушкинъ" {
		t.Fatalf("items = %+v", got.Items)
	}

	if fc.gotQuery != gis.EncodeQuery("Москва", "кафе") {
		t.Fatalf("catalog query = %q", fc.gotQuery)
	}

	rec := fr.created
	if rec == nil {
		t.Fatal("record not persisted")
	}
	if rec.UserID != 3 || rec.City != "Москва" || rec.Query != "кафе" || rec.ResultsCount != 2 {
		t.Fatalf("record = %+v", rec)
	}
	var stored domain.SearchResult
	if err := json.Unmarshal([]byte(rec.ResultsJSON), &stored); err != nil {
		t.Fatalf("stored payload invalid: %v", err)
	}
	if len(stored.Items) != 2 || stored.Items[1].Address != "Пятницкая, 5" {
		t.Fatalf("stored items = %+v", stored.Items)
	}
}

func TestSearchService_Search_UpstreamStatus(t *testing.T) {
	fc := &fakeCatalog{err: &gis.StatusError{Code: 502}}
	svc := NewSearchService(nil, &fakeSearchRepo{}, fc, testPool(t), testSink(t))

	_, err := svc.Search(context.Background(), 1, "c", "q")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v; want *FetchError", err)
	}
	if fe.Status != 502 {
		t.Fatalf("status = %d; want 502", fe.Status)
	}
}

func TestSearchService_Search_TransportFailure(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	fc := &fakeCatalog{err: boom}
	svc := NewSearchService(nil, &fakeSearchRepo{}, fc, testPool(t), testSink(t))

	_, err := svc.Search(context.Background(), 1, "c", "q")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v; want *FetchError", err)
	}
	if fe.Status != 0 {
		t.Fatalf("status = %d; want 0 for transport failures", fe.Status)
	}
	if !errors.Is(err, boom) {
		t.Fatal("cause not preserved")
	}
}

func TestSearchService_Search_UnparseablePayload(t *testing.T) {
	fc := &fakeCatalog{body: []byte("<html>gateway timeout</html>")}
	fr := &fakeSearchRepo{}
	svc := NewSearchService(nil, fr, fc, testPool(t), testSink(t))

	_, err := svc.Search(context.Background(), 1, "c", "q")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v; want *ParseError", err)
	}
	if fr.created != nil {
		t.Fatal("nothing should be persisted after a parse failure")
	}
}

func TestSearchService_Search_UnknownUser(t *testing.T) {
	fr := &fakeSearchRepo{userErr: repo.ErrNotFound}
	fc := &fakeCatalog{body: []byte(catalogPayload)}
	svc := NewSearchService(nil, fr, fc, testPool(t), testSink(t))

	_, err := svc.Search(context.Background(), 99, "c", "q")
	var pe *PersistError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v; want *PersistError", err)
	}
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v; want wrapped ErrUserNotFound", err)
	}
}

func TestSearchService_Search_PersistFailure(t *testing.T) {
	boom := errors.New("database is locked")
	fr := &fakeSearchRepo{createErr: boom}
	fc := &fakeCatalog{body: []byte(catalogPayload)}
	svc := NewSearchService(nil, fr, fc, testPool(t), testSink(t))

	_, err := svc.Search(context.Background(), 1, "c", "q")
	var pe *PersistError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v; want *PersistError", err)
	}
	if !errors.Is(err, boom) {
		t.Fatal("cause not preserved")
	}
}

func TestSearchService_Search_ConcurrentInvocations(t *testing.T) {
	const n = 8
	p := pool.New(n)
	t.Cleanup(p.Close)

	fr := &concurrentSearchRepo{}
	svc := NewSearchService(nil, fr, echoCatalog{}, p, testSink(t))

	var wg sync.WaitGroup
	errs := make([]error, n)
	results := make([]domain.SearchResult, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Search(context.Background(),
				uint(i+1), fmt.Sprintf("city-%d", i), fmt.Sprintf("text-%d", i))
		}(i)
	}
	wg.Wait()

	// Every invocation completes, and each response carries only the items
	// produced for its own query.
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("search %d: %v", i, errs[i])
		}
		want := gis.EncodeQuery(fmt.Sprintf("city-%d", i), fmt.Sprintf("text-%d", i))
		if len(results[i].Items) != 1 || results[i].Items[0].ID != want {
			t.Fatalf("search %d got foreign items: %+v", i, results[i].Items)
		}
	}

	// Persisted records stay paired with their own inputs.
	if len(fr.records) != n {
		t.Fatalf("persisted %d records; want %d", len(fr.records), n)
	}
	for _, rec := range fr.records {
		want := gis.EncodeQuery(rec.City, rec.Query)
		if !strings.Contains(rec.ResultsJSON, fmt.Sprintf("%q", want)) {
			t.Fatalf("record for %s/%s stored foreign payload: %s", rec.City, rec.Query, rec.ResultsJSON)
		}
	}
}

func TestSearchService_Search_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewSearchService(nil, &fakeSearchRepo{}, &fakeCatalog{err: context.Canceled}, testPool(t), testSink(t))
	if _, err := svc.Search(ctx, 1, "c", "q"); err == nil {
		t.Fatal("expected an error for a canceled context")
	}
}
