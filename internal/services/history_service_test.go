package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-search-backend/internal/domain"
	"github.com/tbourn/go-search-backend/internal/repo"
)

// ----- Fake repo -----

// fakeHistoryRepo serves canned records. all holds insertion order; the
// list methods reproduce the SQL ordering and filtering on top of it.
type fakeHistoryRepo struct {
	all     []domain.SearchRecord
	listErr error
}

func (r *fakeHistoryRepo) sorted(recs []domain.SearchRecord) []domain.SearchRecord {
	out := append([]domain.SearchRecord(nil), recs...)
	// Insertion order in, so a stable pass on the timestamp matches
	// created_at DESC, id ASC.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAt.After(out[j-1].CreatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func (r *fakeHistoryRepo) ListSearchRecords(ctx context.Context, db *gorm.DB, userID uint) ([]domain.SearchRecord, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.sorted(r.all), nil
}

func (r *fakeHistoryRepo) ListSearchRecordsFiltered(ctx context.Context, db *gorm.DB, userID uint, city, query string) ([]domain.SearchRecord, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var kept []domain.SearchRecord
	for _, rec := range r.all {
		if matches(rec, city, query) {
			kept = append(kept, rec)
		}
	}
	return r.sorted(kept), nil
}

func (r *fakeHistoryRepo) AllSearchRecords(ctx context.Context, db *gorm.DB, userID uint) ([]domain.SearchRecord, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return append([]domain.SearchRecord(nil), r.all...), nil
}

func (r *fakeHistoryRepo) GetSearchRecord(ctx context.Context, db *gorm.DB, id uint) (*domain.SearchRecord, error) {
	for _, rec := range r.all {
		if rec.ID == id {
			out := rec
			return &out, nil
		}
	}
	return nil, repo.ErrNotFound
}

func historyFixture() *fakeHistoryRepo {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	owner := domain.User{ID: 3, Name: "Boris", Email: "boris@example.com"}
	return &fakeHistoryRepo{all: []domain.SearchRecord{
		{
			ID: 1, UserID: 3, User: owner, City: "Москва", Query: "кафе",
			CreatedAt:   base,
			// Stored form: the pipeline marshals domain.SearchResult, so the
			// place field is "address", not the provider's "address_name".
			ResultsJSON: `{"items":[{"id":"a","name":"Кафе","address":"Арбат, 1"}]}`, ResultsCount: 1,
		},
		{
			ID: 2, UserID: 3, User: owner, City: "Казань", Query: "кафе у вокзала",
			CreatedAt:   base, // tied with record 1
			ResultsJSON: `{"items":[]}`, ResultsCount: 0,
		},
		{
			ID: 3, UserID: 3, User: owner, City: "Москва", Query: "ресторан",
			CreatedAt:   base.Add(time.Minute),
			ResultsJSON: `{"items":[]}`, ResultsCount: 0,
		},
	}}
}

func viewIDs(views []SearchRecordView) []uint {
	out := make([]uint, len(views))
	for i, v := range views {
		out[i] = v.ID
	}
	return out
}

func sameIDs(a []uint, b ...uint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ----- Tests -----

func TestHistoryService_History(t *testing.T) {
	svc := NewHistoryService(nil, historyFixture(), testSink(t))

	got, err := svc.History(context.Background(), 3)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if !sameIDs(viewIDs(got), 3, 1, 2) {
		t.Fatalf("order = %v; want [3 1 2]", viewIDs(got))
	}

	v := got[1]
	if v.UserName != "Boris" || v.UserEmail != "boris@example.com" {
		t.Fatalf("owner not flattened: %+v", v)
	}
	if len(v.Results.Items) != 1 || v.Results.Items[0].Address != "Арбат, 1" {
		t.Fatalf("results = %+v", v.Results)
	}
	if v.ResultsCount != 1 {
		t.Fatalf("results_count = %d; want 1", v.ResultsCount)
	}
}

func TestHistoryService_History_EmptyResultsNeverNil(t *testing.T) {
	svc := NewHistoryService(nil, historyFixture(), testSink(t))

	got, err := svc.History(context.Background(), 3)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	for _, v := range got {
		if v.Results.Items == nil {
			t.Fatalf("record %d: items is nil", v.ID)
		}
	}
}

func TestHistoryService_History_CorruptPayloadDegrades(t *testing.T) {
	fr := historyFixture()
	fr.all[0].ResultsJSON = `{"items":[{`
	svc := NewHistoryService(nil, fr, testSink(t))

	got, err := svc.History(context.Background(), 3)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	for _, v := range got {
		if v.ID != 1 {
			continue
		}
		if len(v.Results.Items) != 0 {
			t.Fatalf("corrupt payload should decode to empty, got %+v", v.Results)
		}
		// Count reflects what was stored at search time.
		if v.ResultsCount != 1 {
			t.Fatalf("results_count = %d; want the stored 1", v.ResultsCount)
		}
	}
}

func TestHistoryService_HistoryFiltered(t *testing.T) {
	svc := NewHistoryService(nil, historyFixture(), testSink(t))
	ctx := context.Background()

	got, err := svc.HistoryFiltered(ctx, 3, "Москва", "")
	if err != nil {
		t.Fatalf("city filter: %v", err)
	}
	if !sameIDs(viewIDs(got), 3, 1) {
		t.Fatalf("city filter = %v; want [3 1]", viewIDs(got))
	}

	got, err = svc.HistoryFiltered(ctx, 3, "", "кафе")
	if err != nil {
		t.Fatalf("query filter: %v", err)
	}
	if !sameIDs(viewIDs(got), 1, 2) {
		t.Fatalf("query filter = %v; want [1 2]", viewIDs(got))
	}
}

func TestHistoryService_ByID(t *testing.T) {
	svc := NewHistoryService(nil, historyFixture(), testSink(t))

	v, err := svc.ByID(context.Background(), 2)
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if v.City != "Казань" || v.Query != "кафе у вокзала" {
		t.Fatalf("view = %+v", v)
	}

	if _, err := svc.ByID(context.Background(), 999); !errors.Is(err, ErrSearchNotFound) {
		t.Fatalf("err = %v; want ErrSearchNotFound", err)
	}
}

func TestHistoryService_HistoryBatch_MatchesSequentialPath(t *testing.T) {
	fr := historyFixture()
	svc := NewHistoryService(nil, fr, testSink(t))
	ctx := context.Background()

	cases := []struct{ city, query string }{
		{"", ""},
		{"Москва", ""},
		{"", "кафе"},
		{"Казань", "вокзал"},
		{"Новосибирск", ""},
	}
	for _, c := range cases {
		seq, err := svc.HistoryFiltered(ctx, 3, c.city, c.query)
		if err != nil {
			t.Fatalf("HistoryFiltered(%q,%q): %v", c.city, c.query, err)
		}
		batch, err := svc.HistoryBatch(ctx, 3, c.city, c.query)
		if err != nil {
			t.Fatalf("HistoryBatch(%q,%q): %v", c.city, c.query, err)
		}
		if !sameIDs(viewIDs(seq), viewIDs(batch)...) {
			t.Errorf("filter (%q,%q): sequential %v != batch %v", c.city, c.query, viewIDs(seq), viewIDs(batch))
		}
	}
}

func TestHistoryService_HistoryBatch_StableTies(t *testing.T) {
	svc := NewHistoryService(nil, historyFixture(), testSink(t))
	svc.BatchWorkers = 8

	got, err := svc.HistoryBatch(context.Background(), 3, "", "")
	if err != nil {
		t.Fatalf("HistoryBatch: %v", err)
	}
	// Records 1 and 2 share a timestamp; insertion order must hold.
	if !sameIDs(viewIDs(got), 3, 1, 2) {
		t.Fatalf("order = %v; want [3 1 2]", viewIDs(got))
	}
}

func TestHistoryService_HistoryBatch_RepoErrorPropagates(t *testing.T) {
	boom := errors.New("disk error")
	svc := NewHistoryService(nil, &fakeHistoryRepo{listErr: boom}, testSink(t))

	if _, err := svc.HistoryBatch(context.Background(), 3, "", ""); !errors.Is(err, boom) {
		t.Fatalf("err = %v; want %v", err, boom)
	}
}
