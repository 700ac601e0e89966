// Package services – HistoryService
//
// This file implements the HistoryService, which reads stored search
// records and shapes them into views for the HTTP layer. Two read paths
// exist: the sequential path pushes ordering and filtering into SQL, and
// the batch path loads the user's records once and evaluates the filter
// predicates in memory across a bounded set of goroutines. Both paths
// produce identical output for identical data.
//
// Stored payloads that no longer decode degrade to an empty result with
// a warning instead of failing the whole listing.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-search-backend/internal/domain"
	"github.com/tbourn/go-search-backend/internal/logging"
	"github.com/tbourn/go-search-backend/internal/repo"
)

// defaultBatchWorkers bounds in-memory predicate evaluation when no
// explicit worker count is configured.
const defaultBatchWorkers = 4

// HistoryRepo defines the repository contract required by HistoryService.
type HistoryRepo interface {
	// ListSearchRecords returns all records for a user, newest first.
	ListSearchRecords(ctx context.Context, db *gorm.DB, userID uint) ([]domain.SearchRecord, error)

	// ListSearchRecordsFiltered returns the user's records newest first,
	// restricted by the optional city and query predicates.
	ListSearchRecordsFiltered(ctx context.Context, db *gorm.DB, userID uint, city, query string) ([]domain.SearchRecord, error)

	// AllSearchRecords returns the user's records in insertion order.
	AllSearchRecords(ctx context.Context, db *gorm.DB, userID uint) ([]domain.SearchRecord, error)

	// GetSearchRecord fetches a single record by ID.
	GetSearchRecord(ctx context.Context, db *gorm.DB, id uint) (*domain.SearchRecord, error)
}

// SearchRecordView is the read model returned to the HTTP layer. It
// flattens the owning user and carries the decoded result payload.
type SearchRecordView struct {
	ID           uint                `json:"id"`
	UserID       uint                `json:"user_id"`
	UserName     string              `json:"user_name"`
	UserEmail    string              `json:"user_email"`
	City         string              `json:"city"`
	Query        string              `json:"query"`
	CreatedAt    time.Time           `json:"created_at"`
	Results      domain.SearchResult `json:"results"`
	ResultsCount int                 `json:"results_count"`
}

// HistoryService reads stored searches.
type HistoryService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the search-record repository used by this service.
	Repo HistoryRepo
	// Log is the asynchronous sink used for decode warnings.
	Log *logging.Sink

	// BatchWorkers bounds predicate evaluation in HistoryBatch.
	BatchWorkers int
}

// NewHistoryService constructs a HistoryService with a sane default for
// the batch worker count.
func NewHistoryService(db *gorm.DB, r HistoryRepo, sink *logging.Sink) *HistoryService {
	return &HistoryService{DB: db, Repo: r, Log: sink, BatchWorkers: defaultBatchWorkers}
}

// History returns all searches for a user, newest first.
func (s *HistoryService) History(ctx context.Context, userID uint) ([]SearchRecordView, error) {
	recs, err := s.Repo.ListSearchRecords(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	return s.views(recs), nil
}

// HistoryFiltered returns the user's searches newest first, restricted
// by the optional predicates: city is an exact match when non-empty,
// query a case-sensitive substring match when non-empty.
func (s *HistoryService) HistoryFiltered(ctx context.Context, userID uint, city, query string) ([]SearchRecordView, error) {
	recs, err := s.Repo.ListSearchRecordsFiltered(ctx, s.DB, userID, city, query)
	if err != nil {
		return nil, err
	}
	return s.views(recs), nil
}

// ByID returns a single stored search, or ErrSearchNotFound.
func (s *HistoryService) ByID(ctx context.Context, id uint) (*SearchRecordView, error) {
	rec, err := s.Repo.GetSearchRecord(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSearchNotFound
		}
		return nil, err
	}
	v := s.view(*rec)
	return &v, nil
}

// HistoryBatch is the in-memory variant of HistoryFiltered: it loads the
// user's records once, evaluates the predicates across a bounded set of
// goroutines, then sorts the survivors newest first. Output is identical
// to HistoryFiltered for the same data.
func (s *HistoryService) HistoryBatch(ctx context.Context, userID uint, city, query string) ([]SearchRecordView, error) {
	tr := otel.Tracer("services/HistoryService")
	ctx, span := tr.Start(ctx, "HistoryBatch",
		trace.WithAttributes(attribute.Int("user.id", int(userID))),
	)
	defer span.End()

	recs, err := s.Repo.AllSearchRecords(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}

	keep := make([]bool, len(recs))
	workers := s.BatchWorkers
	if workers < 1 {
		workers = defaultBatchWorkers
	}
	if workers > len(recs) {
		workers = len(recs)
	}

	if workers > 1 {
		var wg sync.WaitGroup
		idx := make(chan int)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range idx {
					keep[i] = matches(recs[i], city, query)
				}
			}()
		}
		for i := range recs {
			idx <- i
		}
		close(idx)
		wg.Wait()
	} else {
		for i := range recs {
			keep[i] = matches(recs[i], city, query)
		}
	}

	// recs is in insertion order, so a stable sort on the timestamp alone
	// reproduces the created_at DESC, id ASC listing order.
	filtered := make([]domain.SearchRecord, 0, len(recs))
	for i, ok := range keep {
		if ok {
			filtered = append(filtered, recs[i])
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	return s.views(filtered), nil
}

// matches applies the optional predicates to one record.
func matches(rec domain.SearchRecord, city, query string) bool {
	if city != "" && rec.City != city {
		return false
	}
	if query != "" && !strings.Contains(rec.Query, query) {
		return false
	}
	return true
}

func (s *HistoryService) views(recs []domain.SearchRecord) []SearchRecordView {
	out := make([]SearchRecordView, len(recs))
	for i, rec := range recs {
		out[i] = s.view(rec)
	}
	return out
}

// view decodes the stored payload. A corrupt payload degrades to an
// empty result while keeping the stored count, so one bad row cannot
// break a listing.
func (s *HistoryService) view(rec domain.SearchRecord) SearchRecordView {
	var result domain.SearchResult
	if err := json.Unmarshal([]byte(rec.ResultsJSON), &result); err != nil {
		s.Log.Warn("stored search payload unreadable", map[string]any{
			"record_id": rec.ID,
			"error":     err.Error(),
		})
		result = domain.EmptyResult()
	}
	if result.Items == nil {
		result.Items = []domain.Place{}
	}
	return SearchRecordView{
		ID:           rec.ID,
		UserID:       rec.UserID,
		UserName:     rec.User.Name,
		UserEmail:    rec.User.Email,
		City:         rec.City,
		Query:        rec.Query,
		CreatedAt:    rec.CreatedAt,
		Results:      result,
		ResultsCount: rec.ResultsCount,
	}
}
