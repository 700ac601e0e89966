// Package services – SearchService
//
// This file implements the SearchService, which runs the place-search
// pipeline: encode the query, fetch raw items from the upstream catalog,
// parse them into the domain shape, and persist the result as a history
// record. The whole invocation executes as a single task on a shared
// fixed-size worker pool, so the pool bounds how many searches run
// concurrently while each pipeline stays strictly sequential inside its
// task.
//
// Stage failures surface as typed errors (FetchError, ParseError,
// PersistError) so handlers can map them to HTTP results consistently.
// Pipeline progress is reported through the asynchronous log sink and
// never blocks a worker.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-search-backend/internal/domain"
	"github.com/tbourn/go-search-backend/internal/gis"
	"github.com/tbourn/go-search-backend/internal/logging"
	"github.com/tbourn/go-search-backend/internal/pool"
	"github.com/tbourn/go-search-backend/internal/repo"
)

// SearchRepo defines the repository contract required by SearchService.
type SearchRepo interface {
	// GetUser fetches a user by primary key.
	GetUser(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error)

	// CreateSearchRecord inserts a new search record.
	CreateSearchRecord(ctx context.Context, db *gorm.DB, rec *domain.SearchRecord) error
}

// Catalog is the upstream place provider consumed by SearchService.
type Catalog interface {
	// FetchItems performs the catalog request for an already-encoded query
	// and returns the raw response body.
	FetchItems(ctx context.Context, encodedQuery string) ([]byte, error)
}

// SearchService coordinates the search pipeline and its persistence.
type SearchService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the search repository used by this service.
	Repo SearchRepo
	// Catalog is the upstream place provider.
	Catalog Catalog
	// Pool bounds concurrent pipeline executions.
	Pool *pool.Pool
	// Log is the asynchronous sink for pipeline progress events.
	Log *logging.Sink
}

// NewSearchService constructs a SearchService.
func NewSearchService(db *gorm.DB, r SearchRepo, c Catalog, p *pool.Pool, sink *logging.Sink) *SearchService {
	return &SearchService{DB: db, Repo: r, Catalog: c, Pool: p, Log: sink}
}

// Search runs the full pipeline for one query on behalf of userID and
// returns the parsed result. The caller blocks until the pipeline
// finishes or ctx is done; the work itself runs on a pool worker.
func (s *SearchService) Search(ctx context.Context, userID uint, city, text string) (domain.SearchResult, error) {
	tr := otel.Tracer("services/SearchService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(
			attribute.Int("user.id", int(userID)),
			attribute.String("search.city", city),
		),
	)
	defer span.End()

	s.Log.Info("search accepted", map[string]any{
		"user_id": userID,
		"city":    city,
		"text":    text,
	})

	return pool.Run(ctx, s.Pool, func() (domain.SearchResult, error) {
		return s.pipeline(ctx, userID, city, text)
	})
}

// pipeline runs the four stages in order on the current goroutine.
func (s *SearchService) pipeline(ctx context.Context, userID uint, city, text string) (domain.SearchResult, error) {
	encoded := gis.EncodeQuery(city, text)
	s.Log.Debug("query encoded", map[string]any{
		"user_id": userID,
		"q":       encoded,
	})

	raw, err := s.Catalog.FetchItems(ctx, encoded)
	if err != nil {
		ferr := classifyFetch(err)
		s.Log.Error("catalog fetch failed", ferr, map[string]any{
			"user_id": userID,
			"city":    city,
		})
		return domain.SearchResult{}, ferr
	}
	s.Log.Debug("catalog response received", map[string]any{
		"user_id": userID,
		"bytes":   len(raw),
	})

	result, err := gis.MapResult(raw)
	if err != nil {
		perr := &ParseError{Err: err}
		s.Log.Error("catalog payload unparseable", perr, map[string]any{
			"user_id": userID,
		})
		return domain.SearchResult{}, perr
	}

	rec, err := s.persist(ctx, userID, city, text, result)
	if err != nil {
		s.Log.Error("search persist failed", err, map[string]any{
			"user_id": userID,
		})
		return domain.SearchResult{}, err
	}

	s.Log.Info("search completed", map[string]any{
		"user_id":   userID,
		"record_id": rec.ID,
		"items":     len(result.Items),
	})
	return result, nil
}

// persist verifies the owning user and stores the parsed result.
func (s *SearchService) persist(ctx context.Context, userID uint, city, text string, result domain.SearchResult) (*domain.SearchRecord, error) {
	if _, err := s.Repo.GetUser(ctx, s.DB, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, &PersistError{Err: fmt.Errorf("%w: id %d", ErrUserNotFound, userID)}
		}
		return nil, &PersistError{Err: err}
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, &PersistError{Err: err}
	}

	rec := &domain.SearchRecord{
		UserID:       userID,
		City:         city,
		Query:        text,
		ResultsJSON:  string(payload),
		ResultsCount: len(result.Items),
	}
	if err := s.Repo.CreateSearchRecord(ctx, s.DB, rec); err != nil {
		return nil, &PersistError{Err: err}
	}
	return rec, nil
}

// classifyFetch wraps an upstream failure in a FetchError, carrying the
// HTTP status when the catalog answered at all.
func classifyFetch(err error) *FetchError {
	var se *gis.StatusError
	if errors.As(err, &se) {
		return &FetchError{Status: se.Code, Err: err}
	}
	return &FetchError{Err: err}
}
