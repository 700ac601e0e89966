// Search HTTP handlers.
//
// This file exposes REST endpoints for place search and search history:
//   - GET /search                  (run the search pipeline)
//   - GET /search/history          (full history for a user)
//   - GET /search/history/filter   (filtered history, optional batch path)
//   - GET /search/history/{id}     (single stored search)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate pipeline errors into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-search-backend/internal/domain"
	"github.com/tbourn/go-search-backend/internal/services"
	"github.com/tbourn/go-search-backend/internal/sysutil"
	"github.com/tbourn/go-search-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// SearchService runs the place-search pipeline end to end.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type SearchService interface {
	// Search encodes, fetches, parses, and persists one query for userID.
	Search(ctx context.Context, userID uint, city, text string) (domain.SearchResult, error)
}

// HistoryService reads stored searches.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type HistoryService interface {
	// History returns all searches for a user, newest first.
	History(ctx context.Context, userID uint) ([]services.SearchRecordView, error)
	// HistoryFiltered returns the user's searches restricted by the optional predicates.
	HistoryFiltered(ctx context.Context, userID uint, city, query string) ([]services.SearchRecordView, error)
	// HistoryBatch is the in-memory variant of HistoryFiltered.
	HistoryBatch(ctx context.Context, userID uint, city, query string) ([]services.SearchRecordView, error)
	// ByID returns a single stored search.
	ByID(ctx context.Context, id uint) (*services.SearchRecordView, error)
}

// UserService manages accounts.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type UserService interface {
	// Register creates a new account.
	Register(ctx context.Context, name, email, password string) (*domain.User, error)
	// Login verifies credentials and returns the matching user.
	Login(ctx context.Context, email, password string) (*domain.User, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for search, history, and users.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	searchSvc  SearchService
	historySvc HistoryService
	userSvc    UserService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(searchSvc SearchService, historySvc HistoryService, userSvc UserService) *Handlers {
	return &Handlers{searchSvc: searchSvc, historySvc: historySvc, userSvc: userSvc}
}

// queryUserID parses the mandatory user_id query parameter.
func queryUserID(c *gin.Context) (uint, bool) {
	id, err := utils.ParseUint(c.Query("user_id"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id must be a positive integer")
		return 0, false
	}
	return id, true
}

//
// Handlers
//

// Search runs the pipeline for one query.
//
// GET /search?user_id=1&city=Москва&text=кафе
//
// Responses:
//
//	200 domain.SearchResult
//	400 missing or malformed parameters
//	404 unknown user
//	503 catalog unreachable or non-OK
//	500 payload unparseable or storage failure
func (h *Handlers) Search(c *gin.Context) {
	userID, ok2 := queryUserID(c)
	if !ok2 {
		return
	}
	city := strings.TrimSpace(c.Query("city"))
	text := strings.TrimSpace(c.Query("text"))
	if city == "" || text == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "city and text are required")
		return
	}

	res, err := h.searchSvc.Search(c.Request.Context(), userID, city, text)
	if err != nil {
		failSearch(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// failSearch maps a pipeline error onto the HTTP taxonomy.
func failSearch(c *gin.Context, err error) {
	var fe *services.FetchError
	if errors.As(err, &fe) {
		fail(c, http.StatusServiceUnavailable, ErrCodeUpstreamUnavailable, "place catalog is unreachable")
		return
	}
	var pe *services.ParseError
	if errors.As(err, &pe) {
		fail(c, http.StatusInternalServerError, ErrCodeSearchFailed, "catalog answered with an unreadable payload")
		return
	}
	if errors.Is(err, services.ErrUserNotFound) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		return
	}
	fail(c, http.StatusInternalServerError, ErrCodeSearchFailed, err.Error())
}

// History lists every stored search for a user, newest first.
//
// GET /search/history?user_id=1
func (h *Handlers) History(c *gin.Context) {
	userID, ok2 := queryUserID(c)
	if !ok2 {
		return
	}

	views, err := h.historySvc.History(c.Request.Context(), userID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, views)
}

// HistoryFiltered lists stored searches restricted by optional city and
// query predicates. The batch flag routes the call through the in-memory
// evaluation path; output is identical either way.
//
// GET /search/history/filter?user_id=1&city=Москва&query=кафе&batch=true
func (h *Handlers) HistoryFiltered(c *gin.Context) {
	userID, ok2 := queryUserID(c)
	if !ok2 {
		return
	}
	city := c.Query("city")
	query := c.Query("query")

	var (
		views []services.SearchRecordView
		err   error
	)
	if sysutil.IsTruthy(c.Query("batch")) {
		views, err = h.historySvc.HistoryBatch(c.Request.Context(), userID, city, query)
	} else {
		views, err = h.historySvc.HistoryFiltered(c.Request.Context(), userID, city, query)
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, views)
}

// HistoryByID returns one stored search.
//
// GET /search/history/42
func (h *Handlers) HistoryByID(c *gin.Context) {
	id, err := utils.ParseUint(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a positive integer")
		return
	}

	view, err := h.historySvc.ByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrSearchNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "search record not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, view)
}
