// Package domain defines the persistence models for users and search records,
// along with the value types exchanged with the external catalog provider.
// Persistence models are mapped with GORM and form the core data layer of the
// place-search application.
package domain

import (
	"time"
)

// User represents a registered account. The search side of the application
// only references users by id; account lifecycle (registration, login) is
// handled by the user endpoints.
//
// Fields:
//   - ID: autoincrement primary key.
//   - Name: display name shown in history views.
//   - Email: unique login identifier.
//   - Password: salted SHA-256 digest, base64-encoded. Never the plain text.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID        uint      `json:"id"       gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name"     gorm:"type:varchar(255);not null"`
	Email     string    `json:"email"    gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	Password  string    `json:"-"        gorm:"type:varchar(64);not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// SearchRecord is the durable trace of one successful search: who searched,
// where, for what, when, and what came back. Records are written exactly once
// by the search pipeline and are never updated or deleted afterwards.
//
// Fields:
//   - ID: autoincrement primary key (identity).
//   - UserID: owning user; indexed for history retrieval.
//   - City / Query: the search input as submitted.
//   - CreatedAt: assigned once at construction; indexed for newest-first reads.
//   - ResultsJSON: the SearchResult serialized as a JSON document.
//   - ResultsCount: item count at write time, denormalized so listings do not
//     need to deserialize ResultsJSON.
//   - User: FK association used by the read side to embed owner fields.
type SearchRecord struct {
	ID           uint      `json:"id"            gorm:"primaryKey;autoIncrement"`
	UserID       uint      `json:"user_id"       gorm:"not null;index:idx_search_user"`
	City         string    `json:"city"          gorm:"type:varchar(255);not null;index:idx_search_city"`
	Query        string    `json:"query"         gorm:"type:varchar(255);not null;index:idx_search_query"`
	CreatedAt    time.Time `json:"created_at"    gorm:"index:idx_search_created"`
	ResultsJSON  string    `json:"-"             gorm:"column:results_json;type:text"`
	ResultsCount int       `json:"results_count" gorm:"not null"`

	// User is the owning account. Records reference the user, they do not
	// own it: deleting history must never cascade into accounts.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for SearchRecord.
func (SearchRecord) TableName() string { return "search_results" }

// Place is one hit returned by the catalog provider. Immutable value;
// provider order is preserved wherever places travel as a list.
type Place struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// SearchResult is the ordered set of places produced by one search. It is
// both the pipeline's success value and the payload serialized into
// SearchRecord.ResultsJSON.
type SearchResult struct {
	Items []Place `json:"items"`
}

// EmptyResult returns a SearchResult with a non-nil, empty item list, so the
// JSON form is always {"items":[]} rather than {"items":null}.
func EmptyResult() SearchResult {
	return SearchResult{Items: []Place{}}
}
