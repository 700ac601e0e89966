// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for SearchRecord.
//
// Records are append-only: there is no update or delete path. Listings are
// newest-first with ties resolved by insertion order (created_at DESC,
// id ASC), which keeps ordering stable and identical across the sequential
// and batch read paths.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-search-backend/internal/domain"
)

// CreateSearchRecord inserts a new search record. CreatedAt is assigned here,
// exactly once, and is never touched again.
func CreateSearchRecord(ctx context.Context, db *gorm.DB, rec *domain.SearchRecord) error {
	rec.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(rec).Error
}

// ListSearchRecords returns all records for userID, newest first, with the
// owning user eagerly loaded. Returns an empty slice when the user has no
// history.
func ListSearchRecords(ctx context.Context, db *gorm.DB, userID uint) ([]domain.SearchRecord, error) {
	var out []domain.SearchRecord
	err := db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Order("created_at DESC, id ASC").
		Find(&out).Error
	return out, err
}

// ListSearchRecordsFiltered returns the user's records newest first,
// restricted by the optional predicates: city is an exact match when
// non-empty, query a substring match on the stored query text when
// non-empty. Empty values impose no restriction.
func ListSearchRecordsFiltered(ctx context.Context, db *gorm.DB, userID uint, city, query string) ([]domain.SearchRecord, error) {
	q := db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID)
	if city != "" {
		q = q.Where("city = ?", city)
	}
	if query != "" {
		q = q.Where("query LIKE ?", "%"+query+"%")
	}

	var out []domain.SearchRecord
	err := q.Order("created_at DESC, id ASC").Find(&out).Error
	return out, err
}

// AllSearchRecords returns the user's records in insertion order (id ASC)
// with the owning user eagerly loaded. Used by the batch read path, which
// filters and sorts in memory.
func AllSearchRecords(ctx context.Context, db *gorm.DB, userID uint) ([]domain.SearchRecord, error) {
	var out []domain.SearchRecord
	err := db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// GetSearchRecord fetches a single record by ID with its owning user, or
// ErrNotFound if missing.
func GetSearchRecord(ctx context.Context, db *gorm.DB, id uint) (*domain.SearchRecord, error) {
	var rec domain.SearchRecord
	err := db.WithContext(ctx).
		Preload("User").
		First(&rec, id).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
