package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Melodix/db"
	"Melodix/model"

	"gorm.io/gorm"
)

// SongRepository defines the song persistence operations.
type SongRepository interface {
	Create(ctx context.Context, song *model.Song) error
	GetByID(ctx context.Context, id string) (*model.Song, error)
	// List returns every song in insertion order, which is the playlist order.
	List(ctx context.Context) ([]*model.Song, error)
	// ListByAlbum returns the songs filed under an album name.
	ListByAlbum(ctx context.Context, album string) ([]*model.Song, error)
	// Search matches query case-insensitively against name and description,
	// newest first.
	Search(ctx context.Context, query string, limit int) ([]*model.Song, error)
	// Delete removes a song and returns the removed row.
	Delete(ctx context.Context, id string) (*model.Song, error)
}

type gormSongRepository struct {
	db *gorm.DB
}

// NewGormSongRepository creates a GORM backed song repository.
func NewGormSongRepository(db *gorm.DB) SongRepository {
	return &gormSongRepository{db: db}
}

func (r *gormSongRepository) Create(ctx context.Context, song *model.Song) error {
	if err := r.db.WithContext(ctx).Create(song).Error; err != nil {
		if db.IsDuplicateKey(err) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("create song %q: %w", song.Name, ErrDuplicate)
		}
		return fmt.Errorf("create song %q: %w", song.Name, err)
	}
	return nil
}

func (r *gormSongRepository) GetByID(ctx context.Context, id string) (*model.Song, error) {
	var song model.Song
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&song).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get song %s: %w", id, err)
	}
	song.EnsureURL()
	return &song, nil
}

func (r *gormSongRepository) List(ctx context.Context) ([]*model.Song, error) {
	songs := make([]*model.Song, 0)
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Find(&songs).Error
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	for _, s := range songs {
		s.EnsureURL()
	}
	return songs, nil
}

func (r *gormSongRepository) ListByAlbum(ctx context.Context, album string) ([]*model.Song, error) {
	songs := make([]*model.Song, 0)
	err := r.db.WithContext(ctx).
		Where("album = ?", album).
		Order("created_at ASC").
		Find(&songs).Error
	if err != nil {
		return nil, fmt.Errorf("list songs of album %q: %w", album, err)
	}
	for _, s := range songs {
		s.EnsureURL()
	}
	return songs, nil
}

func (r *gormSongRepository) Search(ctx context.Context, query string, limit int) ([]*model.Song, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"

	songs := make([]*model.Song, 0)
	err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!'", pattern, pattern).
		Order("created_at DESC").
		Limit(limit).
		Find(&songs).Error
	if err != nil {
		return nil, fmt.Errorf("search songs %q: %w", query, err)
	}
	for _, s := range songs {
		s.EnsureURL()
	}
	return songs, nil
}

func (r *gormSongRepository) Delete(ctx context.Context, id string) (*model.Song, error) {
	var removed *model.Song
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var song model.Song
		if err := tx.Where("id = ?", id).First(&song).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Song{}, "id = ?", id).Error; err != nil {
			return err
		}
		removed = &song
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delete song %s: %w", id, err)
	}
	return removed, nil
}

// escapeLike neutralizes LIKE wildcards so the query matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}
