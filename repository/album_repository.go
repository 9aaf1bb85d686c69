package repository

import (
	"context"
	"errors"
	"fmt"

	"Melodix/model"

	"gorm.io/gorm"
)

// AlbumRepository defines the album persistence operations.
type AlbumRepository interface {
	Create(ctx context.Context, album *model.Album) error
	GetByID(ctx context.Context, id string) (*model.Album, error)
	// List returns all albums, newest first.
	List(ctx context.Context) ([]*model.Album, error)
	Delete(ctx context.Context, id string) (*model.Album, error)
}

type gormAlbumRepository struct {
	db *gorm.DB
}

// NewGormAlbumRepository creates a GORM backed album repository.
func NewGormAlbumRepository(db *gorm.DB) AlbumRepository {
	return &gormAlbumRepository{db: db}
}

func (r *gormAlbumRepository) Create(ctx context.Context, album *model.Album) error {
	if err := r.db.WithContext(ctx).Create(album).Error; err != nil {
		return fmt.Errorf("create album %q: %w", album.Name, err)
	}
	return nil
}

func (r *gormAlbumRepository) GetByID(ctx context.Context, id string) (*model.Album, error) {
	var album model.Album
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&album).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get album %s: %w", id, err)
	}
	return &album, nil
}

func (r *gormAlbumRepository) List(ctx context.Context) ([]*model.Album, error) {
	albums := make([]*model.Album, 0)
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&albums).Error
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	return albums, nil
}

func (r *gormAlbumRepository) Delete(ctx context.Context, id string) (*model.Album, error) {
	var removed *model.Album
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var album model.Album
		if err := tx.Where("id = ?", id).First(&album).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Album{}, "id = ?", id).Error; err != nil {
			return err
		}
		removed = &album
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delete album %s: %w", id, err)
	}
	return removed, nil
}
