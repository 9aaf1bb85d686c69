package cache

import (
	"context"

	"Melodix/logger"
	"Melodix/model"
	"Melodix/repository"
)

// cachedSongRepository serves List and Search from the catalog cache and
// invalidates it on every mutation. Cache errors never fail a call.
type cachedSongRepository struct {
	repository.SongRepository
	cache *CatalogCache
}

// NewCachedSongRepository decorates repo with cache.
func NewCachedSongRepository(repo repository.SongRepository, cache *CatalogCache) repository.SongRepository {
	if !cache.enabled() {
		return repo
	}
	return &cachedSongRepository{SongRepository: repo, cache: cache}
}

func (r *cachedSongRepository) List(ctx context.Context) ([]*model.Song, error) {
	key := SongListKey()
	if songs, ok := r.cache.GetSongs(ctx, key); ok {
		return songs, nil
	}

	songs, err := r.SongRepository.List(ctx)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, songs)
	return songs, nil
}

func (r *cachedSongRepository) Search(ctx context.Context, query string, limit int) ([]*model.Song, error) {
	key := SearchKey(query, limit)
	if songs, ok := r.cache.GetSongs(ctx, key); ok {
		return songs, nil
	}

	songs, err := r.SongRepository.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, songs)
	return songs, nil
}

func (r *cachedSongRepository) Create(ctx context.Context, song *model.Song) error {
	if err := r.SongRepository.Create(ctx, song); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *cachedSongRepository) Delete(ctx context.Context, id string) (*model.Song, error) {
	removed, err := r.SongRepository.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx)
	return removed, nil
}

func (r *cachedSongRepository) store(ctx context.Context, key string, songs []*model.Song) {
	if err := r.cache.SetSongs(ctx, key, songs); err != nil {
		logger.Warn("catalog cache write failed", logger.String("key", key), logger.ErrorField(err))
	}
}

func (r *cachedSongRepository) invalidate(ctx context.Context) {
	if _, err := r.cache.Invalidate(ctx); err != nil {
		logger.Warn("catalog cache invalidation failed", logger.ErrorField(err))
	}
}
