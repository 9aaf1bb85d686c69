package server

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"Melodix/core/feed"
	"Melodix/logger"
	"Melodix/model"
	"Melodix/repository"
	"Melodix/storage"

	"github.com/gorilla/mux"
)

// AddSongHandler handles song uploads.
// Expected multipart form fields:
// - name, desc, album: text
// - audio: the audio file
// - image: the cover art
func (h *APIHandler) AddSongHandler(w http.ResponseWriter, r *http.Request) {
	if uerr := parseUpload(w, r, h.cfg.MaxUploadSize,
		uploadRule{field: "audio", family: "audio"},
		uploadRule{field: "image", family: "image"},
	); uerr != nil {
		writeError(w, uerr.status, uerr.message, uerr.err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	name := strings.TrimSpace(r.FormValue("name"))
	desc := strings.TrimSpace(r.FormValue("desc"))
	album := strings.TrimSpace(r.FormValue("album"))
	if name == "" || desc == "" || album == "" {
		writeError(w, http.StatusBadRequest, "Name, description and album are required", nil)
		return
	}

	audioHeader := formFile(r, "audio")
	imageHeader := formFile(r, "image")
	if audioHeader == nil || imageHeader == nil {
		writeError(w, http.StatusBadRequest, "Both audio and image files are required", nil)
		return
	}

	ctx := r.Context()

	audioURL, audioKey, seconds, err := h.storeAudio(ctx, audioHeader)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error adding song", err)
		return
	}
	imageURL, imageKey, err := h.storeFile(ctx, "images", imageHeader)
	if err != nil {
		h.removeObjects(ctx, audioKey)
		writeError(w, http.StatusInternalServerError, "Error adding song", err)
		return
	}

	song := &model.Song{
		Name:     name,
		Desc:     desc,
		Album:    album,
		Image:    imageURL,
		File:     audioURL,
		URL:      audioURL,
		Duration: model.FormatDuration(seconds),
		AudioKey: audioKey,
		ImageKey: imageKey,
	}
	if err := h.songs.Create(ctx, song); err != nil {
		h.removeObjects(ctx, audioKey, imageKey)
		writeError(w, http.StatusInternalServerError, "Error adding song", err)
		return
	}

	by, _ := UsernameFromContext(ctx)
	logger.Info("song added",
		logger.String("id", song.ID),
		logger.String("name", song.Name),
		logger.String("duration", song.Duration),
		logger.String("by", by))

	h.publish(feed.SongAdded, song.ID)
	writeOK(w, http.StatusCreated, "Song added successfully", envelope{"song": song})
}

// storeAudio measures and uploads the audio part. An undecodable file is
// still stored; its duration is recorded as zero.
func (h *APIHandler) storeAudio(ctx context.Context, fh *multipart.FileHeader) (url, key string, seconds float64, err error) {
	if h.probe != nil {
		f, err := fh.Open()
		if err != nil {
			return "", "", 0, err
		}
		seconds, err = h.probe.Duration(f, fh.Filename, fh.Header.Get("Content-Type"))
		f.Close()
		if err != nil {
			logger.Warn("could not measure audio duration",
				logger.String("file", fh.Filename),
				logger.ErrorField(err))
			seconds = 0
		}
	}

	url, key, err = h.storeFile(ctx, "audio", fh)
	return url, key, seconds, err
}

func (h *APIHandler) storeFile(ctx context.Context, prefix string, fh *multipart.FileHeader) (url, key string, err error) {
	f, err := fh.Open()
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	key = storage.NewObjectKey(prefix, fh.Filename)
	url, err = h.store.Put(ctx, key, f, fh.Size, contentTypeOf(fh))
	if err != nil {
		return "", "", err
	}
	return url, key, nil
}

// removeObjects deletes stored files best effort.
func (h *APIHandler) removeObjects(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := h.store.Delete(ctx, key); err != nil {
			logger.Warn("failed to delete stored object", logger.String("key", key), logger.ErrorField(err))
		}
	}
}

// ListSongsHandler returns every song in playlist order.
func (h *APIHandler) ListSongsHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.songs.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error listing songs", err)
		return
	}
	logger.Debug("songs listed", logger.Int("count", len(songs)))
	writeOK(w, http.StatusOK, "", envelope{"songs": songs})
}

// RemoveSongHandler deletes a song and its stored files.
func (h *APIHandler) RemoveSongHandler(w http.ResponseWriter, r *http.Request) {
	id := requestID(r)
	if id == "" {
		writeError(w, http.StatusBadRequest, "Song ID is required", nil)
		return
	}

	song, err := h.songs.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Song not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Error removing song", err)
		return
	}

	h.removeObjects(r.Context(), song.AudioKey, song.ImageKey)
	h.publish(feed.SongRemoved, song.ID)
	writeOK(w, http.StatusOK, "Song removed successfully", nil)
}

// SearchSongsHandler matches the path query against song names and
// descriptions.
func (h *APIHandler) SearchSongsHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(mux.Vars(r)["query"])
	if query == "" {
		writeError(w, http.StatusBadRequest, "Search query is required", nil)
		return
	}

	songs, err := h.songs.Search(r.Context(), query, h.cfg.SearchLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error searching songs", err)
		return
	}
	logger.Debug("songs searched", logger.String("query", query), logger.Int("count", len(songs)))
	writeOK(w, http.StatusOK, "", envelope{"songs": songs})
}

// requestID reads "id" from a JSON body or from form values.
func requestID(r *http.Request) string {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return ""
		}
		return strings.TrimSpace(body.ID)
	}
	return strings.TrimSpace(r.FormValue("id"))
}
