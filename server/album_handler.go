package server

import (
	"errors"
	"net/http"
	"strings"

	"Melodix/core/feed"
	"Melodix/logger"
	"Melodix/model"
	"Melodix/repository"

	"github.com/gorilla/mux"
)

// AddAlbumHandler creates an album from a multipart form with name, desc,
// bgColour and an image file.
func (h *APIHandler) AddAlbumHandler(w http.ResponseWriter, r *http.Request) {
	if uerr := parseUpload(w, r, h.cfg.MaxUploadSize, uploadRule{field: "image", family: "image"}); uerr != nil {
		writeError(w, uerr.status, uerr.message, uerr.err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	name := strings.TrimSpace(r.FormValue("name"))
	desc := strings.TrimSpace(r.FormValue("desc"))
	bgColour := strings.TrimSpace(r.FormValue("bgColour"))
	if name == "" || desc == "" || bgColour == "" {
		writeError(w, http.StatusBadRequest, "Name, description and background color are required", nil)
		return
	}

	imageHeader := formFile(r, "image")
	if imageHeader == nil {
		writeError(w, http.StatusBadRequest, "Image file is required", nil)
		return
	}

	ctx := r.Context()
	imageURL, imageKey, err := h.storeFile(ctx, "albums", imageHeader)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error adding album", err)
		return
	}

	album := &model.Album{
		Name:     name,
		Desc:     desc,
		BgColour: bgColour,
		Image:    imageURL,
		ImageKey: imageKey,
	}
	if err := h.albums.Create(ctx, album); err != nil {
		h.removeObjects(ctx, imageKey)
		writeError(w, http.StatusInternalServerError, "Error adding album", err)
		return
	}

	logger.Info("album added", logger.String("id", album.ID), logger.String("name", album.Name))
	h.publish(feed.AlbumAdded, album.ID)
	writeOK(w, http.StatusCreated, "Album added successfully", envelope{"album": album})
}

// ListAlbumsHandler returns albums newest first.
func (h *APIHandler) ListAlbumsHandler(w http.ResponseWriter, r *http.Request) {
	albums, err := h.albums.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error listing albums", err)
		return
	}
	writeOK(w, http.StatusOK, "", envelope{"albums": albums})
}

// RemoveAlbumHandler deletes an album. Songs filed under it are kept.
func (h *APIHandler) RemoveAlbumHandler(w http.ResponseWriter, r *http.Request) {
	id := requestID(r)
	if id == "" {
		writeError(w, http.StatusBadRequest, "Album ID is required", nil)
		return
	}

	album, err := h.albums.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Album not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Error removing album", err)
		return
	}

	h.removeObjects(r.Context(), album.ImageKey)
	h.publish(feed.AlbumRemoved, album.ID)
	writeOK(w, http.StatusOK, "Album removed successfully", nil)
}

// AlbumSongsHandler returns an album with the songs filed under its name.
func (h *APIHandler) AlbumSongsHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	album, err := h.albums.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Album not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Error loading album", err)
		return
	}

	songs, err := h.songs.ListByAlbum(r.Context(), album.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error loading album", err)
		return
	}

	writeOK(w, http.StatusOK, "", envelope{"album": album, "songs": songs})
}
