package server

import (
	"net/http"

	"Melodix/config"
	"Melodix/core/audio"
	"Melodix/core/auth"
	"Melodix/core/feed"
	"Melodix/repository"
	"Melodix/storage"

	"github.com/gorilla/mux"
)

// APIHandler serves the catalog API.
type APIHandler struct {
	songs  repository.SongRepository
	albums repository.AlbumRepository
	store  storage.ObjectStore
	probe  audio.Processor
	tokens *auth.TokenIssuer
	hub    *feed.Hub
	cfg    *config.Config
}

// NewAPIHandler wires the handler dependencies.
func NewAPIHandler(
	songs repository.SongRepository,
	albums repository.AlbumRepository,
	store storage.ObjectStore,
	probe audio.Processor,
	hub *feed.Hub,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		songs:  songs,
		albums: albums,
		store:  store,
		probe:  probe,
		tokens: auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		hub:    hub,
		cfg:    cfg,
	}
}

// Router builds the route table.
func (h *APIHandler) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware, logMiddleware)

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/song/add", h.AuthMiddleware(h.AddSongHandler)).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/song/list", h.ListSongsHandler).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/song/remove", h.AuthMiddleware(h.RemoveSongHandler)).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/song/search/{query}", h.SearchSongsHandler).Methods(http.MethodGet, http.MethodOptions)

	api.HandleFunc("/album/add", h.AuthMiddleware(h.AddAlbumHandler)).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/album/list", h.ListAlbumsHandler).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/album/remove", h.AuthMiddleware(h.RemoveAlbumHandler)).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/album/{id}/songs", h.AlbumSongsHandler).Methods(http.MethodGet, http.MethodOptions)

	api.HandleFunc("/auth/login", h.LoginHandler).Methods(http.MethodPost, http.MethodOptions)

	if h.hub != nil {
		api.Handle("/feed", h.hub).Methods(http.MethodGet)
	}

	router.PathPrefix("/media/").HandlerFunc(h.MediaHandler).Methods(http.MethodGet, http.MethodHead)

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("API Working"))
	}).Methods(http.MethodGet)

	return router
}

// publish announces a change on the feed, when one is attached.
func (h *APIHandler) publish(t feed.EventType, id string) {
	if h.hub != nil {
		h.hub.Publish(feed.Event{Type: t, ID: id})
	}
}
