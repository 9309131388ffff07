package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/f0rbit/timeline/apierr"
	"github.com/f0rbit/timeline/corpus"
	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/middleware"
	"github.com/f0rbit/timeline/storeid"
	"github.com/f0rbit/timeline/timeline"
)

// TimelineHandler serves the §6 GET /timeline/:user_id and
// GET /timeline/:user_id/raw/:platform endpoints.
type TimelineHandler struct {
	Accounts *db.AccountRepo
	Backend  corpus.Backend
	Log      zerolog.Logger
}

func NewTimelineHandler(accounts *db.AccountRepo, backend corpus.Backend, log zerolog.Logger) *TimelineHandler {
	return &TimelineHandler{Accounts: accounts, Backend: backend, Log: log.With().Str("component", "handler.timeline").Logger()}
}

// Get handles GET /api/v1/timeline/:user_id.
func (h *TimelineHandler) Get(w http.ResponseWriter, r *http.Request) {
	pathUser := chi.URLParam(r, "user_id")
	if middleware.UserID(r.Context()) != pathUser {
		apierr.Write(w, apierr.WrongOwner("Cannot access other user timelines"))
		return
	}

	codec := corpus.NewJSONCodec[timeline.Snapshot]()
	store := corpus.NewStore[timeline.Snapshot](storeid.Timeline(pathUser).String(), h.Backend, codec)
	snapshot, _, err := store.GetLatest(r.Context())
	if err != nil {
		if errors.Is(err, corpus.ErrNotFound) {
			apierr.Write(w, apierr.NotFound("timeline"))
			return
		}
		h.Log.Error().Err(err).Str("user_id", pathUser).Msg("load timeline")
		apierr.Write(w, apierr.Internal(err))
		return
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	snapshot.Groups = timeline.FilterByDateRange(snapshot.Groups, from, to)

	writeJSON(w, http.StatusOK, snapshot)
}

// GetRaw handles GET /api/v1/timeline/:user_id/raw/:platform?account_id=.
func (h *TimelineHandler) GetRaw(w http.ResponseWriter, r *http.Request) {
	pathUser := chi.URLParam(r, "user_id")
	platform := chi.URLParam(r, "platform")
	accountID := r.URL.Query().Get("account_id")

	if middleware.UserID(r.Context()) != pathUser {
		apierr.Write(w, apierr.WrongOwner("Cannot access other user timelines"))
		return
	}
	if accountID == "" {
		apierr.Write(w, apierr.MissingParam("account_id"))
		return
	}

	owner, err := h.Accounts.OwnerUserID(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			apierr.Write(w, apierr.NotFound("account"))
			return
		}
		apierr.Write(w, apierr.Internal(err))
		return
	}
	if owner != pathUser {
		apierr.Write(w, apierr.WrongOwner("Cannot access other user timelines"))
		return
	}

	id, err := rawStoreID(db.Platform(platform), accountID)
	if err != nil {
		apierr.Write(w, apierr.InvalidFormat(err.Error()))
		return
	}

	codec := corpus.NewJSONCodec[json.RawMessage]()
	store := corpus.NewStore[json.RawMessage](id, h.Backend, codec)
	data, meta, err := store.GetLatest(r.Context())
	if err != nil {
		if errors.Is(err, corpus.ErrNotFound) {
			apierr.Write(w, apierr.NotFound("raw data"))
			return
		}
		apierr.Write(w, apierr.Internal(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"platform":   platform,
		"account_id": accountID,
		"version":    meta.Version,
		"created_at": meta.CreatedAt,
		"data":       data,
	})
}

// rawStoreID resolves the store id backing a platform's "raw" read. The
// legacy unified raw form (bluesky/youtube/devpad) is read as-is; for
// github/reddit/twitter — which have no single combined store — this
// reads the account's meta shard, the closest single-object analog.
func rawStoreID(platform db.Platform, accountID string) (string, error) {
	switch platform {
	case db.PlatformBluesky, db.PlatformYouTube, db.PlatformDevpad:
		return storeid.Raw(string(platform), accountID).String(), nil
	case db.PlatformGitHub:
		return storeid.GitHubMeta(accountID).String(), nil
	case db.PlatformReddit:
		return storeid.Reddit(accountID, storeid.SubMeta).String(), nil
	case db.PlatformTwitter:
		return storeid.Twitter(accountID, storeid.SubMeta).String(), nil
	default:
		return "", errStr("unknown platform: " + string(platform))
	}
}

type errStr string

func (e errStr) Error() string { return string(e) }
