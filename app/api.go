package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/logue-fm/logue/config"
	"github.com/logue-fm/logue/lib"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewAPI(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, svc *lib.Service) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	srv := &http.Server{Addr: addr, Handler: router(cfg, log, svc)}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go srv.ListenAndServe()
			return nil
		},
		OnStop: srv.Shutdown,
	})

	return srv
}

func router(cfg *config.Config, log *zap.Logger, svc *lib.Service) http.Handler {
	ctrl := &controller{log, svc}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		if creds := cfg.GetCreds(); len(creds) > 0 {
			r.Use(middleware.BasicAuth("logue", creds))
		} else {
			log.Sugar().Info("Auth is disabled since no credentials are defined")
		}

		r.Route("/users", func(r chi.Router) {
			r.Post("/", ctrl.onboardUser)
			r.Route("/{user_id}/subscriptions", func(r chi.Router) {
				r.Get("/", ctrl.listSubscriptions)
				r.Post("/", ctrl.subscribe)
				r.Delete("/{channel_id}", ctrl.unsubscribe)
			})
		})
		r.Get("/channels/{channel_id}/episodes", ctrl.listEpisodes)
	})

	return r
}

type controller struct {
	log *zap.Logger
	svc *lib.Service
}

func (ctrl *controller) reject(w http.ResponseWriter, status int, err error) {
	if err != nil {
		http.Error(w, err.Error(), status)
	} else {
		w.WriteHeader(status)
	}
}

func (ctrl *controller) resolve(w http.ResponseWriter, status int, body any) {
	if b, err := json.Marshal(body); err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		ctrl.log.Sugar().Errorw("Request failed", "err", err)
		return
	} else {
		w.WriteHeader(status)
		if b != nil {
			w.Write(b)
		}
	}
}

func (ctrl *controller) onboardUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := r.FormValue("email")
	password := r.FormValue("password")

	if email == "" {
		ctrl.reject(w, 400, errors.New("Email is required"))
		return
	}
	if password == "" {
		ctrl.reject(w, 400, errors.New("Password is required"))
		return
	}

	user, err := ctrl.svc.OnboardUser(ctx, email, password)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, user)
}

func (ctrl *controller) subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := ctrl.param(w, r, "user_id")
	if !ok {
		return
	}

	feedURL := r.FormValue("feed_url")
	if feedURL == "" {
		ctrl.reject(w, 400, errors.New("feed_url is required"))
		return
	}

	sub, err := ctrl.svc.SubscribeChannel(ctx, userID, feedURL)
	if errors.Is(err, lib.ErrNotPodcast) {
		ctrl.reject(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, sub)
}

func (ctrl *controller) unsubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := ctrl.param(w, r, "user_id")
	if !ok {
		return
	}
	channelID, ok := ctrl.param(w, r, "channel_id")
	if !ok {
		return
	}

	if err := ctrl.svc.Unsubscribe(ctx, userID, channelID); err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ctrl *controller) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := ctrl.param(w, r, "user_id")
	if !ok {
		return
	}

	subs, err := ctrl.svc.ListSubscriptions(ctx, userID)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, subs)
}

func (ctrl *controller) listEpisodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	channelID, ok := ctrl.param(w, r, "channel_id")
	if !ok {
		return
	}

	episodes, err := ctrl.svc.ListEpisodes(ctx, channelID)
	if err != nil {
		ctrl.reject(w, 500, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, episodes)
}

func (ctrl *controller) param(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		ctrl.reject(w, 400, fmt.Errorf("invalid %s: %q", name, raw))
		return 0, false
	}
	return uint(id), true
}
