package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"founder-dashboard/domain"
	"founder-dashboard/storage"
)

const (
	cookieName      = "dashboard_session"
	cookieIDKey     = "id"
	ctxSession      = "dashboard.session"
	ctxSessionEnded = "dashboard.session.ended"
)

// sessionLocks serialises requests that share a session id.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	sl, ok := l.locks[id]
	if !ok {
		sl = &sessionLock{}
		l.locks[id] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

// sessionID returns the id carried by the signed session cookie, issuing a
// new one when the cookie is missing or unreadable.
func sessionID(c echo.Context) (string, error) {
	cs, err := session.Get(cookieName, c)
	if cs == nil {
		return "", err
	}
	if id, ok := cs.Values[cookieIDKey].(string); ok && id != "" {
		return id, nil
	}
	id := uuid.NewString()
	cs.Values[cookieIDKey] = id
	// MaxAge 0 keeps the cookie for the browser session only.
	cs.Options = &sessions.Options{Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode}
	if err := cs.Save(c.Request(), c.Response()); err != nil {
		return "", err
	}
	return id, nil
}

// forgetSessionID expires the session cookie so the next request starts over.
func forgetSessionID(c echo.Context) error {
	cs, err := session.Get(cookieName, c)
	if cs == nil {
		return err
	}
	delete(cs.Values, cookieIDKey)
	cs.Options = &sessions.Options{Path: "/", MaxAge: -1, HttpOnly: true, SameSite: http.SameSiteLaxMode}
	return cs.Save(c.Request(), c.Response())
}

func startSession(ctx context.Context, id string, tasks TaskStore, logger *log.Logger, now time.Time) *domain.Session {
	loaded, err := tasks.LoadTasks(ctx)
	sess := domain.NewSession(id, loaded, now)
	if err != nil {
		logger.WithError(err).Warn("load tasks failed; starting with an empty checklist")
		sess.AddFlash(domain.FlashWarning, msgTasksLoadFailed)
	}
	logger.WithFields(log.Fields{"session": id, "tasks": len(sess.Checklist.Tasks)}).Debug("session started")
	return sess
}

// sessionState loads the session for the request, exposes it to handlers and
// saves it once the handler returns.
func sessionState(store SessionStore, tasks TaskStore, logger *log.Logger, now func() time.Time) echo.MiddlewareFunc {
	locks := newSessionLocks()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := sessionID(c)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "session unavailable").SetInternal(err)
			}
			unlock := locks.lock(id)
			defer unlock()

			ctx := c.Request().Context()
			sess, err := store.LoadSession(ctx, id)
			if err != nil {
				if !errors.Is(err, storage.ErrSessionNotFound) {
					logger.WithError(err).WithField("session", id).Warn("load session failed; starting fresh")
				}
				sess = startSession(ctx, id, tasks, logger, now())
			}
			c.Set(ctxSession, sess)

			herr := next(c)

			if ended, _ := c.Get(ctxSessionEnded).(bool); ended {
				return herr
			}
			if err := store.SaveSession(context.WithoutCancel(ctx), sess); err != nil {
				logger.WithError(err).WithField("session", id).Error("save session failed")
			}
			return herr
		}
	}
}

func currentSession(c echo.Context) *domain.Session {
	sess, _ := c.Get(ctxSession).(*domain.Session)
	return sess
}
