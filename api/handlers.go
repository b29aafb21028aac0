package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"founder-dashboard/domain"
	"founder-dashboard/upstream"
)

const (
	msgTasksLoadFailed  = "⚠️ Could not load tasks from file"
	msgTasksSaveFailed  = "⚠️ Could not save tasks to file"
	msgTimerComplete    = "🎉 Timer complete! Great focus session!"
	msgWeatherStatus    = "❌ Could not fetch weather data. Please check the city name."
	msgWeatherError     = "❌ Error fetching weather: "
	msgQuoteStatus      = "❌ Could not fetch quote. Please try again."
	msgQuoteError       = "❌ Error fetching quote: "
	msgNotesSaved       = "✅ Notes saved!"
	msgNotesEmpty       = "⚠️ Please enter some notes before saving!"
	msgInvalidTimerSpan = "❌ Invalid timer duration: "
)

// Deps collects everything the dashboard handlers need.
type Deps struct {
	Tasks    TaskStore
	Sessions SessionStore
	Cookies  sessions.Store
	Weather  WeatherSource
	Quotes   QuoteSource
	Deduper  Deduper
	Logger   *log.Logger
	Now      func() time.Time
}

// Register wires up all dashboard routes on the provided Echo instance.
func Register(e *echo.Echo, d Deps) {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = log.StandardLogger()
	}
	e.Renderer = newTemplateRenderer()
	e.JSONSerializer = sonicSerializer{}
	e.StaticFS("/static", echo.MustSubFS(staticFS, "static"))
	e.GET("/healthz", healthz())

	g := e.Group("", session.Middleware(d.Cookies), sessionState(d.Sessions, d.Tasks, d.Logger, d.Now))
	g.GET("/", getDashboard(d.Weather, d.Logger, d.Now))
	g.POST("/profile", postProfile())
	g.POST("/weather", postWeather())
	g.POST("/timer/start", postTimerStart(d.Now))
	g.POST("/timer/stop", postTimerStop())
	g.GET("/api/timer", getTimer(d.Now))
	g.POST("/tasks", postTask(d.Tasks, d.Deduper, d.Logger))
	g.POST("/tasks/:id/toggle", postTaskToggle(d.Tasks, d.Logger))
	g.POST("/tasks/:id/delete", postTaskDelete(d.Tasks, d.Logger))
	g.POST("/quote", postQuote(d.Quotes, d.Logger))
	g.POST("/log", postLog())
	g.PUT("/api/log", putLog())
	g.POST("/session/end", postSessionEnd(d.Sessions, d.Logger))
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

// backToDashboard ends every form post; the browser then re-renders the page.
func backToDashboard(c echo.Context) error {
	return c.Redirect(http.StatusSeeOther, "/")
}

func getDashboard(weather WeatherSource, logger *log.Logger, now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		sess := currentSession(c)
		metrics := newRenderMetrics(logger)
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		view := newDashboardView(sess)

		reading := sess.Timer.Evaluate(now())
		if reading.Phase == domain.TimerExpired {
			sess.AddFlash(domain.FlashSuccess, msgTimerComplete)
			sess.Celebrate = true
		}
		view.Celebrate = sess.Celebrate
		sess.Celebrate = false
		view.Timer = newTimerView(sess.Timer, reading)
		metrics.SetTimerPhase(reading.Phase)

		if city := strings.TrimSpace(sess.City); city != "" {
			start := time.Now()
			report, werr := weather.Current(ctx, city)
			metrics.ObserveWeather(time.Since(start), werr)
			if werr != nil {
				view.WeatherError = weatherErrorMessage(werr)
			} else {
				view.Weather = newWeatherView(report)
			}
		}

		completed, total, _ := sess.Checklist.Stats()
		metrics.SetTasks(completed, total)
		view.Flashes = sess.TakeFlashes()
		view.FormToken = uuid.NewString()

		renderStart := time.Now()
		err = c.Render(http.StatusOK, dashboardTemplate, view)
		metrics.ObserveRender(time.Since(renderStart))
		if err != nil {
			metrics.SetErrorStage("render")
		}
		return err
	}
}

func weatherErrorMessage(err error) string {
	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		return msgWeatherStatus
	}
	return msgWeatherError + err.Error()
}

func postProfile() echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := currentSession(c)
		sess.Profile.Name = c.FormValue("name")
		sess.Profile.Status = domain.ParseStatus(c.FormValue("status"))
		return backToDashboard(c)
	}
}

func postWeather() echo.HandlerFunc {
	return func(c echo.Context) error {
		currentSession(c).City = strings.TrimSpace(c.FormValue("city"))
		return backToDashboard(c)
	}
}

// applyTimerMinutes stores the submitted slider value. An empty value keeps
// the current duration; an invalid one queues an error flash and reports false.
func applyTimerMinutes(c echo.Context, sess *domain.Session) bool {
	raw := strings.TrimSpace(c.FormValue("minutes"))
	if raw == "" {
		return true
	}
	minutes, err := strconv.Atoi(raw)
	if err == nil {
		err = sess.Timer.SetMinutes(minutes)
	}
	if err != nil {
		sess.AddFlash(domain.FlashError, msgInvalidTimerSpan+raw)
		return false
	}
	return true
}

func postTimerStart(now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := currentSession(c)
		if applyTimerMinutes(c, sess) {
			sess.Timer.Start(now())
		}
		return backToDashboard(c)
	}
}

func postTimerStop() echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := currentSession(c)
		applyTimerMinutes(c, sess)
		sess.Timer.Stop()
		return backToDashboard(c)
	}
}

type timerResponse struct {
	Phase            domain.TimerPhase `json:"phase"`
	Remaining        string            `json:"remaining,omitempty"`
	RemainingSeconds int               `json:"remainingSeconds"`
	Progress         float64           `json:"progress"`
	Minutes          int               `json:"minutes"`
	EndsAt           int64             `json:"endsAt,omitempty"`
}

// getTimer lets the page tick resynchronise with the server clock. Expiry
// observed here queues the completion message for the next render.
func getTimer(now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := currentSession(c)
		reading := sess.Timer.Evaluate(now())
		resp := timerResponse{Phase: reading.Phase, Minutes: sess.Timer.Minutes}
		switch reading.Phase {
		case domain.TimerRunning:
			resp.Remaining = reading.Clock()
			resp.RemainingSeconds = int(reading.Remaining / time.Second)
			resp.Progress = reading.Progress
			resp.EndsAt = reading.EndsAt.UnixMilli()
		case domain.TimerExpired:
			resp.Progress = 1
			sess.AddFlash(domain.FlashSuccess, msgTimerComplete)
			sess.Celebrate = true
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func persistTasks(c echo.Context, tasks TaskStore, logger *log.Logger, sess *domain.Session) {
	if err := tasks.SaveTasks(c.Request().Context(), sess.Checklist.Tasks); err != nil {
		logger.WithError(err).WithField("session", sess.ID).Warn("save tasks failed")
		sess.AddFlash(domain.FlashWarning, msgTasksSaveFailed)
	}
}

func postTask(tasks TaskStore, deduper Deduper, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := currentSession(c)
		if token := c.FormValue("token"); token != "" && deduper != nil {
			fresh, err := deduper.Add(c.Request().Context(), sess.ID, token)
			if err != nil {
				logger.WithError(err).Warn("form token check failed; accepting submission")
			} else if !fresh {
				logger.WithField("session", sess.ID).Debug("duplicate task submission ignored")
				return backToDashboard(c)
			}
		}
		if _, ok := sess.Checklist.Add(c.FormValue("text")); ok {
			persistTasks(c, tasks, logger, sess)
		}
		return backToDashboard(c)
	}
}

func taskIDParam(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid task id")
	}
	return id, nil
}

// postTaskToggle sets the completed flag to the submitted value, or flips it
// when no value is submitted.
func postTaskToggle(tasks TaskStore, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := taskIDParam(c)
		if err != nil {
			return err
		}
		sess := currentSession(c)
		var changed bool
		if raw := c.FormValue("completed"); raw != "" {
			completed, perr := strconv.ParseBool(raw)
			if perr != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid completed value")
			}
			changed = sess.Checklist.SetCompleted(id, completed)
		} else {
			changed = sess.Checklist.Toggle(id)
		}
		if changed {
			persistTasks(c, tasks, logger, sess)
		}
		return backToDashboard(c)
	}
}

func postTaskDelete(tasks TaskStore, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := taskIDParam(c)
		if err != nil {
			return err
		}
		sess := currentSession(c)
		if sess.Checklist.Delete(id) {
			persistTasks(c, tasks, logger, sess)
		}
		return backToDashboard(c)
	}
}

func postQuote(quotes QuoteSource, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := currentSession(c)
		q, err := quotes.Random(c.Request().Context())
		if err != nil {
			logger.WithError(err).Warn("quote fetch failed")
			var statusErr *upstream.StatusError
			if errors.As(err, &statusErr) {
				sess.AddFlash(domain.FlashError, msgQuoteStatus)
			} else {
				sess.AddFlash(domain.FlashError, msgQuoteError+err.Error())
			}
			return backToDashboard(c)
		}
		sess.Quote = &q
		return backToDashboard(c)
	}
}

func postLog() echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := currentSession(c)
		if c.FormValue("action") == "clear" {
			sess.Log = ""
			return backToDashboard(c)
		}
		sess.Log = c.FormValue("log")
		if strings.TrimSpace(sess.Log) == "" {
			sess.AddFlash(domain.FlashWarning, msgNotesEmpty)
		} else {
			sess.AddFlash(domain.FlashSuccess, msgNotesSaved)
		}
		return backToDashboard(c)
	}
}

type logPayload struct {
	Log string `json:"log" form:"log"`
}

// putLog mirrors the log textarea while the user types.
func putLog() echo.HandlerFunc {
	return func(c echo.Context) error {
		var body logPayload
		if err := c.Bind(&body); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		currentSession(c).Log = body.Log
		return c.NoContent(http.StatusNoContent)
	}
}

func postSessionEnd(store SessionStore, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := currentSession(c)
		if err := store.DeleteSession(c.Request().Context(), sess.ID); err != nil {
			logger.WithError(err).WithField("session", sess.ID).Warn("delete session failed")
		}
		c.Set(ctxSessionEnded, true)
		if err := forgetSessionID(c); err != nil {
			logger.WithError(err).Warn("expire session cookie failed")
		}
		return backToDashboard(c)
	}
}
