package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"founder-dashboard/domain"
	"founder-dashboard/storage"
	"founder-dashboard/upstream"
)

type memTaskStore struct {
	mu      sync.Mutex
	tasks   []domain.Task
	saves   int
	loadErr error
	saveErr error
}

func (m *memTaskStore) LoadTasks(context.Context) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return []domain.Task{}, m.loadErr
	}
	return append([]domain.Task(nil), m.tasks...), nil
}

func (m *memTaskStore) SaveTasks(_ context.Context, tasks []domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.tasks = append([]domain.Task(nil), tasks...)
	return nil
}

func (m *memTaskStore) Tasks() []domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Task(nil), m.tasks...)
}

type fakeWeather struct {
	report   domain.WeatherReport
	err      error
	calls    int
	lastCity string
}

func (f *fakeWeather) Current(_ context.Context, city string) (domain.WeatherReport, error) {
	f.calls++
	f.lastCity = city
	if f.err != nil {
		return domain.WeatherReport{}, f.err
	}
	r := f.report
	r.City = city
	return r, nil
}

type fakeQuotes struct {
	quote domain.Quote
	err   error
}

func (f *fakeQuotes) Random(context.Context) (domain.Quote, error) {
	return f.quote, f.err
}

// recordingSessions remembers the last session id it saved so tests can
// inspect server side state.
type recordingSessions struct {
	*storage.MemorySessions
	lastID string
}

func (r *recordingSessions) SaveSession(ctx context.Context, sess *domain.Session) error {
	r.lastID = sess.ID
	return r.MemorySessions.SaveSession(ctx, sess)
}

type testDashboard struct {
	e        *echo.Echo
	tasks    *memTaskStore
	sessions *recordingSessions
	weather  *fakeWeather
	quotes   *fakeQuotes
	hook     *test.Hook
	now      time.Time
	cookies  map[string]*http.Cookie
}

func newTestDashboard(t *testing.T) *testDashboard {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	d := &testDashboard{
		e:        echo.New(),
		tasks:    &memTaskStore{},
		sessions: &recordingSessions{MemorySessions: storage.NewMemorySessions(time.Hour)},
		weather:  &fakeWeather{},
		quotes:   &fakeQuotes{},
		hook:     hook,
		now:      time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		cookies:  make(map[string]*http.Cookie),
	}
	Register(d.e, Deps{
		Tasks:    d.tasks,
		Sessions: d.sessions,
		Cookies:  sessions.NewCookieStore([]byte("test-secret-0123456789abcdef0123")),
		Weather:  d.weather,
		Quotes:   d.quotes,
		Deduper:  NewMemoryDeduper(time.Hour),
		Logger:   logger,
		Now:      func() time.Time { return d.now },
	})
	return d
}

func (d *testDashboard) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range d.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	d.e.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(d.cookies, c.Name)
			continue
		}
		d.cookies[c.Name] = c
	}
	return rec
}

func (d *testDashboard) page(t *testing.T) string {
	t.Helper()
	rec := d.do(t, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d: %s", rec.Code, rec.Body.String())
	}
	return rec.Body.String()
}

func (d *testDashboard) post(t *testing.T, target string, form url.Values) {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	rec := d.do(t, http.MethodPost, target, form)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("POST %s: expected status 303 got %d: %s", target, rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/" {
		t.Fatalf("POST %s: expected redirect to /, got %q", target, loc)
	}
}

func (d *testDashboard) session(t *testing.T) *domain.Session {
	t.Helper()
	sess, err := d.sessions.LoadSession(context.Background(), d.sessions.lastID)
	if err != nil {
		t.Fatalf("load session %q: %v", d.sessions.lastID, err)
	}
	return sess
}

func assertContains(t *testing.T, body string, parts ...string) {
	t.Helper()
	for _, p := range parts {
		if !strings.Contains(body, p) {
			t.Fatalf("expected page to contain %q", p)
		}
	}
}

func assertNotContains(t *testing.T, body string, parts ...string) {
	t.Helper()
	for _, p := range parts {
		if strings.Contains(body, p) {
			t.Fatalf("expected page not to contain %q", p)
		}
	}
}

func TestDashboardRendersDefaults(t *testing.T) {
	d := newTestDashboard(t)

	body := d.page(t)
	assertContains(t, body,
		"Founder's Dashboard",
		"Timer ready - Set for 25 minutes",
		"No tasks yet",
		"0/0",
		"Enter a city name above to see the weather",
		"🎯 Deep Work",
	)
	if _, ok := d.cookies[cookieName]; !ok {
		t.Fatalf("expected session cookie to be issued")
	}
	if d.weather.calls != 0 {
		t.Fatalf("weather must not be fetched without a city")
	}
}

func TestHealthzDoesNotNeedSession(t *testing.T) {
	d := newTestDashboard(t)
	rec := d.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if len(d.cookies) != 0 {
		t.Fatalf("healthz must not start a session")
	}
}

func TestStaticAssetsServed(t *testing.T) {
	d := newTestDashboard(t)
	rec := d.do(t, http.MethodGet, "/static/dashboard.js", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/api/timer") {
		t.Fatalf("expected dashboard.js, got %d", rec.Code)
	}
}

func TestTaskLifecyclePersists(t *testing.T) {
	d := newTestDashboard(t)
	d.page(t)

	d.post(t, "/tasks", url.Values{"text": {"  write tests  "}})
	d.post(t, "/tasks", url.Values{"text": {"ship"}})
	d.post(t, "/tasks", url.Values{"text": {"   "}})

	stored := d.tasks.Tasks()
	if len(stored) != 2 || stored[0].Text != "write tests" || stored[0].Completed {
		t.Fatalf("unexpected stored tasks: %#v", stored)
	}

	d.post(t, "/tasks/0/toggle", url.Values{"completed": {"true"}})
	if stored = d.tasks.Tasks(); !stored[0].Completed {
		t.Fatalf("expected first task completed: %#v", stored)
	}
	assertContains(t, d.page(t), "1/2", "50%")

	d.post(t, "/tasks/0/toggle", nil)
	if stored = d.tasks.Tasks(); stored[0].Completed {
		t.Fatalf("expected toggle without value to flip back: %#v", stored)
	}

	d.post(t, "/tasks/0/delete", nil)
	d.post(t, "/tasks", url.Values{"text": {"again"}})
	stored = d.tasks.Tasks()
	if len(stored) != 2 {
		t.Fatalf("unexpected stored tasks: %#v", stored)
	}
	if stored[0].ID == stored[1].ID {
		t.Fatalf("ids must stay unique after delete and add: %#v", stored)
	}
	if stored[1].ID != 2 {
		t.Fatalf("expected new id 2, got %d", stored[1].ID)
	}
}

func TestTaskInvalidIDRejected(t *testing.T) {
	d := newTestDashboard(t)
	d.page(t)

	rec := d.do(t, http.MethodPost, "/tasks/abc/toggle", url.Values{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	rec = d.do(t, http.MethodPost, "/tasks/0/toggle", url.Values{"completed": {"maybe"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestUnknownTaskIsNoop(t *testing.T) {
	d := newTestDashboard(t)
	d.page(t)
	d.post(t, "/tasks/42/delete", nil)
	d.post(t, "/tasks/42/toggle", nil)
	if d.tasks.saves != 0 {
		t.Fatalf("expected no saves for unknown ids, got %d", d.tasks.saves)
	}
}

func TestDuplicateFormTokenIgnored(t *testing.T) {
	d := newTestDashboard(t)
	d.page(t)

	form := url.Values{"text": {"once"}, "token": {"tok-1"}}
	d.post(t, "/tasks", form)
	d.post(t, "/tasks", form)

	if got := len(d.tasks.Tasks()); got != 1 {
		t.Fatalf("expected 1 task after resubmission, got %d", got)
	}
}

func TestTaskSaveFailureKeepsInMemoryState(t *testing.T) {
	d := newTestDashboard(t)
	d.page(t)
	d.tasks.saveErr = errors.New("disk full")

	d.post(t, "/tasks", url.Values{"text": {"unsaved"}})

	body := d.page(t)
	assertContains(t, body, "Could not save tasks to file", "unsaved")
	assertNotContains(t, d.page(t), "Could not save tasks to file")
}

func TestTaskLoadFailureWarns(t *testing.T) {
	d := newTestDashboard(t)
	d.tasks.loadErr = errors.New("permission denied")

	body := d.page(t)
	assertContains(t, body, "Could not load tasks from file", "No tasks yet")
}

func TestSessionLoadsExistingTasks(t *testing.T) {
	d := newTestDashboard(t)
	d.tasks.tasks = []domain.Task{{ID: 7, Text: "from disk", Completed: true}}

	assertContains(t, d.page(t), "from disk", "1/1", "100%")
	d.post(t, "/tasks", url.Values{"text": {"new"}})
	if stored := d.tasks.Tasks(); stored[1].ID != 8 {
		t.Fatalf("expected id after loaded max, got %#v", stored)
	}
}

func decodeTimer(t *testing.T, rec *httptest.ResponseRecorder) timerResponse {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var resp timerResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp
}

func TestTimerCountdownAndExpiry(t *testing.T) {
	d := newTestDashboard(t)
	d.page(t)
	start := d.now

	d.post(t, "/timer/start", url.Values{"minutes": {"25"}})
	sess := d.session(t)
	if !sess.Timer.Running || !sess.Timer.End.Equal(start.Add(1500*time.Second)) {
		t.Fatalf("unexpected timer state: %#v", sess.Timer)
	}

	d.now = start.Add(10 * time.Second)
	resp := decodeTimer(t, d.do(t, http.MethodGet, "/api/timer", nil))
	if resp.Phase != domain.TimerRunning || resp.Remaining != "24:50" || resp.RemainingSeconds != 1490 {
		t.Fatalf("unexpected reading: %#v", resp)
	}
	if resp.Progress < 0.0066 || resp.Progress > 0.0067 {
		t.Fatalf("unexpected progress: %f", resp.Progress)
	}
	assertContains(t, d.page(t), "24:50", `data-ends-at="`)

	d.now = start.Add(1500 * time.Second)
	body := d.page(t)
	assertContains(t, body, "Timer complete! Great focus session!", "Timer ready - Set for 25 minutes", `class="celebrate"`)
	assertNotContains(t, d.page(t), `class="celebrate"`)
	if d.session(t).Timer.Running {
		t.Fatalf("expired timer must be cleared")
	}
}

func TestTimerExpiryObservedByTick(t *testing.T) {
	d := newTestDashboard(t)
	d.page(t)
	d.post(t, "/timer/start", url.Values{"minutes": {"5"}})

	d.now = d.now.Add(time.Hour)
	resp := decodeTimer(t, d.do(t, http.MethodGet, "/api/timer", nil))
	if resp.Phase != domain.TimerExpired {
		t.Fatalf("expected expired, got %#v", resp)
	}
	resp = decodeTimer(t, d.do(t, http.MethodGet, "/api/timer", nil))
	if resp.Phase != domain.TimerIdle {
		t.Fatalf("expected idle after expiry, got %#v", resp)
	}
	assertContains(t, d.page(t), "Timer complete!", `class="celebrate"`)
	assertNotContains(t, d.page(t), "Timer complete!", `class="celebrate"`)
}

func TestTimerStopClears(t *testing.T) {
	d := newTestDashboard(t)
	d.page(t)
	d.post(t, "/timer/start", url.Values{"minutes": {"45"}})
	d.now = d.now.Add(3 * time.Minute)
	d.post(t, "/timer/stop", nil)

	timer := d.session(t).Timer
	if timer.Running || timer.StartedAt != nil || timer.End != nil {
		t.Fatalf("expected cleared timer, got %#v", timer)
	}
	assertContains(t, d.page(t), "Timer ready - Set for 45 minutes")
}

func TestTimerStopKeepsSliderValue(t *testing.T) {
	d := newTestDashboard(t)
	d.page(t)
	d.post(t, "/timer/start", url.Values{"minutes": {"25"}})
	d.post(t, "/timer/stop", url.Values{"minutes": {"60"}})

	timer := d.session(t).Timer
	if timer.Running || timer.Minutes != 60 {
		t.Fatalf("expected stopped timer set to 60 minutes, got %#v", timer)
	}
	assertContains(t, d.page(t), "Timer ready - Set for 60 minutes")

	d.post(t, "/timer/start", url.Values{"minutes": {"30"}})
	d.post(t, "/timer/stop", url.Values{"minutes": {"13"}})
	timer = d.session(t).Timer
	if timer.Running || timer.Minutes != 30 {
		t.Fatalf("expected stop with invalid minutes to keep 30, got %#v", timer)
	}
	assertContains(t, d.page(t), "Invalid timer duration: 13", "Timer ready - Set for 30 minutes")
}

func TestTimerRejectsInvalidMinutes(t *testing.T) {
	d := newTestDashboard(t)
	d.page(t)
	d.post(t, "/timer/start", url.Values{"minutes": {"7"}})

	if d.session(t).Timer.Running {
		t.Fatalf("timer must not start with invalid minutes")
	}
	assertContains(t, d.page(t), "Invalid timer duration: 7")
}

func TestWeatherPanel(t *testing.T) {
	d := newTestDashboard(t)
	d.weather.report = domain.WeatherReport{TempC: "18", Condition: "Partly cloudy"}
	d.page(t)

	d.post(t, "/weather", url.Values{"city": {" london "}})
	body := d.page(t)
	assertContains(t, body, "⛅", "18°C", "Partly cloudy", "London")
	if d.weather.lastCity != "london" {
		t.Fatalf("unexpected city forwarded: %q", d.weather.lastCity)
	}

	d.page(t)
	if d.weather.calls != 2 {
		t.Fatalf("expected a lookup per render, got %d", d.weather.calls)
	}

	d.post(t, "/weather", url.Values{"city": {""}})
	assertContains(t, d.page(t), "Enter a city name above")
	if d.weather.calls != 2 {
		t.Fatalf("expected no lookup after clearing city, got %d", d.weather.calls)
	}
}

func TestWeatherErrors(t *testing.T) {
	d := newTestDashboard(t)
	d.page(t)
	d.post(t, "/weather", url.Values{"city": {"Atlantis"}})

	d.weather.err = &upstream.StatusError{Service: "weather", StatusCode: http.StatusNotFound}
	body := d.page(t)
	assertContains(t, body, "Could not fetch weather data. Please check the city name.")
	assertNotContains(t, body, "°C", "weather-card")

	d.weather.err = errors.New("dial tcp: timeout")
	assertContains(t, d.page(t), "Error fetching weather: dial tcp: timeout")
}

func TestQuoteFetchKeepsPreviousOnFailure(t *testing.T) {
	d := newTestDashboard(t)
	assertContains(t, d.page(t), "receive your daily dose of motivation")

	d.quotes.quote = domain.Quote{Text: "Stay hungry.", Author: "Steve Jobs"}
	d.post(t, "/quote", nil)
	assertContains(t, d.page(t), "Stay hungry.", "Steve Jobs")

	d.quotes.err = &upstream.StatusError{Service: "quote", StatusCode: http.StatusBadGateway}
	d.post(t, "/quote", nil)
	body := d.page(t)
	assertContains(t, body, "Could not fetch quote. Please try again.", "Stay hungry.")

	d.quotes.err = errors.New("connection reset")
	d.post(t, "/quote", nil)
	assertContains(t, d.page(t), "Error fetching quote: connection reset", "Stay hungry.")
}

func TestCodingLog(t *testing.T) {
	d := newTestDashboard(t)
	d.page(t)

	req := httptest.NewRequest(http.MethodPut, "/api/log", strings.NewReader(`{"log":"learned channels"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, c := range d.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	d.e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rec.Code)
	}
	if got := d.session(t).Log; got != "learned channels" {
		t.Fatalf("expected mirrored log, got %q", got)
	}

	d.post(t, "/log", url.Values{"action": {"save"}, "log": {"   "}})
	assertContains(t, d.page(t), "Please enter some notes before saving!")

	d.post(t, "/log", url.Values{"action": {"save"}, "log": {"learned generics"}})
	assertContains(t, d.page(t), "Notes saved!", "learned generics")

	d.post(t, "/log", url.Values{"action": {"clear"}, "log": {"learned generics"}})
	if got := d.session(t).Log; got != "" {
		t.Fatalf("expected cleared log, got %q", got)
	}
}

func TestProfileUpdate(t *testing.T) {
	d := newTestDashboard(t)
	d.page(t)

	d.post(t, "/profile", url.Values{"name": {"Ada"}, "status": {"Learning"}})
	body := d.page(t)
	assertContains(t, body, `value="Ada"`, "📚 Learning", "#10b981")

	d.post(t, "/profile", url.Values{"name": {"Ada"}, "status": {"Partying"}})
	assertContains(t, d.page(t), "🎯 Deep Work")
}

func TestSessionsAreIsolated(t *testing.T) {
	a := newTestDashboard(t)
	a.page(t)
	a.post(t, "/profile", url.Values{"name": {"Ada"}})

	b := &testDashboard{e: a.e, sessions: a.sessions, cookies: make(map[string]*http.Cookie)}
	assertNotContains(t, b.page(t), `value="Ada"`)
	assertContains(t, a.page(t), `value="Ada"`)
}

func TestSessionEndStartsFresh(t *testing.T) {
	d := newTestDashboard(t)
	d.page(t)
	d.post(t, "/profile", url.Values{"name": {"Ada"}})
	oldID := d.sessions.lastID

	d.post(t, "/session/end", nil)
	if _, err := d.sessions.LoadSession(context.Background(), oldID); !errors.Is(err, storage.ErrSessionNotFound) {
		t.Fatalf("expected session state removed, got %v", err)
	}

	assertNotContains(t, d.page(t), `value="Ada"`)
	if d.sessions.lastID == oldID {
		t.Fatalf("expected a new session id")
	}
}
