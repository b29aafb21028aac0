package api

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"founder-dashboard/domain"
)

const dashboardTemplate = "dashboard.html"

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

type templateRenderer struct {
	templates *template.Template
}

func newTemplateRenderer() *templateRenderer {
	return &templateRenderer{templates: template.Must(template.ParseFS(templateFS, "templates/*.html"))}
}

func (r *templateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

type statusOption struct {
	Value    domain.Status
	Emoji    string
	Selected bool
}

type weatherView struct {
	Emoji     string
	TempC     string
	Condition string
	City      string
}

type timerView struct {
	Running      bool
	Minutes      int
	MinMinutes   int
	MaxMinutes   int
	StepMinutes  int
	Clock        string
	Progress     string
	EndsAtMillis int64
	TotalMillis  int64
}

type dashboardView struct {
	Profile      domain.Profile
	Statuses     []statusOption
	StatusEmoji  string
	StatusColor  string
	Completed    int
	Total        int
	Rate         int
	Flashes      []domain.Flash
	City         string
	Weather      *weatherView
	WeatherError string
	Timer        timerView
	Celebrate    bool
	Tasks        []domain.Task
	FormToken    string
	Quote        *domain.Quote
	Log          string
}

func newDashboardView(sess *domain.Session) *dashboardView {
	status := domain.ParseStatus(string(sess.Profile.Status))
	options := make([]statusOption, len(domain.Statuses))
	for i, s := range domain.Statuses {
		options[i] = statusOption{Value: s, Emoji: s.Emoji(), Selected: s == status}
	}
	completed, total, rate := sess.Checklist.Stats()
	return &dashboardView{
		Profile:     domain.Profile{Name: sess.Profile.Name, Status: status},
		Statuses:    options,
		StatusEmoji: status.Emoji(),
		StatusColor: status.Color(),
		Completed:   completed,
		Total:       total,
		Rate:        rate,
		City:        sess.City,
		Tasks:       sess.Checklist.Tasks,
		Quote:       sess.Quote,
		Log:         sess.Log,
	}
}

func newTimerView(t domain.TimerState, r domain.TimerReading) timerView {
	v := timerView{
		Minutes:     t.Minutes,
		MinMinutes:  domain.MinTimerMinutes,
		MaxMinutes:  domain.MaxTimerMinutes,
		StepMinutes: domain.TimerStepMinutes,
	}
	if r.Phase != domain.TimerRunning {
		return v
	}
	v.Running = true
	v.Clock = r.Clock()
	v.Progress = fmt.Sprintf("%.1f", r.Progress*100)
	v.EndsAtMillis = r.EndsAt.UnixMilli()
	if t.StartedAt != nil && t.End != nil {
		v.TotalMillis = t.End.Sub(*t.StartedAt).Milliseconds()
	}
	return v
}

func newWeatherView(w domain.WeatherReport) *weatherView {
	return &weatherView{
		Emoji:     w.Emoji(),
		TempC:     w.TempC,
		Condition: w.Condition,
		City:      w.DisplayCity(),
	}
}
