package api

import (
	"time"

	log "github.com/sirupsen/logrus"

	"founder-dashboard/domain"
)

type renderMetrics struct {
	logger          *log.Logger
	start           time.Time
	weatherDuration time.Duration
	weatherChecked  bool
	weatherFailed   bool
	renderDuration  time.Duration
	tasksCompleted  int
	tasksTotal      int
	timerPhase      domain.TimerPhase
	errorStage      string
}

func newRenderMetrics(logger *log.Logger) *renderMetrics {
	return &renderMetrics{
		logger: logger,
		start:  time.Now(),
	}
}

func (m *renderMetrics) ObserveWeather(duration time.Duration, err error) {
	m.weatherChecked = true
	m.weatherFailed = err != nil
	if duration > 0 {
		m.weatherDuration = duration
	}
}

func (m *renderMetrics) ObserveRender(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.renderDuration = duration
}

func (m *renderMetrics) SetTasks(completed, total int) {
	m.tasksCompleted = completed
	m.tasksTotal = total
}

func (m *renderMetrics) SetTimerPhase(phase domain.TimerPhase) {
	m.timerPhase = phase
}

func (m *renderMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *renderMetrics) Log(status int, err error) {
	if m == nil || m.logger == nil {
		return
	}

	fields := log.Fields{
		"route":           "/",
		"status":          status,
		"total_ms":        durationToMillis(time.Since(m.start)),
		"tasks_completed": m.tasksCompleted,
		"tasks_total":     m.tasksTotal,
		"timer_phase":     string(m.timerPhase),
	}

	if m.weatherChecked {
		fields["weather_ms"] = durationToMillis(m.weatherDuration)
		fields["weather_ok"] = !m.weatherFailed
	}
	if m.renderDuration > 0 {
		fields["render_ms"] = durationToMillis(m.renderDuration)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	m.logger.WithFields(fields).Info("dashboard.render.metrics")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
