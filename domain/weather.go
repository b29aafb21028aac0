package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultWeatherEmoji is used when no condition keyword matches.
const DefaultWeatherEmoji = "🌤️"

type conditionEmoji struct {
	keyword string
	emoji   string
}

// Order matters: the first keyword contained in the condition wins, so more
// specific phrases must precede the words they contain.
var weatherEmojis = []conditionEmoji{
	{"Sunny", "☀️"},
	{"Clear", "☀️"},
	{"Partly cloudy", "⛅"},
	{"Cloudy", "☁️"},
	{"Overcast", "☁️"},
	{"Rain", "🌧️"},
	{"Rainy", "🌧️"},
	{"Light rain", "🌦️"},
	{"Heavy rain", "🌧️"},
	{"Thunderstorm", "⛈️"},
	{"Snow", "❄️"},
	{"Fog", "🌫️"},
	{"Mist", "🌫️"},
}

// ConditionEmoji maps a free-text weather condition to an emoji.
func ConditionEmoji(condition string) string {
	lc := strings.ToLower(condition)
	for _, ce := range weatherEmojis {
		if strings.Contains(lc, strings.ToLower(ce.keyword)) {
			return ce.emoji
		}
	}
	return DefaultWeatherEmoji
}

// WeatherReport is the current weather for a city.
type WeatherReport struct {
	City      string `json:"city"`
	TempC     string `json:"tempC"`
	Condition string `json:"condition"`
}

func (w WeatherReport) Emoji() string {
	return ConditionEmoji(w.Condition)
}

// DisplayCity returns the city name in title case.
func (w WeatherReport) DisplayCity() string {
	return cases.Title(language.English).String(w.City)
}

// Quote is a short attributed quotation.
type Quote struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}
