package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"founder-dashboard/domain"
)

const DefaultWeatherURL = "https://wttr.in"

// ErrEmptyCity is returned when a lookup is attempted without a city.
var ErrEmptyCity = errors.New("weather: city is empty")

// WeatherClient looks up current conditions by free-text city name.
type WeatherClient struct {
	jsonClient
}

func NewWeatherClient(opts Options) *WeatherClient {
	return &WeatherClient{jsonClient: newJSONClient("weather", DefaultWeatherURL, opts)}
}

type weatherResponse struct {
	CurrentCondition []struct {
		TempC       string `json:"temp_C"`
		WeatherDesc []struct {
			Value string `json:"value"`
		} `json:"weatherDesc"`
	} `json:"current_condition"`
}

// Current fetches the current temperature and condition for city.
func (c *WeatherClient) Current(ctx context.Context, city string) (domain.WeatherReport, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return domain.WeatherReport{}, ErrEmptyCity
	}
	target := c.baseURL + "/" + url.PathEscape(city) + "?format=j1"

	var body weatherResponse
	if err := c.getJSON(ctx, target, &body); err != nil {
		return domain.WeatherReport{}, err
	}
	if len(body.CurrentCondition) == 0 {
		return domain.WeatherReport{}, fmt.Errorf("weather: response has no current_condition")
	}
	cur := body.CurrentCondition[0]
	if len(cur.WeatherDesc) == 0 {
		return domain.WeatherReport{}, fmt.Errorf("weather: response has no weatherDesc")
	}
	return domain.WeatherReport{
		City:      city,
		TempC:     cur.TempC,
		Condition: cur.WeatherDesc[0].Value,
	}, nil
}
