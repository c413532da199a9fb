package models

import (
	"math"
	"math/rand"
)

// Weather is the sky condition for a game
type Weather string

const (
	WeatherClear Weather = "clear"
	WeatherRain  Weather = "rain"
	WeatherSnow  Weather = "snow"
	WeatherWind  Weather = "wind"
)

var allWeather = []Weather{WeatherClear, WeatherRain, WeatherSnow, WeatherWind}

// Conditions is the environment a game is played in
type Conditions struct {
	Weather     Weather `json:"weather" yaml:"weather"`
	Temperature int     `json:"temperature" yaml:"temperature"` // Fahrenheit
	WindSpeed   int     `json:"wind_speed" yaml:"wind_speed"`   // mph
	Dome        bool    `json:"dome" yaml:"dome"`
	Week        int     `json:"week,omitempty" yaml:"week,omitempty"`
}

// DefaultConditions is a clear 70 degree afternoon with no wind
func DefaultConditions() Conditions {
	return Conditions{Weather: WeatherClear, Temperature: 70}
}

// RandomConditions draws weather, temperature in [20,90] and wind in [0,20]
func RandomConditions(rng *rand.Rand) Conditions {
	return Conditions{
		Weather:     allWeather[rng.Intn(len(allWeather))],
		Temperature: 20 + rng.Intn(71),
		WindSpeed:   rng.Intn(21),
	}
}

// ConditionFactors are multiplicative modifiers applied by the outcome sampler
type ConditionFactors struct {
	Passing float64 `json:"passing"`
	Rushing float64 `json:"rushing"`
	Kicking float64 `json:"kicking"`
}

// Factors returns the performance modifiers for the conditions. Domes are neutral.
func (c Conditions) Factors() ConditionFactors {
	f := ConditionFactors{Passing: 1, Rushing: 1, Kicking: 1}
	if c.Dome {
		return f
	}

	switch c.Weather {
	case WeatherRain:
		f.Passing *= 0.9
		f.Rushing *= 0.95
		f.Kicking *= 0.85
	case WeatherSnow:
		f.Passing *= 0.8
		f.Rushing *= 0.85
		f.Kicking *= 0.7
	}

	if c.WindSpeed > 15 {
		wind := math.Max(0.7, 1-float64(c.WindSpeed-15)/50)
		f.Passing *= wind
		f.Kicking *= wind
	}

	if c.Temperature < 32 {
		f.Passing *= math.Max(0.8, 1-float64(32-c.Temperature)/50)
	}
	return f
}
