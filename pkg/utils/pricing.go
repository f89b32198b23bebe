package utils

import (
	"math"
)

type FeeEstimate struct {
	DistanceKm   float64 `json:"distance_km"`
	DurationMins float64 `json:"duration_mins"`
	BaseFee      float64 `json:"base_fee"`
	DistanceFee  float64 `json:"distance_fee"`
	TotalFee     float64 `json:"total_fee"`
}

type FeeCalculator struct {
	BaseFee    float64
	PerKmRate  float64
	MinimumFee float64
	SpeedKmh   float64
}

func NewFeeCalculator(baseFee, perKmRate, minimumFee, speedKmh float64) *FeeCalculator {
	return &FeeCalculator{
		BaseFee:    baseFee,
		PerKmRate:  perKmRate,
		MinimumFee: minimumFee,
		SpeedKmh:   speedKmh,
	}
}

// CalculateFee prices a delivery from the store to the customer by route length.
func (f *FeeCalculator) CalculateFee(distanceKm float64) FeeEstimate {
	distanceFee := distanceKm * f.PerKmRate
	total := f.BaseFee + distanceFee

	if total < f.MinimumFee {
		total = f.MinimumFee
	}

	return FeeEstimate{
		DistanceKm:   math.Round(distanceKm*100) / 100,
		DurationMins: math.Round(EstimateDuration(distanceKm, f.SpeedKmh)*100) / 100,
		BaseFee:      f.BaseFee,
		DistanceFee:  math.Round(distanceFee*100) / 100,
		TotalFee:     math.Round(total*100) / 100,
	}
}

// EstimateDuration estimates travel time in minutes at a constant speed.
func EstimateDuration(distanceKm, speedKmh float64) float64 {
	if speedKmh <= 0 {
		return 0
	}
	return (distanceKm / speedKmh) * 60
}

// ETAMinutes is the whole-minute ETA shown to customers: rounded down and
// never below one minute, even on arrival.
func ETAMinutes(remainingKm, speedKmh float64) int {
	eta := int(math.Floor(EstimateDuration(remainingKm, speedKmh)))
	if eta < 1 {
		return 1
	}
	return eta
}
