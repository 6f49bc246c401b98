package fare

import (
	"math"

	"github.com/Greeshmanth1/daw/internal/geo"
	"github.com/Greeshmanth1/daw/internal/models"
)

// Calculator prices a completed trip: base + perKm * great-circle distance,
// rounded to two decimals. Base and PerKm come from configuration so tariff
// changes need no code edit.
type Calculator struct {
	Base  float64
	PerKm float64
}

func (c Calculator) Fare(pickup, drop models.Coord) float64 {
	km := geo.HaversineKm(pickup.Lat, pickup.Lon, drop.Lat, drop.Lon)
	return round2(c.Base + c.PerKm*km)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
