package geo

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Greeshmanth1/daw/internal/models"
)

// Candidate is one driver returned by a proximity query.
type Candidate struct {
	DriverID   string
	DistanceKm float64
}

// Index is the minimal surface the matcher and handlers need. Positions are
// last-write-wins per driver and are not transactionally tied to ride state.
type Index interface {
	Upsert(pos models.DriverPosition)
	// NearestAvailable returns online drivers within radiusKm of the query
	// point, ordered by increasing distance, at most limit entries. An empty
	// result is not an error; the caller decides what "no drivers" means.
	NearestAvailable(lat, lon, radiusKm float64, limit int) []Candidate
}

// MemoryIndex is the in-process fallback used when Redis is not configured.
type MemoryIndex struct {
	mu        sync.RWMutex
	positions map[string]models.DriverPosition
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{positions: make(map[string]models.DriverPosition)}
}

func (g *MemoryIndex) Upsert(pos models.DriverPosition) {
	g.mu.Lock()
	defer g.mu.Unlock()
	pos.Updated = time.Now()
	g.positions[pos.DriverID] = pos
}

// naive scan; in prod use the Redis GEO index or a geohash structure
func (g *MemoryIndex) NearestAvailable(lat, lon, radiusKm float64, limit int) []Candidate {
	g.mu.RLock()
	defer g.mu.RUnlock()
	cands := make([]Candidate, 0, len(g.positions))
	for _, pos := range g.positions {
		if !pos.Online {
			continue
		}
		dist := HaversineKm(lat, lon, pos.Lat, pos.Lon)
		if dist > radiusKm {
			continue
		}
		cands = append(cands, Candidate{DriverID: pos.DriverID, DistanceKm: dist})
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].DistanceKm < cands[j].DistanceKm })
	if limit < len(cands) {
		cands = cands[:limit]
	}
	return cands
}

// HaversineKm is the great-circle distance in kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}
