package geo

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Greeshmanth1/daw/internal/models"
)

// RedisIndex implements Index on top of Redis GEO commands. Each position is
// a GEOADD member plus a small metadata hash for the online flag.
type RedisIndex struct {
	client *redis.Client
	key    string
	ctx    context.Context
}

func NewRedisIndex(addr, password, key string) *RedisIndex {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisIndex{client: c, key: key, ctx: context.Background()}
}

func (r *RedisIndex) Upsert(pos models.DriverPosition) {
	_, _ = r.client.GeoAdd(r.ctx, r.key, &redis.GeoLocation{
		Longitude: pos.Lon,
		Latitude:  pos.Lat,
		Name:      pos.DriverID,
	}).Result()
	_ = r.client.HSet(r.ctx, metaKey(pos.DriverID), map[string]interface{}{
		"online":  strconv.FormatBool(pos.Online),
		"updated": time.Now().Format(time.RFC3339),
	}).Err()
}

func (r *RedisIndex) NearestAvailable(lat, lon, radiusKm float64, limit int) []Candidate {
	// ask for extras so offline drivers can be filtered out without a second
	// round trip
	count := limit * 4
	if count < limit {
		count = limit
	}
	res, err := r.client.GeoRadius(r.ctx, r.key, lon, lat, &redis.GeoRadiusQuery{
		Radius:   radiusKm,
		Unit:     "km",
		WithDist: true,
		Count:    count,
		Sort:     "ASC",
	}).Result()
	if err != nil {
		return nil
	}
	out := make([]Candidate, 0, limit)
	for _, g := range res {
		if len(out) == limit {
			break
		}
		if m, err := r.client.HGetAll(r.ctx, metaKey(g.Name)).Result(); err == nil {
			if v, ok := m["online"]; ok && v != "true" {
				continue
			}
		}
		out = append(out, Candidate{DriverID: g.Name, DistanceKm: g.Dist})
	}
	return out
}

func metaKey(id string) string { return "driver:meta:" + id }
