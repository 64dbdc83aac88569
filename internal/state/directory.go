// Package state keeps a Redis directory of active live rooms holding each
// room's latest stats snapshot.
package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"live-app/internal/models"
	"live-app/pkg/logger"

	"github.com/go-redis/redis/v8"
)

const writeTimeout = 2 * time.Second

type update struct {
	roomID string
	stats  models.Stats
	remove bool
}

// Directory writes room snapshots to Redis from a single background worker.
// Publish and Remove never block; updates are dropped when the worker falls
// behind, and the key TTL expires rooms whose removal was lost.
type Directory struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration

	updates chan update
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func NewDirectory(client *redis.Client, keyPrefix string, ttl time.Duration) *Directory {
	if keyPrefix == "" {
		keyPrefix = "live:room:"
	}
	d := &Directory{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		updates:   make(chan update, 256),
		done:      make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Directory) key(roomID string) string {
	return d.keyPrefix + roomID
}

func (d *Directory) Publish(roomID string, stats models.Stats) {
	d.enqueue(update{roomID: roomID, stats: stats})
}

func (d *Directory) Remove(roomID string) {
	d.enqueue(update{roomID: roomID, remove: true})
}

func (d *Directory) enqueue(u update) {
	select {
	case <-d.done:
		return
	default:
	}
	select {
	case d.updates <- u:
	default:
		logger.Debug("Redis directory busy, dropping update for room %s", u.roomID)
	}
}

// Get reads the last published snapshot of a room.
func (d *Directory) Get(ctx context.Context, roomID string) (models.Stats, bool, error) {
	values, err := d.client.HGetAll(ctx, d.key(roomID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Stats{}, false, nil
		}
		return models.Stats{}, false, fmt.Errorf("redis: failed to read room %s: %w", roomID, err)
	}
	if len(values) == 0 {
		return models.Stats{}, false, nil
	}
	stats, err := parseStats(values)
	if err != nil {
		return models.Stats{}, false, fmt.Errorf("redis: room %s: %w", roomID, err)
	}
	return stats, true, nil
}

// Close stops the worker. Updates still queued are discarded.
func (d *Directory) Close() {
	d.once.Do(func() { close(d.done) })
	d.wg.Wait()
}

func (d *Directory) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case u := <-d.updates:
			if err := d.apply(u); err != nil {
				logger.Warn("Redis directory update for room %s failed: %v", u.roomID, err)
			}
		}
	}
}

func (d *Directory) apply(u update) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	key := d.key(u.roomID)
	if u.remove {
		return d.client.Del(ctx, key).Err()
	}

	pipe := d.client.TxPipeline()
	pipe.HSet(ctx, key, fields(u.stats))
	pipe.Expire(ctx, key, d.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func fields(s models.Stats) map[string]interface{} {
	return map[string]interface{}{
		"viewers":  s.Viewers,
		"likes":    s.Likes,
		"gifts":    s.Gifts,
		"revenue":  s.Revenue,
		"comments": s.Comments,
		"duration": s.DurationSeconds,
	}
}

func parseStats(values map[string]string) (models.Stats, error) {
	var s models.Stats
	targets := map[string]*int64{
		"viewers":  &s.Viewers,
		"likes":    &s.Likes,
		"gifts":    &s.Gifts,
		"revenue":  &s.Revenue,
		"comments": &s.Comments,
		"duration": &s.DurationSeconds,
	}
	for field, target := range targets {
		raw, ok := values[field]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return models.Stats{}, fmt.Errorf("field %s: %w", field, err)
		}
		*target = n
	}
	return s, nil
}
