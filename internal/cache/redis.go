// internal/cache/redis.go

// Package cache mirrors live session snapshots into Redis so a restarted
// process can recover rosters and scores. The mirror is write-behind: the
// engine never blocks on it and correctness never depends on it.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quizgrid/quizgrid/internal/models"
)

// Mirror wraps a Redis client with the session-snapshot keyspace.
type Mirror struct {
	rdb *redis.Client
	ttl time.Duration
}

// Connect dials Redis and verifies the connection with a short ping.
func Connect(addr string, db int, ttl time.Duration) (*Mirror, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &Mirror{rdb: rdb, ttl: ttl}, nil
}

// NewMirror wraps an existing client.
func NewMirror(rdb *redis.Client, ttl time.Duration) *Mirror {
	return &Mirror{rdb: rdb, ttl: ttl}
}

const snapshotKeyPrefix = "session:"

func snapshotKey(roomCode string) string {
	return snapshotKeyPrefix + roomCode
}

// SaveSnapshot overwrites the mirror entry for a session, refreshing its
// TTL. Ended sessions are removed instead of stored.
func (m *Mirror) SaveSnapshot(ctx context.Context, info models.SessionInfo) error {
	if info.Phase == models.PhaseEnd {
		return m.DeleteSnapshot(ctx, info.RoomCode)
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal session snapshot %s: %w", info.RoomCode, err)
	}
	if err := m.rdb.Set(ctx, snapshotKey(info.RoomCode), data, m.ttl).Err(); err != nil {
		return fmt.Errorf("store session snapshot %s: %w", info.RoomCode, err)
	}
	return nil
}

// LoadSnapshot fetches a mirrored session by room code; nil when absent.
func (m *Mirror) LoadSnapshot(ctx context.Context, roomCode string) (*models.SessionInfo, error) {
	data, err := m.rdb.Get(ctx, snapshotKey(roomCode)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session snapshot %s: %w", roomCode, err)
	}
	var info models.SessionInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("unmarshal session snapshot %s: %w", roomCode, err)
	}
	return &info, nil
}

// LoadAll scans the snapshot keyspace and returns every decodable session,
// the boot-time recovery read. Entries that expired mid-scan or fail to
// decode are skipped; a stale mirror must never block startup.
func (m *Mirror) LoadAll(ctx context.Context) ([]models.SessionInfo, error) {
	var out []models.SessionInfo
	iter := m.rdb.Scan(ctx, 0, snapshotKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := m.rdb.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		var info models.SessionInfo
		if err := json.Unmarshal(data, &info); err != nil {
			continue
		}
		out = append(out, info)
	}
	if err := iter.Err(); err != nil {
		return out, fmt.Errorf("scan session snapshots: %w", err)
	}
	return out, nil
}

// DeleteSnapshot drops a mirror entry, used when a session ends or is
// evicted.
func (m *Mirror) DeleteSnapshot(ctx context.Context, roomCode string) error {
	if err := m.rdb.Del(ctx, snapshotKey(roomCode)).Err(); err != nil {
		return fmt.Errorf("delete session snapshot %s: %w", roomCode, err)
	}
	return nil
}
