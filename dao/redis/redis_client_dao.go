package redis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/AnaEHC/semaforo-app/db"
	"github.com/AnaEHC/semaforo-app/models"
)

const CLIENT_BLOCK_KEY_FORMAT = "client_block_v1:%s"
const ACTIVE_CLIENTS_KEY = "active_clients_v1"
const LAST_SWEEP_KEY = "lifecycle_last_sweep_v1"

// HANDOFF_EXPORT_KEY_FORMAT marks a (client, expiry) hand-off as exported.
const HANDOFF_EXPORT_KEY_FORMAT = "handoff_export_v1:%s"

// HANDOFF_MARKER_TTL keeps export markers well past any window.
const HANDOFF_MARKER_TTL = 180 * 24 * time.Hour

// HANDOFF_PENDING_TTL bounds a claim whose export never finished.
const HANDOFF_PENDING_TTL = 15 * time.Minute

const handOffPending = "pending"

// RedisClientDAO mirrors the record store snapshot and lifecycle state in Redis.
type RedisClientDAO struct {
	client db.RedisClient
}

// NewRedisClientDAO initializes a RedisClientDAO with the Redis client.
func NewRedisClientDAO(client db.RedisClient) *RedisClientDAO {
	return &RedisClientDAO{client: client}
}

// UpsertBlock caches the records of one client.
func (dao *RedisClientDAO) UpsertBlock(clientID string, records []models.DailyRecord) error {
	key := fmt.Sprintf(CLIENT_BLOCK_KEY_FORMAT, clientID)
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal block for client %s: %w", clientID, err)
	}
	if err := dao.client.Set(key, string(data)); err != nil {
		return fmt.Errorf("failed to set block in redis: %w", err)
	}
	return nil
}

// GetBlock returns the cached records of a client, or nil on a cache miss.
func (dao *RedisClientDAO) GetBlock(clientID string) ([]models.DailyRecord, error) {
	key := fmt.Sprintf(CLIENT_BLOCK_KEY_FORMAT, clientID)
	str, err := dao.client.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get block from redis: %w", err)
	}
	var records []models.DailyRecord
	if err := json.Unmarshal([]byte(str), &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal block JSON: %w", err)
	}
	return records, nil
}

// ListClientIDs returns the ids of every cached block.
func (dao *RedisClientDAO) ListClientIDs() ([]string, error) {
	keys, err := dao.client.Keys(fmt.Sprintf(CLIENT_BLOCK_KEY_FORMAT, "*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list block keys: %w", err)
	}
	prefix := fmt.Sprintf(CLIENT_BLOCK_KEY_FORMAT, "")
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, prefix))
	}
	return ids, nil
}

// ReplaceSnapshot caches every block and drops blocks no longer present.
func (dao *RedisClientDAO) ReplaceSnapshot(blocks map[string][]models.DailyRecord) error {
	existing, err := dao.ListClientIDs()
	if err != nil {
		return err
	}
	for id, records := range blocks {
		if err := dao.UpsertBlock(id, records); err != nil {
			return err
		}
	}
	for _, id := range existing {
		if _, ok := blocks[id]; ok {
			continue
		}
		if err := dao.client.Del(fmt.Sprintf(CLIENT_BLOCK_KEY_FORMAT, id)); err != nil {
			return fmt.Errorf("failed to delete stale block %s: %w", id, err)
		}
		log.Debug().Str("component", "dao").Str("client", id).Msg("dropped stale block")
	}
	return nil
}

// SetActiveClients stores the ids of the active working set.
func (dao *RedisClientDAO) SetActiveClients(ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal active clients: %w", err)
	}
	if err := dao.client.Set(ACTIVE_CLIENTS_KEY, string(data)); err != nil {
		return fmt.Errorf("failed to set active clients in redis: %w", err)
	}
	return nil
}

// GetActiveClients returns the active ids; ok is false before the first sweep.
func (dao *RedisClientDAO) GetActiveClients() (ids []string, ok bool, err error) {
	str, err := dao.client.Get(ACTIVE_CLIENTS_KEY)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get active clients from redis: %w", err)
	}
	if err := json.Unmarshal([]byte(str), &ids); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal active clients: %w", err)
	}
	return ids, true, nil
}

// ClaimHandOff atomically marks a hand-off as taken. It returns false when the
// hand-off was already claimed by an earlier sweep.
func (dao *RedisClientDAO) ClaimHandOff(handOffKey string) (bool, error) {
	key := fmt.Sprintf(HANDOFF_EXPORT_KEY_FORMAT, handOffKey)
	ok, err := dao.client.SetNX(key, handOffPending, HANDOFF_PENDING_TTL)
	if err != nil {
		return false, fmt.Errorf("failed to claim hand-off %s: %w", handOffKey, err)
	}
	return ok, nil
}

// ReleaseHandOff removes a claim so a failed export is retried next sweep.
func (dao *RedisClientDAO) ReleaseHandOff(handOffKey string) error {
	key := fmt.Sprintf(HANDOFF_EXPORT_KEY_FORMAT, handOffKey)
	if err := dao.client.Del(key); err != nil {
		return fmt.Errorf("failed to release hand-off %s: %w", handOffKey, err)
	}
	return nil
}

// SetHandOffLocation records where a claimed hand-off was exported.
func (dao *RedisClientDAO) SetHandOffLocation(handOffKey, location string) error {
	key := fmt.Sprintf(HANDOFF_EXPORT_KEY_FORMAT, handOffKey)
	if err := dao.client.SetEX(key, location, HANDOFF_MARKER_TTL); err != nil {
		return fmt.Errorf("failed to set hand-off location: %w", err)
	}
	return nil
}

// GetHandOffLocation returns the export location, or "" when never exported.
func (dao *RedisClientDAO) GetHandOffLocation(handOffKey string) (string, error) {
	key := fmt.Sprintf(HANDOFF_EXPORT_KEY_FORMAT, handOffKey)
	str, err := dao.client.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get hand-off location: %w", err)
	}
	if str == handOffPending {
		return "", nil
	}
	return str, nil
}

// SetLastSweep caches the report of the latest lifecycle sweep.
func (dao *RedisClientDAO) SetLastSweep(report models.SweepReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal sweep report: %w", err)
	}
	if err := dao.client.Set(LAST_SWEEP_KEY, string(data)); err != nil {
		return fmt.Errorf("failed to set sweep report in redis: %w", err)
	}
	return nil
}

// GetLastSweep returns the latest sweep report, or nil if none ran yet.
func (dao *RedisClientDAO) GetLastSweep() (*models.SweepReport, error) {
	str, err := dao.client.Get(LAST_SWEEP_KEY)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sweep report from redis: %w", err)
	}
	var r models.SweepReport
	if err := json.Unmarshal([]byte(str), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sweep report: %w", err)
	}
	return &r, nil
}
