package matchmaker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisRepo struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisRepo(rdb *redis.Client) Repo {
	return &redisRepo{rdb: rdb, now: time.Now}
}

// Keys:
//
//	zset: mm:pool:{gameType}:{tableSize} -> identity scored by its deadline (unix ms)
//	kv  : mm:player:{identity}           -> "gameType:tableSize", to find the pool on cancel
//	kv  : mm:room:{id}                   -> Room JSON
//	kv  : mm:playerRoom:{identity}       -> room id
func poolKey(gameType string, tableSize int) string {
	return fmt.Sprintf("mm:pool:%s:%d", gameType, tableSize)
}

func playerKey(identity string) string {
	return "mm:player:" + identity
}

func roomKey(id string) string {
	return "mm:room:" + id
}

func playerRoomKey(identity string) string {
	return "mm:playerRoom:" + identity
}

func ttl(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// noDeadline scores entries queued without a TTL.
const noDeadline = float64(1 << 53)

// deadline is the pool score of an entry, in unix milliseconds.
func deadline(now time.Time, ttlSeconds int) float64 {
	if ttlSeconds <= 0 {
		return noDeadline
	}
	return float64(now.Add(ttl(ttlSeconds)).UnixMilli())
}

func (r *redisRepo) nowMilli() string {
	return strconv.FormatInt(r.now().UnixMilli(), 10)
}

func (r *redisRepo) Enqueue(ctx context.Context, gameType string, tableSize int, identity string, ttlSeconds int) error {
	p := r.rdb.Pipeline()
	p.ZAdd(ctx, poolKey(gameType, tableSize), redis.Z{Score: deadline(r.now(), ttlSeconds), Member: identity})
	p.Set(ctx, playerKey(identity), fmt.Sprintf("%s:%d", gameType, tableSize), ttl(ttlSeconds))
	_, err := p.Exec(ctx)
	return err
}

// popScript drops expired entries, then takes the ARGV[2] entries closest to
// their deadline, or nothing when the pool is short.
// KEYS[1] = pool key, ARGV[1] = now (unix ms), ARGV[2] = n
var popScript = redis.NewScript(`
	redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", "(" .. ARGV[1])
	local n = tonumber(ARGV[2])
	if redis.call("ZCARD", KEYS[1]) < n then
		return {}
	end
	local ids = redis.call("ZRANGE", KEYS[1], 0, n - 1)
	for _, id in ipairs(ids) do
		redis.call("ZREM", KEYS[1], id)
	end
	if redis.call("ZCARD", KEYS[1]) == 0 then
		redis.call("DEL", KEYS[1])
	end
	return ids
`)

func (r *redisRepo) PopOldest(ctx context.Context, gameType string, tableSize int, n int) ([]string, error) {
	res, err := popScript.Run(ctx, r.rdb, []string{poolKey(gameType, tableSize)}, r.nowMilli(), n).StringSlice()
	if err != nil {
		return nil, err
	}
	if len(res) > 0 {
		p := r.rdb.Pipeline()
		for _, id := range res {
			p.Del(ctx, playerKey(id))
		}
		_, _ = p.Exec(ctx)
	}
	return res, nil
}

// removeScript drops the player key and its pool membership, and the pool
// itself once empty.
// KEYS[1] = player key, KEYS[2] = pool key, ARGV[1] = identity
var removeScript = redis.NewScript(`
	redis.call("DEL", KEYS[1])
	redis.call("ZREM", KEYS[2], ARGV[1])
	if redis.call("ZCARD", KEYS[2]) == 0 then
		redis.call("DEL", KEYS[2])
	end
	return 1
`)

func (r *redisRepo) Remove(ctx context.Context, identity string) error {
	if err := r.rdb.Del(ctx, playerRoomKey(identity)).Err(); err != nil {
		return err
	}

	kv, err := r.rdb.Get(ctx, playerKey(identity)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	gameType, sizeStr, ok := strings.Cut(kv, ":")
	size, convErr := strconv.Atoi(sizeStr)
	if !ok || convErr != nil {
		return r.rdb.Del(ctx, playerKey(identity)).Err()
	}

	return removeScript.Run(ctx, r.rdb, []string{playerKey(identity), poolKey(gameType, size)}, identity).Err()
}

// Count trims expired entries before counting the live ones.
func (r *redisRepo) Count(ctx context.Context, gameType string, tableSize int) (int64, error) {
	key := poolKey(gameType, tableSize)
	p := r.rdb.TxPipeline()
	p.ZRemRangeByScore(ctx, key, "-inf", "("+r.nowMilli())
	card := p.ZCard(ctx, key)
	if _, err := p.Exec(ctx); err != nil {
		return 0, err
	}
	return card.Val(), nil
}

func (r *redisRepo) SaveRoom(ctx context.Context, room *Room, ttlSeconds int) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	p := r.rdb.Pipeline()
	p.Set(ctx, roomKey(room.ID), data, ttl(ttlSeconds))
	for _, id := range room.Players {
		p.Set(ctx, playerRoomKey(id), room.ID, ttl(ttlSeconds))
	}
	_, err = p.Exec(ctx)
	return err
}

func (r *redisRepo) GetPlayerRoom(ctx context.Context, identity string) (*Room, error) {
	id, err := r.rdb.Get(ctx, playerRoomKey(identity)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	data, err := r.rdb.Get(ctx, roomKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var room Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	return &room, nil
}
