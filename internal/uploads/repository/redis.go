package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cityworks/project-registry/internal/uploads/domain"
)

const (
	sessionKeyPrefix = "upload:session:" // Session record: upload:session:{upload_id}
	chunkSetPrefix   = "upload:chunks:"  // Set of received chunk indices: upload:chunks:{upload_id}
	claimKeyPrefix   = "upload:lock:"    // Merge claim: upload:lock:{upload_id}
	sessionIndexKey  = "upload:sessions" // ZSET of upload ids scored by creation time
	claimTTL         = 5 * time.Minute
)

// addChunkScript records a chunk only while the session record exists, so a
// concurrent Delete cannot leave a chunk set behind. Returns {added, count},
// or {-1, 0} when the session is gone.
var addChunkScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return {-1, 0}
end
local added = redis.call("SADD", KEYS[2], ARGV[1])
redis.call("PEXPIRE", KEYS[2], ARGV[2])
return {added, redis.call("SCARD", KEYS[2])}
`)

// RedisRepository shares sessions between API processes.
type RedisRepository struct {
	client *redis.Client
	// keyTTL outlives the sweep threshold so the sweeper still finds the session.
	keyTTL time.Duration
}

func NewRedisRepository(client *redis.Client, sessionTTL time.Duration) *RedisRepository {
	return &RedisRepository{client: client, keyTTL: sessionTTL + time.Hour}
}

func (r *RedisRepository) Create(ctx context.Context, s *domain.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.sessionKey(s.UploadID), data, r.keyTTL)
	pipe.ZAdd(ctx, sessionIndexKey, redis.Z{Score: float64(s.CreatedAt.Unix()), Member: s.UploadID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *RedisRepository) Get(ctx context.Context, uploadID string) (*domain.Session, error) {
	data, err := r.client.Get(ctx, r.sessionKey(uploadID)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	members, err := r.client.SMembers(ctx, r.chunkSetKey(uploadID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	s.UploadedChunks = make([]int, 0, len(members))
	for _, m := range members {
		i, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		s.UploadedChunks = append(s.UploadedChunks, i)
	}
	sort.Ints(s.UploadedChunks)

	return &s, nil
}

func (r *RedisRepository) AddChunk(ctx context.Context, uploadID string, index int) (bool, int, error) {
	keys := []string{r.sessionKey(uploadID), r.chunkSetKey(uploadID)}
	res, err := addChunkScript.Run(ctx, r.client, keys, index, r.keyTTL.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("failed to add chunk: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("failed to add chunk: unexpected reply %v", res)
	}
	if res[0] < 0 {
		return false, 0, domain.ErrSessionNotFound
	}
	return res[0] == 1, int(res[1]), nil
}

func (r *RedisRepository) Claim(ctx context.Context, uploadID string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.claimKey(uploadID), "1", claimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim session: %w", err)
	}
	return ok, nil
}

func (r *RedisRepository) Release(ctx context.Context, uploadID string) error {
	if err := r.client.Del(ctx, r.claimKey(uploadID)).Err(); err != nil {
		return fmt.Errorf("failed to release session: %w", err)
	}
	return nil
}

func (r *RedisRepository) Delete(ctx context.Context, uploadID string) (bool, error) {
	pipe := r.client.TxPipeline()
	deleted := pipe.Del(ctx, r.sessionKey(uploadID))
	pipe.Del(ctx, r.chunkSetKey(uploadID), r.claimKey(uploadID))
	pipe.ZRem(ctx, sessionIndexKey, uploadID)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	return deleted.Val() > 0, nil
}

// ListExpired returns sessions created before cutoff. Ids whose record has
// already expired in redis come back with only UploadID set.
func (r *RedisRepository) ListExpired(ctx context.Context, cutoff time.Time) ([]*domain.Session, error) {
	ids, err := r.client.ZRangeByScore(ctx, sessionIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list expired sessions: %w", err)
	}

	out := make([]*domain.Session, 0, len(ids))
	for _, id := range ids {
		s, err := r.Get(ctx, id)
		if err == domain.ErrSessionNotFound {
			out = append(out, &domain.Session{UploadID: id})
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Count returns the number of sessions whose record is still live. Index
// entries left by expired records are skipped, not removed, since the sweeper
// still needs them to find the staging directory.
func (r *RedisRepository) Count(ctx context.Context) (int, error) {
	ids, err := r.client.ZRange(ctx, sessionIndexKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := r.client.Pipeline()
	checks := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		checks[i] = pipe.Exists(ctx, r.sessionKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	live := 0
	for _, c := range checks {
		if c.Val() > 0 {
			live++
		}
	}
	return live, nil
}

// Helper methods for key generation
func (r *RedisRepository) sessionKey(uploadID string) string {
	return sessionKeyPrefix + uploadID
}

func (r *RedisRepository) chunkSetKey(uploadID string) string {
	return chunkSetPrefix + uploadID
}

func (r *RedisRepository) claimKey(uploadID string) string {
	return claimKeyPrefix + uploadID
}
