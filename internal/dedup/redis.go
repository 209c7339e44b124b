package dedup

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "update_ids"

// checkAndRecordScript performs the atomic check-and-insert against a capped
// list. Redis executes scripts serially, which gives the same-ID atomicity
// the Ledger contract requires across instances.
var checkAndRecordScript = redis.NewScript(`
if redis.call('LPOS', KEYS[1], ARGV[1]) then
  return 1
end
redis.call('LPUSH', KEYS[1], ARGV[1])
redis.call('LTRIM', KEYS[1], 0, tonumber(ARGV[2]) - 1)
return 0
`)

// redisLedger backs the ledger with a capped Redis list so that multiple
// instances behind one webhook URL share a single view of seen IDs.
type redisLedger struct {
	client   *redis.Client
	key      string
	capacity int
}

// NewRedis creates a shared ledger on the given Redis address.
func NewRedis(addr string, capacity int) (Ledger, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	return &redisLedger{
		client:   client,
		key:      defaultRedisKey,
		capacity: capacity,
	}, nil
}

func (l *redisLedger) CheckAndRecord(ctx context.Context, id int64) (bool, error) {
	res, err := checkAndRecordScript.Run(ctx, l.client, []string{l.key},
		strconv.FormatInt(id, 10), l.capacity).Int()
	if err != nil {
		return false, fmt.Errorf("ledger check-and-record: %w", err)
	}

	return res == 1, nil
}

func (l *redisLedger) Seen(ctx context.Context, id int64) (bool, error) {
	_, err := l.client.LPos(ctx, l.key, strconv.FormatInt(id, 10), redis.LPosArgs{}).Result()
	if err == redis.Nil {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("ledger seen: %w", err)
	}

	return true, nil
}

func (l *redisLedger) Record(ctx context.Context, id int64) error {
	if _, err := l.CheckAndRecord(ctx, id); err != nil {
		return fmt.Errorf("ledger record: %w", err)
	}

	return nil
}
