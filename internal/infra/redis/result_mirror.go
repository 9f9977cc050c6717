package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"offline-quiz-service/internal/domain"
)

const (
	leaderboardKey   = "leaderboard:best_score"
	maxStatsAttempts = 5

	fieldQuizzes = "total_quizzes"
	fieldCorrect = "total_correct"
	fieldBest    = "best_score"
)

// ResultMirror keeps a remote copy of results and aggregates in Redis:
//
//	RPUSH user:{id}:results {json}
//	HSET  user:{id}:stats total_quizzes .. total_correct .. best_score ..
//	ZADD  leaderboard:best_score {best} {id}
//
// Aggregates are updated under WATCH so concurrent devices never lose a delta.
type ResultMirror struct {
	client *redis.Client
}

func NewResultMirror(client *redis.Client) *ResultMirror {
	return &ResultMirror{client: client}
}

func (m *ResultMirror) AppendResult(ctx context.Context, userID string, result domain.QuizResult) (string, error) {
	result.RemoteID = uuid.NewString()
	result.UserID = userID
	payload, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	if err := m.client.RPush(ctx, resultsKey(userID), payload).Err(); err != nil {
		return "", fmt.Errorf("push remote result: %w", err)
	}
	return result.RemoteID, nil
}

// IncrementStats applies delta to the user's aggregate hash and leaderboard
// entry in one optimistic transaction.
func (m *ResultMirror) IncrementStats(ctx context.Context, userID string, delta domain.StatsDelta) error {
	key := statsKey(userID)
	txf := func(tx *redis.Tx) error {
		current, err := readStats(ctx, tx, key)
		if err != nil {
			return err
		}
		next := current.Apply(delta)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				fieldQuizzes, next.TotalQuizzes,
				fieldCorrect, next.TotalCorrect,
				fieldBest, next.BestScore,
			)
			pipe.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(next.BestScore), Member: userID})
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxStatsAttempts; attempt++ {
		err := m.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("update remote stats: %w", err)
		}
	}
	return domain.ErrStatsConflict
}

func (m *ResultMirror) UserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	return readStats(ctx, m.client, statsKey(userID))
}

// RecentResults returns the user's mirrored results, newest first.
func (m *ResultMirror) RecentResults(ctx context.Context, userID string, limit int) ([]domain.QuizResult, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	raw, err := m.client.LRange(ctx, resultsKey(userID), start, -1).Result()
	if err != nil {
		return nil, err
	}
	results := make([]domain.QuizResult, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var r domain.QuizResult
		if err := json.Unmarshal([]byte(raw[i]), &r); err != nil {
			return nil, fmt.Errorf("decode remote result: %w", err)
		}
		results = append(results, r)
	}
	return results, nil
}

func (m *ResultMirror) Ranking(ctx context.Context, limit int) ([]domain.RankingEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	top, err := m.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("load ranking: %w", err)
	}

	pipe := m.client.Pipeline()
	quizzes := make([]*redis.StringCmd, len(top))
	for i, z := range top {
		quizzes[i] = pipe.HGet(ctx, statsKey(fmt.Sprint(z.Member)), fieldQuizzes)
	}
	if len(top) > 0 {
		if _, err := pipe.Exec(ctx); err != nil && !isMiss(err) {
			return nil, fmt.Errorf("load ranking stats: %w", err)
		}
	}

	entries := make([]domain.RankingEntry, 0, len(top))
	for i, z := range top {
		total, _ := quizzes[i].Int()
		entries = append(entries, domain.RankingEntry{
			Position:     i + 1,
			UserID:       fmt.Sprint(z.Member),
			BestScore:    int(z.Score),
			TotalQuizzes: total,
		})
	}
	return entries, nil
}

// hashReader is satisfied by both *redis.Client and *redis.Tx.
type hashReader interface {
	HMGet(ctx context.Context, key string, fields ...string) *redis.SliceCmd
}

func readStats(ctx context.Context, c hashReader, key string) (domain.UserStats, error) {
	values, err := c.HMGet(ctx, key, fieldQuizzes, fieldCorrect, fieldBest).Result()
	if err != nil {
		return domain.UserStats{}, err
	}
	return domain.UserStats{
		TotalQuizzes: parseField(values[0]),
		TotalCorrect: parseField(values[1]),
		BestScore:    parseField(values[2]),
	}, nil
}

func parseField(v interface{}) int {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func resultsKey(userID string) string {
	return "user:" + userID + ":results"
}

func statsKey(userID string) string {
	return "user:" + userID + ":stats"
}
