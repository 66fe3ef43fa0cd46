package types

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RewardKey is the redis hash holding the rewards of one experiment run
func RewardKey(comparisonID string, run int, experiment string) string {
	return fmt.Sprintf("chain:%s:run%d:%s", comparisonID, run, experiment)
}

// rewardFields flattens a reward dataset into hash fields
func rewardFields(dataSet *RewardDataSet) map[string]interface{} {
	fields := make(map[string]interface{})
	for _, e := range dataSet.Train {
		fields["train:"+strconv.Itoa(e.Epoch)] = e.MeanReward
	}
	for _, e := range dataSet.Test {
		fields["test:"+strconv.Itoa(e.Epoch)] = e.MeanReward
	}
	if last, ok := dataSet.LastTest(); ok {
		fields["final"] = last.MeanReward
	}
	return fields
}

// RedisRewardPublisher stores the reward datasets of every run in redis hashes
// Errors are logged, a missing redis server does not stop the comparison
func RedisRewardPublisher(cli redis.Cmdable, comparisonID string, logger *slog.Logger) Comparator {
	return func(run int, names []string, ds []DataSet) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		for i := 0; i < len(names); i++ {
			dataSet, ok := ds[i].(*RewardDataSet)
			if !ok {
				continue
			}
			fields := rewardFields(dataSet)
			if len(fields) == 0 {
				continue
			}
			key := RewardKey(comparisonID, run, names[i])
			if err := cli.HSet(ctx, key, fields).Err(); err != nil {
				logger.Warn("could not publish rewards", "key", key, "error", err)
				continue
			}
			logger.Debug("published rewards", "key", key, "fields", len(fields))
		}
	}
}
