package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var Rdb *redis.Client

func InitRedis(reddisAddress string, redisUsername string, redisPassword string) *redis.Client {
	Rdb = redis.NewClient(&redis.Options{
		Addr:     reddisAddress,
		Username: redisUsername,
		Password: redisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		// the client reconnects lazily; pairing fails until redis is reachable
		log.Warn().Err(err).Str("address", reddisAddress).Msg("redis not reachable at startup")
	} else {
		log.Info().Str("address", reddisAddress).Msg("connected to redis")
	}
	return Rdb
}
