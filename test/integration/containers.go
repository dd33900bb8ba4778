//go:build integration

// Package integration runs the storefront against real Postgres, Redis and
// Kafka containers.
package integration

import (
	"context"

	"github.com/pkg/errors"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/dmehra2102/watchstore/migrations"
)

type Env struct {
	PG    *postgres.PostgresContainer
	Redis *tcredis.RedisContainer
	Kafka *kafka.KafkaContainer

	PGURL     string
	RedisURL  string
	KafkaAddr []string
}

// Setup starts every container and applies the schema. On error the
// containers already started are terminated.
func Setup(ctx context.Context) (_ *Env, err error) {
	e := &Env{}
	defer func() {
		if err != nil {
			e.Teardown(context.Background())
		}
	}()

	e.PG, err = postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("watchstore"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "start postgres")
	}
	if e.PGURL, err = e.PG.ConnectionString(ctx, "sslmode=disable"); err != nil {
		return nil, errors.Wrap(err, "postgres url")
	}
	if err = migrations.Apply(e.PGURL, 0); err != nil {
		return nil, err
	}

	e.Redis, err = tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return nil, errors.Wrap(err, "start redis")
	}
	if e.RedisURL, err = e.Redis.ConnectionString(ctx); err != nil {
		return nil, errors.Wrap(err, "redis url")
	}

	e.Kafka, err = kafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		kafka.WithClusterID("watchstore-test"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "start kafka")
	}
	if e.KafkaAddr, err = e.Kafka.Brokers(ctx); err != nil {
		return nil, errors.Wrap(err, "kafka brokers")
	}
	return e, nil
}

func (e *Env) Teardown(ctx context.Context) {
	if e.Kafka != nil {
		_ = e.Kafka.Terminate(ctx)
	}
	if e.Redis != nil {
		_ = e.Redis.Terminate(ctx)
	}
	if e.PG != nil {
		_ = e.PG.Terminate(ctx)
	}
}
