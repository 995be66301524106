//go:build integration

package trigger

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"readwise_digest/internal/domain"
)

type countingRunner struct {
	runs atomic.Int32
}

func (r *countingRunner) Run(_ context.Context) (*domain.RunResult, error) {
	r.runs.Add(1)
	return &domain.RunResult{Path: "content/posts/test.md", CommitSHA: "abc"}, nil
}

type TriggerIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *TriggerIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *TriggerIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestTriggerIntegrationSuite(t *testing.T) {
	suite.Run(t, new(TriggerIntegrationSuite))
}

func (s *TriggerIntegrationSuite) TestListen_RunsOncePerMessage() {
	trigger, err := NewRabbitMQ(Config{URL: s.amqpURL, Queue: "digest_runs_test"}, s.logger)
	s.Require().NoError(err)
	defer trigger.Close()

	runner := &countingRunner{}

	listenCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- trigger.Listen(listenCtx, runner)
	}()

	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	// Payload content is irrelevant: arrival alone triggers a run.
	err = ch.PublishWithContext(s.ctx, "", "digest_runs_test", false, false, amqp.Publishing{
		ContentType: "text/plain",
		Body:        []byte("run now"),
	})
	s.Require().NoError(err)

	s.Eventually(func() bool {
		return runner.runs.Load() == 1
	}, 10*time.Second, 100*time.Millisecond)

	cancel()
	s.ErrorIs(<-done, context.Canceled)
}
