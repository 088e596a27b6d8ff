//go:build integration

package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"dealwatch/internal/domain"
	"dealwatch/testdata/utils"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
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

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func (s *RabbitMQIntegrationSuite) TestPublisher_Connection() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange",
		RoutingKey: "test-routing-key",
		QueueName:  "test-queue",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.NoError(err)
	s.NotNil(pub)

	err = pub.Close()
	s.NoError(err)
}

func (s *RabbitMQIntegrationSuite) TestPublisher_PublishNewDeal() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-new",
		RoutingKey: "test-routing-key-new",
		QueueName:  "test-queue-new",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	now := time.Now().Truncate(time.Millisecond)
	deal := &domain.Deal{
		ID:           1,
		ExternalID:   "123456789",
		CategoryID:   7,
		Title:        "Pozemok 5000 m2",
		Description:  utils.Ptr("Predám pozemok"),
		CurrentPrice: utils.Ptr(25000.0),
		Location:     utils.Ptr("Nitra"),
		URL:          "https://reality.bazos.sk/inzerat/123456789/x.php",
		FirstSeenAt:  now,
		LastSeenAt:   now,
		IsActive:     true,
	}

	err = pub.PublishNewDeal(s.ctx, deal)
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.NotNil(msg)
	s.Equal("application/json", msg.ContentType)

	var received DealMessage
	err = json.Unmarshal(msg.Body, &received)
	s.NoError(err)
	s.Equal("new", received.Action)
	s.Equal("123456789", received.Deal.ExternalID)
	s.Equal("Pozemok 5000 m2", received.Deal.Title)
	s.Nil(received.OldPrice)
	s.False(received.Timestamp.IsZero())
}

func (s *RabbitMQIntegrationSuite) TestPublisher_PublishPriceChange() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-price",
		RoutingKey: "test-routing-key-price",
		QueueName:  "test-queue-price",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	deal := &domain.Deal{
		ID:           2,
		ExternalID:   "987654321",
		CategoryID:   7,
		Title:        "Pozemok lacnejsie",
		CurrentPrice: utils.Ptr(22000.0),
		URL:          "https://reality.bazos.sk/inzerat/987654321/x.php",
		IsActive:     true,
	}

	err = pub.PublishPriceChange(s.ctx, deal, utils.Ptr(25000.0))
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.NotNil(msg)

	var received DealMessage
	err = json.Unmarshal(msg.Body, &received)
	s.NoError(err)
	s.Equal("price_change", received.Action)
	s.Equal("987654321", received.Deal.ExternalID)
	s.Require().NotNil(received.OldPrice)
	s.Equal(25000.0, *received.OldPrice)
	s.Require().NotNil(received.Deal.CurrentPrice)
	s.Equal(22000.0, *received.Deal.CurrentPrice)
}

func (s *RabbitMQIntegrationSuite) TestPublisher_MessagePersistence() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-persist",
		RoutingKey: "test-routing-key-persist",
		QueueName:  "test-queue-persist",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	deal := &domain.Deal{
		ExternalID: "111",
		Title:      "Persistent Deal",
		URL:        "https://example.com/persist",
	}

	err = pub.PublishNewDeal(s.ctx, deal)
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.NotNil(msg)
	s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)
}

func (s *RabbitMQIntegrationSuite) consumeMessage(cfg Config) *amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	msgs, err := ch.Consume(cfg.QueueName, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case msg := <-msgs:
		return &msg
	case <-time.After(5 * time.Second):
		s.Fail("Timeout waiting for message")
		return nil
	}
}
