package rabbitmq

import (
	"errors"
	"time"

	"project-pulse/config"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const dialAttempts = 5

func NewConnection(rmqCfg *config.RabbitMQConfig, logger *zerolog.Logger) (*amqp091.Connection, error) {

	var conn *amqp091.Connection
	var err error
	for i := range dialAttempts {
		conn, err = amqp091.Dial(rmqCfg.BrokerLink)
		if err == nil {
			return conn, nil
		}
		logger.Warn().Err(err).Int("attempt", i+1).Msg("rabbitmq connection attempt failed")
		time.Sleep(2 * time.Second)
	}
	logger.Error().Err(err).Int("attempts", dialAttempts).Msg("failed to connect to rabbitmq")
	return nil, errors.New("failed to connect to rabbitmq")
}

// SetupTopology declares the alert exchange. Queues belong to consumers.
func SetupTopology(conn *amqp091.Connection, rmqCfg *config.RabbitMQConfig) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	return ch.ExchangeDeclare(
		rmqCfg.ExchangeName,
		rmqCfg.ExchangeType,
		true, false, false, false, nil,
	)
}
