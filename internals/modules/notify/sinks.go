package notify

import (
	"net/http"

	"project-pulse/config"
	"project-pulse/internals/modules/alert"

	"github.com/rs/zerolog"
)

// BuildSinks returns the enabled sinks in a fixed order: email, slack,
// discord, broker. pub may be nil when the broker is disabled.
func BuildSinks(cfg *config.Config, client *http.Client, pub Publisher, logger *zerolog.Logger) []alert.Sink {
	var sinks []alert.Sink
	n := cfg.Notify

	if n.Email.Enabled {
		sinks = append(sinks, NewEmailSink(n.Email, cfg.ServiceName))
	} else {
		logger.Info().Str("sink", "email").Msg("sink disabled, skipping")
	}

	if n.Slack.Enabled {
		sinks = append(sinks, NewSlackSink(n.Slack.WebhookURL, cfg.ServiceName, client, logger))
	} else {
		logger.Info().Str("sink", "slack").Msg("sink disabled, skipping")
	}

	if n.Discord.Enabled {
		sinks = append(sinks, NewDiscordSink(n.Discord.WebhookURL, cfg.ServiceName, client, logger))
	} else {
		logger.Info().Str("sink", "discord").Msg("sink disabled, skipping")
	}

	switch {
	case n.Broker.Enabled && pub != nil:
		sinks = append(sinks, NewBrokerSink(pub))
	case n.Broker.Enabled:
		logger.Warn().Str("sink", "broker").Msg("broker sink enabled but no publisher is available, skipping")
	default:
		logger.Info().Str("sink", "broker").Msg("sink disabled, skipping")
	}

	return sinks
}
