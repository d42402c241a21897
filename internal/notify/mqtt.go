package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

const publishTimeout = 5 * time.Second

// Topic is where a screen's player subscribes for pushed notifications.
func Topic(screenID string) string {
	return fmt.Sprintf("screens/%s/notifications", screenID)
}

var connectHandler mqtt.OnConnectHandler = func(client mqtt.Client) {
	log.Info().Msg("connected to MQTT broker")
}

var connectLostHandler mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	log.Warn().Err(err).Msg("MQTT connection lost")
}

// MQTTPublisher publishes each notification to the screen's topic.
type MQTTPublisher struct {
	client mqtt.Client
}

// NewMQTTPublisher connects to brokerURL. The client reconnects on its own
// after the initial connection succeeds.
func NewMQTTPublisher(brokerURL, clientID string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.OnConnect = connectHandler
	opts.OnConnectionLost = connectLostHandler

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return &MQTTPublisher{client: client}, nil
}

// NewMQTTPublisherWithClient wraps an already configured client.
func NewMQTTPublisherWithClient(client mqtt.Client) *MQTTPublisher {
	return &MQTTPublisher{client: client}
}

func (p *MQTTPublisher) Publish(ctx context.Context, n model.DeviceNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	timeout := publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	topic := Topic(n.ScreenID)
	token := p.client.Publish(topic, 1, false, body)
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	log.Debug().Str("topic", topic).Str("notification_id", n.ID).Msg("notification published over MQTT")
	return nil
}

func (p *MQTTPublisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
		log.Info().Msg("MQTT client disconnected")
	}
}
