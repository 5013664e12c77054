// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mqtt publishes temperature samples to an MQTT broker and
// announces the sensor node to Home Assistant through MQTT discovery.
package mqtt

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/hardwarelibs/devices/internal/store"
)

// Config holds the publisher configuration.
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	// NodeName names this sensor in topics and discovery payloads.
	NodeName string
}

// Publisher pushes samples to a broker. While connected, the node reports
// "online" on its availability topic; the broker flips it to "offline"
// through the will when the connection dies.
type Publisher struct {
	client pahomqtt.Client
	cfg    Config
	log    *logrus.Entry
}

// NewPublisher connects to the broker and publishes the discovery and
// availability messages. The connection retries in the background after the
// initial attempt succeeds.
func NewPublisher(cfg Config, logger *logrus.Logger) (*Publisher, error) {
	p := &Publisher{
		cfg: cfg,
		log: logger.WithField("component", "mqtt"),
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(p.availabilityTopic(), "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			p.log.Info("connected")
			p.publish(p.availabilityTopic(), []byte("online"), true)
			msg := buildDiscovery(p.cfg)
			p.publish(msg.Topic, msg.Payload, true)
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			p.log.WithError(err).Warn("connection lost")
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	p.client = client
	return p, nil
}

// PublishSample pushes one reading to the node's state topic.
func (p *Publisher) PublishSample(s store.Sample) {
	p.publish(p.stateTopic(), statePayload(s), true)
}

// Stop marks the node offline and disconnects.
func (p *Publisher) Stop() {
	token := p.client.Publish(p.availabilityTopic(), 1, true, []byte("offline"))
	token.WaitTimeout(2 * time.Second)
	p.client.Disconnect(1000)
	p.log.Info("stopped")
}

func (p *Publisher) publish(topic string, payload []byte, retained bool) {
	token := p.client.Publish(topic, 1, retained, payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			p.log.WithField("topic", topic).Warn("publish timeout")
		} else if err := token.Error(); err != nil {
			p.log.WithField("topic", topic).WithError(err).Warn("publish error")
		}
	}()
}

func (p *Publisher) stateTopic() string {
	return stateTopic(p.cfg)
}

func (p *Publisher) availabilityTopic() string {
	return availabilityTopic(p.cfg)
}
