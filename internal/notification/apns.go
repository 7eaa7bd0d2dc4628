package notification

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"
)

// APNSPusher sends push notifications to iOS devices. A pusher built without
// a certificate skips every push.
type APNSPusher struct {
	client *apns2.Client
	topic  string
}

// NewAPNSPusher loads the .p12 certificate at certPath
func NewAPNSPusher(certPath, password, topic string, production bool) (*APNSPusher, error) {
	if certPath == "" {
		log.Warn().Msg("APNs certificate not configured, push notifications disabled")
		return &APNSPusher{topic: topic}, nil
	}

	cert, err := certificate.FromP12File(certPath, password)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs certificate: %w", err)
	}

	client := apns2.NewClient(cert)
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNSPusher{client: client, topic: topic}, nil
}

// Push delivers an alert to deviceToken
func (p *APNSPusher) Push(ctx context.Context, deviceToken, title, body string) error {
	if p.client == nil || deviceToken == "" {
		return nil
	}

	n := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       p.topic,
		Payload:     payload.NewPayload().AlertTitle(title).AlertBody(body).Sound("default"),
	}

	res, err := p.client.PushWithContext(ctx, n)
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("push rejected: %d %s", res.StatusCode, res.Reason)
	}
	return nil
}
