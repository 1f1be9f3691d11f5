package notifications

import (
	"context"
	"encoding/json"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/aliasttt/bonusweb-sub000/internal/rewards"
	"github.com/aliasttt/bonusweb-sub000/pkg/logger"
	"github.com/aliasttt/bonusweb-sub000/pkg/pubsub"
)

const publishTimeout = 10 * time.Second

// Publisher pushes reward lifecycle events to Pub/Sub. Publishing is strictly
// best-effort: awards commit whether or not the event goes out.
type Publisher struct {
	rewardEvents *gcppubsub.Publisher
	logg         *logger.Logger
}

// NewPublisher wires the reward events topic. A nil client yields a no-op
// publisher so local environments can run without GCP credentials.
func NewPublisher(client *pubsub.Client, logg *logger.Logger) *Publisher {
	p := &Publisher{logg: logg}
	if client != nil {
		p.rewardEvents = client.RewardEventsPublisher()
	}
	return p
}

// RewardEarned publishes the event asynchronously. The payload is detached
// from the request context so an already-finished request cannot cancel the
// publish mid-flight.
func (p *Publisher) RewardEarned(ctx context.Context, event rewards.RewardEarnedEvent) {
	if p == nil || p.rewardEvents == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logg.Error(ctx, "marshaling reward event", err)
		return
	}

	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		result := p.rewardEvents.Publish(pubCtx, &gcppubsub.Message{
			Data: data,
			Attributes: map[string]string{
				"event_type":  "reward_earned",
				"business_id": event.BusinessID.String(),
			},
		})
		if _, err := result.Get(pubCtx); err != nil {
			p.logg.Error(pubCtx, "publishing reward event", err)
		}
	}()
}
