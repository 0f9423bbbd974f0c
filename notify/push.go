package notify

import (
	"encoding/json"
	"log"
	"net/http"

	"coinwatch/config"
	"coinwatch/models"
	"coinwatch/store"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// PushSender delivers Web Push notifications to every stored subscription.
// Failures are isolated per subscriber; an endpoint that reports itself
// gone (404/410) is pruned on the spot.
type PushSender struct {
	Store store.Store
	Cfg   *config.Config
}

func NewPushSender(st store.Store, cfg *config.Config) *PushSender {
	return &PushSender{Store: st, Cfg: cfg}
}

func (p *PushSender) SendToAll(payload any) {
	if p.Cfg.VAPIDPublicKey == "" || p.Cfg.VAPIDPrivateKey == "" {
		log.Println("⚠️  VAPID keys not set; skipping push notifications")
		return
	}

	subs, err := p.Store.ListSubscriptions()
	if err != nil {
		log.Printf("❌ Failed to load push subscriptions: %v", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("❌ Failed to encode push payload: %v", err)
		return
	}

	for _, sub := range subs {
		p.send(sub, body)
	}
}

func (p *PushSender) send(sub models.PushSubscription, body []byte) {
	resp, err := webpush.SendNotification(body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      p.Cfg.VAPIDSubject,
		VAPIDPublicKey:  p.Cfg.VAPIDPublicKey,
		VAPIDPrivateKey: p.Cfg.VAPIDPrivateKey,
		TTL:             60,
	})
	if err != nil {
		log.Printf("❌ Error sending push to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		if err := p.Store.RemoveSubscription(sub.Endpoint); err != nil {
			log.Printf("❌ Failed to prune subscription %s: %v", sub.Endpoint, err)
		} else {
			log.Printf("⚠️  Pruned dead push subscription %s", sub.Endpoint)
		}
	}
}
