package reminder

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/store"
)

// ErrExpired is returned when a push subscription is no longer valid (410 Gone).
var ErrExpired = errors.New("push subscription expired")

// dispatchInterval is how often armed reminders are checked for delivery.
const dispatchInterval = 30 * time.Second

// Payload is the JSON sent to the push service.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag,omitempty"`
}

// Config holds VAPID configuration.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
}

// PushService implements Service on top of web push. Armed reminders are
// persisted in the reminders table; a dispatch loop delivers them once their
// fire time passes, then forgets them.
type PushService struct {
	mu         sync.RWMutex
	cfg        Config
	reminders  *store.ReminderStore
	subs       *store.PushStore
	authorized bool
	logger     *slog.Logger
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewPushService creates a web-push reminder service.
func NewPushService(cfg Config, reminders *store.ReminderStore, subs *store.PushStore, logger *slog.Logger) *PushService {
	s := &PushService{
		cfg:       cfg,
		reminders: reminders,
		subs:      subs,
		logger:    logger,
	}
	s.Refresh()
	return s
}

// VAPIDPublicKey returns the VAPID public key for client-side subscription.
func (s *PushService) VAPIDPublicKey() string {
	return s.cfg.VAPIDPublicKey
}

// IsAuthorized reports the cached authorization state: VAPID keys configured
// and at least one registered browser subscription.
func (s *PushService) IsAuthorized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authorized
}

// Refresh re-evaluates the authorization state.
func (s *PushService) Refresh() {
	authorized := false
	if s.cfg.VAPIDPublicKey != "" && s.cfg.VAPIDPrivateKey != "" {
		if count, err := s.subs.Count(); err == nil && count > 0 {
			authorized = true
		}
	}

	s.mu.Lock()
	s.authorized = authorized
	s.mu.Unlock()
}

// Arm persists a one-shot reminder, replacing any with the same id.
func (s *PushService) Arm(id string, fireAt time.Time, title, body string) error {
	return s.reminders.Upsert(id, fireAt, title, body)
}

// Disarm removes the given reminder ids. Unknown ids are ignored.
func (s *PushService) Disarm(ids []string) error {
	return s.reminders.Delete(ids)
}

// Start begins the dispatch loop.
func (s *PushService) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(dispatchInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(time.Now())
			}
		}
	}()
}

// Stop gracefully stops the dispatch loop.
func (s *PushService) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *PushService) tick(now time.Time) {
	due, err := s.reminders.ListDue(now)
	if err != nil {
		s.logger.Error("list due reminders", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	subs, err := s.subs.List()
	if err != nil {
		s.logger.Error("list subscriptions", "error", err)
		return
	}

	fired := make([]string, 0, len(due))
	for _, r := range due {
		for _, sub := range subs {
			if err := s.send(&sub, Payload{Title: r.Title, Body: r.Body, Tag: r.ID}); err != nil {
				if errors.Is(err, ErrExpired) {
					s.subs.DeleteByEndpoint(sub.Endpoint)
				} else {
					s.logger.Error("send reminder", "reminder_id", r.ID, "error", err)
				}
			}
		}
		// Fire-and-forget: the reminder is gone whether or not every
		// delivery succeeded.
		fired = append(fired, r.ID)
	}

	if err := s.reminders.Delete(fired); err != nil {
		s.logger.Error("clear fired reminders", "error", err)
	}
}

func (s *PushService) send(sub *model.PushSubscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	subscriber := s.cfg.Subscriber
	if subscriber == "" {
		subscriber = "mailto:noreply@larder.local"
	}

	resp, err := webpush.SendNotification(data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		Subscriber:      subscriber,
		TTL:             86400,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		return ErrExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}

	return nil
}

// GenerateVAPIDKeys generates a new ECDSA P-256 key pair for VAPID.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pubBytes := elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y)
	publicKey = base64.RawURLEncoding.EncodeToString(pubBytes)
	privateKey = base64.RawURLEncoding.EncodeToString(key.D.Bytes())

	return publicKey, privateKey, nil
}
