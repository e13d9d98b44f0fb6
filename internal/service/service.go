package service

import (
	"fmt"

	"brongnal/internal/directory"
	"brongnal/internal/domain"
	"brongnal/internal/metrics"
)

// Service is the C6 facade over a directory.DB. It is safe for concurrent
// use: every method is a thin wrapper around directory calls and holds no
// state of its own.
type Service struct {
	dir *directory.DB
}

// New wraps dir in a Service.
func New(dir *directory.DB) *Service {
	return &Service{dir: dir}
}

// Register registers a new identity, or no-ops if it already exists.
func (s *Service) Register(req domain.RegisterRequest) error {
	err := s.dir.Register(req.Identity, req.IdentityKey, req.SignedPreKey)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("service: register: %w", err)
	}
	metrics.RegistrationsTotal.WithLabelValues("ok").Inc()
	return nil
}

// PublishOneTimeKeys appends a signed batch of one-time prekeys to
// identity's pool.
func (s *Service) PublishOneTimeKeys(req domain.PublishOneTimeKeysRequest) error {
	if err := s.dir.AddOneTimeKeys(req.Identity, req.OneTimeKeys); err != nil {
		return fmt.Errorf("service: publish one time keys: %w", err)
	}
	metrics.OneTimeKeysPublishedTotal.Add(float64(len(req.OneTimeKeys.PreKeys)))
	return nil
}

// RequestPreKeys returns identity's current prekey bundle, popping one
// one-time key if the pool is non-empty.
func (s *Service) RequestPreKeys(identity string) (domain.PreKeyBundle, error) {
	bundle, err := s.dir.RequestPreKeys(identity)
	if err != nil {
		return bundle, fmt.Errorf("service: request pre keys: %w", err)
	}
	label := "absent"
	if bundle.OneTimeKey != nil {
		label = "present"
	}
	metrics.PreKeyBundlesServedTotal.WithLabelValues(label).Inc()

	if n, cerr := s.dir.OneTimeKeyCount(identity); cerr == nil {
		metrics.OneTimeKeysRemaining.WithLabelValues(identity).Set(float64(n))
	}
	return bundle, nil
}

// SendMessage enqueues an initial message for recipient.
func (s *Service) SendMessage(req domain.SendMessageRequest) error {
	if err := s.dir.SendMessage(req.Recipient, req.Message); err != nil {
		return fmt.Errorf("service: send message: %w", err)
	}
	metrics.MessagesQueuedTotal.Inc()
	return nil
}

// RetrieveMessages drains and returns every message queued for identity.
func (s *Service) RetrieveMessages(identity string) ([]domain.InitialMessage, error) {
	msgs, err := s.dir.RetrieveMessages(identity)
	if err != nil {
		return nil, fmt.Errorf("service: retrieve messages: %w", err)
	}
	metrics.MessagesDeliveredTotal.Add(float64(len(msgs)))
	metrics.QueueDepth.WithLabelValues(identity).Set(0)
	return msgs, nil
}
