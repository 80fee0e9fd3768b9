// Package audit buffers structured security events and flushes them
// periodically. Downstream shipping is out of scope; the guarantee is that
// every security decision appends exactly one event before returning.
package audit

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type EventType string

const (
	EventChatWidgetInit       EventType = "chat_widget_init"
	EventConfigurationAccess  EventType = "configuration_access"
	EventDomainValidation     EventType = "domain_validation"
	EventJWTValidation        EventType = "jwt_validation"
	EventRateLimitExceeded    EventType = "rate_limit_exceeded"
	EventSecretRotation       EventType = "secret_rotation"
	EventSecurityPolicyChange EventType = "security_policy_change"
	EventSessionCreation      EventType = "session_creation"
	EventSessionValidation    EventType = "session_validation"
	EventSuspiciousActivity   EventType = "suspicious_activity"
	EventUnauthorizedAccess   EventType = "unauthorized_access"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeWarning Outcome = "warning"
)

type Event struct {
	Type           EventType
	OrganizationID string
	UserIdentifier string
	Domain         string
	IP             string
	UserAgent      string
	RequestID      string
	Severity       Severity
	Outcome        Outcome
	Timestamp      time.Time
	Details        map[string]any
}

// Recorder is the dependency every component emits through. Tests inject a
// capturing fake.
type Recorder interface {
	Record(ev Event)
}

const (
	defaultMaxQueue      = 1000
	defaultFlushInterval = 5 * time.Second
)

// Sink is the process-wide event buffer, constructed once at startup and
// handed to every component that emits events.
type Sink struct {
	log *zap.SugaredLogger

	mu    sync.Mutex
	queue []Event

	done      chan struct{}
	closeOnce sync.Once
	now       func() time.Time
}

func NewSink(log *zap.SugaredLogger) *Sink {
	s := &Sink{log: log, done: make(chan struct{}), now: time.Now}
	go s.run()
	return s
}

func (s *Sink) run() {
	t := time.NewTicker(defaultFlushInterval)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-t.C:
			s.Flush()
		}
	}
}

// Record appends one event. Critical events flush immediately; beyond the
// queue cap the oldest entries are dropped.
func (s *Sink) Record(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now()
	}
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	if len(s.queue) > defaultMaxQueue {
		s.queue = s.queue[len(s.queue)-defaultMaxQueue:]
	}
	s.mu.Unlock()

	s.logEvent(ev)
	if ev.Severity == SeverityCritical {
		s.Flush()
	}
}

// Flush drains the queue and writes an aggregated summary.
func (s *Sink) Flush() {
	s.mu.Lock()
	events := s.queue
	s.queue = nil
	s.mu.Unlock()

	if len(events) == 0 {
		return
	}
	byType := map[EventType]int{}
	bySeverity := map[Severity]int{}
	byOutcome := map[Outcome]int{}
	for _, ev := range events {
		byType[ev.Type]++
		bySeverity[ev.Severity]++
		byOutcome[ev.Outcome]++
	}
	s.log.Infow("security events flushed",
		"total", len(events),
		"start", events[0].Timestamp,
		"end", events[len(events)-1].Timestamp,
		"types", byType,
		"severities", bySeverity,
		"outcomes", byOutcome,
	)
}

// Close stops the flush loop and drains remaining events.
func (s *Sink) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.Flush()
	})
}

func (s *Sink) logEvent(ev Event) {
	kv := []any{
		"org", ev.OrganizationID,
		"outcome", ev.Outcome,
		"severity", ev.Severity,
		"user", ev.UserIdentifier,
		"domain", ev.Domain,
		"ip", ev.IP,
		"details", ev.Details,
	}
	msg := "security audit: " + string(ev.Type)
	switch ev.Severity {
	case SeverityCritical, SeverityHigh:
		s.log.Errorw(msg, kv...)
	case SeverityMedium:
		s.log.Warnw(msg, kv...)
	default:
		s.log.Infow(msg, kv...)
	}
}
