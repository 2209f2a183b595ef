package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// PublishedEvent represents an event that was captured by the mock publisher
type PublishedEvent struct {
	RoutingKey string
	EventData  interface{}
	Timestamp  time.Time
	RawJSON    []byte
}

// MockPublisher is an in-memory stand-in for the RabbitMQ publisher.
// It stores every published event and never touches a broker.
type MockPublisher struct {
	mu     sync.RWMutex
	events []PublishedEvent
}

// NewMockPublisher creates a new mock publisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		events: make([]PublishedEvent, 0),
	}
}

// Publish stores an event in memory
func (m *MockPublisher) Publish(ctx context.Context, routingKey string, eventData interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Marshal to JSON to simulate real publishing
	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return err
	}

	m.events = append(m.events, PublishedEvent{
		RoutingKey: routingKey,
		EventData:  eventData,
		Timestamp:  time.Now(),
		RawJSON:    jsonData,
	})
	return nil
}

// Close is a no-op for the mock publisher
func (m *MockPublisher) Close() error {
	return nil
}

// GetEventsByKey returns all events with the specified routing key
func (m *MockPublisher) GetEventsByKey(routingKey string) []PublishedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var filtered []PublishedEvent
	for _, event := range m.events {
		if event.RoutingKey == routingKey {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// GetEventCountByKey returns the number of events with the specified routing key
func (m *MockPublisher) GetEventCountByKey(routingKey string) int {
	return len(m.GetEventsByKey(routingKey))
}

// GetLastEventByKey returns the most recently published event with the given routing key
func (m *MockPublisher) GetLastEventByKey(routingKey string) *PublishedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].RoutingKey == routingKey {
			event := m.events[i]
			return &event
		}
	}
	return nil
}

// Reset clears all captured events
func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = make([]PublishedEvent, 0)
}

// AssertEventPublished asserts that at least one event with the given routing key was published
func (m *MockPublisher) AssertEventPublished(t *testing.T, routingKey string) {
	t.Helper()

	if m.GetEventCountByKey(routingKey) == 0 {
		t.Errorf("Expected event with routing key '%s' to be published, but found none", routingKey)
	}
}

// AssertEventNotPublished asserts that no events with the given routing key were published
func (m *MockPublisher) AssertEventNotPublished(t *testing.T, routingKey string) {
	t.Helper()

	if count := m.GetEventCountByKey(routingKey); count > 0 {
		t.Errorf("Expected no events with routing key '%s', but found %d", routingKey, count)
	}
}

// AssertEventCount asserts the exact number of events with the given routing key
func (m *MockPublisher) AssertEventCount(t *testing.T, routingKey string, expected int) {
	t.Helper()

	if count := m.GetEventCountByKey(routingKey); count != expected {
		t.Errorf("Expected %d events with routing key '%s', got %d", expected, routingKey, count)
	}
}
