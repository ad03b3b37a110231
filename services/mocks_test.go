package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"payment-service/models"
)

// ---- mock gateway ----

type mockGateway struct {
	mu          sync.Mutex
	orderErr    error
	payment     models.GatewayPayment
	paymentErr  error
	orderSpecs  []models.GatewayOrderSpec
	fetchedIDs  []string
	orderIDSeed int
}

func (m *mockGateway) CreateOrder(_ context.Context, spec models.GatewayOrderSpec) (models.GatewayOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orderSpecs = append(m.orderSpecs, spec)
	if m.orderErr != nil {
		return models.GatewayOrder{}, m.orderErr
	}
	m.orderIDSeed++
	return models.GatewayOrder{
		ID:       fmt.Sprintf("order_%03d", m.orderIDSeed),
		Entity:   "order",
		Amount:   spec.Amount,
		Currency: spec.Currency,
		Receipt:  spec.Receipt,
		Status:   "created",
		Notes:    spec.Notes,
	}, nil
}

func (m *mockGateway) FetchPayment(_ context.Context, paymentID string) (models.GatewayPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchedIDs = append(m.fetchedIDs, paymentID)
	return m.payment, m.paymentErr
}

func (m *mockGateway) orderCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orderSpecs)
}

func (m *mockGateway) fetchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fetchedIDs)
}

// ---- mock order cache ----

type memoryOrderCache struct {
	mu      sync.Mutex
	entries   map[string]models.OrderResult
	ttls      map[string]time.Duration
	byOrderID map[string]string
	forgotten []string
	getErr    error
	setErr    error
}

func newMemoryOrderCache() *memoryOrderCache {
	return &memoryOrderCache{
		entries:   make(map[string]models.OrderResult),
		ttls:      make(map[string]time.Duration),
		byOrderID: make(map[string]string),
	}
}

func (c *memoryOrderCache) Get(_ context.Context, key string) (*models.OrderResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	o, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &o, true, nil
}

func (c *memoryOrderCache) Set(_ context.Context, key string, order *models.OrderResult, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[key] = *order
	c.ttls[key] = ttl
	c.byOrderID[order.OrderID] = key
	return nil
}

func (c *memoryOrderCache) Forget(_ context.Context, orderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forgotten = append(c.forgotten, orderID)
	if key, ok := c.byOrderID[orderID]; ok {
		delete(c.entries, key)
		delete(c.ttls, key)
		delete(c.byOrderID, orderID)
	}
	return nil
}

// ---- mock SNS publisher ----

type mockSNS struct {
	mu         sync.Mutex
	publishErr error
	topics     []string
	messages   [][]byte
}

func (m *mockSNS) Publish(_ context.Context, topicArn string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics = append(m.topics, topicArn)
	m.messages = append(m.messages, message)
	return m.publishErr
}

// ---- mock metrics ----

type mockMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *mockMetrics) RecordCount(_ context.Context, name string, _ map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[name]++
	return nil
}

var errGatewayDown = errors.New("dial tcp: connection refused")
