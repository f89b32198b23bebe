package services

import (
	"sync"

	"fitmatch/internal/domain/entities"
)

const subscriberBuffer = 16

// Broadcaster fans out tracking snapshots to the subscribers of a delivery.
//
// Go Learning Note — Non-Blocking Sends:
// Publish runs on the simulation goroutine, so it must never wait for a slow
// WebSocket client. `select { case ch <- v: default: }` drops the update
// when the subscriber's buffer is full; the next tick carries a fresher
// position anyway.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[string]map[chan *entities.TrackingSnapshot]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[string]map[chan *entities.TrackingSnapshot]struct{}),
	}
}

// Subscribe registers a subscriber for deliveryID. The returned function
// unsubscribes; it is safe to call after Close.
func (b *Broadcaster) Subscribe(deliveryID string) (<-chan *entities.TrackingSnapshot, func()) {
	ch := make(chan *entities.TrackingSnapshot, subscriberBuffer)

	b.mu.Lock()
	if _, exists := b.subs[deliveryID]; !exists {
		b.subs[deliveryID] = make(map[chan *entities.TrackingSnapshot]struct{})
	}
	b.subs[deliveryID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if set, ok := b.subs[deliveryID]; ok {
				if _, ok := set[ch]; ok {
					delete(set, ch)
					close(ch)
				}
				if len(set) == 0 {
					delete(b.subs, deliveryID)
				}
			}
		})
	}
}

// Publish delivers the snapshot to every subscriber without blocking.
func (b *Broadcaster) Publish(snapshot *entities.TrackingSnapshot) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[snapshot.DeliveryID] {
		cp := *snapshot
		select {
		case ch <- &cp:
		default:
		}
	}
}

// Close closes every subscriber channel of deliveryID.
func (b *Broadcaster) Close(deliveryID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[deliveryID] {
		close(ch)
	}
	delete(b.subs, deliveryID)
}

// CloseAll closes every subscriber.
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, set := range b.subs {
		for ch := range set {
			close(ch)
		}
		delete(b.subs, id)
	}
}

func (b *Broadcaster) SubscriberCount(deliveryID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[deliveryID])
}
