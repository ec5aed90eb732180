// broker/broker.go
package broker

import (
	"sync"
)

const defaultBuffer = 8

// Broker is an in-process topic fan-out. Publish never blocks: a subscriber
// whose buffer is full misses the message.
type Broker struct {
	mu     sync.RWMutex
	topics map[string]map[<-chan interface{}]chan interface{}
	buffer int
}

func NewBroker() *Broker {
	return NewBrokerWithBuffer(defaultBuffer)
}

func NewBrokerWithBuffer(buffer int) *Broker {
	if buffer < 1 {
		buffer = 1
	}
	return &Broker{
		topics: make(map[string]map[<-chan interface{}]chan interface{}),
		buffer: buffer,
	}
}

func (b *Broker) Subscribe(topic string) <-chan interface{} {
	ch := make(chan interface{}, b.buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[<-chan interface{}]chan interface{})
		b.topics[topic] = subs
	}
	subs[ch] = ch
	return ch
}

// Unsubscribe closes ch. Unknown channels are ignored.
func (b *Broker) Unsubscribe(topic string, ch <-chan interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.topics[topic]
	send, ok := subs[ch]
	if !ok {
		return
	}
	delete(subs, ch)
	close(send)
	if len(subs) == 0 {
		delete(b.topics, topic)
	}
}

func (b *Broker) Publish(topic string, msg interface{}) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, send := range b.topics[topic] {
		select {
		case send <- msg:
		default:
		}
	}
}

func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}
