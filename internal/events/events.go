// Package events is an in-process notification channel.
//
// Components publish what changed (a project was created, an employee was
// edited) and views that cache lists subscribe to know when to refetch.
package events

import "sync"

// Kind names a change.
type Kind string

const (
	ProjectCreated    Kind = "project.created"
	EmployeeAdded     Kind = "employee.added"
	EmployeeUpdated   Kind = "employee.updated"
	EmployeeDeleted   Kind = "employee.deleted"
	TaskStatusChanged Kind = "task.status_changed"
)

// Event describes one change. Only the id relevant to Kind is set.
type Event struct {
	Kind       Kind
	ProjectID  int64
	EmployeeID int64
	TaskID     int64
}

// Publisher accepts events.
type Publisher interface {
	Publish(Event)
}

// Bus fans events out to subscribers. The zero value is not usable; call NewBus.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: map[int]chan Event{}}
}

// Subscribe returns a channel receiving every event published afterwards and
// a function that ends the subscription and closes the channel.
// Events are dropped for a subscriber whose buffer is full.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, buffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// Publish delivers e to every subscriber without blocking.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Discard is a Publisher that drops everything.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}
