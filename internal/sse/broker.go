// Package sse implements a Server-Sent Events broker that pushes mark and
// chapter changes to readers.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/starford/versemark/internal/models"
)

// Event types.
const (
	TypeMarkCreated     = "mark.created"
	TypeMarkUpdated     = "mark.updated"
	TypeMarkDeleted     = "mark.deleted"
	TypeVersesHidden    = "highlights.hidden"
	TypeLibraryUpdated  = "library.updated"
	chapterEventPrefix  = "chapter."
	defaultClientBuffer = 64
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`

	// Scope is the chapter path the event belongs to. Empty reaches every
	// client.
	Scope string `json:"-"`
}

type chapterEventReq struct {
	kind string
	loc  models.Location
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop goroutine owns the client set, the event sequence and
// the library throttle timestamp. Public methods talk to it over channels.
type Broker struct {
	libraryMin time.Duration

	subscribeCh    chan subscription
	unsubscribeCh  chan chan []byte
	publishCh      chan Event
	chapterEventCh chan chapterEventReq
	countReqCh     chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits library.updated at most once per
// libraryThrottle.
func NewBroker(libraryThrottle time.Duration) *Broker {
	if libraryThrottle <= 0 {
		libraryThrottle = 2 * time.Second
	}

	b := &Broker{
		libraryMin:     libraryThrottle,
		subscribeCh:    make(chan subscription),
		unsubscribeCh:  make(chan chan []byte),
		publishCh:      make(chan Event, 256),
		chapterEventCh: make(chan chapterEventReq, 256),
		countReqCh:     make(chan chan int),
		stopCh:         make(chan struct{}),
		stopped:        make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	// client channel -> chapter path it follows, "" for all
	clients := make(map[chan []byte]string)
	var lastLibrary time.Time
	var seq uint64

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		raw := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload))

		for ch, scope := range clients {
			if scope != "" && event.Scope != "" && scope != event.Scope {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than block the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.scope

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.chapterEventCh:
			broadcast(Event{Type: chapterEventPrefix + req.kind, Data: req.loc, Scope: req.loc.Path()})

			now := time.Now()
			if now.Sub(lastLibrary) >= b.libraryMin {
				lastLibrary = now
				broadcast(Event{Type: TypeLibraryUpdated, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the event loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

type subscription struct {
	ch    chan []byte
	scope string
}

// Subscribe adds a client that receives every event.
func (b *Broker) Subscribe() chan []byte {
	return b.subscribe("")
}

// SubscribeChapter adds a client that receives events of loc and events
// that belong to no chapter.
func (b *Broker) SubscribeChapter(loc models.Location) chan []byte {
	return b.subscribe(loc.Path())
}

func (b *Broker) subscribe(scope string) chan []byte {
	ch := make(chan []byte, defaultClientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, scope: scope}:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishMark broadcasts a mark change of the given type.
func (b *Broker) PublishMark(eventType string, m models.Mark) {
	e := Event{Type: eventType, Data: models.ToWire(m)}
	if refs := m.Common().Verses.Refs(); len(refs) > 0 {
		e.Scope = models.LocationOf(refs[0]).Path()
	}
	b.Publish(e)
}

// PublishHidden broadcasts hidden marked verse ids.
func (b *Broker) PublishHidden(markedVerseIDs []string) {
	b.Publish(Event{Type: TypeVersesHidden, Data: map[string][]string{"markedVerses": markedVerseIDs}})
}

// PublishChapterEvent broadcasts chapter.<kind> and a throttled
// library.updated. Its signature matches storage.EventCallback.
func (b *Broker) PublishChapterEvent(kind string, loc models.Location) {
	if b.closed.Load() {
		return
	}
	select {
	case b.chapterEventCh <- chapterEventReq{kind: kind, loc: loc}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). The optional
// ?location=version/book/chapter query narrows the stream to one chapter.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var ch chan []byte
	if q := r.URL.Query().Get("location"); q != "" {
		loc, err := parseLocation(q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ch = b.SubscribeChapter(loc)
	} else {
		ch = b.Subscribe()
	}
	defer b.Unsubscribe(ch)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}

func parseLocation(s string) (models.Location, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return models.Location{}, fmt.Errorf("location %q: want version/book/chapter", s)
	}
	loc := models.Location{VersionID: parts[0], BookID: parts[1], ChapterID: parts[2]}
	return loc, loc.Validate()
}
