package validation

import (
	"sync/atomic"
	"time"

	"github.com/ShayCichocki/tiergate/internal/logging"
	"github.com/ShayCichocki/tiergate/pkg/models"
)

// EventType represents the type of validation event.
type EventType string

const (
	// EventDepthResolved is emitted once the tier has been mapped to a depth.
	EventDepthResolved EventType = "depth_resolved"
	// EventPlanned carries the number of checks the run will report in Total.
	EventPlanned EventType = "planned"
	// EventCaseStarted indicates a test case session has started.
	EventCaseStarted EventType = "case_started"
	// EventCaseFinished indicates a test case finished, passed or not.
	EventCaseFinished EventType = "case_finished"
	// EventCompleted indicates the run is over. Metrics is set.
	EventCompleted EventType = "completed"
)

// Event is emitted by the orchestrator while a run progresses.
type Event struct {
	Type     EventType
	Depth    models.Depth
	CaseID   string
	CaseName string
	Passed   bool
	Message  string
	// Total is the number of checks the run will report, when known.
	Total     int
	Metrics   *models.Metrics
	Timestamp time.Time
}

// EventEmitter delivers events to one subscriber without blocking the run
// for long. A full channel drops the event after a short wait.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
	log          *logging.Logger
}

// NewEventEmitter creates an emitter with the given buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{events: make(chan Event, bufferSize)}
}

// Emit sends event, dropping it if the subscriber does not drain in time.
// Safe on a nil emitter.
func (e *EventEmitter) Emit(event Event) {
	if e == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case e.events <- event:
		return
	default:
	}

	select {
	case e.events <- event:
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 {
			e.log.Warn("event channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// DroppedCount returns the total number of events that have been dropped.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns the subscriber side of the emitter.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the events channel. Emit must not be called afterwards.
func (e *EventEmitter) Close() {
	close(e.events)
}
