package metrics

import (
	"sync"
	"time"
)

// Metric is a structured metric event emitted within the application.
type Metric struct {
	Timestamp time.Time
	Component string
	Name      string
	Value     float64
}

// Handler consumes structured metric events for downstream processing
// (dashboard store, CloudWatch publisher).
type Handler func(Metric)

// HandlerID uniquely identifies a registered handler.
type HandlerID uint64

var (
	handlersMu    sync.RWMutex
	handlers      = make(map[HandlerID]Handler)
	nextHandlerID HandlerID
)

// RegisterHandler registers a handler that receives every emitted metric.
// A zero identifier is returned when the handler is nil.
func RegisterHandler(h Handler) HandlerID {
	if h == nil {
		return 0
	}

	handlersMu.Lock()
	defer handlersMu.Unlock()

	nextHandlerID++
	id := nextHandlerID
	handlers[id] = h
	return id
}

// UnregisterHandler removes the handler associated with the identifier.
func UnregisterHandler(id HandlerID) {
	if id == 0 {
		return
	}

	handlersMu.Lock()
	delete(handlers, id)
	handlersMu.Unlock()
}

// Emit dispatches one metric event to every registered handler. Emitting
// with no handlers registered is a no-op, so library code can emit
// unconditionally.
func Emit(component, name string, value float64) {
	if name == "" {
		return
	}

	metric := Metric{
		Timestamp: time.Now(),
		Component: component,
		Name:      name,
		Value:     value,
	}

	handlersMu.RLock()
	snapshot := make([]Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			snapshot = append(snapshot, h)
		}
	}
	handlersMu.RUnlock()

	for _, h := range snapshot {
		h(metric)
	}
}
