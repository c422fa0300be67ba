package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
)

// PayloadUpgrade rewrites a decoded payload from one schema version to the next
type PayloadUpgrade func(data map[string]any) (map[string]any, error)

const schemaVersionKey = "schema_version"

// EventSerializer encodes events as JSON and decodes outbox payloads back into
// their registered Go types. Payloads stored under an older schema version are
// upgraded one step at a time before decoding.
type EventSerializer struct {
	mu       sync.RWMutex
	types    map[string]reflect.Type
	upgrades map[string]map[int]PayloadUpgrade // eventType -> from version -> step
}

func NewEventSerializer() *EventSerializer {
	return &EventSerializer{
		types:    make(map[string]reflect.Type),
		upgrades: make(map[string]map[int]PayloadUpgrade),
	}
}

// Register maps eventType to the concrete type of eventInstance
func (s *EventSerializer) Register(eventType string, eventInstance shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := reflect.TypeOf(eventInstance)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s.types[eventType] = t
}

// RegisterUpgrade adds the step that moves eventType payloads from
// fromVersion to fromVersion+1
func (s *EventSerializer) RegisterUpgrade(eventType string, fromVersion int, step PayloadUpgrade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.upgrades[eventType] == nil {
		s.upgrades[eventType] = make(map[int]PayloadUpgrade)
	}
	s.upgrades[eventType][fromVersion] = step
}

func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	return json.Marshal(event)
}

func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	t, ok := s.types[eventType]
	steps := s.upgrades[eventType]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	if len(steps) > 0 {
		upgraded, err := upgrade(data, steps)
		if err != nil {
			return nil, fmt.Errorf("upgrade %s payload: %w", eventType, err)
		}
		data = upgraded
	}

	ptr := reflect.New(t).Interface()
	if err := json.Unmarshal(data, ptr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	event, ok := ptr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("%s does not implement DomainEvent", t)
	}
	return event, nil
}

func upgrade(data []byte, steps map[int]PayloadUpgrade) ([]byte, error) {
	version := PayloadVersion(data)
	if steps[version] == nil {
		return data, nil
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	for step := steps[version]; step != nil; step = steps[version] {
		next, err := step(doc)
		if err != nil {
			return nil, fmt.Errorf("from v%d: %w", version, err)
		}
		version++
		doc = next
		doc[schemaVersionKey] = version
	}
	return json.Marshal(doc)
}

// PayloadVersion reads schema_version from a payload; absent means 1
func PayloadVersion(data []byte) int {
	var envelope struct {
		Version int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Version < 1 {
		return 1
	}
	return envelope.Version
}

func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.types[eventType]
	return ok
}

// RegisteredTypes returns the registered event types in order
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, 0, len(s.types))
	for t := range s.types {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// AddField is an upgrade step that sets a field missing from older payloads
func AddField(name string, value any) PayloadUpgrade {
	return func(data map[string]any) (map[string]any, error) {
		if _, ok := data[name]; !ok {
			data[name] = value
		}
		return data, nil
	}
}

// RenameField is an upgrade step that moves a field to a new name
func RenameField(from, to string) PayloadUpgrade {
	return func(data map[string]any) (map[string]any, error) {
		if v, ok := data[from]; ok {
			data[to] = v
			delete(data, from)
		}
		return data, nil
	}
}
