// Package trace implements the optional diagnostic trace sink: a rolling,
// queryable log of discovery/matching/liveliness events, persisted to a
// SQLite file via gorm the way golib's database/gorm wraps a *gorm.DB
// behind a small lifecycle type, with each event's free-form payload
// CBOR-encoded the way golib's encoding/mux frames its channel payloads
// before writing them out.
package trace

import (
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Event is one recorded occurrence: a participant discovered, an endpoint
// matched/unmatched, a liveliness lease lost, and so on. Payload is
// CBOR-encoded so arbitrary event-specific fields (a Guid, a topic name, a
// QoS snapshot) can ride along without a schema migration per event kind.
type Event struct {
	ID        uint `gorm:"primarykey"`
	At        time.Time
	Kind      string `gorm:"index"`
	Payload   []byte
}

// Sink is the gorm-backed event log. A nil *Sink is valid and silently
// discards every Record call, so components can hold a Sink unconditionally
// and only pay the cost when tracing is enabled.
type Sink struct {
	mu sync.Mutex
	db *gorm.DB
}

// Open creates (or appends to) a SQLite-backed trace file at path and
// migrates the Event schema into it.
func Open(path string) (*Sink, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Event{}); err != nil {
		return nil, err
	}
	return &Sink{db: db}, nil
}

// Record CBOR-encodes payload and appends an Event row. A nil Sink and a
// nil payload are both handled: a nil Sink is a no-op, a nil payload is
// recorded as a CBOR null.
func (s *Sink) Record(kind string, payload interface{}) error {
	if s == nil {
		return nil
	}
	body, err := cbor.Marshal(payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Create(&Event{At: time.Now(), Kind: kind, Payload: body}).Error
}

// Recent returns the last limit events of the given kind (all kinds if
// kind is empty), newest first.
func (s *Sink) Recent(kind string, limit int) ([]Event, error) {
	if s == nil {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.db.Order("id desc").Limit(limit)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var events []Event
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// Decode unmarshals an Event's CBOR payload into out.
func Decode(e Event, out interface{}) error {
	return cbor.Unmarshal(e.Payload, out)
}

func (s *Sink) Close() error {
	if s == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
