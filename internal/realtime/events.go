package realtime

import (
	"encoding/json"
	"errors"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"

	"nselfadmin/internal/logger"
	"nselfadmin/internal/metrics"
	"nselfadmin/internal/store"
	"nselfadmin/internal/telemetry"
)

// Push event types.
const (
	EventContainerUpdate = "container-update"
	EventMetricsUpdate   = "metrics-update"
	EventDatabaseUpdate  = "database-update"
)

// Counter labels for events that were not applied.
const (
	eventUnknown = "unknown"
	eventInvalid = "invalid"
)

var errNoPayload = errors.New("event has no payload")

// event is a decoded {type, payload} envelope. Text frames carry JSON,
// binary frames carry CBOR.
type event struct {
	Type    string
	payload []byte
	binary  bool
}

func decodeEvent(messageType int, data []byte) (event, error) {
	if messageType == websocket.BinaryMessage {
		var raw struct {
			Type    string          `json:"type"`
			Payload cbor.RawMessage `json:"payload"`
		}
		if err := cbor.Unmarshal(data, &raw); err != nil {
			return event{}, err
		}
		return event{Type: raw.Type, payload: raw.Payload, binary: true}, nil
	}

	var raw struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return event{}, err
	}
	return event{Type: raw.Type, payload: raw.Payload}, nil
}

func (e event) decode(v interface{}) error {
	if len(e.payload) == 0 || string(e.payload) == "null" {
		return errNoPayload
	}
	if e.binary {
		return cbor.Unmarshal(e.payload, v)
	}
	return json.Unmarshal(e.payload, v)
}

// dispatch applies one message to the store. Messages that cannot be
// decoded or applied are logged and dropped.
func (c *Channel) dispatch(messageType int, data []byte) {
	ev, err := decodeEvent(messageType, data)
	if err != nil {
		logger.Debug("Dropping undecodable push message: %v", err)
		telemetry.RecordEvent(eventInvalid)
		return
	}

	switch ev.Type {
	case EventContainerUpdate:
		var update store.Container
		if err = ev.decode(&update); err == nil && !c.store.UpsertContainer(update) {
			logger.Debug("Ignoring update for unknown container %q", update.ID)
		}
	case EventMetricsUpdate:
		var m metrics.SystemMetrics
		if err = ev.decode(&m); err == nil {
			c.store.SetSystemMetrics(m)
		}
	case EventDatabaseUpdate:
		var db store.Database
		if err = ev.decode(&db); err == nil {
			c.store.SetDatabase(db)
		}
	default:
		logger.Debug("Ignoring push event of unknown type %q", ev.Type)
		telemetry.RecordEvent(eventUnknown)
		return
	}

	if err != nil {
		logger.Debug("Dropping %s event: %v", ev.Type, err)
		telemetry.RecordEvent(eventInvalid)
		return
	}
	telemetry.RecordEvent(ev.Type)
}
