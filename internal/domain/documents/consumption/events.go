package consumption

import (
	"fuelops/internal/core/id"
	"fuelops/internal/domain"
)

// AggregateType names consumption records in the outbox and audit log.
const AggregateType = "consumption_record"

// Event types written to the outbox.
const (
	EventRecorded      = "ConsumptionRecorded"
	EventLitersChanged = "ConsumptionLitersChanged"
	EventDeleted       = "ConsumptionDeleted"
)

// EventPayload is the outbox body for every consumption event.
type EventPayload struct {
	RecordID  id.ID  `json:"recordId"`
	TankID    id.ID  `json:"tankId"`
	TankCode  string `json:"tankCode"`
	MachineID id.ID  `json:"machineId"`
	Scope     string `json:"scope"`
	Liters    string `json:"liters"`
	// Delta is the signed change applied to the tank level.
	Delta string `json:"delta"`
}

func newEvent(eventType string, r *Record, delta string) domain.Event {
	return domain.Event{
		AggregateType: AggregateType,
		AggregateID:   r.ID,
		EventType:     eventType,
		Payload: EventPayload{
			RecordID:  r.ID,
			TankID:    r.TankID,
			TankCode:  r.TankCode,
			MachineID: r.MachineID,
			Scope:     r.Scope().String(),
			Liters:    r.Liters.String(),
			Delta:     delta,
		},
	}
}
