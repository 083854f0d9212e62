package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

// OutboxEventType names a domain event recorded in outbox_events.
type OutboxEventType string

const (
	AggregateQuotation OutboxAggregateType = "quotation"

	EventQuoteGenerated OutboxEventType = "quote.generated"
)

// eventAggregates pins every event type to the one aggregate that may emit it.
var eventAggregates = map[OutboxEventType]OutboxAggregateType{
	EventQuoteGenerated: AggregateQuotation,
}

func (a OutboxAggregateType) IsValid() bool {
	for _, owner := range eventAggregates {
		if owner == a {
			return true
		}
	}
	return false
}

func (e OutboxEventType) IsValid() bool {
	_, ok := eventAggregates[e]
	return ok
}

// Aggregate returns the aggregate type that owns e.
func (e OutboxEventType) Aggregate() (OutboxAggregateType, bool) {
	a, ok := eventAggregates[e]
	return a, ok
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	if a := OutboxAggregateType(value); a.IsValid() {
		return a, nil
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	if e := OutboxEventType(value); e.IsValid() {
		return e, nil
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
