package events

// EventCollector buffers the events of one unit of work until they are
// appended to the outbox in the same transaction.
type EventCollector struct {
	events []DomainEvent
}

func (c *EventCollector) Record(events ...DomainEvent) {
	c.events = append(c.events, events...)
}

func (c *EventCollector) Events() []DomainEvent { return c.events }

func (c *EventCollector) Len() int { return len(c.events) }
