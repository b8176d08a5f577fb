package enums

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateBooking OutboxAggregateType = "booking"
	AggregateOrder   OutboxAggregateType = "order"
	AggregateWallet  OutboxAggregateType = "wallet"
)

var aggregateTypes = []OutboxAggregateType{AggregateBooking, AggregateOrder, AggregateWallet}

func (a OutboxAggregateType) IsValid() bool { return known(aggregateTypes, a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse("aggregate type", aggregateTypes, value)
}

// OutboxEventType is the kind of domain event stored in the outbox.
type OutboxEventType string

const (
	EventBookingQueued        OutboxEventType = "booking_queued"
	EventProviderAssigned     OutboxEventType = "provider_assigned"
	EventJobExpired           OutboxEventType = "job_expired"
	EventOrderCreated         OutboxEventType = "order_created"
	EventOrderStatusChanged   OutboxEventType = "order_status_changed"
	EventWalletPaymentCharged OutboxEventType = "wallet_payment_charged"
	EventWalletRefunded       OutboxEventType = "wallet_refunded"
)

var outboxEventTypes = []OutboxEventType{
	EventBookingQueued, EventProviderAssigned, EventJobExpired, EventOrderCreated,
	EventOrderStatusChanged, EventWalletPaymentCharged, EventWalletRefunded,
}

func (e OutboxEventType) IsValid() bool { return known(outboxEventTypes, e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", outboxEventTypes, value)
}
