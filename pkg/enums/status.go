package enums

// BookingStatus tracks a booking from request to completion.
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

var bookingStatuses = []BookingStatus{
	BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress,
	BookingStatusCompleted, BookingStatusCancelled,
}

func (b BookingStatus) String() string { return string(b) }
func (b BookingStatus) IsValid() bool  { return known(bookingStatuses, b) }

func ParseBookingStatus(value string) (BookingStatus, error) {
	return parse("booking status", bookingStatuses, value)
}

// CartStatus is the lifecycle of a shopping cart. Only active carts accept
// edits or checkout.
type CartStatus string

const (
	CartStatusActive     CartStatus = "active"
	CartStatusCheckedOut CartStatus = "checked_out"
	CartStatusConverted  CartStatus = "converted"
	CartStatusAbandoned  CartStatus = "abandoned"
	CartStatusExpired    CartStatus = "expired"
)

var cartStatuses = []CartStatus{
	CartStatusActive, CartStatusCheckedOut, CartStatusConverted,
	CartStatusAbandoned, CartStatusExpired,
}

func (c CartStatus) String() string { return string(c) }
func (c CartStatus) IsValid() bool  { return known(cartStatuses, c) }

func ParseCartStatus(value string) (CartStatus, error) {
	return parse("cart status", cartStatuses, value)
}

// JobStatus is the state of a job queue entry. Pending is the only state the
// matcher reads; assigned and expired are terminal.
type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusAssigned JobStatus = "assigned"
	JobStatusExpired  JobStatus = "expired"
)

var jobStatuses = []JobStatus{JobStatusPending, JobStatusAssigned, JobStatusExpired}

func (j JobStatus) String() string { return string(j) }
func (j JobStatus) IsValid() bool  { return known(jobStatuses, j) }

func ParseJobStatus(value string) (JobStatus, error) {
	return parse("job status", jobStatuses, value)
}

// OrderStatus is the fulfilment side of an order.
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusCompleted      OrderStatus = "completed"
)

var orderStatuses = []OrderStatus{
	OrderStatusPendingPayment, OrderStatusConfirmed, OrderStatusCancelled, OrderStatusCompleted,
}

func (o OrderStatus) String() string { return string(o) }
func (o OrderStatus) IsValid() bool  { return known(orderStatuses, o) }

func ParseOrderStatus(value string) (OrderStatus, error) {
	return parse("order status", orderStatuses, value)
}

// PaymentStatus tracks the payment side of an order.
type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "pending"
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusFailed        PaymentStatus = "failed"
	PaymentStatusRefundPending PaymentStatus = "refund_pending"
	PaymentStatusNoRefund      PaymentStatus = "no_refund"
)

var paymentStatuses = []PaymentStatus{
	PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed,
	PaymentStatusRefundPending, PaymentStatusNoRefund,
}

func (p PaymentStatus) String() string { return string(p) }
func (p PaymentStatus) IsValid() bool  { return known(paymentStatuses, p) }

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parse("payment status", paymentStatuses, value)
}
