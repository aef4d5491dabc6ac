package orders

type Status string

const (
	StatusCreated           Status = "CREATED"
	StatusPaymentAuthorized Status = "PAYMENT_AUTHORIZED"
	StatusInventoryDeducted Status = "INVENTORY_DEDUCTED"
	StatusCompleted         Status = "COMPLETED"
	StatusFailed            Status = "FAILED"
	StatusRollbackCompleted Status = "ROLLBACK_COMPLETED"
)

var validNext = map[Status]map[Status]bool{
	StatusCreated:           {StatusPaymentAuthorized: true, StatusFailed: true},
	StatusPaymentAuthorized: {StatusInventoryDeducted: true, StatusRollbackCompleted: true},
	StatusInventoryDeducted: {StatusCompleted: true, StatusRollbackCompleted: true},
	StatusCompleted:         {},
	StatusFailed:            {},
	StatusRollbackCompleted: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	next, ok := validNext[s]
	return ok && len(next) == 0
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// HasPayment reports whether an order in s must carry a payment id.
func (s Status) HasPayment() bool {
	switch s {
	case StatusPaymentAuthorized, StatusInventoryDeducted, StatusCompleted, StatusRollbackCompleted:
		return true
	}
	return false
}

// NonTerminal lists the states a saga can be left in after a crash.
func NonTerminal() []Status {
	return []Status{StatusCreated, StatusPaymentAuthorized, StatusInventoryDeducted}
}
