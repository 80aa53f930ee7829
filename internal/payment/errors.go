package payment

import (
	"errors"
	"fmt"

	"github.com/GiorgiUbiria/textng_payments/internal/logger"
	"go.uber.org/zap"
)

// ErrNoHistory means the user has neither payments nor transactions.
var ErrNoHistory = errors.New("no transactions available")

// ValidationError is a request rejected before any gateway call. Nothing was
// written and no money moved.
type ValidationError struct {
	Message  string
	NotFound bool
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error  { return &ValidationError{Message: msg} }
func notFound(msg string) error { return &ValidationError{Message: msg, NotFound: true} }

// Stage is how far a money-moving operation got.
type Stage string

const (
	StageIdle         Stage = "idle"
	StageFundsChecked Stage = "funds_checked"
	StageMoneyMoved   Stage = "external_money_moved"
	StageLedgered     Stage = "ledgered"
	StageDone         Stage = "done"
)

// ConsistencyError means the gateway moved money but a later step failed, so
// the ledger has no matching row. It is never retried or compensated here;
// Reference identifies the completed gateway operation for reconciliation.
type ConsistencyError struct {
	Op        string
	Message   string
	Stage     Stage
	Reference string
	Err       error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ConsistencyError) Unwrap() error { return e.Err }

// flow tracks one money-moving operation through its stages.
type flow struct {
	op     string
	userID uint
	number string
	stage  Stage
	ref    string
}

func newFlow(op string, userID uint, number string) *flow {
	return &flow{op: op, userID: userID, number: number, stage: StageIdle}
}

func (f *flow) advance(s Stage) {
	f.stage = s
	logger.Log.Debug("payment flow advanced",
		zap.String("op", f.op),
		zap.Uint("user_id", f.userID),
		zap.String("transaction_no", f.number),
		zap.String("stage", string(s)),
	)
}

// moved records the gateway reference of money that has now left the caller.
func (f *flow) moved(ref string) {
	f.ref = ref
	f.advance(StageMoneyMoved)
}

func (f *flow) inconsistent(msg string, err error) error {
	logger.Log.Error("money moved without ledger entry",
		zap.String("op", f.op),
		zap.Uint("user_id", f.userID),
		zap.String("transaction_no", f.number),
		zap.String("stage", string(f.stage)),
		zap.String("gateway_ref", f.ref),
		zap.Error(err),
	)
	return &ConsistencyError{Op: f.op, Message: msg, Stage: f.stage, Reference: f.ref, Err: err}
}
