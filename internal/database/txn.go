package database

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

// TxnRunner executes a unit of storage work, atomically when the deployment
// supports multi-document transactions. Business logic runs against this
// interface and never learns which mode is active.
type TxnRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// SequentialRunner executes the function without a transaction. Each storage
// call inside remains individually atomic; the caller's own compensation
// (seat release on failure) bounds the consistency window.
type SequentialRunner struct{}

// Run executes fn directly.
func (SequentialRunner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// SessionRunner wraps the function in a MongoDB session transaction. On a
// standalone deployment the server rejects transactions; the first such
// rejection is remembered and the runner degrades to sequential mode for the
// life of the process.
type SessionRunner struct {
	client      *mongo.Client
	logger      *logrus.Logger
	unsupported atomic.Bool
}

// NewSessionRunner creates a SessionRunner over the given client.
func NewSessionRunner(client *mongo.Client, logger *logrus.Logger) *SessionRunner {
	return &SessionRunner{client: client, logger: logger}
}

// Run executes fn inside a transaction, falling back to one sequential
// re-execution when the deployment does not support transactions. Storage
// calls inside fn must use the context it receives so they join the session.
func (r *SessionRunner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.unsupported.Load() {
		return fn(ctx)
	}

	session, err := r.client.StartSession()
	if err != nil {
		if isTxnUnsupported(err) {
			r.degrade(err)
			return fn(ctx)
		}
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && isTxnUnsupported(err) {
		r.degrade(err)
		return fn(ctx)
	}
	return err
}

func (r *SessionRunner) degrade(err error) {
	if r.unsupported.CompareAndSwap(false, true) {
		r.logger.WithError(err).Warn("Storage engine does not support transactions, degrading to sequential mode with manual compensation")
	}
}

// isTxnUnsupported detects the error class a standalone mongod returns for
// transaction attempts (IllegalOperation, code 20).
func isTxnUnsupported(err error) bool {
	if err == nil {
		return false
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == 20 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Transaction numbers are only allowed on a replica set member or mongos") ||
		strings.Contains(msg, "IllegalOperation")
}
