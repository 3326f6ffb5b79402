package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// TxFunc is the body of a transaction. It must use the ctx it is given so that
// every store call joins the session.
type TxFunc func(ctx context.Context) error

// Transactor runs a function atomically.
type Transactor interface {
	WithTransaction(ctx context.Context, fn TxFunc) error
}

// MongoTransactor runs fn inside a MongoDB multi-document transaction.
// Transactions need a replica set; with Enabled false fn runs directly.
type MongoTransactor struct {
	Client  *mongo.Client
	Enabled bool
}

func NewMongoTransactor(client *mongo.Client, enabled bool) *MongoTransactor {
	return &MongoTransactor{Client: client, Enabled: enabled}
}

func (t *MongoTransactor) WithTransaction(ctx context.Context, fn TxFunc) error {
	if !t.Enabled || t.Client == nil {
		return fn(ctx)
	}

	session, err := t.Client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// NoopTransactor runs fn without a transaction. Used in tests and with
// standalone servers.
type NoopTransactor struct{}

func (NoopTransactor) WithTransaction(ctx context.Context, fn TxFunc) error {
	return fn(ctx)
}
