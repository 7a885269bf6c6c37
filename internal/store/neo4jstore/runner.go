// Package neo4jstore stores board topology as a property graph: boards are
// (:Board) nodes, positions are (:MapNode) nodes and connections are [:EDGE]
// relationships between them.
package neo4jstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Runner executes one Cypher query and buffers its result. InTx runs fn
// inside a single write transaction that commits only if fn returns nil.
type Runner interface {
	Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error)
	InTx(ctx context.Context, fn func(tx Runner) error) error
}

// Executor runs queries through the official driver against one database.
type Executor struct {
	driver   neo4j.DriverWithContext
	database string
}

func NewExecutor(ctx context.Context, uri, username, password, database string) (*Executor, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("could not create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("could not reach neo4j at %s: %w", uri, err)
	}
	return &Executor{driver: driver, database: database}, nil
}

func (e *Executor) Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(
		ctx,
		e.driver,
		query,
		params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(e.database),
	)
	if err != nil {
		return nil, fmt.Errorf("error executing neo4j query: %w", err)
	}
	return result, nil
}

// InTx may call fn more than once when the driver retries a transient
// failure.
func (e *Executor) InTx(ctx context.Context, fn func(tx Runner) error) error {
	session := e.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: e.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(txRunner{tx: tx})
	})
	return err
}

type txRunner struct {
	tx neo4j.ManagedTransaction
}

func (r txRunner) Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	result, err := r.tx.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("error executing neo4j query: %w", err)
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("error reading neo4j result: %w", err)
	}
	keys, err := result.Keys()
	if err != nil {
		return nil, err
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return nil, err
	}
	return &neo4j.EagerResult{Keys: keys, Records: records, Summary: summary}, nil
}

func (r txRunner) InTx(_ context.Context, fn func(tx Runner) error) error {
	return fn(r)
}

func (e *Executor) Verify(ctx context.Context) error {
	return e.driver.VerifyConnectivity(ctx)
}

func (e *Executor) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}
