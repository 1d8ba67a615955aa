package graph

import (
	"context"
	"fmt"

	"adeptly/internal/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jClient wraps a driver bound to one database.
type Neo4jClient struct {
	driver neo4j.DriverWithContext
	config Neo4jConfig
	log    *logger.Logger
}

// NewNeo4jClient connects and makes sure the constraints exist.
func NewNeo4jClient(ctx context.Context, config Neo4jConfig, log *logger.Logger) (*Neo4jClient, error) {
	driver, err := neo4j.NewDriverWithContext(
		config.URI,
		neo4j.BasicAuth(config.Username, config.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	client := &Neo4jClient{
		driver: driver,
		config: config,
		log:    logger.OrNop(log).With("component", "neo4j"),
	}

	if err := client.TestConnection(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to Neo4j: %w", err)
	}

	if err := client.createConstraints(ctx); err != nil {
		client.log.Warn("failed to create constraints", "error", err)
	}

	return client, nil
}

// TestConnection verifies connectivity.
func (c *Neo4jClient) TestConnection(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

// Close releases the driver.
func (c *Neo4jClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Neo4jClient) createConstraints(ctx context.Context) error {
	statements := []string{
		"CREATE CONSTRAINT topic_id_unique IF NOT EXISTS FOR (t:Topic) REQUIRE t.topic_id IS UNIQUE",
		"CREATE CONSTRAINT problem_id_unique IF NOT EXISTS FOR (p:Problem) REQUIRE p.problem_id IS UNIQUE",
		"CREATE CONSTRAINT engineer_uuid_unique IF NOT EXISTS FOR (u:Engineer) REQUIRE u.uuid IS UNIQUE",
	}
	for _, stmt := range statements {
		_, err := c.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
			_, err := tx.Run(ctx, stmt, nil)
			return nil, err
		})
		if err != nil {
			return fmt.Errorf("failed to create constraint: %w", err)
		}
	}
	return nil
}

// ExecuteWrite runs work in a write transaction.
func (c *Neo4jClient) ExecuteWrite(ctx context.Context, work neo4j.ManagedTransactionWork) (interface{}, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.config.Database,
	})
	defer session.Close(ctx)

	return session.ExecuteWrite(ctx, work)
}

// ExecuteRead runs work in a read transaction.
func (c *Neo4jClient) ExecuteRead(ctx context.Context, work neo4j.ManagedTransactionWork) (interface{}, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.config.Database,
	})
	defer session.Close(ctx)

	return session.ExecuteRead(ctx, work)
}
