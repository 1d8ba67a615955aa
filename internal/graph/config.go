package graph

import "adeptly/internal/config"

// Neo4jConfig Neo4j connection settings.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// ConfigFrom converts the application config section.
func ConfigFrom(c config.Neo4jConfig) Neo4jConfig {
	return Neo4jConfig{
		URI:      c.URI,
		Username: c.Username,
		Password: c.Password,
		Database: c.Database,
	}
}
