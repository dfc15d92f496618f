// SPDX-License-Identifier: Apache-2.0

// Package tool exposes the aggregation pipeline as MCP tools.
package tool

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// NewServer registers every tool on a new MCP server.
func NewServer(version string, logger zerolog.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "isinscan", Version: version}, nil)
	mcp.AddTool(server, MetadataAggregateIdentifiers, NewAggregator(logger).AggregateIdentifiers)
	mcp.AddTool(server, MetadataClassifyToken, ClassifyToken)
	return server
}
