// SPDX-License-Identifier: Apache-2.0
//
// Copyright 2025 Binaek Sarkar
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package shadow

import (
	"context"
	"log/slog"
	"strings"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mlld-sh/mlld/constants"
	"github.com/mlld-sh/mlld/version"
	"github.com/pkg/errors"
)

// McpConn is one connected MCP server. Proxied executables call through it;
// results are wrapped by the runtime with mcp taint before anything else
// sees them.
type McpConn struct {
	Name   string
	client *mcpclient.Client
	tools  []string
}

// DialStdio connects to an MCP server over stdio and completes the
// handshake.
func DialStdio(ctx context.Context, name, command string, env map[string]string, args ...string) (*McpConn, error) {
	envSlice := make([]string, 0, len(env))
	for k, v := range env {
		envSlice = append(envSlice, k+"="+v)
	}
	client, err := mcpclient.NewStdioMCPClient(command, envSlice, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "dial mcp server %s", name)
	}

	initReq := mcpgo.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpgo.Implementation{
		Name:    constants.APPNAME,
		Version: version.Version,
	}
	if _, err := client.Initialize(ctx, initReq); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "initialize mcp server %s", name)
	}

	conn := &McpConn{Name: name, client: client}

	toolsResult, err := client.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "list tools on %s", name)
	}
	for _, t := range toolsResult.Tools {
		conn.tools = append(conn.tools, t.Name)
	}
	slog.DebugContext(ctx, "mcp.server.connected",
		slog.String("server", name), slog.Int("tools", len(conn.tools)))
	return conn, nil
}

// Tools lists the server's tool names.
func (c *McpConn) Tools() []string {
	out := make([]string, len(c.tools))
	copy(out, c.tools)
	return out
}

// CallTool invokes a tool and flattens its content into a runtime value:
// one text part comes back as a string, several join with newlines.
func (c *McpConn) CallTool(ctx context.Context, tool string, args map[string]any) (any, error) {
	req := mcpgo.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = args

	res, err := c.client.CallTool(ctx, req)
	if err != nil {
		return nil, errors.Wrapf(err, "call %s on %s", tool, c.Name)
	}

	parts := make([]string, 0, len(res.Content))
	for _, content := range res.Content {
		switch t := content.(type) {
		case mcpgo.TextContent:
			parts = append(parts, t.Text)
		case *mcpgo.TextContent:
			parts = append(parts, t.Text)
		}
	}
	text := strings.Join(parts, "\n")

	if res.IsError {
		return nil, errors.Errorf("tool %s failed: %s", tool, text)
	}
	return text, nil
}

func (c *McpConn) Close() error {
	return c.client.Close()
}
