// Package mcp exposes webmcp over the Model Context Protocol.
//
// The server side of the protocol comes from mcp-go. This package bridges
// the native tool registry into it, registers the web search resource
// template and the analysis prompt, and serves newline-delimited JSON-RPC
// 2.0 over stdin and stdout. Nothing but protocol traffic is ever written
// to stdout; logs go to the configured slog destination.
package mcp
