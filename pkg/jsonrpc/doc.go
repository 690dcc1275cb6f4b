// Package jsonrpc holds the JSON-RPC 2.0 envelope types: request parsing, the error taxonomy
// and response encoding. It does not know about methods or connections.
package jsonrpc
