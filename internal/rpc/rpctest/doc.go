// Package rpctest provides in-memory connections, a scriptable dialer, and a
// fake WebSocket backend for exercising rpc sessions in tests.
package rpctest
