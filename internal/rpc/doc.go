// Package rpc connects vidshelf to the library backend over an ordered,
// bidirectional message channel.
//
// A Session owns one physical connection at a time. It correlates outgoing
// requests with their responses through a ledger keyed by request id, hands
// unsolicited notifications to a Router, and drives the
// NOT_CONNECTED/CONNECTING/CONNECTED lifecycle. ConnectOrReuse and Supervisor
// decide when a session is (re)established; Client wraps a session with
// generated correlation ids for callers that only want call-and-wait.
//
// Transport and application failures always arrive through the Deferred a
// call returns. Only the Send preconditions fail synchronously, and only
// backend contract violations surface as errors from HandleFrame.
package rpc
