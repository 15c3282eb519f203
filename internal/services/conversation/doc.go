// Package conversation drives the peersession state machine against a
// contact's postal box: encoding/decoding the wire envelope, posting
// and fetching through the rpc client, and persisting session and
// message history as it goes.
package conversation
