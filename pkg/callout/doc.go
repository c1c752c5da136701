// Package callout correlates asynchronous outbound calls with the request
// that issued them.
//
// A request inserts an entry when it dispatches a call and receives a token.
// When the call completes, the token is redeemed with Take, which removes the
// entry in the same critical section that reads it. A second Take for the same
// token, or a Take for a token that was never issued, is reported as an
// *UnknownTokenError rather than ignored. EvictStream drops every entry of a
// request whose client went away.
package callout
