// Package notification turns meeting notifications into e-mail and delivers
// them off the request path.
//
// A Queue accepts notifications from the meeting service and hands them to a
// Dispatcher, which renders the message, rate limits and retries the send and
// records every outcome in the delivery log. Failures never reach the caller
// of the mutation that produced the notification.
package notification
