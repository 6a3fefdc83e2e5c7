// Package printing renders order documents for notifications.
//
// A Worker consumes renderRequest events from the event bus, executes the
// named html/template against the request payload with locale aware
// formatting, optionally prints the result to PDF through headless Chrome
// and uploads it to a storage.DocumentStore. The outcome is published as a
// renderResponse event carrying the correlation id of the request.
//
// Templates are looked up by name in an external directory first and fall
// back to the templates compiled into the binary. A name such as
// "order_submitted" that has no template of its own falls back to "order".
package printing
