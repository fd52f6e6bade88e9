// Package notify composes customer status messages and hands them to a
// WhatsApp provider.
package notify

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultCustomerName stands in when the customer's name is unknown.
const DefaultCustomerName = "Customer"

// TrackingURL appends the encoded order id to the tracking page URL.
func TrackingURL(baseURL, orderID string) string {
	return baseURL + "?order=" + url.QueryEscape(orderID)
}

// Compose renders the status update for one order. It is pure text.
func Compose(stage, orderID, customerName, trackingBaseURL string) string {
	name := strings.TrimSpace(customerName)
	if name == "" {
		name = DefaultCustomerName
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s, your glasses are now at the *%s* stage.\n", name, stage)
	fmt.Fprintf(&b, "Order: %s\n", orderID)
	fmt.Fprintf(&b, "Track your order: %s", TrackingURL(trackingBaseURL, orderID))
	return b.String()
}

// ShareLink is a wa.me link that pre-fills a message carrying the tracking URL.
func ShareLink(trackingURL string) string {
	text := "Your order is being processed. Track it here: " + trackingURL
	return "https://wa.me/?text=" + url.QueryEscape(text)
}
