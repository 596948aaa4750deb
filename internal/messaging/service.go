// Package messaging defines the pluggable outbound message delivery
// abstraction and its gateway implementations.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ordersuite/orderflow/internal/models"
)

// ErrServiceStopped is returned from sends after Stop.
var ErrServiceStopped = errors.New("messaging service stopped")

var phoneNumberRegex = regexp.MustCompile(`\D`)

// Service is the message delivery abstraction the dispatcher depends on.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates a recipient identifier and
	// reduces it to digits.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a plain text message.
	SendMessage(ctx context.Context, to string, body string) error

	// SendTemplate sends a structured template, degrading to rendered text on
	// gateways without interactive message support.
	SendTemplate(ctx context.Context, to string, tpl *models.Template) error

	// Start begins background processing.
	Start(ctx context.Context) error

	// Stop stops background processing and releases resources.
	Stop() error
}

// canonicalizePhone strips non-digits and enforces a minimum length.
func canonicalizePhone(recipient string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(canonical) < 6 {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum 6 digits required)", canonical)
	}
	return canonical, nil
}

// renderTemplate flattens a structured template into plain text with numbered
// reply options.
func renderTemplate(tpl *models.Template) string {
	var b strings.Builder
	if tpl.Header != "" {
		b.WriteString(tpl.Header)
		b.WriteString("\n")
	}
	b.WriteString(tpl.Body)
	for i, opt := range tpl.Options {
		fmt.Fprintf(&b, "\n%d. %s — reply %q", i+1, opt.Label, opt.ID)
	}
	return b.String()
}
