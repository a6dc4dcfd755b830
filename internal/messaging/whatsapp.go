package messaging

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/printly/printly-backend/pkg/config"
)

// Numbers without a country code are assumed domestic.
const defaultCountryCode = "91"

// Builder constructs wa.me deep links for the contact-admin and verification
// flows. It only builds URLs; nothing is ever sent.
type Builder struct {
	shopNumber string
}

// NewBuilder validates the configured shop number and returns a link builder.
func NewBuilder(cfg config.MessagingConfig) (*Builder, error) {
	number := normalizeNumber(cfg.ShopWhatsApp)
	if number == "" {
		return nil, fmt.Errorf("shop whatsapp number required")
	}
	return &Builder{shopNumber: number}, nil
}

// ContactAdminLink prefills a message to the shop referencing the order the
// customer needs help with.
func (b *Builder) ContactAdminLink(orderID, token string) string {
	text := fmt.Sprintf("Hi, I need help with my print order %s (token %s).", orderID, token)
	return deepLink(b.shopNumber, text)
}

// PaymentQueryLink prefills a message to the shop about a paid order awaiting
// verification.
func (b *Builder) PaymentQueryLink(orderID string) string {
	text := fmt.Sprintf("Hi, I have paid for print order %s. Please verify the payment.", orderID)
	return deepLink(b.shopNumber, text)
}

// VerificationNoticeLink prefills a message from the admin to the customer
// confirming their identity was verified.
func (b *Builder) VerificationNoticeLink(customerPhone, token string) (string, error) {
	number := normalizeNumber(customerPhone)
	if number == "" {
		return "", fmt.Errorf("customer phone required")
	}
	text := fmt.Sprintf("Your Printly account (token %s) has been verified. You can now track all your orders.", token)
	return deepLink(number, text), nil
}

func deepLink(number, text string) string {
	return "https://wa.me/" + number + "?text=" + url.QueryEscape(text)
}

// normalizeNumber strips everything but digits and prepends the default
// country code to bare 10-digit numbers.
func normalizeNumber(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if len(digits) == 10 {
		return defaultCountryCode + digits
	}
	return digits
}
