package notify

import (
	"context"
	"log"
	"strings"
)

// Dispatcher delivers verification codes out-of-band. Delivery failure
// must not abort a login; callers log and continue so tester and debug
// codes stay usable without a working mail path.
type Dispatcher interface {
	DeliverVerificationCode(ctx context.Context, email, code, displayName string) error
}

// LogDispatcher writes deliveries to the process log with the address
// masked and the code withheld. It stands in for a real mail or push
// transport in development and tests.
type LogDispatcher struct{}

// NewLogDispatcher creates a log-backed dispatcher.
func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{}
}

// DeliverVerificationCode logs the delivery attempt.
func (d *LogDispatcher) DeliverVerificationCode(ctx context.Context, email, code, displayName string) error {
	log.Printf("verification code dispatched to %s (name=%q, %d digits)", MaskEmail(email), displayName, len(code))
	return nil
}

// MaskEmail masks the local part of an address for logging,
// e.g. "alice@example.com" -> "al***@example.com".
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	local := email[:at]
	if len(local) <= 2 {
		return "***" + email[at:]
	}
	return local[:2] + "***" + email[at:]
}
