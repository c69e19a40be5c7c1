package billing

import (
	"context"
	"fmt"

	commonaws "github.com/Jperi24/nsfw-platform/internal/common/aws"
)

// Notifier consumes the tier-change side effects emitted by the state
// machine. Failures are logged by the caller, never propagated: a membership
// transition must not be rolled back because an email bounced.
type Notifier interface {
	TierChanged(ctx context.Context, effect SideEffect) error
}

// NopNotifier is used when no notification channel is configured.
type NopNotifier struct{}

func (NopNotifier) TierChanged(ctx context.Context, effect SideEffect) error {
	return nil
}

// SESNotifier mails tier changes to the configured ops mailbox.
type SESNotifier struct {
	client    *commonaws.SESClient
	fromEmail string
}

func NewSESNotifier(client *commonaws.SESClient, fromEmail string) *SESNotifier {
	return &SESNotifier{client: client, fromEmail: fromEmail}
}

func (n *SESNotifier) TierChanged(ctx context.Context, effect SideEffect) error {
	subject := fmt.Sprintf("Membership change: %s is now %s", effect.UserID, effect.ToTier)
	body := fmt.Sprintf("User %s moved from %s to %s via billing event.",
		effect.UserID, effect.FromTier, effect.ToTier)

	return n.client.SendPlainEmail(ctx, n.fromEmail, n.fromEmail, subject, body)
}
