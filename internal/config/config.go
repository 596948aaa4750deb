// Package config holds the immutable bot behavior configuration.
//
// The reference deployment kept category names, payment options and message
// texts as process-wide singletons; here they are built once at startup and
// threaded into the engine and validator by parameter so tests can run with
// alternate configurations.
package config

// PaymentOption is one selectable payment method.
type PaymentOption struct {
	ID    string
	Label string
}

// Bot is the full behavior configuration for the conversation bot. It is
// read-only after construction and safe to share across goroutines.
type Bot struct {
	// SupplierCategories is the closed set of supplier categories, in menu
	// order.
	SupplierCategories []string

	// PaymentOptions lists the selectable payment methods for onboarding.
	PaymentOptions []PaymentOption

	// SkipCouponToken is the only input that exits WAITING_FOR_PAYMENT
	// without a completed payment.
	SkipCouponToken string

	// WeekdayNames maps weekday indices 0-6 (Sunday first) to display names,
	// lowercase. Used both for rendering and for parsing free-form day lists.
	WeekdayNames []string

	// StickyContextKeys survive a corrupted-session reset.
	StickyContextKeys []string

	// SystemErrorText is sent when a conversation is found in an unknown
	// state and reset.
	SystemErrorText string

	// ApologyText is the best-effort user notification on action failure.
	ApologyText string

	// GenericRejectionText is the fallback resend message for states without
	// a validation message.
	GenericRejectionText string
}

// Default returns the production bot configuration.
func Default() Bot {
	return Bot{
		SupplierCategories: []string{
			"vegetables", "fruits", "meat", "fish", "dairy", "dry_goods",
			"bread", "alcohol", "cleaning", "packaging",
		},
		PaymentOptions: []PaymentOption{
			{ID: "credit_card", Label: "Credit card"},
			{ID: "trial", Label: "Free trial"},
		},
		SkipCouponToken: "skip-payment",
		WeekdayNames: []string{
			"sunday", "monday", "tuesday", "wednesday", "thursday", "friday",
			"saturday",
		},
		StickyContextKeys: []string{
			"contactName", "restaurantName", "restaurantId",
		},
		SystemErrorText: "Something went wrong on our side, so I took us " +
			"back to the main menu. Your registered details are safe.",
		ApologyText: "Sorry, something went wrong while handling that. " +
			"Please try again in a moment.",
		GenericRejectionText: "I didn't catch that. Could you try again?",
	}
}

// IsValidCategory reports whether cat is a member of the closed category set.
func (b Bot) IsValidCategory(cat string) bool {
	for _, c := range b.SupplierCategories {
		if c == cat {
			return true
		}
	}
	return false
}

// IsStickyKey reports whether a context key survives a session reset.
func (b Bot) IsStickyKey(key string) bool {
	for _, k := range b.StickyContextKeys {
		if k == key {
			return true
		}
	}
	return false
}
