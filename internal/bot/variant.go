package bot

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Variant holds everything that differs between deployments of the bot.
// The zero value is not usable; start from DefaultVariant.
type Variant struct {
	// GreetNewSessions answers the first message of a new user with the
	// welcome message instead of classifying it.
	GreetNewSessions bool `yaml:"greet_new_sessions"`
	// SkipFilledFields skips checkout questions whose answer is already
	// known. When false every checkout asks name, address and phone.
	SkipFilledFields bool `yaml:"skip_filled_fields"`

	Welcome     Message `yaml:"welcome"`
	PolicyText  string  `yaml:"policy_text"`
	PaymentText string  `yaml:"payment_text"`

	WhatsAppLink  string `yaml:"whatsapp_link"`
	CountryPrefix string `yaml:"country_prefix"`
	FallbackLimit int    `yaml:"fallback_limit"`
	CatalogLimit  int    `yaml:"catalog_limit"`

	ResetKeywords      []string `yaml:"reset_keywords"`
	TrackKeywords      []string `yaml:"track_keywords"`
	CategoryKeywords   []string `yaml:"category_keywords"`
	CustomKeywords     []string `yaml:"custom_keywords"`
	PolicyKeywords     []string `yaml:"policy_keywords"`
	CheckoutKeywords   []string `yaml:"checkout_keywords"`
	HandoffKeywords    []string `yaml:"handoff_keywords"`
	PlaceOrderKeywords []string `yaml:"place_order_keywords"`
}

func DefaultVariant() Variant {
	return Variant{
		GreetNewSessions: true,
		SkipFilledFields: true,
		Welcome: Message{
			Text: "Welcome to PosterMan! 🎨\n" +
				"I'm PosterBot, your personal art curator.\n" +
				"Looking for some museum-grade art for your walls today?",
			Options: []string{optPlaceOrder, "📦 Track Order", optCustomPrint, "🦸 Anime Collection"},
		},
		PolicyText: "📜 **PosterMan Policies**\n\n" +
			"• **Shipping**: Free Shipping over ₹999. Dispatched within 24-48 hours.\n" +
			"• **Returns**: We offer Free Replacements for damage during transit (video proof required).\n" +
			"• **Refunds**: Issued only after verification.\n" +
			"• **Note**: Custom orders cannot be cancelled once confirmed.",
		PaymentText: "Please scan the QR code below to complete payment 💳\n" +
			"Our team will verify the payment within 7 hours.\n" +
			"You will receive a confirmation message after verification.",
		WhatsAppLink:  "https://wa.me/919876543210",
		CountryPrefix: "+91",
		FallbackLimit: 3,
		CatalogLimit:  10,

		ResetKeywords:      []string{"hi", "hello", "hey", "menu", "start", "restart", "main menu", "🔙 main menu"},
		TrackKeywords:      []string{"track", "order status", "where is my order", "status"},
		CategoryKeywords:   []string{"anime", "marvel", "cars", "gift", "collection"},
		CustomKeywords:     []string{"custom", "personal", "my own photo", "print", "image uploaded"},
		PolicyKeywords:     []string{"return", "broken", "refund", "shipping", "shipping time", "policy"},
		CheckoutKeywords:   []string{"checkout", "buy", "cart"},
		HandoffKeywords:    []string{"chat on whatsapp", "chat upon whatsapp"},
		PlaceOrderKeywords: []string{"place an order", "place another order", "cart"},
	}
}

// LoadVariant reads a YAML file over the defaults. Keys missing from the
// file keep their default values.
func LoadVariant(path string) (Variant, error) {
	const operation = "bot.LoadVariant"

	v := DefaultVariant()
	data, err := os.ReadFile(path)
	if err != nil {
		return v, fmt.Errorf("%s: %w", operation, err)
	}
	if err := yaml.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%s: failed to parse %s: %w", operation, path, err)
	}
	v.lowerKeywords()
	if err := v.Validate(); err != nil {
		return v, fmt.Errorf("%s: %w", operation, err)
	}
	return v, nil
}

func (v Variant) Validate() error {
	switch {
	case strings.TrimSpace(v.Welcome.Text) == "":
		return fmt.Errorf("welcome text is empty")
	case len(v.ResetKeywords) == 0:
		return fmt.Errorf("no reset keywords")
	case v.FallbackLimit < 1:
		return fmt.Errorf("fallback_limit must be at least 1, got %d", v.FallbackLimit)
	case v.CatalogLimit < 1:
		return fmt.Errorf("catalog_limit must be at least 1, got %d", v.CatalogLimit)
	}
	return nil
}

// lowerKeywords makes hand-written keyword lists match lower-cased input.
func (v *Variant) lowerKeywords() {
	for _, set := range []*[]string{
		&v.ResetKeywords, &v.TrackKeywords, &v.CategoryKeywords, &v.CustomKeywords,
		&v.PolicyKeywords, &v.CheckoutKeywords, &v.HandoffKeywords, &v.PlaceOrderKeywords,
	} {
		// fresh slices, the caller's Variant may share the old ones
		lowered := make([]string, len(*set))
		for i, k := range *set {
			lowered[i] = strings.ToLower(strings.TrimSpace(k))
		}
		*set = lowered
	}
}
