package bot

// QUICK REPLIES

// Message is one reply of the bot: text plus quick-reply options in
// display order. An empty Options means free text is expected next.
type Message struct {
	Text    string   `json:"text" yaml:"text"`
	Options []string `json:"options" yaml:"options"`
}

func newMessage(text string, options ...string) Message {
	if options == nil {
		options = []string{}
	}
	return Message{Text: text, Options: options}
}

// normalized copies the options so callers never share a slice with the
// engine, and turns nil into an empty list.
func (m Message) normalized() Message {
	opts := make([]string, len(m.Options))
	copy(opts, m.Options)
	return Message{Text: m.Text, Options: opts}
}

const (
	optMainMenu         = "🔙 Main Menu"
	optWebsiteProduct   = "Website Product"
	optCustomProduct    = "Custom Product"
	optPlaceOrder       = "🛒 Place an order"
	optCustomPrint      = "✨ Custom Print"
	optUploadedDetails  = "I have uploaded details"
	optYes              = "Yes"
	optCheckout         = "No, Checkout"
	optChatOnWhatsApp   = "Chat on WhatsApp"
	optCheckOrderStatus = "Check Order Status"
	optPlaceAnother     = "Place another order"
	optStatusAgain      = "Use Check Status Again"
)

func categoryOptions() []string {
	return []string{optWebsiteProduct, optCustomProduct}
}

func quantityOptions() []string {
	return []string{"1", "2", "3"}
}

func addMoreOptions() []string {
	return []string{optYes, optCheckout}
}
