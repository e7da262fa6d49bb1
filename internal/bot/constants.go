package bot

// Texts shared by every variant. Variant-specific texts live in Variant.
const (
	textTrackPrompt      = "Sure! Please enter your **Order ID** (e.g., #PM-1234) to check status."
	textCategoryTemplate = "Welcome to the Otaku Zone! Check out our %s collection.\n🔥 **Admin Tip**: Buy 2 Get 10%% Off!\n\n[View Collection](/products.html?cat=%s)"
	textCustomUploadHint = "Finding your masterpiece? We use **240gsm premium paper** for custom prints! 🖼️\n\nUpload your art by clicking the 📎 icon below."
	textImageReceived    = "Wow, great shot! 📸 I've received your image. How many copies do you need?"
	textCheckoutLink     = "Ready to own your art? 🛒\n\n[Proceed to Checkout](/checkout.html)"
	textHandoffTemplate  = "Click here to chat with our expert: [Open WhatsApp](%s)"
	textHandoffOffer     = "I'm having trouble finding that. Would you like to chat with a human expert on WhatsApp?"
	textNotUnderstood    = "I didn't quite catch that. Could you rephrase? 🤔"

	textOrderWhat       = "What would you like to order?"
	textChooseCategory  = "Please choose:"
	textCategoryAgain   = "Category?"
	textSelectProduct   = "Select a product from our catalog:"
	textCustomDetails   = "For custom products, please describe/upload details here."
	textProductQtyTmpl  = "Selected '%s'. Quantity?"
	textCustomQty       = "Got it. Quantity?"
	textAddedToCart     = "Added to cart. Add more?"
	textEmptyCart       = "Your cart is empty. What would you like to order?"
	textAskName         = "Please enter your Full Name:"
	textAskAddress      = "Please enter your Full Address:"
	textAskPhone        = "Please enter your 10-digit Mobile Number:"
	textInvalidPhone    = "⚠️ Invalid number. Please enter exactly 10 digits:"
	textOrderPlacedTmpl = "Order Placed Successfully! ✅\nOrder ID: #%s\n\nItems: %d\nName: %s\nPhone: %s\n\n%s"
	textOrderFailed     = "⚠️ System Error: Could not save order. Please try again later."

	textStatusConfirmed = "Order #%s: Confirmed ✅"
	textStatusPending   = "Order #%s: Payment Pending ⏳"
	textStatusNotFound  = "Order ID not found."
	textStatusNoLedger  = "System Error: Database not connected."

	textSystemError = "⚠️ Something went wrong on our side. Please try again in a moment."
)

// uploadMarker prefixes messages sent by the chat widget after an upload.
const uploadMarker = "[image uploaded]"

// TimestampLayout is the format of the ledger Timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// defaultSize is written for items without a size.
const defaultSize = "NA"

// The category shown when a recommendation names none of the known ones.
const allCategories = "all"

var knownCategories = []string{"anime", "marvel", "cars"}
