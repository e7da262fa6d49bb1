package session

import "time"

// State is a step of the ordering dialog.
type State string

const (
	StateIdle                 State = "IDLE"
	StateCheckStatus          State = "CHECK_STATUS"
	StateAskOrderCategory     State = "ASK_ORDER_CATEGORY"
	StateWebsiteSelectProduct State = "WEBSITE_SELECT_PRODUCT"
	StateWebsiteAskQty        State = "WEBSITE_ASK_QTY"
	StateCustomUploadDetails  State = "CUSTOM_UPLOAD_DETAILS"
	StateCustomAskQty         State = "CUSTOM_ASK_QTY"
	StateAskAddMore           State = "ASK_ADD_MORE"
	StateAskName              State = "ASK_NAME"
	StateAskAddress           State = "ASK_ADDRESS"
	StateAskPhone             State = "ASK_PHONE"
)

var states = map[State]struct{}{
	StateIdle:                 {},
	StateCheckStatus:          {},
	StateAskOrderCategory:     {},
	StateWebsiteSelectProduct: {},
	StateWebsiteAskQty:        {},
	StateCustomUploadDetails:  {},
	StateCustomAskQty:         {},
	StateAskAddMore:           {},
	StateAskName:              {},
	StateAskAddress:           {},
	StateAskPhone:             {},
}

// Valid reports whether s is one of the known dialog states.
func (s State) Valid() bool {
	_, ok := states[s]
	return ok
}

// IsQuantityStep reports whether the state waits for the pending item's quantity.
func (s State) IsQuantityStep() bool {
	return s == StateWebsiteAskQty || s == StateCustomAskQty
}

type ItemKind string

const (
	KindWebsite ItemKind = "Website"
	KindCustom  ItemKind = "Custom"
)

type CartItem struct {
	Kind        ItemKind `json:"kind"`
	ProductName string   `json:"product_name"`
	Size        *string  `json:"size,omitempty"`
	Quantity    string   `json:"quantity"`
	Details     *string  `json:"details,omitempty"`
}

type UserInfo struct {
	Name    *string `json:"name,omitempty"`
	Address *string `json:"address,omitempty"`
	Phone   *string `json:"phone,omitempty"`
}

// Session is the dialog state of one user.
type Session struct {
	UserID        string     `json:"user_id"`
	State         State      `json:"state"`
	Cart          []CartItem `json:"cart"`
	UserInfo      UserInfo   `json:"user_info"`
	PendingItem   *CartItem  `json:"pending_item,omitempty"`
	FallbackCount int        `json:"fallback_count"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// New returns a fresh IDLE session with the phone seeded from the user id.
func New(userID string) *Session {
	phone := userID
	return &Session{
		UserID:   userID,
		State:    StateIdle,
		Cart:     []CartItem{},
		UserInfo: UserInfo{Phone: &phone},
	}
}

// Reset drops the cart and any item under construction and returns to IDLE.
func (s *Session) Reset() {
	s.State = StateIdle
	s.Cart = []CartItem{}
	s.PendingItem = nil
	s.FallbackCount = 0
}

// CommitPending moves the pending item into the cart with the given quantity.
func (s *Session) CommitPending(qty string) bool {
	if s.PendingItem == nil {
		return false
	}
	item := *s.PendingItem
	item.Quantity = qty
	s.Cart = append(s.Cart, item)
	s.PendingItem = nil
	return true
}

// Clone returns a deep copy so stores never share memory with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Cart = make([]CartItem, len(s.Cart))
	for i, item := range s.Cart {
		c.Cart[i] = item.clone()
	}
	if s.PendingItem != nil {
		p := s.PendingItem.clone()
		c.PendingItem = &p
	}
	c.UserInfo = UserInfo{
		Name:    cloneString(s.UserInfo.Name),
		Address: cloneString(s.UserInfo.Address),
		Phone:   cloneString(s.UserInfo.Phone),
	}
	return &c
}

func (i CartItem) clone() CartItem {
	i.Size = cloneString(i.Size)
	i.Details = cloneString(i.Details)
	return i
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// StringValue dereferences p, returning "" for nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// StringPtr returns a pointer to a copy of v.
func StringPtr(v string) *string {
	return &v
}
