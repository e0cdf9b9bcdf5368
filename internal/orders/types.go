package orders

// Record is one extracted order. Records are never modified after
// extraction.
type Record struct {
	OrderID       string `json:"order_id"`
	BuyerNickname string `json:"buyer_nickname"`
	Status        string `json:"status"`
	Phone         string `json:"phone"`
}

// PhoneSource names the fallback step that produced a record's phone number.
type PhoneSource string

const (
	SourceRechargeData PhoneSource = "recharge_data"
	SourceBuyerPhone   PhoneSource = "buyer_phone"
	SourceNickname     PhoneSource = "nickname"
)

// PhoneSources lists every source in resolution priority order.
var PhoneSources = []PhoneSource{SourceRechargeData, SourceBuyerPhone, SourceNickname}

// Tally counts resolved phone numbers per source. It is diagnostic only.
type Tally map[PhoneSource]int

// NewTally returns a tally with every source present at zero.
func NewTally() Tally {
	t := make(Tally, len(PhoneSources))
	for _, s := range PhoneSources {
		t[s] = 0
	}
	return t
}

// Add increments the count for src.
func (t Tally) Add(src PhoneSource) {
	t[src]++
}

// Merge adds every count in other to t.
func (t Tally) Merge(other Tally) {
	for src, n := range other {
		t[src] += n
	}
}

// Total is the number of records that received a phone number.
func (t Tally) Total() int {
	n := 0
	for _, c := range t {
		n += c
	}
	return n
}

// Result is what one payload yields.
type Result struct {
	Records []Record
	Tally   Tally
}
