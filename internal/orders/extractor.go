// Package orders pulls order records out of decoded order-search responses.
package orders

import (
	"encoding/json"
	"regexp"
)

// MobilePattern matches an 11-digit mainland-China mobile number. Other
// numbering plans are not recognised.
var MobilePattern = regexp.MustCompile(`1[3-9]\d{9}`)

// Payload field names of the order-search response envelope.
const (
	fieldCode         = "code"
	fieldOrderList    = "orderList"
	fieldBuyerInfo    = "buyerInfo"
	fieldCommonInfo   = "commonInfo"
	fieldAcceptInfo   = "acceptInfo"
	fieldRechargeData = "rechargeData"
	fieldContent      = "content"
	fieldPhone        = "phone"
	fieldNickName     = "nickName"
	fieldOrderID      = "orderId"
	fieldStatusStr    = "statusStr"
)

// Extract returns the orders contained in one decoded payload. A payload that
// is not an object, or whose code is not integer zero, contains no orders.
// Malformed orders are skipped without affecting their siblings.
func Extract(payload any) Result {
	res := Result{Tally: NewTally()}

	envelope, ok := payload.(map[string]any)
	if !ok || !isSuccessCode(envelope[fieldCode]) {
		return res
	}

	list, _ := envelope[fieldOrderList].([]any)
	for _, item := range list {
		order, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rec, src := extractOrder(order)
		if src != "" {
			res.Tally.Add(src)
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

func extractOrder(order map[string]any) (Record, PhoneSource) {
	buyer := object(order[fieldBuyerInfo])
	common := object(order[fieldCommonInfo])
	recharge := object(object(order[fieldAcceptInfo])[fieldRechargeData])

	phone, src := resolvePhone(recharge, buyer)

	return Record{
		OrderID:       text(common[fieldOrderID]),
		BuyerNickname: text(buyer[fieldNickName]),
		Status:        text(common[fieldStatusStr]),
		Phone:         phone,
	}, src
}

// resolvePhone walks the fallback chain: recharge content, then the buyer's
// phone field, then a number embedded in the nickname.
func resolvePhone(recharge, buyer map[string]any) (string, PhoneSource) {
	if content, ok := recharge[fieldContent].(string); ok {
		if m := MobilePattern.FindString(content); m != "" {
			return m, SourceRechargeData
		}
	}

	if phone := buyerPhone(buyer[fieldPhone]); phone != "" {
		return phone, SourceBuyerPhone
	}

	if nick, ok := buyer[fieldNickName].(string); ok {
		if m := MobilePattern.FindString(nick); m != "" {
			return m, SourceNickname
		}
	}

	return "", ""
}

// buyerPhone accepts the phone field verbatim when it is a string or a number.
func buyerPhone(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	}
	return ""
}

func isSuccessCode(v any) bool {
	n, ok := v.(json.Number)
	if !ok {
		return false
	}
	switch n.String() {
	case "0", "-0":
		return true
	}
	return false
}

// object returns v as a JSON object, or an empty one.
func object(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// text renders a JSON value as a cell value. Numbers keep their literal
// digits; objects and arrays are rendered as compact JSON.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
