package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Amounts travel as plain JSON numbers, e.g. "amount": 5000. Each wire type
// shadows its decimal fields with json.Number so the encoding does not depend on
// decimal.MarshalJSONWithoutQuotes.

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func (f FeeRecord) MarshalJSON() ([]byte, error) {
	type plain FeeRecord
	return json.Marshal(struct {
		plain
		Amount  json.Number `json:"amount"`
		Balance json.Number `json:"balance"`
	}{plain(f), number(f.Amount), number(f.Balance)})
}

func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TotalPaid    json.Number `json:"total_paid"`
		TotalPending json.Number `json:"total_pending"`
	}{number(s.TotalPaid), number(s.TotalPending)})
}

func (r CollectionRequest) MarshalJSON() ([]byte, error) {
	type plain CollectionRequest
	return json.Marshal(struct {
		plain
		Amount json.Number `json:"amount"`
	}{plain(r), number(r.Amount)})
}

func (p Payment) MarshalJSON() ([]byte, error) {
	type plain Payment
	return json.Marshal(struct {
		plain
		Amount json.Number `json:"amount"`
	}{plain(p), number(p.Amount)})
}

func (c CycleStudent) MarshalJSON() ([]byte, error) {
	type plain CycleStudent
	return json.Marshal(struct {
		plain
		Amount json.Number `json:"amount"`
	}{plain(c), number(c.Amount)})
}

func (r CollectionReport) MarshalJSON() ([]byte, error) {
	type plain CollectionReport
	return json.Marshal(struct {
		plain
		Collected   json.Number `json:"collected"`
		Outstanding json.Number `json:"outstanding"`
	}{plain(r), number(r.Collected), number(r.Outstanding)})
}
