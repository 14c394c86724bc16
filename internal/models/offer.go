package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// LoanOffer is one externally supplied loan recommendation. Every field is optional.
type LoanOffer struct {
	BankName      string     `json:"bank_name,omitempty"`
	LoanType      string     `json:"loan_type,omitempty"`
	MaxAmount     string     `json:"max_amount,omitempty"`     // pre-formatted by the service
	RepaymentTime string     `json:"repayment_time,omitempty"`
	InterestRate  string     `json:"interest_rate,omitempty"`  // may be the "See website" sentinel
	Link          string     `json:"link,omitempty"`
	Rating        FlexString `json:"rating,omitempty"`         // 0-10 scale
	Reason        string     `json:"reason,omitempty"`
}

// FlexString accepts either a JSON string or a JSON number
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if v, err := strconv.ParseFloat(n.String(), 64); err == nil {
		*f = FlexString(strconv.FormatFloat(v, 'f', -1, 64))
		return nil
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}
