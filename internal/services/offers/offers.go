// Package offers turns loan offers from the prediction service into display cards.
package offers

import (
	"strings"

	"loanpredictor/internal/models"
)

const (
	PlaceholderMessage = "No loan recommendations available at this time."
	SeeWebsite         = "See website"

	defaultBankName = "Bank Name"
	notAvailable    = "N/A"
)

// InterestRate is the interest-rate cell; Link is set when it renders as a hyperlink
type InterestRate struct {
	Text string
	Link string
}

// IsLink reports whether the cell renders as a hyperlink
func (r InterestRate) IsLink() bool {
	return r.Link != ""
}

// Card is one rendered recommendation. A placeholder card carries only Message.
type Card struct {
	Placeholder bool
	Message     string

	BankName      string
	Rating        string
	LoanType      string
	MaxAmount     string
	RepaymentTime string
	InterestRate  InterestRate
	Reason        string
	HasReason     bool
}

// Render maps offers to cards. An empty list yields a single placeholder card.
func Render(list []models.LoanOffer) []Card {
	if len(list) == 0 {
		return []Card{{Placeholder: true, Message: PlaceholderMessage}}
	}

	cards := make([]Card, 0, len(list))
	for _, o := range list {
		cards = append(cards, renderOffer(o))
	}
	return cards
}

func renderOffer(o models.LoanOffer) Card {
	reason := strings.TrimSpace(o.Reason)
	return Card{
		BankName:      orDefault(o.BankName, defaultBankName),
		Rating:        orDefault(o.Rating.String(), notAvailable),
		LoanType:      orDefault(o.LoanType, notAvailable),
		MaxAmount:     orDefault(o.MaxAmount, notAvailable),
		RepaymentTime: orDefault(o.RepaymentTime, notAvailable),
		InterestRate:  interestRate(o),
		Reason:        reason,
		HasReason:     reason != "",
	}
}

func interestRate(o models.LoanOffer) InterestRate {
	link := strings.TrimSpace(o.Link)
	if strings.EqualFold(strings.TrimSpace(o.InterestRate), SeeWebsite) && link != "" {
		return InterestRate{Text: SeeWebsite, Link: link}
	}
	return InterestRate{Text: orDefault(o.InterestRate, SeeWebsite)}
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
