package offers

import (
	"testing"

	"loanpredictor/internal/models"
)

func TestRenderEmptyListYieldsPlaceholder(t *testing.T) {
	for _, list := range [][]models.LoanOffer{nil, {}} {
		cards := Render(list)
		if len(cards) != 1 {
			t.Fatalf("got %d cards, want 1", len(cards))
		}
		if !cards[0].Placeholder {
			t.Error("expected placeholder card")
		}
		if cards[0].Message != "No loan recommendations available at this time." {
			t.Errorf("Message = %q", cards[0].Message)
		}
	}
}

func TestRenderFallbacks(t *testing.T) {
	cards := Render([]models.LoanOffer{{}})
	if len(cards) != 1 {
		t.Fatalf("got %d cards, want 1", len(cards))
	}
	c := cards[0]

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"BankName", c.BankName, "Bank Name"},
		{"Rating", c.Rating, "N/A"},
		{"LoanType", c.LoanType, "N/A"},
		{"MaxAmount", c.MaxAmount, "N/A"},
		{"RepaymentTime", c.RepaymentTime, "N/A"},
		{"InterestRate", c.InterestRate.Text, "See website"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}

	if c.Placeholder {
		t.Error("offer card must not be a placeholder")
	}
	if c.InterestRate.IsLink() {
		t.Error("interest rate without link must not be a hyperlink")
	}
	if c.HasReason {
		t.Error("reason block must be omitted when reason is absent")
	}
}

func TestRenderInterestRate(t *testing.T) {
	tests := []struct {
		name     string
		offer    models.LoanOffer
		wantText string
		wantLink string
	}{
		{"sentinel with link", models.LoanOffer{InterestRate: "See website", Link: "https://bank.example"}, "See website", "https://bank.example"},
		{"sentinel case and space insensitive", models.LoanOffer{InterestRate: "  see WEBSITE ", Link: "https://bank.example"}, "See website", "https://bank.example"},
		{"sentinel without link", models.LoanOffer{InterestRate: "See website"}, "See website", ""},
		{"plain rate ignores link", models.LoanOffer{InterestRate: "8.5% p.a.", Link: "https://bank.example"}, "8.5% p.a.", ""},
		{"missing rate", models.LoanOffer{Link: "https://bank.example"}, "See website", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render([]models.LoanOffer{tt.offer})[0].InterestRate
			if got.Text != tt.wantText || got.Link != tt.wantLink {
				t.Errorf("InterestRate = %+v, want {Text:%q Link:%q}", got, tt.wantText, tt.wantLink)
			}
		})
	}
}

func TestRenderKeepsOfferFields(t *testing.T) {
	cards := Render([]models.LoanOffer{
		{BankName: "State Bank", Rating: "8.5", LoanType: "Home Loan", MaxAmount: "₹50,00,000", RepaymentTime: "20 years", InterestRate: "8.5%", Reason: "Lowest rate for your profile"},
		{BankName: "City Bank"},
	})

	if len(cards) != 2 {
		t.Fatalf("got %d cards, want 2", len(cards))
	}
	first := cards[0]
	if first.BankName != "State Bank" || first.Rating != "8.5" || first.MaxAmount != "₹50,00,000" {
		t.Errorf("unexpected card %+v", first)
	}
	if !first.HasReason || first.Reason != "Lowest rate for your profile" {
		t.Errorf("reason = %q (HasReason %v)", first.Reason, first.HasReason)
	}
	if cards[1].HasReason {
		t.Error("second card has no reason")
	}
}
