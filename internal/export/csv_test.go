package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

func TestWriteExpenses(t *testing.T) {
	g := &models.Group{ID: 1, Name: "Trip", Members: []string{"A", "B", "C"}}
	expenses := []*models.Expense{
		{
			ID:           7,
			GroupID:      1,
			Description:  "Dinner, with drinks",
			BaseAmount:   money.MustParse("100"),
			Discount:     money.MustParse("20"),
			ServiceTax:   money.MustParse("5"),
			GST:          money.MustParse("5"),
			TotalAmount:  money.MustParse("90"),
			PaidBy:       "A",
			SplitType:    calculator.SplitEqual,
			Participants: []string{"A", "B", "C"},
			Shares:       map[string]money.Money{"A": 3000, "B": 3000, "C": 3000},
			Date:         time.Date(2024, 3, 9, 20, 0, 0, 0, time.UTC).Unix(),
		},
		{
			ID:           8,
			GroupID:      1,
			Description:  "Taxi",
			BaseAmount:   money.MustParse("12.5"),
			TotalAmount:  money.MustParse("12.5"),
			PaidBy:       "C",
			SplitType:    calculator.SplitCustom,
			Participants: []string{"B", "C"},
			Shares:       map[string]money.Money{"A": 0, "B": 1000, "C": 250},
			Date:         time.Date(2024, 3, 10, 1, 0, 0, 0, time.UTC).Unix(),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteExpenses(&buf, g, expenses))

	want := "expense_id,date,description,paid_by,split_type,base,discount,service_tax,gst,total,A,B,C\n" +
		"7,2024-03-09,\"Dinner, with drinks\",A,equal,100.00,20.00,5.00,5.00,90.00,30.00,30.00,30.00\n" +
		"8,2024-03-10,Taxi,C,custom,12.50,0.00,0.00,0.00,12.50,0.00,10.00,2.50\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteBalances(t *testing.T) {
	balances := calculator.Balances{
		{Member: "A", Net: 6000, TotalPaid: 9000, TotalOwed: 3000},
		{Member: "B", Net: -3000, TotalOwed: 3000},
		{Member: "C", Net: -3000, TotalOwed: 3000},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBalances(&buf, balances))
	assert.Equal(t, "member,total_paid,total_owed,net\n"+
		"A,90.00,30.00,60.00\n"+
		"B,0.00,30.00,-30.00\n"+
		"C,0.00,30.00,-30.00\n", buf.String())
}

func TestWriteSettlements(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSettlements(&buf, []calculator.Settlement{
		{From: "B", To: "A", Amount: 3000},
		{From: "C", To: "A", Amount: 3000},
	}))
	assert.Equal(t, "from,to,amount\nB,A,30.00\nC,A,30.00\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteSettlements(&buf, nil))
	assert.Equal(t, "from,to,amount\n", buf.String())
}

func TestParseView(t *testing.T) {
	tests := []struct {
		in      string
		want    View
		wantErr bool
	}{
		{"", ViewExpenses, false},
		{"expenses", ViewExpenses, false},
		{"balances", ViewBalances, false},
		{"settlements", ViewSettlements, false},
		{"ledger", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseView(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
