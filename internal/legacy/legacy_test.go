package legacy

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

const dataJSON = `{
  "groups": {
    "2": {
      "id": 2,
      "name": "Flat",
      "members": ["Ann", "Ben"],
      "created_at": "2024-02-01T09:00:00.000001",
      "expenses": [4, 9]
    },
    "1": {
      "id": 1,
      "name": "Goa",
      "members": ["A", "B", "C"],
      "created_at": "2024-01-05T18:30:12.345678",
      "expenses": [1, 2, 3]
    },
    "3": {
      "id": 3,
      "name": "Solo",
      "members": ["Z"],
      "created_at": "2024-03-01T10:00:00",
      "expenses": []
    }
  },
  "expenses": {
    "1": {"id": 1, "description": "Dinner", "amount": 90.0, "paid_by": "A", "group_id": 1,
          "split_type": "equal", "date": "2024-01-05T20:00:00.5", "shares": {"A": 30.0, "B": 30.0, "C": 30.0}},
    "2": {"id": 2, "description": "Taxi", "amount": 100.0, "paid_by": "B", "group_id": 1,
          "split_type": "equal", "date": "2024-01-06T01:00:00", "shares": {"A": 33.33, "B": 33.33, "C": 33.33}},
    "3": {"id": 3, "description": "Hotel", "amount": 60.0, "paid_by": "C", "group_id": 1,
          "split_type": "custom", "date": "2024-01-06T12:00:00", "shares": {"A": 40.0, "B": 20.0, "C": 0}},
    "4": {"id": 4, "description": "Rent", "amount": 1000.0, "paid_by": "Nobody", "group_id": 2,
          "split_type": "equal", "date": "2024-02-01T10:00:00", "shares": {"Ann": 500.0, "Ben": 500.0}}
  },
  "next_group_id": 4,
  "next_expense_id": 5
}`

func TestImport(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "import.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	l := ledger.New(store)
	ctx := context.Background()

	f, err := Read(strings.NewReader(dataJSON))
	require.NoError(t, err)

	res, err := Import(ctx, l, f)
	require.NoError(t, err)

	assert.Len(t, res.GroupIDs, 2)
	assert.Len(t, res.ExpenseIDs, 3)

	var skipped []string
	for _, s := range res.Skipped {
		skipped = append(skipped, s.Kind+":"+strconv.FormatInt(s.ID, 10))
	}
	assert.ElementsMatch(t, []string{"group:3", "expense:4", "expense:9"}, skipped)

	goa, err := l.GetGroup(ctx, res.GroupIDs[1])
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 5, 18, 30, 12, 0, time.UTC).Unix(), goa.Group.CreatedAt)
	require.Len(t, goa.Expenses, 3)

	hotel := goa.Expenses[0]
	assert.Equal(t, "Hotel", hotel.Description)
	assert.Equal(t, calculator.SplitCustom, hotel.SplitType)
	assert.Equal(t, []string{"A", "B"}, hotel.Participants)

	taxi := goa.Expenses[1]
	var taxiShares money.Money
	for _, share := range taxi.Shares {
		taxiShares += share
	}
	assert.Equal(t, money.Money(10000), taxiShares, "imported equal splits add up exactly")

	plan, err := l.SettleUp(ctx, res.GroupIDs[1])
	require.NoError(t, err)
	assert.Equal(t, map[string]money.Money{"A": -1333, "B": 1666, "C": -333}, plan.Balances.Map())

	overview, err := l.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, overview.Groups, 2)
	assert.Equal(t, "Flat", overview.Groups[0].Name, "groups keep their original creation order")
}

func TestReadRejectsGarbage(t *testing.T) {
	_, err := Read(strings.NewReader("{not json"))
	assert.Error(t, err)
}
