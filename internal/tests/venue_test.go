package tests

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gleipnir/internal/book"
	"gleipnir/internal/common"
	"gleipnir/internal/stats"
	"gleipnir/internal/venue"
)

// --- Setup & Helpers --------------------------------------------------------

func createTestVenue() (*venue.Venue, *stats.Tracker) {
	v := venue.New("AAPL", "MSFT")
	tracker := stats.NewTracker()
	v.SetObserver(tracker.Observe)
	return v, tracker
}

// place submits a batch of good-till-cancel orders at one price/side and
// returns the assigned ids.
func place(t *testing.T, v *venue.Venue, symbol string, side common.Side, price common.Price, quantities ...common.Quantity) []common.OrderID {
	t.Helper()
	ids := make([]common.OrderID, 0, len(quantities))
	for _, qty := range quantities {
		id, _, err := v.PlaceOrder(symbol, side, common.GoodTillCancel, price, qty)
		assert.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

// --- Tests ------------------------------------------------------------------

func TestVenue_AssignsMonotonicIDs(t *testing.T) {
	v, _ := createTestVenue()

	ids := place(t, v, "AAPL", common.Buy, 99, 10, 20, 30)
	more := place(t, v, "MSFT", common.Sell, 200, 5)

	assert.Equal(t, []common.OrderID{1, 2, 3}, ids)
	assert.Equal(t, []common.OrderID{4}, more)
}

func TestVenue_BooksAreIndependent(t *testing.T) {
	v, _ := createTestVenue()

	place(t, v, "AAPL", common.Buy, 100, 10)
	place(t, v, "MSFT", common.Sell, 100, 10)

	// Opposing prices on different symbols never cross.
	aapl, err := v.Depth("AAPL")
	assert.NoError(t, err)
	msft, err := v.Depth("MSFT")
	assert.NoError(t, err)

	assert.Equal(t, []book.LevelInfo{{Price: 100, Quantity: 10}}, aapl.Bids)
	assert.Empty(t, aapl.Asks)
	assert.Equal(t, []book.LevelInfo{{Price: 100, Quantity: 10}}, msft.Asks)
	assert.Empty(t, msft.Bids)
}

func TestVenue_CrossReportsTrades(t *testing.T) {
	v, tracker := createTestVenue()

	sellIDs := place(t, v, "AAPL", common.Sell, 100, 10)
	buyID, trades, err := v.PlaceOrder("AAPL", common.Buy, common.GoodTillCancel, 100, 10)
	assert.NoError(t, err)

	assert.Equal(t, []common.Trade{
		common.NewTrade(
			common.TradeRecord{OrderID: buyID, Price: 100, Quantity: 10},
			common.TradeRecord{OrderID: sellIDs[0], Price: 100, Quantity: 10},
		),
	}, trades)

	// The tracker saw both successful adds and the matcher runs.
	summaries := tracker.Summaries()
	assert.Equal(t, uint64(2), summaries["AddOrder_Success"].Count)
	assert.Equal(t, uint64(2), summaries["MatchOrders"].Count)
}

func TestVenue_CancelAndModify(t *testing.T) {
	v, _ := createTestVenue()

	ids := place(t, v, "AAPL", common.Buy, 100, 10, 20)

	assert.NoError(t, v.CancelOrder("AAPL", ids[0]))
	depth, err := v.Depth("AAPL")
	assert.NoError(t, err)
	assert.Equal(t, []book.LevelInfo{{Price: 100, Quantity: 20}}, depth.Bids)

	trades, err := v.ModifyOrder("AAPL", common.NewOrderModify(ids[1], common.Buy, 99, 15))
	assert.NoError(t, err)
	assert.Empty(t, trades)
	depth, err = v.Depth("AAPL")
	assert.NoError(t, err)
	assert.Equal(t, []book.LevelInfo{{Price: 99, Quantity: 15}}, depth.Bids)
}

func TestVenue_UnknownSymbol(t *testing.T) {
	v, _ := createTestVenue()

	_, _, err := v.PlaceOrder("TSLA", common.Buy, common.GoodTillCancel, 100, 10)
	assert.ErrorIs(t, err, venue.ErrUnknownSymbol)

	assert.ErrorIs(t, v.CancelOrder("TSLA", 1), venue.ErrUnknownSymbol)

	_, err = v.ModifyOrder("TSLA", common.NewOrderModify(1, common.Buy, 100, 10))
	assert.ErrorIs(t, err, venue.ErrUnknownSymbol)

	_, err = v.Depth("TSLA")
	assert.ErrorIs(t, err, venue.ErrUnknownSymbol)
}
