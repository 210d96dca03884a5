package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnaEHC/semaforo-app/models"
)

func TestNewBlock_SortsByDay(t *testing.T) {
	b := blockOn(t, flags(), flags(), flags())

	assert.Equal(t, day(3), b.First().DayDate)
	assert.Equal(t, day(4), b.Records[1].DayDate)
	assert.Equal(t, day(5), b.Latest().DayDate)
}

func TestNewBlock_Incomplete(t *testing.T) {
	_, err := NewBlock("ACME", []models.DailyRecord{record("ACME", day(3), flags())})
	assert.ErrorIs(t, err, ErrIncompleteBlock)

	_, err = NewBlock("ACME", []models.DailyRecord{
		record("ACME", day(3), flags()),
		record("ACME", models.Date{}, flags()),
		record("ACME", day(5), flags()),
	})
	assert.ErrorIs(t, err, ErrIncompleteBlock)
}

func TestGroupBlocks(t *testing.T) {
	records := []models.DailyRecord{
		record("B", day(3), flags()),
		record("A", day(3), flags()),
		record("B", day(4), flags()),
		record("A", day(4), flags()),
		record("B", day(5), flags()),
		record("", day(5), flags()),
	}

	blocks, incomplete := GroupBlocks(records)

	require.Len(t, blocks, 1)
	assert.Equal(t, "B", blocks[0].ClientID)
	assert.Equal(t, []string{"A"}, incomplete)
}

func TestBlock_ApplyReturnsCopy(t *testing.T) {
	b := blockOn(t, flags(), flags(), flags())

	next := b.Apply(statuses(models.StatusGreen, models.StatusYellow, models.StatusRed))

	assert.Equal(t, statuses(), b.Statuses())
	assert.Equal(t, statuses(models.StatusGreen, models.StatusYellow, models.StatusRed), next.Statuses())
}
