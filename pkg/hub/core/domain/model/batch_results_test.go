package model_test

import (
	"testing"

	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"

	"github.com/stretchr/testify/assert"
)

func fptr(v float64) *float64 { return &v }

func TestAffinityRanking_Better(t *testing.T) {
	higher := model.AffinityRanking{HigherIsBetter: true}
	assert.True(t, higher.Better(2.0, 1.0))
	assert.False(t, higher.Better(1.0, 2.0))
	assert.Equal(t, 2.0, higher.Best(1.0, 2.0))
	assert.Equal(t, 1.0, higher.Worst(1.0, 2.0))

	lower := model.AffinityRanking{HigherIsBetter: false}
	assert.True(t, lower.Better(1.0, 2.0))
	assert.Equal(t, 1.0, lower.Best(1.0, 2.0))
	assert.Equal(t, 2.0, lower.Worst(1.0, 2.0))
}

func TestAffinityRanking_SortRows(t *testing.T) {
	rows := []model.JobResultRow{
		{JobID: "a", Affinity: fptr(1.2)},
		{JobID: "b", Affinity: nil},
		{JobID: "c", Affinity: fptr(3.4)},
		{JobID: "d", Affinity: fptr(0.9)},
	}

	model.AffinityRanking{HigherIsBetter: true}.SortRows(rows)
	assert.Equal(t, "c", rows[0].JobID)
	assert.Equal(t, "a", rows[1].JobID)
	assert.Equal(t, "d", rows[2].JobID)
	// Rows without an affinity sort last
	assert.Equal(t, "b", rows[3].JobID)

	model.AffinityRanking{HigherIsBetter: false}.SortRows(rows)
	assert.Equal(t, "d", rows[0].JobID)
	assert.Equal(t, "a", rows[1].JobID)
	assert.Equal(t, "c", rows[2].JobID)
	assert.Equal(t, "b", rows[3].JobID)
}

func TestAffinityRanking_SortRowsStableOnTies(t *testing.T) {
	rows := []model.JobResultRow{
		{JobID: "first", Affinity: fptr(1.0)},
		{JobID: "second", Affinity: fptr(1.0)},
		{JobID: "third", Affinity: fptr(1.0)},
	}
	model.AffinityRanking{HigherIsBetter: true}.SortRows(rows)
	assert.Equal(t, "first", rows[0].JobID)
	assert.Equal(t, "second", rows[1].JobID)
	assert.Equal(t, "third", rows[2].JobID)
}
