package usecase

import (
	"testing"

	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractScores_FlatFields(t *testing.T) {
	scores := extractScores(model.Payload{
		"affinity":             1.25,
		"confidence":           0.9,
		"iptm":                 0.81,
		"ptm":                  0.77,
		"plddt":                88.5,
		"complex_plddt":        86.1,
		"interface_confidence": 0.6,
	})

	require.NotNil(t, scores.Affinity)
	assert.InDelta(t, 1.25, *scores.Affinity, 1e-9)
	require.NotNil(t, scores.Confidence)
	assert.InDelta(t, 0.9, *scores.Confidence, 1e-9)
	require.NotNil(t, scores.PLDDT)
	assert.InDelta(t, 88.5, *scores.PLDDT, 1e-9)
	assert.Nil(t, scores.EnsembleAffinity)
}

func TestExtractScores_AffinityAndConfidenceBlocks(t *testing.T) {
	scores := extractScores(model.Payload{
		"affinity": map[string]interface{}{
			"affinity_pred_value":         -2.3,
			"affinity_pred_value1":        -2.1,
			"affinity_probability_binary": 0.72,
		},
		"confidence": map[string]interface{}{
			"confidence_score": 0.88,
			"iptm":             0.8,
			"ptm":              0.79,
			"plddt":            90.2,
			"complex_plddt":    89.0,
			"ligand_iptm":      0.65,
		},
	})

	require.NotNil(t, scores.Affinity)
	assert.InDelta(t, -2.3, *scores.Affinity, 1e-9)
	require.NotNil(t, scores.EnsembleAffinity)
	assert.InDelta(t, -2.1, *scores.EnsembleAffinity, 1e-9)
	require.NotNil(t, scores.EnsembleProbability)
	assert.InDelta(t, 0.72, *scores.EnsembleProbability, 1e-9)
	require.NotNil(t, scores.Confidence)
	assert.InDelta(t, 0.88, *scores.Confidence, 1e-9)
	require.NotNil(t, scores.InterfaceConfidence)
	assert.InDelta(t, 0.65, *scores.InterfaceConfidence, 1e-9)
}

func TestExtractScores_RawWrapperShapes(t *testing.T) {
	for _, key := range []string{"raw_modal_result", "result", "results"} {
		t.Run(key, func(t *testing.T) {
			scores := extractScores(model.Payload{
				key: map[string]interface{}{
					"affinity":   3.1,
					"confidence": 0.4,
				},
			})
			require.NotNil(t, scores.Affinity)
			assert.InDelta(t, 3.1, *scores.Affinity, 1e-9)
			require.NotNil(t, scores.Confidence)
			assert.InDelta(t, 0.4, *scores.Confidence, 1e-9)
		})
	}
}

func TestExtractScores_NestedBlocksInsideWrapper(t *testing.T) {
	scores := extractScores(model.Payload{
		"result": map[string]interface{}{
			"affinity": map[string]interface{}{
				"affinity_pred_value": -1.8,
			},
			"confidence": map[string]interface{}{
				"confidence_score": 0.7,
			},
		},
	})

	require.NotNil(t, scores.Affinity)
	assert.InDelta(t, -1.8, *scores.Affinity, 1e-9)
	require.NotNil(t, scores.Confidence)
	assert.InDelta(t, 0.7, *scores.Confidence, 1e-9)
}

func TestExtractScores_EarliestShapeWins(t *testing.T) {
	// The flat field is read before the wrapper's conflicting value.
	scores := extractScores(model.Payload{
		"affinity": 1.0,
		"result": map[string]interface{}{
			"affinity": 99.0,
		},
	})
	require.NotNil(t, scores.Affinity)
	assert.InDelta(t, 1.0, *scores.Affinity, 1e-9)
}

func TestExtractScores_IntegerValuesWiden(t *testing.T) {
	// JSON decoded through other paths can surface ints.
	scores := extractScores(model.Payload{"affinity": 2, "plddt": 90})
	require.NotNil(t, scores.Affinity)
	assert.InDelta(t, 2.0, *scores.Affinity, 1e-9)
	require.NotNil(t, scores.PLDDT)
	assert.InDelta(t, 90.0, *scores.PLDDT, 1e-9)
}

func TestExtractScores_EmptyAndNilPayloads(t *testing.T) {
	assert.Equal(t, extractedScores{}, extractScores(nil))
	assert.Equal(t, extractedScores{}, extractScores(model.Payload{}))
	// Non-numeric values are ignored, not coerced.
	assert.Equal(t, extractedScores{}, extractScores(model.Payload{"affinity": "strong"}))
}
