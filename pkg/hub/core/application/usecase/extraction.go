package usecase

import (
	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
)

// extractedScores is the nullable score set pulled out of one provider
// result payload. Fields stay nil when the payload does not carry them.
type extractedScores struct {
	Affinity            *float64
	Confidence          *float64
	EnsembleAffinity    *float64
	EnsembleProbability *float64
	IPTM                *float64
	PTM                 *float64
	PLDDT               *float64
	ComplexPLDDT        *float64
	InterfaceConfidence *float64
}

// extractionStrategy is one named way of reading scores out of a payload.
// Strategies run in order and only fill fields that are still unset, so the
// earliest payload shape wins.
type extractionStrategy struct {
	name  string
	apply func(payload model.Payload, scores *extractedScores)
}

// extractionStrategies covers the payload shapes the provider has produced
// over time: flat score fields, the affinity/confidence sub-blocks of newer
// model versions, and the raw wrapper some deployments return.
var extractionStrategies = []extractionStrategy{
	{name: "flat_fields", apply: extractFlatFields},
	{name: "affinity_block", apply: extractAffinityBlock},
	{name: "confidence_block", apply: extractConfidenceBlock},
	{name: "raw_result_wrapper", apply: extractRawWrapper},
}

// extractScores runs every strategy over the payload.
func extractScores(payload model.Payload) extractedScores {
	var scores extractedScores
	if payload == nil {
		return scores
	}
	for _, strategy := range extractionStrategies {
		strategy.apply(payload, &scores)
	}
	return scores
}

func extractFlatFields(payload model.Payload, scores *extractedScores) {
	fillFloat(&scores.Affinity, payload, "affinity")
	fillFloat(&scores.Confidence, payload, "confidence")
	fillFloat(&scores.EnsembleAffinity, payload, "ensemble_affinity")
	fillFloat(&scores.EnsembleProbability, payload, "ensemble_probability")
	fillFloat(&scores.IPTM, payload, "iptm")
	fillFloat(&scores.PTM, payload, "ptm")
	fillFloat(&scores.PLDDT, payload, "plddt")
	fillFloat(&scores.ComplexPLDDT, payload, "complex_plddt")
	fillFloat(&scores.InterfaceConfidence, payload, "interface_confidence")
}

func extractAffinityBlock(payload model.Payload, scores *extractedScores) {
	block, ok := payload.GetMap("affinity")
	if !ok {
		return
	}
	nested := model.Payload(block)
	fillFloat(&scores.Affinity, nested, "affinity_pred_value")
	fillFloat(&scores.EnsembleAffinity, nested, "affinity_pred_value1")
	fillFloat(&scores.EnsembleProbability, nested, "affinity_probability_binary")
}

func extractConfidenceBlock(payload model.Payload, scores *extractedScores) {
	block, ok := payload.GetMap("confidence")
	if !ok {
		return
	}
	nested := model.Payload(block)
	fillFloat(&scores.Confidence, nested, "confidence_score")
	fillFloat(&scores.IPTM, nested, "iptm")
	fillFloat(&scores.PTM, nested, "ptm")
	fillFloat(&scores.PLDDT, nested, "plddt")
	fillFloat(&scores.ComplexPLDDT, nested, "complex_plddt")
	fillFloat(&scores.InterfaceConfidence, nested, "ligand_iptm")
}

// extractRawWrapper descends into the raw result wrapper and re-runs the
// other strategies against its contents.
func extractRawWrapper(payload model.Payload, scores *extractedScores) {
	for _, key := range []string{"raw_modal_result", "result", "results"} {
		inner, ok := payload.GetMap(key)
		if !ok {
			continue
		}
		nested := model.Payload(inner)
		extractFlatFields(nested, scores)
		extractAffinityBlock(nested, scores)
		extractConfidenceBlock(nested, scores)
	}
}

// fillFloat sets dst from the payload key when dst is still nil. A nested
// "affinity": {...} map shadowing the flat "affinity" number is skipped by
// GetFloat64 returning false.
func fillFloat(dst **float64, payload model.Payload, key string) {
	if *dst != nil {
		return
	}
	if v, ok := payload.GetFloat64(key); ok {
		value := v
		*dst = &value
	}
}
