package controller

import (
	"github.com/sentryd/sentryd/internal/classifier"
	"github.com/sentryd/sentryd/internal/store"
)

// actionForVerdict maps a classifier verdict to the disposition the
// controller applies absent any override flag (spec.md §4.3 step 4):
// the legitimate-leaning categories are always preserved regardless of
// confidence, everything else is deleted once confidence clears the
// account's resolved threshold and preserved otherwise.
func actionForVerdict(v classifier.Verdict, threshold float64) store.Action {
	switch v.Category {
	case classifier.CategoryLegitimate, classifier.CategoryTransactional, classifier.CategoryMarketing:
		return store.ActionPreserved
	}
	if v.Confidence >= threshold {
		return store.ActionDeleted
	}
	return store.ActionPreserved
}

// geoRecordFromVerdict builds a ProcessedMessage row's geographic
// fields from a verdict's embedded "geo:XX" reason fragment, avoiding
// a second IP resolution — tier2 already did the lookup once.
func geoRecordFromVerdict(v classifier.Verdict) store.GeoRecord {
	country := classifier.CountryFromReason(v.Reason)
	if country == "" {
		return store.GeoRecord{}
	}
	return store.GeoRecord{CountryCode: country, Method: "tier2"}
}
