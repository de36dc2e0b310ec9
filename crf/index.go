package crf

import (
	"encoding/json"
	"fmt"
	"sort"
)

// IndexEntry binds a label to the parameter ID of one (feature, label) pair.
type IndexEntry struct {
	Label int
	Param int
}

// FeatureIndex maps (feature ID, label ID) pairs to dense parameter IDs.
// Entries of one feature are kept sorted by label ID, so iteration order is
// deterministic.
type FeatureIndex struct {
	byFeature [][]IndexEntry
	size      int
}

// NewFeatureIndex creates an empty index.
func NewFeatureIndex() *FeatureIndex {
	return &FeatureIndex{}
}

// Lookup returns the parameter ID for (labelID, featureID). When create is
// true an unseen pair gets the next free ID; otherwise it yields -1.
func (ix *FeatureIndex) Lookup(labelID, featureID int, create bool) int {
	if labelID < 0 || featureID < 0 {
		return -1
	}
	if featureID >= len(ix.byFeature) {
		if !create {
			return -1
		}
		grown := make([][]IndexEntry, featureID+1)
		copy(grown, ix.byFeature)
		ix.byFeature = grown
	}
	entries := ix.byFeature[featureID]
	pos := sort.Search(len(entries), func(i int) bool { return entries[i].Label >= labelID })
	if pos < len(entries) && entries[pos].Label == labelID {
		return entries[pos].Param
	}
	if !create {
		return -1
	}
	id := ix.size
	entries = append(entries, IndexEntry{})
	copy(entries[pos+1:], entries[pos:])
	entries[pos] = IndexEntry{Label: labelID, Param: id}
	ix.byFeature[featureID] = entries
	ix.size++
	return id
}

// Labels returns the label→parameter entries registered for a feature,
// sorted by label ID. The slice must not be modified.
func (ix *FeatureIndex) Labels(featureID int) []IndexEntry {
	if featureID < 0 || featureID >= len(ix.byFeature) {
		return nil
	}
	return ix.byFeature[featureID]
}

// Size returns the number of allocated parameter IDs.
func (ix *FeatureIndex) Size() int {
	return ix.size
}

// NumFeatures returns the number of feature slots in the index.
func (ix *FeatureIndex) NumFeatures() int {
	return len(ix.byFeature)
}

// Clear removes all entries.
func (ix *FeatureIndex) Clear() {
	ix.byFeature = nil
	ix.size = 0
}

// MarshalJSON encodes the index as one [[label, param], ...] list per feature.
func (ix *FeatureIndex) MarshalJSON() ([]byte, error) {
	out := make([][][2]int, len(ix.byFeature))
	for f, entries := range ix.byFeature {
		out[f] = make([][2]int, len(entries))
		for i, e := range entries {
			out[f][i] = [2]int{e.Label, e.Param}
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON rebuilds the index. Parameter IDs must be unique and
// contiguous from 0.
func (ix *FeatureIndex) UnmarshalJSON(data []byte) error {
	var in [][][2]int
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	ix.Clear()
	ix.byFeature = make([][]IndexEntry, len(in))
	seen := make(map[int]bool)
	for f, pairs := range in {
		entries := make([]IndexEntry, len(pairs))
		for i, p := range pairs {
			if p[0] < 0 || p[1] < 0 || seen[p[1]] {
				return fmt.Errorf("feature %d: bad index entry %v", f, p)
			}
			seen[p[1]] = true
			entries[i] = IndexEntry{Label: p[0], Param: p[1]}
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Label < entries[j].Label })
		ix.byFeature[f] = entries
		ix.size += len(entries)
	}
	for id := range ix.size {
		if !seen[id] {
			return fmt.Errorf("parameter id %d missing from index", id)
		}
	}
	return nil
}
