// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package profiling

import (
	"fmt"

	"github.com/google/pprof/profile"
)

// HeapDelta computes the allocation delta between two heap snapshots.
//
// Description:
//
//	Parses both pprof heap profiles, negates the earlier one, and merges
//	the pair; the merged profile's alloc_space and alloc_objects columns
//	then hold exactly what was allocated between the two snapshots. The
//	allocation counters are monotonic, so the delta is non-negative.
//
// Inputs:
//
//	pre - Heap profile bytes taken before the window.
//	post - Heap profile bytes taken after the window.
//
// Outputs:
//
//	*MemoryStats - Bytes and objects allocated during the window.
//	error - ErrSummarize if either snapshot cannot be parsed, the
//	  profiles are incompatible, or the alloc columns are missing.
//
// Thread Safety: Safe for concurrent use.
func HeapDelta(pre, post []byte) (*MemoryStats, error) {
	preProf, err := profile.ParseData(pre)
	if err != nil {
		return nil, fmt.Errorf("%w: pre snapshot: %v", ErrSummarize, err)
	}
	postProf, err := profile.ParseData(post)
	if err != nil {
		return nil, fmt.Errorf("%w: post snapshot: %v", ErrSummarize, err)
	}

	// Merge computes post + pre*ratio per sample type; -1 yields the delta.
	ratios := make([]float64, len(preProf.SampleType))
	for i := range ratios {
		ratios[i] = -1
	}
	if err := preProf.ScaleN(ratios); err != nil {
		return nil, fmt.Errorf("%w: scaling pre snapshot: %v", ErrSummarize, err)
	}

	delta, err := profile.Merge([]*profile.Profile{preProf, postProf})
	if err != nil {
		return nil, fmt.Errorf("%w: merging snapshots: %v", ErrSummarize, err)
	}

	objIdx, bytesIdx := heapSampleIndexes(delta)
	if objIdx < 0 || bytesIdx < 0 {
		return nil, fmt.Errorf("%w: not a heap profile", ErrSummarize)
	}

	stats := &MemoryStats{}
	for _, sample := range delta.Sample {
		stats.AllocObjects += sample.Value[objIdx]
		stats.AllocBytes += sample.Value[bytesIdx]
	}
	return stats, nil
}

// heapSampleIndexes locates the alloc_objects/count and alloc_space/bytes
// value columns. Returns -1 for a column that is absent.
func heapSampleIndexes(p *profile.Profile) (objIdx, bytesIdx int) {
	objIdx, bytesIdx = -1, -1
	for i, st := range p.SampleType {
		switch {
		case st.Type == "alloc_objects" && st.Unit == "count":
			objIdx = i
		case st.Type == "alloc_space" && st.Unit == "bytes":
			bytesIdx = i
		}
	}
	return objIdx, bytesIdx
}
