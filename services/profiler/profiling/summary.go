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
	"sort"
	"time"

	"github.com/google/pprof/profile"
)

// FunctionStat is one row of a profile summary: a single function observed
// during the capture window.
//
// Calls is the number of samples whose leaf frame was this function; Time
// is the CPU time those samples attribute to it.
type FunctionStat struct {
	// Name is the fully qualified function name.
	Name string

	// File is the source file defining the function. May be empty when
	// the profile lacks symbol information.
	File string

	// Calls is the number of leaf samples attributed to the function.
	Calls int64

	// Time is the CPU time attributed to the function.
	Time time.Duration
}

// TimeMillis returns the attributed CPU time in milliseconds.
func (s FunctionStat) TimeMillis() float64 {
	return float64(s.Time) / float64(time.Millisecond)
}

// MemoryStats is the heap allocation delta across a capture window.
type MemoryStats struct {
	// AllocBytes is the number of bytes allocated during the window.
	AllocBytes int64

	// AllocObjects is the number of objects allocated during the window.
	AllocObjects int64
}

// Summary is the aggregate result of one profiling window.
//
// Description:
//
//	Holds one FunctionStat per observed function, sorted by attributed
//	time (descending, name as tiebreaker), plus the total sample count
//	and the wall-clock width of the window. Immutable once built; the
//	capture engine shares one Summary between coalesced callers.
//
// Thread Safety: Safe for concurrent reads. Must not be modified after
// construction.
type Summary struct {
	// Functions holds per-function stats, hottest first.
	Functions []FunctionStat

	// TotalCalls is the total number of leaf samples in the window.
	TotalCalls int64

	// TotalTime is the wall-clock width of the capture window. Always
	// at least any individual FunctionStat.Time for single-goroutine
	// workloads.
	TotalTime time.Duration

	// Memory is the heap allocation delta for the window. Nil unless
	// memory tracing is enabled.
	Memory *MemoryStats
}

// TotalTimeMillis returns the window width in milliseconds.
func (s *Summary) TotalTimeMillis() float64 {
	return float64(s.TotalTime) / float64(time.Millisecond)
}

// Summarize aggregates raw pprof CPU profile data into a Summary.
//
// Description:
//
//	Parses the protobuf data and attributes every sample to its leaf
//	frame (the innermost inlined function of the first location). A
//	function's Calls is the summed sample counts of its leaf samples;
//	its Time is their summed CPU nanoseconds. Samples without symbol
//	information are skipped. TotalTime is left zero; the capture engine
//	sets it from the wall clock.
//
// Inputs:
//
//	data - Raw pprof protobuf bytes, as written by a CPUProfiler.
//
// Outputs:
//
//	*Summary - Aggregated per-function stats, hottest first.
//	error - ErrSummarize if the data cannot be parsed or lacks the
//	  samples/count and cpu/nanoseconds sample types.
//
// Example:
//
//	summary, err := profiling.Summarize(buf.Bytes())
//	if err != nil {
//	    return err
//	}
//	for _, fn := range summary.Functions {
//	    fmt.Printf("%s: %d calls, %.1fms\n", fn.Name, fn.Calls, fn.TimeMillis())
//	}
//
// Thread Safety: Safe for concurrent use.
func Summarize(data []byte) (*Summary, error) {
	p, err := profile.ParseData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSummarize, err)
	}

	countIdx, timeIdx := cpuSampleIndexes(p)
	if countIdx < 0 || timeIdx < 0 {
		return nil, fmt.Errorf("%w: not a CPU profile", ErrSummarize)
	}

	stats := make(map[string]*FunctionStat)
	var totalCalls int64

	for _, sample := range p.Sample {
		fn := leafFunction(sample)
		if fn == nil {
			continue
		}

		st, ok := stats[fn.Name]
		if !ok {
			st = &FunctionStat{Name: fn.Name, File: fn.Filename}
			stats[fn.Name] = st
		}
		st.Calls += sample.Value[countIdx]
		st.Time += time.Duration(sample.Value[timeIdx])
		totalCalls += sample.Value[countIdx]
	}

	functions := make([]FunctionStat, 0, len(stats))
	for _, st := range stats {
		functions = append(functions, *st)
	}
	sort.Slice(functions, func(i, j int) bool {
		if functions[i].Time != functions[j].Time {
			return functions[i].Time > functions[j].Time
		}
		return functions[i].Name < functions[j].Name
	})

	return &Summary{
		Functions:  functions,
		TotalCalls: totalCalls,
	}, nil
}

// cpuSampleIndexes locates the samples/count and cpu/nanoseconds value
// columns. Returns -1 for a column that is absent.
func cpuSampleIndexes(p *profile.Profile) (countIdx, timeIdx int) {
	countIdx, timeIdx = -1, -1
	for i, st := range p.SampleType {
		switch {
		case st.Type == "samples" && st.Unit == "count":
			countIdx = i
		case st.Type == "cpu" && st.Unit == "nanoseconds":
			timeIdx = i
		}
	}
	return countIdx, timeIdx
}

// leafFunction returns the function of the sample's leaf frame. The first
// location is the leaf; its first line is the innermost inlined call.
func leafFunction(sample *profile.Sample) *profile.Function {
	if len(sample.Location) == 0 {
		return nil
	}
	loc := sample.Location[0]
	if len(loc.Line) == 0 {
		return nil
	}
	return loc.Line[0].Function
}
