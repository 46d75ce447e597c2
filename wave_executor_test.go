// Copyright (C) 2025 Thinline Dynamic Solutions
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>

package main

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunWavesReturnsEveryResult(t *testing.T) {
	items := []int{10, 20, 30, 40, 50}

	results, err := RunWaves(items, 2, func(index int, item int) (int, error) {
		return item * 2, nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != len(items) {
		t.Fatalf("expected %d results, got %d", len(items), len(results))
	}

	seen := map[int]int{}
	for _, result := range results {
		seen[result.Index] = result.Value
	}
	for i, item := range items {
		if seen[i] != item*2 {
			t.Errorf("index %d: expected %d, got %d", i, item*2, seen[i])
		}
	}
}

func TestRunWavesBoundsConcurrency(t *testing.T) {
	var current, peak int32

	items := make([]int, 17)
	_, err := RunWaves(items, 4, func(index int, item int) (int, error) {
		n := atomic.AddInt32(&current, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&current, -1)
		return 0, nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peak > 4 {
		t.Errorf("expected at most 4 concurrent calls, observed %d", peak)
	}
}

func TestRunWavesWaitsBetweenWaves(t *testing.T) {
	var completed int32

	items := make([]int, 6)
	_, err := RunWaves(items, 2, func(index int, item int) (int, error) {
		// Anything past the first wave must only start once the whole
		// previous wave has settled.
		wave := index / 2
		if done := atomic.LoadInt32(&completed); int(done) < wave*2 {
			t.Errorf("item %d started with only %d items completed", index, done)
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&completed, 1)
		return 0, nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunWavesCallsAfterWaveWithCumulativeResults(t *testing.T) {
	var lens []int

	items := make([]int, 5)
	_, err := RunWaves(items, 2, func(index int, item int) (int, error) {
		return index, nil
	}, func(results []WaveResult[int]) {
		lens = append(lens, len(results))
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []int{2, 4, 5}
	if len(lens) != len(expected) {
		t.Fatalf("expected %d afterWave calls, got %v", len(expected), lens)
	}
	for i, want := range expected {
		if lens[i] != want {
			t.Errorf("afterWave call %d: expected %d cumulative results, got %d", i, want, lens[i])
		}
	}
}

func TestRunWavesFailFastStopsLaterWaves(t *testing.T) {
	var calls int32

	items := make([]int, 5)
	results, err := RunWaves(items, 1, func(index int, item int) (int, error) {
		atomic.AddInt32(&calls, 1)
		if index == 2 {
			return 0, fmt.Errorf("item %d broke", index)
		}
		return index, nil
	}, nil)

	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls before stopping, got %d", calls)
	}
	if len(results) != 2 {
		t.Fatalf("expected the 2 results recorded before the failure, got %d", len(results))
	}
	for i, result := range results {
		if result.Index != i {
			t.Errorf("result %d: expected index %d, got %d", i, i, result.Index)
		}
	}
}

func TestRunWavesDropsCompletionsAfterFailure(t *testing.T) {
	firstDone := make(chan struct{})
	failDone := make(chan struct{})

	items := make([]int, 3)
	results, err := RunWaves(items, 3, func(index int, item int) (int, error) {
		switch index {
		case 0:
			defer close(firstDone)
			return 0, nil
		case 1:
			<-firstDone
			defer close(failDone)
			return 0, fmt.Errorf("item 1 broke")
		default:
			<-failDone
			time.Sleep(50 * time.Millisecond)
			return 2, nil
		}
	}, nil)

	if err == nil {
		t.Fatal("expected an error")
	}
	if len(results) != 1 || results[0].Index != 0 {
		t.Fatalf("expected only the pre-failure result, got %+v", results)
	}
}

func TestRunWavesClampsLimit(t *testing.T) {
	results, err := RunWaves([]int{1, 2}, 0, func(index int, item int) (int, error) {
		return item, nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestRunWavesEmptyItems(t *testing.T) {
	called := false
	results, err := RunWaves([]int{}, 4, func(index int, item int) (int, error) {
		called = true
		return 0, nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called || len(results) != 0 {
		t.Error("expected no calls and no results for empty input")
	}
}
