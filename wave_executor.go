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

import "sync"

// WaveResult pairs a completed item's value with the index it was
// submitted under, so callers can restore submission order no matter how
// completions interleave inside a wave.
type WaveResult[R any] struct {
	Index int
	Value R
}

// RunWaves executes run over items in waves of at most limit concurrent
// calls. A wave starts only after the previous wave has fully settled, so
// no more than limit calls are ever outstanding.
//
// Failure is fail-fast: the first error stops result collection, the
// current wave drains, no further wave starts, and the error is returned
// together with every result recorded before the failure. afterWave, when
// non-nil, runs between waves with all results collected so far.
func RunWaves[T any, R any](items []T, limit int, run func(index int, item T) (R, error), afterWave func(results []WaveResult[R])) ([]WaveResult[R], error) {
	if limit < 1 {
		limit = 1
	}

	var (
		mutex    sync.Mutex
		results  []WaveResult[R]
		failed   bool
		firstErr error
	)

	for start := 0; start < len(items); start += limit {
		end := start + limit
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(index int) {
				defer wg.Done()

				value, err := run(index, items[index])

				mutex.Lock()
				defer mutex.Unlock()

				// Once a failure is recorded, later completions from the
				// same wave are dropped rather than merged.
				if failed {
					return
				}
				if err != nil {
					failed = true
					firstErr = err
					return
				}
				results = append(results, WaveResult[R]{Index: index, Value: value})
			}(i)
		}
		wg.Wait()

		if failed {
			return results, firstErr
		}
		if afterWave != nil {
			afterWave(results)
		}
	}

	return results, nil
}
