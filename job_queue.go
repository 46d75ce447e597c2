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

// JobQueue is the single-slot scheduler for batch jobs. Any number of
// jobs may sit queued, but ClaimNext hands out at most one at a time;
// the next queued job is promoted only after the active one is released.
type JobQueue struct {
	mutex  sync.RWMutex
	jobs   []*FileTranscriptionJob // submission order
	byId   map[string]*FileTranscriptionJob
	active *FileTranscriptionJob
	notify chan struct{}
	closed bool
}

// NewJobQueue creates an empty job queue.
func NewJobQueue() *JobQueue {
	return &JobQueue{
		byId:   make(map[string]*FileTranscriptionJob),
		notify: make(chan struct{}, 1),
	}
}

// Add enqueues a job and wakes the watcher.
func (jq *JobQueue) Add(job *FileTranscriptionJob) {
	jq.mutex.Lock()
	jq.jobs = append(jq.jobs, job)
	jq.byId[job.Id] = job
	jq.mutex.Unlock()

	jq.signal()
}

// Get returns the job with the given id, or nil.
func (jq *JobQueue) Get(id string) *FileTranscriptionJob {
	jq.mutex.RLock()
	defer jq.mutex.RUnlock()
	return jq.byId[id]
}

// FindByHash returns the first job with the given content hash, or nil.
// Used to dedupe resubmitted uploads.
func (jq *JobQueue) FindByHash(hash string) *FileTranscriptionJob {
	jq.mutex.RLock()
	defer jq.mutex.RUnlock()
	for _, job := range jq.jobs {
		if job.Hash == hash {
			return job
		}
	}
	return nil
}

// List returns all known jobs in submission order.
func (jq *JobQueue) List() []*FileTranscriptionJob {
	jq.mutex.RLock()
	defer jq.mutex.RUnlock()
	jobs := make([]*FileTranscriptionJob, len(jq.jobs))
	copy(jobs, jq.jobs)
	return jobs
}

// ClaimNext atomically promotes the oldest queued job to active. It
// returns nil when a job is already active or nothing is queued, so
// promotion stays race-free under concurrent submissions.
func (jq *JobQueue) ClaimNext() *FileTranscriptionJob {
	jq.mutex.Lock()
	defer jq.mutex.Unlock()

	if jq.active != nil {
		return nil
	}
	for _, job := range jq.jobs {
		if job.State() == JobStateQueued {
			jq.active = job
			return job
		}
	}
	return nil
}

// Release clears the active slot once a job has reached a terminal state
// and wakes the watcher so the next queued job can be claimed.
func (jq *JobQueue) Release(job *FileTranscriptionJob) {
	jq.mutex.Lock()
	if jq.active == job {
		jq.active = nil
	}
	jq.mutex.Unlock()

	jq.signal()
}

// ActiveJob returns the currently running job, or nil.
func (jq *JobQueue) ActiveJob() *FileTranscriptionJob {
	jq.mutex.RLock()
	defer jq.mutex.RUnlock()
	return jq.active
}

// Watch runs jobs to completion one at a time until Close. Meant to be
// started once, in its own goroutine.
func (jq *JobQueue) Watch(run func(job *FileTranscriptionJob)) {
	for range jq.notify {
		for {
			job := jq.ClaimNext()
			if job == nil {
				break
			}
			run(job)
			jq.Release(job)
		}
	}
}

// Close stops the watcher. The active job, if any, still runs to
// completion.
func (jq *JobQueue) Close() {
	jq.mutex.Lock()
	defer jq.mutex.Unlock()
	if !jq.closed {
		jq.closed = true
		close(jq.notify)
	}
}

func (jq *JobQueue) signal() {
	jq.mutex.RLock()
	defer jq.mutex.RUnlock()
	if jq.closed {
		return
	}
	select {
	case jq.notify <- struct{}{}:
	default:
	}
}
