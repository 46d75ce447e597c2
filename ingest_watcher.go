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
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ingestSettleDelay gives the writer time to finish before the file is
// read.
const ingestSettleDelay = 2 * time.Second

// IngestWatcher queues audio files dropped into the configured ingest
// directory, so batch jobs can be submitted without going through the
// upload API.
type IngestWatcher struct {
	Dir string

	controller *Controller
	watcher    *fsnotify.Watcher
}

func NewIngestWatcher(controller *Controller, dir string) *IngestWatcher {
	return &IngestWatcher{
		Dir:        dir,
		controller: controller,
	}
}

func (ingest *IngestWatcher) Start() error {
	if ingest.Dir == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(ingest.Dir); err != nil {
		watcher.Close()
		return err
	}

	ingest.watcher = watcher
	go ingest.run()

	log.Printf("watching %s for audio files", ingest.Dir)
	return nil
}

func (ingest *IngestWatcher) Stop() {
	if ingest.watcher != nil {
		ingest.watcher.Close()
	}
}

func (ingest *IngestWatcher) run() {
	for {
		select {
		case event, ok := <-ingest.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				if strings.EqualFold(filepath.Ext(event.Name), ".wav") {
					go ingest.submitLater(event.Name)
				}
			}

		case err, ok := <-ingest.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("ERROR: ingest watcher: %v", err)
		}
	}
}

// submitLater waits for the file to settle, then submits it as a batch
// job. Duplicate events for the same file dedupe on content hash.
func (ingest *IngestWatcher) submitLater(path string) {
	time.Sleep(ingestSettleDelay)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("ERROR: failed to read ingested file %s: %v", path, err)
		return
	}

	job, created, err := ingest.controller.SubmitFile(filepath.Base(path), data)
	if err != nil {
		log.Printf("ERROR: failed to queue ingested file %s: %v", path, err)
		return
	}
	if created {
		log.Printf("queued ingested file %s as job %s", path, job.Id)
	}
}
