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
	"os/signal"
	"syscall"
)

var debugEnabled bool

// logDebug logs only when enable_debug_log is set in the config.
func logDebug(format string, args ...any) {
	if debugEnabled {
		log.Printf("DEBUG: "+format, args...)
	}
}

func main() {
	log.Printf("ThinLine Scribe %s", Version)

	config := NewConfig()
	if config == nil {
		os.Exit(1)
	}
	debugEnabled = config.EnableDebugLog

	controller, err := NewController(config)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}

	if err := controller.Start(); err != nil {
		log.Fatalf("failed to start: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Printf("shutting down")
	controller.Stop()
}
