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
	"log"
	"os"

	"github.com/kardianos/service"
)

// Daemon wraps the system service manager so the server can be
// installed and controlled as a background service.
type Daemon struct {
	service service.Service
}

type daemonProgram struct{}

func (p *daemonProgram) Start(s service.Service) error {
	// The server's own main loop does the work; nothing extra to start
	return nil
}

func (p *daemonProgram) Stop(s service.Service) error {
	return nil
}

func NewDaemon() (*Daemon, error) {
	svc, err := service.New(&daemonProgram{}, &service.Config{
		Name:        "thinline-scribe",
		DisplayName: "ThinLine Scribe",
		Description: "ThinLine Scribe audio transcription server",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %v", err)
	}
	return &Daemon{service: svc}, nil
}

// Control runs a service action (start, stop, restart, install,
// uninstall) and exits.
func (daemon *Daemon) Control(action string) *Daemon {
	if err := service.Control(daemon.service, action); err != nil {
		log.Fatalf("service %s failed: %v", action, err)
	}
	fmt.Printf("service %s done\n", action)
	os.Exit(0)
	return daemon
}
