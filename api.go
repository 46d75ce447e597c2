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
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	maxUploadBytes   = 512 << 20 // whole multipart form
	livePushInterval = 250 * time.Millisecond
)

// Api is the HTTP and WebSocket surface: job submission, job
// observation and the live session.
type Api struct {
	controller *Controller
	server     *http.Server
	upgrader   websocket.Upgrader
}

func NewApi(controller *Controller) *Api {
	api := &Api{
		controller: controller,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", api.handleLogin)
	mux.HandleFunc("/api/jobs", api.requireAuth(api.handleJobs))
	mux.HandleFunc("/api/jobs/", api.requireAuth(api.handleJob))
	mux.HandleFunc("/api/live", api.requireAuth(api.handleLive))

	api.server = &http.Server{
		Addr:    controller.Config.Listen,
		Handler: mux,
	}

	return api
}

func (api *Api) Start() error {
	go func() {
		log.Printf("listening on %s", api.server.Addr)
		if err := api.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()
	return nil
}

func (api *Api) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	api.server.Shutdown(ctx)
}

// requireAuth wraps a handler with session token validation. The token
// comes from the Authorization header, or from the token query parameter
// for websocket upgrades.
func (api *Api) requireAuth(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if err := api.controller.Auth.Validate(token); err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		handler(w, r)
	}
}

func (api *Api) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := api.controller.Auth.Login(body.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	writeJson(w, map[string]string{"token": token})
}

// handleJobs serves the job list and accepts multipart uploads. Each
// uploaded file becomes one queued job.
func (api *Api) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {

	case http.MethodGet:
		writeJson(w, api.controller.Queue.List())

	case http.MethodPost:
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}

		var jobs []*FileTranscriptionJob
		for _, headers := range r.MultipartForm.File {
			for _, header := range headers {
				file, err := header.Open()
				if err != nil {
					writeError(w, http.StatusBadRequest, "unreadable upload")
					return
				}
				data, err := io.ReadAll(file)
				file.Close()
				if err != nil {
					writeError(w, http.StatusBadRequest, "unreadable upload")
					return
				}

				job, _, err := api.controller.SubmitFile(header.Filename, data)
				if err != nil {
					writeError(w, http.StatusInternalServerError, err.Error())
					return
				}
				jobs = append(jobs, job)
			}
		}

		if len(jobs) == 0 {
			writeError(w, http.StatusBadRequest, "no files in upload")
			return
		}
		writeJson(w, jobs)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (api *Api) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	job := api.controller.Queue.Get(id)
	if job == nil {
		writeError(w, http.StatusNotFound, "no such job")
		return
	}
	writeJson(w, job)
}

// liveCommand is what the client sends over the live websocket.
type liveCommand struct {
	Type string `json:"type"` // "start" or "stop"
}

// handleLive upgrades to a websocket over which the client starts and
// stops the recording session and receives the growing turn list.
func (api *Api) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := api.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)

	commands := make(chan liveCommand)
	go func() {
		defer close(commands)
		for {
			var command liveCommand
			if err := conn.ReadJSON(&command); err != nil {
				return
			}
			select {
			case commands <- command:
			case <-done:
				// handler already returned, a pending command would
				// otherwise pin this goroutine forever
				return
			}
		}
	}()

	ticker := time.NewTicker(livePushInterval)
	defer ticker.Stop()

	for {
		select {
		case command, ok := <-commands:
			if !ok {
				// client went away; recording does not survive the
				// observer connection
				api.controller.LiveStop()
				return
			}

			switch command.Type {
			case "start":
				if _, err := api.controller.LiveStart(); err != nil {
					api.pushLiveError(conn, err.Error())
					continue
				}
			case "stop":
				api.controller.LiveStop()
			}
			if err := api.pushLiveState(conn); err != nil {
				return
			}

		case <-ticker.C:
			if err := api.pushLiveState(conn); err != nil {
				return
			}
		}
	}
}

func (api *Api) pushLiveState(conn *websocket.Conn) error {
	message := map[string]any{
		"type":  "live",
		"state": LiveStateIdle,
	}

	if session := api.controller.Live(); session != nil {
		message["state"] = session.State()
		message["turns"] = session.Recorder.Turns()
		message["level"] = session.InputLevel()

		if active, ok := session.Recorder.ActiveTurn(session.Elapsed()); ok {
			message["activeTurn"] = active
		}
		if errorMsg := session.ErrorMessage(); errorMsg != "" {
			message["error"] = errorMsg
		}
	}

	return conn.WriteJSON(message)
}

func (api *Api) pushLiveError(conn *websocket.Conn, message string) {
	conn.WriteJSON(map[string]any{"type": "error", "error": message})
}

func writeJson(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
