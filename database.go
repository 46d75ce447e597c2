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
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Database persists jobs and their transcripts so the observation
// surface survives restarts. Sqlite is the default; postgresql is
// available for shared deployments.
type Database struct {
	Config *Config
	Sql    *sql.DB
}

func NewDatabase(config *Config) (*Database, error) {
	var (
		db  *sql.DB
		err error
	)

	switch config.DbType {
	case DbTypeSqlite:
		db, err = sql.Open("sqlite3", config.GetDbFilePath())

	case DbTypePostgresql:
		dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
			config.DbHost, config.DbPort, config.DbName, config.DbUsername, config.DbPassword)
		db, err = sql.Open("postgres", dsn)

	default:
		return nil, fmt.Errorf("unknown database type %s", config.DbType)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to reach database: %v", err)
	}

	database := &Database{Config: config, Sql: db}
	if err := database.migrate(); err != nil {
		return nil, err
	}

	return database, nil
}

func (database *Database) migrate() error {
	queries := []string{
		`create table if not exists jobs (
			id text primary key,
			name text not null,
			hash text not null,
			state text not null,
			progress integer not null default 0,
			error_message text not null default '',
			created_at bigint not null
		)`,
		`create table if not exists turns (
			job_id text not null,
			idx integer not null,
			start_time double precision not null,
			end_time double precision not null,
			text text not null,
			primary key (job_id, idx)
		)`,
	}

	for _, query := range queries {
		if _, err := database.Sql.Exec(query); err != nil {
			return fmt.Errorf("failed to migrate database: %v", err)
		}
	}
	return nil
}

// SaveJob upserts a job and replaces its stored transcript with the
// current one.
func (database *Database) SaveJob(job *FileTranscriptionJob) error {
	tx, err := database.Sql.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}

	_, err = tx.Exec(`insert into jobs (id, name, hash, state, progress, error_message, created_at)
		values ($1, $2, $3, $4, $5, $6, $7)
		on conflict (id) do update set state = $4, progress = $5, error_message = $6`,
		job.Id, job.Name, job.Hash, job.State(), job.Progress(), job.ErrorMessage(), job.CreatedAt.UnixMilli())
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save job: %v", err)
	}

	if _, err = tx.Exec(`delete from turns where job_id = $1`, job.Id); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear turns: %v", err)
	}

	for i, turn := range job.Turns() {
		_, err = tx.Exec(`insert into turns (job_id, idx, start_time, end_time, text)
			values ($1, $2, $3, $4, $5)`,
			job.Id, i, turn.StartTime, turn.EndTime, turn.Text)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save turn: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit job: %v", err)
	}
	return nil
}

// LoadJobs restores persisted jobs in submission order. Jobs that were
// mid-flight when the process died cannot resume, since the raw audio is
// not retained, so they come back as errored.
func (database *Database) LoadJobs() ([]*FileTranscriptionJob, error) {
	rows, err := database.Sql.Query(`select id, name, hash, state, progress, error_message, created_at
		from jobs order by created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs: %v", err)
	}
	defer rows.Close()

	var jobs []*FileTranscriptionJob
	for rows.Next() {
		var (
			id, name, hash, state, errorMsg string
			progress                        int
			createdAt                       int64
		)
		if err := rows.Scan(&id, &name, &hash, &state, &progress, &errorMsg, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %v", err)
		}

		if state != JobStateDone && state != JobStateError {
			state = JobStateError
			errorMsg = "interrupted by shutdown"
			progress = 0
		}

		job := NewFileTranscriptionJob(id, name, hash, nil)
		job.CreatedAt = time.UnixMilli(createdAt)

		turns, err := database.loadTurns(id)
		if err != nil {
			return nil, err
		}
		job.restore(state, progress, errorMsg, turns)

		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

func (database *Database) loadTurns(jobId string) ([]TranscriptionTurn, error) {
	rows, err := database.Sql.Query(`select start_time, end_time, text from turns
		where job_id = $1 order by idx`, jobId)
	if err != nil {
		return nil, fmt.Errorf("failed to load turns: %v", err)
	}
	defer rows.Close()

	turns := []TranscriptionTurn{}
	for rows.Next() {
		var turn TranscriptionTurn
		if err := rows.Scan(&turn.StartTime, &turn.EndTime, &turn.Text); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %v", err)
		}
		turns = append(turns, turn)
	}

	return turns, rows.Err()
}

func (database *Database) Close() error {
	return database.Sql.Close()
}
