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
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"syscall"

	"golang.org/x/term"
	"gopkg.in/ini.v1"
)

const (
	DbTypeSqlite     string = "sqlite"
	DbTypePostgresql string = "postgresql"
)

const defaultLiveUrl = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

type Config struct {
	BaseDir          string
	ConfigFile       string
	DbType           string
	DbFile           string
	DbHost           string
	DbPort           uint
	DbName           string
	DbUsername       string
	DbPassword       string
	Listen           string
	ApiKey           string // transcription collaborator API key
	BatchModel       string
	LiveModel        string
	LiveUrl          string
	SegmentSeconds   float64
	WaveConcurrency  int
	SampleRate       int
	LiveFrameSamples int
	IngestDir        string
	AdminPassword    string // bcrypt hash
	EnableDebugLog   bool
	daemon           *Daemon
	newAdminPassword string
}

func NewConfig() *Config {
	const (
		defaultConfigFile = "thinline-scribe.ini"
		defaultDbType     = DbTypeSqlite
		defaultDbFile     = "thinline-scribe.db"
		defaultDbHost     = "localhost"
		defaultDbPort     = uint(5432)
		defaultListen     = ":3000"
	)

	var (
		config         = &Config{}
		configSave     = flag.Bool("config_save", false, fmt.Sprintf("save configuration to %s", defaultConfigFile))
		serviceAction  = flag.String("service", "", "service command, one of start, stop, restart, install, uninstall")
		version        = flag.Bool("version", false, "show application version")
		passwordPrompt = flag.Bool("admin_password_prompt", false, "prompt for a new admin password without echo")
	)

	if exe, err := os.Executable(); err == nil {
		if !regexp.MustCompile(`go-build[0-9]+`).Match([]byte(exe)) {
			config.BaseDir = filepath.Dir(exe)
			if !config.isBaseDirWritable() {
				if h, err := os.UserHomeDir(); err == nil {
					config.BaseDir = filepath.Join(h, "ThinLine Scribe")
					if _, err := os.Stat(config.BaseDir); os.IsNotExist(err) {
						os.MkdirAll(config.BaseDir, 0770)
					}
				}
			}
		}
	}

	flag.StringVar(&config.BaseDir, "base_dir", config.BaseDir, "base directory where all data will be written")
	flag.StringVar(&config.ConfigFile, "config", defaultConfigFile, "server config file")
	flag.StringVar(&config.DbType, "db_type", defaultDbType, "database type (sqlite or postgresql)")
	flag.StringVar(&config.DbFile, "db_file", defaultDbFile, "sqlite database file")
	flag.StringVar(&config.DbHost, "db_host", defaultDbHost, "database host ip or hostname")
	flag.StringVar(&config.DbName, "db_name", "", "database name")
	flag.StringVar(&config.DbPassword, "db_pass", "", "database password")
	flag.UintVar(&config.DbPort, "db_port", defaultDbPort, "database host port")
	flag.StringVar(&config.DbUsername, "db_user", "", "database user name")
	flag.StringVar(&config.Listen, "listen", defaultListen, "listening address")
	flag.StringVar(&config.ApiKey, "api_key", "", "transcription service API key")
	flag.StringVar(&config.IngestDir, "ingest_dir", "", "directory watched for dropped audio files")
	flag.StringVar(&config.newAdminPassword, "admin_password", "", "change admin password")
	flag.Parse()

	if !config.isBaseDirWritable() {
		log.Fatalf("no write permissions in %s", config.BaseDir)
	}

	config.BatchModel = defaultBatchModel
	config.LiveModel = defaultLiveModel
	config.LiveUrl = defaultLiveUrl
	config.SegmentSeconds = defaultSegmentSeconds
	config.WaveConcurrency = defaultWaveConcurrency
	config.SampleRate = defaultSampleRate
	config.LiveFrameSamples = defaultLiveFrameSamples

	switch {
	case *configSave:
		if err := config.saveConfig(); err == nil {
			fmt.Printf("%s file created\n", config.ConfigFile)
			os.Exit(0)
		} else {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(-1)
		}

	case *version:
		fmt.Println(Version)
		os.Exit(0)

	default:
		if cfg, err := ini.Load(config.GetConfigFilePath()); err == nil {
			if v := cfg.Section("").Key("db_type").String(); len(v) > 0 {
				config.DbType = v
			}

			if v := cfg.Section("").Key("db_file").String(); len(v) > 0 {
				config.DbFile = v
			}

			if v := cfg.Section("").Key("db_host").String(); len(v) > 0 {
				config.DbHost = v
			}

			if v := cfg.Section("").Key("db_name").String(); len(v) > 0 {
				config.DbName = v
			}

			if v := cfg.Section("").Key("db_pass").String(); len(v) > 0 {
				config.DbPassword = v
			}

			if port, err := cfg.Section("").Key("db_port").Uint(); err == nil {
				config.DbPort = port
			}

			if v := cfg.Section("").Key("db_user").String(); len(v) > 0 {
				config.DbUsername = v
			}

			if v := cfg.Section("").Key("listen").String(); len(v) > 0 {
				config.Listen = v
			}

			if v := cfg.Section("").Key("api_key").String(); len(v) > 0 {
				config.ApiKey = v
			}

			if v := cfg.Section("").Key("batch_model").String(); len(v) > 0 {
				config.BatchModel = v
			}

			if v := cfg.Section("").Key("live_model").String(); len(v) > 0 {
				config.LiveModel = v
			}

			if v := cfg.Section("").Key("live_url").String(); len(v) > 0 {
				config.LiveUrl = v
			}

			if v, err := cfg.Section("").Key("segment_seconds").Float64(); err == nil && v > 0 {
				config.SegmentSeconds = v
			}

			if v, err := cfg.Section("").Key("wave_concurrency").Int(); err == nil && v > 0 {
				config.WaveConcurrency = v
			}

			if v, err := cfg.Section("").Key("sample_rate").Int(); err == nil && v > 0 {
				config.SampleRate = v
			}

			if v, err := cfg.Section("").Key("live_frame_samples").Int(); err == nil && v > 0 {
				config.LiveFrameSamples = v
			}

			if v := cfg.Section("").Key("ingest_dir").String(); len(v) > 0 {
				config.IngestDir = v
			}

			if v := cfg.Section("").Key("admin_password").String(); len(v) > 0 {
				config.AdminPassword = v
			}

			// Read enable_debug_log option (defaults to false)
			if v, err := cfg.Section("").Key("enable_debug_log").Bool(); err == nil {
				config.EnableDebugLog = v
			}
		}

		if config.DbType != DbTypeSqlite && config.DbType != DbTypePostgresql {
			fmt.Printf("unknown database type %s (sqlite or postgresql)\n", config.DbType)
			return nil
		}
	}

	if *passwordPrompt {
		password, err := readPassword("new admin password: ")
		if err != nil {
			log.Fatalf("failed to read password: %v", err)
		}
		config.newAdminPassword = password
	}

	if *serviceAction != "" {
		daemon, err := NewDaemon()
		if err != nil {
			log.Printf("ERROR: Failed to initialize daemon service: %v", err)
			log.Printf("Daemon operations are not available. Exiting.")
			os.Exit(1)
		}
		config.daemon = daemon.Control(*serviceAction)
	}

	return config
}

func (config *Config) GetConfigFilePath() string {
	return config.GetPath(config.ConfigFile)
}

func (config *Config) GetDbFilePath() string {
	return config.GetPath(config.DbFile)
}

func (config *Config) GetPath(p string) string {
	if path.IsAbs(p) {
		return p
	}
	return filepath.Join(config.BaseDir, p)
}

// SetAdminPassword stores the bcrypt hash of a new admin password in the
// INI file.
func (config *Config) SetAdminPassword(hash string) error {
	configPath := config.GetConfigFilePath()

	cfg, err := ini.Load(configPath)
	if err != nil {
		cfg = ini.Empty()
	}

	cfg.Section("").Key("admin_password").SetValue(hash)

	if err := cfg.SaveTo(configPath); err != nil {
		return fmt.Errorf("failed to save config file: %v", err)
	}

	config.AdminPassword = hash
	return nil
}

func (config *Config) isBaseDirWritable() bool {
	if f, err := os.CreateTemp(config.BaseDir, ".tmp*"); err == nil {
		f.Close()
		os.Remove(f.Name())
		return true
	}
	return false
}

// readPassword reads a password from stdin without echoing
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(bytePassword), nil
}

func (config *Config) saveConfig() error {
	lines := []string{}

	if config.DbType != "" {
		lines = append(lines, fmt.Sprintf("db_type = %s", config.DbType))
	}

	if config.DbFile != "" {
		lines = append(lines, fmt.Sprintf("db_file = %s", config.DbFile))
	}

	if config.DbHost != "" {
		lines = append(lines, fmt.Sprintf("db_host = %s", config.DbHost))
	}

	if config.DbName != "" {
		lines = append(lines, fmt.Sprintf("db_name = %s", config.DbName))
	}

	if config.DbPassword != "" {
		lines = append(lines, fmt.Sprintf("db_pass = %s", config.DbPassword))
	}

	if config.DbPort > 0 {
		lines = append(lines, fmt.Sprintf("db_port = %s", strconv.Itoa(int(config.DbPort))))
	}

	if config.DbUsername != "" {
		lines = append(lines, fmt.Sprintf("db_user = %s", config.DbUsername))
	}

	if config.Listen != "" {
		lines = append(lines, fmt.Sprintf("listen = %s", config.Listen))
	}

	if config.ApiKey != "" {
		lines = append(lines, fmt.Sprintf("api_key = %s", config.ApiKey))
	}

	if config.IngestDir != "" {
		lines = append(lines, fmt.Sprintf("ingest_dir = %s", config.IngestDir))
	}

	lines = append(lines, fmt.Sprintf("segment_seconds = %g", config.SegmentSeconds))
	lines = append(lines, fmt.Sprintf("wave_concurrency = %d", config.WaveConcurrency))
	lines = append(lines, fmt.Sprintf("sample_rate = %d", config.SampleRate))

	if config.EnableDebugLog {
		lines = append(lines, "enable_debug_log = true")
	}

	file, err := os.Create(config.GetConfigFilePath())
	if err != nil {
		return err
	}

	for _, line := range lines {
		_, err := file.WriteString(line + "\n")
		if err != nil {
			return err
		}
	}

	return file.Close()
}
