// Package config loads jobtail's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/jobtail/config.toml (default)
//  3. If the config file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing, blank or non-positive, use defaults
//
// # TOML Format
//
//	api_base = "http://127.0.0.1:8080/api"
//	poll_interval_ms = 2000      # floor 100
//	request_timeout_ms = 5000
//	initial_load_count = 100
//	load_more_count = 50
//	follow_threshold = 2         # lines from the bottom that still count as "at the bottom"
//	sticky_detach = false        # only an explicit jump re-enables follow
//	max_entries = 5000           # 0 keeps every loaded line
//	log_level = "info"           # debug, info, warn, error
//	log_file = "~/.local/state/jobtail/jobtail.log"
//
// Every field is optional. Tilde expansion is performed for log_file.
//
// # Error Handling
//
// Load returns errors for path expansion failures, read errors other than
// os.ErrNotExist, TOML syntax errors, and unknown log levels. A missing file is
// not an error.
package config
