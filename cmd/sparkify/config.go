package main

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/franz/sparkify/internal/catalog"
	"github.com/franz/sparkify/internal/metrics"
	"github.com/franz/sparkify/internal/report"
	"github.com/franz/sparkify/internal/store"
	"github.com/franz/sparkify/internal/util"
)

var envKeyReplacer = strings.NewReplacer("-", "_")

// GetConfigString retrieves a string config value with proper precedence:
// 1. Command-line flag (if set)
// 2. Environment variable (SPARKIFY_*)
// 3. Config file
// 4. Default value
func GetConfigString(key string, defaultValue string) string {
	val := viper.GetString(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// configDialect returns the configured dialect
func configDialect() (catalog.Dialect, error) {
	d, err := catalog.ParseDialect(GetConfigString("dialect", string(catalog.SQLite)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrInvalidConfig, err)
	}
	return d, nil
}

// session is an open store plus the run's metrics and audit log
type session struct {
	store   *store.Store
	dialect catalog.Dialect
	metrics *metrics.Recorder
	events  *report.EventLogger
	job     string
}

// openSession opens the configured warehouse for the named command
func openSession(ctx context.Context, job string) (*session, error) {
	dialect, err := configDialect()
	if err != nil {
		return nil, err
	}

	s := &session{
		dialect: dialect,
		metrics: metrics.New(string(dialect)),
		job:     job,
	}

	if dir := viper.GetString("event-log"); dir != "" {
		s.events, err = report.NewEventLogger(dir, report.LevelInfo)
		if err != nil {
			return nil, err
		}
		util.DebugLog("Event log: %s", s.events.Path())
	}

	dsn := viper.GetString("db")
	util.DebugLog("Opening %s warehouse: %s", dialect, redactDSN(dsn))

	s.store, err = store.OpenWithOptions(ctx, dsn, &store.OpenOptions{
		Dialect: dialect,
		Metrics: s.metrics,
		Events:  s.events,
	})
	if err != nil {
		s.events.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the store and event log and pushes metrics if a
// Pushgateway is configured. Push failures are logged, not returned.
func (s *session) Close(ctx context.Context) error {
	err := s.store.Close()
	s.events.Close()

	if gateway := viper.GetString("pushgateway"); gateway != "" {
		if pushErr := s.metrics.Push(ctx, gateway, "sparkify_"+s.job); pushErr != nil {
			util.WarnLog("Failed to push metrics: %v", pushErr)
		} else {
			util.DebugLog("Pushed metrics to %s", gateway)
		}
	}
	return err
}

// redactDSN masks the password in a Postgres DSN for logging. Both the
// URL form and the keyword/value form are handled; anything else, such as a
// SQLite path, is returned unchanged.
func redactDSN(dsn string) string {
	if strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "<unparseable dsn>"
		}
		if q := u.Query(); q.Has("password") {
			q.Set("password", redactedPassword)
			u.RawQuery = q.Encode()
		}
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), redactedPassword)
		}
		return u.String()
	}
	return keywordPassword.ReplaceAllString(dsn, "${1}"+redactedPassword)
}

const redactedPassword = "xxxxx"

// keywordPassword matches password=value in a keyword/value DSN, where the
// value may be single-quoted with backslash escapes
var keywordPassword = regexp.MustCompile(`(\bpassword\s*=\s*)('(?:[^'\\]|\\.)*'|\S+)`)
