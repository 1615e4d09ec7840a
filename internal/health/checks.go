package health

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DatabaseChecker pings the SQLite database.
type DatabaseChecker struct {
	db *sql.DB
}

func NewDatabaseChecker(db *sql.DB) *DatabaseChecker {
	return &DatabaseChecker{db: db}
}

func (c *DatabaseChecker) Name() string { return "database" }

func (c *DatabaseChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.db.PingContext(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "database reachable"}
}

// Pinger is the subset of a session backend a health check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SessionChecker probes the session backend. A failing backend is
// degraded rather than unhealthy because feedback requests without
// history still work.
type SessionChecker struct {
	pinger Pinger
}

func NewSessionChecker(pinger Pinger) *SessionChecker {
	return &SessionChecker{pinger: pinger}
}

func (c *SessionChecker) Name() string { return "sessions" }

func (c *SessionChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.pinger.Ping(ctx); err != nil {
		return CheckResult{Status: StatusDegraded, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "session store reachable"}
}

// DataDirChecker verifies the data directory is writable.
type DataDirChecker struct {
	path string
}

func NewDataDirChecker(path string) *DataDirChecker {
	return &DataDirChecker{path: path}
}

func (c *DataDirChecker) Name() string { return "data_dir" }

func (c *DataDirChecker) Check(_ context.Context) CheckResult {
	info, err := os.Stat(c.path)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if !info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: fmt.Sprintf("not a directory: %s", c.path)}
	}

	probe := filepath.Join(c.path, ".write_test")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	_ = os.Remove(probe)

	return CheckResult{Status: StatusHealthy, Message: "data directory writable"}
}
