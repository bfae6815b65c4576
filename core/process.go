package core

import (
	"os"
	"os/user"
	"runtime"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// ProcessContext holds facts about the running process that are attached
// to full log records. It is computed once and never mutated afterwards.
type ProcessContext struct {
	SessionID   string
	PID         int
	MachineName string
	OS          string
	Arch        string
	Is64Bit     bool
	GoVersion   string
	UserName    string
}

var (
	processOnce sync.Once
	process     *ProcessContext
)

// Process returns the process-wide context, computing it on first use.
func Process() *ProcessContext {
	processOnce.Do(func() {
		process = newProcessContext()
	})
	return process
}

func newProcessContext() *ProcessContext {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	pc := &ProcessContext{
		SessionID:   uuid.NewString(),
		PID:         os.Getpid(),
		MachineName: host,
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
		Is64Bit:     strconv.IntSize == 64,
		GoVersion:   runtime.Version(),
	}
	if u, err := user.Current(); err == nil {
		pc.UserName = u.Username
	}
	return pc
}
