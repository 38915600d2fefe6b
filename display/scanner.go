package display

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ProcInfo describes one entry of the process table.
type ProcInfo struct {
	PID     int
	Name    string
	Cmdline string
}

// ProcessScanner lists and kills processes, for orphan cleanup and
// liveness probes. Tests inject a fake.
type ProcessScanner interface {
	// Processes returns a snapshot of the process table.
	Processes() ([]ProcInfo, error)

	// Kill forcibly ends the process with the given pid.
	Kill(pid int) error
}

// procScanner reads the process table from /proc.
type procScanner struct{}

func (procScanner) Processes() ([]ProcInfo, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}

	var out []ProcInfo
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}

		comm, err := os.ReadFile(filepath.Join("/proc", entry.Name(), "comm"))
		if err != nil {
			// Process exited between ReadDir and here.
			continue
		}

		cmdline, _ := os.ReadFile(filepath.Join("/proc", entry.Name(), "cmdline"))

		out = append(out, ProcInfo{
			PID:     pid,
			Name:    strings.TrimSpace(string(comm)),
			Cmdline: strings.ReplaceAll(string(cmdline), "\x00", " "),
		})
	}
	return out, nil
}

func (procScanner) Kill(pid int) error {
	return syscall.Kill(pid, syscall.SIGKILL)
}

// scanProbe reports whether a process with the given executable name is
// running, optionally requiring an identifier in its command line.
func scanProbe(scanner ProcessScanner, name, identifier string) bool {
	procs, err := scanner.Processes()
	if err != nil {
		return false
	}
	lname := strings.ToLower(name)
	for _, p := range procs {
		if !strings.Contains(strings.ToLower(p.Name), lname) {
			continue
		}
		if identifier == "" || strings.Contains(p.Cmdline, identifier) {
			return true
		}
	}
	return false
}
