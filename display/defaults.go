package display

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Stage names of the default chain.
const (
	StageDisplayServer = "display-server"
	StageWindowManager = "window-manager"
	StageFrameServer   = "remote-frame-server"
	StageWebBridge     = "web-bridge"
)

// defaultStages builds the conventional Xvfb, fluxbox, x11vnc,
// websockify chain for the configured display and ports.
func defaultStages(cfg Config, scanner ProcessScanner) []*Stage {
	vncPort := strconv.Itoa(cfg.VNCPort)
	webPort := strconv.Itoa(cfg.WebPort)

	return []*Stage{
		{
			Name:         StageDisplayServer,
			Executable:   "Xvfb",
			Kind:         Hard,
			StartupDelay: 2 * time.Second,
			Spawn: func(ctx context.Context) (Process, error) {
				return spawn(ctx, nil, "Xvfb", cfg.Display,
					"-screen", "0", "1920x1080x24",
					"-ac",
					"+extension", "GLX",
					"+render",
					"-noreset")
			},
			Probe: func(ctx context.Context) bool {
				return scanProbe(scanner, "Xvfb", cfg.Display)
			},
		},
		{
			Name:         StageWindowManager,
			Executable:   "fluxbox",
			Kind:         Soft,
			StartupDelay: time.Second,
			Spawn: func(ctx context.Context) (Process, error) {
				env := append(os.Environ(), "DISPLAY="+cfg.Display)
				return spawn(ctx, env, "fluxbox")
			},
			Probe: func(ctx context.Context) bool {
				return scanProbe(scanner, "fluxbox", "")
			},
		},
		{
			Name:         StageFrameServer,
			Executable:   "x11vnc",
			Kind:         Hard,
			StartupDelay: 2 * time.Second,
			Spawn: func(ctx context.Context) (Process, error) {
				return spawn(ctx, nil, "x11vnc",
					"-forever",
					"-usepw",
					"-shared",
					"-display", cfg.Display,
					"-rfbport", vncPort)
			},
			Probe: func(ctx context.Context) bool {
				return tcpProbe("localhost:" + vncPort)
			},
		},
		{
			Name:         StageWebBridge,
			Executable:   "websockify",
			Kind:         Soft,
			StartupDelay: 2 * time.Second,
			Spawn: func(ctx context.Context) (Process, error) {
				return spawn(ctx, nil, "websockify", webPort, "localhost:"+vncPort)
			},
			Probe: func(ctx context.Context) bool {
				return websocketProbe(ctx, "ws://localhost:"+webPort+"/websockify")
			},
		},
	}
}

// tcpProbe reports whether something accepts connections on addr.
func tcpProbe(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// websocketProbe performs a handshake against the web bridge.
func websocketProbe(ctx context.Context, url string) bool {
	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// SetupPassword writes the frame-server password file under dir using
// vncpasswd, creating the directory if needed.
func SetupPassword(dir, password string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create password dir: %w", err)
	}

	cmd := exec.Command("vncpasswd", "-f")
	cmd.Stdin = strings.NewReader(password + "\n" + password + "\n")
	out, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("vncpasswd: %w", err)
	}

	path := filepath.Join(dir, "passwd")
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("write password file: %w", err)
	}
	return nil
}
