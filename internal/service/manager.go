// Package service installs the web editor as a background system service
// (launchd on macOS, systemd on Linux).
package service

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"
)

const name = "promptblocks"

// Unit describes the service to install.
type Unit struct {
	BinaryPath string
	Port       int
	ConfigPath string
	LogPath    string
}

// Args returns the command line the service runs.
func (u Unit) Args() []string {
	args := []string{u.BinaryPath, "web"}
	if u.Port > 0 {
		args = append(args, "--port", fmt.Sprint(u.Port))
	}
	if u.ConfigPath != "" {
		args = append(args, "--config", u.ConfigPath)
	}
	return args
}

func (u Unit) logPath() string {
	if u.LogPath != "" {
		return u.LogPath
	}
	return filepath.Join(os.TempDir(), name+".log")
}

// ServiceID returns the launchd label (darwin) or systemd unit name (linux).
func ServiceID() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		return "com.kayz." + name, nil
	case "linux":
		return name, nil
	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// Paths returns the installed binary and service definition paths.
func Paths() (binaryPath, definitionPath string, err error) {
	switch runtime.GOOS {
	case "darwin":
		return "/usr/local/bin/" + name, "/Library/LaunchDaemons/com.kayz." + name + ".plist", nil
	case "linux":
		return "/usr/local/bin/" + name, "/etc/systemd/system/" + name + ".service", nil
	default:
		return "", "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// IsInstalled checks whether the service definition and binary exist.
func IsInstalled() bool {
	binaryPath, definitionPath, err := Paths()
	if err != nil {
		return false
	}
	if _, err := os.Stat(definitionPath); err != nil {
		return false
	}
	_, err = os.Stat(binaryPath)
	return err == nil
}

// IsRunning checks whether the service manager reports the service active.
func IsRunning() bool {
	id, err := ServiceID()
	if err != nil {
		return false
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("launchctl", "list", id).Run() == nil
	case "linux":
		return exec.Command("systemctl", "is-active", "--quiet", id).Run() == nil
	default:
		return false
	}
}

// Install copies sourceBinary into place, writes the service definition and
// enables it.
func Install(sourceBinary string, u Unit) error {
	binaryPath, definitionPath, err := Paths()
	if err != nil {
		return err
	}
	if err := copyBinary(sourceBinary, binaryPath); err != nil {
		return fmt.Errorf("failed to copy binary: %w", err)
	}

	u.BinaryPath = binaryPath
	def, err := Render(runtime.GOOS, u)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(definitionPath), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(definitionPath, []byte(def), 0644); err != nil {
		return fmt.Errorf("failed to write service definition: %w", err)
	}

	if err := enable(definitionPath); err != nil {
		return fmt.Errorf("failed to enable service: %w", err)
	}
	return nil
}

// Uninstall stops the service and removes its definition and binary.
func Uninstall() error {
	_ = Stop()

	binaryPath, definitionPath, err := Paths()
	if err != nil {
		return err
	}
	id, _ := ServiceID()
	switch runtime.GOOS {
	case "darwin":
		exec.Command("launchctl", "unload", definitionPath).Run()
	case "linux":
		exec.Command("systemctl", "disable", id).Run()
		exec.Command("systemctl", "daemon-reload").Run()
	}

	os.Remove(definitionPath)
	os.Remove(binaryPath)
	return nil
}

// Start starts the installed service.
func Start() error {
	id, err := ServiceID()
	if err != nil {
		return err
	}
	_, definitionPath, _ := Paths()
	if runtime.GOOS == "darwin" {
		return exec.Command("launchctl", "load", definitionPath).Run()
	}
	return exec.Command("systemctl", "start", id).Run()
}

// Stop stops the running service.
func Stop() error {
	id, err := ServiceID()
	if err != nil {
		return err
	}
	_, definitionPath, _ := Paths()
	if runtime.GOOS == "darwin" {
		return exec.Command("launchctl", "unload", definitionPath).Run()
	}
	return exec.Command("systemctl", "stop", id).Run()
}

func enable(definitionPath string) error {
	id, err := ServiceID()
	if err != nil {
		return err
	}
	if runtime.GOOS == "darwin" {
		return exec.Command("launchctl", "load", definitionPath).Run()
	}
	if err := exec.Command("systemctl", "daemon-reload").Run(); err != nil {
		return err
	}
	return exec.Command("systemctl", "enable", id).Run()
}

func copyBinary(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0755)
}

const launchdPlistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>com.kayz.promptblocks</string>
    <key>ProgramArguments</key>
    <array>
{{- range .Args}}
        <string>{{.}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>{{.Log}}</string>
    <key>StandardErrorPath</key>
    <string>{{.Log}}</string>
</dict>
</plist>
`

const systemdUnitTemplate = `[Unit]
Description=PromptBlocks web editor
After=network.target

[Service]
Type=simple
ExecStart={{.ExecStart}}
Restart=always
RestartSec=5
StandardOutput=append:{{.Log}}
StandardError=append:{{.Log}}

[Install]
WantedBy=multi-user.target
`

// Render produces the service definition for goos ("darwin" or "linux").
func Render(goos string, u Unit) (string, error) {
	var src string
	switch goos {
	case "darwin":
		src = launchdPlistTemplate
	case "linux":
		src = systemdUnitTemplate
	default:
		return "", fmt.Errorf("unsupported platform: %s", goos)
	}

	tmpl, err := template.New(goos).Parse(src)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	err = tmpl.Execute(&sb, map[string]any{
		"Args":      u.Args(),
		"ExecStart": strings.Join(u.Args(), " "),
		"Log":       u.logPath(),
	})
	return sb.String(), err
}
