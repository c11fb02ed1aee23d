// Package environment resolves the host's path layout and builds the
// environment-data snapshot returned over the remote channel.
package environment

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Directory name constants for the per-user layout.
const (
	homeDir             = ".nimbusd"
	logsDir             = "logs"
	extensionsDir       = "extensions"
	globalStorageDir    = "globalStorage"
	workspaceStorageDir = "workspaceStorage"
)

// envPrefix prefixes the environment variables that override the layout.
const envPrefix = "NIMBUSD_"

// Paths is the host's resolved path layout.
type Paths struct {
	AppRoot              string `json:"appRoot"`
	LogsHome             string `json:"logsHome"`
	ExtensionsRoot       string `json:"extensionsRoot"`
	GlobalStorageHome    string `json:"globalStorageHome"`
	WorkspaceStorageHome string `json:"workspaceStorageHome"`
	UserHome             string `json:"userHome"`
}

// Data is the environment snapshot returned per getEnvironmentData call.
// ExtensionHostLogPath is freshly minted per call.
type Data struct {
	Paths
	ExtensionHostLogPath string `json:"extensionHostLogPath"`
	OS                   string `json:"os"`
	ConnectionToken      string `json:"connectionToken"`
}

// Resolve builds the path layout for the current user. Each location can be
// overridden by a NIMBUSD_* environment variable; unset locations default
// to the conventional layout under the user's home.
func Resolve(appRoot string) (Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("resolving home directory: %w", err)
	}
	base := filepath.Join(home, homeDir)

	return Paths{
		AppRoot:              appRoot,
		LogsHome:             override("LOGS", filepath.Join(base, logsDir)),
		ExtensionsRoot:       override("EXTENSIONS", filepath.Join(base, extensionsDir)),
		GlobalStorageHome:    override("GLOBAL_STORAGE", filepath.Join(base, globalStorageDir)),
		WorkspaceStorageHome: override("WORKSPACE_STORAGE", filepath.Join(base, workspaceStorageDir)),
		UserHome:             home,
	}, nil
}

// Snapshot builds the per-call environment data. logSeq is the freshly
// minted sequence number for the extension-host log path.
func Snapshot(paths Paths, logSeq int64, connectionToken string) Data {
	return Data{
		Paths:                paths,
		ExtensionHostLogPath: filepath.Join(paths.LogsHome, fmt.Sprintf("exthost%d", logSeq)),
		OS:                   runtime.GOOS,
		ConnectionToken:      connectionToken,
	}
}

// override returns the environment override for a location, or the default.
func override(name, def string) string {
	if v := os.Getenv(envPrefix + name); v != "" {
		return v
	}
	return def
}
