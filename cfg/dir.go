// Package cfg resolves the on-disk configuration directory and loads
// the router topology config, grounded on
// _examples/postmanlabs-observability-cli/cfg/dir.go's
// go-homedir-based directory resolution.
package cfg

import (
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/minnowstack/minnow/printer"
)

var cfgDir string

func init() {
	initCfgDir()
}

func initCfgDir() {
	home, err := homedir.Dir()
	if err != nil {
		printer.Stderr.Warningf("Failed to find $HOME, defaulting to '.', error: %v", err)
		home = "."
	}
	cfgDir = filepath.Join(home, ".minnow")

	if stat, err := os.Stat(cfgDir); os.IsNotExist(err) {
		if err := os.Mkdir(cfgDir, 0700); err != nil {
			printer.Stderr.Warningf("Failed to create config directory %s, persistent config will not work, error: %v\n", cfgDir, err)
		}
	} else if err != nil {
		printer.Stderr.Errorf("Failed to stat %s: %v\n", cfgDir, err)
		os.Exit(1)
	} else if !stat.IsDir() {
		printer.Stderr.Errorf("%s is not a directory, please remove.\n", cfgDir)
		os.Exit(1)
	}
}

// Dir returns the resolved configuration directory (normally
// $HOME/.minnow).
func Dir() string { return cfgDir }
