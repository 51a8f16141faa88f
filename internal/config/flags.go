package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flags holds the command line options that are not bound into viper.
type Flags struct {
	ConfigDir string
	EnvFile   string
}

// ParseFlags parses args (without the program name) and binds the
// overridable options into viper. A positional argument is taken as the
// parameter file path.
func ParseFlags(args []string) (Flags, error) {
	fsFlags := pflag.NewFlagSet("hilsim", pflag.ContinueOnError)

	var f Flags
	fsFlags.StringVarP(&f.ConfigDir, "config-dir", "c", ".", "directory holding "+ConfigFileName)
	fsFlags.StringVar(&f.EnvFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	fsFlags.StringP("params", "p", "", "vehicle parameter file (JSON)")
	fsFlags.String("log-level", "", "log level: debug, info, warn, error")
	fsFlags.String("mavlink", "", "MAVLink TCP listen address")
	fsFlags.String("storage", "", "flight recorder backend: none, memory, sqlite, postgres, mysql, websocket")
	fsFlags.String("dt-policy", "", "overlong step handling: warn, clamp, substep")

	if err := fsFlags.Parse(args); err != nil {
		return Flags{}, fmt.Errorf("error parsing flags: %w", err)
	}

	bindings := map[string]string{
		"params":    "paramsFile",
		"log-level": "logLevel",
		"mavlink":   "mavlink.address",
		"storage":   "storage.type",
		"dt-policy": "sim.dtPolicy",
	}
	for flag, key := range bindings {
		fl := fsFlags.Lookup(flag)
		if fl == nil || !fl.Changed {
			continue
		}
		if err := viper.BindPFlag(key, fl); err != nil {
			return Flags{}, fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}

	if rest := fsFlags.Args(); len(rest) > 0 && !fsFlags.Lookup("params").Changed {
		viper.Set("paramsFile", rest[0])
	}

	return f, nil
}

// LoadEnv loads a dotenv file into the process environment. A missing file
// is not an error.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error loading env file: %w", err)
	}
	return nil
}
