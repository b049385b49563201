package config

import (
	"time"

	"github.com/spf13/pflag"
)

// RegisterFlags adds the global flags that LoadConfig reads.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default: ./tablemigrate.yaml)")
	fs.StringP("project", "p", "", "JSON project document with sourceConfig/targetConfig")
	fs.StringP("source", "s", "", "source database file or connection URI")
	fs.String("source-driver", "", "source driver id (pgx, postgres, mysql)")
	fs.StringP("target", "t", "", "target database file or connection URI")
	fs.String("target-driver", "", "target driver id (pgx, postgres, mysql)")
	fs.String("state", "", "path to the run history database")
	fs.Bool("no-history", false, "do not record runs in the history database")
	fs.BoolP("verbose", "v", false, "verbose output (debug logging)")
	fs.String("log-level", "", "log level (debug|info|warn|error)")
	fs.StringP("output", "o", "", "output format (auto|text|markdown|json|yaml)")
	fs.Duration("timeout", time.Duration(0), "abort after this long (0 disables)")
}
