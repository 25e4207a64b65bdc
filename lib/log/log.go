// Package log provides logging for wasmserve.
package log

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options contains options for controlling the logging
type Options struct {
	File       string // Log everything to this file
	MaxSize    int    // Maximum size in MB of the log file before it's rotated
	MaxBackups int    // Maximum number of old log files to retain
	Level      string // Log level
	Quiet      bool   // Only log warnings and errors
}

// Opt is the options for the logger
var Opt = Options{
	MaxSize:    10,
	MaxBackups: 3,
	Level:      "info",
}

// AddFlags adds the logging flags to the flagSet
func AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&Opt.File, "log-file", "", Opt.File, "Log everything to this file")
	flagSet.IntVarP(&Opt.MaxSize, "log-file-max-size", "", Opt.MaxSize, "Maximum size in MB of the log file before it's rotated")
	flagSet.IntVarP(&Opt.MaxBackups, "log-file-max-backups", "", Opt.MaxBackups, "Maximum number of old log files to retain")
	flagSet.StringVarP(&Opt.Level, "log-level", "", Opt.Level, "Log level debug|info|warning|error")
	flagSet.BoolVarP(&Opt.Quiet, "quiet", "q", Opt.Quiet, "Only log warnings and errors")
}

// InitLogging starts the logging as per the command line flags
func InitLogging() error {
	level, err := logrus.ParseLevel(Opt.Level)
	if err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", Opt.Level, err)
	}
	if Opt.Quiet && level > logrus.WarnLevel {
		level = logrus.WarnLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: Opt.File != "",
	})

	// Log file output
	if Opt.File != "" {
		logrus.SetOutput(&lumberjack.Logger{
			Filename:   Opt.File,
			MaxSize:    Opt.MaxSize,
			MaxBackups: Opt.MaxBackups,
		})
		return nil
	}
	logrus.SetOutput(os.Stdout)
	return nil
}
