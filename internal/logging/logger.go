package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger. Packages receive it as a logrus.FieldLogger.
var Logger = logrus.New()

var once sync.Once

type Options struct {
	Service string
	Level   string
	// File enables a rotating log file next to stdout.
	File string
	JSON bool
}

// Init configures Logger once; later calls are no-ops.
func Init(opts Options) {
	once.Do(func() {
		level, err := logrus.ParseLevel(strings.TrimSpace(opts.Level))
		if err != nil {
			level = logrus.InfoLevel
		}
		Logger.SetLevel(level)

		if opts.JSON {
			Logger.SetFormatter(&logrus.JSONFormatter{})
		} else {
			Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		}

		var out io.Writer = os.Stdout
		if opts.File != "" {
			out = io.MultiWriter(os.Stdout, RotatingFile(opts.File))
		}
		Logger.SetOutput(out)

		Logger.WithFields(logrus.Fields{
			"service": opts.Service,
			"level":   level.String(),
			"file":    opts.File,
		}).Info("logger initialized")
	})
}

// RotatingFile returns a size-rotated, compressed log file writer.
func RotatingFile(path string) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
}

// Discard returns a logger that drops everything, for tests and tools.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
