// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
)

// Options configures Setup.
type Options struct {
	// Level is DEBUG, INFO, WARN or ERROR. Anything else means WARN.
	Level string

	// Dir enables the rotating file sink when non-empty.
	Dir      string
	Filename string

	MaxAge       time.Duration
	RotationTime time.Duration

	// Output receives console logs (default os.Stderr).
	Output io.Writer
}

// DefaultFilename is used when Options.Filename is empty.
const DefaultFilename = "repp.log"

// ParseLevel maps a level name to a logrus level. Unknown names give WARN.
func ParseLevel(name string) logrus.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return logrus.DebugLevel
	case "INFO":
		return logrus.InfoLevel
	case "WARN", "WARNING":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	default:
		return logrus.WarnLevel
	}
}

// Init configures the standard logger. See Setup.
func Init(opts Options) (io.Closer, error) {
	return Setup(logrus.StandardLogger(), opts)
}

// Setup applies opts to logger: text formatter, level and, when Dir is set,
// a time-rotated log file attached through an lfshook hook.
//
// The returned closer releases the log file; it is a no-op without one.
func Setup(logger *logrus.Logger, opts Options) (io.Closer, error) {
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(ParseLevel(opts.Level))

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)

	// Calling Setup again replaces any earlier file hook.
	logger.ReplaceHooks(make(logrus.LevelHooks))

	if opts.Dir == "" {
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, err
	}

	name := opts.Filename
	if name == "" {
		name = DefaultFilename
	}
	logFile := filepath.Join(opts.Dir, name)

	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	rotation := opts.RotationTime
	if rotation <= 0 {
		rotation = time.Hour
	}

	rotateOpts := []rotatelogs.Option{
		rotatelogs.WithMaxAge(maxAge),
		rotatelogs.WithRotationTime(rotation),
	}
	// Symlinks need elevated rights on windows.
	if runtime.GOOS != "windows" {
		rotateOpts = append(rotateOpts, rotatelogs.WithLinkName(logFile))
	}

	writer, err := rotatelogs.New(logFile+".%Y%m%d%H%M", rotateOpts...)
	if err != nil {
		return nil, err
	}

	logger.AddHook(lfshook.NewHook(lfshook.WriterMap{
		logrus.DebugLevel: writer,
		logrus.InfoLevel:  writer,
		logrus.WarnLevel:  writer,
		logrus.ErrorLevel: writer,
		logrus.FatalLevel: writer,
		logrus.PanicLevel: writer,
	}, &logrus.TextFormatter{DisableColors: true}))

	return writer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
