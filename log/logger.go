package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	// Debug logs pipeline events, frames and wake word scores
	Debug *log.Logger
	// Info logs connections, wake-ups and timers
	Info *log.Logger
	// Warn logs recoverable trouble such as a refused pipeline
	Warn *log.Logger
	// Error logs failed operations the daemon survives
	Error *log.Logger
	// Fatal logs startup failures right before exit
	Fatal *log.Logger
)

// LogConfig holds the logging configuration
type LogConfig struct {
	LogLevel      string `yaml:"log_level"`
	LogFile       string `yaml:"log_file"`
	EnableConsole bool   `yaml:"enable_console"`
}

// DefaultConfig is what the daemon logs with when the config file is silent
func DefaultConfig() LogConfig {
	return LogConfig{
		LogLevel:      "info",
		LogFile:       "logs/satellite.log",
		EnableConsole: true,
	}
}

// LogLevel is a log severity
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

var levelNames = map[string]LogLevel{
	"debug":   DebugLevel,
	"info":    InfoLevel,
	"warn":    WarnLevel,
	"warning": WarnLevel,
	"error":   ErrorLevel,
	"fatal":   FatalLevel,
}

// ParseLevel maps a level name, in any case, to its LogLevel
func ParseLevel(name string) (LogLevel, bool) {
	level, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]
	return level, ok
}

const flags = log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile | log.Lmsgprefix

var (
	mu      sync.Mutex
	output  io.Writer = os.Stdout
	current           = InfoLevel
	colored           = true
	device  string
)

// Until Init runs everything from info up goes to stdout, so packages and
// tests can log without setting anything up.
func init() {
	setup()
}

// Init points the loggers at the configured file and console. Colors are
// only used when the console is the sole output.
func Init(config *LogConfig) error {
	level, ok := ParseLevel(config.LogLevel)
	if !ok {
		level = InfoLevel
	}

	var out io.Writer
	color := false

	if config.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(config.LogFile), 0755); err != nil {
			return fmt.Errorf("create log directory: %v", err)
		}
		file, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("open log file: %v", err)
		}
		if config.EnableConsole {
			out = io.MultiWriter(file, os.Stdout)
		} else {
			out = file
		}
	} else if config.EnableConsole {
		out = os.Stdout
		color = true
	} else {
		out = io.Discard
	}

	mu.Lock()
	output, current, colored = out, level, color
	setup()
	mu.Unlock()

	Info.Printf("logging initialized, level: %s", config.LogLevel)
	return nil
}

// SetDevice tags every following line with the satellite's name, for
// collectors that gather several satellites into one stream.
func SetDevice(name string) {
	mu.Lock()
	device = name
	setup()
	mu.Unlock()
}

// setup rebuilds the level loggers; mu must be held after init
func setup() {
	tag := ""
	if device != "" {
		tag = "[" + device + "] "
	}
	newLogger := func(l LogLevel, name, color string) *log.Logger {
		if current > l {
			return log.New(io.Discard, "", 0)
		}
		prefix := name + ": "
		if colored {
			prefix = color + name + ":\033[0m "
		}
		return log.New(output, prefix+tag, flags)
	}

	Debug = newLogger(DebugLevel, "DEBUG", "\033[36m")
	Info = newLogger(InfoLevel, "INFO", "\033[32m")
	Warn = newLogger(WarnLevel, "WARN", "\033[33m")
	Error = newLogger(ErrorLevel, "ERROR", "\033[31m")
	Fatal = newLogger(FatalLevel, "FATAL", "\033[35m")
}

// Debugf logs at debug level with the caller's file:line
func Debugf(format string, args ...interface{}) {
	Debug.Output(2, fmt.Sprintf(format, args...))
}

func Infof(format string, args ...interface{}) {
	Info.Output(2, fmt.Sprintf(format, args...))
}

func Warnf(format string, args ...interface{}) {
	Warn.Output(2, fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...interface{}) {
	Error.Output(2, fmt.Sprintf(format, args...))
}

// Fatalf logs and exits the process
func Fatalf(format string, args ...interface{}) {
	Fatal.Output(2, fmt.Sprintf(format, args...))
	os.Exit(1)
}
