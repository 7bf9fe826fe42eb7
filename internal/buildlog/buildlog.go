// Package buildlog provides lightweight category-tagged debug logging for
// the build system, in the spirit of the indexer's internal/debug package
// but scoped to build categories instead of search/indexing ones.
package buildlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu     sync.Mutex
	output io.Writer = os.Stderr
	file   *os.File
)

// SetOutput redirects log output. Pass nil to silence logging entirely.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// InitLogFile opens a timestamped log file under dir (os.TempDir when dir
// is empty) and routes output there, returning the path.
func InitLogFile(dir string) (string, error) {
	mu.Lock()
	defer mu.Unlock()

	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	path := dir + "/rkbuild-" + time.Now().Format("2006-01-02T150405") + ".log"
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create log file: %w", err)
	}
	file = f
	output = f
	return path, nil
}

// Close closes the log file if one was opened by InitLogFile.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	output = os.Stderr
	return err
}

var verbose bool

// SetVerbose toggles logging produced by Logf and the category helpers.
// Fault is the only helper that logs regardless of this flag.
func SetVerbose(v bool) { verbose = v }

// Enabled reports whether verbose logging is active, either via -v (through
// SetVerbose) or the RKBUILD_DEBUG environment variable.
func Enabled() bool {
	if verbose {
		return true
	}
	v := os.Getenv("RKBUILD_DEBUG")
	return v == "1" || v == "true"
}

func writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return output
}

// Logf writes a category-tagged debug line, gated on Enabled().
func Logf(category, format string, args ...interface{}) {
	if !Enabled() {
		return
	}
	w := writer()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[%s] "+format+"\n", append([]interface{}{category}, args...)...)
}

func Graph(format string, args ...interface{})   { Logf("GRAPH", format, args...) }
func VFS(format string, args ...interface{})      { Logf("VFS", format, args...) }
func Archive(format string, args ...interface{})  { Logf("ARCHIVE", format, args...) }
func RPL(format string, args ...interface{})      { Logf("RPL", format, args...) }
func Compile(format string, args ...interface{})  { Logf("COMPILE", format, args...) }
func Package(format string, args ...interface{})  { Logf("PACKAGE", format, args...) }

// Facade logs the build-system facade's lifecycle: initialization,
// add-on registration, RPL source discovery, and build orchestration.
func Facade(format string, args ...interface{}) { Logf("FACADE", format, args...) }

// Fault logs unconditionally — faults are always worth surfacing.
func Fault(format string, args ...interface{}) {
	w := writer()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[FAULT] "+format+"\n", args...)
}
