/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns an unrecovered panic into a crash report on disk plus a
// best-effort autosave of the open document.
package crash

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "plantilla/internal/log"
	"plantilla/internal/storage"
	"plantilla/internal/telemetry"
	"plantilla/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Autosave describes what to rescue when a panic is caught: the workspace to
// write into, the id of the open document, and a snapshot function that
// serializes the live scene.
type Autosave struct {
	Workspace  *storage.Workspace
	DocumentID string
	Snapshot   func() ([]byte, error)
}

// Recover captures a panic, logs it with a stack trace, writes a crash report
// file, and autosaves the open document under "<id>-crash" so the user's last
// state survives the restart.
//
// Usage: defer func(){ crash.Recover(as) }()
func Recover(as *Autosave) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, _ := writeReport(as, r, stack)
		if as != nil && as.Workspace != nil && as.Snapshot != nil {
			if data, err := as.Snapshot(); err != nil {
				l.Error("autosave snapshot failed", slog.Any("err", err))
			} else {
				id := as.DocumentID
				if id == "" {
					id = "untitled"
				}
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := as.Workspace.SaveDocument(ctx, id+"-crash", data, nil); err != nil {
					l.Error("autosave write failed", slog.Any("err", err))
				} else {
					l.Info("autosave written", slog.String("doc", id+"-crash"))
				}
				cancel()
			}
		}

		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		// Exit with a non-zero code to indicate failure in CLI context.
		exitFn(2)
	}
}

func writeReport(as *Autosave, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if as != nil && as.Workspace != nil && as.Workspace.Root != "" {
		dir = filepath.Join(as.Workspace.Root, storage.BackupsDirName)
		_ = os.MkdirAll(dir, 0o755)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", stamp))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "PlantillaStudio Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if as != nil && as.Workspace != nil {
		_, _ = fmt.Fprintf(&buf, "Workspace: %s\n", as.Workspace.Root)
		_, _ = fmt.Fprintf(&buf, "Document: %s\n", as.DocumentID)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()

	// optionally upload anonymized crash report (opt-in via env)
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
