/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"plantilla/internal/access"
	"plantilla/internal/backend"
	"plantilla/internal/codec"
	"plantilla/internal/config"
	"plantilla/internal/crash"
	"plantilla/internal/domain"
	"plantilla/internal/editor"
	"plantilla/internal/images"
	applog "plantilla/internal/log"
	"plantilla/internal/scene"
	"plantilla/internal/storage"
	"plantilla/internal/version"
)

func usage() {
	fmt.Println("PlantillaStudio — template design core")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  plantilla version|-v|--version                Show version")
	fmt.Println("  plantilla init <dir>                          Create a workspace at <dir>")
	fmt.Println("  plantilla new <dir> <id> [width height]       Create a blank template document")
	fmt.Println("  plantilla open <dir> <id>                     Open a document and print a summary")
	fmt.Println("  plantilla palettes <dir>                      List available palettes")
	fmt.Println("  plantilla photos <query>                      Search stock photos")
	fmt.Println("  plantilla serve                               Run the persistence backend")
}

// noopSurface satisfies the drawing contract for headless CLI sessions.
type noopSurface struct{}

var _ scene.Surface = noopSurface{}

func (noopSurface) RequestRender(*domain.Scene) {}

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	var autosave *crash.Autosave
	defer func() { crash.Recover(autosave) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("PlantillaStudio — template design core")
			fmt.Println(version.String())
			return
		case "init":
			if len(args) < 3 {
				fmt.Println("init requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			l.Info("init workspace", slog.String("root", abs))
			if _, err := storage.InitWorkspace(abs); err != nil {
				l.Error("init failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Created workspace at", abs)
			return
		case "new":
			if len(args) < 4 {
				fmt.Println("new requires <dir> and <id>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			id := args[3]
			width, height := 1080.0, 1080.0
			if len(args) >= 6 {
				if w, err := strconv.ParseFloat(args[4], 64); err == nil {
					width = w
				}
				if h, err := strconv.ParseFloat(args[5], 64); err == nil {
					height = h
				}
			}
			ws, err := storage.OpenWorkspace(abs)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			doc, err := codec.Serialize(domain.NewScene(width, height, "#ffffff"))
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			if err := ws.SaveDocument(context.Background(), id, doc, nil); err != nil {
				l.Error("new failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Printf("Created document %s (%.0fx%.0f)\n", id, width, height)
			return
		case "open":
			if len(args) < 4 {
				fmt.Println("open requires <dir> and <id>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			id := args[3]
			ws, err := storage.OpenWorkspace(abs)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			sess := editor.NewSession(1080, 1080, "#ffffff", editor.Options{
				Role:    access.RoleAdmin,
				Surface: noopSurface{},
				Store:   ws,
			})
			defer sess.Close()
			if err := sess.LoadDocument(context.Background(), id); err != nil {
				l.Error("open failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			autosave = &crash.Autosave{
				Workspace:  ws,
				DocumentID: id,
				Snapshot:   func() ([]byte, error) { return codec.Serialize(sess.Engine().Scene()) },
			}
			s := sess.Engine().Scene()
			fmt.Printf("Opened document: %s\n", id)
			fmt.Printf("Canvas: %.0fx%.0f, background %s\n", s.Width, s.Height, s.Background)
			fmt.Printf("Elements: %d\n", len(s.Elements))
			customizable := 0
			for _, el := range s.Elements {
				if el.IsCustomizable {
					customizable++
				}
			}
			fmt.Printf("Customizable: %d\n", customizable)
			return
		case "palettes":
			if len(args) < 3 {
				fmt.Println("palettes requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			lib, err := storage.OpenLibrary(abs)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			defer func() { _ = lib.Close() }()
			saved, err := lib.ListPalettes(context.Background(), "")
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			if len(saved) == 0 {
				fmt.Println("No saved palettes; built-in defaults are available.")
			}
			for _, sp := range saved {
				fmt.Printf("%s  %s\n", sp.ID, sp.Name)
			}
			return
		case "photos":
			if len(args) < 3 {
				fmt.Println("photos requires <query>")
				usage()
				os.Exit(2)
			}
			cfg, _, err := config.Load()
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			key := config.ImagesAPIKey()
			if key == "" {
				fmt.Println("No images API key configured; store one in the keyring first.")
				os.Exit(1)
			}
			c := images.NewPexelsClient(cfg.Images.BaseURL, key)
			photos, err := c.Search(context.Background(), args[2])
			if err != nil {
				l.Error("photo search failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			for _, p := range photos {
				fmt.Printf("%s  %dx%d  %s  (%s)\n", p.ID, p.Width, p.Height, p.FullURL, p.Attribution)
			}
			return
		case "serve":
			l.Info("starting backend")
			if err := backend.Start(); err != nil {
				l.Error("backend failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}
