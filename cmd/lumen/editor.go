package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lumen-studio/lumen/internal/artifact"
	"github.com/lumen-studio/lumen/internal/editor"
	"github.com/lumen-studio/lumen/internal/ledger"
)

const editorHelp = `Commands:
  load <file>                 start a session from an image file
  gen <prompt>                generate a new image (also saved to gallery)
  gen16:9 <prompt>            generate in 16:9
  spot <x> <y> <dw> <dh> <nw> <nh>
                              pick an edit point (display coords + sizes)
  edit <prompt>               localized edit at the selected point
  filter <prompt>             apply a stylistic filter
  adjust <prompt>             apply a global adjustment
  select <x> <y> <w> <h>      set a crop rectangle (display coords)
  crop [sx sy ratio]          apply the crop (default scale 1 1 1)
  upscale                     upscale the current image
  improve <prompt>            rewrite a prompt (free)
  undo / redo / reset         move through history
  save <file>                 write the current image to disk
  show                        session summary
  credits                     balance
  quit`

// runEditor is the interactive edit loop.
func runEditor(a *app, in *bufio.Scanner) {
	a.requireProfile()
	ed := a.bridge.Editor()
	if ed == nil {
		fmt.Fprintln(os.Stderr, "lumen edit: no session, sign in and verify first")
		os.Exit(1)
	}
	ctx := context.Background()

	fmt.Println("lumen editor. Type 'help' for commands, 'quit' to exit.")
	for {
		fmt.Print("> ")
		if !in.Scan() {
			break
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		switch cmd {
		case "quit", "exit":
			return
		case "help":
			fmt.Println(editorHelp)
		case "load":
			editLoad(ed, rest)
		case "gen":
			editGenerate(ctx, a, ed, rest, "1:1")
		case "gen16:9":
			editGenerate(ctx, a, ed, rest, "16:9")
		case "spot":
			editSpot(ed, rest)
		case "edit":
			reportOp(ed.LocalizedEdit(ctx, rest), "edited")
		case "filter":
			reportOp(ed.ApplyFilter(ctx, rest), "filtered")
		case "adjust":
			reportOp(ed.ApplyAdjustment(ctx, rest), "adjusted")
		case "select":
			editSelect(ed, rest)
		case "crop":
			editCrop(ed, rest)
		case "upscale":
			reportOp(ed.UpscaleCurrent(ctx), "upscaled")
		case "improve":
			improved, err := ed.ImprovePrompt(ctx, rest)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println(improved)
		case "undo":
			reportOp(ed.Undo(), "undone")
		case "redo":
			reportOp(ed.Redo(), "redone")
		case "reset":
			ed.ResetToOriginal()
			fmt.Println("reset to original")
		case "save":
			editSave(ed, rest)
		case "show":
			editShow(ed)
		case "credits":
			if p := ed.Profile(); p != nil {
				fmt.Printf("%d credits\n", p.Credits)
			}
		default:
			fmt.Printf("unknown command %q, try 'help'\n", cmd)
		}
	}
}

func editLoad(ed *editor.Session, path string) {
	if path == "" {
		fmt.Println("usage: load <file>")
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	ed.Upload(&artifact.Artifact{
		Name: filepath.Base(path),
		MIME: http.DetectContentType(data),
		Data: data,
	})
	fmt.Printf("loaded %s (%d bytes)\n", filepath.Base(path), len(data))
}

func editGenerate(ctx context.Context, a *app, ed *editor.Session, prompt, aspect string) {
	if prompt == "" {
		fmt.Println("usage: gen <prompt>")
		return
	}
	art, err := ed.Generate(ctx, prompt, aspect)
	if err != nil {
		reportOp(err, "")
		return
	}
	p := ed.Profile()
	if _, err := a.gallery.Add(ctx, p.UID, art, prompt); err != nil {
		fmt.Println("generated, but gallery save failed:", err)
	} else {
		fmt.Printf("generated and saved to gallery (%d credits left)\n", p.Credits)
	}
}

func editSpot(ed *editor.Session, rest string) {
	f := strings.Fields(rest)
	if len(f) != 6 {
		fmt.Println("usage: spot <x> <y> <displayW> <displayH> <naturalW> <naturalH>")
		return
	}
	x, err1 := strconv.ParseFloat(f[0], 64)
	y, err2 := strconv.ParseFloat(f[1], 64)
	dw, err3 := strconv.Atoi(f[2])
	dh, err4 := strconv.Atoi(f[3])
	nw, err5 := strconv.Atoi(f[4])
	nh, err6 := strconv.Atoi(f[5])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil || err6 != nil || dw <= 0 || dh <= 0 {
		fmt.Println("usage: spot <x> <y> <displayW> <displayH> <naturalW> <naturalH>")
		return
	}
	spot := ed.SetHotspotFromClick(x, y, dw, dh, nw, nh)
	fmt.Printf("edit point set at (%d, %d)\n", spot.X, spot.Y)
}

func editSelect(ed *editor.Session, rest string) {
	f := strings.Fields(rest)
	if len(f) != 4 {
		fmt.Println("usage: select <x> <y> <w> <h>")
		return
	}
	vals := make([]float64, 4)
	for i, s := range f {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			fmt.Println("usage: select <x> <y> <w> <h>")
			return
		}
		vals[i] = v
	}
	ed.SetCropSelection(editor.CropRect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]})
	fmt.Println("crop selection set")
}

func editCrop(ed *editor.Session, rest string) {
	sx, sy, ratio := 1.0, 1.0, 1.0
	if f := strings.Fields(rest); len(f) == 3 {
		var err1, err2, err3 error
		sx, err1 = strconv.ParseFloat(f[0], 64)
		sy, err2 = strconv.ParseFloat(f[1], 64)
		ratio, err3 = strconv.ParseFloat(f[2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			fmt.Println("usage: crop [scaleX scaleY pixelRatio]")
			return
		}
	}
	reportOp(ed.ApplyCrop(sx, sy, ratio), "cropped")
}

func editSave(ed *editor.Session, path string) {
	if path == "" {
		fmt.Println("usage: save <file>")
		return
	}
	cur := ed.Current()
	if cur == nil {
		fmt.Println("nothing to save")
		return
	}
	if err := os.WriteFile(path, cur.Data, 0644); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("saved %s (%d bytes)\n", path, len(cur.Data))
}

func editShow(ed *editor.Session) {
	cur := ed.Current()
	if cur == nil {
		fmt.Println("no image loaded")
		return
	}
	fmt.Printf("current: %s (%s, %d bytes)\n", cur.Name, cur.MIME, len(cur.Data))
	fmt.Printf("history: %d versions, undo=%v redo=%v\n", ed.HistoryLen(), ed.CanUndo(), ed.CanRedo())
	fmt.Printf("tab: %s\n", ed.ActiveTab())
	if spot := ed.Hotspot(); spot != nil {
		fmt.Printf("edit point: (%d, %d)\n", spot.X, spot.Y)
	}
	if r := ed.CropSelection(); r != nil {
		fmt.Printf("crop: %.0fx%.0f at (%.0f, %.0f)\n", r.Width, r.Height, r.X, r.Y)
	}
}

// reportOp prints the outcome of an edit operation, translating the known
// failure shapes into actionable messages.
func reportOp(err error, ok string) {
	if err == nil {
		if ok != "" {
			fmt.Println(ok)
		}
		return
	}
	var ice *ledger.InsufficientCreditsError
	if errors.As(err, &ice) {
		fmt.Printf("%v; buy more with 'lumen buy <pack>'\n", ice)
		return
	}
	switch {
	case errors.Is(err, editor.ErrNoImageLoaded):
		fmt.Println("no image loaded, use 'load <file>' or 'gen <prompt>' first")
	case errors.Is(err, editor.ErrNoHotspot):
		fmt.Println("pick an edit point first with 'spot'")
	case errors.Is(err, editor.ErrNoCropSelected):
		fmt.Println("set a crop rectangle first with 'select'")
	default:
		fmt.Println("error:", err)
	}
}
