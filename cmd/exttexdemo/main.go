// Command exttexdemo drives an external texture through its whole life:
// a producer goroutine pushes frames, a render loop paints them, and a
// lifecycle goroutine releases the texture while rendering is still going.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/exttex"
	"github.com/gogpu/exttex/backend"
	_ "github.com/gogpu/exttex/backend/native"
	"github.com/gogpu/exttex/recording"
	"github.com/gogpu/exttex/source"
	"github.com/gogpu/gpucontext"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const textureID = 1

func main() {
	var (
		backendName  = flag.String("backend", "", "backend name (default: best available)")
		frames       = flag.Int("frames", 120, "frames to consume before the texture is released")
		width        = flag.Int("width", 320, "texture width")
		height       = flag.Int("height", 180, "texture height")
		contextLoss  = flag.Int("context-loss", 60, "simulate a graphics context loss after this many frames (0 disables)")
		releaseAfter = flag.Duration("release-after", 0, "release after this duration instead of a frame count")
		output       = flag.String("output", "", "write the last rasterized frame as PNG (software backend only)")
		verbose      = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	exttex.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := config{
		backend:      *backendName,
		frames:       uint64(max(*frames, 1)),
		width:        *width,
		height:       *height,
		contextLoss:  uint64(max(*contextLoss, 0)),
		releaseAfter: *releaseAfter,
		output:       *output,
	}
	if err := run(context.Background(), cfg); err != nil {
		log.Fatal(err)
	}
}

type config struct {
	backend       string
	frames        uint64
	width, height int
	contextLoss   uint64
	releaseAfter  time.Duration
	output        string
}

// uploader is implemented by backends whose slots accept pixel uploads.
type uploader interface {
	Updater(slot exttex.Slot) gpucontext.TextureUpdater
}

type stats struct {
	painted  int
	pushed   int
	consumed uint64
	slots    int
}

func run(ctx context.Context, cfg config) error {
	b, err := backend.InitNamed(cfg.backend)
	if err != nil {
		return fmt.Errorf("init backend: %w", err)
	}
	defer b.Close()

	opts := []source.Option{source.WithSize(cfg.width, cfg.height)}
	if u, ok := b.(uploader); ok {
		opts = append(opts, source.WithTarget(u.Updater))
	}
	sw, isSoftware := b.(*backend.SoftwareBackend)
	frames := source.NewFrames(opts...)

	consumed := make(chan struct{}, 1)
	h, err := exttex.NewHandle(frames,
		exttex.WithLabel("demo"),
		exttex.WithFrameConsumed(func() {
			select {
			case consumed <- struct{}{}:
			default:
			}
		}))
	if err != nil {
		return err
	}
	tex, err := exttex.NewExternalTexture(textureID, h)
	if err != nil {
		return err
	}

	reg := exttex.NewRegistry()
	defer reg.Close()
	if err := reg.Register(tex); err != nil {
		return err
	}

	done := make(chan struct{})
	var st stats
	rec := recording.NewRecorder(cfg.width, cfg.height)
	var last *image.RGBA

	g, ctx := errgroup.WithContext(ctx)

	// Producer.
	g.Go(func() error {
		ticker := time.NewTicker(4 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
			if err := frames.Push(gradient(cfg.width, cfg.height, i)); err != nil {
				if errors.Is(err, source.ErrReleased) {
					return nil
				}
				return err
			}
			st.pushed++
			reg.MarkNewFrameAvailable(textureID)
		}
	})

	// Render loop.
	g.Go(func() error {
		ticker := time.NewTicker(8 * time.Millisecond)
		defer ticker.Stop()
		bounds := exttex.Rect{Width: float32(cfg.width), Height: float32(cfg.height)}
		pc := exttex.PaintContext{Canvas: rec, Allocator: b}
		lost := false

		for {
			select {
			case <-done:
				// One more paint lets the texture free its slot.
				rec.Reset()
				return paint(tex, pc, bounds, rec, &st)
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}

			if cfg.contextLoss > 0 && !lost && h.FramesConsumed() >= cfg.contextLoss {
				lost = true
				exttex.Logger().Info("simulating context loss", "frames", h.FramesConsumed())
				reg.OnContextDestroyed()
				reg.OnContextCreated()
			}

			rec.Reset()
			if err := paint(tex, pc, bounds, rec, &st); err != nil {
				return err
			}
			if isSoftware && cfg.output != "" {
				img, err := rasterize(rec, sw)
				if err != nil {
					return err
				}
				if img != nil {
					last = img
				}
			}
		}
	})

	// Lifecycle.
	g.Go(func() error {
		defer close(done)

		var deadline <-chan time.Time
		if cfg.releaseAfter > 0 {
			timer := time.NewTimer(cfg.releaseAfter)
			defer timer.Stop()
			deadline = timer.C
		}
		for h.FramesConsumed() < cfg.frames {
			select {
			case <-consumed:
			case <-deadline:
				reg.Unregister(textureID)
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		reg.Unregister(textureID)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	st.consumed = h.FramesConsumed()
	st.slots = liveSlots(b)
	printSummary(b.Name(), h, st)

	if last != nil {
		return writePNG(cfg.output, last)
	}
	return nil
}

func paint(tex *exttex.ExternalTexture, pc exttex.PaintContext, bounds exttex.Rect, rec *recording.Recorder, st *stats) error {
	before := rec.Len()
	if err := tex.Paint(pc, bounds, false, exttex.SamplingLinear); err != nil {
		return err
	}
	if rec.Len() > before {
		st.painted++
	}
	return nil
}

func rasterize(rec *recording.Recorder, sw *backend.SoftwareBackend) (*image.RGBA, error) {
	r := rec.FinishRecording()
	if len(r.Commands()) == 0 {
		return nil, nil
	}
	img := image.NewRGBA(image.Rect(0, 0, r.Width(), r.Height()))
	if err := r.Rasterize(img, sw.Image); err != nil {
		return nil, err
	}
	return img, nil
}

func liveSlots(b backend.Backend) int {
	if l, ok := b.(interface{ Len() int }); ok {
		return l.Len()
	}
	return -1
}

func printSummary(name string, h *exttex.Handle, st stats) {
	p := message.NewPrinter(language.English)
	p.Printf("backend:  %s\n", name)
	p.Printf("handle:   %v\n", h)
	p.Printf("pushed:   %d frames\n", st.pushed)
	p.Printf("consumed: %d frames\n", st.consumed)
	p.Printf("painted:  %d draws\n", st.painted)
	p.Printf("slots:    %d live after release\n", st.slots)
}

// gradient returns a frame whose colors shift with i.
func gradient(w, h, i int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	shift := uint8(i * 3)
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x*255/max(w-1, 1)) + shift,
				G: uint8(y*255/max(h-1, 1)),
				B: 128 + shift,
				A: 255,
			})
		}
	}
	return img
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
