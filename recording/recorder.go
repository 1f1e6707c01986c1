package recording

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/exttex"
)

// ErrFinished is returned by DrawExternal after FinishRecording.
var ErrFinished = errors.New("recording: recorder finished")

// Recorder captures draw commands. It is safe for concurrent use, although
// in practice only the render goroutine draws into it.
type Recorder struct {
	mu       sync.Mutex
	width    int
	height   int
	commands []exttex.DrawCommand
	finished bool
}

var _ exttex.Canvas = (*Recorder)(nil)

// NewRecorder creates a Recorder for a canvas of the given size.
func NewRecorder(width, height int) *Recorder {
	return &Recorder{
		width:    width,
		height:   height,
		commands: make([]exttex.DrawCommand, 0, 16),
	}
}

// DrawExternal records cmd. Commands with empty bounds are dropped.
func (r *Recorder) DrawExternal(cmd exttex.DrawCommand) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		return ErrFinished
	}
	if cmd.Bounds.Empty() {
		return nil
	}
	r.commands = append(r.commands, cmd)
	return nil
}

// Len returns the number of recorded commands.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.commands)
}

// Reset discards recorded commands so the Recorder can capture the next
// frame.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = r.commands[:0]
	r.finished = false
}

// FinishRecording returns an immutable Recording containing all recorded
// commands. Further draws fail with ErrFinished until Reset.
func (r *Recorder) FinishRecording() *Recording {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finished = true
	cmds := make([]exttex.DrawCommand, len(r.commands))
	copy(cmds, r.commands)
	return &Recording{
		width:    r.width,
		height:   r.height,
		commands: cmds,
	}
}

// Recording is an immutable list of draw commands.
type Recording struct {
	width, height int
	commands      []exttex.DrawCommand
}

// Width returns the width of the recording canvas.
func (r *Recording) Width() int {
	return r.width
}

// Height returns the height of the recording canvas.
func (r *Recording) Height() int {
	return r.height
}

// Commands returns the recorded commands. The slice must not be modified.
func (r *Recording) Commands() []exttex.DrawCommand {
	return r.commands
}

// Playback replays the recording to canvas, stopping at the first error.
func (r *Recording) Playback(canvas exttex.Canvas) error {
	for i, cmd := range r.commands {
		if err := canvas.DrawExternal(cmd); err != nil {
			return fmt.Errorf("recording: command %d (texture %d): %w", i, cmd.TextureID, err)
		}
	}
	return nil
}
