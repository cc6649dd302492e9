package imaging

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Geometry holds the fixed output dimensions for normalization
type Geometry struct {
	MaxWidth     int // resize bounding box, no upscaling
	MaxHeight    int
	CanvasWidth  int // exact output canvas, transparent padding
	CanvasHeight int
}

// Pipeline provides the external image transform operations invoked
// in-place on a processed-store copy. Both operations are deterministic
// for a fixed input and fixed parameters; exit status is the sole
// success/failure signal.
type Pipeline interface {
	// NormalizeGeometry decodes the image, strips metadata, trims
	// transparent borders, resizes to fit the bounding box without
	// upscaling and center-pads onto the exact transparent canvas.
	NormalizeGeometry(ctx context.Context, path string, geom Geometry) error
	// Optimize losslessly recompresses the file. It must run after
	// NormalizeGeometry since it operates on the resized output.
	Optimize(ctx context.Context, path string) error
	// IsAvailable checks that the external tools are installed
	IsAvailable(ctx context.Context) (bool, error)
}

// magickBinary and oxipngBinary are the external tools the shell
// pipeline drives. ImageMagick 7 ships the unified "magick" entrypoint.
const (
	magickBinary = "magick"
	oxipngBinary = "oxipng"
)

// ShellPipeline implements Pipeline by shelling out to ImageMagick and oxipng
type ShellPipeline struct{}

// NewShellPipeline creates a pipeline that uses the system image tools
func NewShellPipeline() *ShellPipeline {
	return &ShellPipeline{}
}

// NormalizeGeometry runs ImageMagick over the file in place
func (p *ShellPipeline) NormalizeGeometry(ctx context.Context, path string, geom Geometry) error {
	if err := geom.validate(); err != nil {
		return err
	}

	// The ">" resize flag only shrinks, never upscales. "-trim +repage"
	// drops transparent borders and resets the canvas offset before the
	// final "-extent" pads onto the exact transparent canvas.
	cmd := exec.CommandContext(ctx, magickBinary,
		path,
		"-strip",
		"-trim", "+repage",
		"-resize", fmt.Sprintf("%dx%d>", geom.MaxWidth, geom.MaxHeight),
		"-background", "none",
		"-gravity", "center",
		"-extent", fmt.Sprintf("%dx%d", geom.CanvasWidth, geom.CanvasHeight),
		path,
	)
	if err := runCommand(cmd); err != nil {
		return fmt.Errorf("geometry normalization failed for %s: %w", path, err)
	}
	return nil
}

// Optimize runs oxipng over the file in place
func (p *ShellPipeline) Optimize(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, oxipngBinary, "--opt", "4", "--strip", "safe", "--quiet", path)
	if err := runCommand(cmd); err != nil {
		return fmt.Errorf("lossless optimization failed for %s: %w", path, err)
	}
	return nil
}

// IsAvailable checks that both external tools can be found on PATH
func (p *ShellPipeline) IsAvailable(_ context.Context) (bool, error) {
	for _, bin := range []string{magickBinary, oxipngBinary} {
		if _, err := exec.LookPath(bin); err != nil {
			return false, fmt.Errorf("%s not found on PATH: %w", bin, err)
		}
	}
	return true, nil
}

func (g Geometry) validate() error {
	if g.MaxWidth <= 0 || g.MaxHeight <= 0 {
		return fmt.Errorf("invalid resize bounding box %dx%d", g.MaxWidth, g.MaxHeight)
	}
	if g.CanvasWidth <= 0 || g.CanvasHeight <= 0 {
		return fmt.Errorf("invalid canvas size %dx%d", g.CanvasWidth, g.CanvasHeight)
	}
	return nil
}

// runCommand executes a command and returns an error with its combined
// output on failure
func runCommand(cmd *exec.Cmd) error {
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
