package verifier

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// TextExtractor pulls raw text out of a screenshot image.
type TextExtractor interface {
	// Available reports whether extraction can run in this deployment.
	Available() bool
	// ExtractText runs OCR with the given language spec (e.g. "rus+eng").
	ExtractText(ctx context.Context, image []byte, languages string) (string, error)
}

// TesseractExtractor shells out to the tesseract binary. The command name
// is configurable so deployments can point at a non-PATH install.
type TesseractExtractor struct {
	Cmd string
}

func NewTesseractExtractor(cmd string) *TesseractExtractor {
	if cmd == "" {
		cmd = "tesseract"
	}
	return &TesseractExtractor{Cmd: cmd}
}

func (t *TesseractExtractor) Available() bool {
	_, err := exec.LookPath(t.Cmd)
	return err == nil
}

func (t *TesseractExtractor) ExtractText(ctx context.Context, image []byte, languages string) (string, error) {
	tmp, err := os.CreateTemp("", "screenshot-*.png")
	if err != nil {
		return "", fmt.Errorf("temp screenshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close screenshot: %w", err)
	}

	args := []string{tmp.Name(), "stdout"}
	if languages != "" {
		args = append(args, "-l", languages)
	}

	var out, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.Cmd, args...)
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	return out.String(), nil
}
