package music

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// YTDLPResolver resolves tracks through the yt-dlp binary.
type YTDLPResolver struct {
	Binary  string
	TempDir string
}

func NewYTDLPResolver(binary, tempDir string) *YTDLPResolver {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YTDLPResolver{
		Binary:  binary,
		TempDir: tempDir,
	}
}

func (r *YTDLPResolver) Validate(locator string) bool {
	return isYouTubeURL(locator)
}

func (r *YTDLPResolver) FetchMetadata(ctx context.Context, locator string) (Track, error) {
	if !r.Validate(locator) {
		return Track{}, errors.Wrapf(ErrInvalidLocator, "%q", locator)
	}

	args := r.baseArgs("--dump-single-json", "--skip-download")
	args = append(args, strings.TrimSpace(locator))

	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Env = r.env()

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return Track{}, classifyYTDLPError(err, stderr.String())
	}

	return parseYTDLPOutput(output)
}

// OpenStream pipes the best audio format of locator out of yt-dlp. Closing
// the returned stream kills the process.
func (r *YTDLPResolver) OpenStream(ctx context.Context, locator string) (io.ReadCloser, error) {
	args := r.baseArgs("-f", "bestaudio", "-o", "-", "--quiet")
	args = append(args, strings.TrimSpace(locator))

	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Env = r.env()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "yt-dlp stdout pipe")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "start yt-dlp")
	}

	return &processStream{cmd: cmd, ReadCloser: stdout}, nil
}

func (r *YTDLPResolver) baseArgs(extra ...string) []string {
	args := []string{"--no-warnings", "--no-playlist"}
	if r.TempDir != "" {
		args = append(args, "--paths", r.TempDir)
	}
	return append(args, extra...)
}

func (r *YTDLPResolver) env() []string {
	if r.TempDir == "" {
		return os.Environ()
	}
	return append(os.Environ(), "TMPDIR="+r.TempDir, "TEMP="+r.TempDir, "TMP="+r.TempDir)
}

type processStream struct {
	io.ReadCloser
	cmd  *exec.Cmd
	once sync.Once
}

func (p *processStream) Close() error {
	var err error
	p.once.Do(func() {
		err = p.ReadCloser.Close()
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		if werr := p.cmd.Wait(); werr != nil {
			zlog.Debug().Err(werr).Msg("yt-dlp exited")
		}
	})
	return err
}

type ytDLPItem struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	WebpageURL string      `json:"webpage_url"`
	URL        string      `json:"url"`
	Duration   float64     `json:"duration"`
	Entries    []ytDLPItem `json:"entries"`
}

func parseYTDLPOutput(output []byte) (Track, error) {
	var root ytDLPItem
	if err := json.Unmarshal(output, &root); err != nil {
		return Track{}, errors.Mark(errors.Wrap(err, "invalid yt-dlp json"), ErrNotFound)
	}

	item, err := pickYTDLPItem(root)
	if err != nil {
		return Track{}, err
	}

	link := item.WebpageURL
	if link == "" {
		link = item.URL
	}
	if link == "" {
		return Track{}, errors.Wrap(ErrNotFound, "missing track url")
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = "Unknown Title"
	}

	duration := time.Duration(item.Duration) * time.Second
	if duration < 0 {
		duration = 0
	}

	return Track{
		ID:       item.ID,
		Title:    title,
		Locator:  link,
		Duration: duration,
	}, nil
}

func pickYTDLPItem(root ytDLPItem) (ytDLPItem, error) {
	if len(root.Entries) == 0 {
		return root, nil
	}

	for _, entry := range root.Entries {
		if entry.WebpageURL != "" || entry.URL != "" || entry.Title != "" {
			return entry, nil
		}
	}

	return ytDLPItem{}, errors.Wrap(ErrNotFound, "no usable entries")
}

func classifyYTDLPError(err error, stderr string) error {
	msg := strings.TrimSpace(stderr)
	lower := strings.ToLower(msg)

	wrapped := errors.Wrapf(err, "yt-dlp failed: %s", msg)
	switch {
	case strings.Contains(lower, "unable to download"),
		strings.Contains(lower, "timed out"),
		strings.Contains(lower, "connection"):
		return errors.Mark(wrapped, ErrNetwork)
	default:
		return errors.Mark(wrapped, ErrNotFound)
	}
}
