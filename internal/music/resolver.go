package music

//go:generate go run go.uber.org/mock/mockgen -source=resolver.go -destination=mocks/mock_resolver.go -package=mocks

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	youtube "github.com/kkdai/youtube/v2"
)

// Resolver validates locators, fetches track metadata and opens playable
// audio streams. OpenStream is called once per playback; streams are never
// reused.
type Resolver interface {
	Validate(locator string) bool
	FetchMetadata(ctx context.Context, locator string) (Track, error)
	OpenStream(ctx context.Context, locator string) (io.ReadCloser, error)
}

var youtubeHosts = map[string]struct{}{
	"youtube.com":       {},
	"www.youtube.com":   {},
	"m.youtube.com":     {},
	"music.youtube.com": {},
	"youtu.be":          {},
	"www.youtu.be":      {},
}

// YouTubeResolver resolves YouTube watch URLs with the kkdai/youtube client.
type YouTubeResolver struct {
	client *youtube.Client
}

func NewYouTubeResolver(httpClient *http.Client) *YouTubeResolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &YouTubeResolver{
		client: &youtube.Client{HTTPClient: httpClient},
	}
}

func (r *YouTubeResolver) Validate(locator string) bool {
	return isYouTubeURL(locator)
}

func (r *YouTubeResolver) FetchMetadata(ctx context.Context, locator string) (Track, error) {
	id, ok := youTubeVideoID(locator)
	if !ok {
		return Track{}, errors.Wrapf(ErrInvalidLocator, "%q", locator)
	}

	video, err := r.client.GetVideoContext(ctx, id)
	if err != nil {
		return Track{}, classifyYouTubeError(err)
	}

	title := strings.TrimSpace(video.Title)
	if title == "" {
		title = "Unknown Title"
	}

	duration := video.Duration.Truncate(time.Second)
	if duration < 0 {
		duration = 0
	}

	return Track{
		ID:       video.ID,
		Title:    title,
		Locator:  watchURL(video.ID),
		Duration: duration,
	}, nil
}

func (r *YouTubeResolver) OpenStream(ctx context.Context, locator string) (io.ReadCloser, error) {
	id, ok := youTubeVideoID(locator)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidLocator, "%q", locator)
	}

	video, err := r.client.GetVideoContext(ctx, id)
	if err != nil {
		return nil, classifyYouTubeError(err)
	}

	formats := video.Formats.Type("audio")
	if len(formats) == 0 {
		formats = video.Formats.WithAudioChannels()
	}
	if len(formats) == 0 {
		return nil, errors.Newf("no audio formats for video %s", video.ID)
	}

	stream, _, err := r.client.GetStreamContext(ctx, video, &formats[0])
	if err != nil {
		return nil, errors.Wrapf(classifyYouTubeError(err), "open stream for %s", video.ID)
	}
	return stream, nil
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

func isYouTubeURL(locator string) bool {
	_, ok := youTubeVideoID(locator)
	return ok
}

// youTubeVideoID extracts the video ID from a watch, youtu.be, shorts, embed
// or live URL on a known YouTube host.
func youTubeVideoID(locator string) (string, bool) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", false
	}

	u, err := url.Parse(locator)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if _, ok := youtubeHosts[host]; !ok {
		return "", false
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	var id string
	switch {
	case host == "youtu.be" || host == "www.youtu.be":
		id = segments[0]
	case len(segments) == 1 && segments[0] == "watch":
		id = u.Query().Get("v")
	case len(segments) >= 2 && (segments[0] == "shorts" || segments[0] == "embed" || segments[0] == "live"):
		id = segments[1]
	}

	if !videoIDPattern.MatchString(id) {
		return "", false
	}
	return id, true
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

func classifyYouTubeError(err error) error {
	var netErr net.Error
	var urlErr *url.Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.As(err, &netErr), errors.As(err, &urlErr):
		return errors.Mark(err, ErrNetwork)
	default:
		// private, age-restricted, removed and malformed videos all end up here
		return errors.Mark(err, ErrNotFound)
	}
}
