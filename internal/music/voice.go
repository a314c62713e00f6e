package music

import (
	"bufio"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

const (
	opusFrameDuration = 20 * time.Millisecond
	opusSendTimeout   = time.Second
)

// SessionLookup returns the gateway session responsible for a guild.
type SessionLookup func(guildID string) *discordgo.Session

// DiscordGateway joins voice channels through discordgo and plays audio by
// transcoding streams to Opus with ffmpeg.
type DiscordGateway struct {
	lookup SessionLookup
	ffmpeg string
}

func NewDiscordGateway(lookup SessionLookup, ffmpegBinary string) *DiscordGateway {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	return &DiscordGateway{
		lookup: lookup,
		ffmpeg: ffmpegBinary,
	}
}

func (g *DiscordGateway) JoinVoice(guildID, channelID string) (VoiceConnection, error) {
	if channelID == "" {
		return nil, errors.New("channel ID is empty")
	}

	s := g.lookup(guildID)
	if s == nil {
		return nil, errors.Newf("no gateway session for guild %s", guildID)
	}

	vc, err := s.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, err
	}
	return &discordVoice{vc: vc, ffmpeg: g.ffmpeg}, nil
}

type discordVoice struct {
	vc     *discordgo.VoiceConnection
	ffmpeg string
}

func (v *discordVoice) NewPlayer() AudioPlayer {
	return &OpusPlayer{
		vc:     v.vc,
		ffmpeg: v.ffmpeg,
		stopCh: make(chan struct{}),
		done:   make(chan error, 1),
	}
}

func (v *discordVoice) Disconnect() error {
	safeSpeaking(v.vc, false)
	return v.vc.Disconnect()
}

// OpusPlayer pipes one stream through ffmpeg into Ogg/Opus and sends the
// packets to the voice connection in 20ms frames.
type OpusPlayer struct {
	vc     *discordgo.VoiceConnection
	ffmpeg string

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan error
}

func (p *OpusPlayer) Play(stream io.ReadCloser) error {
	args := []string{
		"-i", "pipe:0",
		"-c:a", "libopus",
		"-ar", "48000",
		"-ac", "2",
		"-b:a", "96k",
		"-vbr", "on",
		"-frame_duration", "20",
		"-application", "audio",
		"-f", "ogg",
		"-loglevel", "warning",
		"pipe:1",
	}

	cmd := exec.Command(p.ffmpeg, args...)
	cmd.Stdin = stream

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stream.Close()
		return errors.Wrap(err, "ffmpeg stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		_ = stream.Close()
		return errors.Wrap(err, "ffmpeg stderr pipe")
	}
	if err := cmd.Start(); err != nil {
		_ = stream.Close()
		return errors.Wrap(err, "start ffmpeg")
	}

	go logFFmpeg(stderr)
	go p.run(cmd, stdout, stream)
	return nil
}

func (p *OpusPlayer) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
}

func (p *OpusPlayer) Done() <-chan error {
	return p.done
}

func (p *OpusPlayer) stopped() bool {
	select {
	case <-p.stopCh:
		return true
	default:
		return false
	}
}

func (p *OpusPlayer) run(cmd *exec.Cmd, stdout io.Reader, stream io.Closer) {
	safeSpeaking(p.vc, true)
	sendErr := p.send(stdout)
	safeSpeaking(p.vc, false)

	stopped := p.stopped()
	if (sendErr != nil || stopped) && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	_ = stream.Close()
	waitErr := cmd.Wait()

	switch {
	case stopped:
		p.done <- nil
	case sendErr != nil:
		p.done <- sendErr
	case waitErr != nil:
		p.done <- errors.Wrap(waitErr, "ffmpeg exited")
	default:
		p.done <- nil
	}
}

func (p *OpusPlayer) send(r io.Reader) error {
	ogg := newOggReader(r)
	ticker := time.NewTicker(opusFrameDuration)
	defer ticker.Stop()

	frames := 0
	for {
		if p.stopped() {
			return nil
		}

		page, err := ogg.ReadPage()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				zlog.Debug().Int("frames", frames).Msg("audio stream ended")
				return nil
			}
			return errors.Wrapf(err, "read ogg page after %d frames", frames)
		}
		if page.isHeader {
			continue
		}

		for _, packet := range page.packets {
			if len(packet) == 0 {
				continue
			}

			select {
			case <-p.stopCh:
				return nil
			case <-ticker.C:
			}

			select {
			case p.vc.OpusSend <- packet:
				frames++
			case <-p.stopCh:
				return nil
			case <-time.After(opusSendTimeout):
				zlog.Warn().Int("frame", frames).Msg("timeout sending opus frame")
			}
		}
	}
}

func logFFmpeg(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			zlog.Debug().Str("ffmpeg", line).Msg("ffmpeg output")
		}
	}
}

func safeSpeaking(vc *discordgo.VoiceConnection, speaking bool) {
	if vc == nil || !vc.Ready {
		return
	}
	_ = vc.Speaking(speaking)
}
