package music_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/hxnx/jukebot/internal/music"
	"github.com/hxnx/jukebot/internal/music/mocks"
	"github.com/hxnx/jukebot/internal/music/musictest"
)

const (
	guildID  = "guild-1"
	waitFor  = time.Second
	waitTick = 5 * time.Millisecond
)

type harness struct {
	resolver *musictest.Resolver
	gateway  *musictest.Gateway
	manager  *music.Manager

	mu     sync.Mutex
	events []music.Event
}

func newHarness() *harness {
	return newWrappedHarness(nil)
}

// newWrappedHarness lets a test intercept resolver calls made by the Manager.
func newWrappedHarness(wrap func(music.Resolver) music.Resolver) *harness {
	h := &harness{
		resolver: musictest.NewResolver(),
		gateway:  musictest.NewGateway(),
	}
	var resolver music.Resolver = h.resolver
	if wrap != nil {
		resolver = wrap(h.resolver)
	}
	h.manager = music.NewManager(resolver, h.gateway, music.WithEventHandler(func(ev music.Event) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.events = append(h.events, ev)
	}))
	return h
}

func (h *harness) enqueue(locator string) (music.EnqueueResult, error) {
	return h.manager.Enqueue(context.Background(), music.EnqueueRequest{
		GuildID:        guildID,
		VoiceChannelID: "voice-1",
		TextChannelID:  "text-1",
		Locator:        locator,
		RequestedBy:    "user-1",
	})
}

func (h *harness) mustEnqueue(t *testing.T, locator string) music.EnqueueResult {
	t.Helper()
	res, err := h.enqueue(locator)
	require.NoError(t, err)
	return res
}

func (h *harness) conn(t *testing.T) *musictest.Connection {
	t.Helper()
	conns := h.gateway.Connections()
	require.Len(t, conns, 1)
	return conns[0]
}

func (h *harness) titles(t *testing.T) []string {
	t.Helper()
	tracks, err := h.manager.Queue(guildID)
	require.NoError(t, err)
	return trackTitles(tracks)
}

func (h *harness) eventsOf(typ music.EventType) []music.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return lo.Filter(h.events, func(ev music.Event, _ int) bool { return ev.Type == typ })
}

func (h *harness) waitPlaying(t *testing.T, locator string) {
	t.Helper()
	require.Eventually(t, func() bool {
		conns := h.gateway.Connections()
		if len(conns) != 1 {
			return false
		}
		cur := conns[0].Current()
		return cur != nil && cur.Locator() == locator && !cur.Stopped()
	}, waitFor, waitTick)
}

func trackTitles(tracks []music.Track) []string {
	return lo.Map(tracks, func(tr music.Track, _ int) string { return tr.Title })
}

func TestManager_EnqueueScenario(t *testing.T) {
	h := newHarness()
	a := h.resolver.Add("aaaaaaaaaaa", "A", 200)
	b := h.resolver.Add("bbbbbbbbbbb", "B", 180)
	c := h.resolver.Add("ccccccccccc", "C", 3725)

	resA := h.mustEnqueue(t, a)
	resB := h.mustEnqueue(t, b)
	resC := h.mustEnqueue(t, c)

	assert.True(t, resA.Started)
	assert.Equal(t, "A", resA.Track.Title)
	assert.Equal(t, "user-1", resA.Track.RequestedBy)
	assert.False(t, resB.Started)
	assert.Equal(t, 1, resB.Position)
	assert.False(t, resC.Started)
	assert.Equal(t, 2, resC.Position)

	assert.Equal(t, []string{"A", "B", "C"}, h.titles(t))
	assert.Equal(t, 1, h.gateway.Joins())

	s, ok := h.manager.Registry().Get(guildID)
	require.True(t, ok)
	assert.Equal(t, music.StatusPlaying, s.Status())

	now, ok := s.NowPlaying()
	require.True(t, ok)
	assert.Equal(t, "A", now.Title)
	h.waitPlaying(t, a)
}

func TestManager_EnqueueKeepsFIFOOfSuccessfulResolutions(t *testing.T) {
	h := newHarness()
	a := h.resolver.Add("aaaaaaaaaaa", "A", 10)
	b := h.resolver.Add("bbbbbbbbbbb", "B", 10)
	c := h.resolver.Add("ccccccccccc", "C", 10)
	d := h.resolver.Add("ddddddddddd", "D", 10)
	h.resolver.FailMetadata(b, errors.Mark(errors.New("timeout"), music.ErrNetwork))

	h.mustEnqueue(t, a)
	_, err := h.enqueue(b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, music.ErrMetadataFetch))
	assert.True(t, errors.Is(err, music.ErrNetwork))

	h.mustEnqueue(t, c)
	_, err = h.enqueue(musictest.Locator("missing0000"))
	assert.True(t, errors.Is(err, music.ErrNotFound))
	h.mustEnqueue(t, d)

	assert.Equal(t, []string{"A", "C", "D"}, h.titles(t))
}

func TestManager_EnqueueResolutionFailureCreatesNothing(t *testing.T) {
	h := newHarness()
	a := h.resolver.Add("aaaaaaaaaaa", "A", 10)
	h.resolver.FailMetadata(a, errors.Mark(errors.New("gone"), music.ErrNotFound))

	_, err := h.enqueue(a)
	require.True(t, errors.Is(err, music.ErrMetadataFetch))

	assert.Equal(t, 0, h.manager.Registry().Len())
	assert.Equal(t, 0, h.gateway.Joins())
}

func TestManager_EnqueueInvalidLocator(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockResolver(ctrl)
	gateway := musictest.NewGateway()
	manager := music.NewManager(resolver, gateway)

	t.Run("rejected by resolver", func(t *testing.T) {
		resolver.EXPECT().Validate("https://example.com/watch?v=x").Return(false).Times(1)
		resolver.EXPECT().FetchMetadata(gomock.Any(), gomock.Any()).Times(0)

		_, err := manager.Enqueue(context.Background(), music.EnqueueRequest{
			GuildID:        guildID,
			VoiceChannelID: "voice-1",
			Locator:        "https://example.com/watch?v=x",
		})
		require.True(t, errors.Is(err, music.ErrInvalidLocator))
	})

	t.Run("empty locator", func(t *testing.T) {
		resolver.EXPECT().Validate(gomock.Any()).Times(0)

		_, err := manager.Enqueue(context.Background(), music.EnqueueRequest{
			GuildID:        guildID,
			VoiceChannelID: "voice-1",
			Locator:        "   ",
		})
		require.True(t, errors.Is(err, music.ErrInvalidLocator))
	})

	assert.Equal(t, 0, manager.Registry().Len())
	assert.Equal(t, 0, gateway.Joins())
}

func TestManager_EnqueueWithMockedResolver(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockResolver(ctrl)
	gateway := musictest.NewGateway()
	manager := music.NewManager(resolver, gateway)

	locator := musictest.Locator("aaaaaaaaaaa")
	track := music.Track{ID: "aaaaaaaaaaa", Title: "A", Locator: locator, Duration: time.Minute}

	gomock.InOrder(
		resolver.EXPECT().Validate(locator).Return(true),
		resolver.EXPECT().FetchMetadata(gomock.Any(), locator).Return(track, nil),
		resolver.EXPECT().OpenStream(gomock.Any(), locator).Return(nil, errors.New("stream unavailable")),
	)

	res, err := manager.Enqueue(context.Background(), music.EnqueueRequest{
		GuildID:        guildID,
		VoiceChannelID: "voice-1",
		Locator:        locator,
	})
	require.NoError(t, err)
	assert.True(t, res.Started)

	// the only track failed to start, so the session drained immediately
	assert.Equal(t, 0, manager.Registry().Len())
	conns := gateway.Connections()
	require.Len(t, conns, 1)
	assert.True(t, conns[0].Disconnected())
}

func TestManager_EnqueueRequiresVoiceChannel(t *testing.T) {
	h := newHarness()
	a := h.resolver.Add("aaaaaaaaaaa", "A", 10)

	_, err := h.manager.Enqueue(context.Background(), music.EnqueueRequest{
		GuildID: guildID,
		Locator: a,
	})
	require.True(t, errors.Is(err, music.ErrNotInVoiceChannel))
	assert.Equal(t, 0, h.manager.Registry().Len())
}

func TestManager_ConnectionErrorDiscardsSession(t *testing.T) {
	h := newHarness()
	a := h.resolver.Add("aaaaaaaaaaa", "A", 10)
	h.gateway.FailJoin(errors.New("voice timeout"))

	_, err := h.enqueue(a)
	require.True(t, errors.Is(err, music.ErrConnection))

	_, ok := h.manager.Registry().Get(guildID)
	assert.False(t, ok)
	assert.Empty(t, h.resolver.Opened())
}

func TestManager_JoinFailureRejectsTracksQueuedWhileConnecting(t *testing.T) {
	h := newHarness()
	a := h.resolver.Add("aaaaaaaaaaa", "A", 10)
	b := h.resolver.Add("bbbbbbbbbbb", "B", 10)
	release := h.gateway.GateJoin()
	defer release()
	h.gateway.FailJoin(errors.New("boom"))

	errA := make(chan error, 1)
	go func() {
		_, err := h.enqueue(a)
		errA <- err
	}()
	require.Eventually(t, func() bool { return h.gateway.Joins() == 1 }, waitFor, waitTick)

	errB := make(chan error, 1)
	go func() {
		_, err := h.enqueue(b)
		errB <- err
	}()
	require.Eventually(t, func() bool {
		s, ok := h.manager.Registry().Get(guildID)
		return ok && len(s.Tracks()) == 2
	}, waitFor, waitTick)

	select {
	case err := <-errB:
		t.Fatalf("enqueue returned before the voice join finished: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	release()
	assert.True(t, errors.Is(<-errA, music.ErrConnection))
	assert.True(t, errors.Is(<-errB, music.ErrConnection))

	assert.Equal(t, 0, h.manager.Registry().Len())
	assert.Empty(t, h.resolver.Opened())
	assert.Equal(t, 1, h.gateway.Joins())
}

func TestManager_TrackQueuedWhileConnectingWaitsForJoin(t *testing.T) {
	h := newHarness()
	a := h.resolver.Add("aaaaaaaaaaa", "A", 10)
	b := h.resolver.Add("bbbbbbbbbbb", "B", 10)
	release := h.gateway.GateJoin()
	defer release()

	go func() {
		_, _ = h.enqueue(a)
	}()
	require.Eventually(t, func() bool { return h.gateway.Joins() == 1 }, waitFor, waitTick)

	resB := make(chan music.EnqueueResult, 1)
	go func() {
		res, err := h.enqueue(b)
		assert.NoError(t, err)
		resB <- res
	}()
	require.Eventually(t, func() bool {
		s, ok := h.manager.Registry().Get(guildID)
		return ok && len(s.Tracks()) == 2
	}, waitFor, waitTick)

	release()
	res := <-resB
	assert.False(t, res.Started)
	assert.Equal(t, 1, res.Position)

	h.waitPlaying(t, a)
	assert.Equal(t, []string{"A", "B"}, h.titles(t))
}

func TestManager_AdvanceOnSingleTrackTearsDown(t *testing.T) {
	h := newHarness()
	a := h.resolver.Add("aaaaaaaaaaa", "A", 10)
	h.mustEnqueue(t, a)

	s, ok := h.manager.Registry().Get(guildID)
	require.True(t, ok)

	h.conn(t).Current().Finish(nil)

	require.Eventually(t, func() bool { return h.manager.Registry().Len() == 0 }, waitFor, waitTick)
	assert.True(t, h.conn(t).Disconnected())
	assert.Empty(t, s.Tracks())
	assert.Equal(t, music.StatusIdle, s.Status())
	assert.Len(t, h.eventsOf(music.EventQueueDrained), 1)
}

func TestManager_AdvanceOnMultiTrackPlaysNextHead(t *testing.T) {
	h := newHarness()
	a := h.resolver.Add("aaaaaaaaaaa", "A", 10)
	b := h.resolver.Add("bbbbbbbbbbb", "B", 10)
	c := h.resolver.Add("ccccccccccc", "C", 10)
	h.mustEnqueue(t, a)
	h.mustEnqueue(t, b)
	h.mustEnqueue(t, c)

	h.conn(t).Current().Finish(nil)
	h.waitPlaying(t, b)

	assert.Equal(t, []string{"B", "C"}, h.titles(t))
	assert.Equal(t, []string{a, b}, h.resolver.Opened())
	assert.False(t, h.conn(t).Disconnected())
}

func TestManager_SkipScenario(t *testing.T) {
	h := newHarness()
	a := h.resolver.Add("aaaaaaaaaaa", "A", 10)
	b := h.resolver.Add("bbbbbbbbbbb", "B", 10)
	h.mustEnqueue(t, a)
	h.mustEnqueue(t, b)

	first := h.conn(t).Current()
	require.NoError(t, h.manager.Skip(guildID))

	h.waitPlaying(t, b)
	assert.True(t, first.Stopped())
	assert.Equal(t, []string{"B"}, h.titles(t))
	assert.Empty(t, h.eventsOf(music.EventTrackFailed))
}

func TestManager_SkipAndNaturalFinishAgree(t *testing.T) {
	run := func(t *testing.T, end func(h *harness)) []string {
		h := newHarness()
		a := h.resolver.Add("aaaaaaaaaaa", "A", 10)
		b := h.resolver.Add("bbbbbbbbbbb", "B", 10)
		c := h.resolver.Add("ccccccccccc", "C", 10)
		h.mustEnqueue(t, a)
		h.mustEnqueue(t, b)
		h.mustEnqueue(t, c)

		end(h)
		h.waitPlaying(t, b)
		return h.titles(t)
	}

	skipped := run(t, func(h *harness) {
		require.NoError(t, h.manager.Skip(guildID))
	})
	finished := run(t, func(h *harness) {
		h.conn(t).Current().Finish(nil)
	})

	assert.Equal(t, finished, skipped)
	assert.Equal(t, []string{"B", "C"}, skipped)
}

func TestManager_NothingPlaying(t *testing.T) {
	h := newHarness()

	assert.True(t, errors.Is(h.manager.Skip(guildID), music.ErrNothingPlaying))
	assert.True(t, errors.Is(h.manager.Stop(guildID), music.ErrNothingPlaying))
	_, err := h.manager.Queue(guildID)
	assert.True(t, errors.Is(err, music.ErrNothingPlaying))

	assert.Equal(t, 0, h.manager.Registry().Len())
	assert.Equal(t, 0, h.gateway.Joins())
	assert.Empty(t, h.eventsOf(music.EventStopped))
}

func TestManager_StopWhilePlaying(t *testing.T) {
	h := newHarness()
	a := h.resolver.Add("aaaaaaaaaaa", "A", 10)
	b := h.resolver.Add("bbbbbbbbbbb", "B", 10)
	h.mustEnqueue(t, a)
	h.mustEnqueue(t, b)

	s, ok := h.manager.Registry().Get(guildID)
	require.True(t, ok)
	player := h.conn(t).Current()

	require.NoError(t, h.manager.Stop(guildID))

	assert.Equal(t, 0, h.manager.Registry().Len())
	assert.Equal(t, music.StatusStopped, s.Status())
	assert.Empty(t, s.Tracks())
	assert.True(t, player.Stopped())
	assert.True(t, h.conn(t).Disconnected())
	assert.Len(t, h.eventsOf(music.EventStopped), 1)

	// the stopped player's done signal must not resurrect the session
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{a}, h.resolver.Opened())
	assert.Equal(t, 0, h.manager.Registry().Len())
	assert.True(t, errors.Is(h.manager.Stop(guildID), music.ErrNothingPlaying))
}

func TestManager_StopWhileConnecting(t *testing.T) {
	h := newHarness()
	a := h.resolver.Add("aaaaaaaaaaa", "A", 10)
	release := h.gateway.GateJoin()
	defer release()

	errCh := make(chan error, 1)
	go func() {
		_, err := h.enqueue(a)
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		s, ok := h.manager.Registry().Get(guildID)
		return ok && s.Status() == music.StatusConnecting
	}, waitFor, waitTick)

	require.NoError(t, h.manager.Stop(guildID))
	assert.Equal(t, 0, h.manager.Registry().Len())

	release()
	err := <-errCh
	require.True(t, errors.Is(err, music.ErrSessionStopped))

	assert.True(t, h.conn(t).Disconnected())
	assert.Empty(t, h.resolver.Opened())
	assert.Equal(t, 0, h.manager.Registry().Len())
}

func TestManager_StopWhileOpeningStream(t *testing.T) {
	h := newHarness()
	a := h.resolver.Add("aaaaaaaaaaa", "A", 10)
	h.resolver.GateStream(a)

	errCh := make(chan error, 1)
	go func() {
		_, err := h.enqueue(a)
		errCh <- err
	}()

	require.Eventually(t, func() bool { return len(h.resolver.Opened()) == 1 }, waitFor, waitTick)
	require.NoError(t, h.manager.Stop(guildID))
	require.NoError(t, <-errCh)

	assert.Empty(t, h.conn(t).Players())
	assert.True(t, h.conn(t).Disconnected())
	assert.Equal(t, 0, h.manager.Registry().Len())
}

func TestManager_PlaybackErrorDoesNotStallQueue(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness, locator string)
	}{
		{
			name: "stream open fails",
			setup: func(h *harness, locator string) {
				h.resolver.FailStream(locator, errors.Mark(errors.New("403"), music.ErrNetwork))
			},
		},
		{
			name: "player rejects stream",
			setup: func(h *harness, locator string) {
				h.gateway.FailPlay(locator, errors.New("ffmpeg missing"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			a := h.resolver.Add("aaaaaaaaaaa", "A", 10)
			b := h.resolver.Add("bbbbbbbbbbb", "B", 10)
			c := h.resolver.Add("ccccccccccc", "C", 10)
			tt.setup(h, b)

			h.mustEnqueue(t, a)
			h.mustEnqueue(t, b)
			h.mustEnqueue(t, c)

			h.conn(t).Current().Finish(nil)
			h.waitPlaying(t, c)

			assert.Equal(t, []string{"C"}, h.titles(t))
			assert.Equal(t, []string{a, b, c}, h.resolver.Opened())

			failed := h.eventsOf(music.EventTrackFailed)
			require.Len(t, failed, 1)
			assert.Equal(t, "B", failed[0].Track.Title)
			assert.Equal(t, "text-1", failed[0].TextChannelID)
			assert.True(t, errors.Is(failed[0].Err, music.ErrPlayback))
		})
	}
}

func TestManager_PlayerErrorAdvances(t *testing.T) {
	h := newHarness()
	a := h.resolver.Add("aaaaaaaaaaa", "A", 10)
	b := h.resolver.Add("bbbbbbbbbbb", "B", 10)
	h.mustEnqueue(t, a)
	h.mustEnqueue(t, b)

	h.conn(t).Current().Finish(errors.New("decoder crashed"))
	h.waitPlaying(t, b)

	assert.Equal(t, []string{"B"}, h.titles(t))
	failed := h.eventsOf(music.EventTrackFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "A", failed[0].Track.Title)
	assert.True(t, errors.Is(failed[0].Err, music.ErrPlayback))
}

func TestManager_EveryTrackFailingTearsDown(t *testing.T) {
	h := newHarness()
	a := h.resolver.Add("aaaaaaaaaaa", "A", 10)
	b := h.resolver.Add("bbbbbbbbbbb", "B", 10)
	h.mustEnqueue(t, a)
	h.mustEnqueue(t, b)
	h.resolver.FailStream(b, errors.New("unavailable"))

	h.conn(t).Current().Finish(nil)

	require.Eventually(t, func() bool { return h.manager.Registry().Len() == 0 }, waitFor, waitTick)
	assert.True(t, h.conn(t).Disconnected())
	assert.Len(t, h.eventsOf(music.EventTrackFailed), 1)
	assert.Len(t, h.eventsOf(music.EventQueueDrained), 1)
}

func TestManager_SkipWhileOpeningNextStream(t *testing.T) {
	h := newHarness()
	a := h.resolver.Add("aaaaaaaaaaa", "A", 10)
	b := h.resolver.Add("bbbbbbbbbbb", "B", 10)
	c := h.resolver.Add("ccccccccccc", "C", 10)
	h.resolver.GateStream(b)

	h.mustEnqueue(t, a)
	h.mustEnqueue(t, b)
	h.mustEnqueue(t, c)

	h.conn(t).Current().Finish(nil)
	require.Eventually(t, func() bool { return len(h.resolver.Opened()) == 2 }, waitFor, waitTick)

	require.NoError(t, h.manager.Skip(guildID))
	h.waitPlaying(t, c)

	assert.Equal(t, []string{"C"}, h.titles(t))
	assert.Empty(t, h.eventsOf(music.EventTrackFailed))
}

// skipOnOpen issues a skip right after the stream for locator has been
// opened, before the Session starts playing it.
type skipOnOpen struct {
	music.Resolver
	locator string
	skip    func()
}

func (r *skipOnOpen) OpenStream(ctx context.Context, locator string) (io.ReadCloser, error) {
	stream, err := r.Resolver.OpenStream(ctx, locator)
	if locator == r.locator {
		r.skip()
	}
	return stream, err
}

func TestManager_SkipAfterStreamOpenedDropsTrack(t *testing.T) {
	hook := &skipOnOpen{locator: musictest.Locator("bbbbbbbbbbb")}
	h := newWrappedHarness(func(next music.Resolver) music.Resolver {
		hook.Resolver = next
		return hook
	})
	hook.skip = func() { assert.NoError(t, h.manager.Skip(guildID)) }

	a := h.resolver.Add("aaaaaaaaaaa", "A", 10)
	b := h.resolver.Add("bbbbbbbbbbb", "B", 10)
	c := h.resolver.Add("ccccccccccc", "C", 10)
	h.mustEnqueue(t, a)
	h.mustEnqueue(t, b)
	h.mustEnqueue(t, c)
	h.waitPlaying(t, a)

	require.NoError(t, h.manager.Skip(guildID))
	h.waitPlaying(t, c)

	assert.Equal(t, []string{"C"}, h.titles(t))
	assert.Equal(t, []string{a, b, c}, h.resolver.Opened())
	for _, p := range h.conn(t).Players() {
		assert.NotEqual(t, b, p.Locator())
	}
	assert.Empty(t, h.eventsOf(music.EventTrackFailed))
}

func TestManager_ConcurrentEnqueueJoinsVoiceOnce(t *testing.T) {
	h := newHarness()
	release := h.gateway.GateJoin()
	defer release()

	ids := []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc", "ddddddddddd", "eeeeeeeeeee"}
	locators := lo.Map(ids, func(id string, _ int) string {
		return h.resolver.Add(id, id, 10)
	})

	var wg sync.WaitGroup
	results := make(chan music.EnqueueResult, len(locators))
	for _, locator := range locators {
		wg.Add(1)
		go func(locator string) {
			defer wg.Done()
			res, err := h.enqueue(locator)
			assert.NoError(t, err)
			results <- res
		}(locator)
	}

	require.Eventually(t, func() bool {
		s, ok := h.manager.Registry().Get(guildID)
		return ok && len(s.Tracks()) == len(locators)
	}, waitFor, waitTick)

	release()
	wg.Wait()
	close(results)

	started := 0
	for res := range results {
		if res.Started {
			started++
		}
	}
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, h.gateway.Joins())
	assert.Len(t, h.titles(t), len(locators))
}

func TestManager_StopAll(t *testing.T) {
	h := newHarness()
	a := h.resolver.Add("aaaaaaaaaaa", "A", 10)
	h.mustEnqueue(t, a)
	_, err := h.manager.Enqueue(context.Background(), music.EnqueueRequest{
		GuildID:        "guild-2",
		VoiceChannelID: "voice-2",
		Locator:        a,
	})
	require.NoError(t, err)
	require.Equal(t, 2, h.manager.ActiveSessions())

	h.manager.StopAll()

	assert.Equal(t, 0, h.manager.ActiveSessions())
	for _, conn := range h.gateway.Connections() {
		assert.True(t, conn.Disconnected())
	}
}
