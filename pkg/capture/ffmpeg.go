package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/peerhelp/peerhelp/pkg/config"
	"github.com/peerhelp/peerhelp/pkg/logger"
	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"
	"github.com/pion/webrtc/v3/pkg/media/ivfreader"
)

// FFmpeg captures X11 displays and windows with an ffmpeg process
// that encodes VP8 into IVF frames on its stdout.
type FFmpeg struct {
	conf config.Capture
	log  *logger.Logger
}

func NewFFmpeg(conf config.Capture, log *logger.Logger) *FFmpeg {
	return &FFmpeg{conf: conf, log: log}
}

// Sources lists the display and the configured privacy window.
func (f *FFmpeg) Sources(context.Context) ([]Source, error) {
	if _, err := exec.LookPath(f.conf.Ffmpeg); err != nil {
		return nil, err
	}
	sources := []Source{{Id: f.conf.Display, Name: "Entire screen", Type: Screen}}
	if f.conf.Window.Id != "" {
		sources = append(sources, Source{Id: f.conf.Window.Id, Name: f.conf.Window.Name, Type: Window})
	}
	return sources, nil
}

func (f *FFmpeg) Capture(ctx context.Context, src Source, bounds Bounds) (Stream, error) {
	cmd := exec.Command(f.conf.Ffmpeg, f.args(src, bounds)...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg (%s): %w", f.conf.Ffmpeg, err)
	}
	kill := func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}

	timeout := f.conf.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		s   *stream
		err error
	}
	ready := make(chan result, 1)
	go func() {
		s, err := newStream(src, out, bounds.FrameRate, f.log)
		ready <- result{s, err}
	}()
	select {
	case r := <-ready:
		if r.err != nil {
			kill()
			return nil, r.err
		}
		r.s.onStop = kill
		f.log.Info().Msgf("Capturing %v [%v] with ffmpeg", src.Type, src.Name)
		return r.s, nil
	case <-ctx.Done():
		kill()
		return nil, fmt.Errorf("ffmpeg has not started: %w", ctx.Err())
	}
}

func (f *FFmpeg) args(src Source, bounds Bounds) []string {
	fps := bounds.FrameRate
	if fps <= 0 {
		fps = 30
	}
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "x11grab",
		"-framerate", strconv.Itoa(fps),
		"-draw_mouse", "1",
	}
	display := f.conf.Display
	if src.Type == Window {
		args = append(args, "-window_id", src.Id)
	} else if src.Id != "" {
		display = src.Id
	}
	args = append(args, "-i", display)
	if bounds.MaxWidth > 0 && bounds.MaxHeight > 0 {
		args = append(args, "-vf", fmt.Sprintf(
			"scale=w='min(%d,iw)':h='min(%d,ih)':force_original_aspect_ratio=decrease,pad=ceil(iw/2)*2:ceil(ih/2)*2",
			bounds.MaxWidth, bounds.MaxHeight))
	}
	return append(args,
		"-an",
		"-c:v", "libvpx",
		"-deadline", "realtime",
		"-cpu-used", "8",
		"-g", strconv.Itoa(fps*2),
		"-b:v", f.conf.Bitrate,
		"-pix_fmt", "yuv420p",
		"-f", "ivf",
		"pipe:1",
	)
}

type stream struct {
	src    Source
	track  *webrtc.TrackLocalStaticSample
	frames atomic.Uint64
	onStop func()
	done   chan struct{}
	once   sync.Once
	log    *logger.Logger
}

// newStream waits for the IVF header and starts copying the frames
// into a new video track.
func newStream(src Source, r io.Reader, fps int, log *logger.Logger) (*stream, error) {
	ivf, header, err := ivfreader.NewWith(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if header.FourCC != "VP80" {
		return nil, fmt.Errorf("%w: unsupported codec %v", ErrUnavailable, header.FourCC)
	}
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "peerhelp-"+string(src.Type))
	if err != nil {
		return nil, err
	}
	if fps <= 0 {
		fps = 30
	}
	s := &stream{src: src, track: track, done: make(chan struct{}), log: log}
	log.Debug().Msgf("IVF %vx%v", header.Width, header.Height)
	go s.pump(ivf, time.Second/time.Duration(fps))
	return s, nil
}

func (s *stream) pump(ivf *ivfreader.IVFReader, duration time.Duration) {
	defer close(s.done)
	for {
		frame, _, err := ivf.ParseNextFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				s.log.Warn().Err(err).Msg("capture stream")
			}
			return
		}
		if err = s.track.WriteSample(media.Sample{Data: frame, Duration: duration}); err != nil {
			s.log.Warn().Err(err).Msg("video track")
		}
		s.frames.Add(1)
	}
}

func (s *stream) Source() Source           { return s.src }
func (s *stream) Track() webrtc.TrackLocal { return s.track }

// Stop ends the capture, safe to call many times.
func (s *stream) Stop() {
	s.once.Do(func() {
		if s.onStop != nil {
			s.onStop()
		}
		<-s.done
		s.log.Debug().Msgf("Capture [%v] stopped after %v frames", s.src.Name, s.frames.Load())
	})
}
