package input

import (
	"errors"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/peerhelp/peerhelp/pkg/logger"
)

var (
	ErrQueueFull = errors.New("input queue is full")
	ErrClosed    = errors.New("input process is closed")
)

// lineSender takes one command per line.
type lineSender interface {
	Send(line []byte) error
	Close() error
}

// lineWriter writes the lines from its own goroutine,
// so the senders never wait for a slow or stuck reader.
type lineWriter struct {
	queue chan []byte
	done  chan struct{}
	once  sync.Once
	w     io.WriteCloser
	log   *logger.Logger
}

func newLineWriter(w io.WriteCloser, size int, log *logger.Logger) *lineWriter {
	if size <= 0 {
		size = 1
	}
	lw := &lineWriter{queue: make(chan []byte, size), done: make(chan struct{}), w: w, log: log}
	go lw.run()
	return lw
}

func (l *lineWriter) Send(line []byte) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.queue <- line:
		return nil
	default:
		return ErrQueueFull
	}
}

func (l *lineWriter) run() {
	for {
		select {
		case line := <-l.queue:
			if _, err := l.w.Write(append(line, '\n')); err != nil {
				l.log.Error().Err(err).Msg("input process write")
				_ = l.Close()
				return
			}
		case <-l.done:
			return
		}
	}
}

func (l *lineWriter) Close() (err error) {
	l.once.Do(func() {
		close(l.done)
		err = l.w.Close()
	})
	return
}

// process is a persistent helper process fed through its stdin.
type process struct {
	*lineWriter
	cmd    *exec.Cmd
	exited chan struct{}
}

func startProcess(name string, args []string, size int, log *logger.Logger) (*process, error) {
	cmd := exec.Command(name, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err = cmd.Start(); err != nil {
		return nil, err
	}
	p := &process{lineWriter: newLineWriter(stdin, size, log), cmd: cmd, exited: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		close(p.exited)
		_ = p.lineWriter.Close()
		log.Debug().Err(err).Msgf("Input process [%v] has exited", name)
	}()
	return p, nil
}

// Close closes the stdin and kills the process if it doesn't quit by itself.
func (p *process) Close() error {
	err := p.lineWriter.Close()
	select {
	case <-p.exited:
	case <-time.After(time.Second):
		_ = p.cmd.Process.Kill()
		<-p.exited
	}
	return err
}
