package featurestream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Reads one record per line from a text feature file. Values are separated
// by whitespace; blank lines and lines starting with '#' are skipped.
type fileStream struct {
	path     string
	open     func() (io.ReadCloser, error)
	interval time.Duration
}

func NewFileStream(path string, interval time.Duration) FeatureStreamSubscriber {
	return &fileStream{
		path:     path,
		open:     func() (io.ReadCloser, error) { return os.Open(path) },
		interval: interval,
	}
}

// NewReaderStream is NewFileStream over an already open reader.
func NewReaderStream(name string, r io.Reader) FeatureStreamSubscriber {
	return &fileStream{
		path: name,
		open: func() (io.ReadCloser, error) { return io.NopCloser(r), nil },
	}
}

func (fs *fileStream) SubscribeFeatureStream(ctx context.Context) (chan FeatureRecord, chan error) {
	recCh := make(chan FeatureRecord, StreamDefaultBuffer)
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		defer close(recCh)

		rc, err := fs.open()
		if err != nil {
			errCh <- fmt.Errorf("open feature file [%s]: %w", fs.path, err)
			return
		}
		defer rc.Close()

		var seq uint64
		scanner := bufio.NewScanner(rc)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if fs.interval > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(fs.interval):
				}
			}

			rec := FeatureRecord{
				Seq:    seq,
				Time:   time.Now(),
				Values: strings.Fields(line),
			}
			seq++

			select {
			case <-ctx.Done():
				return
			case recCh <- rec:
			}
		}
		if err := scanner.Err(); err != nil {
			errCh <- fmt.Errorf("read feature file [%s]: %w", fs.path, err)
		}
	}()
	return recCh, errCh
}
