package session

import (
	"errors"
	"fmt"
	"io"
	"os"

	"solace/internal/domain"
	"solace/internal/ports"
)

// pumpClipChunks drains the media session into the clip buffer until the
// device is stopped or fails. Stopping the media session unblocks the read.
func pumpClipChunks(
	media ports.MediaSession,
	clip *clipBuffer,
	chunkSize int,
	events ports.EventSink,
	done chan struct{},
) {
	defer close(done)

	if chunkSize < 1024 {
		chunkSize = 32 * 1024
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := media.Read(buf)
		if n > 0 {
			clip.Append(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				events.CheckinError(domain.ErrorCodeCapture, fmt.Sprintf("capture stream error: %v", err))
			}
			return
		}
	}
}
