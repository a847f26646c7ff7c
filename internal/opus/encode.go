package opus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"github.com/jonas747/ogg"
)

var encodeArgs = []string{
	"-vn",
	"-map", "0:a",
	"-acodec", "libopus",
	"-f", "ogg",
	"-vbr", "on",
	"-compression_level", "10",
	"-ar", "48000",
	"-ac", "2",
	"-b:a", "64000",
	"-application", "audio",
	"-frame_duration", "20",
	"-packet_loss", "1",
	"-threads", "0",
	"-loglevel", "warning",
	"pipe:1",
}

// EncodeURL has FFmpeg fetch source (an http(s) URL or a local path) and
// returns an io.ReadCloser producing length-prefixed Opus frames. Cancelling
// ctx kills FFmpeg. The reader must be closed.
func EncodeURL(ctx context.Context, source string) (io.ReadCloser, error) {
	args := []string{
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", source,
	}
	ffmpeg := exec.CommandContext(ctx, "ffmpeg", append(args, encodeArgs...)...)
	return start(ffmpeg)
}

// Encode takes any audio as an io.Reader, runs FFmpeg to transcode it to Opus,
// and returns an io.ReadCloser that produces length-prefixed Opus frames.
// The caller should read until EOF and must close the reader to clean up
// the FFmpeg process.
func Encode(ctx context.Context, r io.Reader) (io.ReadCloser, error) {
	ffmpeg := exec.CommandContext(ctx, "ffmpeg", append([]string{"-i", "pipe:0"}, encodeArgs...)...)
	ffmpeg.Stdin = r
	return start(ffmpeg)
}

func start(ffmpeg *exec.Cmd) (io.ReadCloser, error) {
	stdout, err := ffmpeg.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("unable to pipe ffmpeg output: %w", err)
	}
	if err := ffmpeg.Start(); err != nil {
		return nil, fmt.Errorf("unable to start ffmpeg: %w", err)
	}

	pr, pw := io.Pipe()
	go func() {
		defer func() {
			if err := ffmpeg.Wait(); err != nil {
				slog.Debug("ffmpeg exited", "err", err)
			}
		}()
		pw.CloseWithError(Packetize(stdout, pw))
	}()

	return &encodeCloser{ReadCloser: pr, cmd: ffmpeg}, nil
}

// Packetize copies the packets of an Ogg/Opus stream to w as length-prefixed
// frames, skipping the two Opus header packets. A clean end of stream
// returns nil.
func Packetize(r io.Reader, w io.Writer) error {
	decoder := ogg.NewPacketDecoder(ogg.NewDecoder(r))

	skip := 2
	for {
		packet, _, err := decoder.Decode()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return fmt.Errorf("failed to decode ogg packet: %w", err)
		}
		if skip > 0 {
			skip--
			continue
		}
		if err := WriteFrame(w, packet); err != nil {
			return err
		}
	}
}

// encodeCloser wraps the pipe reader and ensures the FFmpeg process is cleaned up.
type encodeCloser struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (e *encodeCloser) Close() error {
	err := e.ReadCloser.Close()
	// Kill FFmpeg if still running (e.g. pipe closed early).
	if e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	return err
}
