// Package google provides a Google Cloud Speech-to-Text streaming source.
package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/durationpb"

	"voice-order-service/internal/service/stt"
	"voice-order-service/internal/service/transcript"
)

var ErrNotStarted = errors.New("google source not started")

// Config for the streaming recognizer.
type Config struct {
	LanguageCode   string
	SampleRateHz   int32
	InterimResults bool
	AudioEncoding  string
}

// DefaultConfig recognises Bengali (India) 16 kHz LINEAR16 audio with
// interim results.
func DefaultConfig() Config {
	return Config{
		LanguageCode:   "bn-IN",
		SampleRateHz:   16000,
		InterimResults: true,
		AudioEncoding:  "LINEAR16",
	}
}

func parseAudioEncoding(s string) speechpb.RecognitionConfig_AudioEncoding {
	if v, ok := speechpb.RecognitionConfig_AudioEncoding_value[s]; ok && v != int32(speechpb.RecognitionConfig_ENCODING_UNSPECIFIED) {
		return speechpb.RecognitionConfig_AudioEncoding(v)
	}
	return speechpb.RecognitionConfig_LINEAR16
}

type recognizeStream interface {
	Send(*speechpb.StreamingRecognizeRequest) error
	Recv() (*speechpb.StreamingRecognizeResponse, error)
	CloseSend() error
}

// Source implements stt.Source and stt.AudioSink. Each Start opens a new
// StreamingRecognize call; sequence indices continue across calls.
// Requires GOOGLE_APPLICATION_CREDENTIALS.
type Source struct {
	cfg  Config
	open func(ctx context.Context) (recognizeStream, error)

	mu     sync.Mutex
	stream recognizeStream
	cancel context.CancelFunc
	seq    int
	closed bool
}

func New(ctx context.Context, cfg Config) (*Source, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return &Source{
		cfg: cfg,
		open: func(ctx context.Context) (recognizeStream, error) {
			return c.StreamingRecognize(ctx)
		},
	}, nil
}

// Start opens a stream, sends the streaming config and starts receiving.
func (s *Source) Start(ctx context.Context, cb stt.Callback) error {
	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := s.open(streamCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("open recognize stream: %w", err)
	}

	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        parseAudioEncoding(s.cfg.AudioEncoding),
					SampleRateHertz: s.cfg.SampleRateHz,
					LanguageCode:    s.cfg.LanguageCode,
				},
				InterimResults: s.cfg.InterimResults,
			},
		},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("send streaming config: %w", err)
	}

	s.mu.Lock()
	s.stream = stream
	s.cancel = cancel
	s.closed = false
	s.mu.Unlock()

	go s.listen(stream, cb)
	return nil
}

// SendAudio forwards audio bytes to the open stream.
func (s *Source) SendAudio(ctx context.Context, audio []byte) error {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream == nil {
		return ErrNotStarted
	}
	return stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audio,
		},
	})
}

// Stop half-closes the stream and cancels it.
func (s *Source) Stop() error {
	s.mu.Lock()
	stream, cancel := s.stream, s.cancel
	s.stream, s.cancel = nil, nil
	s.closed = true
	s.mu.Unlock()

	var err error
	if stream != nil {
		err = stream.CloseSend()
	}
	if cancel != nil {
		cancel()
	}
	return err
}

// listen receives responses until the stream ends. io.EOF without Stop is
// reported as OnEnd; any other error after Stop is swallowed.
func (s *Source) listen(stream recognizeStream, cb stt.Callback) {
	for {
		resp, err := stream.Recv()
		if err != nil {
			s.mu.Lock()
			stopped := s.closed || s.stream != stream
			if s.stream == stream {
				s.stream = nil
				if s.cancel != nil {
					s.cancel()
					s.cancel = nil
				}
			}
			s.mu.Unlock()

			switch {
			case stopped:
			case errors.Is(err, io.EOF):
				cb.OnEnd()
			default:
				cb.OnError(err)
			}
			return
		}

		for _, r := range resp.GetResults() {
			if len(r.GetAlternatives()) == 0 {
				continue
			}
			f := s.fragment(r.GetAlternatives()[0].GetTranscript(), r.GetIsFinal())
			if f.IsFinal {
				log.Debug().
					Int("seq", f.SequenceIndex).
					Dur("offset", offset(r.GetResultEndTime())).
					Msg("Final result received")
			}
			cb.OnFragment(f)
		}
	}
}

func (s *Source) fragment(text string, final bool) transcript.Fragment {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := transcript.Fragment{Text: text, IsFinal: final, SequenceIndex: s.seq}
	s.seq++
	return f
}

func offset(d *durationpb.Duration) time.Duration {
	if d == nil {
		return 0
	}
	return d.AsDuration()
}
