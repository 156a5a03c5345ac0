package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/iabetor/samspeech/internal/audio"
	"github.com/iabetor/samspeech/internal/config"
	"github.com/iabetor/samspeech/internal/speech"
	"github.com/iabetor/samspeech/internal/tts"
	"github.com/iabetor/samspeech/internal/voice"
)

// holdSink 的播放源永远不会自然结束，只能被断开。
type holdSink struct{}

func (holdSink) Open([]float32, *audio.Gain) (audio.Source, error) { return &holdSource{}, nil }
func (holdSink) Close() error                                       { return nil }

type holdSource struct{ ended chan error }

func (s *holdSource) Start() error        { return nil }
func (s *holdSource) Disconnect()         {}
func (s *holdSource) Ended() <-chan error { return s.ended }

// paramsEngine 记录每次合成使用的参数。
type paramsEngine struct {
	mu   sync.Mutex
	seen []tts.Params
}

func (e *paramsEngine) Synthesize(_ context.Context, text string, p tts.Params) ([]float32, error) {
	e.mu.Lock()
	e.seen = append(e.seen, p)
	e.mu.Unlock()
	return make([]float32, len(text)), nil
}

func (e *paramsEngine) last() tts.Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seen[len(e.seen)-1]
}

func newTestApp(t *testing.T, mutate func(cfg *config.Config)) (*App, *paramsEngine) {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "samspeech.db")
	if mutate != nil {
		mutate(cfg)
	}

	engine := &paramsEngine{}
	a, err := New(cfg,
		WithEngine(engine),
		WithSinkFactory(func() (audio.Sink, error) { return holdSink{}, nil }),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)
	return a, engine
}

func waitSpeaking(t *testing.T, m *speech.Monitor, tag string, want bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for m.IsSpeaking(tag) != want {
		if time.Now().After(deadline) {
			t.Fatalf("IsSpeaking(%s) never became %v", tag, want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestApp_PlayUsesDefaults(t *testing.T) {
	a, engine := newTestApp(t, nil)
	ctx := context.Background()

	if err := a.Play(ctx, "a", "hello"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if engine.last() != tts.DefaultParams {
		t.Errorf("params = %+v, want defaults", engine.last())
	}
	waitSpeaking(t, a.Monitor, "a", true)

	a.Defaults.SetPitch(20)
	a.Defaults.SetVolume(-20)
	if err := a.Play(ctx, "a", "again"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if engine.last().Pitch != 20 {
		t.Errorf("pitch = %d, want 20", engine.last().Pitch)
	}
	vc, ok := a.Controller.Registry().Get("a")
	if !ok {
		t.Fatal("tag a not registered")
	}
	if g := vc.Gain().Value(); g < 0.099 || g > 0.101 {
		t.Errorf("gain = %v, want 0.1", g)
	}

	a.Controller.StopSpeech("a")
	waitSpeaking(t, a.Monitor, "a", false)
}

func TestApp_PlayAs(t *testing.T) {
	a, engine := newTestApp(t, nil)
	ctx := context.Background()

	if err := a.PlayAs(ctx, "littleRobot", "robot", "beep"); err != nil {
		t.Fatalf("PlayAs: %v", err)
	}
	want, _ := voice.LookupBuiltin("littleRobot")
	if engine.last() != want.Params {
		t.Errorf("params = %+v, want %+v", engine.last(), want.Params)
	}

	custom := voice.Character{Name: "grumpy", Params: tts.Params{Speed: 99, Pitch: 10, Throat: 50, Mouth: 50}}
	if err := a.Catalog.Save(custom); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := a.PlayAs(ctx, "grumpy", "g", "hmm"); err != nil {
		t.Fatalf("PlayAs custom: %v", err)
	}
	if engine.last() != custom.Params {
		t.Errorf("params = %+v, want %+v", engine.last(), custom.Params)
	}

	if err := a.PlayAs(ctx, "nobody", "x", "hi"); err == nil {
		t.Error("unknown character should fail")
	}
	if _, ok := a.Controller.Registry().Get("x"); ok {
		t.Error("failed PlayAs must not register a tag")
	}

	a.Controller.StopAllSpeeches()
	waitSpeaking(t, a.Monitor, "robot", false)
	waitSpeaking(t, a.Monitor, "g", false)
}

func TestNew_DefaultCharacter(t *testing.T) {
	a, engine := newTestApp(t, func(cfg *config.Config) {
		cfg.Voice.Character = "elf"
	})
	if err := a.Play(context.Background(), "a", "hi"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	elf, _ := voice.LookupBuiltin("elf")
	if engine.last() != elf.Params {
		t.Errorf("params = %+v, want elf %+v", engine.last(), elf.Params)
	}

	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "x.db")
	cfg.Voice.Character = "nobody"
	if _, err := New(cfg, WithEngine(engine)); err == nil {
		t.Error("unknown default character should fail")
	}
}

func TestBuildEngine(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.TTSConfig
		wantErr  bool
		fallback bool
	}{
		{"sam", config.TTSConfig{Engine: "sam", SAM: config.SAMConfig{Binary: "sam"}}, false, false},
		{"edge", config.TTSConfig{Engine: "edge"}, false, false},
		{"piper 缺少模型", config.TTSConfig{Engine: "piper"}, true, false},
		{"piper", config.TTSConfig{Engine: "piper", Piper: config.PiperConfig{ModelPath: "/m.onnx"}}, false, false},
		{"腾讯云缺少密钥", config.TTSConfig{Engine: "tencent"}, true, false},
		{"sherpa 缺少模型", config.TTSConfig{Engine: "sherpa"}, true, false},
		{"未知引擎", config.TTSConfig{Engine: "espeak"}, true, false},
		{"带回退", config.TTSConfig{Engine: "edge", Fallback: "sam"}, false, true},
		{"回退与主引擎相同", config.TTSConfig{Engine: "sam", Fallback: "sam"}, false, false},
		{"回退不可用时忽略", config.TTSConfig{Engine: "sam", Fallback: "tencent"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, err := buildEngine(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			_, isFallback := e.(*tts.Fallback)
			if isFallback != tt.fallback {
				t.Errorf("fallback = %v, want %v", isFallback, tt.fallback)
			}
		})
	}
}

func TestApp_CloseReleasesMonitor(t *testing.T) {
	a, _ := newTestApp(t, nil)
	bus := a.Controller.Bus()
	if len(bus.Subscribers()) != 1 {
		t.Fatalf("Subscribers() = %v, want the monitor only", bus.Subscribers())
	}

	if err := a.Play(context.Background(), "robot", "hello"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	waitSpeaking(t, a.Monitor, "robot", true)

	a.Close()
	if a.Monitor.IsSpeaking("robot") {
		t.Error("monitor should see the stop published during Close")
	}
	if subs := bus.Subscribers(); len(subs) != 0 {
		t.Errorf("Subscribers() after Close = %v", subs)
	}
	a.Close()
}
