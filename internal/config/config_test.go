package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSetDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	checks := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"Audio.Periods", cfg.Audio.Periods, 3},
		{"Audio.PeriodSize", cfg.Audio.PeriodSize, 0},
		{"Audio.GracePeriodMs", cfg.Audio.GracePeriodMs, 10},
		{"Voice.Speed", cfg.Voice.Speed, 72},
		{"Voice.Pitch", cfg.Voice.Pitch, 64},
		{"Voice.Throat", cfg.Voice.Throat, 128},
		{"Voice.Mouth", cfg.Voice.Mouth, 128},
		{"Voice.VolumeDB", cfg.Voice.VolumeDB, 0.0},
		{"TTS.Engine", cfg.TTS.Engine, "sam"},
		{"TTS.SAM.Binary", cfg.TTS.SAM.Binary, "sam"},
		{"TTS.Piper.Binary", cfg.TTS.Piper.Binary, "piper"},
		{"TTS.Sherpa.NumThreads", cfg.TTS.Sherpa.NumThreads, 2},
		{"TTS.Edge.Voice", cfg.TTS.Edge.Voice, "en-US-GuyNeural"},
		{"TTS.Tencent.Region", cfg.TTS.Tencent.Region, "ap-guangzhou"},
		{"Log.Level", cfg.Log.Level, "info"},
	}

	for _, c := range checks {
		switch want := c.want.(type) {
		case int:
			if c.got.(int) != want {
				t.Errorf("%s: got %v, want %v", c.name, c.got, want)
			}
		case float64:
			if c.got.(float64) != want {
				t.Errorf("%s: got %v, want %v", c.name, c.got, want)
			}
		case string:
			if c.got.(string) != want {
				t.Errorf("%s: got %v, want %v", c.name, c.got, want)
			}
		}
	}

	if !strings.HasSuffix(cfg.Database.Path, "samspeech.db") {
		t.Errorf("Database.Path: got %q", cfg.Database.Path)
	}
	if cfg.Audio.GracePeriod() != 10*time.Millisecond {
		t.Errorf("GracePeriod: got %v", cfg.Audio.GracePeriod())
	}
}

func TestSetDefaults_DoesNotOverride(t *testing.T) {
	cfg := &Config{
		Audio: AudioConfig{PeriodSize: 512, Periods: 2, GracePeriodMs: 25},
		Voice: VoiceConfig{Speed: 92, Pitch: 60, Throat: 190, Mouth: 190, VolumeDB: -6},
		TTS:   TTSConfig{Engine: "edge", Edge: EdgeConfig{Voice: "custom-voice"}},
		Log:   LogConfig{Level: "debug"},
	}
	setDefaults(cfg)

	if cfg.Audio.PeriodSize != 512 || cfg.Audio.Periods != 2 {
		t.Errorf("audio periods should not be overridden: got %d/%d", cfg.Audio.PeriodSize, cfg.Audio.Periods)
	}
	if cfg.Audio.GracePeriod() != 25*time.Millisecond {
		t.Errorf("GracePeriod should not be overridden: got %v", cfg.Audio.GracePeriod())
	}
	if cfg.Voice.Speed != 92 || cfg.Voice.Pitch != 60 || cfg.Voice.Throat != 190 || cfg.Voice.Mouth != 190 {
		t.Errorf("voice should not be overridden: got %+v", cfg.Voice)
	}
	if cfg.Voice.VolumeDB != -6 {
		t.Errorf("VolumeDB should not be overridden: got %v", cfg.Voice.VolumeDB)
	}
	if cfg.TTS.Engine != "edge" {
		t.Errorf("TTS.Engine should not be overridden: got %s", cfg.TTS.Engine)
	}
	if cfg.TTS.Edge.Voice != "custom-voice" {
		t.Errorf("TTS.Edge.Voice should not be overridden: got %s", cfg.TTS.Edge.Voice)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level should not be overridden: got %s", cfg.Log.Level)
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	yamlContent := `
audio:
  period_size: 1024
  grace_period_ms: 30
voice:
  character: littleRobot
  volume_db: -10
tts:
  engine: piper
  fallback: sam
  piper:
    model_path: /path/to/model
database:
  path: /tmp/chars.db
log:
  level: debug
  file: /tmp/samspeech.log
  max_size: 5
`
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Audio.PeriodSize != 1024 {
		t.Errorf("Audio.PeriodSize: got %d, want 1024", cfg.Audio.PeriodSize)
	}
	if cfg.Audio.GracePeriodMs != 30 {
		t.Errorf("Audio.GracePeriodMs: got %d, want 30", cfg.Audio.GracePeriodMs)
	}
	if cfg.Voice.Character != "littleRobot" || cfg.Voice.VolumeDB != -10 {
		t.Errorf("Voice: got %+v", cfg.Voice)
	}
	if cfg.TTS.Engine != "piper" || cfg.TTS.Fallback != "sam" {
		t.Errorf("TTS engine/fallback: got %q/%q", cfg.TTS.Engine, cfg.TTS.Fallback)
	}
	if cfg.TTS.Piper.ModelPath != "/path/to/model" {
		t.Errorf("TTS.Piper.ModelPath: got %q", cfg.TTS.Piper.ModelPath)
	}
	if cfg.Database.Path != "/tmp/chars.db" {
		t.Errorf("Database.Path: got %q", cfg.Database.Path)
	}
	if cfg.Log.Level != "debug" || cfg.Log.File != "/tmp/samspeech.log" || cfg.Log.MaxSize != 5 {
		t.Errorf("Log: got %+v", cfg.Log)
	}
	// 未设置的字段应取默认值
	if cfg.Voice.Speed != 72 {
		t.Errorf("Voice.Speed should default to 72, got %d", cfg.Voice.Speed)
	}
	if cfg.Audio.Periods != 3 {
		t.Errorf("Audio.Periods should default to 3, got %d", cfg.Audio.Periods)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_TENCENT_KEY", "secret-from-env")

	yamlContent := `
tts:
  tencent:
    secret_key: "${TEST_TENCENT_KEY}"
`
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.TTS.Tencent.SecretKey != "secret-from-env" {
		t.Errorf("expected env var expansion, got %q", cfg.TTS.Tencent.SecretKey)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(tmpFile, []byte("audio: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if _, err := Load(tmpFile); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSetDefaults_TrimsSecrets(t *testing.T) {
	cfg := &Config{
		TTS: TTSConfig{Tencent: TencentConfig{SecretID: " id\n", SecretKey: "  key-with-spaces  "}},
	}
	setDefaults(cfg)
	if cfg.TTS.Tencent.SecretID != "id" || cfg.TTS.Tencent.SecretKey != "key-with-spaces" {
		t.Errorf("expected trimmed secrets, got %q/%q", cfg.TTS.Tencent.SecretID, cfg.TTS.Tencent.SecretKey)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"波浪号开头", "~/x/y.db", home + "/x/y.db"},
		{"绝对路径", "/var/x.db", "/var/x.db"},
		{"空字符串", "", ""},
		{"中间的波浪号", "a/~/b", "a/~/b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expandHome(tt.in); got != tt.want {
				t.Errorf("expandHome(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
