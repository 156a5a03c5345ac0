package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/iabetor/samspeech/internal/app"
	"github.com/iabetor/samspeech/internal/config"
	"github.com/iabetor/samspeech/internal/logger"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/samspeech.yaml"

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "samspeech",
	Short: "按 tag 管理的复古语音播放器",
	Long: `samspeech 把文本合成为 SAM 风格的语音并按 tag 播放。

同一 tag 同时只播放一段语音，新语音会打断旧语音；
不同 tag 相互独立，可以同时发声。`,
	SilenceUsage: true,
}

// Execute 运行根命令。
func Execute() error {
	defer logger.Sync()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径 (默认: "+defaultConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "覆盖配置中的日志级别")
}

// loadConfig 读取配置。未指定 --config 且默认文件不存在时使用默认配置。
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = defaultConfigPath
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	return cfg, nil
}

// setup 加载配置并初始化日志。
func setup() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}); err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return cfg, nil
}

// newApp 加载配置并组装 App。
func newApp() (*app.App, error) {
	cfg, err := setup()
	if err != nil {
		return nil, err
	}
	a, err := app.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化失败: %w", err)
	}
	return a, nil
}

// signalContext 在收到 SIGINT/SIGTERM 时取消。
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Infof("[main] 收到信号 %v，正在关闭...", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
