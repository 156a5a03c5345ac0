package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/iabetor/samspeech/internal/app"
	"github.com/iabetor/samspeech/internal/logger"
	"github.com/iabetor/samspeech/internal/speech"
	"github.com/rs/xid"
	"github.com/spf13/cobra"
)

var sayCmd = &cobra.Command{
	Use:   "say <文本>",
	Short: "朗读一段文本并等待播放结束",
	Long: `合成并播放文本，播放结束（或被 Ctrl+C 打断）后退出。

示例:
  samspeech say "hello world"
  samspeech say --character littleRobot "i am a robot"
  samspeech say --speed 100 --pitch 40 --db -6 "slow and quiet"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSay,
}

func init() {
	rootCmd.AddCommand(sayCmd)
	bindSayFlags(sayCmd)
}

func bindSayFlags(c *cobra.Command) {
	f := c.Flags()
	f.String("tag", "say", "播放所用的 tag")
	f.String("character", "", "使用角色的嗓音参数")
	f.Int("speed", 0, "语速 (默认取全局参数)")
	f.Int("pitch", 0, "音高")
	f.Int("throat", 0, "喉部参数")
	f.Int("mouth", 0, "口型参数")
	f.Float64("db", 0, "音量 (dB)，0 为原始音量")
}

func runSay(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	req, err := sayRequest(cmd, a, strings.Join(args, " "))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	return speakAndWait(ctx, a, req)
}

// sayRequest 按 全局参数 → 角色 → 命令行参数 的顺序确定最终请求。
func sayRequest(cmd *cobra.Command, a *app.App, text string) (speech.Request, error) {
	f := cmd.Flags()
	tag, _ := f.GetString("tag")
	req := speech.Request{
		Text:     text,
		Params:   a.Defaults.Params(),
		VolumeDB: a.Defaults.Volume(),
		Tag:      tag,
	}

	if name, _ := f.GetString("character"); name != "" {
		ch, err := a.Catalog.Lookup(name)
		if err != nil {
			return req, err
		}
		req.Params = ch.Params
	}

	for flag, dst := range map[string]*int{
		"speed":  &req.Params.Speed,
		"pitch":  &req.Params.Pitch,
		"throat": &req.Params.Throat,
		"mouth":  &req.Params.Mouth,
	} {
		if f.Changed(flag) {
			*dst, _ = f.GetInt(flag)
		}
	}
	if f.Changed("db") {
		req.VolumeDB, _ = f.GetFloat64("db")
	}
	return req, nil
}

// speakAndWait 播放并阻塞到该 tag 的终止事件。ctx 取消时停止播放。
func speakAndWait(ctx context.Context, a *app.App, req speech.Request) error {
	bus := a.Controller.Bus()
	id := "say-" + xid.New().String()

	terminal := make(chan speech.Event, 1)
	bus.Subscribe(id, func(e speech.Event) {
		if e.Tag != req.Tag || e.Type == speech.SpeechStart {
			return
		}
		select {
		case terminal <- e:
		default:
		}
	})
	defer bus.Unsubscribe(id)

	if err := a.Controller.PlaySpeech(ctx, req); err != nil {
		return err
	}

	select {
	case e := <-terminal:
		if e.Type == speech.SpeechError {
			return fmt.Errorf("播放失败: %s", e.Message)
		}
		return nil
	case <-ctx.Done():
		a.Controller.StopSpeech(req.Tag)
		logger.Info("[main] 播放已中断")
		return nil
	}
}
