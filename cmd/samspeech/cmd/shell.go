package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/iabetor/samspeech/internal/app"
	"github.com/iabetor/samspeech/internal/speech"
	"github.com/spf13/cobra"
)

const shellHelp = `逐行读取命令并控制播放，语音事件实时打印。

命令:
  play <tag> <文本>              以全局参数朗读
  as <角色> <tag> <文本>         以角色参数朗读
  stop <tag>                     停止 tag 上的语音
  stopall                        停止全部语音
  set speed|pitch|throat|mouth <n>
  set volume <dB>
  reset [volume]                 恢复初始参数（或仅音量）
  status                         查看播放状态
  quit                           退出`

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "交互式播放控制台",
	Long:  shellHelp,
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	sh := newShell(a, cmd.OutOrStdout())
	defer sh.close()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	sh.printf("samspeech 控制台，输入 help 查看命令\n")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := sh.exec(ctx, line)
			if err != nil {
				sh.printf("错误: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

// shell 解释控制台命令。事件由总线派发 goroutine 打印，输出需加锁。
type shell struct {
	app *app.App
	id  string

	mu  sync.Mutex
	out io.Writer
}

func newShell(a *app.App, out io.Writer) *shell {
	sh := &shell{app: a, id: "shell", out: out}
	a.Controller.Bus().Subscribe(sh.id, sh.printEvent)
	return sh
}

func (sh *shell) close() {
	sh.app.Controller.Bus().Unsubscribe(sh.id)
}

func (sh *shell) printf(format string, args ...interface{}) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	fmt.Fprintf(sh.out, format, args...)
}

func (sh *shell) printEvent(e speech.Event) {
	switch e.Type {
	case speech.SpeechStart:
		sh.printf("<%s> %s (%d 个采样)\n", e.Tag, e.Type, len(e.Buffer))
	case speech.SpeechError:
		sh.printf("<%s> %s: %s\n", e.Tag, e.Type, e.Message)
	default:
		sh.printf("<%s> %s\n", e.Tag, e.Type)
	}
}

// exec 执行一行命令，返回是否退出。
func (sh *shell) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "quit", "exit":
		return true, nil
	case "help":
		sh.printf("%s\n", shellHelp)
	case "play":
		if len(args) < 2 {
			return false, fmt.Errorf("用法: play <tag> <文本>")
		}
		return false, sh.app.Play(ctx, args[0], strings.Join(args[1:], " "))
	case "as":
		if len(args) < 3 {
			return false, fmt.Errorf("用法: as <角色> <tag> <文本>")
		}
		return false, sh.app.PlayAs(ctx, args[0], args[1], strings.Join(args[2:], " "))
	case "stop":
		if len(args) != 1 {
			return false, fmt.Errorf("用法: stop <tag>")
		}
		sh.app.Controller.StopSpeech(args[0])
	case "stopall":
		sh.app.Controller.StopAllSpeeches()
	case "set":
		return false, sh.set(args)
	case "reset":
		if len(args) == 1 && args[0] == "volume" {
			sh.app.Defaults.ResetVolume()
		} else if len(args) == 0 {
			sh.app.Defaults.ResetAll()
		} else {
			return false, fmt.Errorf("用法: reset [volume]")
		}
	case "status":
		sh.status()
	default:
		return false, fmt.Errorf("未知命令: %s", cmd)
	}
	return false, nil
}

func (sh *shell) set(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("用法: set speed|pitch|throat|mouth|volume <值>")
	}
	d := sh.app.Defaults

	if args[0] == "volume" {
		db, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("无效的音量 %q: %w", args[1], err)
		}
		d.SetVolume(db)
		return nil
	}

	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("无效的数值 %q: %w", args[1], err)
	}
	switch args[0] {
	case "speed":
		d.SetSpeed(n)
	case "pitch":
		d.SetPitch(n)
	case "throat":
		d.SetThroat(n)
	case "mouth":
		d.SetMouth(n)
	default:
		return fmt.Errorf("未知参数: %s", args[0])
	}
	return nil
}

func (sh *shell) status() {
	p := sh.app.Defaults.Params()
	m := sh.app.Monitor

	speaking := m.Speaking()
	if len(speaking) == 0 {
		sh.printf("正在说话: 无\n")
	} else {
		sh.printf("正在说话: %s\n", strings.Join(speaking, ", "))
	}
	sh.printf("全局参数: speed=%d pitch=%d throat=%d mouth=%d volume=%.1fdB\n",
		p.Speed, p.Pitch, p.Throat, p.Mouth, sh.app.Defaults.Volume())
	sh.printf("已知 tag: %s\n", strings.Join(sh.app.Controller.Registry().Tags(), ", "))
	if tag := m.LastTag(); tag != "" {
		sh.printf("最近说话: %s\n", tag)
	}
	if msg := m.LastError(); msg != "" {
		sh.printf("最近错误: %s\n", msg)
	}
}
