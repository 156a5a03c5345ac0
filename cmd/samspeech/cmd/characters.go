package cmd

import (
	"fmt"

	"github.com/iabetor/samspeech/internal/database"
	"github.com/iabetor/samspeech/internal/tts"
	"github.com/iabetor/samspeech/internal/voice"
	"github.com/spf13/cobra"
)

var (
	charSpeed  int
	charPitch  int
	charThroat int
	charMouth  int
)

var charactersCmd = &cobra.Command{
	Use:     "characters",
	Aliases: []string{"chars"},
	Short:   "管理嗓音角色",
	Long: `列出、添加或删除嗓音角色。内置角色不可修改。

示例:
  samspeech characters list
  samspeech characters add grumpy --speed 90 --pitch 30 --throat 100 --mouth 120
  samspeech characters remove grumpy`,
}

var charactersListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出全部角色",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withCatalog(func(c *voice.Catalog) error {
			list, err := c.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-18s %6s %6s %6s %6s\n", "名称", "speed", "pitch", "throat", "mouth")
			for _, ch := range list {
				fmt.Fprintf(out, "%-18s %6d %6d %6d %6d\n",
					ch.Name, ch.Params.Speed, ch.Params.Pitch, ch.Params.Throat, ch.Params.Mouth)
			}
			return nil
		})
	},
}

var charactersAddCmd = &cobra.Command{
	Use:   "add <名称>",
	Short: "添加或更新自定义角色",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ch := voice.Character{
			Name: args[0],
			Params: tts.Params{
				Speed:  charSpeed,
				Pitch:  charPitch,
				Throat: charThroat,
				Mouth:  charMouth,
			},
		}
		return withCatalog(func(c *voice.Catalog) error {
			if err := c.Save(ch); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已保存角色 %s\n", ch.Name)
			return nil
		})
	},
}

var charactersRemoveCmd = &cobra.Command{
	Use:   "remove <名称>",
	Short: "删除自定义角色",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(c *voice.Catalog) error {
			removed, err := c.Remove(args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("角色 %s 不存在", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已删除角色 %s\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(charactersCmd)
	charactersCmd.AddCommand(charactersListCmd, charactersAddCmd, charactersRemoveCmd)

	f := charactersAddCmd.Flags()
	f.IntVar(&charSpeed, "speed", tts.DefaultParams.Speed, "语速")
	f.IntVar(&charPitch, "pitch", tts.DefaultParams.Pitch, "音高")
	f.IntVar(&charThroat, "throat", tts.DefaultParams.Throat, "喉部参数")
	f.IntVar(&charMouth, "mouth", tts.DefaultParams.Mouth, "口型参数")
}

// withCatalog 只打开角色数据库，不初始化音频设备和合成引擎。
func withCatalog(fn func(c *voice.Catalog) error) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}

	return fn(voice.NewCatalog(voice.NewStore(db)))
}
