package cmd

import (
	"chipstream/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动CHIP.STREAM服务器",
	Long:  `启动CHIP.STREAM的HTTP服务器，提供歌曲上传、检索与流式播放`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
