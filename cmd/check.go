package cmd

import (
	"fmt"

	"chipstream/cache"
	"chipstream/config"
	"chipstream/logger"
	"chipstream/repository"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "检查歌曲库文件与Redis连接",
	Long:  `读取歌曲库文件并在配置了Redis时测试连接，用于部署前自检`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logger.InitLogger(logger.Config{Level: cfg.LogLevel})

		repo := repository.NewJSONSongRepository(cfg.CatalogPath, nil)
		songs, err := repo.FindAll()
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		fmt.Printf("catalog %s: %d songs\n", cfg.CatalogPath, len(songs))

		if !cfg.RedisEnabled() {
			fmt.Println("redis: not configured, catalog cache disabled")
			return nil
		}
		if err := cache.ConnectRedis(cfg); err != nil {
			return fmt.Errorf("redis check failed: %w", err)
		}
		defer cache.CloseRedis()
		fmt.Printf("redis %s:%s: ok\n", cfg.RedisHost, cfg.RedisPort)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
