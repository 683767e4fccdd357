package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"QueueFM/cache"
	"QueueFM/config"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis连接测试",
	Long:  `测试Redis连接是否成功，并进行一次读写检查。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("Redis配置: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		if err := cache.ConnectRedis(cfg); err != nil {
			log.Fatalf("无法连接到Redis: %v", err)
		}
		defer cache.CloseRedis()
		fmt.Println("Redis连接成功！")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cache.CheckRedis(ctx, cache.RedisClient); err != nil {
			log.Fatalf("Redis读写测试失败: %v", err)
		}
		fmt.Println("Redis读写测试成功！")

		ttl, err := cache.RedisClient.TTL(ctx, cfg.StateKey).Result()
		if err == nil && ttl > 0 {
			fmt.Printf("已保存的播放状态将在 %s 后过期\n", ttl.Round(time.Second))
		}
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
