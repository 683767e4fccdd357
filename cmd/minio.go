package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"QueueFM/config"
	"QueueFM/db"
	"QueueFM/model"
	"QueueFM/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioStats  bool
	minioCheck  bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO音频文件检查",
	Long:  `列出存储桶中的音频文件、查看统计信息，或检查曲库中每首歌曲的音频文件是否存在。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		initLogger(cfg)
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		client, err := storage.NewMinioClient(cfg)
		if err != nil {
			log.Fatalf("创建MinIO客户端失败: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if err := storage.CheckBucket(ctx, client, cfg.MinioBucket); err != nil {
			log.Fatalf("无法访问存储桶: %v", err)
		}
		fmt.Println("MinIO连接成功！")

		if minioCheck {
			checkTrackFiles(ctx, cfg, func(key string) (bool, error) {
				return storage.ObjectExists(ctx, client, cfg.MinioBucket, key)
			})
			return
		}

		objects, stats, err := storage.ListAudioObjects(ctx, client, cfg.MinioBucket, minioPrefix)
		if err != nil {
			log.Fatalf("列出文件失败: %v", err)
		}
		if !minioStats {
			for _, obj := range objects {
				fmt.Printf("%-60s %10s  %s\n", obj.Key, storage.FormatSize(obj.Size),
					obj.LastModified.Format("2006-01-02 15:04:05"))
			}
		}
		fmt.Printf("\n音频文件: %d 个, 总大小: %s", stats.TotalObjects, storage.FormatSize(stats.TotalSize))
		if !stats.LastModified.IsZero() {
			fmt.Printf(", 最近修改: %s", stats.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	},
}

// checkTrackFiles 逐首检查曲库中的音频文件，缺失的歌曲在播放时会被跳过
func checkTrackFiles(ctx context.Context, cfg *config.Config, exists func(key string) (bool, error)) {
	if err := db.ConnectGormDB(cfg); err != nil {
		log.Fatalf("无法连接数据库: %v", err)
	}
	defer db.CloseGormDB()

	var tracks []model.Track
	if err := db.GormDB.WithContext(ctx).
		Where("state = ?", model.TrackStateNormal).
		Order("id").
		Find(&tracks).Error; err != nil {
		log.Fatalf("查询曲库失败: %v", err)
	}

	missing := 0
	for _, t := range tracks {
		if t.FilePath == "" {
			fmt.Printf("[无文件] %d %s\n", t.ID, t.Title)
			missing++
			continue
		}
		ok, err := exists(t.FilePath)
		if err != nil {
			fmt.Printf("[错误] %d %s: %v\n", t.ID, t.FilePath, err)
			continue
		}
		if !ok {
			fmt.Printf("[缺失] %d %s\n", t.ID, t.FilePath)
			missing++
		}
	}
	fmt.Printf("\n共检查 %d 首歌曲，缺失 %d 首\n", len(tracks), missing)
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "按前缀过滤文件")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "只显示统计信息")
	minioCmd.Flags().BoolVarP(&minioCheck, "check", "c", false, "检查曲库中的音频文件是否存在")

	minioCmd.Example = `  # 列出所有音频文件
  queuefm minio

  # 按前缀过滤
  queuefm minio -p "audio/"

  # 只显示统计信息
  queuefm minio -s

  # 检查曲库中缺失的音频文件
  queuefm minio -c`
}
