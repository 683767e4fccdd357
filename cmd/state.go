package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"QueueFM/config"
	"QueueFM/core/persist"
	"QueueFM/logger"

	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "查看或清除保存的播放状态",
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "打印保存的播放状态",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		initLogger(cfg)
		defer logger.Sync()

		m, closeFn, err := newStateManager(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		rec, err := m.Load(ctx)
		switch {
		case errors.Is(err, persist.ErrNotFound):
			fmt.Println("没有保存的播放状态")
			return nil
		case errors.Is(err, persist.ErrExpired):
			fmt.Println("保存的播放状态已过期")
			return nil
		case err != nil:
			return err
		}

		out, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		fmt.Printf("保存于: %s\n", time.UnixMilli(rec.Timestamp).Format(time.RFC3339))
		return nil
	},
}

var stateClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "删除保存的播放状态",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		initLogger(cfg)
		defer logger.Sync()

		m, closeFn, err := newStateManager(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.Clear(ctx); err != nil {
			return err
		}
		fmt.Println("播放状态已清除")
		return nil
	},
}

func init() {
	stateCmd.AddCommand(stateShowCmd, stateClearCmd)
	rootCmd.AddCommand(stateCmd)
}
