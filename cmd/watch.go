package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	redisclient "github.com/yungbote/neurobridge-mastery/internal/clients/redis"
	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream committed mastery updates from Redis as JSON lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, cfg, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()
		if cfg.RedisAddr == "" {
			return fmt.Errorf("watch requires REDIS_ADDR")
		}
		ctx := cmd.Context()
		rdb, err := redisclient.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()

		bus, err := redisclient.NewUpdateBus(log, rdb, cfg.RedisUpdateChannel)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		if err := bus.StartForwarder(ctx, func(u types.MasteryUpdate) {
			_ = enc.Encode(u)
		}); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	},
}
