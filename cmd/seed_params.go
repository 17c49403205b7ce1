package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-mastery/internal/app"
	"github.com/yungbote/neurobridge-mastery/internal/data/kcconfig"
	masteryrepo "github.com/yungbote/neurobridge-mastery/internal/data/repos/mastery"
	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/dbctx"
)

var seedParamsCmd = &cobra.Command{
	Use:   "seed-params <file.yaml>",
	Short: "Validate a KC parameter file and store its overrides in the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := kcconfig.LoadFile(args[0])
		if err != nil {
			return err
		}
		log, cfg, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()
		svc, err := app.OpenDB(log, cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		gw := masteryrepo.NewGateway(svc.DB(), log)
		return gw.InTx(cmd.Context(), func(dbc dbctx.Context) error {
			for _, e := range file.Entries {
				key := e.Key
				if key == "" {
					key = e.ID.String()
				}
				if err := gw.KCs.Ensure(dbc, &types.KnowledgeComponent{ID: e.ID, Key: key, Name: e.Name}); err != nil {
					return fmt.Errorf("ensure kc %s: %w", e.ID, err)
				}
				if err := gw.KCs.SetParameterOverrides(dbc, e.ID, e.Bkt); err != nil {
					return fmt.Errorf("set overrides for kc %s: %w", e.ID, err)
				}
			}
			log.Info("kc parameters seeded", "file", args[0], "entries", len(file.Entries))
			return nil
		})
	},
}
