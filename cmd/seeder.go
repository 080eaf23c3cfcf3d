package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/recruiter-reports/internal/division"
	divisionPostgres "github.com/frahmantamala/recruiter-reports/internal/division/postgres"
	"github.com/frahmantamala/recruiter-reports/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed divisions and their authoritative ATS",
	Long:  `Upsert divisions and division to ATS mappings from the seed.divisions list of a YAML file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		seeds, err := readDivisionSeeds(seedFile)
		if err != nil {
			return err
		}
		if len(seeds) == 0 {
			return fmt.Errorf("no divisions under seed.divisions in %s", seedFile)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}

		svc := division.NewService(divisionPostgres.NewDivisionRepository(db), logger.LoggerWrapper())
		if err := svc.Seed(context.Background(), seeds); err != nil {
			return err
		}
		fmt.Printf("Seeded %d divisions\n", len(seeds))
		return nil
	},
}

func readDivisionSeeds(path string) ([]division.SeedDivision, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading seed file: %w", err)
	}
	var seeds []division.SeedDivision
	if err := v.UnmarshalKey("seed.divisions", &seeds); err != nil {
		return nil, fmt.Errorf("error unmarshaling seed divisions: %w", err)
	}
	return seeds, nil
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "config.yml", "YAML file holding seed.divisions")
}
