package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ScottSturdivant/rpi-metar/internal/config"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the map file and print the resolved panel",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	m, err := config.LoadMap(cfg.ConfigFile)
	if err != nil {
		return err
	}
	r, err := m.Resolve()
	if err != nil {
		return fmt.Errorf("map file %s: %w", cfg.ConfigFile, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "map file: %s\n", cfg.ConfigFile)
	fmt.Fprintf(out, "sources:  %s\n", strings.Join(r.Sources, ", "))
	fmt.Fprintf(out, "stations: %d\n", len(r.Stations))
	for _, st := range r.Stations {
		fmt.Fprintf(out, "  %-14s %s  leds=%v\n", st.Key, st.Code, st.LEDs)
	}
	if len(r.Legend) > 0 {
		fmt.Fprintln(out, "legend:")
		for _, le := range r.Legend {
			fmt.Fprintf(out, "  %-14s index=%d  color=%s\n", le.Name, le.Index, le.Color)
		}
	}

	s := r.Settings
	fmt.Fprintf(out, "brightness=%d do_fade=%v metar_refresh_rate=%s wind=%v lightning=%v unknown_off=%v\n",
		*s.Brightness, *s.DoFade, s.MetarRefreshRate.Std(), *s.Wind, *s.Lightning, *s.UnknownOff)
	return nil
}
